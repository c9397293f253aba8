// Package realtime pushes domain changes to connected websocket clients.
// Services publish Events to topics; the Hub fans them out to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	EventAppointmentCreated = "appointment.created"
	EventAppointmentUpdated = "appointment.updated"
	EventMessageSent        = "message.sent"
	EventMessagesRead       = "message.read"
	EventQueueUpdated       = "queue.updated"
	EventSlotsUpdated       = "slots.updated"
	EventClinicStatus       = "clinic.status"
)

type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers an event to every subscriber of its topic.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func NewEvent(topic, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		Type:      eventType,
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Emit builds and publishes an event. A nil publisher is a no-op.
func Emit(ctx context.Context, p Publisher, topic, eventType string, payload any) error {
	if p == nil {
		return nil
	}
	ev, err := NewEvent(topic, eventType, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ev)
}

func UserTopic(userID string) string { return "user/" + userID }
func QueueTopic(clinicID string) string { return "queue/" + clinicID }
func SlotsTopic(clinicID string) string { return "slots/" + clinicID }

// CanSubscribe reports whether userID may listen on topic. Personal topics
// are private to their owner; queue and slot topics are public.
func CanSubscribe(userID, topic string) bool {
	kind, id, ok := strings.Cut(topic, "/")
	if !ok || id == "" {
		return false
	}
	switch kind {
	case "user":
		return id == userID
	case "queue", "slots":
		return true
	default:
		return false
	}
}
