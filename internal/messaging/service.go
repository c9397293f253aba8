// Package messaging stores direct messages between users and tracks which
// ones the receiver has read.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/apperr"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/realtime"
)

var (
	ErrSenderNotFound   = apperr.New(apperr.KindNotFound, "sender not found")
	ErrReceiverNotFound = apperr.New(apperr.KindNotFound, "receiver not found")
	ErrEmptyContent     = apperr.New(apperr.KindInvalid, "message content is required")
)

type Guard interface {
	Authenticated(ctx context.Context) (auth.Principal, error)
	Lookup(ctx context.Context, id string) (*identity.User, error)
}

type Service struct {
	repo    Repository
	guard   Guard
	pub     realtime.Publisher
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewService(repo Repository, guard Guard, pub realtime.Publisher, m *metrics.Collector, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, guard: guard, pub: pub, metrics: m, log: log}
}

func (s *Service) Send(ctx context.Context, req SendRequest) (*Message, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if err := s.mustExist(ctx, p.UserID, ErrSenderNotFound); err != nil {
		return nil, err
	}
	if err := s.mustExist(ctx, req.ReceiverID, ErrReceiverNotFound); err != nil {
		return nil, err
	}

	msg, err := s.repo.Insert(ctx, Message{
		ID:         uuid.New(),
		SenderID:   p.UserID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MessagesSent.Inc()
	}
	s.log.Debug("message sent",
		zap.String("message_id", msg.ID.String()),
		zap.String("sender_id", msg.SenderID),
		zap.String("receiver_id", msg.ReceiverID),
	)
	if err := realtime.Emit(ctx, s.pub, realtime.UserTopic(msg.ReceiverID), realtime.EventMessageSent, msg); err != nil {
		s.log.Warn("publish message", zap.String("message_id", msg.ID.String()), zap.Error(err))
	}
	return msg, nil
}

func (s *Service) mustExist(ctx context.Context, id string, notFound error) error {
	if id == "" {
		return notFound
	}
	if _, err := s.guard.Lookup(ctx, id); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return notFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	return nil
}

// MarkRead marks everything counterpartyID sent the caller as read and
// tells the counterparty how many were read.
func (s *Service) MarkRead(ctx context.Context, counterpartyID string) (int, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkRead(ctx, counterpartyID, p.UserID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		payload := map[string]any{"readerId": p.UserID, "count": n}
		if err := realtime.Emit(ctx, s.pub, realtime.UserTopic(counterpartyID), realtime.EventMessagesRead, payload); err != nil {
			s.log.Warn("publish read receipt", zap.Error(err))
		}
	}
	return n, nil
}

func (s *Service) Conversation(ctx context.Context, otherID string) ([]Message, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Conversation(ctx, p.UserID, otherID)
}

// Unread reports the caller's global unread count and its per-sender
// breakdown.
func (s *Service) Unread(ctx context.Context) (*Unread, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.UnreadCount(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	bySender, err := s.repo.UnreadBySender(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return &Unread{Total: total, BySender: bySender}, nil
}

func (s *Service) ChatPartners(ctx context.Context) ([]identity.User, error) {
	p, err := s.guard.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Partners(ctx, p.UserID)
}
