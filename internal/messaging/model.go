package messaging

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SendRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}

// Unread is the caller's unread total plus the same count split by
// sender.
type Unread struct {
	Total    int            `json:"total"`
	BySender map[string]int `json:"bySender"`
}
