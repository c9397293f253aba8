package messaging

import (
	"context"

	"github.com/hackgods/clinic-booking/internal/identity"
)

type Repository interface {
	Insert(ctx context.Context, m Message) (*Message, error)
	// MarkRead flips every unread message from senderID to receiverID and
	// returns how many changed.
	MarkRead(ctx context.Context, senderID, receiverID string) (int, error)
	// Conversation returns both directions between a and b, oldest first.
	Conversation(ctx context.Context, a, b string) ([]Message, error)
	UnreadCount(ctx context.Context, receiverID string) (int, error)
	UnreadBySender(ctx context.Context, receiverID string) (map[string]int, error)
	// Partners returns the onboarded users userID has exchanged messages
	// with in either direction.
	Partners(ctx context.Context, userID string) ([]identity.User, error)
}
