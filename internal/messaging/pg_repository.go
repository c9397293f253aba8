package messaging

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-booking/internal/identity"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, m Message) (*Message, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, false, now())
		RETURNING id, sender_id, receiver_id, content, is_read, created_at
	`, m.ID, m.SenderID, m.ReceiverID, m.Content)

	var out Message
	if err := row.Scan(&out.ID, &out.SenderID, &out.ReceiverID, &out.Content, &out.IsRead, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &out, nil
}

func (r *PgRepository) MarkRead(ctx context.Context, senderID, receiverID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET is_read = true
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = false
	`, senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) Conversation(ctx context.Context, a, b string) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, content, is_read, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`, a, b)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Message, error) {
		var m Message
		err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return list, nil
}

func (r *PgRepository) UnreadCount(ctx context.Context, receiverID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = false
	`, receiverID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (r *PgRepository) UnreadBySender(ctx context.Context, receiverID string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE receiver_id = $1 AND is_read = false
		GROUP BY sender_id
	`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("query unread by sender: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var sender string
		var n int
		if err := rows.Scan(&sender, &n); err != nil {
			return nil, fmt.Errorf("scan unread by sender: %w", err)
		}
		out[sender] = n
	}
	return out, rows.Err()
}

func (r *PgRepository) Partners(ctx context.Context, userID string) ([]identity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.role, u.status, u.created_at
		FROM users u
		WHERE u.id IN (
			SELECT sender_id FROM messages WHERE receiver_id = $1
			UNION
			SELECT receiver_id FROM messages WHERE sender_id = $1
		)
		ORDER BY u.email
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query chat partners: %w", err)
	}

	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (identity.User, error) {
		var u identity.User
		err := row.Scan(&u.ID, &u.Email, &u.Role, &u.Status, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan chat partners: %w", err)
	}
	return list, nil
}
