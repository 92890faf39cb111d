package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// MessageRepository handles persistence for messages.
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// CountSent counts the messages from one nickname to another at a venue.
func (r *MessageRepository) CountSent(ctx context.Context, venueID int64, from, to string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE venue_id = $1 AND from_nickname = $2 AND to_nickname = $3`,
		venueID, from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// Create inserts a message, filling in ID and CreatedAt.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	m.ID = uuid.New()
	m.Read = false

	err := r.db.QueryRow(ctx,
		`INSERT INTO messages (id, venue_id, from_nickname, to_nickname, text)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		m.ID, m.VenueID, m.FromNickname, m.ToNickname, m.Text,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListConversation returns the latest messages sent from one nickname to
// another, newest first.
func (r *MessageRepository) ListConversation(ctx context.Context, venueID int64, from, to string, limit int) ([]model.Message, error) {
	return r.list(ctx,
		`SELECT id, venue_id, from_nickname, to_nickname, text, created_at, read
		 FROM messages
		 WHERE venue_id = $1 AND from_nickname = $2 AND to_nickname = $3
		 ORDER BY created_at DESC
		 LIMIT $4`,
		venueID, from, to, limit,
	)
}

// ListInbox returns the latest messages addressed to a nickname, newest first.
func (r *MessageRepository) ListInbox(ctx context.Context, venueID int64, to string, limit int) ([]model.Message, error) {
	return r.list(ctx,
		`SELECT id, venue_id, from_nickname, to_nickname, text, created_at, read
		 FROM messages
		 WHERE venue_id = $1 AND to_nickname = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		venueID, to, limit,
	)
}

// MarkRead flags every unread message from one nickname to another as read.
func (r *MessageRepository) MarkRead(ctx context.Context, venueID int64, from, to string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET read = true
		 WHERE venue_id = $1 AND from_nickname = $2 AND to_nickname = $3 AND read = false`,
		venueID, from, to,
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.VenueID, &m.FromNickname, &m.ToNickname, &m.Text, &m.CreatedAt, &m.Read); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
