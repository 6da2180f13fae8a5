package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// NoTimeBound is the sentinel callers pass for "no lower time bound".
const NoTimeBound int64 = -1

// ConversationStore is the core's view of message persistence. SQLStore is
// the production implementation; MemStore backs tests and dev mode.
type ConversationStore interface {
	// Insert assigns ID and Time server-side and returns the stored record
	// so callers can read back the assigned time for acknowledgements.
	Insert(ctx context.Context, msg ChatMessage) (ChatMessage, error)

	// Query returns messages newest first. With userB set it matches only
	// the pair; otherwise any message where userA is either party. Only
	// messages with time > sinceTs are returned.
	Query(ctx context.Context, userA, userB string, sinceTs int64, skip, limit int) ([]ChatMessage, error)

	// UniqueCounterparties aggregates the distinct users userID has sent to
	// and received from, each set excluding userID itself.
	UniqueCounterparties(ctx context.Context, userID string) (sentTo, receivedFrom []string, err error)

	// LastMessage returns the most recent message between the pair, or the
	// zero ChatMessage when the pair has never talked.
	LastMessage(ctx context.Context, userA, userB string) (ChatMessage, error)

	// LastFromMessage returns the most recent message sent by userID, or
	// the zero ChatMessage. Its time doubles as the user's last-activity
	// timestamp.
	LastFromMessage(ctx context.Context, userID string) (ChatMessage, error)

	// CountUnread counts unread messages sent to `to`, restricted to sender
	// `from` when set, with time > sinceTs.
	CountUnread(ctx context.Context, from, to string, sinceTs int64) (int, error)

	// MarkRead flags messages from -> to with time >= sinceTs as read and
	// returns the matched count. Idempotent: re-marking never reverts.
	MarkRead(ctx context.Context, from, to string, sinceTs int64) (int, error)
}

// SQLStore persists messages in Postgres.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, msg ChatMessage) (ChatMessage, error) {
	msg.ID = ulid.Make().String()
	msg.Time = time.Now().UnixMilli()
	msg.Read = false
	query := `INSERT INTO messages (id, from_id, to_id, message, sent_time, read)
	          VALUES ($1, $2, $3, $4, $5, FALSE)`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.From, msg.To, msg.Message, msg.Time)
	if err != nil {
		return ChatMessage{}, err
	}
	return msg, nil
}

func (s *SQLStore) Query(ctx context.Context, userA, userB string, sinceTs int64, skip, limit int) ([]ChatMessage, error) {
	var (
		query string
		args  []any
	)
	if userB != "" {
		query = `SELECT id, from_id, to_id, message, sent_time, read FROM messages
		         WHERE ((from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1))
		           AND sent_time > $3
		         ORDER BY sent_time DESC, id DESC OFFSET $4 LIMIT $5`
		args = []any{userA, userB, sinceTs, skip, limit}
	} else {
		query = `SELECT id, from_id, to_id, message, sent_time, read FROM messages
		         WHERE (from_id = $1 OR to_id = $1) AND sent_time > $2
		         ORDER BY sent_time DESC, id DESC OFFSET $3 LIMIT $4`
		args = []any{userA, sinceTs, skip, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Message, &m.Time, &m.Read); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) UniqueCounterparties(ctx context.Context, userID string) ([]string, []string, error) {
	sentTo, err := s.distinctIDs(ctx, `SELECT DISTINCT to_id FROM messages
	        WHERE (from_id = $1 OR to_id = $1) AND to_id <> $1`, userID)
	if err != nil {
		return nil, nil, err
	}
	receivedFrom, err := s.distinctIDs(ctx, `SELECT DISTINCT from_id FROM messages
	        WHERE (from_id = $1 OR to_id = $1) AND from_id <> $1`, userID)
	if err != nil {
		return nil, nil, err
	}
	return sentTo, receivedFrom, nil
}

func (s *SQLStore) distinctIDs(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) LastMessage(ctx context.Context, userA, userB string) (ChatMessage, error) {
	query := `SELECT id, from_id, to_id, message, sent_time, read FROM messages
	          WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
	          ORDER BY sent_time DESC, id DESC LIMIT 1`
	var m ChatMessage
	err := s.db.QueryRowContext(ctx, query, userA, userB).
		Scan(&m.ID, &m.From, &m.To, &m.Message, &m.Time, &m.Read)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatMessage{}, nil
	}
	if err != nil {
		return ChatMessage{}, err
	}
	return m, nil
}

func (s *SQLStore) LastFromMessage(ctx context.Context, userID string) (ChatMessage, error) {
	query := `SELECT id, from_id, to_id, message, sent_time, read FROM messages
	          WHERE from_id = $1 ORDER BY sent_time DESC, id DESC LIMIT 1`
	var m ChatMessage
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&m.ID, &m.From, &m.To, &m.Message, &m.Time, &m.Read)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatMessage{}, nil
	}
	if err != nil {
		return ChatMessage{}, err
	}
	return m, nil
}

func (s *SQLStore) CountUnread(ctx context.Context, from, to string, sinceTs int64) (int, error) {
	var (
		query string
		args  []any
	)
	if from != "" {
		query = `SELECT COUNT(*) FROM messages
		         WHERE from_id = $1 AND to_id = $2 AND read IS NOT TRUE AND sent_time > $3`
		args = []any{from, to, sinceTs}
	} else {
		query = `SELECT COUNT(*) FROM messages
		         WHERE to_id = $1 AND read IS NOT TRUE AND sent_time > $2`
		args = []any{to, sinceTs}
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLStore) MarkRead(ctx context.Context, from, to string, sinceTs int64) (int, error) {
	query := `UPDATE messages SET read = TRUE
	          WHERE from_id = $1 AND to_id = $2 AND sent_time >= $3`
	res, err := s.db.ExecContext(ctx, query, from, to, sinceTs)
	if err != nil {
		return 0, err
	}
	matched, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(matched), nil
}
