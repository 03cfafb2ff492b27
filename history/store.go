// Package history persists conversations and their messages in SQLite,
// keyed by (user, conversation). Expected absence — an unknown conversation
// id, a conversation owned by another user, an empty listing — is reported
// through sentinel returns (nil, false, empty slice), never through errors;
// errors are reserved for storage failures.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m4xw311/machat/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	parts           TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
`

// Conversation is a persisted, user-scoped chat thread.
type Conversation struct {
	ID           string
	UserID       string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message is one immutable entry in a conversation. Parts holds the
// serialized structured content; use ParseMessageContent for display text.
type Message struct {
	ID             string
	ConversationID string
	Role           string // "user" or "agent"
	Parts          string
	CreatedAt      time.Time
}

// Store wraps the SQLite conversation database. Open it once at startup and
// hold it for the process lifetime.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the conversation database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "could not create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open database %s", path)
	}
	// A single interactive operator; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "could not enable foreign keys")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "could not initialize schema")
	}
	logger.Debug("conversation store ready", "path", path)
	return &Store{db: db}, nil
}

// DB exposes the underlying handle so co-located tables (the retrieval
// index) can share the single process connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// ListConversations returns the user's conversations ordered by most
// recently updated, each annotated with its message count. A user with no
// history gets an empty slice.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE c.user_id = ?
		GROUP BY c.id, c.user_id, c.title, c.created_at, c.updated_at
		ORDER BY c.updated_at DESC, c.rowid DESC`, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "could not list conversations")
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		var created, updated string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &created, &updated, &c.MessageCount); err != nil {
			return nil, errors.Wrapf(err, "could not scan conversation row")
		}
		c.CreatedAt = parseTime(created)
		c.UpdatedAt = parseTime(updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConversation returns the conversation and its messages in chronological
// order. When the id does not exist or belongs to another user it returns
// (nil, empty, nil) so callers can distinguish "no history" from failure.
func (s *Store) GetConversation(ctx context.Context, conversationID, userID string) (*Conversation, []Message, error) {
	var c Conversation
	var created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	).Scan(&c.ID, &c.UserID, &c.Title, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, []Message{}, nil
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not load conversation %s", conversationID)
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)

	// rowid breaks ties between messages stamped in the same instant, so
	// the user/agent pair of one turn keeps its insertion order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, parts, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not load messages for %s", conversationID)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var ts string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Parts, &ts); err != nil {
			return nil, nil, errors.Wrapf(err, "could not scan message row")
		}
		m.CreatedAt = parseTime(ts)
		messages = append(messages, m)
	}
	return &c, messages, rows.Err()
}

// DeleteConversation removes a conversation and all of its messages after
// verifying ownership. It returns false without touching anything when the
// conversation is missing or owned by another user.
func (s *Store) DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrapf(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "could not verify conversation ownership")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return false, errors.Wrapf(err, "could not delete messages")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return false, errors.Wrapf(err, "could not delete conversation")
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrapf(err, "could not commit delete")
	}
	return true, nil
}

// UpdateConversationTitle renames a conversation, returning false when no
// row matched (missing id or wrong owner).
func (s *Store) UpdateConversationTitle(ctx context.Context, conversationID, userID, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		title, formatTime(time.Now()), conversationID, userID)
	if err != nil {
		return false, errors.Wrapf(err, "could not update conversation title")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "could not read rows affected")
	}
	return n > 0, nil
}

// EnsureConversation creates the conversation row if it does not exist yet.
// The title only applies on creation.
func (s *Store) EnsureConversation(ctx context.Context, conversationID, userID, title string) error {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		conversationID, userID, title, now, now)
	return errors.Wrapf(err, "could not ensure conversation %s", conversationID)
}

// AppendMessage writes one immutable message and bumps the conversation's
// updated_at. Content is stored as serialized parts.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, text string) (string, error) {
	id := NewMessageID()
	now := formatTime(time.Now())
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, parts, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, conversationID, role, EncodeParts(text), now); err != nil {
		return "", errors.Wrapf(err, "could not append message")
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID); err != nil {
		return "", errors.Wrapf(err, "could not touch conversation")
	}
	return id, nil
}

// part is one fragment of structured message content.
type part struct {
	Text string `json:"text"`
}

// EncodeParts serializes display text into the stored parts representation,
// a JSON array of content fragments with a "text" field.
func EncodeParts(text string) string {
	data, _ := json.Marshal([]part{{Text: text}})
	return string(data)
}

// ParseMessageContent decodes stored parts into flat display text. Malformed
// input is returned unchanged — history display must never crash the
// session.
func ParseMessageContent(parts string) string {
	var decoded []part
	if err := json.Unmarshal([]byte(parts), &decoded); err != nil || len(decoded) == 0 {
		return parts
	}
	var text string
	for _, p := range decoded {
		text += p.Text
	}
	return text
}

// Timestamps are stored as fixed-width UTC text: the fractional second is
// always nine digits, so lexicographic order matches chronological order.
// RFC3339Nano would drop trailing zeros and break that property.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
