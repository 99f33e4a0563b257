package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/store"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode. Pass ":memory:" for an ephemeral database.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id       TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    email_lower   TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    username      TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    last_active   TEXT NOT NULL,
    preferences   TEXT NOT NULL,
    version       INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS chats (
    chat_id         TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    title           TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    last_message_at TEXT NOT NULL,
    message_count   INTEGER NOT NULL DEFAULT 0,
    is_active       INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id, last_message_at DESC);
CREATE TABLE IF NOT EXISTS messages (
    message_id   TEXT PRIMARY KEY,
    chat_id      TEXT NOT NULL,
    user_id      TEXT NOT NULL,
    role         TEXT NOT NULL,
    content      TEXT NOT NULL,
    ts           TEXT NOT NULL,
    message_type TEXT NOT NULL DEFAULT 'text'
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, ts);
CREATE TABLE IF NOT EXISTS user_memory (
    user_id             TEXT PRIMARY KEY,
    memory_snapshot     TEXT NOT NULL,
    extracted_interests TEXT NOT NULL,
    conversation_count  INTEGER NOT NULL DEFAULT 0,
    last_updated        TEXT NOT NULL
);
`

// NewWithDB constructs a SQLite-backed store and bootstraps the schema.
func NewWithDB(db *sql.DB) (store.Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Users() store.Users       { return &users{db: s.db} }
func (s *sqliteStore) Chats() store.Chats       { return &chats{db: s.db} }
func (s *sqliteStore) Messages() store.Messages { return &messages{db: s.db} }
func (s *sqliteStore) Memories() store.Memories { return &memories{db: s.db} }

// HealthPing implements the health probe used by /api/health.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Timestamps are persisted as ISO-8601 text.
func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Users ---
type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	id := m.UserID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	prefsJSON, err := json.Marshal(m.Preferences)
	if err != nil {
		return nil, err
	}
	_, err = u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, email, email_lower, password_hash, username, created_at, last_active, preferences, version)
        VALUES (?,?,?,?,?,?,?,?,1)
    `, id, m.Email, strings.ToLower(m.Email), m.PasswordHash, m.Username, encodeTime(now), encodeTime(now), string(prefsJSON))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, model.ErrDuplicateEmail
		}
		return nil, err
	}
	out := *m
	out.UserID = id
	out.CreatedAt = now
	out.LastActive = now
	out.Version = 1
	return &out, nil
}

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*model.User, error) {
	var out model.User
	var created, lastActive, prefsJSON string
	if err := row.Scan(&out.UserID, &out.Email, &out.PasswordHash, &out.Username, &created, &lastActive, &prefsJSON, &out.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	out.CreatedAt = decodeTime(created)
	out.LastActive = decodeTime(lastActive)
	if err := json.Unmarshal([]byte(prefsJSON), &out.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return &out, nil
}

const userCols = `user_id, email, password_hash, username, created_at, last_active, preferences, version`

func (u *users) GetByID(ctx context.Context, userID string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE user_id=?`, userID)
	return scanUser(row)
}

func (u *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email_lower=?`, strings.ToLower(email))
	return scanUser(row)
}

func (u *users) UpdatePreferences(ctx context.Context, userID string, prefs model.Preferences, version int64) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	res, err := u.db.ExecContext(ctx, `
        UPDATE users SET preferences=?, last_active=?, version=version+1
        WHERE user_id=? AND version=?
    `, string(prefsJSON), encodeTime(time.Now().UTC()), userID, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from a concurrent write.
		var exists int
		if err := u.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id=?`, userID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrNotFound
			}
			return err
		}
		return model.ErrVersionConflict
	}
	return nil
}

func (u *users) ListEmailEnabled(ctx context.Context) ([]*model.User, error) {
	rows, err := u.db.QueryContext(ctx, `
        SELECT `+userCols+` FROM users
        WHERE json_extract(preferences, '$.email_notifications') = 1
    `)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.User
	for rows.Next() {
		m, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Chats ---
type chats struct{ db *sql.DB }

func (c *chats) Create(ctx context.Context, mc *model.Chat) (*model.Chat, error) {
	id := mc.ChatID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO chats (chat_id, user_id, title, created_at, last_message_at, message_count, is_active)
        VALUES (?,?,?,?,?,0,1)
    `, id, mc.UserID, mc.Title, encodeTime(now), encodeTime(now))
	if err != nil {
		return nil, err
	}
	return &model.Chat{ChatID: id, UserID: mc.UserID, Title: mc.Title, CreatedAt: now, LastMessageAt: now, MessageCount: 0, IsActive: true}, nil
}

func (c *chats) GetByID(ctx context.Context, chatID string) (*model.Chat, error) {
	var out model.Chat
	var created, lastMsg string
	var active int
	row := c.db.QueryRowContext(ctx, `
        SELECT chat_id, user_id, title, created_at, last_message_at, message_count, is_active
        FROM chats WHERE chat_id=?
    `, chatID)
	if err := row.Scan(&out.ChatID, &out.UserID, &out.Title, &created, &lastMsg, &out.MessageCount, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	out.CreatedAt = decodeTime(created)
	out.LastMessageAt = decodeTime(lastMsg)
	out.IsActive = active != 0
	return &out, nil
}

func (c *chats) ListByUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT chat_id, user_id, title, created_at, last_message_at, message_count, is_active
        FROM chats WHERE user_id=? ORDER BY last_message_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Chat
	for rows.Next() {
		var m model.Chat
		var created, lastMsg string
		var active int
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.Title, &created, &lastMsg, &m.MessageCount, &active); err != nil {
			return nil, err
		}
		m.CreatedAt = decodeTime(created)
		m.LastMessageAt = decodeTime(lastMsg)
		m.IsActive = active != 0
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Messages ---
type messages struct{ db *sql.DB }

func (m *messages) Append(ctx context.Context, msg *model.Message) (*model.Message, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	id := msg.MessageID
	if id == "" {
		id = uuid.New().String()
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	msgType := msg.MessageType
	if msgType == "" {
		msgType = "text"
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO messages (message_id, chat_id, user_id, role, content, ts, message_type)
        VALUES (?,?,?,?,?,?,?)
    `, id, msg.ChatID, msg.UserID, msg.Role, msg.Content, encodeTime(ts), msgType); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE chats SET last_message_at=?, message_count=message_count+1 WHERE chat_id=?
    `, encodeTime(ts), msg.ChatID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *msg
	out.MessageID = id
	out.Timestamp = ts
	out.MessageType = msgType
	return &out, nil
}

func (m *messages) ListByChat(ctx context.Context, chatID string, limit int) ([]*model.Message, error) {
	query := `
        SELECT message_id, chat_id, user_id, role, content, ts, message_type
        FROM messages WHERE chat_id=? ORDER BY ts ASC`
	args := []interface{}{chatID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return m.list(ctx, query, args, false)
}

func (m *messages) ListRecent(ctx context.Context, chatID string, limit int) ([]*model.Message, error) {
	query := `
        SELECT message_id, chat_id, user_id, role, content, ts, message_type
        FROM messages WHERE chat_id=? ORDER BY ts DESC LIMIT ?`
	return m.list(ctx, query, []interface{}{chatID, limit}, true)
}

func (m *messages) list(ctx context.Context, query string, args []interface{}, reverse bool) ([]*model.Message, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Message
	for rows.Next() {
		var msg model.Message
		var ts string
		if err := rows.Scan(&msg.MessageID, &msg.ChatID, &msg.UserID, &msg.Role, &msg.Content, &ts, &msg.MessageType); err != nil {
			return nil, err
		}
		msg.Timestamp = decodeTime(ts)
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// --- Memories ---
type memories struct{ db *sql.DB }

func (m *memories) Get(ctx context.Context, userID string) (*model.UserMemory, error) {
	var out model.UserMemory
	var interestsJSON, updated string
	row := m.db.QueryRowContext(ctx, `
        SELECT user_id, memory_snapshot, extracted_interests, conversation_count, last_updated
        FROM user_memory WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.MemorySnapshot, &interestsJSON, &out.ConversationCount, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	out.LastUpdated = decodeTime(updated)
	if err := json.Unmarshal([]byte(interestsJSON), &out.ExtractedInterests); err != nil {
		return nil, fmt.Errorf("decode interests: %w", err)
	}
	return &out, nil
}

func (m *memories) Put(ctx context.Context, userID, snapshot string, interests []string, at time.Time) error {
	if interests == nil {
		interests = []string{}
	}
	interestsJSON, err := json.Marshal(interests)
	if err != nil {
		return err
	}
	_, err = m.db.ExecContext(ctx, `
        INSERT INTO user_memory (user_id, memory_snapshot, extracted_interests, conversation_count, last_updated)
        VALUES (?,?,?,1,?)
        ON CONFLICT(user_id) DO UPDATE SET
            memory_snapshot=excluded.memory_snapshot,
            extracted_interests=excluded.extracted_interests,
            conversation_count=user_memory.conversation_count+1,
            last_updated=excluded.last_updated
    `, userID, snapshot, string(interestsJSON), encodeTime(at))
	return err
}
