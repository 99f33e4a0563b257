package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/store"
)

// Open connects to Postgres via the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
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
    created_at    TIMESTAMPTZ NOT NULL,
    last_active   TIMESTAMPTZ NOT NULL,
    preferences   JSONB NOT NULL,
    version       BIGINT NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS chats (
    chat_id         TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    title           TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL,
    last_message_at TIMESTAMPTZ NOT NULL,
    message_count   BIGINT NOT NULL DEFAULT 0,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id, last_message_at DESC);
CREATE TABLE IF NOT EXISTS messages (
    message_id   TEXT PRIMARY KEY,
    chat_id      TEXT NOT NULL,
    user_id      TEXT NOT NULL,
    role         TEXT NOT NULL,
    content      TEXT NOT NULL,
    ts           TIMESTAMPTZ NOT NULL,
    message_type TEXT NOT NULL DEFAULT 'text'
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, ts);
CREATE TABLE IF NOT EXISTS user_memory (
    user_id             TEXT PRIMARY KEY,
    memory_snapshot     TEXT NOT NULL,
    extracted_interests JSONB NOT NULL,
    conversation_count  BIGINT NOT NULL DEFAULT 0,
    last_updated        TIMESTAMPTZ NOT NULL
);
`

// NewWithDB constructs a Postgres-backed store and ensures the schema exists.
func NewWithDB(db *sql.DB) (store.Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("bootstrap postgres schema: %w", err)
	}
	return &pgStore{db: db}, nil
}

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users       { return &users{db: s.db} }
func (s *pgStore) Chats() store.Chats       { return &chats{db: s.db} }
func (s *pgStore) Messages() store.Messages { return &messages{db: s.db} }
func (s *pgStore) Memories() store.Memories { return &memories{db: s.db} }

// HealthPing implements the health probe used by /api/health.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---
type users struct{ db *sql.DB }

const userCols = `user_id, email, password_hash, username, created_at, last_active, preferences, version`

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
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1)
    `, id, m.Email, strings.ToLower(m.Email), m.PasswordHash, m.Username, now, now, prefsJSON)
	if err != nil {
		// 23505 = unique_violation
		if strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key") {
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
	var prefsJSON []byte
	if err := row.Scan(&out.UserID, &out.Email, &out.PasswordHash, &out.Username, &out.CreatedAt, &out.LastActive, &prefsJSON, &out.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(prefsJSON, &out.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return &out, nil
}

func (u *users) GetByID(ctx context.Context, userID string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE user_id=$1`, userID)
	return scanUser(row)
}

func (u *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email_lower=$1`, strings.ToLower(email))
	return scanUser(row)
}

func (u *users) UpdatePreferences(ctx context.Context, userID string, prefs model.Preferences, version int64) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	res, err := u.db.ExecContext(ctx, `
        UPDATE users SET preferences=$1, last_active=$2, version=version+1
        WHERE user_id=$3 AND version=$4
    `, prefsJSON, time.Now().UTC(), userID, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := u.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id=$1`, userID).Scan(&exists); err != nil {
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
        WHERE (preferences->>'email_notifications')::boolean = TRUE
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
        VALUES ($1,$2,$3,$4,$5,0,TRUE)
    `, id, mc.UserID, mc.Title, now, now)
	if err != nil {
		return nil, err
	}
	return &model.Chat{ChatID: id, UserID: mc.UserID, Title: mc.Title, CreatedAt: now, LastMessageAt: now, MessageCount: 0, IsActive: true}, nil
}

func (c *chats) GetByID(ctx context.Context, chatID string) (*model.Chat, error) {
	var out model.Chat
	row := c.db.QueryRowContext(ctx, `
        SELECT chat_id, user_id, title, created_at, last_message_at, message_count, is_active
        FROM chats WHERE chat_id=$1
    `, chatID)
	if err := row.Scan(&out.ChatID, &out.UserID, &out.Title, &out.CreatedAt, &out.LastMessageAt, &out.MessageCount, &out.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (c *chats) ListByUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT chat_id, user_id, title, created_at, last_message_at, message_count, is_active
        FROM chats WHERE user_id=$1 ORDER BY last_message_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Chat
	for rows.Next() {
		var m model.Chat
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.Title, &m.CreatedAt, &m.LastMessageAt, &m.MessageCount, &m.IsActive); err != nil {
			return nil, err
		}
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
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, id, msg.ChatID, msg.UserID, msg.Role, msg.Content, ts, msgType); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE chats SET last_message_at=$1, message_count=message_count+1 WHERE chat_id=$2
    `, ts, msg.ChatID); err != nil {
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
        FROM messages WHERE chat_id=$1 ORDER BY ts ASC`
	args := []interface{}{chatID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return m.list(ctx, query, args, false)
}

func (m *messages) ListRecent(ctx context.Context, chatID string, limit int) ([]*model.Message, error) {
	query := `
        SELECT message_id, chat_id, user_id, role, content, ts, message_type
        FROM messages WHERE chat_id=$1 ORDER BY ts DESC LIMIT $2`
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
		if err := rows.Scan(&msg.MessageID, &msg.ChatID, &msg.UserID, &msg.Role, &msg.Content, &msg.Timestamp, &msg.MessageType); err != nil {
			return nil, err
		}
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
	var interestsJSON []byte
	row := m.db.QueryRowContext(ctx, `
        SELECT user_id, memory_snapshot, extracted_interests, conversation_count, last_updated
        FROM user_memory WHERE user_id=$1
    `, userID)
	if err := row.Scan(&out.UserID, &out.MemorySnapshot, &interestsJSON, &out.ConversationCount, &out.LastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(interestsJSON, &out.ExtractedInterests); err != nil {
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
        VALUES ($1,$2,$3,1,$4)
        ON CONFLICT (user_id) DO UPDATE SET
            memory_snapshot=EXCLUDED.memory_snapshot,
            extracted_interests=EXCLUDED.extracted_interests,
            conversation_count=user_memory.conversation_count+1,
            last_updated=EXCLUDED.last_updated
    `, userID, snapshot, interestsJSON, at)
	return err
}
