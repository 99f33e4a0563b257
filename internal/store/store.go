package store

import (
	"context"
	"time"

	"github.com/victorbash400/canary/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Users() Users
	Chats() Chats
	Messages() Messages
	Memories() Memories
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdatePreferences replaces the preference blob iff the stored version
	// still equals version; otherwise it returns model.ErrVersionConflict.
	UpdatePreferences(ctx context.Context, userID string, prefs model.Preferences, version int64) error
	// ListEmailEnabled returns users whose email notifications are on.
	ListEmailEnabled(ctx context.Context) ([]*model.User, error)
}

type Chats interface {
	Create(ctx context.Context, c *model.Chat) (*model.Chat, error)
	GetByID(ctx context.Context, chatID string) (*model.Chat, error)
	// ListByUser returns a user's chats, most recent activity first.
	ListByUser(ctx context.Context, userID string) ([]*model.Chat, error)
}

type Messages interface {
	// Append persists a message and bumps the parent chat's message count
	// and last-message timestamp.
	Append(ctx context.Context, m *model.Message) (*model.Message, error)
	// ListByChat returns up to limit messages in ascending timestamp order.
	ListByChat(ctx context.Context, chatID string, limit int) ([]*model.Message, error)
	// ListRecent returns the newest limit messages in chronological order.
	ListRecent(ctx context.Context, chatID string, limit int) ([]*model.Message, error)
}

type Memories interface {
	Get(ctx context.Context, userID string) (*model.UserMemory, error)
	// Put overwrites the snapshot wholesale, incrementing the conversation
	// count over whatever is stored.
	Put(ctx context.Context, userID, snapshot string, interests []string, at time.Time) error
}
