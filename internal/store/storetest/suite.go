// Package storetest provides a compliance suite that every store
// implementation must pass. Driver packages run it from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/store"
)

// Factory creates a fresh, empty store for each subtest.
type Factory func(t *testing.T) store.Store

// Run executes the compliance suite against the given factory.
func Run(t *testing.T, factory Factory) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, factory(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, factory(t)) })
	t.Run("PreferenceVersioning", func(t *testing.T) { testPreferenceVersioning(t, factory(t)) })
	t.Run("ListEmailEnabled", func(t *testing.T) { testListEmailEnabled(t, factory(t)) })
	t.Run("ChatLifecycle", func(t *testing.T) { testChatLifecycle(t, factory(t)) })
	t.Run("MessageOrdering", func(t *testing.T) { testMessageOrdering(t, factory(t)) })
	t.Run("MemorySnapshot", func(t *testing.T) { testMemorySnapshot(t, factory(t)) })
}

func newUser(email string) *model.User {
	return &model.User{
		Email:        email,
		PasswordHash: "deadbeef",
		Username:     "tester",
		Preferences:  model.DefaultPreferences(),
	}
}

func testUserLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	created, err := s.Users().Create(ctx, newUser("alice@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, created.UserID)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, 75, created.Preferences.RelevanceThreshold)

	got, err := s.Users().GetByID(ctx, created.UserID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)
	assert.Equal(t, created.PasswordHash, got.PasswordHash)

	// Email lookup is case-insensitive.
	byEmail, err := s.Users().GetByEmail(ctx, "ALICE@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, byEmail.UserID)

	_, err = s.Users().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testDuplicateEmail(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.Users().Create(ctx, newUser("bob@example.com"))
	require.NoError(t, err)

	_, err = s.Users().Create(ctx, newUser("BOB@example.com"))
	assert.ErrorIs(t, err, model.ErrDuplicateEmail)
}

func testPreferenceVersioning(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.Users().Create(ctx, newUser("carol@example.com"))
	require.NoError(t, err)

	prefs := u.Preferences
	prefs.MonitoringTopics = []string{"Tesla Stock"}
	require.NoError(t, s.Users().UpdatePreferences(ctx, u.UserID, prefs, u.Version))

	// Stale version must not clobber the newer write.
	prefs.MonitoringTopics = []string{"Bitcoin"}
	err = s.Users().UpdatePreferences(ctx, u.UserID, prefs, u.Version)
	assert.ErrorIs(t, err, model.ErrVersionConflict)

	got, err := s.Users().GetByID(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tesla Stock"}, got.Preferences.MonitoringTopics)
	assert.Equal(t, int64(2), got.Version)

	err = s.Users().UpdatePreferences(ctx, "missing", prefs, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testListEmailEnabled(t *testing.T, s store.Store) {
	ctx := context.Background()

	off, err := s.Users().Create(ctx, newUser("quiet@example.com"))
	require.NoError(t, err)

	onUser := newUser("loud@example.com")
	onUser.Preferences.EmailNotifications = true
	on, err := s.Users().Create(ctx, onUser)
	require.NoError(t, err)

	list, err := s.Users().ListEmailEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, on.UserID, list[0].UserID)
	assert.NotEqual(t, off.UserID, list[0].UserID)
}

func testChatLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.Users().Create(ctx, newUser("dave@example.com"))
	require.NoError(t, err)

	first, err := s.Chats().Create(ctx, &model.Chat{UserID: u.UserID, Title: "Morning briefing"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ChatID)
	assert.True(t, first.IsActive)
	assert.Equal(t, 0, first.MessageCount)

	second, err := s.Chats().Create(ctx, &model.Chat{UserID: u.UserID, Title: "Crypto watch"})
	require.NoError(t, err)

	// A message on the first chat bumps its activity above the second.
	_, err = s.Messages().Append(ctx, &model.Message{
		ChatID:  first.ChatID,
		UserID:  u.UserID,
		Role:    model.RoleUser,
		Content: "hello",
	})
	require.NoError(t, err)

	list, err := s.Chats().ListByUser(ctx, u.UserID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ChatID, list[0].ChatID)
	assert.Equal(t, second.ChatID, list[1].ChatID)
	assert.Equal(t, 1, list[0].MessageCount)

	_, err = s.Chats().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testMessageOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.Users().Create(ctx, newUser("erin@example.com"))
	require.NoError(t, err)
	chat, err := s.Chats().Create(ctx, &model.Chat{UserID: u.UserID, Title: "Chat"})
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour)
	contents := []string{"one", "two", "three", "four"}
	for i, content := range contents {
		_, err := s.Messages().Append(ctx, &model.Message{
			ChatID:    chat.ChatID,
			UserID:    u.UserID,
			Role:      model.RoleUser,
			Content:   content,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := s.Messages().ListByChat(ctx, chat.ChatID, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, m := range all {
		assert.Equal(t, contents[i], m.Content)
	}

	// ListRecent keeps chronological order over the newest N.
	recent, err := s.Messages().ListRecent(ctx, chat.ChatID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Content)
	assert.Equal(t, "four", recent[1].Content)

	got, err := s.Chats().GetByID(ctx, chat.ChatID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.MessageCount)
}

func testMemorySnapshot(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.Users().Create(ctx, newUser("frank@example.com"))
	require.NoError(t, err)

	_, err = s.Memories().Get(ctx, u.UserID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	now := time.Now().UTC()
	require.NoError(t, s.Memories().Put(ctx, u.UserID, "likes EVs", []string{"tesla"}, now))

	mem, err := s.Memories().Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "likes EVs", mem.MemorySnapshot)
	assert.Equal(t, []string{"tesla"}, mem.ExtractedInterests)
	assert.Equal(t, 1, mem.ConversationCount)

	require.NoError(t, s.Memories().Put(ctx, u.UserID, "likes EVs and AI", []string{"tesla", "ai"}, now.Add(time.Minute)))

	mem, err = s.Memories().Get(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "likes EVs and AI", mem.MemorySnapshot)
	assert.Equal(t, 2, mem.ConversationCount)
}
