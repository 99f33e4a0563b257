package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/ai"
	"github.com/victorbash400/canary/internal/email"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/prefs"
	"github.com/victorbash400/canary/internal/store"
)

// fallbackReply is used whenever the model cannot produce a reply. The turn
// still succeeds; preference changes have already been applied by then.
const fallbackReply = "I'm here to help you stay updated on news that matters to you. What topics would you like me to track?"

const (
	historyWindow     = 20
	historyItemMaxLen = 200
	insightsWindow    = 10
	insightsMinMsgs   = 3
	snapshotMaxLen    = 2000
	snapshotKeepLen   = 1500
)

// ChatService runs conversation turns: persistence, preference extraction,
// reply generation, and the periodic memory refresh.
type ChatService struct {
	store       store.Store
	gen         ai.Generator
	extractor   *prefs.Extractor
	mailer      email.Mailer
	frontendURL string
	log         zerolog.Logger
}

func NewChatService(s store.Store, gen ai.Generator, extractor *prefs.Extractor, mailer email.Mailer, frontendURL string, log zerolog.Logger) *ChatService {
	return &ChatService{store: s, gen: gen, extractor: extractor, mailer: mailer, frontendURL: frontendURL, log: log}
}

// CreateChat starts a new conversation.
func (s *ChatService) CreateChat(ctx context.Context, userID, title string) (*model.Chat, error) {
	if strings.TrimSpace(title) == "" {
		title = "New Chat"
	}
	return s.store.Chats().Create(ctx, &model.Chat{UserID: userID, Title: strings.TrimSpace(title)})
}

// ListChats returns the user's chats, most recently active first.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	chats, err := s.store.Chats().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []*model.Chat{}
	}
	return chats, nil
}

// GetChatWithMessages returns a chat and its full message history. Unknown
// chats yield ErrNotFound; another user's chat yields ErrForbidden.
func (s *ChatService) GetChatWithMessages(ctx context.Context, userID, chatID string) (*model.Chat, []*model.Message, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.store.Messages().ListByChat(ctx, chatID, 0)
	if err != nil {
		return nil, nil, err
	}
	if messages == nil {
		messages = []*model.Message{}
	}
	return chat, messages, nil
}

func (s *ChatService) ownedChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.store.Chats().GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, model.ErrForbidden
	}
	return chat, nil
}

// PostMessage runs one conversation turn. Preference changes asked for in
// the message are applied before the reply is generated, so the reply can
// reflect the new settings.
func (s *ChatService) PostMessage(ctx context.Context, userID, chatID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", model.ErrInvalidInput)
	}

	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	preTurnCount := chat.MessageCount

	if _, err := s.store.Messages().Append(ctx, &model.Message{
		ChatID:  chatID,
		UserID:  userID,
		Role:    model.RoleUser,
		Content: content,
	}); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	history, err := s.store.Messages().ListRecent(ctx, chatID, historyWindow)
	if err != nil {
		return nil, err
	}

	var memorySnapshot string
	if mem, err := s.store.Memories().Get(ctx, userID); err == nil {
		memorySnapshot = mem.MemorySnapshot
	}

	// Extract and apply settings changes before generating the reply.
	turnText := "User: " + content
	topicChanges := s.extractor.TopicChanges(ctx, turnText)
	emailChange := s.extractor.EmailChange(ctx, turnText)

	var applied []string
	if !topicChanges.Empty() || emailChange != nil {
		applied, err = s.applyChanges(ctx, userID, topicChanges, emailChange)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("preference changes could not be applied")
			applied = nil
		}
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	reply, err := s.gen.Generate(ctx, s.buildChatPrompt(user, memorySnapshot, history, content))
	if err != nil {
		s.log.Warn().Err(err).Str("chat_id", chatID).Msg("reply generation failed, using fallback")
		reply = fallbackReply
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = fallbackReply
	}

	if len(applied) > 0 {
		reply += "\n\n" + strings.Join(applied, "\n") + "\n\n" + settingsSummary(user.Preferences)
	}

	assistantMsg, err := s.store.Messages().Append(ctx, &model.Message{
		ChatID:  chatID,
		UserID:  userID,
		Role:    model.RoleAssistant,
		Content: reply,
	})
	if err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}

	// Every third turn, re-read the conversation in the background and fold
	// what it reveals into the durable user memory.
	if preTurnCount%3 == 0 {
		go s.refreshMemory(userID, chatID)
	}

	if len(applied) > 0 && user.Preferences.EmailNotifications {
		msg := email.BuildPreferenceConfirmation(user.Email, user.Username, applied, user.Preferences, s.frontendURL)
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("preference confirmation email failed")
		}
	}

	return assistantMsg, nil
}

// applyChanges folds extracted changes into stored preferences with one
// retry on a concurrent write, and returns the human-readable change lines.
func (s *ChatService) applyChanges(ctx context.Context, userID string, topicChanges prefs.TopicChanges, emailChange *prefs.EmailChange) ([]string, error) {
	var applied []string
	for attempt := 0; attempt < 2; attempt++ {
		user, err := s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		updated := user.Preferences
		applied = applied[:0]
		applied = append(applied, prefs.ApplyTopicChanges(&updated, topicChanges)...)
		applied = append(applied, prefs.ApplyEmailChange(&updated, emailChange)...)
		if len(applied) == 0 {
			return nil, nil
		}

		err = s.store.Users().UpdatePreferences(ctx, userID, updated, user.Version)
		if err == nil {
			return applied, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, model.ErrVersionConflict
}

const chatPromptTemplate = `You are Canary, a personal news assistant. You watch news topics for users, score what you find against their interests, and send email digests when they want them.

What you remember about this user:
%s

Their current settings:
- Tracking: %s
- Interests: %s
- Email notifications: %s

Recent conversation:
%s

The user just said: %s

Reply as Canary. Be concise and warm, use plain language, and talk about news and tracking naturally. You can track new topics, stop tracking, and change email settings when asked; assume any such request in this message has already been handled. Do not invent news events.`

func (s *ChatService) buildChatPrompt(user *model.User, memorySnapshot string, history []*model.Message, content string) string {
	if memorySnapshot == "" {
		memorySnapshot = "Nothing yet, this is a new relationship."
	}
	tracking := "nothing yet"
	if len(user.Preferences.MonitoringTopics) > 0 {
		tracking = strings.Join(user.Preferences.MonitoringTopics, ", ")
	}
	interests := "unknown"
	if len(user.Preferences.Interests) > 0 {
		interests = strings.Join(user.Preferences.Interests, ", ")
	}
	emailLine := "off"
	if user.Preferences.EmailNotifications {
		emailLine = prefs.DescribeFrequency(user.Preferences.EmailFrequencyHours)
	}
	return fmt.Sprintf(chatPromptTemplate, memorySnapshot, tracking, interests, emailLine,
		formatHistory(history), content)
}

// formatHistory renders messages for prompts, newest last, each truncated
// so one long paste cannot crowd out the rest of the window.
func formatHistory(history []*model.Message) string {
	if len(history) == 0 {
		return "(no prior messages)"
	}
	var b strings.Builder
	for _, m := range history {
		speaker := "User"
		if m.Role == model.RoleAssistant {
			speaker = "You"
		}
		content := m.Content
		if len(content) > historyItemMaxLen {
			content = content[:historyItemMaxLen] + "..."
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// settingsSummary is appended to replies that changed settings, so the user
// always sees the resulting state.
func settingsSummary(p model.Preferences) string {
	tracking := "nothing yet"
	if len(p.MonitoringTopics) > 0 {
		tracking = strings.Join(p.MonitoringTopics, ", ")
	}
	emailLine := "Off"
	if p.EmailNotifications {
		switch {
		case p.EmailFrequencyHours <= 1:
			emailLine = "Every hour"
		case p.EmailFrequencyHours >= 24:
			emailLine = "Daily"
		default:
			emailLine = fmt.Sprintf("Every %d hours", p.EmailFrequencyHours)
		}
	}
	return fmt.Sprintf("**Your settings:**\n📈 Tracking: %s\n📧 Email: %s", tracking, emailLine)
}

// refreshMemory re-reads the recent conversation and folds the insights
// into interests, monitored topics, threshold, and the memory snapshot.
// Runs detached from the request; failures are logged and dropped.
func (s *ChatService) refreshMemory(userID, chatID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recent, err := s.store.Messages().ListRecent(ctx, chatID, insightsWindow)
	if err != nil || len(recent) < insightsMinMsgs {
		return
	}

	insights := s.extractor.Insights(ctx, formatHistory(recent))
	if insights == nil {
		return
	}

	for attempt := 0; attempt < 2; attempt++ {
		user, err := s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return
		}
		updated := user.Preferences
		updated.Interests = prefs.Union(updated.Interests, insights.Interests)
		var validated []string
		for _, raw := range insights.MonitoringTopics {
			if t := prefs.ValidateTopicName(raw); t != "" {
				validated = append(validated, t)
			}
		}
		updated.MonitoringTopics = prefs.Union(updated.MonitoringTopics, validated)
		if insights.RelevanceThreshold >= 0 && insights.RelevanceThreshold <= 100 {
			updated.RelevanceThreshold = insights.RelevanceThreshold
		}

		err = s.store.Users().UpdatePreferences(ctx, userID, updated, user.Version)
		if err == nil {
			break
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("memory-driven preference update failed")
			return
		}
	}

	if insights.MemorySummary != "" {
		snapshot := insights.MemorySummary
		if mem, err := s.store.Memories().Get(ctx, userID); err == nil {
			snapshot = AppendSnapshot(mem.MemorySnapshot, insights.MemorySummary)
		}
		if err := s.store.Memories().Put(ctx, userID, snapshot, insights.Interests, time.Now().UTC()); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("memory snapshot update failed")
		}
	}
	s.log.Debug().Str("user_id", userID).Str("chat_id", chatID).Msg("conversation memory refreshed")
}

// GetMemory returns the user's memory record, or an empty one if the
// assistant has not learned anything yet.
func (s *ChatService) GetMemory(ctx context.Context, userID string) (*model.UserMemory, error) {
	mem, err := s.store.Memories().Get(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return &model.UserMemory{
			UserID:             userID,
			MemorySnapshot:     "We haven't talked enough yet for me to know your interests. Tell me what news you care about!",
			ExtractedInterests: []string{},
		}, nil
	}
	return mem, err
}

// AppendSnapshot grows the memory snapshot, keeping it bounded. When the
// combined text exceeds the cap, only the most recent portion survives,
// marked with a leading ellipsis.
func AppendSnapshot(existing, addition string) string {
	combined := strings.TrimSpace(existing + "\n" + addition)
	if len(combined) <= snapshotMaxLen {
		return combined
	}
	return "..." + combined[len(combined)-snapshotKeepLen:]
}
