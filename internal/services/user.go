// Package services orchestrates store, model, and upstream clients into the
// operations the HTTP handlers expose.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/auth"
	"github.com/victorbash400/canary/internal/email"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/prefs"
	"github.com/victorbash400/canary/internal/store"
)

// UserService handles accounts, sessions, and preference updates.
type UserService struct {
	store       store.Store
	issuer      *auth.Issuer
	mailer      email.Mailer
	frontendURL string
	log         zerolog.Logger
}

func NewUserService(s store.Store, issuer *auth.Issuer, mailer email.Mailer, frontendURL string, log zerolog.Logger) *UserService {
	return &UserService{store: s, issuer: issuer, mailer: mailer, frontendURL: frontendURL, log: log}
}

// Register creates an account with default preferences, sends a welcome
// email, and returns the user with a session token.
func (s *UserService) Register(ctx context.Context, emailAddr, password, username string) (*model.User, string, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return nil, "", fmt.Errorf("%w: valid email is required", model.ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", model.ErrInvalidInput)
	}
	if strings.TrimSpace(username) == "" {
		username = strings.Split(emailAddr, "@")[0]
	}

	user, err := s.store.Users().Create(ctx, &model.User{
		Email:        emailAddr,
		PasswordHash: auth.HashPassword(password),
		Username:     strings.TrimSpace(username),
		Preferences:  model.DefaultPreferences(),
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(user.UserID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	// Welcome mail is best effort; registration already succeeded.
	if err := s.mailer.Send(ctx, email.BuildWelcome(user.Email, user.Username, s.frontendURL)); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.UserID).Msg("welcome email failed")
	}

	s.log.Info().Str("user_id", user.UserID).Msg("user registered")
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (*model.User, string, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(emailAddr))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, "", model.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, "", model.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user.UserID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Profile returns the user's account record.
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// PreferencesPatch carries the fields a PUT /api/preferences may set.
// Nil fields are left unchanged.
type PreferencesPatch struct {
	Interests           *[]string `json:"interests"`
	MonitoringTopics    *[]string `json:"monitoring_topics"`
	RelevanceThreshold  *int      `json:"relevance_threshold"`
	UpdateFrequency     *string   `json:"update_frequency"`
	UrgentAlerts        *bool     `json:"urgent_alerts"`
	EmailNotifications  *bool     `json:"email_notifications"`
	EmailFrequencyHours *int      `json:"email_frequency_hours"`
	UrgentOnly          *bool     `json:"urgent_only"`
}

func (p PreferencesPatch) apply(target *model.Preferences) {
	if p.Interests != nil {
		target.Interests = *p.Interests
	}
	if p.MonitoringTopics != nil {
		topics := make([]string, 0, len(*p.MonitoringTopics))
		for _, raw := range *p.MonitoringTopics {
			if t := prefs.ValidateTopicName(raw); t != "" {
				topics = append(topics, t)
			}
		}
		target.MonitoringTopics = topics
	}
	if p.RelevanceThreshold != nil {
		th := *p.RelevanceThreshold
		if th < 0 {
			th = 0
		}
		if th > 100 {
			th = 100
		}
		target.RelevanceThreshold = th
	}
	if p.UpdateFrequency != nil {
		target.UpdateFrequency = *p.UpdateFrequency
	}
	if p.UrgentAlerts != nil {
		target.UrgentAlerts = *p.UrgentAlerts
	}
	if p.EmailNotifications != nil {
		target.EmailNotifications = *p.EmailNotifications
	}
	if p.EmailFrequencyHours != nil {
		h := *p.EmailFrequencyHours
		if h < 1 {
			h = 1
		}
		if h > 24 {
			h = 24
		}
		target.EmailFrequencyHours = h
	}
	if p.UrgentOnly != nil {
		target.UrgentOnly = *p.UrgentOnly
	}
}

// UpdatePreferences merges the patch into the stored preferences. On a
// concurrent write it re-reads once and reapplies before giving up.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, patch PreferencesPatch) (*model.User, error) {
	return s.mutatePreferences(ctx, userID, patch.apply)
}

// AddTopic adds one monitored topic. Adding an existing topic is a no-op.
func (s *UserService) AddTopic(ctx context.Context, userID, topic string) (*model.User, error) {
	name := prefs.ValidateTopicName(topic)
	if name == "" {
		return nil, fmt.Errorf("%w: topic name must be at least 2 characters", model.ErrInvalidInput)
	}
	return s.mutatePreferences(ctx, userID, func(p *model.Preferences) {
		prefs.ApplyTopicChanges(p, prefs.TopicChanges{Add: []string{name}})
	})
}

// RemoveTopic removes one monitored topic. Removing an unknown topic is a
// no-op.
func (s *UserService) RemoveTopic(ctx context.Context, userID, topic string) (*model.User, error) {
	name := prefs.ValidateTopicName(topic)
	if name == "" {
		return nil, fmt.Errorf("%w: topic name must be at least 2 characters", model.ErrInvalidInput)
	}
	return s.mutatePreferences(ctx, userID, func(p *model.Preferences) {
		prefs.ApplyTopicChanges(p, prefs.TopicChanges{Remove: []string{name}})
	})
}

// mutatePreferences runs fn over a fresh read of the preferences with one
// retry on a version conflict.
func (s *UserService) mutatePreferences(ctx context.Context, userID string, fn func(*model.Preferences)) (*model.User, error) {
	for attempt := 0; attempt < 2; attempt++ {
		user, err := s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		updated := user.Preferences
		fn(&updated)

		err = s.store.Users().UpdatePreferences(ctx, userID, updated, user.Version)
		if err == nil {
			return s.store.Users().GetByID(ctx, userID)
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return nil, err
		}
		s.log.Debug().Str("user_id", userID).Msg("preference update raced, retrying once")
	}
	return nil, model.ErrVersionConflict
}
