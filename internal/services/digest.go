package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/victorbash400/canary/internal/ai"
	"github.com/victorbash400/canary/internal/email"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/news"
	"github.com/victorbash400/canary/internal/store"
)

const (
	defaultFrequencyHours = 6
	defaultThreshold      = 75
	maxDigestArticles     = 6
	sweepConcurrency      = 3
)

// DigestService runs the scheduled email sweep: per user it fetches fresh
// articles, filters them against preferences, and sends a digest when the
// content justifies one.
type DigestService struct {
	store       store.Store
	fetcher     *news.Fetcher
	gen         ai.Generator
	mailer      email.Mailer
	frontendURL string
	log         zerolog.Logger
}

func NewDigestService(s store.Store, fetcher *news.Fetcher, gen ai.Generator, mailer email.Mailer, frontendURL string, log zerolog.Logger) *DigestService {
	return &DigestService{store: s, fetcher: fetcher, gen: gen, mailer: mailer, frontendURL: frontendURL, log: log}
}

// Eligible reports whether enough time has passed since the user's last
// digest. Users who never received one are due immediately.
func Eligible(user *model.User, now time.Time) bool {
	p := user.Preferences
	if !p.EmailNotifications {
		return false
	}
	if p.LastEmailSent == nil {
		return true
	}
	hours := p.EmailFrequencyHours
	if hours <= 0 {
		hours = defaultFrequencyHours
	}
	return now.Sub(*p.LastEmailSent) >= time.Duration(hours)*time.Hour
}

// FilterArticles keeps articles at or above the user's relevance threshold,
// and only high-urgency ones when the user asked for urgent-only mail.
// A zero threshold is honored and keeps everything; negative values fall
// back to the default.
func FilterArticles(articles []*model.Article, p model.Preferences) []*model.Article {
	threshold := p.RelevanceThreshold
	if threshold < 0 {
		threshold = defaultThreshold
	}
	var kept []*model.Article
	for _, a := range articles {
		if a.RelevanceScore < threshold {
			continue
		}
		if p.UrgentOnly && a.Urgency != model.UrgencyHigh {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

const gatekeeperPrompt = `You are deciding whether a news digest email to %s is worth sending.

User's interests: %s

Article summaries:
%s

Send only if the content is substantive and newsworthy for this user, not filler. Return ONLY a JSON object, no markdown fences:
{"should_send": true or false, "reason": "one short sentence"}`

// worthSending asks the model whether the digest content justifies an
// email to this user. Anything but an explicit parseable yes means no.
func (s *DigestService) worthSending(ctx context.Context, user *model.User, articles []*model.Article) bool {
	var summaries []string
	for i, a := range articles {
		if i == 5 {
			break
		}
		summaries = append(summaries, fmt.Sprintf("- %s: %s", a.Title, a.Summary))
	}
	interests := strings.Join(user.Preferences.Interests, ", ")
	if interests == "" {
		interests = "general news"
	}

	raw, err := s.gen.Generate(ctx, fmt.Sprintf(gatekeeperPrompt, user.Username, interests, strings.Join(summaries, "\n")))
	if err != nil {
		s.log.Debug().Err(err).Msg("digest gatekeeper failed, skipping send")
		return false
	}
	var verdict struct {
		ShouldSend bool   `json:"should_send"`
		Reason     string `json:"reason"`
	}
	if err := ai.Decode(raw, &verdict); err != nil {
		s.log.Debug().Msg("digest gatekeeper output unparsable, skipping send")
		return false
	}
	if !verdict.ShouldSend {
		s.log.Debug().Str("reason", verdict.Reason).Msg("digest gatekeeper declined send")
	}
	return verdict.ShouldSend
}

// ProcessUser fetches, filters, and (maybe) emails one user's digest.
// Returns whether an email went out. The last-sent marker moves only after
// a successful send, so failed sends retry on the next sweep.
func (s *DigestService) ProcessUser(ctx context.Context, user *model.User, now time.Time) (bool, error) {
	topics := user.Preferences.MonitoringTopics
	if len(topics) == 0 {
		return false, nil
	}

	articles := s.fetcher.FetchAll(ctx, topics, user.Preferences.Interests, news.DigestOptions())
	kept := FilterArticles(articles, user.Preferences)
	if len(kept) == 0 {
		return false, nil
	}
	if len(kept) > maxDigestArticles {
		kept = kept[:maxDigestArticles]
	}
	if !s.worthSending(ctx, user, kept) {
		return false, nil
	}

	msg, err := email.BuildDigest(user.Email, user.Username, kept, s.frontendURL)
	if err != nil {
		return false, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return false, err
	}

	if err := s.markSent(ctx, user.UserID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.UserID).Msg("could not record last digest time")
	}
	return true, nil
}

func (s *DigestService) markSent(ctx context.Context, userID string, now time.Time) error {
	for attempt := 0; attempt < 2; attempt++ {
		user, err := s.store.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		updated := user.Preferences
		sent := now.UTC()
		updated.LastEmailSent = &sent

		err = s.store.Users().UpdatePreferences(ctx, userID, updated, user.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return err
		}
	}
	return model.ErrVersionConflict
}

// RunSweep checks every email-enabled user and sends due digests. Per-user
// failures are counted, never fatal to the sweep.
func (s *DigestService) RunSweep(ctx context.Context) (*model.DigestReport, error) {
	users, err := s.store.Users().ListEmailEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list digest users: %w", err)
	}
	now := time.Now().UTC()

	var mu sync.Mutex
	report := &model.DigestReport{Checked: len(users)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, user := range users {
		user := user
		g.Go(func() error {
			if !Eligible(user, now) {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}
			sent, err := s.ProcessUser(gctx, user, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				s.log.Warn().Err(err).Str("user_id", user.UserID).Msg("digest processing failed")
				report.Errors++
			case sent:
				report.Sent++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().
		Int("emails_sent", report.Sent).
		Int("users_skipped", report.Skipped).
		Int("errors", report.Errors).
		Int("total_users_checked", report.Checked).
		Msg("digest sweep complete")
	return report, nil
}
