package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/news"
	"github.com/victorbash400/canary/internal/store"
)

// NewsService assembles the on-demand feed for a user's monitored topics.
type NewsService struct {
	store   store.Store
	fetcher *news.Fetcher
	log     zerolog.Logger
}

func NewNewsService(s store.Store, fetcher *news.Fetcher, log zerolog.Logger) *NewsService {
	return &NewsService{store: s, fetcher: fetcher, log: log}
}

// Feed fetches fresh articles for every monitored topic, most relevant
// first. An empty topic list yields an empty feed, not an error.
func (s *NewsService) Feed(ctx context.Context, userID string) ([]*model.Article, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Preferences.MonitoringTopics) == 0 {
		return []*model.Article{}, nil
	}

	articles := s.fetcher.FetchAll(ctx, user.Preferences.MonitoringTopics, user.Preferences.Interests, news.FeedOptions())
	s.log.Info().
		Str("user_id", userID).
		Int("topics", len(user.Preferences.MonitoringTopics)).
		Int("articles", len(articles)).
		Msg("feed assembled")
	return articles, nil
}

// Urgent returns only the high-urgency slice of the feed.
func (s *NewsService) Urgent(ctx context.Context, userID string) ([]*model.Article, error) {
	all, err := s.Feed(ctx, userID)
	if err != nil {
		return nil, err
	}
	urgent := []*model.Article{}
	for _, a := range all {
		if a.Urgency == model.UrgencyHigh {
			urgent = append(urgent, a)
		}
	}
	return urgent, nil
}
