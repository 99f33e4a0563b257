// Package news turns monitored topics into scored articles by combining
// web search, model analysis, and image lookup.
package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/victorbash400/canary/internal/ai"
	"github.com/victorbash400/canary/internal/images"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/search"
)

const articleSource = "Canary AI News"

// Options bound a fan-out over topics.
type Options struct {
	MaxTopics   int
	Concurrency int
	PerTopic    time.Duration
}

// FeedOptions is the interactive feed profile: wide and patient.
func FeedOptions() Options {
	return Options{MaxTopics: 8, Concurrency: 8, PerTopic: 20 * time.Second}
}

// DigestOptions is the background digest profile: narrower and quicker so
// a sweep over many users stays bounded.
func DigestOptions() Options {
	return Options{MaxTopics: 4, Concurrency: 3, PerTopic: 15 * time.Second}
}

// Fetcher assembles articles for a user's topics.
type Fetcher struct {
	searcher search.Searcher
	gen      ai.Generator
	finder   images.Finder
	log      zerolog.Logger
}

// NewFetcher wires the upstream clients together.
func NewFetcher(searcher search.Searcher, gen ai.Generator, finder images.Finder, log zerolog.Logger) *Fetcher {
	return &Fetcher{searcher: searcher, gen: gen, finder: finder, log: log}
}

// FetchAll fetches articles for the user's topics concurrently. Failed
// topics are logged and dropped; the result is sorted by relevance score,
// highest first, with stable order among ties.
func (f *Fetcher) FetchAll(ctx context.Context, topics []string, interests []string, opts Options) []*model.Article {
	if len(topics) > opts.MaxTopics {
		topics = topics[:opts.MaxTopics]
	}

	var mu sync.Mutex
	var articles []*model.Article

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, topic := range topics {
		topic := topic
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, opts.PerTopic)
			defer cancel()

			article, err := f.FetchTopic(tctx, topic, interests)
			if err != nil {
				f.log.Warn().Err(err).Str("topic", topic).Msg("topic fetch failed, dropping")
				return nil
			}
			mu.Lock()
			articles = append(articles, article)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].RelevanceScore > articles[j].RelevanceScore
	})
	return articles
}

// FetchTopic fetches and scores one article for a topic.
func (f *Fetcher) FetchTopic(ctx context.Context, topic string, interests []string) (*model.Article, error) {
	res, err := f.searcher.Search(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", topic, err)
	}

	analysis := f.analyze(ctx, topic, res.Content, interests)

	url := "#"
	if len(res.Citations) > 0 {
		url = res.Citations[0]
	}
	urgency := model.UrgencyMedium
	if analysis.RelevanceScore > 85 {
		urgency = model.UrgencyHigh
	}

	return &model.Article{
		ID:             uuid.New().String(),
		Title:          "Latest: " + titleCase(topic),
		Summary:        analysis.PersonalizedSummary,
		Source:         articleSource,
		PublishedAt:    time.Now().UTC(),
		URL:            url,
		Category:       Categorize(ctx, f.gen, topic),
		RelevanceScore: analysis.RelevanceScore,
		Urgency:        urgency,
		ImageURL:       f.finder.Find(ctx, topic),
		Tags:           strings.Fields(topic),
		Content:        res.Content,
		Citations:      res.Citations,
		Analysis:       analysis,
	}, nil
}

const analysisPrompt = `Analyze this news content for a user interested in: %s

News content about "%s":
%s

Return ONLY a JSON object, no markdown fences, with this exact shape:
{
  "personalized_summary": "2-3 sentence summary tailored to the user's interests",
  "relevance_score": 0-100 integer, how relevant this is to the user,
  "key_points": ["up to 3 short bullet points"],
  "sentiment": "positive" | "negative" | "neutral",
  "urgency": "low" | "medium" | "high",
  "tags": ["up to 5 lowercase tags"]
}`

// analyze asks the model to score and summarize content against the user's
// interests. Any failure falls back to a neutral mid-relevance analysis so
// a flaky model never empties the feed.
func (f *Fetcher) analyze(ctx context.Context, topic, content string, interests []string) *model.Analysis {
	interestList := strings.Join(interests, ", ")
	if interestList == "" {
		interestList = "general news"
	}

	raw, err := f.gen.Generate(ctx, fmt.Sprintf(analysisPrompt, interestList, topic, content))
	if err == nil {
		var analysis model.Analysis
		if decodeErr := ai.Decode(raw, &analysis); decodeErr == nil {
			if analysis.RelevanceScore < 0 {
				analysis.RelevanceScore = 0
			}
			if analysis.RelevanceScore > 100 {
				analysis.RelevanceScore = 100
			}
			return &analysis
		}
		f.log.Debug().Str("topic", topic).Msg("analysis output unparsable, using fallback")
	} else {
		f.log.Debug().Err(err).Str("topic", topic).Msg("analysis failed, using fallback")
	}
	return fallbackAnalysis(topic, content)
}

func fallbackAnalysis(topic, content string) *model.Analysis {
	summary := content
	if idx := strings.Index(content, "."); idx > 0 {
		summary = content[:idx]
	}
	return &model.Analysis{
		PersonalizedSummary: fmt.Sprintf("%s... This development in %s could impact related markets and trends.", summary, topic),
		RelevanceScore:      75,
		KeyPoints:           []string{},
		Sentiment:           "neutral",
		Urgency:             model.UrgencyMedium,
		Tags:                strings.Fields(strings.ToLower(topic)),
	}
}

// titleCase capitalizes the first rune of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
