package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/victorbash400/canary/internal/auth"
	"github.com/victorbash400/canary/internal/email"
	"github.com/victorbash400/canary/internal/search"
	"github.com/victorbash400/canary/internal/store"
	"github.com/victorbash400/canary/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := sqlite.NewWithDB(db)
	require.NoError(t, err)
	return s
}

func newTestIssuer() *auth.Issuer {
	return auth.NewIssuer("test-secret", 30*24*time.Hour)
}

// captureMailer records sent messages instead of delivering them.
type captureMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *captureMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) messages() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message{}, m.sent...)
}

// routingGen answers each kind of prompt with a canned response, keyed on
// distinctive prompt fragments. Every prompt is recorded so tests can
// assert on what the model was actually asked.
type routingGen struct {
	topicJSON    string
	emailJSON    string
	insightsJSON string
	gateJSON     string
	reply        string
	err          error

	mu      sync.Mutex
	prompts []string
}

func (g *routingGen) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	switch {
	case strings.Contains(prompt, "news topic tracking requests"):
		if g.topicJSON == "" {
			return `{"add":[],"remove":[],"reasoning":"none"}`, nil
		}
		return g.topicJSON, nil
	case strings.Contains(prompt, "email notification requests"):
		if g.emailJSON == "" {
			return `{"action":"none","frequency_hours":0,"urgent_only":false,"reasoning":"none"}`, nil
		}
		return g.emailJSON, nil
	case strings.Contains(prompt, "durably cares about"):
		if g.insightsJSON == "" {
			return "no insights available", nil
		}
		return g.insightsJSON, nil
	case strings.Contains(prompt, "should_send"):
		if g.gateJSON == "" {
			return `{"should_send": true, "reason": "substantive"}`, nil
		}
		return g.gateJSON, nil
	default:
		if g.reply == "" {
			return "Happy to help with your news.", nil
		}
		return g.reply, nil
	}
}

// promptContaining returns the first recorded prompt holding the fragment.
func (g *routingGen) promptContaining(fragment string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.prompts {
		if strings.Contains(p, fragment) {
			return p
		}
	}
	return ""
}

// cannedSearcher returns fixed content for any topic.
type cannedSearcher struct {
	content   string
	citations []string
}

func (c cannedSearcher) Search(_ context.Context, topic string) (*search.Result, error) {
	content := c.content
	if content == "" {
		content = "Something happened regarding " + topic + ". Details are emerging."
	}
	return &search.Result{Content: content, Citations: c.citations}, nil
}

type staticFinder struct{}

func (staticFinder) Find(_ context.Context, _ string) string { return "https://img.example/a.jpg" }

func nop() zerolog.Logger { return zerolog.Nop() }
