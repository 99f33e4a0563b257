package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorbash400/canary/internal/auth"
	"github.com/victorbash400/canary/internal/email"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/news"
	"github.com/victorbash400/canary/internal/prefs"
	"github.com/victorbash400/canary/internal/search"
	"github.com/victorbash400/canary/internal/services"
	"github.com/victorbash400/canary/internal/store/sqlite"
)

// scriptedGen answers extraction, analysis, and chat prompts with canned
// output so handler tests never touch a real model.
type scriptedGen struct {
	topicJSON string
	emailJSON string
}

func (g *scriptedGen) Generate(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "news topic tracking requests"):
		if g.topicJSON != "" {
			return g.topicJSON, nil
		}
		return `{"add":[],"remove":[],"reasoning":"none"}`, nil
	case strings.Contains(prompt, "email notification requests"):
		if g.emailJSON != "" {
			return g.emailJSON, nil
		}
		return `{"action":"none","frequency_hours":0,"urgent_only":false,"reasoning":"none"}`, nil
	case strings.Contains(prompt, "durably cares about"):
		return "no structured insights", nil
	case strings.Contains(prompt, "should_send"):
		return `{"should_send": true, "reason": "worth it"}`, nil
	case strings.Contains(prompt, "single word category"):
		return "Finance", nil
	case strings.Contains(prompt, "Analyze this news content"):
		return `{"personalized_summary":"Tesla rallied.","relevance_score":90,"key_points":[],"sentiment":"positive","urgency":"high","tags":["tesla"]}`, nil
	default:
		return "Happy to help you follow the news.", nil
	}
}

type fixedSearcher struct{}

func (fixedSearcher) Search(_ context.Context, topic string) (*search.Result, error) {
	return &search.Result{
		Content:   "Big developments in " + topic + " today. More to come.",
		Citations: []string{"https://example.com/story"},
	}, nil
}

type fixedFinder struct{}

func (fixedFinder) Find(_ context.Context, _ string) string { return "https://img.example/a.jpg" }

func newTestServer(t *testing.T, gen *scriptedGen) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st, err := sqlite.NewWithDB(db)
	require.NoError(t, err)

	log := zerolog.Nop()
	issuer := auth.NewIssuer("test-secret", 24*time.Hour)
	mailer := email.NopMailer{}
	fetcher := news.NewFetcher(fixedSearcher{}, gen, fixedFinder{}, log)
	extractor := prefs.NewExtractor(gen, log)

	handler := NewRouter(Deps{
		Verifier: issuer,
		Users:    services.NewUserService(st, issuer, mailer, "https://canary.test", log),
		News:     services.NewNewsService(st, fetcher, log),
		Chat:     services.NewChatService(st, gen, extractor, mailer, "https://canary.test", log),
		Digest:   services.NewDigestService(st, fetcher, gen, mailer, "https://canary.test", log),
		Log:      log,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	_ = resp.Body.Close()
	return resp, decoded
}

func register(t *testing.T, srv *httptest.Server, emailAddr string) string {
	t.Helper()
	resp, body := doJSON(t, "POST", srv.URL+"/api/auth/register", "", map[string]string{
		"email": emailAddr, "password": "hunter22", "username": "Sam",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	return token
}

func TestRegisterLoginFlow(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})
	register(t, srv, "sam@example.com")

	// same email, different case, is rejected
	resp, _ := doJSON(t, "POST", srv.URL+"/api/auth/register", "", map[string]string{
		"email": "SAM@example.com", "password": "hunter22", "username": "Other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := doJSON(t, "POST", srv.URL+"/api/auth/login", "", map[string]string{
		"email": "sam@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body["user"]), "sam@example.com")

	resp, _ = doJSON(t, "POST", srv.URL+"/api/auth/login", "", map[string]string{
		"email": "sam@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})

	resp, _ := doJSON(t, "GET", srv.URL+"/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, "GET", srv.URL+"/api/profile", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileAndPreferences(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})
	token := register(t, srv, "sam@example.com")

	resp, body := doJSON(t, "GET", srv.URL+"/api/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prof model.User
	require.NoError(t, json.Unmarshal(body["preferences"], &prof.Preferences))
	assert.Equal(t, 75, prof.Preferences.RelevanceThreshold)

	resp, _ = doJSON(t, "PUT", srv.URL+"/api/preferences", token, map[string]interface{}{
		"relevance_threshold": 85,
		"email_notifications": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doJSON(t, "GET", srv.URL+"/api/preferences", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var threshold int
	require.NoError(t, json.Unmarshal(raw["relevance_threshold"], &threshold))
	assert.Equal(t, 85, threshold)
}

func TestTopicEndpoints(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})
	token := register(t, srv, "sam@example.com")

	resp, body := doJSON(t, "POST", srv.URL+"/api/preferences/topics", token, map[string]string{"topic": "tesla stock"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body["monitoring_topics"]), "Tesla Stock")

	// idempotent add
	resp, body = doJSON(t, "POST", srv.URL+"/api/preferences/topics", token, map[string]string{"topic": "Tesla Stock"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var topics []string
	require.NoError(t, json.Unmarshal(body["monitoring_topics"], &topics))
	assert.Equal(t, []string{"Tesla Stock"}, topics)

	resp, body = doJSON(t, "DELETE", srv.URL+"/api/preferences/topics/Tesla%20Stock", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["monitoring_topics"], &topics))
	assert.Empty(t, topics)

	resp, _ = doJSON(t, "POST", srv.URL+"/api/preferences/topics", token, map[string]string{"topic": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatTurnUpdatesPreferences(t *testing.T) {
	gen := &scriptedGen{
		topicJSON: `{"add":["Tesla Stock"],"remove":[],"reasoning":"asked"}`,
		emailJSON: `{"action":"change_frequency","frequency_hours":24,"urgent_only":false,"reasoning":"daily"}`,
	}
	srv := newTestServer(t, gen)
	token := register(t, srv, "sam@example.com")

	resp, body := doJSON(t, "POST", srv.URL+"/api/chats", token, map[string]string{"title": "Setup"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var chatID string
	require.NoError(t, json.Unmarshal(body["chatId"], &chatID))

	resp, body = doJSON(t, "POST", fmt.Sprintf("%s/api/chats/%s/messages", srv.URL, chatID), token,
		map[string]string{"content": "track Tesla stock and email me daily"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body["message"]), "Now tracking: Tesla Stock")

	resp, raw := doJSON(t, "GET", srv.URL+"/api/preferences", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var topics []string
	require.NoError(t, json.Unmarshal(raw["monitoring_topics"], &topics))
	assert.Equal(t, []string{"Tesla Stock"}, topics)
	var hours int
	require.NoError(t, json.Unmarshal(raw["email_frequency_hours"], &hours))
	assert.Equal(t, 24, hours)
	var enabled bool
	require.NoError(t, json.Unmarshal(raw["email_notifications"], &enabled))
	assert.True(t, enabled)

	// both turn halves visible in the chat detail
	resp, body = doJSON(t, "GET", fmt.Sprintf("%s/api/chats/%s", srv.URL, chatID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var messages []model.Message
	require.NoError(t, json.Unmarshal(body["messages"], &messages))
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
}

func TestChatOwnership(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})
	tokenA := register(t, srv, "a@example.com")
	tokenB := register(t, srv, "b@example.com")

	_, body := doJSON(t, "POST", srv.URL+"/api/chats", tokenA, map[string]string{"title": "Private"})
	var chatID string
	require.NoError(t, json.Unmarshal(body["chatId"], &chatID))

	resp, _ := doJSON(t, "GET", srv.URL+"/api/chats/"+chatID, tokenB, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, "GET", srv.URL+"/api/chats/does-not-exist", tokenA, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewsFeed(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})
	token := register(t, srv, "sam@example.com")

	// empty topics, empty feed
	resp, body := doJSON(t, "GET", srv.URL+"/api/news/feed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body["articles"]))

	_, _ = doJSON(t, "POST", srv.URL+"/api/preferences/topics", token, map[string]string{"topic": "tesla stock"})

	resp, body = doJSON(t, "GET", srv.URL+"/api/news/feed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var articles []model.Article
	require.NoError(t, json.Unmarshal(body["articles"], &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, "Latest: Tesla Stock", articles[0].Title)
	assert.Equal(t, model.UrgencyHigh, articles[0].Urgency)

	resp, body = doJSON(t, "GET", srv.URL+"/api/news/urgent", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body["articles"], &articles))
	assert.Len(t, articles, 1)
}

func TestMemoryEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})
	token := register(t, srv, "sam@example.com")

	resp, body := doJSON(t, "GET", srv.URL+"/api/memory", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body["extractedInterests"]), "[]")
}

func TestDigestRunEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})

	resp, body := doJSON(t, "POST", srv.URL+"/api/internal/digest/run", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `0`, string(body["total_users_checked"]))
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(t, &scriptedGen{})

	resp, body := doJSON(t, "GET", srv.URL+"/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `"ok"`, string(body["status"]))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/news/feed", nil)
	require.NoError(t, err)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = preflight.Body.Close() }()
	assert.Equal(t, http.StatusOK, preflight.StatusCode)
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), "DELETE")
}
