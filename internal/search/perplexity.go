// Package search wraps the web-search provider that supplies raw news
// content and source citations per topic.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Result is the raw search output for one topic.
type Result struct {
	Content   string
	Citations []string
}

// Searcher fetches recent news content for a topic.
type Searcher interface {
	Search(ctx context.Context, topic string) (*Result, error)
}

// PerplexityClient calls the Perplexity chat-completions API with the
// online "sonar" model.
type PerplexityClient struct {
	http   *resty.Client
	apiKey string
}

// NewPerplexityClient builds a client for the given base URL and API key.
func NewPerplexityClient(baseURL, apiKey string) *PerplexityClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &PerplexityClient{http: client, apiKey: apiKey}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Search asks for the latest news about a topic.
func (c *PerplexityClient) Search(ctx context.Context, topic string) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("perplexity api key not configured")
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(chatRequest{
			Model: "sonar",
			Messages: []chatMessage{
				{Role: "user", Content: fmt.Sprintf("Latest news about %s in 2025", topic)},
			},
			MaxTokens: 400,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("perplexity request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("perplexity returned %s: %s", resp.Status(), resp.String())
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("perplexity returned no choices")
	}
	return &Result{Content: out.Choices[0].Message.Content, Citations: out.Citations}, nil
}
