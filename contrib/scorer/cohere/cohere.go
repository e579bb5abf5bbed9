// Package cohere implements the pairwise relevance scorer on Cohere's
// ReRank API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultEndpoint = "https://api.cohere.com/v1/rerank"

// Client scores (query, document) pairs with a hosted cross-encoder. It
// implements both retrieve.RelevanceScorer and retrieve.BatchScorer; the
// batch path costs one API call for a whole candidate set.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	endpoint   string
}

// Option customises the Cohere scorer client.
type Option func(*Client)

// WithModel overrides the default Cohere model (rerank-english-v3.0).
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient swaps the HTTP client (useful for timeouts or proxies).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEndpoint overrides the Cohere API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// New creates a new Cohere-backed relevance scorer.
func New(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     apiKey,
		model:      "rerank-english-v3.0",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   defaultEndpoint,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score implements retrieve.RelevanceScorer for a single pair.
func (c *Client) Score(ctx context.Context, query, text string) (float64, error) {
	scores, err := c.ScoreBatch(ctx, query, []string{text})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// ScoreBatch implements retrieve.BatchScorer. The returned slice is
// index-aligned with texts.
func (c *Client) ScoreBatch(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: texts,
		TopN:      len(texts),
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere rerank: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cohere rerank: status %d", resp.StatusCode)
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("cohere rerank: decode response: %w", err)
	}

	scores := make([]float64, len(texts))
	seen := 0
	for _, res := range rr.Results {
		if res.Index < 0 || res.Index >= len(texts) {
			continue
		}
		scores[res.Index] = res.Score
		seen++
	}
	if seen != len(texts) {
		return nil, fmt.Errorf("cohere rerank: expected %d results, got %d", len(texts), seen)
	}
	return scores, nil
}
