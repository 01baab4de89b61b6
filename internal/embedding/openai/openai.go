// Package openai provides a remote embedder backed by any OpenAI-compatible
// embeddings endpoint.
package openai

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config configures the embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Client calls a remote embeddings API. The provider is assumed to be
// deterministic for identical input text.
type Client struct {
	client       openai.Client
	model        string
	timeout      time.Duration
	dimension    atomic.Int64
	maxRetries   int
	retryBackoff []time.Duration
}

// NewClient creates an embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:       openai.NewClient(opts...),
		model:        cfg.Model,
		timeout:      timeout,
		maxRetries:   3,
		retryBackoff: []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond},
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension reports the vector dimension, learned from the first response.
// Concurrent embeds are allowed, so the field is atomic.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for the given text, retrying transient
// failures with exponential backoff.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		vec, err := c.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if attempt >= c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	return nil, fmt.Errorf("embeddings request failed: %w", lastErr)
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	vec := resp.Data[0].Embedding
	c.dimension.CompareAndSwap(0, int64(len(vec)))
	return vec, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < len(c.retryBackoff) {
		return c.retryBackoff[attempt]
	}
	return c.retryBackoff[len(c.retryBackoff)-1]
}
