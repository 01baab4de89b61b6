package generator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// LLM is the completion backend the generator talks to. Kept minimal so
// tests can substitute a canned implementation.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatConfig configures the OpenAI-compatible chat client. The default base
// URL points at Mistral's API, which speaks the same protocol.
type ChatConfig struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// ChatClient implements LLM over any OpenAI-compatible chat endpoint.
type ChatClient struct {
	client      openai.Client
	model       shared.ChatModel
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv)
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatClient{
		client:      openai.NewClient(opts...),
		model:       shared.ChatModel(cfg.Model),
		timeout:     timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
