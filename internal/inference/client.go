// Package inference talks to an OpenAI-compatible chat model to infer task
// completion from commit and pull request text, and to draft features.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no API key was provided
var ErrNotConfigured = errors.New("inference client not configured")

// Config configures the inference client
type Config struct {
	APIKey string
	Model  string
	// BaseURL points at any OpenAI-compatible endpoint
	BaseURL string
	Timeout time.Duration
}

// Client wraps an OpenAI chat client
type Client struct {
	client  *openai.Client
	logger  *zap.Logger
	model   string
	timeout time.Duration
}

// NewClient creates a new inference client. Without an API key every call
// returns ErrNotConfigured.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	c := &Client{
		logger:  logger,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}

	if c.model == "" {
		c.model = openai.GPT4oMini
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}

	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		clientConfig.HTTPClient = &http.Client{Timeout: c.timeout}
		c.client = openai.NewClientWithConfig(clientConfig)
	}

	return c
}

// complete sends one system+user exchange and returns the reply text
func (c *Client) complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return resp.Choices[0].Message.Content, nil
}
