package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"argus/internal/config"

	"google.golang.org/genai"
)

// GeminiClient calls Google Gemini through the genai SDK.
type GeminiClient struct {
	apiKey string
	model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiClient creates a Gemini client from config. The underlying
// SDK client is built lazily on first use because its constructor needs
// a context.
func NewGeminiClient(cfg config.ProviderConfig) *GeminiClient {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{
		apiKey: cfg.APIKey,
		model:  model,
	}
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) init(ctx context.Context) error {
	c.once.Do(func() {
		if c.apiKey == "" {
			c.initErr = fmt.Errorf("API key not configured")
			return
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
		if err != nil {
			c.initErr = fmt.Errorf("failed to create genai client: %w", err)
			return
		}
		c.client = client
	})
	return c.initErr
}

// Ask sends a prompt and returns the completion text.
func (c *GeminiClient) Ask(ctx context.Context, prompt string) (string, error) {
	if err := c.init(ctx); err != nil {
		return "", err
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		// The SDK surfaces quota failures as APIError with code 429;
		// IsRateLimited handles the message either way.
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no completion returned")
	}
	return text, nil
}
