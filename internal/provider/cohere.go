package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"argus/internal/config"
	"argus/internal/logging"
)

// CohereClient calls Cohere's chat endpoint.
type CohereClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewCohereClient creates a Cohere client from config.
func NewCohereClient(cfg config.ProviderConfig) *CohereClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.cohere.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "command-r"
	}
	return &CohereClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: config.Duration(cfg.Timeout, 120*time.Second),
		},
	}
}

// Name returns the provider identifier.
func (c *CohereClient) Name() string { return "cohere" }

type cohereRequest struct {
	Message     string  `json:"message"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type cohereResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Ask sends a prompt and returns the completion text.
func (c *CohereClient) Ask(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	reqBody := cohereRequest{
		Message:     prompt,
		Model:       c.model,
		MaxTokens:   1024,
		Temperature: 0.5,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		logging.Get(logging.CategoryAPI).Warn("cohere returned 429")
		return "", fmt.Errorf("cohere: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var cohereResp cohereResponse
	if err := json.Unmarshal(body, &cohereResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if cohereResp.Error != nil {
		return "", fmt.Errorf("API error: %s", cohereResp.Error.Message)
	}
	if strings.TrimSpace(cohereResp.Text) == "" {
		return "", fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(cohereResp.Text), nil
}
