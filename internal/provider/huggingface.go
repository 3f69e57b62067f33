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
)

// HuggingFaceClient calls the HuggingFace Inference API for a hosted
// text-generation model.
type HuggingFaceClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewHuggingFaceClient creates a HuggingFace client from config.
func NewHuggingFaceClient(cfg config.ProviderConfig) *HuggingFaceClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	model := cfg.Model
	if model == "" {
		model = "mistralai/Mistral-7B-Instruct-v0.3"
	}
	return &HuggingFaceClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: config.Duration(cfg.Timeout, 120*time.Second),
		},
	}
}

// Name returns the provider identifier.
func (c *HuggingFaceClient) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens   int  `json:"max_new_tokens,omitempty"`
		ReturnFullText bool `json:"return_full_text"`
	} `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Ask sends a prompt and returns the generated text.
func (c *HuggingFaceClient) Ask(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	reqBody := hfRequest{Inputs: prompt}
	reqBody.Parameters.MaxNewTokens = 512
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/models/" + c.model
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
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
		return "", fmt.Errorf("huggingface: %w", ErrRateLimited)
	}
	// 503 means the model is still loading on HF's side - transient, but
	// not a quota problem; surface it as a plain error.
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var generations []hfGeneration
	if err := json.Unmarshal(body, &generations); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(generations) == 0 || strings.TrimSpace(generations[0].GeneratedText) == "" {
		return "", fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(generations[0].GeneratedText), nil
}
