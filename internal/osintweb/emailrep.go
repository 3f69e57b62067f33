package osintweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"argus/internal/config"
	"argus/internal/modules"
)

// KickboxChecker verifies email deliverability via the Kickbox API.
// Unconfigured (no API key) checkers return a nil verdict.
type KickboxChecker struct {
	apiKey    string
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewKickboxChecker builds the Kickbox email checker.
func NewKickboxChecker(cfg config.OSINTConfig, baseURL string) *KickboxChecker {
	if baseURL == "" {
		baseURL = "https://api.kickbox.com"
	}
	return &KickboxChecker{apiKey: cfg.KickboxAPIKey, baseURL: baseURL, userAgent: cfg.UserAgent, client: newHTTPClient(cfg)}
}

func (c *KickboxChecker) Name() string { return "kickbox" }

func (c *KickboxChecker) Check(ctx context.Context, email string) (*modules.EmailVerdict, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	rawURL := fmt.Sprintf("%s/v2/verify?email=%s&apikey=%s",
		c.baseURL, url.QueryEscape(email), url.QueryEscape(c.apiKey))
	resp, err := get(ctx, c.client, c.userAgent, rawURL)
	if err != nil {
		return nil, fmt.Errorf("kickbox: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kickbox: status %d", resp.StatusCode)
	}
	var payload struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("kickbox: %w", err)
	}
	score := 0.3
	if payload.Result == "deliverable" {
		score = 0.9
	}
	return &modules.EmailVerdict{Source: c.Name(), Verdict: payload.Result, Score: score}, nil
}

// EmailableChecker verifies email deliverability via the Emailable API.
type EmailableChecker struct {
	apiKey    string
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewEmailableChecker builds the Emailable email checker.
func NewEmailableChecker(cfg config.OSINTConfig, baseURL string) *EmailableChecker {
	if baseURL == "" {
		baseURL = "https://api.emailable.com"
	}
	return &EmailableChecker{apiKey: cfg.EmailableAPIKey, baseURL: baseURL, userAgent: cfg.UserAgent, client: newHTTPClient(cfg)}
}

func (c *EmailableChecker) Name() string { return "emailable" }

func (c *EmailableChecker) Check(ctx context.Context, email string) (*modules.EmailVerdict, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	rawURL := fmt.Sprintf("%s/v1/verify?email=%s&api_key=%s",
		c.baseURL, url.QueryEscape(email), url.QueryEscape(c.apiKey))
	resp, err := get(ctx, c.client, c.userAgent, rawURL)
	if err != nil {
		return nil, fmt.Errorf("emailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emailable: status %d", resp.StatusCode)
	}
	var payload struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("emailable: %w", err)
	}
	score := 0.4
	if payload.State == "deliverable" {
		score = 0.87
	}
	return &modules.EmailVerdict{Source: c.Name(), Verdict: payload.State, Score: score}, nil
}

// DefaultEmailCheckers returns the configured email reputation chain.
func DefaultEmailCheckers(cfg config.OSINTConfig) []modules.EmailChecker {
	return []modules.EmailChecker{
		NewKickboxChecker(cfg, ""),
		NewEmailableChecker(cfg, ""),
	}
}
