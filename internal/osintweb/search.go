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

// DuckDuckGo implements web search over the instant-answer API.
type DuckDuckGo struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewDuckDuckGo builds the searcher.
func NewDuckDuckGo(cfg config.OSINTConfig) *DuckDuckGo {
	return &DuckDuckGo{baseURL: cfg.SearchBaseURL, userAgent: cfg.UserAgent, client: newHTTPClient(cfg)}
}

// Search returns up to maxResults related topics for the query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]modules.SearchResult, error) {
	params := url.Values{
		"q":           {query},
		"format":      {"json"},
		"no_redirect": {"1"},
		"no_html":     {"1"},
	}
	resp, err := get(ctx, d.client, d.userAgent, d.baseURL+"/?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo search: status %d", resp.StatusCode)
	}

	var payload struct {
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}

	var results []modules.SearchResult
	for _, topic := range payload.RelatedTopics {
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, modules.SearchResult{
			Title:   topic.Text,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
