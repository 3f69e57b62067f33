// Package osintweb implements the HTTP collaborators the analysis
// modules call out to: public-surface site checkers, DuckDuckGo
// search, NASA FIRMS satellite lookups, and email reputation services.
// Every client takes its base URL from config so tests can point it at
// a local server.
package osintweb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"argus/internal/config"
	"argus/internal/logging"
	"argus/internal/modules"
)

func newHTTPClient(cfg config.OSINTConfig) *http.Client {
	return &http.Client{Timeout: config.Duration(cfg.CheckTimeout, 0)}
}

func get(ctx context.Context, client *http.Client, userAgent, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return client.Do(req)
}

// GitHubChecker probes the GitHub users API for a username.
type GitHubChecker struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewGitHubChecker builds the GitHub site checker.
func NewGitHubChecker(cfg config.OSINTConfig) *GitHubChecker {
	return &GitHubChecker{baseURL: cfg.GitHubBaseURL, userAgent: cfg.UserAgent, client: newHTTPClient(cfg)}
}

func (c *GitHubChecker) Name() string    { return "github" }
func (c *GitHubChecker) Types() []string { return []string{"username", "email"} }

func (c *GitHubChecker) Check(ctx context.Context, query string) modules.CheckResult {
	res := modules.CheckResult{Source: c.Name()}
	resp, err := get(ctx, c.client, c.userAgent, c.baseURL+"/users/"+url.PathEscape(query))
	if err != nil {
		res.Status = modules.StatusErrored
		res.Details = err.Error()
		return res
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		res.Status = modules.StatusNegative
		return res
	}
	var user struct {
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		res.Status = modules.StatusErrored
		res.Details = err.Error()
		return res
	}
	res.Status = modules.StatusPositive
	res.URL = user.HTMLURL
	return res
}

// RedditChecker probes Reddit's about endpoint for a username.
type RedditChecker struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewRedditChecker builds the Reddit site checker.
func NewRedditChecker(cfg config.OSINTConfig) *RedditChecker {
	return &RedditChecker{baseURL: cfg.RedditBaseURL, userAgent: cfg.UserAgent, client: newHTTPClient(cfg)}
}

func (c *RedditChecker) Name() string    { return "reddit" }
func (c *RedditChecker) Types() []string { return []string{"username"} }

func (c *RedditChecker) Check(ctx context.Context, query string) modules.CheckResult {
	res := modules.CheckResult{Source: c.Name()}
	resp, err := get(ctx, c.client, c.userAgent,
		fmt.Sprintf("%s/user/%s/about.json", c.baseURL, url.PathEscape(query)))
	if err != nil {
		res.Status = modules.StatusErrored
		res.Details = err.Error()
		return res
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		res.Status = modules.StatusNegative
		return res
	}
	var about struct {
		Data struct {
			TotalKarma int `json:"total_karma"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&about); err != nil {
		res.Status = modules.StatusErrored
		res.Details = err.Error()
		return res
	}
	res.Status = modules.StatusPositive
	res.Details = fmt.Sprintf("karma: %d", about.Data.TotalKarma)
	res.URL = c.baseURL + "/user/" + query
	return res
}

// PastebinChecker looks for a user page on Pastebin. Pastebin returns
// 200 with a generic page for missing users, so the body is checked
// for the username.
type PastebinChecker struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewPastebinChecker builds the Pastebin site checker.
func NewPastebinChecker(cfg config.OSINTConfig) *PastebinChecker {
	return &PastebinChecker{baseURL: cfg.PastebinBaseURL, userAgent: cfg.UserAgent, client: newHTTPClient(cfg)}
}

func (c *PastebinChecker) Name() string    { return "pastebin" }
func (c *PastebinChecker) Types() []string { return []string{"username", "email"} }

func (c *PastebinChecker) Check(ctx context.Context, query string) modules.CheckResult {
	res := modules.CheckResult{Source: c.Name()}
	pageURL := c.baseURL + "/u/" + url.PathEscape(query)
	resp, err := get(ctx, c.client, c.userAgent, pageURL)
	if err != nil {
		res.Status = modules.StatusErrored
		res.Details = err.Error()
		return res
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		res.Status = modules.StatusNegative
		return res
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		res.Status = modules.StatusErrored
		res.Details = err.Error()
		return res
	}
	if !strings.Contains(strings.ToLower(string(body)), strings.ToLower(query)) {
		res.Status = modules.StatusNegative
		return res
	}
	res.Status = modules.StatusPositive
	res.URL = pageURL
	return res
}

// DefaultCheckers returns the standard site checker lineup.
func DefaultCheckers(cfg config.OSINTConfig) []modules.SiteChecker {
	logging.Get(logging.CategoryModules).Debug("site checkers wired: github, reddit, pastebin")
	return []modules.SiteChecker{
		NewGitHubChecker(cfg),
		NewRedditChecker(cfg),
		NewPastebinChecker(cfg),
	}
}
