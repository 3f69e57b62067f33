// Package provider implements the AI completion clients argus can route
// across: Cohere, Gemini, HuggingFace, and OpenAI. Each client exposes
// the same minimal Ask contract; everything above this package treats
// providers as interchangeable.
package provider

import (
	"context"
	"errors"
	"strings"

	"argus/internal/config"
)

// Client is the minimal interface a provider must satisfy.
type Client interface {
	Name() string
	Ask(ctx context.Context, prompt string) (string, error)
}

// ErrRateLimited marks quota/429 failures so the router can distinguish
// transient limits from hard provider errors.
var ErrRateLimited = errors.New("provider rate limited")

// IsRateLimited reports whether an error is a quota/rate-limit signal.
// SDK errors don't always wrap our sentinel, so fall back to the same
// string inspection the providers' own messages make reliable.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}

// Registry holds the configured clients in routing priority order.
type Registry struct {
	order   []string
	clients map[string]Client
}

// NewRegistry builds clients for every provider with an API key
// configured. Priority order is fixed: cohere, gemini, huggingface,
// openai (the cheap/free tiers first, OpenAI as last resort).
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{clients: make(map[string]Client)}
	if cfg.Providers.Cohere.APIKey != "" {
		r.register(NewCohereClient(cfg.Providers.Cohere))
	}
	if cfg.Providers.Gemini.APIKey != "" {
		r.register(NewGeminiClient(cfg.Providers.Gemini))
	}
	if cfg.Providers.HuggingFace.APIKey != "" {
		r.register(NewHuggingFaceClient(cfg.Providers.HuggingFace))
	}
	if cfg.Providers.OpenAI.APIKey != "" {
		r.register(NewOpenAIClient(cfg.Providers.OpenAI))
	}
	return r
}

// NewRegistryFromClients builds a registry from explicit clients,
// preserving the given order. Used by tests and the ensemble path.
func NewRegistryFromClients(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client)}
	for _, c := range clients {
		r.register(c)
	}
	return r
}

func (r *Registry) register(c Client) {
	if _, ok := r.clients[c.Name()]; ok {
		return
	}
	r.order = append(r.order, c.Name())
	r.clients[c.Name()] = c
}

// Names returns the registered provider names in priority order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the client for a provider name.
func (r *Registry) Get(name string) (Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}
