package router

import (
	"context"
	"strings"
	"sync"

	"argus/internal/logging"
	"argus/internal/types"
)

// MergedResult is the outcome of an ensemble ask.
type MergedResult struct {
	// Providers that contributed text, in registry order.
	Providers []string
	// Text is the successful texts joined with single spaces, in
	// registry order regardless of completion order.
	Text string
	// Errors holds "<provider>: <reason>" for each failed provider.
	Errors []string
	// Error is set when zero providers succeeded.
	Error string
}

// AskEnsemble queries every currently-available provider concurrently
// with the same prompt and merges the successful outputs. Each call is
// isolated: one provider's failure never cancels the others. Merge
// order follows the provider registry, not completion order, so the
// result is deterministic.
func (r *Router) AskEnsemble(ctx context.Context, prompt string, opts types.AnalyzeOptions) MergedResult {
	log := logging.Get(logging.CategoryRouter)

	available, err := r.store.AvailableProviders()
	if err != nil {
		return MergedResult{Error: "availability store: " + err.Error()}
	}
	if len(available) == 0 {
		return MergedResult{Error: "All providers failed."}
	}

	type slot struct {
		text string
		err  string
	}
	slots := make([]slot, len(available))

	var wg sync.WaitGroup
	for i, name := range available {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			callOpts := opts
			callOpts.Provider = name
			env := r.Analyze(ctx, prompt, callOpts)
			if env.Result.Error != "" {
				slots[i].err = name + ": " + env.Result.Error
				return
			}
			if env.Result.Text != "" {
				slots[i].text = env.Result.Text
			}
		}(i, name)
	}
	wg.Wait()

	var merged MergedResult
	var texts []string
	for i, name := range available {
		if slots[i].err != "" {
			merged.Errors = append(merged.Errors, slots[i].err)
			continue
		}
		if slots[i].text != "" {
			merged.Providers = append(merged.Providers, name)
			texts = append(texts, slots[i].text)
		}
	}
	merged.Text = strings.Join(texts, " ")

	if merged.Text == "" {
		if len(merged.Errors) > 0 {
			merged.Error = strings.Join(merged.Errors, "; ")
		} else {
			merged.Error = "All providers failed."
		}
		log.Warn("ensemble produced no text: %s", merged.Error)
	} else {
		log.Info("ensemble merged %d/%d providers", len(merged.Providers), len(available))
	}

	return merged
}

// AskAny tries each registered provider in priority order and returns
// the first non-empty completion, skipping failures. Used as the
// ask-function collaborator for location extraction.
func (r *Router) AskAny(ctx context.Context, prompt string) string {
	for _, name := range r.registry.Names() {
		text, err := r.askOncePreferringSpeed(ctx, name, prompt)
		if err == nil && text != "" {
			return text
		}
	}
	return ""
}

// askOncePreferringSpeed is a single non-retrying attempt: availability
// check, one call, classification left to the caller.
func (r *Router) askOncePreferringSpeed(ctx context.Context, providerName, prompt string) (string, error) {
	ok, err := r.store.IsAvailable(providerName)
	if err != nil || !ok {
		return "", ErrProviderUnavailable
	}
	client, found := r.registry.Get(providerName)
	if !found {
		return "", ErrProviderUnavailable
	}
	return r.callOnce(ctx, client, prompt)
}
