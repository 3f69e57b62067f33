package router

import (
	"context"
	"fmt"
	"strings"

	"argus/internal/availability"
	"argus/internal/logging"
	"argus/internal/provider"
	"argus/internal/types"
)

// successConfidence is the fixed heuristic for a single successful
// provider call: moderately high, never perfect.
const successConfidence = 0.8

// Analyze is the orchestrated ask path: one provider, one attempt, fail
// fast. Rate limits mark the provider unavailable for a minute; other
// failures mark it hard-unavailable. Failure is returned as data in the
// envelope, never as an error, so the fan-out engine can aggregate
// blindly.
func (r *Router) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("ai")
	log := logging.Get(logging.CategoryRouter)

	providerName, err := r.pickProvider(opts.Provider)
	if err != nil {
		env.Result.Text = "AI provider is unavailable due to rate limiting or error."
		env.Result.Error = "Provider unavailable."
		r.logConversation(query, env.Result.Text, providerName, opts)
		return env
	}
	env.Details["provider"] = providerName

	ok, availErr := r.store.IsAvailable(providerName)
	if availErr != nil || !ok {
		env.Result.Text = fmt.Sprintf("%s AI provider is unavailable due to rate limiting or error.", providerName)
		env.Result.Error = "Provider unavailable."
		r.logConversation(query, env.Result.Text, providerName, opts)
		return env
	}

	log.Info("trying provider: %s", providerName)
	client, found := r.registry.Get(providerName)
	if !found {
		env.Result.Error = fmt.Sprintf("no client registered for provider %q", providerName)
		return env
	}

	raw, callErr := r.callOnce(ctx, client, query)
	if callErr == nil {
		norm := Normalize(TextOutput(raw))
		if norm.Text != "" && norm.Error == "" {
			env.Result = norm
			env.Confidence = successConfidence
			if err := r.store.MarkAvailable(providerName); err != nil {
				log.Error("mark available: %v", err)
			}
			if err := r.store.RecordUsage(providerName); err != nil {
				log.Error("record usage: %v", err)
			}
			log.Info("provider %s succeeded", providerName)
			r.logConversation(query, env.Result.Text, providerName, opts)
			return env
		}
		callErr = fmt.Errorf("%s", orEmpty(norm.Error, "provider returned no usable result"))
	}

	// Failure path: classify, mark, degrade to data.
	log.Error("provider %s failed: %v", providerName, callErr)
	env.Result.Error = callErr.Error()
	env.Details["error"] = callErr.Error()
	env.Result.Text = fmt.Sprintf("%s AI provider failed or is rate-limited: %v", providerName, callErr)

	limit := availability.LimitHard
	if provider.IsRateLimited(callErr) {
		limit = availability.LimitMinute
	}
	if err := r.store.MarkUnavailable(providerName, limit); err != nil {
		log.Error("mark unavailable: %v", err)
	}

	r.logConversation(query, env.Result.Text, providerName, opts)
	return env
}

func (r *Router) logConversation(query, response, providerName string, opts types.AnalyzeOptions) {
	r.tracker.LogConversation(
		opts.SessionID, opts.UserID,
		query, query, response,
		orEmpty(providerName, "ai"), "v1",
		map[string]string{"task_type": opts.TaskType},
	)
}

func orEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
