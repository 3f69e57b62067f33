// Package router picks and falls back across AI providers. It offers
// two call paths with deliberately different rate-limit policies:
//
//   - Ask: direct single-provider call that backs off and retries on
//     quota errors (10s doubling to an 80s ceiling) until the context
//     is cancelled. Used for standalone utilities that would rather
//     wait than fail.
//   - Analyze: orchestrated call that fails fast on any provider error
//     and marks the provider unavailable, bounding total fan-out
//     latency. Used by the analysis modules.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"argus/internal/availability"
	"argus/internal/config"
	"argus/internal/logging"
	"argus/internal/provider"
	"argus/internal/tracker"
)

// ErrProviderUnavailable means the availability store vetoed the call;
// no network request was attempted.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Router routes prompts to providers, consulting and updating the
// availability store around every call.
type Router struct {
	registry *provider.Registry
	store    *availability.Store
	tracker  *tracker.Tracker

	backoffInitial time.Duration
	backoffMax     time.Duration
	callTimeout    time.Duration

	// sleep is ctx-aware and injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Router. The tracker may be nil (sinks become no-ops).
func New(reg *provider.Registry, store *availability.Store, trk *tracker.Tracker, cfg config.RouterConfig) *Router {
	return &Router{
		registry:       reg,
		store:          store,
		tracker:        trk,
		backoffInitial: config.Duration(cfg.BackoffInitial, 10*time.Second),
		backoffMax:     config.Duration(cfg.BackoffMax, 80*time.Second),
		callTimeout:    config.Duration(cfg.CallTimeout, 120*time.Second),
		sleep:          ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ask sends a prompt to one provider with backoff-and-retry on rate
// limits. It fails fast with ErrProviderUnavailable when the store says
// the provider is down - no network call is made. On a non-rate-limit
// provider error the returned string is a sentinel embedding the error
// ("Error during <provider> completion: ...") alongside the structured
// error, so callers can detect failure either way.
func (r *Router) Ask(ctx context.Context, providerName, prompt string) (string, error) {
	ok, err := r.store.IsAvailable(providerName)
	if err != nil {
		return "", fmt.Errorf("availability store: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", providerName, ErrProviderUnavailable)
	}

	client, found := r.registry.Get(providerName)
	if !found {
		return "", fmt.Errorf("no client registered for provider %q", providerName)
	}

	log := logging.Get(logging.CategoryRouter)
	delay := r.backoffInitial
	for {
		text, err := r.callOnce(ctx, client, prompt)
		if err == nil {
			return text, nil
		}
		if provider.IsRateLimited(err) {
			log.Warn("provider %s rate limited, backing off %s", providerName, delay)
			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				return "", fmt.Errorf("backoff interrupted: %w", sleepErr)
			}
			delay *= 2
			if delay > r.backoffMax {
				delay = r.backoffMax
			}
			continue
		}
		sentinel := fmt.Sprintf("Error during %s completion: %v", providerName, err)
		log.Error("provider %s failed: %v", providerName, err)
		return sentinel, err
	}
}

// callOnce runs a single provider call under the per-call deadline.
func (r *Router) callOnce(ctx context.Context, client provider.Client, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return client.Ask(callCtx, prompt)
}

// pickProvider returns the pinned provider from opts, or the first
// available provider in registry order.
func (r *Router) pickProvider(pinned string) (string, error) {
	if pinned != "" {
		return pinned, nil
	}
	available, err := r.store.AvailableProviders()
	if err != nil {
		return "", fmt.Errorf("availability store: %w", err)
	}
	if len(available) == 0 {
		return "", ErrProviderUnavailable
	}
	return available[0], nil
}

// Providers returns registry priority order.
func (r *Router) Providers() []string {
	return r.registry.Names()
}

// AvailableProviders returns the currently-available providers in
// registry order.
func (r *Router) AvailableProviders() ([]string, error) {
	return r.store.AvailableProviders()
}
