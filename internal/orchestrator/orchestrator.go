// Package orchestrator is the fan-out engine: it runs every registered
// analysis module for a query, narrates progress through a StatusFunc,
// tolerates any module failing, and hands the collected envelopes to
// the aggregator and report builder. Modules run sequentially so the
// narration arrives in a stable order; determinism of the final report
// depends on that ordering.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"argus/internal/aggregate"
	"argus/internal/config"
	"argus/internal/logging"
	"argus/internal/modules"
	"argus/internal/report"
	"argus/internal/tracker"
	"argus/internal/types"
)

// RunResult is what a full orchestration pass returns.
type RunResult struct {
	Aggregated aggregate.Aggregated
	Raw        []types.Envelope
	Report     string
	Outcomes   []types.ModuleOutcome
}

// Orchestrator coordinates the location phase, the module loop, and
// the aggregation/report phases.
type Orchestrator struct {
	registry  *modules.Registry
	satellite modules.Module
	locator   modules.LocationExtractor
	tracker   *tracker.Tracker

	// cfg is re-read at every use so a hot-reloaded config changes
	// pacing and timeouts mid-run.
	cfg func() config.OrchestratorConfig

	// sleep is injectable so tests skip the pacing delay.
	sleep func(ctx context.Context, d time.Duration)
}

// New builds an Orchestrator from a fixed config snapshot. The
// satellite module and locator may be nil; the location phase is
// skipped entirely without them. The tracker may be nil (sinks become
// no-ops).
func New(reg *modules.Registry, sat modules.Module, loc modules.LocationExtractor, trk *tracker.Tracker, cfg config.OrchestratorConfig) *Orchestrator {
	return NewFromSource(reg, sat, loc, trk, func() config.OrchestratorConfig { return cfg })
}

// NewFromSource builds an Orchestrator that re-reads its config on
// every use, typically from a config.Watcher snapshot.
func NewFromSource(reg *modules.Registry, sat modules.Module, loc modules.LocationExtractor, trk *tracker.Tracker, src func() config.OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		registry:  reg,
		satellite: sat,
		locator:   loc,
		tracker:   trk,
		cfg:       src,
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
}

func (o *Orchestrator) moduleTimeout() time.Duration {
	return config.Duration(o.cfg().ModuleTimeout, time.Minute)
}

func (o *Orchestrator) runDeadline() time.Duration {
	return config.Duration(o.cfg().RunDeadline, 10*time.Minute)
}

func (o *Orchestrator) pacing() time.Duration {
	return config.Duration(o.cfg().PacingDelay, 800*time.Millisecond)
}

func (o *Orchestrator) maxLocations() int {
	if n := o.cfg().MaxLocations; n > 0 {
		return n
	}
	return 3
}

var assumptions = []string{
	"• A person",
	"• Social media account",
	"• Organization or project",
	"• Email, username, or domain",
}

// Run executes a full orchestration pass. It never returns an error:
// every failure mode degrades to envelope data and the caller always
// receives a rendered report.
func (o *Orchestrator) Run(ctx context.Context, query string, opts types.AnalyzeOptions, status StatusFunc) RunResult {
	log := logging.Get(logging.CategoryOrchestrator)
	if status == nil {
		status = NopStatus
	}
	ctx, cancel := context.WithTimeout(ctx, o.runDeadline())
	defer cancel()

	status(fmt.Sprintf("Analyzing query: %s\nAssumptions:\n%s\n\nInitializing modules...",
		query, strings.Join(assumptions, "\n")))

	var raw []types.Envelope
	var outcomes []types.ModuleOutcome

	raw = append(raw, o.locationPhase(ctx, query, opts, status)...)

	mods := o.registry.Modules()
	total := len(mods)
	for idx, mod := range mods {
		status(fmt.Sprintf("%s (%d/%d) running...", mod.Name(), idx+1, total))

		start := time.Now()
		env, err := o.runModule(ctx, mod, query, opts)
		latency := time.Since(start)

		outcome := types.ModuleOutcome{Module: mod.Name(), Latency: latency, Status: "success"}
		switch {
		case err != nil:
			env = types.ErrorEnvelope(strings.ToLower(mod.Name()), err)
			outcome.Status = "error"
			outcome.Error = err.Error()
			log.Error("module %s failed after %s: %v", mod.Name(), latency, err)
		case env.Result.Error != "":
			outcome.Status = "error"
			outcome.Error = env.Result.Error
			log.Warn("module %s reported error after %s: %s", mod.Name(), latency, env.Result.Error)
		default:
			log.Info("module %s finished in %s", mod.Name(), latency)
		}
		raw = append(raw, env)
		outcomes = append(outcomes, outcome)

		o.tracker.LogProviderDecision(opts.SessionID, query,
			[]string{mod.Name()}, []types.ModuleOutcome{outcome}, mod.Name(), outcome.Status)

		if pacing := o.pacing(); idx < total-1 && pacing > 0 {
			o.sleep(ctx, pacing)
		}
	}

	agg := aggregate.Aggregate(raw)
	status(fmt.Sprintf("Generating final report for query: %s", query))
	rendered := report.Build(raw, agg)

	status(fmt.Sprintf("Analysis complete for %s!\n\n%s", query, rendered))
	o.tracker.LogAnalytics("report_generated", 1)
	o.tracker.LogConversation(opts.SessionID, opts.UserID, query, query,
		rendered, "orchestrator", "v1", map[string]string{"task_type": opts.TaskType})

	return RunResult{Aggregated: agg, Raw: raw, Report: rendered, Outcomes: outcomes}
}

// locationPhase extracts locations from the query and runs satellite
// verification for each. Extraction or per-location failures are
// logged and dropped, never fatal.
func (o *Orchestrator) locationPhase(ctx context.Context, query string, opts types.AnalyzeOptions, status StatusFunc) []types.Envelope {
	if o.locator == nil || o.satellite == nil {
		return nil
	}
	log := logging.Get(logging.CategoryOrchestrator)
	status("Extracting locations from query...")

	locations, err := o.locator.Extract(ctx, query, o.maxLocations())
	if err != nil {
		log.Warn("location extraction failed: %v", err)
		return nil
	}
	if len(locations) == 0 {
		status(fmt.Sprintf("No locations found in query: %s", query))
		return nil
	}

	var lines []string
	for _, loc := range locations {
		lines = append(lines, fmt.Sprintf("%s (%.4f, %.4f)", loc.Name, loc.Latitude, loc.Longitude))
	}
	status(fmt.Sprintf("Found locations:\n%s\n\nFetching satellite imagery for these locations...",
		strings.Join(lines, "\n")))

	var envs []types.Envelope
	for _, loc := range locations {
		coords := fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude)
		env, err := o.runModule(ctx, o.satellite, coords, opts)
		if err != nil {
			log.Warn("satellite verification for %s failed: %v", loc.Name, err)
			continue
		}
		envs = append(envs, env)
	}
	return envs
}

// runModule executes one module under the per-module timeout. The
// module's goroutine is abandoned on timeout; the envelope channel is
// buffered so it can still complete and be collected by the GC.
func (o *Orchestrator) runModule(ctx context.Context, mod modules.Module, query string, opts types.AnalyzeOptions) (types.Envelope, error) {
	modCtx, cancel := context.WithTimeout(ctx, o.moduleTimeout())
	defer cancel()

	done := make(chan types.Envelope, 1)
	go func() {
		done <- mod.Analyze(modCtx, query, opts)
	}()

	select {
	case env := <-done:
		if !types.ValidateShape(env) {
			return types.Envelope{}, fmt.Errorf("module %s returned an incomplete envelope", mod.Name())
		}
		return env, nil
	case <-modCtx.Done():
		return types.Envelope{}, fmt.Errorf("module %s: %w", mod.Name(), modCtx.Err())
	}
}
