// Package modules holds the analysis modules the fan-out engine runs
// for every query. Each module honors the same contract: take a query
// plus options, return a complete envelope, never panic, and report
// failure as envelope data. External surfaces (site checks, email
// reputation, satellite imagery, web search) sit behind narrow
// collaborator interfaces so tests can swap them out.
package modules

import (
	"context"

	"argus/internal/router"
	"argus/internal/tracker"
	"argus/internal/types"
)

// Module is the uniform analysis contract.
type Module interface {
	Name() string
	Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope
}

// AI is the slice of router behavior the modules call.
type AI interface {
	Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope
	AskEnsemble(ctx context.Context, prompt string, opts types.AnalyzeOptions) router.MergedResult
}

// Deps carries every collaborator a module might need. Nil entries are
// tolerated: modules degrade to error envelopes, not panics.
type Deps struct {
	AI        AI
	Checkers  []SiteChecker
	Email     []EmailChecker
	Satellite SatelliteSource
	Timeline  TimelineSource
	Search    Searcher
	Scorer    ConfidenceScorer
	Tracker   *tracker.Tracker
}

// checkersFor filters the configured site checkers down to a query type.
func (d Deps) checkersFor(queryType string) []SiteChecker {
	var out []SiteChecker
	for _, c := range d.Checkers {
		for _, t := range c.Types() {
			if t == queryType {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Registry is the ordered module list. Order matters for sequential
// progress narration, not correctness.
type Registry struct {
	modules []Module
}

// NewRegistry preserves the given order.
func NewRegistry(mods ...Module) *Registry {
	return &Registry{modules: mods}
}

// DefaultRegistry wires the standard six-module lineup. The satellite
// module is deliberately absent: the orchestrator runs it from the
// location phase, per extracted location, not once per query.
func DefaultRegistry(d Deps) *Registry {
	return NewRegistry(
		NewAIModule(d),
		NewOSINTModule(d),
		NewFootprintModule(d),
		NewResearchModule(d),
		NewTimelineModule(d),
		NewVerifyModule(d),
	)
}

// Modules returns the registered modules in order.
func (r *Registry) Modules() []Module {
	out := make([]Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// Len returns the module count.
func (r *Registry) Len() int {
	return len(r.modules)
}
