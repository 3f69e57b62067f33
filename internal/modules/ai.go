package modules

import (
	"context"
	"errors"

	"argus/internal/types"
)

// AIModule is the thin wrapper that exposes the provider router as a
// regular analysis module.
type AIModule struct {
	ai AI
}

// NewAIModule wires the router-backed AI module.
func NewAIModule(d Deps) *AIModule {
	return &AIModule{ai: d.AI}
}

func (m *AIModule) Name() string { return "AI Analysis" }

func (m *AIModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	if m.ai == nil {
		return types.ErrorEnvelope("ai", errors.New("no AI router configured"))
	}
	return m.ai.Analyze(ctx, query, opts)
}
