package modules

import (
	"context"
	"errors"
	"strings"

	"argus/internal/types"
)

// VerifyModule fact-checks a claim: web search for sources, then AI
// summarization of the combined snippets and extraction of key facts.
type VerifyModule struct {
	deps Deps
}

// NewVerifyModule wires the claim verification module.
func NewVerifyModule(d Deps) *VerifyModule {
	return &VerifyModule{deps: d}
}

func (m *VerifyModule) Name() string { return "Verify" }

func (m *VerifyModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("verify")
	if m.deps.Search == nil || m.deps.AI == nil {
		return types.ErrorEnvelope("verify", errors.New("verify module needs search and AI collaborators"))
	}

	hits, err := m.deps.Search.Search(ctx, query, 5)
	if err != nil {
		env.Result.Error = err.Error()
		env.Result.Text = "Error during source search: " + err.Error()
		return env
	}
	if len(hits) == 0 {
		env.Result.Text = "No relevant sources found to verify this claim."
		return env
	}

	var snippets []string
	for _, h := range hits {
		if h.Snippet != "" {
			snippets = append(snippets, h.Snippet)
		}
		if h.URL != "" {
			env.Result.Links = append(env.Result.Links, h.URL)
		}
	}
	combined := strings.Join(snippets, "\n")

	summary := m.deps.AI.Analyze(ctx,
		"Summarize the findings about this claim:\nClaim: "+query+"\n\nSources:\n"+combined,
		types.AnalyzeOptions{SessionID: opts.SessionID, UserID: opts.UserID, TaskType: "summarize"})
	facts := m.deps.AI.Analyze(ctx,
		"Extract the key verifiable facts about this claim:\nClaim: "+query+"\n\nSources:\n"+combined,
		types.AnalyzeOptions{SessionID: opts.SessionID, UserID: opts.UserID, TaskType: "extract"})

	var parts []string
	if summary.Result.Text != "" && summary.Result.Error == "" {
		parts = append(parts, "Summary of Findings:\n"+summary.Result.Text)
	}
	if facts.Result.Text != "" && facts.Result.Error == "" {
		parts = append(parts, "Extracted Facts:\n"+facts.Result.Text)
	}
	if len(parts) == 0 {
		env.Result.Error = "summarization failed for all providers"
		env.Result.Text = "Sources found but no summary available."
		return env
	}
	env.Result.Text = strings.Join(parts, "\n\n")
	env.Confidence = summary.Confidence
	return env
}
