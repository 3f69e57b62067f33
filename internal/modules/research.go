package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"argus/internal/types"
)

// ResearchModule answers the query with the full provider ensemble,
// grounding the prompt in fresh web search context.
type ResearchModule struct {
	deps Deps
}

// NewResearchModule wires the research module.
func NewResearchModule(d Deps) *ResearchModule {
	return &ResearchModule{deps: d}
}

func (m *ResearchModule) Name() string { return "Research" }

func (m *ResearchModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("research")
	if m.deps.AI == nil {
		return types.ErrorEnvelope("research", errors.New("no AI router configured"))
	}

	var webContext string
	if m.deps.Search != nil {
		hits, err := m.deps.Search.Search(ctx, query, 5)
		if err == nil {
			var lines []string
			for _, h := range hits {
				lines = append(lines, fmt.Sprintf("%s (%s)", h.Snippet, h.URL))
				if h.URL != "" {
					env.Result.Links = append(env.Result.Links, h.URL)
				}
			}
			webContext = strings.Join(lines, "\n")
		}
	}

	prompt := fmt.Sprintf(
		"Answer the following question using the latest information:\nQuestion: %s\n\nWeb results:\n%s\n\nAnswer:",
		query, webContext)
	merged := m.deps.AI.AskEnsemble(ctx, prompt, types.AnalyzeOptions{
		SessionID: opts.SessionID,
		UserID:    opts.UserID,
		TaskType:  "qa",
	})
	if merged.Error != "" {
		env.Result.Error = merged.Error
		env.Result.Text = "All AI providers failed. Please try again later."
		return env
	}
	env.Result.Text = merged.Text
	env.Confidence = 0.8
	env.Details["providers"] = strings.Join(merged.Providers, ",")
	return env
}
