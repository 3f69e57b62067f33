package modules

import (
	"context"
	"fmt"
	"strings"

	"argus/internal/logging"
	"argus/internal/types"
)

var validQueryTypes = map[string]bool{
	"email": true, "username": true, "ip": true, "domain": true, "url": true,
}

// FootprintModule runs the site checks for an explicitly given query
// type and appends an AI summary of the outcomes. Unlike the OSINT
// module it never guesses the type: a missing or invalid type is an
// error envelope.
type FootprintModule struct {
	deps Deps
}

// NewFootprintModule wires the footprint module.
func NewFootprintModule(d Deps) *FootprintModule {
	return &FootprintModule{deps: d}
}

func (m *FootprintModule) Name() string { return "Footprint" }

func (m *FootprintModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("footprint")
	log := logging.Get(logging.CategoryModules)

	qtype := strings.ToLower(opts.QueryType)
	if !validQueryTypes[qtype] {
		env.Result.Error = "Invalid or missing query type. Use: email, username, ip, domain, or url."
		env.Details["error"] = env.Result.Error
		return env
	}

	checks := runChecksParallel(ctx, m.deps.checkersFor(qtype), query)

	var textLines []string
	for _, c := range checks {
		switch c.Status {
		case StatusPositive:
			textLines = append(textLines, c.Source+": Positive")
		case StatusNegative:
			textLines = append(textLines, c.Source+": Negative")
		case StatusErrored:
			textLines = append(textLines, fmt.Sprintf("%s: Error - %s", c.Source, c.Details))
		}
	}
	env.Result.Text = strings.Join(textLines, "\n")

	if m.deps.Scorer != nil {
		breakdown := m.deps.Scorer.Score(checks)
		env.Confidence = breakdown.Confidence
		env.Details["confidence_breakdown"] = fmt.Sprintf(
			"positive=%d negative=%d errors=%d", breakdown.Positive, breakdown.Negative, breakdown.Errors)
	}

	if m.deps.AI != nil && len(checks) > 0 {
		var b strings.Builder
		for _, c := range checks {
			fmt.Fprintf(&b, "%s: %s, %s\n", c.Source, c.Status, c.Details)
		}
		summary := m.deps.AI.Analyze(ctx, b.String(), types.AnalyzeOptions{
			SessionID: opts.SessionID,
			UserID:    opts.UserID,
			TaskType:  "summarize",
		})
		if summary.Result.Text != "" && summary.Result.Error == "" {
			env.Result.Text += "\n\nAI Summary: " + summary.Result.Text
		}
	}

	log.Info("footprint %s query %q: %d checks, confidence %.0f", qtype, query, len(checks), env.Confidence)
	m.deps.Tracker.LogConversation(opts.SessionID, opts.UserID, query, query,
		env.Result.Text, "footprint", "v1", map[string]string{"query_type": qtype})
	return env
}
