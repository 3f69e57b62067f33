package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"argus/internal/logging"
	"argus/internal/types"
)

// highConfidenceScore short-circuits the checker chain: once one
// service is this sure, the rest are skipped.
const highConfidenceScore = 0.85

// EmailRepModule aggregates email reputation verdicts across the
// configured checker services. Checkers run in order and the chain
// stops early on a high-confidence verdict to spare API quota.
type EmailRepModule struct {
	deps Deps
}

// NewEmailRepModule wires the email reputation module.
func NewEmailRepModule(d Deps) *EmailRepModule {
	return &EmailRepModule{deps: d}
}

func (m *EmailRepModule) Name() string { return "EmailRep" }

func (m *EmailRepModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("emailrep")
	log := logging.Get(logging.CategoryModules)

	if len(m.deps.Email) == 0 {
		return types.ErrorEnvelope("emailrep", errors.New("no email reputation checkers configured"))
	}
	if !emailRe.MatchString(query) {
		env.Result.Error = "Not an email address."
		env.Result.Text = env.Result.Error
		return env
	}

	var verdicts []string
	var confidence float64
	for _, checker := range m.deps.Email {
		v, err := checker.Check(ctx, query)
		if err != nil {
			log.Warn("emailrep checker %s failed: %v", checker.Name(), err)
			continue
		}
		if v == nil {
			continue
		}
		verdicts = append(verdicts, fmt.Sprintf("%s: %s (score: %.2f)", v.Source, v.Verdict, v.Score))
		if v.Score > confidence {
			confidence = v.Score
		}
		if v.Score >= highConfidenceScore {
			break
		}
	}

	if len(verdicts) == 0 {
		env.Result.Text = "No reputation data available for this address."
		return env
	}
	env.Result.Text = "Email Reputation Analysis:\n" + strings.Join(verdicts, "\n")
	env.Confidence = confidence
	env.Details["safe"] = fmt.Sprintf("%t", confidence >= 0.75)

	m.deps.Tracker.LogConversation(opts.SessionID, opts.UserID, query, query,
		env.Result.Text, "emailrep", "v1", nil)
	return env
}
