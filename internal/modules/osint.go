package modules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"argus/internal/logging"
	"argus/internal/types"
)

var (
	emailRe  = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	ipRe     = regexp.MustCompile(`^(?:\d{1,3}\.){3}\d{1,3}$`)
	domainRe = regexp.MustCompile(`^([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}$`)
	urlRe    = regexp.MustCompile(`^https?://`)
)

// DetectQueryType classifies a free-text query into the OSINT check
// categories. Anything unrecognized is treated as a username.
func DetectQueryType(query string) string {
	switch {
	case emailRe.MatchString(query):
		return "email"
	case ipRe.MatchString(query):
		return "ip"
	case urlRe.MatchString(query):
		return "url"
	case domainRe.MatchString(query):
		return "domain"
	default:
		return "username"
	}
}

// OSINTModule runs the site checks matching the detected query type,
// enriches with a web search, and asks the provider ensemble for a
// summary of the findings.
type OSINTModule struct {
	deps Deps
}

// NewOSINTModule wires the OSINT module.
func NewOSINTModule(d Deps) *OSINTModule {
	return &OSINTModule{deps: d}
}

func (m *OSINTModule) Name() string { return "OSINT" }

func (m *OSINTModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("osint")
	log := logging.Get(logging.CategoryModules)

	qtype := DetectQueryType(query)
	env.Details["query_type"] = qtype

	checkers := m.deps.checkersFor(qtype)
	checks := runChecksParallel(ctx, checkers, query)

	var textLines []string
	var errs []string
	for _, c := range checks {
		switch c.Status {
		case StatusPositive:
			line := c.Source + ": Positive"
			if c.URL != "" {
				line += " " + c.URL
				env.Result.Links = append(env.Result.Links, c.URL)
			}
			textLines = append(textLines, line)
		case StatusNegative:
			textLines = append(textLines, c.Source+": Negative")
		case StatusErrored:
			textLines = append(textLines, fmt.Sprintf("%s: Error - %s", c.Source, c.Details))
			errs = append(errs, fmt.Sprintf("%s: %s", c.Source, c.Details))
		}
	}

	if m.deps.Search != nil {
		hits, err := m.deps.Search.Search(ctx, query, 5)
		if err != nil {
			errs = append(errs, "search: "+err.Error())
		}
		for _, h := range hits {
			textLines = append(textLines, fmt.Sprintf("DDG: %s (%s)", h.Title, h.URL))
			if h.URL != "" {
				env.Result.Links = append(env.Result.Links, h.URL)
			}
		}
	}

	if m.deps.AI != nil && len(checks) > 0 {
		summary := m.deps.AI.AskEnsemble(ctx, summaryPrompt(query, checks), types.AnalyzeOptions{
			SessionID: opts.SessionID,
			UserID:    opts.UserID,
			TaskType:  "summarize",
		})
		if summary.Text != "" {
			textLines = append(textLines, "OSINT Summary:\n"+summary.Text)
		}
	}

	if m.deps.Scorer != nil {
		breakdown := m.deps.Scorer.Score(checks)
		env.Confidence = breakdown.Confidence
		env.Details["confidence_breakdown"] = fmt.Sprintf(
			"positive=%d negative=%d errors=%d", breakdown.Positive, breakdown.Negative, breakdown.Errors)
	}

	env.Result.Text = strings.Join(textLines, "\n")
	if len(errs) > 0 {
		env.Details["errors"] = strings.Join(errs, "; ")
	}

	log.Info("osint %s query %q: %d checks, %d links", qtype, query, len(checks), len(env.Result.Links))
	m.deps.Tracker.LogConversation(opts.SessionID, opts.UserID, query, query,
		env.Result.Text, "osint", "v1", map[string]string{"query_type": qtype})
	return env
}

// runChecksParallel fans the checkers out concurrently and returns
// results in checker order regardless of completion order.
func runChecksParallel(ctx context.Context, checkers []SiteChecker, query string) []CheckResult {
	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, c SiteChecker) {
			defer wg.Done()
			results[i] = c.Check(ctx, query)
		}(i, c)
	}
	wg.Wait()
	return results
}

func summaryPrompt(query string, checks []CheckResult) string {
	var b strings.Builder
	b.WriteString("Summarize this OSINT footprint for the query ")
	b.WriteString(query)
	b.WriteString(":\n")
	for _, c := range checks {
		fmt.Fprintf(&b, "%s: %s, %s\n", c.Source, c.Status, c.Details)
	}
	return b.String()
}
