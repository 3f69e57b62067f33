// Package types holds the shared result shapes exchanged between the
// analysis modules, the AI router, and the orchestrator. Every module
// returns the same fixed-shape Envelope so the aggregator can merge
// blindly without per-module knowledge.
package types

import "time"

// Result is the fixed-shape payload inside every Envelope. All slice
// fields are always non-nil, even on error paths; the aggregator and
// report builder depend on that.
type Result struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
	Audio  []string `json:"audio"`
	Video  []string `json:"video"`
	Links  []string `json:"links"`
	Maps   []string `json:"maps"`
	Files  []string `json:"files"`
	Error  string   `json:"error,omitempty"`
}

// Envelope is the uniform record produced by every analysis module and
// by the AI router. Immutable once returned from Analyze.
type Envelope struct {
	Result     Result            `json:"result"`
	Confidence float64           `json:"confidence"`
	Details    map[string]string `json:"details,omitempty"`
	Source     string            `json:"source"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewResult returns a Result with every sequence field initialized.
func NewResult() Result {
	return Result{
		Images: []string{},
		Audio:  []string{},
		Video:  []string{},
		Links:  []string{},
		Maps:   []string{},
		Files:  []string{},
	}
}

// NewEnvelope returns an Envelope for the given source with an empty,
// fully-initialized Result and the current timestamp.
func NewEnvelope(source string) Envelope {
	return Envelope{
		Result:    NewResult(),
		Details:   map[string]string{},
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorEnvelope returns a synthetic envelope for a failed module: all
// fields empty except Error, confidence zero.
func ErrorEnvelope(source string, err error) Envelope {
	e := NewEnvelope(source)
	e.Result.Error = err.Error()
	e.Details["error"] = err.Error()
	return e
}

// ValidateShape reports whether every sequence field of the envelope's
// result is non-nil. Error envelopes must satisfy this too.
func ValidateShape(e Envelope) bool {
	r := e.Result
	for _, s := range [][]string{r.Images, r.Audio, r.Video, r.Links, r.Maps, r.Files} {
		if s == nil {
			return false
		}
	}
	return true
}

// AnalyzeOptions carries per-request context every module receives.
type AnalyzeOptions struct {
	SessionID string
	UserID    string
	TaskType  string // general, summarize, extract, qa, ...
	Provider  string // pin a specific AI provider, empty = router default
	QueryType string // footprint: email, username, ip, domain, url
	Mode      string // timeline: image, metadata, reverse
}

// ModuleOutcome records one module's run inside an orchestration pass:
// latency and success/error status, used for provider-decision logging.
type ModuleOutcome struct {
	Module  string        `json:"module"`
	Status  string        `json:"status"` // "success" or "error"
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency"`
}
