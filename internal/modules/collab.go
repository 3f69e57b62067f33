package modules

import (
	"context"

	"argus/internal/config"
)

// CheckStatus is the tri-state outcome of a single OSINT site check.
type CheckStatus int

const (
	StatusNegative CheckStatus = iota
	StatusPositive
	StatusErrored
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPositive:
		return "positive"
	case StatusNegative:
		return "negative"
	default:
		return "error"
	}
}

// CheckResult is one site checker's finding for a query.
type CheckResult struct {
	Source  string
	Status  CheckStatus
	Details string
	URL     string
}

// SiteChecker probes one external surface (a code host, a forum, a
// paste site) for traces of the query.
type SiteChecker interface {
	Name() string
	Check(ctx context.Context, query string) CheckResult

	// Types lists the query types this checker applies to
	// (email, username, ip, domain, url).
	Types() []string
}

// EmailVerdict is one reputation service's judgement of an address.
type EmailVerdict struct {
	Source  string
	Verdict string
	Score   float64
}

// EmailChecker consults one email reputation service. A nil verdict
// with nil error means the service is not configured.
type EmailChecker interface {
	Name() string
	Check(ctx context.Context, email string) (*EmailVerdict, error)
}

// SatelliteEvent is one observation returned by a satellite source.
type SatelliteEvent struct {
	Source     string
	Date       string
	Type       string
	Note       string
	PreviewURL string
	Latitude   float64
	Longitude  float64
	Confidence string
	Brightness string
}

// SatelliteSource queries imagery/anomaly providers around a point.
type SatelliteSource interface {
	Query(ctx context.Context, lat, lon float64, radiusKM int, date string) ([]SatelliteEvent, error)
}

// TimelineFinding is the outcome of one timeline lookup mode.
type TimelineFinding struct {
	Summary    string
	ImageURL   string
	Links      []string
	Confidence float64
}

// TimelineSource resolves the three timeline lookup modes.
type TimelineSource interface {
	ImageVerify(ctx context.Context, query string) (TimelineFinding, error)
	MetadataLookup(ctx context.Context, query string) (TimelineFinding, error)
	ReverseSearch(ctx context.Context, query string) (TimelineFinding, error)
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher runs a web search for context enrichment.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Location is one geocoded place extracted from a query.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationExtractor finds geocodable places mentioned in free text.
type LocationExtractor interface {
	Extract(ctx context.Context, query string, max int) ([]Location, error)
}

// ScoreBreakdown explains how a confidence value was computed. Raw is
// the weighted sum before normalization; Confidence is Raw divided by
// the configured ceiling, so it always lands in [0, 1] like every
// other envelope confidence.
type ScoreBreakdown struct {
	Confidence float64
	Raw        float64
	Positive   int
	Negative   int
	Errors     int
}

// ConfidenceScorer turns check outcomes into a confidence in [0, 1].
type ConfidenceScorer interface {
	Score(checks []CheckResult) ScoreBreakdown
}

// WeightedScorer counts positive, negative and errored checks with
// configured weights, clamps the weighted sum to the configured
// ceiling, and normalizes by that ceiling.
type WeightedScorer struct {
	src func() config.ScoringConfig
}

// NewWeightedScorer builds a scorer from fixed config weights.
func NewWeightedScorer(cfg config.ScoringConfig) *WeightedScorer {
	return NewWeightedScorerFromSource(func() config.ScoringConfig { return cfg })
}

// NewWeightedScorerFromSource builds a scorer that re-reads its weights
// on every call, so a hot-reloaded config takes effect mid-run.
func NewWeightedScorerFromSource(src func() config.ScoringConfig) *WeightedScorer {
	return &WeightedScorer{src: src}
}

// Score implements ConfidenceScorer.
func (s *WeightedScorer) Score(checks []CheckResult) ScoreBreakdown {
	cfg := s.src()
	var b ScoreBreakdown
	for _, c := range checks {
		switch c.Status {
		case StatusPositive:
			b.Positive++
		case StatusNegative:
			b.Negative++
		case StatusErrored:
			b.Errors++
		}
	}
	max := cfg.MaxScore
	if max <= 0 {
		max = 100
	}
	score := float64(b.Positive)*cfg.PositiveWeight +
		float64(b.Negative)*cfg.NegativeWeight +
		float64(b.Errors)*cfg.ErrorWeight
	if score < 0 {
		score = 0
	}
	if score > max {
		score = max
	}
	b.Raw = score
	b.Confidence = score / max
	return b
}
