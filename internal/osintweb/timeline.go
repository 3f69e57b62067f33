package osintweb

import (
	"context"
	"fmt"
	"strings"

	"argus/internal/modules"
)

// TimelineClient resolves the three timeline lookup modes through web
// search. Imagery providers with real history APIs can replace this;
// the module only sees the TimelineSource interface.
type TimelineClient struct {
	search modules.Searcher
}

// NewTimelineClient builds a search-backed timeline source.
func NewTimelineClient(search modules.Searcher) *TimelineClient {
	return &TimelineClient{search: search}
}

func (t *TimelineClient) lookup(ctx context.Context, query string, maxHits int) (modules.TimelineFinding, error) {
	hits, err := t.search.Search(ctx, query, maxHits)
	if err != nil {
		return modules.TimelineFinding{}, err
	}
	if len(hits) == 0 {
		return modules.TimelineFinding{Summary: "No historical records found."}, nil
	}

	var snippets, links []string
	for _, h := range hits {
		if h.Snippet != "" {
			snippets = append(snippets, h.Snippet)
		}
		if h.URL != "" {
			links = append(links, h.URL)
		}
	}
	confidence := 0.3 + 0.1*float64(len(hits))
	if confidence > 0.8 {
		confidence = 0.8
	}
	return modules.TimelineFinding{
		Summary:    strings.Join(snippets, "\n"),
		Links:      links,
		Confidence: confidence,
	}, nil
}

// ImageVerify searches for satellite imagery coverage of the query.
func (t *TimelineClient) ImageVerify(ctx context.Context, query string) (modules.TimelineFinding, error) {
	return t.lookup(ctx, fmt.Sprintf("%s satellite imagery", query), 3)
}

// MetadataLookup searches for acquisition metadata about the query.
func (t *TimelineClient) MetadataLookup(ctx context.Context, query string) (modules.TimelineFinding, error) {
	return t.lookup(ctx, fmt.Sprintf("%s satellite image metadata acquisition date", query), 3)
}

// ReverseSearch finds pages referencing the query.
func (t *TimelineClient) ReverseSearch(ctx context.Context, query string) (modules.TimelineFinding, error) {
	return t.lookup(ctx, query, 5)
}
