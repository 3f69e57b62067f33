// Package report renders the aggregated category lists into the final
// user-facing markdown report. Building a report never fails: it runs
// after all analysis work is already spent, so any degenerate input
// degrades to a near-empty body plus the trailing count line.
package report

import (
	"fmt"
	"strings"

	"argus/internal/aggregate"
	"argus/internal/logging"
	"argus/internal/types"
)

// section pairs a rendered heading with the aggregate categories it
// draws from. Texts reads both text channels so module summaries are
// never silently dropped.
type section struct {
	heading string
	keys    []string
}

// Fixed render order. Empty sections are omitted.
var sections = []section{
	{"Texts", []string{aggregate.KeyTexts, aggregate.KeyText}},
	{"Links", []string{aggregate.KeyLinks}},
	{"Images", []string{aggregate.KeyImages}},
	{"Locations", []string{aggregate.KeyLocations}},
	{"Audio", []string{aggregate.KeyAudio}},
}

// Build renders the report string. Each user-facing category is
// deduplicated independently, preserving first-occurrence order. The
// trailing line counts every deduplicated item across the rendered
// categories plus the number of modules that ran.
func Build(raw []types.Envelope, agg aggregate.Aggregated) string {
	log := logging.Get(logging.CategoryReport)

	var lines []string
	total := 0
	for _, sec := range sections {
		var merged []string
		for _, key := range sec.keys {
			merged = append(merged, agg[key]...)
		}
		items := dedup(merged)
		total += len(items)
		if len(items) == 0 {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, fmt.Sprintf("**%s:**", sec.heading))
		for _, item := range items {
			lines = append(lines, "- "+item)
		}
	}

	if len(lines) > 0 {
		lines = append(lines, "")
	}
	lines = append(lines, fmt.Sprintf("Report generated: %d items from %d modules.", total, len(raw)))

	log.Info("report rendered: %d items, %d modules", total, len(raw))
	return strings.Join(lines, "\n")
}

// dedup removes duplicates by strict equality, keeping first occurrence.
func dedup(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
