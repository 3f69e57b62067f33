// Package aggregate merges the typed result fields of many module
// envelopes into one category-keyed map. It never deduplicates; the
// report builder owns that, so the aggregated map stays a faithful
// accumulation in module order.
package aggregate

import "argus/internal/types"

// The seven category keys. Order here is the within-envelope
// accumulation order, which downstream determinism depends on.
const (
	KeyLinks     = "links"
	KeyImages    = "images"
	KeyTexts     = "texts"
	KeyLocations = "locations"
	KeyAudio     = "audio"
	KeyText      = "text"
	KeyError     = "error"
)

// Keys lists every category in accumulation order.
var Keys = []string{KeyLinks, KeyImages, KeyTexts, KeyLocations, KeyAudio, KeyText, KeyError}

// Aggregated maps category key to the merged, ordered, non-deduplicated
// values. Every key in Keys is always present, possibly empty.
type Aggregated map[string][]string

// Aggregate merges the envelopes' result fields. Sequence fields
// extend their category; the text and error scalars append one entry
// each when non-empty. Envelope order is preserved, so feeding
// registry-ordered envelopes yields a deterministic result, and the
// function is pure: same input, same output.
//
// Field mapping: links, images and audio carry over directly; maps
// entries land in locations; the per-module text scalar lands in
// text (texts stays reserved for modules that emit multi-part text).
// A failed envelope contributes only to error: its text scalar is
// failure prose for logs and status lines, not a finding, so an
// all-modules-failed run aggregates to empty user-facing categories.
func Aggregate(envelopes []types.Envelope) Aggregated {
	agg := make(Aggregated, len(Keys))
	for _, k := range Keys {
		agg[k] = []string{}
	}

	for _, env := range envelopes {
		r := env.Result
		agg[KeyLinks] = append(agg[KeyLinks], r.Links...)
		agg[KeyImages] = append(agg[KeyImages], r.Images...)
		agg[KeyLocations] = append(agg[KeyLocations], r.Maps...)
		agg[KeyAudio] = append(agg[KeyAudio], r.Audio...)
		if r.Error != "" {
			agg[KeyError] = append(agg[KeyError], r.Error)
			continue
		}
		if r.Text != "" {
			agg[KeyText] = append(agg[KeyText], r.Text)
		}
	}
	return agg
}
