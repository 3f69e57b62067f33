// Package locate extracts geocoded locations from free-text queries by
// asking an LLM for a JSON array of places. The model's answer is
// treated as untrusted input: fenced code blocks are stripped, the
// array is located positionally, and malformed entries are dropped.
package locate

import (
	"context"
	"encoding/json"
	"strings"

	"argus/internal/logging"
	"argus/internal/modules"
)

// AskFunc is the minimal LLM dependency: best-effort, empty on failure.
type AskFunc func(ctx context.Context, prompt string) string

// Extractor implements modules.LocationExtractor over an AskFunc.
type Extractor struct {
	ask AskFunc
}

// New builds an Extractor.
func New(ask AskFunc) *Extractor {
	return &Extractor{ask: ask}
}

const promptTemplate = `Extract every real-world location mentioned in the following text and geocode it.
Respond with ONLY a JSON array, no prose, each element:
{"name": "<place name>", "latitude": <decimal>, "longitude": <decimal>}
Respond with [] if no locations are present.

Text: `

// Extract asks the LLM for locations and returns at most max of them.
// A model that answers garbage yields an empty list, not an error:
// location extraction is best-effort enrichment.
func (e *Extractor) Extract(ctx context.Context, query string, max int) ([]modules.Location, error) {
	log := logging.Get(logging.CategoryOrchestrator)

	raw := e.ask(ctx, promptTemplate+query)
	if raw == "" {
		return nil, nil
	}

	arr := ExtractJSONArray(raw)
	if arr == "" {
		log.Debug("no JSON array in location answer: %.120s", raw)
		return nil, nil
	}

	var decoded []modules.Location
	if err := json.Unmarshal([]byte(arr), &decoded); err != nil {
		log.Debug("location array failed to parse: %v", err)
		return nil, nil
	}

	var out []modules.Location
	for _, loc := range decoded {
		if loc.Name == "" {
			continue
		}
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			continue
		}
		out = append(out, loc)
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

// ExtractJSONArray returns the first top-level JSON array in the text,
// stripping a surrounding markdown code fence if present.
func ExtractJSONArray(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		// Drop the language tag on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
