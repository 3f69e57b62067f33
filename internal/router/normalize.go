package router

import (
	"strings"

	"argus/internal/types"
)

// OutputKind tags the two shapes providers actually return.
type OutputKind int

const (
	// OutputText - a bare completion string
	OutputText OutputKind = iota
	// OutputStructured - a field-mapped record
	OutputStructured
	// OutputUnknown - anything else; normalizes to an error
	OutputUnknown
)

// ProviderOutput is the tagged variant for heterogeneous provider
// responses. Normalization happens exactly once, at this boundary,
// instead of scattering type inspection through callers.
type ProviderOutput struct {
	Kind       OutputKind
	Text       string
	Structured map[string]interface{}
}

// TextOutput wraps a bare string response.
func TextOutput(s string) ProviderOutput {
	return ProviderOutput{Kind: OutputText, Text: s}
}

// StructuredOutput wraps a field-mapped response.
func StructuredOutput(m map[string]interface{}) ProviderOutput {
	return ProviderOutput{Kind: OutputStructured, Structured: m}
}

// UnknownOutput marks a response that fits neither shape.
func UnknownOutput() ProviderOutput {
	return ProviderOutput{Kind: OutputUnknown}
}

// sentinelPrefix matches the error strings Ask embeds in its result.
const sentinelPrefix = "error during "

// Normalize coerces a provider output into the canonical Result shape.
// Strings become text (sentinel error strings become the error field),
// structured records are field-mapped with unknown keys ignored, and
// anything else produces the recognition error.
func Normalize(out ProviderOutput) types.Result {
	result := types.NewResult()

	switch out.Kind {
	case OutputText:
		if strings.HasPrefix(strings.ToLower(out.Text), sentinelPrefix) {
			result.Error = out.Text
		} else {
			result.Text = out.Text
		}

	case OutputStructured:
		if text, ok := out.Structured["text"].(string); ok {
			result.Text = text
		}
		for key, dst := range map[string]*[]string{
			"images": &result.Images,
			"audio":  &result.Audio,
			"video":  &result.Video,
			"links":  &result.Links,
			"maps":   &result.Maps,
			"files":  &result.Files,
		} {
			if raw, ok := out.Structured[key]; ok {
				*dst = appendStrings(*dst, raw)
			}
		}
		if rawErr, ok := out.Structured["error"]; ok && rawErr != nil {
			if s, ok := rawErr.(string); ok && s != "" {
				result.Error = s
			}
		}

	default:
		result.Error = "AI output was not recognized"
	}

	return result
}

// appendStrings appends the string elements of a decoded JSON slice,
// ignoring anything that isn't a string.
func appendStrings(dst []string, raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return append(dst, v...)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				dst = append(dst, s)
			}
		}
	}
	return dst
}
