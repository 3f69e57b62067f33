package modules

import (
	"context"
	"errors"
	"fmt"

	"argus/internal/types"
)

// TimelineModule resolves historical satellite context for the query in
// one of three modes: image verification, metadata lookup, or reverse
// search. Mode comes from options and defaults to image.
type TimelineModule struct {
	deps Deps
}

// NewTimelineModule wires the timeline module.
func NewTimelineModule(d Deps) *TimelineModule {
	return &TimelineModule{deps: d}
}

func (m *TimelineModule) Name() string { return "Timeline" }

func (m *TimelineModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("timeline")
	if m.deps.Timeline == nil {
		return types.ErrorEnvelope("timeline", errors.New("no timeline source configured"))
	}

	mode := opts.Mode
	if mode == "" {
		mode = "image"
	}
	env.Details["mode"] = mode

	var finding TimelineFinding
	var err error
	switch mode {
	case "image":
		finding, err = m.deps.Timeline.ImageVerify(ctx, query)
	case "metadata":
		finding, err = m.deps.Timeline.MetadataLookup(ctx, query)
	case "reverse":
		finding, err = m.deps.Timeline.ReverseSearch(ctx, query)
	default:
		env.Result.Error = fmt.Sprintf("Unknown mode: %s", mode)
		env.Result.Text = env.Result.Error
		env.Details["error"] = env.Result.Error
		return env
	}
	if err != nil {
		env.Result.Error = err.Error()
		env.Result.Text = "Error: " + err.Error()
		return env
	}

	env.Result.Text = finding.Summary
	if finding.ImageURL != "" {
		env.Result.Images = append(env.Result.Images, finding.ImageURL)
	}
	env.Result.Links = append(env.Result.Links, finding.Links...)
	env.Confidence = finding.Confidence
	return env
}
