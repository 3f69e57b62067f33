package modules

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"argus/internal/types"
)

var coordsRe = regexp.MustCompile(`(-?\d{1,3}\.\d+)[,\s]+(-?\d{1,3}\.\d+)`)

// defaultRadiusKM bounds the satellite search area around a point.
const defaultRadiusKM = 50

// SatelliteModule verifies recent satellite activity around a
// coordinate pair. The orchestrator invokes it once per extracted
// location; it also serves direct "lat, lon" queries.
type SatelliteModule struct {
	deps Deps
	now  func() time.Time
}

// NewSatelliteModule wires the satellite verification module.
func NewSatelliteModule(d Deps) *SatelliteModule {
	return &SatelliteModule{deps: d, now: func() time.Time { return time.Now().UTC() }}
}

func (m *SatelliteModule) Name() string { return "Satellite" }

// ParseCoords extracts a lat/lon pair from free text.
func ParseCoords(query string) (lat, lon float64, ok bool) {
	match := coordsRe.FindStringSubmatch(query)
	if match == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(match[1], 64)
	lon, err2 := strconv.ParseFloat(match[2], 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func (m *SatelliteModule) Analyze(ctx context.Context, query string, opts types.AnalyzeOptions) types.Envelope {
	env := types.NewEnvelope("satellite")
	if m.deps.Satellite == nil {
		return types.ErrorEnvelope("satellite", errors.New("no satellite source configured"))
	}

	lat, lon, ok := ParseCoords(query)
	if !ok {
		env.Result.Error = "Coordinates must be given as 'latitude, longitude' (e.g. 28.7041, 77.1025)."
		env.Result.Text = env.Result.Error
		return env
	}

	coords := fmt.Sprintf("%.4f,%.4f", lat, lon)
	env.Result.Maps = append(env.Result.Maps, coords)
	env.Details["coords"] = coords

	date := m.now().Format("2006-01-02")
	events, err := m.deps.Satellite.Query(ctx, lat, lon, defaultRadiusKM, date)
	if err != nil {
		env.Result.Error = err.Error()
		env.Result.Text = "Satellite query failed: " + err.Error()
		return env
	}
	if len(events) == 0 {
		env.Result.Text = "No satellite data found near these coordinates."
		return env
	}

	var lines []string
	for _, e := range events {
		line := fmt.Sprintf("%s - %s | %s", orUnknown(e.Source), orUnknown(e.Date), orUnknown(e.Type))
		if e.Note != "" {
			line += ": " + e.Note
		}
		if e.Confidence != "" || e.Brightness != "" {
			line += fmt.Sprintf(" (confidence %s, brightness %s)", orNA(e.Confidence), orNA(e.Brightness))
		}
		lines = append(lines, line)
		if e.PreviewURL != "" {
			env.Result.Links = append(env.Result.Links, e.PreviewURL)
		}
	}
	env.Result.Text = strings.Join(lines, "\n")
	env.Confidence = 0.8
	return env
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
