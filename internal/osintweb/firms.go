package osintweb

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"argus/internal/config"
	"argus/internal/modules"
)

// FIRMSSource queries NASA FIRMS (Fire Information for Resource
// Management System) for thermal anomalies near a point. FIRMS has no
// radius parameter, so the radius is converted to a bounding box.
type FIRMSSource struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewFIRMSSource builds the FIRMS satellite source.
func NewFIRMSSource(cfg config.OSINTConfig) *FIRMSSource {
	return &FIRMSSource{baseURL: cfg.FirmsBaseURL, userAgent: cfg.UserAgent, client: newHTTPClient(cfg)}
}

// bbox converts a center point plus radius into min/max lon-lat bounds.
// One degree of latitude is ~111km; longitude shrinks with cos(lat).
func bbox(lat, lon float64, radiusKM int) string {
	latDelta := float64(radiusKM) / 111.0
	cosLat := math.Abs(math.Cos(lat * math.Pi / 180))
	if cosLat == 0 {
		cosLat = 1
	}
	lonDelta := float64(radiusKM) / (111.0 * cosLat)
	return fmt.Sprintf("%f,%f,%f,%f", lon-lonDelta, lat-latDelta, lon+lonDelta, lat+latDelta)
}

// Query implements modules.SatelliteSource.
func (s *FIRMSSource) Query(ctx context.Context, lat, lon float64, radiusKM int, date string) ([]modules.SatelliteEvent, error) {
	rawURL := fmt.Sprintf(
		"%s/mapserver/wfs?service=WFS&version=1.1.0&request=GetFeature&typeName=fires_viirs&bbox=%s&outputFormat=application/json",
		s.baseURL, bbox(lat, lon, radiusKM))

	resp, err := get(ctx, s.client, s.userAgent, rawURL)
	if err != nil {
		return nil, fmt.Errorf("firms query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firms query: status %d", resp.StatusCode)
	}

	var payload struct {
		Features []struct {
			Properties struct {
				Latitude   float64 `json:"latitude"`
				Longitude  float64 `json:"longitude"`
				Confidence string  `json:"confidence"`
				BrightTI4  float64 `json:"bright_ti4"`
				Satellite  string  `json:"satellite"`
				AcqDate    string  `json:"acq_date"`
				AcqTime    string  `json:"acq_time"`
				Type       string  `json:"type"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("firms query: %w", err)
	}

	var events []modules.SatelliteEvent
	for _, f := range payload.Features {
		p := f.Properties
		events = append(events, modules.SatelliteEvent{
			Source:     "NASA FIRMS",
			Date:       p.AcqDate + " " + p.AcqTime,
			Type:       orDefault(p.Type, "thermal anomaly"),
			Note:       "satellite: " + p.Satellite,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Confidence: p.Confidence,
			Brightness: fmt.Sprintf("%.1f", p.BrightTI4),
			PreviewURL: fmt.Sprintf(
				"https://firms.modaps.eosdis.nasa.gov/active_fire/#lat=%f&lon=%f&zoom=8",
				p.Latitude, p.Longitude),
		})
	}
	return events, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
