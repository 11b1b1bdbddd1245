package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConsolidationStatus tracks an alert's place in the consolidation lifecycle.
// The zero value means the alert has not been examined yet.
type ConsolidationStatus string

const (
	// StatusNone marks an alert that is still eligible for consolidation.
	StatusNone ConsolidationStatus = ""
	// StatusPrimary marks a synthetic record created by merging a group.
	StatusPrimary ConsolidationStatus = "PRIMARY"
	// StatusConsolidated marks a member alert subsumed into a primary record.
	StatusConsolidated ConsolidationStatus = "CONSOLIDATED"
)

// Geometry is a GeoJSON geometry. Coordinates are kept raw so Polygon and
// MultiPolygon payloads pass through without loss; only Point is interpreted.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point returns the latitude and longitude of a Point geometry.
// GeoJSON stores coordinates longitude-first.
func (g *Geometry) Point() (lat, lon float64, ok bool) {
	if g == nil || g.Type != "Point" {
		return 0, 0, false
	}
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil || len(coords) < 2 {
		return 0, 0, false
	}
	return coords[1], coords[0], true
}

// NewPoint builds a Point geometry from a latitude/longitude pair.
func NewPoint(lat, lon float64) *Geometry {
	return &Geometry{
		Type:        "Point",
		Coordinates: json.RawMessage(fmt.Sprintf("[%g,%g]", lon, lat)),
	}
}

// GeospatialData holds derived geography: a geohash cell and, when a source
// provides one, the affected area outline.
type GeospatialData struct {
	Geohash      string          `json:"geohash,omitempty"`
	AffectedArea json.RawMessage `json:"affectedArea,omitempty"`
}

// AIClassification is the upstream classifier's verdict for an alert.
// Produced outside this service; consolidation only selects among them.
type AIClassification struct {
	PrimaryCategory string  `json:"primaryCategory,omitempty"`
	SpecificType    string  `json:"specificType,omitempty"`
	SeverityLevel   int     `json:"severityLevel"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// Alert is one source's report of a hazard event.
type Alert struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"sourceId"`
	SourceType string    `json:"sourceType"`
	CreatedAt  time.Time `json:"createdAt"`

	EventType        string            `json:"eventType,omitempty"`
	AIClassification *AIClassification `json:"aiClassification,omitempty"`

	Headline    string `json:"headline,omitempty"`
	Description string `json:"description,omitempty"`

	Location   *Geometry       `json:"location,omitempty"`
	Geospatial *GeospatialData `json:"geospatialData,omitempty"`

	// StartTime/EndTime bound the event itself, not the report. A nil
	// EndTime means the event is treated as instantaneous at StartTime.
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// Parameters carries source-specific attributes verbatim.
	Parameters map[string]string `json:"parameters,omitempty"`

	ConsolidationStatus ConsolidationStatus `json:"consolidationStatus,omitempty"`
	ConsolidatedInto    string              `json:"consolidatedInto,omitempty"`

	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// EventWindow returns the event interval, defaulting a missing EndTime to
// StartTime. ok is false when the alert has no StartTime.
func (a *Alert) EventWindow() (start, end time.Time, ok bool) {
	if a.StartTime == nil {
		return time.Time{}, time.Time{}, false
	}
	start = *a.StartTime
	end = start
	if a.EndTime != nil {
		end = *a.EndTime
	}
	return start, end, true
}

// SourceRef summarizes one member of a consolidated group.
type SourceRef struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"sourceId"`
	SourceType string    `json:"sourceType"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ConsolidatedAlert is the PRIMARY record produced by merging a group of
// alerts that describe the same event. SourceCount always equals
// len(ConsolidatedFrom) and is at least 2.
type ConsolidatedAlert struct {
	Alert

	ConsolidatedFrom    []string    `json:"consolidatedFrom"`
	SourceCount         int         `json:"sourceCount"`
	Sources             []SourceRef `json:"sources"`
	EnhancedDescription string      `json:"enhancedDescription,omitempty"`
}
