// Package similarity scores pairwise alert similarity and groups batches of
// alerts that likely describe the same real-world event.
package similarity

import (
	"math"

	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
)

// Component names used in Score.Components.
const (
	ComponentHeadline    = "headline"
	ComponentDescription = "description"
	ComponentLocation    = "location"
	ComponentEventType   = "eventType"
	ComponentTimeOverlap = "timeOverlap"
)

// locationDecayKm is the e-folding distance of the Point-distance score:
// exp(-d/50) gives ~0.90 at 5 km and ~0.50 at 35 km.
const locationDecayKm = 50

// Weights holds the relative weight of each similarity component.
type Weights struct {
	Headline    float64 `mapstructure:"headline" json:"headline"`
	Description float64 `mapstructure:"description" json:"description"`
	Location    float64 `mapstructure:"location" json:"location"`
	EventType   float64 `mapstructure:"eventType" json:"eventType"`
	TimeOverlap float64 `mapstructure:"timeOverlap" json:"timeOverlap"`
}

// DefaultWeights returns the production weighting: geography dominates, text
// components split half the weight, category and timing break ties.
func DefaultWeights() Weights {
	return Weights{
		Headline:    0.25,
		Description: 0.25,
		Location:    0.30,
		EventType:   0.10,
		TimeOverlap: 0.10,
	}
}

// Config carries the scoring weights and the relation threshold used by the
// clusterer. Passing it explicitly (rather than reading package globals)
// keeps scoring deterministic and test-configurable.
type Config struct {
	Weights           Weights
	RelationThreshold float64
}

// DefaultConfig returns the production scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		RelationThreshold: 0.7,
	}
}

// Score is the explainable result of comparing two alerts. Components holds
// the raw per-signal scores that were computable for the pair; signals that
// could not be computed (missing fields on either side) are absent, not zero.
type Score struct {
	Overall    float64            `json:"overallScore"`
	Components map[string]float64 `json:"componentScores"`
}

// Scorer combines text, geography, category, and timing signals into one
// weighted per-pair score.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{weights: cfg.Weights}
}

// Score compares two alerts. The overall score is the weighted mean over the
// components that were computable, so a pair sharing only a headline is
// judged on the headline alone. With nothing computable the score is 0.
func (s *Scorer) Score(a, b *domain.Alert) Score {
	components := make(map[string]float64, 5)

	if a.Headline != "" && b.Headline != "" {
		components[ComponentHeadline] = domain.TextSimilarity(a.Headline, b.Headline)
	}
	if a.Description != "" && b.Description != "" {
		components[ComponentDescription] = domain.TextSimilarity(a.Description, b.Description)
	}
	if a.EventType != "" && b.EventType != "" {
		if a.EventType == b.EventType {
			components[ComponentEventType] = 1
		} else {
			components[ComponentEventType] = 0
		}
	}
	if loc, ok := locationScore(a, b); ok {
		components[ComponentLocation] = loc
	}
	if overlap, ok := timeOverlapScore(a, b); ok {
		components[ComponentTimeOverlap] = overlap
	}

	return Score{
		Overall:    s.weightedMean(components),
		Components: components,
	}
}

// locationScore prefers exact Point distance with exponential decay and falls
// back to geohash shared-prefix ratio when either side lacks coordinates.
func locationScore(a, b *domain.Alert) (float64, bool) {
	latA, lonA, okA := a.Location.Point()
	latB, lonB, okB := b.Location.Point()
	if okA && okB {
		km := domain.HaversineDistanceKm(latA, lonA, latB, lonB)
		return math.Exp(-km / locationDecayKm), true
	}

	if a.Geospatial == nil || b.Geospatial == nil {
		return 0, false
	}
	ha, hb := a.Geospatial.Geohash, b.Geospatial.Geohash
	if ha == "" || hb == "" {
		return 0, false
	}
	longest := max(len(ha), len(hb))
	return float64(domain.CommonPrefixLength(ha, hb)) / float64(longest), true
}

func timeOverlapScore(a, b *domain.Alert) (float64, bool) {
	startA, endA, okA := a.EventWindow()
	startB, endB, okB := b.EventWindow()
	if !okA || !okB {
		return 0, false
	}
	return domain.TimeOverlapRatio(startA, endA, startB, endB), true
}

// weightedMean averages the computed components by their configured weights.
// NaN components (malformed numeric input) are excluded from numerator and
// denominator rather than counted as zero. The result is clamped to [0,1] so
// a component that somehow lands outside its range cannot push the overall
// score out of bounds.
func (s *Scorer) weightedMean(components map[string]float64) float64 {
	var sum, totalWeight float64
	for name, value := range components {
		if math.IsNaN(value) {
			continue
		}
		w := s.weightFor(name)
		sum += w * value
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	overall := sum / totalWeight
	return math.Min(1, math.Max(0, overall))
}

func (s *Scorer) weightFor(name string) float64 {
	switch name {
	case ComponentHeadline:
		return s.weights.Headline
	case ComponentDescription:
		return s.weights.Description
	case ComponentLocation:
		return s.weights.Location
	case ComponentEventType:
		return s.weights.EventType
	case ComponentTimeOverlap:
		return s.weights.TimeOverlap
	default:
		return 0
	}
}
