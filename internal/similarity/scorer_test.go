package similarity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
	"github.com/couchcryptid/alert-consolidation-service/internal/similarity"
)

func newScorer() *similarity.Scorer {
	return similarity.NewScorer(similarity.DefaultConfig())
}

func fullAlert(id string) domain.Alert {
	start := time.Date(2023, 1, 1, 9, 45, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return domain.Alert{
		ID:          id,
		SourceID:    "usgs",
		SourceType:  "seismic",
		CreatedAt:   start,
		EventType:   "earthquake",
		Headline:    "Earthquake in California",
		Description: "A 5.2 magnitude earthquake occurred in Northern California.",
		Location:    domain.NewPoint(37.7749, -122.4194),
		StartTime:   &start,
		EndTime:     &end,
	}
}

func TestScore_Reflexive(t *testing.T) {
	a := fullAlert("a")
	got := newScorer().Score(&a, &a)
	assert.InDelta(t, 1.0, got.Overall, 1e-9)
	assert.Len(t, got.Components, 5)
}

func TestScore_Symmetric(t *testing.T) {
	a := fullAlert("a")
	b := fullAlert("b")
	b.Headline = "Earthquake near San Francisco"
	b.Description = "A 5.0 magnitude earthquake occurred near San Francisco Bay Area."
	b.Location = domain.NewPoint(37.7745, -122.42)

	s := newScorer()
	assert.Equal(t, s.Score(&a, &b).Overall, s.Score(&b, &a).Overall)
}

func TestScore_OverallInRange(t *testing.T) {
	a := fullAlert("a")
	b := fullAlert("b")
	b.EventType = "tornado"
	b.Headline = "Tornado touchdown in Kansas"
	b.Description = "A large tornado touched down west of Wichita."
	b.Location = domain.NewPoint(37.6872, -97.3301)

	got := newScorer().Score(&a, &b)
	assert.GreaterOrEqual(t, got.Overall, 0.0)
	assert.LessOrEqual(t, got.Overall, 1.0)
}

func TestScore_EventType(t *testing.T) {
	a := domain.Alert{EventType: "earthquake"}
	b := domain.Alert{EventType: "earthquake"}
	c := domain.Alert{EventType: "tornado"}
	d := domain.Alert{}

	s := newScorer()

	got := s.Score(&a, &b)
	require.Contains(t, got.Components, similarity.ComponentEventType)
	assert.Equal(t, 1.0, got.Components[similarity.ComponentEventType])
	assert.Equal(t, 1.0, got.Overall)

	got = s.Score(&a, &c)
	assert.Equal(t, 0.0, got.Components[similarity.ComponentEventType])
	assert.Equal(t, 0.0, got.Overall)

	// Missing on one side: component omitted, not zero.
	got = s.Score(&a, &d)
	assert.NotContains(t, got.Components, similarity.ComponentEventType)
}

func TestScore_LocationPointDecay(t *testing.T) {
	a := domain.Alert{Location: domain.NewPoint(37.7749, -122.4194)}
	b := domain.Alert{Location: domain.NewPoint(37.7745, -122.42)}

	got := newScorer().Score(&a, &b)
	require.Contains(t, got.Components, similarity.ComponentLocation)
	// ~69 meters apart: exp(-0.069/50) ≈ 0.9986.
	assert.InDelta(t, 0.9986, got.Components[similarity.ComponentLocation], 0.001)
}

func TestScore_LocationGeohashFallback(t *testing.T) {
	a := domain.Alert{Geospatial: &domain.GeospatialData{Geohash: "9q8yyk123"}}
	b := domain.Alert{Geospatial: &domain.GeospatialData{Geohash: "9q8yyk456"}}

	got := newScorer().Score(&a, &b)
	require.Contains(t, got.Components, similarity.ComponentLocation)
	assert.InDelta(t, 6.0/9.0, got.Components[similarity.ComponentLocation], 1e-9)
}

func TestScore_LocationOmittedWithoutData(t *testing.T) {
	a := domain.Alert{Headline: "Flood"}
	b := domain.Alert{Headline: "Flood", Geospatial: &domain.GeospatialData{Geohash: "9q8yyk"}}

	got := newScorer().Score(&a, &b)
	assert.NotContains(t, got.Components, similarity.ComponentLocation)
}

func TestScore_TimeOverlapDefaultsEndToStart(t *testing.T) {
	start := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	a := domain.Alert{StartTime: &start}
	b := domain.Alert{StartTime: &start}

	got := newScorer().Score(&a, &b)
	require.Contains(t, got.Components, similarity.ComponentTimeOverlap)
	assert.Equal(t, 1.0, got.Components[similarity.ComponentTimeOverlap])
}

func TestScore_NothingComputable(t *testing.T) {
	a := domain.Alert{ID: "a"}
	b := domain.Alert{ID: "b"}

	got := newScorer().Score(&a, &b)
	assert.Empty(t, got.Components)
	assert.Equal(t, 0.0, got.Overall)
}

func TestScore_PartialFieldsUseOnlyComputableComponents(t *testing.T) {
	// Identical headlines and nothing else: the pair is judged on the
	// headline alone and scores 1.0.
	a := domain.Alert{Headline: "Wildfire near Boulder"}
	b := domain.Alert{Headline: "Wildfire near Boulder"}

	got := newScorer().Score(&a, &b)
	assert.Len(t, got.Components, 1)
	assert.Equal(t, 1.0, got.Overall)
}

func TestScore_CustomWeights(t *testing.T) {
	cfg := similarity.Config{
		Weights:           similarity.Weights{Headline: 1},
		RelationThreshold: 0.7,
	}
	a := fullAlert("a")
	b := fullAlert("b")
	b.EventType = "tornado" // would drag the overall down if weighted

	got := similarity.NewScorer(cfg).Score(&a, &b)
	assert.Equal(t, 1.0, got.Overall)
}
