package domain

import (
	"math"
	"time"

	"github.com/mmcloughlin/geohash"
)

const (
	earthRadiusKm = 6371

	// derivedGeohashPrecision is 9 characters, a cell of roughly 5m × 5m.
	// Precise enough that prefix comparison degrades gracefully at every
	// coarser level.
	derivedGeohashPrecision = 9
)

// HaversineDistanceKm returns the great-circle distance between two
// latitude/longitude points in kilometers.
func HaversineDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// CommonPrefixLength returns the length of the longest shared prefix of two
// strings. Geohash cells that share a longer prefix are closer together.
func CommonPrefixLength(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// TimeOverlapRatio returns how much two intervals overlap, relative to the
// average of their durations. Disjoint intervals score 0, identical intervals
// score 1. The overlap is bounded by the shorter duration, which is bounded
// by the average, so the ratio never exceeds 1.
func TimeOverlapRatio(start1, end1, start2, end2 time.Time) float64 {
	if end1.Before(start2) || end2.Before(start1) {
		return 0
	}

	overlapStart := start1
	if start2.After(overlapStart) {
		overlapStart = start2
	}
	overlapEnd := end1
	if end2.Before(overlapEnd) {
		overlapEnd = end2
	}

	overlap := overlapEnd.Sub(overlapStart)
	average := (end1.Sub(start1) + end2.Sub(start2)) / 2
	if average <= 0 {
		// Two intersecting instantaneous events are the same moment.
		return 1
	}

	return float64(overlap) / float64(average)
}

// EnsureGeohash derives GeospatialData.Geohash from Point geometry when a
// source supplied coordinates but no geohash, so the geohash location
// fallback and the merge tie-breaks have data to work with. Alerts without
// Point geometry are returned unchanged.
func EnsureGeohash(a Alert) Alert {
	if a.Geospatial != nil && a.Geospatial.Geohash != "" {
		return a
	}
	lat, lon, ok := a.Location.Point()
	if !ok {
		return a
	}

	// Copy before writing: the caller's GeospatialData must stay untouched.
	derived := GeospatialData{Geohash: geohash.EncodeWithPrecision(lat, lon, derivedGeohashPrecision)}
	if a.Geospatial != nil {
		derived.AffectedArea = a.Geospatial.AffectedArea
	}
	a.Geospatial = &derived
	return a
}
