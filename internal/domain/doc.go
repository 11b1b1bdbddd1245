// Package domain models disaster alerts and the pure scoring primitives used
// to decide whether two alerts describe the same real-world event.
//
// # Alerts
//
// Alerts arrive from many independent sources (weather feeds, seismic
// networks, webhook partners) and are written by the ingestion services with
// ConsolidationStatus unset. The consolidation engine is the only component
// that moves an alert out of that state: members of a merged group become
// CONSOLIDATED and point at the surviving record via ConsolidatedInto, and
// each merged group produces one new PRIMARY record. No component deletes an
// alert.
//
// Optional attributes (geometry, geohash, times, AI classification) are
// pointer fields. A missing attribute is never an error; scoring simply skips
// the components it cannot compute.
//
// # Geometry
//
// Location follows GeoJSON conventions: coordinates are ordered
// longitude-first, and only Point geometry participates in distance scoring.
// Polygon and MultiPolygon payloads are carried through untouched for
// downstream consumers.
//
// # Scoring primitives
//
// The similarity primitives in this package (Haversine distance, geohash
// prefix comparison, time-window overlap, bigram text similarity) are pure
// functions with no dependencies, kept here so the scorer and the merger
// share one implementation.
//
// Note on TimeOverlapRatio: the ratio is computed against the average of the
// two interval durations, not the shorter one, so a short interval nested
// inside a long one scores well below 1 even though it is fully covered.
package domain
