package consolidate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
)

// sentenceSplitRe breaks descriptions into fragments at sentence punctuation.
var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// Merge collapses a group of alerts describing one event into a single
// PRIMARY record. The newest member (by CreatedAt, earlier input order wins
// ties) becomes the base; descriptions are combined sentence-by-sentence,
// geography and classification take the richest member's values, and
// parameters merge key-by-key with the longer value winning collisions.
//
// The group must have at least two members.
func Merge(group []domain.Alert) (domain.ConsolidatedAlert, error) {
	if len(group) < 2 {
		return domain.ConsolidatedAlert{}, fmt.Errorf("merge requires at least 2 alerts, got %d", len(group))
	}

	base := group[0]
	for _, a := range group[1:] {
		if a.CreatedAt.After(base.CreatedAt) {
			base = a
		}
	}

	merged := domain.ConsolidatedAlert{
		Alert:            base,
		ConsolidatedFrom: make([]string, 0, len(group)),
		SourceCount:      len(group),
		Sources:          make([]domain.SourceRef, 0, len(group)),
	}
	merged.ID = uuid.NewString()
	merged.ConsolidationStatus = domain.StatusPrimary
	merged.ConsolidatedInto = ""
	merged.UpdatedAt = domain.Now()

	for _, a := range group {
		merged.ConsolidatedFrom = append(merged.ConsolidatedFrom, a.ID)
		merged.Sources = append(merged.Sources, domain.SourceRef{
			ID:         a.ID,
			SourceID:   a.SourceID,
			SourceType: a.SourceType,
			CreatedAt:  a.CreatedAt,
		})
	}

	merged.EnhancedDescription = mergeDescriptions(group)
	merged.Geospatial = pickGeospatial(group)
	merged.Parameters = mergeParameters(group)
	merged.AIClassification = pickClassification(group)

	return merged, nil
}

// mergeDescriptions collects every member's sentence fragments into a
// deduplicated set (exact text, case-sensitive) in first-seen order across
// the group, joined back into one paragraph.
func mergeDescriptions(group []domain.Alert) string {
	seen := make(map[string]bool)
	var fragments []string

	for _, a := range group {
		if a.Description == "" {
			continue
		}
		for _, frag := range sentenceSplitRe.Split(a.Description, -1) {
			frag = strings.TrimSpace(frag)
			if frag == "" || seen[frag] {
				continue
			}
			seen[frag] = true
			fragments = append(fragments, frag)
		}
	}

	if len(fragments) == 0 {
		return ""
	}
	return strings.Join(fragments, ". ") + "."
}

// pickGeospatial selects the richest geospatial payload in the group:
// a present affected area beats none, then the longer geohash wins;
// first-seen order breaks remaining ties.
func pickGeospatial(group []domain.Alert) *domain.GeospatialData {
	var best *domain.GeospatialData
	for _, a := range group {
		if a.Geospatial == nil {
			continue
		}
		if best == nil || richerGeospatial(a.Geospatial, best) {
			g := *a.Geospatial
			best = &g
		}
	}
	return best
}

func richerGeospatial(candidate, current *domain.GeospatialData) bool {
	candidateHasArea := len(candidate.AffectedArea) > 0
	currentHasArea := len(current.AffectedArea) > 0
	if candidateHasArea != currentHasArea {
		return candidateHasArea
	}
	return len(candidate.Geohash) > len(current.Geohash)
}

// mergeParameters folds every member's parameters into one map in group
// order; on key collision the longer value is kept.
func mergeParameters(group []domain.Alert) map[string]string {
	var merged map[string]string
	for _, a := range group {
		for k, v := range a.Parameters {
			if merged == nil {
				merged = make(map[string]string)
			}
			if existing, ok := merged[k]; !ok || len(v) > len(existing) {
				merged[k] = v
			}
		}
	}
	return merged
}

// pickClassification keeps the highest-severity classification among members,
// first-seen on ties.
func pickClassification(group []domain.Alert) *domain.AIClassification {
	var best *domain.AIClassification
	for _, a := range group {
		if a.AIClassification == nil {
			continue
		}
		if best == nil || a.AIClassification.SeverityLevel > best.SeverityLevel {
			c := *a.AIClassification
			best = &c
		}
	}
	return best
}
