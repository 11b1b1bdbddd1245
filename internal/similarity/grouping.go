package similarity

import "github.com/couchcryptid/alert-consolidation-service/internal/domain"

// Clusterer groups a batch of alerts into clusters that likely describe the
// same event. Only clusters with at least two members are returned.
type Clusterer interface {
	Cluster(alerts []domain.Alert) [][]domain.Alert
}

// GreedySeedClusterer is a single-pass, order-dependent grouping strategy:
// the first unprocessed alert in input order seeds a group, and every later
// unprocessed alert joins if its similarity TO THE SEED meets the relation
// threshold. Membership is decided against the seed only, never against other
// members, so the result is a partition of the input but not a transitive
// closure of the similarity relation: with A~B and B~C but A≁C, C does not
// join A's group through B.
//
// That trade-off buys a simple O(n²) pass with no cluster bookkeeping. A
// transitive strategy (union-find over the pair relation) would be a distinct
// implementation of Clusterer, not a change to this one.
type GreedySeedClusterer struct {
	scorer    *Scorer
	threshold float64
}

// NewGreedySeedClusterer creates the clusterer from a scoring configuration.
func NewGreedySeedClusterer(cfg Config) *GreedySeedClusterer {
	return &GreedySeedClusterer{
		scorer:    NewScorer(cfg),
		threshold: cfg.RelationThreshold,
	}
}

// Cluster partitions alerts into groups of likely-same-event records.
// Alerts that match no seed are left out entirely; they stay eligible for a
// future batch.
func (c *GreedySeedClusterer) Cluster(alerts []domain.Alert) [][]domain.Alert {
	var groups [][]domain.Alert
	processed := make([]bool, len(alerts))

	for i := range alerts {
		if processed[i] {
			continue
		}
		seed := &alerts[i]
		processed[i] = true
		group := []domain.Alert{alerts[i]}

		for j := i + 1; j < len(alerts); j++ {
			if processed[j] {
				continue
			}
			if c.scorer.Score(seed, &alerts[j]).Overall >= c.threshold {
				processed[j] = true
				group = append(group, alerts[j])
			}
		}

		if len(group) > 1 {
			groups = append(groups, group)
		}
	}

	return groups
}
