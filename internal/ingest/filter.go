// Package ingest selects which raw clusters are worth turning into reports.
package ingest

import "github.com/ohess/newsroom/internal/domain"

// Filter applies the admission rules to raw clusters, preserving order:
//
//  1. Clusters with fewer than two members are dropped.
//  2. Clusters with any member ID seen before are dropped.
//  3. A cluster is kept when its size reaches 70% of the largest
//     remaining cluster, or exceeds three members outright.
//
// known holds previously ingested source IDs. Filter never mutates its
// inputs and is safe to re-run on its own output.
func Filter(clusters []domain.Cluster, known map[string]bool) []domain.Cluster {
	var eligible []domain.Cluster
	maxSize := 0
	for _, c := range clusters {
		if len(c.Articles) < 2 {
			continue
		}
		if anyKnown(c, known) {
			continue
		}
		eligible = append(eligible, c)
		if len(c.Articles) > maxSize {
			maxSize = len(c.Articles)
		}
	}

	var kept []domain.Cluster
	for _, c := range eligible {
		n := len(c.Articles)
		// integer form of n >= 0.7*maxSize
		if 10*n >= 7*maxSize || n > 3 {
			kept = append(kept, c)
		}
	}
	return kept
}

func anyKnown(c domain.Cluster, known map[string]bool) bool {
	for _, a := range c.Articles {
		if known[a.ID] {
			return true
		}
	}
	return false
}
