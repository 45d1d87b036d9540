package dedup

import (
	"context"
	"fmt"
	"log"

	"page-harvester/internal/models"
	"page-harvester/internal/similarity"
)

// Clusters groups all stored records by vector similarity and returns the
// clusters that reach the configured minimum size.
func (e *Engine) Clusters(ctx context.Context) ([]models.SimilarityCluster, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return ClusterRecords(records, e.thresholds.Cluster, e.thresholds.MinClusterSize), nil
}

// ClusterRecords performs greedy representative-based clustering: records
// are visited in input order, each unclustered record opens a new cluster as
// its representative, and every later unclustered record whose similarity to
// the representative reaches the threshold is absorbed. Membership is judged
// against the representative only — two records each similar to a third but
// not to each other can stay unclustered. That approximation is intentional
// and must not be silently replaced with transitive clustering.
// Records with missing vectors are skipped. Clusters smaller than minSize
// are dropped.
func ClusterRecords(records []models.EmbeddingRecord, threshold float64, minSize int) []models.SimilarityCluster {
	clustered := make(map[string]struct{})
	var clusters []models.SimilarityCluster

	for i, rec := range records {
		if _, ok := clustered[rec.ID]; ok {
			continue
		}
		if len(rec.Vector) == 0 {
			log.Printf("skipping record without vector id=%s", rec.ID)
			continue
		}

		cluster := models.SimilarityCluster{
			RepresentativeID: rec.ID,
			MemberIDs:        []string{rec.ID},
		}
		clustered[rec.ID] = struct{}{}

		for _, other := range records[i+1:] {
			if _, ok := clustered[other.ID]; ok {
				continue
			}
			if len(other.Vector) != len(rec.Vector) {
				continue
			}

			sim := similarity.Cosine(rec.Vector, other.Vector)
			if sim >= threshold {
				cluster.MemberIDs = append(cluster.MemberIDs, other.ID)
				cluster.Scores = append(cluster.Scores, sim)
				clustered[other.ID] = struct{}{}
			}
		}

		if len(cluster.MemberIDs) >= minSize {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}
