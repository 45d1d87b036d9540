package dedup

import (
	"context"
	"testing"

	"page-harvester/internal/models"
	"page-harvester/internal/store"
)

func vecRecord(id string, vector []float64) models.EmbeddingRecord {
	return models.EmbeddingRecord{ID: id, Vector: vector}
}

func TestClusterRecordsGroupsSimilarVectors(t *testing.T) {
	records := []models.EmbeddingRecord{
		vecRecord("a1", []float64{1, 0, 0}),
		vecRecord("a2", []float64{0.98, 0.02, 0}),
		vecRecord("a3", []float64{0.97, 0.03, 0}),
		vecRecord("b1", []float64{0, 1, 0}),
	}

	clusters := ClusterRecords(records, 0.75, 3)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}

	cluster := clusters[0]
	if cluster.RepresentativeID != "a1" {
		t.Fatalf("unexpected representative: %s", cluster.RepresentativeID)
	}
	if len(cluster.MemberIDs) != 3 {
		t.Fatalf("expected 3 members, got %v", cluster.MemberIDs)
	}
	if len(cluster.Scores) != 2 {
		t.Fatalf("expected 2 scores (representative excluded), got %d", len(cluster.Scores))
	}
	for _, score := range cluster.Scores {
		if score < 0.75 {
			t.Fatalf("member below threshold: %f", score)
		}
	}
}

func TestClusterRecordsDropsSmallClusters(t *testing.T) {
	records := []models.EmbeddingRecord{
		vecRecord("a1", []float64{1, 0}),
		vecRecord("a2", []float64{0.99, 0.01}),
		vecRecord("b1", []float64{0, 1}),
	}

	clusters := ClusterRecords(records, 0.75, 3)
	if len(clusters) != 0 {
		t.Fatalf("expected pair below min size to be dropped, got %v", clusters)
	}
}

func TestClusterRecordsRepresentativeBased(t *testing.T) {
	// b is similar to representative a; c is similar to b but not to a.
	// Greedy clustering judges c against a only, so c stays out.
	records := []models.EmbeddingRecord{
		vecRecord("a", []float64{1, 0}),
		vecRecord("b", []float64{0.8, 0.6}),
		vecRecord("c", []float64{0.3, 0.95}),
	}

	clusters := ClusterRecords(records, 0.79, 2)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	for _, id := range clusters[0].MemberIDs {
		if id == "c" {
			t.Fatal("transitively similar record absorbed; membership must be judged against the representative only")
		}
	}
}

func TestClusterRecordsSkipsMissingVectors(t *testing.T) {
	records := []models.EmbeddingRecord{
		vecRecord("a1", []float64{1, 0}),
		{ID: "empty"},
		vecRecord("a2", []float64{0.99, 0.01}),
		vecRecord("a3", []float64{0.98, 0.02}),
	}

	clusters := ClusterRecords(records, 0.75, 3)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	for _, id := range clusters[0].MemberIDs {
		if id == "empty" {
			t.Fatal("record without vector was clustered")
		}
	}
}

func TestClusterRecordsEmpty(t *testing.T) {
	if clusters := ClusterRecords(nil, 0.75, 3); clusters != nil {
		t.Fatalf("expected no clusters, got %v", clusters)
	}
}

func TestClustersReadsStore(t *testing.T) {
	memory := store.NewMemoryVectorStore(
		vecRecord("a1", []float64{1, 0, 0}),
		vecRecord("a2", []float64{0.99, 0.01, 0}),
		vecRecord("a3", []float64{0.98, 0.02, 0}),
	)
	engine := NewEngine(memory, DefaultThresholds())

	clusters, err := engine.Clusters(context.Background())
	if err != nil {
		t.Fatalf("Clusters returned error: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].MemberIDs) != 3 {
		t.Fatalf("expected 3 members, got %v", clusters[0].MemberIDs)
	}
}
