// Package dedup removes duplicate embedding records: exact groups by trimmed
// content and near-duplicates by vector similarity.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"page-harvester/internal/models"
	"page-harvester/internal/similarity"
	"page-harvester/internal/store"
)

const contentPreviewLen = 100

// Thresholds tune the similarity-based duplicate decisions.
type Thresholds struct {
	// High marks a duplicate on vector similarity alone.
	High float64
	// Duplicate marks a duplicate only when the title similarity
	// corroborates it. High vector similarity by itself can be a false
	// positive for topically similar but distinct content.
	Duplicate float64
	// Title is the secondary text-similarity threshold for Duplicate.
	Title float64
	// Cluster is the absorption threshold for greedy clustering.
	Cluster float64
	// MinClusterSize discards clusters with fewer members.
	MinClusterSize int
}

// DefaultThresholds returns the tuned production values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:           0.9,
		Duplicate:      0.8,
		Title:          0.6,
		Cluster:        0.75,
		MinClusterSize: 3,
	}
}

// Engine runs deduplication passes over a vector store.
type Engine struct {
	store      store.VectorStore
	thresholds Thresholds
}

// NewEngine creates a dedup engine over the given store.
func NewEngine(s store.VectorStore, t Thresholds) *Engine {
	return &Engine{store: s, thresholds: t}
}

// FindExactDuplicates groups records by byte-identical trimmed content and
// returns every group with two or more members. The kept member is the one
// with the earliest created_at; input order breaks ties. Group order follows
// the first appearance of each content key in the input.
func FindExactDuplicates(records []models.EmbeddingRecord) []models.DuplicateGroup {
	byContent := make(map[string][]models.EmbeddingRecord)
	var keys []string
	for _, rec := range records {
		key := strings.TrimSpace(rec.Content)
		if _, ok := byContent[key]; !ok {
			keys = append(keys, key)
		}
		byContent[key] = append(byContent[key], rec)
	}

	var groups []models.DuplicateGroup
	for _, key := range keys {
		members := byContent[key]
		if len(members) < 2 {
			continue
		}

		keep := members[0]
		for _, rec := range members[1:] {
			if rec.CreatedAt.Before(keep.CreatedAt) {
				keep = rec
			}
		}

		group := models.DuplicateGroup{
			Content: preview(key),
			KeepID:  keep.ID,
		}
		for _, rec := range members {
			group.MemberIDs = append(group.MemberIDs, rec.ID)
			if rec.ID != keep.ID {
				group.RemoveIDs = append(group.RemoveIDs, rec.ID)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// RemoveExactDuplicates runs one exact-duplicate pass over the store. With
// confirm false it is a dry run: the stats report exactly what a confirmed
// run over the same snapshot would remove, and nothing is deleted. A record
// that vanishes between the scan and the delete counts as already removed.
func (e *Engine) RemoveExactDuplicates(ctx context.Context, confirm bool) (models.RemovalStats, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return models.RemovalStats{}, fmt.Errorf("list records: %w", err)
	}

	groups := FindExactDuplicates(records)
	stats := models.RemovalStats{
		TotalRecords:    len(records),
		DuplicateGroups: len(groups),
		DryRun:          !confirm,
		Groups:          groups,
	}

	for _, group := range groups {
		stats.KeptIDs = append(stats.KeptIDs, group.KeepID)
		for _, id := range group.RemoveIDs {
			if !confirm {
				stats.RemovedIDs = append(stats.RemovedIDs, id)
				continue
			}
			switch err := e.store.Delete(ctx, id); {
			case err == nil:
				stats.RemovedIDs = append(stats.RemovedIDs, id)
				log.Printf("removed duplicate record id=%s keep=%s", id, group.KeepID)
			case errors.Is(err, store.ErrNotFound):
				stats.RemovedIDs = append(stats.RemovedIDs, id)
				log.Printf("record already removed id=%s", id)
			default:
				log.Printf("delete failed id=%s err=%v", id, err)
			}
		}
	}

	return stats, nil
}

// FindDuplicate checks a candidate vector (and optional title) against every
// stored record. A stored record is a duplicate when its cosine similarity
// reaches the High threshold, or reaches the Duplicate threshold with title
// similarity above the Title threshold. Returns the best match, or false.
// Records with missing or mismatched vectors are skipped.
func (e *Engine) FindDuplicate(ctx context.Context, vector []float64, title string) (models.EmbeddingRecord, float64, bool, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return models.EmbeddingRecord{}, 0, false, fmt.Errorf("list records: %w", err)
	}

	var (
		best    models.EmbeddingRecord
		bestSim float64
		found   bool
	)
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			log.Printf("skipping record without vector id=%s", rec.ID)
			continue
		}
		if len(rec.Vector) != len(vector) {
			log.Printf("skipping record with mismatched vector id=%s dims=%d want=%d",
				rec.ID, len(rec.Vector), len(vector))
			continue
		}

		sim := similarity.Cosine(vector, rec.Vector)
		if !e.isDuplicate(sim, title, rec.Title) {
			continue
		}
		if !found || sim > bestSim {
			best = rec
			bestSim = sim
			found = true
		}
	}
	return best, bestSim, found, nil
}

func (e *Engine) isDuplicate(sim float64, titleA, titleB string) bool {
	if sim >= e.thresholds.High {
		return true
	}
	if sim < e.thresholds.Duplicate {
		return false
	}
	if titleA == "" || titleB == "" {
		return false
	}
	return similarity.Text(titleA, titleB) > e.thresholds.Title
}

func preview(content string) string {
	if len(content) <= contentPreviewLen {
		return content
	}
	return content[:contentPreviewLen] + "..."
}
