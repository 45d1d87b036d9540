package dedup

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"page-harvester/internal/models"
	"page-harvester/internal/store"
	"page-harvester/mocks"
)

func record(id, content string, created time.Time) models.EmbeddingRecord {
	return models.EmbeddingRecord{
		ID:        id,
		Content:   content,
		Vector:    []float64{1, 0, 0},
		CreatedAt: created,
	}
}

func TestFindExactDuplicatesKeepsEarliest(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.EmbeddingRecord{
		record("newer", "same content", base.Add(time.Hour)),
		record("oldest", "same content", base),
		record("middle", "same content", base.Add(30*time.Minute)),
		record("unique", "different content", base),
	}

	groups := FindExactDuplicates(records)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}

	group := groups[0]
	if group.KeepID != "oldest" {
		t.Fatalf("expected oldest record kept, got %s", group.KeepID)
	}
	wantRemove := []string{"newer", "middle"}
	if !reflect.DeepEqual(group.RemoveIDs, wantRemove) {
		t.Fatalf("unexpected remove ids: %v, want %v", group.RemoveIDs, wantRemove)
	}
	if len(group.MemberIDs) != 3 {
		t.Fatalf("expected 3 members, got %d", len(group.MemberIDs))
	}
}

func TestFindExactDuplicatesTrimsWhitespace(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.EmbeddingRecord{
		record("a", "  padded content  ", base),
		record("b", "padded content", base.Add(time.Minute)),
	}

	groups := FindExactDuplicates(records)
	if len(groups) != 1 {
		t.Fatalf("expected whitespace variants to group, got %d groups", len(groups))
	}
	if groups[0].KeepID != "a" {
		t.Fatalf("expected earliest record kept, got %s", groups[0].KeepID)
	}
}

func TestFindExactDuplicatesTieBreaksByInputOrder(t *testing.T) {
	same := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.EmbeddingRecord{
		record("first", "tie content", same),
		record("second", "tie content", same),
	}

	groups := FindExactDuplicates(records)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].KeepID != "first" {
		t.Fatalf("expected input order to break the tie, got %s", groups[0].KeepID)
	}
}

func TestFindExactDuplicatesNone(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.EmbeddingRecord{
		record("a", "content one", base),
		record("b", "content two", base),
	}
	if groups := FindExactDuplicates(records); groups != nil {
		t.Fatalf("expected no groups, got %v", groups)
	}
}

func TestFindExactDuplicatesContentPreview(t *testing.T) {
	long := ""
	for len(long) < 300 {
		long += "0123456789"
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.EmbeddingRecord{
		record("a", long, base),
		record("b", long, base.Add(time.Minute)),
	}

	groups := FindExactDuplicates(records)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Content) != contentPreviewLen+len("...") {
		t.Fatalf("unexpected preview length %d", len(groups[0].Content))
	}
}

func TestRemoveExactDuplicatesDryRunMatchesConfirmed(t *testing.T) {
	seed := func() *store.MemoryVectorStore {
		base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		return store.NewMemoryVectorStore(
			record("keep-1", "dup content", base),
			record("drop-1", "dup content", base.Add(time.Minute)),
			record("drop-2", "dup content", base.Add(2*time.Minute)),
			record("solo", "unique content", base),
		)
	}

	ctx := context.Background()

	dryStore := seed()
	dryEngine := NewEngine(dryStore, DefaultThresholds())
	dryStats, err := dryEngine.RemoveExactDuplicates(ctx, false)
	if err != nil {
		t.Fatalf("dry run error: %v", err)
	}

	confirmedStore := seed()
	confirmedEngine := NewEngine(confirmedStore, DefaultThresholds())
	confirmedStats, err := confirmedEngine.RemoveExactDuplicates(ctx, true)
	if err != nil {
		t.Fatalf("confirmed run error: %v", err)
	}

	if !dryStats.DryRun || confirmedStats.DryRun {
		t.Fatalf("dry run flags wrong: dry=%t confirmed=%t", dryStats.DryRun, confirmedStats.DryRun)
	}
	if !reflect.DeepEqual(dryStats.RemovedIDs, confirmedStats.RemovedIDs) {
		t.Fatalf("dry run removed %v, confirmed removed %v", dryStats.RemovedIDs, confirmedStats.RemovedIDs)
	}
	if !reflect.DeepEqual(dryStats.KeptIDs, confirmedStats.KeptIDs) {
		t.Fatalf("dry run kept %v, confirmed kept %v", dryStats.KeptIDs, confirmedStats.KeptIDs)
	}

	// Dry run leaves the store untouched; confirmed run shrinks it.
	dryLeft, _ := dryStore.List(ctx)
	if len(dryLeft) != 4 {
		t.Fatalf("dry run modified the store: %d records left", len(dryLeft))
	}
	confirmedLeft, _ := confirmedStore.List(ctx)
	if len(confirmedLeft) != 2 {
		t.Fatalf("expected 2 records after confirmed run, got %d", len(confirmedLeft))
	}
	for _, rec := range confirmedLeft {
		if rec.ID == "drop-1" || rec.ID == "drop-2" {
			t.Fatalf("duplicate %s survived confirmed run", rec.ID)
		}
	}
}

func TestRemoveExactDuplicatesToleratesVanishedRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.EmbeddingRecord{
		record("keep", "dup content", base),
		record("gone", "dup content", base.Add(time.Minute)),
	}

	vectorStore := mocks.NewMockVectorStore(ctrl)
	vectorStore.EXPECT().List(gomock.Any()).Return(records, nil)
	vectorStore.EXPECT().Delete(gomock.Any(), "gone").Return(store.ErrNotFound)

	engine := NewEngine(vectorStore, DefaultThresholds())
	stats, err := engine.RemoveExactDuplicates(context.Background(), true)
	if err != nil {
		t.Fatalf("RemoveExactDuplicates returned error: %v", err)
	}

	// A record already deleted by someone else still counts as removed.
	if !reflect.DeepEqual(stats.RemovedIDs, []string{"gone"}) {
		t.Fatalf("unexpected removed ids: %v", stats.RemovedIDs)
	}
}

func TestRemoveExactDuplicatesSkipsFailedDeletes(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.EmbeddingRecord{
		record("keep", "dup content", base),
		record("stuck", "dup content", base.Add(time.Minute)),
	}

	vectorStore := mocks.NewMockVectorStore(ctrl)
	vectorStore.EXPECT().List(gomock.Any()).Return(records, nil)
	vectorStore.EXPECT().Delete(gomock.Any(), "stuck").Return(errors.New("connection reset"))

	engine := NewEngine(vectorStore, DefaultThresholds())
	stats, err := engine.RemoveExactDuplicates(context.Background(), true)
	if err != nil {
		t.Fatalf("RemoveExactDuplicates returned error: %v", err)
	}
	if len(stats.RemovedIDs) != 0 {
		t.Fatalf("failed delete counted as removed: %v", stats.RemovedIDs)
	}
}

func TestRemoveExactDuplicatesListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	vectorStore := mocks.NewMockVectorStore(ctrl)
	vectorStore.EXPECT().List(gomock.Any()).Return(nil, errors.New("store down"))

	engine := NewEngine(vectorStore, DefaultThresholds())
	if _, err := engine.RemoveExactDuplicates(context.Background(), false); err == nil {
		t.Fatal("expected error when listing fails")
	}
}

func TestFindDuplicateHighSimilarity(t *testing.T) {
	stored := models.EmbeddingRecord{
		ID:     "existing",
		Title:  "Completely Different Title",
		Vector: []float64{1, 0, 0},
	}
	memory := store.NewMemoryVectorStore(stored)
	engine := NewEngine(memory, DefaultThresholds())

	// Near-identical vector crosses the high threshold regardless of title.
	match, sim, found, err := engine.FindDuplicate(context.Background(), []float64{0.99, 0.01, 0}, "unrelated words entirely")
	if err != nil {
		t.Fatalf("FindDuplicate returned error: %v", err)
	}
	if !found {
		t.Fatal("expected a duplicate match")
	}
	if match.ID != "existing" {
		t.Fatalf("unexpected match: %s", match.ID)
	}
	if sim < 0.9 {
		t.Fatalf("unexpected similarity: %f", sim)
	}
}

func TestFindDuplicateRequiresTitleCorroboration(t *testing.T) {
	stored := models.EmbeddingRecord{
		ID:     "existing",
		Title:  "go testing guide",
		Vector: []float64{1, 0.5, 0},
	}
	memory := store.NewMemoryVectorStore(stored)
	engine := NewEngine(memory, DefaultThresholds())

	// Cosine([1, .5, 0], [1, 0, 0]) ≈ 0.894: above Duplicate, below High.
	candidate := []float64{1, 0, 0}

	_, _, found, err := engine.FindDuplicate(context.Background(), candidate, "unrelated cooking recipes")
	if err != nil {
		t.Fatalf("FindDuplicate returned error: %v", err)
	}
	if found {
		t.Fatal("expected no match without title corroboration")
	}

	match, _, found, err := engine.FindDuplicate(context.Background(), candidate, "go testing handbook guide")
	if err != nil {
		t.Fatalf("FindDuplicate returned error: %v", err)
	}
	if !found {
		t.Fatal("expected match with similar title")
	}
	if match.ID != "existing" {
		t.Fatalf("unexpected match: %s", match.ID)
	}
}

func TestFindDuplicatePicksBestMatch(t *testing.T) {
	memory := store.NewMemoryVectorStore(
		models.EmbeddingRecord{ID: "close", Vector: []float64{0.95, 0.05, 0}},
		models.EmbeddingRecord{ID: "closest", Vector: []float64{1, 0, 0}},
	)
	engine := NewEngine(memory, DefaultThresholds())

	match, _, found, err := engine.FindDuplicate(context.Background(), []float64{1, 0, 0}, "")
	if err != nil {
		t.Fatalf("FindDuplicate returned error: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if match.ID != "closest" {
		t.Fatalf("expected best match, got %s", match.ID)
	}
}

func TestFindDuplicateSkipsMalformedVectors(t *testing.T) {
	memory := store.NewMemoryVectorStore(
		models.EmbeddingRecord{ID: "no-vector"},
		models.EmbeddingRecord{ID: "wrong-dims", Vector: []float64{1, 0}},
	)
	engine := NewEngine(memory, DefaultThresholds())

	_, _, found, err := engine.FindDuplicate(context.Background(), []float64{1, 0, 0}, "")
	if err != nil {
		t.Fatalf("FindDuplicate returned error: %v", err)
	}
	if found {
		t.Fatal("expected malformed records to be skipped, not matched")
	}
}
