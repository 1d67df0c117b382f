package db

import (
	"testing"
	"time"

	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/costs"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func testRun(id string, started time.Time) *models.RunSummary {
	return &models.RunSummary{
		RunID:     id,
		Verb:      "variants analyze",
		Policy:    "escalate",
		StartedAt: started,
	}
}

func TestCreateRun_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	started := time.Now().UTC().Truncate(time.Second)
	run := testRun("run-001", started)
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	run.FinishedAt = started.Add(2 * time.Minute)
	run.Processed = 50
	run.Applied = 12
	run.Flagged = 8
	run.Skipped = 28
	run.Errored = 2
	run.TotalCost = 0.0431
	run.ReportPath = "reports/run-001.json"
	if err := db.FinishRun(run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	got, err := db.GetRun("run-001")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Verb != "variants analyze" {
		t.Errorf("Verb = %q, want %q", got.Verb, "variants analyze")
	}
	if got.Policy != "escalate" {
		t.Errorf("Policy = %q, want %q", got.Policy, "escalate")
	}
	if got.Processed != 50 || got.Applied != 12 || got.Flagged != 8 || got.Skipped != 28 || got.Errored != 2 {
		t.Errorf("counts = %d/%d/%d/%d/%d, want 50/12/8/28/2",
			got.Processed, got.Applied, got.Flagged, got.Skipped, got.Errored)
	}
	if got.TotalCost != 0.0431 {
		t.Errorf("TotalCost = %v, want 0.0431", got.TotalCost)
	}
	if got.ReportPath != "reports/run-001.json" {
		t.Errorf("ReportPath = %q, want %q", got.ReportPath, "reports/run-001.json")
	}
	if got.StartedAt.IsZero() || got.FinishedAt.IsZero() {
		t.Errorf("timestamps not persisted: started=%v finished=%v", got.StartedAt, got.FinishedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.GetRun("missing"); err == nil {
		t.Error("GetRun() error = nil, want not-found error")
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Second)
	if err := db.CreateRun(testRun("run-old", now.Add(-1*time.Hour))); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := db.CreateRun(testRun("run-new", now)); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() returned %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "run-new" || runs[1].RunID != "run-old" {
		t.Errorf("order = [%s %s], want [run-new run-old]", runs[0].RunID, runs[1].RunID)
	}
}

func TestUpsertItem_InsertThenUpdate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.CreateRun(testRun("run-002", time.Now())); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	item := &models.ItemResult{
		ProductID:    42,
		ProductTitle: "Ceramic Mug 12 oz",
		Outcome:      models.OutcomeFlag,
		Method:       models.MethodHybrid,
		Score:        0.55,
		Confidence:   0.60,
		Reason:       "combined score below action threshold",
	}
	if err := db.UpsertItem("run-002", item); err != nil {
		t.Fatalf("UpsertItem() insert error = %v", err)
	}

	// Second pass over the same product replaces the row.
	item.Outcome = models.OutcomeAct
	item.Reason = "heuristic score 0.92 at or above act threshold 0.90"
	item.Plan = &models.Plan{
		ProductID:    42,
		ProductTitle: "Ceramic Mug 12 oz",
		Action:       models.ActionVariantSet,
		Changes:      []string{`add option "Size": S, M`},
	}
	item.Applied = true
	item.RollbackToken = "tok-abc"
	item.Cost = 0.0012
	if err := db.UpsertItem("run-002", item); err != nil {
		t.Fatalf("UpsertItem() update error = %v", err)
	}

	items, err := db.ItemsForRun("run-002")
	if err != nil {
		t.Fatalf("ItemsForRun() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ItemsForRun() returned %d items, want 1", len(items))
	}
	got := items[0]
	if got.Outcome != models.OutcomeAct {
		t.Errorf("Outcome = %q, want %q", got.Outcome, models.OutcomeAct)
	}
	if !got.Applied {
		t.Error("Applied = false, want true")
	}
	if got.RollbackToken != "tok-abc" {
		t.Errorf("RollbackToken = %q, want %q", got.RollbackToken, "tok-abc")
	}
	if got.Plan == nil {
		t.Fatal("Plan = nil, want decoded plan")
	}
	if got.Plan.Action != models.ActionVariantSet {
		t.Errorf("Plan.Action = %q, want %q", got.Plan.Action, models.ActionVariantSet)
	}
	if len(got.Plan.Changes) != 1 {
		t.Errorf("Plan.Changes has %d entries, want 1", len(got.Plan.Changes))
	}
}

func TestProcessedIDs(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.CreateRun(testRun("run-003", time.Now())); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	for _, id := range []int64{10, 20, 30} {
		item := &models.ItemResult{ProductID: id, Outcome: models.OutcomeSkip, Method: models.MethodHeuristic}
		if err := db.UpsertItem("run-003", item); err != nil {
			t.Fatalf("UpsertItem(%d) error = %v", id, err)
		}
	}

	ids, err := db.ProcessedIDs("run-003")
	if err != nil {
		t.Fatalf("ProcessedIDs() error = %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("ProcessedIDs() returned %d ids, want 3", len(ids))
	}
	if !ids[20] {
		t.Error("ProcessedIDs() missing product 20")
	}
	if ids[99] {
		t.Error("ProcessedIDs() contains product 99, want absent")
	}
}

func TestSaveSnapshot_FirstWriteWins(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.CreateRun(testRun("run-004", time.Now())); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	fields := map[string]any{"status": "active", "title": "Bulk Widgets $4.99"}
	token, saved, err := db.SaveSnapshot("run-004", 42, "tok-first", fields)
	if err != nil {
		t.Fatalf("SaveSnapshot() first call error = %v", err)
	}
	if !saved {
		t.Error("SaveSnapshot() first call saved = false, want true")
	}
	if token != "tok-first" {
		t.Errorf("SaveSnapshot() token = %q, want tok-first", token)
	}

	// A second write for the same product must not replace the original.
	token, saved, err = db.SaveSnapshot("run-004", 42, "tok-second", map[string]any{"status": "draft"})
	if err != nil {
		t.Fatalf("SaveSnapshot() second call error = %v", err)
	}
	if saved {
		t.Error("SaveSnapshot() second call saved = true, want false")
	}
	if token != "tok-first" {
		t.Errorf("SaveSnapshot() second call token = %q, want the original tok-first", token)
	}

	snap, err := db.GetSnapshot("tok-first")
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if snap.ProductID != 42 {
		t.Errorf("ProductID = %d, want 42", snap.ProductID)
	}
	if snap.Fields["status"] != "active" {
		t.Errorf("Fields[status] = %v, want active", snap.Fields["status"])
	}
	if snap.Fields["title"] != "Bulk Widgets $4.99" {
		t.Errorf("Fields[title] = %v, want original title", snap.Fields["title"])
	}

	if _, err := db.GetSnapshot("tok-second"); err == nil {
		t.Error("GetSnapshot(tok-second) error = nil, want missing-token error")
	}
}

func TestSnapshotsForRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.CreateRun(testRun("run-005", time.Now())); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	for i, productID := range []int64{7, 8} {
		_, _, err := db.SaveSnapshot("run-005", productID, "tok-"+string(rune('a'+i)), map[string]any{"status": "active"})
		if err != nil {
			t.Fatalf("SaveSnapshot(%d) error = %v", productID, err)
		}
	}

	snaps, err := db.SnapshotsForRun("run-005")
	if err != nil {
		t.Fatalf("SnapshotsForRun() error = %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("SnapshotsForRun() returned %d snapshots, want 2", len(snaps))
	}
	if snaps[0].ProductID != 7 || snaps[1].ProductID != 8 {
		t.Errorf("order = [%d %d], want [7 8]", snaps[0].ProductID, snaps[1].ProductID)
	}
}

func TestSaveLedger_UpdatesInPlace(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.CreateRun(testRun("run-006", time.Now())); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	first := map[string]costs.BackendTotals{
		"gemini": {Calls: 3, InputUnits: 300, OutputUnits: 60, Cost: 0.003},
	}
	if err := db.SaveLedger("run-006", first); err != nil {
		t.Fatalf("SaveLedger() first call error = %v", err)
	}

	second := map[string]costs.BackendTotals{
		"gemini": {Calls: 5, InputUnits: 500, OutputUnits: 100, Cost: 0.005},
		"claude": {Calls: 1, InputUnits: 200, OutputUnits: 40, Cost: 0.012},
	}
	if err := db.SaveLedger("run-006", second); err != nil {
		t.Fatalf("SaveLedger() second call error = %v", err)
	}

	got, err := db.LedgerForRun("run-006")
	if err != nil {
		t.Fatalf("LedgerForRun() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LedgerForRun() returned %d backends, want 2", len(got))
	}
	g := got["gemini"]
	if g.Calls != 5 || g.Cost != 0.005 {
		t.Errorf("gemini totals = %d calls / %v cost, want 5 / 0.005", g.Calls, g.Cost)
	}
	c := got["claude"]
	if c.Calls != 1 {
		t.Errorf("claude calls = %d, want 1", c.Calls)
	}
}

func TestActionTypeID_SeededAndNew(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seeded, err := db.actionTypeID("variant-set")
	if err != nil {
		t.Fatalf("actionTypeID(variant-set) error = %v", err)
	}
	if seeded == 0 {
		t.Error("actionTypeID(variant-set) = 0, want seeded id")
	}

	created, err := db.actionTypeID("bundle")
	if err != nil {
		t.Fatalf("actionTypeID(bundle) error = %v", err)
	}
	again, err := db.actionTypeID("bundle")
	if err != nil {
		t.Fatalf("actionTypeID(bundle) second call error = %v", err)
	}
	if created != again {
		t.Errorf("actionTypeID(bundle) = %d then %d, want stable id", created, again)
	}
}
