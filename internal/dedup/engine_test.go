package dedup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/domain"
	"github.com/ohess/newsroom/internal/oracle"
)

var testLocale = domain.Locale{Country: "us", Language: "en"}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustReport(t *testing.T, narrative string, refs ...string) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(testLocale, narrative, "", nil, refs)
	if err != nil {
		t.Fatalf("building report: %v", err)
	}
	return r
}

// stubDedup answers FindDuplicate from a fixed map of narrative -> match.
type stubDedup struct {
	matches map[string]string
	err     error
	calls   int
}

func (s *stubDedup) FindDuplicate(ctx context.Context, country, language, headline, summary string, corpus []oracle.CorpusEntry) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.matches[summary], nil
}

func TestMergeBatchCreatesNovelReports(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, &stubDedup{}, Config{MarkDuplicates: true})

	reports := []*domain.Report{
		mustReport(t, "Parliament approved the budget.", "a1", "a2"),
		mustReport(t, "Storm closes coastal roads.", "b1", "b2"),
	}

	result, err := engine.MergeBatch(context.Background(), testLocale, reports)
	if err != nil {
		t.Fatalf("MergeBatch: %v", err)
	}
	if result.Created != 2 || result.Merged != 0 {
		t.Errorf("result = %+v, want 2 created, 0 merged", result)
	}

	for _, r := range reports {
		got, err := db.GetReport(r.ID)
		if err != nil || got == nil {
			t.Fatalf("report %s not persisted: %v", r.ID, err)
		}
	}
}

func TestMergeBatchFoldsDuplicateRefs(t *testing.T) {
	db := openTestDB(t)

	existing := mustReport(t, "Parliament approved the budget.", "a1", "a2")
	existing.Dedup = domain.StateComplete
	if err := db.CreateReport(existing); err != nil {
		t.Fatalf("seeding existing report: %v", err)
	}

	incoming := mustReport(t, "Budget vote passes in parliament.", "a2", "a3")
	stub := &stubDedup{matches: map[string]string{incoming.Narrative: existing.ID}}
	engine := NewEngine(db, stub, Config{MarkDuplicates: true})

	result, err := engine.MergeBatch(context.Background(), testLocale, []*domain.Report{incoming})
	if err != nil {
		t.Fatalf("MergeBatch: %v", err)
	}
	if result.Merged != 1 || result.Created != 0 {
		t.Errorf("result = %+v, want 1 merged, 0 created", result)
	}

	// candidate never persisted
	if got, _ := db.GetReport(incoming.ID); got != nil {
		t.Error("merged candidate was persisted")
	}

	// existing report absorbed the new ref without duplicating a2
	got, err := db.GetReport(existing.ID)
	if err != nil {
		t.Fatalf("reloading existing report: %v", err)
	}
	want := []string{"a1", "a2", "a3"}
	if len(got.SourceRefs) != len(want) {
		t.Fatalf("source refs = %v, want %v", got.SourceRefs, want)
	}
	for i, ref := range want {
		if got.SourceRefs[i] != ref {
			t.Errorf("source refs = %v, want %v", got.SourceRefs, want)
			break
		}
	}
}

func TestMergeBatchMatchesWithinSameBatch(t *testing.T) {
	db := openTestDB(t)

	// empty database: the only possible match lives in the in-run corpus
	first := mustReport(t, "Parliament approved the budget.", "a1", "a2")
	second := mustReport(t, "Budget vote passes in parliament.", "a2", "a3")
	stub := &stubDedup{matches: map[string]string{second.Narrative: first.ID}}
	engine := NewEngine(db, stub, Config{MarkDuplicates: true})

	result, err := engine.MergeBatch(context.Background(), testLocale, []*domain.Report{first, second})
	if err != nil {
		t.Fatalf("MergeBatch: %v", err)
	}
	if result.Created != 1 || result.Merged != 1 {
		t.Errorf("result = %+v, want 1 created, 1 merged", result)
	}

	if got, _ := db.GetReport(second.ID); got != nil {
		t.Error("merged candidate was persisted")
	}

	got, err := db.GetReport(first.ID)
	if err != nil || got == nil {
		t.Fatalf("reloading first report: %v", err)
	}
	want := []string{"a1", "a2", "a3"}
	if len(got.SourceRefs) != len(want) {
		t.Fatalf("source refs = %v, want %v", got.SourceRefs, want)
	}
	for i, ref := range want {
		if got.SourceRefs[i] != ref {
			t.Errorf("source refs = %v, want %v", got.SourceRefs, want)
			break
		}
	}
}

func TestMergeBatchOracleFailureStillCreates(t *testing.T) {
	db := openTestDB(t)

	// corpus must be non-empty for the oracle to be consulted
	existing := mustReport(t, "Existing coverage.", "x1", "x2")
	existing.Dedup = domain.StateComplete
	if err := db.CreateReport(existing); err != nil {
		t.Fatalf("seeding existing report: %v", err)
	}

	stub := &stubDedup{err: errors.New("oracle down")}
	engine := NewEngine(db, stub, Config{MarkDuplicates: true})

	incoming := mustReport(t, "Fresh story.", "c1", "c2")
	result, err := engine.MergeBatch(context.Background(), testLocale, []*domain.Report{incoming})
	if err != nil {
		t.Fatalf("MergeBatch: %v", err)
	}
	if result.Created != 1 || result.Failed != 1 {
		t.Errorf("result = %+v, want 1 created, 1 failed", result)
	}
	if got, _ := db.GetReport(incoming.ID); got == nil {
		t.Error("report not persisted despite oracle failure")
	}
}

func TestReconcileSettlesIndependent(t *testing.T) {
	db := openTestDB(t)

	pending := mustReport(t, "Unmatched pending story.", "p1", "p2")
	if err := db.CreateReport(pending); err != nil {
		t.Fatalf("seeding pending report: %v", err)
	}

	engine := NewEngine(db, &stubDedup{}, Config{MarkDuplicates: true})
	result, err := engine.ReconcilePending(context.Background(), testLocale, 50)
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if result.Settled != 1 || result.Linked != 0 {
		t.Errorf("result = %+v, want 1 settled", result)
	}

	got, err := db.GetReport(pending.ID)
	if err != nil {
		t.Fatalf("reloading report: %v", err)
	}
	if !got.Settled() {
		t.Errorf("report not settled: dedup=%s duplicateOf=%v", got.Dedup, got.DuplicateOf)
	}
}

func TestReconcileLinksDuplicate(t *testing.T) {
	db := openTestDB(t)

	settled := mustReport(t, "Original coverage of the fire.", "s1", "s2")
	settled.Dedup = domain.StateComplete
	if err := db.CreateReport(settled); err != nil {
		t.Fatalf("seeding settled report: %v", err)
	}

	pending := mustReport(t, "Second take on the fire.", "p1", "p2")
	if err := db.CreateReport(pending); err != nil {
		t.Fatalf("seeding pending report: %v", err)
	}

	stub := &stubDedup{matches: map[string]string{pending.Narrative: settled.ID}}
	engine := NewEngine(db, stub, Config{MarkDuplicates: true})

	result, err := engine.ReconcilePending(context.Background(), testLocale, 50)
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if result.Linked != 1 {
		t.Errorf("result = %+v, want 1 linked", result)
	}

	got, err := db.GetReport(pending.ID)
	if err != nil {
		t.Fatalf("reloading report: %v", err)
	}
	if got.DuplicateOf == nil || *got.DuplicateOf != settled.ID {
		t.Errorf("duplicateOf = %v, want %s", got.DuplicateOf, settled.ID)
	}
	if got.Dedup != domain.StateComplete {
		t.Errorf("dedup state = %s, want complete", got.Dedup)
	}
}

func TestReconcileOracleFailureMakesProgress(t *testing.T) {
	db := openTestDB(t)

	settled := mustReport(t, "Existing coverage.", "s1", "s2")
	settled.Dedup = domain.StateComplete
	if err := db.CreateReport(settled); err != nil {
		t.Fatalf("seeding settled report: %v", err)
	}

	pending := mustReport(t, "Pending story.", "p1", "p2")
	if err := db.CreateReport(pending); err != nil {
		t.Fatalf("seeding pending report: %v", err)
	}

	stub := &stubDedup{err: errors.New("oracle down")}
	engine := NewEngine(db, stub, Config{MarkDuplicates: true})

	result, err := engine.ReconcilePending(context.Background(), testLocale, 50)
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if result.Failed != 1 || result.Settled != 1 {
		t.Errorf("result = %+v, want 1 failed and 1 settled", result)
	}

	got, err := db.GetReport(pending.ID)
	if err != nil {
		t.Fatalf("reloading report: %v", err)
	}
	if got.Dedup != domain.StateComplete {
		t.Error("oracle failure left the report pending")
	}
}
