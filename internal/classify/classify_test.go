package classify

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

func seedSettled(t *testing.T, db *database.DB, narrative string) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(testLocale, narrative, "", nil, []string{narrative + "-src"})
	if err != nil {
		t.Fatalf("building report: %v", err)
	}
	r.Dedup = domain.StateComplete
	if err := db.CreateReport(r); err != nil {
		t.Fatalf("seeding report: %v", err)
	}
	return r
}

type stubClassifier struct {
	verdicts map[string]*oracle.Verdict
	err      error
}

func (s *stubClassifier) Classify(ctx context.Context, headline, summary string) (*oracle.Verdict, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.verdicts[summary], nil
}

func TestRunClassifiesSettledReports(t *testing.T) {
	db := openTestDB(t)

	a := seedSettled(t, db, "Parliament approved the budget.")
	b := seedSettled(t, db, "Regional chess tournament concludes.")

	stub := &stubClassifier{verdicts: map[string]*oracle.Verdict{
		a.Narrative: {Tier: domain.TierStandard},
		b.Narrative: {Tier: domain.TierNiche},
	}}

	result, err := NewCoordinator(db, stub, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Classified != 2 || result.Failed != 0 {
		t.Errorf("result = %+v, want 2 classified", result)
	}

	got, err := db.GetReport(a.ID)
	if err != nil {
		t.Fatalf("reloading report: %v", err)
	}
	if got.Tier == nil || *got.Tier != domain.TierStandard {
		t.Errorf("tier = %v, want standard", got.Tier)
	}
	if got.Classify != domain.StateComplete {
		t.Errorf("classify state = %s, want complete", got.Classify)
	}
}

func TestRunLeavesFailedReportsPending(t *testing.T) {
	db := openTestDB(t)
	r := seedSettled(t, db, "Story the oracle cannot judge.")

	result, err := NewCoordinator(db, &stubClassifier{err: errors.New("oracle down")}, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 || result.Classified != 0 {
		t.Errorf("result = %+v, want 1 failed", result)
	}

	got, err := db.GetReport(r.ID)
	if err != nil {
		t.Fatalf("reloading report: %v", err)
	}
	if got.Classify != domain.StatePending {
		t.Error("failed report did not stay pending")
	}
	if got.Tier != nil {
		t.Error("failed report got a tier")
	}
}

func TestRunSkipsUnsettledReports(t *testing.T) {
	db := openTestDB(t)

	// pending dedup: not eligible
	r, err := domain.NewReport(testLocale, "Still pending dedup.", "", nil, []string{"src"})
	if err != nil {
		t.Fatalf("building report: %v", err)
	}
	if err := db.CreateReport(r); err != nil {
		t.Fatalf("seeding report: %v", err)
	}

	stub := &stubClassifier{verdicts: map[string]*oracle.Verdict{
		r.Narrative: {Tier: domain.TierStandard},
	}}
	result, err := NewCoordinator(db, stub, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Classified != 0 {
		t.Errorf("classified %d unsettled reports", result.Classified)
	}
}

func TestRunUnusableVerdictCountsFailed(t *testing.T) {
	db := openTestDB(t)
	seedSettled(t, db, "Story with an unparseable verdict.")

	// stub returns nil verdict, nil error
	result, err := NewCoordinator(db, &stubClassifier{}, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("result = %+v, want 1 failed", result)
	}
}
