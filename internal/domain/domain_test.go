package domain

import (
	"errors"
	"testing"
	"time"
)

var testLocale = Locale{Country: "US", Language: "en"}

func TestLocaleKey(t *testing.T) {
	if got := testLocale.Key(); got != "us-en" {
		t.Errorf("Key() = %q, want us-en", got)
	}
}

func TestNewReportDedupesRefs(t *testing.T) {
	r, err := NewReport(testLocale, "Something happened.", "", nil,
		[]string{"a", "b", "a", " ", "c", "b"})
	if err != nil {
		t.Fatalf("NewReport: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(r.SourceRefs) != len(want) {
		t.Fatalf("source refs = %v, want %v", r.SourceRefs, want)
	}
	for i, ref := range want {
		if r.SourceRefs[i] != ref {
			t.Errorf("source refs = %v, want %v (first-seen order)", r.SourceRefs, want)
			break
		}
	}
}

func TestNewReportStartsPending(t *testing.T) {
	r, err := NewReport(testLocale, "Something happened.", "", nil, []string{"a"})
	if err != nil {
		t.Fatalf("NewReport: %v", err)
	}
	if r.Dedup != StatePending || r.Classify != StatePending {
		t.Errorf("states = (%s, %s), want both pending", r.Dedup, r.Classify)
	}
	if r.ID == "" {
		t.Error("missing ID")
	}
	if r.Settled() {
		t.Error("fresh report reports settled")
	}
}

func TestNewReportRejectsEmptyRefs(t *testing.T) {
	_, err := NewReport(testLocale, "Something happened.", "", nil, []string{"", "  "})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "source_refs" {
		t.Errorf("field = %q, want source_refs", verr.Field)
	}
}

func TestNewReportRejectsEmptyNarrative(t *testing.T) {
	_, err := NewReport(testLocale, "   ", "", nil, []string{"a"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSettled(t *testing.T) {
	r, _ := NewReport(testLocale, "n", "", nil, []string{"a"})
	r.Dedup = StateComplete
	if !r.Settled() {
		t.Error("complete non-duplicate not settled")
	}

	other := "other-id"
	r.DuplicateOf = &other
	if r.Settled() {
		t.Error("duplicate counts as settled")
	}
}

func TestNewFabricatedArticleRequiresClarification(t *testing.T) {
	_, err := NewFabricatedArticle(testLocale, time.Now(), "Headline", "Body", "", "local", nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "clarification" {
		t.Errorf("field = %q, want clarification", verr.Field)
	}

	a, err := NewFabricatedArticle(testLocale, time.Now(), "Headline", "Body", "Fictional.", "local", nil)
	if err != nil {
		t.Fatalf("NewFabricatedArticle: %v", err)
	}
	if a.Authenticity != Fabricated {
		t.Errorf("authenticity = %s, want fabricated", a.Authenticity)
	}
}

func TestNewArticleIsAuthentic(t *testing.T) {
	a, err := NewArticle(testLocale, time.Now(), "Headline", "Body", "politics", nil, []string{"rep"})
	if err != nil {
		t.Fatalf("NewArticle: %v", err)
	}
	if a.Authenticity != Authentic {
		t.Errorf("authenticity = %s, want authentic", a.Authenticity)
	}
	if a.Clarification != "" {
		t.Error("authentic article carries a clarification")
	}
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" Niche ")
	if err != nil || tier != TierNiche {
		t.Errorf("ParseTier = (%v, %v), want niche", tier, err)
	}
	if _, err := ParseTier("featured"); err == nil {
		t.Error("unknown tier accepted")
	}
}
