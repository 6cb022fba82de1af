// Package dedup decides whether incoming coverage duplicates reports the
// feed already carries, and resolves duplicates in two modes: merging a
// not-yet-persisted candidate into an existing report, or reconciling an
// already-persisted pending report against its neighbors.
package dedup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/domain"
	"github.com/ohess/newsroom/internal/oracle"
)

// Mode selects how a duplicate verdict is applied.
type Mode string

const (
	// ModeMerge folds a candidate's source refs into the matched report;
	// the candidate itself is never persisted.
	ModeMerge Mode = "merge"
	// ModeReconcile settles an existing pending report, linking it to
	// the matched report when one is found.
	ModeReconcile Mode = "reconcile"
)

// Engine drives duplicate resolution against the report store.
type Engine struct {
	db             *database.DB
	oracle         oracle.Dedup
	window         time.Duration
	corpusLimit    int
	markDuplicates bool
}

// Config holds engine tunables.
type Config struct {
	// Window bounds how far back the comparison corpus reaches.
	Window time.Duration
	// CorpusLimit caps the number of recent reports compared against.
	CorpusLimit int
	// MarkDuplicates controls reconcile behavior on a match: true links
	// the record as a duplicate, false completes it as independent.
	MarkDuplicates bool
}

// NewEngine creates a dedup engine.
func NewEngine(db *database.DB, dedupOracle oracle.Dedup, cfg Config) *Engine {
	if cfg.Window == 0 {
		cfg.Window = 48 * time.Hour
	}
	if cfg.CorpusLimit == 0 {
		cfg.CorpusLimit = 25
	}
	return &Engine{
		db:             db,
		oracle:         dedupOracle,
		window:         cfg.Window,
		corpusLimit:    cfg.CorpusLimit,
		markDuplicates: cfg.MarkDuplicates,
	}
}

// Candidate is a not-yet-persisted report being checked in merge mode.
type Candidate struct {
	Report *domain.Report
}

// Resolution is the outcome of resolving one candidate or record.
type Resolution struct {
	// DuplicateOf is the matched report ID, empty when none matched.
	DuplicateOf string
	// OracleFailed marks the oracle throwing; the item is treated as
	// novel and resolution continues.
	OracleFailed bool
}

// Resolve runs the duplicate check for one report in the given mode and
// applies the verdict. Oracle failures are absorbed (logged, flagged in
// the resolution); store failures are returned.
func (e *Engine) Resolve(ctx context.Context, mode Mode, report *domain.Report, corpus []domain.Report) (*Resolution, error) {
	res := &Resolution{}

	if len(corpus) > 0 {
		entries := corpusEntries(corpus)
		match, err := e.oracle.FindDuplicate(ctx,
			report.Locale.Country, report.Locale.Language,
			headlineOf(report), report.Narrative, entries)
		if err != nil {
			log.Printf("Dedup oracle failed for report %s: %v", report.ID, err)
			res.OracleFailed = true
		} else {
			res.DuplicateOf = match
		}
	}

	switch mode {
	case ModeMerge:
		if res.DuplicateOf != "" {
			if err := e.db.AddSourceRefs(res.DuplicateOf, report.SourceRefs); err != nil {
				return nil, fmt.Errorf("merging source refs into %s: %w", res.DuplicateOf, err)
			}
		}
	case ModeReconcile:
		if res.DuplicateOf != "" && e.markDuplicates {
			if err := e.db.MarkDuplicate(report.ID, res.DuplicateOf); err != nil {
				return nil, fmt.Errorf("marking %s duplicate: %w", report.ID, err)
			}
		} else {
			if err := e.db.CompleteDedup(report.ID); err != nil {
				return nil, fmt.Errorf("completing dedup for %s: %w", report.ID, err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown dedup mode %q", mode)
	}

	return res, nil
}

// MergeResult holds the results of a merge batch.
type MergeResult struct {
	Created int
	Merged  int
	Failed  int
}

// MergeBatch resolves freshly built reports against the recent corpus.
// Novel reports are persisted; duplicates fold their source refs into the
// matched report instead. Reports created earlier in the same batch join
// the corpus for later ones.
func (e *Engine) MergeBatch(ctx context.Context, locale domain.Locale, reports []*domain.Report) (*MergeResult, error) {
	since := time.Now().UTC().Add(-e.window)
	corpus, err := e.db.FindRecentSettled(locale, since, nil, e.corpusLimit)
	if err != nil {
		return nil, fmt.Errorf("loading dedup corpus: %w", err)
	}

	result := &MergeResult{}
	for _, report := range reports {
		res, err := e.Resolve(ctx, ModeMerge, report, corpus)
		if err != nil {
			return result, err
		}
		if res.OracleFailed {
			result.Failed++
		}
		if res.DuplicateOf != "" {
			result.Merged++
			log.Printf("Merged incoming coverage into report %s", res.DuplicateOf)
			continue
		}

		if err := e.db.CreateReport(report); err != nil {
			return result, fmt.Errorf("persisting report: %w", err)
		}
		corpus = append(corpus, *report)
		result.Created++
	}

	log.Printf("[%s] merge batch: %d created, %d merged, %d oracle failures",
		locale.Key(), result.Created, result.Merged, result.Failed)
	return result, nil
}

// ReconcileResult holds the results of a reconcile batch.
type ReconcileResult struct {
	Settled int
	Linked  int
	Failed  int
}

// ReconcilePending settles pending reports for a locale. Each report is
// compared against recent settled reports excluding itself; no match, an
// empty corpus, or an oracle failure all settle the report as
// independent so it cannot get stuck pending.
func (e *Engine) ReconcilePending(ctx context.Context, locale domain.Locale, batchSize int) (*ReconcileResult, error) {
	pending, err := e.db.FindPendingDedup(locale, batchSize)
	if err != nil {
		return nil, fmt.Errorf("loading pending reports: %w", err)
	}

	result := &ReconcileResult{}
	since := time.Now().UTC().Add(-e.window)
	for i := range pending {
		report := &pending[i]
		corpus, err := e.db.FindRecentSettled(locale, since, []string{report.ID}, e.corpusLimit)
		if err != nil {
			return result, fmt.Errorf("loading dedup corpus: %w", err)
		}

		res, err := e.Resolve(ctx, ModeReconcile, report, corpus)
		if err != nil {
			return result, err
		}
		if res.OracleFailed {
			result.Failed++
		}
		if res.DuplicateOf != "" && e.markDuplicates {
			result.Linked++
		} else {
			result.Settled++
		}
	}

	if len(pending) > 0 {
		log.Printf("[%s] reconcile: %d settled, %d linked, %d oracle failures",
			locale.Key(), result.Settled, result.Linked, result.Failed)
	}
	return result, nil
}

func corpusEntries(corpus []domain.Report) []oracle.CorpusEntry {
	entries := make([]oracle.CorpusEntry, len(corpus))
	for i, r := range corpus {
		entries[i] = oracle.CorpusEntry{
			ID:       r.ID,
			Headline: headlineOf(&r),
			Summary:  r.Narrative,
		}
	}
	return entries
}

// headlineOf derives a short label for a report from its first angle
// title, falling back to the narrative's first sentence.
func headlineOf(r *domain.Report) string {
	for _, a := range r.Angles {
		if a.Title != "" {
			return a.Title
		}
	}
	narrative := r.Narrative
	if idx := firstSentenceEnd(narrative); idx > 0 {
		narrative = narrative[:idx]
	}
	if len(narrative) > 120 {
		narrative = narrative[:120]
	}
	return narrative
}

func firstSentenceEnd(s string) int {
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			return i + 1
		}
	}
	return 0
}
