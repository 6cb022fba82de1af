// Package classify assigns editorial tiers to settled reports.
package classify

import (
	"context"
	"fmt"
	"log"

	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/domain"
	"github.com/ohess/newsroom/internal/oracle"
)

const defaultBatchSize = 50

// Result holds the results of a classification run.
type Result struct {
	Classified int
	Failed     int
}

// Coordinator classifies pending reports in batches. Reports whose
// classification fails stay pending and are retried on the next run.
type Coordinator struct {
	db        *database.DB
	oracle    oracle.Classifier
	batchSize int
}

// NewCoordinator creates a classification coordinator.
func NewCoordinator(db *database.DB, classifier oracle.Classifier, batchSize int) *Coordinator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Coordinator{db: db, oracle: classifier, batchSize: batchSize}
}

// Run classifies one batch of settled, unclassified reports across all
// locales. Oracle failures are counted and leave the report pending;
// store failures abort the run.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	pending, err := c.db.FindPendingClassification(c.batchSize)
	if err != nil {
		return nil, fmt.Errorf("loading unclassified reports: %w", err)
	}

	if len(pending) == 0 {
		log.Println("No reports pending classification")
		return &Result{}, nil
	}

	result := &Result{}
	for i := range pending {
		report := &pending[i]

		verdict, err := c.oracle.Classify(ctx, headline(report), report.Narrative)
		if err != nil {
			log.Printf("Classification oracle failed for report %s: %v", report.ID, err)
			result.Failed++
			continue
		}
		if verdict == nil {
			log.Printf("Unusable classification answer for report %s", report.ID)
			result.Failed++
			continue
		}

		if err := c.db.SetTier(report.ID, verdict.Tier); err != nil {
			return result, fmt.Errorf("storing tier for %s: %w", report.ID, err)
		}
		result.Classified++
		log.Printf("Classified [%s]: %s", verdict.Tier, headline(report))
	}

	log.Printf("Classification complete: %d classified, %d failed (retried next run)",
		result.Classified, result.Failed)
	return result, nil
}

func headline(r *domain.Report) string {
	for _, a := range r.Angles {
		if a.Title != "" {
			return a.Title
		}
	}
	n := r.Narrative
	if len(n) > 120 {
		n = n[:120]
	}
	return n
}
