// Package compose turns settled, classified reports into reader-facing
// articles.
package compose

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/domain"
	"github.com/ohess/newsroom/internal/oracle"
)

const defaultBatchSize = 20

// Result holds the results of a compose run.
type Result struct {
	Published int
	Failed    int
}

// Composer publishes articles for reports that cleared dedup and
// classification. Archived reports are never picked up; a report that
// fails composition stays publishable for the next run.
type Composer struct {
	db        *database.DB
	oracle    oracle.Composer
	batchSize int
	now       func() time.Time
}

// NewComposer creates a composer.
func NewComposer(db *database.DB, composeOracle oracle.Composer, batchSize int) *Composer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Composer{
		db:        db,
		oracle:    composeOracle,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run composes one batch of publishable reports for a locale.
func (c *Composer) Run(ctx context.Context, locale domain.Locale) (*Result, error) {
	reports, err := c.db.FindPublishable(locale, c.batchSize)
	if err != nil {
		return nil, fmt.Errorf("loading publishable reports: %w", err)
	}

	if len(reports) == 0 {
		log.Printf("[%s] no reports ready to publish", locale.Key())
		return &Result{}, nil
	}

	result := &Result{}
	var articles []*domain.Article
	for i := range reports {
		report := &reports[i]

		composition, err := c.oracle.Compose(ctx, report)
		if err != nil {
			log.Printf("Compose oracle failed for report %s: %v", report.ID, err)
			result.Failed++
			continue
		}
		if composition == nil {
			log.Printf("Unusable composition for report %s", report.ID)
			result.Failed++
			continue
		}

		article, err := domain.NewArticle(locale, c.now().UTC(),
			composition.Headline, composition.Body, composition.Category,
			composition.Frames, []string{report.ID})
		if err != nil {
			log.Printf("Rejected composition for report %s: %v", report.ID, err)
			result.Failed++
			continue
		}
		articles = append(articles, article)
	}

	if len(articles) > 0 {
		if err := c.db.InsertArticles(articles); err != nil {
			return result, fmt.Errorf("persisting articles: %w", err)
		}
		result.Published = len(articles)
	}

	log.Printf("[%s] compose: %d published, %d failed", locale.Key(), result.Published, result.Failed)
	return result, nil
}
