// Package fabricate keeps a controlled share of synthetic articles in
// each locale's feed.
package fabricate

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/domain"
	"github.com/ohess/newsroom/internal/oracle"
)

// Config holds balancer tunables.
type Config struct {
	// MinBaseline is the published-article count below which no
	// synthetic content is blended in.
	MinBaseline int
	// SampleSize is how many recent articles the ratio is measured over.
	SampleSize int
	// RealPerFake is the target number of authentic articles per
	// fabricated one.
	RealPerFake int
	// MaxPerRun caps fabrications per run.
	MaxPerRun int
}

func (c *Config) applyDefaults() {
	if c.MinBaseline <= 0 {
		c.MinBaseline = 10
	}
	if c.SampleSize <= 0 {
		c.SampleSize = 10
	}
	if c.RealPerFake <= 0 {
		c.RealPerFake = 9
	}
	if c.MaxPerRun <= 0 {
		c.MaxPerRun = 3
	}
}

// Result holds the results of a balancing run.
type Result struct {
	Generated int
	Failed    int
}

// Balancer tops up a locale's feed with fabricated articles until the
// recent stream approaches one fabricated item per RealPerFake real ones.
type Balancer struct {
	db     *database.DB
	oracle oracle.Fabricator
	cfg    Config
	rng    *rand.Rand
	now    func() time.Time
}

// NewBalancer creates a fabrication balancer.
func NewBalancer(db *database.DB, fabricator oracle.Fabricator, cfg Config) *Balancer {
	cfg.applyDefaults()
	return &Balancer{
		db:     db,
		oracle: fabricator,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// Run measures the authenticity ratio over the locale's recent articles
// and generates fabrications to close the gap. Oracle failures skip the
// iteration; persisting the generated batch is the only fatal failure.
func (b *Balancer) Run(ctx context.Context, locale domain.Locale) (*Result, error) {
	total, err := b.db.CountArticles(locale)
	if err != nil {
		return nil, fmt.Errorf("counting articles: %w", err)
	}
	if total < b.cfg.MinBaseline {
		log.Printf("[%s] %d articles, below fabrication baseline of %d", locale.Key(), total, b.cfg.MinBaseline)
		return &Result{}, nil
	}

	recent, err := b.db.RecentArticles(locale, b.cfg.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("sampling recent articles: %w", err)
	}

	fake := 0
	for _, a := range recent {
		if a.Authenticity == domain.Fabricated {
			fake++
		}
	}
	real := len(recent) - fake

	// ceil(real / RealPerFake)
	desired := (real + b.cfg.RealPerFake - 1) / b.cfg.RealPerFake
	n := desired - fake
	if n < 0 {
		n = 0
	}
	if n > b.cfg.MaxPerRun {
		n = b.cfg.MaxPerRun
	}
	if n == 0 {
		return &Result{}, nil
	}

	log.Printf("[%s] ratio %d fake / %d real in sample, generating %d", locale.Key(), fake, real, n)

	result := &Result{}
	var articles []*domain.Article
	for i := 0; i < n; i++ {
		fab, err := b.oracle.Fabricate(ctx, locale, recent)
		if err != nil {
			log.Printf("Fabrication oracle failed: %v", err)
			result.Failed++
			continue
		}
		if fab == nil {
			log.Printf("Unusable fabrication answer")
			result.Failed++
			continue
		}

		article, err := domain.NewFabricatedArticle(locale,
			b.placeTimestamp(fab.InsertAfter, recent),
			fab.Headline, fab.Body, fab.Clarification, fab.Category, nil)
		if err != nil {
			log.Printf("Rejected fabrication: %v", err)
			result.Failed++
			continue
		}
		articles = append(articles, article)
	}

	if len(articles) > 0 {
		if err := b.db.InsertArticles(articles); err != nil {
			return result, fmt.Errorf("persisting fabricated articles: %w", err)
		}
		result.Generated = len(articles)
	}

	log.Printf("[%s] fabrication: %d generated, %d failed", locale.Key(), result.Generated, result.Failed)
	return result, nil
}

// placeTimestamp slots a fabricated article into the recent stream. With
// a placement hint it lands 2-10 minutes after the anchor article,
// clamped to just before now; without one it lands at a random point in
// the last 24 hours.
func (b *Balancer) placeTimestamp(insertAfter *int, recent []domain.Article) time.Time {
	now := b.now().UTC()

	if insertAfter != nil && len(recent) > 0 {
		idx := *insertAfter
		if idx < -1 {
			idx = -1
		}
		if idx > len(recent)-1 {
			idx = len(recent) - 1
		}

		base := recent[0].PublishedAt
		if idx >= 0 {
			base = recent[idx].PublishedAt
		}

		// strictly between 2 and 10 minutes
		offset := time.Duration(121+b.rng.Intn(479)) * time.Second
		ts := base.Add(offset)
		if ts.After(now) {
			ts = now.Add(-time.Minute)
		}
		return ts
	}

	return now.Add(-time.Duration(b.rng.Int63n(int64(24 * time.Hour))))
}
