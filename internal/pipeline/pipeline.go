// Package pipeline sequences the content stages across locales on each
// scheduled run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ohess/newsroom/internal/classify"
	"github.com/ohess/newsroom/internal/compose"
	"github.com/ohess/newsroom/internal/config"
	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/dedup"
	"github.com/ohess/newsroom/internal/domain"
	"github.com/ohess/newsroom/internal/fabricate"
	"github.com/ohess/newsroom/internal/ingest"
	"github.com/ohess/newsroom/internal/oracle"
	"github.com/ohess/newsroom/internal/source"
)

// StepResult describes a completed stage.
type StepResult struct {
	Name     string
	Summary  string
	Duration time.Duration
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps   []StepResult
	Elapsed time.Duration
}

// Deps are the collaborators a pipeline run drives. Tests swap in stubs.
type Deps struct {
	Source     source.Source
	Dedup      *dedup.Engine
	Classifier *classify.Coordinator
	Composer   *compose.Composer
	Balancer   *fabricate.Balancer
}

// Pipeline runs the staged content flow: ingest, reconcile, classify,
// publish. Stages execute strictly in order; within a stage all locales
// run concurrently and the stage completes only when every locale has
// settled. Locale failures are collected, not masked.
type Pipeline struct {
	db             *database.DB
	locales        []domain.Locale
	deps           Deps
	reconcileBatch int
}

// New wires a pipeline from config with LLM-backed oracles.
func New(cfg *config.Config, db *database.DB, provider oracle.Provider) *Pipeline {
	deps := Deps{
		Source: source.NewFeedSource(cfg.Locales),
		Dedup: dedup.NewEngine(db, oracle.NewLLMDedup(provider), dedup.Config{
			Window:         cfg.Pipeline.DedupWindow(),
			CorpusLimit:    cfg.Pipeline.CorpusLimit,
			MarkDuplicates: cfg.Pipeline.ReconcileMarksDuplicates,
		}),
		Classifier: classify.NewCoordinator(db, oracle.NewLLMClassifier(provider), cfg.Pipeline.ClassifyBatch),
		Composer:   compose.NewComposer(db, oracle.NewLLMComposer(provider), cfg.Pipeline.PublishBatch),
		Balancer: fabricate.NewBalancer(db, oracle.NewLLMFabricator(provider), fabricate.Config{
			MinBaseline: cfg.Fabrication.MinBaseline,
			SampleSize:  cfg.Fabrication.SampleSize,
			RealPerFake: cfg.Fabrication.RealPerFake,
			MaxPerRun:   cfg.Fabrication.MaxPerRun,
		}),
	}
	return NewWithDeps(db, cfg.DomainLocales(), cfg.Pipeline.ReconcileBatch, deps)
}

// NewWithDeps wires a pipeline from explicit collaborators.
func NewWithDeps(db *database.DB, locales []domain.Locale, reconcileBatch int, deps Deps) *Pipeline {
	if reconcileBatch <= 0 {
		reconcileBatch = 50
	}
	return &Pipeline{
		db:             db,
		locales:        locales,
		deps:           deps,
		reconcileBatch: reconcileBatch,
	}
}

// Run executes one full pipeline pass.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log.Printf("Pipeline run started for %d locales", len(p.locales))

	result := &Result{}

	if err := p.stage(ctx, result, "Ingest", p.runIngest); err != nil {
		return result, err
	}
	if err := p.stage(ctx, result, "Reconcile", p.runReconcile); err != nil {
		return result, err
	}
	if err := p.classifyStage(ctx, result); err != nil {
		return result, err
	}
	if err := p.stage(ctx, result, "Publish", p.runPublish); err != nil {
		return result, err
	}

	result.Elapsed = time.Since(start)
	log.Printf("Pipeline run finished in %s", result.Elapsed.Round(time.Second))
	return result, nil
}

// stage fans a step out across all locales and waits for every locale to
// settle before returning. Per-locale errors are joined into one.
func (p *Pipeline) stage(ctx context.Context, result *Result, name string, step func(context.Context, domain.Locale) (string, error)) error {
	start := time.Now()

	summaries := make([]string, len(p.locales))
	errs := make([]error, len(p.locales))

	var wg sync.WaitGroup
	for i, locale := range p.locales {
		wg.Add(1)
		go func(i int, locale domain.Locale) {
			defer wg.Done()
			summary, err := step(ctx, locale)
			if err != nil {
				log.Printf("[%s] %s failed: %v", locale.Key(), name, err)
				errs[i] = fmt.Errorf("[%s] %s: %w", locale.Key(), name, err)
				return
			}
			summaries[i] = fmt.Sprintf("%s: %s", locale.Key(), summary)
		}(i, locale)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	result.Steps = append(result.Steps, StepResult{
		Name:     name,
		Summary:  strings.Join(nonEmpty(summaries), "; "),
		Duration: time.Since(start),
	})
	return nil
}

func (p *Pipeline) classifyStage(ctx context.Context, result *Result) error {
	start := time.Now()
	r, err := p.deps.Classifier.Run(ctx)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	result.Steps = append(result.Steps, StepResult{
		Name:     "Classify",
		Summary:  fmt.Sprintf("%d classified, %d failed", r.Classified, r.Failed),
		Duration: time.Since(start),
	})
	return nil
}

// runIngest fetches fresh clusters, filters them, and resolves them
// against the recent corpus in merge mode.
func (p *Pipeline) runIngest(ctx context.Context, locale domain.Locale) (string, error) {
	clusters, err := p.deps.Source.Fetch(ctx, locale)
	if err != nil {
		return "", fmt.Errorf("fetching clusters: %w", err)
	}

	known, err := p.db.KnownSourceIDs(locale)
	if err != nil {
		return "", fmt.Errorf("loading known source ids: %w", err)
	}

	kept := ingest.Filter(clusters, known)

	var reports []*domain.Report
	for _, cluster := range kept {
		report, err := buildReport(locale, cluster)
		if err != nil {
			log.Printf("[%s] skipping malformed cluster: %v", locale.Key(), err)
			continue
		}
		reports = append(reports, report)
	}

	r, err := p.deps.Dedup.MergeBatch(ctx, locale, reports)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d clusters kept, %d created, %d merged", len(kept), r.Created, r.Merged), nil
}

func (p *Pipeline) runReconcile(ctx context.Context, locale domain.Locale) (string, error) {
	r, err := p.deps.Dedup.ReconcilePending(ctx, locale, p.reconcileBatch)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d settled, %d linked", r.Settled, r.Linked), nil
}

func (p *Pipeline) runPublish(ctx context.Context, locale domain.Locale) (string, error) {
	cr, err := p.deps.Composer.Run(ctx, locale)
	if err != nil {
		return "", err
	}
	fr, err := p.deps.Balancer.Run(ctx, locale)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d published, %d fabricated", cr.Published, fr.Generated), nil
}

// buildReport turns a filtered cluster into a pending report. The member
// with the most body text leads the narrative; the other members become
// angles.
func buildReport(locale domain.Locale, cluster domain.Cluster) (*domain.Report, error) {
	lead := 0
	for i, a := range cluster.Articles {
		if len(a.Body) > len(cluster.Articles[lead].Body) {
			lead = i
		}
	}

	leadArticle := cluster.Articles[lead]
	narrative := leadArticle.Body
	if strings.TrimSpace(narrative) == "" {
		narrative = leadArticle.Headline
	}

	var angles []domain.Angle
	var background []string
	for i, a := range cluster.Articles {
		if i == lead {
			continue
		}
		angleNarrative := firstWords(a.Body, 120)
		if angleNarrative == "" {
			angleNarrative = a.Headline
		}
		angles = append(angles, domain.Angle{
			Title:     a.Headline,
			Narrative: angleNarrative,
		})
		background = append(background, a.Headline)
	}

	return domain.NewReport(locale, narrative, strings.Join(background, " | "), angles, cluster.SourceIDs())
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
