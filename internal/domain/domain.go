package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports a malformed domain value at construction time.
// Values that fail validation are never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Locale identifies a target market by country and language.
type Locale struct {
	Country  string
	Language string
}

// Key returns the canonical lowercase form, e.g. "us-en".
func (l Locale) Key() string {
	return strings.ToLower(l.Country + "-" + l.Language)
}

// State tracks a one-way pending -> complete transition.
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
)

// Tier is the editorial priority assigned during classification.
type Tier string

const (
	TierStandard Tier = "standard"
	TierNiche    Tier = "niche"
	TierArchived Tier = "archived"
)

// ParseTier validates a tier string coming from outside the process.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierStandard:
		return TierStandard, nil
	case TierNiche:
		return TierNiche, nil
	case TierArchived:
		return TierArchived, nil
	}
	return "", &ValidationError{Field: "tier", Reason: fmt.Sprintf("unknown tier %q", s)}
}

// Authenticity marks a published article as real coverage or synthetic.
type Authenticity string

const (
	Authentic  Authenticity = "authentic"
	Fabricated Authenticity = "fabricated"
)

// SourceArticle is one member of a raw upstream cluster. The ID is an
// opaque external identifier (typically the article URL).
type SourceArticle struct {
	ID       string
	Headline string
	Body     string
}

// Cluster is a group of source articles believed to cover one event.
type Cluster struct {
	Articles    []SourceArticle
	PublishedAt time.Time
}

// SourceIDs returns the member article identifiers in order.
func (c Cluster) SourceIDs() []string {
	ids := make([]string, len(c.Articles))
	for i, a := range c.Articles {
		ids[i] = a.ID
	}
	return ids
}

// Angle is an independent-viewpoint narrative extracted from a cluster.
type Angle struct {
	Title     string `json:"title,omitempty"`
	Narrative string `json:"narrative"`
}

// Report is the persisted unit of news coverage. Reports are created
// pending on both axes and settle exactly once; duplicates stay around
// as inert linked records.
type Report struct {
	ID          string
	Locale      Locale
	Narrative   string
	Background  string
	Angles      []Angle
	SourceRefs  []string
	Dedup       State
	DuplicateOf *string
	Tier        *Tier
	Classify    State
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReport builds a pending report. At least one source reference is
// required; repeated references are dropped keeping first-seen order.
func NewReport(locale Locale, narrative, background string, angles []Angle, sourceRefs []string) (*Report, error) {
	refs := dedupeRefs(sourceRefs)
	if len(refs) == 0 {
		return nil, &ValidationError{Field: "source_refs", Reason: "at least one source reference required"}
	}
	if strings.TrimSpace(narrative) == "" {
		return nil, &ValidationError{Field: "narrative", Reason: "must not be empty"}
	}

	now := time.Now().UTC()
	return &Report{
		ID:         uuid.New().String(),
		Locale:     locale,
		Narrative:  narrative,
		Background: background,
		Angles:     angles,
		SourceRefs: refs,
		Dedup:      StatePending,
		Classify:   StatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Settled reports true when deduplication completed without the report
// being linked as a duplicate of another.
func (r *Report) Settled() bool {
	return r.Dedup == StateComplete && r.DuplicateOf == nil
}

// Article is a reader-facing content unit, either derived from one or
// more reports or fully synthetic.
type Article struct {
	ID            string
	Locale        Locale
	PublishedAt   time.Time
	Authenticity  Authenticity
	Clarification string
	Headline      string
	Body          string
	Category      string
	Frames        []string
	ReportIDs     []string
}

// NewArticle builds an authentic article derived from the given reports.
func NewArticle(locale Locale, publishedAt time.Time, headline, body, category string, frames, reportIDs []string) (*Article, error) {
	if strings.TrimSpace(headline) == "" {
		return nil, &ValidationError{Field: "headline", Reason: "must not be empty"}
	}
	if strings.TrimSpace(body) == "" {
		return nil, &ValidationError{Field: "body", Reason: "must not be empty"}
	}

	return &Article{
		ID:           uuid.New().String(),
		Locale:       locale,
		PublishedAt:  publishedAt.UTC(),
		Authenticity: Authentic,
		Headline:     headline,
		Body:         body,
		Category:     category,
		Frames:       frames,
		ReportIDs:    reportIDs,
	}, nil
}

// NewFabricatedArticle builds a synthetic article. The clarification
// explaining the fabrication is mandatory.
func NewFabricatedArticle(locale Locale, publishedAt time.Time, headline, body, clarification, category string, frames []string) (*Article, error) {
	if strings.TrimSpace(clarification) == "" {
		return nil, &ValidationError{Field: "clarification", Reason: "fabricated articles require a clarification"}
	}
	if strings.TrimSpace(headline) == "" {
		return nil, &ValidationError{Field: "headline", Reason: "must not be empty"}
	}
	if strings.TrimSpace(body) == "" {
		return nil, &ValidationError{Field: "body", Reason: "must not be empty"}
	}

	return &Article{
		ID:            uuid.New().String(),
		Locale:        locale,
		PublishedAt:   publishedAt.UTC(),
		Authenticity:  Fabricated,
		Clarification: clarification,
		Headline:      headline,
		Body:          body,
		Category:      category,
		Frames:        frames,
	}, nil
}

func dedupeRefs(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	var out []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}
