package oracle

import (
	"context"
	"fmt"
	"strings"
)

const dedupPrompt = `You are deduplicating news reports for a %s/%s news feed.

A NEW report is compared against RECENT reports already in the feed. Two reports are duplicates when they describe the same underlying news event, even if the wording differs. Reports about distinct events on the same broad topic are NOT duplicates.

NEW report:
Headline: %s
Summary: %s

RECENT reports:
%s

Respond with ONLY this JSON:
{
    "duplicate_of": "<id of the matching recent report, or empty string if none>"
}`

// CorpusEntry is one recent report a candidate is compared against.
type CorpusEntry struct {
	ID       string
	Headline string
	Summary  string
}

// Dedup decides whether a candidate report duplicates a recent one.
// It returns the matching corpus ID, or "" when the candidate is novel.
type Dedup interface {
	FindDuplicate(ctx context.Context, country, language, headline, summary string, corpus []CorpusEntry) (string, error)
}

// LLMDedup resolves duplicates via the oracle backend.
type LLMDedup struct {
	provider Provider
}

// NewLLMDedup creates a new LLM-backed dedup oracle.
func NewLLMDedup(provider Provider) *LLMDedup {
	return &LLMDedup{provider: provider}
}

// FindDuplicate asks the oracle which corpus entry, if any, the candidate
// duplicates. IDs not present in the corpus are treated as no match.
func (d *LLMDedup) FindDuplicate(ctx context.Context, country, language, headline, summary string, corpus []CorpusEntry) (string, error) {
	if d.provider == nil {
		return "", fmt.Errorf("no oracle provider available")
	}
	if len(corpus) == 0 {
		return "", nil
	}

	known := make(map[string]bool, len(corpus))
	var lines []string
	for _, e := range corpus {
		known[e.ID] = true
		s := e.Summary
		if len(s) > 300 {
			s = s[:300] + "..."
		}
		lines = append(lines, fmt.Sprintf("- id: %s\n  headline: %s\n  summary: %s", e.ID, e.Headline, s))
	}

	if len(summary) > 1000 {
		summary = summary[:1000] + "..."
	}

	prompt := fmt.Sprintf(dedupPrompt, country, language, headline, summary, strings.Join(lines, "\n"))

	responseText, err := d.provider.Generate(ctx, prompt, 256)
	if err != nil {
		return "", err
	}

	parsed := ParseJSONResponse(responseText)
	if parsed == nil {
		return "", fmt.Errorf("unparseable dedup response")
	}

	id := stringField(parsed, "duplicate_of")
	if id == "" || !known[id] {
		return "", nil
	}
	return id, nil
}
