package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ohess/newsroom/internal/domain"
)

const fabricatePrompt = `You are generating a plausible but fictional news article for a %s/%s news feed.

The article must blend in with the real articles below in tone, length, and subject matter, but it must describe an invented event that did not happen. Do not reuse real names of private individuals. Write in the language of the feed.

Recent real articles:
%s

Respond with ONLY this JSON:
{
    "headline": "The fictional headline",
    "body": "The fictional article text, 2-4 paragraphs",
    "clarification": "One sentence, in English, explaining that and why this article is fictional",
    "category": "One of: politics, economy, technology, science, culture, sports, world, local",
    "insert_after_index": <index into the recent articles list this item should appear after, or -1 for the top>
}`

// Fabrication is a synthetic article produced to balance the feed.
// InsertAfter indexes the sample the article should be placed after;
// nil means the oracle gave no usable placement hint.
type Fabrication struct {
	Headline      string
	Body          string
	Clarification string
	Category      string
	InsertAfter   *int
}

// Fabricator generates synthetic articles styled after recent real ones.
// A nil fabrication with a nil error means the oracle answer was unusable.
type Fabricator interface {
	Fabricate(ctx context.Context, locale domain.Locale, samples []domain.Article) (*Fabrication, error)
}

// LLMFabricator fabricates articles via the oracle backend.
type LLMFabricator struct {
	provider Provider
}

// NewLLMFabricator creates a new LLM-backed fabricator.
func NewLLMFabricator(provider Provider) *LLMFabricator {
	return &LLMFabricator{provider: provider}
}

// Fabricate asks the oracle for a synthetic article styled after samples.
func (f *LLMFabricator) Fabricate(ctx context.Context, locale domain.Locale, samples []domain.Article) (*Fabrication, error) {
	if f.provider == nil {
		return nil, fmt.Errorf("no oracle provider available")
	}

	var lines []string
	for i, a := range samples {
		body := a.Body
		if len(body) > 400 {
			body = body[:400] + "..."
		}
		lines = append(lines, fmt.Sprintf("[%d] %s\n%s", i, a.Headline, body))
	}
	sampleText := strings.Join(lines, "\n\n")
	if sampleText == "" {
		sampleText = "None available; write a generic regional news item."
	}

	prompt := fmt.Sprintf(fabricatePrompt, locale.Country, locale.Language, sampleText)

	responseText, err := f.provider.Generate(ctx, prompt, 2048)
	if err != nil {
		return nil, err
	}

	parsed := ParseJSONResponse(responseText)
	if parsed == nil {
		return nil, nil
	}

	headline := stringField(parsed, "headline")
	body := stringField(parsed, "body")
	clarification := stringField(parsed, "clarification")
	if headline == "" || body == "" || clarification == "" {
		return nil, nil
	}

	return &Fabrication{
		Headline:      headline,
		Body:          body,
		Clarification: clarification,
		Category:      stringField(parsed, "category"),
		InsertAfter:   intField(parsed, "insert_after_index"),
	}, nil
}

func intField(m map[string]any, key string) *int {
	switch n := m[key].(type) {
	case float64:
		i := int(n)
		return &i
	case json.Number:
		if v, err := n.Int64(); err == nil {
			i := int(v)
			return &i
		}
	}
	return nil
}
