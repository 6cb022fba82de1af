package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ohess/newsroom/internal/domain"
)

const composePrompt = `You are a news editor writing a reader-facing article for a %s/%s news feed.

Turn the report below into a finished article. Write in the language of the feed. Stay strictly within the facts of the report; do not invent details.

Narrative: %s
Background: %s
Additional angles:
%s

Respond with ONLY this JSON:
{
    "headline": "A concise, factual headline",
    "body": "The full article text, 2-4 paragraphs",
    "category": "One of: politics, economy, technology, science, culture, sports, world, local",
    "frames": ["up to 3 short framing tags, e.g. 'follow-up', 'analysis', 'breaking'"]
}`

// Composition is the reader-facing rendering of a report.
type Composition struct {
	Headline string
	Body     string
	Category string
	Frames   []string
}

// Composer turns a settled, classified report into a publishable article.
// A nil composition with a nil error means the oracle answer was unusable.
type Composer interface {
	Compose(ctx context.Context, report *domain.Report) (*Composition, error)
}

// LLMComposer composes articles via the oracle backend.
type LLMComposer struct {
	provider Provider
}

// NewLLMComposer creates a new LLM-backed composer.
func NewLLMComposer(provider Provider) *LLMComposer {
	return &LLMComposer{provider: provider}
}

// Compose asks the oracle to write the article for a report.
func (c *LLMComposer) Compose(ctx context.Context, report *domain.Report) (*Composition, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("no oracle provider available")
	}

	var angleLines []string
	for _, a := range report.Angles {
		line := "- "
		if a.Title != "" {
			line += a.Title + ": "
		}
		line += a.Narrative
		angleLines = append(angleLines, line)
	}
	angles := strings.Join(angleLines, "\n")
	if angles == "" {
		angles = "None"
	}

	prompt := fmt.Sprintf(composePrompt,
		report.Locale.Country, report.Locale.Language,
		report.Narrative, report.Background, angles)

	responseText, err := c.provider.Generate(ctx, prompt, 2048)
	if err != nil {
		return nil, err
	}

	parsed := ParseJSONResponse(responseText)
	if parsed == nil {
		return nil, nil
	}

	headline := stringField(parsed, "headline")
	body := stringField(parsed, "body")
	if headline == "" || body == "" {
		return nil, nil
	}

	return &Composition{
		Headline: headline,
		Body:     body,
		Category: stringField(parsed, "category"),
		Frames:   stringList(parsed, "frames", 3),
	}, nil
}

func stringList(m map[string]any, key string, limit int) []string {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range arr {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
		if len(out) == limit {
			break
		}
	}
	return out
}
