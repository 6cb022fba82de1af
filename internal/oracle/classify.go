package oracle

import (
	"context"
	"fmt"

	"github.com/ohess/newsroom/internal/domain"
)

const classifyPrompt = `You are an editorial classifier for a news feed.

Assign the report below to exactly one tier:

standard - mainstream news of broad interest: politics, economy, major events, public safety, widely followed stories.
niche - legitimate news with a narrow audience: local interest, specialist topics, industry-specific coverage.
archived - stale, trivial, or low-value items that should not be published: outdated stories, gossip, listicles, content with no news value.

Headline: %s
Summary: %s

Respond with ONLY this JSON:
{
    "tier": "standard" | "niche" | "archived",
    "reason": "One sentence explaining the tier"
}`

// Verdict is the editorial tier assigned to a report.
type Verdict struct {
	Tier   domain.Tier
	Reason string
}

// Classifier assigns an editorial tier to a report. A nil verdict with a
// nil error means the oracle answered but the answer was unusable.
type Classifier interface {
	Classify(ctx context.Context, headline, summary string) (*Verdict, error)
}

// LLMClassifier classifies reports via the oracle backend.
type LLMClassifier struct {
	provider Provider
}

// NewLLMClassifier creates a new LLM-backed classifier.
func NewLLMClassifier(provider Provider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

// Classify asks the oracle for an editorial tier.
func (c *LLMClassifier) Classify(ctx context.Context, headline, summary string) (*Verdict, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("no oracle provider available")
	}

	if len(summary) > 1500 {
		summary = summary[:1500] + "..."
	}

	prompt := fmt.Sprintf(classifyPrompt, headline, summary)

	responseText, err := c.provider.Generate(ctx, prompt, 256)
	if err != nil {
		return nil, err
	}

	parsed := ParseJSONResponse(responseText)
	if parsed == nil {
		return nil, nil
	}

	tier, err := domain.ParseTier(stringField(parsed, "tier"))
	if err != nil {
		return nil, nil
	}

	return &Verdict{Tier: tier, Reason: stringField(parsed, "reason")}, nil
}
