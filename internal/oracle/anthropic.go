package oracle

import (
	"context"
	"fmt"
	"os"

	"github.com/aktagon/llmkit/anthropic/agents"
)

// AnthropicProvider is an Anthropic API provider backed by llmkit.
type AnthropicProvider struct {
	agent *agents.ChatAgent
}

// NewAnthropicProvider creates a new Anthropic provider. The agent is nil
// when the API key env var is unset or agent construction fails.
func NewAnthropicProvider(apiKeyEnv string) *AnthropicProvider {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return &AnthropicProvider{}
	}
	agent, err := agents.New(apiKey)
	if err != nil {
		return &AnthropicProvider{}
	}
	return &AnthropicProvider{agent: agent}
}

// IsConfigured checks if the agent was created.
func (a *AnthropicProvider) IsConfigured() bool {
	return a.agent != nil
}

// Generate sends a prompt to Anthropic and returns the response.
func (a *AnthropicProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if a.agent == nil {
		return "", fmt.Errorf("Anthropic API key not configured")
	}

	response, err := a.agent.Chat(prompt, &agents.ChatOptions{
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	return response.Text, nil
}
