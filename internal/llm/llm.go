package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohammad-safakhou/researcher/config"
)

// Provider abstracts the language model behind the pipeline.
type Provider interface {
	// Generate generates text for a prompt
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens generates text and returns input/output token usage
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// GetAvailableModels returns the configured model names
	GetAvailableModels() []string

	// GetModelInfo returns information about a specific model
	GetModelInfo(model string) (ModelInfo, error)

	// CalculateCost calculates the cost for a given number of tokens
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// ModelInfo describes a configured model
type ModelInfo struct {
	Name            string
	Provider        string
	MaxTokens       int
	CostPer1KInput  float64
	CostPer1KOutput float64
	Capabilities    []string
	Description     string
}

// NewProvider creates an LLM provider based on configuration
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	for _, provider := range cfg.Providers {
		switch provider.Type {
		case "openai":
			return NewOpenAIProvider(provider), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", provider.Type)
		}
	}

	return nil, fmt.Errorf("no valid LLM providers found")
}

// GenerateJSON runs a prompt that must yield a single JSON object and
// unmarshals it into out, returning input/output token usage. The first
// top-level object in the response is used; provider errors and
// malformed output are returned as-is for the caller to classify.
func GenerateJSON(ctx context.Context, p Provider, prompt string, model string, options map[string]interface{}, out any) (int64, int64, error) {
	if options == nil {
		options = map[string]interface{}{}
	}
	options["json_object"] = true
	resp, inTok, outTok, err := p.GenerateWithTokens(ctx, prompt, model, options)
	if err != nil {
		return inTok, outTok, err
	}
	raw := ExtractFirstJSON(resp)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return inTok, outTok, fmt.Errorf("malformed structured output: %w", err)
	}
	return inTok, outTok, nil
}

// ExtractFirstJSON attempts to find the first top-level JSON object in a string
func ExtractFirstJSON(s string) string {
	start := -1
	depth := 0
	for i, ch := range s {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}
