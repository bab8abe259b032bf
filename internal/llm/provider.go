// Package llm hosts the provider boundary for atomic-fact extraction.
// Providers share one contract: feed a chunk of text through the
// construction prompt, get back a validated Extraction.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphloom/graphloom/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Extract runs the construction prompt over one chunk of input text
	// and returns the structured extraction
	Extract(ctx context.Context, input string) (*model.Extraction, error)

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (OpenAI-compatible proxies, Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxRetries bounds re-attempts on transient failures
	MaxRetries int

	// MaxTokens for response generation (0 = provider default)
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		Timeout:    120,
		MaxRetries: 2,
	}
}

// parseExtraction decodes a model reply into an Extraction, tolerating
// markdown fences around the JSON. Structural failures are tagged
// retryable: generation is not deterministic, so one more attempt is
// worthwhile.
func parseExtraction(raw string) (*model.Extraction, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var ex model.Extraction
	if err := json.Unmarshal([]byte(cleaned), &ex); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedOutput, err)
	}
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedOutput, err)
	}
	return &ex, nil
}
