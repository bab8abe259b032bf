package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/graphloom/graphloom/internal/model"
)

// extractionSchema is the strict response shape for providers that support
// JSON-schema structured output.
var extractionSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "atomic_facts": {
      "type": "array",
      "description": "All atomic facts extracted from the input",
      "items": {
        "type": "object",
        "properties": {
          "key_elements": {
            "type": "array",
            "items": {"type": "string"},
            "description": "Essential nouns, verbs and adjectives pivotal to the fact"
          },
          "atomic_fact": {
            "type": "string",
            "description": "The smallest, indivisible fact as a concise sentence"
          }
        },
        "required": ["key_elements", "atomic_fact"],
        "additionalProperties": false
      }
    }
  },
  "required": ["atomic_facts"],
  "additionalProperties": false
}`)

// OpenAIProvider implements the Provider interface for OpenAI models
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	if err != nil {
		// Log the actual error for debugging (this helps users diagnose API key issues)
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// Extract runs the construction prompt over one chunk of input using the
// Chat Completions API with a strict JSON-schema response format.
func (p *OpenAIProvider) Extract(ctx context.Context, input string) (*model.Extraction, error) {
	modelName := p.config.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: constructionSystem,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt(input),
			},
		},
		// Smallest nonzero value: a plain 0 is dropped by omitempty and
		// the API would fall back to its default temperature.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "extraction",
				Schema: extractionSchema,
				Strict: true,
			},
		},
	}
	if p.config.MaxTokens > 0 {
		chatReq.MaxTokens = p.config.MaxTokens
	}

	return extractWithRetries(ctx, p.config.MaxRetries, func(ctx context.Context) (*model.Extraction, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp, err := p.client.CreateChatCompletion(callCtx, chatReq)
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no response from OpenAI")
		}
		return parseExtraction(resp.Choices[0].Message.Content)
	})
}
