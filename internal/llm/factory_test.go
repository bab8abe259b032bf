package llm

import (
	"strings"
	"testing"

	"github.com/graphloom/graphloom/internal/model"
)

func TestNewProvider_SelectsByName(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{"openai", "openai"},
		{"OpenAI", "openai"},
		{"anthropic", "anthropic"},
		{"claude", "anthropic"},
		{"ollama", "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, APIKey: "test-key"})
			if err != nil {
				t.Fatalf("NewProvider(%q) failed: %v", tt.provider, err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Expected provider %q, got %q", tt.wantName, p.Name())
			}
		})
	}
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	_, err := NewProvider(Config{Provider: "groq"})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewProvider_EmptyProvider(t *testing.T) {
	_, err := NewProvider(Config{})
	if err == nil {
		t.Fatal("Expected error when no provider is configured")
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM = model.LLMConfig{
		Provider:   "anthropic",
		Model:      "claude-3-5-sonnet-20241022",
		APIKey:     "test-key",
		BaseURL:    "http://localhost:9999",
		Timeout:    60,
		MaxRetries: 4,
		MaxTokens:  2048,
	}
	cfg.HTTP.HTTPProxy = "http://proxy.internal:3128"

	c := ConfigFromModel(cfg)
	if c.Provider != cfg.LLM.Provider || c.Model != cfg.LLM.Model || c.APIKey != cfg.LLM.APIKey {
		t.Errorf("Identity fields not carried over: %+v", c)
	}
	if c.BaseURL != cfg.LLM.BaseURL || c.Timeout != 60 || c.MaxRetries != 4 || c.MaxTokens != 2048 {
		t.Errorf("Tuning fields not carried over: %+v", c)
	}
	if c.HTTPProxy != "http://proxy.internal:3128" {
		t.Errorf("Proxy setting not carried over: %+v", c)
	}
}
