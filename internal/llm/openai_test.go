package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

const extractionJSON = `{"atomic_facts":[{"key_elements":["INSAT-3D","imager"],"atomic_fact":"INSAT-3D carries a six channel imager."}]}`

func openaiSuccess(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:     "chatcmpl-123",
		Object: "chat.completion",
		Model:  "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{
			{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
	}
}

func TestOpenAIProvider_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		// The raw map sidesteps ChatCompletionRequest's interface-typed
		// schema field, which encoding/json cannot unmarshal into.
		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		format, _ := raw["response_format"].(map[string]interface{})
		if format["type"] != "json_schema" {
			t.Errorf("Expected a json_schema response format, got %v", raw["response_format"])
		}
		messages, _ := raw["messages"].([]interface{})
		if len(messages) != 2 {
			t.Errorf("Expected system and user messages, got %d", len(messages))
		} else {
			user, _ := messages[1].(map[string]interface{})
			if content, _ := user["content"].(string); !strings.Contains(content, "following input") {
				t.Errorf("Expected extraction prompt in user message, got %q", content)
			}
		}
		if _, ok := raw["temperature"]; !ok {
			t.Error("Expected temperature to be serialized")
		}

		_ = json.NewEncoder(w).Encode(openaiSuccess(extractionJSON))
	}))
	defer server.Close()

	config := Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	}
	provider, err := NewOpenAIProvider(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	extraction, err := provider.Extract(context.Background(), "INSAT-3D carries a six channel imager.")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(extraction.AtomicFacts) != 1 {
		t.Fatalf("Expected 1 atomic fact, got %d", len(extraction.AtomicFacts))
	}
	fact := extraction.AtomicFacts[0]
	if fact.Text != "INSAT-3D carries a six channel imager." {
		t.Errorf("Unexpected fact text: %q", fact.Text)
	}
	if len(fact.KeyElements) != 2 || fact.KeyElements[0] != "INSAT-3D" {
		t.Errorf("Unexpected key elements: %v", fact.KeyElements)
	}
}

func TestOpenAIProvider_Extract_FencedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fenced := "```json\n" + extractionJSON + "\n```"
		_ = json.NewEncoder(w).Encode(openaiSuccess(fenced))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	extraction, err := provider.Extract(context.Background(), "input")
	if err != nil {
		t.Fatalf("Extract failed on fenced JSON: %v", err)
	}
	if len(extraction.AtomicFacts) != 1 {
		t.Errorf("Expected 1 atomic fact, got %d", len(extraction.AtomicFacts))
	}
}

func TestOpenAIProvider_Extract_RetriesServerErrors(t *testing.T) {
	oldSleep := retrySleep
	var slept []time.Duration
	retrySleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { retrySleep = oldSleep }()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openaiSuccess(extractionJSON))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5, MaxRetries: 2})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	extraction, err := provider.Extract(context.Background(), "input")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if len(extraction.AtomicFacts) != 1 {
		t.Errorf("Expected 1 atomic fact, got %d", len(extraction.AtomicFacts))
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("Expected backoff of 1s then 2s, got %v", slept)
	}
}

func TestOpenAIProvider_Extract_MalformedOutputFailsAfterRetries(t *testing.T) {
	oldSleep := retrySleep
	retrySleep = func(time.Duration) {}
	defer func() { retrySleep = oldSleep }()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(openaiSuccess(`{"no_facts_here": true}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5, MaxRetries: 1})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Extract(context.Background(), "input")
	if err == nil {
		t.Fatal("Expected error for malformed output, got nil")
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("Expected 2 attempts for malformed output, got %d", n)
	}
}

func TestOpenAIProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}
