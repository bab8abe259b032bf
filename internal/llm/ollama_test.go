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
)

func ollamaSuccess(w http.ResponseWriter, response string) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"model":      "llama3.1:8b",
		"created_at": "2024-01-01T00:00:00Z",
		"response":   response,
		"done":       true,
	})
}

func TestOllamaProvider_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if raw["model"] != "llama3.1:8b" {
			t.Errorf("Expected model llama3.1:8b, got %v", raw["model"])
		}
		if raw["format"] != "json" {
			t.Errorf("Expected format json, got %v", raw["format"])
		}
		if raw["stream"] != false {
			t.Error("Expected stream to be false")
		}
		system, _ := raw["system"].(string)
		if !strings.Contains(system, "atomic facts") {
			t.Error("Expected construction prompt in system field")
		}
		options, _ := raw["options"].(map[string]interface{})
		if temp, ok := options["temperature"]; !ok || temp != float64(0) {
			t.Errorf("Expected temperature 0 in options, got %v", options)
		}

		ollamaSuccess(w, extractionJSON)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1:8b", Timeout: 5})
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
}

func TestOllamaProvider_Extract_RequiresModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{BaseURL: "http://localhost:11434"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Extract(context.Background(), "input")
	if err == nil {
		t.Fatal("Expected error when no model is configured")
	}
	if !strings.Contains(err.Error(), "model must be specified") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestOllamaProvider_Extract_UnknownModelNotRetried(t *testing.T) {
	oldSleep := retrySleep
	retrySleep = func(time.Duration) {}
	defer func() { retrySleep = oldSleep }()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'nope' not found, try pulling it first"}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "nope", Timeout: 5, MaxRetries: 3})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Extract(context.Background(), "input")
	if err == nil {
		t.Fatal("Expected error for unknown model, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected ollama message in error, got: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected a single attempt for a 404, got %d", n)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"models": [{"name": "llama3.1:8b"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Close()

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false when Ollama is unreachable")
	}
}
