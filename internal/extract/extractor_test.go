package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/ids"
	"github.com/graphloom/graphloom/internal/model"
)

// fakeProvider answers every window with one fact derived from the input
// and records what it was asked.
type fakeProvider struct {
	mu      sync.Mutex
	inputs  []string
	failOn  string
	failErr error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Extract(ctx context.Context, input string) (*model.Extraction, error) {
	p.mu.Lock()
	p.inputs = append(p.inputs, input)
	p.mu.Unlock()

	if p.failOn != "" && strings.Contains(input, p.failOn) {
		return nil, p.failErr
	}
	return &model.Extraction{
		AtomicFacts: []model.AtomicFact{
			{Text: "fact from " + input, KeyElements: []string{input}},
		},
	}, nil
}

func newTestExtractor(t *testing.T, provider *fakeProvider, chunkSize, overlap, workers int) *Extractor {
	t.Helper()
	splitter, err := NewSplitter(runeEncoder{}, chunkSize, overlap)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}
	return NewExtractor(provider, splitter, workers, zap.NewNop())
}

func TestExtractor_OrdersChunksAndAssignsIDs(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestExtractor(t, provider, 4, 2, 2)

	chunks, err := e.ExtractDocument(context.Background(), "abcdefgh")
	if err != nil {
		t.Fatalf("ExtractDocument failed: %v", err)
	}

	wantTexts := []string{"abcd", "cdef", "efgh"}
	if len(chunks) != len(wantTexts) {
		t.Fatalf("Expected %d chunks, got %d", len(wantTexts), len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("Chunk %d has index %d", i, c.Index)
		}
		if c.Text != wantTexts[i] {
			t.Errorf("Chunk %d text = %q, want %q", i, c.Text, wantTexts[i])
		}
		if c.ChunkID != ids.Content(wantTexts[i]) {
			t.Errorf("Chunk %d id = %q, want content hash of %q", i, c.ChunkID, wantTexts[i])
		}
		if len(c.Facts) != 1 {
			t.Fatalf("Chunk %d has %d facts, want 1", i, len(c.Facts))
		}
		fact := c.Facts[0]
		if fact.Text != "fact from "+wantTexts[i] {
			t.Errorf("Chunk %d fact text = %q", i, fact.Text)
		}
		if fact.ID != ids.Content(fact.Text) {
			t.Errorf("Chunk %d fact id = %q, want content hash of its text", i, fact.ID)
		}
	}

	if len(provider.inputs) != 3 {
		t.Errorf("Expected 3 provider calls, got %d", len(provider.inputs))
	}
}

func TestExtractor_OneFailedChunkFailsDocument(t *testing.T) {
	provider := &fakeProvider{failOn: "cdef", failErr: errors.New("model refused")}
	e := newTestExtractor(t, provider, 4, 2, 2)

	chunks, err := e.ExtractDocument(context.Background(), "abcdefgh")
	if err == nil {
		t.Fatal("Expected error when one chunk fails")
	}
	if chunks != nil {
		t.Errorf("Expected no chunks on failure, got %d", len(chunks))
	}
	if !strings.Contains(err.Error(), "extract chunk 1") {
		t.Errorf("Expected failing chunk index in error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "model refused") {
		t.Errorf("Expected provider error in chain, got: %v", err)
	}
}

func TestExtractor_EmptyDocument(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestExtractor(t, provider, 4, 2, 1)

	chunks, err := e.ExtractDocument(context.Background(), "")
	if err != nil {
		t.Fatalf("ExtractDocument failed: %v", err)
	}
	if chunks != nil {
		t.Errorf("Expected no chunks for empty text, got %v", chunks)
	}
	if len(provider.inputs) != 0 {
		t.Errorf("Expected no provider calls for empty text, got %d", len(provider.inputs))
	}
}

func TestExtractor_SingleWorkerProcessesAllWindows(t *testing.T) {
	provider := &fakeProvider{}
	e := newTestExtractor(t, provider, 4, 2, 1)

	chunks, err := e.ExtractDocument(context.Background(), "abcdefghij")
	if err != nil {
		t.Fatalf("ExtractDocument failed: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("Expected 4 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Index != chunks[i-1].Index+1 {
			t.Errorf("Chunk indexes out of order: %d after %d", chunks[i].Index, chunks[i-1].Index)
		}
	}
}
