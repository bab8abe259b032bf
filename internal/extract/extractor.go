// Package extract fans documents through the construction prompt: token
// windows go out to the LLM provider concurrently and come back as
// ordered chunk extractions ready for graph import.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/ids"
	"github.com/graphloom/graphloom/internal/llm"
	"github.com/graphloom/graphloom/internal/model"
	"github.com/graphloom/graphloom/internal/worker"
)

// Extractor runs the construction prompt over every window of a document.
type Extractor struct {
	provider llm.Provider
	splitter *Splitter
	workers  int
	logger   *zap.Logger
}

// NewExtractor creates an extractor running up to workers concurrent
// provider calls per document.
func NewExtractor(provider llm.Provider, splitter *Splitter, workers int, logger *zap.Logger) *Extractor {
	if workers <= 0 {
		workers = 1
	}
	return &Extractor{
		provider: provider,
		splitter: splitter,
		workers:  workers,
		logger:   logger,
	}
}

// chunkJob carries one window through the provider.
type chunkJob struct {
	index    int
	text     string
	provider llm.Provider
}

// chunkResult is the outcome for one window, tagged with its position so
// completion order does not matter.
type chunkResult struct {
	index int
	text  string
	facts []model.AtomicFact
	err   error
}

func (r *chunkResult) Err() error { return r.err }

func (j *chunkJob) Execute(ctx context.Context) worker.Result {
	extraction, err := j.provider.Extract(ctx, j.text)
	if err != nil {
		return &chunkResult{index: j.index, text: j.text, err: err}
	}
	return &chunkResult{index: j.index, text: j.text, facts: extraction.AtomicFacts}
}

// ExtractDocument splits text into token windows and extracts each one
// concurrently. All-or-nothing: one failed window fails the whole
// document, so a partially extracted document never reaches the graph.
func (e *Extractor) ExtractDocument(ctx context.Context, text string) ([]model.ChunkExtraction, error) {
	windows := e.splitter.Split(text)
	if len(windows) == 0 {
		return nil, nil
	}
	e.logger.Info("Extracting document",
		zap.Int("chunks", len(windows)),
		zap.Int("workers", e.workers),
		zap.String("provider", e.provider.Name()),
	)

	pool := worker.NewPool(e.workers)
	pool.Start(ctx)
	for i, window := range windows {
		pool.Submit(&chunkJob{index: i, text: window, provider: e.provider})
	}
	results := pool.Wait()

	ordered := make([]*chunkResult, len(windows))
	for _, res := range results {
		cr := res.(*chunkResult)
		ordered[cr.index] = cr
	}

	out := make([]model.ChunkExtraction, len(windows))
	for i, cr := range ordered {
		if cr == nil {
			// A cancelled pool drops queued jobs without a result.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("chunk %d never returned a result", i)
		}
		if cr.err != nil {
			return nil, fmt.Errorf("extract chunk %d: %w", i, cr.err)
		}
		facts := make([]model.AtomicFact, len(cr.facts))
		copy(facts, cr.facts)
		for j := range facts {
			facts[j].ID = ids.Content(facts[j].Text)
		}
		out[i] = model.ChunkExtraction{
			ChunkID: ids.Content(cr.text),
			Text:    cr.text,
			Index:   i,
			Facts:   facts,
		}
	}
	return out, nil
}
