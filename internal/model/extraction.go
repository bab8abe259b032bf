package model

import "errors"

var (
	ErrMissingFacts = errors.New("extraction has no atomic_facts field")
	ErrEmptyFact    = errors.New("extraction contains an empty atomic fact")
)

// AtomicFact is one indivisible fact sentence with the key elements that
// appear in it. The JSON shape is exactly what the model is asked to
// produce.
type AtomicFact struct {
	ID          string   `json:"id,omitempty"` // md5 of Text, assigned after extraction
	Text        string   `json:"atomic_fact"`  // The fact as a concise sentence
	KeyElements []string `json:"key_elements"` // Essential nouns, verbs and adjectives
}

// Extraction is the model's full answer for one chunk of input text
type Extraction struct {
	AtomicFacts []AtomicFact `json:"atomic_facts"`
}

// Validate rejects structurally non-conforming model output. Called at the
// provider boundary so malformed generations surface as errors, never as
// silently empty graphs.
func (e *Extraction) Validate() error {
	if e.AtomicFacts == nil {
		return ErrMissingFacts
	}
	for i := range e.AtomicFacts {
		if e.AtomicFacts[i].Text == "" {
			return ErrEmptyFact
		}
	}
	return nil
}

// ChunkExtraction pairs one window of document text with its extraction
// result, ready for graph import
type ChunkExtraction struct {
	ChunkID string       // md5 of Text
	Text    string       // The chunk text itself
	Index   int          // 0-based position within the document
	Facts   []AtomicFact // Extracted facts, ids assigned
}
