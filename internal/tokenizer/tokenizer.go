// Package tokenizer wraps the BPE encodings used for token accounting.
// Counts are exact model-tokenizer counts, not estimates: downstream
// budgets (chunk packing, extraction windows) depend on them matching what
// the model will see.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Raw-text records are counted with cl100k_base; the preprocessor counts
// with the chat model's own encoding.
const (
	EncodingCL100K = "cl100k_base"
	ModelGPT35     = "gpt-3.5-turbo"
)

// Tokenizer counts and slices text by BPE tokens.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// ForEncoding returns a tokenizer for a named encoding.
func ForEncoding(name string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", name, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// ForModel returns a tokenizer using the encoding of a named model.
func ForModel(model string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load encoding for model %s: %w", model, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Encode returns the token ids of text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode reconstructs text from token ids.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
