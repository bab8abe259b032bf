package extract

import "fmt"

// Token window geometry used when the configuration leaves it unset.
// Overlapping windows keep facts that straddle a boundary visible whole
// in at least one window.
const (
	DefaultChunkSize = 2000
	DefaultOverlap   = 200
)

// Encoder turns text into token ids and back. *tokenizer.Tokenizer
// satisfies it.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Splitter cuts a document into fixed-size token windows, consecutive
// windows sharing overlap tokens. The final window holds whatever
// remains; there is never a trailing window made of overlap alone.
type Splitter struct {
	enc       Encoder
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter. Non-positive sizes fall back to the
// defaults. The overlap must stay smaller than the window or the split
// would never advance.
func NewSplitter(enc Encoder, chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &Splitter{enc: enc, chunkSize: chunkSize, overlap: overlap}, nil
}

// Split returns the token windows of text decoded back to strings. Empty
// input yields no windows.
func (s *Splitter) Split(text string) []string {
	tokens := s.enc.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := s.chunkSize - s.overlap
	var windows []string
	for start := 0; start < len(tokens); start += stride {
		end := start + s.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		windows = append(windows, s.enc.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return windows
}
