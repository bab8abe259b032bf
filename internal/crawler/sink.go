package crawler

import (
	"github.com/graphloom/graphloom/internal/fetch"
	"github.com/graphloom/graphloom/internal/ids"
	"github.com/graphloom/graphloom/internal/jsonl"
	"github.com/graphloom/graphloom/internal/model"
)

// JSONLSink appends each discovered link to a JSON-lines file immediately,
// so an interrupted crawl keeps everything found so far.
type JSONLSink struct {
	path string
}

// NewJSONLSink records links into the file at path, creating it on first
// write.
func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

// Record appends one link.
func (s *JSONLSink) Record(link model.PDFLink) error {
	return jsonl.Append(s.path, link)
}

// TokenCounter measures text length in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// PageCapture writes each successfully fetched page as a raw-text record.
// Pages captured this way are preprocessed exactly like extracted PDF
// text.
type PageCapture struct {
	w       *jsonl.Writer
	counter TokenCounter
}

// NewPageCapture opens (and truncates) the output file at path.
func NewPageCapture(path string, counter TokenCounter) (*PageCapture, error) {
	w, err := jsonl.NewWriter(path)
	if err != nil {
		return nil, err
	}
	return &PageCapture{w: w, counter: counter}, nil
}

// Capture emits one record per page. Pages with no markdown rendering are
// skipped silently: there is nothing to preprocess.
func (p *PageCapture) Capture(res fetch.PageResult) error {
	if res.Markdown == "" {
		return nil
	}
	title := res.Title
	if title == "" {
		title = res.URL
	}
	return p.w.Write(model.TextRecord{
		ID:     ids.NewDocumentID(),
		URL:    res.URL,
		Title:  title,
		Text:   res.Markdown,
		Tokens: p.counter.Count(res.Markdown),
	})
}

// Close flushes the capture file.
func (p *PageCapture) Close() error {
	return p.w.Close()
}
