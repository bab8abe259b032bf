package pdftext

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/ids"
	"github.com/graphloom/graphloom/internal/jsonl"
	"github.com/graphloom/graphloom/internal/model"
	"github.com/graphloom/graphloom/internal/worker"
)

// Config locates the processor's inputs and outputs.
type Config struct {
	LinksPath string // crawl artifact JSONL, one {pdf_url, source_page} per line
	OutPath   string // raw-text JSONL destination
	StoreDir  string // where downloaded PDFs are kept
	Workers   int    // concurrent downloads, minimum 1
}

// TokenCounter reports how many tokens a tokenizer sees in text.
type TokenCounter interface {
	Count(text string) int
}

// Stats summarizes one processing batch.
type Stats struct {
	Links     int // unique pdf_urls in the artifact file
	Processed int
	Failed    int
}

// Processor runs the download-extract-count stage over a crawl's PDF
// artifacts.
type Processor struct {
	cfg     Config
	dl      *Downloader
	counter TokenCounter
	logger  *zap.Logger

	// extractText is swapped out in tests.
	extractText func(path string) (string, error)
}

// NewProcessor wires a processor. Workers below 1 are raised to 1, which
// keeps output order matching the artifact file.
func NewProcessor(cfg Config, dl *Downloader, counter TokenCounter, logger *zap.Logger) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Processor{
		cfg:         cfg,
		dl:          dl,
		counter:     counter,
		logger:      logger,
		extractText: Text,
	}
}

// Run processes every unique PDF link: download (skipping files already in
// the store), extract text, count tokens, emit a raw-text record. Per-item
// failures are logged and skipped; the batch continues.
func (p *Processor) Run(ctx context.Context) (*Stats, error) {
	links, err := p.readLinks()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.cfg.StoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	p.logger.Info("Processing PDF links",
		zap.Int("unique", len(links)),
		zap.Int("workers", p.cfg.Workers))

	pool := worker.NewPool(p.cfg.Workers)
	pool.Start(ctx)
	defer pool.Shutdown()

	for _, link := range links {
		pool.Submit(&pdfJob{p: p, link: link})
	}

	w, err := jsonl.NewWriter(p.cfg.OutPath)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Links: len(links)}
	for _, res := range pool.Wait() {
		r := res.(*pdfResult)
		if r.err != nil {
			stats.Failed++
			p.logger.Warn("PDF processing failed",
				zap.String("url", r.url),
				zap.Error(r.err))
			continue
		}
		if err := w.Write(r.record); err != nil {
			w.Close()
			return nil, err
		}
		stats.Processed++
		p.logger.Info("PDF processed",
			zap.String("url", r.url),
			zap.Int("tokens", r.record.Tokens))
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return stats, nil
}

// readLinks loads the artifact file, dropping malformed lines and duplicate
// pdf_urls while preserving first-seen order.
func (p *Processor) readLinks() ([]model.PDFLink, error) {
	var links []model.PDFLink
	seen := make(map[string]struct{})
	err := jsonl.ForEach(p.cfg.LinksPath, func(line []byte, n int) error {
		var link model.PDFLink
		if err := json.Unmarshal(line, &link); err != nil {
			p.logger.Warn("Skipping malformed link record",
				zap.Int("line", n),
				zap.Error(err))
			return nil
		}
		if link.PDFURL == "" {
			p.logger.Warn("Skipping link record without pdf_url", zap.Int("line", n))
			return nil
		}
		if _, dup := seen[link.PDFURL]; dup {
			return nil
		}
		seen[link.PDFURL] = struct{}{}
		links = append(links, link)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (p *Processor) process(ctx context.Context, link model.PDFLink) (*model.TextRecord, error) {
	local, err := p.dl.Fetch(ctx, link.PDFURL)
	if err != nil {
		return nil, err
	}
	text, err := p.extractText(local)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text extracted from %s", LocalName(link.PDFURL))
	}
	return &model.TextRecord{
		ID:     ids.NewDocumentID(),
		URL:    link.PDFURL,
		Title:  baseName(link.PDFURL),
		Text:   text,
		Tokens: p.counter.Count(text),
	}, nil
}

type pdfJob struct {
	p    *Processor
	link model.PDFLink
}

func (j *pdfJob) Execute(ctx context.Context) worker.Result {
	rec, err := j.p.process(ctx, j.link)
	return &pdfResult{url: j.link.PDFURL, record: rec, err: err}
}

type pdfResult struct {
	url    string
	record *model.TextRecord
	err    error
}

func (r *pdfResult) Err() error { return r.err }
