package preprocess

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/jsonl"
	"github.com/graphloom/graphloom/internal/model"
)

// Config locates the preprocessor's input and output and sets the chunk
// budget.
type Config struct {
	InPath       string
	OutPath      string
	TargetTokens int  // chunk budget, default 512
	Overshoot    bool // reproduce legacy at-or-over chunk closing
}

// Stats summarizes one preprocessing run.
type Stats struct {
	Documents int // records that produced chunks
	Skipped   int // malformed or empty records
	Chunks    int
}

// Preprocessor rewrites a raw-text JSONL into LLM-ready chunk records.
type Preprocessor struct {
	cfg     Config
	counter TokenCounter
	logger  *zap.Logger
}

// New wires a preprocessor. A non-positive budget falls back to 512.
func New(cfg Config, counter TokenCounter, logger *zap.Logger) *Preprocessor {
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = 512
	}
	return &Preprocessor{cfg: cfg, counter: counter, logger: logger}
}

// Run streams the input, emitting one record per chunk. Chunk ids are
// "{url}#chunk-{n}", numbered from 1 within each section. Records missing
// a url or text are skipped, as are lines that fail to decode.
func (p *Preprocessor) Run() (*Stats, error) {
	w, err := jsonl.NewWriter(p.cfg.OutPath)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	err = jsonl.ForEach(p.cfg.InPath, func(line []byte, n int) error {
		var rec model.TextRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Skipped++
			p.logger.Warn("Skipping malformed text record",
				zap.Int("line", n),
				zap.Error(err))
			return nil
		}
		if rec.URL == "" || rec.Text == "" {
			stats.Skipped++
			return nil
		}

		written, err := p.processRecord(w, &rec)
		if err != nil {
			return err
		}
		stats.Documents++
		stats.Chunks += written
		p.logger.Debug("Document chunked",
			zap.String("url", rec.URL),
			zap.Int("chunks", written))
		return nil
	})
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (p *Preprocessor) processRecord(w *jsonl.Writer, rec *model.TextRecord) (int, error) {
	cleaned := Clean(rec.Text)
	written := 0
	for _, section := range Sections(cleaned) {
		words := strings.Fields(strings.Join(section.Content, " "))
		for i, chunk := range packWords(words, p.cfg.TargetTokens, p.cfg.Overshoot, p.counter) {
			out := model.TextRecord{
				ID:     fmt.Sprintf("%s#chunk-%d", rec.URL, i+1),
				URL:    rec.URL,
				Title:  section.Title,
				Text:   chunk,
				Tokens: p.counter.Count(chunk),
			}
			if err := w.Write(out); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}
