package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/jsonl"
	"github.com/graphloom/graphloom/internal/model"
)

// Extractor turns document text into ordered chunk extractions.
// *extract.Extractor satisfies it.
type Extractor interface {
	ExtractDocument(ctx context.Context, text string) ([]model.ChunkExtraction, error)
}

// GraphWriter is the slice of the graph store the ingestor needs, kept
// narrow so tests can fake it.
type GraphWriter interface {
	ImportDocument(ctx context.Context, documentName string, chunks []model.ChunkExtraction) error
	LinkChunkSequence(ctx context.Context, documentName string) error
}

// Ingestor drives documents through extraction and into the graph.
type Ingestor struct {
	extractor Extractor
	graph     GraphWriter
	logger    *zap.Logger
}

// NewIngestor creates an ingestor.
func NewIngestor(extractor Extractor, graph GraphWriter, logger *zap.Logger) *Ingestor {
	return &Ingestor{extractor: extractor, graph: graph, logger: logger}
}

// IngestDocument extracts one document and merges it into the graph,
// then threads the NEXT chain. A document whose text yields no chunks
// still gets its Document node.
func (in *Ingestor) IngestDocument(ctx context.Context, text, documentName string) error {
	start := time.Now()
	in.logger.Info("Starting extraction", zap.String("document", documentName))

	chunks, err := in.extractor.ExtractDocument(ctx, text)
	if err != nil {
		return fmt.Errorf("extract document %s: %w", documentName, err)
	}
	in.logger.Info("Finished LLM extraction",
		zap.String("document", documentName),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := in.graph.ImportDocument(ctx, documentName, chunks); err != nil {
		return err
	}
	if err := in.graph.LinkChunkSequence(ctx, documentName); err != nil {
		return err
	}
	in.logger.Info("Finished import",
		zap.String("document", documentName),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// IngestStats summarizes a batch run.
type IngestStats struct {
	Documents int // Documents fully ingested
	Failed    int // Records skipped or failed
}

// IngestFile streams an ingestion JSONL file one document at a time, each
// fully written to the graph before the next starts. Records that fail to
// decode or to ingest are logged and skipped; the batch continues.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (IngestStats, error) {
	var stats IngestStats
	err := jsonl.ForEach(path, func(line []byte, n int) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var rec model.IngestRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Failed++
			in.logger.Warn("Skipping malformed ingest record",
				zap.Int("line", n),
				zap.Error(err),
			)
			return nil
		}
		if rec.ID == "" {
			stats.Failed++
			in.logger.Warn("Skipping ingest record without id", zap.Int("line", n))
			return nil
		}

		if err := in.IngestDocument(ctx, rec.Text, rec.ID); err != nil {
			stats.Failed++
			in.logger.Error("Document ingestion failed",
				zap.String("document", rec.ID),
				zap.Error(err),
			)
			return nil
		}
		stats.Documents++
		in.logger.Info("Processed document", zap.String("document", rec.ID))
		return nil
	})
	return stats, err
}
