package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/model"
)

// importQuery merges one document with its chunks, atomic facts and key
// elements. Chunk and fact ids are content hashes; key elements use
// their own text as id, so the same element mentioned across documents
// converges on one node.
const importQuery = `
MERGE (d:Document {id:$document_name})
WITH d
UNWIND $data AS row
MERGE (c:Chunk {id: row.chunk_id})
SET c.text = row.chunk_text,
    c.index = row.index,
    c.document_name = row.document_name
MERGE (d)-[:HAS_CHUNK]->(c)
WITH c, row
UNWIND row.atomic_facts AS af
MERGE (a:AtomicFact {id: af.id})
SET a.text = af.atomic_fact
MERGE (c)-[:HAS_ATOMIC_FACT]->(a)
WITH c, a, af
UNWIND af.key_elements AS ke
MERGE (k:KeyElement {id: ke})
MERGE (a)-[:HAS_KEY_ELEMENT]->(k)
`

// linkChunksQuery threads NEXT relationships through a document's chunks
// in index order.
const linkChunksQuery = `MATCH (c:Chunk)<-[:HAS_CHUNK]-(d:Document)
WHERE d.id = $document_name
WITH c ORDER BY c.index WITH collect(c) AS nodes
UNWIND range(0, size(nodes) -2) AS index
WITH nodes[index] AS start, nodes[index + 1] AS end
MERGE (start)-[:NEXT]->(end)
`

// ImportDocument merges one document's chunk extractions into the graph.
func (s *Store) ImportDocument(ctx context.Context, documentName string, chunks []model.ChunkExtraction) error {
	params := map[string]interface{}{
		"document_name": documentName,
		"data":          importRows(documentName, chunks),
	}
	summary, err := s.write(ctx, importQuery, params)
	if err != nil {
		return fmt.Errorf("failed to import document %s: %w", documentName, err)
	}
	s.logger.Debug("Document imported",
		zap.String("document", documentName),
		zap.Int("chunks", len(chunks)),
		zap.Int("nodes_created", summary.Counters().NodesCreated()),
		zap.Int("relationships_created", summary.Counters().RelationshipsCreated()),
	)
	return nil
}

// LinkChunkSequence merges the NEXT chain over a document's chunks. Kept
// separate from the import so the chain can be rebuilt on its own.
func (s *Store) LinkChunkSequence(ctx context.Context, documentName string) error {
	_, err := s.write(ctx, linkChunksQuery, map[string]interface{}{"document_name": documentName})
	if err != nil {
		return fmt.Errorf("failed to link chunks of %s: %w", documentName, err)
	}
	return nil
}

// importRows flattens chunk extractions into the parameter shape the
// import query unwinds. Every row repeats the document name; the query
// stamps it onto the chunk node.
func importRows(documentName string, chunks []model.ChunkExtraction) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		facts := make([]map[string]interface{}, 0, len(c.Facts))
		for _, f := range c.Facts {
			keyElements := f.KeyElements
			if keyElements == nil {
				keyElements = []string{}
			}
			facts = append(facts, map[string]interface{}{
				"id":           f.ID,
				"atomic_fact":  f.Text,
				"key_elements": keyElements,
			})
		}
		rows = append(rows, map[string]interface{}{
			"chunk_id":      c.ChunkID,
			"chunk_text":    c.Text,
			"index":         c.Index,
			"document_name": documentName,
			"atomic_facts":  facts,
		})
	}
	return rows
}
