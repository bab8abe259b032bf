// Package graph persists extractions into Neo4j. Every write goes through
// MERGE keyed on content hashes, so ingesting the same text twice lands
// on existing nodes instead of duplicating them.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/graphloom/graphloom/internal/model"
)

// Uniqueness constraints backing the merge queries. Without them MERGE
// falls back to label scans and concurrent imports can race duplicate
// nodes into existence.
var constraintQueries = []string{
	"CREATE CONSTRAINT IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (c:AtomicFact) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (c:KeyElement) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE",
}

// Store wraps the Neo4j driver with the pipeline's import operations.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// Connect opens a driver, verifies the server is reachable and ensures
// the uniqueness constraints exist. Failing here keeps a long extraction
// run from ending at an unreachable database.
func Connect(ctx context.Context, cfg model.GraphConfig, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("graph connection needs uri, username and password")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", cfg.URI, err)
	}

	s := &Store{driver: driver, database: cfg.Database, logger: logger}
	for _, query := range constraintQueries {
		if _, err := s.write(ctx, query, nil); err != nil {
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	logger.Debug("Graph store connected", zap.String("uri", cfg.URI))
	return s, nil
}

// write runs one statement in its own write session and consumes the
// result so update counters are available to callers.
func (s *Store) write(ctx context.Context, query string, params map[string]interface{}) (neo4j.ResultSummary, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Consume(ctx)
}

// Wipe removes every node and relationship in the database.
func (s *Store) Wipe(ctx context.Context) error {
	summary, err := s.write(ctx, "MATCH (n) DETACH DELETE n", nil)
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	s.logger.Info("Graph deleted",
		zap.Int("nodes_deleted", summary.Counters().NodesDeleted()),
	)
	return nil
}

// Close releases the driver and its connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
