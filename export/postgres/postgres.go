// Package postgres implements export.Sink using PostgreSQL with JSONB
// metadata columns.
//
// The Sink accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	maitre "github.com/platewise/maitre"
	"github.com/platewise/maitre/export"
)

// Sink persists StructuredResults to PostgreSQL.
type Sink struct {
	pool *pgxpool.Pool
}

var _ export.Sink = (*Sink)(nil)

// New creates a Sink using an existing pgxpool.Pool. The caller owns the
// pool; Close on the Sink is a no-op so shared pools stay usable.
func New(pool *pgxpool.Pool) *Sink {
	return &Sink{pool: pool}
}

// Init creates all required tables.
func (s *Sink) Init(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			metadata JSONB NOT NULL,
			processing_time DOUBLE PRECISION NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT NOT NULL,
			result_id TEXT NOT NULL REFERENCES results(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			type TEXT NOT NULL,
			source_field TEXT NOT NULL,
			metadata JSONB,
			hierarchy_level INTEGER NOT NULL DEFAULT 0,
			parent_id TEXT,
			chunk_index INTEGER NOT NULL,
			PRIMARY KEY (result_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			result_id TEXT NOT NULL REFERENCES results(id) ON DELETE CASCADE,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			type TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			bidirectional BOOLEAN NOT NULL,
			metadata JSONB,
			rel_index INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_result ON chunks(result_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_result ON relationships(result_id)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	return nil
}

// Save writes the result and all its chunks and relationships in one
// transaction, returning the generated result ID.
func (s *Sink) Save(ctx context.Context, result maitre.StructuredResult) (string, error) {
	resultID := maitre.NewID()

	metaJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	source, _ := result.Metadata["source"].(string)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO results (id, source, metadata, processing_time, created_at) VALUES ($1, $2, $3, $4, $5)`,
		resultID, source, metaJSON, result.ProcessingTime, maitre.NowUnix())
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}

	for i, c := range result.Chunks {
		chunkMeta, err := json.Marshal(c.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, result_id, content, type, source_field, metadata, hierarchy_level, parent_id, chunk_index)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, resultID, c.Content, string(c.Type), c.SourceField, chunkMeta, c.HierarchyLevel, c.ParentID, i)
		if err != nil {
			return "", fmt.Errorf("insert chunk: %w", err)
		}
	}

	for i, r := range result.Relationships {
		relMeta, err := json.Marshal(r.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshal relationship metadata: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO relationships (result_id, from_id, to_id, type, confidence, bidirectional, metadata, rel_index)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			resultID, r.From, r.To, string(r.Type), r.Confidence, r.Bidirectional, relMeta, i)
		if err != nil {
			return "", fmt.Errorf("insert relationship: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return resultID, nil
}

// Load reads a result back by ID, preserving chunk and relationship order.
func (s *Sink) Load(ctx context.Context, resultID string) (maitre.StructuredResult, error) {
	var result maitre.StructuredResult
	var metaJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT metadata, processing_time FROM results WHERE id = $1`, resultID).
		Scan(&metaJSON, &result.ProcessingTime)
	if err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load result: %w", err)
	}
	if err := json.Unmarshal(metaJSON, &result.Metadata); err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("unmarshal metadata: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, type, source_field, metadata, hierarchy_level, COALESCE(parent_id, '')
		 FROM chunks WHERE result_id = $1 ORDER BY chunk_index`, resultID)
	if err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c maitre.Chunk
		var chunkType string
		var chunkMeta []byte
		if err := rows.Scan(&c.ID, &c.Content, &chunkType, &c.SourceField, &chunkMeta, &c.HierarchyLevel, &c.ParentID); err != nil {
			return maitre.StructuredResult{}, fmt.Errorf("scan chunk: %w", err)
		}
		c.Type = maitre.ChunkType(chunkType)
		if len(chunkMeta) > 0 {
			if err := json.Unmarshal(chunkMeta, &c.Metadata); err != nil {
				return maitre.StructuredResult{}, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		result.Chunks = append(result.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load chunks: %w", err)
	}

	relRows, err := s.pool.Query(ctx,
		`SELECT from_id, to_id, type, confidence, bidirectional, metadata
		 FROM relationships WHERE result_id = $1 ORDER BY rel_index`, resultID)
	if err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load relationships: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r maitre.Relationship
		var relType string
		var relMeta []byte
		if err := relRows.Scan(&r.From, &r.To, &relType, &r.Confidence, &r.Bidirectional, &relMeta); err != nil {
			return maitre.StructuredResult{}, fmt.Errorf("scan relationship: %w", err)
		}
		r.Type = maitre.RelationType(relType)
		if len(relMeta) > 0 {
			if err := json.Unmarshal(relMeta, &r.Metadata); err != nil {
				return maitre.StructuredResult{}, fmt.Errorf("unmarshal relationship metadata: %w", err)
			}
		}
		result.Relationships = append(result.Relationships, r)
	}
	if err := relRows.Err(); err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load relationships: %w", err)
	}

	return result, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Sink) Close() error { return nil }
