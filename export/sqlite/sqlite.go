// Package sqlite implements export.Sink on pure-Go SQLite. Zero CGO
// required. Chunk and relationship metadata are stored as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	maitre "github.com/platewise/maitre"
	"github.com/platewise/maitre/export"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets a structured logger. When set, the sink emits debug logs
// for every operation including timing and row counts.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// Sink persists StructuredResults to a local SQLite file.
type Sink struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ export.Sink = (*Sink)(nil)

// New creates a Sink backed by the SQLite file at dbPath. It opens a single
// shared connection so concurrent writers serialize through it, avoiding
// SQLITE_BUSY errors.
func New(dbPath string, opts ...Option) *Sink {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Sink{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates all required tables.
func (s *Sink) Init(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			metadata TEXT NOT NULL,
			processing_time REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT NOT NULL,
			result_id TEXT NOT NULL,
			content TEXT NOT NULL,
			type TEXT NOT NULL,
			source_field TEXT NOT NULL,
			metadata TEXT,
			hierarchy_level INTEGER NOT NULL DEFAULT 0,
			parent_id TEXT,
			chunk_index INTEGER NOT NULL,
			PRIMARY KEY (result_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			result_id TEXT NOT NULL,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			type TEXT NOT NULL,
			confidence REAL NOT NULL,
			bidirectional INTEGER NOT NULL,
			metadata TEXT,
			rel_index INTEGER NOT NULL
		)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_result ON chunks(result_id)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_relationships_result ON relationships(result_id)`)
	return nil
}

// Save writes the result and all its chunks and relationships in one
// transaction, returning the generated result ID.
func (s *Sink) Save(ctx context.Context, result maitre.StructuredResult) (string, error) {
	start := time.Now()
	resultID := maitre.NewID()

	metaJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	source, _ := result.Metadata["source"].(string)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (id, source, metadata, processing_time, created_at) VALUES (?, ?, ?, ?, ?)`,
		resultID, source, string(metaJSON), result.ProcessingTime, maitre.NowUnix())
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}

	for i, c := range result.Chunks {
		chunkMeta, err := json.Marshal(c.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, result_id, content, type, source_field, metadata, hierarchy_level, parent_id, chunk_index)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, resultID, c.Content, string(c.Type), c.SourceField, string(chunkMeta), c.HierarchyLevel, c.ParentID, i)
		if err != nil {
			return "", fmt.Errorf("insert chunk: %w", err)
		}
	}

	for i, r := range result.Relationships {
		relMeta, err := json.Marshal(r.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshal relationship metadata: %w", err)
		}
		bidi := 0
		if r.Bidirectional {
			bidi = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO relationships (result_id, from_id, to_id, type, confidence, bidirectional, metadata, rel_index)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			resultID, r.From, r.To, string(r.Type), r.Confidence, bidi, string(relMeta), i)
		if err != nil {
			return "", fmt.Errorf("insert relationship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("sqlite: result saved",
			"result_id", resultID, "chunks", len(result.Chunks),
			"relationships", len(result.Relationships),
			"duration_ms", time.Since(start).Milliseconds())
	}
	return resultID, nil
}

// Load reads a result back by ID, preserving chunk and relationship order.
func (s *Sink) Load(ctx context.Context, resultID string) (maitre.StructuredResult, error) {
	var result maitre.StructuredResult
	var metaJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT metadata, processing_time FROM results WHERE id = ?`, resultID).
		Scan(&metaJSON, &result.ProcessingTime)
	if err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load result: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &result.Metadata); err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("unmarshal metadata: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, type, source_field, metadata, hierarchy_level, parent_id
		 FROM chunks WHERE result_id = ? ORDER BY chunk_index`, resultID)
	if err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c maitre.Chunk
		var chunkType, chunkMeta string
		var parentID sql.NullString
		if err := rows.Scan(&c.ID, &c.Content, &chunkType, &c.SourceField, &chunkMeta, &c.HierarchyLevel, &parentID); err != nil {
			return maitre.StructuredResult{}, fmt.Errorf("scan chunk: %w", err)
		}
		c.Type = maitre.ChunkType(chunkType)
		c.ParentID = parentID.String
		if chunkMeta != "" && chunkMeta != "null" {
			if err := json.Unmarshal([]byte(chunkMeta), &c.Metadata); err != nil {
				return maitre.StructuredResult{}, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		result.Chunks = append(result.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load chunks: %w", err)
	}

	relRows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id, type, confidence, bidirectional, metadata
		 FROM relationships WHERE result_id = ? ORDER BY rel_index`, resultID)
	if err != nil {
		return maitre.StructuredResult{}, fmt.Errorf("load relationships: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r maitre.Relationship
		var relType, relMeta string
		var bidi int
		if err := relRows.Scan(&r.From, &r.To, &relType, &r.Confidence, &bidi, &relMeta); err != nil {
			return maitre.StructuredResult{}, fmt.Errorf("scan relationship: %w", err)
		}
		r.Type = maitre.RelationType(relType)
		r.Bidirectional = bidi != 0
		if relMeta != "" && relMeta != "null" {
			if err := json.Unmarshal([]byte(relMeta), &r.Metadata); err != nil {
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

// Close closes the underlying database.
func (s *Sink) Close() error {
	return s.db.Close()
}
