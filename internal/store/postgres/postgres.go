// Package postgres stores index snapshots in PostgreSQL with pgvector,
// keeping embeddings queryable with SQL cosine distance.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/photo-index/internal/config"
	"github.com/kozaktomas/photo-index/internal/index"
	_ "github.com/lib/pq"
	"github.com/mordilloSan/go-logger/logger"
	"github.com/pgvector/pgvector-go"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS index_entries (
	file_id        TEXT PRIMARY KEY,
	path           TEXT NOT NULL,
	record         JSONB NOT NULL,
	text_embedding VECTOR
);

CREATE INDEX IF NOT EXISTS idx_index_entries_path ON index_entries (path);
`

// Store is a snapshot backend on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New connects to the database, applies the schema and returns the store.
func New(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not reach database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not apply schema: %w", err)
	}

	logger.Infof("Connected to PostgreSQL snapshot store")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all stored entries ordered by path.
func (s *Store) Load() ([]index.Entry, error) {
	rows, err := s.db.Query(`SELECT file_id, record FROM index_entries ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("could not load index entries: %w", err)
	}
	defer rows.Close()

	entries := []index.Entry{}
	for rows.Next() {
		var entry index.Entry
		var record []byte
		if err := rows.Scan(&entry.ID, &record); err != nil {
			return nil, fmt.Errorf("could not scan index entry: %w", err)
		}
		if err := json.Unmarshal(record, &entry.Index); err != nil {
			logger.Warnf("Skipping corrupt index entry %s: %v", entry.ID, err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read index entries: %w", err)
	}
	return entries, nil
}

// Snapshot replaces the stored entries with the given set in one transaction.
func (s *Store) Snapshot(entries []index.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM index_entries`); err != nil {
		return fmt.Errorf("could not clear index entries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO index_entries (file_id, path, record, text_embedding)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("could not prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		record, err := json.Marshal(entry.Index)
		if err != nil {
			return fmt.Errorf("could not encode entry %s: %w", entry.ID, err)
		}

		var embedding any
		if len(entry.Index.TextEmbedding) > 0 {
			embedding = pgvector.NewVector(entry.Index.TextEmbedding)
		}
		if _, err := stmt.Exec(entry.ID, entry.Index.Path, record, embedding); err != nil {
			return fmt.Errorf("could not insert entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit snapshot: %w", err)
	}
	return nil
}

// Similar returns the entries closest to embedding by cosine distance,
// letting the database do the ranking for large indexes.
func (s *Store) Similar(embedding []float32, limit int) ([]index.Entry, error) {
	rows, err := s.db.Query(`
		SELECT file_id, record
		FROM index_entries
		WHERE text_embedding IS NOT NULL
		ORDER BY text_embedding <=> $1
		LIMIT $2`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("could not query similar entries: %w", err)
	}
	defer rows.Close()

	entries := []index.Entry{}
	for rows.Next() {
		var entry index.Entry
		var record []byte
		if err := rows.Scan(&entry.ID, &record); err != nil {
			return nil, fmt.Errorf("could not scan similar entry: %w", err)
		}
		if err := json.Unmarshal(record, &entry.Index); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
