package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/venturelab/compass/internal/pipeline"
)

// SQLiteStore persists pipeline snapshots in a local SQLite database.
// Snapshots are stored as JSON blobs; the core never queries inside
// them, so there is no per-field schema to migrate.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS plans (
	plan_id    TEXT PRIMARY KEY,
	snapshot   BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// NewSQLiteStore opens (and if needed creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open plan database: %w", err)
	}
	// Serialized access; the CLI is a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create plans table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements Store.Load
func (s *SQLiteStore) Load(ctx context.Context, planID string) (*pipeline.Pipeline, error) {
	var snapshot []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM plans WHERE plan_id = ?`, planID).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query plan %s: %w", planID, err)
	}

	var p pipeline.Pipeline
	if err := json.Unmarshal(snapshot, &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan %s: %w", planID, err)
	}
	return &p, nil
}

// Save implements Store.Save
func (s *SQLiteStore) Save(ctx context.Context, planID string, p *pipeline.Pipeline) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan %s: %w", planID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (plan_id, snapshot, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(plan_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		planID, snapshot, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert plan %s: %w", planID, err)
	}
	return nil
}

// Delete implements Store.Delete
func (s *SQLiteStore) Delete(ctx context.Context, planID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("delete plan %s: %w", planID, err)
	}
	return nil
}

// List implements Store.List
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT plan_id FROM plans ORDER BY plan_id`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var planIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan plan id: %w", err)
		}
		planIDs = append(planIDs, id)
	}
	return planIDs, rows.Err()
}
