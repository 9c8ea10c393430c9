// Package store persists generated-document records in SQLite. It implements
// document.Repository and applies reconciliation plans transactionally, one
// owner at a time.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"omnify/internal/document"
)

// Store wraps the SQLite database. The mutex serializes plan application so
// two concurrent passes for the same owner cannot race on
// create/restore/delete.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// New opens (or creates) the document database at the given path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS generated_documents (
			id          TEXT PRIMARY KEY,
			owner_type  TEXT NOT NULL,
			owner_id    TEXT NOT NULL,
			doc_key     TEXT NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL,
			deleted_at  TIMESTAMP,
			UNIQUE (owner_type, owner_id, doc_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generated_documents_owner
			ON generated_documents (owner_type, owner_id)`,
		`CREATE TABLE IF NOT EXISTS generated_document_targets (
			document_id     TEXT NOT NULL REFERENCES generated_documents (id) ON DELETE CASCADE,
			param           TEXT NOT NULL,
			candidate_id    TEXT NOT NULL,
			candidate_title TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (document_id, param)
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// ApplyPlan applies a reconciliation plan inside a single transaction.
func (s *Store) ApplyPlan(ctx context.Context, plan document.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := document.Apply(ctx, &queries{q: tx}, plan); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// dbtx abstracts *sql.DB and *sql.Tx so the same query code serves direct
// calls and plan transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q dbtx
}

// direct returns the repository view backed by the live connection, used by
// callers outside a plan transaction.
func (s *Store) direct() *queries { return &queries{q: s.db} }

// ListByOwner returns every record for the owner, soft-deleted included.
func (s *Store) ListByOwner(ctx context.Context, owner document.Owner) ([]document.Record, error) {
	return s.direct().ListByOwner(ctx, owner)
}

// FindByKey returns the record with the given dedup key, soft-deleted
// included, or nil when absent.
func (s *Store) FindByKey(ctx context.Context, owner document.Owner, key string) (*document.Record, error) {
	return s.direct().findByKey(ctx, owner, key)
}

func (q *queries) ListByOwner(ctx context.Context, owner document.Owner) ([]document.Record, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, owner_type, owner_id, doc_key, name, description, deleted_at
		 FROM generated_documents
		 WHERE owner_type = ? AND owner_id = ?
		 ORDER BY created_at, id`,
		owner.Type, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var records []document.Record
	for rows.Next() {
		var rec document.Record
		var deletedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.OwnerType, &rec.OwnerID, &rec.Key,
			&rec.Name, &rec.Description, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			rec.DeletedAt = &t
		}
		targets, err := q.loadTargets(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Targets = targets
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (q *queries) findByKey(ctx context.Context, owner document.Owner, key string) (*document.Record, error) {
	var rec document.Record
	var deletedAt sql.NullTime
	err := q.q.QueryRowContext(ctx,
		`SELECT id, owner_type, owner_id, doc_key, name, description, deleted_at
		 FROM generated_documents
		 WHERE owner_type = ? AND owner_id = ? AND doc_key = ?`,
		owner.Type, owner.ID, key).
		Scan(&rec.ID, &rec.OwnerType, &rec.OwnerID, &rec.Key, &rec.Name, &rec.Description, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document by key: %w", err)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	targets, err := q.loadTargets(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Targets = targets
	return &rec, nil
}

func (q *queries) loadTargets(ctx context.Context, documentID string) ([]document.Target, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT param, candidate_id, candidate_title
		 FROM generated_document_targets
		 WHERE document_id = ?
		 ORDER BY param`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []document.Target
	for rows.Next() {
		var t document.Target
		if err := rows.Scan(&t.Param, &t.CandidateID, &t.CandidateTitle); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// Create inserts a new record and fills in its generated id.
func (q *queries) Create(ctx context.Context, rec *document.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO generated_documents
		 (id, owner_type, owner_id, doc_key, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerType, rec.OwnerID, rec.Key, rec.Name, rec.Description, now, now)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Update refreshes the display fields of an existing record.
func (q *queries) Update(ctx context.Context, rec *document.Record) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE generated_documents
		 SET name = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		rec.Name, rec.Description, time.Now().UTC(), rec.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// Restore clears the soft-delete marker.
func (q *queries) Restore(ctx context.Context, id string) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE generated_documents SET deleted_at = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("restore document: %w", err)
	}
	return nil
}

// SoftDelete marks the record deleted without removing it.
func (q *queries) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := q.q.ExecContext(ctx,
		`UPDATE generated_documents SET deleted_at = ?, updated_at = ? WHERE id = ?`,
		now, now, id)
	if err != nil {
		return fmt.Errorf("soft-delete document: %w", err)
	}
	return nil
}

// ReplaceTargets rewrites the child mapping rows for a record.
func (q *queries) ReplaceTargets(ctx context.Context, id string, targets []document.Target) error {
	if _, err := q.q.ExecContext(ctx,
		`DELETE FROM generated_document_targets WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("clear targets: %w", err)
	}
	for _, t := range targets {
		if _, err := q.q.ExecContext(ctx,
			`INSERT INTO generated_document_targets (document_id, param, candidate_id, candidate_title)
			 VALUES (?, ?, ?, ?)`,
			id, t.Param, t.CandidateID, t.CandidateTitle); err != nil {
			return fmt.Errorf("insert target %s: %w", t.Param, err)
		}
	}
	return nil
}
