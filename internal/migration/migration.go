package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"qacompare/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the run tables. Every statement is idempotent and
// portable between PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create qa_runs table", err)
	}

	if err := r.createComparisonsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create qa_comparisons table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS qa_runs (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			chi2 DOUBLE PRECISION NOT NULL,
			ndf INTEGER NOT NULL,
			p_value DOUBLE PRECISION NOT NULL,
			n_tests INTEGER NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			created_at_unix BIGINT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createComparisonsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS qa_comparisons (
			run_id TEXT NOT NULL REFERENCES qa_runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			p_value DOUBLE PRECISION,
			verdict TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_qa_runs_created_at ON qa_runs(created_at_unix)`,
		`CREATE INDEX IF NOT EXISTS idx_qa_comparisons_verdict ON qa_comparisons(verdict)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
