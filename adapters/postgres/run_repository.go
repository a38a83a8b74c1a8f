package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"qacompare/domain/core"
	"qacompare/domain/qa"
	"qacompare/internal/errors"
	"qacompare/ports"
)

// RunRepositoryImpl implements RunRepository on any sqlx database
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

type runRow struct {
	ID            string  `db:"id"`
	Label         string  `db:"label"`
	Chi2          float64 `db:"chi2"`
	NDF           int     `db:"ndf"`
	PValue        float64 `db:"p_value"`
	Count         int     `db:"n_tests"`
	Fingerprint   string  `db:"fingerprint"`
	CreatedAtUnix int64   `db:"created_at_unix"`
}

type comparisonRow struct {
	RunID   string          `db:"run_id"`
	Seq     int             `db:"seq"`
	Name    string          `db:"name"`
	PValue  sql.NullFloat64 `db:"p_value"`
	Verdict string          `db:"verdict"`
}

const runColumns = `id, label, chi2, ndf, p_value, n_tests, fingerprint, created_at_unix`

// Save inserts the run and its comparisons in one transaction
func (r *RunRepositoryImpl) Save(ctx context.Context, run *qa.RunRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO qa_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), run.ID.String(), run.Label, run.Combined.Chi2, run.Combined.NDF, run.Combined.PValue,
		run.Combined.Count, run.Fingerprint.String(), run.CreatedAt.UnixMilli())
	if err != nil {
		return errors.DatabaseError("failed to insert run", err)
	}

	insert := r.db.Rebind(`
		INSERT INTO qa_comparisons (run_id, seq, name, p_value, verdict)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, c := range run.Comparisons {
		p := sql.NullFloat64{Float64: c.PValue, Valid: c.Tested && !math.IsNaN(c.PValue)}
		if _, err := tx.ExecContext(ctx, insert, run.ID.String(), c.Seq, c.Name, p, string(c.Verdict)); err != nil {
			return errors.DatabaseError("failed to insert comparison", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit run", err)
	}
	return nil
}

// GetByID loads one run with its comparisons
func (r *RunRepositoryImpl) GetByID(ctx context.Context, id core.RunID) (*qa.RunRecord, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT `+runColumns+`
		FROM qa_runs
		WHERE id = ?
	`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithCode(errors.CodeNotFound, core.NewNotFoundError("run", id.String()))
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load run", err)
	}

	runs, err := r.attachComparisons(ctx, []runRow{row})
	if err != nil {
		return nil, err
	}
	return runs[0], nil
}

// List returns runs newest first
func (r *RunRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*qa.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+runColumns+`
		FROM qa_runs
		ORDER BY created_at_unix DESC, id DESC
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	if len(rows) == 0 {
		return []*qa.RunRecord{}, nil
	}
	return r.attachComparisons(ctx, rows)
}

// Delete removes a run and its comparisons
func (r *RunRepositoryImpl) Delete(ctx context.Context, id core.RunID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM qa_comparisons WHERE run_id = ?`), id.String()); err != nil {
		return errors.DatabaseError("failed to delete comparisons", err)
	}
	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM qa_runs WHERE id = ?`), id.String())
	if err != nil {
		return errors.DatabaseError("failed to delete run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.WithCode(errors.CodeNotFound, core.NewNotFoundError("run", id.String()))
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit delete", err)
	}
	return nil
}

func (r *RunRepositoryImpl) attachComparisons(ctx context.Context, rows []runRow) ([]*qa.RunRecord, error) {
	ids := make([]string, len(rows))
	runs := make([]*qa.RunRecord, len(rows))
	byID := make(map[string]*qa.RunRecord, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		runs[i] = &qa.RunRecord{
			ID:    core.RunID(row.ID),
			Label: row.Label,
			Combined: qa.CombinedStatistic{
				Chi2:   row.Chi2,
				NDF:    row.NDF,
				PValue: row.PValue,
				Count:  row.Count,
			},
			Comparisons: []qa.ComparisonRecord{},
			Fingerprint: core.Hash(row.Fingerprint),
			CreatedAt:   time.UnixMilli(row.CreatedAtUnix).UTC(),
		}
		byID[row.ID] = runs[i]
	}

	query, args, err := sqlx.In(`
		SELECT run_id, seq, name, p_value, verdict
		FROM qa_comparisons
		WHERE run_id IN (?)
		ORDER BY run_id, seq
	`, ids)
	if err != nil {
		return nil, errors.DatabaseError("failed to build comparison query", err)
	}
	var comps []comparisonRow
	if err := r.db.SelectContext(ctx, &comps, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to load comparisons", err)
	}

	for _, c := range comps {
		run := byID[c.RunID]
		if run == nil {
			continue
		}
		rec := qa.ComparisonRecord{
			Seq:     c.Seq,
			Name:    c.Name,
			PValue:  math.NaN(),
			Verdict: qa.Verdict(c.Verdict),
			Tested:  c.PValue.Valid,
		}
		if c.PValue.Valid {
			rec.PValue = c.PValue.Float64
		}
		run.Comparisons = append(run.Comparisons, rec)
	}
	return runs, nil
}
