package postgres

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qacompare/domain/core"
	"qacompare/domain/qa"
	"qacompare/internal/errors"
	"qacompare/internal/migration"
	"qacompare/ports"
)

func newTestRepository(t *testing.T) ports.RunRepository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(ctx, db))
	// running twice must be harmless
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	return NewRunRepository(db)
}

func sampleRun(label string, created time.Time) *qa.RunRecord {
	return &qa.RunRecord{
		ID:    core.NewRunID(),
		Label: label,
		Combined: qa.CombinedStatistic{
			Chi2:   2 * math.Log(4),
			NDF:    4,
			PValue: 0.5966,
			Count:  2,
		},
		Comparisons: []qa.ComparisonRecord{
			{Seq: 0, Name: "hMass", PValue: 0.5, Verdict: qa.VerdictGood, Tested: true},
			{Seq: 1, Name: "hPt", PValue: math.NaN(), Verdict: qa.VerdictNone},
			{Seq: 2, Name: "hEta", PValue: 0.5, Verdict: qa.VerdictGood, Tested: true},
		},
		Fingerprint: core.ComputeSequenceHash([]float64{0.5, 0.5}),
		CreatedAt:   created,
	}
}

func TestRunRepositorySaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("nightly", created)
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "nightly", got.Label)
	assert.Equal(t, run.Combined, got.Combined)
	assert.Equal(t, run.Fingerprint, got.Fingerprint)
	assert.True(t, created.Equal(got.CreatedAt))

	require.Len(t, got.Comparisons, 3)
	assert.Equal(t, "hMass", got.Comparisons[0].Name)
	assert.True(t, got.Comparisons[0].Tested)
	assert.Equal(t, 0.5, got.Comparisons[0].PValue)

	assert.Equal(t, "hPt", got.Comparisons[1].Name)
	assert.False(t, got.Comparisons[1].Tested)
	assert.True(t, math.IsNaN(got.Comparisons[1].PValue))
	assert.Equal(t, qa.VerdictNone, got.Comparisons[1].Verdict)

	assert.Len(t, got.Tested(), 2)
}

func TestRunRepositoryGetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), core.NewRunID())
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestRunRepositoryListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	labels := []string{"first", "second", "third"}
	for i, label := range labels {
		require.NoError(t, repo.Save(ctx, sampleRun(label, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third", runs[0].Label)
	assert.Equal(t, "second", runs[1].Label)
	assert.Equal(t, "first", runs[2].Label)
	for _, run := range runs {
		assert.Len(t, run.Comparisons, 3)
	}

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Label)

	empty, err := repo.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRunRepositoryDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := sampleRun("to-delete", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, run))
	require.NoError(t, repo.Delete(ctx, run.ID))

	_, err := repo.GetByID(ctx, run.ID)
	assert.True(t, core.IsNotFoundError(err))

	err = repo.Delete(ctx, run.ID)
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunRepositoryDuplicateID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := sampleRun("dup", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, run))

	err := repo.Save(ctx, run)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))

	// the failed transaction must not leave extra comparisons behind
	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Comparisons, 3)
}
