package app

import (
	"context"
	stderrors "errors"
	"time"

	"qacompare/adapters/histio"
	"qacompare/domain/core"
	"qacompare/domain/histogram"
	"qacompare/domain/qa"
	"qacompare/internal"
	"qacompare/internal/comparison"
	"qacompare/internal/errors"
	"qacompare/internal/summary"
	"qacompare/ports"
)

// ComparisonJob is one new/reference pair of a run. Ref may be nil.
type ComparisonJob struct {
	Name string
	New  *histogram.Histogram
	Ref  *histogram.Histogram
}

// RunServiceConfig wires a RunService. Repository and SummaryFile are optional.
type RunServiceConfig struct {
	Test        ports.TwoSampleTest
	Repository  ports.RunRepository
	SummaryFile string
	Observers   []summary.Observer
	Logger      *internal.Logger
}

// RunService orchestrates one QA run: every job goes through the comparison
// engine, the combined statistic is summarised, and the run is persisted.
type RunService struct {
	engine      *comparison.Engine
	acc         *summary.Accumulator
	repo        ports.RunRepository
	summaryFile string
	logger      *internal.Logger
	now         func() time.Time
}

// NewRunService creates a run service with a fresh accumulator
func NewRunService(cfg RunServiceConfig) *RunService {
	logger := cfg.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	accOpts := []summary.Option{summary.WithLogger(logger.With("summary"))}
	for _, obs := range cfg.Observers {
		accOpts = append(accOpts, summary.WithObserver(obs))
	}
	acc := summary.NewAccumulator(accOpts...)

	return &RunService{
		engine:      comparison.NewEngine(cfg.Test, acc, logger),
		acc:         acc,
		repo:        cfg.Repository,
		summaryFile: cfg.SummaryFile,
		logger:      logger.With("run"),
		now:         time.Now,
	}
}

// Accumulator exposes the run accumulator
func (s *RunService) Accumulator() *summary.Accumulator { return s.acc }

// Reset clears the accumulator so the service can run again
func (s *RunService) Reset() { s.acc.Reset() }

// Execute compares every job in order and returns the run record. A
// structural error in any job aborts the run before anything is persisted.
// Each call starts from an empty accumulator, so p-values left by an aborted
// run never reach the next one. Execute is not safe for concurrent use.
func (s *RunService) Execute(ctx context.Context, label string, jobs []ComparisonJob, opts comparison.Options) (*qa.RunRecord, error) {
	startTime := s.now()
	s.acc.Reset()
	run := &qa.RunRecord{
		ID:          core.NewRunID(),
		Label:       label,
		Comparisons: make([]qa.ComparisonRecord, 0, len(jobs)),
	}

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := s.engine.Compare(job.New, job.Ref, opts)
		if err != nil {
			return nil, classify(errors.Wrapf(err, "comparison %q failed", job.Name), err)
		}
		run.Comparisons = append(run.Comparisons, qa.ComparisonRecord{
			Seq:     i,
			Name:    job.Name,
			PValue:  res.Statistic,
			Verdict: res.Verdict,
			Tested:  res.Tested,
		})
		if res.Tested {
			s.logger.Info("%s: %s", job.Name, res.Label)
		}
	}

	run.Combined = s.acc.Combined()
	run.Fingerprint = core.ComputeSequenceHash(s.acc.PValues())
	run.CreatedAt = s.now().UTC()

	s.logger.Info("run %s (%s): %s", run.ID, label, summary.SummaryText(run.Combined))

	if s.summaryFile != "" {
		if err := summary.WriteSummary(s.summaryFile, run.Combined); err != nil {
			return nil, err
		}
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, run); err != nil {
			return nil, errors.Wrapf(err, "failed to save run %s", run.ID)
		}
	}

	s.logger.Debug("run %s finished in %s", run.ID, s.now().Sub(startTime))
	return run, nil
}

// LoadJobs reads every histogram listed in a manifest.
func LoadJobs(m *histio.Manifest) ([]ComparisonJob, error) {
	jobs := make([]ComparisonJob, 0, len(m.Entries))
	for _, entry := range m.Entries {
		job := ComparisonJob{Name: entry.Name}

		h, err := histio.ReadFile(entry.New.File, entry.New.Path)
		if err != nil {
			return nil, classify(errors.Wrapf(err, "failed to load %s", entry.Name), err)
		}
		job.New = h

		if entry.Ref != nil {
			ref, err := histio.ReadFile(entry.Ref.File, entry.Ref.Path)
			if err != nil {
				return nil, classify(errors.Wrapf(err, "failed to load reference for %s", entry.Name), err)
			}
			job.Ref = ref
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// classify attaches an error code for the domain sentinel behind cause.
func classify(wrapped, cause error) error {
	switch {
	case stderrors.Is(cause, core.ErrShapeMismatch):
		return errors.WithCode(errors.CodeShapeMismatch, wrapped)
	case core.IsPreconditionError(cause):
		return errors.WithCode(errors.CodeInvalidInput, wrapped)
	case core.IsFitError(cause):
		return errors.WithCode(errors.CodeFitFailed, wrapped)
	default:
		return wrapped
	}
}
