package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qacompare/adapters/postgres"
	"qacompare/internal"
	"qacompare/internal/config"
	"qacompare/internal/errors"
	"qacompare/internal/migration"
	"qacompare/ports"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "qacompare",
		Short: "Histogram QA: compare against references, compute ratios and fit resolutions",
		Long: `qacompare compares new histograms against references, combines the
p-values of a run, computes binomial ratios and fits per-slice resolutions.

Settings are read from the environment (and .env): DATABASE_URL,
DATABASE_DRIVER, LOG_LEVEL, QA_SUMMARY_FILE, FIT_WORKERS, FIT_MIN_WEIGHT,
FIT_CONVERGENCE, RATIO_FILL_ZERO.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Read settings from this env file first")

	rootCmd.AddCommand(
		newCompareCmd(&envFile),
		newRatioCmd(&envFile),
		newResolutionCmd(&envFile),
		newProfileCmd(&envFile),
		newRunsCmd(&envFile),
		newGenerateCmd(),
	)
	return rootCmd
}

// loadConfig reads the configuration and builds the logger for it.
func loadConfig(envFile string) (*config.Config, *internal.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if envFile != "" {
		cfg, err = config.LoadFile(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	return cfg, internal.NewLogger(cfg.LogLevel), nil
}

// openRepository connects and migrates the run database.
func openRepository(ctx context.Context, cfg *config.Config) (ports.RunRepository, func(), error) {
	if !cfg.Database.Enabled() {
		return nil, nil, errors.ConfigInvalid("DATABASE_URL is required to store or list runs")
	}
	db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "database migration failed")
	}
	return postgres.NewRunRepository(db), func() { db.Close() }, nil
}
