package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"qacompare/adapters/histio"
	"qacompare/domain/qa"
	"qacompare/internal"
	"qacompare/internal/config"
	"qacompare/internal/export"
	"qacompare/internal/ratio"
	"qacompare/internal/resolution"
)

func newRatioCmd(envFile *string) *cobra.Command {
	var (
		passPath   string
		trialsPath string
		fillZero   bool
		name       string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "ratio [pass.json] [trials.json]",
		Short: "Compute the bin-by-bin binomial ratio pass/trials with Wilson errors",
		Long: `Compute pass/trials per bin with a 68% Wilson score interval.

Bins without trials read 0 ± 0, or 0.5 ± 0.5 with --fill-zero (or
RATIO_FILL_ZERO=true).

Example: qacompare ratio eff.json eff.json --pass-path hists.h_pass --trials-path hists.h_all -o ratio.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*envFile)
			if err != nil {
				return err
			}

			pass, err := histio.ReadFile(args[0], passPath)
			if err != nil {
				return err
			}
			trials, err := histio.ReadFile(args[1], trialsPath)
			if err != nil {
				return err
			}

			policy := cfg.Ratio.ZeroBins
			if cmd.Flags().Changed("fill-zero") {
				policy = qa.NaiveDivide
				if fillZero {
					policy = qa.FillDefault
				}
			}

			res, err := ratio.Compute(pass, trials, policy)
			if err != nil {
				return err
			}
			logger.Debug("ratio %s over %d bins (%s)", res.Name, len(res.Bins), policy)

			if name == "" {
				name = res.Name
			}
			h := res.Histogram(name)
			if output != "" {
				return histio.Write(output, h)
			}
			body, err := histio.Marshal(h)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}

	cmd.Flags().StringVar(&passPath, "pass-path", "", "JSON path of the pass histogram inside its file")
	cmd.Flags().StringVar(&trialsPath, "trials-path", "", "JSON path of the trials histogram inside its file")
	cmd.Flags().BoolVar(&fillZero, "fill-zero", false, "Report 0.5 ± 0.5 for bins without trials")
	cmd.Flags().StringVar(&name, "name", "", "Name of the output histogram (default <pass>_Ratio)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the ratio histogram here instead of stdout")
	return cmd
}

type fitFlags struct {
	path        string
	workers     int
	convergence string
	csvBase     string
	asJSON      bool
}

func (f *fitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "path", "", "JSON path of the 2D histogram inside the file")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel slice fits (default FIT_WORKERS)")
	cmd.Flags().StringVar(&f.convergence, "convergence", "", "Unconverged fits: keep|warn|skip (default FIT_CONVERGENCE)")
	cmd.Flags().StringVar(&f.csvBase, "csv", "", "Write <base>_central_value.csv and <base>_errorbar.csv")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the points as JSON")
}

func (f *fitFlags) options(cfg *config.Config, logger *internal.Logger) (resolution.Options, error) {
	opts := resolution.DefaultOptions()
	opts.Workers = cfg.Fit.Workers
	opts.MinWeight = cfg.Fit.MinWeight
	opts.Convergence = cfg.Fit.Convergence
	opts.Logger = logger
	if f.workers > 0 {
		opts.Workers = f.workers
	}
	if f.convergence != "" {
		policy, err := qa.ParseConvergencePolicy(f.convergence)
		if err != nil {
			return opts, err
		}
		opts.Convergence = policy
	}
	return opts, nil
}

func newResolutionCmd(envFile *string) *cobra.Command {
	var (
		flags       fitFlags
		param       string
		noNormalize bool
		output      string
	)

	cmd := &cobra.Command{
		Use:   "resolution [hist2d.json]",
		Short: "Fit a Gaussian to every y-slice and report one parameter per x-bin",
		Long: `Fit each x-bin's y-projection with a Gaussian and report the chosen
parameter (sigma by default), divided by the fitted mean unless
--no-normalize is given. Slices with fewer than FIT_MIN_WEIGHT entries are
skipped.

Example: qacompare resolution reso.json --path hists.dpt_vs_pt --csv out/pt_resolution`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg, logger)
			if err != nil {
				return err
			}
			if opts.Param, err = qa.ParseFitParam(param); err != nil {
				return err
			}
			opts.NormalizeByMean = !noNormalize

			h2, err := histio.ReadFile(args[0], flags.path)
			if err != nil {
				return err
			}
			points, err := resolution.FitResolution(h2, opts)
			if err != nil {
				return err
			}

			if flags.csvBase != "" {
				if err := export.WritePointsCSV(flags.csvBase, export.ResolutionColumns(points, h2.Axes[0])); err != nil {
					return err
				}
			}
			if output != "" {
				hist, err := resolution.FitResolutionHist(h2, opts)
				if err != nil {
					return err
				}
				if err := histio.Write(output, hist); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if flags.asJSON {
				return json.NewEncoder(out).Encode(points)
			}
			for _, p := range points {
				fmt.Fprintf(out, "x-bin %3d  x=%-10.4g %s=%.6g ± %.6g\n", p.Bin, p.X, opts.Param, p.Value, p.Error)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&param, "param", "sigma", "Reported parameter: constant|mean|sigma")
	cmd.Flags().BoolVar(&noNormalize, "no-normalize", false, "Do not divide by the fitted mean")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the <name>_FitResolution histogram here")
	return cmd
}

func newProfileCmd(envFile *string) *cobra.Command {
	var flags fitFlags

	cmd := &cobra.Command{
		Use:   "profile [hist2d.json]",
		Short: "Fit a Gaussian to every y-slice and report mean and sigma per x-bin",
		Long: `Fit each x-bin's y-projection with a Gaussian and report the fitted mean
and sigma. The CSV export uses the mean as central value and sigma as the
error bar.

Example: qacompare profile reso.json --path hists.dpt_vs_pt --csv out/pt_profile`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			opts, err := flags.options(cfg, logger)
			if err != nil {
				return err
			}

			h2, err := histio.ReadFile(args[0], flags.path)
			if err != nil {
				return err
			}
			points, err := resolution.FitProfile(h2, opts)
			if err != nil {
				return err
			}

			if flags.csvBase != "" {
				if err := export.WritePointsCSV(flags.csvBase, export.ProfileColumns(points)); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if flags.asJSON {
				return json.NewEncoder(out).Encode(points)
			}
			for _, p := range points {
				fmt.Fprintf(out, "x-bin %3d  x=%-10.4g mean=%.6g ± %.6g  sigma=%.6g ± %.6g\n",
					p.Bin, p.X, p.Mean, p.MeanError, p.Sigma, p.SigmaError)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
