package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"qacompare/adapters/histio"
	"qacompare/app"
	"qacompare/domain/histogram"
	"qacompare/internal/comparison"
	"qacompare/internal/export"
	"qacompare/internal/summary"
	"qacompare/ports"
)

func newCompareCmd(envFile *string) *cobra.Command {
	var (
		testName    string
		noTest      bool
		summaryFile string
		xlsxPath    string
		htmlPath    string
		pvalueHists string
		save        bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "compare [manifest.json]",
		Short: "Compare every histogram of a manifest against its reference",
		Long: `Run one QA comparison pass. Every tested pair contributes its p-value to
Fisher's combination, printed at the end and optionally written to the
summary file, an xlsx workbook, an HTML report and the run database.

Example: qacompare compare run.json --xlsx run.xlsx --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*envFile)
			if err != nil {
				return err
			}

			test, err := selectTest(testName)
			if err != nil {
				return err
			}

			manifest, err := histio.ReadManifest(args[0])
			if err != nil {
				return err
			}
			jobs, err := app.LoadJobs(manifest)
			if err != nil {
				return err
			}

			svcConfig := app.RunServiceConfig{
				Test:        test,
				SummaryFile: cfg.Output.SummaryFile,
				Logger:      logger,
			}
			if summaryFile != "" {
				svcConfig.SummaryFile = summaryFile
			}

			var hists *summary.PValueHistograms
			if pvalueHists != "" {
				hists = summary.NewPValueHistograms()
				svcConfig.Observers = append(svcConfig.Observers, hists.Observer())
			}

			if save {
				repo, closeRepo, err := openRepository(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer closeRepo()
				svcConfig.Repository = repo
			}

			opts := comparison.DefaultOptions()
			opts.PerformTest = !noTest

			run, err := app.NewRunService(svcConfig).Execute(cmd.Context(), manifest.Label, jobs, opts)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := export.WriteWorkbook(xlsxPath, run); err != nil {
					return err
				}
			}
			if htmlPath != "" {
				if err := os.WriteFile(htmlPath, export.RenderHTMLReport(run), 0o644); err != nil {
					return fmt.Errorf("failed to write report %s: %w", htmlPath, err)
				}
			}
			if hists != nil {
				if err := writeHistograms(pvalueHists, hists.Value, hists.Log); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			for _, c := range run.Comparisons {
				if c.Tested {
					fmt.Fprintf(out, "%-40s p=%.3f %s\n", c.Name, c.PValue, c.Verdict)
				} else {
					fmt.Fprintf(out, "%-40s %s\n", c.Name, c.Verdict)
				}
			}
			fmt.Fprintln(out, summary.SummaryText(run.Combined))
			if save {
				fmt.Fprintf(out, "saved run %s\n", run.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&testName, "test", "ks", "Two-sample test: ks|chi2")
	cmd.Flags().BoolVar(&noTest, "no-test", false, "Skip the statistical tests and only list the histograms")
	cmd.Flags().StringVar(&summaryFile, "summary-file", "", "Write the combined summary line here (overrides QA_SUMMARY_FILE)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the run workbook to this path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Write the HTML run report to this path")
	cmd.Flags().StringVar(&pvalueHists, "pvalue-hists", "", "Write the p-value and log p-value histograms to this JSON file")
	cmd.Flags().BoolVar(&save, "save", false, "Store the run in the database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run record as JSON")
	return cmd
}

func selectTest(name string) (ports.TwoSampleTest, error) {
	switch strings.ToLower(name) {
	case "", "ks", "kolmogorov":
		return comparison.NewKolmogorovTest(), nil
	case "chi2":
		return comparison.NewChi2Test(), nil
	default:
		return nil, fmt.Errorf("unknown test %q (expected ks|chi2)", name)
	}
}

// writeHistograms stores several histograms as one JSON object keyed by name.
func writeHistograms(path string, hists ...*histogram.Histogram) error {
	doc := make(map[string]json.RawMessage, len(hists))
	for _, h := range hists {
		body, err := histio.Marshal(h)
		if err != nil {
			return err
		}
		doc[h.Name] = body
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
