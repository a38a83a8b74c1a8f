package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qacompare/domain/core"
	"qacompare/domain/qa"
	"qacompare/internal/export"
	"qacompare/internal/summary"
)

func newRunsCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored QA runs",
	}
	cmd.AddCommand(
		newRunsListCmd(envFile),
		newRunsShowCmd(envFile),
		newRunsDeleteCmd(envFile),
	)
	return cmd
}

func newRunsListCmd(envFile *string) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			runs, err := repo.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tLABEL\tTESTS\tCHI2/NDF\tP-VALUE")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4g/%d\t%.4g\n",
					run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Label,
					run.Combined.Count, run.Combined.Chi2, run.Combined.NDF, run.Combined.PValue)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	return cmd
}

func newRunsShowCmd(envFile *string) *cobra.Command {
	var (
		asJSON   bool
		xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			run, err := repo.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				if err := export.WriteWorkbook(xlsxPath, run); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			fmt.Fprint(out, export.MarkdownReport(run))
			if desc, err := summary.Describe(pvaluesOf(run.Tested())); err == nil {
				fmt.Fprintf(out, "\nmin p = %.4g, median p = %.4g, 25%% quantile = %.4g, %d below 0.05\n",
					desc.Min, desc.Median, desc.Q25, desc.BelowMargin)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run record as JSON")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the run workbook to this path")
	return cmd
}

func newRunsDeleteCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete one stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			if err := repo.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", id)
			return nil
		},
	}
}

func pvaluesOf(comparisons []qa.ComparisonRecord) []float64 {
	out := make([]float64, len(comparisons))
	for i, c := range comparisons {
		out[i] = c.PValue
	}
	return out
}
