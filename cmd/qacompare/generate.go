package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"qacompare/domain/histogram"
	"qacompare/internal/testkit"
)

func newGenerateCmd() *cobra.Command {
	var (
		seed   uint64
		events int
		shift  float64
	)

	cmd := &cobra.Command{
		Use:   "generate [dir]",
		Short: "Write a deterministic demo QA run: histograms, references and a manifest",
		Long: `Generate seeded fixture histograms for trying out the other commands:

  new.json / ref.json   1D distributions (h_pt, h_eta, h_nhits)
  eff.json              pass/trials pair for "ratio"
  reso.json             2D residual-vs-pt histogram for "resolution" and "profile"
  manifest.json         comparison manifest for "compare"

Example: qacompare generate demo && qacompare compare demo/manifest.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
			if err := writeDemo(dir, seed, events, shift); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote demo run to %s\n", dir)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().IntVar(&events, "events", 10000, "Entries per 1D histogram")
	cmd.Flags().Float64Var(&shift, "shift", 0, "Shift of the new h_pt mean, to provoke a failing comparison")
	return cmd
}

func writeDemo(dir string, seed uint64, events int, shift float64) error {
	newGen := testkit.NewHistogramGenerator(testkit.GeneratorConfig{Seed: seed})
	refGen := testkit.NewHistogramGenerator(testkit.GeneratorConfig{Seed: seed + 1})

	newHists := []*histogram.Histogram{
		newGen.Gaussian1D("h_pt", events, 5+shift, 2, 50, 0, 10),
		newGen.Gaussian1D("h_eta", events, 0, 1, 40, -2, 2),
		newGen.Gaussian1D("h_nhits", events, 40, 5, 60, 0, 60),
	}
	refHists := []*histogram.Histogram{
		refGen.Gaussian1D("h_pt", events, 5, 2, 50, 0, 10),
		refGen.Gaussian1D("h_eta", events, 0, 1, 40, -2, 2),
	}
	if err := writeHistograms(filepath.Join(dir, "new.json"), newHists...); err != nil {
		return err
	}
	if err := writeHistograms(filepath.Join(dir, "ref.json"), refHists...); err != nil {
		return err
	}

	pass, trials := newGen.PassTrials("h_eff", []int{0, 50, 200, 800, 800, 200, 50, 0}, 0, 8,
		func(x float64) float64 { return 0.6 + 0.04*x })
	if err := writeHistograms(filepath.Join(dir, "eff.json"), pass, trials); err != nil {
		return err
	}

	reso := newGen.Resolution2D("h_dpt_vs_pt", testkit.ResolutionConfig{
		NX: 10, XLo: 0, XHi: 10,
		NY: 100, YLo: -2.5, YHi: 2.5,
		EventsPerX: 2000,
		Mean:       func(x float64) float64 { return 1 },
		Sigma:      func(x float64) float64 { return 0.05 + 0.02*x },
	})
	if err := writeHistograms(filepath.Join(dir, "reso.json"), reso); err != nil {
		return err
	}

	type source struct {
		File string `json:"file"`
		Path string `json:"path"`
	}
	type entry struct {
		Name string  `json:"name"`
		New  source  `json:"new"`
		Ref  *source `json:"ref,omitempty"`
	}
	manifest := struct {
		Label       string  `json:"label"`
		Comparisons []entry `json:"comparisons"`
	}{Label: fmt.Sprintf("demo seed %d", seed)}
	for _, h := range newHists {
		e := entry{Name: h.Name, New: source{File: "new.json", Path: h.Name}}
		for _, r := range refHists {
			if r.Name == h.Name {
				e.Ref = &source{File: "ref.json", Path: r.Name}
			}
		}
		manifest.Comparisons = append(manifest.Comparisons, e)
	}
	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), body, 0o644)
}
