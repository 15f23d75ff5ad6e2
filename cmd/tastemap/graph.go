package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tastemap/internal/adapters/render"
)

const (
	histogramFile   = "histogram.png"
	scatterplotFile = "scatterplot.png"
)

func graphCmd(opts *rootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "graph-interests",
		Short: "Plot feature histograms and pairwise scatterplots",
		Long: `Write histogram.png (one panel per feature) and scatterplot.png (one panel
per feature pair) for the library to --out-dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.analyzer.FeatureValues(cmd.Context())
			if err != nil {
				return err
			}

			series := make([]render.Series, 0, len(data.Catalog))
			for _, attr := range data.Catalog {
				series = append(series, render.Series{Name: attr, Values: data.Values[attr]})
			}
			pairs := make([]render.PointSeries, 0, len(data.Pairs))
			for _, p := range data.Pairs {
				pairs = append(pairs, render.PointSeries{X: p.X, Y: p.Y, Points: p.Points})
			}

			histPath := filepath.Join(outDir, histogramFile)
			if err := render.WriteFile(histPath, func(w io.Writer) error {
				return render.Histograms(w, series)
			}); err != nil {
				return err
			}
			scatterPath := filepath.Join(outDir, scatterplotFile)
			if err := render.WriteFile(scatterPath, func(w io.Writer) error {
				return render.Scatterplots(w, pairs)
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %s\n", histPath, scatterPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for the PNG files")
	return cmd
}
