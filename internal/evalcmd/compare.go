package evalcmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/linkage"
)

func executeCompare(ctx context.Context, w io.Writer, configPath, field, outputDir string, bins int, verbose bool) error {
	ctx, cfg, err := setup(ctx, configPath, verbose)
	if err != nil {
		return err
	}
	defer syncLogger(ctx)

	if field != "" {
		cfg.Study.Field = field
	}
	if outputDir != "" {
		cfg.Study.OutputDir = outputDir
	}
	if bins > 0 {
		cfg.Study.Bins = bins
	}

	issues := domain.NewIssues()
	res, err := linkage.Study(ctx, cfg, linkage.Options{ConfigPath: configPath, Issues: issues})
	if err != nil {
		return err
	}

	methods := append([]linkage.MethodStudy(nil), res.Methods...)
	sort.SliceStable(methods, func(i, j int) bool {
		return separation(methods[i]) > separation(methods[j])
	})

	fmt.Fprintln(w, strings.Repeat("=", 64))
	fmt.Fprintf(w, "COMPARE METHODS: %s (%d matches, %d non-matches)\n", res.Field, res.Matches, res.NonMatches)
	fmt.Fprintln(w, strings.Repeat("=", 64))
	fmt.Fprintf(w, "%-22s %12s %12s %12s\n", "Method", "Match mean", "Other mean", "Separation")
	for _, m := range methods {
		fmt.Fprintf(w, "%-22s %12.4f %12.4f %12.4f\n", m.Method, m.MeanMatch, m.MeanDistinct, separation(m))
	}
	fmt.Fprintf(w, "\nScores and histograms saved to: %s\n", res.OutputDir)
	fmt.Fprintf(w, "Time elapsed: %v\n", res.Elapsed)
	printIssues(w, issues)
	return nil
}

func separation(m linkage.MethodStudy) float64 {
	return m.MeanMatch - m.MeanDistinct
}
