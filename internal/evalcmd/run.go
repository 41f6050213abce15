package evalcmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
	"github.com/lehigh-university-libraries/linker/internal/linkage"
	"github.com/lehigh-university-libraries/linker/internal/logger"
	"github.com/lehigh-university-libraries/linker/internal/telemetry"
)

func executeRun(ctx context.Context, w io.Writer, configPath, outputJSON, metricsFile string, verbose bool) error {
	ctx, cfg, err := setup(ctx, configPath, verbose)
	if err != nil {
		return err
	}
	defer syncLogger(ctx)

	if metricsFile != "" {
		cfg.Output.MetricsFile = metricsFile
	}
	var recorder *telemetry.Recorder
	if cfg.Output.MetricsFile != "" {
		recorder = telemetry.NewRecorder()
	}

	logger.FromContext(ctx).Info("Starting linkage run",
		zap.String("indexer", cfg.Indexer.Type),
		zap.Int("classifiers", len(cfg.Classifiers)))

	summary, err := linkage.Run(ctx, cfg, linkage.Options{
		ConfigPath: configPath,
		Recorder:   recorder,
	})
	if err != nil {
		return err
	}

	summary.PrintSummary(w)

	if outputJSON != "" {
		if err := summary.SaveToJSON(outputJSON); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nSummary saved to: %s\n", outputJSON)
	}
	if cfg.Output.ResultsLog != "" {
		fmt.Fprintf(w, "Results appended to: %s\n", cfg.Output.ResultsLog)
		fmt.Fprintf(w, "\nGenerate a report with:\n")
		fmt.Fprintf(w, "  linker link report --results %s --sort f_measure\n", cfg.Output.ResultsLog)
	}
	return nil
}

func executeIndex(ctx context.Context, w io.Writer, configPath, outputPath string, verbose bool) error {
	ctx, cfg, err := setup(ctx, configPath, verbose)
	if err != nil {
		return err
	}
	defer syncLogger(ctx)

	issues := domain.NewIssues()
	in, candidates, err := linkage.Index(ctx, cfg, linkage.Options{ConfigPath: configPath, Issues: issues})
	if err != nil {
		return err
	}
	b := metrics.EvaluateBlocking(candidates, in.Truth, in.A.Len(), in.B.Len())

	fmt.Fprintf(w, "Records:            %d x %d\n", in.A.Len(), in.B.Len())
	fmt.Fprintf(w, "Candidate pairs:    %d of %d\n", b.Candidates, b.FullSize)
	fmt.Fprintf(w, "Reduction ratio:    %.4f\n", b.ReductionRatio)
	if in.Truth.Len() > 0 {
		fmt.Fprintf(w, "Pair completeness:  %.4f (%d/%d true matches kept)\n", b.PairCompleteness, b.TruthFound, b.Truth)
	}
	printIssues(w, issues)

	if outputPath == "" {
		return nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create candidate file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{"id_a", "id_b", "match"}); err != nil {
		return err
	}
	for _, p := range candidates.Pairs() {
		match := "0"
		if in.Truth.Contains(p) {
			match = "1"
		}
		if err := cw.Write([]string{p.A, p.B, match}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write candidate file: %w", err)
	}
	fmt.Fprintf(w, "\nCandidates saved to: %s\n", outputPath)
	return nil
}
