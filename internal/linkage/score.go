package linkage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lehigh-university-libraries/linker/internal/config"
	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/eval/dataset"
	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
	"github.com/lehigh-university-libraries/linker/internal/eval/results"
	"github.com/lehigh-university-libraries/linker/internal/logger"
)

// MappingScore compares an existing mapping with the ground truth.
type MappingScore struct {
	Mapping      string             `json:"mapping"`
	Correct      int                `json:"match_correct"`
	Incorrect    int                `json:"match_incorrect"`
	PerfectTotal int                `json:"perfect_match_total"`
	Missing      int                `json:"missing_matches"`
	Evaluation   metrics.Evaluation `json:"evaluation"`
}

// EvaluateMapping scores mapping against truth. The universe is the union
// of both sets, so every true pair the mapping misses counts as a false
// negative.
func EvaluateMapping(mapping, truth *domain.PairSet) MappingScore {
	universe := domain.NewPairSet(mapping.Pairs()...)
	for _, p := range truth.Pairs() {
		universe.Add(p)
	}
	correct := mapping.IntersectionLen(truth)
	return MappingScore{
		Correct:      correct,
		Incorrect:    mapping.Len() - correct,
		PerfectTotal: truth.Len(),
		Missing:      truth.Len() - correct,
		Evaluation:   metrics.Evaluate(mapping, truth, universe),
	}
}

// Print writes the score in a short human-readable block.
func (s MappingScore) Print(w io.Writer) {
	if s.Mapping != "" {
		fmt.Fprintln(w, s.Mapping)
		fmt.Fprintln(w, "--------------------------")
	}
	fmt.Fprintf(w, "Correct Matches %d\n", s.Correct)
	fmt.Fprintf(w, "Incorrect Matches %d\n", s.Incorrect)
	fmt.Fprintf(w, "Perfect Matches Total %d\n", s.PerfectTotal)
	fmt.Fprintf(w, "Missing Matches %d\n", s.Missing)
	fmt.Fprintf(w, "Precision %.4f  Recall %.4f  F-Measure %.4f\n",
		s.Evaluation.Precision, s.Evaluation.Recall, s.Evaluation.FMeasure)
}

// ScoreMapping loads the mapping file at path and the configured ground
// truth and evaluates one against the other. When appendLog is set the
// evaluation is appended to the results log with the mapping path as
// metadata. Malformed rows of either file are merged into issues.
func ScoreMapping(ctx context.Context, cfg config.Config, path string, appendLog bool, issues *domain.Issues) (MappingScore, error) {
	log := logger.FromContext(ctx)
	if cfg.Sources.Truth.Path == "" {
		return MappingScore{}, domain.NewConfigError("sources.truth.path", "is required to score a mapping")
	}
	delim, err := config.ParseDelimiter("sources.truth.delimiter", cfg.Sources.Truth.Delimiter)
	if err != nil {
		return MappingScore{}, err
	}

	local := domain.NewIssues()
	truth, err := dataset.LoadPairs(cfg.Sources.Truth.Path, delim, local)
	if err != nil {
		return MappingScore{}, fmt.Errorf("failed to load ground truth: %w", err)
	}
	mapping, err := dataset.LoadPairs(path, ',', local)
	if err != nil {
		return MappingScore{}, fmt.Errorf("failed to load mapping: %w", err)
	}
	if n := local.Total(); n > 0 {
		log.Warn("Skipped malformed pair rows", zap.String("mapping", path), zap.Int("count", n))
	}
	issues.Merge(local)

	score := EvaluateMapping(mapping, truth)
	score.Mapping = path

	if appendLog && cfg.Output.ResultsLog != "" {
		r := results.NewResult(score.Evaluation, map[string]string{
			"mapping":         path,
			"match_incorrect": fmt.Sprint(score.Incorrect),
			"missing_matches": fmt.Sprint(score.Missing),
		})
		if err := results.NewLog(cfg.Output.ResultsLog).Append(r); err != nil {
			return score, err
		}
		log.Info("Appended mapping score", zap.String("results_log", cfg.Output.ResultsLog))
	}
	return score, nil
}
