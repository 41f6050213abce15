package linkage

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lehigh-university-libraries/linker/internal/compare"
	"github.com/lehigh-university-libraries/linker/internal/config"
	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
	"github.com/lehigh-university-libraries/linker/internal/logger"
)

// MethodStudy is the outcome of one comparator in the study.
type MethodStudy struct {
	Method       string
	MeanMatch    float64
	MeanDistinct float64
	Histogram    metrics.Histogram
}

// StudyResult summarises a compare-methods study.
type StudyResult struct {
	Field      string
	Matches    int
	NonMatches int
	OutputDir  string
	Methods    []MethodStudy
	Elapsed    time.Duration
}

type studyRow struct {
	pair   domain.Pair
	valueA string
	valueB string
	scores []float64
}

// Study scores one field of the true matches and of a seeded sample of
// non-matches with every registered comparator, so their distributions can
// be compared. It writes cm_matches.csv, cm_distinct.csv and one
// cm_bin_<method>.csv histogram per comparator to the study output
// directory.
func Study(ctx context.Context, cfg config.Config, opts Options) (*StudyResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	field := cfg.Study.Field
	if field == "" {
		if names := cfg.FieldNames(); len(names) > 0 {
			field = names[0]
		}
	}
	if field == "" {
		return nil, domain.NewConfigError("study.field", "is required")
	}
	if cfg.Sources.Truth.Path == "" {
		return nil, domain.NewConfigError("sources.truth.path", "is required for the compare-methods study")
	}
	if cfg.Study.Bins < 1 {
		return nil, domain.NewConfigError("study.bins", "must be at least 1, got %d", cfg.Study.Bins)
	}

	methods := compare.Methods()
	comparators := make([]compare.Comparator, len(methods))
	for i, m := range methods {
		c, err := compare.New(m)
		if err != nil {
			return nil, err
		}
		comparators[i] = c
	}

	cfg.Study.Field = field
	issues := opts.issues()
	in, err := LoadInputs(ctx, cfg, issues)
	if err != nil {
		return nil, err
	}
	if !in.A.HasColumn(field) && !in.B.HasColumn(field) {
		return nil, fmt.Errorf("%w: study.field %q", domain.ErrUnknownField, field)
	}

	matches := in.Truth.Pairs()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	distinct := sampleNonMatches(rng, in.A, in.B, in.Truth, cfg.Study.Ratio*len(matches))
	log.Info("Sampled study pairs",
		zap.String("field", field),
		zap.Int("matches", len(matches)),
		zap.Int("non_matches", len(distinct)))

	matchRows := scoreRows(matches, field, in, comparators)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	distinctRows := scoreRows(distinct, field, in, comparators)
	opts.Recorder.Comparisons((len(matchRows) + len(distinctRows)) * len(comparators))

	dir := cfg.Study.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create study directory: %w", err)
	}
	if err := writeStudyRows(filepath.Join(dir, "cm_matches.csv"), methods, matchRows); err != nil {
		return nil, err
	}
	if err := writeStudyRows(filepath.Join(dir, "cm_distinct.csv"), methods, distinctRows); err != nil {
		return nil, err
	}

	res := &StudyResult{
		Field:      field,
		Matches:    len(matchRows),
		NonMatches: len(distinctRows),
		OutputDir:  dir,
	}
	for i, m := range methods {
		ms, md := column(matchRows, i), column(distinctRows, i)
		h, err := metrics.Bin(ms, md, cfg.Study.Bins)
		if err != nil {
			return nil, err
		}
		if err := writeHistogram(filepath.Join(dir, "cm_bin_"+m+".csv"), h); err != nil {
			return nil, err
		}
		res.Methods = append(res.Methods, MethodStudy{
			Method:       m,
			MeanMatch:    mean(ms),
			MeanDistinct: mean(md),
			Histogram:    h,
		})
	}

	res.Elapsed = time.Since(start)
	opts.Recorder.StageDuration("study", res.Elapsed)
	opts.Recorder.DataIssues(issues.Map())
	logIssues(log, issues)
	log.Info("Compare-methods study complete",
		zap.String("output_dir", dir),
		zap.Int("methods", len(methods)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// sampleNonMatches draws up to k distinct pairs from A×B minus truth. Small
// populations are enumerated; otherwise pairs are drawn by rejection so the
// cross product is never built.
func sampleNonMatches(rng *rand.Rand, a, b *domain.Collection, truth *domain.PairSet, k int) []domain.Pair {
	n, m := a.Len(), b.Len()
	available := n*m - truth.Len()
	if k <= 0 || available <= 0 {
		return nil
	}
	if k > available {
		k = available
	}

	if 2*k > available {
		pool := make([]domain.Pair, 0, available)
		for _, ra := range a.Records() {
			for _, rb := range b.Records() {
				p := domain.Pair{A: ra.ID, B: rb.ID}
				if !truth.Contains(p) {
					pool = append(pool, p)
				}
			}
		}
		for i := 0; i < k; i++ {
			j := i + rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		return pool[:k]
	}

	chosen := domain.NewPairSet()
	for chosen.Len() < k {
		p := domain.Pair{A: a.At(rng.IntN(n)).ID, B: b.At(rng.IntN(m)).ID}
		if truth.Contains(p) {
			continue
		}
		chosen.Add(p)
	}
	return chosen.Pairs()
}

func scoreRows(pairs []domain.Pair, field string, in *Inputs, comparators []compare.Comparator) []studyRow {
	rows := make([]studyRow, 0, len(pairs))
	for _, p := range pairs {
		ra, okA := in.A.Get(p.A)
		rb, okB := in.B.Get(p.B)
		if !okA || !okB {
			continue
		}
		va, hasA := ra.Value(field)
		vb, hasB := rb.Value(field)
		row := studyRow{pair: p, valueA: va, valueB: vb, scores: make([]float64, len(comparators))}
		if hasA && hasB {
			for i, c := range comparators {
				row.scores[i] = c.Compare(va, vb)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func column(rows []studyRow, i int) []float64 {
	out := make([]float64, len(rows))
	for r, row := range rows {
		out[r] = row.scores[i]
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func writeStudyRows(path string, methods []string, rows []studyRow) error {
	header := append([]string{"id_a", "id_b", "value_a", "value_b"}, methods...)
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := []string{row.pair.A, row.pair.B, row.valueA, row.valueB}
		for _, s := range row.scores {
			rec = append(rec, strconv.FormatFloat(s, 'f', 6, 64))
		}
		records = append(records, rec)
	}
	return writeCSV(path, header, records)
}

func writeHistogram(path string, h metrics.Histogram) error {
	records := make([][]string, len(h.Bounds))
	for i, bound := range h.Bounds {
		records[i] = []string{
			strconv.FormatFloat(bound, 'f', -1, 64),
			strconv.FormatFloat(h.Match[i], 'f', 6, 64),
			strconv.FormatFloat(h.NonMatch[i], 'f', 6, 64),
		}
	}
	return writeCSV(path, []string{"bin", "match", "distinct"}, records)
}

func writeCSV(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}
