package linkage

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/linker/internal/blocking"
	"github.com/lehigh-university-libraries/linker/internal/compare"
	"github.com/lehigh-university-libraries/linker/internal/config"
	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/eval/results"
	"github.com/lehigh-university-libraries/linker/internal/telemetry"
)

const recordsA = `id,name,price
a1,Apple iPhone,100
a2,Samsung Galaxy,200
a3,Nokia Lumia,50
`

const recordsB = `id,name,price
b1,apple iphone,$101
b2,Samsung Galaxy S,199
b3,Sony Xperia,300
`

const truthPairs = `idA,idB
a1,b1
a2,b2
a9,b9
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testConfig(t *testing.T, classifiers string) (config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", recordsA)
	writeFile(t, dir, "b.csv", recordsB)
	writeFile(t, dir, "truth.csv", truthPairs)

	doc := fmt.Sprintf(`
sources:
  a:
    path: %[1]s/a.csv
    id_column: id
    numeric_fields: [price]
  b:
    path: %[1]s/b.csv
    id_column: id
    numeric_fields: [price]
  truth:
    path: %[1]s/truth.csv
fields:
  - name: name
    method: exact
indexer:
  type: full
classifiers:
%[2]s
golden_pairs: 4
study:
  field: name
  ratio: 2
  bins: 5
  output_dir: %[1]s/study
output:
  results_log: %[1]s/results.csv
  mapping_dir: %[1]s/mappings
  evals_dir: %[1]s/evals
  features_file: %[1]s/features.parquet
  metrics_file: %[1]s/linker.prom
`, dir, classifiers)

	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return cfg, dir
}

const thresholdOnly = `  - type: threshold
    threshold: 0.5`

func TestRunEndToEnd(t *testing.T) {
	cfg, dir := testConfig(t, thresholdOnly+"\n  - type: logistic")
	issues := domain.NewIssues()

	summary, err := Run(context.Background(), cfg, Options{
		ConfigPath: "linker.yaml",
		Recorder:   telemetry.NewRecorder(),
		Issues:     issues,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.RecordsA)
	assert.Equal(t, 3, summary.RecordsB)
	assert.Equal(t, 2, summary.TruthPairs)
	assert.Equal(t, 1, issues.Count(domain.IssueTruthUnknownID))
	assert.Equal(t, 9, summary.Blocking.Candidates)
	assert.Equal(t, 1.0, summary.Blocking.PairCompleteness)
	assert.Equal(t, 0.0, summary.Blocking.ReductionRatio)
	assert.Equal(t, 4, summary.GoldenPairs)
	assert.Equal(t, 2, summary.GoldenMatches)

	require.Len(t, summary.Classifiers, 2)
	threshold := summary.Classifiers[0]
	assert.Equal(t, "threshold", threshold.Name)
	assert.Equal(t, 1, threshold.Evaluation.TruePositives)
	assert.Equal(t, 0, threshold.Evaluation.FalsePositives)
	assert.Equal(t, 1, threshold.Evaluation.FalseNegatives)
	assert.Equal(t, 7, threshold.Evaluation.TrueNegatives)
	assert.InDelta(t, 1.0, threshold.Evaluation.Precision, 1e-9)
	assert.InDelta(t, 0.5, threshold.Evaluation.Recall, 1e-9)

	mapping, err := os.ReadFile(threshold.MappingPath)
	require.NoError(t, err)
	assert.Equal(t, "id_a,id_b,score\na1,b1,1.000000\n", string(mapping))

	table, err := results.NewLog(cfg.Output.ResultsLog).Read()
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "threshold", table.Value(0, "label"))
	assert.Equal(t, "logistic", table.Value(1, "label"))
	assert.Equal(t, "full", table.Value(0, "indexer"))
	assert.Equal(t, "4", table.Value(0, "golden_pairs"))
	assert.Equal(t, summary.RunID, table.Value(1, "run_id"))

	snapshots, err := os.ReadDir(filepath.Join(dir, "evals"))
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	_, err = os.Stat(cfg.Output.FeaturesFile)
	assert.NoError(t, err)

	prom, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `linker_candidate_pairs_total{indexer="full"} 9`)
}

func TestRunWithoutCandidatesLeavesLogisticUntrained(t *testing.T) {
	cfg, dir := testConfig(t, thresholdOnly+"\n  - type: logistic")
	writeFile(t, dir, "a.csv", "id,name,price\na1,zzzz,1\na2,zzzzz,2\n")
	writeFile(t, dir, "b.csv", "id,name,price\nb1,qqqq,1\nb2,qqqqq,2\n")
	writeFile(t, dir, "truth.csv", "idA,idB\na1,b1\n")
	cfg.Indexer.Options = blocking.Options{
		Type: blocking.TypeCanopy,
		Canopy: &blocking.CanopyOptions{
			Fields:          []string{"name"},
			ThresholdAdd:    0.5,
			ThresholdRemove: 0.8,
		},
	}
	issues := domain.NewIssues()

	summary, err := Run(context.Background(), cfg, Options{Issues: issues})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Blocking.Candidates)
	assert.Equal(t, 0, summary.GoldenPairs)
	assert.Equal(t, 1, issues.Count(domain.IssueNoTrainingData))
	assert.Equal(t, 1, summary.Issues[domain.IssueNoTrainingData])

	require.Len(t, summary.Classifiers, 2)
	assert.False(t, summary.Classifiers[0].Untrained)
	logistic := summary.Classifiers[1]
	assert.Equal(t, "logistic", logistic.Name)
	assert.True(t, logistic.Untrained)
	assert.Equal(t, 0, logistic.Evaluation.Decided)
	assert.Equal(t, 1, logistic.Evaluation.Truth)

	snapshots, err := os.ReadDir(filepath.Join(dir, "evals"))
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)

	table, err := results.NewLog(cfg.Output.ResultsLog).Read()
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestRunRejectsConfigBeforeIO(t *testing.T) {
	cfg, _ := testConfig(t, thresholdOnly)
	cfg.Sources.A.Path = "/does/not/exist.csv"
	cfg.Indexer.Type = "bigram"

	_, err := Run(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig), "got %v", err)
}

func TestRunMissingInput(t *testing.T) {
	cfg, _ := testConfig(t, thresholdOnly)
	cfg.Sources.A.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, err := Run(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestRunCancelled(t *testing.T) {
	cfg, _ := testConfig(t, thresholdOnly)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex(t *testing.T) {
	cfg, _ := testConfig(t, thresholdOnly)

	in, candidates, err := Index(context.Background(), cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, in.A.Len())
	assert.Equal(t, 9, candidates.Len())
	assert.Equal(t, 3, in.RawTruth.Len())
	assert.Equal(t, 2, in.Truth.Len())
}

func TestEvaluateMapping(t *testing.T) {
	mapping := domain.NewPairSet(domain.Pair{A: "a1", B: "b1"}, domain.Pair{A: "a3", B: "b3"})
	truth := domain.NewPairSet(domain.Pair{A: "a1", B: "b1"}, domain.Pair{A: "a2", B: "b2"})

	s := EvaluateMapping(mapping, truth)
	assert.Equal(t, 1, s.Correct)
	assert.Equal(t, 1, s.Incorrect)
	assert.Equal(t, 2, s.PerfectTotal)
	assert.Equal(t, 1, s.Missing)
	assert.Equal(t, 1, s.Evaluation.FalseNegatives)
	assert.Equal(t, 0, s.Evaluation.TrueNegatives)
	assert.InDelta(t, 0.5, s.Evaluation.FMeasure, 1e-9)

	var sb strings.Builder
	s.Print(&sb)
	assert.Contains(t, sb.String(), "Missing Matches 1")
}

func TestScoreMapping(t *testing.T) {
	cfg, dir := testConfig(t, thresholdOnly)
	path := writeFile(t, dir, "found.csv", "id_a,id_b,score\na1,b1,0.9\na3,b3,0.7\n,b2,0.4\n")

	issues := domain.NewIssues()
	s, err := ScoreMapping(context.Background(), cfg, path, true, issues)
	require.NoError(t, err)
	assert.Equal(t, 1, issues.Count(domain.IssueBadRow))
	assert.Equal(t, 1, s.Correct)
	assert.Equal(t, 3, s.PerfectTotal)
	assert.Equal(t, 2, s.Missing)

	table, err := results.NewLog(cfg.Output.ResultsLog).Read()
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, path, table.Value(0, "mapping"))

	cfg.Sources.Truth.Path = ""
	_, err = ScoreMapping(context.Background(), cfg, path, false, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestStudy(t *testing.T) {
	cfg, dir := testConfig(t, thresholdOnly)

	res, err := Study(context.Background(), cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "name", res.Field)
	assert.Equal(t, 2, res.Matches)
	assert.Equal(t, 4, res.NonMatches)
	require.Len(t, res.Methods, len(compare.Methods()))

	for _, m := range res.Methods {
		assert.Len(t, m.Histogram.Bounds, 5, m.Method)
		_, err := os.Stat(filepath.Join(dir, "study", "cm_bin_"+m.Method+".csv"))
		assert.NoError(t, err, m.Method)
	}

	data, err := os.ReadFile(filepath.Join(dir, "study", "cm_matches.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id_a,id_b,value_a,value_b,"))
	assert.True(t, strings.HasPrefix(lines[1], "a1,b1,apple iphone,apple iphone,"))
}

func TestSampleNonMatchesRejection(t *testing.T) {
	var ra, rb []domain.Record
	for i := 0; i < 20; i++ {
		ra = append(ra, domain.Record{ID: fmt.Sprintf("a%d", i)})
		rb = append(rb, domain.Record{ID: fmt.Sprintf("b%d", i)})
	}
	a := domain.NewCollection("a", nil, ra, nil)
	b := domain.NewCollection("b", nil, rb, nil)
	truth := domain.NewPairSet(domain.Pair{A: "a0", B: "b0"}, domain.Pair{A: "a1", B: "b1"})

	draw := func() []domain.Pair {
		return sampleNonMatches(rand.New(rand.NewPCG(7, 7)), a, b, truth, 30)
	}
	first := draw()
	require.Len(t, first, 30)
	assert.Equal(t, first, draw())

	seen := domain.NewPairSet()
	for _, p := range first {
		assert.False(t, truth.Contains(p))
		assert.True(t, seen.Add(p), "duplicate %v", p)
	}
}

func TestSampleNonMatchesExhaustive(t *testing.T) {
	a := domain.NewCollection("a", nil, []domain.Record{{ID: "a1"}, {ID: "a2"}}, nil)
	b := domain.NewCollection("b", nil, []domain.Record{{ID: "b1"}}, nil)
	truth := domain.NewPairSet(domain.Pair{A: "a1", B: "b1"})

	got := sampleNonMatches(rand.New(rand.NewPCG(1, 1)), a, b, truth, 10)
	assert.Equal(t, []domain.Pair{{A: "a2", B: "b1"}}, got)
}
