package results

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
)

func evaluation(tp, fp int) metrics.Evaluation {
	return metrics.Evaluation{
		Counts:    metrics.Counts{TruePositives: tp, FalsePositives: fp},
		Precision: 0.5,
		Recall:    0.25,
		FMeasure:  1.0 / 3,
	}
}

func TestLogSchemaGrowth(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "results.csv"))

	require.NoError(t, log.Append(NewResult(evaluation(1, 1), map[string]string{"indexer": "full"})))
	require.NoError(t, log.Append(NewResult(evaluation(2, 0), map[string]string{"indexer": "sorted_neighbourhood", "window": "5"})))
	require.NoError(t, log.Append(NewResult(evaluation(3, 0), map[string]string{"indexer": "canopy"})))

	table, err := log.Read()
	require.NoError(t, err)

	assert.Equal(t, append(append([]string{}, coreColumns...), "indexer", "window"), table.Header)
	require.Len(t, table.Rows, 3)
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Header))
	}

	assert.Equal(t, "full", table.Value(0, "indexer"))
	assert.Equal(t, "", table.Value(0, "window"))
	assert.Equal(t, "5", table.Value(1, "window"))
	assert.Equal(t, "", table.Value(2, "window"))
	assert.Equal(t, "3", table.Value(2, "true_positives"))
	assert.Equal(t, "0.333333", table.Value(0, "f_measure"))

	entries, err := os.ReadDir(filepath.Dir(log.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLogKeepsPermissions(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "results.csv"))

	require.NoError(t, log.Append(NewResult(evaluation(1, 0), nil)))
	info, err := os.Stat(log.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	require.NoError(t, os.Chmod(log.Path(), 0640))
	require.NoError(t, log.Append(NewResult(evaluation(2, 0), map[string]string{"indexer": "full"})))
	info, err = os.Stat(log.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestLogRewriteRejectsLongRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	log := NewLog(path)
	require.NoError(t, log.Append(NewResult(evaluation(1, 0), nil)))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("r2,2024-01-01T00:00:00Z,1,0,0,0,1,1,1,stray\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = log.Append(NewResult(evaluation(3, 0), map[string]string{"indexer": "full"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2 has 10 cells")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, log.Append(NewResult(evaluation(4, 0), nil)))
	table, err := log.Read()
	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
}

func TestLogCoreColumnsWin(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "nested", "results.csv"))

	r := NewResult(evaluation(1, 0), map[string]string{"precision": "bogus"})
	require.NoError(t, log.Append(r))

	table, err := log.Read()
	require.NoError(t, err)
	assert.Equal(t, coreColumns, table.Header)
	assert.Equal(t, "0.500000", table.Value(0, "precision"))
	assert.Equal(t, r.RunID, table.Value(0, "run_id"))
}

func TestReadMissingLog(t *testing.T) {
	_, err := NewLog(filepath.Join(t.TempDir(), "none.csv")).Read()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTableValueOutOfRange(t *testing.T) {
	table := Table{Header: []string{"a"}, Rows: [][]string{{"1"}}}
	assert.Equal(t, "", table.Value(3, "a"))
	assert.Equal(t, "", table.Value(0, "b"))
	assert.Equal(t, -1, table.Index("b"))
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	table := Table{
		Header: []string{"run_id", "precision", "indexer"},
		Rows: [][]string{
			{"abc", "0.5", "full"},
			{"def", "0.75", "canopy"},
		},
	}
	require.NoError(t, WriteWorkbook(table, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, table.Header, rows[0])
	assert.Equal(t, "canopy", rows[2][2])
	assert.Equal(t, "0.75", rows[2][1])
}

func TestSaveToYAML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "evals")
	s := &metrics.RunSummary{
		RunID:          "run-1",
		EvaluationDate: time.Date(2024, 3, 27, 10, 30, 0, 0, time.UTC),
		Indexer:        "sorted_neighbourhood",
		IndexerParams:  map[string]string{"window": "3"},
		Fields:         []string{"title_jaro"},
		Seed:           42,
		Classifiers: []metrics.ClassifierResult{
			{Name: "threshold", Evaluation: metrics.Evaluation{FMeasure: 0.4}},
			{Name: "logistic", Evaluation: metrics.Evaluation{FMeasure: 0.7}, ProcessingTime: time.Second},
		},
	}

	path, err := SaveToYAML(dir, "linker.yaml", s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sorted-neighbourhood-2024-03-27_10-30-00.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var spec EvalSpec
	require.NoError(t, yaml.Unmarshal(data, &spec))
	assert.Equal(t, "run-1", spec.Config.RunID)
	assert.Equal(t, uint64(42), spec.Config.Seed)
	require.Len(t, spec.Results, 2)
	assert.Equal(t, "logistic", spec.Results[0].Classifier)
	assert.Equal(t, "1s", spec.Results[0].ProcessingTime)
}
