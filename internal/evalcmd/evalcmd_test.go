package evalcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
	"github.com/lehigh-university-libraries/linker/internal/eval/results"
)

func writeFixture(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	files := map[string]string{
		"a.csv":     "id,title\na1,The Hobbit\na2,Dune\na3,Emma\n",
		"b.csv":     "id,title\nb1,the hobbit\nb2,Dune Messiah\nb3,Persuasion\n",
		"truth.csv": "idA,idB\na1,b1\na2,b2\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	doc := fmt.Sprintf(`
sources:
  a: {path: %[1]s/a.csv, id_column: id}
  b: {path: %[1]s/b.csv, id_column: id}
  truth: {path: %[1]s/truth.csv}
fields:
  - {name: title, method: exact}
indexer:
  type: sorted_neighbourhood
  field: title
  window: 3
study:
  bins: 4
  output_dir: %[1]s/study
output:
  results_log: %[1]s/results.csv
  mapping_dir: %[1]s/mappings
  evals_dir: %[1]s/evals
logging:
  env: prod
  level: error
`, dir)
	configPath = filepath.Join(dir, "linker.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(doc), 0644))
	return dir, configPath
}

func TestRunCommand(t *testing.T) {
	dir, configPath := writeFixture(t)
	jsonPath := filepath.Join(dir, "run.json")

	cmd := NewRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath, "--output-json", jsonPath})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "LINKAGE EVALUATION SUMMARY")
	assert.Contains(t, out.String(), "Results appended to:")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var summary metrics.RunSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "sorted_neighbourhood", summary.Indexer)
	require.Len(t, summary.Classifiers, 1)
	assert.Equal(t, 1, summary.Classifiers[0].Evaluation.TruePositives)

	table, err := results.NewLog(filepath.Join(dir, "results.csv")).Read()
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
	assert.Equal(t, "3", table.Value(0, "window"))
}

func TestRunCommandInvalidConfig(t *testing.T) {
	dir, configPath := writeFixture(t)
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, bytes.Replace(data, []byte("window: 3"), []byte("window: 2"), 1), 0644))

	cmd := NewRunCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath})
	err = cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer.window")

	_, statErr := os.Stat(filepath.Join(dir, "results.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestIndexCommand(t *testing.T) {
	dir, configPath := writeFixture(t)
	candidates := filepath.Join(dir, "candidates.csv")

	var out bytes.Buffer
	require.NoError(t, executeIndex(context.Background(), &out, configPath, candidates, false))
	assert.Contains(t, out.String(), "Pair completeness:")

	data, err := os.ReadFile(candidates)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id_a,id_b,match\n"))
	assert.Contains(t, string(data), "a1,b1,1\n")
}

func TestIndexAndCompareReportDataIssues(t *testing.T) {
	dir, configPath := writeFixture(t)
	files := map[string]string{
		"a.csv":     "id,title\na1,\na2,Dune\na2,Dune again\na3,Emma\n",
		"b.csv":     "id,title\nb1,\nb2,Dune Messiah\nb3,Persuasion\n",
		"truth.csv": "idA,idB\na1,b1\na2,b2\na9,b9\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	var index bytes.Buffer
	require.NoError(t, executeIndex(context.Background(), &index, configPath, "", false))
	assert.Contains(t, index.String(), "Data issues:")
	assert.Regexp(t, `duplicate_id\s+1`, index.String())
	assert.Regexp(t, `missing_block_key\s+2`, index.String())
	assert.Regexp(t, `truth_unknown_id\s+1`, index.String())

	var cmp bytes.Buffer
	require.NoError(t, executeCompare(context.Background(), &cmp, configPath, "title", "", 0, false))
	assert.Regexp(t, `duplicate_id\s+1`, cmp.String())
	assert.Regexp(t, `truth_unknown_id\s+1`, cmp.String())
}

func TestCompareCommand(t *testing.T) {
	dir, configPath := writeFixture(t)

	var out bytes.Buffer
	require.NoError(t, executeCompare(context.Background(), &out, configPath, "title", "", 0, false))
	assert.Contains(t, out.String(), "COMPARE METHODS: title")
	assert.Contains(t, out.String(), "jarowinkler")

	_, err := os.Stat(filepath.Join(dir, "study", "cm_bin_exact.csv"))
	assert.NoError(t, err)
}

func TestScoreCommand(t *testing.T) {
	dir, configPath := writeFixture(t)
	mapping := filepath.Join(dir, "mapping.csv")
	require.NoError(t, os.WriteFile(mapping, []byte("id_a,id_b\na1,b1\na3,b3\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, executeScore(context.Background(), &out, configPath, []string{mapping}, true, false))
	assert.Contains(t, out.String(), "Correct Matches 1")
	assert.Contains(t, out.String(), "Missing Matches 1")

	table, err := results.NewLog(filepath.Join(dir, "results.csv")).Read()
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestScoreCommandReportsBadRows(t *testing.T) {
	dir, configPath := writeFixture(t)
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	require.NoError(t, os.WriteFile(first, []byte("id_a,id_b\na1,b1\n,b2\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("id_a,id_b\na2\n"), 0644))

	var out bytes.Buffer
	require.NoError(t, executeScore(context.Background(), &out, configPath, []string{first, second}, false, false))
	assert.Regexp(t, `bad_row\s+2`, out.String())
}

func writeResultsLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.csv")
	log := results.NewLog(path)
	for i, f := range []float64{0.4, 0.9, 0.6} {
		e := metrics.Evaluation{FMeasure: f}
		require.NoError(t, log.Append(results.NewResult(e, map[string]string{"label": fmt.Sprintf("c%d", i)})))
	}
	return path
}

func TestReportFormats(t *testing.T) {
	path := writeResultsLog(t)

	var text bytes.Buffer
	require.NoError(t, executeReport(&text, path, "text", "", "f_measure", 2))
	assert.Contains(t, text.String(), "Rows: 2")
	assert.Less(t, strings.Index(text.String(), "c1"), strings.Index(text.String(), "c2"))
	assert.NotContains(t, text.String(), "c0")

	var js bytes.Buffer
	require.NoError(t, executeReport(&js, path, "json", "", "", 0))
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(js.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "c0", rows[0]["label"])

	var csvOut bytes.Buffer
	require.NoError(t, executeReport(&csvOut, path, "csv", "", "", 0))
	assert.Len(t, strings.Split(strings.TrimSpace(csvOut.String()), "\n"), 4)

	xlsx := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, executeReport(&bytes.Buffer{}, path, "xlsx", xlsx, "", 0))
	_, err := os.Stat(xlsx)
	assert.NoError(t, err)

	assert.Error(t, executeReport(&bytes.Buffer{}, path, "pdf", "", "", 0))
	assert.Error(t, executeReport(&bytes.Buffer{}, path, "text", "", "no_such_column", 0))
}

func TestInspect(t *testing.T) {
	dir, _ := writeFixture(t)

	var out bytes.Buffer
	err := executeInspect(context.Background(), strings.NewReader(""), &out, inspectOptions{
		path:        filepath.Join(dir, "a.csv"),
		idColumn:    "id",
		delimiter:   ",",
		encoding:    "utf-8",
		limit:       2,
		showRecords: true,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Loaded 2 records")
	assert.Contains(t, out.String(), "id=a1")
	assert.Contains(t, out.String(), "the hobbit")
	assert.Contains(t, out.String(), "COLUMN FILL RATES")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
