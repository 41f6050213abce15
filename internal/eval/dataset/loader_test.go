package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lower-cases and trims", input: "  Sony Bravia  ", expected: "sony bravia"},
		{name: "drops hyphens apostrophes commas", input: "KDL-40V'S, black", expected: "kdl40vs black"},
		{name: "slash and colon become spaces", input: "DVD/CD:player", expected: "dvd cd player"},
		{name: "collapses newlines", input: "line one\n\nline  two", expected: "line one line two"},
		{name: "folds accents", input: "Café Crème", expected: "cafe creme"},
		{name: "strips quotes", input: `"quoted"`, expected: "quoted"},
		{name: "empty stays empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestCleanNumber(t *testing.T) {
	v, ok := CleanNumber("$1,299.50")
	require.True(t, ok)
	assert.Equal(t, "1299.5", v)

	_, ok = CleanNumber("n/a")
	assert.False(t, ok)
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "a.csv", "unique_id,title,price\n1,Sony TV,$10.00\n2,,\n2,Dup,\n3,Panasonic,abc\n")

	issues := domain.NewIssues()
	loader := NewLoader(path, Options{
		IDColumn:      "unique_id",
		Fields:        []string{"title", "price"},
		NumericFields: []string{"price"},
		Issues:        issues,
	})

	c, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	r, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "sony tv", r.Fields["title"])
	assert.Equal(t, "10", r.Fields["price"])

	assert.Equal(t, 1, issues.Count(domain.IssueDuplicateID))
	assert.Equal(t, 1, issues.Count(domain.IssueBadNumber))
	// record 2: title+price missing, dup row: price missing, record 3: price missing
	assert.Equal(t, 4, issues.Count(domain.IssueMissingField))
	assert.ElementsMatch(t, []string{"title", "price"}, c.Columns)
}

func TestLoadCSVCustomDelimiterAndSample(t *testing.T) {
	path := writeFile(t, "b.tsv", "id\tname\n1\tA\n2\tB\n3\tC\n")

	c, err := NewLoader(path, Options{IDColumn: "id", Delimiter: '\t'}).LoadSample(2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "b", c.At(1).Fields["name"])
}

func TestLoadJSONL(t *testing.T) {
	path := writeFile(t, "c.jsonl", `{"id":"x1","title":"Test Book","price":12}
not json
{"id":"x2","title":"Another Book"}
`)
	issues := domain.NewIssues()
	c, err := NewLoader(path, Options{IDColumn: "id", Issues: issues}).Load()
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "12", c.At(0).Fields["price"])
	assert.Equal(t, 1, issues.Count(domain.IssueBadRow))
}

func TestLoadMissingIDColumn(t *testing.T) {
	path := writeFile(t, "a.csv", "id,title\n1,x\n")
	_, err := NewLoader(path, Options{IDColumn: "unique_id"}).Load()
	assert.Error(t, err)
}

func TestLoadRequiresIDColumnOption(t *testing.T) {
	_, err := NewLoader("a.csv", Options{}).Load()
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := NewLoader("test.txt.gz", Options{IDColumn: "id"}).Load()
	assert.Error(t, err)
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/file.csv", Options{IDColumn: "id"}).Load()
	assert.Error(t, err)
}

func TestLoadPairsAndResolveTruth(t *testing.T) {
	path := writeFile(t, "truth.csv", "idAbt,idBuy\n1,b1\n1,b1\n2,b9\n,b3\n")

	issues := domain.NewIssues()
	truth, err := LoadPairs(path, ',', issues)
	require.NoError(t, err)
	assert.Equal(t, 2, truth.Len())
	assert.Equal(t, 1, issues.Count(domain.IssueBadRow))

	a := domain.NewCollection("a", nil, []domain.Record{{ID: "1"}, {ID: "2"}}, nil)
	b := domain.NewCollection("b", nil, []domain.Record{{ID: "b1"}}, nil)
	resolved := ResolveTruth(truth, a, b, issues)
	assert.Equal(t, []domain.Pair{{A: "1", B: "b1"}}, resolved.Pairs())
	assert.Equal(t, 1, issues.Count(domain.IssueTruthUnknownID))
}
