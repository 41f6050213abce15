// Package results persists evaluation results: an append-only CSV results
// log whose schema grows with new metadata keys, YAML run snapshots and
// workbook exports of the log.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
)

// Columns every result row carries, in header order.
var coreColumns = []string{
	"run_id",
	"timestamp",
	"true_positives",
	"false_positives",
	"false_negatives",
	"true_negatives",
	"precision",
	"recall",
	"f_measure",
}

// Result is one timestamped evaluation with caller metadata, such as the
// configuration that produced it.
type Result struct {
	RunID      string
	Timestamp  time.Time
	Evaluation metrics.Evaluation
	Metadata   map[string]string
}

// NewResult stamps e with a fresh run id and the current time.
func NewResult(e metrics.Evaluation, metadata map[string]string) Result {
	return Result{
		RunID:      uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Evaluation: e,
		Metadata:   metadata,
	}
}

// Row flattens the result into column → cell. Metadata keys that collide
// with a core column are dropped.
func (r Result) Row() map[string]string {
	e := r.Evaluation
	row := map[string]string{
		"run_id":          r.RunID,
		"timestamp":       r.Timestamp.Format(time.RFC3339),
		"true_positives":  strconv.Itoa(e.TruePositives),
		"false_positives": strconv.Itoa(e.FalsePositives),
		"false_negatives": strconv.Itoa(e.FalseNegatives),
		"true_negatives":  strconv.Itoa(e.TrueNegatives),
		"precision":       formatFloat(e.Precision),
		"recall":          formatFloat(e.Recall),
		"f_measure":       formatFloat(e.FMeasure),
	}
	for k, v := range r.Metadata {
		if _, core := row[k]; core || k == "" {
			continue
		}
		row[k] = v
	}
	return row
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Table is the parsed content of a results log.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of column in the header, or -1.
func (t Table) Index(column string) int {
	for i, h := range t.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// Value returns the cell of row i in column, or "" when either is absent.
func (t Table) Value(i int, column string) string {
	j := t.Index(column)
	if j < 0 || i < 0 || i >= len(t.Rows) || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Log is a CSV results log. The header only ever grows: a result with new
// metadata keys adds columns, and earlier rows get empty cells for them.
type Log struct {
	path string
}

// NewLog returns a log stored at path. The file is created on first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Append adds r as one row. When the header has to grow the whole log is
// rewritten to a temporary file that then replaces the original; a row with
// more cells than the header fails the rewrite and leaves the log as it was.
func (l *Log) Append(r Result) error {
	row := r.Row()

	table, err := l.Read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	header := append([]string(nil), table.Header...)
	if len(header) == 0 {
		header = append(header, coreColumns...)
	}
	known := make(map[string]bool, len(header))
	for _, h := range header {
		known[h] = true
	}
	var added []string
	for k := range row {
		if !known[k] {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	header = append(header, added...)

	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = row[h]
	}

	if len(table.Header) > 0 && len(added) == 0 {
		return l.appendRow(cells)
	}
	return l.rewrite(Table{Header: header, Rows: append(table.Rows, cells)})
}

// Read parses the whole log. A missing file returns an error wrapping
// os.ErrNotExist.
func (l *Log) Read() (Table, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open results log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to read results log header: %w", err)
	}

	t := Table{Header: header}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("failed to read results log: %w", err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func (l *Log) appendRow(cells []string) error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results log: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(cells); err != nil {
		return fmt.Errorf("failed to append result: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to append result: %w", err)
	}
	return file.Close()
}

func (l *Log) rewrite(t Table) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temporary results log: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write results header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) > len(t.Header) {
			tmp.Close()
			return fmt.Errorf("results log row %d has %d cells but the header has %d", i+1, len(row), len(t.Header))
		}
		padded := make([]string, len(t.Header))
		copy(padded, row)
		if err := w.Write(padded); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write results row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write results log: %w", err)
	}
	if err := tmp.Chmod(l.mode()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set results log permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary results log: %w", err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace results log: %w", err)
	}
	return nil
}

// mode returns the permissions of the existing log, or 0644 for a new one.
func (l *Log) mode() os.FileMode {
	if info, err := os.Stat(l.path); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}
