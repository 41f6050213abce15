package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/linker/internal/eval/results"
)

// Columns shown by the text report, when present.
var textColumns = []string{"timestamp", "label", "indexer", "window", "threshold_add", "threshold_remove", "candidates", "precision", "recall", "f_measure"}

func executeReport(w io.Writer, resultsPath, format, output, sortBy string, limit int) error {
	table, err := results.NewLog(resultsPath).Read()
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	if sortBy != "" {
		if err := sortTable(&table, sortBy); err != nil {
			return err
		}
	}
	if limit > 0 && len(table.Rows) > limit {
		table.Rows = table.Rows[:limit]
	}

	switch format {
	case "text":
		return printTextReport(w, resultsPath, table)
	case "json":
		return printJSONReport(w, table)
	case "csv":
		return printCSVReport(w, table)
	case "xlsx":
		if err := results.WriteWorkbook(table, output); err != nil {
			return err
		}
		fmt.Fprintf(w, "Workbook saved to: %s\n", output)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// sortTable orders rows by a numeric column, highest first. Cells that do
// not parse sort last.
func sortTable(t *results.Table, column string) error {
	col := t.Index(column)
	if col < 0 {
		return fmt.Errorf("unknown column %q in results log", column)
	}
	value := func(row []string) (float64, bool) {
		if col >= len(row) {
			return 0, false
		}
		v, err := strconv.ParseFloat(row[col], 64)
		return v, err == nil
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		vi, oki := value(t.Rows[i])
		vj, okj := value(t.Rows[j])
		if oki != okj {
			return oki
		}
		return vi > vj
	})
	return nil
}

func printTextReport(w io.Writer, path string, t results.Table) error {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Linkage Results Report\n")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Log:  %s\n", path)
	fmt.Fprintf(w, "Rows: %d\n\n", len(t.Rows))

	var cols []string
	for _, c := range textColumns {
		if t.Index(c) >= 0 {
			cols = append(cols, c)
		}
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
		for r := range t.Rows {
			if n := len(truncate(t.Value(r, c), 24)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(cols)
	sep := make([]string, len(cols))
	for i := range cols {
		sep[i] = strings.Repeat("-", widths[i])
	}
	line(sep)
	for r := range t.Rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = truncate(t.Value(r, c), 24)
		}
		line(cells)
	}
	return nil
}

func printJSONReport(w io.Writer, t results.Table) error {
	rows := make([]map[string]string, len(t.Rows))
	for r := range t.Rows {
		rows[r] = make(map[string]string, len(t.Header))
		for _, c := range t.Header {
			rows[r][c] = t.Value(r, c)
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

func printCSVReport(w io.Writer, t results.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	for r := range t.Rows {
		row := make([]string, len(t.Header))
		for i, c := range t.Header {
			row[i] = t.Value(r, c)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
