package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/linker/internal/config"
	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/lehigh-university-libraries/linker/internal/eval/dataset"
)

type inspectOptions struct {
	path        string
	idColumn    string
	delimiter   string
	encoding    string
	limit       int
	interactive bool
	showRecords bool
}

func executeInspect(ctx context.Context, in io.Reader, w io.Writer, opts inspectOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delim, err := config.ParseDelimiter("delimiter", opts.delimiter)
	if err != nil {
		return err
	}

	issues := domain.NewIssues()
	loader := dataset.NewLoader(opts.path, dataset.Options{
		IDColumn:  opts.idColumn,
		Delimiter: delim,
		Encoding:  opts.encoding,
		Issues:    issues,
	})

	limit := opts.limit
	if limit <= 0 {
		limit = -1
	}
	records, err := loader.LoadSample(limit)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(w, "Loaded %d records from %s\n", records.Len(), opts.path)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	reader := bufio.NewReader(in)
	if opts.showRecords {
		for i, record := range records.Records() {
			// Check for context cancellation (e.g., Ctrl+C) at the start of each iteration
			select {
			case <-ctx.Done():
				fmt.Fprintln(w, "\nInspection interrupted.")
				return nil
			default:
			}

			fmt.Fprintf(w, "RECORD %d/%d  id=%s\n", i+1, records.Len(), record.ID)
			fmt.Fprintln(w, strings.Repeat("-", 80))
			for _, col := range records.Columns {
				v, ok := record.Value(col)
				if !ok {
					v = "<missing>"
				}
				fmt.Fprintf(w, "%-20s %s\n", col+":", truncate(v, 100))
			}
			fmt.Fprintln(w)

			if opts.interactive {
				fmt.Fprint(w, "Press Enter to continue to next record (or Ctrl+C to quit)...")

				inputCh := make(chan struct{})
				go func() {
					_, _ = reader.ReadString('\n')
					close(inputCh)
				}()

				select {
				case <-ctx.Done():
					fmt.Fprintln(w, "\nInspection interrupted.")
					return nil
				case <-inputCh:
					fmt.Fprintln(w)
				}
			}
		}
	}

	printFillRates(w, records)

	printIssues(w, issues)
	return nil
}

// printIssues lists the recorded data issues per kind; nothing is printed
// when there are none.
func printIssues(w io.Writer, issues *domain.Issues) {
	if issues.Total() == 0 {
		return
	}
	fmt.Fprintln(w, "\nData issues:")
	for _, kind := range issues.Kinds() {
		fmt.Fprintf(w, "  %-20s %d\n", kind, issues.Count(kind))
	}
}

// printFillRates shows, per column, the share of records with a value and
// the number of distinct values, most complete columns first.
func printFillRates(w io.Writer, c *domain.Collection) {
	type stat struct {
		column   string
		filled   int
		distinct int
	}
	stats := make([]stat, 0, len(c.Columns))
	for _, col := range c.Columns {
		s := stat{column: col}
		seen := make(map[string]struct{})
		for _, r := range c.Records() {
			if v, ok := r.Value(col); ok {
				s.filled++
				seen[v] = struct{}{}
			}
		}
		s.distinct = len(seen)
		stats = append(stats, s)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].filled > stats[j].filled })

	fmt.Fprintln(w, "COLUMN FILL RATES")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "%-30s %10s %10s\n", "Column", "Filled", "Distinct")
	for _, s := range stats {
		rate := 0.0
		if c.Len() > 0 {
			rate = float64(s.filled) / float64(c.Len()) * 100
		}
		fmt.Fprintf(w, "%-30s %9.1f%% %10d\n", s.column, rate, s.distinct)
	}
}
