package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/linker/internal/domain"
	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// Options controls how a record file is read.
type Options struct {
	// IDColumn names the column holding the stable record identifier.
	IDColumn string
	// Delimiter separates CSV columns. Zero means a comma.
	Delimiter rune
	// Encoding is the text encoding of CSV input: utf-8 (default),
	// latin1/iso-8859-1 or windows-1252.
	Encoding string
	// Fields restricts loading to these columns. Empty keeps every column.
	Fields []string
	// NumericFields are parsed as numbers instead of being text-cleaned.
	NumericFields []string
	// Issues receives counts of skipped or defaulted data.
	Issues *domain.Issues
	// Logger is optional.
	Logger *zap.Logger
}

// Loader reads one record collection from disk.
type Loader struct {
	path string
	opts Options
}

// NewLoader creates a new record loader
func NewLoader(path string, opts Options) *Loader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Loader{path: path, opts: opts}
}

// Load loads every record from a CSV, Parquet or JSONL file.
func (l *Loader) Load() (*domain.Collection, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit records; a negative limit loads all.
func (l *Loader) LoadSample(limit int) (*domain.Collection, error) {
	if l.opts.IDColumn == "" {
		return nil, domain.NewConfigError("id_column", "is required")
	}

	ext := strings.ToLower(filepath.Ext(l.path))
	var (
		columns []string
		rows    []map[string]string
		err     error
	)
	switch ext {
	case ".csv", ".tsv", ".txt":
		columns, rows, err = l.readCSV(limit)
	case ".parquet":
		columns, rows, err = l.readParquet(limit)
	case ".jsonl", ".json":
		columns, rows, err = l.readJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .csv, .parquet, .jsonl)", ext)
	}
	if err != nil {
		return nil, err
	}

	if !contains(columns, l.opts.IDColumn) {
		return nil, fmt.Errorf("id column %q not found in %s", l.opts.IDColumn, l.path)
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, l.toRecord(row))
	}

	name := strings.TrimSuffix(filepath.Base(l.path), filepath.Ext(l.path))
	c := domain.NewCollection(name, l.keptColumns(columns), records, l.opts.Issues)
	l.opts.Logger.Debug("Loaded collection",
		zap.String("path", l.path),
		zap.Int("rows", len(rows)),
		zap.Int("records", c.Len()))
	return c, nil
}

func (l *Loader) toRecord(row map[string]string) domain.Record {
	rec := domain.Record{
		ID:     strings.TrimSpace(row[l.opts.IDColumn]),
		Fields: make(map[string]string, len(row)),
	}
	for col, raw := range row {
		if col == l.opts.IDColumn || !l.keep(col) {
			continue
		}
		if contains(l.opts.NumericFields, col) {
			if v, ok := CleanNumber(raw); ok {
				rec.Fields[col] = v
			} else if strings.TrimSpace(raw) != "" {
				l.opts.Issues.Add(domain.IssueBadNumber, 1)
			}
			continue
		}
		if v := Clean(raw); v != "" {
			rec.Fields[col] = v
		}
	}
	for _, f := range l.opts.Fields {
		if _, ok := rec.Fields[f]; !ok {
			l.opts.Issues.Add(domain.IssueMissingField, 1)
		}
	}
	return rec
}

func (l *Loader) keep(col string) bool {
	return len(l.opts.Fields) == 0 || contains(l.opts.Fields, col)
}

func (l *Loader) keptColumns(columns []string) []string {
	kept := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != l.opts.IDColumn && l.keep(col) {
			kept = append(kept, col)
		}
	}
	return kept
}

func (l *Loader) decode(r io.Reader) (io.Reader, error) {
	switch strings.ToLower(l.opts.Encoding) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, domain.NewConfigError("encoding", "unsupported value %q", l.opts.Encoding)
	}
}

// readCSV reads a delimited file with a header row.
func (l *Loader) readCSV(limit int) ([]string, []map[string]string, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	in, err := l.decode(file)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(in)
	reader.Comma = l.opts.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	line := 1
	for limit < 0 || len(rows) < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			l.opts.Logger.Warn("Skipping malformed row", zap.String("path", l.path), zap.Int("line", line), zap.Error(err))
			l.opts.Issues.Add(domain.IssueBadRow, 1)
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

// readParquet reads a flat Parquet file; nested columns are addressed by
// their dotted path.
func (l *Loader) readParquet(limit int) ([]string, []map[string]string, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	l.opts.Logger.Debug("Parquet file opened", zap.Int64("num_rows", pf.NumRows()), zap.Int("num_row_groups", len(pf.RowGroups())))

	var columns []string
	for _, path := range pf.Schema().Columns() {
		columns = append(columns, strings.Join(path, "."))
	}

	reader := parquet.NewReader(pf)
	defer reader.Close()

	var out []map[string]string
	buf := make([]parquet.Row, 128)
	for limit < 0 || len(out) < limit {
		n, err := reader.ReadRows(buf)
		for _, row := range buf[:n] {
			if limit >= 0 && len(out) >= limit {
				break
			}
			m := make(map[string]string, len(columns))
			for _, v := range row {
				col := v.Column()
				if col < 0 || col >= len(columns) || v.IsNull() {
					continue
				}
				m[columns[col]] = v.String()
			}
			out = append(out, m)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
			break
		}
		if n == 0 {
			break
		}
	}

	return columns, out, nil
}

// readJSONL reads one JSON object per line.
func (l *Loader) readJSONL(limit int) ([]string, []map[string]string, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	seen := make(map[string]bool)
	var columns []string
	var rows []map[string]string
	lineNum := 0
	for scanner.Scan() && (limit < 0 || len(rows) < limit) {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(string(line)))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			l.opts.Logger.Warn("Skipping malformed JSON line", zap.Int("line", lineNum), zap.Error(err))
			l.opts.Issues.Add(domain.IssueBadRow, 1)
			continue
		}

		row := make(map[string]string, len(obj))
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
			if obj[k] == nil {
				continue
			}
			row[k] = fmt.Sprint(obj[k])
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading dataset: %w", err)
	}

	return columns, rows, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
