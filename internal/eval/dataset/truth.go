package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// LoadPairs reads a delimited pair file (ground truth or a mapping) with a
// header row. The first two columns are the ids in A and B; any further
// columns are ignored. Rows with fewer than two non-empty ids are counted
// as bad rows.
func LoadPairs(path string, delimiter rune, issues *domain.Issues) (*domain.PairSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pair file: %w", err)
	}
	defer file.Close()

	if delimiter == 0 {
		delimiter = ','
	}
	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewPairSet(), nil
		}
		return nil, fmt.Errorf("failed to read pair file header: %w", err)
	}

	pairs := domain.NewPairSet()
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || len(row) < 2 {
			issues.Add(domain.IssueBadRow, 1)
			continue
		}
		a, b := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if a == "" || b == "" {
			issues.Add(domain.IssueBadRow, 1)
			continue
		}
		pairs.Add(domain.Pair{A: a, B: b})
	}
	return pairs, nil
}

// ResolveTruth keeps the ground-truth pairs whose ids exist in both
// collections. Pairs referencing unknown ids are counted, not dropped
// silently.
func ResolveTruth(truth *domain.PairSet, a, b *domain.Collection, issues *domain.Issues) *domain.PairSet {
	resolved := domain.NewPairSet()
	for _, p := range truth.Pairs() {
		if !a.Has(p.A) || !b.Has(p.B) {
			issues.Add(domain.IssueTruthUnknownID, 1)
			continue
		}
		resolved.Add(p)
	}
	return resolved
}
