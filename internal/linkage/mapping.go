package linkage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lehigh-university-libraries/linker/internal/compare"
	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// Scorer assigns a match score to a feature vector.
type Scorer interface {
	Score(v compare.FeatureVector) float64
}

var mappingHeader = []string{"id_a", "id_b", "score"}

// WriteMapping writes the decided pairs, in candidate order, as
// id_a,id_b,score rows. The parent directory is created if needed.
func WriteMapping(path string, features *compare.Features, decided *domain.PairSet, s Scorer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create mapping directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create mapping file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(mappingHeader); err != nil {
		return fmt.Errorf("failed to write mapping header: %w", err)
	}
	for _, v := range features.Vectors {
		if !decided.Contains(v.Pair) {
			continue
		}
		row := []string{v.Pair.A, v.Pair.B, strconv.FormatFloat(s.Score(v), 'f', 6, 64)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write mapping row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush mapping file: %w", err)
	}
	return file.Close()
}
