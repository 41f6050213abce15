package compare

import (
	"fmt"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// FeatureRow is the Parquet layout of one feature vector. Feature names are
// stored in the file's key/value metadata under "feature_names".
type FeatureRow struct {
	IDA    string    `parquet:"id_a"`
	IDB    string    `parquet:"id_b"`
	Scores []float64 `parquet:"scores,list"`
	Match  bool      `parquet:"match"`
}

// WriteParquet writes f to path. Match is set for pairs in truth; truth may
// be nil.
func WriteParquet(path string, f *Features, truth *domain.PairSet) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[FeatureRow](file,
		parquet.KeyValueMetadata("feature_names", strings.Join(f.Names, ",")))

	rows := make([]FeatureRow, 0, 1024)
	flush := func() error {
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("failed to write feature rows: %w", err)
		}
		rows = rows[:0]
		return nil
	}
	for _, v := range f.Vectors {
		rows = append(rows, FeatureRow{
			IDA:    v.Pair.A,
			IDB:    v.Pair.B,
			Scores: v.Scores,
			Match:  truth.Contains(v.Pair),
		})
		if len(rows) == cap(rows) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if len(rows) > 0 {
		if err := flush(); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}
