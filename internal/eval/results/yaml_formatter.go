package results

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/linker/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	RunID         string            `yaml:"runid"`
	ConfigPath    string            `yaml:"configpath"`
	Indexer       string            `yaml:"indexer"`
	IndexerParams map[string]string `yaml:"indexerparams"`
	Fields        []string          `yaml:"fields"`
	Seed          uint64            `yaml:"seed"`
	GoldenPairs   int               `yaml:"goldenpairs"`
	Timestamp     string            `yaml:"timestamp"`
}

// EvalInput describes the record sets of the run
type EvalInput struct {
	RecordsA   int            `yaml:"recordsa"`
	RecordsB   int            `yaml:"recordsb"`
	TruthPairs int            `yaml:"truthpairs"`
	Issues     map[string]int `yaml:"issues,omitempty"`
}

// EvalResult represents a single classifier result
type EvalResult struct {
	Classifier     string             `yaml:"classifier"`
	Params         map[string]string  `yaml:"params,omitempty"`
	Counts         metrics.Counts     `yaml:"counts"`
	Scores         map[string]float64 `yaml:"scores"`
	MappingPath    string             `yaml:"mappingpath,omitempty"`
	ProcessingTime string             `yaml:"processingtime"`
	Untrained      bool               `yaml:"untrained,omitempty"`
}

// EvalSpec represents the complete evaluation snapshot
type EvalSpec struct {
	Config   EvalConfig       `yaml:"config"`
	Input    EvalInput        `yaml:"input"`
	Blocking metrics.Blocking `yaml:"blocking"`
	Results  []EvalResult     `yaml:"results"`
}

// SaveToYAML saves a run summary to a timestamped YAML file in dir and
// returns the file path.
func SaveToYAML(dir, configPath string, s *metrics.RunSummary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	timestamp := s.EvaluationDate.Format("2006-01-02_15-04-05")

	spec := EvalSpec{
		Config: EvalConfig{
			RunID:         s.RunID,
			ConfigPath:    configPath,
			Indexer:       s.Indexer,
			IndexerParams: s.IndexerParams,
			Fields:        s.Fields,
			Seed:          s.Seed,
			GoldenPairs:   s.GoldenPairs,
			Timestamp:     timestamp,
		},
		Input: EvalInput{
			RecordsA:   s.RecordsA,
			RecordsB:   s.RecordsB,
			TruthPairs: s.TruthPairs,
			Issues:     s.Issues,
		},
		Blocking: s.Blocking,
		Results:  make([]EvalResult, 0, len(s.Classifiers)),
	}

	for _, c := range s.Classifiers {
		spec.Results = append(spec.Results, EvalResult{
			Classifier: c.Name,
			Params:     c.Params,
			Counts:     c.Evaluation.Counts,
			Scores: map[string]float64{
				"precision": c.Evaluation.Precision,
				"recall":    c.Evaluation.Recall,
				"f_measure": c.Evaluation.FMeasure,
			},
			MappingPath:    c.MappingPath,
			ProcessingTime: c.ProcessingTime.String(),
			Untrained:      c.Untrained,
		})
	}
	sort.SliceStable(spec.Results, func(i, j int) bool {
		return spec.Results[i].Scores["f_measure"] > spec.Results[j].Scores["f_measure"]
	})

	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", strings.ReplaceAll(s.Indexer, "_", "-"), timestamp))

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}
