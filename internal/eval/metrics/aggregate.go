package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// ClassifierResult is the evaluation of one classifier within a run.
type ClassifierResult struct {
	Name           string            `json:"name" yaml:"name"`
	Params         map[string]string `json:"params" yaml:"params"`
	Evaluation     Evaluation        `json:"evaluation" yaml:"evaluation"`
	MappingPath    string            `json:"mapping_path,omitempty" yaml:"mapping_path,omitempty"`
	// Untrained is set when no labelled pair was available for training.
	Untrained      bool              `json:"untrained,omitempty" yaml:"untrained,omitempty"`
	ProcessingTime time.Duration     `json:"processing_time" yaml:"processing_time"`
}

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// RunSummary aggregates everything one linkage run measured.
type RunSummary struct {
	RunID          string            `json:"run_id" yaml:"run_id"`
	EvaluationDate time.Time         `json:"evaluation_date" yaml:"evaluation_date"`
	Indexer        string            `json:"indexer" yaml:"indexer"`
	IndexerParams  map[string]string `json:"indexer_params" yaml:"indexer_params"`
	Fields         []string          `json:"fields" yaml:"fields"`
	Seed           uint64            `json:"seed" yaml:"seed"`

	RecordsA      int `json:"records_a" yaml:"records_a"`
	RecordsB      int `json:"records_b" yaml:"records_b"`
	TruthPairs    int `json:"truth_pairs" yaml:"truth_pairs"`
	GoldenPairs   int `json:"golden_pairs" yaml:"golden_pairs"`
	GoldenMatches int `json:"golden_matches" yaml:"golden_matches"`

	Blocking    Blocking           `json:"blocking" yaml:"blocking"`
	Classifiers []ClassifierResult `json:"classifiers" yaml:"classifiers"`
	Issues      map[string]int     `json:"issues" yaml:"issues"`

	Stages              []StageTiming `json:"stages" yaml:"stages"`
	TotalProcessingTime time.Duration `json:"total_processing_time" yaml:"total_processing_time"`
}

// AddStage appends a stage timing and adds it to the total.
func (s *RunSummary) AddStage(stage string, d time.Duration) {
	s.Stages = append(s.Stages, StageTiming{Stage: stage, Duration: d})
	s.TotalProcessingTime += d
}

// Best returns the classifier with the highest F-measure, or nil.
func (s *RunSummary) Best() *ClassifierResult {
	var best *ClassifierResult
	for i := range s.Classifiers {
		c := &s.Classifiers[i]
		if best == nil || c.Evaluation.FMeasure > best.Evaluation.FMeasure {
			best = c
		}
	}
	return best
}

// PrintSummary writes a human-readable summary of the run to w.
func (s *RunSummary) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "LINKAGE EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Run ID: %s\n", s.RunID)
	fmt.Fprintf(w, "Evaluation Date: %s\n", s.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Indexer: %s %s\n", s.Indexer, formatParams(s.IndexerParams))
	fmt.Fprintf(w, "Fields: %s\n", strings.Join(s.Fields, ", "))
	fmt.Fprintf(w, "Seed: %d\n", s.Seed)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "INPUT")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Records A: %d\n", s.RecordsA)
	fmt.Fprintf(w, "Records B: %d\n", s.RecordsB)
	fmt.Fprintf(w, "Truth Pairs: %d\n", s.TruthPairs)
	fmt.Fprintf(w, "Golden Pairs: %d (%d matches)\n", s.GoldenPairs, s.GoldenMatches)
	if len(s.Issues) > 0 {
		kinds := make([]string, 0, len(s.Issues))
		for k := range s.Issues {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintln(w, "Data Issues:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", k, s.Issues[k])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "BLOCKING")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Candidate Pairs: %d of %d\n", s.Blocking.Candidates, s.Blocking.FullSize)
	fmt.Fprintf(w, "Reduction Ratio: %.4f\n", s.Blocking.ReductionRatio)
	fmt.Fprintf(w, "Pair Completeness: %.2f%% (%d/%d truth pairs)\n",
		s.Blocking.PairCompleteness*100, s.Blocking.TruthFound, s.Blocking.Truth)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "CLASSIFIERS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, c := range s.Classifiers {
		printClassifier(w, c)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TIMING")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, st := range s.Stages {
		fmt.Fprintf(w, "%-12s %s\n", st.Stage, st.Duration)
	}
	fmt.Fprintf(w, "Total Processing Time: %s\n", s.TotalProcessingTime)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// printClassifier prints the evaluation of a single classifier
func printClassifier(w io.Writer, c ClassifierResult) {
	e := c.Evaluation
	fmt.Fprintf(w, "\n%s %s:\n", c.Name, formatParams(c.Params))
	if c.Untrained {
		fmt.Fprintln(w, "  (untrained: no golden pairs among the candidates)")
	}
	fmt.Fprintf(w, "  Precision: %.2f%% (%.3f)\n", e.Precision*100, e.Precision)
	fmt.Fprintf(w, "  Recall:    %.2f%% (%.3f)\n", e.Recall*100, e.Recall)
	fmt.Fprintf(w, "  F-measure: %.2f%% (%.3f)\n", e.FMeasure*100, e.FMeasure)
	fmt.Fprintf(w, "  TP: %d  FP: %d  FN: %d  TN: %d\n",
		e.TruePositives, e.FalsePositives, e.FalseNegatives, e.TrueNegatives)
	if c.MappingPath != "" {
		fmt.Fprintf(w, "  Mapping: %s\n", c.MappingPath)
	}
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SaveToJSON saves the run summary to a JSON file
func (s *RunSummary) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(s); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}
