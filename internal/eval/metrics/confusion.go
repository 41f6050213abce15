// Package metrics scores a set of decided matches against ground truth and
// bins score distributions for threshold selection.
package metrics

import "github.com/lehigh-university-libraries/linker/internal/domain"

// Counts is a confusion matrix.
type Counts struct {
	TruePositives  int `json:"true_positives" yaml:"true_positives"`
	FalsePositives int `json:"false_positives" yaml:"false_positives"`
	FalseNegatives int `json:"false_negatives" yaml:"false_negatives"`
	TrueNegatives  int `json:"true_negatives" yaml:"true_negatives"`
}

// Evaluation holds the confusion matrix of a decided set and the ratios
// derived from it.
type Evaluation struct {
	Counts    `yaml:",inline"`
	Decided   int     `json:"decided" yaml:"decided"`
	Truth     int     `json:"truth" yaml:"truth"`
	Universe  int     `json:"universe" yaml:"universe"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	FMeasure  float64 `json:"f_measure" yaml:"f_measure"`
}

// Evaluate compares decided against truth. Negatives are counted only
// within universe: pairs of universe that were not decided are the
// non-matches. A nil or empty universe leaves FN and TN at zero, and recall
// then equals 1 whenever anything was found.
func Evaluate(decided, truth, universe *domain.PairSet) Evaluation {
	e := Evaluation{
		Decided:  decided.Len(),
		Truth:    truth.Len(),
		Universe: universe.Len(),
	}
	e.TruePositives = decided.IntersectionLen(truth)
	e.FalsePositives = decided.Len() - e.TruePositives

	nonMatch := 0
	for _, p := range universe.Pairs() {
		if decided.Contains(p) {
			continue
		}
		nonMatch++
		if truth.Contains(p) {
			e.FalseNegatives++
		}
	}
	e.TrueNegatives = nonMatch - e.FalseNegatives

	e.Precision = ratio(e.TruePositives, e.TruePositives+e.FalsePositives)
	e.Recall = ratio(e.TruePositives, e.TruePositives+e.FalseNegatives)
	if e.Precision+e.Recall > 0 {
		e.FMeasure = 2 * e.Precision * e.Recall / (e.Precision + e.Recall)
	}
	return e
}

// Blocking describes how well a candidate set covers the truth.
type Blocking struct {
	Candidates int `json:"candidates" yaml:"candidates"`
	// FullSize is n·m, the number of pairs the full index would produce.
	FullSize int `json:"full_size" yaml:"full_size"`
	// TruthFound is the number of truth pairs among the candidates.
	TruthFound       int     `json:"truth_found" yaml:"truth_found"`
	Truth            int     `json:"truth" yaml:"truth"`
	PairCompleteness float64 `json:"pair_completeness" yaml:"pair_completeness"`
	ReductionRatio   float64 `json:"reduction_ratio" yaml:"reduction_ratio"`
}

// EvaluateBlocking reports pair completeness, the recall of candidates
// against truth, and the reduction ratio 1 - |candidates| / (n·m).
func EvaluateBlocking(candidates, truth *domain.PairSet, n, m int) Blocking {
	b := Blocking{
		Candidates: candidates.Len(),
		FullSize:   n * m,
		TruthFound: candidates.IntersectionLen(truth),
		Truth:      truth.Len(),
	}
	b.PairCompleteness = ratio(b.TruthFound, b.Truth)
	if b.FullSize > 0 {
		b.ReductionRatio = 1 - float64(b.Candidates)/float64(b.FullSize)
	}
	return b
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
