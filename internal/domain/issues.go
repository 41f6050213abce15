package domain

import "sort"

// Kinds of tolerated data problems.
const (
	IssueEmptyID        = "empty_id"
	IssueDuplicateID    = "duplicate_id"
	IssueMissingField   = "missing_field"
	IssueMissingKey     = "missing_block_key"
	IssueMissingValue   = "missing_value"
	IssueTruthUnknownID = "truth_unknown_id"
	IssueBadRow         = "bad_row"
	IssueBadNumber      = "bad_number"
	IssueNoTrainingData = "no_training_data"
)

// Issues counts data problems that were skipped or defaulted instead of
// failing the run. A nil *Issues discards everything.
type Issues struct {
	counts map[string]int
}

// NewIssues creates an empty counter.
func NewIssues() *Issues {
	return &Issues{counts: make(map[string]int)}
}

// Add records n occurrences of kind.
func (i *Issues) Add(kind string, n int) {
	if i == nil || n == 0 {
		return
	}
	i.counts[kind] += n
}

// Count returns the occurrences of kind.
func (i *Issues) Count(kind string) int {
	if i == nil {
		return 0
	}
	return i.counts[kind]
}

// Total returns the number of recorded problems.
func (i *Issues) Total() int {
	if i == nil {
		return 0
	}
	total := 0
	for _, n := range i.counts {
		total += n
	}
	return total
}

// Merge adds all counts from other.
func (i *Issues) Merge(other *Issues) {
	if other == nil {
		return
	}
	for k, n := range other.counts {
		i.Add(k, n)
	}
}

// Map returns a copy of the counts.
func (i *Issues) Map() map[string]int {
	out := make(map[string]int)
	if i == nil {
		return out
	}
	for k, n := range i.counts {
		out[k] = n
	}
	return out
}

// Kinds returns the recorded kinds in sorted order.
func (i *Issues) Kinds() []string {
	if i == nil {
		return nil
	}
	kinds := make([]string, 0, len(i.counts))
	for k := range i.counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
