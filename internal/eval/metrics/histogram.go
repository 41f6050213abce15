package metrics

import (
	"math"
	"sort"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// DefaultBins is the bin count used by the compare-methods study.
const DefaultBins = 25

// Histogram contrasts the score distributions of matches and non-matches
// over shared equal-width bins. Match and NonMatch hold the fraction of
// each distribution falling in each bin.
type Histogram struct {
	Bounds        []float64
	Match         []float64
	NonMatch      []float64
	MatchCount    int
	NonMatchCount int
}

// Bin splits [0, ceil(max)] into k bins, where max is the largest value of
// either distribution (the range is [0,1] when nothing is positive). Each
// value lands in the first bin whose upper bound is not below it, after
// both are rounded to six decimals; negative values land in the first bin.
func Bin(match, nonMatch []float64, k int) (Histogram, error) {
	if k < 1 {
		return Histogram{}, domain.NewConfigError("bins", "must be at least 1, got %d", k)
	}

	upper := math.Inf(-1)
	for _, values := range [][]float64{match, nonMatch} {
		for _, v := range values {
			if v > upper {
				upper = v
			}
		}
	}
	upper = math.Ceil(upper)
	if upper <= 0 || math.IsInf(upper, 0) || math.IsNaN(upper) {
		upper = 1
	}

	h := Histogram{
		Bounds:        make([]float64, k),
		MatchCount:    len(match),
		NonMatchCount: len(nonMatch),
	}
	width := upper / float64(k)
	for i := range h.Bounds {
		h.Bounds[i] = round6(width * float64(i+1))
	}
	h.Bounds[k-1] = round6(upper)

	h.Match = frequencies(h.Bounds, match)
	h.NonMatch = frequencies(h.Bounds, nonMatch)
	return h, nil
}

func frequencies(bounds, values []float64) []float64 {
	freq := make([]float64, len(bounds))
	if len(values) == 0 {
		return freq
	}
	for _, v := range values {
		i := sort.SearchFloat64s(bounds, round6(v))
		if i >= len(bounds) {
			i = len(bounds) - 1
		}
		freq[i]++
	}
	for i := range freq {
		freq[i] /= float64(len(values))
	}
	return freq
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
