// Package compare scores candidate pairs field by field. Each configured
// field is compared with one named method and the scores of a pair form its
// feature vector.
package compare

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/hbollon/go-edlib"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// Comparator scores two cleaned values. Scores are in [0,1], 1 meaning
// identical.
type Comparator interface {
	Name() string
	Compare(a, b string) float64
}

// Method names accepted in configuration.
const (
	MethodExact              = "exact"
	MethodJaro               = "jaro"
	MethodJaroWinkler        = "jarowinkler"
	MethodLevenshtein        = "levenshtein"
	MethodDamerauLevenshtein = "damerau_levenshtein"
	MethodSmithWaterman      = "smith_waterman"
	MethodQGram              = "qgram"
	MethodJaccard            = "jaccard"
	MethodOverlap            = "overlap"
	MethodHamming            = "hamming"
	MethodCosine             = "cosine"
	MethodLongestSubstring   = "longest_common_substring"
	MethodNumeric            = "numeric"
)

var registry = map[string]func() Comparator{
	MethodExact: func() Comparator { return exact{} },
	MethodJaro: func() Comparator {
		return stringMetric{name: MethodJaro, metric: metrics.NewJaro()}
	},
	MethodJaroWinkler: func() Comparator {
		return stringMetric{name: MethodJaroWinkler, metric: metrics.NewJaroWinkler()}
	},
	MethodLevenshtein: func() Comparator {
		return stringMetric{name: MethodLevenshtein, metric: metrics.NewLevenshtein()}
	},
	MethodDamerauLevenshtein: func() Comparator { return damerauLevenshtein{} },
	MethodSmithWaterman: func() Comparator {
		return stringMetric{name: MethodSmithWaterman, metric: metrics.NewSmithWatermanGotoh()}
	},
	MethodQGram: func() Comparator {
		m := metrics.NewSorensenDice()
		m.NgramSize = 2
		return stringMetric{name: MethodQGram, metric: m}
	},
	MethodJaccard: func() Comparator {
		m := metrics.NewJaccard()
		m.NgramSize = 2
		return stringMetric{name: MethodJaccard, metric: m}
	},
	MethodOverlap: func() Comparator {
		m := metrics.NewOverlapCoefficient()
		m.NgramSize = 2
		return stringMetric{name: MethodOverlap, metric: m}
	},
	MethodHamming: func() Comparator {
		return stringMetric{name: MethodHamming, metric: metrics.NewHamming()}
	},
	MethodCosine:           func() Comparator { return cosine{} },
	MethodLongestSubstring: func() Comparator { return longestSubstring{} },
	MethodNumeric:          func() Comparator { return numeric{} },
}

// New returns the comparator registered under method.
func New(method string) (Comparator, error) {
	build, ok := registry[method]
	if !ok {
		return nil, domain.NewConfigError("method", "unknown comparison method %q (known: %s)",
			method, strings.Join(Methods(), ", "))
	}
	return build(), nil
}

// Known reports whether method is registered.
func Known(method string) bool {
	_, ok := registry[method]
	return ok
}

// Methods lists the registered method names in sorted order.
func Methods() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stringMetric adapts an strutil metric.
type stringMetric struct {
	name   string
	metric strutil.StringMetric
}

func (s stringMetric) Name() string { return s.name }

func (s stringMetric) Compare(a, b string) float64 {
	return clamp(strutil.Similarity(a, b, s.metric))
}

type exact struct{}

func (exact) Name() string { return MethodExact }

func (exact) Compare(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// damerauLevenshtein is the optimal string alignment distance turned into a
// similarity by dividing by the longer rune length.
type damerauLevenshtein struct{}

func (damerauLevenshtein) Name() string { return MethodDamerauLevenshtein }

func (damerauLevenshtein) Compare(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	return clamp(1 - float64(edlib.OSADamerauLevenshteinDistance(a, b))/float64(longest))
}

// cosine compares the sets of whitespace-separated tokens.
type cosine struct{}

func (cosine) Name() string { return MethodCosine }

func (cosine) Compare(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return clamp(float64(edlib.CosineSimilarity(a, b, 0)))
}

// Shorter common substrings are not counted.
const minSubstringLength = 2

// longestSubstring repeatedly takes the longest common substring of both
// values, cuts it out of each and adds its length, until none of at least
// minSubstringLength runes is left. The total is normalised like Dice:
// 2·total / (len(a)+len(b)).
type longestSubstring struct{}

func (longestSubstring) Name() string { return MethodLongestSubstring }

func (longestSubstring) Compare(a, b string) float64 {
	if a == b {
		return 1
	}
	r1, r2 := []rune(a), []rune(b)
	size := len(r1) + len(r2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}

	total := 0
	for {
		i, j, n := longestCommonRun(r1, r2)
		if n < minSubstringLength {
			break
		}
		total += n
		r1 = append(r1[:i:i], r1[i+n:]...)
		r2 = append(r2[:j:j], r2[j+n:]...)
	}
	return clamp(2 * float64(total) / float64(size))
}

// longestCommonRun returns the start in r1, the start in r2 and the length
// of the first longest common substring.
func longestCommonRun(r1, r2 []rune) (int, int, int) {
	prev := make([]int, len(r2)+1)
	cur := make([]int, len(r2)+1)
	bestI, bestJ, best := 0, 0, 0
	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			if r1[i-1] != r2[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > best {
				best = cur[j]
				bestI, bestJ = i-best, j-best
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, best
}

// numeric scores 1 - |x-y| / max(|x|,|y|). Values that do not parse score 0.
type numeric struct{}

func (numeric) Name() string { return MethodNumeric }

func (numeric) Compare(a, b string) float64 {
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0
	}
	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0
	}
	scale := math.Max(math.Abs(x), math.Abs(y))
	if scale == 0 {
		return 1
	}
	return clamp(1 - math.Abs(x-y)/scale)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
