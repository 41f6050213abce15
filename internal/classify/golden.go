package classify

import (
	"math/rand/v2"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// DefaultSeed seeds golden-pair sampling when no seed is configured.
const DefaultSeed uint64 = 19740327

// Golden is a labelled training sample drawn from the candidate set.
type Golden struct {
	Pairs  []domain.Pair
	Labels map[domain.Pair]bool
}

// Matches counts the positive labels.
func (g Golden) Matches() int {
	n := 0
	for _, m := range g.Labels {
		if m {
			n++
		}
	}
	return n
}

// SampleGolden draws up to n/2 true matches from candidates ∩ truth and
// fills the rest of n with non-matches from candidates − truth. The same
// seed and inputs always give the same sample.
func SampleGolden(candidates, truth *domain.PairSet, n int, seed uint64) Golden {
	g := Golden{Labels: make(map[domain.Pair]bool)}
	if n <= 0 {
		return g
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	matches := sample(rng, candidates.Intersect(truth).Pairs(), n/2)
	nonMatches := sample(rng, candidates.Difference(truth).Pairs(), n-len(matches))

	for _, p := range matches {
		g.Pairs = append(g.Pairs, p)
		g.Labels[p] = true
	}
	for _, p := range nonMatches {
		g.Pairs = append(g.Pairs, p)
		g.Labels[p] = false
	}
	return g
}

// sample returns k distinct elements of pairs chosen with a partial
// Fisher-Yates shuffle of a copy.
func sample(rng *rand.Rand, pairs []domain.Pair, k int) []domain.Pair {
	if k > len(pairs) {
		k = len(pairs)
	}
	pool := append([]domain.Pair(nil), pairs...)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
