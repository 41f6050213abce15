package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

func pairs(ids ...string) *domain.PairSet {
	s := domain.NewPairSet()
	for _, id := range ids {
		s.Add(domain.Pair{A: id, B: id})
	}
	return s
}

func TestEvaluateWorkedExample(t *testing.T) {
	e := Evaluate(pairs("1", "2"), pairs("1", "3"), pairs("1", "2", "3", "4"))

	assert.Equal(t, Counts{TruePositives: 1, FalsePositives: 1, FalseNegatives: 1, TrueNegatives: 1}, e.Counts)
	assert.InDelta(t, 0.5, e.Precision, 1e-9)
	assert.InDelta(t, 0.5, e.Recall, 1e-9)
	assert.InDelta(t, 0.5, e.FMeasure, 1e-9)
	assert.Equal(t, 2, e.Decided)
	assert.Equal(t, 4, e.Universe)
}

func TestEvaluateEmptyDecided(t *testing.T) {
	e := Evaluate(pairs(), pairs("1", "3"), pairs("1", "2", "3"))

	assert.Zero(t, e.Precision)
	assert.Zero(t, e.Recall)
	assert.Zero(t, e.FMeasure)
	assert.Equal(t, 2, e.FalseNegatives)
	assert.Equal(t, 1, e.TrueNegatives)
}

func TestEvaluateWithoutUniverse(t *testing.T) {
	e := Evaluate(pairs("1", "2"), pairs("1", "3"), nil)

	assert.Equal(t, 1, e.TruePositives)
	assert.Equal(t, 1, e.FalsePositives)
	assert.Zero(t, e.FalseNegatives)
	assert.Zero(t, e.TrueNegatives)
	assert.InDelta(t, 1.0, e.Recall, 1e-9)
}

func TestEvaluateInvariants(t *testing.T) {
	decided := pairs("1", "2", "5")
	truth := pairs("1", "3", "5", "9")
	universe := pairs("1", "2", "3", "4", "5", "6")

	e := Evaluate(decided, truth, universe)
	assert.Equal(t, decided.Len(), e.TruePositives+e.FalsePositives)
	assert.Equal(t, truth.IntersectionLen(universe), e.TruePositives+e.FalseNegatives)
	assert.Equal(t, universe.Len(), e.TruePositives+e.FalsePositives+e.FalseNegatives+e.TrueNegatives)
}

func TestEvaluateBlocking(t *testing.T) {
	b := EvaluateBlocking(pairs("1", "2"), pairs("1", "3"), 4, 5)

	assert.Equal(t, 20, b.FullSize)
	assert.Equal(t, 1, b.TruthFound)
	assert.InDelta(t, 0.5, b.PairCompleteness, 1e-9)
	assert.InDelta(t, 0.9, b.ReductionRatio, 1e-9)

	empty := EvaluateBlocking(pairs(), pairs(), 0, 0)
	assert.Zero(t, empty.PairCompleteness)
	assert.Zero(t, empty.ReductionRatio)
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func TestBinFractionsSumToOne(t *testing.T) {
	match := []float64{0.91, 0.95, 1.0, 0.72, 0.88, 0.99, 0.5}
	nonMatch := []float64{0, 0.1, 0.12, 0.3, 0.04, 0.2, 0.6, 0.33, 0.18}

	for _, k := range []int{1, 2, 7, 25, 100} {
		h, err := Bin(match, nonMatch, k)
		require.NoError(t, err)
		require.Len(t, h.Bounds, k)
		assert.InDelta(t, 1.0, sum(h.Match), 1e-6, "k=%d", k)
		assert.InDelta(t, 1.0, sum(h.NonMatch), 1e-6, "k=%d", k)
		assert.Equal(t, 1.0, h.Bounds[k-1])
	}
}

func TestBinSingleBin(t *testing.T) {
	h, err := Bin([]float64{0.2, 0.9}, []float64{0, 0.4, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, h.Bounds)
	assert.Equal(t, []float64{1}, h.Match)
	assert.Equal(t, []float64{1}, h.NonMatch)
}

func TestBinBoundaries(t *testing.T) {
	// 0.1+0.2 is 0.30000000000000004 before rounding
	h, err := Bin([]float64{0.1 + 0.2, -0.5, 0.31}, nil, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, h.Bounds[2], 1e-12)
	assert.InDelta(t, 1.0/3, h.Match[0], 1e-9)
	assert.InDelta(t, 1.0/3, h.Match[2], 1e-9)
	assert.InDelta(t, 1.0/3, h.Match[3], 1e-9)
	assert.Equal(t, make([]float64, 10), h.NonMatch)
}

func TestBinRange(t *testing.T) {
	h, err := Bin([]float64{2.4}, []float64{-1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, h.Bounds)
	assert.Equal(t, []float64{0, 0, 1}, h.Match)
	assert.Equal(t, []float64{1, 0, 0}, h.NonMatch)

	h, err = Bin(nil, []float64{-2, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1}, h.Bounds)
}

func TestBinRejectsZeroBins(t *testing.T) {
	_, err := Bin([]float64{1}, nil, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}
