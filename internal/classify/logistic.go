package classify

import (
	"errors"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/lehigh-university-libraries/linker/internal/compare"
	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// ErrNoTrainingData is returned when none of the vectors is labelled.
var ErrNoTrainingData = errors.New("no labelled vectors to train on")

// Logistic is an L2-regularised logistic regression fitted by batch
// gradient descent. A pair is a match when its predicted probability is
// above 0.5. An untrained model predicts 0.5 for everything, so it matches
// nothing.
type Logistic struct {
	label        string
	learningRate float64
	iterations   int
	l2           float64

	// weights[0] is the intercept.
	weights []float64
}

// NewLogistic creates an untrained logistic classifier.
func NewLogistic(label string, learningRate float64, iterations int, l2 float64) *Logistic {
	return &Logistic{label: label, learningRate: learningRate, iterations: iterations, l2: l2}
}

func (l *Logistic) Name() string { return l.label }

// Train fits the weights on the labelled subset of vectors. Pairs in labels
// with value true are matches.
func (l *Logistic) Train(vectors []compare.FeatureVector, labels map[domain.Pair]bool) error {
	var rows []compare.FeatureVector
	for _, v := range vectors {
		if _, ok := labels[v.Pair]; ok {
			rows = append(rows, v)
		}
	}
	if len(rows) == 0 {
		return ErrNoTrainingData
	}

	n, d := len(rows), len(rows[0].Scores)
	x := mat.NewDense(n, d+1, nil)
	y := mat.NewVecDense(n, nil)
	for i, v := range rows {
		x.Set(i, 0, 1)
		for j := 0; j < d && j < len(v.Scores); j++ {
			x.Set(i, j+1, v.Scores[j])
		}
		if labels[v.Pair] {
			y.SetVec(i, 1)
		}
	}

	w := mat.NewVecDense(d+1, nil)
	residual := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d+1, nil)
	for it := 0; it < l.iterations; it++ {
		residual.MulVec(x, w)
		for i := 0; i < n; i++ {
			residual.SetVec(i, sigmoid(residual.AtVec(i))-y.AtVec(i))
		}
		grad.MulVec(x.T(), residual)
		grad.ScaleVec(1/float64(n), grad)
		// the intercept is not regularised
		for j := 1; j <= d; j++ {
			grad.SetVec(j, grad.AtVec(j)+l.l2*w.AtVec(j))
		}
		w.AddScaledVec(w, -l.learningRate, grad)
	}

	l.weights = make([]float64, d+1)
	for j := range l.weights {
		l.weights[j] = w.AtVec(j)
	}
	return nil
}

// Score returns the match probability of v.
func (l *Logistic) Score(v compare.FeatureVector) float64 {
	if len(l.weights) == 0 {
		return 0.5
	}
	z := l.weights[0]
	for j, s := range v.Scores {
		if j+1 >= len(l.weights) {
			break
		}
		z += l.weights[j+1] * s
	}
	return sigmoid(z)
}

func (l *Logistic) Predict(vectors []compare.FeatureVector) *domain.PairSet {
	out := domain.NewPairSet()
	for _, v := range vectors {
		if l.Score(v) > 0.5 {
			out.Add(v.Pair)
		}
	}
	return out
}

// Weights returns a copy of the fitted weights, intercept first.
func (l *Logistic) Weights() []float64 {
	return append([]float64(nil), l.weights...)
}

func (l *Logistic) Params() map[string]string {
	return map[string]string{
		"classifier":    TypeLogistic,
		"learning_rate": strconv.FormatFloat(l.learningRate, 'f', -1, 64),
		"iterations":    strconv.Itoa(l.iterations),
		"l2":            strconv.FormatFloat(l.l2, 'f', -1, 64),
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
