// Package classify decides which candidate pairs are matches, given their
// feature vectors and, for supervised models, a labelled training sample.
package classify

import (
	"fmt"
	"strconv"

	"github.com/lehigh-university-libraries/linker/internal/compare"
	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// Classifier types accepted in configuration.
const (
	TypeThreshold = "threshold"
	TypeLogistic  = "logistic"
)

// Aggregations of a feature vector used by the threshold classifier.
const (
	AggregateMax  = "max"
	AggregateMean = "mean"
)

// DefaultThreshold is the match cut-off used when none is configured.
const DefaultThreshold = 0.65

// Classifier labels feature vectors as match or non-match.
type Classifier interface {
	Name() string
	// Train fits the model to the vectors whose pair appears in labels.
	// Unsupervised classifiers ignore it.
	Train(vectors []compare.FeatureVector, labels map[domain.Pair]bool) error
	// Score returns the match score of one vector.
	Score(v compare.FeatureVector) float64
	// Predict returns the pairs classified as matches, in vector order.
	Predict(vectors []compare.FeatureVector) *domain.PairSet
	Params() map[string]string
}

// Options configures one classifier. Fields that do not apply to Type are
// ignored.
type Options struct {
	Type string `yaml:"type"`
	// Label distinguishes two classifiers of the same type in results.
	Label string `yaml:"label"`

	Threshold float64 `yaml:"threshold"`
	Aggregate string  `yaml:"aggregate"`

	LearningRate float64 `yaml:"learning_rate"`
	Iterations   int     `yaml:"iterations"`
	L2           float64 `yaml:"l2"`
}

// ApplyDefaults fills unset parameters.
func (o *Options) ApplyDefaults() {
	switch o.Type {
	case TypeThreshold:
		if o.Threshold == 0 {
			o.Threshold = DefaultThreshold
		}
		if o.Aggregate == "" {
			o.Aggregate = AggregateMax
		}
	case TypeLogistic:
		if o.LearningRate == 0 {
			o.LearningRate = 0.5
		}
		if o.Iterations == 0 {
			o.Iterations = 500
		}
	}
	if o.Label == "" {
		o.Label = o.Type
	}
}

// Validate checks the options. param is the configuration path used in
// error messages.
func (o Options) Validate(param string) error {
	switch o.Type {
	case TypeThreshold:
		if o.Threshold < 0 || o.Threshold > 1 {
			return domain.NewConfigError(param+".threshold", "must be in [0,1], got %g", o.Threshold)
		}
		if o.Aggregate != AggregateMax && o.Aggregate != AggregateMean {
			return domain.NewConfigError(param+".aggregate", "must be %q or %q, got %q",
				AggregateMax, AggregateMean, o.Aggregate)
		}
	case TypeLogistic:
		if o.LearningRate <= 0 {
			return domain.NewConfigError(param+".learning_rate", "must be positive, got %g", o.LearningRate)
		}
		if o.Iterations < 1 {
			return domain.NewConfigError(param+".iterations", "must be at least 1, got %d", o.Iterations)
		}
		if o.L2 < 0 {
			return domain.NewConfigError(param+".l2", "must not be negative, got %g", o.L2)
		}
	case "":
		return domain.NewConfigError(param+".type", "is required")
	default:
		return domain.NewConfigError(param+".type", "must be %q or %q, got %q",
			TypeThreshold, TypeLogistic, o.Type)
	}
	return nil
}

// New builds the classifier described by opts, after applying defaults.
func New(opts Options) (Classifier, error) {
	opts.ApplyDefaults()
	if err := opts.Validate("classifier"); err != nil {
		return nil, err
	}
	switch opts.Type {
	case TypeThreshold:
		return NewThreshold(opts.Label, opts.Threshold, opts.Aggregate), nil
	case TypeLogistic:
		return NewLogistic(opts.Label, opts.LearningRate, opts.Iterations, opts.L2), nil
	}
	return nil, fmt.Errorf("unreachable classifier type %q", opts.Type)
}

// Threshold matches pairs whose aggregated score is strictly greater than
// the cut-off.
type Threshold struct {
	label     string
	cutoff    float64
	aggregate string
}

// NewThreshold creates a threshold classifier.
func NewThreshold(label string, cutoff float64, aggregate string) *Threshold {
	return &Threshold{label: label, cutoff: cutoff, aggregate: aggregate}
}

func (t *Threshold) Name() string { return t.label }

func (t *Threshold) Train([]compare.FeatureVector, map[domain.Pair]bool) error { return nil }

func (t *Threshold) Score(v compare.FeatureVector) float64 {
	if t.aggregate == AggregateMean {
		return v.Mean()
	}
	return v.Max()
}

func (t *Threshold) Predict(vectors []compare.FeatureVector) *domain.PairSet {
	out := domain.NewPairSet()
	for _, v := range vectors {
		if t.Score(v) > t.cutoff {
			out.Add(v.Pair)
		}
	}
	return out
}

func (t *Threshold) Params() map[string]string {
	return map[string]string{
		"classifier": TypeThreshold,
		"threshold":  strconv.FormatFloat(t.cutoff, 'f', -1, 64),
		"aggregate":  t.aggregate,
	}
}
