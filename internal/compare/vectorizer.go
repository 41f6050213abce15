package compare

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// Field configures the comparison of one field.
type Field struct {
	Name   string
	Method string
	// MissingValue is the score used when either side lacks the field.
	MissingValue float64
}

// Label is the feature name of the field, e.g. "title_jarowinkler".
func (f Field) Label() string {
	return f.Name + "_" + f.Method
}

// FeatureVector holds one score per configured field, in field order.
type FeatureVector struct {
	Pair   domain.Pair
	Scores []float64
}

// Features is the output of a Vectorizer: the feature names and one vector
// per candidate pair, in candidate order.
type Features struct {
	Names   []string
	Vectors []FeatureVector
}

// Len returns the number of vectors.
func (f *Features) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Vectors)
}

// Max returns the largest score of v, or 0 for an empty vector.
func (v FeatureVector) Max() float64 {
	best := 0.0
	for i, s := range v.Scores {
		if i == 0 || s > best {
			best = s
		}
	}
	return best
}

// Mean returns the average score of v, or 0 for an empty vector.
func (v FeatureVector) Mean() float64 {
	if len(v.Scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range v.Scores {
		sum += s
	}
	return sum / float64(len(v.Scores))
}

// Vectorizer turns candidate pairs into feature vectors.
type Vectorizer struct {
	fields      []Field
	comparators []Comparator
}

// NewVectorizer resolves the comparator of every field.
func NewVectorizer(fields []Field) (*Vectorizer, error) {
	if len(fields) == 0 {
		return nil, domain.NewConfigError("fields", "must list at least one field")
	}
	v := &Vectorizer{fields: fields, comparators: make([]Comparator, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, domain.NewConfigError(fmt.Sprintf("fields[%d].name", i), "is required")
		}
		c, err := New(f.Method)
		if err != nil {
			return nil, domain.NewConfigError(fmt.Sprintf("fields[%d].method", i),
				"unknown comparison method %q", f.Method)
		}
		v.comparators[i] = c
	}
	return v, nil
}

// Names returns the feature names in vector order.
func (v *Vectorizer) Names() []string {
	names := make([]string, len(v.fields))
	for i, f := range v.fields {
		names[i] = f.Label()
	}
	return names
}

// Vectorize scores every candidate pair. Comparisons where either value is
// missing take the field's MissingValue and are counted in issues. A pair
// naming an id absent from its collection is an error.
func (v *Vectorizer) Vectorize(ctx context.Context, candidates *domain.PairSet, a, b *domain.Collection, issues *domain.Issues) (*Features, error) {
	out := &Features{
		Names:   v.Names(),
		Vectors: make([]FeatureVector, 0, candidates.Len()),
	}
	for n, p := range candidates.Pairs() {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ra, ok := a.Get(p.A)
		if !ok {
			return nil, fmt.Errorf("candidate pair references unknown id %q in %s", p.A, a.Name)
		}
		rb, ok := b.Get(p.B)
		if !ok {
			return nil, fmt.Errorf("candidate pair references unknown id %q in %s", p.B, b.Name)
		}
		out.Vectors = append(out.Vectors, FeatureVector{Pair: p, Scores: v.Score(ra, rb, issues)})
	}
	return out, nil
}

// Score compares a single record pair.
func (v *Vectorizer) Score(ra, rb domain.Record, issues *domain.Issues) []float64 {
	scores := make([]float64, len(v.fields))
	for i, f := range v.fields {
		va, okA := ra.Value(f.Name)
		vb, okB := rb.Value(f.Name)
		if !okA || !okB {
			scores[i] = f.MissingValue
			issues.Add(domain.IssueMissingValue, 1)
			continue
		}
		scores[i] = v.comparators[i].Compare(va, vb)
	}
	return scores
}
