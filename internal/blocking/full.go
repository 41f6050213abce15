package blocking

import (
	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// FullOptions configures the full index.
type FullOptions struct {
	// Field, when set, restricts the cross product to pairs whose values on
	// this field are equal and non-empty.
	Field string `yaml:"field"`
}

// Validate accepts every full-index configuration.
func (o FullOptions) Validate(string) error { return nil }

// Full is the correctness baseline: it emits every pair of A×B.
// Time and memory are Θ(n·m), so it is only viable for small inputs;
// choose SortedNeighbourhood or Canopy for anything larger.
type Full struct {
	opts FullOptions
}

// NewFull creates a full indexer.
func NewFull(opts FullOptions) *Full {
	return &Full{opts: opts}
}

func (f *Full) Name() string { return TypeFull }

func (f *Full) Params() map[string]string {
	p := map[string]string{"indexer": TypeFull}
	if f.opts.Field != "" {
		p["block_field"] = f.opts.Field
	}
	return p
}

// Index returns A×B in A-major order, or only the field-equal pairs.
func (f *Full) Index(a, b *domain.Collection, issues *domain.Issues) (*domain.PairSet, error) {
	if f.opts.Field == "" {
		out := domain.NewPairSet()
		for _, ra := range a.Records() {
			for _, rb := range b.Records() {
				out.Add(domain.Pair{A: ra.ID, B: rb.ID})
			}
		}
		return out, nil
	}

	if err := requireField("indexer.field", f.opts.Field, a, b); err != nil {
		return nil, err
	}

	blocks := make(map[string][]string)
	for _, rb := range b.Records() {
		v, ok := rb.Value(f.opts.Field)
		if !ok {
			issues.Add(domain.IssueMissingKey, 1)
			continue
		}
		blocks[v] = append(blocks[v], rb.ID)
	}

	out := domain.NewPairSet()
	for _, ra := range a.Records() {
		v, ok := ra.Value(f.opts.Field)
		if !ok {
			issues.Add(domain.IssueMissingKey, 1)
			continue
		}
		for _, idB := range blocks[v] {
			out.Add(domain.Pair{A: ra.ID, B: idB})
		}
	}
	return out, nil
}
