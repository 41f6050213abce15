// Package blocking generates candidate record pairs. Each strategy trades
// recall for cost: Full compares everything, SortedNeighbourhood compares
// records that sort close together on one key, and Canopy compares records
// whose character bigrams overlap enough.
package blocking

import (
	"fmt"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// Strategy names accepted in configuration.
const (
	TypeFull                = "full"
	TypeSortedNeighbourhood = "sorted_neighbourhood"
	TypeCanopy              = "canopy"
)

// Indexer produces the candidate set for two collections.
type Indexer interface {
	// Name returns the strategy name.
	Name() string
	// Index returns the candidate pairs. Records without a blocking value
	// are counted in issues.
	Index(a, b *domain.Collection, issues *domain.Issues) (*domain.PairSet, error)
	// Params describes the configured parameters, for result metadata.
	Params() map[string]string
}

// Options is a tagged variant: exactly one strategy block is set, matching
// Type.
type Options struct {
	Type                string
	Full                *FullOptions
	SortedNeighbourhood *SortedNeighbourhoodOptions
	Canopy              *CanopyOptions
}

// Validate checks that Type names a strategy and that its block is valid.
// param is the configuration path used in error messages.
func (o Options) Validate(param string) error {
	switch o.Type {
	case TypeFull:
		if o.Full == nil {
			return nil
		}
		return o.Full.Validate(param)
	case TypeSortedNeighbourhood:
		if o.SortedNeighbourhood == nil {
			return domain.NewConfigError(param+".window", "is required for %s", o.Type)
		}
		return o.SortedNeighbourhood.Validate(param)
	case TypeCanopy:
		if o.Canopy == nil {
			return domain.NewConfigError(param+".threshold_add", "is required for %s", o.Type)
		}
		return o.Canopy.Validate(param)
	case "":
		return domain.NewConfigError(param+".type", "is required")
	default:
		return domain.NewConfigError(param+".type", "must be one of %q, %q, %q, got %q",
			TypeFull, TypeSortedNeighbourhood, TypeCanopy, o.Type)
	}
}

// New validates opts and builds the matching indexer.
func New(opts Options) (Indexer, error) {
	if err := opts.Validate("indexer"); err != nil {
		return nil, err
	}
	switch opts.Type {
	case TypeFull:
		if opts.Full == nil {
			return NewFull(FullOptions{}), nil
		}
		return NewFull(*opts.Full), nil
	case TypeSortedNeighbourhood:
		return NewSortedNeighbourhood(*opts.SortedNeighbourhood), nil
	case TypeCanopy:
		return NewCanopy(*opts.Canopy), nil
	}
	return nil, fmt.Errorf("unreachable indexer type %q", opts.Type)
}

// requireField fails when field appears in neither collection's schema.
func requireField(param, field string, a, b *domain.Collection) error {
	if !a.HasColumn(field) && !b.HasColumn(field) {
		return fmt.Errorf("%w: %s %q", domain.ErrUnknownField, param, field)
	}
	return nil
}
