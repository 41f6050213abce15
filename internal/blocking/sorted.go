package blocking

import (
	"sort"
	"strconv"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// SortedNeighbourhoodOptions configures the sorted-neighbourhood index.
type SortedNeighbourhoodOptions struct {
	Field  string `yaml:"field"`
	Window int    `yaml:"window"`
}

// Validate checks the blocking field and that the window is odd and ≥ 1.
func (o SortedNeighbourhoodOptions) Validate(param string) error {
	if o.Field == "" {
		return domain.NewConfigError(param+".field", "is required for %s", TypeSortedNeighbourhood)
	}
	if o.Window < 1 {
		return domain.NewConfigError(param+".window", "must be at least 1, got %d", o.Window)
	}
	if o.Window%2 == 0 {
		return domain.NewConfigError(param+".window", "must be odd, got %d", o.Window)
	}
	return nil
}

// SortedNeighbourhood merges both collections, sorts them by one cleaned
// key and pairs cross-source records that fall inside a sliding window.
//
// Records with an identical key share one window slot, so Window=1 pairs
// only identical keys and a wider window never yields fewer pairs. Records
// with no key sort after every keyed record and each takes a slot of its
// own. Cost is O((n+m)·W) comparisons plus the sort.
type SortedNeighbourhood struct {
	opts SortedNeighbourhoodOptions
}

// NewSortedNeighbourhood creates a sorted-neighbourhood indexer. opts must
// already be valid.
func NewSortedNeighbourhood(opts SortedNeighbourhoodOptions) *SortedNeighbourhood {
	return &SortedNeighbourhood{opts: opts}
}

func (s *SortedNeighbourhood) Name() string { return TypeSortedNeighbourhood }

func (s *SortedNeighbourhood) Params() map[string]string {
	return map[string]string{
		"indexer":     TypeSortedNeighbourhood,
		"block_field": s.opts.Field,
		"window":      strconv.Itoa(s.opts.Window),
	}
}

type sortEntry struct {
	key    string
	hasKey bool
	source domain.Source
	id     string
}

type slot struct {
	a []string
	b []string
}

// Index returns the windowed candidate pairs, ordered by the A record's
// slot and then by B's slot.
func (s *SortedNeighbourhood) Index(a, b *domain.Collection, issues *domain.Issues) (*domain.PairSet, error) {
	if err := s.opts.Validate("indexer"); err != nil {
		return nil, err
	}
	if err := requireField("indexer.field", s.opts.Field, a, b); err != nil {
		return nil, err
	}

	entries := make([]sortEntry, 0, a.Len()+b.Len())
	add := func(c *domain.Collection, src domain.Source) {
		for _, r := range c.Records() {
			key, ok := r.Value(s.opts.Field)
			if !ok {
				issues.Add(domain.IssueMissingKey, 1)
			}
			entries = append(entries, sortEntry{key: key, hasKey: ok, source: src, id: r.ID})
		}
	}
	add(a, domain.SourceA)
	add(b, domain.SourceB)

	sort.SliceStable(entries, func(i, j int) bool {
		ei, ej := entries[i], entries[j]
		if ei.hasKey != ej.hasKey {
			return ei.hasKey
		}
		return ei.key < ej.key
	})

	slots := groupSlots(entries)
	half := (s.opts.Window - 1) / 2

	out := domain.NewPairSet()
	for i, sl := range slots {
		if len(sl.a) == 0 {
			continue
		}
		lo, hi := max(0, i-half), min(len(slots)-1, i+half)
		for _, idA := range sl.a {
			for j := lo; j <= hi; j++ {
				for _, idB := range slots[j].b {
					out.Add(domain.Pair{A: idA, B: idB})
				}
			}
		}
	}
	return out, nil
}

// groupSlots collapses runs of identical keys into one slot. Keyless
// entries never share a slot.
func groupSlots(entries []sortEntry) []slot {
	var slots []slot
	for i, e := range entries {
		same := i > 0 && e.hasKey && entries[i-1].hasKey && entries[i-1].key == e.key
		if !same {
			slots = append(slots, slot{})
		}
		cur := &slots[len(slots)-1]
		if e.source == domain.SourceA {
			cur.a = append(cur.a, e.id)
		} else {
			cur.b = append(cur.b, e.id)
		}
	}
	return slots
}
