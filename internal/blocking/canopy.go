package blocking

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// CanopyOptions configures canopy clustering.
type CanopyOptions struct {
	// Fields are joined with a single space to form each record's key.
	Fields          []string `yaml:"fields"`
	ThresholdAdd    float64  `yaml:"threshold_add"`
	ThresholdRemove float64  `yaml:"threshold_remove"`
}

// Validate checks both thresholds lie in (0,1) and that add ≤ remove.
func (o CanopyOptions) Validate(param string) error {
	if len(o.Fields) == 0 {
		return domain.NewConfigError(param+".fields", "must name at least one field")
	}
	for i, f := range o.Fields {
		if f == "" {
			return domain.NewConfigError(fmt.Sprintf("%s.fields[%d]", param, i), "must not be empty")
		}
	}
	if o.ThresholdAdd <= 0 || o.ThresholdAdd >= 1 {
		return domain.NewConfigError(param+".threshold_add", "must be in (0,1), got %g", o.ThresholdAdd)
	}
	if o.ThresholdRemove <= 0 || o.ThresholdRemove >= 1 {
		return domain.NewConfigError(param+".threshold_remove", "must be in (0,1), got %g", o.ThresholdRemove)
	}
	if o.ThresholdAdd > o.ThresholdRemove {
		return domain.NewConfigError(param+".threshold_add", "must not exceed threshold_remove (%g > %g)",
			o.ThresholdAdd, o.ThresholdRemove)
	}
	return nil
}

// Canopy pairs each A record with the unclaimed B records whose bigram
// Jaccard similarity exceeds ThresholdAdd. A B record whose similarity also
// exceeds ThresholdRemove is claimed and is not offered to later A records.
//
// Because of claiming, the output depends on the order A is walked; the
// same input order always gives the same output. With the inverted index
// each A record only scores B records that share a bigram with it, so the
// cost is close to linear for dissimilar data and degrades to O(n·m) when
// every key shares a common bigram.
type Canopy struct {
	opts CanopyOptions
}

// NewCanopy creates a canopy indexer. opts must already be valid.
func NewCanopy(opts CanopyOptions) *Canopy {
	return &Canopy{opts: opts}
}

func (c *Canopy) Name() string { return TypeCanopy }

func (c *Canopy) Params() map[string]string {
	return map[string]string{
		"indexer":          TypeCanopy,
		"block_field":      strings.Join(c.opts.Fields, "+"),
		"threshold_add":    fmt.Sprintf("%g", c.opts.ThresholdAdd),
		"threshold_remove": fmt.Sprintf("%g", c.opts.ThresholdRemove),
	}
}

// Index runs one sequential canopy pass over A in collection order.
func (c *Canopy) Index(a, b *domain.Collection, issues *domain.Issues) (*domain.PairSet, error) {
	if err := c.opts.Validate("indexer"); err != nil {
		return nil, err
	}
	for i, f := range c.opts.Fields {
		if err := requireField(fmt.Sprintf("indexer.fields[%d]", i), f, a, b); err != nil {
			return nil, err
		}
	}

	grams := make([]BigramSet, b.Len())
	inverted := make(map[string][]int)
	for i, r := range b.Records() {
		grams[i] = Bigrams(c.key(r, issues))
		for g := range grams[i] {
			inverted[g] = append(inverted[g], i)
		}
	}

	claimed := make([]bool, b.Len())
	out := domain.NewPairSet()
	for _, ra := range a.Records() {
		ga := Bigrams(c.key(ra, issues))
		for _, j := range neighbours(ga, inverted) {
			if claimed[j] {
				continue
			}
			sim := Jaccard(ga, grams[j])
			if sim <= c.opts.ThresholdAdd {
				continue
			}
			out.Add(domain.Pair{A: ra.ID, B: b.At(j).ID})
			if sim > c.opts.ThresholdRemove {
				claimed[j] = true
			}
		}
	}
	return out, nil
}

// key joins the present blocking values. A record with none of them is
// counted and gets an empty key.
func (c *Canopy) key(r domain.Record, issues *domain.Issues) string {
	parts := make([]string, 0, len(c.opts.Fields))
	for _, f := range c.opts.Fields {
		if v, ok := r.Value(f); ok {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		issues.Add(domain.IssueMissingKey, 1)
	}
	return strings.Join(parts, " ")
}

// neighbours returns the distinct B positions sharing a bigram with g, in
// ascending order.
func neighbours(g BigramSet, inverted map[string][]int) []int {
	seen := make(map[int]struct{})
	for gram := range g {
		for _, j := range inverted[gram] {
			seen[j] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for j := range seen {
		out = append(out, j)
	}
	sort.Ints(out)
	return out
}

// BigramSet is a set of two-rune substrings.
type BigramSet map[string]struct{}

// Bigrams returns the set of adjacent lower-cased rune pairs of s. Strings
// shorter than two runes have no bigrams.
func Bigrams(s string) BigramSet {
	s = strings.ToLower(s)
	set := make(BigramSet, utf8.RuneCountInString(s))
	runes := []rune(s)
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

// Jaccard returns |x∩y| / |x∪y|, or 0 when both sets are empty.
func Jaccard(x, y BigramSet) float64 {
	if len(x) > len(y) {
		x, y = y, x
	}
	inter := 0
	for g := range x {
		if _, ok := y[g]; ok {
			inter++
		}
	}
	union := len(x) + len(y) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
