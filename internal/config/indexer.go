package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/linker/internal/blocking"
	"github.com/lehigh-university-libraries/linker/internal/domain"
)

// IndexerConfig is the tagged indexer block. The type key selects the
// strategy and only that strategy's parameters are accepted:
//
//	indexer:
//	  type: sorted_neighbourhood
//	  field: title
//	  window: 5
type IndexerConfig struct {
	blocking.Options
}

var indexerKeys = map[string][]string{
	blocking.TypeFull:                {"field"},
	blocking.TypeSortedNeighbourhood: {"field", "window"},
	blocking.TypeCanopy:              {"fields", "threshold_add", "threshold_remove"},
}

// UnmarshalYAML decodes the variant named by type. Unknown strategies are
// left for Validate to report; unknown parameters fail here.
func (c *IndexerConfig) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	c.Type = head.Type

	allowed, ok := indexerKeys[head.Type]
	if !ok {
		return nil
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if key == "type" || contains(allowed, key) {
				continue
			}
			return domain.NewConfigError("indexer."+key, "is not a parameter of %s", head.Type)
		}
	}

	switch head.Type {
	case blocking.TypeFull:
		c.Full = &blocking.FullOptions{}
		return decodeVariant(node, c.Full)
	case blocking.TypeSortedNeighbourhood:
		c.SortedNeighbourhood = &blocking.SortedNeighbourhoodOptions{}
		return decodeVariant(node, c.SortedNeighbourhood)
	case blocking.TypeCanopy:
		c.Canopy = &blocking.CanopyOptions{}
		return decodeVariant(node, c.Canopy)
	}
	return nil
}

func decodeVariant(node *yaml.Node, out any) error {
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
