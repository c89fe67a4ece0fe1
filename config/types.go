package config

import (
	"fmt"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

// TileSize could be specified either as a single number (square tile) or as
// a mapping with explicit width and height.
type TileSize struct {
	Width  int `yaml:"width" validate:"min=1"`
	Height int `yaml:"height" validate:"min=1"`
}

func (s *TileSize) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		n, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: tile size must be a number or {width, height} mapping: %w", node.Line, err)
		}
		s.Width, s.Height = n, n
		return nil
	case yaml.MappingNode:
		// overlay on existing values, so only one dimension could be changed
		type plain TileSize
		p := plain(*s)
		if err := node.Decode(&p); err != nil {
			return err
		}
		*s = TileSize(p)
		return nil
	default:
		return fmt.Errorf("line %d: tile size must be a number or {width, height} mapping", node.Line)
	}
}

func (s TileSize) MarshalYAML() (any, error) {
	if s.Width == s.Height {
		return s.Width, nil
	}
	type plain TileSize
	return plain(s), nil
}

// MapItem is a single entry of OrderedMap.
type MapItem struct {
	Key   string
	Value string
}

// OrderedMap is a string to string mapping which keeps order of keys as they
// were specified in configuration.
type OrderedMap []MapItem

func (m *OrderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*m = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", node.Line)
	}

	items := make(OrderedMap, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value for %q must be a scalar", v.Line, k.Value)
		}
		if _, exists := seen[k.Value]; exists {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		seen[k.Value] = struct{}{}
		items = append(items, MapItem{Key: k.Value, Value: v.Value})
	}
	*m = items
	return nil
}

func (m OrderedMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(m) == 0 {
		node.Style = yaml.FlowStyle
	}
	for _, item := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item.Value},
		)
	}
	return node, nil
}

// Get returns value for the key.
func (m OrderedMap) Get(key string) (string, bool) {
	for _, item := range m {
		if item.Key == key {
			return item.Value, true
		}
	}
	return "", false
}

// Keys returns keys in configuration order.
func (m OrderedMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, item := range m {
		keys = append(keys, item.Key)
	}
	return keys
}

func (m OrderedMap) clone() OrderedMap {
	if m == nil {
		return nil
	}
	out := make(OrderedMap, len(m))
	copy(out, m)
	return out
}
