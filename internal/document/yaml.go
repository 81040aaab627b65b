package document

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tfc/internal/param"
)

const mergeTag = "!!merge"

// decodeYAML parses YAML (and therefore JSON) keeping mapping order.
func decodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return nodeToLiteral(&doc)
}

func nodeToLiteral(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeToLiteral(n.Content[0])
	case yaml.AliasNode:
		return nodeToLiteral(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeToLiteral(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return mappingToObject(n)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

// mappingToObject converts a mapping node. Explicit keys win over keys
// pulled in through "<<" merge keys, regardless of position.
func mappingToObject(n *yaml.Node) (*param.Object, error) {
	obj := param.NewObject()
	var merged []*param.Object

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Tag == mergeTag {
			srcs, err := mergeSources(v)
			if err != nil {
				return nil, err
			}
			merged = append(merged, srcs...)
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		val, err := nodeToLiteral(v)
		if err != nil {
			return nil, err
		}
		obj.Set(k.Value, val)
	}

	for _, src := range merged {
		for pair := src.Oldest(); pair != nil; pair = pair.Next() {
			if _, ok := obj.Get(pair.Key); !ok {
				obj.Set(pair.Key, pair.Value)
			}
		}
	}
	return obj, nil
}

func mergeSources(v *yaml.Node) ([]*param.Object, error) {
	if v.Kind == yaml.AliasNode {
		v = v.Alias
	}
	switch v.Kind {
	case yaml.MappingNode:
		obj, err := mappingToObject(v)
		if err != nil {
			return nil, err
		}
		return []*param.Object{obj}, nil
	case yaml.SequenceNode:
		var out []*param.Object
		for _, c := range v.Content {
			srcs, err := mergeSources(c)
			if err != nil {
				return nil, err
			}
			out = append(out, srcs...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: merge value must be a mapping", v.Line)
	}
}
