package config

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for documents that do not follow the
// configuration schema.
var ErrInvalidConfig = errors.New("invalid configuration")

// Parse decodes a configuration document. JSON is accepted as-is because it
// is a YAML flow document; YAML files with the same schema work too. Key
// order of every option map is preserved.
func Parse(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}

	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidConfig)
	}

	tree := &Tree{Data: make(map[string]*Options)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := resolveAlias(root.Content[i+1])

		switch key {
		case "version":
			tree.Version = val.Value
		case "name":
			tree.Name = val.Value
		case "project_name":
			tree.ProjectName = val.Value
		case "commands":
			cmds, err := decodeCommands(val)
			if err != nil {
				return nil, err
			}
			tree.Commands = cmds
		case "data":
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: \"data\" must be an object", ErrInvalidConfig)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				typ := val.Content[j].Value
				opts, err := decodeOptions(resolveAlias(val.Content[j+1]))
				if err != nil {
					return nil, fmt.Errorf("data.%s: %w", typ, err)
				}
				tree.Data[typ] = opts
				tree.types = append(tree.types, typ)
			}
		}
	}

	return tree, nil
}

func decodeCommands(n *yaml.Node) ([]CommandSpec, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: \"commands\" must be a list", ErrInvalidConfig)
	}

	cmds := make([]CommandSpec, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolveAlias(item)
		switch item.Kind {
		case yaml.ScalarNode:
			cmds = append(cmds, CommandSpec{Name: item.Value})
		case yaml.SequenceNode:
			if len(item.Content) != 2 {
				return nil, fmt.Errorf("%w: commands[%d] must be a name or a [name, variant] pair", ErrInvalidConfig, i)
			}
			cmds = append(cmds, CommandSpec{
				Name:    resolveAlias(item.Content[0]).Value,
				Variant: resolveAlias(item.Content[1]).Value,
			})
		default:
			return nil, fmt.Errorf("%w: commands[%d] must be a name or a [name, variant] pair", ErrInvalidConfig, i)
		}
	}
	return cmds, nil
}

func decodeOptions(n *yaml.Node) (*Options, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: option map must be an object", ErrInvalidConfig)
	}

	opts := NewOptions()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		v, err := decodeValue(resolveAlias(n.Content[i+1]))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		opts.Set(key, v)
	}
	return opts, nil
}

func decodeValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			c = resolveAlias(c)
			if c.Kind != yaml.ScalarNode {
				return Absent(), fmt.Errorf("%w: list items must be scalars", ErrInvalidConfig)
			}
			items = append(items, c.Value)
		}
		return List(items...), nil
	case yaml.MappingNode:
		opts, err := decodeOptions(n)
		if err != nil {
			return Absent(), err
		}
		return Table(opts), nil
	default:
		return Absent(), fmt.Errorf("%w: unsupported value", ErrInvalidConfig)
	}
}

func decodeScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Absent(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Absent(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return Flag(b), nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			var i int64
			if derr := n.Decode(&i); derr != nil {
				return Absent(), fmt.Errorf("%w: bad number %q", ErrInvalidConfig, n.Value)
			}
			f = float64(i)
		}
		return Number(f), nil
	default:
		return Text(n.Value), nil
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
