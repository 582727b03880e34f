// Package datafile loads template data from YAML, JSON and TOML documents.
//
// YAML and JSON are read through yaml.Node so mapping keys keep their
// document order. TOML is decoded into Go maps, whose keys end up sorted.
package datafile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/yetanotherchris/text-template/value"
)

// Format identifies a data file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatForPath picks a format from a file extension. Unknown extensions
// are read as YAML, which also accepts JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and decodes the file at path.
func Load(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Undefined(), err
	}
	v, err := Decode(data, FormatForPath(path))
	if err != nil {
		return value.Undefined(), fmt.Errorf("decoding %s: %w", path, err)
	}
	return v, nil
}

// Decode decodes data in the given format.
func Decode(data []byte, format Format) (value.Value, error) {
	switch format {
	case FormatTOML:
		return DecodeTOML(data)
	case FormatYAML, FormatJSON:
		return DecodeYAML(data)
	}
	return value.Undefined(), fmt.Errorf("unknown data format %q", format)
}

// DecodeYAML decodes a single YAML (or JSON) document. An empty document
// decodes to an empty map.
func DecodeYAML(data []byte) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return value.Undefined(), err
	}
	if doc.Kind == 0 {
		return value.FromMap(nil), nil
	}
	return fromNode(&doc)
}

func fromNode(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.FromMap(nil), nil
		}
		return fromNode(n.Content[0])

	case yaml.MappingNode:
		m := value.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			v, err := fromNode(val)
			if err != nil {
				return value.Undefined(), err
			}
			if key.Tag == "!!merge" {
				if merged, ok := v.AsMap(); ok {
					merged.Range(func(k string, mv value.Value) bool {
						if _, exists := m.Get(k); !exists {
							m.Set(k, mv)
						}
						return true
					})
					continue
				}
			}
			m.Set(key.Value, v)
		}
		return value.FromMap(m), nil

	case yaml.SequenceNode:
		items := make([]value.Value, len(n.Content))
		for i, item := range n.Content {
			v, err := fromNode(item)
			if err != nil {
				return value.Undefined(), err
			}
			items[i] = v
		}
		return value.FromSlice(items), nil

	case yaml.AliasNode:
		return fromNode(n.Alias)

	case yaml.ScalarNode:
		var out any
		if err := n.Decode(&out); err != nil {
			return value.Undefined(), fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.FromAny(out), nil
	}
	return value.Undefined(), fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

// DecodeTOML decodes a TOML document.
func DecodeTOML(data []byte) (value.Value, error) {
	var out map[string]any
	if err := toml.Unmarshal(data, &out); err != nil {
		return value.Undefined(), err
	}
	return value.FromAny(out), nil
}

// EncodeYAML renders v as a YAML document, keeping map order.
func EncodeYAML(v value.Value) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toNode(v)); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toNode(v value.Value) *yaml.Node {
	switch v.Kind() {
	case value.KindMap:
		m, _ := v.AsMap()
		n := &yaml.Node{Kind: yaml.MappingNode}
		m.Range(func(k string, item value.Value) bool {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toNode(item))
			return true
		})
		return n
	case value.KindSeq:
		items, _ := v.AsSlice()
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range items {
			n.Content = append(n.Content, toNode(item))
		}
		return n
	case value.KindRecord:
		rec, _ := v.AsRecord()
		if lister, ok := rec.(value.FieldLister); ok {
			m := value.NewMap()
			for _, name := range lister.FieldNames() {
				fv, _ := rec.Field(name)
				m.Set(name, fv)
			}
			return toNode(value.FromMap(m))
		}
	}

	n := &yaml.Node{}
	if err := n.Encode(value.ToGo(v)); err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.String()}
	}
	return n
}

// EncodeTOML renders a map value as a TOML document.
func EncodeTOML(v value.Value) (string, error) {
	if v.Kind() != value.KindMap {
		return "", fmt.Errorf("TOML documents must be maps, got %s", v.Kind())
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(value.ToGo(v)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SetPath stores val at a dotted path inside m, creating intermediate maps
// and replacing non-map intermediates.
func SetPath(m *value.Map, path string, val value.Value) {
	parts := strings.Split(path, ".")
	cur := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur.Get(part)
		nm, isMap := next.AsMap()
		if !ok || !isMap {
			nm = value.NewMap()
			cur.Set(part, value.FromMap(nm))
		}
		cur = nm
	}
	cur.Set(parts[len(parts)-1], val)
}

// ParseScalar decodes a command-line value with YAML scalar rules, so
// "3" is an int, "true" a bool and anything unparseable a string.
func ParseScalar(s string) value.Value {
	var out any
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return value.FromString(s)
	}
	switch out.(type) {
	case map[string]any, []any:
		return value.FromString(s)
	}
	return value.FromAny(out)
}
