package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/agentic-research/tangodb/internal/graph"
	"gopkg.in/yaml.v3"
)

// maxAliasNodes bounds how many nodes alias expansion may produce in one
// document.
const maxAliasNodes = 1 << 20

// ErrAliasExpansion is returned for recursive aliases and for documents
// whose aliases expand past maxAliasNodes.
var ErrAliasExpansion = errors.New("alias expansion")

// DecodeYAML decodes every document of a YAML stream. Mappings become
// *graph.Fields in source order; empty documents are skipped.
func DecodeYAML(r io.Reader) ([]any, error) {
	dec := yaml.NewDecoder(r)
	var docs []any
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		v, err := newConverter().convert(&doc)
		if err != nil {
			return nil, err
		}
		if v != nil {
			docs = append(docs, v)
		}
	}
}

// DecodeRecord decodes one JSON record. JSON is read through the YAML
// decoder so that key order survives.
func DecodeRecord(raw string) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return newConverter().convert(&doc)
}

// converter turns one yaml.Node tree into raw values. yaml.v3 applies its
// alias ratio limit only when decoding into Go values, so expansion is
// bounded here.
type converter struct {
	expanding map[*yaml.Node]bool // anchors on the current alias path
	expanded  int                 // nodes produced below an alias
}

func newConverter() *converter {
	return &converter{expanding: make(map[*yaml.Node]bool)}
}

// enter marks the anchor behind alias as being expanded. The returned func
// undoes it.
func (c *converter) enter(alias *yaml.Node) (func(), error) {
	target := alias.Alias
	if target == nil {
		return nil, fmt.Errorf("line %d: unknown alias: %w", alias.Line, ErrAliasExpansion)
	}
	if c.expanding[target] {
		return nil, fmt.Errorf("line %d: recursive alias: %w", alias.Line, ErrAliasExpansion)
	}
	c.expanding[target] = true
	return func() { delete(c.expanding, target) }, nil
}

func (c *converter) count(n *yaml.Node) error {
	if len(c.expanding) == 0 {
		return nil
	}
	c.expanded++
	if c.expanded > maxAliasNodes {
		return fmt.Errorf("line %d: aliases expand to more than %d nodes: %w", n.Line, maxAliasNodes, ErrAliasExpansion)
	}
	return nil
}

func (c *converter) convert(n *yaml.Node) (any, error) {
	if err := c.count(n); err != nil {
		return nil, err
	}
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return c.convert(n.Content[0])
	case yaml.AliasNode:
		leave, err := c.enter(n)
		if err != nil {
			return nil, err
		}
		defer leave()
		return c.convert(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, e := range n.Content {
			v, err := c.convert(e)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		f := graph.NewFields()
		if err := c.mergeMapping(f, n); err != nil {
			return nil, err
		}
		return f, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// mergeMapping copies the pairs of n into f, expanding "<<" merge keys.
// Explicit keys win over merged ones.
func (c *converter) mergeMapping(f *graph.Fields, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Tag == "!!merge" || (k.Kind == yaml.ScalarNode && k.Value == "<<" && k.Style == 0) {
			if err := c.merge(f, v); err != nil {
				return err
			}
			continue
		}
		val, err := c.convert(v)
		if err != nil {
			return err
		}
		f.Set(k.Value, val)
	}
	return nil
}

func (c *converter) merge(f *graph.Fields, v *yaml.Node) error {
	if v.Kind == yaml.AliasNode {
		leave, err := c.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return c.merge(f, v.Alias)
	}
	if err := c.count(v); err != nil {
		return err
	}
	switch v.Kind {
	case yaml.MappingNode:
		src := graph.NewFields()
		if err := c.mergeMapping(src, v); err != nil {
			return err
		}
		for p := src.Oldest(); p != nil; p = p.Next() {
			if _, ok := f.Get(p.Key); !ok {
				f.Set(p.Key, p.Value)
			}
		}
		return nil
	case yaml.SequenceNode:
		for _, e := range v.Content {
			if err := c.merge(f, e); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("line %d: merge value is not a mapping", v.Line)
}

// ToPlain converts ordered maps and promoted nodes into map[string]any and
// []any, the shapes JSONPath evaluation understands.
func ToPlain(v any) any {
	switch x := graph.Plain(v).(type) {
	case *graph.Fields:
		m := make(map[string]any, x.Len())
		for p := x.Oldest(); p != nil; p = p.Next() {
			m[p.Key] = ToPlain(p.Value)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToPlain(e)
		}
		return out
	default:
		return x
	}
}
