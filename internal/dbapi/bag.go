package dbapi

import (
	"iter"
	"strconv"
	"strings"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/graph"
)

// Property is one decoded entry of a property bag.
type Property struct {
	Name   string
	Values []string
}

// Value is the form stored in a node: a count of one stores a scalar, any
// other count a list.
func (p Property) Value() any {
	if len(p.Values) == 1 {
		return p.Values[0]
	}
	return graph.StringList(p.Values)
}

// Values formats a stored value for the bag: a scalar is one value, a list
// its elements in order.
func Values(v any) []string {
	switch x := v.(type) {
	case *graph.NodeList:
		return x.Strings()
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = graph.ScalarString(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	}
	return []string{graph.ScalarString(v)}
}

// Encode appends (name, count, values...) for v.
func Encode(dst []string, name string, v any) []string {
	values := Values(v)
	dst = append(dst, name, strconv.Itoa(len(values)))
	return append(dst, values...)
}

// EncodeBag encodes props as a complete bag.
func EncodeBag(props []Property) []string {
	var out []string
	for _, p := range props {
		out = append(out, p.Name, strconv.Itoa(len(p.Values)))
		out = append(out, p.Values...)
	}
	return out
}

// bagReader walks a flat argument list.
type bagReader struct {
	op   string
	args []string
	pos  int
}

func newBagReader(op string, args []string) *bagReader {
	return &bagReader{op: op, args: args}
}

func (r *bagReader) next(what string) (string, error) {
	if r.pos >= len(r.args) {
		return "", api.Malformed(r.op, "missing %s at position %d", what, r.pos)
	}
	s := r.args[r.pos]
	r.pos++
	return s, nil
}

func (r *bagReader) count(what string) (int, error) {
	s, err := r.next(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, api.Malformed(r.op, "%s %q is not a count", what, s)
	}
	return n, nil
}

// property reads (name, count, values...).
func (r *bagReader) property() (Property, error) {
	name, err := r.next("property name")
	if err != nil {
		return Property{}, err
	}
	n, err := r.count("value count")
	if err != nil {
		return Property{}, err
	}
	if r.pos+n > len(r.args) {
		return Property{}, api.Malformed(r.op, "property %s declares %d values, %d left", name, n, len(r.args)-r.pos)
	}
	p := Property{Name: name, Values: append([]string(nil), r.args[r.pos:r.pos+n]...)}
	r.pos += n
	return p, nil
}

// pair reads (name, value).
func (r *bagReader) pair() (Property, error) {
	name, err := r.next("property name")
	if err != nil {
		return Property{}, err
	}
	v, err := r.next("property value")
	if err != nil {
		return Property{}, err
	}
	return Property{Name: name, Values: []string{v}}, nil
}

// DecodeBag decodes n (name, count, values...) entries.
func DecodeBag(op string, n int, args []string) ([]Property, error) {
	r := newBagReader(op, args)
	props := make([]Property, 0, n)
	for range n {
		p, err := r.property()
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

// AttributeProperties is the decoded form of a per-attribute request.
type AttributeProperties struct {
	Attribute  string
	Properties []Property
}

// DecodeAttributeBag decodes n (attribute, count, entries...) groups. With
// counted set, entries are (name, count, values...); otherwise they are
// (name, value) pairs.
func DecodeAttributeBag(op string, n int, args []string, counted bool) ([]AttributeProperties, error) {
	r := newBagReader(op, args)
	out := make([]AttributeProperties, 0, n)
	for range n {
		attr, err := r.next("attribute name")
		if err != nil {
			return nil, err
		}
		nprops, err := r.count("property count")
		if err != nil {
			return nil, err
		}
		group := AttributeProperties{Attribute: attr}
		for range nprops {
			var p Property
			if counted {
				p, err = r.property()
			} else {
				p, err = r.pair()
			}
			if err != nil {
				return nil, err
			}
			group.Properties = append(group.Properties, p)
		}
		out = append(out, group)
	}
	return out, nil
}

// encodeContainer appends (name, value) pairs, or (name, count, values...)
// entries when counted is set, for every leaf entry of n.
func encodeContainer(dst []string, n *graph.Node, counted bool) []string {
	for k, v := range leaves(n) {
		if counted {
			dst = Encode(dst, k, v)
			continue
		}
		dst = append(dst, k, strings.Join(Values(v), "\n"))
	}
	return dst
}

// leaves returns the non-map entries of n in order.
func leaves(n *graph.Node) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if n == nil {
			return
		}
		for k, v := range n.All() {
			if graph.KindOf(v) == graph.KindMap {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

func leafCount(n *graph.Node) int {
	count := 0
	for range leaves(n) {
		count++
	}
	return count
}

func leafKeys(n *graph.Node) []string {
	var keys []string
	for k := range leaves(n) {
		keys = append(keys, k)
	}
	return keys
}
