package graph

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrKeyAbsent is returned by Node.Delete when the key does not exist.
var ErrKeyAbsent = errors.New("key absent")

// Fields is the ordered raw map produced by the document loader.
// Insertion order is the document order.
type Fields = orderedmap.OrderedMap[string, any]

// NewFields returns an empty ordered raw map.
func NewFields() *Fields {
	return orderedmap.New[string, any]()
}

// Kind classifies a stored value.
type Kind int

const (
	KindAbsent Kind = iota
	KindScalar
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "absent"
	}
}

// KindOf reports whether v is a scalar, a list (raw or promoted) or a map
// (raw or promoted). A nil value is absent.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindAbsent
	case *Node, *Fields, map[string]any:
		return KindMap
	case *NodeList, []any, []string:
		return KindList
	default:
		return KindScalar
	}
}

// Node is the universal primitive: a typed view over one map-shaped raw
// document. Its parent is fixed when the node is allocated.
type Node struct {
	arena  *Arena
	handle Handle
	parent Handle
	fields *Fields
}

// Handle returns the arena handle of the node.
func (n *Node) Handle() Handle { return n.handle }

// Parent returns the parent node, or nil for a top-level node or when the
// parent has been freed.
func (n *Node) Parent() *Node {
	if n.parent == NoHandle {
		return nil
	}
	return n.arena.Lookup(n.parent)
}

// Get returns the value stored under key. Raw maps and lists are promoted
// to *Node / *NodeList on first access and the promoted value is cached.
func (n *Node) Get(key string) (any, bool) {
	v, ok := n.fields.Get(key)
	if !ok {
		return nil, false
	}
	if p, promoted := n.arena.promote(n.handle, v); promoted {
		n.fields.Set(key, p)
		return p, true
	}
	return v, true
}

// String returns the value under key when it is a scalar, formatted.
func (n *Node) String(key string) (string, bool) {
	v, ok := n.fields.Get(key)
	if !ok || KindOf(v) != KindScalar {
		return "", false
	}
	return ScalarString(v), true
}

// StringOr returns the scalar under key, or def.
func (n *Node) StringOr(key, def string) string {
	if s, ok := n.String(key); ok {
		return s
	}
	return def
}

// Child returns the promoted map stored under key, or nil.
func (n *Node) Child(key string) *Node {
	v, _ := n.Get(key)
	c, _ := v.(*Node)
	return c
}

// List returns the promoted list stored under key, or nil.
func (n *Node) List(key string) *NodeList {
	v, _ := n.Get(key)
	l, _ := v.(*NodeList)
	return l
}

// Set stores value under key, keeping the key position if it exists. Raw
// maps and lists are promoted on the way in. Nodes owned by the replaced
// value are freed.
func (n *Node) Set(key string, value any) {
	if p, promoted := n.arena.promote(n.handle, value); promoted {
		value = p
	}
	if old, ok := n.fields.Get(key); ok && !carried(old, value) {
		n.arena.freeValue(n.handle, old)
	}
	n.fields.Set(key, value)
}

// Delete removes key and frees the nodes its value owned.
func (n *Node) Delete(key string) error {
	old, ok := n.fields.Delete(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyAbsent, key)
	}
	n.arena.freeValue(n.handle, old)
	return nil
}

// carried reports whether old lives on in replacement: the same node or
// list, or a node the replacement list holds directly.
func carried(old, replacement any) bool {
	switch x := old.(type) {
	case *Node:
		switch y := replacement.(type) {
		case *Node:
			return x == y
		case *NodeList:
			for _, item := range y.items {
				if n, ok := item.(*Node); ok && n == x {
					return true
				}
			}
		}
	case *NodeList:
		y, ok := replacement.(*NodeList)
		return ok && x == y
	}
	return false
}

// Contains reports whether key is present.
func (n *Node) Contains(key string) bool {
	_, ok := n.fields.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, n.fields.Len())
	for p := n.fields.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Len returns the number of keys.
func (n *Node) Len() int { return n.fields.Len() }

// All iterates over the entries in insertion order, promoting values.
func (n *Node) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range n.Keys() {
			v, ok := n.Get(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Clear removes every key in place and frees the nodes they owned. The node
// keeps its handle and parent, so index entries pointing at it stay valid.
func (n *Node) Clear() {
	for p := n.fields.Oldest(); p != nil; p = p.Next() {
		n.arena.freeValue(n.handle, p.Value)
	}
	n.fields = NewFields()
}

// Save hands the node to the arena's persistence hook.
func (n *Node) Save() error {
	return n.arena.save(n)
}

// NodeList is a typed view over one list-shaped raw document. Elements are
// promoted with the list's parent as their parent.
type NodeList struct {
	arena  *Arena
	parent Handle
	items  []any
}

// Parent returns the node owning the list.
func (l *NodeList) Parent() *Node {
	if l.parent == NoHandle {
		return nil
	}
	return l.arena.Lookup(l.parent)
}

// Len returns the number of elements.
func (l *NodeList) Len() int { return len(l.items) }

// At returns element i, promoting and caching raw maps and lists.
func (l *NodeList) At(i int) any {
	v := l.items[i]
	if p, promoted := l.arena.promote(l.parent, v); promoted {
		l.items[i] = p
		return p
	}
	return v
}

// Append adds v at the end, promoting raw maps and lists.
func (l *NodeList) Append(v any) {
	if p, promoted := l.arena.promote(l.parent, v); promoted {
		v = p
	}
	l.items = append(l.items, v)
}

// Remove deletes the first element equal to v. Nodes compare by identity,
// scalars by value.
func (l *NodeList) Remove(v any) bool {
	for i := range l.items {
		if sameValue(l.At(i), v) {
			l.items = slices.Delete(l.items, i, i+1)
			return true
		}
	}
	return false
}

// All iterates over the promoted elements.
func (l *NodeList) All() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		for i := 0; i < len(l.items); i++ {
			if !yield(i, l.At(i)) {
				return
			}
		}
	}
}

// Nodes iterates over the map-shaped elements only.
func (l *NodeList) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, v := range l.All() {
			if n, ok := v.(*Node); ok {
				if !yield(n) {
					return
				}
			}
		}
	}
}

// Strings formats every scalar element.
func (l *NodeList) Strings() []string {
	out := make([]string, 0, len(l.items))
	for _, v := range l.items {
		out = append(out, ScalarString(v))
	}
	return out
}

func sameValue(a, b any) bool {
	switch x := a.(type) {
	case *Node:
		y, ok := b.(*Node)
		return ok && x == y
	case *NodeList:
		y, ok := b.(*NodeList)
		return ok && x == y
	}
	if KindOf(a) != KindScalar || KindOf(b) != KindScalar {
		return false
	}
	return a == b
}

// ScalarString formats a scalar value the way the query surface reports it.
func ScalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// StringList converts values to the raw list form stored in nodes.
func StringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Plain converts a node tree back into raw ordered values, without
// promoting anything. Used for serialization.
func Plain(v any) any {
	switch x := v.(type) {
	case *Node:
		return plainFields(x.fields)
	case *Fields:
		return plainFields(x)
	case map[string]any:
		return plainFields(fieldsFromMap(x))
	case *NodeList:
		return plainList(x.items)
	case []any:
		return plainList(x)
	case []string:
		return StringList(x)
	default:
		return x
	}
}

func plainFields(f *Fields) *Fields {
	out := NewFields()
	for p := f.Oldest(); p != nil; p = p.Next() {
		out.Set(p.Key, Plain(p.Value))
	}
	return out
}

func plainList(items []any) []any {
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = Plain(v)
	}
	return out
}

func fieldsFromMap(m map[string]any) *Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	f := NewFields()
	for _, k := range keys {
		f.Set(k, m[k])
	}
	return f
}
