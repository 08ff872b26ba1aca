package graph

import (
	"iter"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Index maps case-insensitive names to node handles in insertion order.
//
// Entries do not keep a node alive: a lookup only succeeds while the handle
// is allocated and retained in the arena.
type Index struct {
	arena   *Arena
	entries *orderedmap.OrderedMap[string, Handle]
}

func NewIndex(a *Arena) *Index {
	return &Index{
		arena:   a,
		entries: orderedmap.New[string, Handle](),
	}
}

// Normalize returns the lookup form of a name.
func Normalize(name string) string {
	return strings.ToLower(name)
}

// Get returns the live node indexed under name.
func (x *Index) Get(name string) (*Node, bool) {
	h, ok := x.entries.Get(Normalize(name))
	if !ok {
		return nil, false
	}
	return x.live(h)
}

func (x *Index) live(h Handle) (*Node, bool) {
	if !x.arena.Retained(h) {
		return nil, false
	}
	n := x.arena.Lookup(h)
	return n, n != nil
}

// Set indexes n under name, keeping the position of an existing entry.
func (x *Index) Set(name string, n *Node) {
	x.entries.Set(Normalize(name), n.handle)
}

// Delete removes the entry for name, live or not. It reports whether an
// entry existed.
func (x *Index) Delete(name string) bool {
	_, ok := x.entries.Delete(Normalize(name))
	return ok
}

// Pop removes the entry for name and returns its node if it was live.
func (x *Index) Pop(name string) (*Node, bool) {
	h, ok := x.entries.Delete(Normalize(name))
	if !ok {
		return nil, false
	}
	return x.live(h)
}

// Contains reports whether name resolves to a live node.
func (x *Index) Contains(name string) bool {
	_, ok := x.Get(name)
	return ok
}

// All iterates over live entries in insertion order. Keys are the
// normalized names.
func (x *Index) All() iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		for p := x.entries.Oldest(); p != nil; p = p.Next() {
			n, ok := x.live(p.Value)
			if !ok {
				continue
			}
			if !yield(p.Key, n) {
				return
			}
		}
	}
}

// Keys returns the live names in insertion order.
func (x *Index) Keys() []string {
	var keys []string
	for k := range x.All() {
		keys = append(keys, k)
	}
	return keys
}

// Nodes returns the live nodes in insertion order. A node indexed under
// several names appears once per name.
func (x *Index) Nodes() []*Node {
	var nodes []*Node
	for _, n := range x.All() {
		nodes = append(nodes, n)
	}
	return nodes
}

// KeysFor returns every name, live or not, pointing at n.
func (x *Index) KeysFor(n *Node) []string {
	var keys []string
	for p := x.entries.Oldest(); p != nil; p = p.Next() {
		if p.Value == n.handle {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Len returns the number of live entries.
func (x *Index) Len() int {
	count := 0
	for range x.All() {
		count++
	}
	return count
}

// Purge drops entries whose node is no longer live and returns how many
// were dropped.
func (x *Index) Purge() int {
	var dead []string
	for p := x.entries.Oldest(); p != nil; p = p.Next() {
		if _, ok := x.live(p.Value); !ok {
			dead = append(dead, p.Key)
		}
	}
	for _, k := range dead {
		x.entries.Delete(k)
	}
	return len(dead)
}
