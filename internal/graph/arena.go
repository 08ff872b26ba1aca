package graph

import (
	"github.com/RoaringBitmap/roaring"
)

// Handle addresses a node inside its Arena. Handles are never reused.
type Handle uint32

// NoHandle is the parent handle of top-level nodes.
const NoHandle Handle = 0

// Saver is the persistence hook called by Node.Save after a mutation.
type Saver interface {
	Save(n *Node) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(n *Node) error

func (f SaverFunc) Save(n *Node) error { return f(n) }

// NopSaver is the in-memory saver; it never fails.
type NopSaver struct{}

func (NopSaver) Save(*Node) error { return nil }

// Arena owns every node. Indices hold handles, not pointers; the retention
// bitmap decides which handles an index lookup may return.
//
// An Arena is not safe for concurrent use. The database facade serializes
// access with its own lock.
type Arena struct {
	nodes    map[Handle]*Node
	next     Handle
	retained *roaring.Bitmap
	saver    Saver
}

func NewArena() *Arena {
	return &Arena{
		nodes:    make(map[Handle]*Node),
		next:     NoHandle + 1,
		retained: roaring.New(),
		saver:    NopSaver{},
	}
}

// SetSaver installs the persistence hook. A nil saver restores NopSaver.
func (a *Arena) SetSaver(s Saver) {
	if s == nil {
		s = NopSaver{}
	}
	a.saver = s
}

func (a *Arena) save(n *Node) error {
	return a.saver.Save(n)
}

// NewNode allocates a node over raw (nil, *Fields or map[string]any).
// parent may be nil for top-level nodes.
func (a *Arena) NewNode(parent *Node, raw any) *Node {
	ph := NoHandle
	if parent != nil {
		ph = parent.handle
	}
	return a.alloc(ph, raw)
}

// NewList wraps items as a list owned by parent.
func (a *Arena) NewList(parent *Node, items []any) *NodeList {
	ph := NoHandle
	if parent != nil {
		ph = parent.handle
	}
	return &NodeList{arena: a, parent: ph, items: items}
}

// Wrap promotes a raw top-level document: maps become nodes, lists become
// node lists, anything else is returned unchanged.
func (a *Arena) Wrap(raw any) any {
	if p, ok := a.promote(NoHandle, raw); ok {
		return p
	}
	return raw
}

// Warm promotes every raw map and list owned by v, depth first. After a
// warm pass reads no longer write to the tree, so concurrent readers are
// safe.
func (a *Arena) Warm(v any) {
	switch x := v.(type) {
	case *Node:
		for _, k := range x.Keys() {
			c, _ := x.Get(k)
			a.warmOwned(x.handle, c)
		}
	case *NodeList:
		for _, item := range x.All() {
			a.warmOwned(x.parent, item)
		}
	}
}

func (a *Arena) warmOwned(owner Handle, v any) {
	switch x := v.(type) {
	case *Node:
		if x.parent == owner {
			a.Warm(x)
		}
	case *NodeList:
		if x.parent == owner {
			a.Warm(x)
		}
	}
}

func (a *Arena) alloc(parent Handle, raw any) *Node {
	var f *Fields
	switch r := raw.(type) {
	case *Fields:
		f = r
	case map[string]any:
		f = fieldsFromMap(r)
	default:
		f = NewFields()
	}
	n := &Node{arena: a, handle: a.next, parent: parent, fields: f}
	a.nodes[n.handle] = n
	a.next++
	return n
}

func (a *Arena) promote(parent Handle, v any) (any, bool) {
	switch r := v.(type) {
	case *Fields, map[string]any:
		return a.alloc(parent, r), true
	case []any:
		return &NodeList{arena: a, parent: parent, items: r}, true
	case []string:
		return &NodeList{arena: a, parent: parent, items: StringList(r)}, true
	}
	return v, false
}

// Lookup resolves a handle. It returns nil for freed handles.
func (a *Arena) Lookup(h Handle) *Node {
	return a.nodes[h]
}

// Retain adds n to the retention set.
func (a *Arena) Retain(n *Node) {
	a.retained.Add(uint32(n.handle))
}

// Release removes n from the retention set. The node stays allocated.
func (a *Arena) Release(n *Node) {
	a.retained.Remove(uint32(n.handle))
}

// Retained reports whether h is allocated and retained.
func (a *Arena) Retained(h Handle) bool {
	if _, ok := a.nodes[h]; !ok {
		return false
	}
	return a.retained.Contains(uint32(h))
}

// RetainedCount returns the size of the retention set.
func (a *Arena) RetainedCount() uint64 {
	return a.retained.GetCardinality()
}

// Len returns the number of allocated nodes.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Free releases n and every promoted descendant and removes them from the
// arena. It returns the number of nodes freed.
func (a *Arena) Free(n *Node) int {
	if _, ok := a.nodes[n.handle]; !ok {
		return 0
	}
	freed := 1
	for p := n.fields.Oldest(); p != nil; p = p.Next() {
		freed += a.freeValue(n.handle, p.Value)
	}
	a.retained.Remove(uint32(n.handle))
	delete(a.nodes, n.handle)
	return freed
}

func (a *Arena) freeValue(owner Handle, v any) int {
	switch x := v.(type) {
	case *Node:
		if x.parent == owner {
			return a.Free(x)
		}
	case *NodeList:
		if x.parent != owner {
			return 0
		}
		freed := 0
		for _, item := range x.items {
			freed += a.freeValue(owner, item)
		}
		return freed
	}
	return 0
}
