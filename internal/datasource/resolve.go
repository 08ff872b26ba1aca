package datasource

import (
	"strings"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/graph"
)

// Device returns the live device (or dserver) node indexed under name.
func (s *Source) Device(name string) (*graph.Node, bool) {
	return s.entities.Get(name)
}

// PropertyNode returns the property container of a device. A device without
// properties yields nil, nil. A string-valued "properties" is a reference
// path: the first segment names an entity, the remaining segments are keys
// looked up from there. Mutating the returned node mutates the shared
// target.
func (s *Source) PropertyNode(device string) (*graph.Node, error) {
	dev, ok := s.entities.Get(device)
	if !ok {
		return nil, api.NotFound("PropertyNode", strings.ToLower(device))
	}
	return s.propertiesOf(dev), nil
}

// EnsurePropertyNode is PropertyNode, creating an inline container when the
// device has none. A reference that does not resolve is replaced by an
// inline container.
func (s *Source) EnsurePropertyNode(device string) (*graph.Node, error) {
	dev, ok := s.entities.Get(device)
	if !ok {
		return nil, api.NotFound("EnsurePropertyNode", strings.ToLower(device))
	}
	if props := s.propertiesOf(dev); props != nil {
		return props, nil
	}
	props := s.arena.NewNode(dev, nil)
	dev.Set(api.KeyProperties, props)
	return props, nil
}

func (s *Source) propertiesOf(dev *graph.Node) *graph.Node {
	v, ok := dev.Get(api.KeyProperties)
	if !ok {
		return nil
	}
	switch p := v.(type) {
	case *graph.Node:
		return p
	case string:
		return s.ResolvePath(p)
	}
	return nil
}

// ResolvePath follows a "/"-separated reference. The first segment is
// resolved through the entity index; when it does not resolve, longer
// prefixes are tried so that full device names can be referenced. Returns
// nil as soon as a segment is missing or the target is not a map.
func (s *Source) ResolvePath(path string) *graph.Node {
	segments := strings.Split(path, "/")
	for i := 1; i <= len(segments); i++ {
		target, ok := s.entities.Get(strings.Join(segments[:i], "/"))
		if !ok {
			continue
		}
		return walk(target, segments[i:])
	}
	return nil
}

func walk(n *graph.Node, keys []string) *graph.Node {
	for _, k := range keys {
		if k == "" {
			continue
		}
		n = n.Child(k)
		if n == nil {
			return nil
		}
	}
	return n
}
