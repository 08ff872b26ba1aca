package datasource

import (
	"iter"
	"strings"

	"github.com/agentic-research/tangodb/internal/graph"
)

// ExportInfo is the runtime record written when a device is exported.
type ExportInfo struct {
	IOR       string
	Host      string
	PID       int
	Version   string
	StartTime string
}

// AttributeAlias binds an alias to an attribute name.
type AttributeAlias struct {
	Alias     string
	Attribute string
}

// ExportInfo returns the exported record of an entity.
func (s *Source) ExportInfo(name string) (ExportInfo, bool) {
	return s.exported.Get(graph.Normalize(name))
}

func (s *Source) SetExportInfo(name string, info ExportInfo) {
	s.exported.Set(graph.Normalize(name), info)
}

// ClearExportInfo drops the exported record and reports whether one existed.
func (s *Source) ClearExportInfo(name string) bool {
	_, ok := s.exported.Delete(graph.Normalize(name))
	return ok
}

// ExportedNames returns the exported entity names matching wildcard, in
// export order.
func (s *Source) ExportedNames(wildcard string) []string {
	names := make([]string, 0, s.exported.Len())
	for p := s.exported.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return graph.Match(wildcard, names)
}

func classAttributeKey(class, attr string) string {
	return graph.Normalize(class) + "." + graph.Normalize(attr)
}

// ClassAttribute returns the property node of a class attribute, creating an
// empty one when create is set.
func (s *Source) ClassAttribute(class, attr string, create bool) *graph.Node {
	key := classAttributeKey(class, attr)
	if n, ok := s.classAttributes.Get(key); ok {
		return n
	}
	if !create {
		return nil
	}
	n := s.arena.NewNode(nil, nil)
	s.classAttributes.Set(key, n)
	return n
}

// ClassAttributeNames lists the attribute names that carry properties for
// class.
func (s *Source) ClassAttributeNames(class string) []string {
	prefix := graph.Normalize(class) + "."
	var names []string
	for p := s.classAttributes.Oldest(); p != nil; p = p.Next() {
		if attr, ok := strings.CutPrefix(p.Key, prefix); ok && p.Value.Len() > 0 {
			names = append(names, attr)
		}
	}
	return names
}

// AttributeProperties returns the node mapping attribute names to property
// nodes for a device, creating it when create is set.
func (s *Source) AttributeProperties(device string, create bool) *graph.Node {
	key := graph.Normalize(device)
	if n, ok := s.attrProps[key]; ok {
		return n
	}
	if !create {
		return nil
	}
	n := s.arena.NewNode(nil, nil)
	s.attrProps[key] = n
	return n
}

func (s *Source) dropAttributeProperties(device string) {
	key := graph.Normalize(device)
	if n, ok := s.attrProps[key]; ok {
		s.arena.Free(n)
		delete(s.attrProps, key)
	}
}

func (s *Source) moveDeviceSideTables(from, to string) {
	from, to = graph.Normalize(from), graph.Normalize(to)
	if n, ok := s.attrProps[from]; ok {
		delete(s.attrProps, from)
		s.attrProps[to] = n
	}
	if info, ok := s.exported.Delete(from); ok {
		s.exported.Set(to, info)
	}
}

// AttributeAlias returns the binding of alias.
func (s *Source) AttributeAlias(alias string) (AttributeAlias, bool) {
	return s.attrAliases.Get(graph.Normalize(alias))
}

func (s *Source) SetAttributeAlias(alias, attribute string) {
	s.attrAliases.Set(graph.Normalize(alias), AttributeAlias{Alias: alias, Attribute: attribute})
}

// DeleteAttributeAlias drops the binding and reports whether it existed.
func (s *Source) DeleteAttributeAlias(alias string) bool {
	_, ok := s.attrAliases.Delete(graph.Normalize(alias))
	return ok
}

// AttributeAliases iterates over every alias binding in insertion order.
func (s *Source) AttributeAliases() iter.Seq[AttributeAlias] {
	return func(yield func(AttributeAlias) bool) {
		for p := s.attrAliases.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Value) {
				return
			}
		}
	}
}

// Adopt copies the runtime side tables of old into s, which replaces it
// after a reload. Exported records and attribute aliases carry over as they
// are. Attribute property nodes are copied into the arena of s; device
// attribute properties are dropped for devices s does not define.
func (s *Source) Adopt(old *Source) {
	if old == nil || old == s {
		return
	}
	for p := old.exported.Oldest(); p != nil; p = p.Next() {
		s.exported.Set(p.Key, p.Value)
	}
	for p := old.attrAliases.Oldest(); p != nil; p = p.Next() {
		s.attrAliases.Set(p.Key, p.Value)
	}
	for p := old.classAttributes.Oldest(); p != nil; p = p.Next() {
		if p.Value.Len() > 0 {
			s.classAttributes.Set(p.Key, s.copyNode(p.Value))
		}
	}
	for device, n := range old.attrProps {
		if !s.entities.Contains(device) {
			s.logger.Debug("attribute properties dropped on reload", "device", device)
			continue
		}
		s.attrProps[device] = s.copyNode(n)
	}
}

func (s *Source) copyNode(n *graph.Node) *graph.Node {
	c := s.arena.NewNode(nil, graph.Plain(n))
	s.arena.Warm(c)
	return c
}
