package datasource

import (
	"slices"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/graph"
)

// AddServer creates and indexes an empty server node.
func (s *Source) AddServer(exe, instance string) *graph.Node {
	srv := s.arena.NewNode(nil, nil)
	srv.Set(api.KeyServer, exe)
	srv.Set(api.KeyPersonalName, graph.Normalize(instance))
	srv.Set(api.KeyDevice, s.arena.NewList(srv, nil))
	s.indexServer(srv, ServerName(exe, instance))
	return srv
}

// DeviceList returns the device list of a server, creating it if the server
// has none.
func (s *Source) DeviceList(srv *graph.Node) *graph.NodeList {
	if l := srv.List(api.KeyDevice); l != nil {
		return l
	}
	l := s.arena.NewList(srv, nil)
	srv.Set(api.KeyDevice, l)
	return l
}

// AddDevice creates a device under srv, indexes its name and alias and
// retains it. The caller checks that neither name is taken.
func (s *Source) AddDevice(srv *graph.Node, name, class, alias string) *graph.Node {
	dev := s.arena.NewNode(srv, nil)
	dev.Set(api.KeyTangoName, graph.Normalize(name))
	dev.Set(api.KeyClass, class)
	if alias != "" {
		dev.Set(api.KeyAlias, alias)
		s.entities.Set(alias, dev)
	}
	s.DeviceList(srv).Append(dev)
	s.entities.Set(name, dev)
	s.arena.Retain(dev)
	return dev
}

// RemoveDevice drops every entity entry pointing at dev, detaches it from
// its server, clears its side tables and frees it. It returns the server
// node, or nil for a device without a live parent.
func (s *Source) RemoveDevice(dev *graph.Node) *graph.Node {
	for _, key := range s.entities.KeysFor(dev) {
		s.entities.Delete(key)
	}
	name := dev.StringOr(api.KeyTangoName, "")
	if name != "" {
		s.dropAttributeProperties(name)
		s.ClearExportInfo(name)
	}
	srv := dev.Parent()
	if srv != nil {
		if l := srv.List(api.KeyDevice); l != nil {
			l.Remove(dev)
		}
	}
	s.arena.Free(dev)
	return srv
}

// ClearServer removes every device of srv as RemoveDevice does, then clears
// srv in place. Its index entries are kept.
func (s *Source) ClearServer(srv *graph.Node) {
	if l := srv.List(api.KeyDevice); l != nil {
		devs := slices.Collect(l.Nodes())
		for _, dev := range devs {
			s.RemoveDevice(dev)
		}
	}
	srv.Clear()
}

// RenameDevice moves dev from its current name to name, carrying its side
// tables. The caller checks that name is free.
func (s *Source) RenameDevice(dev *graph.Node, name string) {
	old := dev.StringOr(api.KeyTangoName, "")
	if old != "" {
		s.entities.Delete(old)
		s.moveDeviceSideTables(old, name)
	}
	dev.Set(api.KeyTangoName, graph.Normalize(name))
	s.entities.Set(name, dev)
}

// RenameServer moves srv from its server index entry to exe/instance and
// updates its dserver entity entry.
func (s *Source) RenameServer(srv *graph.Node, exe, instance string) {
	for _, key := range s.servers.KeysFor(srv) {
		s.servers.Delete(key)
		s.entities.Delete(DServerPrefix + key)
	}
	srv.Set(api.KeyServer, exe)
	srv.Set(api.KeyPersonalName, graph.Normalize(instance))
	s.indexServer(srv, ServerName(exe, instance))
}

// ClassNode returns the live class document for name.
func (s *Source) ClassNode(name string) (*graph.Node, bool) {
	return s.classes.Get(name)
}

// EnsureClassNode returns the class document for name, creating an empty
// one on first write.
func (s *Source) EnsureClassNode(name string) *graph.Node {
	if n, ok := s.classes.Get(name); ok {
		return n
	}
	n := s.arena.NewNode(nil, nil)
	n.Set(api.KeyClass, name)
	s.classes.Set(name, n)
	s.arena.Retain(n)
	return n
}

// ClassProperty returns the value of a class property.
func (s *Source) ClassProperty(class, prop string) (any, bool) {
	n, ok := s.classes.Get(class)
	if !ok {
		return nil, false
	}
	props := n.Child(api.KeyProperties)
	if props == nil {
		return nil, false
	}
	return props.Get(prop)
}
