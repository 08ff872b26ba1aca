package datasource

import (
	"strings"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/graph"
)

const opClassify = "classify"

func (s *Source) classify(doc any) {
	switch v := doc.(type) {
	case *graph.NodeList:
		for _, item := range v.All() {
			s.classify(item)
		}
	case *graph.Node:
		switch {
		case v.Contains(api.KeyServer):
			s.parseServer(v)
		case v.Contains(api.KeyClass):
			s.parseClass(v)
		default:
			s.report(api.Malformed(opClassify, "unsupported document with keys %v", v.Keys()))
		}
	default:
		s.report(api.Malformed(opClassify, "unsupported %s document", graph.KindOf(doc)))
	}
}

func (s *Source) parseClass(n *graph.Node) {
	name, ok := n.String(api.KeyClass)
	if !ok || name == "" {
		s.report(api.Malformed(opClassify, "class document without a class name"))
		return
	}
	s.classes.Set(name, n)
	s.arena.Retain(n)
}

func (s *Source) parseServer(n *graph.Node) {
	exe, _ := n.String(api.KeyServer)
	instance, _ := n.String(api.KeyPersonalName)
	if exe == "" || instance == "" {
		s.report(api.Malformed(opClassify,
			"server document needs %q and %q (server=%q personal_name=%q)",
			api.KeyServer, api.KeyPersonalName, exe, instance))
		return
	}
	name := ServerName(exe, instance)
	if s.servers.Contains(name) {
		s.report(&api.Error{Op: opClassify, Entity: name, Reason: api.ReasonSQLError, Err: api.ErrAlreadyExists})
		return
	}
	s.indexServer(n, name)

	if v, ok := n.Get(api.KeyDevice); ok {
		if single, ok := v.(*graph.Node); ok {
			n.Set(api.KeyDevice, []any{single})
		}
	}
	devices := n.List(api.KeyDevice)
	if devices == nil {
		return
	}
	for _, item := range devices.All() {
		dev, ok := item.(*graph.Node)
		if !ok {
			s.report(api.Malformed(opClassify, "server %s: device entry is a %s", name, graph.KindOf(item)))
			continue
		}
		s.parseDevice(name, dev)
	}
}

func (s *Source) parseDevice(server string, dev *graph.Node) {
	s.arena.Retain(dev)
	devName, ok := dev.String(api.KeyTangoName)
	if !ok || devName == "" {
		return
	}
	if s.entities.Contains(devName) {
		s.report(&api.Error{Op: opClassify, Entity: strings.ToLower(devName), Reason: api.ReasonSQLError, Err: api.ErrAlreadyExists})
		s.arena.Release(dev)
		return
	}
	s.entities.Set(devName, dev)
	if alias, ok := dev.String(api.KeyAlias); ok && alias != "" {
		if graph.Normalize(alias) == graph.Normalize(devName) {
			s.report(api.Malformed(opClassify, "device %s: alias is the device name", devName))
			_ = dev.Delete(api.KeyAlias)
		} else if s.entities.Contains(alias) {
			s.report(&api.Error{Op: opClassify, Entity: alias, Reason: api.ReasonSQLError, Err: api.ErrAlreadyExists})
		} else {
			s.entities.Set(alias, dev)
		}
	}
	s.logger.Debug("indexed device", "server", server, "device", devName)
}

// indexServer registers n under the server and entity indices and retains it.
func (s *Source) indexServer(n *graph.Node, name string) {
	s.servers.Set(name, n)
	s.entities.Set(DServerPrefix+name, n)
	s.arena.Retain(n)
}

// bootstrap adds the database's own server and device so they resolve like
// any loaded entry.
func (s *Source) bootstrap() {
	srv := s.arena.NewNode(nil, nil)
	srv.Set(api.KeyServer, DatabaseServer)
	srv.Set(api.KeyPersonalName, s.identity)

	devName := DatabaseDevice(s.identity)
	dev := s.arena.NewNode(srv, nil)
	dev.Set(api.KeyClass, DatabaseClass)
	dev.Set(api.KeyTangoName, devName)
	srv.Set(api.KeyDevice, []any{dev})
	srv.Set(api.KeyTangoName, devName)

	s.indexServer(srv, ServerName(DatabaseServer, s.identity))
	s.entities.Set(devName, dev)
	s.arena.Retain(dev)
	s.synthetic[srv.Handle()] = true
	s.synthetic[dev.Handle()] = true
}

// ServerName returns the server index key for an executable and instance.
func ServerName(exe, instance string) string {
	return exe + "/" + strings.ToLower(instance)
}

// DatabaseDevice returns the name of the database device for identity.
func DatabaseDevice(identity string) string {
	return "sys/database/" + identity
}
