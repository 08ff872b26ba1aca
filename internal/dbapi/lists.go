package dbapi

import (
	"slices"
	"strings"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

// deviceNames returns the entity index keys that are names, not aliases.
func deviceNames(s *datasource.Source) []string {
	var names []string
	for key, n := range s.Entities().All() {
		name, _ := n.String(api.KeyTangoName)
		if alias, ok := n.String(api.KeyAlias); ok && graph.Normalize(alias) == key && graph.Normalize(name) != key {
			continue
		}
		names = append(names, key)
	}
	return names
}

// segments returns the distinct, sorted segment i of the names matching
// wildcard. A negative i counts from the end.
func segments(wildcard string, names []string, i int) []string {
	var out []string
	for _, name := range graph.Match(wildcard, names) {
		parts := strings.Split(name, "/")
		j := i
		if j < 0 {
			j += len(parts)
		}
		if j < 0 || j >= len(parts) {
			continue
		}
		out = append(out, parts[j])
	}
	return sortedUnique(out)
}

func sortedUnique(s []string) []string {
	slices.Sort(s)
	return slices.Compact(s)
}

func (db *Database) list(op string, fn func(s *datasource.Source) []string) ([]string, error) {
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		out = fn(s)
		return nil
	})
	return out, err
}

func (db *Database) GetDeviceWideList(wildcard string) ([]string, error) {
	return db.list("DbGetDeviceWideList", func(s *datasource.Source) []string {
		return graph.Match(wildcard, deviceNames(s))
	})
}

func (db *Database) GetDeviceDomainList(wildcard string) ([]string, error) {
	return db.list("DbGetDeviceDomainList", func(s *datasource.Source) []string {
		return segments(wildcard, deviceNames(s), 0)
	})
}

func (db *Database) GetDeviceFamilyList(wildcard string) ([]string, error) {
	return db.list("DbGetDeviceFamilyList", func(s *datasource.Source) []string {
		return segments(wildcard, deviceNames(s), 1)
	})
}

func (db *Database) GetDeviceMemberList(wildcard string) ([]string, error) {
	return db.list("DbGetDeviceMemberList", func(s *datasource.Source) []string {
		return segments(wildcard, deviceNames(s), -1)
	})
}

func serverDevices(srv *graph.Node) []*graph.Node {
	l := srv.List(api.KeyDevice)
	if l == nil {
		return nil
	}
	return slices.Collect(l.Nodes())
}

// GetDeviceList returns the devices of server whose class matches
// classWildcard. A server of "*" means every server.
func (db *Database) GetDeviceList(server, classWildcard string) ([]string, error) {
	return db.list("DbGetDeviceList", func(s *datasource.Source) []string {
		var servers []*graph.Node
		if server == "*" {
			servers = s.Servers().Nodes()
		} else if srv, ok := s.Servers().Get(server); ok {
			servers = []*graph.Node{srv}
		}
		var out []string
		for _, srv := range servers {
			for _, dev := range serverDevices(srv) {
				if graph.MatchString(classWildcard, dev.StringOr(api.KeyClass, "")) {
					out = append(out, dev.StringOr(api.KeyTangoName, ""))
				}
			}
		}
		return out
	})
}

// GetDeviceClassList returns (device, class) pairs of server.
func (db *Database) GetDeviceClassList(server string) ([]string, error) {
	return db.list("DbGetDeviceClassList", func(s *datasource.Source) []string {
		srv, ok := s.Servers().Get(server)
		if !ok {
			return nil
		}
		var out []string
		for _, dev := range serverDevices(srv) {
			out = append(out, dev.StringOr(api.KeyTangoName, ""), dev.StringOr(api.KeyClass, ""))
		}
		return out
	})
}

// GetDeviceServerClassList returns the distinct device classes of server in
// device order.
func (db *Database) GetDeviceServerClassList(server string) ([]string, error) {
	return db.list("DbGetDeviceServerClassList", func(s *datasource.Source) []string {
		srv, ok := s.Servers().Get(server)
		if !ok {
			return nil
		}
		var out []string
		for _, dev := range serverDevices(srv) {
			if c := dev.StringOr(api.KeyClass, ""); c != "" && !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
		return out
	})
}

func (db *Database) GetServerList(wildcard string) ([]string, error) {
	return db.list("DbGetServerList", func(s *datasource.Source) []string {
		return graph.Match(wildcard, s.Servers().Keys())
	})
}

// GetServerNameList returns the distinct executable names matching
// wildcard.
func (db *Database) GetServerNameList(wildcard string) ([]string, error) {
	return db.list("DbGetServerNameList", func(s *datasource.Source) []string {
		var exes []string
		for _, key := range s.Servers().Keys() {
			exe, _, _ := strings.Cut(key, "/")
			exes = append(exes, exe)
		}
		return sortedUnique(graph.Match(wildcard, exes))
	})
}

// GetInstanceNameList returns the instance names of executable server.
func (db *Database) GetInstanceNameList(server string) ([]string, error) {
	return db.list("DbGetInstanceNameList", func(s *datasource.Source) []string {
		var out []string
		for _, key := range graph.Match(server+"/*", s.Servers().Keys()) {
			_, instance, _ := strings.Cut(key, "/")
			out = append(out, instance)
		}
		return out
	})
}

// deviceClasses returns the sorted classes of the given servers' devices,
// always including the implicit server class.
func deviceClasses(servers []*graph.Node) []string {
	out := []string{datasource.ServerClass}
	for _, srv := range servers {
		for _, dev := range serverDevices(srv) {
			if c, ok := dev.String(api.KeyClass); ok && c != "" {
				out = append(out, c)
			}
		}
	}
	return sortedUnique(out)
}

func (db *Database) GetServerClassList(wildcard string) ([]string, error) {
	return db.list("DbGetServerClassList", func(s *datasource.Source) []string {
		var servers []*graph.Node
		for _, key := range graph.Match(wildcard, s.Servers().Keys()) {
			if srv, ok := s.Servers().Get(key); ok {
				servers = append(servers, srv)
			}
		}
		return deviceClasses(servers)
	})
}

func (db *Database) GetClassList(wildcard string) ([]string, error) {
	return db.list("DbGetClassList", func(s *datasource.Source) []string {
		return graph.Match(wildcard, deviceClasses(s.Servers().Nodes()))
	})
}

func (db *Database) GetDeviceExportedList(wildcard string) ([]string, error) {
	return db.list("DbGetDeviceExportedList", func(s *datasource.Source) []string {
		return s.ExportedNames(wildcard)
	})
}

// GetExportedDeviceListForClass returns exported devices whose class
// matches classWildcard.
func (db *Database) GetExportedDeviceListForClass(classWildcard string) ([]string, error) {
	return db.list("DbGetExportedDeviceListForClass", func(s *datasource.Source) []string {
		var out []string
		for _, name := range s.ExportedNames("*") {
			dev, ok := s.Device(name)
			if ok && graph.MatchString(classWildcard, dev.StringOr(api.KeyClass, "")) {
				out = append(out, name)
			}
		}
		return out
	})
}

func (db *Database) GetHostList(wildcard string) ([]string, error) {
	return db.list("DbGetHostList", func(s *datasource.Source) []string {
		var hosts []string
		for _, name := range s.ExportedNames("*") {
			if info, ok := s.ExportInfo(name); ok {
				hosts = append(hosts, info.Host)
			}
		}
		return graph.Match(wildcard, sortedUnique(hosts))
	})
}

// GetHostServerList returns the servers with an exported device on a host
// matching wildcard.
func (db *Database) GetHostServerList(wildcard string) ([]string, error) {
	return db.list("DbGetHostServerList", func(s *datasource.Source) []string {
		var out []string
		for _, name := range s.ExportedNames("*") {
			info, _ := s.ExportInfo(name)
			if !graph.MatchString(wildcard, info.Host) {
				continue
			}
			dev, ok := s.Device(name)
			if !ok || isServerNode(dev) {
				continue
			}
			srv := dev.Parent()
			if srv == nil {
				continue
			}
			exe, _ := srv.String(api.KeyServer)
			instance, _ := srv.String(api.KeyPersonalName)
			if exe == "" || instance == "" {
				continue
			}
			if key := exe + "/" + instance; !slices.Contains(out, key) {
				out = append(out, key)
			}
		}
		return out
	})
}

func (db *Database) GetHostServersInfo(host string) ([]string, error) {
	db.unsupported("DbGetHostServersInfo", "host", host)
	return nil, nil
}

// GetCSDbServerList returns the IORs of the exported database devices.
func (db *Database) GetCSDbServerList() ([]string, error) {
	return db.list("DbGetCSDbServerList", func(s *datasource.Source) []string {
		var out []string
		for _, name := range s.ExportedNames("sys/database*") {
			info, _ := s.ExportInfo(name)
			out = append(out, info.IOR)
		}
		return out
	})
}
