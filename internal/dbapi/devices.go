package dbapi

import (
	"strings"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

func splitServer(op, server string) (exe, instance string, err error) {
	exe, instance, ok := strings.Cut(server, "/")
	if !ok || exe == "" || instance == "" || strings.Contains(instance, "/") {
		return "", "", api.Malformed(op, "server %q is not <executable>/<instance>", server)
	}
	return exe, instance, nil
}

// isServerNode reports whether n is a server rather than a device.
func isServerNode(n *graph.Node) bool {
	return n.Contains(api.KeyServer)
}

// AddDevice creates device under server, creating the server when needed.
// Adding a device that already exists is a no-op.
func (db *Database) AddDevice(server, device, class, alias string) error {
	const op = "DbAddDevice"
	exe, instance, err := splitServer(op, server)
	if err != nil {
		return err
	}
	return db.write(op, func(s *datasource.Source) error {
		if s.Entities().Contains(device) {
			return nil
		}
		if alias != "" && graph.Normalize(alias) == graph.Normalize(device) {
			return api.Malformed(op, "alias %q is the device name", alias)
		}
		if alias != "" && s.Entities().Contains(alias) {
			return api.AlreadyExists(op, alias)
		}
		srv, ok := s.Servers().Get(datasource.ServerName(exe, instance))
		if !ok {
			srv = s.AddServer(exe, instance)
		}
		s.AddDevice(srv, device, class, alias)
		db.save(op, srv)
		return nil
	})
}

// AddServer adds every (device, class) pair of devClass under server.
func (db *Database) AddServer(server string, devClass []string) error {
	const op = "DbAddServer"
	if len(devClass)%2 != 0 {
		return api.Malformed(op, "device/class list has odd length %d", len(devClass))
	}
	for i := 0; i < len(devClass); i += 2 {
		if err := db.AddDevice(server, devClass[i], devClass[i+1], ""); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDevice removes a device from every index, from its server and from
// the arena.
func (db *Database) DeleteDevice(device string) error {
	const op = "DbDeleteDevice"
	return db.write(op, func(s *datasource.Source) error {
		dev, ok := s.Device(device)
		if !ok {
			return notFound(op, device)
		}
		if isServerNode(dev) {
			return api.Malformed(op, "%s is a server, not a device", device)
		}
		db.save(op, s.RemoveDevice(dev))
		return nil
	})
}

// RenameDevice moves a device to a new name with its properties, attribute
// properties and export record.
func (db *Database) RenameDevice(oldName, newName string) error {
	const op = "DbRenameDevice"
	return db.write(op, func(s *datasource.Source) error {
		if s.Entities().Contains(newName) {
			return api.AlreadyExists(op, graph.Normalize(newName))
		}
		dev, ok := s.Device(oldName)
		if !ok || isServerNode(dev) {
			return notFound(op, oldName)
		}
		s.RenameDevice(dev, newName)
		db.save(op, dev)
		return nil
	})
}

// PutDeviceAlias binds alias to device. Re-binding the same alias to the
// same device is a no-op.
func (db *Database) PutDeviceAlias(device, alias string) error {
	const op = "DbPutDeviceAlias"
	return db.write(op, func(s *datasource.Source) error {
		dev, ok := s.Device(device)
		if !ok {
			return notFound(op, device)
		}
		if bound, ok := s.Device(alias); ok {
			if cur, _ := dev.String(api.KeyAlias); bound == dev && graph.Normalize(cur) == graph.Normalize(alias) {
				return nil
			}
			// Also taken when alias is the device's own name.
			return api.AlreadyExists(op, alias)
		}
		if old, ok := dev.String(api.KeyAlias); ok && old != "" {
			s.Entities().Delete(old)
		}
		dev.Set(api.KeyAlias, alias)
		s.Entities().Set(alias, dev)
		db.save(op, dev)
		return nil
	})
}

func (db *Database) GetDeviceAlias(device string) (string, error) {
	const op = "DbGetDeviceAlias"
	var alias string
	err := db.read(op, func(s *datasource.Source) error {
		dev, ok := s.Device(device)
		if !ok {
			return notFound(op, device)
		}
		a, ok := dev.String(api.KeyAlias)
		if !ok || a == "" {
			return notFound(op, device)
		}
		alias = a
		return nil
	})
	return alias, err
}

func (db *Database) GetAliasDevice(alias string) (string, error) {
	const op = "DbGetAliasDevice"
	var name string
	err := db.read(op, func(s *datasource.Source) error {
		dev, ok := s.Device(alias)
		if !ok {
			return notFound(op, alias)
		}
		n, ok := dev.String(api.KeyTangoName)
		if !ok {
			return notFound(op, alias)
		}
		name = n
		return nil
	})
	return name, err
}

// DeleteDeviceAlias unbinds alias. The device itself is untouched.
func (db *Database) DeleteDeviceAlias(alias string) error {
	const op = "DbDeleteDeviceAlias"
	return db.write(op, func(s *datasource.Source) error {
		dev, ok := s.Device(alias)
		if !ok {
			return notFound(op, alias)
		}
		bound, _ := dev.String(api.KeyAlias)
		if !strings.EqualFold(bound, alias) {
			return notFound(op, alias)
		}
		s.Entities().Delete(alias)
		_ = dev.Delete(api.KeyAlias)
		db.save(op, dev)
		return nil
	})
}

// GetDeviceAliasList returns the device aliases matching wildcard.
func (db *Database) GetDeviceAliasList(wildcard string) ([]string, error) {
	const op = "DbGetDeviceAliasList"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		var aliases []string
		for key, dev := range s.Entities().All() {
			alias, ok := dev.String(api.KeyAlias)
			if ok && graph.Normalize(alias) == key {
				aliases = append(aliases, alias)
			}
		}
		out = graph.Match(wildcard, aliases)
		return nil
	})
	return out, err
}

func (db *Database) GetClassForDevice(device string) (string, error) {
	const op = "DbGetClassForDevice"
	var class string
	err := db.read(op, func(s *datasource.Source) error {
		var err error
		class, err = classForDevice(op, s, device)
		return err
	})
	return class, err
}

func classForDevice(op string, s *datasource.Source, device string) (string, error) {
	dev, ok := s.Device(device)
	if !ok {
		return "", incorrectArgs(op, device)
	}
	class, ok := dev.String(api.KeyClass)
	if !ok || class == "" {
		return "", incorrectArgs(op, device)
	}
	return class, nil
}

// GetClassInheritanceForDevice returns the device class followed by the
// values of its InheritedFrom class property.
func (db *Database) GetClassInheritanceForDevice(device string) ([]string, error) {
	const op = "DbGetClassInheritanceForDevice"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		class, err := classForDevice(op, s, device)
		if err != nil {
			return err
		}
		out = []string{class}
		if v, ok := s.ClassProperty(class, "InheritedFrom"); ok {
			out = append(out, Values(v)...)
		}
		return nil
	})
	return out, err
}
