package dbapi

import (
	"strconv"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

// GetDeviceProperty returns [device, count, bag...] for the requested
// names. Names may carry wildcards, which expand over the stored property
// names. A name without a value is reported as (name, "0", "").
func (db *Database) GetDeviceProperty(device string, names []string) ([]string, error) {
	const op = "DbGetDeviceProperty"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		props, err := s.PropertyNode(device)
		if err != nil {
			return notFound(op, device)
		}
		keys := leafKeys(props)
		count := 0
		var bag []string
		for _, name := range names {
			matched := graph.Match(name, keys)
			if len(matched) == 0 {
				bag = append(bag, name, "0", "")
				count++
				continue
			}
			for _, key := range matched {
				v, _ := props.Get(key)
				bag = Encode(bag, key, v)
				count++
			}
		}
		out = append([]string{device, strconv.Itoa(count)}, bag...)
		return nil
	})
	return out, err
}

// PutDeviceProperty decodes n bag entries from args and stores them in the
// device's property container, following references.
func (db *Database) PutDeviceProperty(device string, n int, args []string) error {
	const op = "DbPutDeviceProperty"
	bag, err := DecodeBag(op, n, args)
	if err != nil {
		return err
	}
	return db.write(op, func(s *datasource.Source) error {
		props, err := s.EnsurePropertyNode(device)
		if err != nil {
			return notFound(op, device)
		}
		for _, p := range bag {
			props.Set(p.Name, p.Value())
		}
		db.save(op, props)
		return nil
	})
}

// DeleteDeviceProperty removes the named properties. A name that is not
// stored is an error; names before it have been removed.
func (db *Database) DeleteDeviceProperty(device string, names ...string) error {
	const op = "DbDeleteDeviceProperty"
	return db.write(op, func(s *datasource.Source) error {
		props, err := s.PropertyNode(device)
		if err != nil {
			return notFound(op, device)
		}
		if props == nil {
			if len(names) == 0 {
				return nil
			}
			return notFound(op, device+"/"+names[0])
		}
		defer db.save(op, props)
		for _, name := range names {
			if err := props.Delete(name); err != nil {
				return notFound(op, device+"/"+name)
			}
		}
		return nil
	})
}

// GetDevicePropertyList returns the property names of device matching
// wildcard. An unknown device has no properties.
func (db *Database) GetDevicePropertyList(device, wildcard string) ([]string, error) {
	const op = "DbGetDevicePropertyList"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		props, err := s.PropertyNode(device)
		if err != nil || props == nil {
			return nil
		}
		out = graph.Match(wildcard, leafKeys(props))
		return nil
	})
	return out, err
}

func (db *Database) GetDevicePropertyHist(device, name string) ([]string, error) {
	db.unsupported("DbGetDevicePropertyHist", "device", device, "property", name)
	return nil, nil
}

// GetClassProperty returns [class, count, bag...]; a missing property is
// reported as (name, "0").
func (db *Database) GetClassProperty(class string, names []string) ([]string, error) {
	const op = "DbGetClassProperty"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		out = []string{class, strconv.Itoa(len(names))}
		for _, name := range names {
			v, ok := s.ClassProperty(class, name)
			if !ok || graph.KindOf(v) == graph.KindMap {
				out = append(out, name, "0")
				continue
			}
			out = Encode(out, name, v)
		}
		return nil
	})
	return out, err
}

// PutClassProperty stores n bag entries on class, creating the class
// document on first write.
func (db *Database) PutClassProperty(class string, n int, args []string) error {
	const op = "DbPutClassProperty"
	bag, err := DecodeBag(op, n, args)
	if err != nil {
		return err
	}
	return db.write(op, func(s *datasource.Source) error {
		node := s.EnsureClassNode(class)
		props := node.Child(api.KeyProperties)
		if props == nil {
			props = s.Arena().NewNode(node, nil)
			node.Set(api.KeyProperties, props)
		}
		for _, p := range bag {
			props.Set(p.Name, p.Value())
		}
		db.save(op, node)
		return nil
	})
}

func (db *Database) DeleteClassProperty(class string, names ...string) error {
	const op = "DbDeleteClassProperty"
	return db.write(op, func(s *datasource.Source) error {
		node, ok := s.ClassNode(class)
		if !ok {
			return notFound(op, class)
		}
		props := node.Child(api.KeyProperties)
		defer db.save(op, node)
		for _, name := range names {
			if props == nil || props.Delete(name) != nil {
				return notFound(op, class+"/"+name)
			}
		}
		return nil
	})
}

// GetClassPropertyList returns the leaf property names of class.
func (db *Database) GetClassPropertyList(class string) ([]string, error) {
	const op = "DbGetClassPropertyList"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		if node, ok := s.ClassNode(class); ok {
			out = leafKeys(node.Child(api.KeyProperties))
		}
		return nil
	})
	return out, err
}

func (db *Database) GetClassPropertyHist(class, name string) ([]string, error) {
	db.unsupported("DbGetClassPropertyHist", "class", class, "property", name)
	return nil, nil
}

// Free-object properties are not stored. Reads report every property as
// missing and writes are dropped.

func (db *Database) GetProperty(object string, names []string) ([]string, error) {
	db.unsupported("DbGetProperty", "object", object)
	out := []string{object, strconv.Itoa(len(names))}
	for _, name := range names {
		out = append(out, name, "0", "")
	}
	return out, nil
}

func (db *Database) PutProperty(object string, n int, args []string) error {
	db.unsupported("DbPutProperty", "object", object, "count", n)
	return nil
}

func (db *Database) DeleteProperty(object string, names ...string) error {
	db.unsupported("DbDeleteProperty", "object", object, "properties", names)
	return nil
}

func (db *Database) GetPropertyList(object, wildcard string) ([]string, error) {
	db.unsupported("DbGetPropertyList", "object", object, "wildcard", wildcard)
	return nil, nil
}

func (db *Database) GetPropertyHist(object, name string) ([]string, error) {
	db.unsupported("DbGetPropertyHist", "object", object, "property", name)
	return nil, nil
}

func (db *Database) GetObjectList(wildcard string) ([]string, error) {
	db.unsupported("DbGetObjectList", "wildcard", wildcard)
	return nil, nil
}
