package dbapi

import (
	"strconv"

	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

// attributeReply encodes [name, len(attrs), (attr, count, entries...)...]
// where lookup returns the property node of one attribute, or nil.
func attributeReply(name string, attrs []string, counted bool, lookup func(attr string) *graph.Node) []string {
	out := []string{name, strconv.Itoa(len(attrs))}
	for _, attr := range attrs {
		props := lookup(attr)
		if props == nil {
			out = append(out, attr, "0")
			continue
		}
		out = append(out, attr, strconv.Itoa(leafCount(props)))
		out = encodeContainer(out, props, counted)
	}
	return out
}

func storeAttributeBag(groups []AttributeProperties, container func(attr string) *graph.Node) {
	for _, g := range groups {
		props := container(g.Attribute)
		for _, p := range g.Properties {
			props.Set(p.Name, p.Value())
		}
	}
}

// Class attributes.

func (db *Database) getClassAttributeProperty(op, class string, attrs []string, counted bool) ([]string, error) {
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		out = attributeReply(class, attrs, counted, func(attr string) *graph.Node {
			return s.ClassAttribute(class, attr, false)
		})
		return nil
	})
	return out, err
}

// GetClassAttributeProperty returns (name, value) pairs per attribute.
func (db *Database) GetClassAttributeProperty(class string, attrs []string) ([]string, error) {
	return db.getClassAttributeProperty("DbGetClassAttributeProperty", class, attrs, false)
}

// GetClassAttributeProperty2 returns (name, count, values...) entries per
// attribute.
func (db *Database) GetClassAttributeProperty2(class string, attrs []string) ([]string, error) {
	return db.getClassAttributeProperty("DbGetClassAttributeProperty2", class, attrs, true)
}

func (db *Database) putClassAttributeProperty(op, class string, n int, args []string, counted bool) error {
	groups, err := DecodeAttributeBag(op, n, args, counted)
	if err != nil {
		return err
	}
	return db.write(op, func(s *datasource.Source) error {
		storeAttributeBag(groups, func(attr string) *graph.Node {
			return s.ClassAttribute(class, attr, true)
		})
		return nil
	})
}

// PutClassAttributeProperty merges (name, value) pairs into n attributes.
func (db *Database) PutClassAttributeProperty(class string, n int, args []string) error {
	return db.putClassAttributeProperty("DbPutClassAttributeProperty", class, n, args, false)
}

// PutClassAttributeProperty2 merges (name, count, values...) entries into n
// attributes.
func (db *Database) PutClassAttributeProperty2(class string, n int, args []string) error {
	return db.putClassAttributeProperty("DbPutClassAttributeProperty2", class, n, args, true)
}

// DeleteClassAttribute drops every property of a class attribute.
func (db *Database) DeleteClassAttribute(class, attr string) error {
	const op = "DbDeleteClassAttribute"
	return db.write(op, func(s *datasource.Source) error {
		props := s.ClassAttribute(class, attr, false)
		if props == nil || props.Len() == 0 {
			return notFound(op, class+"/"+attr)
		}
		props.Clear()
		return nil
	})
}

func (db *Database) DeleteClassAttributeProperty(class, attr string, names ...string) error {
	const op = "DbDeleteClassAttributeProperty"
	return db.write(op, func(s *datasource.Source) error {
		props := s.ClassAttribute(class, attr, false)
		for _, name := range names {
			if props == nil || props.Delete(name) != nil {
				return notFound(op, class+"/"+attr+"/"+name)
			}
		}
		return nil
	})
}

// GetClassAttributeList returns the attributes of class that carry
// properties, filtered by wildcard.
func (db *Database) GetClassAttributeList(class, wildcard string) ([]string, error) {
	const op = "DbGetClassAttributeList"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		out = graph.Match(wildcard, s.ClassAttributeNames(class))
		return nil
	})
	return out, err
}

func (db *Database) GetClassAttributePropertyHist(class, attr, name string) ([]string, error) {
	db.unsupported("DbGetClassAttributePropertyHist", "class", class, "attribute", attr, "property", name)
	return nil, nil
}

// Device attributes.

func (db *Database) getDeviceAttributeProperty(op, device string, attrs []string, counted bool) ([]string, error) {
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		table := s.AttributeProperties(device, false)
		out = attributeReply(device, attrs, counted, func(attr string) *graph.Node {
			if table == nil {
				return nil
			}
			return table.Child(attr)
		})
		return nil
	})
	return out, err
}

func (db *Database) GetDeviceAttributeProperty(device string, attrs []string) ([]string, error) {
	return db.getDeviceAttributeProperty("DbGetDeviceAttributeProperty", device, attrs, false)
}

func (db *Database) GetDeviceAttributeProperty2(device string, attrs []string) ([]string, error) {
	return db.getDeviceAttributeProperty("DbGetDeviceAttributeProperty2", device, attrs, true)
}

func (db *Database) putDeviceAttributeProperty(op, device string, n int, args []string, counted bool) error {
	groups, err := DecodeAttributeBag(op, n, args, counted)
	if err != nil {
		return err
	}
	return db.write(op, func(s *datasource.Source) error {
		if !s.Entities().Contains(device) {
			return notFound(op, device)
		}
		table := s.AttributeProperties(device, true)
		storeAttributeBag(groups, func(attr string) *graph.Node {
			if props := table.Child(attr); props != nil {
				return props
			}
			props := s.Arena().NewNode(table, nil)
			table.Set(attr, props)
			return props
		})
		return nil
	})
}

// PutDeviceAttributeProperty merges (name, value) pairs into n attributes
// of device.
func (db *Database) PutDeviceAttributeProperty(device string, n int, args []string) error {
	return db.putDeviceAttributeProperty("DbPutDeviceAttributeProperty", device, n, args, false)
}

// PutDeviceAttributeProperty2 merges (name, count, values...) entries into
// n attributes of device.
func (db *Database) PutDeviceAttributeProperty2(device string, n int, args []string) error {
	return db.putDeviceAttributeProperty("DbPutDeviceAttributeProperty2", device, n, args, true)
}

func (db *Database) deleteDeviceAttributes(op, device string, attrs []string) error {
	return db.write(op, func(s *datasource.Source) error {
		table := s.AttributeProperties(device, false)
		for _, attr := range attrs {
			var props *graph.Node
			if table != nil {
				props = table.Child(attr)
			}
			if props == nil {
				return notFound(op, device+"/"+attr)
			}
			_ = table.Delete(attr)
		}
		return nil
	})
}

// DeleteDeviceAttribute drops every property of one device attribute.
func (db *Database) DeleteDeviceAttribute(device, attr string) error {
	return db.deleteDeviceAttributes("DbDeleteDeviceAttribute", device, []string{attr})
}

// DeleteAllDeviceAttributeProperty drops every property of each listed
// attribute.
func (db *Database) DeleteAllDeviceAttributeProperty(device string, attrs ...string) error {
	return db.deleteDeviceAttributes("DbDeleteAllDeviceAttributeProperty", device, attrs)
}

func (db *Database) DeleteDeviceAttributeProperty(device, attr string, names ...string) error {
	const op = "DbDeleteDeviceAttributeProperty"
	return db.write(op, func(s *datasource.Source) error {
		var props *graph.Node
		if table := s.AttributeProperties(device, false); table != nil {
			props = table.Child(attr)
		}
		for _, name := range names {
			if props == nil || props.Delete(name) != nil {
				return notFound(op, device+"/"+attr+"/"+name)
			}
		}
		return nil
	})
}

// GetDeviceAttributeList returns the attributes of device carrying
// properties, filtered by wildcard.
func (db *Database) GetDeviceAttributeList(device, wildcard string) ([]string, error) {
	const op = "DbGetDeviceAttributeList"
	var out []string
	err := db.read(op, func(s *datasource.Source) error {
		if table := s.AttributeProperties(device, false); table != nil {
			out = graph.Match(wildcard, table.Keys())
		}
		return nil
	})
	return out, err
}

func (db *Database) GetDeviceAttributePropertyHist(device, attr, name string) ([]string, error) {
	db.unsupported("DbGetDeviceAttributePropertyHist", "device", device, "attribute", attr, "property", name)
	return nil, nil
}
