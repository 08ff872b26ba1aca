package dbapi

import (
	"strings"

	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

// PutAttributeAlias binds alias to attribute. Binding an alias that points
// at another attribute fails; re-binding the same pair is a no-op.
func (db *Database) PutAttributeAlias(attribute, alias string) error {
	const op = "DbPutAttributeAlias"
	return db.write(op, func(s *datasource.Source) error {
		if bound, ok := s.AttributeAlias(alias); ok {
			if strings.EqualFold(bound.Attribute, attribute) {
				return nil
			}
			return api.AlreadyExists(op, alias)
		}
		s.SetAttributeAlias(alias, attribute)
		return nil
	})
}

func (db *Database) GetAttributeAlias(alias string) (string, error) {
	const op = "DbGetAttributeAlias"
	var attr string
	err := db.read(op, func(s *datasource.Source) error {
		bound, ok := s.AttributeAlias(alias)
		if !ok {
			return &api.Error{Op: op, Entity: alias, Reason: api.ReasonSQLError, Err: api.ErrNotFound}
		}
		attr = bound.Attribute
		return nil
	})
	return attr, err
}

func (db *Database) DeleteAttributeAlias(alias string) error {
	const op = "DbDeleteAttributeAlias"
	return db.write(op, func(s *datasource.Source) error {
		if !s.DeleteAttributeAlias(alias) {
			return notFound(op, alias)
		}
		return nil
	})
}

// GetAttributeAliasList returns the attribute aliases matching wildcard.
func (db *Database) GetAttributeAliasList(wildcard string) ([]string, error) {
	return db.list("DbGetAttributeAliasList", func(s *datasource.Source) []string {
		var aliases []string
		for b := range s.AttributeAliases() {
			aliases = append(aliases, b.Alias)
		}
		return graph.Match(wildcard, aliases)
	})
}

// GetAttributeAlias2 returns the aliases bound to attribute.
func (db *Database) GetAttributeAlias2(attribute string) ([]string, error) {
	return db.list("DbGetAttributeAlias2", func(s *datasource.Source) []string {
		var out []string
		for b := range s.AttributeAliases() {
			if strings.EqualFold(b.Attribute, attribute) {
				out = append(out, b.Alias)
			}
		}
		return out
	})
}

// GetAliasAttribute returns the attribute bound to alias, or nothing.
func (db *Database) GetAliasAttribute(alias string) ([]string, error) {
	return db.list("DbGetAliasAttribute", func(s *datasource.Source) []string {
		if b, ok := s.AttributeAlias(alias); ok {
			return []string{b.Attribute}
		}
		return nil
	})
}
