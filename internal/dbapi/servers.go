package dbapi

import (
	"github.com/agentic-research/tangodb/api"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
)

// DeleteServer clears the server node in place. Its index entries and the
// entity entries of its devices stay, so those devices still resolve.
func (db *Database) DeleteServer(server string) error {
	const op = "DbDeleteServer"
	return db.write(op, func(s *datasource.Source) error {
		srv, ok := s.Servers().Get(server)
		if !ok {
			return notFound(op, server)
		}
		s.ClearServer(srv)
		db.save(op, srv)
		return nil
	})
}

// RenameServer moves a server instance to a new <executable>/<instance>.
func (db *Database) RenameServer(oldName, newName string) error {
	const op = "DbRenameServer"
	exe, instance, err := splitServer(op, newName)
	if err != nil {
		return err
	}
	return db.write(op, func(s *datasource.Source) error {
		if s.Servers().Contains(newName) {
			return api.AlreadyExists(op, graph.Normalize(newName))
		}
		srv, ok := s.Servers().Get(oldName)
		if !ok {
			return notFound(op, oldName)
		}
		s.RenameServer(srv, exe, instance)
		db.save(op, srv)
		return nil
	})
}

// UnexportServer drops the export record of every device of server.
func (db *Database) UnexportServer(server string) error {
	const op = "DbUnExportServer"
	return db.write(op, func(s *datasource.Source) error {
		srv, ok := s.Servers().Get(server)
		if !ok {
			return nil
		}
		if l := srv.List(api.KeyDevice); l != nil {
			for dev := range l.Nodes() {
				if name, ok := dev.String(api.KeyTangoName); ok {
					s.ClearExportInfo(name)
				}
			}
		}
		s.ClearExportInfo(datasource.DServerPrefix + server)
		return nil
	})
}

func (db *Database) GetServerInfo(server string) ([]string, error) {
	db.unsupported("DbGetServerInfo", "server", server)
	return []string{"", "", ""}, nil
}

func (db *Database) PutServerInfo(args []string) error {
	db.unsupported("DbPutServerInfo", "args", args)
	return nil
}

func (db *Database) DeleteServerInfo(server string) error {
	db.unsupported("DbDeleteServerInfo", "server", server)
	return nil
}
