package dbapi

import (
	"fmt"

	"github.com/agentic-research/tangodb/internal/datasource"
)

// Info describes the database for DbInfo.
func (db *Database) Info() ([]string, error) {
	return db.list("DbInfo", func(s *datasource.Source) []string {
		return []string{
			"TANGO Database " + datasource.DatabaseDevice(s.Identity()),
			"Running on yaml documents",
			fmt.Sprintf("Servers defined in database = %d", s.Servers().Len()),
			fmt.Sprintf("Devices defined in database = %d", len(deviceNames(s))),
			fmt.Sprintf("Classes defined in database = %d", s.Classes().Len()),
			fmt.Sprintf("Devices exported = %d", len(s.ExportedNames("*"))),
		}
	})
}

func (db *Database) StoredProcedureRelease() (string, error) {
	return "release 0.0", nil
}

// MySQLSelect is not available on a document store; it answers an empty
// result.
func (db *Database) MySQLSelect(query string) ([]int, []string, error) {
	db.logger.Error("DbMySqlSelect is not available", "query", query)
	return []int{0, 0}, nil, nil
}
