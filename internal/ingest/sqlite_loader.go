package ingest

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// StreamSQLite iterates over the records of a snapshot database in id
// order, calling fn with each decoded document.
func StreamSQLite(dbPath string, fn func(recordID string, record any) error) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // read-only
	if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
		return fmt.Errorf("set query_only: %w", err)
	}

	rows, err := db.Query("SELECT id, record FROM results ORDER BY id")
	if err != nil {
		return fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		parsed, err := DecodeRecord(raw)
		if err != nil {
			return fmt.Errorf("parse record %s: %w", id, err)
		}
		if err := fn(id, parsed); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadSQLite returns every non-empty record of a snapshot database.
func LoadSQLite(dbPath string) ([]any, error) {
	var records []any
	err := StreamSQLite(dbPath, func(_ string, record any) error {
		if record != nil {
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
