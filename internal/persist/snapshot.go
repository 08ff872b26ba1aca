// Package persist writes the live configuration to SQLite snapshot files
// that the loader can read back.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/graph"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Meta describes one written snapshot.
type Meta struct {
	Generation string
	Identity   string
	WrittenAt  time.Time
	Records    int
}

// Records returns deep copies of the documents describing src: every live
// server followed by every live class. The synthetic database server and
// servers cleared by a delete are left out. Call with the source locked.
func Records(src *datasource.Source) []any {
	var out []any
	seen := map[graph.Handle]bool{}
	collect := func(nodes []*graph.Node) {
		for _, n := range nodes {
			if seen[n.Handle()] || src.Synthetic(n) || n.Len() == 0 {
				continue
			}
			seen[n.Handle()] = true
			out = append(out, graph.Plain(n))
		}
	}
	collect(src.Servers().Nodes())
	collect(src.Classes().Nodes())
	return out
}

// Write stores records in a new SQLite file at path. The file is built next
// to path and renamed over it, so readers never see a partial snapshot.
func Write(ctx context.Context, path, identity string, records []any) (Meta, error) {
	meta := Meta{
		Generation: uuid.NewString(),
		Identity:   identity,
		WrittenAt:  time.Now().UTC(),
		Records:    len(records),
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.db")
	if err != nil {
		return Meta{}, fmt.Errorf("create snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }() // no-op after rename

	if err := writeDB(ctx, tmpPath, meta, records); err != nil {
		return Meta{}, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Meta{}, fmt.Errorf("publish snapshot: %w", err)
	}
	return meta, nil
}

func writeDB(ctx context.Context, path string, meta Meta, records []any) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	schema := `
	CREATE TABLE results (
		id TEXT PRIMARY KEY,
		record TEXT NOT NULL
	);
	CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO results (id, record) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, recordID(i), string(raw)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	for k, v := range map[string]string{
		"generation": meta.Generation,
		"identity":   meta.Identity,
		"written_at": meta.WrittenAt.Format(time.RFC3339Nano),
	} {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// recordID keeps ids in document order when sorted as text.
func recordID(i int) string {
	return fmt.Sprintf("%08d", i)
}

// ReadMeta returns the metadata of the snapshot at path.
func ReadMeta(path string) (Meta, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Meta{}, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query("SELECT key, value FROM meta")
	if err != nil {
		return Meta{}, fmt.Errorf("query meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var meta Meta
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, fmt.Errorf("scan meta: %w", err)
		}
		switch k {
		case "generation":
			meta.Generation = v
		case "identity":
			meta.Identity = v
		case "written_at":
			meta.WrittenAt, _ = time.Parse(time.RFC3339Nano, v)
		}
	}
	if err := rows.Err(); err != nil {
		return Meta{}, err
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM results").Scan(&meta.Records); err != nil {
		return Meta{}, fmt.Errorf("count results: %w", err)
	}
	return meta, nil
}
