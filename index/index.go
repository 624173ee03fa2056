// Package index builds a rebuildable, queryable secondary index over a
// gitfs tree, backed by an embedded DuckDB table rather than a hand
// rolled B-tree. It is a read-side convenience: it is never consulted
// for write-path correctness, and Build can always reconstruct it from
// the git history.
package index

import (
	"database/sql"
	"fmt"
	"path"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/wiretree/gitfs"
)

// lister is the subset of gitfs.Session / gitfs.Snapshot that Build
// needs to walk a tree.
type lister interface {
	Listdir(string) ([]string, error)
	IsDir(string) bool
}

// Index is a rebuildable path index over one tree.
type Index struct {
	db *sql.DB
}

// Build walks session's current tree recursively and populates an
// in-memory DuckDB table of (path, dir, name, kind, transaction_id).
// The live session has no fixed transaction id until it commits, so
// transaction_id is left empty.
func Build(session *gitfs.Session) (*Index, error) {
	return build(session, "")
}

// BuildSnapshot is Build's counterpart for a historical Snapshot,
// grounding FindAtTransaction-style queries. transactionID is recorded
// alongside each row for callers that want it back out of a query.
func BuildSnapshot(snapshot *gitfs.Snapshot, transactionID string) (*Index, error) {
	return build(snapshot, transactionID)
}

// FindAtTransaction rebuilds an index against the tree as of
// transactionID and returns every path matching pattern, generalizing
// the original's "read a record as it existed at a given transaction"
// capability from single records to arbitrary path queries.
func FindAtTransaction(session *gitfs.Session, pattern, transactionID string) ([]string, error) {
	snap, err := session.At(transactionID)
	if err != nil {
		return nil, err
	}
	idx, err := BuildSnapshot(snap, transactionID)
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	return idx.Find(pattern)
}

func build(l lister, transactionID string) (*Index, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("index: failed to open duckdb: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE tree_index(path TEXT, dir TEXT, name TEXT, kind TEXT, transaction_id TEXT)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: failed to create table: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.walk(l, ".", transactionID); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) walk(l lister, dir, transactionID string) error {
	names, err := l.Listdir(dir)
	if err != nil {
		return err
	}

	for _, name := range names {
		full := path.Join(dir, name)
		if full == "." {
			full = name
		}

		kind := "file"
		if l.IsDir(full) {
			kind = "dir"
		}

		if _, err := idx.db.Exec(
			`INSERT INTO tree_index(path, dir, name, kind, transaction_id) VALUES (?, ?, ?, ?, ?)`,
			full, dir, name, kind, transactionID,
		); err != nil {
			return fmt.Errorf("index: failed to insert %s: %w", full, err)
		}

		if kind == "dir" {
			if err := idx.walk(l, full, transactionID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find returns every indexed path whose path matches a SQL LIKE
// pattern (e.g. "data/%" for a prefix search).
func (idx *Index) Find(pattern string) ([]string, error) {
	rows, err := idx.db.Query(`SELECT path FROM tree_index WHERE path LIKE ? ORDER BY path`, pattern)
	if err != nil {
		return nil, fmt.Errorf("index: query failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close releases the underlying DuckDB connection.
func (idx *Index) Close() error { return idx.db.Close() }
