//go:build comparative

package tests

import (
	"database/sql"
	"strconv"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/wiretree/gitfs"
	"github.com/wiretree/gitfs/index"
)

// setupGitfsIndex seeds a session with 1000 files spread across ten
// directories and builds a path index over it.
func setupGitfsIndex(b *testing.B) *index.Index {
	s, err := gitfs.OpenMemory()
	if err != nil {
		b.Fatalf("OpenMemory: %v", err)
	}

	for d := 0; d < 10; d++ {
		dir := "city" + strconv.Itoa(d)
		if err := s.Mkdir(dir); err != nil {
			b.Fatalf("Mkdir: %v", err)
		}
		for i := 0; i < 100; i++ {
			name := dir + "/user" + strconv.Itoa(i) + ".txt"
			f, err := s.Open(name, "w")
			if err != nil {
				b.Fatalf("Open: %v", err)
			}
			if _, err := f.Write([]byte("user" + strconv.Itoa(i))); err != nil {
				b.Fatalf("Write: %v", err)
			}
			if err := f.Close(); err != nil {
				b.Fatalf("Close: %v", err)
			}
		}
	}

	if _, err := s.Commit("seed"); err != nil {
		b.Fatalf("Commit: %v", err)
	}

	idx, err := index.Build(s)
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	return idx
}

// setupDuckDB creates a bare DuckDB table with the same path shape,
// the baseline the gitfs index is measured against.
func setupDuckDB(b *testing.B) *sql.DB {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		b.Fatalf("Failed to open DuckDB: %v", err)
	}

	if _, err := db.Exec("CREATE TABLE paths(path VARCHAR, dir VARCHAR)"); err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	for d := 0; d < 10; d++ {
		dir := "city" + strconv.Itoa(d)
		for i := 0; i < 100; i++ {
			path := dir + "/user" + strconv.Itoa(i) + ".txt"
			if _, err := db.Exec("INSERT INTO paths VALUES (?, ?)", path, dir); err != nil {
				b.Fatalf("Failed to insert: %v", err)
			}
		}
	}

	return db
}

func BenchmarkGitfsIndex_PrefixLookup(b *testing.B) {
	idx := setupGitfsIndex(b)
	defer idx.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := idx.Find("city5/%"); err != nil {
			b.Fatalf("Find error: %v", err)
		}
	}
}

func BenchmarkDuckDB_PrefixLookup(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT path FROM paths WHERE path LIKE ?", "city5/%")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var p string
			rows.Scan(&p)
		}
		rows.Close()
	}
}

func BenchmarkGitfsIndex_FullScan(b *testing.B) {
	idx := setupGitfsIndex(b)
	defer idx.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := idx.Find("%"); err != nil {
			b.Fatalf("Find error: %v", err)
		}
	}
}

func BenchmarkDuckDB_FullScan(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT path FROM paths")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var p string
			rows.Scan(&p)
		}
		rows.Close()
	}
}
