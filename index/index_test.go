package index

import (
	"sort"
	"testing"

	"github.com/wiretree/gitfs"
)

func seedSession(t *testing.T) *gitfs.Session {
	t.Helper()
	s, err := gitfs.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}

	if err := s.Mkdir("data"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	for _, name := range []string{"data/a.txt", "data/b.txt", "readme.md"} {
		f, err := s.Open(name, "w")
		if err != nil {
			t.Fatalf("Open %s: %v", name, err)
		}
		f.Write([]byte("content of " + name))
		if err := f.Close(); err != nil {
			t.Fatalf("Close %s: %v", name, err)
		}
	}

	if _, err := s.Commit("seed"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return s
}

func TestBuildIndexesEveryPath(t *testing.T) {
	s := seedSession(t)

	idx, err := Build(s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer idx.Close()

	got, err := idx.Find("%")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	sort.Strings(got)

	want := []string{"data", "data/a.txt", "data/b.txt", "readme.md"}
	if len(got) != len(want) {
		t.Fatalf("Find(%%) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Find(%%) = %v, want %v", got, want)
		}
	}
}

func TestFindWithPrefixPattern(t *testing.T) {
	s := seedSession(t)

	idx, err := Build(s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer idx.Close()

	got, err := idx.Find("data/%")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	sort.Strings(got)

	want := []string{"data/a.txt", "data/b.txt"}
	if len(got) != len(want) {
		t.Fatalf("Find(data/%%) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Find(data/%%) = %v, want %v", got, want)
		}
	}
}

func TestBuildSnapshotIndexesHistoricalTree(t *testing.T) {
	s := seedSession(t)

	f, err := s.Open("data/c.txt", "w")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Write([]byte("new"))
	f.Close()
	result, err := s.Commit("add c")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	snap, err := s.At(result.ID)
	if err != nil {
		t.Fatalf("At: %v", err)
	}

	idx, err := BuildSnapshot(snap, result.ID)
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	defer idx.Close()

	got, err := idx.Find("data/c.txt")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Find(data/c.txt) = %v, want one match", got)
	}
}

func TestFindAtTransactionSeesPathsSinceDeleted(t *testing.T) {
	s := seedSession(t)

	f, err := s.Open("data/extra.txt", "w")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Write([]byte("x"))
	f.Close()
	beforeDelete, err := s.Commit("add extra")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := s.Remove("data/extra.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Commit("remove extra"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if s.Exists("data/extra.txt") {
		t.Fatal("expected data/extra.txt to be gone from the live tree")
	}

	got, err := FindAtTransaction(s, "data/extra.txt", beforeDelete.ID)
	if err != nil {
		t.Fatalf("FindAtTransaction: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FindAtTransaction(data/extra.txt) = %v, want one match from before deletion", got)
	}
}
