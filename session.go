// Package gitfs exposes a transactional, hierarchical file store backed
// by a git repository. Writes are staged in memory and become a single
// git commit on Commit; reads during a transaction see the staged view,
// reads afterward see whatever the branch tip's tree holds.
//
// # Quick Start
//
// Open or create a repository on disk and write a file:
//
//	session, err := gitfs.Open("/path/to/repo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f, _ := session.Open("greeting.txt", "w")
//	f.Write([]byte("Hello\n"))
//	f.Close()
//	tx, _ := session.CurrentTransaction()
//	tx.SetNote("Add greeting")
//	if _, err := session.Commit(""); err != nil {
//	    log.Fatal(err)
//	}
//
// An in-memory repository (OpenMemory) is useful for tests and scratch
// work; it never touches disk.
package gitfs

import (
	"os"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/wiretree/gitfs/core"
	"github.com/wiretree/gitfs/handle"
	"github.com/wiretree/gitfs/objstore"
	"github.com/wiretree/gitfs/overlay"
	"github.com/wiretree/gitfs/txn"
)

// Session is the root façade: one open repository, one chosen branch,
// and the overlay staging the current transaction's mutations.
type Session struct {
	gw       objstore.Gateway
	ov       *overlay.Overlay
	branch   plumbing.ReferenceName
	identity core.Identity

	mgr   *txn.Manager
	meta  *txn.Transaction
	coord *txn.Coordinator
}

// Open opens (or, with WithCreate, initializes) a repository rooted at
// dir.
func Open(dir string, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	wt := osfs.New(dir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, core.WrapObjectStoreError(err)
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		if !cfg.create {
			return nil, core.ErrNoDatabase
		}
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, core.WrapObjectStoreError(err)
	}

	return newSession(repo, cfg, false)
}

// OpenMemory opens an in-memory repository, never touching disk. With
// WithBare(true), no working tree is maintained at all.
func OpenMemory(opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	storer := memory.NewStorage()

	var repo *git.Repository
	var err error
	if cfg.bare {
		repo, err = git.Init(storer)
	} else {
		repo, err = git.Init(storer, git.WithWorkTree(memfs.New()))
	}
	if err != nil {
		return nil, core.WrapObjectStoreError(err)
	}

	return newSession(repo, cfg, cfg.bare)
}

func newSession(repo *git.Repository, cfg config, bare bool) (*Session, error) {
	gw := objstore.New(repo, bare)

	symTarget, ok, err := gw.SymbolicHeadTarget()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrDetachedHead
	}

	branchRef := plumbing.NewBranchReferenceName(cfg.branch)

	tip, exists, err := gw.HeadTip(branchRef)
	if err != nil {
		return nil, err
	}

	if !exists && branchRef != symTarget {
		_, headExists, err := gw.HeadTip(symTarget)
		if err != nil {
			return nil, err
		}
		if headExists {
			return nil, core.ErrNoSuchBranch(cfg.branch)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
			return nil, core.WrapObjectStoreError(err)
		}
	}

	var baseTree plumbing.Hash
	if exists {
		baseTree, err = gw.CommitTree(tip)
		if err != nil {
			return nil, err
		}
	}

	return &Session{
		gw:       gw,
		ov:       overlay.New(gw, baseTree),
		branch:   branchRef,
		identity: cfg.identity,
		mgr:      txn.NewManager(),
	}, nil
}

// ensureTxn lazily starts the current transaction's metadata and
// registers the session's coordinator with the transaction manager, the
// way the first mutating call implicitly begins a transaction.
func (s *Session) ensureTxn() error {
	if s.meta != nil {
		return nil
	}
	s.meta = &txn.Transaction{}
	s.coord = txn.NewCoordinator(s.gw, s.ov, s.branch, s.meta, s.identity)
	return s.mgr.Register(s.coord)
}

// CurrentTransaction returns the metadata for the in-flight transaction,
// starting one implicitly if none is open yet.
func (s *Session) CurrentTransaction() (*txn.Transaction, error) {
	if err := s.ensureTxn(); err != nil {
		return nil, err
	}
	return s.meta, nil
}

// Open opens path for reading ("r", the default for mode == "") or
// writing ("w"). Any other mode fails with core.ErrBadMode.
func (s *Session) Open(path string, mode string) (*handle.Handle, error) {
	switch mode {
	case "", "r":
		hash, err := s.ov.OpenRead(path)
		if err != nil {
			return nil, err
		}
		rc, err := s.gw.OpenBlob(hash)
		if err != nil {
			s.ov.CloseRead()
			return nil, err
		}
		return handle.NewReadHandle(handle.NewReader(rc, s.ov)), nil
	case "w":
		if err := s.ensureTxn(); err != nil {
			return nil, err
		}
		wt, err := s.ov.BeginWrite(path)
		if err != nil {
			return nil, err
		}
		return handle.NewWriteHandle(handle.NewWriter(s.gw, wt)), nil
	default:
		return nil, core.ErrBadMode(mode)
	}
}

// Mkdir creates an empty directory at path.
func (s *Session) Mkdir(path string) error {
	if err := s.ensureTxn(); err != nil {
		return err
	}
	return s.ov.Mkdir(path)
}

// Remove deletes the file at path.
func (s *Session) Remove(path string) error {
	if err := s.ensureTxn(); err != nil {
		return err
	}
	return s.ov.Remove(path)
}

// RemoveDir deletes the directory at path.
func (s *Session) RemoveDir(path string) error {
	if err := s.ensureTxn(); err != nil {
		return err
	}
	return s.ov.RemoveDir(path)
}

// Listdir returns the names of path's direct children.
func (s *Session) Listdir(path string) ([]string, error) { return s.ov.Listdir(path) }

// Exists reports whether path names anything.
func (s *Session) Exists(path string) bool { return s.ov.Exists(path) }

// IsDir reports whether path names a directory.
func (s *Session) IsDir(path string) bool { return s.ov.IsDir(path) }

// IsFile reports whether path names a file.
func (s *Session) IsFile(path string) bool { return s.ov.IsFile(path) }

// Commit sets the transaction note (when non-empty) and commits the
// current transaction, returning its metadata. Fails with
// core.ErrOpenFileHandle if any handle opened against this session is
// still open. Committing with no staged mutations is a no-op that
// returns a zero-value txn.Transaction and does not advance the branch.
func (s *Session) Commit(note string) (txn.Transaction, error) {
	if s.coord == nil && s.ov.OpenHandleCount() != 0 {
		return txn.Transaction{}, core.ErrOpenFileHandle("Cannot commit transaction with open files.")
	}
	if s.meta != nil && note != "" {
		s.meta.Note = note
	}

	if err := s.mgr.Commit(); err != nil {
		// The manager has already dropped its participants, so the next
		// mutating call must register a fresh coordinator.
		s.meta, s.coord = nil, nil
		return txn.Transaction{}, err
	}

	var result txn.Transaction
	if s.coord != nil {
		result = s.coord.Result
	}
	s.meta, s.coord = nil, nil
	return result, nil
}

// Abort discards the current transaction's staged mutations.
func (s *Session) Abort() {
	s.mgr.Abort()
	s.meta, s.coord = nil, nil
}
