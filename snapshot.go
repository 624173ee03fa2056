package gitfs

import (
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/wiretree/gitfs/core"
	"github.com/wiretree/gitfs/handle"
	"github.com/wiretree/gitfs/objstore"
	"github.com/wiretree/gitfs/overlay"
)

// Snapshot is a read-only view of the tree at a specific, already
// committed transaction, independent of whatever the session's current
// branch tip or in-flight transaction holds. It generalizes the
// "read a record as it existed at a given transaction" capability to
// arbitrary paths.
type Snapshot struct {
	gw objstore.Gateway
	ov *overlay.Overlay
}

// At resolves transactionID (a full commit hash hex string) to its tree
// and returns a Snapshot for read-only traversal of that point in
// history.
func (s *Session) At(transactionID string) (*Snapshot, error) {
	hash := plumbing.NewHash(transactionID)
	if hash.IsZero() {
		return nil, core.ErrNoSuchFileOrDirectory(transactionID)
	}

	tree, err := s.gw.CommitTree(hash)
	if err != nil {
		return nil, err
	}

	return &Snapshot{gw: s.gw, ov: overlay.New(s.gw, tree)}, nil
}

// Listdir returns the names of path's direct children as of this
// snapshot's transaction.
func (sn *Snapshot) Listdir(path string) ([]string, error) { return sn.ov.Listdir(path) }

// Exists reports whether path named anything as of this snapshot.
func (sn *Snapshot) Exists(path string) bool { return sn.ov.Exists(path) }

// IsDir reports whether path named a directory as of this snapshot.
func (sn *Snapshot) IsDir(path string) bool { return sn.ov.IsDir(path) }

// IsFile reports whether path named a file as of this snapshot.
func (sn *Snapshot) IsFile(path string) bool { return sn.ov.IsFile(path) }

// Open opens path for reading as of this snapshot's transaction.
func (sn *Snapshot) Open(path string) (*handle.Handle, error) {
	hash, err := sn.ov.OpenRead(path)
	if err != nil {
		return nil, err
	}
	rc, err := sn.gw.OpenBlob(hash)
	if err != nil {
		sn.ov.CloseRead()
		return nil, err
	}
	return handle.NewReadHandle(handle.NewReader(rc, sn.ov)), nil
}
