package txn

import (
	"time"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/wiretree/gitfs/core"
	"github.com/wiretree/gitfs/objstore"
)

// Overlay is the subset of *overlay.Overlay the Coordinator needs. Kept
// as an interface purely to keep this package's dependency on overlay
// explicit and narrow.
type Overlay interface {
	OpenHandleCount() int
	ComputeRootTree() (plumbing.Hash, error)
	BaseHash() plumbing.Hash
	Reset(plumbing.Hash)
}

// Coordinator is the Transaction Coordinator Adapter: a Participant
// that performs the tree -> commit -> ref -> checkout algorithm against
// one gitfs.Session's overlay and object store gateway.
type Coordinator struct {
	gw      objstore.Gateway
	ov      Overlay
	branch  plumbing.ReferenceName
	ident   core.Identity
	meta    *Transaction
	tip     plumbing.Hash
	tipOK   bool
	Result  Transaction
}

// NewCoordinator builds a Coordinator for one transaction. meta carries
// the note/user/email/extended-info the caller has set on the in-flight
// transaction; ident is the session's default identity, used when meta
// leaves a field unset.
func NewCoordinator(gw objstore.Gateway, ov Overlay, branch plumbing.ReferenceName, meta *Transaction, ident core.Identity) *Coordinator {
	return &Coordinator{gw: gw, ov: ov, branch: branch, meta: meta, ident: ident}
}

// SortKey sorts the Coordinator after ordinary participant identifiers,
// since Finish performs the irrevocable git write and should run last.
func (c *Coordinator) SortKey() string { return "~gitfs" }

// Begin records the branch tip observed at the start of the
// transaction, used both as the new commit's parent and as the
// compare-and-swap baseline in Finish.
func (c *Coordinator) Begin() error {
	tip, ok, err := c.gw.HeadTip(c.branch)
	if err != nil {
		return err
	}
	c.tip, c.tipOK = tip, ok
	return nil
}

// Vote rejects the commit if any file handle is still open.
func (c *Coordinator) Vote() error {
	if c.ov.OpenHandleCount() != 0 {
		return core.ErrOpenFileHandle("Cannot commit transaction with open files.")
	}
	return nil
}

// Finish computes the new root tree, skips the commit entirely if
// nothing changed, and otherwise forms a commit, advances the branch
// ref with a compare-and-swap, checks out the new tree (non-bare
// repositories only), and reseeds the overlay.
func (c *Coordinator) Finish() error {
	tree, err := c.ov.ComputeRootTree()
	if err != nil {
		return err
	}

	if tree == c.ov.BaseHash() {
		c.Result = Transaction{}
		return nil
	}

	sig := c.signature()

	var parents []plumbing.Hash
	if c.tipOK {
		parents = []plumbing.Hash{c.tip}
	}

	commitHash, err := c.gw.WriteCommit(tree, parents, sig, sig, c.meta.Note)
	if err != nil {
		return err
	}

	if err := c.gw.UpdateRef(c.branch, commitHash, c.tip, c.tipOK); err != nil {
		return err
	}

	if err := c.gw.Checkout(tree); err != nil {
		return err
	}

	c.ov.Reset(tree)
	c.Result = Transaction{ID: commitHash.String(), When: sig.When, Note: c.meta.Note}
	return nil
}

// Abort discards staged overlay state; no object-store writes this
// transaction made are referenced by any ref, so they are left as
// unreferenced objects for later garbage collection.
func (c *Coordinator) Abort() {
	c.ov.Reset(c.ov.BaseHash())
}

func (c *Coordinator) signature() object.Signature {
	name := c.meta.User
	if v, ok := c.meta.ExtendedInfo["user"]; ok && v != "" {
		name = v
	}
	if name == "" {
		name = c.ident.Name
	}
	if name == "" {
		name = "unknown"
	}

	email := c.meta.Email
	if v, ok := c.meta.ExtendedInfo["email"]; ok && v != "" {
		email = v
	}
	if email == "" {
		email = c.ident.Email
	}
	if email == "" {
		email = "unknown@example.com"
	}

	return object.Signature{Name: name, Email: email, When: timeNow()}
}

// timeNow is a seam so tests can observe a fixed commit time if needed.
var timeNow = time.Now
