// Package overlay implements the in-memory staged tree that sits above a
// git tree during a transaction: mutations accumulate here and are only
// pushed to the object store when the transaction commits.
package overlay

import (
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/wiretree/gitfs/core"
	"github.com/wiretree/gitfs/objstore"
)

type kind int

const (
	kindUnexpanded kind = iota
	kindDirectory
	kindFile
)

// node is a tagged-variant tree node. Unexpanded directories carry only
// their base hash until first traversal expands them in place.
type node struct {
	kind     kind
	hash     plumbing.Hash // base hash: blob for kindFile, tree for kindDirectory/kindUnexpanded
	dirty    bool          // kindDirectory only: children mutated since last (re-)emission
	children map[string]*node
	parent   *node
	name     string // this node's name within parent.children
	writing  bool   // kindFile only: a writer currently has this entry open
}

func newUnexpandedRoot(hash plumbing.Hash) *node {
	return &node{kind: kindUnexpanded, hash: hash}
}

func fileNode(hash plumbing.Hash) *node {
	return &node{kind: kindFile, hash: hash}
}

// Overlay is the staged view of one transaction, layered atop a base git
// tree read through gw.
type Overlay struct {
	gw       objstore.Gateway
	root     *node
	baseHash plumbing.Hash
	openCnt  int
}

// New creates an overlay rooted at baseTree, the git tree of the branch
// tip at the start of the transaction (plumbing.ZeroHash for an empty
// repository).
func New(gw objstore.Gateway, baseTree plumbing.Hash) *Overlay {
	return &Overlay{gw: gw, root: newUnexpandedRoot(baseTree), baseHash: baseTree}
}

// OpenHandleCount reports how many file handles are currently open
// against this overlay; commit is gated on this being zero.
func (o *Overlay) OpenHandleCount() int { return o.openCnt }

func (o *Overlay) incOpen() { o.openCnt++ }
func (o *Overlay) decOpen() { o.openCnt-- }

// expand turns an Unexpanded node into a populated Directory, reading
// one level of children from the object store.
func (o *Overlay) expand(n *node) error {
	if n.kind != kindUnexpanded {
		return nil
	}
	entries, err := o.gw.ListTree(n.hash)
	if err != nil {
		return err
	}
	children := make(map[string]*node, len(entries))
	for _, e := range entries {
		c := &node{name: e.Name, hash: e.Hash, parent: n}
		if e.Dir {
			c.kind = kindUnexpanded
		} else {
			c.kind = kindFile
		}
		children[e.Name] = c
	}
	n.kind = kindDirectory
	n.children = children
	return nil
}

// resolveParent walks parts, expanding directories lazily, and returns the
// directory node the last component should live in, without requiring
// the final component to exist.
func (o *Overlay) resolveParent(fullPath string, parts []string) (*node, error) {
	cur := o.root
	for _, p := range parts[:len(parts)-1] {
		if err := o.expand(cur); err != nil {
			return nil, err
		}
		child, ok := cur.children[p]
		if !ok {
			return nil, core.ErrNoSuchFileOrDirectory(fullPath)
		}
		if child.kind == kindFile {
			return nil, core.ErrNotADirectory(fullPath)
		}
		cur = child
	}
	if err := o.expand(cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// resolve walks the full path and returns the terminal node, or an
// error carrying the originally requested path.
func (o *Overlay) resolve(fullPath string, parts []string) (*node, error) {
	if len(parts) == 0 {
		return o.root, nil
	}
	parent, err := o.resolveParent(fullPath, parts)
	if err != nil {
		return nil, err
	}
	last := parts[len(parts)-1]
	n, ok := parent.children[last]
	if !ok {
		return nil, core.ErrNoSuchFileOrDirectory(fullPath)
	}
	return n, nil
}

// markDirty flags dir and every ancestor directory as needing
// re-emission on the next commit-tree walk. dir must already be a
// kindDirectory node (expanded).
func markDirty(dir *node) {
	for cur := dir; cur != nil; cur = cur.parent {
		cur.dirty = true
	}
}
