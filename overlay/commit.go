package overlay

import (
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/wiretree/gitfs/objstore"
)

// BaseHash returns the tree hash this overlay was opened against.
func (o *Overlay) BaseHash() plumbing.Hash { return o.baseHash }

// ComputeRootTree walks the overlay depth-first and returns the root
// tree hash reflecting all staged mutations. Directories that were
// never touched (kindUnexpanded, or kindDirectory with dirty == false)
// contribute their already-known hash without any gateway call; only
// dirty directories are re-emitted.
func (o *Overlay) ComputeRootTree() (plumbing.Hash, error) {
	return o.treeHash(o.root)
}

func (o *Overlay) treeHash(n *node) (plumbing.Hash, error) {
	switch n.kind {
	case kindUnexpanded, kindFile:
		return n.hash, nil
	case kindDirectory:
		if !n.dirty {
			return n.hash, nil
		}
		entries := make([]objstore.Entry, 0, len(n.children))
		for name, child := range n.children {
			h, err := o.treeHash(child)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			entries = append(entries, objstore.Entry{
				Name: name,
				Dir:  child.kind == kindDirectory || child.kind == kindUnexpanded,
				Hash: h,
			})
		}
		hash, err := o.gw.WriteTree(entries)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		n.hash = hash
		n.dirty = false
		return hash, nil
	default:
		return plumbing.ZeroHash, nil
	}
}

// Reset re-seeds the overlay from a fresh base tree, discarding all
// staged state. Used after a successful commit and after an abort. The
// open-handle count is kept: handles still open across an abort
// deregister when they close.
func (o *Overlay) Reset(baseTree plumbing.Hash) {
	o.root = newUnexpandedRoot(baseTree)
	o.baseHash = baseTree
}
