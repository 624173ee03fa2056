// Package objstore is the thin gateway between gitfs and the underlying
// git object database. It is the in-process substitute for the
// subprocess git plumbing commands (hash-object, mktree, commit-tree,
// update-ref) this interface is modeled on, implemented directly atop
// go-git's storer and go-billy's worktree filesystem.
package objstore

import (
	"io"
	"sort"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/wiretree/gitfs/core"
)

// Entry is one line of a tree listing: a name, its mode (file or
// directory), and the hash of the blob or subtree it names.
type Entry struct {
	Name string
	Dir  bool
	Hash plumbing.Hash
}

// Gateway is the object-store surface gitfs needs: blob and tree I/O,
// commit formation, compare-and-swap ref updates, and (for non-bare
// repositories) working-tree checkout.
type Gateway interface {
	CreateBlob(data []byte) (plumbing.Hash, error)
	OpenBlob(hash plumbing.Hash) (io.ReadCloser, error)
	ListTree(hash plumbing.Hash) ([]Entry, error)
	WriteTree(entries []Entry) (plumbing.Hash, error)
	WriteCommit(tree plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error)
	HeadTip(branch plumbing.ReferenceName) (hash plumbing.Hash, exists bool, err error)
	CommitTree(commit plumbing.Hash) (plumbing.Hash, error)
	UpdateRef(branch plumbing.ReferenceName, newHash plumbing.Hash, oldHash plumbing.Hash, oldExists bool) error
	Checkout(tree plumbing.Hash) error
	IsBare() bool
	SymbolicHeadTarget() (plumbing.ReferenceName, bool, error)
}

type gitGateway struct {
	repo *git.Repository
	bare bool
}

// New wraps a go-git repository as a Gateway. bare must match how the
// repository was constructed: true skips working-tree checkout on
// commit, matching the behavior of a bare git repository.
func New(repo *git.Repository, bare bool) Gateway {
	return &gitGateway{repo: repo, bare: bare}
}

func (g *gitGateway) IsBare() bool { return g.bare }

func (g *gitGateway) CreateBlob(data []byte) (plumbing.Hash, error) {
	obj := g.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}

	hash, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}
	return hash, nil
}

func (g *gitGateway) OpenBlob(hash plumbing.Hash) (io.ReadCloser, error) {
	blob, err := g.repo.BlobObject(hash)
	if err != nil {
		return nil, core.WrapObjectStoreError(err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, core.WrapObjectStoreError(err)
	}
	return r, nil
}

func (g *gitGateway) ListTree(hash plumbing.Hash) ([]Entry, error) {
	if hash == plumbing.ZeroHash {
		return nil, nil
	}

	tree, err := object.GetTree(g.repo.Storer, hash)
	if err != nil {
		return nil, core.WrapObjectStoreError(err)
	}

	entries := make([]Entry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, Entry{
			Name: e.Name,
			Dir:  e.Mode == filemode.Dir,
			Hash: e.Hash,
		})
	}
	return entries, nil
}

func (g *gitGateway) WriteTree(entries []Entry) (plumbing.Hash, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		ni, nj := sorted[i].Name, sorted[j].Name
		if sorted[i].Dir {
			ni += "/"
		}
		if sorted[j].Dir {
			nj += "/"
		}
		return ni < nj
	})

	treeEntries := make([]object.TreeEntry, 0, len(sorted))
	for _, e := range sorted {
		mode := filemode.Regular
		if e.Dir {
			mode = filemode.Dir
		}
		treeEntries = append(treeEntries, object.TreeEntry{
			Name: e.Name,
			Mode: mode,
			Hash: e.Hash,
		})
	}

	tree := &object.Tree{Entries: treeEntries}
	obj := g.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}

	hash, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}
	return hash, nil
}

func (g *gitGateway) WriteCommit(tree plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error) {
	actualTree := tree
	if tree == plumbing.ZeroHash {
		empty := &object.Tree{Entries: []object.TreeEntry{}}
		obj := g.repo.Storer.NewEncodedObject()
		if err := empty.Encode(obj); err != nil {
			return plumbing.ZeroHash, core.WrapObjectStoreError(err)
		}
		h, err := g.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return plumbing.ZeroHash, core.WrapObjectStoreError(err)
		}
		actualTree = h
	}

	commit := &object.Commit{
		Author:       author,
		Committer:    committer,
		Message:      message,
		TreeHash:     actualTree,
		ParentHashes: parents,
	}

	obj := g.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}

	hash, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}
	return hash, nil
}

func (g *gitGateway) HeadTip(branch plumbing.ReferenceName) (plumbing.Hash, bool, error) {
	ref, err := g.repo.Storer.Reference(branch)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, core.WrapObjectStoreError(err)
	}
	return ref.Hash(), true, nil
}

func (g *gitGateway) CommitTree(commit plumbing.Hash) (plumbing.Hash, error) {
	c, err := g.repo.CommitObject(commit)
	if err != nil {
		return plumbing.ZeroHash, core.WrapObjectStoreError(err)
	}
	return c.TreeHash, nil
}

func (g *gitGateway) UpdateRef(branch plumbing.ReferenceName, newHash, oldHash plumbing.Hash, oldExists bool) error {
	newRef := plumbing.NewHashReference(branch, newHash)

	var oldRef *plumbing.Reference
	if oldExists {
		oldRef = plumbing.NewHashReference(branch, oldHash)
	} else {
		// CheckAndSetReference does not compare against a nil old
		// reference, so a branch that appeared since HeadTip was read is
		// caught here.
		_, exists, err := g.HeadTip(branch)
		if err != nil {
			return err
		}
		if exists {
			return core.ErrConflict
		}
	}

	if err := g.repo.Storer.CheckAndSetReference(newRef, oldRef); err != nil {
		current, _, curErr := g.HeadTip(branch)
		if curErr == nil && current != oldHash {
			return core.ErrConflict
		}
		return core.WrapObjectStoreError(err)
	}
	return nil
}

func (g *gitGateway) Checkout(tree plumbing.Hash) error {
	if g.bare {
		return nil
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return core.WrapObjectStoreError(err)
	}

	if tree == plumbing.ZeroHash {
		fs := wt.Filesystem
		entries, err := fs.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.Name() == ".git" {
				continue
			}
			if err := removeAll(fs, entry.Name()); err != nil {
				return core.WrapObjectStoreError(err)
			}
		}
		return nil
	}

	headRef, err := g.repo.Head()
	if err != nil {
		return core.WrapObjectStoreError(err)
	}

	if err := wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: headRef.Hash(),
	}); err != nil {
		return core.WrapObjectStoreError(err)
	}
	return nil
}

// removeAll recursively removes a file or directory from a billy
// filesystem; go-billy has no native RemoveAll.
func removeAll(fs billy.Filesystem, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		return fs.Remove(path)
	}

	entries, err := fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := removeAll(fs, path+"/"+e.Name()); err != nil {
			return err
		}
	}
	return fs.Remove(path)
}

func (g *gitGateway) SymbolicHeadTarget() (plumbing.ReferenceName, bool, error) {
	head, err := g.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", false, core.WrapObjectStoreError(err)
	}
	if head.Type() != plumbing.SymbolicReference {
		return "", false, nil
	}
	return head.Target(), true, nil
}
