package overlay

import (
	"github.com/go-git/go-git/v6/plumbing"

	"github.com/wiretree/gitfs/core"
)

// Exists reports whether path names any node (file or directory).
func (o *Overlay) Exists(path string) bool {
	parts, err := core.SplitPath(path)
	if err != nil {
		return false
	}
	_, err = o.resolve(path, parts)
	return err == nil
}

// IsDir reports whether path names a directory.
func (o *Overlay) IsDir(path string) bool {
	parts, err := core.SplitPath(path)
	if err != nil {
		return false
	}
	n, err := o.resolve(path, parts)
	if err != nil {
		return false
	}
	if n.kind == kindUnexpanded {
		return true
	}
	return n.kind == kindDirectory
}

// IsFile reports whether path names a file.
func (o *Overlay) IsFile(path string) bool {
	parts, err := core.SplitPath(path)
	if err != nil {
		return false
	}
	n, err := o.resolve(path, parts)
	if err != nil {
		return false
	}
	return n.kind == kindFile
}

// Listdir returns the names of path's direct children, in no particular
// order.
func (o *Overlay) Listdir(path string) ([]string, error) {
	parts, err := core.SplitPath(path)
	if err != nil {
		return nil, err
	}
	n, err := o.resolve(path, parts)
	if err != nil {
		return nil, err
	}
	if n.kind == kindFile {
		return nil, core.ErrNotADirectory(path)
	}
	if err := o.expand(n); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	return names, nil
}

// Mkdir creates an empty directory at path. The parent must already
// exist and be a directory; path itself must not already exist.
func (o *Overlay) Mkdir(path string) error {
	parts, err := core.SplitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return core.ErrFileExists(path)
	}
	parent, err := o.resolveParent(path, parts)
	if err != nil {
		return err
	}
	name := parts[len(parts)-1]
	if _, exists := parent.children[name]; exists {
		return core.ErrFileExists(path)
	}
	child := &node{kind: kindDirectory, children: map[string]*node{}, parent: parent, name: name, dirty: true}
	parent.children[name] = child
	markDirty(parent)
	return nil
}

// removeEntry resolves path down to its parent, verifies the terminal
// node has the expected directory-ness, and deletes it from the
// parent's children map.
func (o *Overlay) removeEntry(path string, wantDir bool) error {
	parts, err := core.SplitPath(path)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return core.ErrIsADirectory("")
	}
	parent, err := o.resolveParent(path, parts)
	if err != nil {
		return err
	}
	name := parts[len(parts)-1]
	n, ok := parent.children[name]
	if !ok {
		return core.ErrNoSuchFileOrDirectory(path)
	}
	isDir := n.kind == kindDirectory || n.kind == kindUnexpanded
	if wantDir && !isDir {
		return core.ErrNotADirectory(path)
	}
	if !wantDir && isDir {
		return core.ErrIsADirectory(path)
	}
	delete(parent.children, name)
	markDirty(parent)
	return nil
}

// Remove deletes the file at path.
func (o *Overlay) Remove(path string) error { return o.removeEntry(path, false) }

// RemoveDir deletes the directory at path.
func (o *Overlay) RemoveDir(path string) error { return o.removeEntry(path, true) }

// resolveForRead resolves path to an existing file node, suitable for
// opening a reader.
func (o *Overlay) resolveForRead(path string) (*node, error) {
	parts, err := core.SplitPath(path)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, core.ErrIsADirectory("")
	}
	n, err := o.resolve(path, parts)
	if err != nil {
		return nil, err
	}
	if n.kind != kindFile {
		return nil, core.ErrIsADirectory(path)
	}
	if n.hash.IsZero() {
		// Never finalized: either a writer has it open right now, or a
		// prior writer abandoned it. Either way there is no readable
		// content behind it yet, so it doesn't exist for readers.
		return nil, core.ErrNoSuchFileOrDirectory(path)
	}
	return n, nil
}

// WriteTarget is the write-side handle into one overlay entry, handed
// to handle.Writer so it can install a finalized blob hash on Close
// without overlay's unexported node type leaking outside this package.
type WriteTarget struct {
	o *Overlay
	n *node
}

// FinalizeWrite installs hash on the owning entry, marks the directory
// chain dirty, and deregisters the open handle.
func (w *WriteTarget) FinalizeWrite(hash plumbing.Hash) error {
	w.n.hash = hash
	w.n.writing = false
	markDirty(w.n.parent)
	w.o.decOpen()
	return nil
}

// AbandonWrite clears the in-progress flag without changing content,
// used when a writer's Close fails partway through, and deregisters the
// open handle. A node that was never finalized has no prior state to
// revert to, so it is removed from its parent entirely rather than left
// behind as a phantom entry.
func (w *WriteTarget) AbandonWrite() {
	w.n.writing = false
	if w.n.hash.IsZero() {
		delete(w.n.parent.children, w.n.name)
	}
	w.o.decOpen()
}

// BeginWrite resolves (creating if absent) the file entry at path for
// writing, rejecting a second concurrent writer against the same entry.
func (o *Overlay) BeginWrite(path string) (*WriteTarget, error) {
	parts, err := core.SplitPath(path)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, core.ErrIsADirectory("")
	}
	parent, err := o.resolveParent(path, parts)
	if err != nil {
		return nil, err
	}
	name := parts[len(parts)-1]
	existing, ok := parent.children[name]
	if ok {
		if existing.kind == kindDirectory || existing.kind == kindUnexpanded {
			return nil, core.ErrIsADirectory(path)
		}
		if existing.writing {
			return nil, core.ErrOpenFileHandle("file already open for writing: " + path)
		}
		existing.writing = true
		o.incOpen()
		return &WriteTarget{o: o, n: existing}, nil
	}
	n := &node{kind: kindFile, hash: plumbing.ZeroHash, parent: parent, name: name, writing: true}
	parent.children[name] = n
	o.incOpen()
	return &WriteTarget{o: o, n: n}, nil
}

// OpenRead resolves path to an existing file and returns the blob hash
// a read handle should stream from, registering an open handle.
func (o *Overlay) OpenRead(path string) (plumbing.Hash, error) {
	n, err := o.resolveForRead(path)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	o.incOpen()
	return n.hash, nil
}

// CloseRead deregisters a previously opened read handle.
func (o *Overlay) CloseRead() { o.decOpen() }
