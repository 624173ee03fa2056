// Package handle implements the read and write streams gitfs hands back
// from Session.Open. A Writer buffers bytes until Close, when it asks
// the object store to finalize a blob and installs the result on its
// owning overlay entry; a Reader streams directly from the object
// store's blob reader.
package handle

import (
	"bytes"
	"io"

	"github.com/go-git/go-git/v6/plumbing"

	"github.com/wiretree/gitfs/core"
	"github.com/wiretree/gitfs/objstore"
)

// writeTarget is the subset of overlay.Overlay a Writer needs, kept as
// an interface so this package does not import overlay (overlay's node
// type stays unexported and package-private).
type writeTarget interface {
	FinalizeWrite(hash plumbing.Hash) error
	AbandonWrite()
}

// readSource is the subset of overlay.Overlay a Reader's lifecycle
// needs for the open-handle count.
type readSource interface {
	CloseRead()
}

// Writer buffers written bytes and finalizes a blob on Close.
type Writer struct {
	gw     objstore.Gateway
	target writeTarget
	buf    bytes.Buffer
	closed bool
}

// NewWriter constructs a Writer that will finalize into gw and install
// the result on target when closed.
func NewWriter(gw objstore.Gateway, target writeTarget) *Writer {
	return &Writer{gw: gw, target: target}
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

// Close finalizes the buffered bytes as a blob and installs the hash on
// the owning directory entry. Calls after the first are no-ops that
// return nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	hash, err := w.gw.CreateBlob(w.buf.Bytes())
	if err != nil {
		w.target.AbandonWrite()
		return core.WrapObjectStoreError(err)
	}
	return w.target.FinalizeWrite(hash)
}

// Reader streams blob content from the object store.
type Reader struct {
	rc     io.ReadCloser
	source readSource
	closed bool
}

// NewReader wraps rc (opened from the object store) as a Reader,
// deregistering from source on Close.
func NewReader(rc io.ReadCloser, source readSource) *Reader {
	return &Reader{rc: rc, source: source}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && err != io.EOF {
		return n, core.WrapObjectStoreError(err)
	}
	return n, err
}

// Close releases the underlying blob reader and deregisters this
// handle from the overlay's open-handle count. Calls after the first
// are no-ops that return nil.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.source.CloseRead()
	return r.rc.Close()
}
