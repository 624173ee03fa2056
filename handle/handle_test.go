package handle

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/wiretree/gitfs/objstore"
)

// fakeGateway implements just enough of objstore.Gateway to exercise
// Writer and Reader: CreateBlob, OpenBlob and IsBare work, and every
// other method panics if reached.
type fakeGateway struct {
	blobs     map[plumbing.Hash][]byte
	failBlobs bool
	next      byte
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{blobs: map[plumbing.Hash][]byte{}}
}

func (g *fakeGateway) CreateBlob(data []byte) (plumbing.Hash, error) {
	if g.failBlobs {
		return plumbing.ZeroHash, io.ErrUnexpectedEOF
	}
	g.next++
	var h plumbing.Hash
	h[0] = g.next
	cp := make([]byte, len(data))
	copy(cp, data)
	g.blobs[h] = cp
	return h, nil
}

func (g *fakeGateway) OpenBlob(hash plumbing.Hash) (io.ReadCloser, error) {
	data, ok := g.blobs[hash]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (g *fakeGateway) ListTree(hash plumbing.Hash) ([]objstore.Entry, error) { panic("unused") }
func (g *fakeGateway) WriteTree(entries []objstore.Entry) (plumbing.Hash, error) {
	panic("unused")
}
func (g *fakeGateway) WriteCommit(tree plumbing.Hash, parents []plumbing.Hash, author, committer object.Signature, message string) (plumbing.Hash, error) {
	panic("unused")
}
func (g *fakeGateway) HeadTip(branch plumbing.ReferenceName) (plumbing.Hash, bool, error) {
	panic("unused")
}
func (g *fakeGateway) CommitTree(commit plumbing.Hash) (plumbing.Hash, error) { panic("unused") }
func (g *fakeGateway) UpdateRef(branch plumbing.ReferenceName, newHash, oldHash plumbing.Hash, oldExists bool) error {
	panic("unused")
}
func (g *fakeGateway) Checkout(tree plumbing.Hash) error { panic("unused") }
func (g *fakeGateway) IsBare() bool                      { return false }
func (g *fakeGateway) SymbolicHeadTarget() (plumbing.ReferenceName, bool, error) {
	panic("unused")
}

type fakeTarget struct {
	finalized bool
	abandoned bool
	hash      plumbing.Hash
}

func (f *fakeTarget) FinalizeWrite(hash plumbing.Hash) error {
	f.finalized = true
	f.hash = hash
	return nil
}
func (f *fakeTarget) AbandonWrite() { f.abandoned = true }

type fakeSource struct {
	closed bool
}

func (f *fakeSource) CloseRead() { f.closed = true }

func TestWriterClosesAndFinalizes(t *testing.T) {
	gw := newFakeGateway()
	target := &fakeTarget{}
	w := NewWriter(gw, target)

	if _, err := w.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !target.finalized {
		t.Fatal("expected target to be finalized")
	}

	data := gw.blobs[target.hash]
	if string(data) != "hello world" {
		t.Fatalf("blob content = %q, want %q", data, "hello world")
	}
}

func TestWriterCloseIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	target := &fakeTarget{}
	w := NewWriter(gw, target)
	w.Write([]byte("x"))

	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWriterWriteAfterCloseErrors(t *testing.T) {
	gw := newFakeGateway()
	target := &fakeTarget{}
	w := NewWriter(gw, target)
	w.Close()

	if _, err := w.Write([]byte("x")); err != io.ErrClosedPipe {
		t.Fatalf("got %v, want io.ErrClosedPipe", err)
	}
}

func TestWriterAbandonsOnBlobFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.failBlobs = true
	target := &fakeTarget{}
	w := NewWriter(gw, target)
	w.Write([]byte("x"))

	if err := w.Close(); err == nil {
		t.Fatal("expected error from failing blob creation")
	}
	if !target.abandoned {
		t.Fatal("expected target to be abandoned")
	}
	if target.finalized {
		t.Fatal("expected target not to be finalized")
	}
}

func TestReaderReadsAndDeregisters(t *testing.T) {
	gw := newFakeGateway()
	hash, err := gw.CreateBlob([]byte("content"))
	if err != nil {
		t.Fatalf("CreateBlob: %v", err)
	}
	rc, err := gw.OpenBlob(hash)
	if err != nil {
		t.Fatalf("OpenBlob: %v", err)
	}

	src := &fakeSource{}
	r := NewReader(rc, src)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("got %q, want %q", data, "content")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.closed {
		t.Fatal("expected source to be deregistered on Close")
	}
}

func TestReaderCloseIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	hash, _ := gw.CreateBlob([]byte("x"))
	rc, _ := gw.OpenBlob(hash)
	src := &fakeSource{}
	r := NewReader(rc, src)

	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
