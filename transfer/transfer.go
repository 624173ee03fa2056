package transfer

import (
	"io"

	"github.com/wiretree/gitfs"
)

// Import reads sourceURL (a local path, http(s):// URL, or s3:// URL)
// and writes its bytes to destPath inside session's current
// transaction via the normal Open(path, "w") path — it is sugar over
// the public Session surface, not a bypass of the overlay.
func Import(session *gitfs.Session, destPath, sourceURL string, opts ...TransferOption) error {
	cfg := buildConfig(opts)

	src, err := openReader(sourceURL, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := session.Open(destPath, "w")
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Export reads the committed or staged content at srcPath (via
// Open(path, "r")) and streams it to destURL (a local path or an
// s3:// URL; http(s) destinations are not writable).
func Export(session *gitfs.Session, srcPath, destURL string, opts ...TransferOption) error {
	cfg := buildConfig(opts)

	src, err := session.Open(srcPath, "r")
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := openWriter(destURL, cfg)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
