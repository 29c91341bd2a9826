// Package digest wraps an io.Writer with an incremental MD5 and SHA-256
// computation (spec.md §4.B "Digesting Writer"). Both hashes are updated
// with every chunk before the chunk reaches the underlying writer, so a
// digest is always available even if the underlying write later fails.
package digest

import (
	"crypto/md5"  //nolint:gosec // MD5 is exposed for client compatibility, not security.
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Writer feeds every byte written to it through MD5 and SHA-256 before
// forwarding it to the wrapped writer.
type Writer struct {
	w      io.Writer
	md5    hash.Hash
	sha256 hash.Hash
}

// Wrap returns a Writer that forwards to w while accumulating both digests.
func Wrap(w io.Writer) *Writer {
	return &Writer{
		w:      w,
		md5:    md5.New(), //nolint:gosec
		sha256: sha256.New(),
	}
}

// Write updates both digests with p, then forwards p to the wrapped
// writer. The digests reflect p even if the forwarding write fails
// partway through, matching spec.md §9(c): the digest is computed from
// the bytes handed to Write, not from the bytes the underlying writer
// confirmed.
func (dw *Writer) Write(p []byte) (int, error) {
	if len(p) > 0 {
		dw.md5.Write(p)
		dw.sha256.Write(p)
	}
	return dw.w.Write(p)
}

// Sums returns the hex-encoded MD5 and SHA-256 digests of everything
// written so far. Safe to call at any point; it does not reset the
// running hash.
func (dw *Writer) Sums() (md5Hex, sha256Hex string) {
	return hex.EncodeToString(dw.md5.Sum(nil)), hex.EncodeToString(dw.sha256.Sum(nil))
}
