package digest

import (
	"time"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

// FileWriter is the Digesting Writer of spec.md §4.B: it wraps a Shared
// Temp File writer, feeding every chunk through MD5 and SHA-256 before
// the chunk reaches disk, so the digests always correspond exactly to
// the bytes handed to the OS, never to whatever the OS confirmed durable.
type FileWriter struct {
	inner *sharedfile.Writer
	hash  *Writer
}

// WrapFile returns a FileWriter over sf.
func WrapFile(sf *sharedfile.Writer) *FileWriter {
	return &FileWriter{inner: sf, hash: Wrap(sf)}
}

// Write feeds p through both digests, then the backing file.
func (fw *FileWriter) Write(p []byte) (int, error) {
	return fw.hash.Write(p)
}

// SyncData flushes data (not metadata) to the OS without changing the
// backing file's state.
func (fw *FileWriter) SyncData() error {
	return fw.inner.SyncData()
}

// Finalize transitions the backing file to Completed and returns the
// Write Summary: the accumulated digests, byte count, and an expiry of
// now+lease. In Sync mode the backing file's data and metadata are
// flushed before the transition. A sync failure is reported as
// FinalizeSyncFailed by the caller (the Writer Guard); the digests
// remain valid even though the file should be treated as Failed.
func (fw *FileWriter) Finalize(mode sharedfile.FinalizeMode, lease time.Duration, fileName, contentType string) (Summary, error) {
	size, err := fw.inner.Finalize(mode)
	if err != nil {
		return Summary{}, err
	}
	md5Hex, sha256Hex := fw.hash.Sums()
	return Summary{
		MD5:           md5Hex,
		SHA256:        sha256Hex,
		FileSizeBytes: size,
		FileName:      fileName,
		ContentType:   contentType,
		Expires:       time.Now().Add(lease),
	}, nil
}

// Abort fails the backing file if it is still Pending. Called via defer
// from the Writer Guard's drop path so an abandoned upload always ends
// in a terminal state.
func (fw *FileWriter) Abort() {
	fw.inner.Abort()
}

// Close releases the backing file's writer-side descriptor.
func (fw *FileWriter) Close() error {
	return fw.inner.Close()
}
