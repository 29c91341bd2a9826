package record

import (
	"context"
	"time"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

// TransferMeter records bytes moved through a File Reader. Implemented
// by pkg/metrics; kept as a narrow interface here so record does not
// import the metrics package.
type TransferMeter interface {
	ObserveFetchBytes(n int64)
}

// SizeHintKind distinguishes a size hint taken while the upload is still
// in progress from one taken after it completed or failed.
type SizeHintKind int

const (
	// SizeAtLeast means the Write Summary is not published yet and the
	// upload has not failed; more bytes may arrive. Bytes is zero.
	SizeAtLeast SizeHintKind = iota
	// SizeExactly means the Record has published the Write Summary; Bytes
	// is the final size.
	SizeExactly
	// SizeUnknown means the file Failed; no size can be reported.
	SizeUnknown
)

// SizeHint is a point-in-time estimate of a file's size.
type SizeHint struct {
	Kind  SizeHintKind
	Bytes int64
}

// Reader is the File Reader of spec.md §4.E: a byte stream over a Shared
// Temp File read handle, carrying the metadata a GET /yoink handler
// needs to set response headers before or while it streams the body.
type Reader struct {
	fr        *sharedfile.Reader
	record    *Record
	createdAt time.Time
	lease     time.Duration
	summary   *digest.Summary
	meter     TransferMeter
}

// Read streams bytes from the backing file, suspending without polling
// when it catches up to an in-progress writer (sharedfile.Reader.Read).
// Every successful read updates the Fetch-direction transfer counter.
func (r *Reader) Read(ctx context.Context, buf []byte) (int, error) {
	n, err := r.fr.Read(ctx, buf)
	if n > 0 && r.meter != nil {
		r.meter.ObserveFetchBytes(int64(n))
	}
	return n, err
}

// Close releases the reader's file descriptor.
func (r *Reader) Close() error {
	return r.fr.Close()
}

// Summary returns the Write Summary if the upload has completed, or nil.
func (r *Reader) Summary() *digest.Summary {
	r.record.mu.RLock()
	defer r.record.mu.RUnlock()
	return r.record.summary
}

// Expires is the instant after which the Record will release this file.
func (r *Reader) Expires() time.Time {
	return r.createdAt.Add(r.lease)
}

// Age is how long ago this file was admitted.
func (r *Reader) Age() time.Duration {
	return time.Since(r.createdAt)
}

// SizeHint reports what is known about the file's size: SizeExactly with
// the final size once the Record has published the Write Summary,
// SizeUnknown once the upload has failed, and SizeAtLeast with Bytes zero
// otherwise. The number of bytes written so far is not reported, and a
// file whose writer has finalized but whose summary the Record has not
// yet published also reports SizeAtLeast.
func (r *Reader) SizeHint() SizeHint {
	if s := r.Summary(); s != nil {
		return SizeHint{Kind: SizeExactly, Bytes: s.FileSizeBytes}
	}
	if r.record.Failed() {
		return SizeHint{Kind: SizeUnknown}
	}
	return SizeHint{Kind: SizeAtLeast}
}

// ContentType returns the declared content type, or "" if none was set
// or the upload has not completed.
func (r *Reader) ContentType() string {
	if s := r.Summary(); s != nil {
		return s.ContentType
	}
	return ""
}
