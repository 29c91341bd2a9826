// Package sharedfile implements the relay's single-writer, many-reader
// backing file (spec.md §4.A "Shared Temp File").
//
// A File is backed by one on-disk temporary file. Exactly one Writer may
// be live against it at a time; any number of Readers may be opened
// concurrently, each with its own read position and its own OS file
// descriptor. Readers that catch up to the writer suspend without
// polling: they wait on a channel that the writer closes (and the File
// replaces) every time it publishes bytes, finalizes, or fails. This is
// the "broadcast notifier with epoch counters" variant spec.md §9 calls
// out as equivalent to a registered per-reader wake token — each wait
// captures the *current* notify channel under the same lock
// that it reads state from, so a writer that publishes between the check
// and the wait still wakes the reader on the very next loop iteration,
// never blocks on a channel that was already closed.
package sharedfile

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/yeet-yoink/yeet-yoink/internal/fsync"
)

// Errors returned by File, Writer, and Reader operations.
var (
	// ErrFileSystem wraps an OS error encountered creating the backing file.
	ErrFileSystem = errors.New("sharedfile: filesystem error")
	// ErrAlreadyWriting is returned by Writer when a writer is already live.
	ErrAlreadyWriting = errors.New("sharedfile: writer already live")
	// ErrBrokenPipe is returned by Writer.Write once the file is Completed or Failed.
	ErrBrokenPipe = errors.New("sharedfile: write after completion or failure")
	// ErrReadFailed is returned by Reader.Read once the file has transitioned to Failed.
	ErrReadFailed = errors.New("sharedfile: read from failed file")
	// ErrAlreadyFinalized is returned by Writer.Finalize when called more than
	// once, or after the writer already failed.
	ErrAlreadyFinalized = errors.New("sharedfile: already finalized or failed")
)

// status is the Shared Temp File state machine (spec.md §3): monotonic,
// Pending -> {Completed, Failed}, both terminal.
type status int

const (
	statusPending status = iota
	statusCompleted
	statusFailed
)

// FinalizeMode controls how much durability Finalize demands before
// transitioning to Completed.
type FinalizeMode int

const (
	// NoSync finalizes without an explicit flush; the caller may already have
	// flushed via Writer.SyncData.
	NoSync FinalizeMode = iota
	// Sync flushes data and metadata before finalizing.
	Sync
)

// File is the shared backing file. Obtain it with Open, then exactly one
// Writer via Writer() and any number of Readers via Reader().
type File struct {
	path string

	mu      sync.Mutex
	status  status
	pending int64 // valid while status == statusPending
	final   int64 // valid once status == statusCompleted
	notify  chan struct{}

	writerFile  *os.File
	writerTaken bool
}

// Open creates a uniquely-named temporary file in dir (the OS default
// temp directory if dir is empty) and returns a File in the Pending(0)
// state. name is folded into the file name so operators can correlate an
// on-disk artifact with a file identifier in logs.
func Open(dir, name string) (*File, error) {
	f, err := os.CreateTemp(dir, "yeetyoink-"+name+"-*.tmp")
	if err != nil {
		return nil, errors.Join(ErrFileSystem, err)
	}
	return &File{
		path:       f.Name(),
		notify:     make(chan struct{}),
		writerFile: f,
	}, nil
}

// Path returns the on-disk path of the backing file, for log correlation.
func (f *File) Path() string {
	return f.path
}

// wake closes the current notify channel (waking every reader blocked on
// it) and installs a fresh one. Must be called with f.mu held.
func (f *File) wake() {
	close(f.notify)
	f.notify = make(chan struct{})
}

// snapshot reads the current state and notify channel under the lock.
func (f *File) snapshot() (status, int64, int64, chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.pending, f.final, f.notify
}

// Writer obtains the exclusive write half of f. At most one Writer may be
// live at a time; a second call fails with ErrAlreadyWriting.
func (f *File) Writer() (*Writer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writerTaken {
		return nil, ErrAlreadyWriting
	}
	f.writerTaken = true
	return &Writer{file: f}, nil
}

// Reader obtains an independent read half positioned at offset 0. Any
// number may be live concurrently; each gets its own OS file descriptor
// and read position.
func (f *File) Reader() (*Reader, error) {
	rf, err := os.Open(f.path)
	if err != nil {
		return nil, errors.Join(ErrFileSystem, err)
	}
	return &Reader{file: f, fd: rf}, nil
}

// Remove deletes the backing file from disk. The caller must ensure the
// writer has been closed/finalized first; open readers keep their own fd
// and are unaffected by the directory entry's removal (spec.md §4.D: "the
// Record's departure does not truncate [readers]").
func (f *File) Remove() error {
	return os.Remove(f.path)
}

// Writer is the exclusive write half of a File.
type Writer struct {
	file *File
}

// Write appends bytes to the file, updates the Pending byte count, and
// wakes every reader currently suspended on end-of-data. A zero-length
// write is a no-op and never alters state or returns ErrBrokenPipe, even
// against an already-terminal file (spec.md §4.A edge cases).
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.file.mu.Lock()
	if w.file.status != statusPending {
		w.file.mu.Unlock()
		return 0, ErrBrokenPipe
	}
	w.file.mu.Unlock()

	n, err := w.file.writerFile.Write(p)

	w.file.mu.Lock()
	if n > 0 {
		w.file.pending += int64(n)
		w.file.wake()
	}
	w.file.mu.Unlock()

	if err != nil {
		return n, err
	}
	return n, nil
}

// WriteV writes each buffer in order, returning the total bytes the OS
// reported written across all of them (spec.md §4.A: "Vectored writes ...
// update the count by the total bytes reported by the OS").
func (w *Writer) WriteV(buffers [][]byte) (int64, error) {
	var total int64
	for _, buf := range buffers {
		n, err := w.Write(buf)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// SyncData flushes written data to the OS without forcing a metadata
// update. It never changes the file's state.
func (w *Writer) SyncData() error {
	return fsync.DataSync(w.file.writerFile)
}

// Finalize transitions Pending -> Completed with the accumulated byte
// count. In Sync mode it flushes data and metadata first. Once Finalize
// returns successfully, further Write calls fail with ErrBrokenPipe.
func (w *Writer) Finalize(mode FinalizeMode) (int64, error) {
	w.file.mu.Lock()
	if w.file.status != statusPending {
		w.file.mu.Unlock()
		return 0, ErrAlreadyFinalized
	}
	w.file.mu.Unlock()

	if mode == Sync {
		if err := w.file.writerFile.Sync(); err != nil {
			return 0, err
		}
	}

	w.file.mu.Lock()
	defer w.file.mu.Unlock()
	if w.file.status != statusPending {
		return 0, ErrAlreadyFinalized
	}
	w.file.final = w.file.pending
	w.file.status = statusCompleted
	w.file.wake()
	return w.file.final, nil
}

// Abort transitions the file to Failed if it is still Pending; it is a
// no-op otherwise. This is the writer's half of the drop contract
// (spec.md §4.A "writer.drop"): callers invoke it from a defer so an
// abandoned upload (panic, cancelled request, forgotten Finalize) always
// leaves the file in a terminal state instead of stuck Pending forever.
func (w *Writer) Abort() {
	w.file.mu.Lock()
	defer w.file.mu.Unlock()
	if w.file.status != statusPending {
		return
	}
	w.file.status = statusFailed
	w.file.wake()
}

// Close releases the writer's own file descriptor. Call after Finalize or
// Abort; it does not change the Shared Temp File's state.
func (w *Writer) Close() error {
	return w.file.writerFile.Close()
}

// Reader is an independent read half of a File, positioned at offset 0.
type Reader struct {
	file   *File
	fd     *os.File
	offset int64
}

// Read implements suspendable reads over the growing file (spec.md §4.A
// "reader suspension"): when the reader has consumed every byte published
// so far and the file is still Pending, it waits on the file's current
// notify channel rather than polling; on Completed it behaves as an
// ordinary bounded read; on Failed it returns ErrReadFailed.
func (r *Reader) Read(ctx context.Context, buf []byte) (int, error) {
	for {
		st, pending, final, notify := r.file.snapshot()

		switch st {
		case statusFailed:
			return 0, ErrReadFailed
		case statusCompleted:
			if r.offset >= final {
				return 0, io.EOF
			}
			return r.readAt(buf, final)
		default: // statusPending
			if r.offset < pending {
				return r.readAt(buf, pending)
			}
			// Caught up to the writer: wait for the next publish, re-checking
			// state inside the loop to avoid a lost wake-up if the writer
			// published between our snapshot and this select.
			select {
			case <-notify:
				continue
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}
}

func (r *Reader) readAt(buf []byte, upto int64) (int, error) {
	available := upto - r.offset
	toRead := int64(len(buf))
	if toRead > available {
		toRead = available
	}
	n, err := r.fd.ReadAt(buf[:toRead], r.offset)
	if n > 0 {
		r.offset += int64(n)
	}
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Close releases the reader's file descriptor.
func (r *Reader) Close() error {
	return r.fd.Close()
}
