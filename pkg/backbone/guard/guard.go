// Package guard implements the Writer Guard (spec.md §4.C): the
// integrity and cancellation contract sitting between the HTTP handler
// streaming a request body and the Record coordinating that file's
// lifecycle.
//
// Go has no destructors, so the "drop sends Failed unless a terminal
// signal was already sent" contract (spec.md §9 "Writer Guard as a
// scoped resource") is implemented with an explicit Close method that
// callers invoke from a defer immediately after obtaining the guard:
//
//	g := guard.New(id, fw, outcome, lease, declared, fileName, contentType)
//	defer g.Close()
//	...
//	summary, err := g.Finalize(sharedfile.Sync)
//
// Close after a successful Finalize (or after a Write already signalled
// failure) sends no further signal and releases the writer's descriptor;
// Close after neither is the abandonment path and sends Failed.
package guard

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/backboneerr"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

// errAbandoned is the sentinel reported when a Guard is closed without a
// prior call to Finalize: the HTTP request was cancelled, panicked, or
// otherwise abandoned mid-stream.
var errAbandoned = errors.New("guard: upload abandoned before finalize")

// Outcome is the one-shot message a Guard delivers to its Record: either
// a completed Summary or a terminal error.
type Outcome struct {
	Summary digest.Summary
	Err     error
}

// Declared holds the client-asserted content length and MD5, both
// optional, checked at finalize time (and, for length, on every write).
type Declared struct {
	HasLength bool
	Length    int64
	HasMD5    bool
	MD5Hex    string
}

// Guard is the Writer Guard. Obtain one from backbone admission; it owns
// the Digesting Writer for the lifetime of one upload.
type Guard struct {
	id       string
	fw       *digest.FileWriter
	outcome  chan<- Outcome
	lease    time.Duration
	declared Declared

	fileName    string
	contentType string

	mu      sync.Mutex
	written int64

	sendOnce sync.Once
}

// New constructs a Guard bound to outcome, a buffered one-shot channel
// the caller creates alongside the Record that will receive this
// upload's terminal signal. outcome must have capacity for at least one
// message so Finalize and Close never block on a Record that is not yet
// listening.
func New(id string, fw *digest.FileWriter, outcome chan<- Outcome, lease time.Duration, declared Declared, fileName, contentType string) *Guard {
	return &Guard{
		id:          id,
		fw:          fw,
		outcome:     outcome,
		lease:       lease,
		declared:    declared,
		fileName:    fileName,
		contentType: contentType,
	}
}

// Write appends a chunk. If a declared content length is set and this
// chunk would exceed it, no bytes are written and the guard signals
// Failed with UnexpectedEOF.
func (g *Guard) Write(p []byte) (int, error) {
	if g.declared.HasLength {
		g.mu.Lock()
		over := g.written+int64(len(p)) > g.declared.Length
		g.mu.Unlock()
		if over {
			err := backboneerr.New("write", g.id, backboneerr.ErrUnexpectedEOF)
			g.signalFailed(err)
			return 0, err
		}
	}

	n, err := g.fw.Write(p)
	g.mu.Lock()
	g.written += int64(n)
	g.mu.Unlock()

	if err != nil {
		g.signalFailed(backboneerr.New("write", g.id, err))
		return n, err
	}
	return n, nil
}

// Finalize consumes the guard: it finalizes the Digesting Writer, checks
// the declared length and MD5 if present, and sends exactly one terminal
// signal (Success or Failed) before returning.
func (g *Guard) Finalize(mode sharedfile.FinalizeMode) (digest.Summary, error) {
	summary, err := g.fw.Finalize(mode, g.lease, g.fileName, g.contentType)
	if err != nil {
		wrapped := backboneerr.New("finalize", g.id, errors.Join(backboneerr.ErrFinalizeSyncFailed, err))
		g.signalFailed(wrapped)
		return digest.Summary{}, wrapped
	}

	if g.declared.HasLength && g.declared.Length != summary.FileSizeBytes {
		wrapped := backboneerr.NewMismatch("finalize", g.id,
			strconv.FormatInt(g.declared.Length, 10), strconv.FormatInt(summary.FileSizeBytes, 10), backboneerr.ErrInvalidFileLength)
		g.signalFailed(wrapped)
		return digest.Summary{}, wrapped
	}

	if g.declared.HasMD5 && g.declared.MD5Hex != summary.MD5 {
		wrapped := backboneerr.NewMismatch("finalize", g.id,
			g.declared.MD5Hex, summary.MD5, backboneerr.ErrIntegrityCheckFailed)
		g.signalFailed(wrapped)
		return digest.Summary{}, wrapped
	}

	g.sendOnce.Do(func() {
		g.outcome <- Outcome{Summary: summary}
	})
	return summary, nil
}

// Close is the guard's drop contract: if neither Write nor Finalize has
// already sent a terminal signal, it aborts the backing file and sends
// Failed. Safe to call unconditionally from a defer; idempotent after a
// signal has already gone out.
func (g *Guard) Close() error {
	g.fw.Abort()
	g.signalFailed(backboneerr.New("drop", g.id, errAbandoned))
	return g.fw.Close()
}

func (g *Guard) signalFailed(err error) {
	g.sendOnce.Do(func() {
		g.outcome <- Outcome{Err: err}
	})
}
