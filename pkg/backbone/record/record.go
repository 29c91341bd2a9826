// Package record implements the File Record (spec.md §4.D): the per-file
// coordinator spawned on admission that owns a Shared Temp File for its
// lease window and tears it down afterward.
package record

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/command"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/guard"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

// ErrFileExpired is returned by GetReader once the Record has released
// its Shared Temp File.
var ErrFileExpired = errors.New("record: file already released")

// Record is the per-file lifecycle coordinator. Construct with New,
// which immediately spawns the lifecycle goroutine described in
// spec.md §4.D.
type Record struct {
	id        string
	createdAt time.Time
	lease     time.Duration
	file      *sharedfile.File
	commands  chan<- command.Command

	mu       sync.RWMutex
	summary  *digest.Summary
	released bool
	failed   bool

	done chan struct{} // closed when the lifecycle goroutine exits
}

// New creates a Record for id and starts its lifecycle goroutine. outcome
// is the Guard's one-shot channel; commands is the Backbone's inbound
// channel, used to report RemoveWriter and ReadyForDistribution. onExit
// (a rendezvous guard release, or nil) is called when the lifecycle
// goroutine exits, whatever the outcome.
func New(ctx context.Context, id string, file *sharedfile.File, outcome <-chan guard.Outcome, lease time.Duration, commands chan<- command.Command, onExit func()) *Record {
	r := &Record{
		id:        id,
		createdAt: time.Now(),
		lease:     lease,
		file:      file,
		commands:  commands,
		done:      make(chan struct{}),
	}
	go r.lifecycle(ctx, outcome, onExit)
	return r
}

func (r *Record) lifecycle(ctx context.Context, outcome <-chan guard.Outcome, onExit func()) {
	defer close(r.done)
	if onExit != nil {
		defer onExit()
	}

	result, ok := <-outcome
	if !ok || result.Err != nil {
		if ok {
			logger.WarnCtx(ctx, "upload failed before completion", "file_id", r.id, "error", result.Err)
		}
		r.mu.Lock()
		r.failed = true
		r.mu.Unlock()
		r.release()
		r.send(ctx, command.RemoveWriter{ID: r.id})
		return
	}

	r.mu.Lock()
	r.summary = &result.Summary
	r.mu.Unlock()

	r.send(ctx, command.ReadyForDistribution{ID: r.id, Summary: result.Summary})

	deadline := r.createdAt.Add(r.lease)
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	r.release()
	r.send(ctx, command.RemoveWriter{ID: r.id})
}

// sendGracePeriod bounds how long send keeps trying to deliver cmd after
// ctx is cancelled, mirroring Backbone's own DrainGracePeriod so an
// in-flight ReadyForDistribution or RemoveWriter racing shutdown still
// has a window to land instead of being dropped the instant the
// process starts shutting down (spec.md §9 "Shutdown").
const sendGracePeriod = 5 * time.Second

// send forwards cmd to the Backbone. If ctx is cancelled before the send
// completes, it keeps trying for sendGracePeriod before giving up — the
// Backbone's own command loop drains for the same window past shutdown,
// so this is not a race against an already-closed queue. The Backbone's
// queue is bounded but always drained by its own loop, so a plain
// blocking send never deadlocks in steady state.
func (r *Record) send(ctx context.Context, cmd command.Command) {
	select {
	case r.commands <- cmd:
		return
	case <-ctx.Done():
	}

	grace, cancel := context.WithTimeout(context.Background(), sendGracePeriod)
	defer cancel()
	select {
	case r.commands <- cmd:
	case <-grace.Done():
		logger.Debug("dropping command after shutdown grace period", "file_id", r.id)
	}
}

// release removes the backing Shared Temp File exactly once. Readers
// that already hold their own fd are unaffected (spec.md §4.D: "the
// Record's departure does not truncate them").
func (r *Record) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	if err := r.file.Remove(); err != nil {
		logger.Warn("failed removing backing file", "file_id", r.id, "error", err)
	}
}

// GetReader returns a File Reader over the current Shared Temp File, or
// ErrFileExpired if the Record has already released it.
func (r *Record) GetReader(meter TransferMeter) (*Reader, error) {
	r.mu.RLock()
	released := r.released
	summary := r.summary
	r.mu.RUnlock()

	if released {
		return nil, ErrFileExpired
	}

	fr, err := r.file.Reader()
	if err != nil {
		return nil, err
	}
	return &Reader{
		fr:        fr,
		record:    r,
		createdAt: r.createdAt,
		lease:     r.lease,
		summary:   summary,
		meter:     meter,
	}, nil
}

// Summary returns a snapshot of the Write Summary, or nil if the upload
// has not completed yet.
func (r *Record) Summary() *digest.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summary
}

// Failed reports whether the upload terminated with an error.
func (r *Record) Failed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failed
}

// ID returns the file identifier this Record coordinates.
func (r *Record) ID() string {
	return r.id
}

// Done returns a channel closed once the lifecycle goroutine has exited,
// for tests and the rendezvous barrier to observe completion.
func (r *Record) Done() <-chan struct{} {
	return r.done
}
