// Package backbone implements the Backbone (spec.md §4.F): the
// long-lived owner of the file registry, driven by a bounded command
// queue carrying RemoveWriter, ReadyForDistribution, and ReceiveFile.
//
// spec.md §9 models the registry as mutated only by the Backbone's own
// task. A literal single-goroutine-owns-the-map translation would force
// Admission and Lookup — which must answer synchronously to an HTTP
// handler — through the same command queue as the asynchronous
// RemoveWriter/ReadyForDistribution traffic, adding a round trip for no
// benefit. Idiomatic Go reaches for a mutex instead: registry mutations
// go through Backbone.mu from whichever goroutine calls them (the HTTP
// handler for admission/lookup, the command loop for RemoveWriter), and
// the bounded channel is reserved for the traffic that genuinely needs
// to be queued — Records reporting their own outcome asynchronously from
// background goroutines.
package backbone

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/backboneerr"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/command"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/guard"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/record"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

// CommandQueueSize is the bounded capacity of the Backbone's inbound
// command channel (spec.md §5 "Bounded queues").
const CommandQueueSize = 1024

// ActiveFilesMeter tracks the number of live Records, satisfied by
// pkg/metrics.Metrics (a nil *Metrics is itself a valid no-op meter).
type ActiveFilesMeter interface {
	IncActiveFiles()
	DecActiveFiles()
}

// Config configures a Backbone.
type Config struct {
	TempDir string
	Lease   time.Duration
	Meter   record.TransferMeter
	Active  ActiveFilesMeter
}

// Backbone owns the file registry and the single command queue that
// Records use to report RemoveWriter and ReadyForDistribution.
type Backbone struct {
	ctx context.Context

	tempDir string
	lease   time.Duration
	meter   record.TransferMeter
	active  ActiveFilesMeter

	mu      sync.Mutex
	records map[string]*record.Record

	commands chan command.Command

	dispatchMu sync.RWMutex
	dispatch   chan<- command.DispatchCommand

	stopped chan struct{}
}

// New constructs a Backbone whose Records are all spawned against ctx —
// the process's run lifetime, not any individual request. Run takes no
// context of its own and stops when this ctx is cancelled; ctx is taken
// here, at construction, so it is available before the first NewFile call can
// possibly race with Run's goroutine starting (spec.md §4.D: a Record's
// lease wait and shutdown checks key off process shutdown, never off an
// inbound HTTP request's context, which the standard library cancels the
// instant the handler that created the Record returns). Call Run to start
// the command loop before accepting traffic.
func New(ctx context.Context, cfg Config) *Backbone {
	return &Backbone{
		ctx:      ctx,
		tempDir:  cfg.TempDir,
		lease:    cfg.Lease,
		meter:    cfg.Meter,
		active:   cfg.Active,
		records:  make(map[string]*record.Record),
		commands: make(chan command.Command, CommandQueueSize),
		stopped:  make(chan struct{}),
	}
}

// SetDispatchChannel wires the Backend Dispatcher's inbound channel.
// Must be called once during startup before Run; ReadyForDistribution
// and ReceiveFile are logged and dropped until this is set.
func (b *Backbone) SetDispatchChannel(ch chan<- command.DispatchCommand) {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()
	b.dispatch = ch
}

// DrainGracePeriod bounds how long the command loop keeps servicing the
// queue after its context is cancelled, so a Record whose send raced the
// shutdown signal still has a window to deliver its final command rather
// than being dropped the instant shutdown begins (spec.md §9 "Shutdown":
// in-flight uploads finish and drain through the Backbone before the
// barrier resolves).
const DrainGracePeriod = 5 * time.Second

// Run starts the command loop and blocks until its context (the one
// passed to New) is cancelled and the queue has drained. Intended to be
// run in its own goroutine.
func (b *Backbone) Run() {
	defer close(b.stopped)
	for {
		select {
		case cmd, ok := <-b.commands:
			if !ok {
				return
			}
			b.handle(cmd)
		case <-b.ctx.Done():
			b.drain()
			return
		}
	}
}

// Stopped is closed once Run has returned.
func (b *Backbone) Stopped() <-chan struct{} {
	return b.stopped
}

// drain keeps servicing the command queue for up to DrainGracePeriod
// after shutdown begins, rather than returning the instant the queue
// looks empty, since a Record can still be mid-send (see record.send's
// own grace period) when the context is cancelled.
func (b *Backbone) drain() {
	deadline := time.NewTimer(DrainGracePeriod)
	defer deadline.Stop()
	for {
		select {
		case cmd := <-b.commands:
			b.handle(cmd)
		case <-deadline.C:
			return
		}
	}
}

func (b *Backbone) handle(cmd command.Command) {
	switch c := cmd.(type) {
	case command.RemoveWriter:
		b.mu.Lock()
		_, existed := b.records[c.ID]
		delete(b.records, c.ID)
		b.mu.Unlock()
		if existed && b.active != nil {
			b.active.DecActiveFiles()
		}
	case command.ReadyForDistribution:
		b.forwardDistribute(c.ID, c.Summary)
	case command.ReceiveFile:
		b.forwardFetch(c.ID)
	}
}

func (b *Backbone) forwardDistribute(id string, summary digest.Summary) {
	b.dispatchMu.RLock()
	ch := b.dispatch
	b.dispatchMu.RUnlock()
	if ch == nil {
		logger.Warn("no dispatcher registered, dropping distribution notice", "file_id", id)
		return
	}
	select {
	case ch <- command.DistributeFile{ID: id, Summary: summary}:
	default:
		logger.Warn("dispatcher queue full, dropping distribution notice", "file_id", id)
	}
}

func (b *Backbone) forwardFetch(id string) {
	b.dispatchMu.RLock()
	ch := b.dispatch
	b.dispatchMu.RUnlock()
	if ch == nil {
		logger.Debug("no dispatcher registered, dropping fetch request", "file_id", id)
		return
	}
	select {
	case ch <- command.FetchFile{ID: id}:
	default:
		logger.Warn("dispatcher queue full, dropping fetch request", "file_id", id)
	}
}

// NewFile is the Admission operation (spec.md §4.F): it creates a Shared
// Temp File named by id, obtains its writer, and atomically inserts a
// new Record keyed by id. A colliding id fails with
// InternalErrorMayRetry and releases both the writer and the file.
//
// ctx scopes the admission call itself, not the Record it spawns: the
// Record it creates is tied to the Backbone's own long-lived context
// (the one passed to New), since ctx here is the calling HTTP handler's
// request context and is cancelled the instant that handler returns —
// long before the Record's lease window or the process's shutdown.
func (b *Backbone) NewFile(ctx context.Context, id string, declared guard.Declared, fileName, contentType string) (*guard.Guard, error) {
	f, err := sharedfile.Open(b.tempDir, id)
	if err != nil {
		return nil, backboneerr.New("new_file", id, errors.Join(backboneerr.ErrFailedCreatingFile, err))
	}

	w, err := f.Writer()
	if err != nil {
		_ = f.Remove()
		return nil, backboneerr.New("new_file", id, errors.Join(backboneerr.ErrFailedCreatingWriter, err))
	}

	b.mu.Lock()
	if _, exists := b.records[id]; exists {
		b.mu.Unlock()
		w.Abort()
		_ = w.Close()
		_ = f.Remove()
		return nil, backboneerr.New("new_file", id, backboneerr.ErrInternalErrorMayRetry)
	}

	outcome := make(chan guard.Outcome, 1)
	rec := record.New(b.ctx, id, f, outcome, b.lease, b.commands, nil)
	b.records[id] = rec
	b.mu.Unlock()

	if b.active != nil {
		b.active.IncActiveFiles()
	}

	fw := digest.WrapFile(w)
	return guard.New(id, fw, outcome, b.lease, declared, fileName, contentType), nil
}

// GetFile is the Lookup operation (spec.md §4.F): if a Record exists, it
// returns a File Reader over its current Shared Temp File handle. If no
// Record exists, it forwards a ReceiveFile request to the Dispatcher and
// returns UnknownFile; awaiting the Dispatcher's reply is not part of
// the current contract (spec.md §9(a)).
func (b *Backbone) GetFile(id string) (*record.Reader, error) {
	b.mu.Lock()
	rec, ok := b.records[id]
	b.mu.Unlock()

	if !ok {
		b.forwardFetch(id)
		return nil, backboneerr.New("get_file", id, backboneerr.ErrUnknownFile)
	}

	reader, err := rec.GetReader(b.meter)
	if err != nil {
		return nil, backboneerr.New("get_file", id, errors.Join(backboneerr.ErrFileExpired, err))
	}
	return reader, nil
}

// LiveRecordCount reports the number of records currently tracked, for
// the health endpoint's diagnostic payload.
func (b *Backbone) LiveRecordCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
