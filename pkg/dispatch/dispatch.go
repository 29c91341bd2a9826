package dispatch

import (
	"context"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/command"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
)

// CommandQueueSize is the bounded capacity of the Dispatcher's inbound
// channel (spec.md §5 "Bounded queues").
const CommandQueueSize = 64

// Dispatcher fans completed uploads out to every configured backend, in
// registration order, best-effort with no retry (spec.md §9(b)).
type Dispatcher struct {
	backends []Backend
	accessor Accessor
	commands chan command.DispatchCommand
	stopped  chan struct{}
}

// New constructs a Dispatcher over backends, in the priority order they
// are passed, using accessor to read files back through the Backbone.
func New(backends []Backend, accessor Accessor) *Dispatcher {
	return &Dispatcher{
		backends: backends,
		accessor: accessor,
		commands: make(chan command.DispatchCommand, CommandQueueSize),
		stopped:  make(chan struct{}),
	}
}

// Commands returns the channel the Backbone should be wired to via
// Backbone.SetDispatchChannel.
func (d *Dispatcher) Commands() chan<- command.DispatchCommand {
	return d.commands
}

// Stopped is closed once Run has returned.
func (d *Dispatcher) Stopped() <-chan struct{} {
	return d.stopped
}

// Run processes commands until ctx is cancelled and the queue drains.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.stopped)
	for {
		select {
		case cmd, ok := <-d.commands:
			if !ok {
				return
			}
			d.handle(ctx, cmd)
		case <-ctx.Done():
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-d.commands:
			d.handle(ctx, cmd)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, cmd command.DispatchCommand) {
	switch c := cmd.(type) {
	case command.DistributeFile:
		d.distribute(ctx, c.ID, c.Summary)
	case command.FetchFile:
		logger.Debug("fetch request received, no reply path wired", "file_id", c.ID)
	}
}

// distribute invokes every backend's Distribute in registration order.
// A backend error is logged with its tag and does not stop the fan-out
// or affect the already-completed upload (spec.md §7 "Propagation
// policy").
func (d *Dispatcher) distribute(ctx context.Context, id string, summary digest.Summary) {
	for _, b := range d.backends {
		if err := b.Distribute(ctx, id, summary, d.accessor); err != nil {
			logger.Warn("backend distribution failed", "file_id", id, "backend", b.Tag(), "error", err)
		}
	}
}
