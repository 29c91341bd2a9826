// Package dispatch implements the Backend Dispatcher (spec.md §4.G): the
// task that fans a completed upload out to every configured caching
// backend, and the Accessor Bridge (spec.md §4.H) backends use to read
// the file back from the Backbone.
package dispatch

import (
	"context"
	"errors"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
)

// Errors a Backend's Distribute may return. BackendRejected and
// BackendSpecific are logged per backend and never fail the upload
// itself (spec.md §7 "Propagation policy").
var (
	ErrBackendRejected = errors.New("dispatch: backend rejected the file")
	ErrFileAccessor    = errors.New("dispatch: accessor bridge could not provide a reader")
)

// Backend is the minimum contract a distribution target implements
// (spec.md §4.G "Backend contract"). Receive is optional; backends that
// cannot serve reads back return ErrNotSupported.
type Backend interface {
	// Tag identifies the backend in logs and metrics.
	Tag() string
	// Distribute obtains a reader for id via accessor and streams it to
	// the backend. It may reject upfront based on summary.FileSizeBytes.
	Distribute(ctx context.Context, id string, summary digest.Summary, accessor Accessor) error
	// Receive attempts to satisfy a lookup miss from this backend.
	Receive(ctx context.Context, id string) (FileStream, error)
}

// FileStream is a minimal readable stream a Backend.Receive can hand
// back to the Dispatcher on a successful remote fetch.
type FileStream interface {
	Read(p []byte) (int, error)
	Close() error
}

// ErrNotSupported is returned by backends that do not implement Receive.
var ErrNotSupported = errors.New("dispatch: backend does not support receive")

// Accessor is the narrow interface backends use to read a file back
// through the Accessor Bridge (spec.md §4.H), without holding a
// reference to the Backbone itself. ErrBackboneUnavailable (this
// package's own sentinel, separate from the one in
// pkg/backbone/backboneerr, so backends need not import that package) is
// returned once the Backbone's strong reference has been dropped during
// shutdown.
type Accessor interface {
	GetFile(ctx context.Context, id string) (FileStream, error)
}

// ErrBackboneUnavailable is returned by Accessor.GetFile once the weak
// reference to the Backbone can no longer be upgraded.
var ErrBackboneUnavailable = errors.New("dispatch: backbone no longer live")
