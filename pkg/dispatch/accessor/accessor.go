// Package accessor implements the Accessor Bridge (spec.md §4.H): the
// weak-reference indirection that lets distribution backends ask the
// Backbone for a File Reader without holding a strong reference to it.
//
// spec.md §9 "Cycle avoidance" names the motivation: an ownership cycle
// where backends reach the Backbone to read files, but the Backbone owns
// the Dispatcher that owns the backends. In a reference-counted runtime
// that cycle keeps everything alive forever; the fix is a weak reference
// from the Bridge to the Backbone, held strongly only by backends, so
// the Backbone's strong count can reach zero at shutdown. Go is
// garbage-collected, not reference-counted, so a literal translation
// would be a no-op — nothing here leaks regardless. The Bridge is kept
// anyway, built on the standard library's weak package (the same
// primitive a weak reference maps to), because the indirection itself is
// load-bearing: it is what lets pkg/backends/* depend only on
// dispatch.Accessor and never import pkg/backbone, preserving the
// component diagram's layering (backends reach the Backbone only through
// the Bridge).
package accessor

import (
	"context"
	"weak"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/record"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
)

// Bridge is a process-wide handle backends hold strongly. Its backbone
// slot is installed once during startup, after the Backbone has been
// constructed (spec.md §4.H: "installed once during startup after the
// Backbone exists").
type Bridge struct {
	ref weak.Pointer[backbone.Backbone]
}

// New returns an uninstalled Bridge. Call Install once the Backbone
// exists.
func New() *Bridge {
	return &Bridge{}
}

// Install points the Bridge at bb via a weak reference. Calling it again
// (e.g. on restart-in-process during tests) replaces the reference.
func (br *Bridge) Install(bb *backbone.Backbone) {
	br.ref = weak.Make(bb)
}

// GetFile upgrades the weak reference and delegates to the Backbone's
// lookup. It returns ErrBackboneUnavailable if the Backbone is no longer
// live (process shutting down) rather than UnknownFile, so backends can
// distinguish "this file doesn't exist" from "there is nowhere left to
// ask."
func (br *Bridge) GetFile(ctx context.Context, id string) (dispatch.FileStream, error) {
	bb := br.ref.Value()
	if bb == nil {
		return nil, dispatch.ErrBackboneUnavailable
	}

	r, err := bb.GetFile(id)
	if err != nil {
		return nil, err
	}
	return &readerStream{ctx: ctx, r: r}, nil
}

// readerStream adapts a record.Reader's context-carrying Read into the
// plain io.Reader shape dispatch.FileStream requires, since backends
// stream to destinations (memcached, S3) that expect an ordinary
// io.Reader.
type readerStream struct {
	ctx context.Context
	r   *record.Reader
}

func (s *readerStream) Read(p []byte) (int, error) {
	return s.r.Read(s.ctx, p)
}

func (s *readerStream) Close() error {
	return s.r.Close()
}
