package httpapi

import "sync/atomic"

// Readiness tracks whether the Backbone and Dispatcher command loops have
// confirmed startup, the signal SPEC_FULL.md §5 requires readiness probes
// to gate on ("readiness 503 until the Backbone and Dispatcher loops have
// confirmed startup"). cmd/yeetyoink calls the Set* methods once each
// loop's goroutine has started; the zero value reports not-ready.
type Readiness struct {
	backboneUp  atomic.Bool
	dispatchUp  atomic.Bool
	acceptYeets atomic.Bool
}

// NewReadiness returns a tracker in the not-ready, not-accepting state.
func NewReadiness() *Readiness {
	return &Readiness{}
}

// SetBackboneReady marks the Backbone command loop as running.
func (r *Readiness) SetBackboneReady(ready bool) { r.backboneUp.Store(ready) }

// SetDispatcherReady marks the Dispatcher command loop as running.
func (r *Readiness) SetDispatcherReady(ready bool) { r.dispatchUp.Store(ready) }

// SetAcceptingUploads controls whether POST /yeet accepts new uploads;
// POST /stop clears this first so in-flight uploads finish without new
// ones arriving (spec.md "stop accepting /yeet").
func (r *Readiness) SetAcceptingUploads(accepting bool) { r.acceptYeets.Store(accepting) }

// BackboneReady reports whether the Backbone loop has started.
func (r *Readiness) BackboneReady() bool { return r.backboneUp.Load() }

// DispatcherReady reports whether the Dispatcher loop has started.
func (r *Readiness) DispatcherReady() bool { return r.dispatchUp.Load() }

// AcceptingUploads reports whether POST /yeet should admit new uploads.
func (r *Readiness) AcceptingUploads() bool { return r.acceptYeets.Load() }

// Ready reports whether the process is ready to serve traffic: both
// command loops have started.
func (r *Readiness) Ready() bool {
	return r.BackboneReady() && r.DispatcherReady()
}
