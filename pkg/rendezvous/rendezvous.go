// Package rendezvous implements the structured-shutdown barrier of
// spec.md §4.I: every long-lived task (the Backbone command loop, the
// Dispatcher loop, the HTTP server's accept loop) forks a guard before it
// starts and marks it completed when it exits. The process's shutdown
// path waits on the barrier instead of guessing how long teardown takes.
//
// Go has no async task supervisor to borrow this from directly, so it is
// built on sync.WaitGroup: fork == Add(1), complete == Done, wait == Wait.
// The indirection over a bare WaitGroup exists only to give each fork its
// own named Guard, matching the fork_guard/completed vocabulary and
// making a guard that is never completed (a leaked goroutine) easy to
// grep for in code review.
package rendezvous

import "sync"

// Rendezvous is the root of a fork-joinable shutdown barrier.
type Rendezvous struct {
	wg sync.WaitGroup
}

// New creates an empty barrier with no outstanding guards.
func New() *Rendezvous {
	return &Rendezvous{}
}

// Fork registers a new outstanding guard. Call before starting the task
// it tracks.
func (r *Rendezvous) Fork() *Guard {
	r.wg.Add(1)
	return &Guard{wg: &r.wg}
}

// Wait blocks until every forked guard has been completed.
func (r *Rendezvous) Wait() {
	r.wg.Wait()
}

// Guard is a single outstanding fork. It must be marked Completed exactly
// once, normally via a deferred call at the top of the goroutine it
// guards.
type Guard struct {
	wg   *sync.WaitGroup
	once sync.Once
}

// Completed releases this guard. Safe to call more than once; only the
// first call counts toward the barrier.
func (g *Guard) Completed() {
	g.once.Do(g.wg.Done)
}
