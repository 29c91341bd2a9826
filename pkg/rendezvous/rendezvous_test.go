package rendezvous

import (
	"testing"
	"time"
)

func TestWaitBlocksUntilAllGuardsComplete(t *testing.T) {
	r := New()
	g1 := r.Fork()
	g2 := r.Fork()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before any guard completed")
	case <-time.After(20 * time.Millisecond):
	}

	g1.Completed()

	select {
	case <-done:
		t.Fatal("Wait returned before the second guard completed")
	case <-time.After(20 * time.Millisecond):
	}

	g2.Completed()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after both guards completed")
	}
}

func TestCompletedIsIdempotent(t *testing.T) {
	r := New()
	g := r.Fork()

	g.Completed()
	g.Completed() // must not panic or double-count

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestNoForksResolvesImmediately(t *testing.T) {
	r := New()
	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait on an empty barrier did not return")
	}
}
