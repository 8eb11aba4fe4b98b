package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/yarokim83/filemanager/optypes"
)

// Recorder collects progress events from a channel until it is closed.
type Recorder struct {
	mu      sync.Mutex
	events  []optypes.ProgressEvent
	changed chan struct{}
	done    chan struct{}
}

// NewRecorder starts draining events in the background.
func NewRecorder(events <-chan optypes.ProgressEvent) *Recorder {
	r := &Recorder{
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for ev := range events {
			r.mu.Lock()
			r.events = append(r.events, ev)
			close(r.changed)
			r.changed = make(chan struct{})
			r.mu.Unlock()
		}
	}()
	return r
}

// Events returns every event recorded for opID, in arrival order. An empty
// opID returns all events.
func (r *Recorder) Events(opID string) []optypes.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []optypes.ProgressEvent
	for _, ev := range r.events {
		if opID == "" || ev.OpID == opID {
			out = append(out, ev)
		}
	}
	return out
}

// WaitFor blocks until an event for opID satisfying match has been recorded
// and returns it. It fails the test after timeout.
func (r *Recorder) WaitFor(
	t *testing.T,
	opID string,
	timeout time.Duration,
	match func(optypes.ProgressEvent) bool,
) optypes.ProgressEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		for _, ev := range r.events {
			if ev.OpID == opID && match(ev) {
				r.mu.Unlock()
				return ev
			}
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-r.done:
			t.Fatalf("event stream closed before a matching event for %s", opID)
			return optypes.ProgressEvent{}
		case <-deadline:
			t.Fatalf("timed out waiting for event for %s", opID)
			return optypes.ProgressEvent{}
		}
	}
}

// WaitTerminal blocks until the done or error event for opID arrives.
func (r *Recorder) WaitTerminal(t *testing.T, opID string, timeout time.Duration) optypes.ProgressEvent {
	t.Helper()
	return r.WaitFor(t, opID, timeout, func(ev optypes.ProgressEvent) bool {
		return ev.Phase.Terminal()
	})
}

// WaitCount blocks until n events for opID have been recorded.
func (r *Recorder) WaitCount(t *testing.T, opID string, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		seen := 0
		for _, ev := range r.events {
			if ev.OpID == opID {
				seen++
			}
		}
		changed := r.changed
		r.mu.Unlock()
		if seen >= n {
			return
		}

		select {
		case <-changed:
		case <-r.done:
			t.Fatalf("event stream closed after %d of %d events for %s", seen, n, opID)
			return
		case <-deadline:
			t.Fatalf("timed out after %d of %d events for %s", seen, n, opID)
			return
		}
	}
}
