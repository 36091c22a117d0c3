//go:build windows
// +build windows

package wakeup

import "sync/atomic"

// New creates a channel-backed Wakeup for windows, where neither eventfd nor
// a Unix self-pipe exists. FD returns -1: there is no built-in poll
// primitive on this platform (see internal/poller's windows stub), so an
// embedder supplying its own PollFunc via WithPollFunc is expected to also
// select on the Notify channel directly rather than treat this as a
// descriptor.
func New() (Wakeup, error) {
	return &chanWakeup{notify: make(chan struct{}, 1)}, nil
}

type chanWakeup struct {
	pending int32
	notify  chan struct{}
}

func (w *chanWakeup) Signal() error {
	if atomic.SwapInt32(&w.pending, 1) == 1 {
		return nil
	}
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return nil
}

func (w *chanWakeup) Acknowledge() error {
	select {
	case <-w.notify:
	default:
	}
	// Clear pending only after draining (see wakeup_linux.go).
	atomic.StoreInt32(&w.pending, 0)
	return nil
}

func (w *chanWakeup) FD() int { return -1 }

func (w *chanWakeup) Close() error { return nil }

// Notify exposes the underlying channel for a windows-specific PollFunc that
// wants to select on it directly instead of polling FD().
func (w *chanWakeup) Notify() <-chan struct{} { return w.notify }
