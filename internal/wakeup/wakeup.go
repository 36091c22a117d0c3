// Package wakeup provides the thread-safe, edge-triggered notifier used to
// interrupt a Context's poll in progress. It mirrors the role netpoll's
// eventfd-backed wop plays for defaultPoll.Wait: a single descriptor that
// becomes readable exactly once per burst of signals and is drained on
// acknowledge.
package wakeup

// Wakeup is the cross-thread notifier a Context installs into its poll-record
// set so an in-progress poll returns promptly when a non-owner mutates the
// context. Signal is idempotent and async-signal-safe; Acknowledge drains any
// pending notification (possibly several coalesced signals).
type Wakeup interface {
	// Signal wakes a blocked poll. Safe to call with nobody waiting; the
	// notification is coalesced and observed by the next Acknowledge.
	Signal() error
	// Acknowledge drains the notification. Called by the context after the
	// poll observes the wakeup descriptor readable.
	Acknowledge() error
	// FD is the pollable descriptor to add as a readable-only watch.
	FD() int
	// Close releases the underlying descriptor(s).
	Close() error
}
