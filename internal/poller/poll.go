// Package poller supplies the injectable OS-level multiplex primitive: given
// a flat array of (descriptor, requested, received) triples and a
// millisecond timeout, block until one is ready (or
// the timeout elapses) and fill in the received masks. It intentionally does
// NOT keep persistent kernel-side registration the way netpoll's epoll-backed
// FDOperator does — the context recomputes and re-submits the whole array
// every iteration, matching the classic poll(2)/GPollFunc contract the
// original main-loop core is built on.
package poller

// IOEvent is the event mask vocabulary shared by the poll primitive and the
// public descriptor-watch API.
type IOEvent uint32

const (
	Readable IOEvent = 1 << iota
	Writable
	Priority
	Error
	Hangup
	Invalid
)

// RequestMask is the set of bits a caller may legitimately request; Error,
// Hangup and Invalid are always unsolicited and are OR'd into the received
// mask regardless of what was requested.
const RequestMask = Readable | Writable | Priority
const UnsolicitedMask = Error | Hangup | Invalid

// FD is one poll entry.
type FD struct {
	Fd        int
	Requested IOEvent
	Received  IOEvent
}

// Func is the injectable poll primitive's signature. timeoutMS follows the
// poll(2) convention: -1 blocks indefinitely, 0 returns immediately. Returns
// the number of descriptors with a nonzero received mask, or -1 (with err
// set) on failure. EINTR is reported as err so callers can special-case it
// rather than having it retried internally.
type Func func(fds []FD, timeoutMS int) (int, error)
