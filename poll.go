package gloop

import "github.com/gloopcore/gloop/internal/poller"

// IOEvent is the event mask vocabulary used by descriptor watches and the
// injectable poll primitive.
type IOEvent = poller.IOEvent

const (
	IOReadable IOEvent = poller.Readable
	IOWritable IOEvent = poller.Writable
	IOPriority IOEvent = poller.Priority
	IOError    IOEvent = poller.Error
	IOHangup   IOEvent = poller.Hangup
	IOInvalid  IOEvent = poller.Invalid
)

// PollFD is one entry of the array passed to an injected PollFunc.
type PollFD = poller.FD

// PollFunc is the injectable OS-level multiplex primitive: classic poll(2)
// contract, -1 timeout meaning "block indefinitely".
type PollFunc = poller.Func

// DefaultPollFunc is the built-in poll(2)-based primitive used when no
// WithPollFunc option is supplied.
func DefaultPollFunc(fds []PollFD, timeoutMS int) (int, error) {
	return poller.Default(fds, timeoutMS)
}
