//go:build linux
// +build linux

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

// HighPrecision wraps ppoll(2), accepting a nanosecond-granularity timeout;
// callers that want sub-millisecond deadlines should prefer it when
// HighPrecisionAvailable is true.
func HighPrecision(fds []FD, timeout time.Duration, haveTimeout bool) (int, error) {
	raw := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		raw[i] = unix.PollFd{Fd: int32(f.Fd), Events: toUnix(f.Requested)}
	}
	var ts *unix.Timespec
	if haveTimeout {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	n, err := unix.Ppoll(raw, ts, nil)
	for i := range raw {
		fds[i].Received = fromUnix(raw[i].Revents)
	}
	return n, err
}

// HighPrecisionAvailable reports whether HighPrecision is backed by a real
// nanosecond-precision syscall on this platform.
const HighPrecisionAvailable = true
