//go:build !linux
// +build !linux

package poller

import "time"

// HighPrecision falls back to Default, rounding the timeout up to the
// nearest millisecond; ppoll has no portable equivalent outside linux.
func HighPrecision(fds []FD, timeout time.Duration, haveTimeout bool) (int, error) {
	ms := -1
	if haveTimeout {
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	return Default(fds, ms)
}

// HighPrecisionAvailable reports whether HighPrecision is backed by a real
// nanosecond-precision syscall on this platform.
const HighPrecisionAvailable = false
