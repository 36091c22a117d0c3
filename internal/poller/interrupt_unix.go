//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly
// +build linux darwin freebsd netbsd openbsd dragonfly

package poller

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsInterrupted reports whether err is EINTR, which callers should treat as
// "no descriptors ready" rather than a real error.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}
