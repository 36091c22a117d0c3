//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly
// +build linux darwin freebsd netbsd openbsd dragonfly

package poller

import "golang.org/x/sys/unix"

func toUnix(e IOEvent) int16 {
	var r int16
	if e&Readable != 0 {
		r |= unix.POLLIN
	}
	if e&Writable != 0 {
		r |= unix.POLLOUT
	}
	if e&Priority != 0 {
		r |= unix.POLLPRI
	}
	return r
}

func fromUnix(e int16) IOEvent {
	var r IOEvent
	if e&unix.POLLIN != 0 {
		r |= Readable
	}
	if e&unix.POLLOUT != 0 {
		r |= Writable
	}
	if e&unix.POLLPRI != 0 {
		r |= Priority
	}
	if e&unix.POLLERR != 0 {
		r |= Error
	}
	if e&unix.POLLHUP != 0 {
		r |= Hangup
	}
	if e&unix.POLLNVAL != 0 {
		r |= Invalid
	}
	return r
}

// Default wraps unix.Poll, the classic poll(2) syscall used as the
// context's default injected poll function.
func Default(fds []FD, timeoutMS int) (int, error) {
	raw := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		raw[i] = unix.PollFd{Fd: int32(f.Fd), Events: toUnix(f.Requested)}
	}
	n, err := unix.Poll(raw, timeoutMS)
	for i := range raw {
		fds[i].Received = fromUnix(raw[i].Revents)
	}
	return n, err
}
