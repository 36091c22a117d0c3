//go:build !linux && !windows
// +build !linux,!windows

package wakeup

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// New creates a self-pipe backed Wakeup for platforms without eventfd.
func New() (Wakeup, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	return &pipeWakeup{r: fds[0], w: fds[1]}, nil
}

type pipeWakeup struct {
	r, w    int
	pending int32
}

func (p *pipeWakeup) Signal() error {
	if atomic.SwapInt32(&p.pending, 1) == 1 {
		return nil
	}
	_, err := unix.Write(p.w, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (p *pipeWakeup) Acknowledge() error {
	// Clear pending only after draining (see wakeup_linux.go).
	defer atomic.StoreInt32(&p.pending, 0)
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(p.r, buf)
		if err == unix.EAGAIN || n <= 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (p *pipeWakeup) FD() int {
	return p.r
}

func (p *pipeWakeup) Close() error {
	unix.Close(p.w)
	return unix.Close(p.r)
}
