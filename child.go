package gloop

import (
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/gloopcore/gloop/internal/logging"
)

// childState is a Child-watch source's private state. When pidfd(2) is
// available it rides the ordinary descriptor-watch path like any other
// descriptor source; otherwise it falls back to the shared SIGCHLD worker in
// signal.go and Check polls a flag that worker sets.
type childState struct {
	pid    int
	pidfd  int
	watch  WatchHandle
	flag   int32
	onExit func(pid int, status syscall.WaitStatus)
}

func childCheck(s *Source) bool {
	cs := s.impl.(*childState)
	if cs.pidfd >= 0 {
		return s.QueryDescriptorWatch(cs.watch)&IOReadable != 0
	}
	return atomic.LoadInt32(&cs.flag) != 0
}

func childDispatch(s *Source, fn Func, data interface{}) DispatchResult {
	cs := s.impl.(*childState)
	var ws syscall.WaitStatus
	wpid, err := syscall.Wait4(cs.pid, &ws, syscall.WNOHANG, nil)
	if err != nil || wpid == 0 {
		// Reaped by someone else, or not yet reapable: retry on the next
		// iteration rather than report a bogus exit.
		return Keep
	}
	atomic.StoreInt32(&cs.flag, 0)
	if cs.onExit != nil {
		cs.onExit(wpid, ws)
	}
	return Remove
}

func childFinalize(s *Source) {
	cs, ok := s.impl.(*childState)
	if !ok {
		return
	}
	if cs.pidfd >= 0 {
		unix.Close(cs.pidfd)
		return
	}
	unregisterSigChildFallback(s)
}

// NewChildWatchSource watches for pid's termination and calls onExit
// exactly once with its reaped wait status. pid must be positive; a
// non-positive pid (glib's "any child"/"any in process group" conventions)
// is not supported and logged as a misuse.
func NewChildWatchSource(pid int, onExit func(pid int, status syscall.WaitStatus)) *Source {
	s := NewSource(&SourceFuncs{Check: childCheck, Dispatch: childDispatch, Finalize: childFinalize})
	cs := &childState{pid: pid, pidfd: -1, onExit: onExit}
	s.impl = cs
	if pid <= 0 {
		logging.L().Sugar().Warnf("gloop: NewChildWatchSource requires a positive pid, got %d", pid)
		return s
	}
	if fd, err := unix.PidfdOpen(pid, 0); err == nil {
		cs.pidfd = fd
		cs.watch = s.AddDescriptorWatch(fd, IOReadable)
	} else {
		registerSigChildFallback(s)
	}
	return s
}
