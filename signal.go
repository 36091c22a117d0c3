package gloop

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/gloopcore/gloop/internal/logging"
)

// Go gives user code no async-signal-safe handler hook the way the C
// original does; the closest faithful adaptation is a single process-wide
// signal.Notify channel fanned out by one worker goroutine, which sets a
// per-source atomic flag and wakes the source's owning context. This trades
// true signal-context delivery for goroutine-scheduler latency, which is the
// only trade Go actually offers.
var (
	sigOnce    sync.Once
	sigChan    chan os.Signal
	sigMu      sync.Mutex
	sigWatches = map[os.Signal][]*Source{}
	sigChildFallbacks []*Source
)

func ensureSignalWorker() {
	sigOnce.Do(func() {
		sigChan = make(chan os.Signal, 64)
		go func() {
			for sig := range sigChan {
				dispatchSignal(sig)
			}
		}()
	})
}

func dispatchSignal(sig os.Signal) {
	sigMu.Lock()
	defer sigMu.Unlock()
	if sig == syscall.SIGCHLD {
		for _, s := range sigChildFallbacks {
			cs := s.impl.(*childState)
			atomic.StoreInt32(&cs.flag, 1)
			if ctx := s.Context(); ctx != nil {
				ctx.Wakeup()
			}
		}
	}
	for _, s := range sigWatches[sig] {
		ss := s.impl.(*signalState)
		atomic.StoreInt32(&ss.flag, 1)
		if ctx := s.Context(); ctx != nil {
			ctx.Wakeup()
		}
	}
}

func registerSigChildFallback(s *Source) {
	ensureSignalWorker()
	sigMu.Lock()
	sigChildFallbacks = append(sigChildFallbacks, s)
	sigMu.Unlock()
	signal.Notify(sigChan, syscall.SIGCHLD)
	logging.L().Sugar().Debugf("gloop: watching child pid via SIGCHLD fallback (no pidfd support)")
}

func unregisterSigChildFallback(s *Source) {
	sigMu.Lock()
	defer sigMu.Unlock()
	for i, cur := range sigChildFallbacks {
		if cur == s {
			sigChildFallbacks = append(sigChildFallbacks[:i], sigChildFallbacks[i+1:]...)
			return
		}
	}
}

// signalState is a Signal-watch source's private state.
type signalState struct {
	sig  os.Signal
	flag int32
}

func signalCheck(s *Source) bool {
	ss := s.impl.(*signalState)
	return atomic.LoadInt32(&ss.flag) != 0
}

func signalDispatch(s *Source, fn Func, data interface{}) DispatchResult {
	ss := s.impl.(*signalState)
	atomic.StoreInt32(&ss.flag, 0)
	if fn != nil {
		return fn(data)
	}
	return Keep
}

func signalFinalize(s *Source) {
	ss, ok := s.impl.(*signalState)
	if !ok {
		return
	}
	sigMu.Lock()
	watchers := sigWatches[ss.sig]
	for i, cur := range watchers {
		if cur == s {
			sigWatches[ss.sig] = append(watchers[:i], watchers[i+1:]...)
			break
		}
	}
	sigMu.Unlock()
}

// NewSignalWatchSource becomes ready whenever the process receives sig,
// coalescing repeated deliveries between dispatches into a single wakeup.
func NewSignalWatchSource(sig os.Signal) *Source {
	ensureSignalWorker()
	ss := &signalState{sig: sig}
	s := NewSource(&SourceFuncs{Check: signalCheck, Dispatch: signalDispatch, Finalize: signalFinalize})
	s.impl = ss
	sigMu.Lock()
	sigWatches[sig] = append(sigWatches[sig], s)
	sigMu.Unlock()
	signal.Notify(sigChan, sig)
	return s
}
