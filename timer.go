package gloop

import "github.com/gloopcore/gloop/internal/clock"

// timerState is a Timer source's private, per-instance state.
// A timer source has no custom Prepare/Check: the generic engine's ready-time
// comparison against the cached monotonic clock already implements "become
// ready when the deadline passes"; only Dispatch's rescheduling is bespoke.
type timerState struct {
	intervalUS int64
	oneShot    bool
}

func timerDispatch(s *Source, fn Func, data interface{}) DispatchResult {
	ts := s.impl.(*timerState)
	result := Keep
	if fn != nil {
		result = fn(data)
	}
	if ts.oneShot {
		return Remove
	}
	if result == Keep {
		// current + interval, no catch-up for missed ticks.
		s.SetReadyTime(clock.NowMicro() + ts.intervalUS)
	}
	return result
}

// NewTimerSource constructs a timer that fires every intervalMS
// milliseconds. If oneShot, the source destroys itself after its first
// dispatch regardless of the callback's return value.
func NewTimerSource(intervalMS int64, oneShot bool) *Source {
	ts := &timerState{intervalUS: intervalMS * 1000, oneShot: oneShot}
	s := NewSource(&SourceFuncs{Dispatch: timerDispatch})
	s.impl = ts
	s.SetReadyTime(clock.NowMicro() + ts.intervalUS)
	return s
}

// NewSecondsTimerSource constructs a whole-second timer. Its initial
// deadline is perturbed by up to 999ms (derived from a session-identifying
// environment variable) so that many such timers spread across a
// machine don't all fire in the same instant; the perturbation is not
// reapplied on reschedule.
func NewSecondsTimerSource(intervalSeconds int64, oneShot bool) *Source {
	ts := &timerState{intervalUS: intervalSeconds * 1_000_000, oneShot: oneShot}
	s := NewSource(&SourceFuncs{Dispatch: timerDispatch})
	s.impl = ts
	perturbUS := int64(clock.Perturbation()) * 1000
	s.SetReadyTime(clock.NowMicro() + ts.intervalUS + perturbUS)
	return s
}

// SetTimerFunc attaches fn as the timer's callback (convenience over
// SetCallback for the common case of no data/destroy).
func (s *Source) SetTimerFunc(fn func() DispatchResult) {
	s.SetCallback(func(interface{}) DispatchResult { return fn() }, nil, nil)
}
