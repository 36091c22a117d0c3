package gloop

// idleState is an Idle source's private state. Idle sources are always
// ready; they exist purely to run at PriorityDefaultIdle once
// no higher-priority source has work.
type idleState struct {
	oneShot bool
}

func idlePrepare(s *Source) (bool, int64) { return true, 0 }

func idleCheck(s *Source) bool { return true }

func idleDispatch(s *Source, fn Func, data interface{}) DispatchResult {
	ist := s.impl.(*idleState)
	result := Keep
	if fn != nil {
		result = fn(data)
	}
	if ist.oneShot {
		return Remove
	}
	return result
}

// NewIdleSource constructs an idle source at PriorityDefaultIdle. If
// oneShot, it destroys itself after its first dispatch.
func NewIdleSource(oneShot bool) *Source {
	s := NewSource(&SourceFuncs{Prepare: idlePrepare, Check: idleCheck, Dispatch: idleDispatch})
	s.impl = &idleState{oneShot: oneShot}
	s.SetPriority(PriorityDefaultIdle)
	return s
}
