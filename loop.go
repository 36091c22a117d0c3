package gloop

import "sync/atomic"

// Loop is a thin driver that iterates a Context until Quit is called.
type Loop struct {
	ctx      *Context
	running  atomic.Bool
	refCount atomic.Int32
}

// NewLoop constructs a Loop over ctx.
func NewLoop(ctx *Context, initialRunning bool) *Loop {
	l := &Loop{ctx: ctx.Ref()}
	l.running.Store(initialRunning)
	l.refCount.Store(1)
	return l
}

// Ref increments the loop's reference count.
func (l *Loop) Ref() *Loop {
	l.refCount.Add(1)
	return l
}

// Unref decrements the loop's reference count, releasing the context
// reference when it reaches zero.
func (l *Loop) Unref() {
	if l.refCount.Add(-1) == 0 {
		l.ctx.Unref()
	}
}

// GetContext returns the context this loop drives.
func (l *Loop) GetContext() *Context { return l.ctx }

// IsRunning reports whether the loop's running flag is set.
func (l *Loop) IsRunning() bool { return l.running.Load() }

// Run acquires the context (blocking for cross-thread handoff), sets
// running, and iterates with mayBlock=true until IsRunning becomes false,
// then releases ownership. Recursing into Run from within a source's
// prepare/check is rejected with a warning.
func (l *Loop) Run() {
	l.ctx.mu.Lock()
	recursing := l.ctx.inPrepareOrCheck
	l.ctx.mu.Unlock()
	if recursing {
		l.ctx.logger.Warn("gloop: Loop.Run called recursively from within a source's prepare/check")
		return
	}
	if !l.ctx.acquire(true) {
		return
	}
	l.running.Store(true)
	for l.running.Load() {
		l.ctx.iterateOwned(true)
	}
	l.ctx.Release()
}

// Quit atomically clears the running flag, signals the wakeup, and wakes any
// thread waiting for ownership so a blocked Run can observe the flag and
// return.
func (l *Loop) Quit() {
	l.running.Store(false)
	l.ctx.Wakeup()
	l.ctx.mu.Lock()
	l.ctx.cond.Broadcast()
	l.ctx.mu.Unlock()
}

// iterateOwned runs one iteration assuming ownership is already held (used
// by Loop.Run to avoid the acquire/release pair Iteration otherwise does per
// call).
func (ctx *Context) iterateOwned(mayBlock bool) bool {
	maxPriority, someReady := ctx.Prepare()
	if someReady {
		mayBlock = false
	}
	fds, timeoutMS := ctx.Query(maxPriority)
	if !mayBlock {
		timeoutMS = 0
	}
	ctx.Poll(fds, timeoutMS)
	ctx.Check(maxPriority, fds)
	dispatched := ctx.pending.Len() > 0
	ctx.Dispatch()
	return dispatched
}
