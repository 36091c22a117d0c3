package gloop

import (
	"sync"

	"github.com/gloopcore/gloop/internal/tls"
)

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// DefaultContext returns the process-wide singleton context, lazily
// constructed on first use.
func DefaultContext() *Context {
	defaultOnce.Do(func() {
		defaultCtx = NewContext()
	})
	return defaultCtx
}

// PushThreadDefault pushes ctx onto the calling thread's default-context
// stack; passing nil pushes "the default context" (represented internally as
// nil, matching GLib's null-means-default convention). Pushing a non-nil ctx
// acquires ownership of it for the calling thread (blocking against a
// concurrent owner); the matching PopThreadDefault releases it.
func PushThreadDefault(ctx *Context) {
	if ctx != nil {
		ctx.acquire(true)
	}
	tls.Push(ctx)
}

// PopThreadDefault pops the calling thread's default-context stack, releasing
// the ownership acquired by the matching PushThreadDefault. ctx must match
// the top of the stack; mismatches are logged.
func PopThreadDefault(ctx *Context) {
	top, ok := tls.Pop()
	if !ok {
		return
	}
	popped, _ := top.(*Context)
	if popped != ctx {
		logger := DefaultContext().logger
		logger.Warn("gloop: PopThreadDefault did not match the pushed context")
	}
	if popped != nil {
		popped.Release()
	}
}

// GetThreadDefault returns the calling thread's current default context, or
// nil if the stack is empty or its top is nil (meaning "the default
// context").
func GetThreadDefault() *Context {
	top, ok := tls.Top()
	if !ok {
		return nil
	}
	ctx, _ := top.(*Context)
	return ctx
}

// RefThreadDefault is GetThreadDefault plus a Ref, falling back to
// DefaultContext when the stack is empty.
func RefThreadDefault() *Context {
	if ctx := GetThreadDefault(); ctx != nil {
		return ctx.Ref()
	}
	return DefaultContext().Ref()
}

// RunOnce runs a single prepare/query/poll/check/dispatch pass on the
// process-wide default context, blocking in poll for up to its computed
// timeout when mayBlock is true. Convenience equivalent of
// DefaultContext().Iteration(mayBlock), for callers that never need a
// context of their own.
func RunOnce(mayBlock bool) bool {
	return DefaultContext().Iteration(mayBlock)
}

func effectiveThreadDefault() *Context {
	if ctx := GetThreadDefault(); ctx != nil {
		return ctx
	}
	return DefaultContext()
}
