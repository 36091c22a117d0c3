package gloop

// Invoke runs fn under ctx's ownership at PriorityDefault: if the calling thread
// already owns ctx, fn runs immediately, inline. Otherwise, if ctx is the
// calling thread's default context, ownership is acquired with a single
// try (never blocking) and fn runs inline on success. Failing both, fn is
// scheduled as a one-shot idle source so the eventual owner runs it during
// its own dispatch pass.
func (ctx *Context) Invoke(fn func()) {
	ctx.InvokeFull(PriorityDefault, fn)
}

// InvokeFull is Invoke with an explicit priority for the idle-source
// fallback path; the priority is ignored on the inline paths since there is
// no queue to order against.
func (ctx *Context) InvokeFull(priority int32, fn func()) {
	if fn == nil {
		return
	}
	if ctx.IsOwner() {
		fn()
		return
	}
	if effectiveThreadDefault() == ctx {
		if ctx.Acquire() {
			fn()
			ctx.Release()
			return
		}
	}
	src := NewIdleSource(true)
	src.SetPriority(priority)
	src.SetCallback(func(interface{}) DispatchResult {
		fn()
		return Remove
	}, nil, nil)
	src.Attach(ctx)
	src.Unref()
}
