package gloop

import (
	"sync"
	"sync/atomic"

	"github.com/gloopcore/gloop/internal/logging"
	"go.uber.org/zap"
)

// misuse wraps err as a *MisuseError tagged with op, and logs it at Warn
// alongside the source's diagnostic name, so both the programmatic and the
// log-reading caller learn about it.
func (s *Source) misuse(op string, err error) error {
	logging.L().Warn("gloop: "+op, zap.String("name", s.name), zap.Error(err))
	return &MisuseError{Op: op, Err: err}
}

// destroyLock is a process-wide reader/writer lock: the
// reader side lets any thread safely read a Source's ctx pointer; the writer
// side is held only while a source's last reference actually drops, so it
// never races a concurrent Destroy/Unref pair.
var destroyLock sync.RWMutex

// DispatchResult is a vtable Dispatch function's verdict: whether the source
// should remain attached (Keep) or be destroyed (Remove), matching GLib's
// G_SOURCE_CONTINUE/G_SOURCE_REMOVE convention.
type DispatchResult int

const (
	Keep DispatchResult = iota
	Remove
)

// Func is a user callback: the payload registered via SetCallback and
// invoked by a builtin source's Dispatch implementation.
type Func func(data interface{}) DispatchResult

// SourceFuncs is a source's vtable: the four (or five, with Dispose)
// polymorphic hooks. Prepare and Check run outside the
// context lock, with the reentrancy guard raised.
type SourceFuncs struct {
	// Prepare is called once per iteration for every non-blocked, non-ready
	// source in priority order. Returning ready=true marks the source ready
	// immediately; timeoutUS contributes a candidate timeout (ignored when
	// ready).
	Prepare func(s *Source) (ready bool, timeoutUS int64)
	// Check runs after poll, only for sources reachable at the iteration's
	// effective max priority. Declining (false) still leaves the source
	// ready if one of its descriptor watches observed bits or its ready-time
	// passed.
	Check func(s *Source) bool
	// Dispatch runs the source's callback and reports whether to keep or
	// remove the source. fn/data are the current callback snapshot (may be
	// nil for sources that manage their own state instead of a callback).
	Dispatch func(s *Source, fn Func, data interface{}) DispatchResult
	// Finalize runs exactly once, after Dispose (if any) and after the last
	// strong reference drops.
	Finalize func(s *Source)
	// Dispose, if set, runs each time the reference count reaches zero,
	// before Finalize, with a transient reference held so it may resurrect
	// the source by re-Ref'ing it. A hook registered with SetDispose runs
	// in its place.
	Dispose func(s *Source)
}

const (
	flagActive uint32 = 1 << iota
	flagReady
	flagBlocked
	flagInCall
	flagCanRecurse
)

type sourceCallback struct {
	fn      Func
	data    interface{}
	destroy func(interface{})
	refs    atomic.Int32
}

func newSourceCallback(fn Func, data interface{}, destroy func(interface{})) *sourceCallback {
	cb := &sourceCallback{fn: fn, data: data, destroy: destroy}
	cb.refs.Store(1)
	return cb
}

func (cb *sourceCallback) ref() *sourceCallback {
	if cb != nil {
		cb.refs.Add(1)
	}
	return cb
}

// unref runs destroy (outside any lock) exactly once, when the last
// reference drops.
func (cb *sourceCallback) unref() {
	if cb == nil {
		return
	}
	if cb.refs.Add(-1) == 0 && cb.destroy != nil {
		cb.destroy(cb.data)
	}
}

// Source is a polymorphic unit of work with a prepare/check/dispatch
// lifecycle.
type Source struct {
	id       uint32
	priority int32

	readyTime atomic.Int64
	flags     atomic.Uint32
	refCount  atomic.Int32

	funcs *SourceFuncs

	cb atomic.Pointer[sourceCallback]

	ctx      *Context
	parent   *Source
	children []*Source

	watches        []*descriptorWatch
	privateWatches []*descriptorWatch

	name string

	disposeFn func(*Source)

	// impl is builtin-source private state (timer interval, child pid, ...).
	impl interface{}
}

// NewSource constructs a detached source, ref count 1, priority
// PriorityDefault, ready-time -1 (never), active.
func NewSource(funcs *SourceFuncs) *Source {
	s := &Source{
		funcs:    funcs,
		priority: PriorityDefault,
	}
	s.readyTime.Store(-1)
	s.flags.Store(flagActive)
	s.refCount.Store(1)
	return s
}

// Priority levels, matching GLib's conventional bands: idle
// defaults numerically higher/less urgent than timers and I/O.
const (
	PriorityHigh     int32 = -100
	PriorityDefault  int32 = 0
	PriorityHighIdle int32 = 100
	PriorityDefaultIdle int32 = 200
	PriorityLow      int32 = 300
)

// SetName attaches a human-readable name for diagnostics.
func (s *Source) SetName(name string) { s.name = name }

// Name returns the source's diagnostic name, if any.
func (s *Source) Name() string { return s.name }

// ID returns the source's id, or 0 if detached.
func (s *Source) ID() uint32 { return s.id }

// Context returns the owning context, or nil if detached. Safe to call from
// any thread: it takes the destroy-lock reader side.
func (s *Source) Context() *Context {
	destroyLock.RLock()
	defer destroyLock.RUnlock()
	return s.ctx
}

func (s *Source) isActive() bool  { return s.flags.Load()&flagActive != 0 }
func (s *Source) isBlocked() bool { return s.flags.Load()&flagBlocked != 0 }
func (s *Source) isReady() bool   { return s.flags.Load()&flagReady != 0 }

func (s *Source) setFlag(f uint32) {
	for {
		old := s.flags.Load()
		if s.flags.CompareAndSwap(old, old|f) {
			return
		}
	}
}

func (s *Source) clearFlag(f uint32) {
	for {
		old := s.flags.Load()
		if s.flags.CompareAndSwap(old, old&^f) {
			return
		}
	}
}

// Ref increments the reference count.
func (s *Source) Ref() *Source {
	destroyLock.RLock()
	s.refCount.Add(1)
	destroyLock.RUnlock()
	return s
}

// Unref decrements the reference count, running Dispose then Finalize when
// it reaches zero.
func (s *Source) Unref() {
	destroyLock.RLock()
	n := s.refCount.Add(-1)
	destroyLock.RUnlock()
	if n > 0 {
		return
	}
	if n < 0 {
		logging.L().Warn("gloop: source unref underflow", zap.String("name", s.name))
		s.refCount.Store(0)
		return
	}
	destroyLock.Lock()
	final := s.refCount.Load() == 0
	destroyLock.Unlock()
	if final {
		s.disposeAndFinalize()
	}
}

func (s *Source) disposeAndFinalize() {
	dispose := s.disposeFn
	if dispose == nil {
		dispose = s.funcs.Dispose
	}
	if dispose != nil {
		s.refCount.Store(1)
		dispose(s)
		if s.refCount.Add(-1) > 0 {
			return
		}
	}
	if s.funcs.Finalize != nil {
		s.funcs.Finalize(s)
	}
}

// SetDispose registers the dispose hook. Only meaningful
// once; later calls replace the previous hook.
func (s *Source) SetDispose(fn func(*Source)) { s.disposeFn = fn }

// SetCallback replaces the callback triple. The previous callback's destroy
// hook runs outside any lock, once the previous callback's last reference
// (held by an in-flight Dispatch, if any) drops.
func (s *Source) SetCallback(fn Func, data interface{}, destroy func(interface{})) {
	next := newSourceCallback(fn, data, destroy)
	prev := s.cb.Swap(next)
	prev.unref()
}

func (s *Source) callback() *sourceCallback {
	return s.cb.Load()
}

// Priority returns the source's current priority.
func (s *Source) Priority() int32 { return s.priority }

// SetPriority changes the source's priority. Forbidden on child sources.
// When attached, the source (and, recursively, its children) are removed
// and re-inserted into the new priority list, and descriptor watches are
// re-registered at the new priority.
func (s *Source) SetPriority(p int32) error {
	if s.parent != nil {
		return s.misuse("SetPriority", errChildPriority)
	}
	s.setPriorityRecursive(p)
	return nil
}

func (s *Source) setPriorityRecursive(p int32) {
	ctx := s.Context()
	if ctx == nil {
		s.priority = p
		for _, c := range s.children {
			c.setPriorityRecursive(p)
		}
		return
	}
	ctx.mu.Lock()
	ctx.changePriorityLocked(s, p)
	ctx.mu.Unlock()
}

// ReadyTime returns the source's ready-time (monotonic microseconds, -1 =
// never, 0 = immediate).
func (s *Source) ReadyTime() int64 { return s.readyTime.Load() }

// SetReadyTime sets the ready-time. When attached, wakes the owning
// context's poll so a longer in-progress wait can shorten. No-op when
// unchanged.
func (s *Source) SetReadyTime(t int64) {
	if s.readyTime.Swap(t) == t {
		return
	}
	if ctx := s.Context(); ctx != nil {
		ctx.wakeup.Signal()
	}
}

// WatchHandle identifies one descriptor watch owned by a source.
type WatchHandle struct{ w *descriptorWatch }

type descriptorWatch struct {
	fd        int
	requested IOEvent
	received  atomic.Uint32
	source    *Source
	priority  int32
	record    *pollRecord
	internal  bool
}

// AddDescriptorWatch registers a raw descriptor for the given event mask on
// this source, returning a handle for Modify/Remove/Query.
func (s *Source) AddDescriptorWatch(fd int, events IOEvent) WatchHandle {
	return s.addWatch(fd, events, false)
}

func (s *Source) addWatch(fd int, events IOEvent, internal bool) WatchHandle {
	w := &descriptorWatch{fd: fd, requested: events & (IOReadable | IOWritable | IOPriority), source: s, priority: s.priority, internal: internal}
	if internal {
		s.privateWatches = append(s.privateWatches, w)
	} else {
		s.watches = append(s.watches, w)
	}
	if ctx := s.Context(); ctx != nil {
		ctx.mu.Lock()
		if !s.isBlocked() {
			w.record = ctx.pollRecords.add(w, s.priority)
		}
		ctx.mu.Unlock()
	}
	return WatchHandle{w: w}
}

// ModifyDescriptorWatch changes the requested event mask of an existing
// watch.
func (s *Source) ModifyDescriptorWatch(h WatchHandle, events IOEvent) {
	h.w.requested = events & (IOReadable | IOWritable | IOPriority)
	h.w.received.Store(0)
}

// RemoveDescriptorWatch detaches a watch from its source (and, if attached,
// the owning context's poll-record set).
func (s *Source) RemoveDescriptorWatch(h WatchHandle) {
	w := h.w
	if ctx := s.Context(); ctx != nil {
		ctx.mu.Lock()
		if w.record != nil {
			ctx.pollRecords.remove(w.record)
			w.record = nil
		}
		ctx.mu.Unlock()
	}
	list := &s.watches
	if w.internal {
		list = &s.privateWatches
	}
	for i, cand := range *list {
		if cand == w {
			*list = append((*list)[:i], (*list)[i+1:]...)
			break
		}
	}
}

// QueryDescriptorWatch returns the received event mask observed for h.
// Defined only while this source's Check or Dispatch is running.
func (s *Source) QueryDescriptorWatch(h WatchHandle) IOEvent {
	return IOEvent(h.w.received.Load())
}

// AddChild attaches child as a child of s. child must be detached; if s is
// already attached, child is attached immediately at s's priority.
func (s *Source) AddChild(child *Source) error {
	if child.parent != nil || child.id != 0 {
		return child.misuse("AddChild", errChildAlreadyOwns)
	}
	child.parent = s
	child.priority = s.priority
	s.children = append(s.children, child.Ref())
	if ctx := s.Context(); ctx != nil {
		ctx.mu.Lock()
		ctx.attachLocked(child, false)
		ctx.mu.Unlock()
	}
	return nil
}

// RemoveChild detaches child from s and destroys it.
func (s *Source) RemoveChild(child *Source) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			child.parent = nil
			child.Destroy()
			child.Unref()
			return
		}
	}
}

// Destroy marks the source inactive, drops its callback, removes its
// descriptor watches from the poll set, and recursively destroys its
// children. Idempotent. Callback destroy hooks and the context's owning
// Unref run outside the context lock.
func (s *Source) Destroy() {
	ctx := s.Context()
	if ctx == nil {
		s.destroyDetached()
		return
	}
	ctx.mu.Lock()
	unrefs, cbs := ctx.destroyTreeLocked(s)
	ctx.mu.Unlock()
	for _, cb := range cbs {
		cb.unref()
	}
	for _, src := range unrefs {
		src.Unref()
	}
}

// Attach attaches s to ctx, returning a positive id. Returns 0 if s is
// already attached (logged as misuse).
func (s *Source) Attach(ctx *Context) uint32 {
	return ctx.AttachSource(s)
}

func (s *Source) destroyDetached() {
	if s.flags.Load()&flagActive == 0 {
		return
	}
	s.clearFlag(flagActive)
	prev := s.cb.Swap(nil)
	prev.unref()
	for _, c := range s.children {
		c.parent = nil
		c.Destroy()
		c.Unref()
	}
	s.children = nil
}
