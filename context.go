package gloop

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gloopcore/gloop/internal/clock"
	"github.com/gloopcore/gloop/internal/logging"
	"github.com/gloopcore/gloop/internal/pendingqueue"
	"github.com/gloopcore/gloop/internal/poller"
	"github.com/gloopcore/gloop/internal/tls"
	"github.com/gloopcore/gloop/internal/wakeup"
	"go.uber.org/zap"
)

// ContextFlags configures Context construction.
type ContextFlags uint32

const (
	// FlagOwnerlessPolling causes attach/mutation from any thread (including
	// the thread that most recently ran the manual pipeline without holding
	// ownership across calls) to wake a poll in progress, for the
	// "ownerless polling" scenario.
	FlagOwnerlessPolling ContextFlags = 1 << iota
)

type pendingEntry struct {
	source *Source
}

// Context is the owning container for sources and poll records, and the
// ownership token that serializes iteration.
type Context struct {
	mu   sync.Mutex
	cond *sync.Cond

	refCount atomic.Int32

	owner          int64
	ownerSet       bool
	recursionCount int

	sources    map[uint32]*Source
	priorities []int32
	buckets    map[int32][]*Source
	nextID     uint32

	pollRecords pollRecordSet

	pending *pendingqueue.Queue

	wakeup   wakeup.Wakeup
	pollFunc PollFunc
	flags    ContextFlags

	cachedTimeValid bool
	cachedTime      int64

	iterationDeadlineUS int64

	inPrepareOrCheck bool

	logger *zap.Logger
}

// mainDispatchEntry is the thread-local (recursion depth, current source)
// record, read by callbacks to introspect nesting. Keyed like the
// thread-default stack: by OS thread id, requiring LockOSThread for
// cross-goroutine affinity to be meaningful.
type mainDispatchEntry struct {
	depth  int
	source *Source
}

var (
	dispatchMu sync.Mutex
	dispatchTL = map[int64]*mainDispatchEntry{}
)

func currentDispatch() *mainDispatchEntry {
	tid := tls.ThreadID()
	dispatchMu.Lock()
	defer dispatchMu.Unlock()
	e, ok := dispatchTL[tid]
	if !ok {
		e = &mainDispatchEntry{}
		dispatchTL[tid] = e
	}
	return e
}

// DispatchDepth returns the current thread's dispatch recursion depth.
func DispatchDepth() int { return currentDispatch().depth }

// CurrentSource returns the source presently dispatching on this thread, or
// nil.
func CurrentSource() *Source { return currentDispatch().source }

// NewContext constructs a context with the given options.
func NewContext(opts ...ContextOption) *Context {
	ctx := &Context{
		sources: make(map[uint32]*Source),
		buckets: make(map[int32][]*Source),
		pending: pendingqueue.New(),
	}
	ctx.cond = sync.NewCond(&ctx.mu)
	ctx.refCount.Store(1)
	ctx.pollFunc = DefaultPollFunc
	ctx.logger = logging.L()
	for _, o := range opts {
		o(ctx)
	}
	if ctx.wakeup == nil {
		w, err := wakeup.New()
		if err != nil {
			ctx.logger.Error("gloop: failed to create wakeup", zap.Error(err))
		}
		ctx.wakeup = w
	}
	return ctx
}

// Ref increments the context's reference count.
func (ctx *Context) Ref() *Context {
	ctx.refCount.Add(1)
	return ctx
}

// Unref decrements the reference count; on reaching zero, detaches all
// remaining sources (each given a strong reference first so finalizers see a
// coherent, empty context) and releases internal buffers.
func (ctx *Context) Unref() {
	if ctx.refCount.Add(-1) > 0 {
		return
	}
	ctx.mu.Lock()
	all := make([]*Source, 0, len(ctx.sources))
	for _, s := range ctx.sources {
		if s.parent == nil {
			all = append(all, s.Ref())
		}
	}
	ctx.mu.Unlock()
	for _, s := range all {
		s.Destroy()
		s.Unref()
	}
	if ctx.wakeup != nil {
		ctx.wakeup.Close()
	}
}

// allocIDLocked implements the probing id allocator from
// gmain.c's g_source_attach_unlocked: increment, skipping zero and any id
// still present in the source table, so a counter wraparound never reuses a
// live id.
func (ctx *Context) allocIDLocked() uint32 {
	for {
		ctx.nextID++
		if ctx.nextID == 0 {
			continue
		}
		if _, exists := ctx.sources[ctx.nextID]; !exists {
			return ctx.nextID
		}
	}
}

func (ctx *Context) ensurePriorityBucketLocked(p int32) {
	if _, ok := ctx.buckets[p]; ok {
		return
	}
	ctx.buckets[p] = nil
	idx := sort.Search(len(ctx.priorities), func(i int) bool { return ctx.priorities[i] >= p })
	ctx.priorities = append(ctx.priorities, 0)
	copy(ctx.priorities[idx+1:], ctx.priorities[idx:])
	ctx.priorities[idx] = p
}

func (ctx *Context) removeEmptyBucketLocked(p int32) {
	if len(ctx.buckets[p]) > 0 {
		return
	}
	delete(ctx.buckets, p)
	for i, cand := range ctx.priorities {
		if cand == p {
			ctx.priorities = append(ctx.priorities[:i], ctx.priorities[i+1:]...)
			break
		}
	}
}

// insertPriorityLocked inserts s into its priority bucket, immediately
// before its parent if the parent is already present, else at the end.
func (ctx *Context) insertPriorityLocked(s *Source) {
	ctx.ensurePriorityBucketLocked(s.priority)
	bucket := ctx.buckets[s.priority]
	if s.parent != nil {
		for i, cand := range bucket {
			if cand == s.parent {
				bucket = append(bucket, nil)
				copy(bucket[i+1:], bucket[i:])
				bucket[i] = s
				ctx.buckets[s.priority] = bucket
				return
			}
		}
	}
	ctx.buckets[s.priority] = append(bucket, s)
}

func (ctx *Context) removeFromPriorityLocked(s *Source) {
	bucket := ctx.buckets[s.priority]
	for i, cand := range bucket {
		if cand == s {
			ctx.buckets[s.priority] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	ctx.removeEmptyBucketLocked(s.priority)
}

// changePriorityLocked implements SetPriority for an already-locked context;
// ctx may be nil-safe for detached recursion is handled by the caller.
func (ctx *Context) changePriorityLocked(s *Source, newP int32) {
	attached := s.id != 0
	if attached {
		ctx.removeFromPriorityLocked(s)
	}
	s.priority = newP
	if attached {
		ctx.insertPriorityLocked(s)
		if !s.isBlocked() {
			ctx.reregisterWatchesLocked(s)
		}
	}
	for _, c := range s.children {
		ctx.changePriorityLocked(c, newP)
	}
}

func (ctx *Context) reregisterWatchesLocked(s *Source) {
	for _, w := range s.watches {
		if w.record != nil {
			ctx.pollRecords.remove(w.record)
		}
		w.record = ctx.pollRecords.add(w, s.priority)
	}
	for _, w := range s.privateWatches {
		if w.record != nil {
			ctx.pollRecords.remove(w.record)
		}
		w.record = ctx.pollRecords.add(w, s.priority)
	}
}

func (ctx *Context) unregisterWatchesLocked(s *Source) {
	for _, w := range s.watches {
		if w.record != nil {
			ctx.pollRecords.remove(w.record)
			w.record = nil
		}
	}
	for _, w := range s.privateWatches {
		if w.record != nil {
			ctx.pollRecords.remove(w.record)
			w.record = nil
		}
	}
}

// attachLocked is the shared implementation behind AttachSource and child
// attachment.
func (ctx *Context) attachLocked(s *Source, doWakeupCandidate bool) uint32 {
	if s.id != 0 {
		if s.ctx == ctx {
			ctx.logger.Warn("gloop: AttachSource", zap.String("name", s.name), zap.Error(errAlreadyAttached))
			return 0
		}
		ctx.logger.Warn("gloop: AttachSource", zap.String("name", s.name), zap.Error(errForeignContext))
		return 0
	}
	id := ctx.allocIDLocked()
	s.id = id
	destroyLock.Lock()
	s.ctx = ctx
	destroyLock.Unlock()
	s.Ref()
	ctx.sources[id] = s
	ctx.insertPriorityLocked(s)
	if !s.isBlocked() {
		ctx.reregisterWatchesLocked(s)
	}
	for _, c := range s.children {
		ctx.attachLocked(c, false)
	}
	if doWakeupCandidate && ctx.wakeup != nil {
		if ctx.flags&FlagOwnerlessPolling != 0 || (ctx.ownerSet && ctx.owner != tls.ThreadID()) {
			ctx.wakeup.Signal()
		}
	}
	return id
}

// AttachSource attaches s to ctx.
func (ctx *Context) AttachSource(s *Source) uint32 {
	ctx.mu.Lock()
	id := ctx.attachLocked(s, true)
	ctx.mu.Unlock()
	return id
}

// destroyTreeLocked marks s (and its children) inactive and removes them
// from every context structure, returning the context's owning references
// to drop and the callbacks to notify, both applied by the caller after
// releasing the lock.
func (ctx *Context) destroyTreeLocked(s *Source) (unrefs []*Source, cbs []*sourceCallback) {
	if s.flags.Load()&flagActive == 0 {
		return nil, nil
	}
	s.clearFlag(flagActive)
	if s.id != 0 {
		delete(ctx.sources, s.id)
		ctx.removeFromPriorityLocked(s)
		ctx.unregisterWatchesLocked(s)
		s.id = 0
		destroyLock.Lock()
		s.ctx = nil
		destroyLock.Unlock()
		unrefs = append(unrefs, s)
	}
	if cb := s.cb.Swap(nil); cb != nil {
		cbs = append(cbs, cb)
	}
	for _, c := range s.children {
		c.parent = nil
		cu, cc := ctx.destroyTreeLocked(c)
		unrefs = append(unrefs, cu...)
		cbs = append(cbs, cc...)
	}
	s.children = nil
	return unrefs, cbs
}

// FindSource looks up an attached source by id.
func (ctx *Context) FindSource(id uint32) *Source {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.sources[id]
}

// FindSourceByData scans attached sources for one whose callback data
// matches data (pointer/value equality via ==, so data must be comparable).
func (ctx *Context) FindSourceByData(data interface{}) *Source {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for _, s := range ctx.sources {
		if cb := s.callback(); cb != nil && cb.data == data {
			return s
		}
	}
	return nil
}

// FindSourceByFuncsData scans attached sources for one matching both funcs
// (vtable identity) and callback data.
func (ctx *Context) FindSourceByFuncsData(funcs *SourceFuncs, data interface{}) *Source {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for _, s := range ctx.sources {
		if s.funcs != funcs {
			continue
		}
		if cb := s.callback(); cb != nil && cb.data == data {
			return s
		}
	}
	return nil
}

// SetPollFunc injects the OS multiplex primitive.
func (ctx *Context) SetPollFunc(fn PollFunc) {
	ctx.mu.Lock()
	ctx.pollFunc = fn
	ctx.mu.Unlock()
}

// Wakeup signals the context's wakeup handle so an in-progress poll (if any)
// returns promptly.
func (ctx *Context) Wakeup() {
	if ctx.wakeup != nil {
		ctx.wakeup.Signal()
	}
}

// now returns the cached monotonic time, computing it if stale.
func (ctx *Context) now() int64 {
	if !ctx.cachedTimeValid {
		ctx.cachedTime = clock.NowMicro()
		ctx.cachedTimeValid = true
	}
	return ctx.cachedTime
}

func (ctx *Context) invalidateTime() {
	ctx.cachedTimeValid = false
}

// ---- ownership ----

// Acquire tries to become the owner of ctx for the calling thread.
// Recursive: succeeds immediately (incrementing the recursion count) if
// already owned by the calling thread. block controls whether to wait for
// the current owner to release.
//
// A goroutine is not pinned to its OS thread across the suspension points
// ownership is held through (mutex contention, the blocking Poll syscall,
// ordinary scheduler preemption), so the kernel thread id recorded here
// could otherwise drift out from under a still-owning goroutine by the time
// it calls Release, wedging the context forever. runtime.LockOSThread
// pins the calling goroutine to its current OS thread for exactly the
// span between a successful acquire and its matching Release, one
// Lock/Unlock pair per call so recursive acquisitions nest correctly.
func (ctx *Context) acquire(block bool) bool {
	runtime.LockOSThread()
	tid := tls.ThreadID()
	ctx.mu.Lock()
	for {
		if !ctx.ownerSet {
			ctx.owner = tid
			ctx.ownerSet = true
			ctx.recursionCount = 1
			ctx.mu.Unlock()
			return true
		}
		if ctx.owner == tid {
			ctx.recursionCount++
			ctx.mu.Unlock()
			return true
		}
		if !block {
			ctx.mu.Unlock()
			runtime.UnlockOSThread()
			return false
		}
		ctx.cond.Wait()
	}
}

// Acquire is the public, non-blocking variant used for manual iteration.
func (ctx *Context) Acquire() bool { return ctx.acquire(false) }

// Release releases one level of ownership, undoing the OS-thread pin taken
// by the matching acquire call. Releasing without owning is accepted,
// matching GLib's own leniency here, but logged.
func (ctx *Context) Release() {
	ctx.mu.Lock()
	tid := tls.ThreadID()
	if !ctx.ownerSet || ctx.owner != tid {
		ctx.logger.Warn("gloop: Release called without owning the context")
		ctx.mu.Unlock()
		return
	}
	ctx.recursionCount--
	if ctx.recursionCount > 0 {
		ctx.mu.Unlock()
		runtime.UnlockOSThread()
		return
	}
	ctx.ownerSet = false
	ctx.owner = 0
	ctx.cond.Broadcast()
	ctx.mu.Unlock()
	runtime.UnlockOSThread()
}

// IsOwner reports whether the calling thread currently owns ctx.
func (ctx *Context) IsOwner() bool {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.ownerSet && ctx.owner == tls.ThreadID()
}

// ---- iteration engine ----

// Prepare runs the prepare phase. Returns the effective max priority to
// query/poll/check at, and whether any source is already known ready
// (mayBlock should then be treated as false by the caller).
func (ctx *Context) Prepare() (maxPriority int32, someReady bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.prepareLocked()
}

const noMaxPriority = int32(1<<31 - 1)

func (ctx *Context) prepareLocked() (int32, bool) {
	if ctx.inPrepareOrCheck {
		ctx.logger.Warn("gloop: Prepare called recursively from within a source's prepare/check")
		return noMaxPriority, false
	}
	ctx.pending.Clear(func(v interface{}) {
		ctx.mu.Unlock()
		v.(*pendingEntry).source.Unref()
		ctx.mu.Lock()
	})
	ctx.invalidateTime()

	maxPriority := noMaxPriority
	var minTimeout int64 = -1
	haveTimeout := false

	for _, p := range append([]int32(nil), ctx.priorities...) {
		if p > maxPriority {
			break
		}
		bucket := ctx.buckets[p]
		for _, s := range append([]*Source(nil), bucket...) {
			if s.flags.Load()&flagActive == 0 || s.isBlocked() || s.isReady() {
				continue
			}
			ready := false
			var timeoutUS int64 = -1
			if s.funcs.Prepare != nil {
				ctx.inPrepareOrCheck = true
				ctx.mu.Unlock()
				ready, timeoutUS = s.funcs.Prepare(s)
				ctx.mu.Lock()
				ctx.inPrepareOrCheck = false
			}
			if !ready {
				if rt := s.readyTime.Load(); rt >= 0 {
					now := ctx.now()
					if rt <= now {
						ready = true
					} else {
						cand := rt - now
						if !haveTimeout || cand < minTimeout {
							minTimeout, haveTimeout = cand, true
						}
					}
				}
			}
			if ready {
				ctx.markReadyLocked(s)
				if s.priority < maxPriority {
					maxPriority = s.priority
				}
			} else if timeoutUS >= 0 && (!haveTimeout || timeoutUS < minTimeout) {
				minTimeout, haveTimeout = timeoutUS, true
			}
		}
	}
	if !haveTimeout {
		minTimeout = -1
	}
	ctx.iterationDeadlineUS = minTimeout
	someReady := maxPriority != noMaxPriority
	return maxPriority, someReady
}

func (ctx *Context) markReadyLocked(s *Source) {
	s.setFlag(flagReady)
	for p := s.parent; p != nil; p = p.parent {
		p.setFlag(flagReady)
	}
}

// Query flattens the poll-record set at maxPriority and returns the array to
// poll plus the timeout in milliseconds (0 preserved, -1 preserved, positive
// rounded up to the next millisecond).
func (ctx *Context) Query(maxPriority int32) (fds []PollFD, timeoutMS int) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	fds = ctx.pollRecords.flatten(maxPriority)
	if ctx.wakeup != nil {
		if wfd := ctx.wakeup.FD(); wfd >= 0 {
			// flatten's output, and checkLocked's merge-join against it, both
			// assume ascending fd order; insert rather than append so that
			// invariant survives regardless of where the wakeup fd falls.
			idx := sort.Search(len(fds), func(i int) bool { return fds[i].Fd >= wfd })
			fds = append(fds, PollFD{})
			copy(fds[idx+1:], fds[idx:])
			fds[idx] = PollFD{Fd: wfd, Requested: IOReadable}
		}
	}
	return fds, microsToMillis(ctx.iterationDeadlineUS)
}

func microsToMillis(us int64) int {
	switch {
	case us == 0:
		return 0
	case us < 0:
		return -1
	default:
		ms := (us + 999) / 1000
		if ms > int64(int(^uint(0)>>1)) {
			return int(^uint(0) >> 1)
		}
		return int(ms)
	}
}

// Poll invokes the injected poll function outside the context lock.
func (ctx *Context) Poll(fds []PollFD, timeoutMS int) (int, error) {
	ctx.mu.Lock()
	fn := ctx.pollFunc
	trace := logging.PollTraceEnabled()
	ctx.mu.Unlock()

	start := time.Now()
	n, err := fn(fds, timeoutMS)
	if trace {
		ctx.logger.Debug("gloop: poll",
			zap.Int("records", len(fds)),
			zap.Int("timeout_ms", timeoutMS),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("ready", n),
		)
	}
	if poller.IsInterrupted(err) {
		return 0, nil
	}
	if err != nil {
		ctx.logger.Warn("gloop: poll error", zap.Error(err))
		return 0, nil
	}
	return n, nil
}

// Check scatters received event masks back onto watches, runs each
// remaining source's Check hook, and pushes newly-ready sources onto the
// pending-dispatch queue. Returns false (abort this iteration) if the
// poll-record set changed concurrently while polling.
func (ctx *Context) Check(maxPriority int32, fds []PollFD) bool {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.checkLocked(maxPriority, fds)
}

func (ctx *Context) checkLocked(maxPriority int32, fds []PollFD) bool {
	if ctx.inPrepareOrCheck {
		ctx.logger.Warn("gloop: Check called recursively from within a source's prepare/check")
		return false
	}

	if ctx.wakeup != nil {
		for _, f := range fds {
			if f.Fd == ctx.wakeup.FD() && f.Received != 0 {
				ctx.wakeup.Acknowledge()
				break
			}
		}
	}

	if ctx.pollRecords.changed {
		return false
	}

	rec := ctx.pollRecords.head
	i := 0
	for rec != nil && i < len(fds) {
		if rec.watch.fd != fds[i].Fd {
			// records and fds are both fd-sorted with duplicates coalesced
			// in fds; advance whichever is behind.
			if rec.watch.fd < fds[i].Fd {
				rec = rec.next
				continue
			}
			i++
			continue
		}
		if rec.priority <= maxPriority {
			got := fds[i].Received & (rec.watch.requested | poller.UnsolicitedMask)
			rec.watch.received.Store(uint32(got))
		}
		rec = rec.next
	}

	someReady := false
	for _, p := range append([]int32(nil), ctx.priorities...) {
		if p > maxPriority {
			break
		}
		for _, s := range append([]*Source(nil), ctx.buckets[p]...) {
			if s.flags.Load()&flagActive == 0 || s.isBlocked() {
				continue
			}
			if !s.isReady() {
				ready := false
				if s.funcs.Check != nil {
					ctx.inPrepareOrCheck = true
					ctx.mu.Unlock()
					ready = s.funcs.Check(s)
					ctx.mu.Lock()
					ctx.inPrepareOrCheck = false
				}
				if !ready {
					for _, w := range s.watches {
						if w.received.Load() != 0 {
							ready = true
							break
						}
					}
				}
				if !ready {
					for _, w := range s.privateWatches {
						if w.received.Load() != 0 {
							ready = true
							break
						}
					}
				}
				if !ready {
					if rt := s.readyTime.Load(); rt >= 0 && rt <= ctx.now() {
						ready = true
					}
				}
				if ready {
					ctx.markReadyLocked(s)
				}
			}
			if s.isReady() {
				someReady = true
				ctx.pending.Push(&pendingEntry{source: s.Ref()})
				if s.priority < maxPriority {
					maxPriority = s.priority
				}
			}
		}
	}
	return someReady
}

// Dispatch runs every pending source's callback in order.
func (ctx *Context) Dispatch() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.dispatchLocked()
}

func (ctx *Context) dispatchLocked() {
	for ctx.pending.Len() > 0 {
		entry := ctx.pending.Pop().(*pendingEntry)
		s := entry.source
		s.clearFlag(flagReady)

		if s.flags.Load()&flagActive == 0 {
			ctx.mu.Unlock()
			s.Unref()
			ctx.mu.Lock()
			continue
		}

		cb := s.callback().ref()
		canRecurse := s.flags.Load()&flagCanRecurse != 0
		wasBlocked := s.isBlocked()
		if !canRecurse {
			s.setFlag(flagBlocked)
			if !wasBlocked {
				ctx.unregisterWatchesLocked(s)
			}
		}
		alreadyInCall := s.flags.Load()&flagInCall != 0
		s.setFlag(flagInCall)

		td := currentDispatch()
		prevSrc := td.source
		td.source = s
		td.depth++

		ctx.mu.Unlock()

		var fn Func
		var data interface{}
		if cb != nil {
			fn, data = cb.fn, cb.data
		}
		result := s.funcs.Dispatch(s, fn, data)

		td.depth--
		td.source = prevSrc

		ctx.mu.Lock()

		if !alreadyInCall {
			s.clearFlag(flagInCall)
		}
		if !canRecurse {
			s.clearFlag(flagBlocked)
			if !wasBlocked && s.flags.Load()&flagActive != 0 {
				ctx.reregisterWatchesLocked(s)
			}
		}

		if result == Remove && s.flags.Load()&flagActive != 0 {
			unrefs, cbs := ctx.destroyTreeLocked(s)
			ctx.mu.Unlock()
			for _, c := range cbs {
				c.unref()
			}
			for _, u := range unrefs {
				u.Unref()
			}
			ctx.mu.Lock()
		}

		ctx.mu.Unlock()
		cb.unref()
		s.Unref()
		ctx.mu.Lock()
	}
}

// Iteration runs one full prepare/query/poll/check/dispatch pass, blocking
// in poll for up to the computed timeout if mayBlock, and returns whether
// any source dispatched.
func (ctx *Context) Iteration(mayBlock bool) bool {
	if !ctx.acquire(true) {
		return false
	}
	defer ctx.Release()

	maxPriority, someReady := ctx.Prepare()
	if someReady {
		mayBlock = false
	}
	fds, timeoutMS := ctx.Query(maxPriority)
	if !mayBlock {
		timeoutMS = 0
	}
	_, _ = ctx.Poll(fds, timeoutMS)
	// Check reports false both when nothing became ready and when the
	// poll-record set changed concurrently mid-poll; either way there is
	// nothing stale to dispatch here, and the caller's own loop (Loop.Run,
	// or a repeated manual Iteration call) naturally re-drives the next
	// pass with a fresh Prepare/Query.
	ctx.Check(maxPriority, fds)
	dispatched := ctx.pending.Len() > 0
	ctx.Dispatch()
	return dispatched
}

// Pending performs prepare+query+poll(0)+check without dispatching,
// reporting whether any source is ready.
func (ctx *Context) Pending() bool {
	if !ctx.acquire(false) {
		return false
	}
	defer ctx.Release()
	maxPriority, someReady := ctx.Prepare()
	if someReady {
		return true
	}
	fds, _ := ctx.Query(maxPriority)
	ctx.Poll(fds, 0)
	return ctx.Check(maxPriority, fds)
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithFlags sets the context's flags (e.g. FlagOwnerlessPolling).
func WithFlags(f ContextFlags) ContextOption {
	return func(ctx *Context) { ctx.flags = f }
}

// WithPollFunc injects the OS multiplex primitive at construction time.
func WithPollFunc(fn PollFunc) ContextOption {
	return func(ctx *Context) { ctx.pollFunc = fn }
}

// WithLogger installs a *zap.Logger for this context's diagnostics.
func WithLogger(l *zap.Logger) ContextOption {
	return func(ctx *Context) {
		if l != nil {
			ctx.logger = l
		}
	}
}

// SetLogger installs the process-wide default *zap.Logger: it backs any
// Context constructed afterward without an explicit WithLogger option, and
// is used directly by diagnostics that aren't tied to one particular
// context (e.g. Source misuse warnings). Passing nil restores the no-op
// logger.
func SetLogger(l *zap.Logger) {
	logging.Set(l)
}
