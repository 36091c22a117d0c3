package gloop

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloopcore/gloop/internal/wakeup"
)

// fakeWakeup lets tests observe Wakeup.Signal calls without touching a real
// eventfd or self-pipe.
type fakeWakeup struct {
	mu      sync.Mutex
	signals int
}

func (f *fakeWakeup) Signal() error {
	f.mu.Lock()
	f.signals++
	f.mu.Unlock()
	return nil
}
func (f *fakeWakeup) Acknowledge() error { return nil }
func (f *fakeWakeup) FD() int            { return -1 }
func (f *fakeWakeup) Close() error       { return nil }

var _ wakeup.Wakeup = (*fakeWakeup)(nil)

func alwaysReadyFuncs(record *[]string, name string, result DispatchResult) *SourceFuncs {
	return &SourceFuncs{
		Prepare: func(*Source) (bool, int64) { return true, 0 },
		Dispatch: func(*Source, Func, interface{}) DispatchResult {
			*record = append(*record, name)
			return result
		},
	}
}

func TestDispatchOrderFollowsPriority(t *testing.T) {
	ctx := NewContext()
	var order []string

	low := NewSource(alwaysReadyFuncs(&order, "low", Remove))
	low.SetPriority(PriorityLow)
	high := NewSource(alwaysReadyFuncs(&order, "high", Remove))
	high.SetPriority(PriorityHigh)
	mid := NewSource(alwaysReadyFuncs(&order, "mid", Remove))

	// Attach out of priority order to prove the buckets, not attach order,
	// decide dispatch order.
	require.NotZero(t, low.Attach(ctx))
	require.NotZero(t, high.Attach(ctx))
	require.NotZero(t, mid.Attach(ctx))

	// Each iteration dispatches only the most urgent ready priority band.
	dispatched := ctx.Iteration(false)
	require.True(t, dispatched)
	assert.Equal(t, []string{"high"}, order)

	require.True(t, ctx.Iteration(false))
	require.True(t, ctx.Iteration(false))
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestChildDispatchesImmediatelyBeforeParentInBucket(t *testing.T) {
	ctx := NewContext()
	var order []string

	parent := NewSource(alwaysReadyFuncs(&order, "parent", Remove))
	child := NewSource(alwaysReadyFuncs(&order, "child", Remove))
	other := NewSource(alwaysReadyFuncs(&order, "other", Remove))

	require.NotZero(t, parent.Attach(ctx))
	require.NoError(t, parent.AddChild(child))
	require.NotZero(t, other.Attach(ctx))

	ctx.Iteration(false)
	// child must appear immediately before its parent among same-priority
	// sources.
	childIdx, parentIdx := -1, -1
	for i, name := range order {
		if name == "child" {
			childIdx = i
		}
		if name == "parent" {
			parentIdx = i
		}
	}
	require.NotEqual(t, -1, childIdx)
	require.NotEqual(t, -1, parentIdx)
	assert.Equal(t, parentIdx, childIdx+1)
}

func TestAllocIDLockedSkipsZeroAndLiveIDsOnWraparound(t *testing.T) {
	ctx := NewContext()
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	ctx.nextID = ^uint32(0) - 1 // two increments away from wrapping to 0
	ctx.sources[1] = &Source{}  // occupy the id the probe would land on after 0

	first := ctx.allocIDLocked()
	assert.Equal(t, ^uint32(0), first)

	second := ctx.allocIDLocked()
	assert.NotEqual(t, uint32(0), second, "must never hand out id 0")
	assert.NotEqual(t, uint32(1), second, "must skip an id already live")
}

func TestOwnerlessPollingWakesOnAttach(t *testing.T) {
	ctx := NewContext(WithFlags(FlagOwnerlessPolling))
	fw := &fakeWakeup{}
	ctx.wakeup = fw

	s := NewSource(&SourceFuncs{})
	s.Attach(ctx)

	assert.Equal(t, 1, fw.signals)
}

func TestReadyTimeGatesDispatch(t *testing.T) {
	ctx := NewContext()
	var order []string
	s := NewSource(&SourceFuncs{
		Dispatch: func(*Source, Func, interface{}) DispatchResult {
			order = append(order, "fired")
			return Remove
		},
	})
	s.SetReadyTime(-1) // never
	s.Attach(ctx)

	dispatched := ctx.Iteration(false)
	assert.False(t, dispatched)
	assert.Empty(t, order)

	s2 := NewSource(&SourceFuncs{
		Dispatch: func(*Source, Func, interface{}) DispatchResult {
			order = append(order, "fired")
			return Remove
		},
	})
	s2.SetReadyTime(0) // immediate
	s2.Attach(ctx)

	dispatched = ctx.Iteration(false)
	assert.True(t, dispatched)
	assert.Equal(t, []string{"fired"}, order)
}

func TestInvokeRunsInlineWhenOwner(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx := NewContext()
	require.True(t, ctx.Acquire())
	defer ctx.Release()

	ran := false
	ctx.Invoke(func() { ran = true })
	assert.True(t, ran)
}

func TestInvokeSchedulesIdleWhenNotOwnerOrDefault(t *testing.T) {
	ctx := NewContext()
	done := make(chan struct{})
	ctx.Invoke(func() { close(done) })

	// Not the calling goroutine's default and not owned: must have been
	// scheduled as an idle source rather than run inline.
	select {
	case <-done:
		t.Fatal("Invoke must not run synchronously off the owning thread")
	default:
	}

	dispatched := ctx.Iteration(false)
	require.True(t, dispatched)
	select {
	case <-done:
	default:
		t.Fatal("expected the idle-scheduled callback to have run")
	}
}
