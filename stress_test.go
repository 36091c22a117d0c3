package gloop

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentAttachDestroyDoesNotDeadlockOrPanic exercises the context under
// concurrent mutation from many goroutines while a single goroutine drives
// it, the ownerless-polling combination spec'd for embedders that mutate
// from arbitrary threads without ever taking ownership themselves. The
// contention pattern (how many goroutines, how long each waits before its
// next attach/destroy) is jittered with fastrand rather than a fixed
// schedule, since a fixed schedule would only ever exercise one interleaving.
func TestConcurrentAttachDestroyDoesNotDeadlockOrPanic(t *testing.T) {
	ctx := NewContext(WithFlags(FlagOwnerlessPolling))
	loop := NewLoop(ctx, false)

	var wg sync.WaitGroup
	const goroutines = 8
	const opsPerGoroutine = 200

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				s := NewIdleSource(true)
				s.SetCallback(func(interface{}) DispatchResult { return Remove }, nil, nil)
				s.Attach(ctx)
				if fastrand.Intn(4) == 0 {
					s.Destroy()
				}
				s.Unref()
				if n := fastrand.Intn(100); n == 0 {
					time.Sleep(time.Microsecond)
				}
			}
		}()
	}

	loopDone := make(chan struct{})
	go func() {
		loop.Run()
		close(loopDone)
	}()

	opsDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(opsDone)
	}()

	select {
	case <-opsDone:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent attach/destroy did not finish in time")
	}
	loop.Quit()

	select {
	case <-loopDone:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not quit")
	}

	ctx.mu.Lock()
	ownerSet, recursion := ctx.ownerSet, ctx.recursionCount
	ctx.mu.Unlock()
	assert.False(t, ownerSet, "context must be fully released after Loop.Run returns")
	assert.Zero(t, recursion, "recursion count must have unwound to zero")

	// A wedged context (ownerSet stuck true) would hang here forever;
	// the timeout turns that into a failure instead of a stuck test run.
	acquired := make(chan bool, 1)
	go func() { acquired <- ctx.acquire(true) }()
	select {
	case ok := <-acquired:
		require.True(t, ok)
		ctx.Release()
	case <-time.After(5 * time.Second):
		t.Fatal("context did not become acquirable after Loop.Run returned; likely wedged")
	}
}

// TestOwnershipSurvivesGoroutineMigration proves that acquire/Release stay
// balanced even when the runtime is free to move the calling goroutine to a
// different OS thread mid-ownership (no explicit LockOSThread from the
// caller): a long-lived Prepare/Check-shaped critical section, spanning a
// blocking channel receive that gives the scheduler every opportunity to
// migrate, still ends with a matching Release rather than a wedge.
func TestOwnershipSurvivesGoroutineMigration(t *testing.T) {
	ctx := NewContext()
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(4))

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.True(t, ctx.acquire(true))
		release := make(chan struct{})
		go func() {
			// Force scheduler churn on other Ms while ownership is held.
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					runtime.Gosched()
				}()
			}
			wg.Wait()
			close(release)
		}()
		<-release
		ctx.Release()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("acquire/Release did not complete; likely wedged by thread migration")
	}

	ctx.mu.Lock()
	ownerSet := ctx.ownerSet
	ctx.mu.Unlock()
	assert.False(t, ownerSet)
}

func TestJitteredOwnershipHandoffAcrossGoroutines(t *testing.T) {
	ctx := NewContext()
	var successes atomic.Int32
	var wg sync.WaitGroup
	const contenders = 6

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Duration(fastrand.Intn(500)) * time.Microsecond)
			if ctx.acquire(true) {
				successes.Add(1)
				ctx.Release()
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, contenders, successes.Load(), "acquire(true) must eventually succeed for every contender")
}
