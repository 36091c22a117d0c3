package gloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsUntilQuit(t *testing.T) {
	ctx := NewContext()
	loop := NewLoop(ctx, false)

	ticks := 0
	idle := NewIdleSource(false)
	idle.SetCallback(func(interface{}) DispatchResult {
		ticks++
		if ticks >= 5 {
			loop.Quit()
		}
		return Keep
	}, nil, nil)
	idle.Attach(ctx)

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not quit")
	}
	assert.Equal(t, 5, ticks)
	assert.False(t, loop.IsRunning())
}

func TestLoopRefCountReleasesContextOnLastUnref(t *testing.T) {
	ctx := NewContext()
	loop := NewLoop(ctx, false)
	loop.Ref()
	loop.Unref()
	require.Equal(t, ctx, loop.GetContext())
	assert.EqualValues(t, 2, ctx.refCount.Load(), "the loop still holds its context reference")
	loop.Unref()
	assert.EqualValues(t, 1, ctx.refCount.Load(), "the last loop Unref drops the context reference")
}
