package gloop

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalWatchSourceCoalescesDeliveries(t *testing.T) {
	ctx := NewContext()
	fired := 0
	s := NewSignalWatchSource(syscall.SIGUSR1)
	s.SetCallback(func(interface{}) DispatchResult {
		fired++
		return Keep
	}, nil, nil)
	s.Attach(ctx)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	// Wait until the funnel goroutine has set the flag; however many of the
	// two deliveries it has observed by then, a single dispatch pass drains
	// the (coalesced) flag once.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if signalCheck(s) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	dispatched := ctx.Iteration(false)
	require.True(t, dispatched)
	assert.Equal(t, 1, fired, "two deliveries before the dispatch pass must coalesce into one")
}
