package gloop

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorSourceFiresOnReadable(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ctx := NewContext()
	var seen IOEvent
	s := NewDescriptorSource(int(r.Fd()), IOReadable, func(events IOEvent) DispatchResult {
		seen = events
		return Keep
	})
	s.Attach(ctx)

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	dispatched := ctx.Iteration(true)
	require.True(t, dispatched)
	assert.NotZero(t, seen&IOReadable)
}

func TestModifyEventsChangesWatchedMask(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ctx := NewContext()
	fired := 0
	s := NewDescriptorSource(int(r.Fd()), IOReadable, func(events IOEvent) DispatchResult {
		fired++
		return Keep
	})
	s.Attach(ctx)
	s.ModifyEvents(0) // stop watching for readability

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	ctx.Iteration(false)
	assert.Equal(t, 0, fired, "should not fire once the requested mask is cleared")
}
