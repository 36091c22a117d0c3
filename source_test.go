package gloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRefUnrefRunsFinalizeOnce(t *testing.T) {
	finalized := 0
	s := NewSource(&SourceFuncs{
		Finalize: func(*Source) { finalized++ },
	})
	s.Ref()
	s.Unref()
	assert.Equal(t, 0, finalized, "still one strong reference outstanding")
	s.Unref()
	assert.Equal(t, 1, finalized)
}

func TestSourceDisposeCanResurrect(t *testing.T) {
	var disposed, finalized int
	s := NewSource(&SourceFuncs{
		Finalize: func(*Source) { finalized++ },
	})
	s.SetDispose(func(src *Source) {
		disposed++
		if disposed == 1 {
			src.Ref() // resurrect on the first dispose only
		}
	})
	s.Unref()
	assert.Equal(t, 1, disposed)
	assert.Equal(t, 0, finalized, "resurrected, so finalize must not run yet")
	s.Unref()
	assert.Equal(t, 2, disposed)
	assert.Equal(t, 1, finalized)
}

func TestSourceCallbackDestroyRunsOnReplace(t *testing.T) {
	s := NewSource(&SourceFuncs{})
	var destroyedWith interface{}
	s.SetCallback(func(interface{}) DispatchResult { return Keep }, "first", func(data interface{}) {
		destroyedWith = data
	})
	s.SetCallback(func(interface{}) DispatchResult { return Keep }, "second", nil)
	assert.Equal(t, "first", destroyedWith)
}

func TestSourceSetPriorityRejectsChild(t *testing.T) {
	parent := NewSource(&SourceFuncs{})
	child := NewSource(&SourceFuncs{})
	require.NoError(t, parent.AddChild(child))
	err := child.SetPriority(PriorityHigh)
	require.Error(t, err)
	var mis *MisuseError
	assert.ErrorAs(t, err, &mis)
	assert.Equal(t, "SetPriority", mis.Op)
}

func TestSourceAddChildRejectsAlreadyOwned(t *testing.T) {
	parent := NewSource(&SourceFuncs{})
	other := NewSource(&SourceFuncs{})
	child := NewSource(&SourceFuncs{})
	require.NoError(t, parent.AddChild(child))
	err := other.AddChild(child)
	require.Error(t, err)
	var mis *MisuseError
	assert.ErrorAs(t, err, &mis)
	assert.Equal(t, "AddChild", mis.Op)
}

func TestSourceDestroyRemovesFromContext(t *testing.T) {
	ctx := NewContext()
	s := NewSource(&SourceFuncs{})
	id := s.Attach(ctx)
	require.NotZero(t, id)
	assert.NotNil(t, ctx.FindSource(id))
	s.Destroy()
	assert.Nil(t, ctx.FindSource(id))
	assert.Nil(t, s.Context())
}
