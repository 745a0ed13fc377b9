package vmmodules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanshanpt/vmcore/pkg/vm"
)

func TestAddTwiceCallsImportedCounterTwice(t *testing.T) {
	ctx, err := vm.NewContext(nil, nil, NewCounterModule(), NewAddTwiceModule())
	require.NoError(t, err)
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("AddTwice.add2")
	require.NoError(t, err)

	in := vm.NewVariantList(1)
	in.Append(vm.I32Value(5))
	out := vm.NewVariantList(0)

	require.NoError(t, vm.Invoke(ctx, fn, in, out))
	require.Equal(t, 1, out.Size())
	assert.Equal(t, int32(7), out.Get(0).I32)
}

func TestPassthroughMovesRefWithoutExtraRetain(t *testing.T) {
	ctx, err := vm.NewContext(nil, nil, NewPassthroughModule())
	require.NoError(t, err)
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("Passthrough.id")
	require.NoError(t, err)

	destroyed := false
	r := vm.NewRef(1, "payload", func(any) { destroyed = true })

	in := vm.NewVariantList(1)
	in.Append(vm.RefValue(r))
	out := vm.NewVariantList(0)

	require.NoError(t, vm.Invoke(ctx, fn, in, out))
	require.Equal(t, 1, out.Size())
	require.True(t, out.Get(0).IsRef)
	assert.Equal(t, "payload", out.Get(0).Ref.Payload())
	assert.False(t, destroyed, "the result still holds the only live reference")

	vm.Release(out.Get(0).Ref)
	assert.True(t, destroyed, "releasing the last reference should run its destructor")
}

func TestRecurseCountsDownToZero(t *testing.T) {
	ctx, err := vm.NewContext(nil, nil, NewRecurseModule())
	require.NoError(t, err)
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("Recurse.run")
	require.NoError(t, err)

	in := vm.NewVariantList(1)
	in.Append(vm.I32Value(16))
	out := vm.NewVariantList(0)

	require.NoError(t, vm.Invoke(ctx, fn, in, out))
	require.Equal(t, 1, out.Size())
	assert.Equal(t, int32(0), out.Get(0).I32)
}

func TestRecursePastMaxDepthFailsWithResourceExhausted(t *testing.T) {
	ctx, err := vm.NewContext(nil, nil, NewRecurseModule())
	require.NoError(t, err)
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("Recurse.run")
	require.NoError(t, err)

	in := vm.NewVariantList(1)
	in.Append(vm.I32Value(1000))
	out := vm.NewVariantList(0)

	err = vm.Invoke(ctx, fn, in, out)
	require.Error(t, err)
	assert.Equal(t, vm.KindResourceExhausted, vm.KindOf(err))
}
