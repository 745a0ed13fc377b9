package vmmodules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanshanpt/vmcore/pkg/vm"
)

func TestVariadicCallerSumsThreeArgumentsThroughCallVariadic(t *testing.T) {
	ctx, err := vm.NewContext(nil, nil, NewVariadicModule(), NewVariadicCallerModule())
	require.NoError(t, err)
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("VariadicCaller.sumThree")
	require.NoError(t, err)

	in := vm.NewVariantList(3)
	in.Append(vm.I32Value(1))
	in.Append(vm.I32Value(2))
	in.Append(vm.I32Value(3))
	out := vm.NewVariantList(0)

	require.NoError(t, vm.Invoke(ctx, fn, in, out))
	require.Equal(t, 1, out.Size())
	assert.Equal(t, int32(6), out.Get(0).I32)
}

func TestCallingVariadicOnlyFunctionThroughCallFails(t *testing.T) {
	ctx, err := vm.NewContext(nil, nil, NewVariadicModule())
	require.NoError(t, err)
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("Variadic.sum")
	require.NoError(t, err)

	_, err = fn.Module.Call(nil, fn, nil)
	require.Error(t, err)
	assert.Equal(t, vm.KindFailedPrecondition, vm.KindOf(err))
}
