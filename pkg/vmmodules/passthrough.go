package vmmodules

import "github.com/shanshanpt/vmcore/pkg/vm"

type passthroughState struct{}

// NewPassthroughModule returns a module "Passthrough" exporting
// id(ref) -> ref, which moves its input reference straight through to its
// result without retaining an extra count.
func NewPassthroughModule() *vm.NativeModule[passthroughState] {
	return vm.NewNativeModule[passthroughState]("Passthrough", nil,
		func(vm.Allocator) (*passthroughState, error) { return &passthroughState{}, nil },
		[]vm.NativeFunction[passthroughState]{
			{
				Name:         "id",
				Signature:    vm.FunctionSignature{ArgumentCount: 1, ResultCount: 1},
				RefRegisters: 1,
				Handler: func(state *passthroughState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
					return &vm.RegisterList{Registers: []uint16{0 | vm.RefTypeBit | vm.RefMoveBit}}, vm.ExecutionResult{}, nil
				},
			},
		})
}
