package vmmodules

import "github.com/shanshanpt/vmcore/pkg/vm"

type recurseState struct{}

// NewRecurseModule returns a module "Recurse" exporting run(i32) -> i32,
// which counts its argument down to zero by calling itself once per step.
// Each frame reserves a large register window, so a deep call exercises
// both stack depth growth and i32 arena growth; past the stack's maximum
// depth it fails with a resource-exhausted error instead of recursing
// further.
func NewRecurseModule() *vm.NativeModule[recurseState] {
	return vm.NewNativeModule[recurseState]("Recurse", nil,
		func(vm.Allocator) (*recurseState, error) { return &recurseState{}, nil },
		[]vm.NativeFunction[recurseState]{
			{
				Name:         "run",
				Signature:    vm.FunctionSignature{ArgumentCount: 1, ResultCount: 1},
				I32Registers: 256,
				Handler: func(state *recurseState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
					frame := stack.CurrentFrame()
					regs := stack.FrameRegisters(frame)
					depth := regs.I32[0]
					if depth <= 0 {
						regs.I32[0] = 0
						return &vm.RegisterList{Registers: []uint16{0}}, vm.ExecutionResult{}, nil
					}

					regs.I32[1] = depth - 1
					frame.SetReturnRegisters(&vm.RegisterList{Registers: []uint16{0}})
					if _, err := fn.Module.Call(stack, fn, &vm.RegisterList{Registers: []uint16{1}}); err != nil {
						return nil, vm.ExecutionResult{}, err
					}
					return &vm.RegisterList{Registers: []uint16{0}}, vm.ExecutionResult{}, nil
				},
			},
		})
}
