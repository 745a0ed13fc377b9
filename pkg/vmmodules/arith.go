// Package vmmodules holds a handful of native modules used to exercise
// the vm package end to end: import resolution across modules, reference
// move semantics through a call boundary, and deep self-recursion.
package vmmodules

import "github.com/shanshanpt/vmcore/pkg/vm"

type incState struct{}

// NewCounterModule returns a module "Counter" exporting inc(i32) -> i32,
// which adds one to its argument.
func NewCounterModule() *vm.NativeModule[incState] {
	return vm.NewNativeModule[incState]("Counter", nil,
		func(vm.Allocator) (*incState, error) { return &incState{}, nil },
		[]vm.NativeFunction[incState]{
			{
				Name:         "inc",
				Signature:    vm.FunctionSignature{ArgumentCount: 1, ResultCount: 1},
				I32Registers: 1,
				Handler: func(state *incState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
					regs := stack.FrameRegisters(stack.CurrentFrame())
					regs.I32[0] = regs.I32[0] + 1
					return &vm.RegisterList{Registers: []uint16{0}}, vm.ExecutionResult{}, nil
				},
			},
		})
}

type addTwiceState struct {
	inc vm.Function
}

func (s *addTwiceState) ResolveImport(ordinal int32, target vm.Function) error {
	s.inc = target
	return nil
}

// NewAddTwiceModule returns a module "AddTwice" that imports "Counter.inc"
// and exports add2(i32) -> i32, computed by calling the import twice.
func NewAddTwiceModule() *vm.NativeModule[addTwiceState] {
	return vm.NewNativeModule[addTwiceState]("AddTwice", []string{"Counter.inc"},
		func(vm.Allocator) (*addTwiceState, error) { return &addTwiceState{}, nil },
		[]vm.NativeFunction[addTwiceState]{
			{
				Name:         "add2",
				Signature:    vm.FunctionSignature{ArgumentCount: 1, ResultCount: 1},
				I32Registers: 1,
				Handler: func(state *addTwiceState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
					frame := stack.CurrentFrame()
					dest := &vm.RegisterList{Registers: []uint16{0}}
					argRegs := &vm.RegisterList{Registers: []uint16{0}}
					for i := 0; i < 2; i++ {
						frame.SetReturnRegisters(dest)
						if _, err := state.inc.Module.Call(stack, state.inc, argRegs); err != nil {
							return nil, vm.ExecutionResult{}, err
						}
					}
					return &vm.RegisterList{Registers: []uint16{0}}, vm.ExecutionResult{}, nil
				},
			},
		})
}
