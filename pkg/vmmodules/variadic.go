package vmmodules

import "github.com/shanshanpt/vmcore/pkg/vm"

type variadicState struct{}

// NewVariadicModule returns a module "Variadic" exporting sum(...i32) ->
// i32, a function only reachable through CallVariadic: the number of
// registers its frame needs is not known until a call supplies its
// segment sizes.
func NewVariadicModule() *vm.NativeModule[variadicState] {
	return vm.NewNativeModule[variadicState]("Variadic", nil,
		func(vm.Allocator) (*variadicState, error) { return &variadicState{}, nil },
		[]vm.NativeFunction[variadicState]{
			{
				Name:         "sum",
				Signature:    vm.FunctionSignature{ResultCount: 1},
				I32Registers: 1,
				VariadicHandler: func(state *variadicState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList, segments *vm.SegmentSizeList) (*vm.RegisterList, vm.ExecutionResult, error) {
					regs := stack.FrameRegisters(stack.CurrentFrame())
					var total int32
					var ord uint16
					for _, n := range segments.Sizes {
						for i := uint16(0); i < n; i++ {
							total += regs.I32[ord]
							ord++
						}
					}
					regs.I32[0] = total
					return &vm.RegisterList{Registers: []uint16{0}}, vm.ExecutionResult{}, nil
				},
			},
		})
}

type variadicCallerState struct {
	sum vm.Function
}

func (s *variadicCallerState) ResolveImport(ordinal int32, target vm.Function) error {
	s.sum = target
	return nil
}

// NewVariadicCallerModule returns a module "VariadicCaller" that imports
// "Variadic.sum" and exports sumThree(i32, i32, i32) -> i32, calling the
// import through CallVariadic with a single three-element segment so the
// import is exercised the way compiled dispatch code would exercise it.
func NewVariadicCallerModule() *vm.NativeModule[variadicCallerState] {
	return vm.NewNativeModule[variadicCallerState]("VariadicCaller", []string{"Variadic.sum"},
		func(vm.Allocator) (*variadicCallerState, error) { return &variadicCallerState{}, nil },
		[]vm.NativeFunction[variadicCallerState]{
			{
				Name:         "sumThree",
				Signature:    vm.FunctionSignature{ArgumentCount: 3, ResultCount: 1},
				I32Registers: 3,
				Handler: func(state *variadicCallerState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
					frame := stack.CurrentFrame()
					frame.SetReturnRegisters(&vm.RegisterList{Registers: []uint16{0}})
					argRegs := &vm.RegisterList{Registers: []uint16{0, 1, 2}}
					segments := &vm.SegmentSizeList{Sizes: []uint16{3}}
					if _, err := state.sum.Module.CallVariadic(stack, state.sum, argRegs, segments); err != nil {
						return nil, vm.ExecutionResult{}, err
					}
					return &vm.RegisterList{Registers: []uint16{0}}, vm.ExecutionResult{}, nil
				},
			},
		})
}
