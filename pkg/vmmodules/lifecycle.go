package vmmodules

import "github.com/shanshanpt/vmcore/pkg/vm"

type lifecycleState struct {
	name string
	log  *[]string
}

// NewLifecycleModule returns a module named name with __init and __deinit
// exports that each append an entry to *log, letting a test observe the
// order a batch of such modules is initialized and torn down in.
func NewLifecycleModule(name string, log *[]string) *vm.NativeModule[lifecycleState] {
	newState := func(vm.Allocator) (*lifecycleState, error) {
		return &lifecycleState{name: name, log: log}, nil
	}
	dispatch := []vm.NativeFunction[lifecycleState]{
		{
			Name: "__init",
			Handler: func(state *lifecycleState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
				*state.log = append(*state.log, state.name+".__init")
				return nil, vm.ExecutionResult{}, nil
			},
		},
		{
			Name: "__deinit",
			Handler: func(state *lifecycleState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
				*state.log = append(*state.log, state.name+".__deinit")
				return nil, vm.ExecutionResult{}, nil
			},
		},
	}
	return vm.NewNativeModule[lifecycleState](name, nil, newState, dispatch)
}

// NewFailingInitModule returns a module whose __init export always fails,
// used to exercise registration rollback.
func NewFailingInitModule(name string, log *[]string) *vm.NativeModule[lifecycleState] {
	newState := func(vm.Allocator) (*lifecycleState, error) {
		return &lifecycleState{name: name, log: log}, nil
	}
	dispatch := []vm.NativeFunction[lifecycleState]{
		{
			Name: "__init",
			Handler: func(state *lifecycleState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
				*state.log = append(*state.log, state.name+".__init")
				return nil, vm.ExecutionResult{}, vm.ErrFailedPrecondition
			},
		},
		{
			Name: "__deinit",
			Handler: func(state *lifecycleState, stack *vm.Stack, fn vm.Function, args *vm.RegisterList) (*vm.RegisterList, vm.ExecutionResult, error) {
				*state.log = append(*state.log, state.name+".__deinit")
				return nil, vm.ExecutionResult{}, nil
			},
		},
	}
	return vm.NewNativeModule[lifecycleState](name, nil, newState, dispatch)
}
