package vm

import "fmt"

// NativeFunction is one entry in a NativeModule's dispatch table: an
// exported name, the external signature it reports, the register bank
// sizes its frame needs, and the Go closure that implements it.
//
// A Handler reads its arguments out of its own frame's registers (already
// populated by the ABI remap that ran when its frame was pushed) and
// returns the register list naming, in that same frame, where its results
// live. It must not pop its own frame; NativeModule.Call does that once
// the handler returns.
//
// An entry is either fixed-arity (Handler set, called through Call) or
// variadic (VariadicHandler set, called through CallVariadic); never both.
// For a variadic entry, I32Registers is the minimum size of the frame's
// i32 bank; when the call's segment sizes total more, the bank is grown to
// that total before the frame is entered, so the argument remap that runs
// on entry already has a correctly sized destination. RefRegisters is used
// as declared.
type NativeFunction[State any] struct {
	Name         string
	Signature    FunctionSignature
	I32Registers uint16
	RefRegisters uint16
	Handler      func(state *State, stack *Stack, fn Function, argumentRegisters *RegisterList) (resultRegisters *RegisterList, result ExecutionResult, err error)

	VariadicHandler func(state *State, stack *Stack, fn Function, argumentRegisters *RegisterList, segmentSizes *SegmentSizeList) (resultRegisters *RegisterList, result ExecutionResult, err error)
}

// ImportResolver is implemented by a NativeModule's State type when that
// module declares imports. NewNativeModule's generated ResolveImport
// delegates to it, passing the ordinal and the function chosen to satisfy
// it so the state can stash it for later calls.
type ImportResolver interface {
	ResolveImport(ordinal int32, target Function) error
}

// NativeModule adapts a Go dispatch table of NativeFunction entries into a
// Module, removing the boilerplate of hand-writing GetFunction,
// LookupFunction, and the rest for every module that is really just a flat
// table of named Go functions.
type NativeModule[State any] struct {
	name     string
	imports  []string
	dispatch []NativeFunction[State]
	newState func(Allocator) (*State, error)
}

// NewNativeModule builds a module named name, exporting the functions in
// dispatch and importing the qualified names in imports (in declaration
// order; ResolveImport is called with the matching ordinal for each).
// newState is called once per AllocState to create the module's per-context
// state.
func NewNativeModule[State any](name string, imports []string, newState func(Allocator) (*State, error), dispatch []NativeFunction[State]) *NativeModule[State] {
	return &NativeModule[State]{
		name:     name,
		imports:  imports,
		dispatch: dispatch,
		newState: newState,
	}
}

func (m *NativeModule[State]) Name() string { return m.name }

func (m *NativeModule[State]) Signature() ModuleSignature {
	return ModuleSignature{
		ImportFunctionCount: int32(len(m.imports)),
		ExportFunctionCount: int32(len(m.dispatch)),
	}
}

func (m *NativeModule[State]) GetFunction(linkage FunctionLinkage, ordinal int32) (Function, string, FunctionSignature, error) {
	switch linkage {
	case LinkageExport:
		if ordinal < 0 || int(ordinal) >= len(m.dispatch) {
			return Function{}, "", FunctionSignature{}, newError(KindInvalidArgument, "module %q has no export %d", m.name, ordinal)
		}
		e := m.dispatch[ordinal]
		fn := Function{Module: m, Linkage: LinkageExport, Ordinal: ordinal, I32RegisterCount: e.I32Registers, RefRegisterCount: e.RefRegisters}
		return fn, e.Name, e.Signature, nil
	case LinkageImport:
		if ordinal < 0 || int(ordinal) >= len(m.imports) {
			return Function{}, "", FunctionSignature{}, newError(KindInvalidArgument, "module %q has no import %d", m.name, ordinal)
		}
		return Function{Module: m, Linkage: LinkageImport, Ordinal: ordinal}, m.imports[ordinal], FunctionSignature{}, nil
	default:
		return Function{}, "", FunctionSignature{}, newError(KindInvalidArgument, "unsupported linkage %s", linkage)
	}
}

func (m *NativeModule[State]) LookupFunction(linkage FunctionLinkage, name string) (Function, error) {
	switch linkage {
	case LinkageExport:
		for i, e := range m.dispatch {
			if e.Name == name {
				return Function{Module: m, Linkage: LinkageExport, Ordinal: int32(i), I32RegisterCount: e.I32Registers, RefRegisterCount: e.RefRegisters}, nil
			}
		}
	case LinkageImport:
		for i, n := range m.imports {
			if n == name {
				return Function{Module: m, Linkage: LinkageImport, Ordinal: int32(i)}, nil
			}
		}
	}
	return Function{}, newError(KindNotFound, "function %q not found in module %q", name, m.name)
}

func (m *NativeModule[State]) AllocState(allocator Allocator) (ModuleState, error) {
	state, err := m.newState(allocator)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (m *NativeModule[State]) FreeState(state ModuleState) error {
	return nil
}

func (m *NativeModule[State]) ResolveImport(state ModuleState, ordinal int32, target Function) error {
	resolver, ok := state.(ImportResolver)
	if !ok {
		return newError(KindFailedPrecondition, "module %q does not support imports", m.name)
	}
	return resolver.ResolveImport(ordinal, target)
}

func (m *NativeModule[State]) Call(stack *Stack, fn Function, argumentRegisters *RegisterList) (ExecutionResult, error) {
	if fn.Ordinal < 0 || int(fn.Ordinal) >= len(m.dispatch) {
		return ExecutionResult{}, newError(KindInvalidArgument, "module %q has no export %d", m.name, fn.Ordinal)
	}
	entry := m.dispatch[fn.Ordinal]
	if entry.Handler == nil {
		return ExecutionResult{}, newError(KindFailedPrecondition, "function %q is variadic; it must be called through CallVariadic", entry.Name)
	}

	frame, _, err := stack.EnterFunction(fn, argumentRegisters)
	if err != nil {
		return ExecutionResult{}, err
	}

	state, _ := frame.ModuleState().(*State)
	resultRegisters, result, callErr := entry.Handler(state, stack, fn, argumentRegisters)
	if callErr != nil {
		_, _, _ = stack.LeaveFunction(nil)
		return ExecutionResult{}, fmt.Errorf("while executing %s.%s: %w", m.name, entry.Name, callErr)
	}

	if _, _, err := stack.LeaveFunction(resultRegisters); err != nil {
		return ExecutionResult{}, err
	}
	return result, nil
}

// CallVariadic is Call's counterpart for a NativeFunction whose
// VariadicHandler is set. segmentSizes is resolved into a total register
// count strictly before the frame is entered: the frame's i32 bank is sized
// to the larger of the entry's declared I32Registers and that total, so
// the frame EnterFunction builds (and the ABI remap that runs as part of
// it) is already sized correctly rather than needing a second pass.
func (m *NativeModule[State]) CallVariadic(stack *Stack, fn Function, argumentRegisters *RegisterList, segmentSizes *SegmentSizeList) (ExecutionResult, error) {
	if fn.Ordinal < 0 || int(fn.Ordinal) >= len(m.dispatch) {
		return ExecutionResult{}, newError(KindInvalidArgument, "module %q has no export %d", m.name, fn.Ordinal)
	}
	entry := m.dispatch[fn.Ordinal]
	if entry.VariadicHandler == nil {
		return ExecutionResult{}, newError(KindFailedPrecondition, "function %q is not variadic", entry.Name)
	}

	variadicFn := fn
	if segmentSizes != nil {
		var total uint16
		for _, n := range segmentSizes.Sizes {
			total += n
		}
		if total > variadicFn.I32RegisterCount {
			variadicFn.I32RegisterCount = total
		}
	}

	frame, _, err := stack.EnterFunction(variadicFn, argumentRegisters)
	if err != nil {
		return ExecutionResult{}, err
	}

	state, _ := frame.ModuleState().(*State)
	resultRegisters, result, callErr := entry.VariadicHandler(state, stack, fn, argumentRegisters, segmentSizes)
	if callErr != nil {
		_, _, _ = stack.LeaveFunction(nil)
		return ExecutionResult{}, fmt.Errorf("while executing %s.%s: %w", m.name, entry.Name, callErr)
	}

	if _, _, err := stack.LeaveFunction(resultRegisters); err != nil {
		return ExecutionResult{}, err
	}
	return result, nil
}

func (m *NativeModule[State]) Resume(stack *Stack) (ExecutionResult, error) {
	return ExecutionResult{}, newError(KindFailedPrecondition, "module %q has no suspended calls to resume", m.name)
}

func (m *NativeModule[State]) GetFunctionReflectionAttr(linkage FunctionLinkage, ordinal int32, index int32) (string, string, error) {
	return "", "", newError(KindNotFound, "module %q has no reflection attributes", m.name)
}
