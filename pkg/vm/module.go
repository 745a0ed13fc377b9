package vm

// ModuleState is an opaque, per-context block of state owned by a module.
// The vm package never looks inside it; it only threads the value the
// module itself produced back to that same module on every later call.
type ModuleState = any

// ExecutionResult carries information back from a call beyond its return
// values. It is currently empty: nothing in this runtime's scope can yield
// mid-call, so there is nothing to report yet.
type ExecutionResult struct{}

// Module is the flat capability set every module, native or otherwise,
// must implement to be registered with a Context. There is no base class
// to inherit from and no required call order beyond what each method's
// contract states on its own.
type Module interface {
	// Name returns the module's identifier, used as the left side of a
	// qualified "module.function" name during import resolution.
	Name() string

	// Signature reports the size of the module's import, export, and
	// internal function tables.
	Signature() ModuleSignature

	// GetFunction resolves a function by linkage and ordinal, the
	// position-addressed counterpart to LookupFunction.
	GetFunction(linkage FunctionLinkage, ordinal int32) (fn Function, name string, signature FunctionSignature, err error)

	// LookupFunction resolves a function by linkage and name.
	LookupFunction(linkage FunctionLinkage, name string) (Function, error)

	// AllocState creates a new per-context state block for this module.
	AllocState(allocator Allocator) (ModuleState, error)

	// FreeState releases a state block created by AllocState. Called at
	// most once per successful AllocState, and never concurrently with
	// any other call into the module using the same state.
	FreeState(state ModuleState) error

	// ResolveImport is called once per import ordinal while registering
	// the module, supplying the function resolved to satisfy it.
	ResolveImport(state ModuleState, ordinal int32, target Function) error

	// Call invokes fn, a function owned by this module, against argument
	// registers already placed in the top frame's register banks by the
	// caller.
	Call(stack *Stack, fn Function, argumentRegisters *RegisterList) (ExecutionResult, error)

	// CallVariadic is Call's counterpart for functions whose trailing
	// parameters are variadic segments rather than fixed registers.
	CallVariadic(stack *Stack, fn Function, argumentRegisters *RegisterList, segmentSizes *SegmentSizeList) (ExecutionResult, error)

	// Resume continues a call that previously yielded. No function in
	// this runtime's scope yields, so every implementation is expected to
	// fail with a failed-precondition error.
	Resume(stack *Stack) (ExecutionResult, error)

	// GetFunctionReflectionAttr returns the key/value pair at index for
	// fn's reflection attribute table, or a not-found error past the end.
	GetFunctionReflectionAttr(linkage FunctionLinkage, ordinal int32, index int32) (key, value string, err error)
}
