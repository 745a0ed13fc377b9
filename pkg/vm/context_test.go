package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextResolveFunctionShadowsByRegistrationOrder(t *testing.T) {
	var log []string
	a1 := newLifecycleStub("A", &log)
	a2 := newLifecycleStub("A", &log)

	ctx, err := NewContext(nil, nil, a1, a2)
	require.NoError(t, err)
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("A.ping")
	require.NoError(t, err)
	assert.Same(t, Module(a2), fn.Module, "the later registration of module A should shadow the earlier one")
}

func TestContextStaticCapacityRejectsGrowth(t *testing.T) {
	var log []string
	ctx, err := NewContext(nil, nil, newLifecycleStub("A", &log))
	require.NoError(t, err)
	defer ctx.Release()

	err = ctx.RegisterModules(newLifecycleStub("B", &log))
	assert.Equal(t, KindFailedPrecondition, KindOf(err))
}

func TestDynamicContextGrows(t *testing.T) {
	var log []string
	ctx, err := NewDynamicContext(nil, nil)
	require.NoError(t, err)
	defer ctx.Release()

	require.NoError(t, ctx.RegisterModules(newLifecycleStub("A", &log)))
	require.NoError(t, ctx.RegisterModules(newLifecycleStub("B", &log)))

	_, err = ctx.ResolveFunction("B.ping")
	require.NoError(t, err)
}

func TestContextInitDeinitOrder(t *testing.T) {
	var log []string
	ctx, err := NewContext(nil, nil, newLifecycleStub("A", &log), newLifecycleStub("B", &log), newLifecycleStub("C", &log))
	require.NoError(t, err)

	assert.Equal(t, []string{"A.__init", "B.__init", "C.__init"}, log)

	log = nil
	require.NoError(t, ctx.Release())
	assert.Equal(t, []string{"C.__deinit", "B.__deinit", "A.__deinit"}, log)
}

func TestContextRegistrationRollsBackOnInitFailure(t *testing.T) {
	var log []string
	ctx, err := NewContext(nil, nil, newLifecycleStub("A", &log), newFailingInitStub("B", &log))
	require.Error(t, err)
	assert.Nil(t, ctx)

	// A's state was freed during rollback and B's __init never committed,
	// so neither module's __deinit should ever run for this batch.
	assert.NotContains(t, log, "A.__deinit")
	assert.NotContains(t, log, "B.__deinit")
}

func TestContextUnresolvedImportReportsDiagnostic(t *testing.T) {
	sink := &recordingSink{}
	importer := newImportingStub("Importer", "Missing.fn")

	_, err := NewContext(nil, sink, importer)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	require.Len(t, sink.reports, 1)
	assert.Equal(t, DiagnosticUnresolvedImport, sink.reports[0].Kind)
	assert.Equal(t, "Missing.fn", sink.reports[0].QualifiedName)
}

// --- test fixtures -------------------------------------------------------

type recordingSink struct {
	reports []Diagnostic
}

func (s *recordingSink) Report(d Diagnostic) {
	s.reports = append(s.reports, d)
}

type lifecycleStubState struct {
	name string
	log  *[]string
}

func (s *lifecycleStubState) ResolveImport(ordinal int32, target Function) error {
	return ErrFailedPrecondition
}

func newLifecycleStub(name string, log *[]string) *NativeModule[lifecycleStubState] {
	return NewNativeModule[lifecycleStubState](name, nil,
		func(Allocator) (*lifecycleStubState, error) { return &lifecycleStubState{name: name, log: log}, nil },
		[]NativeFunction[lifecycleStubState]{
			{Name: "ping", Handler: func(s *lifecycleStubState, st *Stack, fn Function, args *RegisterList) (*RegisterList, ExecutionResult, error) {
				return nil, ExecutionResult{}, nil
			}},
			{Name: "__init", Handler: func(s *lifecycleStubState, st *Stack, fn Function, args *RegisterList) (*RegisterList, ExecutionResult, error) {
				*s.log = append(*s.log, s.name+".__init")
				return nil, ExecutionResult{}, nil
			}},
			{Name: "__deinit", Handler: func(s *lifecycleStubState, st *Stack, fn Function, args *RegisterList) (*RegisterList, ExecutionResult, error) {
				*s.log = append(*s.log, s.name+".__deinit")
				return nil, ExecutionResult{}, nil
			}},
		})
}

func newFailingInitStub(name string, log *[]string) *NativeModule[lifecycleStubState] {
	return NewNativeModule[lifecycleStubState](name, nil,
		func(Allocator) (*lifecycleStubState, error) { return &lifecycleStubState{name: name, log: log}, nil },
		[]NativeFunction[lifecycleStubState]{
			{Name: "__init", Handler: func(s *lifecycleStubState, st *Stack, fn Function, args *RegisterList) (*RegisterList, ExecutionResult, error) {
				*s.log = append(*s.log, s.name+".__init")
				return nil, ExecutionResult{}, ErrFailedPrecondition
			}},
			{Name: "__deinit", Handler: func(s *lifecycleStubState, st *Stack, fn Function, args *RegisterList) (*RegisterList, ExecutionResult, error) {
				*s.log = append(*s.log, s.name+".__deinit")
				return nil, ExecutionResult{}, nil
			}},
		})
}

type importingStubState struct {
	target Function
}

func (s *importingStubState) ResolveImport(ordinal int32, target Function) error {
	s.target = target
	return nil
}

func newImportingStub(name, importName string) *NativeModule[importingStubState] {
	return NewNativeModule[importingStubState](name, []string{importName},
		func(Allocator) (*importingStubState, error) { return &importingStubState{}, nil },
		nil)
}
