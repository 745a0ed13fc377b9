package vm

import (
	"strings"
	"sync"
	"sync/atomic"
)

var nextContextID int64

// Context owns a dense, index-aligned set of modules and their per-context
// state, and arbitrates import resolution between them. It is reference
// counted: teardown of the last-registered-first module state and the
// reverse-order __deinit sweep run synchronously when the last reference
// is released, not whenever the garbage collector gets to it.
type Context struct {
	id        int64
	allocator Allocator
	sink      DiagnosticSink
	isStatic  bool

	mu       sync.Mutex
	refCount int32
	modules  []Module
	states   []ModuleState
	capacity int
}

// NewContext creates a context preloaded with modules and no further
// growth capacity: an attempt to register additional modules later fails
// with a failed-precondition error. allocator and sink may be nil.
func NewContext(allocator Allocator, sink DiagnosticSink, modules ...Module) (*Context, error) {
	return newContext(allocator, sink, true, modules)
}

// NewDynamicContext creates an empty context that can grow as modules are
// registered into it over time.
func NewDynamicContext(allocator Allocator, sink DiagnosticSink) (*Context, error) {
	return newContext(allocator, sink, false, nil)
}

func newContext(allocator Allocator, sink DiagnosticSink, static bool, modules []Module) (*Context, error) {
	for _, m := range modules {
		if m == nil {
			return nil, newError(KindInvalidArgument, "module list contains a nil module")
		}
	}
	if allocator == nil {
		allocator = DefaultAllocator
	}
	if sink == nil {
		sink = discardSink{}
	}
	c := &Context{
		id:        atomic.AddInt64(&nextContextID, 1),
		allocator: allocator,
		sink:      sink,
		isStatic:  static,
		refCount:  1,
		capacity:  len(modules),
	}
	if err := c.RegisterModules(modules...); err != nil {
		return nil, err
	}
	return c, nil
}

// ID returns the context's process-unique, monotonically assigned
// identifier.
func (c *Context) ID() int64 { return c.id }

// Retain increments the context's reference count.
func (c *Context) Retain() {
	atomic.AddInt32(&c.refCount, 1)
}

// Release decrements the context's reference count, tearing the context
// down synchronously once the count reaches zero: every registered
// module's __deinit export runs in reverse registration order, followed by
// FreeState in reverse order.
func (c *Context) Release() error {
	if atomic.AddInt32(&c.refCount, -1) == 0 {
		return c.teardown()
	}
	return nil
}

func (c *Context) teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.modules) == 0 {
		return nil
	}

	stack, err := NewStack(lockedStateResolver{c}, c.allocator)
	if err != nil {
		return err
	}
	defer stack.Close()

	for i := len(c.modules) - 1; i >= 0; i-- {
		if c.states[i] == nil {
			continue
		}
		fn, err := c.modules[i].LookupFunction(LinkageExport, "__deinit")
		if err != nil {
			continue
		}
		if _, callErr := c.modules[i].Call(stack, fn, nil); callErr != nil {
			c.sink.Report(Diagnostic{
				Kind:          DiagnosticDeinitFailure,
				Message:       callErr.Error(),
				QualifiedName: c.modules[i].Name() + ".__deinit",
			})
		}
	}

	for i := len(c.modules) - 1; i >= 0; i-- {
		if c.states[i] != nil {
			c.modules[i].FreeState(c.states[i])
			c.states[i] = nil
		}
	}

	c.modules = nil
	c.states = nil
	return nil
}

// QueryModuleState implements StateResolver, returning the state
// previously allocated for module by RegisterModules.
func (c *Context) QueryModuleState(module Module) (ModuleState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryModuleStateLocked(module)
}

// lockedStateResolver serves the scratch stacks that run __init and
// __deinit while c.mu is already held, so their frames resolve module
// state without locking c.mu a second time.
type lockedStateResolver struct{ c *Context }

func (r lockedStateResolver) QueryModuleState(module Module) (ModuleState, error) {
	return r.c.queryModuleStateLocked(module)
}

func (c *Context) queryModuleStateLocked(module Module) (ModuleState, error) {
	for i, m := range c.modules {
		if m == module {
			return c.states[i], nil
		}
	}
	return nil, newError(KindNotFound, "no state registered for module")
}

// RegisterModules appends modules to the context: allocating state,
// resolving imports, and running each module's __init export, in order,
// rolling the whole batch back on the first failure. A static context with
// no remaining capacity rejects any call with at least one module.
func (c *Context) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if m == nil {
			return newError(KindInvalidArgument, "module list contains a nil module")
		}
	}
	if len(modules) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.modules)+len(modules) > c.capacity {
		if c.isStatic {
			return newError(KindFailedPrecondition, "context is static and has no capacity for additional modules")
		}
		newCapacity := c.capacity * 2
		if want := len(c.modules) + len(modules); newCapacity < want {
			newCapacity = want
		}
		c.capacity = newCapacity
	}

	stack, err := NewStack(lockedStateResolver{c}, c.allocator)
	if err != nil {
		return err
	}
	defer stack.Close()

	originalCount := len(c.modules)
	for i, m := range modules {
		c.modules = append(c.modules, m)
		c.states = append(c.states, nil)

		state, err := m.AllocState(c.allocator)
		if err != nil {
			c.rollback(originalCount, originalCount+i)
			return err
		}
		c.states[originalCount+i] = state

		if err := c.resolveModuleImports(m, state); err != nil {
			c.rollback(originalCount, originalCount+i)
			return err
		}

		if initFn, lookupErr := m.LookupFunction(LinkageExport, "__init"); lookupErr == nil {
			if _, callErr := m.Call(stack, initFn, nil); callErr != nil {
				c.sink.Report(Diagnostic{
					Kind:          DiagnosticInitFailure,
					Message:       callErr.Error(),
					QualifiedName: m.Name() + ".__init",
				})
				c.rollback(originalCount, originalCount+i)
				return callErr
			}
		}
	}

	return nil
}

// rollback undoes a partially-applied registration batch spanning
// [start, endInclusive] in c.modules/c.states, freeing any state already
// allocated. Modules earlier in the batch may already have run __init;
// __deinit is still never invoked for any module in the range.
func (c *Context) rollback(start, endInclusive int) {
	for i := endInclusive; i >= start; i-- {
		if c.states[i] != nil {
			c.modules[i].FreeState(c.states[i])
			c.states[i] = nil
		}
	}
	c.modules = c.modules[:start]
	c.states = c.states[:start]
}

func (c *Context) resolveModuleImports(m Module, state ModuleState) error {
	sig := m.Signature()
	for ord := int32(0); ord < sig.ImportFunctionCount; ord++ {
		_, name, _, err := m.GetFunction(LinkageImport, ord)
		if err != nil {
			return err
		}
		target, err := c.resolveFunctionLocked(name)
		if err != nil {
			c.sink.Report(Diagnostic{
				Kind:          DiagnosticUnresolvedImport,
				Message:       err.Error(),
				QualifiedName: name,
			})
			return newError(KindNotFound, "unable to resolve import %q", name)
		}
		if err := m.ResolveImport(state, ord, target); err != nil {
			return err
		}
	}
	return nil
}

// ResolveFunction splits a "module.function" qualified name and resolves
// it against the registered modules, scanning from the most recently
// registered module backward so later registrations shadow earlier ones
// of the same name. This ordering is a stability guarantee, not an
// implementation detail: hosts may rely on re-registering a module under
// the same name to shadow an earlier one.
func (c *Context) ResolveFunction(qualifiedName string) (Function, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveFunctionLocked(qualifiedName)
}

func (c *Context) resolveFunctionLocked(qualifiedName string) (Function, error) {
	moduleName, functionName, err := splitQualifiedName(qualifiedName)
	if err != nil {
		return Function{}, err
	}
	for i := len(c.modules) - 1; i >= 0; i-- {
		if c.modules[i].Name() == moduleName {
			return c.modules[i].LookupFunction(LinkageExport, functionName)
		}
	}
	return Function{}, newError(KindNotFound, "module %q not registered", moduleName)
}

func splitQualifiedName(name string) (module, function string, err error) {
	idx := strings.IndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return "", "", newError(KindInvalidArgument, "malformed qualified function name %q", name)
	}
	return name[:idx], name[idx+1:], nil
}
