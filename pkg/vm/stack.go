package vm

// MaxStackDepth bounds how many frames may be live at once. A function
// that would push past this depth fails with a resource-exhausted error
// rather than growing without limit.
const MaxStackDepth = 32

// Default arena sizes, tuned the way a first allocation for a typical
// invocation would be: generous enough that most call trees never trigger
// a growth, small enough that an idle stack is cheap to create.
const (
	defaultI32ArenaCapacity = 1024
	defaultRefArenaCapacity = 128
)

// StateResolver looks up the per-context state for a module, the one piece
// of context a Stack needs in order to push frames for modules it has never
// seen before.
type StateResolver interface {
	QueryModuleState(module Module) (ModuleState, error)
}

// Frame is one entry in the call stack: a function's register windows, the
// module state it executes against, its program counter, and where its
// eventual results should land in its caller.
type Frame struct {
	pc int64

	i32Base, i32Count int
	refBase, refCount int

	function    Function
	moduleState ModuleState

	// returnRegisters names, in this frame's own registers, where results
	// of calls this frame makes should be written. It is set by this
	// frame itself, not by whoever pushed it, right before issuing a call
	// whose results it wants to capture.
	returnRegisters *RegisterList

	// isExternal marks a frame pushed by EnterExternal. Such frames have
	// no module and collect call results as externalResults rather than
	// through the register-remap path, since there is no caller register
	// bank to remap into.
	isExternal      bool
	externalResults []Value
}

// PC returns the frame's program counter.
func (f *Frame) PC() int64 { return f.pc }

// SetPC updates the frame's program counter.
func (f *Frame) SetPC(pc int64) { f.pc = pc }

// Function returns the function this frame is executing.
func (f *Frame) Function() Function { return f.function }

// ModuleState returns the module state this frame executes against, or nil
// for an external frame.
func (f *Frame) ModuleState() ModuleState { return f.moduleState }

// ReturnRegisters returns the destination registers most recently recorded
// for calls issued from this frame.
func (f *Frame) ReturnRegisters() *RegisterList { return f.returnRegisters }

// SetReturnRegisters records, in this frame's own registers, where the
// results of the next call issued from this frame should be written. It
// must be called before issuing that call.
func (f *Frame) SetReturnRegisters(list *RegisterList) { f.returnRegisters = list }

// Stack is an execution stack: a bounded sequence of frames plus the
// register storage they draw from. A Stack is created fresh for each
// invocation and discarded afterward; it holds no state that outlives one
// call tree.
type Stack struct {
	resolver  StateResolver
	allocator Allocator

	depth  int
	frames [MaxStackDepth]Frame

	i32Arena []int32
	i32Used  int
	refArena []Ref
	refUsed  int
}

// NewStack creates an empty stack that resolves module state through
// resolver. allocator may be nil, in which case DefaultAllocator is used.
func NewStack(resolver StateResolver, allocator Allocator) (*Stack, error) {
	if resolver == nil {
		return nil, newError(KindInvalidArgument, "state resolver is required")
	}
	if allocator == nil {
		allocator = DefaultAllocator
	}
	return &Stack{
		resolver:  resolver,
		allocator: allocator,
		i32Arena:  make([]int32, defaultI32ArenaCapacity),
		refArena:  make([]Ref, defaultRefArenaCapacity),
	}, nil
}

// Close pops any frames still live on the stack, releasing their reference
// registers. It is safe to call on an already-empty stack.
func (s *Stack) Close() error {
	for s.depth > 0 {
		if _, _, err := s.LeaveFunction(nil); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the number of frames currently pushed.
func (s *Stack) Depth() int { return s.depth }

// CurrentFrame returns the top of the stack, or nil if empty.
func (s *Stack) CurrentFrame() *Frame {
	if s.depth == 0 {
		return nil
	}
	return &s.frames[s.depth-1]
}

// ParentFrame returns the frame below the top of the stack, or nil if
// there is no such frame.
func (s *Stack) ParentFrame() *Frame {
	if s.depth < 2 {
		return nil
	}
	return &s.frames[s.depth-2]
}

// FrameRegisters returns a live view over f's register storage, re-derived
// from the stack's current arenas.
func (s *Stack) FrameRegisters(f *Frame) Registers {
	return s.registersForFrame(f)
}

func (s *Stack) registersForFrame(f *Frame) Registers {
	var regs Registers
	if f.i32Count > 0 {
		regs.I32 = s.i32Arena[f.i32Base : f.i32Base+f.i32Count]
		regs.I32Mask = uint16(f.i32Count - 1)
	}
	if f.refCount > 0 {
		regs.Ref = s.refArena[f.refBase : f.refBase+f.refCount]
		regs.RefMask = uint16(f.refCount - 1)
	}
	return regs
}

func (s *Stack) ensureI32Capacity(want int) {
	if want <= len(s.i32Arena) {
		return
	}
	newCap := len(s.i32Arena) * 2
	if newCap < want {
		newCap = want
	}
	newArena := make([]int32, newCap)
	copy(newArena, s.i32Arena[:s.i32Used])
	s.i32Arena = newArena
}

func (s *Stack) ensureRefCapacity(want int) {
	if want <= len(s.refArena) {
		return
	}
	newCap := len(s.refArena) * 2
	if newCap < want {
		newCap = want
	}
	newArena := make([]Ref, newCap)
	copy(newArena, s.refArena[:s.refUsed])
	s.refArena = newArena
}

// reserveRegisterStorage carves out a new window in each arena sized to
// the next power of two at or above the requested counts, growing the
// arenas first if needed. Base offsets are indices, not pointers, so they
// stay valid across the reallocation a growth performs.
func (s *Stack) reserveRegisterStorage(i32Count, refCount uint16) (i32Base, i32Cnt, refBase, refCnt int) {
	i32Cnt = roundUpPow2(int(i32Count))
	refCnt = roundUpPow2(int(refCount))
	i32Base = s.i32Used
	refBase = s.refUsed
	s.ensureI32Capacity(i32Base + i32Cnt)
	s.ensureRefCapacity(refBase + refCnt)
	s.i32Used = i32Base + i32Cnt
	s.refUsed = refBase + refCnt
	return
}

func (s *Stack) enter(fn Function, argumentRegisters *RegisterList, isExternal bool) (*Frame, Registers, error) {
	if s.depth == MaxStackDepth {
		return nil, Registers{}, newError(KindResourceExhausted, "stack depth limit (%d) reached", MaxStackDepth)
	}

	var callerFrame *Frame
	if s.depth > 0 {
		callerFrame = &s.frames[s.depth-1]
	}

	i32Base, i32Cnt, refBase, refCnt := s.reserveRegisterStorage(fn.I32RegisterCount, fn.RefRegisterCount)

	calleeFrame := &s.frames[s.depth]
	*calleeFrame = Frame{
		function:   fn,
		i32Base:    i32Base,
		i32Count:   i32Cnt,
		refBase:    refBase,
		refCount:   refCnt,
		isExternal: isExternal,
	}

	if fn.Module != nil {
		if callerFrame != nil && callerFrame.function.Module == fn.Module {
			calleeFrame.moduleState = callerFrame.moduleState
		} else {
			state, err := s.resolver.QueryModuleState(fn.Module)
			if err != nil {
				s.i32Used = i32Base
				s.refUsed = refBase
				*calleeFrame = Frame{}
				return nil, Registers{}, err
			}
			calleeFrame.moduleState = state
		}
	}

	s.depth++
	calleeRegs := s.registersForFrame(calleeFrame)

	if callerFrame != nil && argumentRegisters != nil {
		callerRegs := s.registersForFrame(callerFrame)
		remapABI(callerRegs, argumentRegisters, calleeRegs)
	}

	return calleeFrame, calleeRegs, nil
}

// EnterFunction pushes a new frame for fn. If the stack is non-empty and
// argumentRegisters is non-nil, the caller's named registers are remapped
// into the new frame's registers starting at ordinal zero of each bank.
func (s *Stack) EnterFunction(fn Function, argumentRegisters *RegisterList) (*Frame, Registers, error) {
	return s.enter(fn, argumentRegisters, false)
}

// LeaveFunction pops the current frame. If resultRegisters is non-nil and
// a caller frame exists, the named registers (sourced from the frame being
// popped) are transferred to the caller: either into the caller's own
// registers by paired remap against returnRegisters the caller previously
// recorded on itself, or, if the caller is an external frame, collected
// into that frame's output buffer directly. Any reference registers still
// live in the popped frame afterward are released.
func (s *Stack) LeaveFunction(resultRegisters *RegisterList) (*Frame, Registers, error) {
	if s.depth <= 0 {
		return nil, Registers{}, newError(KindFailedPrecondition, "cannot leave: stack is empty")
	}

	calleeFrame := &s.frames[s.depth-1]
	var callerFrame *Frame
	if s.depth > 1 {
		callerFrame = &s.frames[s.depth-2]
	}

	calleeRegs := s.registersForFrame(calleeFrame)

	if callerFrame != nil && resultRegisters != nil {
		if callerFrame.isExternal {
			for _, reg := range resultRegisters.Registers {
				if reg&RefTypeBit != 0 {
					ord := (reg & RefOrdinalMask) & calleeRegs.RefMask
					isMove := reg&RefMoveBit != 0
					var v Ref
					if isMove {
						v = calleeRegs.Ref[ord]
						calleeRegs.Ref[ord] = Ref{}
					} else {
						v = Retain(calleeRegs.Ref[ord])
					}
					callerFrame.externalResults = append(callerFrame.externalResults, Value{IsRef: true, Ref: v})
				} else {
					ord := (reg & I32OrdinalMask) & calleeRegs.I32Mask
					callerFrame.externalResults = append(callerFrame.externalResults, Value{I32: calleeRegs.I32[ord]})
				}
			}
		} else {
			callerRegs := s.registersForFrame(callerFrame)
			if err := remapPaired(calleeRegs, resultRegisters, callerRegs, callerFrame.returnRegisters); err != nil {
				return nil, Registers{}, err
			}
		}
	}

	for i := range calleeRegs.Ref {
		if !calleeRegs.Ref[i].IsNull() {
			Release(calleeRegs.Ref[i])
			calleeRegs.Ref[i] = Ref{}
		}
	}

	s.i32Used = calleeFrame.i32Base
	s.refUsed = calleeFrame.refBase
	s.depth--

	var callerRegsOut Registers
	if callerFrame != nil {
		callerRegsOut = s.registersForFrame(callerFrame)
	}
	*calleeFrame = Frame{}

	return callerFrame, callerRegsOut, nil
}

// EnterExternal pushes the frame that marks the boundary between a host
// invocation and the VM. Its register banks are sized to the input values
// supplied (rounded up to a power of two, like every frame's), which are
// moved in directly: the host's
// VariantList gave up its references to make this call, so there is
// nothing left for it to hold once they're in the frame, and the move
// bit on the returned ordinals tells the first remapABI downstream to
// move rather than retain, keeping the whole chain to a single transfer
// with no compensating release anywhere along it. It returns the
// register list the caller (module.Call) should pass as argument
// registers to address those inputs.
func (s *Stack) EnterExternal(arguments *VariantList) (*RegisterList, error) {
	var i32Count, refCount uint16
	if arguments != nil {
		for _, v := range arguments.Values {
			if v.IsRef {
				refCount++
			} else {
				i32Count++
			}
		}
	}

	fn := Function{I32RegisterCount: i32Count, RefRegisterCount: refCount}
	_, regs, err := s.enter(fn, nil, true)
	if err != nil {
		return nil, err
	}

	out := &RegisterList{}
	if arguments != nil {
		out.Registers = make([]uint16, 0, len(arguments.Values))
		var i32Ord, refOrd uint16
		for _, v := range arguments.Values {
			if v.IsRef {
				regs.Ref[refOrd] = v.Ref
				out.Registers = append(out.Registers, refOrd|RefTypeBit|RefMoveBit)
				refOrd++
			} else {
				regs.I32[i32Ord] = v.I32
				out.Registers = append(out.Registers, i32Ord)
				i32Ord++
			}
		}
	}
	return out, nil
}

// LeaveExternal pops the external frame pushed by EnterExternal, appending
// whatever results were collected for it to outputs, then releases any
// registers left live in that frame.
func (s *Stack) LeaveExternal(outputs *VariantList) error {
	if s.depth <= 0 {
		return newError(KindFailedPrecondition, "cannot leave: stack is empty")
	}
	frame := &s.frames[s.depth-1]
	if outputs != nil {
		outputs.Values = append(outputs.Values, frame.externalResults...)
	}
	frame.externalResults = nil
	_, _, err := s.LeaveFunction(nil)
	return err
}
