package vm

import "testing"

func TestInvokeInvalidArguments(t *testing.T) {
	if err := Invoke(nil, Function{}, nil, nil); KindOf(err) != KindInvalidArgument {
		t.Fatalf("expected KindInvalidArgument for a nil context, got %v", err)
	}

	ctx, err := NewContext(nil, nil)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	defer ctx.Release()

	if err := Invoke(ctx, Function{}, nil, nil); KindOf(err) != KindInvalidArgument {
		t.Fatalf("expected KindInvalidArgument for a function with no module, got %v", err)
	}
}

func TestInvokeRoundTripsPrimitiveResult(t *testing.T) {
	counterState := func(Allocator) (*passCounterState, error) { return &passCounterState{}, nil }
	mod := NewNativeModule[passCounterState]("Counter", nil, counterState, []NativeFunction[passCounterState]{
		{
			Name:         "inc",
			I32Registers: 1,
			Handler: func(state *passCounterState, stack *Stack, fn Function, args *RegisterList) (*RegisterList, ExecutionResult, error) {
				regs := stack.FrameRegisters(stack.CurrentFrame())
				regs.I32[0]++
				return &RegisterList{Registers: []uint16{0}}, ExecutionResult{}, nil
			},
		},
	})

	ctx, err := NewContext(nil, nil, mod)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	defer ctx.Release()

	fn, err := ctx.ResolveFunction("Counter.inc")
	if err != nil {
		t.Fatalf("resolve function: %v", err)
	}

	in := NewVariantList(1)
	in.Append(I32Value(41))
	out := NewVariantList(0)

	if err := Invoke(ctx, fn, in, out); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.Size() != 1 || out.Get(0).I32 != 42 {
		t.Fatalf("unexpected invocation result: %+v", out.Values)
	}
}

type passCounterState struct{}
