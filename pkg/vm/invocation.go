package vm

// Invoke runs function synchronously to completion against context: inputs
// are marshaled onto a fresh stack's external frame, the module is asked
// to execute the function, and whatever results it produced are marshaled
// into outputs. Invoke owns the stack for the duration of the call and
// discards it afterward.
func Invoke(context *Context, function Function, inputs *VariantList, outputs *VariantList) error {
	if context == nil {
		return newError(KindInvalidArgument, "context is required")
	}
	if function.Module == nil {
		return newError(KindInvalidArgument, "function is not bound to a module")
	}

	stack, err := NewStack(context, context.allocator)
	if err != nil {
		return err
	}
	defer stack.Close()

	argumentRegisters, err := stack.EnterExternal(inputs)
	if err != nil {
		return err
	}

	if _, err := function.Module.Call(stack, function, argumentRegisters); err != nil {
		return err
	}

	return stack.LeaveExternal(outputs)
}
