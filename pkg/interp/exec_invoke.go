package interp

import "github.com/suzume-jvm/suzume/pkg/value"

func (t *Thread) execInvokestatic(frame *Frame) (value.Value, bool, *value.Value, error) {
	idx := frame.ReadU16()
	methodId, err := t.MA.MethodReference(frame.DefiningClass, idx)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	m := t.MA.Method(methodId)
	if err := t.ensureInitialized(m.DefiningClass); err != nil {
		return value.Value{}, false, nil, err
	}
	args := t.popArgs(frame, len(m.Descriptor.Params))
	v, has, err := t.invokeMethod(methodId, args)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	if has {
		frame.Push(v)
	}
	return value.Value{}, false, nil, nil
}

func (t *Thread) execInvokespecial(frame *Frame) (value.Value, bool, *value.Value, error) {
	idx := frame.ReadU16()
	methodId, err := t.MA.MethodReference(frame.DefiningClass, idx)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	m := t.MA.Method(methodId)
	args := t.popArgs(frame, len(m.Descriptor.Params))
	receiver := frame.Pop()
	if receiver.IsNullRef() {
		return value.Value{}, false, nil, &NullPointerError{Op: "invokespecial " + m.Name}
	}
	full := append([]value.Value{receiver}, args...)
	v, has, err := t.invokeMethod(methodId, full)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	if has {
		frame.Push(v)
	}
	return value.Value{}, false, nil, nil
}

func (t *Thread) execInvokevirtual(frame *Frame) (value.Value, bool, *value.Value, error) {
	idx := frame.ReadU16()
	staticId, err := t.MA.MethodReference(frame.DefiningClass, idx)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	staticM := t.MA.Method(staticId)
	args := t.popArgs(frame, len(staticM.Descriptor.Params))
	receiver := frame.Pop()
	if receiver.IsNullRef() {
		return value.Value{}, false, nil, &NullPointerError{Op: "invokevirtual " + staticM.Name}
	}
	actualClass := t.Heap.ClassOf(receiver.Obj)
	methodId, err := t.MA.ResolveMethod(actualClass, staticM.Name, staticM.RawDescriptor)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	full := append([]value.Value{receiver}, args...)
	v, has, err := t.invokeMethod(methodId, full)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	if has {
		frame.Push(v)
	}
	return value.Value{}, false, nil, nil
}

func (t *Thread) execInvokeinterface(frame *Frame) (value.Value, bool, *value.Value, error) {
	idx := frame.ReadU16()
	frame.ReadU8() // count, unused: argument count is already known from the descriptor
	frame.ReadU8() // reserved zero byte
	staticId, err := t.MA.MethodReference(frame.DefiningClass, idx)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	staticM := t.MA.Method(staticId)
	args := t.popArgs(frame, len(staticM.Descriptor.Params))
	receiver := frame.Pop()
	if receiver.IsNullRef() {
		return value.Value{}, false, nil, &NullPointerError{Op: "invokeinterface " + staticM.Name}
	}
	actualClass := t.Heap.ClassOf(receiver.Obj)
	methodId, err := t.MA.ResolveMethod(actualClass, staticM.Name, staticM.RawDescriptor)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	full := append([]value.Value{receiver}, args...)
	v, has, err := t.invokeMethod(methodId, full)
	if err != nil {
		return value.Value{}, false, nil, err
	}
	if has {
		frame.Push(v)
	}
	return value.Value{}, false, nil, nil
}

func (t *Thread) popArgs(frame *Frame, n int) []value.Value {
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}
	return args
}
