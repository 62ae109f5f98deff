package interp

import (
	"fmt"
	"io"

	"github.com/suzume-jvm/suzume/pkg/heap"
	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/methodarea"
	"github.com/suzume-jvm/suzume/pkg/natives"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// Thread is a single bytecode interpreter thread: one frame stack driven
// against a shared method area and heap. The runtime is single-threaded
// (per the concurrency non-goal), so there is exactly one Thread alive at a
// time, but nothing here assumes that beyond not synchronizing its own
// fields.
type Thread struct {
	MA      *methodarea.MethodArea
	Heap    *heap.Heap
	Natives *natives.Table
	Out     io.Writer

	frames []*Frame

	stringLayout     *heap.StringLayout
	stringClassId    ids.ClassId
	byteArrayClassId ids.ClassId
}

// New returns a thread ready to invoke methods against ma/h, dispatching
// ACC_NATIVE methods through nt and writing diagnostic output to out.
func New(ma *methodarea.MethodArea, h *heap.Heap, nt *natives.Table, out io.Writer) *Thread {
	return &Thread{MA: ma, Heap: h, Natives: nt, Out: out}
}

// RunMain resolves and invokes mainClass's `main([Ljava/lang/String;)V`,
// initializing mainClass first.
func (t *Thread) RunMain(mainClass ids.ClassId, programArgs []string) error {
	if err := t.ensureInitialized(mainClass); err != nil {
		return err
	}
	mid, err := t.MA.ResolveMethod(mainClass, "main", "([Ljava/lang/String;)V")
	if err != nil {
		return err
	}
	argsArray, err := t.buildStringArray(programArgs)
	if err != nil {
		return err
	}
	_, _, err = t.invokeMethod(mid, []value.Value{value.Array(argsArray)})
	return err
}

func (t *Thread) buildStringArray(args []string) (value.ArrayRef, error) {
	strClass, layout, err := t.stringLayoutInfo()
	if err != nil {
		return value.ArrayRef{}, err
	}
	arrClass, err := t.MA.ResolveClass("[Ljava/lang/String;")
	if err != nil {
		return value.ArrayRef{}, err
	}
	arr, err := t.Heap.NewArray(arrClass, value.TagObject, int32(len(args)))
	if err != nil {
		return value.ArrayRef{}, err
	}
	strCls := t.MA.Class(strClass)
	for i, s := range args {
		obj := t.Heap.CreateString(s, strClass, strCls.Size, strCls.Alignment, t.byteArrayClassId, *layout)
		if err := t.Heap.StoreElement(arr, int32(i), value.TagObject, value.Object(obj)); err != nil {
			return value.ArrayRef{}, err
		}
	}
	return arr, nil
}

// stringLayoutInfo lazily resolves java/lang/String's `value`/`coder` field
// offsets and the [B array class, caching the result for later ldc/String
// operations.
func (t *Thread) stringLayoutInfo() (ids.ClassId, *heap.StringLayout, error) {
	if t.stringLayout != nil {
		return t.stringClassId, t.stringLayout, nil
	}
	strClass, err := t.MA.ResolveClass("java/lang/String")
	if err != nil {
		return ids.Invalid, nil, err
	}
	valueFid, err := t.MA.ResolveField(strClass, "value")
	if err != nil {
		return ids.Invalid, nil, err
	}
	coderFid, err := t.MA.ResolveField(strClass, "coder")
	if err != nil {
		return ids.Invalid, nil, err
	}
	byteArrClass, err := t.MA.ResolveClass("[B")
	if err != nil {
		return ids.Invalid, nil, err
	}
	layout := &heap.StringLayout{
		ValueFieldOffset: t.MA.Field(valueFid).Offset,
		CoderFieldOffset: t.MA.Field(coderFid).Offset,
	}
	t.stringLayout = layout
	t.stringClassId = strClass
	t.byteArrayClassId = byteArrClass
	return strClass, layout, nil
}

// classMirror returns (allocating lazily on first use) the reified
// java/lang/Class instance for class, caching it on the Class entry itself.
func (t *Thread) classMirror(class ids.ClassId) (value.ObjectRef, error) {
	if ref, ok := t.MA.ClassObject(class); ok {
		return ref, nil
	}
	classClassId, err := t.MA.ResolveClass("java/lang/Class")
	if err != nil {
		return value.ObjectRef{}, err
	}
	classClass := t.MA.Class(classClassId)
	ref := t.Heap.NewObject(classClassId, classClass.Size, classClass.Alignment)
	t.MA.SetClassObject(class, ref)
	return ref, nil
}

// ensureInitialized runs class's <clinit>, first recursively initializing
// its direct superclass (REDESIGN FLAGS: superclass-first, not the
// original's top-down-only ordering). It marks class initialized before
// running <clinit>, so a <clinit> that re-enters its own class (directly or
// through a cycle) does not recurse.
func (t *Thread) ensureInitialized(class ids.ClassId) error {
	if t.MA.IsInitialized(class) {
		return nil
	}
	cls := t.MA.Class(class)
	if cls.HasSuper {
		if err := t.ensureInitialized(cls.Super); err != nil {
			return err
		}
	}
	if t.MA.IsInitialized(class) {
		return nil
	}
	t.MA.MarkInitialized(class)

	var clinit ids.MethodId = ids.Invalid
	for _, mid := range cls.Methods {
		m := t.MA.Method(mid)
		if m.Name == "<clinit>" && m.RawDescriptor == "()V" {
			clinit = mid
			break
		}
	}
	if !clinit.Valid() {
		return nil
	}
	_, _, err := t.invokeMethod(clinit, nil)
	return err
}

// invokeMethod dispatches to a native stub or runs bytecode, per whether
// method is ACC_NATIVE. args is the full parameter list, receiver included
// for instance methods, in declared slot order (category-two params already
// counted as one logical arg; slot-doubling happens when locals are built).
func (t *Thread) invokeMethod(methodId ids.MethodId, args []value.Value) (value.Value, bool, error) {
	m := t.MA.Method(methodId)
	if m.IsNative() {
		return t.invokeNative(m, args)
	}
	if m.Code == nil {
		return value.Value{}, false, fmt.Errorf("interp: %s.%s%s has no code and is not native", t.MA.Class(m.DefiningClass).Name, m.Name, m.RawDescriptor)
	}

	locals := make([]value.Value, m.Code.MaxLocals)
	slot := 0
	for _, a := range args {
		locals[slot] = a
		slot++
		if a.IsCategoryTwo() {
			slot++
		}
	}

	handlers := make([]ExceptionHandler, len(m.Code.ExceptionHandlers))
	for i, h := range m.Code.ExceptionHandlers {
		handlers[i] = ExceptionHandler(h)
	}

	frame := &Frame{
		MethodName:    t.MA.Class(m.DefiningClass).Name + "." + m.Name,
		DefiningClass: m.DefiningClass,
		Code:          m.Code.Code,
		Handlers:      handlers,
		Locals:        locals,
		Stack:         make([]value.Value, 0, int(m.Code.MaxStack)),
	}

	if len(t.frames) > 2048 {
		return value.Value{}, false, fmt.Errorf("StackOverflowError: %s", frame.MethodName)
	}
	t.frames = append(t.frames, frame)
	defer func() { t.frames = t.frames[:len(t.frames)-1] }()

	return t.execute(frame)
}

func (t *Thread) invokeNative(m *methodarea.Method, args []value.Value) (value.Value, bool, error) {
	class := t.MA.Class(m.DefiningClass)
	fn, ok := t.Natives.Lookup(class.Name, m.Name, m.RawDescriptor)
	if !ok {
		return value.Value{}, false, fmt.Errorf("natives: no implementation registered for %s.%s%s", class.Name, m.Name, m.RawDescriptor)
	}
	env := &natives.Env{Heap: t.Heap, MA: t.MA, Out: t.Out, StrClass: ids.Invalid, ByteArrClass: ids.Invalid}
	if strClass, layout, err := t.stringLayoutInfo(); err == nil {
		env.StrClass = strClass
		env.StrLayout = *layout
		env.ByteArrClass = t.byteArrayClassId
	}
	v, err := fn(env, args)
	if err != nil {
		return value.Value{}, false, err
	}
	if m.Descriptor.Return == nil {
		return value.Value{}, false, nil
	}
	return v, true, nil
}
