package interp

import (
	"strings"

	"github.com/suzume-jvm/suzume/pkg/classfile"
	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/value"
)

func (t *Thread) execLdc(frame *Frame, pool []classfile.ConstantPoolEntry, idx int) error {
	switch e := pool[idx].(type) {
	case *classfile.ConstantInteger:
		frame.Push(value.Int(e.Value))
	case *classfile.ConstantFloat:
		frame.Push(value.Float(e.Value))
	case *classfile.ConstantString:
		s, err := classfile.GetString(pool, uint16(idx))
		if err != nil {
			return err
		}
		strClass, layout, err := t.stringLayoutInfo()
		if err != nil {
			return err
		}
		strCls := t.MA.Class(strClass)
		obj := t.Heap.CreateString(s, strClass, strCls.Size, strCls.Alignment, t.byteArrayClassId, *layout)
		frame.Push(value.Object(obj))
	case *classfile.ConstantClass:
		classId, err := t.MA.ClassReference(frame.DefiningClass, uint16(idx))
		if err != nil {
			return err
		}
		ref, err := t.classMirror(classId)
		if err != nil {
			return err
		}
		frame.Push(value.Object(ref))
	default:
		return unsupportedConstant(idx)
	}
	return nil
}

func (t *Thread) execLdc2(frame *Frame, pool []classfile.ConstantPoolEntry, idx int) error {
	switch e := pool[idx].(type) {
	case *classfile.ConstantLong:
		frame.Push(value.Long(e.Value))
	case *classfile.ConstantDouble:
		frame.Push(value.Double(e.Value))
	default:
		return unsupportedConstant(idx)
	}
	return nil
}

func unsupportedConstant(idx int) error {
	return &ClassCastError{From: "constant pool entry", To: "ldc-compatible constant"}
}

func (t *Thread) execArrayLoad(frame *Frame, op uint8) error {
	index := frame.Pop().Int
	arr := frame.Pop()
	if arr.IsNullRef() {
		return &NullPointerError{Op: "array load"}
	}
	tag := arrayOpElemTag(op)
	v, err := t.Heap.LoadElement(arr.Arr, index, tag)
	if err != nil {
		return err
	}
	frame.Push(v)
	return nil
}

func (t *Thread) execArrayStore(frame *Frame, op uint8) error {
	v := frame.Pop()
	index := frame.Pop().Int
	arr := frame.Pop()
	if arr.IsNullRef() {
		return &NullPointerError{Op: "array store"}
	}
	tag := arrayOpElemTag(op)
	return t.Heap.StoreElement(arr.Arr, index, tag, v)
}

func arrayOpElemTag(op uint8) value.Tag {
	switch op {
	case opIaload, opIastore:
		return value.TagInt
	case opLaload, opLastore:
		return value.TagLong
	case opFaload, opFastore:
		return value.TagFloat
	case opDaload, opDastore:
		return value.TagDouble
	case opAaload, opAastore:
		return value.TagObject
	case opBaload, opBastore:
		return value.TagByte
	case opCaload, opCastore:
		return value.TagChar
	case opSaload, opSastore:
		return value.TagShort
	default:
		panic("interp: not an array-access opcode")
	}
}

func (t *Thread) execGetstatic(frame *Frame) error {
	idx := frame.ReadU16()
	fieldId, err := t.MA.FieldReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	f := t.MA.Field(fieldId)
	if err := t.ensureInitialized(f.DefiningClass); err != nil {
		return err
	}
	frame.Push(f.StaticValue.ExtendToInt())
	return nil
}

func (t *Thread) execPutstatic(frame *Frame) error {
	idx := frame.ReadU16()
	fieldId, err := t.MA.FieldReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	f := t.MA.Field(fieldId)
	if err := t.ensureInitialized(f.DefiningClass); err != nil {
		return err
	}
	v := frame.Pop()
	f.StaticValue = narrowForField(v, f.Type.ValueTag())
	return nil
}

func (t *Thread) execGetfield(frame *Frame) error {
	idx := frame.ReadU16()
	fieldId, err := t.MA.FieldReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	f := t.MA.Field(fieldId)
	obj := frame.Pop()
	if obj.IsNullRef() {
		return &NullPointerError{Op: "getfield " + f.Name}
	}
	frame.Push(t.Heap.LoadField(obj.Obj, f.Offset, f.Type.ValueTag()))
	return nil
}

func (t *Thread) execPutfield(frame *Frame) error {
	idx := frame.ReadU16()
	fieldId, err := t.MA.FieldReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	f := t.MA.Field(fieldId)
	v := frame.Pop()
	obj := frame.Pop()
	if obj.IsNullRef() {
		return &NullPointerError{Op: "putfield " + f.Name}
	}
	t.Heap.StoreField(obj.Obj, f.Offset, f.Type.ValueTag(), v)
	return nil
}

func narrowForField(v value.Value, tag value.Tag) value.Value {
	switch tag {
	case value.TagByte, value.TagBoolean, value.TagChar, value.TagShort, value.TagInt:
		return v.StoreTy(tag)
	default:
		return v
	}
}

func (t *Thread) execNew(frame *Frame) error {
	idx := frame.ReadU16()
	classId, err := t.MA.ClassReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	if err := t.ensureInitialized(classId); err != nil {
		return err
	}
	cls := t.MA.Class(classId)
	ref := t.Heap.NewObject(classId, cls.Size, cls.Alignment)
	frame.Push(value.Object(ref))
	return nil
}

func (t *Thread) execNewarray(frame *Frame) error {
	atype := frame.ReadU8()
	count := frame.Pop().Int
	var desc string
	var tag value.Tag
	switch atype {
	case atBoolean:
		desc, tag = "Z", value.TagBoolean
	case atChar:
		desc, tag = "C", value.TagChar
	case atFloat:
		desc, tag = "F", value.TagFloat
	case atDouble:
		desc, tag = "D", value.TagDouble
	case atByte:
		desc, tag = "B", value.TagByte
	case atShort:
		desc, tag = "S", value.TagShort
	case atInt:
		desc, tag = "I", value.TagInt
	case atLong:
		desc, tag = "J", value.TagLong
	default:
		return &ClassCastError{From: "newarray", To: "unknown atype"}
	}
	classId, err := t.MA.ResolveClass("[" + desc)
	if err != nil {
		return err
	}
	arr, err := t.Heap.NewArray(classId, tag, count)
	if err != nil {
		return err
	}
	frame.Push(value.Array(arr))
	return nil
}

func (t *Thread) execAnewarray(frame *Frame) error {
	idx := frame.ReadU16()
	count := frame.Pop().Int
	componentId, err := t.MA.ClassReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	componentName := t.MA.Class(componentId).Name
	elemDesc := componentName
	if !strings.HasPrefix(componentName, "[") {
		elemDesc = "L" + componentName + ";"
	}
	arrClass, err := t.MA.ResolveClass("[" + elemDesc)
	if err != nil {
		return err
	}
	arr, err := t.Heap.NewArray(arrClass, value.TagObject, count)
	if err != nil {
		return err
	}
	frame.Push(value.Array(arr))
	return nil
}

func (t *Thread) execMultianewarray(frame *Frame) error {
	idx := frame.ReadU16()
	dims := int(frame.ReadU8())
	arrClassId, err := t.MA.ClassReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	typeName := t.MA.Class(arrClassId).Name

	counts := make([]int32, dims)
	for i := dims - 1; i >= 0; i-- {
		counts[i] = frame.Pop().Int
	}

	v, err := t.allocMultiArray(typeName, counts)
	if err != nil {
		return err
	}
	frame.Push(v)
	return nil
}

func (t *Thread) allocMultiArray(typeName string, counts []int32) (value.Value, error) {
	arrClassId, err := t.MA.ResolveClass(typeName)
	if err != nil {
		return value.Value{}, err
	}
	elemDesc := typeName[1:]
	var elemTag value.Tag
	switch {
	case strings.HasPrefix(elemDesc, "["):
		elemTag = value.TagArray
	case strings.HasPrefix(elemDesc, "L"):
		elemTag = value.TagObject
	default:
		ft, err := parsePrimitiveTag(elemDesc)
		if err != nil {
			return value.Value{}, err
		}
		elemTag = ft
	}

	arr, err := t.Heap.NewArray(arrClassId, elemTag, counts[0])
	if err != nil {
		return value.Value{}, err
	}
	if len(counts) > 1 {
		for i := int32(0); i < counts[0]; i++ {
			sub, err := t.allocMultiArray(elemDesc, counts[1:])
			if err != nil {
				return value.Value{}, err
			}
			if err := t.Heap.StoreElement(arr, i, value.TagArray, sub); err != nil {
				return value.Value{}, err
			}
		}
	}
	return value.Array(arr), nil
}

func parsePrimitiveTag(desc string) (value.Tag, error) {
	switch desc {
	case "Z":
		return value.TagBoolean, nil
	case "C":
		return value.TagChar, nil
	case "F":
		return value.TagFloat, nil
	case "D":
		return value.TagDouble, nil
	case "B":
		return value.TagByte, nil
	case "S":
		return value.TagShort, nil
	case "I":
		return value.TagInt, nil
	case "J":
		return value.TagLong, nil
	default:
		return 0, &ClassCastError{From: "multianewarray", To: desc}
	}
}

func (t *Thread) execCheckcast(frame *Frame) error {
	idx := frame.ReadU16()
	targetId, err := t.MA.ClassReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	v := frame.Peek(0)
	if v.IsNullRef() {
		return nil
	}
	objClass := t.refClassOf(v)
	if !t.MA.InstanceOf(objClass, targetId) {
		return &ClassCastError{From: t.MA.Class(objClass).Name, To: t.MA.Class(targetId).Name}
	}
	return nil
}

func (t *Thread) execInstanceof(frame *Frame) error {
	idx := frame.ReadU16()
	targetId, err := t.MA.ClassReference(frame.DefiningClass, idx)
	if err != nil {
		return err
	}
	v := frame.Pop()
	if v.IsNullRef() {
		frame.Push(value.Int(0))
		return nil
	}
	objClass := t.refClassOf(v)
	if t.MA.InstanceOf(objClass, targetId) {
		frame.Push(value.Int(1))
	} else {
		frame.Push(value.Int(0))
	}
	return nil
}

func (t *Thread) refClassOf(v value.Value) ids.ClassId {
	if v.Tag == value.TagArray {
		return t.Heap.ArrayClassOf(v.Arr)
	}
	return t.Heap.ClassOf(v.Obj)
}
