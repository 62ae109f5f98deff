package interp

import (
	"encoding/binary"
	"fmt"

	"github.com/suzume-jvm/suzume/pkg/classfile"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// execute runs frame to completion, returning its return value (if any).
// Runtime-error conditions (NullPointerError, ArithmeticError,
// ClassCastError, array bounds/size errors from the heap) propagate as Go
// errors up through invokeMethod; only a value actually thrown via athrow
// and caught by one of frame's own exception-table entries is handled
// locally, per the non-propagating athrow scope.
func (t *Thread) execute(frame *Frame) (value.Value, bool, error) {
	cls := t.MA.Class(frame.DefiningClass)
	pool := cls.ConstantPool

	for frame.PC < len(frame.Code) {
		opcodePC := frame.PC
		op := frame.ReadU8()

		v, hasValue, thrown, err := t.step(frame, pool, op)
		if err != nil {
			return value.Value{}, false, err
		}
		if thrown != nil {
			handled, herr := t.handleThrow(frame, opcodePC, *thrown)
			if herr != nil {
				return value.Value{}, false, herr
			}
			if !handled {
				return value.Value{}, false, &UnhandledExceptionError{Method: frame.MethodName, Cause: fmt.Errorf("%s", t.describeThrowable(*thrown))}
			}
			continue
		}
		if op == opReturn || op == opIreturn || op == opLreturn || op == opFreturn || op == opDreturn || op == opAreturn {
			return v, hasValue, nil
		}
	}
	return value.Value{}, false, nil
}

func (t *Thread) describeThrowable(v value.Value) string {
	if v.IsNullRef() {
		return "null"
	}
	return t.MA.Class(t.Heap.ClassOf(v.Obj)).Name
}

// handleThrow searches frame's exception table for a handler whose range
// covers throwPC and whose catch type (if any) the thrown object satisfies,
// resetting the stack and jumping to it on a match. It does not unwind to
// caller frames: a miss here is reported to execute as unhandled.
func (t *Thread) handleThrow(frame *Frame, throwPC int, thrown value.Value) (bool, error) {
	if thrown.IsNullRef() {
		return false, nil
	}
	objClass := t.Heap.ClassOf(thrown.Obj)
	for _, h := range frame.Handlers {
		if throwPC < int(h.StartPC) || throwPC >= int(h.EndPC) {
			continue
		}
		if h.CatchType != 0 {
			catchClass, err := t.MA.ClassReference(frame.DefiningClass, h.CatchType)
			if err != nil {
				return false, err
			}
			if !t.MA.InstanceOf(objClass, catchClass) {
				continue
			}
		}
		frame.Stack = frame.Stack[:0]
		frame.Push(thrown)
		frame.PC = int(h.HandlerPC)
		return true, nil
	}
	return false, nil
}

// step executes a single instruction. It returns a final value for return
// opcodes, and a non-nil thrown pointer for athrow, leaving all other
// control flow (branches, falls-through) to have already updated frame.PC.
func (t *Thread) step(frame *Frame, pool []classfile.ConstantPoolEntry, op uint8) (value.Value, bool, *value.Value, error) {
	switch op {
	case opNop:
	case opAconstNull:
		frame.Push(value.Null())
	case opIconstM1:
		frame.Push(value.Int(-1))
	case opIconst0, opIconst1, opIconst2, opIconst3, opIconst4, opIconst5:
		frame.Push(value.Int(int32(op - opIconst0)))
	case opLconst0, opLconst1:
		frame.Push(value.Long(int64(op - opLconst0)))
	case opFconst0, opFconst1, opFconst2:
		frame.Push(value.Float(float32(op - opFconst0)))
	case opDconst0, opDconst1:
		frame.Push(value.Double(float64(op - opDconst0)))
	case opBipush:
		frame.Push(value.Int(int32(frame.ReadI8())))
	case opSipush:
		frame.Push(value.Int(int32(frame.ReadI16())))
	case opLdc:
		return value.Value{}, false, nil, t.execLdc(frame, pool, int(frame.ReadU8()))
	case opLdcW:
		return value.Value{}, false, nil, t.execLdc(frame, pool, int(frame.ReadU16()))
	case opLdc2W:
		return value.Value{}, false, nil, t.execLdc2(frame, pool, int(frame.ReadU16()))

	case opIload, opLload, opFload, opDload, opAload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case opIload0, opIload1, opIload2, opIload3:
		frame.Push(frame.GetLocal(int(op - opIload0)))
	case opLload0, opLload1, opLload2, opLload3:
		frame.Push(frame.GetLocal(int(op - opLload0)))
	case opFload0, opFload1, opFload2, opFload3:
		frame.Push(frame.GetLocal(int(op - opFload0)))
	case opDload0, opDload1, opDload2, opDload3:
		frame.Push(frame.GetLocal(int(op - opDload0)))
	case opAload0, opAload1, opAload2, opAload3:
		frame.Push(frame.GetLocal(int(op - opAload0)))

	case opIstore, opLstore, opFstore, opDstore, opAstore:
		frame.SetLocal(int(frame.ReadU8()), frame.Pop())
	case opIstore0, opIstore1, opIstore2, opIstore3:
		frame.SetLocal(int(op-opIstore0), frame.Pop())
	case opLstore0, opLstore1, opLstore2, opLstore3:
		frame.SetLocal(int(op-opLstore0), frame.Pop())
	case opFstore0, opFstore1, opFstore2, opFstore3:
		frame.SetLocal(int(op-opFstore0), frame.Pop())
	case opDstore0, opDstore1, opDstore2, opDstore3:
		frame.SetLocal(int(op-opDstore0), frame.Pop())
	case opAstore0, opAstore1, opAstore2, opAstore3:
		frame.SetLocal(int(op-opAstore0), frame.Pop())

	case opIaload, opLaload, opFaload, opDaload, opAaload, opBaload, opCaload, opSaload:
		return value.Value{}, false, nil, t.execArrayLoad(frame, op)
	case opIastore, opLastore, opFastore, opDastore, opAastore, opBastore, opCastore, opSastore:
		return value.Value{}, false, nil, t.execArrayStore(frame, op)

	case opPop:
		frame.Pop()
	case opPop2:
		a := frame.Pop()
		if !a.IsCategoryTwo() {
			frame.Pop()
		}
	case opDup:
		v := frame.Peek(0)
		frame.Push(v)
	case opDupX1:
		a := frame.Pop()
		b := frame.Pop()
		frame.Push(a)
		frame.Push(b)
		frame.Push(a)
	case opDupX2:
		a := frame.Pop()
		b := frame.Pop()
		if b.IsCategoryTwo() {
			frame.Push(a)
			frame.Push(b)
			frame.Push(a)
		} else {
			c := frame.Pop()
			frame.Push(a)
			frame.Push(c)
			frame.Push(b)
			frame.Push(a)
		}
	case opDup2:
		a := frame.Pop()
		if a.IsCategoryTwo() {
			frame.Push(a)
			frame.Push(a)
		} else {
			b := frame.Pop()
			frame.Push(b)
			frame.Push(a)
			frame.Push(b)
			frame.Push(a)
		}
	case opDup2X1:
		a := frame.Pop()
		if a.IsCategoryTwo() {
			b := frame.Pop()
			frame.Push(a)
			frame.Push(b)
			frame.Push(a)
		} else {
			b := frame.Pop()
			c := frame.Pop()
			frame.Push(b)
			frame.Push(a)
			frame.Push(c)
			frame.Push(b)
			frame.Push(a)
		}
	case opDup2X2:
		a := frame.Pop()
		b := frame.Pop()
		if a.IsCategoryTwo() {
			if b.IsCategoryTwo() {
				frame.Push(a)
				frame.Push(b)
				frame.Push(a)
			} else {
				c := frame.Pop()
				frame.Push(a)
				frame.Push(c)
				frame.Push(b)
				frame.Push(a)
			}
		} else {
			c := frame.Pop()
			if c.IsCategoryTwo() {
				frame.Push(b)
				frame.Push(a)
				frame.Push(c)
				frame.Push(b)
				frame.Push(a)
			} else {
				d := frame.Pop()
				frame.Push(b)
				frame.Push(a)
				frame.Push(d)
				frame.Push(c)
				frame.Push(b)
				frame.Push(a)
			}
		}
	case opSwap:
		a := frame.Pop()
		b := frame.Pop()
		frame.Push(a)
		frame.Push(b)

	case opIadd, opLadd, opFadd, opDadd:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Add(a, b))
	case opIsub, opLsub, opFsub, opDsub:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Sub(a, b))
	case opImul, opLmul, opFmul, opDmul:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Mul(a, b))
	case opIdiv:
		b := frame.Pop()
		a := frame.Pop()
		if b.Int == 0 {
			return value.Value{}, false, nil, &ArithmeticError{Op: "division"}
		}
		frame.Push(value.Div(a, b))
	case opLdiv:
		b := frame.Pop()
		a := frame.Pop()
		if b.Long == 0 {
			return value.Value{}, false, nil, &ArithmeticError{Op: "division"}
		}
		frame.Push(value.Div(a, b))
	case opFdiv, opDdiv:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Div(a, b))
	case opIrem:
		b := frame.Pop()
		a := frame.Pop()
		if b.Int == 0 {
			return value.Value{}, false, nil, &ArithmeticError{Op: "modulo"}
		}
		frame.Push(value.Rem(a, b))
	case opLrem:
		b := frame.Pop()
		a := frame.Pop()
		if b.Long == 0 {
			return value.Value{}, false, nil, &ArithmeticError{Op: "modulo"}
		}
		frame.Push(value.Rem(a, b))
	case opFrem, opDrem:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Rem(a, b))
	case opIneg, opLneg, opFneg, opDneg:
		frame.Push(value.Neg(frame.Pop()))
	case opIshl, opLshl:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Shl(a, b))
	case opIshr, opLshr:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Shr(a, b))
	case opIushr, opLushr:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Ushr(a, b))
	case opIand, opLand:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.And(a, b))
	case opIor, opLor:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Or(a, b))
	case opIxor, opLxor:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Xor(a, b))
	case opIinc:
		idx := int(frame.ReadU8())
		delta := int32(frame.ReadI8())
		cur := frame.GetLocal(idx)
		frame.SetLocal(idx, value.Int(cur.Int+delta))

	case opI2l:
		frame.Push(value.Long(value.I2l(frame.Pop().Int)))
	case opI2f:
		frame.Push(value.Float(value.I2f(frame.Pop().Int)))
	case opI2d:
		frame.Push(value.Double(value.I2d(frame.Pop().Int)))
	case opL2i:
		frame.Push(value.Int(value.L2i(frame.Pop().Long)))
	case opL2f:
		frame.Push(value.Float(value.L2f(frame.Pop().Long)))
	case opL2d:
		frame.Push(value.Double(value.L2d(frame.Pop().Long)))
	case opF2i:
		frame.Push(value.Int(value.F2i(frame.Pop().Float)))
	case opF2l:
		frame.Push(value.Long(value.F2l(frame.Pop().Float)))
	case opF2d:
		frame.Push(value.Double(value.F2d(frame.Pop().Float)))
	case opD2i:
		frame.Push(value.Int(value.D2i(frame.Pop().Double)))
	case opD2l:
		frame.Push(value.Long(value.D2l(frame.Pop().Double)))
	case opD2f:
		frame.Push(value.Float(value.D2f(frame.Pop().Double)))
	case opI2b:
		frame.Push(value.Int(value.I2b(frame.Pop().Int)))
	case opI2c:
		frame.Push(value.Int(value.I2c(frame.Pop().Int)))
	case opI2s:
		frame.Push(value.Int(value.I2s(frame.Pop().Int)))

	case opLcmp:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Int(value.Lcmp(a.Long, b.Long)))
	case opFcmpl:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Int(value.Fcmpl(a.Float, b.Float)))
	case opFcmpg:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Int(value.Fcmpg(a.Float, b.Float)))
	case opDcmpl:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Int(value.Dcmpl(a.Double, b.Double)))
	case opDcmpg:
		b := frame.Pop()
		a := frame.Pop()
		frame.Push(value.Int(value.Dcmpg(a.Double, b.Double)))

	case opIfeq, opIfne, opIflt, opIfge, opIfgt, opIfle:
		return value.Value{}, false, nil, t.execIfCond(frame, op)
	case opIfIcmpeq, opIfIcmpne, opIfIcmplt, opIfIcmpge, opIfIcmpgt, opIfIcmple:
		return value.Value{}, false, nil, t.execIfICmp(frame, op)
	case opIfAcmpeq, opIfAcmpne:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		b := frame.Pop()
		a := frame.Pop()
		eq := sameRef(a, b)
		if (op == opIfAcmpeq) == eq {
			frame.PC = branchPC + int(offset)
		}
	case opIfnull, opIfnonnull:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		a := frame.Pop()
		if a.IsNullRef() == (op == opIfnull) {
			frame.PC = branchPC + int(offset)
		}
	case opGoto:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		frame.PC = branchPC + int(offset)
	case opGotoW:
		branchPC := frame.PC - 1
		offset := frame.ReadI32()
		frame.PC = branchPC + int(offset)
	case opTableswitch, opLookupswitch:
		execSwitch(frame, op)

	case opIreturn, opLreturn, opFreturn, opDreturn, opAreturn:
		return frame.Pop(), true, nil, nil
	case opReturn:
		return value.Value{}, false, nil, nil

	case opGetstatic:
		return value.Value{}, false, nil, t.execGetstatic(frame)
	case opPutstatic:
		return value.Value{}, false, nil, t.execPutstatic(frame)
	case opGetfield:
		return value.Value{}, false, nil, t.execGetfield(frame)
	case opPutfield:
		return value.Value{}, false, nil, t.execPutfield(frame)

	case opInvokestatic:
		return t.execInvokestatic(frame)
	case opInvokespecial:
		return t.execInvokespecial(frame)
	case opInvokevirtual:
		return t.execInvokevirtual(frame)
	case opInvokeinterface:
		return t.execInvokeinterface(frame)

	case opNew:
		return value.Value{}, false, nil, t.execNew(frame)
	case opNewarray:
		return value.Value{}, false, nil, t.execNewarray(frame)
	case opAnewarray:
		return value.Value{}, false, nil, t.execAnewarray(frame)
	case opMultianewarray:
		return value.Value{}, false, nil, t.execMultianewarray(frame)
	case opArraylength:
		a := frame.Pop()
		if a.IsNullRef() {
			return value.Value{}, false, nil, &NullPointerError{Op: "arraylength"}
		}
		frame.Push(value.Int(t.Heap.ArrayLen(a.Arr)))
	case opAthrow:
		thrown := frame.Pop()
		return value.Value{}, false, &thrown, nil
	case opCheckcast:
		return value.Value{}, false, nil, t.execCheckcast(frame)
	case opInstanceof:
		return value.Value{}, false, nil, t.execInstanceof(frame)
	case opMonitorenter, opMonitorexit:
		v := frame.Pop()
		if v.IsNullRef() {
			return value.Value{}, false, nil, &NullPointerError{Op: "monitor"}
		}
		if t.Out != nil {
			verb := "enter"
			if op == opMonitorexit {
				verb = "exit"
			}
			fmt.Fprintf(t.Out, "monitor%s: %s (no-op, single-threaded runtime)\n", verb, frame.MethodName)
		}

	default:
		return value.Value{}, false, nil, fmt.Errorf("interp: unimplemented opcode 0x%02x at %s+%d", op, frame.MethodName, frame.PC-1)
	}
	return value.Value{}, false, nil, nil
}

func sameRef(a, b value.Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	if a.Tag == value.TagArray {
		return a.Arr == b.Arr
	}
	return a.Obj == b.Obj
}

func execSwitch(frame *Frame, op uint8) {
	opcodePC := frame.PC - 1
	pad := (4 - (opcodePC+1)%4) % 4
	frame.PC += pad
	defaultOffset := frame.ReadI32()
	key := frame.Pop().Int

	var target int32 = defaultOffset
	if op == opTableswitch {
		low := frame.ReadI32()
		high := frame.ReadI32()
		if key >= low && key <= high {
			idx := key - low
			off := int32(binary.BigEndian.Uint32(frame.Code[frame.PC+int(idx)*4:]))
			target = off
		}
		frame.PC += int(high-low+1) * 4
	} else {
		npairs := frame.ReadI32()
		for i := int32(0); i < npairs; i++ {
			matchVal := frame.ReadI32()
			offsetVal := frame.ReadI32()
			if matchVal == key {
				target = offsetVal
			}
		}
	}
	frame.PC = opcodePC + int(target)
}

func (t *Thread) execIfCond(frame *Frame, op uint8) error {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	a := frame.Pop().Int
	var take bool
	switch op {
	case opIfeq:
		take = a == 0
	case opIfne:
		take = a != 0
	case opIflt:
		take = a < 0
	case opIfge:
		take = a >= 0
	case opIfgt:
		take = a > 0
	case opIfle:
		take = a <= 0
	}
	if take {
		frame.PC = branchPC + int(offset)
	}
	return nil
}

func (t *Thread) execIfICmp(frame *Frame, op uint8) error {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	b := frame.Pop().Int
	a := frame.Pop().Int
	var take bool
	switch op {
	case opIfIcmpeq:
		take = a == b
	case opIfIcmpne:
		take = a != b
	case opIfIcmplt:
		take = a < b
	case opIfIcmpge:
		take = a >= b
	case opIfIcmpgt:
		take = a > b
	case opIfIcmple:
		take = a <= b
	}
	if take {
		frame.PC = branchPC + int(offset)
	}
	return nil
}
