// Package interp is the bytecode interpreter thread: frame stack, operand
// stack, locals, opcode dispatch, method selection, and the class
// initialization interlock.
package interp

import (
	"encoding/binary"
	"fmt"

	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// Frame is one call frame: the executing method's bytecode, program
// counter, locals, and operand stack.
type Frame struct {
	MethodName    string
	DefiningClass ids.ClassId
	Code          []byte
	Handlers      []ExceptionHandler
	PC            int
	Locals        []value.Value
	Stack         []value.Value
}

// ExceptionHandler mirrors classfile.ExceptionHandler but with the catch
// type already left as a raw constant-pool index for lazy resolution (it is
// only resolved the first time athrow actually needs it).
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC, CatchType uint16
}

// NewFrame allocates a frame with maxLocals local slots and a stack
// pre-allocated to maxStack capacity (zero length).
func NewFrame(name string, class ids.ClassId, code []byte, handlers []ExceptionHandler, maxLocals, maxStack int) *Frame {
	return &Frame{
		MethodName:    name,
		DefiningClass: class,
		Code:          code,
		Handlers:      handlers,
		Locals:        make([]value.Value, maxLocals),
		Stack:         make([]value.Value, 0, maxStack),
	}
}

// Push appends v to the operand stack. Stack overflow is an invariant
// violation (a bug in layout or bytecode), not a recoverable runtime
// condition, and panics per §7.
func (f *Frame) Push(v value.Value) {
	if len(f.Stack) == cap(f.Stack) && cap(f.Stack) != 0 {
		panic(fmt.Sprintf("StackOverflow in %s", f.MethodName))
	}
	f.Stack = append(f.Stack, v)
}

// Pop removes and returns the top of the operand stack.
func (f *Frame) Pop() value.Value {
	if len(f.Stack) == 0 {
		panic(fmt.Sprintf("StackUnderflow in %s", f.MethodName))
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}

// Peek returns the value at depth n below the top (0 = top) without popping.
func (f *Frame) Peek(n int) value.Value {
	return f.Stack[len(f.Stack)-1-n]
}

func (f *Frame) GetLocal(i int) value.Value { return f.Locals[i] }
func (f *Frame) SetLocal(i int, v value.Value) {
	f.Locals[i] = v
	if v.IsCategoryTwo() {
		// The upper slot is never read directly, but zeroing it keeps a
		// leftover one-slot value from aliasing a stale category-two read.
		if i+1 < len(f.Locals) {
			f.Locals[i+1] = value.Value{}
		}
	}
}

func (f *Frame) ReadU8() uint8 {
	b := f.Code[f.PC]
	f.PC++
	return b
}

func (f *Frame) ReadI8() int8 { return int8(f.ReadU8()) }

func (f *Frame) ReadU16() uint16 {
	v := binary.BigEndian.Uint16(f.Code[f.PC : f.PC+2])
	f.PC += 2
	return v
}

func (f *Frame) ReadI16() int16 { return int16(f.ReadU16()) }

func (f *Frame) ReadU32() uint32 {
	v := binary.BigEndian.Uint32(f.Code[f.PC : f.PC+4])
	f.PC += 4
	return v
}

func (f *Frame) ReadI32() int32 { return int32(f.ReadU32()) }
