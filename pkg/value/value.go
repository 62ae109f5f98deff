// Package value implements the tagged runtime value union shared by the
// method area, heap, and interpreter.
package value

import (
	"fmt"
	"math"
)

// Tag identifies which variant of Value is populated.
type Tag uint8

const (
	TagByte Tag = iota
	TagChar
	TagDouble
	TagFloat
	TagInt
	TagLong
	TagShort
	TagBoolean
	TagObject
	TagArray
)

func (t Tag) String() string {
	switch t {
	case TagByte:
		return "byte"
	case TagChar:
		return "char"
	case TagDouble:
		return "double"
	case TagFloat:
		return "float"
	case TagInt:
		return "int"
	case TagLong:
		return "long"
	case TagShort:
		return "short"
	case TagBoolean:
		return "boolean"
	case TagObject:
		return "object"
	case TagArray:
		return "array"
	default:
		return "unknown"
	}
}

// ObjectRef is a reference to a heap-allocated instance. Zero value is null.
type ObjectRef struct {
	Offset int64
	Valid  bool
}

// ArrayRef is a reference to a heap-allocated array. Zero value is null.
type ArrayRef struct {
	Offset int64
	Valid  bool
}

// Value is the tagged runtime value. Only the field matching Tag is
// meaningful; the others are left at their zero value.
type Value struct {
	Tag    Tag
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Obj    ObjectRef
	Arr    ArrayRef
}

func Byte(v int8) Value    { return Value{Tag: TagByte, Int: int32(v)} }
func Char(v uint16) Value  { return Value{Tag: TagChar, Int: int32(v)} }
func Short(v int16) Value  { return Value{Tag: TagShort, Int: int32(v)} }
func Bool(v bool) Value {
	if v {
		return Value{Tag: TagBoolean, Int: 1}
	}
	return Value{Tag: TagBoolean, Int: 0}
}
func Int(v int32) Value       { return Value{Tag: TagInt, Int: v} }
func Long(v int64) Value      { return Value{Tag: TagLong, Long: v} }
func Float(v float32) Value   { return Value{Tag: TagFloat, Float: v} }
func Double(v float64) Value  { return Value{Tag: TagDouble, Double: v} }
func Null() Value             { return Value{Tag: TagObject} }
func NullArray() Value        { return Value{Tag: TagArray} }
func Object(ref ObjectRef) Value { return Value{Tag: TagObject, Obj: ref} }
func Array(ref ArrayRef) Value   { return Value{Tag: TagArray, Arr: ref} }

// IsCategoryTwo reports whether v occupies two local-variable slots and two
// dup-family stack units.
func (v Value) IsCategoryTwo() bool {
	return v.Tag == TagLong || v.Tag == TagDouble
}

// IsNullRef reports whether v is a null Object or Array reference.
func (v Value) IsNullRef() bool {
	switch v.Tag {
	case TagObject:
		return !v.Obj.Valid
	case TagArray:
		return !v.Arr.Valid
	default:
		return false
	}
}

// ExtendToInt widens Byte/Short/Boolean/Char to Int. Values already wider
// than Int, or reference-typed, are returned unchanged.
func (v Value) ExtendToInt() Value {
	switch v.Tag {
	case TagByte, TagShort, TagBoolean, TagChar:
		return Value{Tag: TagInt, Int: v.Int}
	default:
		return v
	}
}

// StoreTy narrows an Int value to the given field/element tag before it is
// written into storage. Tags wider than Int (Long/Float/Double/Object/Array)
// must already match and are passed through.
func (v Value) StoreTy(target Tag) Value {
	switch target {
	case TagByte:
		return Value{Tag: TagByte, Int: int32(int8(v.Int))}
	case TagBoolean:
		if v.Int != 0 {
			return Value{Tag: TagBoolean, Int: 1}
		}
		return Value{Tag: TagBoolean, Int: 0}
	case TagChar:
		return Value{Tag: TagChar, Int: int32(uint16(v.Int))}
	case TagShort:
		return Value{Tag: TagShort, Int: int32(int16(v.Int))}
	case TagInt:
		return Value{Tag: TagInt, Int: v.Int}
	default:
		if v.Tag != target {
			panic(fmt.Sprintf("store_ty: value tag %s does not match target %s", v.Tag, target))
		}
		return v
	}
}

// DefaultForTag returns the zero value for a given tag.
func DefaultForTag(t Tag) Value {
	switch t {
	case TagObject:
		return Null()
	case TagArray:
		return NullArray()
	default:
		return Value{Tag: t}
	}
}

// Size returns the in-memory size in bytes of a value of the given tag,
// matching the natural width used by the heap's field layout algorithm.
func Size(t Tag) int {
	switch t {
	case TagByte, TagBoolean:
		return 1
	case TagChar, TagShort:
		return 2
	case TagInt, TagFloat:
		return 4
	case TagLong, TagDouble, TagObject, TagArray:
		return 8
	default:
		panic(fmt.Sprintf("value: unknown tag %v", t))
	}
}

// Alignment returns the natural alignment in bytes for a value of the given
// tag. For every tag in this model alignment equals size.
func Alignment(t Tag) int {
	return Size(t)
}

// Add, Sub, Mul, Div, Rem, Neg implement the arithmetic family for
// Int/Long/Float/Double. The caller is responsible for checking divide by
// zero on integral division (ArithmeticException is an interpreter-level
// concern, not a value-model one).

func Add(a, b Value) Value {
	switch a.Tag {
	case TagInt:
		return Int(a.Int + b.Int)
	case TagLong:
		return Long(a.Long + b.Long)
	case TagFloat:
		return Float(a.Float + b.Float)
	case TagDouble:
		return Double(a.Double + b.Double)
	default:
		panic("value: add on non-numeric tag")
	}
}

func Sub(a, b Value) Value {
	switch a.Tag {
	case TagInt:
		return Int(a.Int - b.Int)
	case TagLong:
		return Long(a.Long - b.Long)
	case TagFloat:
		return Float(a.Float - b.Float)
	case TagDouble:
		return Double(a.Double - b.Double)
	default:
		panic("value: sub on non-numeric tag")
	}
}

// Mul uses wrapping semantics for integral types, matching the spec's
// requirement that integer multiplication never traps on overflow.
func Mul(a, b Value) Value {
	switch a.Tag {
	case TagInt:
		return Int(a.Int * b.Int)
	case TagLong:
		return Long(a.Long * b.Long)
	case TagFloat:
		return Float(a.Float * b.Float)
	case TagDouble:
		return Double(a.Double * b.Double)
	default:
		panic("value: mul on non-numeric tag")
	}
}

func Div(a, b Value) Value {
	switch a.Tag {
	case TagInt:
		return Int(a.Int / b.Int)
	case TagLong:
		return Long(a.Long / b.Long)
	case TagFloat:
		return Float(a.Float / b.Float)
	case TagDouble:
		return Double(a.Double / b.Double)
	default:
		panic("value: div on non-numeric tag")
	}
}

func Rem(a, b Value) Value {
	switch a.Tag {
	case TagInt:
		return Int(a.Int % b.Int)
	case TagLong:
		return Long(a.Long % b.Long)
	case TagFloat:
		return Float(modFloat32(a.Float, b.Float))
	case TagDouble:
		return Double(modFloat64(a.Double, b.Double))
	default:
		panic("value: rem on non-numeric tag")
	}
}

func Neg(a Value) Value {
	switch a.Tag {
	case TagInt:
		return Int(-a.Int)
	case TagLong:
		return Long(-a.Long)
	case TagFloat:
		return Float(-a.Float)
	case TagDouble:
		return Double(-a.Double)
	default:
		panic("value: neg on non-numeric tag")
	}
}

func And(a, b Value) Value {
	if a.Tag == TagLong {
		return Long(a.Long & b.Long)
	}
	return Int(a.Int & b.Int)
}

func Or(a, b Value) Value {
	if a.Tag == TagLong {
		return Long(a.Long | b.Long)
	}
	return Int(a.Int | b.Int)
}

func Xor(a, b Value) Value {
	if a.Tag == TagLong {
		return Long(a.Long ^ b.Long)
	}
	return Int(a.Int ^ b.Int)
}

// Shl, Shr, Ushr take the shift count from an Int value (b), masked to the
// bit width of the shifted operand per the target instruction set (5 bits
// for int, 6 bits for long).

func Shl(a, b Value) Value {
	if a.Tag == TagLong {
		return Long(a.Long << (uint(b.Int) & 63))
	}
	return Int(a.Int << (uint(b.Int) & 31))
}

func Shr(a, b Value) Value {
	if a.Tag == TagLong {
		return Long(a.Long >> (uint(b.Int) & 63))
	}
	return Int(a.Int >> (uint(b.Int) & 31))
}

func Ushr(a, b Value) Value {
	if a.Tag == TagLong {
		return Long(int64(uint64(a.Long) >> (uint(b.Int) & 63)))
	}
	return Int(int32(uint32(a.Int) >> (uint(b.Int) & 31)))
}

func modFloat32(a, b float32) float32 {
	return float32(math.Mod(float64(a), float64(b)))
}

func modFloat64(a, b float64) float64 {
	return math.Mod(a, b)
}
