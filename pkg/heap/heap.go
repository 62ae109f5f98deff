// Package heap is the managed allocator for instances and arrays: raw byte
// storage with a computed field layout, typed field/element access, and
// array bulk-copy. It allocates but never reclaims; a future garbage
// collector is an explicit, out-of-scope extension (see spec §3 lifecycle).
package heap

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/layout"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// NegativeArraySizeError is raised by NewArray when length < 0.
type NegativeArraySizeError struct{ Length int32 }

func (e *NegativeArraySizeError) Error() string {
	return fmt.Sprintf("NegativeArraySizeException: %d", e.Length)
}

// ArrayIndexOutOfBoundsError is raised by LoadElement/StoreElement/ArrayCopy.
type ArrayIndexOutOfBoundsError struct {
	Index, Length int32
}

func (e *ArrayIndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("ArrayIndexOutOfBoundsException: index %d out of bounds for length %d", e.Index, e.Length)
}

// Heap is the process-wide managed byte arena. Guarded by its own mutex,
// independent of the method area's, per the concurrency model's rule that
// at most one of {method area, heap} is held at a time.
type Heap struct {
	mu  sync.Mutex
	mem []byte
}

// New returns an empty heap. The first word is reserved and never handed
// out as a real allocation, so offset 0 is free to serve as the null
// sentinel for reference-typed fields and array elements: a freshly
// allocated object's zeroed reference slots decode as null without the
// allocator having to know which of its fields are reference-typed.
func New() *Heap {
	return &Heap{mem: make([]byte, 8)}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + (align - r)
	}
	return n
}

// NewObject allocates a zeroed region of the given size/alignment and
// stamps class into its header. size must already include
// layout.ObjectHeaderSize (the method area's field layout algorithm folds
// it into every class's computed Size).
func (h *Heap) NewObject(class ids.ClassId, size, alignment int) value.ObjectRef {
	h.mu.Lock()
	defer h.mu.Unlock()

	base := roundUp(len(h.mem), alignment)
	h.grow(base + size)
	binary.BigEndian.PutUint64(h.mem[base:base+8], uint64(class))
	return value.ObjectRef{Offset: int64(base), Valid: true}
}

// NewArray allocates a zeroed array of length elements of elemTag, prefixed
// by an array header recording class, element tag, and length.
func (h *Heap) NewArray(class ids.ClassId, elemTag value.Tag, length int32) (value.ArrayRef, error) {
	if length < 0 {
		return value.ArrayRef{}, &NegativeArraySizeError{Length: length}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	stride := value.Size(elemTag)
	total := layout.ArrayHeaderSize + stride*int(length)
	base := roundUp(len(h.mem), 8)
	h.grow(base + total)

	binary.BigEndian.PutUint64(h.mem[base:base+8], uint64(class))
	binary.BigEndian.PutUint32(h.mem[base+8:base+12], uint32(elemTag))
	binary.BigEndian.PutUint32(h.mem[base+12:base+16], uint32(length))

	return value.ArrayRef{Offset: int64(base), Valid: true}, nil
}

func (h *Heap) grow(newLen int) {
	if newLen <= len(h.mem) {
		return
	}
	grown := make([]byte, newLen)
	copy(grown, h.mem)
	h.mem = grown
}

// ClassOf returns the ClassId stamped into obj's header.
func (h *Heap) ClassOf(obj value.ObjectRef) ids.ClassId {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ids.ClassId(binary.BigEndian.Uint64(h.mem[obj.Offset : obj.Offset+8]))
}

// ArrayClassOf returns the ClassId stamped into arr's header.
func (h *Heap) ArrayClassOf(arr value.ArrayRef) ids.ClassId {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ids.ClassId(binary.BigEndian.Uint64(h.mem[arr.Offset : arr.Offset+8]))
}

// ArrayLen returns the element count stamped into arr's header.
func (h *Heap) ArrayLen(arr value.ArrayRef) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int32(binary.BigEndian.Uint32(h.mem[arr.Offset+12 : arr.Offset+16]))
}

// ArrayElemTag returns the element tag stamped into arr's header.
func (h *Heap) ArrayElemTag(arr value.ArrayRef) value.Tag {
	h.mu.Lock()
	defer h.mu.Unlock()
	return value.Tag(binary.BigEndian.Uint32(h.mem[arr.Offset+8 : arr.Offset+12]))
}

// LoadField reads the value at obj+offset as tag. Sub-int values are widened
// to Int via ExtendToInt, matching the field-load rule in §4.5.
func (h *Heap) LoadField(obj value.ObjectRef, offset int, tag value.Tag) value.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.read(obj.Offset+int64(offset), tag).ExtendToInt()
}

// StoreField narrows v to tag (per §4.4's store_ty rule) and writes it at
// obj+offset.
func (h *Heap) StoreField(obj value.ObjectRef, offset int, tag value.Tag, v value.Value) {
	narrowed := narrowForStorage(v, tag)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.write(obj.Offset+int64(offset), tag, narrowed)
}

// LoadElement reads arr[index] as elemTag, bounds-checked, widened via
// ExtendToInt for sub-int element types.
func (h *Heap) LoadElement(arr value.ArrayRef, index int32, elemTag value.Tag) (value.Value, error) {
	h.mu.Lock()
	length := int32(binary.BigEndian.Uint32(h.mem[arr.Offset+12 : arr.Offset+16]))
	if index < 0 || index >= length {
		h.mu.Unlock()
		return value.Value{}, &ArrayIndexOutOfBoundsError{Index: index, Length: length}
	}
	stride := value.Size(elemTag)
	off := arr.Offset + layout.ArrayHeaderSize + int64(index)*int64(stride)
	v := h.read(off, elemTag)
	h.mu.Unlock()
	return v.ExtendToInt(), nil
}

// StoreElement narrows v to elemTag and writes it at arr[index], bounds-checked.
func (h *Heap) StoreElement(arr value.ArrayRef, index int32, elemTag value.Tag, v value.Value) error {
	narrowed := narrowForStorage(v, elemTag)
	h.mu.Lock()
	defer h.mu.Unlock()
	length := int32(binary.BigEndian.Uint32(h.mem[arr.Offset+12 : arr.Offset+16]))
	if index < 0 || index >= length {
		return &ArrayIndexOutOfBoundsError{Index: index, Length: length}
	}
	stride := value.Size(elemTag)
	off := arr.Offset + layout.ArrayHeaderSize + int64(index)*int64(stride)
	h.write(off, elemTag, narrowed)
	return nil
}

// ArrayCopy copies length elements from src[srcOffset:] to dst[dstOffset:].
// The two arrays' element tags must be equal (object and array element tags
// count as one reference kind), else an error is returned; bounds are
// checked against both arrays.
func (h *Heap) ArrayCopy(src value.ArrayRef, srcOffset int32, dst value.ArrayRef, dstOffset int32, length int32, elemTag value.Tag) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	srcTag := value.Tag(binary.BigEndian.Uint32(h.mem[src.Offset+8 : src.Offset+12]))
	dstTag := value.Tag(binary.BigEndian.Uint32(h.mem[dst.Offset+8 : dst.Offset+12]))
	isRef := func(t value.Tag) bool { return t == value.TagObject || t == value.TagArray }
	if srcTag != dstTag && !(isRef(srcTag) && isRef(dstTag)) {
		return fmt.Errorf("ArrayStoreException: arraycopy from %s[] to %s[]", srcTag, dstTag)
	}

	srcLen := int32(binary.BigEndian.Uint32(h.mem[src.Offset+12 : src.Offset+16]))
	dstLen := int32(binary.BigEndian.Uint32(h.mem[dst.Offset+12 : dst.Offset+16]))
	if srcOffset < 0 || srcOffset+length > srcLen {
		return &ArrayIndexOutOfBoundsError{Index: srcOffset + length, Length: srcLen}
	}
	if dstOffset < 0 || dstOffset+length > dstLen {
		return &ArrayIndexOutOfBoundsError{Index: dstOffset + length, Length: dstLen}
	}

	stride := value.Size(elemTag)
	srcStart := src.Offset + layout.ArrayHeaderSize + int64(srcOffset)*int64(stride)
	dstStart := dst.Offset + layout.ArrayHeaderSize + int64(dstOffset)*int64(stride)
	n := int64(length) * int64(stride)
	copy(h.mem[dstStart:dstStart+n], h.mem[srcStart:srcStart+n])
	return nil
}

func narrowForStorage(v value.Value, tag value.Tag) value.Value {
	switch tag {
	case value.TagByte, value.TagBoolean, value.TagChar, value.TagShort, value.TagInt:
		return v.StoreTy(tag)
	default:
		return v
	}
}

// read interprets the bytes at offset as tag, without widening.
func (h *Heap) read(offset int64, tag value.Tag) value.Value {
	switch tag {
	case value.TagByte:
		return value.Byte(int8(h.mem[offset]))
	case value.TagBoolean:
		return value.Bool(h.mem[offset] != 0)
	case value.TagChar:
		return value.Char(binary.BigEndian.Uint16(h.mem[offset : offset+2]))
	case value.TagShort:
		return value.Short(int16(binary.BigEndian.Uint16(h.mem[offset : offset+2])))
	case value.TagInt:
		return value.Int(int32(binary.BigEndian.Uint32(h.mem[offset : offset+4])))
	case value.TagFloat:
		bits := binary.BigEndian.Uint32(h.mem[offset : offset+4])
		return value.Float(float32FromBits(bits))
	case value.TagLong:
		return value.Long(int64(binary.BigEndian.Uint64(h.mem[offset : offset+8])))
	case value.TagDouble:
		bits := binary.BigEndian.Uint64(h.mem[offset : offset+8])
		return value.Double(float64FromBits(bits))
	case value.TagObject:
		off := int64(binary.BigEndian.Uint64(h.mem[offset : offset+8]))
		if off == nullSentinel {
			return value.Null()
		}
		return value.Object(value.ObjectRef{Offset: off, Valid: true})
	case value.TagArray:
		off := int64(binary.BigEndian.Uint64(h.mem[offset : offset+8]))
		if off == nullSentinel {
			return value.NullArray()
		}
		return value.Array(value.ArrayRef{Offset: off, Valid: true})
	default:
		panic("heap: unknown tag")
	}
}

// nullSentinel is stored in a reference slot to represent a null reference.
// Offset 0 is never a legal object/array base (New reserves the heap's
// first word so no allocation ever lands there), so a freshly zeroed
// reference field or array slot already reads back as null with no extra
// initialization at allocation time.
var nullSentinel int64 = 0

func (h *Heap) write(offset int64, tag value.Tag, v value.Value) {
	switch tag {
	case value.TagByte, value.TagBoolean:
		h.mem[offset] = byte(v.Int)
	case value.TagChar, value.TagShort:
		binary.BigEndian.PutUint16(h.mem[offset:offset+2], uint16(v.Int))
	case value.TagInt:
		binary.BigEndian.PutUint32(h.mem[offset:offset+4], uint32(v.Int))
	case value.TagFloat:
		binary.BigEndian.PutUint32(h.mem[offset:offset+4], float32Bits(v.Float))
	case value.TagLong:
		binary.BigEndian.PutUint64(h.mem[offset:offset+8], uint64(v.Long))
	case value.TagDouble:
		binary.BigEndian.PutUint64(h.mem[offset:offset+8], float64Bits(v.Double))
	case value.TagObject:
		if !v.Obj.Valid {
			binary.BigEndian.PutUint64(h.mem[offset:offset+8], uint64(nullSentinel))
		} else {
			binary.BigEndian.PutUint64(h.mem[offset:offset+8], uint64(v.Obj.Offset))
		}
	case value.TagArray:
		if !v.Arr.Valid {
			binary.BigEndian.PutUint64(h.mem[offset:offset+8], uint64(nullSentinel))
		} else {
			binary.BigEndian.PutUint64(h.mem[offset:offset+8], uint64(v.Arr.Offset))
		}
	default:
		panic("heap: unknown tag")
	}
}
