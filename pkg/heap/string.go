package heap

import (
	"fmt"
	"unicode/utf16"

	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// StringLayout describes where a runtime string instance's `value` and
// `coder` fields live, as computed by the method area for java/lang/String.
// The heap has no knowledge of class layout on its own (per the decoupling
// from the method area), so callers performing string read/create pass the
// layout explicitly.
type StringLayout struct {
	ValueFieldOffset int // byte[] field
	CoderFieldOffset int // byte field: 0 = UTF-8 bytes, nonzero = UTF-16
}

// ReadString decodes obj as a runtime string: its `value` byte array and
// `coder` byte determine whether the bytes are taken as UTF-8 (coder 0) or
// as big-endian UTF-16 byte pairs, high byte first (coder != 0).
func (h *Heap) ReadString(obj value.ObjectRef, layout StringLayout) (string, error) {
	valueField := h.LoadField(obj, layout.ValueFieldOffset, value.TagArray)
	if valueField.IsNullRef() {
		return "", fmt.Errorf("heap: string's value field is null")
	}
	coderField := h.LoadField(obj, layout.CoderFieldOffset, value.TagByte)

	arr := valueField.Arr
	n := h.ArrayLen(arr)
	bytes := make([]byte, n)
	for i := int32(0); i < n; i++ {
		b, err := h.LoadElement(arr, i, value.TagByte)
		if err != nil {
			return "", err
		}
		bytes[i] = byte(b.Int)
	}

	if coderField.Int == 0 {
		return string(bytes), nil
	}

	if len(bytes)%2 != 0 {
		return "", fmt.Errorf("heap: UTF-16 string byte array has odd length %d", len(bytes))
	}
	units := make([]uint16, len(bytes)/2)
	for i := range units {
		units[i] = uint16(bytes[2*i])<<8 | uint16(bytes[2*i+1])
	}
	return string(utf16.Decode(units)), nil
}

// CreateString allocates a new string instance of class strClass (sized
// size/alignment, as computed by the method area for java/lang/String),
// encodes str as UTF-16-in-bytes, allocates the backing byte array via
// byteArrayClass, and wires up the `value`/`coder` fields per layout.
func (h *Heap) CreateString(str string, strClass ids.ClassId, size, alignment int, byteArrayClass ids.ClassId, layout StringLayout) value.ObjectRef {
	units := utf16.Encode([]rune(str))
	bytes := make([]byte, len(units)*2)
	for i, u := range units {
		bytes[2*i] = byte(u >> 8)
		bytes[2*i+1] = byte(u)
	}

	arr, _ := h.NewArray(byteArrayClass, value.TagByte, int32(len(bytes)))
	for i, b := range bytes {
		h.StoreElement(arr, int32(i), value.TagByte, value.Byte(int8(b)))
	}

	obj := h.NewObject(strClass, size, alignment)
	h.StoreField(obj, layout.ValueFieldOffset, value.TagArray, value.Array(arr))
	h.StoreField(obj, layout.CoderFieldOffset, value.TagByte, value.Byte(1))
	return obj
}
