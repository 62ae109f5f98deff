package heap

import (
	"testing"

	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/value"
)

func TestNewObjectFieldStoreLoad(t *testing.T) {
	h := New()
	obj := h.NewObject(ids.ClassId(1), 16, 8)

	h.StoreField(obj, 8, value.TagInt, value.Int(42))
	got := h.LoadField(obj, 8, value.TagInt)
	if got.Int != 42 {
		t.Errorf("LoadField = %d, want 42", got.Int)
	}

	if h.ClassOf(obj) != ids.ClassId(1) {
		t.Errorf("ClassOf = %v, want 1", h.ClassOf(obj))
	}
}

func TestStoreFieldNarrowsThenExtendToIntOnLoad(t *testing.T) {
	h := New()
	obj := h.NewObject(ids.ClassId(0), 16, 8)
	h.StoreField(obj, 8, value.TagByte, value.Int(300)) // truncates to int8(300)=44
	got := h.LoadField(obj, 8, value.TagByte)
	if got.Tag != value.TagInt {
		t.Errorf("LoadField should widen byte to int, got tag %v", got.Tag)
	}
	if got.Int != 44 {
		t.Errorf("LoadField = %d, want 44", got.Int)
	}
}

func TestArrayAllocateDefaultZero(t *testing.T) {
	h := New()
	arr, err := h.NewArray(ids.ClassId(2), value.TagInt, 3)
	if err != nil {
		t.Fatal(err)
	}
	if h.ArrayLen(arr) != 3 {
		t.Errorf("ArrayLen = %d, want 3", h.ArrayLen(arr))
	}
	for i := int32(0); i < 3; i++ {
		v, err := h.LoadElement(arr, i, value.TagInt)
		if err != nil {
			t.Fatal(err)
		}
		if v.Int != 0 {
			t.Errorf("element %d = %d, want 0", i, v.Int)
		}
	}
}

func TestArrayStoreLoadRoundTrip(t *testing.T) {
	h := New()
	arr, _ := h.NewArray(ids.ClassId(2), value.TagInt, 3)
	for i := int32(0); i < 3; i++ {
		if err := h.StoreElement(arr, i, value.TagInt, value.Int(i+1)); err != nil {
			t.Fatal(err)
		}
	}
	for i := int32(0); i < 3; i++ {
		v, _ := h.LoadElement(arr, i, value.TagInt)
		if v.Int != i+1 {
			t.Errorf("element %d = %d, want %d", i, v.Int, i+1)
		}
	}
}

func TestArrayBoundsChecked(t *testing.T) {
	h := New()
	arr, _ := h.NewArray(ids.ClassId(2), value.TagInt, 2)
	if _, err := h.LoadElement(arr, 2, value.TagInt); err == nil {
		t.Error("expected ArrayIndexOutOfBoundsError")
	}
	if _, err := h.LoadElement(arr, -1, value.TagInt); err == nil {
		t.Error("expected ArrayIndexOutOfBoundsError for negative index")
	}
}

func TestNegativeArraySize(t *testing.T) {
	h := New()
	if _, err := h.NewArray(ids.ClassId(2), value.TagInt, -1); err == nil {
		t.Error("expected NegativeArraySizeError")
	}
}

func TestArrayCopyRoundTrip(t *testing.T) {
	h := New()
	src, _ := h.NewArray(ids.ClassId(2), value.TagInt, 4)
	dst, _ := h.NewArray(ids.ClassId(2), value.TagInt, 4)
	for i := int32(0); i < 4; i++ {
		h.StoreElement(src, i, value.TagInt, value.Int(10+i))
	}
	if err := h.ArrayCopy(src, 0, dst, 0, 4, value.TagInt); err != nil {
		t.Fatal(err)
	}
	for i := int32(0); i < 4; i++ {
		v, _ := h.LoadElement(dst, i, value.TagInt)
		if v.Int != 10+i {
			t.Errorf("dst[%d] = %d, want %d", i, v.Int, 10+i)
		}
	}
}

func TestNewObjectDefaultsReferenceFieldsToNull(t *testing.T) {
	h := New()
	obj := h.NewObject(ids.ClassId(0), 16, 8)
	got := h.LoadField(obj, 8, value.TagObject)
	if !got.IsNullRef() {
		t.Error("expected a never-stored reference field to default to null")
	}
}

func TestNewArrayDefaultsReferenceElementsToNull(t *testing.T) {
	h := New()
	arr, err := h.NewArray(ids.ClassId(2), value.TagObject, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := int32(0); i < 3; i++ {
		v, err := h.LoadElement(arr, i, value.TagObject)
		if err != nil {
			t.Fatal(err)
		}
		if !v.IsNullRef() {
			t.Errorf("element %d = %+v, want null", i, v)
		}
	}
}

func TestNullReferenceRoundTrip(t *testing.T) {
	h := New()
	obj := h.NewObject(ids.ClassId(0), 16, 8)
	h.StoreField(obj, 8, value.TagObject, value.Null())
	got := h.LoadField(obj, 8, value.TagObject)
	if !got.IsNullRef() {
		t.Error("expected null reference round trip")
	}
}

func TestStringRoundTrip(t *testing.T) {
	h := New()
	layout := StringLayout{ValueFieldOffset: 8, CoderFieldOffset: 16}
	obj := h.CreateString("Hi", ids.ClassId(5), 24, 8, ids.ClassId(6), layout)
	got, err := h.ReadString(obj, layout)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hi" {
		t.Errorf("ReadString = %q, want %q", got, "Hi")
	}
}

func TestReadStringCoderZero(t *testing.T) {
	h := New()
	layout := StringLayout{ValueFieldOffset: 8, CoderFieldOffset: 16}
	obj := h.NewObject(ids.ClassId(5), 24, 8)
	arr, _ := h.NewArray(ids.ClassId(6), value.TagByte, 2)
	h.StoreElement(arr, 0, value.TagByte, value.Byte(72))
	h.StoreElement(arr, 1, value.TagByte, value.Byte(105))
	h.StoreField(obj, 8, value.TagArray, value.Array(arr))
	h.StoreField(obj, 16, value.TagByte, value.Byte(0))

	got, err := h.ReadString(obj, layout)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hi" {
		t.Errorf("ReadString(coder=0) = %q, want %q", got, "Hi")
	}
}
