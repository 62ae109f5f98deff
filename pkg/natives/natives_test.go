package natives

import (
	"bytes"
	"testing"

	"github.com/suzume-jvm/suzume/pkg/heap"
	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/value"
)

func TestFloatBitConversionsRoundTrip(t *testing.T) {
	table := NewTable()
	env := &Env{Heap: heap.New()}

	toBits, ok := table.Lookup("java/lang/Float", "floatToIntBits", "(F)I")
	if !ok {
		t.Fatal("floatToIntBits not registered")
	}
	bits, err := toBits(env, []value.Value{value.Float(1.5)})
	if err != nil {
		t.Fatal(err)
	}

	fromBits, ok := table.Lookup("java/lang/Float", "intBitsToFloat", "(I)F")
	if !ok {
		t.Fatal("intBitsToFloat not registered")
	}
	back, err := fromBits(env, []value.Value{bits})
	if err != nil {
		t.Fatal(err)
	}
	if back.Float != 1.5 {
		t.Errorf("round trip = %v, want 1.5", back.Float)
	}
}

func TestDoubleBitConversionsRoundTrip(t *testing.T) {
	table := NewTable()
	env := &Env{Heap: heap.New()}

	toBits, _ := table.Lookup("java/lang/Double", "doubleToLongBits", "(D)J")
	bits, err := toBits(env, []value.Value{value.Double(3.25)})
	if err != nil {
		t.Fatal(err)
	}
	fromBits, _ := table.Lookup("java/lang/Double", "longBitsToDouble", "(J)D")
	back, err := fromBits(env, []value.Value{bits})
	if err != nil {
		t.Fatal(err)
	}
	if back.Double != 3.25 {
		t.Errorf("round trip = %v, want 3.25", back.Double)
	}
}

func TestArraycopyNative(t *testing.T) {
	table := NewTable()
	h := heap.New()
	env := &Env{Heap: h}

	src, _ := h.NewArray(ids.ClassId(1), value.TagInt, 3)
	dst, _ := h.NewArray(ids.ClassId(1), value.TagInt, 3)
	for i := int32(0); i < 3; i++ {
		h.StoreElement(src, i, value.TagInt, value.Int(i+10))
	}

	fn, ok := table.Lookup("java/lang/System", "arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V")
	if !ok {
		t.Fatal("arraycopy not registered")
	}
	_, err := fn(env, []value.Value{
		value.Array(src), value.Int(0), value.Array(dst), value.Int(0), value.Int(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := int32(0); i < 3; i++ {
		v, _ := h.LoadElement(dst, i, value.TagInt)
		if v.Int != i+10 {
			t.Errorf("dst[%d] = %d, want %d", i, v.Int, i+10)
		}
	}
}

func TestLookupMiss(t *testing.T) {
	table := NewTable()
	if _, ok := table.Lookup("java/lang/Nope", "nope", "()V"); ok {
		t.Error("expected miss for unregistered native")
	}
}

func TestCompareAndSetInt(t *testing.T) {
	table := NewTable()
	h := heap.New()
	env := &Env{Heap: h}

	obj := h.NewObject(ids.ClassId(1), 16, 8)
	h.StoreField(obj, 8, value.TagInt, value.Int(5))

	cas, ok := table.Lookup("jdk/internal/misc/Unsafe", "compareAndSetInt", "(Ljava/lang/Object;JII)Z")
	if !ok {
		t.Fatal("compareAndSetInt not registered")
	}

	ok1, err := cas(env, []value.Value{value.Object(obj), value.Object(obj), value.Long(8), value.Int(99), value.Int(42)})
	if err != nil {
		t.Fatal(err)
	}
	if ok1.Int != 0 {
		t.Errorf("CAS with wrong expected value should fail, got %v", ok1.Int)
	}

	ok2, err := cas(env, []value.Value{value.Object(obj), value.Object(obj), value.Long(8), value.Int(5), value.Int(42)})
	if err != nil {
		t.Fatal(err)
	}
	if ok2.Int != 1 {
		t.Errorf("CAS with matching expected value should succeed, got %v", ok2.Int)
	}
	cur := h.LoadField(obj, 8, value.TagInt)
	if cur.Int != 42 {
		t.Errorf("field after successful CAS = %d, want 42", cur.Int)
	}
}

func TestPrintStreamPrintln(t *testing.T) {
	table := NewTable()
	var buf bytes.Buffer
	env := &Env{Heap: heap.New(), Out: &buf}

	fn, ok := table.Lookup("java/io/PrintStream", "println", "(I)V")
	if !ok {
		t.Fatal("println(I)V not registered")
	}
	if _, err := fn(env, []value.Value{value.Null(), value.Int(7)}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "7\n" {
		t.Errorf("println(7) wrote %q, want %q", buf.String(), "7\n")
	}
}
