package methodarea

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

type fieldSpec struct {
	name, desc string
	static     bool
}

type methodSpec struct {
	name, desc string
	static     bool
	code       []byte
	maxStack   uint16
	maxLocals  uint16
}

// writeClass builds and writes a minimal but real .class file for a class
// named `name` extending `super` (pass "" for a root class with no
// superclass, the way java/lang/Object itself is written),
// with the given fields and methods. Descriptors/code are caller-supplied
// so each test controls exactly what it needs without a full assembler.
func writeClass(t *testing.T, dir, name, super string, fields []fieldSpec, methods []methodSpec) {
	t.Helper()
	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.BigEndian, v) }

	type utf8Entry struct {
		idx   uint16
		value string
	}
	var pool []any
	utf8Index := map[string]uint16{}
	addUtf8 := func(s string) uint16 {
		if idx, ok := utf8Index[s]; ok {
			return idx
		}
		pool = append(pool, utf8Entry{value: s})
		idx := uint16(len(pool))
		utf8Index[s] = idx
		return idx
	}
	type classEntry struct{ nameIdx uint16 }
	addClass := func(className string) uint16 {
		nameIdx := addUtf8(className)
		pool = append(pool, classEntry{nameIdx: nameIdx})
		return uint16(len(pool))
	}

	thisIdx := addClass(name)
	var superIdx uint16 // 0: no superclass
	if super != "" {
		superIdx = addClass(super)
	}

	type fieldEntry struct {
		nameIdx, descIdx, flags uint16
	}
	var fieldEntries []fieldEntry
	for _, f := range fields {
		nameIdx := addUtf8(f.name)
		descIdx := addUtf8(f.desc)
		flags := uint16(0x0001) // public
		if f.static {
			flags |= 0x0008
		}
		fieldEntries = append(fieldEntries, fieldEntry{nameIdx, descIdx, flags})
	}

	codeAttrNameIdx := addUtf8("Code")
	type methodEntry struct {
		nameIdx, descIdx, flags uint16
		m                       methodSpec
	}
	var methodEntries []methodEntry
	for _, m := range methods {
		nameIdx := addUtf8(m.name)
		descIdx := addUtf8(m.desc)
		flags := uint16(0x0001)
		if m.static {
			flags |= 0x0008
		}
		methodEntries = append(methodEntries, methodEntry{nameIdx, descIdx, flags, m})
	}

	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(52))

	w(uint16(len(pool) + 1))
	for _, e := range pool {
		switch v := e.(type) {
		case utf8Entry:
			w(uint8(1))
			w(uint16(len(v.value)))
			buf.WriteString(v.value)
		case classEntry:
			w(uint8(7))
			w(v.nameIdx)
		}
	}

	w(uint16(0x0021)) // public super
	w(thisIdx)
	w(superIdx)
	w(uint16(0)) // interfaces

	w(uint16(len(fieldEntries)))
	for _, f := range fieldEntries {
		w(f.flags)
		w(f.nameIdx)
		w(f.descIdx)
		w(uint16(0)) // no attributes
	}

	w(uint16(len(methodEntries)))
	for _, m := range methodEntries {
		w(m.flags)
		w(m.nameIdx)
		w(m.descIdx)
		if m.m.code == nil {
			w(uint16(0))
			continue
		}
		w(uint16(1))
		var code bytes.Buffer
		binary.Write(&code, binary.BigEndian, m.m.maxStack)
		binary.Write(&code, binary.BigEndian, m.m.maxLocals)
		binary.Write(&code, binary.BigEndian, uint32(len(m.m.code)))
		code.Write(m.m.code)
		binary.Write(&code, binary.BigEndian, uint16(0))
		binary.Write(&code, binary.BigEndian, uint16(0))
		w(codeAttrNameIdx)
		w(uint32(code.Len()))
		buf.Write(code.Bytes())
	}

	w(uint16(0)) // class attributes

	if err := os.WriteFile(filepath.Join(dir, name+".class"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing %s.class: %v", name, err)
	}
}

func TestResolveClassInternsOnce(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "A", "", nil, nil)

	ma := New([]string{dir})
	id1, err := ma.ResolveClass("A")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := ma.ResolveClass("A")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("ResolveClass(A) returned different ids: %v != %v", id1, id2)
	}
}

func TestResolveClassNotFound(t *testing.T) {
	ma := New([]string{t.TempDir()})
	if _, err := ma.ResolveClass("Missing"); err == nil {
		t.Error("expected ClassNotFoundError")
	}
}

func TestFieldLayoutMonotonic(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "A", "", []fieldSpec{{name: "x", desc: "I"}}, nil)
	writeClass(t, dir, "B", "A", []fieldSpec{{name: "y", desc: "J"}}, nil)

	ma := New([]string{dir})
	bId, err := ma.ResolveClass("B")
	if err != nil {
		t.Fatal(err)
	}
	aId, err := ma.ResolveClass("A")
	if err != nil {
		t.Fatal(err)
	}

	aCls := ma.Class(aId)
	bCls := ma.Class(bId)

	// Fields lists only a class's own declared fields; x is reached from B
	// through the superclass walk.
	xInA := ma.Field(aCls.Fields[0])
	xInBId, err := ma.ResolveField(bId, "x")
	if err != nil {
		t.Fatal(err)
	}
	xInB := ma.Field(xInBId)
	if xInA.Offset != xInB.Offset {
		t.Errorf("field x offset differs between A (%d) and B (%d)", xInA.Offset, xInB.Offset)
	}

	yField := ma.Field(bCls.Fields[0])
	if yField.Offset%8 != 0 {
		t.Errorf("long field y offset %d not 8-byte aligned", yField.Offset)
	}
	if yField.Offset < xInA.Offset+4 {
		t.Errorf("field y at %d overlaps field x at %d", yField.Offset, xInA.Offset)
	}
	if bCls.Size < yField.Offset+8 {
		t.Errorf("class size %d too small to hold field y at %d", bCls.Size, yField.Offset)
	}
}

func TestResolveMethodWalksSuperclass(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "A", "", nil, []methodSpec{
		{name: "greet", desc: "()I", code: []byte{0x03, 0xAC}, maxStack: 1, maxLocals: 1},
	})
	writeClass(t, dir, "B", "A", nil, nil)

	ma := New([]string{dir})
	bId, err := ma.ResolveClass("B")
	if err != nil {
		t.Fatal(err)
	}
	mid, err := ma.ResolveMethod(bId, "greet", "()I")
	if err != nil {
		t.Fatalf("ResolveMethod: %v", err)
	}
	if ma.Method(mid).Name != "greet" {
		t.Error("resolved wrong method")
	}
}

func TestResolveMethodNoSuchMethod(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "A", "", nil, nil)
	ma := New([]string{dir})
	aId, _ := ma.ResolveClass("A")
	if _, err := ma.ResolveMethod(aId, "missing", "()V"); err == nil {
		t.Error("expected NoSuchMethodError")
	}
}

func TestResolveArrayClassKeyedByElementType(t *testing.T) {
	ma := New(nil)
	id1, err := ma.ResolveClass("[I")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := ma.ResolveClass("[I")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Error("array classes with the same element type should intern to the same id")
	}
	cls := ma.Class(id1)
	if !cls.IsArray || !cls.Initialized {
		t.Error("array class should be marked array and pre-initialized")
	}
}

func TestClassCircularitySelfSuper(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "A", "A", nil, nil)
	ma := New([]string{dir})
	_, err := ma.ResolveClass("A")
	if err == nil {
		t.Fatal("expected ClassCircularityError for self-referential super")
	}
	if _, ok := err.(*ClassCircularityError); !ok {
		t.Errorf("got %T, want *ClassCircularityError", err)
	}
}

func TestInstanceOfWalksSuperclassChain(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "A", "", nil, nil)
	writeClass(t, dir, "B", "A", nil, nil)
	ma := New([]string{dir})
	aId, _ := ma.ResolveClass("A")
	bId, _ := ma.ResolveClass("B")
	if !ma.InstanceOf(bId, aId) {
		t.Error("B should be an instance of A")
	}
	if ma.InstanceOf(aId, bId) {
		t.Error("A should not be an instance of B")
	}
}

func TestInstanceOfArrayCovariance(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "A", "", nil, nil)
	writeClass(t, dir, "B", "A", nil, nil)
	ma := New([]string{dir})

	bArr, err := ma.ResolveClass("[LB;")
	if err != nil {
		t.Fatal(err)
	}
	aArr, err := ma.ResolveClass("[LA;")
	if err != nil {
		t.Fatal(err)
	}
	if !ma.InstanceOf(bArr, aArr) {
		t.Error("B[] should be an instance of A[] (array covariance)")
	}
	if ma.InstanceOf(aArr, bArr) {
		t.Error("A[] should not be an instance of B[]")
	}
}
