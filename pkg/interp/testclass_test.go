package interp

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// classBuilder assembles a minimal but real .class file, constant pool
// entry by entry, so tests can exercise field/method/string resolution
// paths the interpreter actually walks through.
type classBuilder struct {
	t    *testing.T
	buf  bytes.Buffer
	pool [][]byte // each entry is its fully-encoded tag+payload
	name string
}

func newClassBuilder(t *testing.T, name string) *classBuilder {
	t.Helper()
	return &classBuilder{t: t, name: name}
}

func (b *classBuilder) add(entry []byte) uint16 {
	b.pool = append(b.pool, entry)
	return uint16(len(b.pool))
}

func (b *classBuilder) utf8(s string) uint16 {
	var e bytes.Buffer
	e.WriteByte(1)
	binary.Write(&e, binary.BigEndian, uint16(len(s)))
	e.WriteString(s)
	return b.add(e.Bytes())
}

func (b *classBuilder) class(name string) uint16 {
	nameIdx := b.utf8(name)
	var e bytes.Buffer
	e.WriteByte(7)
	binary.Write(&e, binary.BigEndian, nameIdx)
	return b.add(e.Bytes())
}

func (b *classBuilder) nameAndType(name, desc string) uint16 {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(desc)
	var e bytes.Buffer
	e.WriteByte(12)
	binary.Write(&e, binary.BigEndian, nameIdx)
	binary.Write(&e, binary.BigEndian, descIdx)
	return b.add(e.Bytes())
}

func (b *classBuilder) fieldref(className, fieldName, desc string) uint16 {
	classIdx := b.class(className)
	natIdx := b.nameAndType(fieldName, desc)
	var e bytes.Buffer
	e.WriteByte(9)
	binary.Write(&e, binary.BigEndian, classIdx)
	binary.Write(&e, binary.BigEndian, natIdx)
	return b.add(e.Bytes())
}

func (b *classBuilder) methodref(className, methodName, desc string) uint16 {
	classIdx := b.class(className)
	natIdx := b.nameAndType(methodName, desc)
	var e bytes.Buffer
	e.WriteByte(10)
	binary.Write(&e, binary.BigEndian, classIdx)
	binary.Write(&e, binary.BigEndian, natIdx)
	return b.add(e.Bytes())
}

func (b *classBuilder) integer(v int32) uint16 {
	var e bytes.Buffer
	e.WriteByte(3)
	binary.Write(&e, binary.BigEndian, v)
	return b.add(e.Bytes())
}

func (b *classBuilder) stringConst(s string) uint16 {
	idx := b.utf8(s)
	var e bytes.Buffer
	e.WriteByte(8)
	binary.Write(&e, binary.BigEndian, idx)
	return b.add(e.Bytes())
}

type bFieldSpec struct {
	name, desc string
	static     bool
}

type bHandler struct{ startPC, endPC, handlerPC, catchType uint16 }

type bMethodSpec struct {
	name, desc          string
	static              bool
	code                []byte
	maxStack, maxLocals uint16
	handlers            []bHandler
}

// write finalizes the class file (thisClass/super already resolved via
// class()) and writes it to dir/<name>.class.
func (b *classBuilder) write(dir, super string, fields []bFieldSpec, methods []bMethodSpec) {
	b.t.Helper()
	thisIdx := b.class(b.name)
	var superIdx uint16
	if super != "" {
		superIdx = b.class(super)
	}

	type fieldEntry struct{ nameIdx, descIdx, flags uint16 }
	var fieldEntries []fieldEntry
	for _, f := range fields {
		flags := uint16(0x0001)
		if f.static {
			flags |= 0x0008
		}
		fieldEntries = append(fieldEntries, fieldEntry{b.utf8(f.name), b.utf8(f.desc), flags})
	}

	codeAttrNameIdx := b.utf8("Code")
	type methodEntry struct {
		nameIdx, descIdx, flags uint16
		m                       bMethodSpec
	}
	var methodEntries []methodEntry
	for _, m := range methods {
		flags := uint16(0x0001)
		if m.static {
			flags |= 0x0008
		}
		methodEntries = append(methodEntries, methodEntry{b.utf8(m.name), b.utf8(m.desc), flags, m})
	}

	w := func(v any) { binary.Write(&b.buf, binary.BigEndian, v) }

	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(52))

	w(uint16(len(b.pool) + 1))
	for _, e := range b.pool {
		b.buf.Write(e)
	}

	w(uint16(0x0021))
	w(thisIdx)
	w(superIdx)
	w(uint16(0))

	w(uint16(len(fieldEntries)))
	for _, f := range fieldEntries {
		w(f.flags)
		w(f.nameIdx)
		w(f.descIdx)
		w(uint16(0))
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
		binary.Write(&code, binary.BigEndian, uint16(len(m.m.handlers)))
		for _, h := range m.m.handlers {
			binary.Write(&code, binary.BigEndian, h.startPC)
			binary.Write(&code, binary.BigEndian, h.endPC)
			binary.Write(&code, binary.BigEndian, h.handlerPC)
			binary.Write(&code, binary.BigEndian, h.catchType)
		}
		binary.Write(&code, binary.BigEndian, uint16(0)) // attributes
		w(codeAttrNameIdx)
		w(uint32(code.Len()))
		b.buf.Write(code.Bytes())
	}

	w(uint16(0))

	path := filepath.Join(dir, b.name+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		b.t.Fatalf("mkdir for %s.class: %v", b.name, err)
	}
	if err := os.WriteFile(path, b.buf.Bytes(), 0o644); err != nil {
		b.t.Fatalf("writing %s.class: %v", b.name, err)
	}
}
