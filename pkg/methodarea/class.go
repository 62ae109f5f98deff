package methodarea

import (
	"github.com/suzume-jvm/suzume/pkg/classfile"
	"github.com/suzume-jvm/suzume/pkg/descriptor"
	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// refKind distinguishes what a resolution-cache entry currently holds.
type refKind uint8

const (
	refUnresolved refKind = iota
	refClass
	refField
	refMethod
)

// reference is a single constant-pool resolution-cache slot. It transitions
// only unresolved -> resolved-once and is never invalidated, matching the
// original_source Reference enum (class.rs).
type reference struct {
	kind refKind
	id   int
}

func (r reference) isUnresolved() bool { return r.kind == refUnresolved }

// Class is a loaded type: a regular class/interface, or a synthetic array
// class. Back-references to members are by id, never by pointer, so the
// method area's entity graph has no ownership cycles (per the design notes
// on process-wide mutable tables).
type Class struct {
	Name         string
	Super        ids.ClassId // ids.Invalid for java/lang/Object and array root
	HasSuper     bool
	Interfaces   []ids.ClassId
	AccessFlags  uint16
	Methods      []ids.MethodId
	Fields       []ids.FieldId
	ConstantPool []classfile.ConstantPoolEntry

	refs map[uint16]reference

	Initialized bool
	ClassObject value.ObjectRef
	hasClassObj bool

	// Array classes only.
	IsArray     bool
	ElementType *descriptor.FieldType

	Size      int
	Alignment int
}

func (c *Class) IsInterface() bool { return c.AccessFlags&classfile.AccInterface != 0 }

// Method is a loaded method. Code is nil for abstract and native methods.
type Method struct {
	Name          string
	Descriptor    *descriptor.MethodDescriptor
	RawDescriptor string
	DefiningClass ids.ClassId
	AccessFlags   uint16
	Code          *classfile.CodeAttribute
}

func (m *Method) IsStatic() bool { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsNative() bool { return m.AccessFlags&classfile.AccNative != 0 }

// FieldBacking distinguishes a static field's single Value slot from an
// instance field's byte offset. The two are mutually exclusive and decided
// once, at load time.
type Field struct {
	Name          string
	DefiningClass ids.ClassId
	AccessFlags   uint16
	Type          *descriptor.FieldType

	Static      bool
	StaticValue value.Value // meaningful iff Static

	Offset int // meaningful iff !Static
}

func (f *Field) IsStatic() bool { return f.AccessFlags&classfile.AccStatic != 0 }
