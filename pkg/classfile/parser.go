package classfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

const classMagic = 0xCAFEBABE

// cursor wraps a reader with fixed-width big-endian reads, so the rest of
// this file doesn't repeat a binary.Read-plus-error-check pair for every
// field in the class-file grammar.
type cursor struct {
	r   io.Reader
	ctx string // what we're currently decoding, for error messages
}

func (c *cursor) u1() (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, fmt.Errorf("%s: %w", c.ctx, err)
	}
	return b[0], nil
}

func (c *cursor) u2() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, fmt.Errorf("%s: %w", c.ctx, err)
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (c *cursor) u4() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, fmt.Errorf("%s: %w", c.ctx, err)
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, fmt.Errorf("%s: %w", c.ctx, err)
	}
	return buf, nil
}

// at returns a copy of c annotated with a more specific context string, for
// nesting error messages ("parsing method 3: reading name index: EOF").
func (c *cursor) at(ctx string) *cursor {
	return &cursor{r: c.r, ctx: ctx}
}

// ParseFile opens and parses a .class file from the given path. The file is
// memory-mapped read-only rather than read into a buffer up front: class
// files found on a classpath are typically small and numerous, and mapping
// avoids a copy for the common case where only a handful of methods from a
// given class are ever executed.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("class file %s is empty", path)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer data.Unmap()

	return Parse(bytes.NewReader(data))
}

// Parse reads a .class file from the given reader and returns a ClassFile.
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}
	c := &cursor{r: r}

	magic, err := c.at("reading magic number").u4()
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	if cf.MinorVersion, err = c.at("reading minor version").u2(); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = c.at("reading major version").u2(); err != nil {
		return nil, err
	}

	cpCount, err := c.at("reading constant pool count").u2()
	if err != nil {
		return nil, err
	}
	if cf.ConstantPool, err = parseConstantPool(c, cpCount); err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}

	if cf.AccessFlags, err = c.at("reading access flags").u2(); err != nil {
		return nil, err
	}
	if cf.ThisClass, err = c.at("reading this_class").u2(); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = c.at("reading super_class").u2(); err != nil {
		return nil, err
	}

	ifaceCount, err := c.at("reading interfaces count").u2()
	if err != nil {
		return nil, err
	}
	cf.Interfaces = make([]uint16, ifaceCount)
	for i := range cf.Interfaces {
		if cf.Interfaces[i], err = c.at(fmt.Sprintf("reading interface %d", i)).u2(); err != nil {
			return nil, err
		}
	}

	fieldCount, err := c.at("reading fields count").u2()
	if err != nil {
		return nil, err
	}
	if cf.Fields, err = parseFields(c, cf.ConstantPool, fieldCount); err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}

	methodCount, err := c.at("reading methods count").u2()
	if err != nil {
		return nil, err
	}
	if cf.Methods, err = parseMethods(c, cf.ConstantPool, methodCount); err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}

	if err := cf.parseClassAttributes(c); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, nil
}

// member holds the name/descriptor/attribute triple shared by field_info
// and method_info; fields and methods differ only in what they do with it.
type member struct {
	accessFlags uint16
	name        string
	descriptor  string
	attrs       []AttributeInfo
}

func parseMember(c *cursor, pool []ConstantPoolEntry, kind string, i int) (member, error) {
	accessFlags, err := c.at(fmt.Sprintf("reading %s %d access flags", kind, i)).u2()
	if err != nil {
		return member{}, err
	}
	nameIdx, err := c.at(fmt.Sprintf("reading %s %d name index", kind, i)).u2()
	if err != nil {
		return member{}, err
	}
	descIdx, err := c.at(fmt.Sprintf("reading %s %d descriptor index", kind, i)).u2()
	if err != nil {
		return member{}, err
	}
	attrCount, err := c.at(fmt.Sprintf("reading %s %d attributes count", kind, i)).u2()
	if err != nil {
		return member{}, err
	}

	name, err := GetUtf8(pool, nameIdx)
	if err != nil {
		return member{}, fmt.Errorf("resolving %s %d name: %w", kind, i, err)
	}
	desc, err := GetUtf8(pool, descIdx)
	if err != nil {
		return member{}, fmt.Errorf("resolving %s %d descriptor: %w", kind, i, err)
	}
	attrs, err := parseAttributeInfos(c, pool, attrCount)
	if err != nil {
		return member{}, fmt.Errorf("parsing %s %d attributes: %w", kind, i, err)
	}
	return member{accessFlags: accessFlags, name: name, descriptor: desc, attrs: attrs}, nil
}

func parseFields(c *cursor, pool []ConstantPoolEntry, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := range fields {
		m, err := parseMember(c, pool, "field", i)
		if err != nil {
			return nil, err
		}
		fields[i] = FieldInfo{
			AccessFlags: m.accessFlags,
			Name:        m.name,
			Descriptor:  m.descriptor,
			Attributes:  m.attrs,
		}
	}
	return fields, nil
}

func parseMethods(c *cursor, pool []ConstantPoolEntry, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := range methods {
		m, err := parseMember(c, pool, "method", i)
		if err != nil {
			return nil, err
		}
		methods[i] = MethodInfo{
			AccessFlags: m.accessFlags,
			Name:        m.name,
			Descriptor:  m.descriptor,
			Attributes:  m.attrs,
		}
		for _, attr := range m.attrs {
			if attr.Name != "Code" {
				continue
			}
			code, err := parseCodeAttribute(attr.Data)
			if err != nil {
				return nil, fmt.Errorf("parsing Code attribute for method %s: %w", m.name, err)
			}
			methods[i].Code = code
			break
		}
	}
	return methods, nil
}

func parseAttributeInfos(c *cursor, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		nameIdx, err := c.at(fmt.Sprintf("reading attribute %d name index", i)).u2()
		if err != nil {
			return nil, err
		}
		length, err := c.at(fmt.Sprintf("reading attribute %d length", i)).u4()
		if err != nil {
			return nil, err
		}
		data, err := c.at(fmt.Sprintf("reading attribute %d data", i)).bytes(int(length))
		if err != nil {
			return nil, err
		}
		name, err := GetUtf8(pool, nameIdx)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}
		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}

// parseCodeAttribute decodes an already-extracted Code attribute body:
// max_stack, max_locals, the bytecode, and the exception table. Nested
// attributes of Code (LineNumberTable, StackMapTable, ...) aren't consulted
// by this runtime and are left unparsed.
func parseCodeAttribute(data []byte) (*CodeAttribute, error) {
	c := &cursor{r: bytes.NewReader(data), ctx: "Code attribute"}

	maxStack, err := c.u2()
	if err != nil {
		return nil, err
	}
	maxLocals, err := c.u2()
	if err != nil {
		return nil, err
	}
	codeLength, err := c.u4()
	if err != nil {
		return nil, err
	}
	code, err := c.at("Code attribute bytecode").bytes(int(codeLength))
	if err != nil {
		return nil, err
	}

	var handlers []ExceptionHandler
	exTableLen, err := c.u2()
	if err == nil {
		handlers = make([]ExceptionHandler, exTableLen)
		for i := range handlers {
			startPC, e1 := c.u2()
			endPC, e2 := c.u2()
			handlerPC, e3 := c.u2()
			catchType, e4 := c.u2()
			if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
				handlers = handlers[:i]
				break
			}
			handlers[i] = ExceptionHandler{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType}
		}
	}

	return &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
	}, nil
}

// parseClassAttributes consumes the class file's top-level attributes,
// only interpreting BootstrapMethods (needed for completeness per §6); any
// other attribute (SourceFile, InnerClasses, ...) is read and discarded.
func (cf *ClassFile) parseClassAttributes(c *cursor) error {
	count, err := c.at("reading class attributes count").u2()
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		nameIdx, err := c.at("reading class attribute name index").u2()
		if err != nil {
			return err
		}
		length, err := c.at("reading class attribute length").u4()
		if err != nil {
			return err
		}
		data, err := c.at("reading class attribute data").bytes(int(length))
		if err != nil {
			return err
		}
		name, err := GetUtf8(cf.ConstantPool, nameIdx)
		if err != nil {
			continue // attribute name didn't resolve; nothing more we can do with it
		}
		if name != "BootstrapMethods" {
			continue
		}
		if cf.BootstrapMethods, err = parseBootstrapMethods(data); err != nil {
			return fmt.Errorf("parsing BootstrapMethods: %w", err)
		}
	}
	return nil
}

func parseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	c := &cursor{r: bytes.NewReader(data), ctx: "BootstrapMethods"}
	numMethods, err := c.u2()
	if err != nil {
		return nil, fmt.Errorf("reading num_bootstrap_methods: %w", err)
	}
	methods := make([]BootstrapMethod, numMethods)
	for i := range methods {
		methodRef, err := c.at(fmt.Sprintf("bootstrap method %d ref", i)).u2()
		if err != nil {
			return nil, err
		}
		numArgs, err := c.at(fmt.Sprintf("bootstrap method %d arg count", i)).u2()
		if err != nil {
			return nil, err
		}
		args := make([]uint16, numArgs)
		for j := range args {
			if args[j], err = c.at(fmt.Sprintf("bootstrap method %d arg %d", i, j)).u2(); err != nil {
				return nil, err
			}
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, BootstrapArguments: args}
	}
	return methods, nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}
