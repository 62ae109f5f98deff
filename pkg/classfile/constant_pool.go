package classfile

import (
	"fmt"
	"math"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// wide reports whether a constant of this tag occupies two consecutive
// constant pool slots, per §4.4.5's "in retrospect, making 8-byte constants
// take two indices was a poor choice" oddity that any reader still has to
// honor.
func wide(tag uint8) bool {
	return tag == TagLong || tag == TagDouble
}

// refPair is the class_index/name_and_type_index (or name_index/descriptor_index,
// or bootstrap_method_attr_index/name_and_type_index) shape shared by six
// different constant kinds.
type refPair struct {
	a, b uint16
}

func readRefPair(c *cursor) (refPair, error) {
	a, err := c.u2()
	if err != nil {
		return refPair{}, err
	}
	b, err := c.u2()
	if err != nil {
		return refPair{}, err
	}
	return refPair{a: a, b: b}, nil
}

// readConstant decodes a single constant pool entry (tag already consumed)
// at pool index i, used only for error context.
func readConstant(c *cursor, tag uint8, i uint16) (ConstantPoolEntry, error) {
	switch tag {
	case TagUtf8:
		length, err := c.u2()
		if err != nil {
			return nil, err
		}
		raw, err := c.bytes(int(length))
		if err != nil {
			return nil, err
		}
		return &ConstantUtf8{Value: string(raw)}, nil

	case TagInteger:
		bits, err := c.u4()
		if err != nil {
			return nil, err
		}
		return &ConstantInteger{Value: int32(bits)}, nil

	case TagFloat:
		bits, err := c.u4()
		if err != nil {
			return nil, err
		}
		return &ConstantFloat{Value: math.Float32frombits(bits)}, nil

	case TagLong:
		hi, err := c.u4()
		if err != nil {
			return nil, err
		}
		lo, err := c.u4()
		if err != nil {
			return nil, err
		}
		return &ConstantLong{Value: int64(hi)<<32 | int64(lo)}, nil

	case TagDouble:
		hi, err := c.u4()
		if err != nil {
			return nil, err
		}
		lo, err := c.u4()
		if err != nil {
			return nil, err
		}
		return &ConstantDouble{Value: math.Float64frombits(uint64(hi)<<32 | uint64(lo))}, nil

	case TagClass:
		nameIndex, err := c.u2()
		if err != nil {
			return nil, err
		}
		return &ConstantClass{NameIndex: nameIndex}, nil

	case TagString:
		stringIndex, err := c.u2()
		if err != nil {
			return nil, err
		}
		return &ConstantString{StringIndex: stringIndex}, nil

	case TagFieldref:
		p, err := readRefPair(c)
		if err != nil {
			return nil, err
		}
		return &ConstantFieldref{ClassIndex: p.a, NameAndTypeIndex: p.b}, nil

	case TagMethodref:
		p, err := readRefPair(c)
		if err != nil {
			return nil, err
		}
		return &ConstantMethodref{ClassIndex: p.a, NameAndTypeIndex: p.b}, nil

	case TagInterfaceMethodref:
		p, err := readRefPair(c)
		if err != nil {
			return nil, err
		}
		return &ConstantInterfaceMethodref{ClassIndex: p.a, NameAndTypeIndex: p.b}, nil

	case TagNameAndType:
		p, err := readRefPair(c)
		if err != nil {
			return nil, err
		}
		return &ConstantNameAndType{NameIndex: p.a, DescriptorIndex: p.b}, nil

	case TagMethodHandle:
		// reference_kind (u1) + reference_index (u2); the runtime treats
		// method handles as opaque since invokedynamic resolution is out
		// of scope.
		if _, err := c.u1(); err != nil {
			return nil, err
		}
		if _, err := c.u2(); err != nil {
			return nil, err
		}
		return &constantPlaceholder{tag: tag}, nil

	case TagMethodType:
		if _, err := c.u2(); err != nil {
			return nil, err
		}
		return &constantPlaceholder{tag: tag}, nil

	case TagDynamic, TagInvokeDynamic:
		if _, err := readRefPair(c); err != nil {
			return nil, err
		}
		return &constantPlaceholder{tag: tag}, nil

	case TagModule, TagPackage:
		if _, err := c.u2(); err != nil {
			return nil, err
		}
		return &constantPlaceholder{tag: tag}, nil

	default:
		return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
	}
}

// parseConstantPool reads constant_pool_count-1 entries from c. The
// returned slice is 1-indexed: index 0 is nil, and any Long/Double entry
// also leaves the slot immediately after it nil, per the format's quirk of
// counting 8-byte constants as two pool entries.
func parseConstantPool(c *cursor, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		tag, err := c.at(fmt.Sprintf("reading constant pool tag at index %d", i)).u1()
		if err != nil {
			return nil, err
		}

		entry, err := readConstant(c.at(fmt.Sprintf("reading constant at index %d", i)), tag, i)
		if err != nil {
			return nil, err
		}
		pool[i] = entry

		if wide(tag) {
			i++
		}
	}

	return pool, nil
}

// constantPlaceholder stands in for constant pool entries this runtime
// reads past but never needs to resolve.
type constantPlaceholder struct {
	tag uint8
}

func (c *constantPlaceholder) Tag() uint8 { return c.tag }

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	entry, err := poolEntry(pool, index)
	if err != nil {
		return "", err
	}
	utf8, ok := entry.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, entry.Tag())
	}
	return utf8.Value, nil
}

// GetString returns the UTF-8 value referenced by a CONSTANT_String entry.
func GetString(pool []ConstantPoolEntry, index uint16) (string, error) {
	entry, err := poolEntry(pool, index)
	if err != nil {
		return "", err
	}
	str, ok := entry.(*ConstantString)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not String", index)
	}
	return GetUtf8(pool, str.StringIndex)
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	entry, err := poolEntry(pool, classIndex)
	if err != nil {
		return "", err
	}
	class, ok := entry.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

func poolEntry(pool []ConstantPoolEntry, index uint16) (ConstantPoolEntry, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	return pool[index], nil
}

// nameAndType resolves a CONSTANT_NameAndType index into its name/descriptor strings.
func nameAndType(pool []ConstantPoolEntry, index uint16) (name, descriptor string, err error) {
	entry, err := poolEntry(pool, index)
	if err != nil {
		return "", "", fmt.Errorf("invalid NameAndType index %d: %w", index, err)
	}
	nat, ok := entry.(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("constant pool index %d is not NameAndType", index)
	}
	if name, err = GetUtf8(pool, nat.NameIndex); err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	if descriptor, err = GetUtf8(pool, nat.DescriptorIndex); err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, descriptor, nil
}

// MethodRefInfo holds resolved method reference info.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	entry, err := poolEntry(pool, index)
	if err != nil {
		return nil, err
	}
	mref, ok := entry.(*ConstantMethodref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not Methodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Methodref class: %w", err)
	}
	name, descriptor, err := nameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: descriptor}, nil
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	entry, err := poolEntry(pool, index)
	if err != nil {
		return nil, err
	}
	mref, ok := entry.(*ConstantInterfaceMethodref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not InterfaceMethodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving InterfaceMethodref class: %w", err)
	}
	name, descriptor, err := nameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: descriptor}, nil
}

// FieldRefInfo holds resolved field reference info.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	entry, err := poolEntry(pool, index)
	if err != nil {
		return nil, err
	}
	fref, ok := entry.(*ConstantFieldref)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not Fieldref", index)
	}
	className, err := GetClassName(pool, fref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving Fieldref class: %w", err)
	}
	name, descriptor, err := nameAndType(pool, fref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &FieldRefInfo{ClassName: className, FieldName: name, Descriptor: descriptor}, nil
}
