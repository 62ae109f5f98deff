// Package descriptor parses JVM field and method descriptor strings into
// typed trees, per the field/method descriptor grammar.
package descriptor

import (
	"fmt"
	"strings"

	"github.com/suzume-jvm/suzume/pkg/value"
)

// BaseTag is one of the eight primitive base types.
type BaseTag byte

const (
	Byte    BaseTag = 'B'
	Char    BaseTag = 'C'
	Double  BaseTag = 'D'
	Float   BaseTag = 'F'
	Int     BaseTag = 'I'
	Long    BaseTag = 'J'
	Short   BaseTag = 'S'
	Boolean BaseTag = 'Z'
)

// FieldType is the parsed tree for a single field descriptor: a primitive
// base type, a named class reference, or an array of some component type.
type FieldType struct {
	Base      BaseTag // zero if not a base type
	ClassName string  // set iff this is an object type
	Component *FieldType // set iff this is an array type
}

func (f *FieldType) IsBase() bool  { return f.Base != 0 }
func (f *FieldType) IsClass() bool { return f.ClassName != "" }
func (f *FieldType) IsArray() bool { return f.Component != nil }

// ValueTag maps this field type to the Value-model tag used on the operand
// stack and in storage. Object and array types both map to reference tags.
func (f *FieldType) ValueTag() value.Tag {
	switch {
	case f.IsArray():
		return value.TagArray
	case f.IsClass():
		return value.TagObject
	}
	switch f.Base {
	case Byte:
		return value.TagByte
	case Char:
		return value.TagChar
	case Double:
		return value.TagDouble
	case Float:
		return value.TagFloat
	case Int:
		return value.TagInt
	case Long:
		return value.TagLong
	case Short:
		return value.TagShort
	case Boolean:
		return value.TagBoolean
	default:
		panic("descriptor: field type has no base tag")
	}
}

// String renders the field type back to its textual descriptor form.
func (f *FieldType) String() string {
	switch {
	case f.IsArray():
		return "[" + f.Component.String()
	case f.IsClass():
		return "L" + f.ClassName + ";"
	default:
		return string(f.Base)
	}
}

// ParseField parses a single field descriptor from s, which must be entirely
// consumed. Malformed input is a class-format error (fatal, per §4.1).
func ParseField(s string) (*FieldType, error) {
	r := []rune(s)
	ft, rest, err := readFieldType(r)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("descriptor: trailing data after field descriptor %q", s)
	}
	return ft, nil
}

func readFieldType(r []rune) (*FieldType, []rune, error) {
	if len(r) == 0 {
		return nil, nil, fmt.Errorf("descriptor: empty field descriptor")
	}
	switch r[0] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return &FieldType{Base: BaseTag(r[0])}, r[1:], nil
	case 'L':
		idx := 1
		for idx < len(r) && r[idx] != ';' {
			idx++
		}
		if idx >= len(r) {
			return nil, nil, fmt.Errorf("descriptor: unterminated class type in %q", string(r))
		}
		name := string(r[1:idx])
		return &FieldType{ClassName: name}, r[idx+1:], nil
	case '[':
		comp, rest, err := readFieldType(r[1:])
		if err != nil {
			return nil, nil, err
		}
		return &FieldType{Component: comp}, rest, nil
	default:
		return nil, nil, fmt.Errorf("descriptor: unrecognized field type tag %q", string(r[0]))
	}
}

// MethodDescriptor is the parsed tree for a method descriptor: an ordered
// parameter list and a return type (nil means void).
type MethodDescriptor struct {
	Params []*FieldType
	Return *FieldType // nil iff void
}

// String renders the method descriptor back to its textual form.
func (m *MethodDescriptor) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Params {
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	if m.Return == nil {
		sb.WriteByte('V')
	} else {
		sb.WriteString(m.Return.String())
	}
	return sb.String()
}

// ParamSlots returns the number of operand-stack/local-variable slots the
// parameter list occupies, counting category-two (long/double) parameters
// as two slots each.
func (m *MethodDescriptor) ParamSlots() int {
	n := 0
	for _, p := range m.Params {
		n++
		if p.Base == Long || p.Base == Double {
			n++
		}
	}
	return n
}

// ParseMethod parses a method descriptor of the form "(<field>*)(V|<field>)".
func ParseMethod(s string) (*MethodDescriptor, error) {
	r := []rune(s)
	if len(r) == 0 || r[0] != '(' {
		return nil, fmt.Errorf("descriptor: method descriptor %q must start with '('", s)
	}
	r = r[1:]
	var params []*FieldType
	for len(r) > 0 && r[0] != ')' {
		ft, rest, err := readFieldType(r)
		if err != nil {
			return nil, err
		}
		params = append(params, ft)
		r = rest
	}
	if len(r) == 0 {
		return nil, fmt.Errorf("descriptor: unterminated parameter list in %q", s)
	}
	r = r[1:] // consume ')'

	if len(r) == 1 && r[0] == 'V' {
		return &MethodDescriptor{Params: params}, nil
	}
	ret, rest, err := readFieldType(r)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("descriptor: trailing data after return type in %q", s)
	}
	return &MethodDescriptor{Params: params, Return: ret}, nil
}
