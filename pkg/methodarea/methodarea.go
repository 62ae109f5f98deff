// Package methodarea owns every loaded class, method, and field: the
// process-wide, interned store with name-to-id resolution and per-class
// symbolic-reference caches.
package methodarea

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/suzume-jvm/suzume/pkg/classfile"
	"github.com/suzume-jvm/suzume/pkg/descriptor"
	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/layout"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// MethodArea is the process-wide table of loaded classes, methods and
// fields. It is guarded by a single mutex; callers must release it (i.e.
// return from whatever method they called) before making any re-entrant
// call back into the interpreter, per the concurrency model's rule of
// holding at most one of {method area, heap} at a time.
type MethodArea struct {
	mu sync.Mutex

	classpath []string

	classes []*Class
	methods []*Method
	fields  []*Field

	classByName      map[string]ids.ClassId
	arrayClassByElem map[string]ids.ClassId

	loading map[string]bool // names currently mid-load, for circularity detection
}

// New creates a method area that searches classpath directories, in order,
// for `<name>.class` files.
func New(classpath []string) *MethodArea {
	return &MethodArea{
		classpath:        classpath,
		classByName:      make(map[string]ids.ClassId),
		arrayClassByElem: make(map[string]ids.ClassId),
		loading:          make(map[string]bool),
	}
}

func (ma *MethodArea) Class(id ids.ClassId) *Class   { return ma.classes[id] }
func (ma *MethodArea) Method(id ids.MethodId) *Method { return ma.methods[id] }
func (ma *MethodArea) Field(id ids.FieldId) *Field     { return ma.fields[id] }

// ResolveClass returns the interned ClassId for name, loading it (and its
// superclass and interfaces, recursively) on first reference. Array class
// names (leading '[') are dispatched to resolveArrayClass.
func (ma *MethodArea) ResolveClass(name string) (ids.ClassId, error) {
	ma.mu.Lock()
	if id, ok := ma.classByName[name]; ok {
		ma.mu.Unlock()
		return id, nil
	}
	ma.mu.Unlock()

	if len(name) > 0 && name[0] == '[' {
		return ma.resolveArrayClass(name[1:])
	}
	return ma.loadClass(name)
}

// resolveArrayClass interns a synthetic array class for the given element
// descriptor (e.g. "I", "Ljava/lang/String;", "[I"). Array classes are
// keyed solely by element type; no .class file backs them.
func (ma *MethodArea) resolveArrayClass(elemDesc string) (ids.ClassId, error) {
	ma.mu.Lock()
	if id, ok := ma.arrayClassByElem[elemDesc]; ok {
		ma.mu.Unlock()
		return id, nil
	}
	ma.mu.Unlock()

	elemType, err := descriptor.ParseField(elemDesc)
	if err != nil {
		return ids.Invalid, &ClassFormatError{Name: "[" + elemDesc, Err: err}
	}

	ma.mu.Lock()
	defer ma.mu.Unlock()
	if id, ok := ma.arrayClassByElem[elemDesc]; ok {
		return id, nil
	}
	cls := &Class{
		Name:        "[" + elemDesc,
		Super:       ids.Invalid,
		Initialized: true, // array classes have no <clinit>
		IsArray:     true,
		ElementType: elemType,
		refs:        make(map[uint16]reference),
		Size:        layout.ArrayHeaderSize,
		Alignment:   8,
	}
	id := ids.ClassId(len(ma.classes))
	ma.classes = append(ma.classes, cls)
	ma.arrayClassByElem[elemDesc] = id
	return id, nil
}

// loadClass loads a non-array class named name from the classpath,
// resolving its superclass and interfaces first, per the lifecycle rule
// that a class is inserted only after its ancestry is resolved.
func (ma *MethodArea) loadClass(name string) (ids.ClassId, error) {
	ma.mu.Lock()
	if id, ok := ma.classByName[name]; ok {
		ma.mu.Unlock()
		return id, nil
	}
	if ma.loading[name] {
		ma.mu.Unlock()
		return ids.Invalid, &ClassCircularityError{Name: name}
	}
	ma.loading[name] = true
	ma.mu.Unlock()
	defer func() {
		ma.mu.Lock()
		delete(ma.loading, name)
		ma.mu.Unlock()
	}()

	cf, err := ma.readClassFile(name)
	if err != nil {
		return ids.Invalid, err
	}

	var superId ids.ClassId = ids.Invalid
	hasSuper := cf.SuperClass != 0
	if hasSuper {
		superName, err := classfile.GetClassName(cf.ConstantPool, cf.SuperClass)
		if err != nil {
			return ids.Invalid, &ClassFormatError{Name: name, Err: err}
		}
		if superName == name {
			return ids.Invalid, &ClassCircularityError{Name: name}
		}
		superId, err = ma.ResolveClass(superName)
		if err != nil {
			return ids.Invalid, err
		}
	}

	interfaceIds := make([]ids.ClassId, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		ifaceName, err := classfile.GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return ids.Invalid, &ClassFormatError{Name: name, Err: err}
		}
		if ifaceName == name {
			return ids.Invalid, &ClassCircularityError{Name: name}
		}
		ifaceId, err := ma.ResolveClass(ifaceName)
		if err != nil {
			return ids.Invalid, err
		}
		interfaceIds[i] = ifaceId
	}

	ma.mu.Lock()
	defer ma.mu.Unlock()

	if id, ok := ma.classByName[name]; ok {
		return id, nil // lost an insertion race during recursive resolution
	}

	cls := &Class{
		Name:         name,
		Super:        superId,
		HasSuper:     hasSuper,
		Interfaces:   interfaceIds,
		AccessFlags:  cf.AccessFlags,
		ConstantPool: cf.ConstantPool,
		refs:         make(map[uint16]reference),
	}

	classId := ids.ClassId(len(ma.classes))
	ma.classes = append(ma.classes, cls)

	for i := range cf.Methods {
		mi := &cf.Methods[i]
		parsedDesc, err := descriptor.ParseMethod(mi.Descriptor)
		if err != nil {
			return ids.Invalid, &ClassFormatError{Name: name, Err: err}
		}
		method := &Method{
			Name:          mi.Name,
			Descriptor:    parsedDesc,
			RawDescriptor: mi.Descriptor,
			DefiningClass: classId,
			AccessFlags:   mi.AccessFlags,
			Code:          mi.Code,
		}
		methodId := ids.MethodId(len(ma.methods))
		ma.methods = append(ma.methods, method)
		cls.Methods = append(cls.Methods, methodId)
	}

	baseSize, baseAlign := layout.ObjectHeaderSize, 8
	if hasSuper {
		superCls := ma.classes[superId]
		baseSize, baseAlign = superCls.Size, superCls.Alignment
	}
	offset := baseSize
	alignment := baseAlign

	for i := range cf.Fields {
		fi := &cf.Fields[i]
		ft, err := descriptor.ParseField(fi.Descriptor)
		if err != nil {
			return ids.Invalid, &ClassFormatError{Name: name, Err: err}
		}
		field := &Field{
			Name:          fi.Name,
			DefiningClass: classId,
			AccessFlags:   fi.AccessFlags,
			Type:          ft,
			Static:        fi.AccessFlags&classfile.AccStatic != 0,
		}
		if field.Static {
			field.StaticValue = value.DefaultForTag(ft.ValueTag())
		} else {
			s := value.Size(ft.ValueTag())
			a := value.Alignment(ft.ValueTag())
			offset = roundUp(offset, a)
			field.Offset = offset
			offset += s
			if a > alignment {
				alignment = a
			}
		}
		fieldId := ids.FieldId(len(ma.fields))
		ma.fields = append(ma.fields, field)
		cls.Fields = append(cls.Fields, fieldId)
	}

	cls.Size = roundUp(offset, alignment)
	cls.Alignment = alignment

	for idx, entry := range cf.ConstantPool {
		if entry == nil {
			continue
		}
		switch entry.(type) {
		case *classfile.ConstantClass, *classfile.ConstantFieldref,
			*classfile.ConstantMethodref, *classfile.ConstantInterfaceMethodref:
			cls.refs[uint16(idx)] = reference{kind: refUnresolved}
		}
	}

	ma.classByName[name] = classId
	return classId, nil
}

func roundUp(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

func (ma *MethodArea) readClassFile(name string) (*classfile.ClassFile, error) {
	for _, dir := range ma.classpath {
		path := filepath.Join(dir, name+".class")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cf, err := classfile.ParseFile(path)
		if err != nil {
			return nil, &ClassFormatError{Name: name, Err: err}
		}
		return cf, nil
	}
	return nil, &ClassNotFoundError{Name: name}
}

// ResolveMethod searches class's declared methods for an exact
// (name, descriptor) match, recursing into the superclass on miss.
// Interfaces are not walked, per the documented method-area limitation.
func (ma *MethodArea) ResolveMethod(class ids.ClassId, name, desc string) (ids.MethodId, error) {
	for cur := class; ; {
		ma.mu.Lock()
		cls := ma.classes[cur]
		for _, mid := range cls.Methods {
			m := ma.methods[mid]
			if m.Name == name && m.RawDescriptor == desc {
				ma.mu.Unlock()
				return mid, nil
			}
		}
		hasSuper := cls.HasSuper
		super := cls.Super
		ma.mu.Unlock()
		if !hasSuper {
			return ids.Invalid, &NoSuchMethodError{Class: ma.classes[class].Name, Name: name, Descriptor: desc}
		}
		cur = super
	}
}

// ResolveField searches class's declared fields for a name match, recursing
// into the superclass on miss. Interfaces are not walked.
func (ma *MethodArea) ResolveField(class ids.ClassId, name string) (ids.FieldId, error) {
	for cur := class; ; {
		ma.mu.Lock()
		cls := ma.classes[cur]
		for _, fid := range cls.Fields {
			f := ma.fields[fid]
			if f.Name == name {
				ma.mu.Unlock()
				return fid, nil
			}
		}
		hasSuper := cls.HasSuper
		super := cls.Super
		ma.mu.Unlock()
		if !hasSuper {
			return ids.Invalid, &NoSuchFieldError{Class: ma.classes[class].Name, Name: name}
		}
		cur = super
	}
}

// ClassReference resolves the CONSTANT_Class entry at cpIndex in class's
// constant pool, memoizing the result so each (class, index) pair is
// resolved at most once.
func (ma *MethodArea) ClassReference(class ids.ClassId, cpIndex uint16) (ids.ClassId, error) {
	ma.mu.Lock()
	cls := ma.classes[class]
	if r, ok := cls.refs[cpIndex]; ok && !r.isUnresolved() {
		ma.mu.Unlock()
		return ids.ClassId(r.id), nil
	}
	pool := cls.ConstantPool
	ma.mu.Unlock()

	name, err := classfile.GetClassName(pool, cpIndex)
	if err != nil {
		return ids.Invalid, fmt.Errorf("resolving class reference: %w", err)
	}
	resolved, err := ma.ResolveClass(name)
	if err != nil {
		return ids.Invalid, err
	}

	ma.mu.Lock()
	cls.refs[cpIndex] = reference{kind: refClass, id: int(resolved)}
	ma.mu.Unlock()
	return resolved, nil
}

// FieldReference resolves the CONSTANT_Fieldref entry at cpIndex, memoizing
// the result. Resolution is by name only (no descriptor check), matching
// ResolveField.
func (ma *MethodArea) FieldReference(class ids.ClassId, cpIndex uint16) (ids.FieldId, error) {
	ma.mu.Lock()
	cls := ma.classes[class]
	if r, ok := cls.refs[cpIndex]; ok && !r.isUnresolved() {
		ma.mu.Unlock()
		return ids.FieldId(r.id), nil
	}
	pool := cls.ConstantPool
	ma.mu.Unlock()

	info, err := classfile.ResolveFieldref(pool, cpIndex)
	if err != nil {
		return ids.Invalid, fmt.Errorf("resolving field reference: %w", err)
	}
	ownerId, err := ma.ResolveClass(info.ClassName)
	if err != nil {
		return ids.Invalid, err
	}
	fieldId, err := ma.ResolveField(ownerId, info.FieldName)
	if err != nil {
		return ids.Invalid, err
	}

	ma.mu.Lock()
	cls.refs[cpIndex] = reference{kind: refField, id: int(fieldId)}
	ma.mu.Unlock()
	return fieldId, nil
}

// MethodReference resolves the CONSTANT_Methodref or
// CONSTANT_InterfaceMethodref entry at cpIndex, memoizing the result.
func (ma *MethodArea) MethodReference(class ids.ClassId, cpIndex uint16) (ids.MethodId, error) {
	ma.mu.Lock()
	cls := ma.classes[class]
	if r, ok := cls.refs[cpIndex]; ok && !r.isUnresolved() {
		ma.mu.Unlock()
		return ids.MethodId(r.id), nil
	}
	pool := cls.ConstantPool
	entry := pool[cpIndex]
	ma.mu.Unlock()

	var info *classfile.MethodRefInfo
	var err error
	if _, ok := entry.(*classfile.ConstantInterfaceMethodref); ok {
		info, err = classfile.ResolveInterfaceMethodref(pool, cpIndex)
	} else {
		info, err = classfile.ResolveMethodref(pool, cpIndex)
	}
	if err != nil {
		return ids.Invalid, fmt.Errorf("resolving method reference: %w", err)
	}
	ownerId, err := ma.ResolveClass(info.ClassName)
	if err != nil {
		return ids.Invalid, err
	}
	methodId, err := ma.ResolveMethod(ownerId, info.MethodName, info.Descriptor)
	if err != nil {
		return ids.Invalid, err
	}

	ma.mu.Lock()
	cls.refs[cpIndex] = reference{kind: refMethod, id: int(methodId)}
	ma.mu.Unlock()
	return methodId, nil
}

// ClassObject returns the cached class-mirror object reference for class,
// and false if none has been set yet (the interpreter is responsible for
// lazily allocating one on the heap and calling SetClassObject).
func (ma *MethodArea) ClassObject(class ids.ClassId) (value.ObjectRef, bool) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	cls := ma.classes[class]
	return cls.ClassObject, cls.hasClassObj
}

// SetClassObject caches the heap reference for class's reified class
// mirror. Called once, lazily, the first time the mirror is needed.
func (ma *MethodArea) SetClassObject(class ids.ClassId, ref value.ObjectRef) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	cls := ma.classes[class]
	cls.ClassObject = ref
	cls.hasClassObj = true
}

// MarkInitialized sets class's initialized flag. Callers (the interpreter's
// ensure_initialized) must call this *before* running <clinit>, to prevent
// re-entrant re-initialization.
func (ma *MethodArea) MarkInitialized(class ids.ClassId) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.classes[class].Initialized = true
}

// IsInitialized reports whether class's <clinit> has already run (or been
// marked as running).
func (ma *MethodArea) IsInitialized(class ids.ClassId) bool {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.classes[class].Initialized
}

// resolveElementClass resolves an array's element type to the ClassId
// InstanceOf needs to recurse on: the element's own class name for
// object element types, or its full array descriptor (leading '[') for
// nested array element types.
func (ma *MethodArea) resolveElementClass(elem *descriptor.FieldType) (ids.ClassId, error) {
	if elem.IsClass() {
		return ma.ResolveClass(elem.ClassName)
	}
	return ma.ResolveClass(elem.String())
}

// InstanceOf implements the instance_of algorithm of §4.6: array/array,
// array/non-array, and ordinary class-or-interface-chain checks.
func (ma *MethodArea) InstanceOf(this, of ids.ClassId) bool {
	ma.mu.Lock()
	thisCls := ma.classes[this]
	ofCls := ma.classes[of]
	ma.mu.Unlock()

	if thisCls.IsArray {
		if ofCls.IsArray {
			if thisCls.ElementType.IsBase() && ofCls.ElementType.IsBase() {
				return thisCls.ElementType.Base == ofCls.ElementType.Base
			}
			if !thisCls.ElementType.IsBase() && !ofCls.ElementType.IsBase() {
				// Both reference-element arrays: per §4.6, String[] is a
				// subtype of Object[] even though the element classes
				// differ, so the element types must themselves be resolved
				// and checked via InstanceOf rather than compared as
				// descriptor text.
				thisElem, err1 := ma.resolveElementClass(thisCls.ElementType)
				ofElem, err2 := ma.resolveElementClass(ofCls.ElementType)
				if err1 != nil || err2 != nil {
					return false
				}
				return ma.InstanceOf(thisElem, ofElem)
			}
			return false
		}
		return !ofCls.HasSuper && ofCls.Name == "java/lang/Object" && !ofCls.IsArray
	}

	for cur := this; ; {
		ma.mu.Lock()
		cls := ma.classes[cur]
		hasSuper := cls.HasSuper
		super := cls.Super
		ifaces := append([]ids.ClassId(nil), cls.Interfaces...)
		ma.mu.Unlock()

		if cur == of {
			return true
		}
		for _, iface := range ifaces {
			if iface == of || ma.InstanceOf(iface, of) {
				return true
			}
		}
		if !hasSuper {
			return false
		}
		cur = super
	}
}
