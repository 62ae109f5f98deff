// Package natives is the host-side implementation of methods declared
// native in loaded classes: a string-keyed dispatch table the interpreter
// consults instead of running bytecode for ACC_NATIVE methods.
package natives

import (
	"fmt"
	"io"

	"github.com/suzume-jvm/suzume/pkg/heap"
	"github.com/suzume-jvm/suzume/pkg/ids"
	"github.com/suzume-jvm/suzume/pkg/methodarea"
	"github.com/suzume-jvm/suzume/pkg/value"
)

// Env is the host-side context a native stub needs: the heap for
// allocation and the method area for class lookups. It deliberately does
// not expose the interpreter's frame stack; natives are leaves, not
// reentrant callbacks, matching the scope of the dispatch table.
//
// Str* fields carry the java/lang/String layout the thread has already
// resolved for its own ldc/create-string needs (see interp.Thread's
// stringLayoutInfo), so a native that wants to decode or allocate a string
// argument doesn't have to re-resolve java/lang/String itself. Out is the
// same diagnostic writer the interpreter's monitor opcodes log through.
type Env struct {
	Heap *heap.Heap
	MA   *methodarea.MethodArea
	Out  io.Writer

	StrClass     ids.ClassId
	StrLayout    heap.StringLayout
	ByteArrClass ids.ClassId
}

// ReadString decodes obj as a java/lang/String instance using the layout
// the owning thread resolved. Returns an error if StrClass is ids.Invalid
// (the owning thread could not resolve java/lang/String).
func (env *Env) ReadString(obj value.ObjectRef) (string, error) {
	if !env.StrClass.Valid() {
		return "", fmt.Errorf("natives: java/lang/String layout not yet resolved")
	}
	return env.Heap.ReadString(obj, env.StrLayout)
}

// NewString allocates a java/lang/String instance for s using the layout
// the owning thread resolved.
func (env *Env) NewString(s string) (value.ObjectRef, error) {
	if !env.StrClass.Valid() {
		return value.ObjectRef{}, fmt.Errorf("natives: java/lang/String layout not yet resolved")
	}
	strCls := env.MA.Class(env.StrClass)
	return env.Heap.CreateString(s, env.StrClass, strCls.Size, strCls.Alignment, env.ByteArrClass, env.StrLayout), nil
}

// Func is a single native method's host implementation. For instance
// methods args includes the receiver as args[0], followed by the declared
// parameters; for static methods args holds only the declared parameters.
// This matches how the interpreter already has the receiver on the stack.
type Func func(env *Env, args []value.Value) (value.Value, error)

type key struct {
	class, name, descriptor string
}

// Table is the process-wide native method registry, keyed by the
// triple that uniquely identifies an ACC_NATIVE method.
type Table struct {
	fns map[key]Func
}

// NewTable returns a table pre-populated with the built-in native
// implementations (see float.go, system.go, object.go, print.go,
// unsafe.go, vm.go).
func NewTable() *Table {
	t := &Table{fns: make(map[key]Func)}
	registerFloatNatives(t)
	registerSystemNatives(t)
	registerObjectNatives(t)
	registerPrintStreamNatives(t)
	registerUnsafeNatives(t)
	registerVMNatives(t)
	return t
}

// Register installs fn for the given (class, name, descriptor) triple,
// overwriting any existing registration. Exposed so cmd/suzume or tests can
// extend the table without modifying this package.
func (t *Table) Register(class, name, descriptor string, fn Func) {
	t.fns[key{class, name, descriptor}] = fn
}

// Lookup returns the registered native for (class, name, descriptor), and
// false if nothing is registered.
func (t *Table) Lookup(class, name, descriptor string) (Func, bool) {
	fn, ok := t.fns[key{class, name, descriptor}]
	return fn, ok
}

// ErrNotImplemented is returned by a native stub that exists only to
// document the missing host behavior rather than to run it.
func ErrNotImplemented(class, name string) error {
	return fmt.Errorf("natives: %s.%s is not implemented by this runtime", class, name)
}
