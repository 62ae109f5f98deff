package natives

import (
	"fmt"

	"github.com/suzume-jvm/suzume/pkg/value"
)

// registerUnsafeNatives wires jdk/internal/misc/Unsafe's memory-fence and
// compare-and-set primitives directly onto the heap's typed field accessors.
// The runtime is single-threaded (§5), so these reduce to a plain
// read-compare-write rather than a real atomic RMW; fullFence has nothing
// to order against and is a no-op, as are loadFence and storeFence.
// Offsets are caller-supplied byte offsets into the object argument
// (args[1]; args[0] is the Unsafe receiver), read against this runtime's
// own field layout. objectFieldOffset is not registered in this table.
func registerUnsafeNatives(t *Table) {
	const unsafeClass = "jdk/internal/misc/Unsafe"

	t.Register(unsafeClass, "compareAndSetInt", "(Ljava/lang/Object;JII)Z",
		func(env *Env, args []value.Value) (value.Value, error) {
			obj, offset, expected, x := args[1], args[2], args[3], args[4]
			if obj.IsNullRef() {
				return value.Value{}, fmt.Errorf("NullPointerException: compareAndSetInt")
			}
			cur := env.Heap.LoadField(obj.Obj, int(offset.Long), value.TagInt)
			if cur.Int != expected.Int {
				return value.Bool(false), nil
			}
			env.Heap.StoreField(obj.Obj, int(offset.Long), value.TagInt, x)
			return value.Bool(true), nil
		})

	t.Register(unsafeClass, "compareAndSetLong", "(Ljava/lang/Object;JJJ)Z",
		func(env *Env, args []value.Value) (value.Value, error) {
			obj, offset, expected, x := args[1], args[2], args[3], args[4]
			if obj.IsNullRef() {
				return value.Value{}, fmt.Errorf("NullPointerException: compareAndSetLong")
			}
			cur := env.Heap.LoadField(obj.Obj, int(offset.Long), value.TagLong)
			if cur.Long != expected.Long {
				return value.Bool(false), nil
			}
			env.Heap.StoreField(obj.Obj, int(offset.Long), value.TagLong, x)
			return value.Bool(true), nil
		})

	t.Register(unsafeClass, "compareAndSetReference", "(Ljava/lang/Object;JLjava/lang/Object;Ljava/lang/Object;)Z",
		func(env *Env, args []value.Value) (value.Value, error) {
			obj, offset, expected, x := args[1], args[2], args[3], args[4]
			if obj.IsNullRef() {
				return value.Value{}, fmt.Errorf("NullPointerException: compareAndSetReference")
			}
			cur := env.Heap.LoadField(obj.Obj, int(offset.Long), value.TagObject)
			if cur.Obj != expected.Obj {
				return value.Bool(false), nil
			}
			env.Heap.StoreField(obj.Obj, int(offset.Long), value.TagObject, x)
			return value.Bool(true), nil
		})

	t.Register(unsafeClass, "fullFence", "()V",
		func(_ *Env, _ []value.Value) (value.Value, error) {
			return value.Value{}, nil
		})

	t.Register(unsafeClass, "loadFence", "()V",
		func(_ *Env, _ []value.Value) (value.Value, error) {
			return value.Value{}, nil
		})

	t.Register(unsafeClass, "storeFence", "()V",
		func(_ *Env, _ []value.Value) (value.Value, error) {
			return value.Value{}, nil
		})
}
