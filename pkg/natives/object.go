package natives

import (
	"fmt"

	"github.com/suzume-jvm/suzume/pkg/value"
)

// registerObjectNatives wires java.lang.Object's native entry points.
func registerObjectNatives(t *Table) {
	t.Register("java/lang/Object", "getClass", "()Ljava/lang/Class;",
		func(env *Env, args []value.Value) (value.Value, error) {
			recv := args[0]
			if recv.IsNullRef() {
				return value.Value{}, fmt.Errorf("NullPointerException: getClass")
			}
			owner := env.Heap.ClassOf(recv.Obj)
			if ref, ok := env.MA.ClassObject(owner); ok {
				return value.Object(ref), nil
			}
			classClassId, err := env.MA.ResolveClass("java/lang/Class")
			if err != nil {
				return value.Value{}, err
			}
			classClass := env.MA.Class(classClassId)
			ref := env.Heap.NewObject(classClassId, classClass.Size, classClass.Alignment)
			env.MA.SetClassObject(owner, ref)
			return value.Object(ref), nil
		})
	t.Register("java/lang/Object", "hashCode", "()I",
		func(_ *Env, args []value.Value) (value.Value, error) {
			if args[0].IsNullRef() {
				return value.Int(0), nil
			}
			return value.Int(int32(args[0].Obj.Offset)), nil
		})
}
