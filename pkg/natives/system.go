package natives

import (
	"fmt"

	"github.com/suzume-jvm/suzume/pkg/value"
)

// registerSystemNatives wires java.lang.System's native entry points onto
// the heap's own bulk array operations, so arraycopy gets the same
// bounds-checked semantics LoadElement/StoreElement already provide.
func registerSystemNatives(t *Table) {
	t.Register("java/lang/System", "arraycopy",
		"(Ljava/lang/Object;ILjava/lang/Object;II)V",
		func(env *Env, args []value.Value) (value.Value, error) {
			src, srcPos, dst, dstPos, length := args[0], args[1], args[2], args[3], args[4]
			if src.IsNullRef() || dst.IsNullRef() {
				return value.Value{}, fmt.Errorf("NullPointerException: arraycopy")
			}
			elemTag := env.Heap.ArrayElemTag(src.Arr)
			err := env.Heap.ArrayCopy(src.Arr, srcPos.Int, dst.Arr, dstPos.Int, length.Int, elemTag)
			return value.Value{}, err
		})
	t.Register("java/lang/System", "currentTimeMillis", "()J",
		func(_ *Env, _ []value.Value) (value.Value, error) {
			// Deterministic by design: a wall-clock source would make every
			// run of the same program produce different output, which is
			// incompatible with this runtime's reproducibility goal.
			return value.Long(0), nil
		})
	t.Register("java/lang/System", "identityHashCode", "(Ljava/lang/Object;)I",
		func(_ *Env, args []value.Value) (value.Value, error) {
			if args[0].IsNullRef() {
				return value.Int(0), nil
			}
			return value.Int(int32(args[0].Obj.Offset)), nil
		})
}
