package natives

import "github.com/suzume-jvm/suzume/pkg/value"

// registerVMNatives wires jdk/internal/misc/VM's saved-properties table: a
// flat key,value,key,value... String[] the bootstrap classloader normally
// reads during java.lang.System's static initializer. There is no real JDK
// behind this runtime, so the table is a fixed, reasonable set of answers
// rather than anything read from the host environment.
func registerVMNatives(t *Table) {
	t.Register("jdk/internal/misc/VM", "vmProperties", "()[Ljava/lang/String;",
		func(env *Env, _ []value.Value) (value.Value, error) {
			props := []string{
				"java.version", "22",
				"java.vendor", "suzume",
				"java.vm.name", "suzume",
				"java.vm.specification.name", "Java Virtual Machine Specification",
				"file.separator", "/",
				"line.separator", "\n",
				"path.separator", ":",
			}
			return env.newStringArray(props)
		})
}

// newStringArray allocates a String[] of len(strs) and fills it in order.
func (env *Env) newStringArray(strs []string) (value.Value, error) {
	arrClassId, err := env.MA.ResolveClass("[Ljava/lang/String;")
	if err != nil {
		return value.Value{}, err
	}
	arr, err := env.Heap.NewArray(arrClassId, value.TagObject, int32(len(strs)))
	if err != nil {
		return value.Value{}, err
	}
	for i, s := range strs {
		ref, err := env.NewString(s)
		if err != nil {
			return value.Value{}, err
		}
		if err := env.Heap.StoreElement(arr, int32(i), value.TagObject, value.Object(ref)); err != nil {
			return value.Value{}, err
		}
	}
	return value.Array(arr), nil
}
