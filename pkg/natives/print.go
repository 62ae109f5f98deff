package natives

import (
	"fmt"

	"github.com/suzume-jvm/suzume/pkg/value"
)

// registerPrintStreamNatives wires java.io.PrintStream's print/println
// family onto env.Out, the same diagnostic writer the interpreter's own
// monitor-opcode trace uses. A real java/io/PrintStream instance carries no
// Go-side writer of its own (object fields only ever hold Values backed by
// the heap); every PrintStream method call, regardless of receiver, writes
// to the single configured output, which is sufficient for a runtime with
// one thread and one console.
func registerPrintStreamNatives(t *Table) {
	type printer struct {
		desc  string
		toStr func(*Env, value.Value) (string, error)
	}
	printers := []printer{
		{"(I)V", func(_ *Env, v value.Value) (string, error) { return fmt.Sprintf("%d", v.Int), nil }},
		{"(J)V", func(_ *Env, v value.Value) (string, error) { return fmt.Sprintf("%d", v.Long), nil }},
		{"(F)V", func(_ *Env, v value.Value) (string, error) { return fmt.Sprintf("%v", v.Float), nil }},
		{"(D)V", func(_ *Env, v value.Value) (string, error) { return fmt.Sprintf("%v", v.Double), nil }},
		{"(C)V", func(_ *Env, v value.Value) (string, error) { return string(rune(v.Int)), nil }},
		{"(Z)V", func(_ *Env, v value.Value) (string, error) {
			if v.Int != 0 {
				return "true", nil
			}
			return "false", nil
		}},
		{"(Ljava/lang/String;)V", func(env *Env, v value.Value) (string, error) {
			if v.IsNullRef() {
				return "null", nil
			}
			return env.ReadString(v.Obj)
		}},
	}

	for _, p := range printers {
		p := p
		t.Register("java/io/PrintStream", "print", p.desc, func(env *Env, args []value.Value) (value.Value, error) {
			s, err := p.toStr(env, args[1])
			if err != nil {
				return value.Value{}, err
			}
			fmt.Fprint(env.Out, s)
			return value.Value{}, nil
		})
		t.Register("java/io/PrintStream", "println", p.desc, func(env *Env, args []value.Value) (value.Value, error) {
			s, err := p.toStr(env, args[1])
			if err != nil {
				return value.Value{}, err
			}
			fmt.Fprintln(env.Out, s)
			return value.Value{}, nil
		})
	}

	t.Register("java/io/PrintStream", "println", "()V", func(env *Env, _ []value.Value) (value.Value, error) {
		fmt.Fprintln(env.Out)
		return value.Value{}, nil
	})
}
