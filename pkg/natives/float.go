package natives

import "github.com/suzume-jvm/suzume/pkg/value"

// registerFloatNatives wires the bit-level float/double conversions that
// java.lang.Float and java.lang.Double declare native, since Go's math
// package already exposes exactly this bit-reinterpretation.
func registerFloatNatives(t *Table) {
	t.Register("java/lang/Float", "floatToIntBits", "(F)I", func(_ *Env, args []value.Value) (value.Value, error) {
		bits := float32bits(args[0].Float)
		return value.Int(int32(bits)), nil
	})
	t.Register("java/lang/Float", "floatToRawIntBits", "(F)I", func(_ *Env, args []value.Value) (value.Value, error) {
		bits := float32bits(args[0].Float)
		return value.Int(int32(bits)), nil
	})
	t.Register("java/lang/Float", "intBitsToFloat", "(I)F", func(_ *Env, args []value.Value) (value.Value, error) {
		return value.Float(float32frombits(uint32(args[0].Int))), nil
	})
	t.Register("java/lang/Double", "doubleToLongBits", "(D)J", func(_ *Env, args []value.Value) (value.Value, error) {
		bits := float64bits(args[0].Double)
		return value.Long(int64(bits)), nil
	})
	t.Register("java/lang/Double", "doubleToRawLongBits", "(D)J", func(_ *Env, args []value.Value) (value.Value, error) {
		bits := float64bits(args[0].Double)
		return value.Long(int64(bits)), nil
	})
	t.Register("java/lang/Double", "longBitsToDouble", "(J)D", func(_ *Env, args []value.Value) (value.Value, error) {
		return value.Double(float64frombits(uint64(args[0].Long))), nil
	})
}
