package value

// Conversion family: every pair in {I,L,F,D}x{I,L,F,D}, plus the narrowing
// i2b/i2c/i2s triplet. i2c zero-extends to 16 bits per the established
// specification (some historical revisions mask to 8 bits instead; this one
// does not).

func I2l(v int32) int64     { return int64(v) }
func I2f(v int32) float32   { return float32(v) }
func I2d(v int32) float64   { return float64(v) }
func L2i(v int64) int32     { return int32(v) }
func L2f(v int64) float32   { return float32(v) }
func L2d(v int64) float64   { return float64(v) }
func F2i(v float32) int32   { return saturatingF2I(float64(v)) }
func F2l(v float32) int64   { return saturatingF2L(float64(v)) }
func F2d(v float32) float64 { return float64(v) }
func D2i(v float64) int32   { return saturatingF2I(v) }
func D2l(v float64) int64   { return saturatingF2L(v) }
func D2f(v float64) float32 { return float32(v) }

func I2b(v int32) int32 { return int32(int8(v)) }
func I2c(v int32) int32 { return int32(uint16(v)) }
func I2s(v int32) int32 { return int32(int16(v)) }

// saturatingF2I implements the JVM's float/double-to-int conversion rules:
// NaN becomes 0, and out-of-range values saturate to MinInt32/MaxInt32
// instead of wrapping.
func saturatingF2I(v float64) int32 {
	if v != v { // NaN
		return 0
	}
	const maxInt32 = float64(1<<31 - 1)
	const minInt32 = float64(-1 << 31)
	switch {
	case v >= maxInt32:
		return 1<<31 - 1
	case v <= minInt32:
		return -1 << 31
	default:
		return int32(v)
	}
}

func saturatingF2L(v float64) int64 {
	if v != v { // NaN
		return 0
	}
	const maxInt64 = float64(1<<63 - 1)
	const minInt64 = float64(-1 << 63)
	switch {
	case v >= maxInt64:
		return 1<<63 - 1
	case v <= minInt64:
		return -1 << 63
	default:
		return int64(v)
	}
}
