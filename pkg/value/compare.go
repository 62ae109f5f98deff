package value

import "math"

// Lcmp implements lcmp: -1, 0, or 1.
func Lcmp(a, b int64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Fcmpl implements fcmpl: NaN compares as less than everything.
func Fcmpl(a, b float32) int32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return -1
	}
	return floatCmp32(a, b)
}

// Fcmpg implements fcmpg: NaN compares as greater than everything.
func Fcmpg(a, b float32) int32 {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return 1
	}
	return floatCmp32(a, b)
}

// Dcmpl implements dcmpl: NaN compares as less than everything.
func Dcmpl(a, b float64) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return -1
	}
	return floatCmp64(a, b)
}

// Dcmpg implements dcmpg: NaN compares as greater than everything.
func Dcmpg(a, b float64) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 1
	}
	return floatCmp64(a, b)
}

func floatCmp32(a, b float32) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func floatCmp64(a, b float64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
