package value

import (
	"math"
	"testing"
)

func TestExtendToInt(t *testing.T) {
	cases := []struct {
		in   Value
		want int32
	}{
		{Byte(-5), -5},
		{Short(-5), -5},
		{Char(65), 65},
		{Bool(true), 1},
	}
	for _, c := range cases {
		got := c.in.ExtendToInt()
		if got.Tag != TagInt {
			t.Fatalf("ExtendToInt(%v): tag = %v, want int", c.in, got.Tag)
		}
		if got.Int != c.want {
			t.Errorf("ExtendToInt(%v) = %d, want %d", c.in, got.Int, c.want)
		}
	}
}

func TestStoreTyNarrows(t *testing.T) {
	v := Int(300)
	got := v.StoreTy(TagByte)
	if got.Int != 44 { // 300 truncated to int8 -> 44
		t.Errorf("StoreTy(byte) = %d, want 44", got.Int)
	}

	v = Int(-1)
	got = v.StoreTy(TagChar)
	if got.Int != 0xFFFF {
		t.Errorf("StoreTy(char) = %#x, want 0xFFFF", got.Int)
	}
}

func TestIsCategoryTwo(t *testing.T) {
	if !Long(1).IsCategoryTwo() || !Double(1).IsCategoryTwo() {
		t.Error("Long/Double should be category two")
	}
	if Int(1).IsCategoryTwo() || Float(1).IsCategoryTwo() {
		t.Error("Int/Float should not be category two")
	}
}

func TestArithmeticWrapping(t *testing.T) {
	a := Int(1 << 30)
	b := Int(1 << 30)
	got := Mul(a, b)
	if got.Int != 0 {
		t.Errorf("int overflow multiply: got %d, want 0 (wrapped)", got.Int)
	}
}

func TestDivByZeroFloat(t *testing.T) {
	got := Div(Float(1), Float(0))
	if got.Float != float32(math.Inf(1)) {
		t.Errorf("float div by zero should follow IEEE754, got %v", got.Float)
	}
}

func TestCompareNaNBias(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	if Fcmpl(nan, 1) != -1 {
		t.Error("fcmpl with NaN should yield -1")
	}
	if Fcmpg(nan, 1) != 1 {
		t.Error("fcmpg with NaN should yield 1")
	}
}

func TestI2cMasksTo16Bits(t *testing.T) {
	got := I2c(-1)
	if got != 0xFFFF {
		t.Errorf("i2c(-1) = %#x, want 0xFFFF", got)
	}
}

func TestIincWrapsOnOverflow(t *testing.T) {
	got := Add(Int(-1<<31), Int(-1))
	if got.Int != (1<<31 - 1) {
		t.Errorf("min-int decrement should wrap, got %d", got.Int)
	}
}
