package descriptor

import "testing"

func TestParseFieldRoundTrip(t *testing.T) {
	cases := []string{"I", "Z", "Ljava/lang/String;", "[I", "[[Ljava/lang/Object;"}
	for _, s := range cases {
		ft, err := ParseField(s)
		if err != nil {
			t.Fatalf("ParseField(%q): %v", s, err)
		}
		if got := ft.String(); got != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestParseMethodRoundTrip(t *testing.T) {
	cases := []string{
		"()V",
		"(II)I",
		"([Ljava/lang/String;)V",
		"(Ljava/lang/String;IJ)D",
	}
	for _, s := range cases {
		md, err := ParseMethod(s)
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", s, err)
		}
		if got := md.String(); got != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestParamSlotsCountsCategoryTwo(t *testing.T) {
	md, err := ParseMethod("(IJD)V")
	if err != nil {
		t.Fatal(err)
	}
	if got := md.ParamSlots(); got != 5 {
		t.Errorf("ParamSlots() = %d, want 5 (I=1,J=2,D=2)", got)
	}
}

func TestParseFieldMalformed(t *testing.T) {
	if _, err := ParseField("Ljava/lang/String"); err == nil {
		t.Error("expected error for unterminated class type")
	}
	if _, err := ParseField("Q"); err == nil {
		t.Error("expected error for unknown base tag")
	}
}
