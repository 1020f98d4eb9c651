package metadata

import "testing"

func TestRotationFromDegrees(t *testing.T) {
	tests := []struct {
		deg  int
		want Rotation
		swap bool
	}{
		{0, Rotate0, false},
		{90, Rotate90CW, true},
		{180, Rotate180, false},
		{270, Rotate270CW, true},
		{45, Rotate0, false},
		{-90, Rotate0, false},
	}
	for _, tt := range tests {
		got := RotationFromDegrees(tt.deg)
		if got != tt.want {
			t.Errorf("RotationFromDegrees(%d) = %v, want %v", tt.deg, got, tt.want)
		}
		if got.SwapsDimensions() != tt.swap {
			t.Errorf("%v.SwapsDimensions() = %v, want %v", got, got.SwapsDimensions(), tt.swap)
		}
	}
}

func TestRationalString(t *testing.T) {
	if s := (Rational{Numerator: 1, Denominator: 250}).String(); s != "1/250" {
		t.Errorf("String() = %q", s)
	}
	if s := (Rational{Numerator: 2, Denominator: 1}).String(); s != "2" {
		t.Errorf("String() = %q", s)
	}
	if f := (Rational{Numerator: 1, Denominator: 0}).Float(); f != 0 {
		t.Errorf("Float() with zero denominator = %v", f)
	}
}
