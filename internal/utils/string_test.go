package utils

import "testing"

func TestEqualFold(t *testing.T) {
	tests := []struct {
		a, b rune
		want bool
	}{
		{'a', 'A', true},
		{'Z', 'z', true},
		{'a', 'b', false},
		{'é', 'É', true},
		{'_', '_', true},
	}
	for _, tt := range tests {
		if got := EqualFold(tt.a, tt.b); got != tt.want {
			t.Errorf("EqualFold(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsValidInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"123", false},
		{"foo", true},
		{"foo_bar", true},
		{"$scope", true},
		{"x1", true},
		{"a+b", false},
		{"(", false},
	}
	for _, tt := range tests {
		if got := IsValidInput(tt.input); got != tt.want {
			t.Errorf("IsValidInput(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFirstRune(t *testing.T) {
	if got := FirstRune("Über"); got != 'Ü' {
		t.Errorf("FirstRune(Über) = %q, want Ü", got)
	}
	if got := FoldRune('Ü'); got != 'ü' {
		t.Errorf("FoldRune(Ü) = %q, want ü", got)
	}
}
