package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"leading and trailing", "  DEL  ", "DEL"},
		{"internal run collapsed", "a  \t b", "a b"},
		{"already clean", "clean", "clean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.expected {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeStationCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"del", "DEL"},
		{" Del ", "DEL"},
		{"BLR", "BLR"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeStationCode(tt.input); got != tt.expected {
			t.Errorf("NormalizeStationCode(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeBookingRef(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{" rg-0a1b2c3d ", "RG-0A1B2C3D"},
		{"RG-0A1B2C3D", "RG-0A1B2C3D"},
		{"rg 0a1b2c3d", "RG0A1B2C3D"}, // missing hyphen is not repaired
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeBookingRef(tt.input); got != tt.expected {
			t.Errorf("NormalizeBookingRef(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{" del ", "RG-0A1B2C3D", "  a  b  "}
	for _, in := range inputs {
		once := NormalizeBookingRef(in)
		if twice := NormalizeBookingRef(once); twice != once {
			t.Errorf("NormalizeBookingRef not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
