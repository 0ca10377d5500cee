package units

import (
	"math"
	"testing"
	"time"
)

func TestConvertDistance(t *testing.T) {
	tests := []struct {
		name     string
		km       float64
		units    string
		expected float64
	}{
		{"5 km to mi", 5.0, MI, 3.106855},
		{"5 km to m", 5.0, M, 5000},
		{"5 km to km", 5.0, KM, 5.0},
		{"unknown units default to km", 5.0, "furlong", 5.0},
		{"zero", 0, MI, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertDistance(tt.km, tt.units)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("ConvertDistance(%f, %s) = %f, want %f", tt.km, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid km", KM, true},
		{"valid mi", MI, true},
		{"valid m", M, true},
		{"invalid unit", "yd", false},
		{"empty string", "", false},
		{"case sensitive", "KM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsValid(tt.unit); result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, "0.00 km"},
		{3.4, "3.40 km"},
		{0.009, "0.01 km"},
		{12.345, "12.35 km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0s"},
		{"seconds", 42 * time.Second, "42s"},
		{"sub-second truncates", 999 * time.Millisecond, "0s"},
		{"minutes pad seconds", 5*time.Minute + 7*time.Second, "5m 07s"},
		{"exact minute", time.Minute, "1m 00s"},
		{"hours pad minutes", time.Hour + 5*time.Minute + 59*time.Second, "1h 05m"},
		{"long session", 25*time.Hour + 30*time.Minute, "25h 30m"},
		{"negative clamps", -time.Second, "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatElapsed(tt.d); got != tt.want {
				t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatElapsedMillis(t *testing.T) {
	if got := FormatElapsedMillis(3_723_000); got != "1h 02m" {
		t.Errorf("FormatElapsedMillis = %q, want 1h 02m", got)
	}
}

func TestParseActiveMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"45m", 45},
		{"1h 10m", 70},
		{"1h 55m", 115},
		{"1h 05m", 65},
		{"5m 07s", 5},
		{"5m 45s", 6},
		{"42s", 1},
		{"12s", 0},
		{"2h", 120},
		{"30", 30},
		{"", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := ParseActiveMinutes(tt.in); got != tt.want {
			t.Errorf("ParseActiveMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseActiveMinutesRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{0, 42 * time.Second, 7*time.Minute + 3*time.Second, 2*time.Hour + 9*time.Minute} {
		got := ParseActiveMinutes(FormatElapsed(d))
		want := int((d + 30*time.Second) / time.Minute)
		if d >= time.Hour {
			want = int(d / time.Minute)
		}
		if got != want {
			t.Errorf("round trip of %v = %d minutes, want %d", d, got, want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0m"},
		{45, "45m"},
		{70, "1h 10m"},
		{545, "9h 5m"},
		{-3, "0m"},
	}
	for _, tt := range tests {
		if got := FormatMinutes(tt.in); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
