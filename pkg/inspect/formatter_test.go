package inspect

import (
	"strings"
	"testing"

	"github.com/radiotree/radiotree-go/pkg/property"
)

func TestFormatValue(t *testing.T) {
	f := &Formatter{}

	tests := []struct {
		name     string
		value    property.Value
		unit     string
		expected string
	}{
		{"float frequency", property.Float(2.4e9), "Hz", "2.4e+09 Hz (2.4 GHz)"},
		{"float tick rate", property.Float(32e6), "Hz", "3.2e+07 Hz (32.0 MHz)"},
		{"int rate", property.Int(1000), "sps", "1000 sps (1.0 ksps)"},
		{"small frequency", property.Float(50), "Hz", "50 Hz"},
		{"gain", property.Float(30), "dB", "30 dB"},
		{"string", property.String("TX/RX"), "", `"TX/RX"`},
		{"bool", property.Bool(true), "", "true"},
		{"unset", property.Value{}, "Hz", "<unset>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.FormatValue(tt.value, tt.unit); got != tt.expected {
				t.Errorf("FormatValue() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatSI(t *testing.T) {
	tests := []struct {
		x    float64
		want string
	}{
		{-1.5e6, "-1.5 MHz"},
		{999, "999 Hz"},
		{2e3, "2.0 kHz"},
	}
	for _, tt := range tests {
		if got := FormatSI(tt.x, "Hz"); got != tt.want {
			t.Errorf("FormatSI(%g) = %q, want %q", tt.x, got, tt.want)
		}
	}
}

func TestFormatEntry(t *testing.T) {
	e := &Entry{
		Path:    "/rx/freq/value",
		Kind:    property.KindFloat,
		Value:   property.Float(1e6),
		Desired: property.Float(2e6),
		Access:  property.AccessReadWrite,
		Unit:    "Hz",
	}

	f := NewFormatter()
	got := f.FormatEntry("value", e)
	want := "value: 1e+06 Hz (1.0 MHz) [desired 2e+06 Hz (2.0 MHz)] (float, read-write)"
	if got != want {
		t.Errorf("FormatEntry() = %q, want %q", got, want)
	}

	f.ShowMetadata = false
	e.Desired = e.Value
	if got := f.FormatEntry("value", e); got != "value: 1e+06 Hz (1.0 MHz)" {
		t.Errorf("FormatEntry() without metadata = %q", got)
	}
}

func TestFormatTable(t *testing.T) {
	f := &Formatter{IndentWidth: 2}
	if got := f.FormatTable("/", nil); got != "  (no nodes)" {
		t.Errorf("FormatTable(nil) = %q", got)
	}

	out := f.FormatTable("/mboards/0", []Entry{
		{Path: "/mboards/0/name", Kind: property.KindString, Value: property.String("b210")},
		{Path: "/mboards/0", Kind: property.KindInt, Value: property.Int(0)},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if strings.TrimSpace(lines[0]) != `name: "b210"` {
		t.Errorf("line 0 = %q", lines[0])
	}
	if strings.TrimSpace(lines[1]) != "/mboards/0: 0" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestIndent(t *testing.T) {
	f := &Formatter{}
	if got := f.Indent(2, "x"); got != "    x" {
		t.Errorf("Indent() = %q", got)
	}
}
