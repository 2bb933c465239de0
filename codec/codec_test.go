package codec

import (
	"reflect"
	"testing"
)

// =============================================================================
// Encode Tests
// =============================================================================

func TestEncodeAutoScalars(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"int", 42, "42"},
		{"negative int", -7, "-7"},
		{"float", 21.5, "21.5"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"string passthrough", "hello", "hello"},
		{"numeric string unquoted", "42", "42"},
		{"nil", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value, ModeAuto)
			if err != nil {
				t.Fatalf("Encode(%v, auto) error = %v", tt.value, err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode(%v, auto) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestEncodeAutoStructured(t *testing.T) {
	got, err := Encode(map[string]any{"a": 1}, ModeAuto)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Encode(map, auto) = %q, want %q", got, `{"a":1}`)
	}

	got, err = Encode([]int{1, 2, 3}, ModeAuto)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != `[1,2,3]` {
		t.Errorf("Encode(slice, auto) = %q, want %q", got, `[1,2,3]`)
	}
}

func TestEncodeAutoBinaryPassthrough(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF}
	got, err := Encode(payload, ModeAuto)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !reflect.DeepEqual(got, payload) {
		t.Errorf("Encode(bytes, auto) = %v, want passthrough %v", got, payload)
	}
}

func TestEncodeStringMode(t *testing.T) {
	// Scalars render as text.
	got, err := Encode(42, ModeString)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != "42" {
		t.Errorf("Encode(42, string) = %q, want %q", got, "42")
	}

	// Structured values never error; the rendering is a textual
	// placeholder, not JSON.
	got, err = Encode(map[string]any{"a": 1}, ModeString)
	if err != nil {
		t.Fatalf("Encode(map, string) error = %v", err)
	}
	if string(got) != "map[a:1]" {
		t.Errorf("Encode(map, string) = %q, want %q", got, "map[a:1]")
	}

	// Bytes still pass through unchanged.
	payload := []byte{0xDE, 0xAD}
	got, err = Encode(payload, ModeString)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !reflect.DeepEqual(got, payload) {
		t.Errorf("Encode(bytes, string) = %v, want passthrough", got)
	}
}

func TestEncodeJSONMode(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"int forced to json", 42, "42"},
		{"string quoted", "hello", `"hello"`},
		{"bool", true, "true"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
		{"nil", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value, ModeJSON)
			if err != nil {
				t.Fatalf("Encode(%v, json) error = %v", tt.value, err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode(%v, json) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// TestEncodeJSONModeBinary verifies the intentional double-encoding:
// bytes are decoded as text, then that text is JSON-serialized, so the
// receiver's parse yields the original text.
func TestEncodeJSONModeBinary(t *testing.T) {
	got, err := Encode([]byte("plain text"), ModeJSON)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != `"plain text"` {
		t.Errorf("Encode(bytes, json) = %q, want %q", got, `"plain text"`)
	}

	if v := Decode(got, ModeJSON); v != "plain text" {
		t.Errorf("Decode(round trip) = %v, want %q", v, "plain text")
	}
}

// =============================================================================
// Decode Tests
// =============================================================================

func TestDecodeAuto(t *testing.T) {
	// Valid JSON parses to structured values.
	v := Decode([]byte(`{"on":true}`), ModeAuto)
	want := map[string]any{"on": true}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("Decode(json, auto) = %v, want %v", v, want)
	}

	// Parse failure falls back to the decoded text, never an error.
	v = Decode([]byte("not json"), ModeAuto)
	if v != "not json" {
		t.Errorf("Decode(text, auto) = %v, want raw text", v)
	}
}

func TestDecodeString(t *testing.T) {
	// String mode never attempts a structured parse.
	v := Decode([]byte(`{"on":true}`), ModeString)
	if v != `{"on":true}` {
		t.Errorf("Decode(json, string) = %v, want raw text", v)
	}
}

func TestDecodeJSONFallback(t *testing.T) {
	// JSON mode decode failure behaves exactly like Auto's.
	v := Decode([]byte("not json"), ModeJSON)
	if v != "not json" {
		t.Errorf("Decode(text, json) = %v, want raw text", v)
	}
}

// =============================================================================
// Round-trip Tests
// =============================================================================

func TestRoundTripStructured(t *testing.T) {
	value := map[string]any{
		"name":   "hall",
		"level":  42.0,
		"active": true,
		"tags":   []any{"a", "b"},
	}

	for _, mode := range []Mode{ModeAuto, ModeJSON} {
		encoded, err := Encode(value, mode)
		if err != nil {
			t.Fatalf("Encode(%v) error = %v", mode, err)
		}
		decoded := Decode(encoded, mode)
		if !reflect.DeepEqual(decoded, value) {
			t.Errorf("round trip under %v = %v, want %v", mode, decoded, value)
		}
	}
}

func TestRoundTripString(t *testing.T) {
	encoded, err := Encode("just text", ModeString)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if v := Decode(encoded, ModeString); v != "just text" {
		t.Errorf("round trip under string mode = %v, want %q", v, "just text")
	}
}

// =============================================================================
// Mode Parsing Tests
// =============================================================================

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"auto", ModeAuto, false},
		{"", ModeAuto, false},
		{"string", ModeString, false},
		{"JSON", ModeJSON, false},
		{"protobuf", ModeAuto, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
