package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Mode selects the serialization policy for a publish or subscribe path.
type Mode int

const (
	// ModeAuto serializes structured values as JSON and scalars as plain
	// text. This is the default.
	ModeAuto Mode = iota

	// ModeString coerces every non-binary value to its textual
	// representation and never structured-parses on decode.
	ModeString

	// ModeJSON forces JSON serialization for every value, scalars
	// included.
	ModeJSON
)

// String returns the mode name for logging and config parsing errors.
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeString:
		return "string"
	case ModeJSON:
		return "json"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "string", "text":
		return ModeString, nil
	case "json":
		return ModeJSON, nil
	default:
		return ModeAuto, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// ErrUnknownMode is returned by ParseMode for an unrecognised mode name.
var ErrUnknownMode = errors.New("codec: unknown serialization mode")

// Encode converts an application value to a wire payload under the given
// mode.
//
// Byte slices are treated as binary: passed through unchanged under
// ModeAuto and ModeString, and double-encoded as a JSON string under
// ModeJSON so the receiver's parse yields the original text.
func Encode(v any, mode Mode) ([]byte, error) {
	if b, ok := asBinary(v); ok {
		if mode == ModeJSON {
			return json.Marshal(string(b))
		}
		return b, nil
	}

	switch mode {
	case ModeString:
		return []byte(fmt.Sprint(v)), nil
	case ModeJSON:
		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("codec: encoding value as json: %w", err)
		}
		return out, nil
	default: // ModeAuto
		return encodeAuto(v)
	}
}

// encodeAuto serializes structured values as JSON and leaves scalars as
// plain, unquoted text.
func encodeAuto(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	if isScalar(v) {
		return []byte(fmt.Sprint(v)), nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encoding value as json: %w", err)
	}
	return out, nil
}

// Decode converts a wire payload back to an application value under the
// given mode.
//
// Decode never fails: when a structured parse is attempted and the payload
// is not valid JSON, the decoded UTF-8 text is returned instead.
func Decode(payload []byte, mode Mode) any {
	text := string(payload)
	if mode == ModeString {
		return text
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return text
	}
	return v
}

// asBinary reports whether v is a raw byte payload.
func asBinary(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case json.RawMessage:
		return b, true
	default:
		return nil, false
	}
}

// isScalar reports whether v renders as plain text under ModeAuto.
// Everything else (maps, slices, structs, pointers) is structured.
func isScalar(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}
