// Package codec converts between structured application values and
// wire-level MQTT payloads.
//
// Three named modes govern both directions:
//
//   - ModeAuto: structured values become JSON, scalars become plain text,
//     strings and byte slices pass through. Decode tries JSON first and
//     falls back to the UTF-8 text.
//   - ModeString: everything becomes its textual representation; decode
//     always returns the UTF-8 text, never attempting a structured parse.
//   - ModeJSON: everything is JSON-serialized, including scalars; byte
//     payloads are decoded as text and then serialized as a JSON string,
//     so the receiving side's parse always succeeds.
//
// All functions are pure: same input and mode, same output.
package codec
