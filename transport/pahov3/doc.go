// Package pahov3 adapts eclipse/paho.mqtt.golang (MQTT 3.1.1) to the
// transport contract.
//
// MQTT 3.1.1 has neither user properties nor the no-local subscribe
// option, so the adapter reports both capabilities false: publish
// metadata is dropped and inbound messages carry none, which leaves echo
// suppression entirely to the session's fingerprint-window fallback.
//
// Reconnection is handled by the paho library (exponential backoff,
// retrying forever); the adapter reflects connect/drop events into the
// lifecycle stream and restores its subscriptions after every reconnect.
// Message callbacks run in order on a single router goroutine, matching
// the session layer's ordered event stream assumption.
package pahov3
