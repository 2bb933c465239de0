// Package transport defines the contract between the session layer and a
// concrete MQTT protocol engine.
//
// The session layer never speaks the wire protocol itself. It owns exactly
// one Transport, publishes and subscribes through it, and observes its
// lifecycle through an ordered event stream. Retry and backoff live inside
// the transport; the session only reflects the reported events.
//
// Two adapters ship with this module:
//   - transport/pahov3 — eclipse/paho.mqtt.golang (MQTT 3.1.1)
//   - transport/pahov5 — eclipse/paho.golang autopaho (MQTT 5)
//
// The MQTT 5 adapter preserves per-message user metadata and supports the
// protocol-native no-local subscription option; the 3.1.1 adapter reports
// neither capability, and callers degrade accordingly.
package transport
