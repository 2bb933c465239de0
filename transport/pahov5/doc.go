// Package pahov5 adapts eclipse/paho.golang's autopaho client (MQTT 5)
// to the transport contract.
//
// MQTT 5 carries per-message user properties end-to-end and offers the
// no-local subscription option, so the adapter reports both capabilities:
// publish metadata arrives at subscribers intact, and SubscribeOptions
// NoLocal is honoured by the broker. For sessions this makes identity-tag
// echo suppression exact and the fingerprint window a fallback only.
//
// autopaho owns reconnection; the adapter reflects connection-up and
// connect-error events into the lifecycle stream and re-issues tracked
// subscriptions whenever the connection comes back.
package pahov5
