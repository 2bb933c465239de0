// Package echo decides whether an inbound MQTT message is the local
// session's own publication.
//
// When one connection carries both publishers and subscribers on
// overlapping topics, the broker echoes publications back to the session
// that sent them. Two mechanisms detect the echo, applied in order:
//
//  1. Identity tag: every outbound publish is tagged with the session's
//     publisher identity through a protocol-level user property. When an
//     inbound message carries the local identity the match is exact and
//     unconditional. The tag only survives on MQTT 5 paths where the
//     broker preserves user properties; elsewhere it is simply absent.
//  2. Fingerprint window: every outbound publish is recorded as a
//     {topic, payload digest, timestamp} entry in a bounded buffer. An
//     inbound message with no identity tag is suppressed when a recorded
//     entry matches topic and digest within the subscription's window.
//     Two publishers sending byte-identical payloads to one topic inside
//     the window are indistinguishable; the second is wrongly suppressed.
//     That false positive is an accepted property of the heuristic.
//
// Recording and matching are best effort and never block the publish or
// delivery path.
package echo
