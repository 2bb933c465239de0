// Package session manages one logical MQTT broker connection for an
// application.
//
// A Session owns exactly one transport, reflects its lifecycle into a
// readable Status, and layers two behaviours over raw publish/subscribe:
// self-echo suppression (package echo) and payload normalization
// (package codec).
//
// # Usage
//
//	sess, err := session.Open(ctx, pahov3.Dial, transport.Config{
//	    URL: "tcp://localhost:1883",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	sub, err := sess.SubscribeTopic(ctx, "site/+/state", session.SubscribeOptions{
//	    ExcludeSelf: true,
//	    OnMessage: func(v any, msg transport.Message) {
//	        log.Printf("%s = %v", msg.Topic, v)
//	    },
//	})
//	defer sub.Close()
//
//	err = sess.Publish(ctx, "site/hall/state", map[string]any{"on": true}, session.PublishOptions{})
//
// # Concurrency
//
// Publish and Subscribe are safe for concurrent use. Inbound message and
// lifecycle events arrive on the transport's single ordered event stream,
// so at most one inbound event is processed at a time; the recent-publish
// buffer shared with concurrent publishers is guarded inside package echo.
//
// # Reconfiguration
//
// Changing broker URL or connect options requires a new connection:
// Reconfigure tears down the old transport, clears the echo buffer,
// dials a fresh transport and re-issues the active subscriptions. The
// publisher identity is session-scoped and survives reconfiguration.
package session
