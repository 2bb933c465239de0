package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-session/transport"
)

// topicState tracks transport-level state for one topic filter shared by
// any number of Subscriptions.
type topicState struct {
	refs    int
	qos     byte // highest QoS requested by a referencing subscription
	noLocal bool // applied no-local option
}

// registry is the per-session subscription bookkeeping: which
// Subscriptions are live and, reference-counted, which topic filters are
// held at the transport.
//
// The transport-level subscription for a filter is shared: it is created
// when the first Subscription references the filter and released when the
// last one goes away. The protocol-native no-local option is only
// requested while every referencing Subscription excludes self, since it
// would starve the others.
type registry struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	topics map[string]*topicState
}

func newRegistry() *registry {
	return &registry{
		subs:   make(map[*Subscription]struct{}),
		topics: make(map[string]*topicState),
	}
}

// snapshot returns the live subscriptions for dispatch.
func (r *registry) snapshot() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Subscription, 0, len(r.subs))
	for sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

// acquire registers sub and issues any transport subscribe calls its
// topics require. On transport failure the registration is rolled back.
func (r *registry) acquire(ctx context.Context, tr transport.Transport, caps transport.Capabilities, sub *Subscription) error {
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	changes := r.applyLocked(caps, sub.topics)
	r.mu.Unlock()

	if err := r.push(ctx, tr, changes); err != nil {
		r.mu.Lock()
		delete(r.subs, sub)
		r.dropLocked(sub.topics)
		r.mu.Unlock()
		return err
	}
	return nil
}

// release removes sub, unsubscribing topics no other Subscription holds
// and re-subscribing topics whose shared options changed.
func (r *registry) release(ctx context.Context, tr transport.Transport, caps transport.Capabilities, sub *Subscription) error {
	r.mu.Lock()
	delete(r.subs, sub)
	gone := r.dropLocked(sub.topics)

	// A departing non-excluding subscription may make no-local viable
	// again for the survivors.
	var changed []subscribeChange
	for _, topic := range sub.topics {
		st, ok := r.topics[topic]
		if !ok {
			continue
		}
		if want := r.wantNoLocalLocked(caps, topic); want != st.noLocal {
			st.noLocal = want
			changed = append(changed, subscribeChange{topic: topic, qos: st.qos, noLocal: want})
		}
	}
	r.mu.Unlock()

	if len(gone) > 0 && tr != nil {
		if err := tr.Unsubscribe(ctx, gone); err != nil {
			return fmt.Errorf("unsubscribing %v: %w", gone, err)
		}
	}
	if tr != nil {
		if err := r.push(ctx, tr, changed); err != nil {
			return err
		}
	}
	return nil
}

// resubscribeAll re-issues every held topic filter, used after the
// transport has been rebuilt.
func (r *registry) resubscribeAll(ctx context.Context, tr transport.Transport) error {
	r.mu.Lock()
	changes := make([]subscribeChange, 0, len(r.topics))
	for topic, st := range r.topics {
		changes = append(changes, subscribeChange{topic: topic, qos: st.qos, noLocal: st.noLocal})
	}
	r.mu.Unlock()

	return r.push(ctx, tr, changes)
}

// subscribeChange is one transport subscribe call to issue.
type subscribeChange struct {
	topic   string
	qos     byte
	noLocal bool
}

// applyLocked records sub's topics and returns the subscribe calls that
// must reach the transport: new filters, QoS upgrades, and no-local
// option changes. Callers hold r.mu.
func (r *registry) applyLocked(caps transport.Capabilities, topics []string) []subscribeChange {
	var changes []subscribeChange
	for _, topic := range topics {
		st, ok := r.topics[topic]
		if !ok {
			st = &topicState{}
			r.topics[topic] = st
		}
		st.refs++

		qos := st.qos
		for sub := range r.subs {
			if sub.references(topic) && sub.opts.QoS > qos {
				qos = sub.opts.QoS
			}
		}
		noLocal := r.wantNoLocalLocked(caps, topic)

		if !ok || qos != st.qos || noLocal != st.noLocal {
			st.qos = qos
			st.noLocal = noLocal
			changes = append(changes, subscribeChange{topic: topic, qos: qos, noLocal: noLocal})
		}
	}
	return changes
}

// dropLocked decrements reference counts and returns the filters whose
// last reference is gone. Callers hold r.mu.
func (r *registry) dropLocked(topics []string) []string {
	var gone []string
	for _, topic := range topics {
		st, ok := r.topics[topic]
		if !ok {
			continue
		}
		st.refs--
		if st.refs <= 0 {
			delete(r.topics, topic)
			gone = append(gone, topic)
		}
	}
	return gone
}

// wantNoLocalLocked reports whether the shared subscription for topic
// should carry the protocol-native no-local option. Callers hold r.mu.
func (r *registry) wantNoLocalLocked(caps transport.Capabilities, topic string) bool {
	if !caps.NoLocal {
		return false
	}
	held := false
	for sub := range r.subs {
		if !sub.references(topic) {
			continue
		}
		if !sub.opts.ExcludeSelf {
			return false
		}
		held = true
	}
	return held
}

// push issues the subscribe calls, one filter at a time so a QoS or
// option change replaces the broker-side subscription in place.
func (r *registry) push(ctx context.Context, tr transport.Transport, changes []subscribeChange) error {
	for _, ch := range changes {
		opts := transport.SubscribeOptions{QoS: ch.qos, NoLocal: ch.noLocal}
		if err := tr.Subscribe(ctx, []string{ch.topic}, opts); err != nil {
			return fmt.Errorf("subscribing %q: %w", ch.topic, err)
		}
	}
	return nil
}

// references reports whether the subscription's topic set contains the
// exact filter.
func (sub *Subscription) references(topic string) bool {
	for _, t := range sub.topics {
		if t == topic {
			return true
		}
	}
	return false
}
