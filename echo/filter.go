package echo

import (
	"crypto/sha256"
	"sync"
	"time"
)

// Buffer bounds and digest parameters.
const (
	// MaxRecords caps the recent-publish buffer. Oldest entries are
	// evicted first once the cap is reached.
	MaxRecords = 100

	// MaxAge is the longest any record is retained, regardless of the
	// per-subscription suppression window.
	MaxAge = 7000 * time.Millisecond

	// DefaultWindow is the suppression window applied when a
	// subscription does not configure one.
	DefaultWindow = 100 * time.Millisecond

	// fingerprintPrefix bounds digest cost for large payloads. Matching
	// the first 512 bytes plus total length is collision-resistant
	// enough for short-window self-matching.
	fingerprintPrefix = 512
)

// IdentityProperty is the user-property key carrying the publisher
// identity on outbound messages.
const IdentityProperty = "gl-publisher-id"

type record struct {
	topic string
	sum   [sha256.Size]byte
	size  int
	at    time.Time
}

// Filter tracks recent local publications for one session.
//
// The buffer is the one piece of state shared between the publish path
// (Record) and the inbound delivery path (Matches); a mutex keeps
// append-and-prune atomic and reads consistent.
type Filter struct {
	identity string

	mu      sync.Mutex
	records []record

	// now is replaceable in tests.
	now func() time.Time
}

// NewFilter creates a Filter for the given publisher identity.
func NewFilter(identity string) *Filter {
	return &Filter{
		identity: identity,
		now:      time.Now,
	}
}

// Identity returns the publisher identity this filter tags and matches.
func (f *Filter) Identity() string {
	return f.identity
}

// Record notes an outbound publish. Called the moment the payload is
// handed to the transport, before any acknowledgment.
func (f *Filter) Record(topic string, payload []byte) {
	r := record{
		topic: topic,
		sum:   fingerprint(payload),
		size:  len(payload),
		at:    f.now(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.records = append(f.records, r)
	f.prune(r.at)
}

// prune drops entries older than MaxAge, then trims to MaxRecords keeping
// the most recent. Callers hold f.mu.
func (f *Filter) prune(now time.Time) {
	cutoff := now.Add(-MaxAge)
	keep := f.records[:0]
	for _, r := range f.records {
		if r.at.After(cutoff) {
			keep = append(keep, r)
		}
	}
	f.records = keep

	if n := len(f.records); n > MaxRecords {
		copy(f.records, f.records[n-MaxRecords:])
		f.records = f.records[:MaxRecords]
	}
}

// Matches reports whether an inbound message is this session's own echo.
//
// The identity tag, when present and equal to the local identity, matches
// unconditionally. Otherwise the recent-publish buffer is consulted:
// a record with the same topic and fingerprint no older than window
// matches. A zero window selects DefaultWindow.
func (f *Filter) Matches(topic string, payload []byte, metadata map[string]string, window time.Duration) bool {
	if metadata[IdentityProperty] == f.identity && f.identity != "" {
		return true
	}
	if window <= 0 {
		window = DefaultWindow
	}

	sum := fingerprint(payload)
	cutoff := f.now().Add(-window)

	f.mu.Lock()
	defer f.mu.Unlock()

	// Newest entries last; scan backwards so the common case (immediate
	// echo of the latest publish) exits early.
	for i := len(f.records) - 1; i >= 0; i-- {
		r := f.records[i]
		if r.at.Before(cutoff) {
			break
		}
		if r.topic == topic && r.size == len(payload) && r.sum == sum {
			return true
		}
	}
	return false
}

// Reset clears the recent-publish buffer. Called when the session's
// transport is torn down and rebuilt: records from the old connection
// must not suppress deliveries on the new one.
func (f *Filter) Reset() {
	f.mu.Lock()
	f.records = nil
	f.mu.Unlock()
}

// Len returns the current buffer size.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fingerprint digests the first fingerprintPrefix bytes of payload.
func fingerprint(payload []byte) [sha256.Size]byte {
	if len(payload) > fingerprintPrefix {
		payload = payload[:fingerprintPrefix]
	}
	return sha256.Sum256(payload)
}
