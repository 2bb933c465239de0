package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/eclipse/paho.mqtt.golang/packets"
)

// openStore creates an opened store backed by a temp file.
func openStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "inflight.db"))
	s.Open()
	t.Cleanup(s.Close)
	return s
}

// publishPacket builds an in-flight PUBLISH packet for store tests.
func publishPacket(id uint16, topic string, payload []byte) *packets.PublishPacket {
	pub := packets.NewControlPacket(packets.Publish).(*packets.PublishPacket)
	pub.MessageID = id
	pub.TopicName = topic
	pub.Payload = payload
	pub.Qos = 1
	return pub
}

func TestPutGet(t *testing.T) {
	s := openStore(t)

	s.Put("o.1", publishPacket(1, "site/hall/state", []byte(`{"on":true}`)))

	got := s.Get("o.1")
	if got == nil {
		t.Fatal("Get() = nil after Put")
	}
	pub, ok := got.(*packets.PublishPacket)
	if !ok {
		t.Fatalf("Get() returned %T, want *PublishPacket", got)
	}
	if pub.TopicName != "site/hall/state" {
		t.Errorf("restored topic = %q", pub.TopicName)
	}
	if string(pub.Payload) != `{"on":true}` {
		t.Errorf("restored payload = %q", pub.Payload)
	}
	if pub.MessageID != 1 {
		t.Errorf("restored message id = %d, want 1", pub.MessageID)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	if got := s.Get("o.99"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t)

	s.Put("o.1", publishPacket(1, "t", []byte("first")))
	s.Put("o.1", publishPacket(1, "t", []byte("second")))

	pub := s.Get("o.1").(*packets.PublishPacket)
	if string(pub.Payload) != "second" {
		t.Errorf("payload = %q after replace, want %q", pub.Payload, "second")
	}
	if keys := s.All(); len(keys) != 1 {
		t.Errorf("All() = %v, want single key", keys)
	}
}

func TestAllOrdered(t *testing.T) {
	s := openStore(t)

	s.Put("o.1", publishPacket(1, "t", []byte("a")))
	s.Put("o.2", publishPacket(2, "t", []byte("b")))
	s.Put("i.3", publishPacket(3, "t", []byte("c")))

	keys := s.All()
	want := []string{"o.1", "o.2", "i.3"}
	if len(keys) != len(want) {
		t.Fatalf("All() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestDel(t *testing.T) {
	s := openStore(t)

	s.Put("o.1", publishPacket(1, "t", []byte("v")))
	s.Del("o.1")

	if got := s.Get("o.1"); got != nil {
		t.Errorf("Get() = %v after Del, want nil", got)
	}
}

func TestReset(t *testing.T) {
	s := openStore(t)

	s.Put("o.1", publishPacket(1, "t", []byte("a")))
	s.Put("o.2", publishPacket(2, "t", []byte("b")))
	s.Reset()

	if keys := s.All(); len(keys) != 0 {
		t.Errorf("All() = %v after Reset, want empty", keys)
	}

	// Store stays usable after Reset.
	s.Put("o.3", publishPacket(3, "t", []byte("c")))
	if got := s.Get("o.3"); got == nil {
		t.Error("Get() = nil after post-Reset Put")
	}
}

// TestPersistsAcrossReopen is the point of the store: in-flight packets
// survive a process restart.
func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inflight.db")

	s := New(path)
	s.Open()
	s.Put("o.7", publishPacket(7, "site/hall/command", []byte("on")))
	s.Close()

	s2 := New(path)
	s2.Open()
	defer s2.Close()

	got := s2.Get("o.7")
	if got == nil {
		t.Fatal("Get() = nil after reopen, want persisted packet")
	}
	if pub := got.(*packets.PublishPacket); pub.MessageID != 7 {
		t.Errorf("restored message id = %d, want 7", pub.MessageID)
	}
}

func TestUnopenedStoreIsInert(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-opened.db"))

	// No Open: every operation is a no-op, never a panic.
	s.Put("o.1", publishPacket(1, "t", []byte("v")))
	if got := s.Get("o.1"); got != nil {
		t.Errorf("Get() on unopened store = %v, want nil", got)
	}
	if keys := s.All(); keys != nil {
		t.Errorf("All() on unopened store = %v, want nil", keys)
	}
	s.Del("o.1")
	s.Reset()
	s.Close()
}
