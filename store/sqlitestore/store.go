// Package sqlitestore provides a persistent paho.mqtt.golang message
// store backed by SQLite.
//
// paho uses its store to hold in-flight QoS 1/2 packets; with the default
// memory store those packets are lost on process restart and delivery
// guarantees silently degrade. Backing the store with a SQLite file keeps
// them across restarts. Wire it through pahov3.Options with clean-session
// off.
//
// The paho Store interface reports no errors, so failures here are logged
// and otherwise swallowed: a broken store degrades redelivery, never the
// live data path.
package sqlitestore

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eclipse/paho.mqtt.golang/packets"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the store directory.
	dirPermissions = 0750

	// busyTimeoutMs is the maximum time to wait for a database lock.
	busyTimeoutMs = 5000
)

// Logger interface for optional logging support.
// Compatible with slog.Logger and the logging package's Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Store implements paho.mqtt.golang's Store on a SQLite file.
type Store struct {
	path   string
	db     *sql.DB
	opened bool
	logger Logger
}

// New creates a store persisting to the given file path. The store is
// not usable until paho calls Open.
func New(path string) *Store {
	return &Store{path: path}
}

// SetLogger sets a logger for store failures. If not set, failures are
// silently ignored.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Open prepares the backing database. Part of the paho Store contract;
// called once by the client before any Put/Get.
func (s *Store) Open() {
	if s.opened {
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		s.logError("creating store directory", err)
		return
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		s.path, busyTimeoutMs)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		s.logError("opening store database", err)
		return
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS inflight (
		key    TEXT PRIMARY KEY,
		packet BLOB NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		s.logError("creating store schema", err)
		db.Close()
		return
	}

	s.db = db
	s.opened = true
}

// Put stores an in-flight control packet under the given key.
func (s *Store) Put(key string, message packets.ControlPacket) {
	if !s.opened {
		return
	}

	var buf bytes.Buffer
	if err := message.Write(&buf); err != nil {
		s.logError("serializing packet", err)
		return
	}

	_, err := s.db.Exec(
		`INSERT INTO inflight (key, packet) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET packet = excluded.packet`,
		key, buf.Bytes(),
	)
	if err != nil {
		s.logError("storing packet", err)
	}
}

// Get retrieves the packet stored under key, or nil when absent.
func (s *Store) Get(key string) packets.ControlPacket {
	if !s.opened {
		return nil
	}

	var blob []byte
	err := s.db.QueryRow(`SELECT packet FROM inflight WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		s.logError("loading packet", err)
		return nil
	}

	cp, err := packets.ReadPacket(bytes.NewReader(blob))
	if err != nil {
		s.logError("decoding stored packet", err)
		// A corrupt row would otherwise be returned forever.
		s.Del(key)
		return nil
	}
	return cp
}

// All returns the keys of every stored packet in insertion order.
func (s *Store) All() []string {
	if !s.opened {
		return nil
	}

	rows, err := s.db.Query(`SELECT key FROM inflight ORDER BY rowid`)
	if err != nil {
		s.logError("listing packets", err)
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			s.logError("scanning packet key", err)
			return keys
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		s.logError("listing packets", err)
	}
	return keys
}

// Del removes the packet stored under key.
func (s *Store) Del(key string) {
	if !s.opened {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM inflight WHERE key = ?`, key); err != nil {
		s.logError("deleting packet", err)
	}
}

// Close releases the backing database.
func (s *Store) Close() {
	if !s.opened {
		return
	}
	s.opened = false
	if err := s.db.Close(); err != nil {
		s.logError("closing store database", err)
	}
}

// Reset drops every stored packet but keeps the store open.
func (s *Store) Reset() {
	if !s.opened {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM inflight`); err != nil {
		s.logError("resetting store", err)
	}
}

func (s *Store) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error("sqlite store: "+msg, "path", s.path, "error", err)
	}
}
