// Package store provides the persistent local cache backing the
// offline-first sync core. It is a key-value layer over SQLite holding the
// cached entity collections, the pending-operation queues and the
// last-successful-sync marker.
//
// The store is best-effort by contract: reads and writes degrade to zero
// values on storage failure (missing key, corrupt JSON, closed database)
// and are logged rather than surfaced, so a local storage problem can
// never block a sync attempt or crash the app.
package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/relampagos/tindapos/backend/internal/errors"
	"github.com/relampagos/tindapos/backend/internal/logging"
)

// Kind identifies an entity collection managed by the store.
type Kind string

const (
	KindProducts Kind = "products"
	KindSales    Kind = "sales"
)

// Managed keys. Exact strings are an implementation detail, not a contract.
const (
	keyProductsCache   = "products-cache"
	keySalesCache      = "sales-cache"
	keyPendingProducts = "pending-products-queue"
	keyPendingSales    = "pending-sales-queue"
	keyLastSync        = "last-sync-timestamp"
)

func (k Kind) cacheKey() string {
	if k == KindSales {
		return keySalesCache
	}
	return keyProductsCache
}

func (k Kind) pendingKey() string {
	if k == KindSales {
		return keyPendingSales
	}
	return keyPendingProducts
}

// managedKeys lists every key owned by the store. ClearAll removes exactly
// these; session or auth state kept elsewhere in the database is untouched.
var managedKeys = []string{
	keyProductsCache,
	keySalesCache,
	keyPendingProducts,
	keyPendingSales,
	keyLastSync,
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Store is the durable local cache. Pending-queue mutation is serialized
// through a single mutex so overlapping append/remove calls cannot lose an
// update to the read-modify-write cycle.
type Store struct {
	db  *sql.DB
	log *logging.Logger
	mu  sync.Mutex
}

// collectionEnvelope is the persisted shape of a cached collection.
type collectionEnvelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Open opens (creating if needed) the cache database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, "tindapos.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to open database", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to enable WAL mode", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to create schema", err)
	}

	return &Store{db: db, log: logging.Get()}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetLogger replaces the store's logger. Used by tests to silence output.
func (s *Store) SetLogger(log *logging.Logger) {
	s.log = log
}

// get reads a raw value. Missing keys and storage errors both report false.
func (s *Store) get(key string) ([]byte, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv_cache WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.log.Warn("cache read failed", logging.Fields{"key": key, "error": err.Error()})
		return nil, false
	}
	return []byte(value), true
}

// put writes a raw value, overwriting unconditionally.
func (s *Store) put(key string, value []byte) bool {
	_, err := s.db.Exec(
		`INSERT INTO kv_cache (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value))
	if err != nil {
		s.log.Warn("cache write failed", logging.Fields{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (s *Store) del(key string) bool {
	if _, err := s.db.Exec("DELETE FROM kv_cache WHERE key = ?", key); err != nil {
		s.log.Warn("cache delete failed", logging.Fields{"key": key, "error": err.Error()})
		return false
	}
	return true
}

// SaveCollection overwrites the cached collection for kind with items,
// stamping the envelope with the current instant. No merge is performed;
// this is the authoritative-refetch write path.
func (s *Store) SaveCollection(kind Kind, items any) bool {
	data, err := json.Marshal(items)
	if err != nil {
		s.log.Warn("collection marshal failed", logging.Fields{"kind": string(kind), "error": err.Error()})
		return false
	}

	env, err := json.Marshal(collectionEnvelope{Data: data, Timestamp: time.Now()})
	if err != nil {
		s.log.Warn("envelope marshal failed", logging.Fields{"kind": string(kind), "error": err.Error()})
		return false
	}

	return s.put(kind.cacheKey(), env)
}

// Collection unmarshals the cached collection for kind into out (a pointer
// to a slice). Reports false on missing key or malformed content; out is
// left untouched in that case.
func (s *Store) Collection(kind Kind, out any) bool {
	raw, ok := s.get(kind.cacheKey())
	if !ok {
		return false
	}

	var env collectionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warn("cached collection corrupt", logging.Fields{"kind": string(kind), "error": err.Error()})
		return false
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		s.log.Warn("cached collection data corrupt", logging.Fields{"kind": string(kind), "error": err.Error()})
		return false
	}

	return true
}

// CollectionTimestamp returns the instant the cached collection for kind
// was last overwritten by an authoritative fetch.
func (s *Store) CollectionTimestamp(kind Kind) (time.Time, bool) {
	raw, ok := s.get(kind.cacheKey())
	if !ok {
		return time.Time{}, false
	}

	var env collectionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warn("cached collection corrupt", logging.Fields{"kind": string(kind), "error": err.Error()})
		return time.Time{}, false
	}

	return env.Timestamp, true
}

// pendingIDProbe extracts just the pending id from a raw queue entry.
type pendingIDProbe struct {
	PendingID string `json:"_pendingId"`
}

// readPendingLocked reads the raw pending queue for kind. A missing or
// corrupt queue yields an empty slice so callers may always iterate.
// Caller must hold s.mu when the result feeds a write-back.
func (s *Store) readPendingLocked(kind Kind) []json.RawMessage {
	raw, ok := s.get(kind.pendingKey())
	if !ok {
		return []json.RawMessage{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn("pending queue corrupt, resetting", logging.Fields{"kind": string(kind), "error": err.Error()})
		return []json.RawMessage{}
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return entries
}

func (s *Store) writePendingLocked(kind Kind, entries []json.RawMessage) bool {
	data, err := json.Marshal(entries)
	if err != nil {
		s.log.Warn("pending queue marshal failed", logging.Fields{"kind": string(kind), "error": err.Error()})
		return false
	}
	return s.put(kind.pendingKey(), data)
}

// AppendPending appends entry (which must already carry its pending
// metadata) to the queue for kind, preserving insertion order.
func (s *Store) AppendPending(kind Kind, entry any) bool {
	data, err := json.Marshal(entry)
	if err != nil {
		s.log.Warn("pending entry marshal failed", logging.Fields{"kind": string(kind), "error": err.Error()})
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readPendingLocked(kind)
	entries = append(entries, json.RawMessage(data))
	return s.writePendingLocked(kind, entries)
}

// PendingRaw returns the raw pending entries for kind in insertion order.
// Never returns nil.
func (s *Store) PendingRaw(kind Kind) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPendingLocked(kind)
}

// Pending unmarshals the pending queue for kind into out (a pointer to a
// slice of the typed pending entries). A missing or corrupt queue leaves
// out set to an empty slice.
func (s *Store) Pending(kind Kind, out any) {
	entries := s.PendingRaw(kind)

	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warn("pending queue decode failed", logging.Fields{"kind": string(kind), "error": err.Error()})
	}
}

// PendingCount returns the number of queued entries for kind.
func (s *Store) PendingCount(kind Kind) int {
	return len(s.PendingRaw(kind))
}

// RemovePending removes the entry identified by pendingID from the queue
// for kind, leaving every other entry in place.
func (s *Store) RemovePending(kind Kind, pendingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readPendingLocked(kind)
	kept := make([]json.RawMessage, 0, len(entries))
	for _, raw := range entries {
		var probe pendingIDProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			// Unreadable entry: keep it so nothing is silently dropped.
			kept = append(kept, raw)
			continue
		}
		if probe.PendingID == pendingID {
			continue
		}
		kept = append(kept, raw)
	}

	return s.writePendingLocked(kind, kept)
}

// ClearPending removes every queued entry for kind.
func (s *Store) ClearPending(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writePendingLocked(kind, []json.RawMessage{})
}

// SaveLastSync persists t as the last-successful-sync instant.
func (s *Store) SaveLastSync(t time.Time) bool {
	data, err := json.Marshal(t)
	if err != nil {
		return false
	}
	return s.put(keyLastSync, data)
}

// LastSync returns the last-successful-sync instant, if any.
func (s *Store) LastSync() (time.Time, bool) {
	raw, ok := s.get(keyLastSync)
	if !ok {
		return time.Time{}, false
	}

	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		s.log.Warn("last-sync marker corrupt", logging.Fields{"error": err.Error()})
		return time.Time{}, false
	}
	return t, true
}

// ClearAll removes every managed key: both cached collections, both
// pending queues and the last-sync marker. Other rows in the database are
// deliberately left alone.
func (s *Store) ClearAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := true
	for _, key := range managedKeys {
		if !s.del(key) {
			ok = false
		}
	}
	return ok
}
