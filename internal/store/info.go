package store

import (
	"encoding/json"
	"time"
)

// StorageInfo summarizes the local cache for diagnostics display.
type StorageInfo struct {
	CachedProducts  int        `json:"cached_products"`
	CachedSales     int        `json:"cached_sales"`
	PendingProducts int        `json:"pending_products"`
	PendingSales    int        `json:"pending_sales"`
	LastSync        *time.Time `json:"last_sync,omitempty"`
	TotalBytes      int64      `json:"total_bytes"`
}

// Info reports cache and queue counts plus the approximate serialized size
// of every managed key. Purely diagnostic; degrades to zeroes on any
// storage problem and never fails.
func (s *Store) Info() StorageInfo {
	var info StorageInfo

	info.CachedProducts = s.cachedCount(KindProducts)
	info.CachedSales = s.cachedCount(KindSales)
	info.PendingProducts = s.PendingCount(KindProducts)
	info.PendingSales = s.PendingCount(KindSales)

	if t, ok := s.LastSync(); ok {
		info.LastSync = &t
	}

	for _, key := range managedKeys {
		if raw, ok := s.get(key); ok {
			info.TotalBytes += int64(len(raw))
		}
	}

	return info
}

// cachedCount counts the entries in a cached collection without decoding
// them into entity structs.
func (s *Store) cachedCount(kind Kind) int {
	raw, ok := s.get(kind.cacheKey())
	if !ok {
		return 0
	}

	var env collectionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0
	}

	var items []json.RawMessage
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return 0
	}
	return len(items)
}
