// Package queue provides the typed pending-operation queues for locally
// originated mutations awaiting confirmation by the remote server.
//
// Entries are append-only and immutable once enqueued; removal by pending
// id is the only mutation, performed by the sync engine after a confirmed
// remote apply. Ordering is insertion order (oldest first).
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relampagos/tindapos/backend/internal/models"
	"github.com/relampagos/tindapos/backend/internal/store"
)

// newMeta stamps the bookkeeping fields for a freshly queued mutation.
// The pending id embeds the creation instant so ids sort roughly in
// insertion order; the uuid suffix guarantees uniqueness within the queue.
func newMeta(action models.Action) models.PendingMeta {
	now := time.Now()
	return models.PendingMeta{
		Action:           action,
		PendingID:        fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		PendingTimestamp: now,
		IdempotencyKey:   uuid.NewString(),
	}
}

// ProductQueue is the pending queue for product mutations.
type ProductQueue struct {
	store *store.Store
}

// NewProductQueue creates a ProductQueue over the given store.
func NewProductQueue(s *store.Store) *ProductQueue {
	return &ProductQueue{store: s}
}

// Enqueue appends a product mutation and returns the stamped entry.
func (q *ProductQueue) Enqueue(p models.Product, action models.Action) (models.PendingProduct, bool) {
	entry := models.PendingProduct{Product: p, PendingMeta: newMeta(action)}
	ok := q.store.AppendPending(store.KindProducts, entry)
	return entry, ok
}

// List returns all queued product mutations in insertion order. Never nil.
func (q *ProductQueue) List() []models.PendingProduct {
	entries := []models.PendingProduct{}
	q.store.Pending(store.KindProducts, &entries)
	return entries
}

// Remove deletes the entry with the given pending id.
func (q *ProductQueue) Remove(pendingID string) bool {
	return q.store.RemovePending(store.KindProducts, pendingID)
}

// Clear removes every queued product mutation.
func (q *ProductQueue) Clear() bool {
	return q.store.ClearPending(store.KindProducts)
}

// Len returns the number of queued product mutations.
func (q *ProductQueue) Len() int {
	return q.store.PendingCount(store.KindProducts)
}

// SaleQueue is the pending queue for sale creations.
type SaleQueue struct {
	store *store.Store
}

// NewSaleQueue creates a SaleQueue over the given store.
func NewSaleQueue(s *store.Store) *SaleQueue {
	return &SaleQueue{store: s}
}

// Enqueue appends a sale creation and returns the stamped entry.
func (q *SaleQueue) Enqueue(sale models.SaleRequest, action models.Action) (models.PendingSale, bool) {
	entry := models.PendingSale{SaleRequest: sale, PendingMeta: newMeta(action)}
	ok := q.store.AppendPending(store.KindSales, entry)
	return entry, ok
}

// List returns all queued sale creations in insertion order. Never nil.
func (q *SaleQueue) List() []models.PendingSale {
	entries := []models.PendingSale{}
	q.store.Pending(store.KindSales, &entries)
	return entries
}

// Remove deletes the entry with the given pending id.
func (q *SaleQueue) Remove(pendingID string) bool {
	return q.store.RemovePending(store.KindSales, pendingID)
}

// Clear removes every queued sale creation.
func (q *SaleQueue) Clear() bool {
	return q.store.ClearPending(store.KindSales)
}

// Len returns the number of queued sale creations.
func (q *SaleQueue) Len() int {
	return q.store.PendingCount(store.KindSales)
}
