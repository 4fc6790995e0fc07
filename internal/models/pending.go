package models

import "time"

// Action represents the kind of local mutation recorded in a pending queue.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// PendingMeta carries the bookkeeping fields attached to every queued
// mutation. The underscore-prefixed JSON names keep them clearly separated
// from entity fields when the entry is persisted as a flat object.
type PendingMeta struct {
	Action           Action    `json:"_action"`
	PendingID        string    `json:"_pendingId"`
	PendingTimestamp time.Time `json:"_pendingTimestamp"`
	// IdempotencyKey is generated once at enqueue time and resent verbatim
	// on every replay attempt, so the server can deduplicate a retried
	// mutation after a lost acknowledgement.
	IdempotencyKey string `json:"_idempotencyKey,omitempty"`
}

// PendingProduct is a queued product mutation: the product fields plus
// queue bookkeeping, serialized as a single flat JSON object.
type PendingProduct struct {
	Product
	PendingMeta
}

// PendingSale is a queued sale creation.
type PendingSale struct {
	SaleRequest
	PendingMeta
}
