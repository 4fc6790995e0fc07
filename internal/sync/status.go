package sync

import (
	"time"
)

// Status is the presentation-facing sync state. It is derived on demand
// and never persisted.
type Status struct {
	IsOnline             bool       `json:"isOnline"`
	LastSync             *time.Time `json:"lastSync,omitempty"`
	LastSyncDisplay      string     `json:"lastSyncDisplay,omitempty"`
	PendingProductsCount int        `json:"pendingProductsCount"`
	PendingSalesCount    int        `json:"pendingSalesCount"`
	HasPendingData       bool       `json:"hasPendingData"`
}

// Status combines connectivity, the last-sync marker and both pending
// counts. It performs only local reads, so the presentation layer may
// poll it every few seconds; it never triggers network I/O.
func (e *Engine) Status() Status {
	status := Status{
		IsOnline:             e.online(),
		PendingProductsCount: e.products.Len(),
		PendingSalesCount:    e.sales.Len(),
	}

	if t, ok := e.store.LastSync(); ok {
		local := t.Local()
		status.LastSync = &t
		status.LastSyncDisplay = local.Format("Jan 2, 2006 3:04 PM")
	}

	status.HasPendingData = status.PendingProductsCount > 0 || status.PendingSalesCount > 0

	return status
}
