// Package sync implements the offline-first reconciliation core: draining
// the pending-operation queues against the remote API, then replacing the
// local cache with the server's authoritative state.
package sync

import (
	"context"
	stderrors "errors"
	stdsync "sync"
	"time"

	apperrors "github.com/relampagos/tindapos/backend/internal/errors"
	"github.com/relampagos/tindapos/backend/internal/logging"
	"github.com/relampagos/tindapos/backend/internal/models"
	"github.com/relampagos/tindapos/backend/internal/queue"
	"github.com/relampagos/tindapos/backend/internal/store"
)

// Error type labels accumulated in a Result.
const (
	ErrTypeConnectivity = "connectivity"
	ErrTypeProductOp    = "product-operation"
	ErrTypeSaleOp       = "sale-operation"
	ErrTypeProductFetch = "product-fetch"
	ErrTypeSaleFetch    = "sale-fetch"
)

// RemoteAPI is the boundary to the backend. Implemented by *api.Client;
// narrowed to an interface so tests can substitute a scripted double.
type RemoteAPI interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, p models.Product, idemKey string) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, p models.Product, idemKey string) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string, idemKey string) error
	ListSales(ctx context.Context) ([]models.Sale, error)
	CreateSale(ctx context.Context, sale models.SaleRequest, idemKey string) (*models.Sale, error)
}

// SyncError is one accumulated failure from a sync cycle. Code carries the
// application error code when the cause has one.
type SyncError struct {
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	PendingID string `json:"pendingId,omitempty"`
	Message   string `json:"message"`
}

// newSyncError tags one failure for the result, surfacing the error code
// when the cause carries one.
func newSyncError(errType, pendingID string, err error) SyncError {
	se := SyncError{Type: errType, PendingID: pendingID, Message: err.Error()}

	var app *apperrors.AppError
	if stderrors.As(err, &app) {
		se.Code = string(app.Code)
	}
	return se
}

// offlineResult is the short-circuit outcome when the device has no
// connectivity: nothing is drained, nothing is fetched.
func offlineResult() Result {
	err := apperrors.New(apperrors.ErrSyncOffline, "device is offline")
	return Result{
		Success: false,
		Message: "no connectivity",
		Errors:  []SyncError{newSyncError(ErrTypeConnectivity, "", err)},
	}
}

// Counts reports what a sync cycle accomplished. Products and Sales are
// nil when the corresponding authoritative fetch failed; the pending
// counts are the number of queue entries successfully drained.
type Counts struct {
	Products        *int `json:"products,omitempty"`
	Sales           *int `json:"sales,omitempty"`
	PendingProducts int  `json:"pendingProducts"`
	PendingSales    int  `json:"pendingSales"`
}

// Result is the outcome of a sync cycle. Partial success is representable:
// Success is false when any error accumulated, but Data still reports
// whatever did succeed.
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    Counts      `json:"data"`
	Errors  []SyncError `json:"errors,omitempty"`
}

// Engine reconciles local pending mutations and local cache with remote
// authoritative state. One sync cycle runs at a time; a second caller
// blocks until the first completes.
type Engine struct {
	store    *store.Store
	products *queue.ProductQueue
	sales    *queue.SaleQueue
	remote   RemoteAPI
	online   func() bool
	log      *logging.Logger
	mu       stdsync.Mutex
}

// NewEngine creates an Engine over the given store and remote boundary.
// online is a cheap point-in-time connectivity query (no network I/O).
func NewEngine(st *store.Store, remote RemoteAPI, online func() bool) *Engine {
	return &Engine{
		store:    st,
		products: queue.NewProductQueue(st),
		sales:    queue.NewSaleQueue(st),
		remote:   remote,
		online:   online,
		log:      logging.Get(),
	}
}

// ProductQueue returns the engine's pending product queue, shared with the
// UI write path.
func (e *Engine) ProductQueue() *queue.ProductQueue { return e.products }

// SaleQueue returns the engine's pending sale queue.
func (e *Engine) SaleQueue() *queue.SaleQueue { return e.sales }

// SyncAll runs a full sync cycle: drain pending products, drain pending
// sales, then authoritative refetch of both collections. Products drain
// before sales because a queued sale may reference a product that must
// exist server-side first.
//
// Expected partial failures never surface as a Go error; they accumulate
// in the Result. The last-sync marker advances only when both
// authoritative fetches succeeded.
func (e *Engine) SyncAll(ctx context.Context) Result {
	if !e.online() {
		return offlineResult()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var result Result

	result.Data.PendingProducts = e.drainProducts(ctx, &result.Errors)
	result.Data.PendingSales = e.drainSales(ctx, &result.Errors)

	fetchFailed := false
	if n, ok := e.refetchProducts(ctx, &result.Errors); ok {
		result.Data.Products = &n
	} else {
		fetchFailed = true
	}
	if n, ok := e.refetchSales(ctx, &result.Errors); ok {
		result.Data.Sales = &n
	} else {
		fetchFailed = true
	}

	if !fetchFailed {
		e.store.SaveLastSync(time.Now())
	}

	result.Success = len(result.Errors) == 0
	if !result.Success {
		result.Message = "sync completed with errors"
	}

	e.log.Info("sync cycle finished", logging.Fields{
		"success":          result.Success,
		"drained_products": result.Data.PendingProducts,
		"drained_sales":    result.Data.PendingSales,
		"errors":           len(result.Errors),
	})

	return result
}

// SyncProducts drains the pending product queue and refetches the product
// collection, stamping last-sync on a clean fetch.
func (e *Engine) SyncProducts(ctx context.Context) Result {
	if !e.online() {
		return offlineResult()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var result Result
	result.Data.PendingProducts = e.drainProducts(ctx, &result.Errors)

	if n, ok := e.refetchProducts(ctx, &result.Errors); ok {
		result.Data.Products = &n
		e.store.SaveLastSync(time.Now())
	}

	result.Success = len(result.Errors) == 0
	return result
}

// SyncSales drains the pending sale queue and refetches the sale
// collection, stamping last-sync on a clean fetch.
func (e *Engine) SyncSales(ctx context.Context) Result {
	if !e.online() {
		return offlineResult()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var result Result
	result.Data.PendingSales = e.drainSales(ctx, &result.Errors)

	if n, ok := e.refetchSales(ctx, &result.Errors); ok {
		result.Data.Sales = &n
		e.store.SaveLastSync(time.Now())
	}

	result.Success = len(result.Errors) == 0
	return result
}

// drainProducts replays queued product mutations in insertion order.
// Each entry is removed from the queue the moment its remote call
// succeeds, so a later failure in the same batch can never re-apply it.
// A failed entry stays queued for the next cycle and does not block the
// entries behind it.
func (e *Engine) drainProducts(ctx context.Context, errs *[]SyncError) int {
	drained := 0

	for _, entry := range e.products.List() {
		var err error

		switch entry.Action {
		case models.ActionCreate:
			_, err = e.remote.CreateProduct(ctx, entry.Product, entry.IdempotencyKey)
		case models.ActionUpdate:
			_, err = e.remote.UpdateProduct(ctx, entry.ID, entry.Product, entry.IdempotencyKey)
		case models.ActionDelete:
			err = e.remote.DeleteProduct(ctx, entry.ID, entry.IdempotencyKey)
		default:
			e.log.Warn("unrecognized pending action, skipping", logging.Fields{
				"pending_id": entry.PendingID,
				"action":     string(entry.Action),
			})
			continue
		}

		if err != nil {
			*errs = append(*errs, newSyncError(ErrTypeProductOp, entry.PendingID, err))
			continue
		}

		e.products.Remove(entry.PendingID)
		drained++
	}

	return drained
}

// drainSales replays queued sale creations in insertion order with the
// same per-entry at-most-once removal as drainProducts.
func (e *Engine) drainSales(ctx context.Context, errs *[]SyncError) int {
	drained := 0

	for _, entry := range e.sales.List() {
		var err error

		switch entry.Action {
		case models.ActionCreate:
			_, err = e.remote.CreateSale(ctx, entry.SaleRequest, entry.IdempotencyKey)
		default:
			e.log.Warn("unrecognized pending action, skipping", logging.Fields{
				"pending_id": entry.PendingID,
				"action":     string(entry.Action),
			})
			continue
		}

		if err != nil {
			*errs = append(*errs, newSyncError(ErrTypeSaleOp, entry.PendingID, err))
			continue
		}

		e.sales.Remove(entry.PendingID)
		drained++
	}

	return drained
}

// refetchProducts replaces the cached product collection wholesale with
// the server listing. The cache is never merged field-by-field; the
// server's view supersedes local state entirely.
func (e *Engine) refetchProducts(ctx context.Context, errs *[]SyncError) (int, bool) {
	products, err := e.remote.ListProducts(ctx)
	if err != nil {
		*errs = append(*errs, newSyncError(ErrTypeProductFetch, "", err))
		return 0, false
	}

	e.store.SaveCollection(store.KindProducts, products)
	return len(products), true
}

// refetchSales replaces the cached sale collection wholesale with the
// server listing.
func (e *Engine) refetchSales(ctx context.Context, errs *[]SyncError) (int, bool) {
	sales, err := e.remote.ListSales(ctx)
	if err != nil {
		*errs = append(*errs, newSyncError(ErrTypeSaleFetch, "", err))
		return 0, false
	}

	e.store.SaveCollection(store.KindSales, sales)
	return len(sales), true
}
