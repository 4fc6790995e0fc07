// Package api tests for the REST client boundary.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/relampagos/tindapos/backend/internal/errors"
	"github.com/relampagos/tindapos/backend/internal/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func writeEnvelope(w http.ResponseWriter, success bool, data any) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{"success": success}
	if data != nil {
		payload["data"] = data
	}
	json.NewEncoder(w).Encode(payload)
}

func TestListProducts(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		writeEnvelope(w, true, []models.Product{{ID: "1", Name: "Coke"}})
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Coke", products[0].Name)
}

func TestCreateProductSendsIdempotencyKey(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-123", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p models.Product
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "Coke", p.Name)

		p.ID = "srv-1"
		writeEnvelope(w, true, p)
	})

	created, err := client.CreateProduct(context.Background(), models.Product{Name: "Coke"}, "key-123")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", created.ID)
}

func TestUpdateProductPath(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/products/42", r.URL.Path)
		writeEnvelope(w, true, models.Product{ID: "42", Price: 30})
	})

	updated, err := client.UpdateProduct(context.Background(), "42", models.Product{Price: 30}, "k")
	require.NoError(t, err)
	assert.Equal(t, "42", updated.ID)
}

func TestDeleteProduct(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/products/42", r.URL.Path)
		writeEnvelope(w, true, nil)
	})

	require.NoError(t, client.DeleteProduct(context.Background(), "42", "k"))
}

func TestCreateSale(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sales", r.URL.Path)
		writeEnvelope(w, true, models.Sale{ID: "s1", Total: 125})
	})

	sale, err := client.CreateSale(context.Background(), models.SaleRequest{Total: 125}, "k")
	require.NoError(t, err)
	assert.Equal(t, "s1", sale.ID)
}

func TestErrorStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "duplicate barcode"})
	})

	_, err := client.CreateProduct(context.Background(), models.Product{Name: "Coke"}, "k")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAPIRequest), "error should carry the request-failed code")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr), "error should wrap *api.Error")
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "products.create", apiErr.Op)
	assert.Contains(t, apiErr.Message, "duplicate barcode")
}

func TestBusinessRejection(t *testing.T) {
	// HTTP 200 with success=false still surfaces as an error.
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, false, nil)
	})

	_, err := client.ListSales(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "sales.list", apiErr.Op)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, time.Second)

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAPIUnavailable), "transport failures should carry the unavailable code")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.Status, "transport failures carry no HTTP status")
}

func TestMalformedResponse(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	})

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
}
