// Package api provides the REST client for the remote products and sales
// resources. It is a thin request/response boundary: every failure,
// transport or business, surfaces as a typed *Error and is treated
// uniformly by the sync engine.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/relampagos/tindapos/backend/internal/errors"
	"github.com/relampagos/tindapos/backend/internal/models"
)

// Error is a failed remote call. Status is zero for transport failures.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Client talks to the remote POS API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// envelope is the standard response wrapper used by the server.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// do executes one request and decodes the response envelope into out (when
// out is non-nil). Failures are tagged with an error code so callers can
// tell an unreachable server apart from a rejected request.
func (c *Client) do(ctx context.Context, op, method, path string, body any, idemKey string, out any) error {
	err := c.roundTrip(ctx, op, method, path, body, idemKey, out)
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == 0 {
		return apperrors.Wrap(apperrors.ErrAPIUnavailable, "server unreachable", err)
	}
	return apperrors.Wrap(apperrors.ErrAPIRequest, "request failed", err)
}

// roundTrip performs the HTTP exchange. idemKey, when set, is sent as the
// Idempotency-Key header so a replayed mutation can be deduplicated
// server-side.
func (c *Client) roundTrip(ctx context.Context, op, method, path string, body any, idemKey string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		var env envelope
		if json.Unmarshal(data, &env) == nil && env.Message != "" {
			msg = env.Message
		}
		return &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request rejected"
		}
		return &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("decode data: %v", err)}
		}
	}
	return nil
}

// ListProducts fetches the authoritative product collection.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, "products.list", http.MethodGet, "/products", nil, "", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct creates a product on the server.
func (c *Client) CreateProduct(ctx context.Context, p models.Product, idemKey string) (*models.Product, error) {
	var created models.Product
	if err := c.do(ctx, "products.create", http.MethodPost, "/products", p, idemKey, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProduct updates the product with the given id. The payload may be
// partial; omitted fields are left unchanged by the server.
func (c *Client) UpdateProduct(ctx context.Context, id string, p models.Product, idemKey string) (*models.Product, error) {
	var updated models.Product
	if err := c.do(ctx, "products.update", http.MethodPut, "/products/"+id, p, idemKey, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProduct deletes the product with the given id.
func (c *Client) DeleteProduct(ctx context.Context, id string, idemKey string) error {
	return c.do(ctx, "products.delete", http.MethodDelete, "/products/"+id, nil, idemKey, nil)
}

// ListSales fetches the authoritative sale collection.
func (c *Client) ListSales(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	if err := c.do(ctx, "sales.list", http.MethodGet, "/sales", nil, "", &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// CreateSale records a sale on the server.
func (c *Client) CreateSale(ctx context.Context, sale models.SaleRequest, idemKey string) (*models.Sale, error) {
	var created models.Sale
	if err := c.do(ctx, "sales.create", http.MethodPost, "/sales", sale, idemKey, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
