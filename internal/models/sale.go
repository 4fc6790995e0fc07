package models

import "time"

// SaleItem represents one line of a recorded sale.
type SaleItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// Sale represents a completed sale as known by the server.
type Sale struct {
	ID            string     `json:"id"`
	Items         []SaleItem `json:"items"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitzero"`
}

// SaleRequest is the payload used to create a sale on the server.
// It carries no server-assigned ID.
type SaleRequest struct {
	Items         []SaleItem `json:"items,omitempty"`
	Total         float64    `json:"total,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitzero"`
}
