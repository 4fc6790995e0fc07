// Package models provides data model definitions for the TindaPOS backend.
package models

import "time"

// Product represents a catalog item in the storefront.
type Product struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Barcode   string    `json:"barcode,omitempty"`
	Category  string    `json:"category,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Cost      float64   `json:"cost,omitempty"`
	Stock     int       `json:"stock,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}
