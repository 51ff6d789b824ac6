package orderbooks

import "time"

// OrderBook groups purchase orders under one numbering series, typically one
// per site or contract.
type OrderBook struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
