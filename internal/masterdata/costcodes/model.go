package costcodes

import "time"

// CostCode links a purchase order to a project cost allocation.
type CostCode struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
