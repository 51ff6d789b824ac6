package units

import "time"

// Unit is one entry of the unit-of-measure catalogue. The catalogue grows as
// a side effect of saving purchase-order lines; rows are never edited.
type Unit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
