package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prestation is a catalogue entry: a billable service with a unit price.
type Prestation struct {
	ID        ServiceID       `json:"salesSystemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
