package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Activity is a single usage event consuming units of a prestation under a contract.
type Activity struct {
	ID            ActivityID      `json:"id"`
	CustomerID    CustomerID      `json:"customerId"`
	ContractID    ContractID      `json:"contractId"`
	ServiceID     ServiceID       `json:"salesSystemId"`
	Name          string          `json:"name"`
	DoneOn        civil.Date      `json:"doneOn"`
	UnitsConsumed decimal.Decimal `json:"unitsConsumed"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SumUnits totals the units consumed by activities.
func SumUnits(activities []Activity) decimal.Decimal {
	total := decimal.Zero
	for _, a := range activities {
		total = total.Add(a.UnitsConsumed)
	}
	return total
}
