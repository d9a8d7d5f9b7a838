package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"github.com/shopspring/decimal"
)

// DemoCustomerID is the fixed id of the seeded customer.
const DemoCustomerID domain.CustomerID = "demo-customer"

type PrestationWriter interface {
	Upsert(ctx context.Context, p domain.Prestation) (*domain.Prestation, error)
}

type CustomerStore interface {
	GetByID(ctx context.Context, id domain.CustomerID) (*domain.Customer, error)
	Save(ctx context.Context, c domain.Customer) (*domain.Customer, error)
}

type prestationSeed struct {
	ID    string
	Name  string
	Price string
}

var prestations = []prestationSeed{
	{ID: "AUDIT-DAY", Name: "Audit day", Price: "850.00"},
	{ID: "SUPPORT-HOUR", Name: "Support hour", Price: "95.50"},
	{ID: "TRAINING-SEAT", Name: "Training seat", Price: "420.00"},
}

// Apply upserts the demo catalogue and, when absent, a demo customer holding
// one open PERMANENT contract. Running it again changes nothing.
func Apply(ctx context.Context, catalogue PrestationWriter, customers CustomerStore) error {
	for _, p := range prestations {
		_, err := catalogue.Upsert(ctx, domain.Prestation{
			ID:        domain.ServiceID(p.ID),
			Name:      p.Name,
			UnitPrice: decimal.RequireFromString(p.Price),
		})
		if err != nil {
			return fmt.Errorf("upsert prestation %s: %w", p.ID, err)
		}
	}

	_, err := customers.GetByID(ctx, DemoCustomerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load demo customer: %w", err)
	}

	dob := civil.Date{Year: 1985, Month: time.March, Day: 14}
	_, err = customers.Save(ctx, domain.Customer{
		ID:          DemoCustomerID,
		FirstName:   "Demo",
		GivenName:   "Customer",
		DateOfBirth: &dob,
		Contracts: []domain.Contract{{
			ID:    "demo-contract",
			Type:  domain.ContractPermanent,
			Start: civil.Date{Year: 2024, Month: time.January, Day: 1},
			SoldPrestations: []domain.SoldPrestation{
				{ServiceID: "AUDIT-DAY", Units: decimal.NewFromInt(10), TotalBilledAmountForUnits: decimal.RequireFromString("8000.00")},
				{ServiceID: "SUPPORT-HOUR", Units: decimal.NewFromInt(100), TotalBilledAmountForUnits: decimal.RequireFromString("9000.00")},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("save demo customer: %w", err)
	}
	return nil
}
