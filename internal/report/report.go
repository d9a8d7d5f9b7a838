// Package report reconciles billed usage against the value committed by
// each still-open contract.
package report

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"contractledger/internal/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const loadConcurrency = 8

type CustomerLister interface {
	List(ctx context.Context) ([]domain.Customer, error)
}

type ActivityLister interface {
	ListByContract(ctx context.Context, contractID domain.ContractID) ([]domain.Activity, error)
}

type CatalogueSource interface {
	AllEntries(ctx context.Context) (map[domain.ServiceID]domain.Prestation, error)
}

// Row is one reconciled contract.
type Row struct {
	CustomerID domain.CustomerID
	ContractID domain.ContractID
	Billed     decimal.Decimal
	Remaining  decimal.Decimal
}

// Generator computes reconciliation rows from a read-only snapshot.
type Generator struct {
	customers  CustomerLister
	activities ActivityLister
	catalogue  CatalogueSource
	logger     *zap.Logger
	now        func() time.Time
}

func NewGenerator(customers CustomerLister, activities ActivityLister, catalogue CatalogueSource, logger *zap.Logger) *Generator {
	return &Generator{
		customers:  customers,
		activities: activities,
		catalogue:  catalogue,
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
}

// WithClock overrides the time source used to compute "yesterday".
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate returns one row per contract whose end is absent or not before
// yesterday, in customer then contract order. Activities whose service is
// missing from the catalogue count as zero.
func (g *Generator) Generate(ctx context.Context) ([]Row, error) {
	customers, err := g.customers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	if len(customers) == 0 {
		g.logger.Info("report: no customers")
		return nil, nil
	}
	prices, err := g.catalogue.AllEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}

	yesterday := domain.Today(g.now()).AddDays(-1)
	var open []openContract
	for _, c := range customers {
		for _, ct := range c.Contracts {
			if stillOpen(ct, yesterday) {
				open = append(open, openContract{customerID: c.ID, contract: ct})
			}
		}
	}
	if len(open) == 0 {
		return nil, nil
	}

	rows := make([]Row, len(open))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(loadConcurrency)
	for i, oc := range open {
		i, oc := i, oc
		eg.Go(func() error {
			activities, err := g.activities.ListByContract(egCtx, oc.contract.ID)
			if err != nil {
				return fmt.Errorf("load activities for contract %s: %w", oc.contract.ID, err)
			}
			billed := g.billed(oc.contract.ID, activities, prices)
			rows[i] = Row{
				CustomerID: oc.customerID,
				ContractID: oc.contract.ID,
				Billed:     billed,
				Remaining:  oc.contract.CommittedValue().Sub(billed),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

type openContract struct {
	customerID domain.CustomerID
	contract   domain.Contract
}

func stillOpen(c domain.Contract, yesterday civil.Date) bool {
	return c.End == nil || !c.End.Before(yesterday)
}

func (g *Generator) billed(contractID domain.ContractID, activities []domain.Activity, prices map[domain.ServiceID]domain.Prestation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range activities {
		p, ok := prices[a.ServiceID]
		if !ok {
			g.logger.Warn("report: service missing from catalogue, counted as zero",
				zap.String("contract_id", contractID.String()),
				zap.String("activity_id", a.ID.String()),
				zap.String("sales_system_id", a.ServiceID.String()))
			continue
		}
		total = total.Add(a.UnitsConsumed.Mul(p.UnitPrice))
	}
	return total
}
