package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"contractledger/internal/lock"
	"contractledger/internal/logging"
	"contractledger/internal/metrics"
	activityrepo "contractledger/internal/repository/activity"
	custrepo "contractledger/internal/repository/customer"
	"contractledger/internal/service/quota"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalogue resolves the display details of a service.
type Catalogue interface {
	Lookup(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error)
}

// Service records usage events against contracts and lists them.
type Service struct {
	customers  custrepo.Repository
	activities activityrepo.Repository
	catalogue  Catalogue
	locker     lock.Locker
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service. A nil locker falls back to an in-process one.
func New(customers custrepo.Repository, activities activityrepo.Repository, catalogue Catalogue, locker lock.Locker, logger *zap.Logger, opts ...Option) *Service {
	if locker == nil {
		locker = lock.NewLocal()
	}
	s := &Service{
		customers:  customers,
		activities: activities,
		catalogue:  catalogue,
		locker:     locker,
		logger:     logging.OrNop(logger),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordInput captures fields expected by the record activity endpoint.
type RecordInput struct {
	CustomerID    string          `json:"customerId"`
	ContractID    string          `json:"contractId"`
	SalesSystemID string          `json:"salesSystemId"`
	DoneOn        *civil.Date     `json:"doneOn"`
	UnitsConsumed decimal.Decimal `json:"unitsConsumed"`
}

// Record validates a usage event and stores it. Every failure before the
// final insert is a validation rejection and nothing is written.
func (s *Service) Record(ctx context.Context, in RecordInput) (activity *domain.Activity, err error) {
	defer func() { s.metrics.ObserveActivity(err) }()
	defer func() {
		if ve, ok := domain.AsValidation(err); ok {
			s.logger.Info("activity rejected",
				zap.String("customer_id", in.CustomerID),
				zap.String("contract_id", in.ContractID),
				zap.String("sales_system_id", in.SalesSystemID),
				zap.String("code", ve.Code),
				zap.String("reason", ve.Message))
		}
	}()

	customerID, err := domain.NewCustomerID(in.CustomerID)
	if err != nil {
		return nil, err
	}
	contractID, err := domain.NewContractID(in.ContractID)
	if err != nil {
		return nil, err
	}
	serviceID, err := domain.NewServiceID(in.SalesSystemID)
	if err != nil {
		return nil, err
	}

	if !in.UnitsConsumed.IsPositive() {
		return nil, domain.Reject(domain.CodeNonPositiveUnits, "units consumed must be greater than zero")
	}
	if in.DoneOn == nil {
		return nil, domain.Reject(domain.CodeDateRequired, "doneOn is required")
	}
	doneOn := *in.DoneOn
	if today := domain.Today(s.now()); doneOn.After(today) {
		return nil, domain.Reject(domain.CodeFutureActivity, "activity date %s is after today %s", doneOn, today)
	}

	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, lock.CustomerKey(customerID.String()))
	if err != nil {
		return nil, fmt.Errorf("lock customer %s: %w", customerID, err)
	}
	defer unlock()
	s.metrics.ObserveLockWait(time.Since(waitStart))

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Reject(domain.CodeCustomerNotFound, "customer %s not found", customerID)
		}
		return nil, fmt.Errorf("load customer %s: %w", customerID, err)
	}

	contract, ok := customer.Contract(contractID)
	if !ok {
		return nil, domain.Reject(domain.CodeContractNotFound, "contract %s not found for customer %s", contractID, customerID)
	}
	if !contract.Covers(doneOn) {
		return nil, domain.Reject(domain.CodeOutsideContractPeriod, "activity date %s is outside contract %s period", doneOn, contractID)
	}

	sold, ok := contract.SoldPrestation(serviceID)
	if !ok {
		return nil, domain.Reject(domain.CodePrestationNotSold, "prestation %s not sold in contract %s", serviceID, contractID)
	}

	prior, err := s.activities.ListByContractAndService(ctx, contractID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list prior activities: %w", err)
	}
	consumed := domain.SumUnits(prior)
	if err := quota.CheckAndReserve(contractID, serviceID, consumed, in.UnitsConsumed, sold.Units); err != nil {
		return nil, err
	}

	prestation, err := s.catalogue.Lookup(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	activityID, err := domain.NewActivityID(s.newID())
	if err != nil {
		return nil, err
	}
	created, err := s.activities.Create(ctx, domain.Activity{
		ID:            activityID,
		CustomerID:    customerID,
		ContractID:    contractID,
		ServiceID:     serviceID,
		Name:          prestation.Name,
		DoneOn:        doneOn,
		UnitsConsumed: in.UnitsConsumed,
	})
	if err != nil {
		s.logger.Error("persist activity", zap.String("contract_id", contractID.String()), zap.Error(err))
		return nil, fmt.Errorf("persist activity: %w", err)
	}

	s.logger.Info("activity recorded",
		zap.String("activity_id", created.ID.String()),
		zap.String("contract_id", contractID.String()),
		zap.String("sales_system_id", serviceID.String()),
		zap.String("units", in.UnitsConsumed.String()),
		zap.String("remaining_units", quota.Remaining(consumed.Add(in.UnitsConsumed), sold.Units).String()))
	return created, nil
}

// ListByContract returns every activity recorded for contractID.
func (s *Service) ListByContract(ctx context.Context, rawContractID string) ([]domain.Activity, error) {
	contractID, err := domain.NewContractID(rawContractID)
	if err != nil {
		return nil, err
	}
	items, err := s.activities.ListByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if items == nil {
		items = []domain.Activity{}
	}
	return items, nil
}
