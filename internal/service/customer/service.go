package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"contractledger/internal/lock"
	"contractledger/internal/logging"
	"contractledger/internal/metrics"
	custrepo "contractledger/internal/repository/customer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ContractValidator checks a draft against a customer's current contracts.
type ContractValidator interface {
	Validate(ctx context.Context, draft domain.ContractDraft, existing []domain.Contract) error
}

// Service owns the customer aggregate: creation and contract attachment.
type Service struct {
	repo      custrepo.Repository
	validator ContractValidator
	locker    lock.Locker
	metrics   *metrics.Metrics
	logger    *zap.Logger
	newID     func() string
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service. A nil locker falls back to an in-process one.
func New(repo custrepo.Repository, validator ContractValidator, locker lock.Locker, logger *zap.Logger, opts ...Option) *Service {
	if locker == nil {
		locker = lock.NewLocal()
	}
	s := &Service{
		repo:      repo,
		validator: validator,
		locker:    locker,
		logger:    logging.OrNop(logger),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput captures fields expected by the create customer endpoint.
type CreateInput struct {
	FirstName   string      `json:"firstName"`
	GivenName   string      `json:"givenName"`
	DateOfBirth *civil.Date `json:"dateOfBirth"`
}

// SoldPrestationInput is one line of a contract request.
type SoldPrestationInput struct {
	SalesSystemID             string          `json:"salesSystemId"`
	Units                     decimal.Decimal `json:"units"`
	TotalBilledAmountForUnits decimal.Decimal `json:"totalBilledAmountForUnits"`
}

// ContractInput captures fields expected by the add contract endpoint.
type ContractInput struct {
	Type            string                `json:"type"`
	StartDate       *civil.Date           `json:"startDate"`
	EndDate         *civil.Date           `json:"endDate"`
	SoldPrestations []SoldPrestationInput `json:"soldPrestations"`
}

// Page is one slice of a customer search.
type Page struct {
	Items []domain.Customer `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

// CreateCustomer persists a new customer with an empty contract list.
func (s *Service) CreateCustomer(ctx context.Context, in CreateInput) (*domain.Customer, error) {
	first := strings.TrimSpace(in.FirstName)
	given := strings.TrimSpace(in.GivenName)
	if first == "" {
		return nil, domain.Reject(domain.CodeNameRequired, "first name is required")
	}
	if given == "" {
		return nil, domain.Reject(domain.CodeNameRequired, "given name is required")
	}

	id, err := domain.NewCustomerID(s.newID())
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Save(ctx, domain.Customer{
		ID:          id,
		FirstName:   first,
		GivenName:   given,
		DateOfBirth: in.DateOfBirth,
		Contracts:   []domain.Contract{},
	})
	if err != nil {
		return nil, fmt.Errorf("save customer: %w", err)
	}
	s.logger.Info("customer created", zap.String("customer_id", saved.ID.String()))
	return saved, nil
}

// AddContract validates the draft against the customer's contracts and
// appends it. The whole customer document is then replaced.
func (s *Service) AddContract(ctx context.Context, rawCustomerID string, in ContractInput) (customer *domain.Customer, err error) {
	defer func() { s.metrics.ObserveContract(err) }()

	customerID, err := domain.NewCustomerID(rawCustomerID)
	if err != nil {
		return nil, err
	}
	draft, err := toDraft(in)
	if err != nil {
		return nil, err
	}

	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, lock.CustomerKey(customerID.String()))
	if err != nil {
		return nil, fmt.Errorf("lock customer %s: %w", customerID, err)
	}
	defer unlock()
	s.metrics.ObserveLockWait(time.Since(waitStart))

	current, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(ctx, draft, current.Contracts); err != nil {
		if ve, ok := domain.AsValidation(err); ok {
			s.logger.Info("contract rejected",
				zap.String("customer_id", customerID.String()),
				zap.String("code", ve.Code),
				zap.String("reason", ve.Message))
		}
		return nil, err
	}

	contractID, err := domain.NewContractID(s.newID())
	if err != nil {
		return nil, err
	}
	current.Contracts = append(current.Contracts, domain.Contract{
		ID:              contractID,
		Type:            draft.Type,
		Start:           *draft.Start,
		End:             draft.End,
		SoldPrestations: draft.SoldPrestations,
	})

	saved, err := s.repo.Save(ctx, *current)
	if err != nil {
		s.logger.Error("save customer after contract add", zap.String("customer_id", customerID.String()), zap.Error(err))
		return nil, fmt.Errorf("save customer %s: %w", customerID, err)
	}
	s.logger.Info("contract added",
		zap.String("customer_id", customerID.String()),
		zap.String("contract_id", contractID.String()),
		zap.String("type", string(draft.Type)))
	return saved, nil
}

// Get returns the customer; an unknown id is rejected with customer_not_found.
func (s *Service) Get(ctx context.Context, rawID string) (*domain.Customer, error) {
	id, err := domain.NewCustomerID(rawID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Search pages through customers whose first or given name contains name.
func (s *Service) Search(ctx context.Context, name string, page, size int) (*Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	items, total, err := s.repo.Search(ctx, strings.TrimSpace(name), page*size, size)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	if items == nil {
		items = []domain.Customer{}
	}
	return &Page{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *Service) load(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Reject(domain.CodeCustomerNotFound, "customer %s not found", id)
		}
		return nil, fmt.Errorf("load customer %s: %w", id, err)
	}
	return c, nil
}

func toDraft(in ContractInput) (domain.ContractDraft, error) {
	typ, err := domain.ParseContractType(in.Type)
	if err != nil {
		return domain.ContractDraft{}, err
	}
	sold := make([]domain.SoldPrestation, 0, len(in.SoldPrestations))
	for _, sp := range in.SoldPrestations {
		serviceID, err := domain.NewServiceID(sp.SalesSystemID)
		if err != nil {
			return domain.ContractDraft{}, err
		}
		sold = append(sold, domain.SoldPrestation{
			ServiceID:                 serviceID,
			Units:                     sp.Units,
			TotalBilledAmountForUnits: sp.TotalBilledAmountForUnits,
		})
	}
	return domain.ContractDraft{
		Type:            typ,
		Start:           in.StartDate,
		End:             in.EndDate,
		SoldPrestations: sold,
	}, nil
}
