package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalogue struct {
	known map[domain.ServiceID]bool
	err   error
}

func (s stubCatalogue) Lookup(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.known[id] {
		return nil, domain.Reject(domain.CodeServiceNotFound, "service %s not found", id)
	}
	return &domain.Prestation{ID: id, UnitPrice: decimal.NewFromInt(10)}, nil
}

func day(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func ptr(d civil.Date) *civil.Date {
	return &d
}

func sold(id domain.ServiceID, units int64) []domain.SoldPrestation {
	return []domain.SoldPrestation{{ServiceID: id, Units: decimal.NewFromInt(units), TotalBilledAmountForUnits: decimal.NewFromInt(units * 10)}}
}

func newValidator() *Validator {
	return NewValidator(stubCatalogue{known: map[domain.ServiceID]bool{"A": true, "B": true}})
}

func TestValidate_Rejections(t *testing.T) {
	openPermanent := domain.Contract{ID: "p-1", Type: domain.ContractPermanent, Start: day(2024, time.January, 1)}
	closedTrial := domain.Contract{ID: "t-1", Type: domain.ContractFreeTrial, Start: day(2023, time.June, 1), End: ptr(day(2023, time.June, 30))}

	cases := []struct {
		name     string
		draft    domain.ContractDraft
		existing []domain.Contract
		code     string
	}{
		{
			name:  "missing start",
			draft: domain.ContractDraft{Type: domain.ContractPermanent, SoldPrestations: sold("A", 1)},
			code:  domain.CodeStartDateRequired,
		},
		{
			name:  "trial without end",
			draft: domain.ContractDraft{Type: domain.ContractFreeTrial, Start: ptr(day(2024, time.January, 1)), SoldPrestations: sold("A", 1)},
			code:  domain.CodeEndDateRequired,
		},
		{
			name:  "start after end",
			draft: domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2024, time.March, 1)), End: ptr(day(2024, time.February, 1)), SoldPrestations: sold("A", 1)},
			code:  domain.CodeStartAfterEnd,
		},
		{
			name:  "trial longer than one month",
			draft: domain.ContractDraft{Type: domain.ContractFreeTrial, Start: ptr(day(2024, time.January, 1)), End: ptr(day(2024, time.February, 2)), SoldPrestations: sold("A", 1)},
			code:  domain.CodeTrialTooLong,
		},
		{
			name:  "no prestations",
			draft: domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2024, time.January, 1))},
			code:  domain.CodePrestationsRequired,
		},
		{
			name:  "zero units",
			draft: domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2024, time.January, 1)), SoldPrestations: sold("A", 0)},
			code:  domain.CodeNonPositiveUnits,
		},
		{
			name:  "unknown service",
			draft: domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2024, time.January, 1)), SoldPrestations: sold("Z", 1)},
			code:  domain.CodeServiceNotFound,
		},
		{
			name:     "second open permanent regardless of start",
			draft:    domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2010, time.January, 1)), End: ptr(day(2010, time.December, 31)), SoldPrestations: sold("A", 1)},
			existing: []domain.Contract{openPermanent},
			code:     domain.CodeOpenPermanentExists,
		},
		{
			name:     "trial after open permanent overlaps",
			draft:    domain.ContractDraft{Type: domain.ContractFreeTrial, Start: ptr(day(2025, time.January, 1)), End: ptr(day(2025, time.January, 15)), SoldPrestations: sold("A", 1)},
			existing: []domain.Contract{openPermanent},
			code:     domain.CodeContractOverlap,
		},
		{
			name:     "shared boundary day overlaps",
			draft:    domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2023, time.June, 30)), SoldPrestations: sold("A", 1)},
			existing: []domain.Contract{closedTrial},
			code:     domain.CodeContractOverlap,
		},
	}

	v := newValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tc.draft, tc.existing)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestValidate_Accepts(t *testing.T) {
	closedTrial := domain.Contract{ID: "t-1", Type: domain.ContractFreeTrial, Start: day(2023, time.June, 1), End: ptr(day(2023, time.June, 30))}
	v := newValidator()

	cases := []struct {
		name     string
		draft    domain.ContractDraft
		existing []domain.Contract
	}{
		{
			name:  "open permanent",
			draft: domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2024, time.January, 1)), SoldPrestations: sold("A", 100)},
		},
		{
			name:  "single day trial",
			draft: domain.ContractDraft{Type: domain.ContractFreeTrial, Start: ptr(day(2024, time.January, 1)), End: ptr(day(2024, time.January, 1)), SoldPrestations: sold("A", 1)},
		},
		{
			name:  "trial of exactly one month",
			draft: domain.ContractDraft{Type: domain.ContractFreeTrial, Start: ptr(day(2024, time.January, 1)), End: ptr(day(2024, time.February, 1)), SoldPrestations: sold("B", 1)},
		},
		{
			name:     "permanent starting the day after trial",
			draft:    domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2023, time.July, 1)), SoldPrestations: sold("A", 1)},
			existing: []domain.Contract{closedTrial},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, v.Validate(context.Background(), tc.draft, tc.existing))
		})
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	// Both missing end and missing prestations; the date check comes first.
	draft := domain.ContractDraft{Type: domain.ContractFreeTrial, Start: ptr(day(2024, time.January, 1))}
	err := newValidator().Validate(context.Background(), draft, nil)
	assert.True(t, domain.HasCode(err, domain.CodeEndDateRequired))
}

func TestValidate_CatalogueFailurePropagates(t *testing.T) {
	boom := errors.New("db down")
	v := NewValidator(stubCatalogue{err: boom})
	draft := domain.ContractDraft{Type: domain.ContractPermanent, Start: ptr(day(2024, time.January, 1)), SoldPrestations: sold("A", 1)}

	err := v.Validate(context.Background(), draft, nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, domain.IsValidation(err))
}
