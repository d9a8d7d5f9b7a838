package contract

import (
	"context"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
)

// Catalogue resolves service ids sold under a contract.
type Catalogue interface {
	Lookup(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error)
}

// Validator checks a contract draft against business rules and the
// customer's existing contracts. It never writes.
type Validator struct {
	catalogue Catalogue
}

func NewValidator(catalogue Catalogue) *Validator {
	return &Validator{catalogue: catalogue}
}

// Validate runs the checks in a fixed order and returns the first rejection.
// Any non-validation error comes from the catalogue and is returned unchanged.
func (v *Validator) Validate(ctx context.Context, draft domain.ContractDraft, existing []domain.Contract) error {
	if draft.Start == nil {
		return domain.Reject(domain.CodeStartDateRequired, "start date is required")
	}
	start := *draft.Start

	if draft.Type != domain.ContractPermanent && draft.End == nil {
		return domain.Reject(domain.CodeEndDateRequired, "end date is required for %s contracts", draft.Type)
	}
	if draft.End != nil && start.After(*draft.End) {
		return domain.Reject(domain.CodeStartAfterEnd, "start date %s is after end date %s", start, *draft.End)
	}
	if draft.Type == domain.ContractFreeTrial {
		limit := domain.AddMonths(start, 1)
		if draft.End.After(limit) {
			return domain.Reject(domain.CodeTrialTooLong, "free trial must end on or before %s", limit)
		}
	}

	if len(draft.SoldPrestations) == 0 {
		return domain.Reject(domain.CodePrestationsRequired, "at least one sold prestation is required")
	}
	for _, sp := range draft.SoldPrestations {
		if !sp.Units.IsPositive() {
			return domain.Reject(domain.CodeNonPositiveUnits, "units for service %s must be greater than zero", sp.ServiceID)
		}
	}
	for _, sp := range draft.SoldPrestations {
		if _, err := v.catalogue.Lookup(ctx, sp.ServiceID); err != nil {
			return err
		}
	}

	return checkOverlap(draft.Type, start, draft.End, existing)
}

func checkOverlap(typ domain.ContractType, start civil.Date, end *civil.Date, existing []domain.Contract) error {
	if typ == domain.ContractPermanent {
		for _, c := range existing {
			if c.Type == domain.ContractPermanent && c.OpenEnded() {
				return domain.Reject(domain.CodeOpenPermanentExists,
					"customer already holds open-ended permanent contract %s", c.ID)
			}
		}
	}
	for _, c := range existing {
		if overlaps(start, end, c.Start, c.End) {
			return domain.Reject(domain.CodeContractOverlap, "contract period overlaps contract %s", c.ID)
		}
	}
	return nil
}

// overlaps is a closed-interval intersection test; a nil end is +infinity.
func overlaps(s1 civil.Date, e1 *civil.Date, s2 civil.Date, e2 *civil.Date) bool {
	return (e2 == nil || !s1.After(*e2)) && (e1 == nil || !s2.After(*e1))
}
