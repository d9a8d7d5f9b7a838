package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ContractType distinguishes open-ended contracts from bounded trials.
type ContractType string

const (
	ContractPermanent ContractType = "PERMANENT"
	ContractFreeTrial ContractType = "FREE_TRIAL"
)

// ParseContractType normalizes raw input into a known ContractType.
func ParseContractType(raw string) (ContractType, error) {
	switch ContractType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ContractPermanent:
		return ContractPermanent, nil
	case ContractFreeTrial:
		return ContractFreeTrial, nil
	}
	return "", Reject(CodeInvalidContractType, "unknown contract type %q", raw)
}

// SoldPrestation is a quantity of one catalogue service sold under a contract.
type SoldPrestation struct {
	ServiceID                 ServiceID       `json:"salesSystemId"`
	Units                     decimal.Decimal `json:"units"`
	TotalBilledAmountForUnits decimal.Decimal `json:"totalBilledAmountForUnits"`
}

// Contract is a time-bounded agreement owned by a customer.
type Contract struct {
	ID              ContractID       `json:"id"`
	Type            ContractType     `json:"type"`
	Start           civil.Date       `json:"start"`
	End             *civil.Date      `json:"end,omitempty"`
	SoldPrestations []SoldPrestation `json:"soldPrestations"`
}

// OpenEnded reports whether the contract has no end date.
func (c Contract) OpenEnded() bool {
	return c.End == nil
}

// Covers reports whether d falls inside [Start, End]; a nil End is unbounded.
func (c Contract) Covers(d civil.Date) bool {
	if d.Before(c.Start) {
		return false
	}
	return c.End == nil || !d.After(*c.End)
}

// SoldPrestation returns the entry selling serviceID, if any.
func (c Contract) SoldPrestation(serviceID ServiceID) (SoldPrestation, bool) {
	for _, sp := range c.SoldPrestations {
		if sp.ServiceID == serviceID {
			return sp, true
		}
	}
	return SoldPrestation{}, false
}

// CommittedValue is the sum of amounts billed for all sold prestations.
func (c Contract) CommittedValue() decimal.Decimal {
	total := decimal.Zero
	for _, sp := range c.SoldPrestations {
		total = total.Add(sp.TotalBilledAmountForUnits)
	}
	return total
}

// ContractDraft is a proposed contract before validation and id assignment.
type ContractDraft struct {
	Type            ContractType
	Start           *civil.Date
	End             *civil.Date
	SoldPrestations []SoldPrestation
}

// Customer owns its contracts; the list only ever grows by appending.
type Customer struct {
	ID          CustomerID  `json:"id"`
	FirstName   string      `json:"firstName"`
	GivenName   string      `json:"givenName"`
	DateOfBirth *civil.Date `json:"dateOfBirth,omitempty"`
	Contracts   []Contract  `json:"contracts"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Contract finds a contract by id within the customer's list.
func (c Customer) Contract(id ContractID) (Contract, bool) {
	for _, ct := range c.Contracts {
		if ct.ID == id {
			return ct, true
		}
	}
	return Contract{}, false
}
