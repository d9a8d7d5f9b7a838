package domain

import "strings"

// CustomerID identifies a customer document.
type CustomerID string

// ContractID identifies a contract inside a customer's contract list.
type ContractID string

// ServiceID is the externally assigned catalogue id (sales system id).
type ServiceID string

// ActivityID identifies a recorded usage event.
type ActivityID string

func NewCustomerID(raw string) (CustomerID, error) {
	v, err := nonBlank(raw, "customer id")
	return CustomerID(v), err
}

func NewContractID(raw string) (ContractID, error) {
	v, err := nonBlank(raw, "contract id")
	return ContractID(v), err
}

func NewServiceID(raw string) (ServiceID, error) {
	v, err := nonBlank(raw, "service id")
	return ServiceID(v), err
}

func NewActivityID(raw string) (ActivityID, error) {
	v, err := nonBlank(raw, "activity id")
	return ActivityID(v), err
}

func (id CustomerID) String() string { return string(id) }
func (id ContractID) String() string { return string(id) }
func (id ServiceID) String() string  { return string(id) }
func (id ActivityID) String() string { return string(id) }

func nonBlank(raw, what string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", Reject(CodeInvalidID, "%s cannot be empty", what)
	}
	return v, nil
}
