package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
)

// Rejection codes carried by ValidationError.
const (
	CodeInvalidID             = "invalid_id"
	CodeNameRequired          = "name_required"
	CodeCustomerNotFound      = "customer_not_found"
	CodeContractNotFound      = "contract_not_found"
	CodeServiceNotFound       = "service_not_found"
	CodePrestationNotSold     = "prestation_not_sold"
	CodeExceedsQuota          = "exceeds_quota"
	CodeOutsideContractPeriod = "outside_contract_period"
	CodeFutureActivity        = "future_activity"
	CodeDateRequired          = "date_required"
	CodeNonPositiveUnits      = "non_positive_units"
	CodeInvalidContractType   = "invalid_contract_type"
	CodeStartDateRequired     = "start_date_required"
	CodeEndDateRequired       = "end_date_required"
	CodeStartAfterEnd         = "start_after_end"
	CodeTrialTooLong          = "trial_too_long"
	CodePrestationsRequired   = "prestations_required"
	CodeContractOverlap       = "contract_overlap"
	CodeOpenPermanentExists   = "open_permanent_exists"
)

// ValidationError reports caller input that violates a business rule.
// It is returned to the caller as-is and never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Reject builds a ValidationError with a formatted message.
func Reject(code, format string, args ...interface{}) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps err into a ValidationError when it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsValidation reports whether err is a business rejection.
func IsValidation(err error) bool {
	_, ok := AsValidation(err)
	return ok
}

// HasCode reports whether err is a ValidationError with the given code.
func HasCode(err error, code string) bool {
	ve, ok := AsValidation(err)
	return ok && ve.Code == code
}
