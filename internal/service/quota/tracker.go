// Package quota decides whether a usage event fits in the units sold.
package quota

import (
	"contractledger/internal/domain"
	"github.com/shopspring/decimal"
)

// CheckAndReserve accepts iff prior+requested <= sold. Reaching the quota
// exactly is allowed. It performs no aggregation and holds nothing.
func CheckAndReserve(contractID domain.ContractID, serviceID domain.ServiceID, prior, requested, sold decimal.Decimal) error {
	total := prior.Add(requested)
	if total.GreaterThan(sold) {
		return domain.Reject(domain.CodeExceedsQuota,
			"exceeds quota for service %s in contract %s: %s consumed + %s requested > %s sold",
			serviceID, contractID, prior, requested, sold)
	}
	return nil
}

// Remaining is the number of units still available, never below zero.
func Remaining(prior, sold decimal.Decimal) decimal.Decimal {
	left := sold.Sub(prior)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}
