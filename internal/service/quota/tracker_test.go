package quota

import (
	"testing"

	"contractledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckAndReserve(t *testing.T) {
	cases := []struct {
		name                   string
		prior, requested, sold string
		ok                     bool
	}{
		{"under quota", "90", "5", "100", true},
		{"exactly at quota", "90", "10", "100", true},
		{"over quota", "90", "15", "100", false},
		{"fractional over", "99.5", "0.6", "100", false},
		{"first use", "0", "100", "100", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAndReserve("c-1", "A", d(tc.prior), d(tc.requested), d(tc.sold))
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, domain.HasCode(err, domain.CodeExceedsQuota))
		})
	}
}

func TestRemaining(t *testing.T) {
	assert.True(t, Remaining(d("40"), d("100")).Equal(d("60")))
	assert.True(t, Remaining(d("120"), d("100")).IsZero())
}
