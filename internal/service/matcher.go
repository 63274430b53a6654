package service

import (
	"errors"

	"github.com/shopspring/decimal"

	"payout-gateway/internal/core/domain"
)

// Payable amount probing. Each pending deposit must carry a payable
// amount that is unique among all currently active deposits, so an
// incoming transfer can be matched back to its deposit by amount alone.
const (
	// matcherMaxAttempts bounds how many candidate amounts are tried.
	matcherMaxAttempts = 100
)

var (
	// matcherStep is subtracted from the requested amount on each probe.
	matcherStep = decimal.New(1, -4) // 0.0001

	// matcherMaxDelta is the largest total deviation from the requested
	// amount a user can be asked to pay.
	matcherMaxDelta = decimal.New(1, -2) // 0.01

	errAmountExhausted = errors.New("no free payable amount")
)

// uniquePayableAmount rounds requested to the payable scale and returns
// it if no active deposit uses it. Otherwise it probes downward in
// matcherStep increments until a free amount is found. It fails once
// either the attempt budget or the maximum deviation is exceeded.
//
// used holds the payable amounts of all active deposits, keyed by
// payableKey. The caller must hold whatever lock makes the read of the
// active set and the subsequent insert atomic.
func uniquePayableAmount(requested decimal.Decimal, used map[string]struct{}) (decimal.Decimal, error) {
	rounded := requested.Round(domain.ScalePayable)

	if _, taken := used[payableKey(rounded)]; !taken {
		return rounded, nil
	}

	for attempt := 1; attempt <= matcherMaxAttempts; attempt++ {
		delta := matcherStep.Mul(decimal.NewFromInt(int64(attempt)))
		if delta.GreaterThan(matcherMaxDelta) {
			break
		}

		candidate := rounded.Sub(delta)
		if !candidate.IsPositive() {
			break
		}

		if _, taken := used[payableKey(candidate)]; !taken {
			return candidate, nil
		}
	}

	return decimal.Decimal{}, errAmountExhausted
}

// payableKey canonicalizes an amount for set membership. Rounding before
// String strips scale differences such as 49.9990 vs 49.999.
func payableKey(amount decimal.Decimal) string {
	return amount.Round(domain.ScalePayable).String()
}
