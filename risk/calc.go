// Package risk sizes entries and checks them against a risk policy.
package risk

import (
	"github.com/shopspring/decimal"
)

// PlannedRisk is the account-currency loss if the stop is hit.
// quoteToAccount converts the instrument's quote currency to the account
// currency (1 for EUR_USD in a USD account).
func PlannedRisk(quantity, entry, stop, quoteToAccount decimal.Decimal) decimal.Decimal {
	return entry.Sub(stop).Abs().Mul(quantity.Abs()).Mul(quoteToAccount)
}

// RR is the reward-to-risk ratio of a bracket. Zero risk gives zero.
func RR(entry, stop, takeProfit decimal.Decimal) decimal.Decimal {
	risk := entry.Sub(stop).Abs()
	if risk.IsZero() {
		return decimal.Zero
	}
	return takeProfit.Sub(entry).Abs().Div(risk)
}

// RiskPct is planned risk as a fraction of equity.
func RiskPct(plannedRisk, equity decimal.Decimal) (decimal.Decimal, bool) {
	if !equity.IsPositive() {
		return decimal.Zero, false
	}
	return plannedRisk.Div(equity), true
}

// Bracket places a stop distance away from entry on the losing side and
// a take-profit rr times that distance on the winning side. long selects
// the direction.
func Bracket(long bool, entry, distance, rr decimal.Decimal) (stop, takeProfit decimal.Decimal) {
	reward := distance.Mul(rr)
	if long {
		return entry.Sub(distance), entry.Add(reward)
	}
	return entry.Add(distance), entry.Sub(reward)
}
