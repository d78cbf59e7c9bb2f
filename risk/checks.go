package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    decimal.Decimal
	PlannedRiskPct decimal.Decimal
	PlannedRR      decimal.Decimal
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

var hundred = decimal.NewFromInt(100)

// Evaluate checks an intended entry against p and the current account.
func Evaluate(p Policy, in Intent, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	if in.Stop.IsZero() || in.Entry.IsZero() {
		d.add("NO_STOP_OR_ENTRY", "entry/stop must be set")
		return d
	}
	if !in.Quantity.IsPositive() {
		d.add("NO_QUANTITY", "quantity must be > 0")
		return d
	}

	d.PlannedRisk = PlannedRisk(in.Quantity, in.Entry, in.Stop, decimal.NewFromInt(1))
	pct, ok := RiskPct(d.PlannedRisk, acct.Equity)
	if !ok {
		d.add("NO_EQUITY", fmt.Sprintf("equity %s leaves no room for risk", acct.Equity))
		return d
	}
	d.PlannedRiskPct = pct
	if !in.TakeProfit.IsZero() {
		d.PlannedRR = RR(in.Entry, in.Stop, in.TakeProfit)
	}

	if p.MaxRiskPct.IsPositive() && pct.GreaterThan(p.MaxRiskPct) {
		d.add("RISK_TOO_HIGH", fmt.Sprintf("planned risk %s%% exceeds max %s%%",
			pct.Mul(hundred).StringFixed(2), p.MaxRiskPct.Mul(hundred).StringFixed(2)))
	}
	if p.MinRR.IsPositive() && !in.TakeProfit.IsZero() && d.PlannedRR.LessThan(p.MinRR) {
		d.add("RR_TOO_LOW", fmt.Sprintf("RR %s below minimum %s",
			d.PlannedRR.StringFixed(2), p.MinRR.StringFixed(2)))
	}
	if p.MaxOpenPositions > 0 && acct.OpenPositions >= p.MaxOpenPositions {
		d.add("TOO_MANY_OPEN_POSITIONS", fmt.Sprintf("open positions %d >= max %d",
			acct.OpenPositions, p.MaxOpenPositions))
	}
	if p.MaxMarginPct.IsPositive() && acct.MarginUsed.Div(acct.Equity).GreaterThan(p.MaxMarginPct) {
		d.add("MARGIN_TOO_HIGH", fmt.Sprintf("margin used %s%% exceeds max %s%%",
			acct.MarginUsed.Div(acct.Equity).Mul(hundred).StringFixed(2), p.MaxMarginPct.Mul(hundred).StringFixed(2)))
	}

	return d
}
