package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrBadInputs = errors.New("bad sizing inputs")

type Inputs struct {
	Equity     decimal.Decimal
	RiskPct    decimal.Decimal // 0.005 for half a percent
	EntryPrice decimal.Decimal
	StopPrice  decimal.Decimal

	// QuoteToAccount converts quote currency to account currency.
	// Zero means 1.
	QuoteToAccount decimal.Decimal

	// Step is the quantity increment; the size is rounded down to it.
	// Zero means whole units.
	Step decimal.Decimal
}

type Result struct {
	Quantity     decimal.Decimal
	StopDistance decimal.Decimal
	RiskAmount   decimal.Decimal
}

// Size returns the largest quantity (in whole steps) whose loss at the
// stop stays within Equity*RiskPct.
func Size(in Inputs) (Result, error) {
	if !in.Equity.IsPositive() || !in.RiskPct.IsPositive() || !in.EntryPrice.IsPositive() {
		return Result{}, fmt.Errorf("%w: equity, risk and entry must be > 0", ErrBadInputs)
	}
	dist := in.EntryPrice.Sub(in.StopPrice).Abs()
	if dist.IsZero() {
		return Result{}, fmt.Errorf("%w: stop equals entry %s", ErrBadInputs, in.EntryPrice)
	}

	q2a := in.QuoteToAccount
	if q2a.IsZero() {
		q2a = decimal.NewFromInt(1)
	}
	step := in.Step
	if step.IsZero() {
		step = decimal.NewFromInt(1)
	}

	riskAmt := in.Equity.Mul(in.RiskPct)
	raw := riskAmt.Div(dist.Mul(q2a))
	qty := raw.Div(step).Floor().Mul(step)

	return Result{
		Quantity:     qty,
		StopDistance: dist,
		RiskAmount:   riskAmt,
	}, nil
}
