package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/market"
)

var hundred = decimal.NewFromInt(100)

// ADX implements Wilder's Average Directional Index (trend strength).
// Usage:
//
//	adx := indicators.NewADX(14)
//	adx.Update(bar)
//	if adx.Ready() && adx.Value().GreaterThanOrEqual(decimal.NewFromInt(25)) { ... }
type ADX struct {
	period int

	prev    market.Bar
	hasPrev bool

	// Wilder-smoothed TR, +DM and -DM once samples reaches period
	tr, pdm, mdm decimal.Decimal
	samples      int

	dxSum   decimal.Decimal
	dxCount int
	adx     decimal.Decimal
	ready   bool
}

func NewADX(period int) *ADX {
	return &ADX{period: period}
}

func (a *ADX) Name() string { return fmt.Sprintf("ADX(%d)", a.period) }

// Warmup is one seed bar, period bars to seed the smoothed ranges, then
// period DX values to seed the ADX.
func (a *ADX) Warmup() int { return 2*a.period + 1 }

func (a *ADX) Reset() {
	*a = ADX{period: a.period}
}

func (a *ADX) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}

	up := b.High.Sub(a.prev.High)
	down := a.prev.Low.Sub(b.Low)
	pdm, mdm := decimal.Zero, decimal.Zero
	if up.GreaterThan(down) && up.IsPositive() {
		pdm = up
	}
	if down.GreaterThan(up) && down.IsPositive() {
		mdm = down
	}
	tr := trueRange(b, a.prev)
	a.prev = b

	p := decimal.NewFromInt(int64(a.period))
	if a.samples < a.period {
		a.tr = a.tr.Add(tr)
		a.pdm = a.pdm.Add(pdm)
		a.mdm = a.mdm.Add(mdm)
		a.samples++
		if a.samples == a.period {
			a.tr = a.tr.Div(p)
			a.pdm = a.pdm.Div(p)
			a.mdm = a.mdm.Div(p)
		}
		return
	}

	a.tr = wilder(a.tr, tr, p)
	a.pdm = wilder(a.pdm, pdm, p)
	a.mdm = wilder(a.mdm, mdm, p)

	// no movement at all: DX is undefined
	den := a.pdm.Add(a.mdm)
	if a.tr.IsZero() || den.IsZero() {
		return
	}
	// DI+ and DI- share the TR denominator, so it cancels out of DX
	dx := a.pdm.Sub(a.mdm).Abs().Div(den).Mul(hundred)

	if !a.ready {
		a.dxSum = a.dxSum.Add(dx)
		a.dxCount++
		if a.dxCount == a.period {
			a.adx = a.dxSum.Div(p)
			a.ready = true
		}
		return
	}
	a.adx = wilder(a.adx, dx, p)
}

func (a *ADX) Ready() bool { return a.period > 0 && a.ready }

func (a *ADX) Value() decimal.Decimal {
	if !a.Ready() {
		return decimal.Zero
	}
	return a.adx
}

// PlusDI and MinusDI are the directional indicators in percent, zero
// until the smoothed ranges are seeded.
func (a *ADX) PlusDI() decimal.Decimal  { return a.di(a.pdm) }
func (a *ADX) MinusDI() decimal.Decimal { return a.di(a.mdm) }

func (a *ADX) di(dm decimal.Decimal) decimal.Decimal {
	if a.samples < a.period || a.tr.IsZero() {
		return decimal.Zero
	}
	return dm.Div(a.tr).Mul(hundred)
}

// wilder is one step of Wilder smoothing: (prev*(p-1) + x) / p.
func wilder(prev, x, p decimal.Decimal) decimal.Decimal {
	return prev.Mul(p.Sub(decimal.NewFromInt(1))).Add(x).Div(p)
}
