package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/market"
)

// ATR is a streaming Average True Range with Wilder smoothing.
type ATR struct {
	period    int
	atr       decimal.Decimal
	count     int
	warmupSum decimal.Decimal
	prev      market.Bar
	hasPrev   bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

// Warmup is period+1 since a true range needs the previous bar.
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() {
	a.atr = decimal.Zero
	a.count = 0
	a.warmupSum = decimal.Zero
	a.hasPrev = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}

	tr := trueRange(b, a.prev)
	p := decimal.NewFromInt(int64(a.period))
	if a.count < a.period {
		a.warmupSum = a.warmupSum.Add(tr)
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum.Div(p)
		}
	} else {
		a.atr = a.atr.Mul(p.Sub(decimal.NewFromInt(1))).Add(tr).Div(p)
	}
	a.prev = b
}

func (a *ATR) Ready() bool { return a.period > 0 && a.count >= a.period }

func (a *ATR) Value() decimal.Decimal {
	if !a.Ready() {
		return decimal.Zero
	}
	return a.atr
}

func trueRange(cur, prev market.Bar) decimal.Decimal {
	highLow := cur.High.Sub(cur.Low)
	highClose := cur.High.Sub(prev.Close).Abs()
	lowClose := cur.Low.Sub(prev.Close).Abs()
	return decimal.Max(highLow, highClose, lowClose)
}
