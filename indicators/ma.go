package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/market"
)

// MA calculates the Simple Moving Average of the last period closes.
func MA(bars []market.Bar, period int) (decimal.Decimal, error) {
	if err := checkPeriod(len(bars), period); err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, b := range bars[len(bars)-period:] {
		sum = sum.Add(b.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// EMA calculates the Exponential Moving Average over all bars, seeded
// with the SMA of the first period closes.
func EMA(bars []market.Bar, period int) (decimal.Decimal, error) {
	if err := checkPeriod(len(bars), period); err != nil {
		return decimal.Zero, err
	}

	e := NewEMA(period)
	for _, b := range bars {
		e.Update(b)
	}
	return e.Value(), nil
}

func checkPeriod(n, period int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	if n < period {
		return fmt.Errorf("not enough bars: need %d, got %d", period, n)
	}
	return nil
}

// SimpleMA is a streaming Simple Moving Average of closes.
type SimpleMA struct {
	period int
	closes []decimal.Decimal
	sum    decimal.Decimal
}

func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		closes: make([]decimal.Decimal, 0, period),
	}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("MA(%d)", m.period) }

func (m *SimpleMA) Warmup() int { return m.period }

func (m *SimpleMA) Reset() {
	m.closes = m.closes[:0]
	m.sum = decimal.Zero
}

func (m *SimpleMA) Update(b market.Bar) {
	m.closes = append(m.closes, b.Close)
	m.sum = m.sum.Add(b.Close)
	// keep only the last period closes
	if len(m.closes) > m.period {
		m.sum = m.sum.Sub(m.closes[0])
		m.closes = m.closes[1:]
	}
}

func (m *SimpleMA) Ready() bool { return m.period > 0 && len(m.closes) >= m.period }

func (m *SimpleMA) Value() decimal.Decimal {
	if !m.Ready() {
		return decimal.Zero
	}
	return m.sum.Div(decimal.NewFromInt(int64(m.period)))
}

// ExponentialMA is a streaming Exponential Moving Average of closes.
type ExponentialMA struct {
	period     int
	multiplier decimal.Decimal
	ema        decimal.Decimal
	count      int
	warmupSum  decimal.Decimal
}

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1))),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *ExponentialMA) Warmup() int { return e.period }

func (e *ExponentialMA) Reset() {
	e.ema = decimal.Zero
	e.count = 0
	e.warmupSum = decimal.Zero
}

func (e *ExponentialMA) Update(b market.Bar) {
	if e.count < e.period {
		// seed with the SMA of the warmup closes
		e.warmupSum = e.warmupSum.Add(b.Close)
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum.Div(decimal.NewFromInt(int64(e.period)))
		}
		return
	}
	e.ema = b.Close.Sub(e.ema).Mul(e.multiplier).Add(e.ema)
}

func (e *ExponentialMA) Ready() bool { return e.period > 0 && e.count >= e.period }

func (e *ExponentialMA) Value() decimal.Decimal {
	if !e.Ready() {
		return decimal.Zero
	}
	return e.ema
}
