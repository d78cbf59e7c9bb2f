package risk

import "github.com/shopspring/decimal"

// Policy holds the limits Evaluate enforces. Zero values disable a limit.
type Policy struct {
	// Risk limits
	MaxRiskPct decimal.Decimal // 0.01

	// Exposure limits
	MaxOpenPositions int
	MaxMarginPct     decimal.Decimal // 0.20

	// Trade constraints
	MinRR decimal.Decimal // 1.5
}

type Intent struct {
	Instrument string
	Quantity   decimal.Decimal
	Entry      decimal.Decimal
	Stop       decimal.Decimal
	TakeProfit decimal.Decimal
}

type AccountSnapshot struct {
	Equity        decimal.Decimal
	MarginUsed    decimal.Decimal
	OpenPositions int
}
