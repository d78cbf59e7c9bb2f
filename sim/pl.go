package sim

import "github.com/shopspring/decimal"

// PnL is the profit of moving qty from entry to exit:
// (exit-entry)*qty for a buy, (entry-exit)*qty for a sell.
func PnL(side Side, entry, exit, qty decimal.Decimal) decimal.Decimal {
	diff := exit.Sub(entry)
	if side == Sell {
		diff = diff.Neg()
	}
	return diff.Mul(qty)
}
