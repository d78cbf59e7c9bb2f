package sim

import (
	"github.com/shopspring/decimal"
)

// Account is a point-in-time projection of the ledger's cash.
// Only Balance is authoritative; the rest is derived on read.
type Account struct {
	InitialBalance decimal.Decimal
	Balance        decimal.Decimal
	UnrealizedPnL  decimal.Decimal
	Equity         decimal.Decimal
	MarginUsed     decimal.Decimal
	FreeMargin     decimal.Decimal
	Leverage       decimal.Decimal

	// MarginLevel is Equity / MarginUsed * 100, or zero with no margin in use.
	MarginLevel decimal.Decimal
}

// Balance returns realized cash.
func (e *Engine) Balance() decimal.Decimal {
	e.mu.Lock()
	defer e.unlock()
	return e.balance
}

// UnrealizedPnL marks every open position to the latest close of its
// instrument.
func (e *Engine) UnrealizedPnL() decimal.Decimal {
	e.mu.Lock()
	defer e.unlock()
	return e.unrealizedLocked()
}

// Equity is Balance plus UnrealizedPnL.
func (e *Engine) Equity() decimal.Decimal {
	e.mu.Lock()
	defer e.unlock()
	return e.balance.Add(e.unrealizedLocked())
}

// Account returns a full snapshot of the account projection.
func (e *Engine) Account() Account {
	e.mu.Lock()
	defer e.unlock()
	return e.accountLocked()
}

func (e *Engine) accountLocked() Account {
	unrealized := e.unrealizedLocked()
	equity := e.balance.Add(unrealized)
	used := e.marginUsedLocked()
	level := decimal.Zero
	if used.IsPositive() {
		level = equity.Div(used).Mul(hundred)
	}
	return Account{
		InitialBalance: e.cfg.InitialBalance,
		Balance:        e.balance,
		UnrealizedPnL:  unrealized,
		Equity:         equity,
		MarginUsed:     used,
		FreeMargin:     e.balance.Sub(used),
		Leverage:       e.cfg.leverage(),
		MarginLevel:    level,
	}
}

func (e *Engine) unrealizedLocked() decimal.Decimal {
	total := decimal.Zero
	for _, p := range e.open {
		total = total.Add(p.UnrealizedPnL(e.markLocked(p)))
	}
	return total
}

// markLocked is the latest close for the position's instrument, or the
// entry price when no bar has been seen yet.
func (e *Engine) markLocked(p *Position) decimal.Decimal {
	if b, ok := e.prices.Get(p.Instrument); ok {
		return b.Close
	}
	return p.EntryPrice
}
