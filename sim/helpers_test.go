package sim

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/market"
)

const instr = "EUR_USD"

var t0 = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func newEngine(t *testing.T, balance string, opts ...func(*Config)) *Engine {
	t.Helper()
	cfg := Config{InitialBalance: dec(balance), Seed: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func hedging(c *Config)   { c.Mode = Hedging }
func takeFirst(c *Config) { c.TieBreak = TakeFirst }

func leverage(l string) func(*Config) {
	return func(c *Config) { c.Leverage = dec(l) }
}

func openPos(t *testing.T, e *Engine, side Side, price, qty string, sl, tp *decimal.Decimal) Position {
	t.Helper()
	o, err := e.CreateOrder(OrderRequest{
		Instrument: instr,
		Side:       side,
		Price:      dec(price),
		Quantity:   dec(qty),
		StopLoss:   sl,
		TakeProfit: tp,
	})
	require.NoError(t, err)
	p, err := e.Execute(o.ID)
	require.NoError(t, err)
	return p
}

// mkBar builds a bar min minutes after t0.
func mkBar(instrument string, min int, o, h, l, c string) market.Bar {
	return market.Bar{
		Instrument: instrument,
		Time:       t0.Add(time.Duration(min) * time.Minute),
		Open:       dec(o),
		High:       dec(h),
		Low:        dec(l),
		Close:      dec(c),
		Volume:     dec("100"),
	}
}

// checkLedger asserts the quantity and status invariants for every
// position the engine knows about.
func checkLedger(t *testing.T, e *Engine) {
	t.Helper()
	all := append(e.OpenPositions(), e.ClosedPositions()...)
	for _, p := range all {
		assert.Truef(t, p.ClosedQuantity().Add(p.Remaining).Equal(p.Quantity),
			"position %s: closed %s + remaining %s != %s", p.ID, p.ClosedQuantity(), p.Remaining, p.Quantity)
		switch {
		case p.Remaining.IsZero():
			assert.Equal(t, PositionClosed, p.Status, p.ID)
		case len(p.Closes) == 0:
			assert.Equal(t, PositionOpen, p.Status, p.ID)
		default:
			assert.Equal(t, PositionPartiallyClosed, p.Status, p.ID)
		}
	}
	for _, p := range e.OpenPositions() {
		assert.NotEqual(t, PositionClosed, p.Status)
	}
	for _, p := range e.ClosedPositions() {
		assert.Equal(t, PositionClosed, p.Status)
	}
	for _, o := range e.PendingOrders() {
		assert.Equal(t, OrderPending, o.Status)
	}
}

type recorder struct {
	events []string
	closes []PartialClose
	equity []EquitySnapshot
	calls  []Account
}

func (r *recorder) OnOrderCreated(Order) { r.events = append(r.events, "created") }

func (r *recorder) OnOrderExecuted(Order, Position) { r.events = append(r.events, "executed") }

func (r *recorder) OnOrderCancelled(o Order) {
	r.events = append(r.events, "cancelled:"+o.Reason)
}

func (r *recorder) OnPositionClosed(_ Position, c PartialClose) {
	r.events = append(r.events, "closed:"+c.Reason)
	r.closes = append(r.closes, c)
}

func (r *recorder) OnMarginCall(a Account) {
	r.events = append(r.events, "margin_call")
	r.calls = append(r.calls, a)
}

func (r *recorder) OnEquity(s EquitySnapshot) {
	r.events = append(r.events, "equity")
	r.equity = append(r.equity, s)
}
