package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/market"
)

func TestStepTriggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		side      Side
		sl, tp    string
		bar       market.Bar
		tie       TieBreak
		wantPrice string
		reason    string
	}{
		{"long_stop", Buy, "95", "110", mkBar(instr, 1, "99", "100", "94", "96"), StopFirst, "95", ReasonStopLoss},
		{"long_take", Buy, "95", "110", mkBar(instr, 1, "101", "111", "100", "109"), StopFirst, "110", ReasonTakeProfit},
		{"short_stop", Sell, "105", "90", mkBar(instr, 1, "101", "106", "100", "104"), StopFirst, "105", ReasonStopLoss},
		{"short_take", Sell, "105", "90", mkBar(instr, 1, "99", "100", "89", "91"), StopFirst, "90", ReasonTakeProfit},
		{"long_both_stop_first", Buy, "95", "110", mkBar(instr, 1, "100", "111", "94", "100"), StopFirst, "95", ReasonStopLoss},
		{"long_both_take_first", Buy, "95", "110", mkBar(instr, 1, "100", "111", "94", "100"), TakeFirst, "110", ReasonTakeProfit},
		{"short_both_stop_first", Sell, "105", "90", mkBar(instr, 1, "100", "106", "89", "100"), StopFirst, "105", ReasonStopLoss},
		{"short_both_take_first", Sell, "105", "90", mkBar(instr, 1, "100", "106", "89", "100"), TakeFirst, "90", ReasonTakeProfit},
		{"touch_is_a_hit", Buy, "95", "110", mkBar(instr, 1, "100", "101", "95", "99"), StopFirst, "95", ReasonStopLoss},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEngine(t, "10000", func(c *Config) { c.TieBreak = tt.tie })
			p := openPos(t, e, tt.side, "100", "4", decp(tt.sl), decp(tt.tp))
			_, err := e.ClosePosition(p.ID, dec("100"), dec("1"), "")
			require.NoError(t, err)

			require.NoError(t, e.Step(tt.bar, nil, nil))

			got, err := e.Position(p.ID)
			require.NoError(t, err)
			assert.Equal(t, PositionClosed, got.Status)
			require.Len(t, got.Closes, 2)
			last := got.Closes[1]
			assert.Equal(t, tt.reason, last.Reason)
			assertDec(t, tt.wantPrice, last.Price)
			assertDec(t, "3", last.Quantity)
			assert.Equal(t, tt.bar.Time, got.CloseTime)
			checkLedger(t, e)
		})
	}
}

func TestStepTriggersIgnoreOtherInstruments(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	openPos(t, e, Buy, "100", "1", decp("95"), nil)
	require.NoError(t, e.Step(mkBar("GBP_USD", 1, "90", "91", "80", "85"), nil, nil))
	assert.Len(t, e.OpenPositions(), 1)
}

func TestStepNoTriggerInsideRange(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	openPos(t, e, Buy, "100", "1", decp("95"), decp("110"))
	require.NoError(t, e.Step(mkBar(instr, 1, "100", "109.99", "95.01", "101"), nil, nil))
	open := e.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, PositionOpen, open[0].Status)
}

func TestStepEntrySignals(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000", hedging)
	buy, err := NewEntrySignal("buy", dec("2"), decp("90"), decp("120"))
	require.NoError(t, err)
	sell, err := NewEntrySignal("short", dec("1"), nil, nil)
	require.NoError(t, err)

	bar := mkBar(instr, 1, "99", "101", "98", "100")
	require.NoError(t, e.Step(bar, []EntrySignal{buy, sell}, nil))

	open := e.OpenPositions()
	require.Len(t, open, 2)
	assert.Equal(t, Buy, open[0].Side)
	assertDec(t, "100", open[0].EntryPrice)
	assertDec(t, "2", open[0].Quantity)
	assert.Equal(t, bar.Time, open[0].OpenTime)
	assert.Equal(t, Sell, open[1].Side)

	hist := e.OrderHistory()
	require.Len(t, hist, 2)
	for _, o := range hist {
		assert.Equal(t, OrderExecuted, o.Status)
	}
	assert.Empty(t, e.PendingOrders())
}

func TestStepRejectedEntryIsCancelled(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "100")
	sig, err := NewEntrySignal("buy", dec("10"), nil, nil)
	require.NoError(t, err)

	err = e.Step(mkBar(instr, 1, "99", "101", "98", "100"), []EntrySignal{sig}, nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Empty(t, e.OpenPositions())
	assert.Empty(t, e.PendingOrders())
	hist := e.OrderHistory()
	require.Len(t, hist, 1)
	assert.Equal(t, OrderCancelled, hist[0].Status)
	assert.Equal(t, ReasonRejected, hist[0].Reason)
}

func TestStepEntryWithStopOnWrongSide(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	sig, err := NewEntrySignal("buy", dec("1"), decp("105"), nil)
	require.NoError(t, err)

	err = e.Step(mkBar(instr, 1, "99", "101", "98", "100"), []EntrySignal{sig}, nil)
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, e.OrderHistory())
	assert.Empty(t, e.OpenPositions())
}

func TestStepEntryIgnoresRangeBeforeFill(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	sig, err := NewEntrySignal("buy", dec("10"), decp("99"), decp("102"))
	require.NoError(t, err)

	require.NoError(t, e.Step(mkBar(instr, 1, "100", "103", "98", "100"), []EntrySignal{sig}, nil))
	open := e.OpenPositions()
	require.Len(t, open, 1)
	assert.Empty(t, open[0].Closes)
	assertDec(t, "10000", e.Balance())

	require.NoError(t, e.Step(mkBar(instr, 2, "100", "100.5", "98.5", "99.5"), nil, nil))
	assert.Empty(t, e.OpenPositions())
	closed := e.ClosedPositions()
	require.Len(t, closed, 1)
	require.Len(t, closed[0].Closes, 1)
	assert.Equal(t, ReasonStopLoss, closed[0].Closes[0].Reason)
	assertDec(t, "99", closed[0].Closes[0].Price)
	assertDec(t, "9990", e.Balance())
	checkLedger(t, e)
}

func TestStepRangeStillAppliesToEarlierPositions(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000", hedging)
	old := openPos(t, e, Buy, "100", "1", decp("99"), nil)
	sig, err := NewEntrySignal("buy", dec("1"), decp("99"), nil)
	require.NoError(t, err)

	require.NoError(t, e.Step(mkBar(instr, 1, "100", "101", "98", "100"), []EntrySignal{sig}, nil))

	got, err := e.Position(old.ID)
	require.NoError(t, err)
	assert.Equal(t, PositionClosed, got.Status)
	open := e.OpenPositions()
	require.Len(t, open, 1)
	assert.NotEqual(t, old.ID, open[0].ID)
}

func TestStepExitSignals(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000", hedging)
	first := openPos(t, e, Buy, "100", "5", nil, nil)
	second := openPos(t, e, Buy, "100", "5", nil, nil)

	byDefault, err := NewExitSignal("close", dec("2"), "")
	require.NoError(t, err)
	byID, err := NewExitSignal("CLOSE", dec("5"), second.ID)
	require.NoError(t, err)

	require.NoError(t, e.Step(mkBar(instr, 1, "100", "104", "99", "103"), nil, []ExitSignal{byDefault, byID}))

	p1, err := e.Position(first.ID)
	require.NoError(t, err)
	assertDec(t, "3", p1.Remaining)
	assert.Equal(t, ReasonSignal, p1.Closes[0].Reason)
	assertDec(t, "103", p1.Closes[0].Price)

	p2, err := e.Position(second.ID)
	require.NoError(t, err)
	assert.Equal(t, PositionClosed, p2.Status)
	assertDec(t, "10021", e.Balance())
}

func TestStepExitFailuresAreJoined(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	p := openPos(t, e, Buy, "100", "5", nil, nil)

	tooMuch := ExitSignal{Quantity: dec("6"), PositionID: p.ID}
	unknown := ExitSignal{Quantity: dec("1"), PositionID: "missing"}
	fine := ExitSignal{Quantity: dec("1"), PositionID: p.ID, Reason: "trail"}

	err := e.Step(mkBar(instr, 1, "100", "102", "99", "101"), nil, []ExitSignal{tooMuch, unknown, fine})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrPositionNotFound)

	got, err := e.Position(p.ID)
	require.NoError(t, err)
	require.Len(t, got.Closes, 1)
	assert.Equal(t, "trail", got.Closes[0].Reason)
	assertDec(t, "4", got.Remaining)
}

func TestStepExitWithoutPosition(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	sig, err := NewExitSignal("close", dec("1"), "")
	require.NoError(t, err)
	err = e.Step(mkBar(instr, 1, "100", "102", "99", "101"), nil, []ExitSignal{sig})
	require.ErrorIs(t, err, ErrPositionNotFound)
}

func TestStepLimitOrders(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000", hedging)
	buy, err := e.CreateOrder(OrderRequest{Instrument: instr, Side: Buy, Price: dec("95"), Quantity: dec("1")})
	require.NoError(t, err)
	sell, err := e.CreateOrder(OrderRequest{Instrument: instr, Side: Sell, Price: dec("110"), Quantity: dec("1")})
	require.NoError(t, err)

	require.NoError(t, e.Step(mkBar(instr, 1, "100", "105", "96", "101"), nil, nil))
	assert.Len(t, e.PendingOrders(), 2)

	require.NoError(t, e.Step(mkBar(instr, 2, "100", "110", "94", "99"), nil, nil))
	assert.Empty(t, e.PendingOrders())

	open := e.OpenPositions()
	require.Len(t, open, 2)
	assert.Equal(t, buy.ID, open[0].OrderID)
	assertDec(t, "95", open[0].EntryPrice)
	assert.Equal(t, sell.ID, open[1].OrderID)
	assertDec(t, "110", open[1].EntryPrice)
}

func TestStepLimitOrderWaitsForFunds(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "100")
	o, err := e.CreateOrder(OrderRequest{Instrument: instr, Side: Buy, Price: dec("95"), Quantity: dec("2")})
	require.NoError(t, err)

	err = e.Step(mkBar(instr, 1, "100", "101", "94", "96"), nil, nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	pending := e.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, o.ID, pending[0].ID)
}

func TestStepExpiresOrders(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	rec := &recorder{}
	e.SetListener(rec)

	o, err := e.CreateOrder(OrderRequest{
		Instrument: instr,
		Side:       Buy,
		Price:      dec("90"),
		Quantity:   dec("1"),
		MaxActive:  2 * time.Minute,
		Time:       t0,
	})
	require.NoError(t, err)

	require.NoError(t, e.Step(mkBar(instr, 2, "100", "101", "99", "100"), nil, nil))
	assert.Len(t, e.PendingOrders(), 1)

	// would fill, but the order is past its lifetime
	require.NoError(t, e.Step(mkBar(instr, 3, "100", "101", "89", "95"), nil, nil))
	assert.Empty(t, e.PendingOrders())
	assert.Empty(t, e.OpenPositions())

	got, err := e.Order(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderCancelled, got.Status)
	assert.Equal(t, ReasonTimeout, got.Reason)
	assert.Contains(t, rec.events, "cancelled:"+ReasonTimeout)
}

func TestStepRejectsBadBars(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	require.NoError(t, e.Step(mkBar(instr, 5, "100", "101", "99", "100"), nil, nil))

	err := e.Step(mkBar(instr, 5, "100", "101", "99", "100"), nil, nil)
	require.ErrorIs(t, err, ErrValidation)
	err = e.Step(mkBar(instr, 4, "100", "101", "99", "100"), nil, nil)
	require.ErrorIs(t, err, ErrValidation)

	err = e.Step(mkBar(instr, 6, "100", "99", "98", "100"), nil, nil)
	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, errors.Is(err, market.ErrBadBar))

	// other instruments keep their own clock
	require.NoError(t, e.Step(mkBar("GBP_USD", 1, "50", "51", "49", "50"), nil, nil))
}

func TestStepEventOrder(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	rec := &recorder{}
	e.SetListener(rec)

	sig, err := NewEntrySignal("buy", dec("1"), decp("99"), nil)
	require.NoError(t, err)
	require.NoError(t, e.Step(mkBar(instr, 1, "100", "101", "99.5", "100"), []EntrySignal{sig}, nil))
	require.NoError(t, e.Step(mkBar(instr, 2, "100", "100", "98", "99"), nil, nil))

	assert.Equal(t, []string{
		"created", "executed", "equity",
		"closed:" + ReasonStopLoss, "equity",
	}, rec.events)

	require.Len(t, rec.closes, 1)
	assert.Equal(t, uint64(1), rec.closes[0].Seq)
	require.Len(t, rec.equity, 2)
	assertDec(t, "9999", rec.equity[1].Balance)
	assertDec(t, "9999", rec.equity[1].Equity)
	assert.Equal(t, t0.Add(2*time.Minute), rec.equity[1].Time)
}
