package sim

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderValidation(t *testing.T) {
	t.Parallel()

	valid := OrderRequest{Instrument: instr, Side: Buy, Price: dec("100"), Quantity: dec("1")}

	tests := []struct {
		name   string
		modify func(*OrderRequest)
	}{
		{"zero_quantity", func(r *OrderRequest) { r.Quantity = dec("0") }},
		{"negative_quantity", func(r *OrderRequest) { r.Quantity = dec("-3") }},
		{"zero_price", func(r *OrderRequest) { r.Price = dec("0") }},
		{"negative_price", func(r *OrderRequest) { r.Price = dec("-100") }},
		{"no_instrument", func(r *OrderRequest) { r.Instrument = "" }},
		{"no_side", func(r *OrderRequest) { r.Side = 0 }},
		{"buy_stop_above_price", func(r *OrderRequest) { r.StopLoss = decp("101") }},
		{"buy_take_below_price", func(r *OrderRequest) { r.TakeProfit = decp("99") }},
		{"sell_stop_below_price", func(r *OrderRequest) { r.Side = Sell; r.StopLoss = decp("99") }},
		{"sell_take_above_price", func(r *OrderRequest) { r.Side = Sell; r.TakeProfit = decp("101") }},
		{"negative_stop", func(r *OrderRequest) { r.StopLoss = decp("-1") }},
		{"negative_max_active", func(r *OrderRequest) { r.MaxActive = -time.Minute }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEngine(t, "10000")
			req := valid
			tt.modify(&req)
			_, err := e.CreateOrder(req)
			require.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, e.PendingOrders())
			assertDec(t, "10000", e.Balance())
		})
	}
}

func TestCreateOrderQueuesPending(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	o, err := e.CreateOrder(OrderRequest{
		Instrument: instr,
		Side:       Sell,
		Price:      dec("100"),
		Quantity:   dec("2"),
		StopLoss:   decp("105"),
		TakeProfit: decp("90"),
		Time:       t0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, OrderPending, o.Status)
	assert.Equal(t, t0, o.Created)

	pending := e.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, o.ID, pending[0].ID)
	assertDec(t, "10000", e.Balance())
}

func TestExecuteErrors(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	_, err := e.Execute("missing")
	require.ErrorIs(t, err, ErrOrderNotFound)

	o, err := e.CreateOrder(OrderRequest{Instrument: instr, Side: Buy, Price: dec("100"), Quantity: dec("1")})
	require.NoError(t, err)
	p, err := e.Execute(o.ID)
	require.NoError(t, err)

	got, err := e.Order(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderExecuted, got.Status)
	assert.Equal(t, p.ID, got.PositionID)
	assert.Empty(t, e.PendingOrders())

	_, err = e.Execute(o.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, e.OpenPositions(), 1)
}

func TestExecuteInsufficientFunds(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "1000", hedging)
	o, err := e.CreateOrder(OrderRequest{Instrument: instr, Side: Buy, Price: dec("100"), Quantity: dec("11")})
	require.NoError(t, err)

	_, err = e.Execute(o.ID)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, e.OpenPositions())
	pending := e.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, OrderPending, pending[0].Status)

	// margin held by open positions counts against the next one
	openPos(t, e, Buy, "100", "6", nil, nil)
	o, err = e.CreateOrder(OrderRequest{Instrument: instr, Side: Sell, Price: dec("100"), Quantity: dec("5")})
	require.NoError(t, err)
	_, err = e.Execute(o.ID)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Len(t, e.OpenPositions(), 1)
}

func TestExecuteWithLeverage(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "1000", leverage("20"))
	p := openPos(t, e, Buy, "100", "150", nil, nil)
	assertDec(t, "150", p.Remaining)
	assertDec(t, "750", e.Account().MarginUsed)
}

func TestNetting(t *testing.T) {
	t.Parallel()

	t.Run("same_side_adds", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, "10000")
		first := openPos(t, e, Buy, "100", "10", decp("90"), nil)
		p := openPos(t, e, Buy, "110", "10", nil, decp("130"))

		assert.Equal(t, first.ID, p.ID)
		assertDec(t, "20", p.Quantity)
		assertDec(t, "20", p.Remaining)
		assertDec(t, "105", p.EntryPrice)
		assertDec(t, "90", *p.StopLoss)
		assertDec(t, "130", *p.TakeProfit)
		assert.Len(t, e.OpenPositions(), 1)
		checkLedger(t, e)
	})

	t.Run("opposite_side_reduces", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, "10000")
		first := openPos(t, e, Buy, "100", "10", nil, nil)
		p := openPos(t, e, Sell, "110", "4", nil, nil)

		assert.Equal(t, first.ID, p.ID)
		assert.Equal(t, PositionPartiallyClosed, p.Status)
		assertDec(t, "6", p.Remaining)
		require.Len(t, p.Closes, 1)
		assert.Equal(t, ReasonNetted, p.Closes[0].Reason)
		assertDec(t, "40", p.Closes[0].PnL)
		assertDec(t, "10040", e.Balance())
		checkLedger(t, e)
	})

	t.Run("opposite_side_flattens", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, "10000")
		openPos(t, e, Buy, "100", "10", nil, nil)
		p := openPos(t, e, Sell, "90", "10", nil, nil)

		assert.Equal(t, PositionClosed, p.Status)
		assertDec(t, "9900", e.Balance())
		assert.Empty(t, e.OpenPositions())
		assert.Len(t, e.ClosedPositions(), 1)
	})

	t.Run("opposite_side_flips", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, "10000")
		first := openPos(t, e, Buy, "100", "10", nil, nil)
		p := openPos(t, e, Sell, "110", "15", decp("120"), nil)

		assert.NotEqual(t, first.ID, p.ID)
		assert.Equal(t, Sell, p.Side)
		assertDec(t, "5", p.Quantity)
		assertDec(t, "110", p.EntryPrice)
		assertDec(t, "120", *p.StopLoss)
		assertDec(t, "10100", e.Balance())

		closed := e.ClosedPositions()
		require.Len(t, closed, 1)
		assert.Equal(t, first.ID, closed[0].ID)
		open := e.OpenPositions()
		require.Len(t, open, 1)
		assert.Equal(t, p.ID, open[0].ID)
		checkLedger(t, e)
	})

	t.Run("reduce_releases_margin", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t, "1000")
		openPos(t, e, Buy, "100", "6", nil, nil)
		p := openPos(t, e, Sell, "100", "10", nil, nil)
		assert.Equal(t, Sell, p.Side)
		assertDec(t, "4", p.Remaining)
	})
}

func TestHedgingKeepsPositionsApart(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000", hedging)
	long := openPos(t, e, Buy, "100", "10", nil, nil)
	short := openPos(t, e, Sell, "110", "4", nil, nil)

	assert.NotEqual(t, long.ID, short.ID)
	open := e.OpenPositions()
	require.Len(t, open, 2)
	assertDec(t, "10", open[0].Remaining)
	assertDec(t, "4", open[1].Remaining)
	assertDec(t, "10000", e.Balance())
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	_, err := e.CancelOrder("missing", "")
	require.ErrorIs(t, err, ErrOrderNotFound)

	o, err := e.CreateOrder(OrderRequest{Instrument: instr, Side: Buy, Price: dec("100"), Quantity: dec("1")})
	require.NoError(t, err)

	c, err := e.CancelOrder(o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, OrderCancelled, c.Status)
	assert.Equal(t, ReasonManual, c.Reason)
	assert.Empty(t, e.PendingOrders())

	hist := e.OrderHistory()
	require.Len(t, hist, 1)
	assert.Equal(t, o.ID, hist[0].ID)

	_, err = e.CancelOrder(o.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = e.Execute(o.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestModifyOrder(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	o, err := e.CreateOrder(OrderRequest{
		Instrument: instr,
		Side:       Buy,
		Price:      dec("100"),
		Quantity:   dec("1"),
		StopLoss:   decp("95"),
	})
	require.NoError(t, err)

	m, err := e.ModifyOrder(o.ID, OrderUpdate{Price: decp("98"), Quantity: decp("3"), TakeProfit: decp("120")})
	require.NoError(t, err)
	assertDec(t, "98", m.Price)
	assertDec(t, "3", m.Quantity)
	assertDec(t, "95", *m.StopLoss)
	assertDec(t, "120", *m.TakeProfit)

	// the stop would end up above the new price
	_, err = e.ModifyOrder(o.ID, OrderUpdate{Price: decp("94"), Quantity: decp("5")})
	require.ErrorIs(t, err, ErrValidation)

	got, err := e.Order(o.ID)
	require.NoError(t, err)
	assertDec(t, "98", got.Price)
	assertDec(t, "3", got.Quantity)

	_, err = e.ModifyOrder("missing", OrderUpdate{})
	require.ErrorIs(t, err, ErrOrderNotFound)

	_, err = e.Execute(o.ID)
	require.NoError(t, err)
	_, err = e.ModifyOrder(o.ID, OrderUpdate{Quantity: decp("2")})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestModifyPosition(t *testing.T) {
	t.Parallel()

	e := newEngine(t, "10000")
	p := openPos(t, e, Buy, "100", "10", decp("95"), decp("110"))

	m, err := e.ModifyPosition(p.ID, decp("101"), nil)
	require.NoError(t, err)
	assertDec(t, "101", *m.StopLoss)
	assertDec(t, "110", *m.TakeProfit)

	tests := []struct {
		name   string
		sl, tp string
	}{
		{"stop_above_take", "111", ""},
		{"take_below_stop", "", "100"},
		{"negative_stop", "-1", ""},
	}
	for _, tt := range tests {
		var sl, tp *decimal.Decimal
		if tt.sl != "" {
			sl = decp(tt.sl)
		}
		if tt.tp != "" {
			tp = decp(tt.tp)
		}
		_, err := e.ModifyPosition(p.ID, sl, tp)
		assert.ErrorIs(t, err, ErrValidation, tt.name)
	}

	got, err := e.Position(p.ID)
	require.NoError(t, err)
	assertDec(t, "101", *got.StopLoss)
	assertDec(t, "110", *got.TakeProfit)

	_, err = e.ModifyPosition("missing", nil, nil)
	require.ErrorIs(t, err, ErrPositionNotFound)

	_, err = e.ClosePosition(p.ID, dec("105"), dec("10"), "")
	require.NoError(t, err)
	_, err = e.ModifyPosition(p.ID, decp("96"), nil)
	require.ErrorIs(t, err, ErrInvalidState)
}
