package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/sim"
)

var t0 = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func sampleRecord(seq uint64) CloseRecord {
	return CloseRecord{
		RunID:         "run-a",
		PositionID:    "01HV0000000000000000000001",
		OrderID:       "01HV0000000000000000000000",
		Instrument:    "EUR_USD",
		Side:          "buy",
		EntryPrice:    dec("1.08500"),
		Quantity:      dec("1500"),
		Seq:           seq,
		ClosePrice:    dec("1.08750"),
		CloseQuantity: dec("500"),
		Reason:        "tp_hit",
		PnL:           dec("1.25"),
		Remaining:     dec("1000"),
		RealizedPnL:   dec("1.25"),
		Status:        "PARTIALLY_CLOSED",
		OpenTime:      t0,
		CloseTime:     t0.Add(time.Duration(seq) * time.Hour),
	}
}

// runLedger opens one long and closes it in two steps through a real engine.
func runLedger(t *testing.T, l sim.Listener) *sim.Engine {
	t.Helper()
	e, err := sim.NewEngine(sim.Config{InitialBalance: dec("10000")})
	require.NoError(t, err)
	if l != nil {
		e.SetListener(l)
	}

	entry, err := sim.NewEntrySignal("buy", dec("10"), nil, nil)
	require.NoError(t, err)
	exit, err := sim.NewExitSignal("close", dec("3"), "")
	require.NoError(t, err)

	bar := func(min int, c string) market.Bar {
		return market.Bar{
			Instrument: "EUR_USD",
			Time:       t0.Add(time.Duration(min) * time.Minute),
			Open:       dec(c), High: dec(c), Low: dec(c), Close: dec(c),
		}
	}
	require.NoError(t, e.Step(bar(0, "100"), []sim.EntrySignal{entry}, nil))
	require.NoError(t, e.Step(bar(1, "105"), nil, []sim.ExitSignal{exit}))
	require.NoError(t, e.Step(bar(2, "95"), nil, nil))
	_, err = e.CloseAll("")
	require.NoError(t, err)
	return e
}

func TestRows(t *testing.T) {
	t.Parallel()

	e := runLedger(t, nil)
	rows := Rows(e.ClosedPositions())
	require.Len(t, rows, 2)

	assert.Equal(t, uint64(1), rows[0].Seq)
	assert.Equal(t, sim.ReasonSignal, rows[0].Reason)
	assertDec(t, "105", rows[0].ClosePrice)
	assertDec(t, "3", rows[0].CloseQuantity)
	assertDec(t, "15", rows[0].PnL)

	assert.Equal(t, uint64(2), rows[1].Seq)
	assert.Equal(t, sim.ReasonEndOfRun, rows[1].Reason)
	assertDec(t, "95", rows[1].ClosePrice)
	assertDec(t, "7", rows[1].CloseQuantity)
	assertDec(t, "-35", rows[1].PnL)

	for _, r := range rows {
		assert.Equal(t, "buy", r.Side)
		assertDec(t, "10", r.Quantity)
		assertDec(t, "100", r.EntryPrice)
		assertDec(t, "0", r.Remaining)
		assertDec(t, "-20", r.RealizedPnL)
		assert.Equal(t, "CLOSED", r.Status)
		assert.Equal(t, t0, r.OpenTime)
	}
	assert.Equal(t, t0.Add(time.Minute), rows[0].CloseTime)
}

type memJournal struct {
	closes []CloseRecord
	equity []EquitySnapshot
	fail   error
}

func (m *memJournal) RecordClose(r CloseRecord) error {
	m.closes = append(m.closes, r)
	return m.fail
}

func (m *memJournal) RecordEquity(s EquitySnapshot) error {
	m.equity = append(m.equity, s)
	return nil
}

func (m *memJournal) Close() error { return nil }

func TestRecorder(t *testing.T) {
	t.Parallel()

	j := &memJournal{}
	rec := NewRecorder(j, "run-1")
	runLedger(t, rec)

	require.NoError(t, rec.Err())
	require.Len(t, j.closes, 2)
	for _, c := range j.closes {
		assert.Equal(t, "run-1", c.RunID)
	}

	// rows are captured as the position stood at each close
	assert.Equal(t, "PARTIALLY_CLOSED", j.closes[0].Status)
	assertDec(t, "7", j.closes[0].Remaining)
	assertDec(t, "15", j.closes[0].RealizedPnL)
	assert.Equal(t, "CLOSED", j.closes[1].Status)

	// three steps plus the close-all snapshot
	require.Len(t, j.equity, 4)
	assertDec(t, "10000", j.equity[0].Balance)
	assertDec(t, "10015", j.equity[1].Balance)
	assertDec(t, "-35", j.equity[2].UnrealizedPnL)
	assertDec(t, "9980", j.equity[3].Equity)
	assert.Equal(t, "run-1", j.equity[3].RunID)
}

func TestRecorderKeepsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	rec := NewRecorder(&memJournal{fail: boom}, "")
	runLedger(t, rec)
	assert.ErrorIs(t, rec.Err(), boom)
}
