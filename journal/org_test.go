package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCloseOrg(t *testing.T) {
	t.Parallel()

	result := FormatCloseOrg(sampleRecord(4))

	assert.True(t, strings.HasPrefix(result, "** Close: EUR_USD buy (01HV0000 #4)\n"))
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":POSITION_ID: 01HV0000000000000000000001")
	assert.Contains(t, result, ":SEQ: 4")
	assert.Contains(t, result, ":QUANTITY: 1500")
	assert.Contains(t, result, ":ENTRY_PRICE: 1.08500")
	assert.Contains(t, result, ":CLOSE_PRICE: 1.08750")
	assert.Contains(t, result, ":CLOSE_QUANTITY: 500")
	assert.Contains(t, result, ":OPEN_TIME: 2024-04-10T09:00:00Z")
	assert.Contains(t, result, ":CLOSE_TIME: 2024-04-10T13:00:00Z")
	assert.Contains(t, result, ":PNL: 1.25")
	assert.Contains(t, result, ":STATUS: PARTIALLY_CLOSED")
	assert.Contains(t, result, ":REASON: tp_hit")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Review")
}

func TestFormatClosesOrg(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatClosesOrg(nil))

	out := FormatClosesOrg([]CloseRecord{sampleRecord(1), sampleRecord(2)})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, "\n\n\n** Close:")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789abc"))
}

func TestRunOrg(t *testing.T) {
	t.Parallel()

	run := Run{
		RunID:        "run-1",
		Created:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Instrument:   "EUR_USD",
		Strategy:     "ema-cross",
		Mode:         "netting",
		TieBreak:     "stop_first",
		Start:        t0,
		End:          t0.Add(48 * time.Hour),
		Bars:         100,
		Trades:       4,
		Wins:         3,
		Losses:       1,
		StartBalance: dec("10000"),
		EndBalance:   dec("10250"),
		NetPnL:       dec("250"),
		Notes:        []string{"first pass"},
	}
	assertDec(t, "2.5", run.ReturnPct())
	assertDec(t, "75", run.WinRate())

	var buf bytes.Buffer
	require.NoError(t, run.WriteOrg(&buf))
	out := buf.String()

	assert.Contains(t, out, "* BACKTEST: ema-cross EUR_USD")
	assert.Contains(t, out, ":RUN_ID:      run-1")
	assert.Contains(t, out, ":START_DATE:  2024-04-10")
	assert.Contains(t, out, ":END_DATE:    2024-04-12")
	assert.Contains(t, out, ":NET_PNL:     250.00")
	assert.Contains(t, out, ":RETURN_PCT:  2.50")
	assert.Contains(t, out, ":WIN_RATE:    75.00")
	assert.Contains(t, out, ":CREATED:     [2024-05-01 Wed 12:00]")
	assert.Contains(t, out, "- first pass")

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteOrgFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestRunRatesWithoutTrades(t *testing.T) {
	t.Parallel()

	var run Run
	assert.True(t, run.ReturnPct().IsZero())
	assert.True(t, run.WinRate().IsZero())
}
