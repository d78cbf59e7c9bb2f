package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// Run describes one backtest run for the Org-mode run report.
type Run struct {
	RunID      string
	Created    time.Time
	Dataset    string
	Instrument string
	Strategy   string
	Mode       string
	TieBreak   string

	Start time.Time
	End   time.Time
	Bars  int

	Trades int
	Wins   int
	Losses int

	StartBalance decimal.Decimal
	EndBalance   decimal.Decimal
	NetPnL       decimal.Decimal

	Notes []string
}

// ReturnPct is the net PnL as a percentage of the starting balance.
func (r Run) ReturnPct() decimal.Decimal {
	if r.StartBalance.IsZero() {
		return decimal.Zero
	}
	return r.NetPnL.Div(r.StartBalance).Mul(decimal.NewFromInt(100))
}

// WinRate is wins over closed trades, in percent.
func (r Run) WinRate() decimal.Decimal {
	if r.Trades == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.Wins)).Div(decimal.NewFromInt(int64(r.Trades))).Mul(decimal.NewFromInt(100))
}

var runOrgFuncs = template.FuncMap{
	"fixed": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders the run report to w.
func (r Run) WriteOrg(w io.Writer) error {
	if err := runOrg.Execute(w, r); err != nil {
		return fmt.Errorf("render run report: %w", err)
	}
	return nil
}

// WriteOrgFile renders the run report to path.
func (r Run) WriteOrgFile(path string) error {
	var buf bytes.Buffer
	if err := r.WriteOrg(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const RunOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Instrument}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:INSTRUMENT:  {{.Instrument}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:MODE:        {{.Mode}}
:TIE_BREAK:   {{.TieBreak}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.Bars}}
:START_BAL:   {{fixed .StartBalance}}
:END_BAL:     {{fixed .EndBalance}}
:NET_PNL:     {{fixed .NetPnL}}
:RETURN_PCT:  {{fixed .ReturnPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{fixed .WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net PnL:   *{{fixed .NetPnL}}*
- Return:    *{{fixed .ReturnPct}}%*
- Win Rate:  *{{fixed .WinRate}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
