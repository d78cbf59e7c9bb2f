package strategies

import (
	"time"

	"github.com/rustyeddy/tradeledger/market"
)

// SessionFilter wraps a strategy and drops bars outside [From, To) UTC
// time of day. A zero window passes every bar. Bars it keeps go on to the
// wrapped strategy's own preprocessor, if it has one.
type SessionFilter struct {
	Strategy
	From, To time.Duration
}

func (f SessionFilter) PreprocessData(b market.Bar) (market.Bar, bool) {
	if !f.inSession(b.Time) {
		return b, false
	}
	if p, ok := f.Strategy.(Preprocessor); ok {
		return p.PreprocessData(b)
	}
	return b, true
}

func (f SessionFilter) inSession(ts time.Time) bool {
	if f.From == f.To {
		return true
	}
	t := ts.UTC()
	tod := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	if f.From < f.To {
		return tod >= f.From && tod < f.To
	}
	// window wraps midnight
	return tod >= f.From || tod < f.To
}

func (f SessionFilter) MonitorPositions(b market.Bar, l Ledger) error {
	if m, ok := f.Strategy.(Monitor); ok {
		return m.MonitorPositions(b, l)
	}
	return nil
}

func (f SessionFilter) Reset() {
	if r, ok := f.Strategy.(Resetter); ok {
		r.Reset()
	}
}
