package strategies

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/indicators"
	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/risk"
	"github.com/rustyeddy/tradeledger/sim"
)

// ReasonCross is the close reason of positions exited on an opposite cross.
const ReasonCross = "ema_cross"

// EMACross trades a single instrument on fast/slow EMA crossovers.
//   - Enters only on a cross, never while already positioned that way.
//   - Reverses on an opposite cross: the old side is exited on the cross
//     bar and the new side entered on the next bar.
//   - With RiskPct set, sizes with risk.Size off a fixed or ATR stop.
//   - With BreakEven set, moves the stop to entry once price is 1R ahead.
//   - With ADX set, ignores crosses until the ADX is warmed up and at
//     least MinADX.
type EMACross struct {
	Params
	name string

	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA
	atr  *indicators.ATR
	adx  *indicators.ADX

	lastDiff     decimal.Decimal
	haveLastDiff bool

	cross sim.Side // side of the cross on the current bar, 0 if none
	want  sim.Side // entry postponed until the opposite side is flat

	lastDecision risk.Decision
}

func NewEMACross(p Params) (Strategy, error) {
	s, err := newEMACross("ema-cross", p)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewEMACrossADX is ema-cross behind a trend-strength filter. ADX defaults
// to 14 bars and MinADX to 25.
func NewEMACrossADX(p Params) (Strategy, error) {
	if p.ADX == 0 {
		p.ADX = 14
	}
	if p.MinADX.IsZero() {
		p.MinADX = decimal.NewFromInt(25)
	}
	s, err := newEMACross("ema-cross-adx", p)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newEMACross(name string, p Params) (*EMACross, error) {
	if p.Instrument == "" {
		return nil, fmt.Errorf("%s: instrument is required", name)
	}
	if p.Fast <= 0 || p.Slow <= 0 || p.Fast >= p.Slow {
		return nil, fmt.Errorf("%s: need 0 < fast < slow, got fast=%d slow=%d", name, p.Fast, p.Slow)
	}
	if !p.Quantity.IsPositive() && !p.RiskPct.IsPositive() {
		return nil, fmt.Errorf("%s: set quantity or risk percent", name)
	}
	if p.RiskPct.IsPositive() && !p.StopDistance.IsPositive() && p.ATR <= 0 {
		return nil, fmt.Errorf("%s: risk sizing needs a stop distance or an ATR period", name)
	}
	if p.ADX < 0 || p.MinADX.IsNegative() {
		return nil, fmt.Errorf("%s: ADX period and threshold must not be negative", name)
	}
	if !p.RR.IsPositive() {
		p.RR = decimal.NewFromInt(2)
	}

	s := &EMACross{
		Params: p,
		name:   name,
		fast:   indicators.NewEMA(p.Fast),
		slow:   indicators.NewEMA(p.Slow),
	}
	if p.ATR > 0 {
		s.atr = indicators.NewATR(p.ATR)
	}
	if p.ADX > 0 {
		s.adx = indicators.NewADX(p.ADX)
	}
	return s, nil
}

func (s *EMACross) Name() string { return s.name }

// LastDecision is the most recent risk decision that blocked an entry.
func (s *EMACross) LastDecision() risk.Decision { return s.lastDecision }

func (s *EMACross) Reset() {
	s.fast.Reset()
	s.slow.Reset()
	if s.atr != nil {
		s.atr.Reset()
	}
	if s.adx != nil {
		s.adx.Reset()
	}
	s.lastDiff = decimal.Zero
	s.haveLastDiff = false
	s.cross = 0
	s.want = 0
	s.lastDecision = risk.Decision{}
}

func (s *EMACross) InitializeIndicators(b market.Bar) {
	if b.Instrument != s.Instrument {
		return
	}
	s.cross = 0
	s.fast.Update(b)
	s.slow.Update(b)
	if s.atr != nil {
		s.atr.Update(b)
	}
	if s.adx != nil {
		s.adx.Update(b)
	}

	if !s.fast.Ready() || !s.slow.Ready() {
		return
	}
	diff := s.fast.Value().Sub(s.slow.Value())

	// a cross needs a previous diff
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return
	}

	// bull: diff goes from <=0 to >0, bear: from >=0 to <0
	switch {
	case diff.IsPositive() && !s.lastDiff.IsPositive():
		s.cross = sim.Buy
	case diff.IsNegative() && !s.lastDiff.IsNegative():
		s.cross = sim.Sell
	}
	s.lastDiff = diff

	// trend-strength regime filter
	if s.adx != nil && (!s.adx.Ready() || s.adx.Value().LessThan(s.MinADX)) {
		s.cross = 0
	}
}

func (s *EMACross) IdentifyEntrySignals(b market.Bar, v View) ([]sim.EntrySignal, error) {
	if b.Instrument != s.Instrument {
		return nil, nil
	}
	side := s.cross
	if side == 0 {
		side = s.want
	}
	if side == 0 {
		return nil, nil
	}

	all := v.OpenPositions()
	for _, p := range all {
		if p.Instrument != s.Instrument {
			continue
		}
		if p.Side == side.Opposite() {
			// exit first, enter on a later bar
			s.want = side
			return nil, nil
		}
		if p.Side == side {
			s.want = 0
			return nil, nil
		}
	}
	s.want = 0

	sig, ok, err := s.entry(b, side, v.Account(), len(all))
	if err != nil || !ok {
		return nil, err
	}
	return []sim.EntrySignal{sig}, nil
}

func (s *EMACross) IdentifyExitSignals(b market.Bar, v View) ([]sim.ExitSignal, error) {
	if b.Instrument != s.Instrument || s.cross == 0 {
		return nil, nil
	}
	var exits []sim.ExitSignal
	for _, p := range v.OpenPositions() {
		if p.Instrument == s.Instrument && p.Side == s.cross.Opposite() {
			exits = append(exits, sim.ExitSignal{Quantity: p.Remaining, PositionID: p.ID, Reason: ReasonCross})
		}
	}
	return exits, nil
}

// MonitorPositions moves the stop to break-even once the close is at
// least one stop distance beyond entry.
func (s *EMACross) MonitorPositions(b market.Bar, l Ledger) error {
	if !s.BreakEven || b.Instrument != s.Instrument {
		return nil
	}
	var errs []error
	for _, p := range l.OpenPositions() {
		if p.Instrument != s.Instrument || p.StopLoss == nil {
			continue
		}
		risked := p.EntryPrice.Sub(*p.StopLoss)
		gained := b.Close.Sub(p.EntryPrice)
		if p.Side == sim.Sell {
			risked, gained = risked.Neg(), gained.Neg()
		}
		if !risked.IsPositive() || gained.LessThan(risked) {
			continue
		}
		entry := p.EntryPrice
		if _, err := l.ModifyPosition(p.ID, &entry, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *EMACross) entry(b market.Bar, side sim.Side, acct sim.Account, open int) (sim.EntrySignal, bool, error) {
	dist := s.StopDistance
	if !dist.IsPositive() && s.atr != nil && s.atr.Ready() {
		dist = s.atr.Value()
	}

	qty := s.Quantity
	var sl, tp *decimal.Decimal
	if dist.IsPositive() {
		stop, take := risk.Bracket(side == sim.Buy, b.Close, dist, s.RR)
		if !stop.IsPositive() {
			return sim.EntrySignal{}, false, nil
		}
		sl = &stop
		if take.IsPositive() {
			tp = &take
		}
		if s.RiskPct.IsPositive() {
			in := risk.Inputs{
				Equity:     acct.Equity,
				RiskPct:    s.RiskPct,
				EntryPrice: b.Close,
				StopPrice:  stop,
			}
			if s.AccountCurrency != "" {
				q2a, err := market.QuoteToAccount(s.Instrument, s.AccountCurrency, b.Close)
				if err != nil {
					return sim.EntrySignal{}, false, fmt.Errorf("%s: %w", s.name, err)
				}
				in.QuoteToAccount = q2a
				if meta, ok := market.Lookup(s.Instrument); ok {
					in.Step = meta.UnitStep()
				}
			}
			res, err := risk.Size(in)
			if err != nil {
				return sim.EntrySignal{}, false, fmt.Errorf("%s: %w", s.name, err)
			}
			qty = res.Quantity
		}

		intent := risk.Intent{Instrument: s.Instrument, Quantity: qty, Entry: b.Close, Stop: stop}
		if tp != nil {
			intent.TakeProfit = *tp
		}
		d := risk.Evaluate(s.Policy, intent, risk.AccountSnapshot{
			Equity:        acct.Equity,
			MarginUsed:    acct.MarginUsed,
			OpenPositions: open,
		})
		if !d.Allowed {
			s.lastDecision = d
			return sim.EntrySignal{}, false, nil
		}
	} else if s.RiskPct.IsPositive() {
		// ATR still warming up
		return sim.EntrySignal{}, false, nil
	}

	if !qty.IsPositive() {
		return sim.EntrySignal{}, false, nil
	}
	sig, err := sim.NewEntrySignal(side.String(), qty, sl, tp)
	if err != nil {
		return sim.EntrySignal{}, false, fmt.Errorf("%s: %w", s.name, err)
	}
	return sig, true, nil
}
