package strategies

import (
	"fmt"

	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/sim"
)

// OpenOnce enters a single position the first time it sees a bar for its
// instrument and then holds it. It's meant as a wiring test.
type OpenOnce struct {
	Instrument string
	Signal     sim.EntrySignal

	opened bool
}

func NewOpenOnce(p Params) (Strategy, error) {
	side := p.Side
	if side == "" {
		side = "buy"
	}
	sig, err := sim.NewEntrySignal(side, p.Quantity, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open-once: %w", err)
	}
	return &OpenOnce{Instrument: p.Instrument, Signal: sig}, nil
}

func (s *OpenOnce) Name() string { return "open-once" }

func (s *OpenOnce) InitializeIndicators(market.Bar) {}

func (s *OpenOnce) IdentifyEntrySignals(b market.Bar, _ View) ([]sim.EntrySignal, error) {
	if s.opened || b.Instrument != s.Instrument {
		return nil, nil
	}
	s.opened = true
	return []sim.EntrySignal{s.Signal}, nil
}

func (s *OpenOnce) IdentifyExitSignals(market.Bar, View) ([]sim.ExitSignal, error) {
	return nil, nil
}

func (s *OpenOnce) Reset() { s.opened = false }
