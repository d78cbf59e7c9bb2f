package strategies

import (
	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/sim"
)

// Noop never trades. Useful to check a data set end to end.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) InitializeIndicators(market.Bar) {}

func (Noop) IdentifyEntrySignals(market.Bar, View) ([]sim.EntrySignal, error) { return nil, nil }

func (Noop) IdentifyExitSignals(market.Bar, View) ([]sim.ExitSignal, error) { return nil, nil }
