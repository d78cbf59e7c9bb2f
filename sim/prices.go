package sim

import (
	"github.com/rustyeddy/tradeledger/market"
)

// PriceStore keeps the latest bar seen per instrument. The engine marks
// open positions to its close and uses its time to reject out-of-order bars.
type PriceStore struct {
	bars map[string]market.Bar
}

func NewPriceStore() *PriceStore {
	return &PriceStore{bars: make(map[string]market.Bar)}
}

func (ps *PriceStore) Set(b market.Bar) {
	ps.bars[b.Instrument] = b
}

func (ps *PriceStore) Get(instr string) (market.Bar, bool) {
	b, ok := ps.bars[instr]
	return b, ok
}

func (ps *PriceStore) Reset() {
	ps.bars = make(map[string]market.Bar)
}
