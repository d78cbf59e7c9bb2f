package sim

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/pkg/id"
)

// Engine is the order/position ledger of one backtest run. It owns its
// pending queue, open and closed positions, order history and balance;
// nothing is shared with other engines.
//
// An Engine is meant to be driven by a single goroutine feeding bars in
// order. The mutex only keeps readers (reporting, a UI) safe while that
// happens.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	ids *id.Generator

	balance decimal.Decimal

	pending []*Order
	orders  map[string]*Order
	history []*Order

	open      []*Position
	closed    []*Position
	positions map[string]*Position

	prices *PriceStore
	now    time.Time
	seq    uint64

	listener Listener
	queued   []func(Listener)
}

// NewEngine builds an engine with cfg.InitialBalance of cash.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		ids:    id.NewGenerator(cfg.Seed),
		prices: NewPriceStore(),
	}
	e.resetLocked()
	return e, nil
}

// SetListener installs l as the receiver of ledger events. Pass a
// Listeners value to fan out to several.
func (e *Engine) SetListener(l Listener) {
	e.mu.Lock()
	defer e.unlock()
	e.listener = l
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Reset clears pending orders, order history, open and closed positions
// and restores the initial balance. ID generation restarts too, so a rerun
// over the same bars yields identical IDs.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.balance = e.cfg.InitialBalance
	e.pending = nil
	e.orders = make(map[string]*Order)
	e.history = nil
	e.open = nil
	e.closed = nil
	e.positions = make(map[string]*Position)
	e.prices.Reset()
	e.now = time.Time{}
	e.seq = 0
	e.queued = nil
	e.ids.Reseed()
}

// emit queues an event for delivery once the lock is released.
func (e *Engine) emit(fn func(Listener)) {
	if e.listener == nil {
		return
	}
	e.queued = append(e.queued, fn)
}

// unlock releases the mutex and then delivers queued events, so
// listeners never run while the engine is locked.
func (e *Engine) unlock() {
	queued := e.queued
	listener := e.listener
	e.queued = nil
	e.mu.Unlock()

	for _, fn := range queued {
		fn(listener)
	}
}

func (e *Engine) removePendingLocked(o *Order) {
	for i, p := range e.pending {
		if p == o {
			e.pending = append(e.pending[:i:i], e.pending[i+1:]...)
			return
		}
	}
}

func (e *Engine) removeOpenLocked(p *Position) {
	for i, o := range e.open {
		if o == p {
			e.open = append(e.open[:i:i], e.open[i+1:]...)
			return
		}
	}
}
