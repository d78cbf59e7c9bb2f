// Package strategies turns bars into entry and exit signals for the
// ledger. Strategies never hold ledger state; they read it through View.
package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/risk"
	"github.com/rustyeddy/tradeledger/sim"
)

// View is the read-only slice of the ledger a strategy may look at.
type View interface {
	OpenPositions() []sim.Position
	Account() sim.Account
}

// Ledger is what position monitors get: the view plus the right to move
// stops and targets.
type Ledger interface {
	View
	ModifyPosition(positionID string, sl, tp *decimal.Decimal) (sim.Position, error)
}

// Strategy is called once per bar, in this order: InitializeIndicators,
// IdentifyEntrySignals, IdentifyExitSignals. The driver then hands the
// signals to the engine.
type Strategy interface {
	Name() string
	InitializeIndicators(b market.Bar)
	IdentifyEntrySignals(b market.Bar, v View) ([]sim.EntrySignal, error)
	IdentifyExitSignals(b market.Bar, v View) ([]sim.ExitSignal, error)
}

// Preprocessor can rewrite or drop a bar before anything else sees it.
// Returning false skips the bar entirely.
type Preprocessor interface {
	PreprocessData(b market.Bar) (market.Bar, bool)
}

// Monitor runs after the engine has applied the bar.
type Monitor interface {
	MonitorPositions(b market.Bar, l Ledger) error
}

// Resetter clears strategy state between runs.
type Resetter interface {
	Reset()
}

// Params is the union of settings the built-in strategies understand.
type Params struct {
	Instrument string
	Side       string
	Quantity   decimal.Decimal

	Fast int
	Slow int
	ATR  int

	// ADX is the period of the trend filter; MinADX its threshold.
	ADX    int
	MinADX decimal.Decimal

	RiskPct      decimal.Decimal
	StopDistance decimal.Decimal
	RR           decimal.Decimal
	BreakEven    bool

	// AccountCurrency lets risk sizing convert quote-currency risk into
	// the account currency. Empty assumes they match.
	AccountCurrency string

	Policy risk.Policy
}

type Factory func(Params) (Strategy, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register makes a strategy available to ByName. Names are
// case-insensitive; registering a name twice replaces the factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[normalize(name)] = f
}

func Get(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[normalize(name)]
	return f, ok
}

// Names lists registered strategies in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ByName builds a fresh strategy instance from the registry.
func ByName(name string, p Params) (Strategy, error) {
	f, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(p)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func init() {
	Register("noop", func(Params) (Strategy, error) { return Noop{}, nil })
	Register("open-once", NewOpenOnce)
	Register("ema-cross", NewEMACross)
	Register("ema-cross-adx", NewEMACrossADX)
}
