package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Instrument is static metadata for a tradable currency pair.
type Instrument struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string
	// PipLocation is the power of ten of one pip: -4 for EUR_USD.
	PipLocation int
	// UnitsPrecision is the number of decimals allowed in a quantity.
	UnitsPrecision int32
	MarginRate     decimal.Decimal
}

// PipSize is the price change of one pip.
func (i Instrument) PipSize() decimal.Decimal {
	return decimal.New(1, int32(i.PipLocation))
}

// Pips converts a pip count into a price distance.
func (i Instrument) Pips(n decimal.Decimal) decimal.Decimal {
	return n.Mul(i.PipSize())
}

// UnitStep is the smallest quantity increment.
func (i Instrument) UnitStep() decimal.Decimal {
	return decimal.New(1, -i.UnitsPrecision)
}

func pair(base, quote string, pipLoc int) Instrument {
	return Instrument{
		Name:          base + "_" + quote,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		PipLocation:   pipLoc,
		MarginRate:    decimal.RequireFromString("0.02"),
	}
}

// Instruments lists the pairs the tools know about, keyed by name.
var Instruments = map[string]Instrument{
	"EUR_USD": pair("EUR", "USD", -4),
	"GBP_USD": pair("GBP", "USD", -4),
	"AUD_USD": pair("AUD", "USD", -4),
	"USD_JPY": pair("USD", "JPY", -2),
	"USD_CHF": pair("USD", "CHF", -4),
	"USD_CAD": pair("USD", "CAD", -4),
	"EUR_GBP": pair("EUR", "GBP", -4),
}

// Lookup finds an instrument by name, accepting "EUR/USD" and lower case.
func Lookup(name string) (Instrument, bool) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "/", "_"))
	inst, ok := Instruments[key]
	return inst, ok
}

// QuoteToAccount returns the factor that turns an amount in the
// instrument's quote currency into the account currency, given the
// instrument's current price.
//   - quote == account (EUR_USD in USD): 1
//   - base == account (USD_JPY in USD): 1/price
//
// Crosses need a second rate and are rejected.
func QuoteToAccount(instrument, accountCurrency string, price decimal.Decimal) (decimal.Decimal, error) {
	meta, ok := Lookup(instrument)
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown instrument %s", instrument)
	}
	switch accountCurrency {
	case meta.QuoteCurrency:
		return decimal.NewFromInt(1), nil
	case meta.BaseCurrency:
		if !price.IsPositive() {
			return decimal.Zero, fmt.Errorf("%s: price must be > 0, got %s", instrument, price)
		}
		return decimal.NewFromInt(1).Div(price), nil
	default:
		return decimal.Zero, fmt.Errorf("cross conversion not implemented for %s → %s",
			meta.QuoteCurrency, accountCurrency)
	}
}
