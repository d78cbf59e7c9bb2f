package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/market"
)

// BarFeed yields bars one at a time in file order. Implementations
// return (ok=false, err=nil) at EOF.
type BarFeed interface {
	Next() (b market.Bar, ok bool, err error)
	Close() error
}

// SliceFeed serves bars from memory.
type SliceFeed struct {
	Bars []market.Bar
	i    int
}

func NewSliceFeed(bars []market.Bar) *SliceFeed { return &SliceFeed{Bars: bars} }

func (f *SliceFeed) Next() (market.Bar, bool, error) {
	if f.i >= len(f.Bars) {
		return market.Bar{}, false, nil
	}
	b := f.Bars[f.i]
	f.i++
	return b, true, nil
}

func (f *SliceFeed) Close() error { return nil }

// CSVBarFeed reads bar rows:
//
//	time,instrument,open,high,low,close[,volume]
//
// time is RFC3339 or RFC3339Nano. A header row ("time,...") is allowed
// and empty rows are skipped. Bars outside [From, To) are dropped when
// those bounds are set.
type CSVBarFeed struct {
	f    *os.File
	r    *csv.Reader
	from time.Time
	to   time.Time
	line int
}

func NewCSVBarFeed(path string, from, to time.Time) (*CSVBarFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return &CSVBarFeed{f: f, r: r, from: from, to: to}, nil
}

func (f *CSVBarFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVBarFeed) Next() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if errors.Is(err, io.EOF) {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		f.line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if f.line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}

		b, err := parseBarRow(row)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("csv line %d: %w", f.line, err)
		}
		if !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

func parseBarRow(row []string) (market.Bar, error) {
	if len(row) < 6 {
		return market.Bar{}, fmt.Errorf("want at least 6 columns, got %d", len(row))
	}
	ts := strings.TrimSpace(row[0])
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return market.Bar{}, fmt.Errorf("bad time %q: %w", ts, err)
	}
	inst := strings.TrimSpace(row[1])
	if inst == "" {
		return market.Bar{}, errors.New("empty instrument")
	}

	names := []string{"open", "high", "low", "close", "volume"}
	vals := make([]decimal.Decimal, len(names))
	for i, name := range names {
		col := 2 + i
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			if name == "volume" {
				continue
			}
			return market.Bar{}, fmt.Errorf("missing %s", name)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(row[col]))
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad %s %q: %w", name, row[col], err)
		}
		vals[i] = v
	}

	return market.Bar{
		Instrument: inst,
		Time:       t.UTC(),
		Open:       vals[0],
		High:       vals[1],
		Low:        vals[2],
		Close:      vals[3],
		Volume:     vals[4],
	}, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// BarRow is the Parquet schema of a bar file.
type BarRow struct {
	Instrument string  `parquet:"instrument"`
	Time       int64   `parquet:"time,timestamp(millisecond)"`
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     float64 `parquet:"volume"`
}

// ParquetBarFeed streams a Parquet bar file row by row.
type ParquetBarFeed struct {
	f    *os.File
	r    *parquet.GenericReader[BarRow]
	buf  []BarRow
	from time.Time
	to   time.Time
}

func NewParquetBarFeed(path string, from, to time.Time) (*ParquetBarFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &ParquetBarFeed{
		f:    f,
		r:    parquet.NewGenericReader[BarRow](f),
		buf:  make([]BarRow, 1),
		from: from,
		to:   to,
	}, nil
}

func (f *ParquetBarFeed) Next() (market.Bar, bool, error) {
	for {
		n, err := f.r.Read(f.buf)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				return market.Bar{}, false, nil
			}
			return market.Bar{}, false, fmt.Errorf("read parquet bars: %w", err)
		}
		row := f.buf[0]
		b := market.NewBar(row.Instrument, time.UnixMilli(row.Time).UTC(),
			row.Open, row.High, row.Low, row.Close, row.Volume)
		if !inRange(b.Time, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

func (f *ParquetBarFeed) Close() error {
	err := f.r.Close()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteParquetBars writes bars in the ParquetBarFeed layout.
func WriteParquetBars(path string, bars []market.Bar) error {
	rows := make([]BarRow, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, BarRow{
			Instrument: b.Instrument,
			Time:       b.Time.UnixMilli(),
			Open:       b.Open.InexactFloat64(),
			High:       b.High.InexactFloat64(),
			Low:        b.Low.InexactFloat64(),
			Close:      b.Close.InexactFloat64(),
			Volume:     b.Volume.InexactFloat64(),
		})
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet bars %s: %w", path, err)
	}
	return nil
}

// OpenFeed opens path as a bar feed. format is "csv" or "parquet"; empty
// picks by file extension.
func OpenFeed(path, format string, from, to time.Time) (BarFeed, error) {
	if format == "" {
		format = "csv"
		if strings.HasSuffix(strings.ToLower(path), ".parquet") {
			format = "parquet"
		}
	}
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVBarFeed(path, from, to)
	case "parquet":
		return NewParquetBarFeed(path, from, to)
	default:
		return nil, fmt.Errorf("unknown bar format %q (want csv or parquet)", format)
	}
}
