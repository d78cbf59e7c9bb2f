// Package config loads backtest run settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradeledger/backtest"
	"github.com/rustyeddy/tradeledger/journal"
	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/risk"
	"github.com/rustyeddy/tradeledger/sim"
	"github.com/rustyeddy/tradeledger/strategies"
)

// Config represents a complete backtest run.
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// EngineConfig contains ledger engine behavior
type EngineConfig struct {
	Leverage     float64 `json:"leverage" yaml:"leverage"`
	PositionMode string  `json:"position_mode" yaml:"position_mode"` // "netting" or "hedging"
	TieBreak     string  `json:"tie_break" yaml:"tie_break"`         // "stop_first" or "take_first"
	Seed         int64   `json:"seed" yaml:"seed"`

	// Margin levels in percent; 0 turns the check off
	MarginCallLevel float64 `json:"margin_call_level" yaml:"margin_call_level"`
	StopOutLevel    float64 `json:"stop_out_level" yaml:"stop_out_level"`
}

// StrategyConfig contains strategy parameters
type StrategyConfig struct {
	Name       string  `json:"name" yaml:"name"`
	Instrument string  `json:"instrument" yaml:"instrument"`
	Side       string  `json:"side,omitempty" yaml:"side,omitempty"`
	Quantity   float64 `json:"quantity" yaml:"quantity"`

	Fast int `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow int `json:"slow,omitempty" yaml:"slow,omitempty"`
	ATR  int `json:"atr,omitempty" yaml:"atr,omitempty"`

	// ema-cross-adx trend filter
	ADX    int     `json:"adx,omitempty" yaml:"adx,omitempty"`
	MinADX float64 `json:"min_adx,omitempty" yaml:"min_adx,omitempty"`

	RiskPercent  float64 `json:"risk_percent,omitempty" yaml:"risk_percent,omitempty"`
	StopDistance float64 `json:"stop_distance,omitempty" yaml:"stop_distance,omitempty"`
	// StopPips is used when StopDistance is zero.
	StopPips  float64 `json:"stop_pips,omitempty" yaml:"stop_pips,omitempty"`
	RR        float64 `json:"rr,omitempty" yaml:"rr,omitempty"`
	BreakEven bool    `json:"break_even,omitempty" yaml:"break_even,omitempty"`

	MaxRiskPercent   float64 `json:"max_risk_percent,omitempty" yaml:"max_risk_percent,omitempty"`
	MaxOpenPositions int     `json:"max_open_positions,omitempty" yaml:"max_open_positions,omitempty"`
	MaxMarginPercent float64 `json:"max_margin_percent,omitempty" yaml:"max_margin_percent,omitempty"`
	MinRR            float64 `json:"min_rr,omitempty" yaml:"min_rr,omitempty"`

	// Trading session as UTC "HH:MM"; bars outside it are dropped.
	SessionStart string `json:"session_start,omitempty" yaml:"session_start,omitempty"`
	SessionEnd   string `json:"session_end,omitempty" yaml:"session_end,omitempty"`
}

// BacktestConfig says where bars come from and how the run behaves
type BacktestConfig struct {
	Data       string `json:"data" yaml:"data"`
	Format     string `json:"format,omitempty" yaml:"format,omitempty"` // "csv" or "parquet"
	From       string `json:"from,omitempty" yaml:"from,omitempty"`     // RFC3339
	To         string `json:"to,omitempty" yaml:"to,omitempty"`
	CloseEnd   bool   `json:"close_end" yaml:"close_end"`
	OnError    string `json:"on_error" yaml:"on_error"` // "halt" or "skip"
	ResetOnGap string `json:"reset_on_gap,omitempty" yaml:"reset_on_gap,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	ClosesFile  string `json:"closes_file,omitempty" yaml:"closes_file,omitempty"`
	EquityFile  string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	ParquetPath string `json:"parquet_path,omitempty" yaml:"parquet_path,omitempty"`
	OrgPath     string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}

	if c.Engine.Leverage < 0 {
		return fmt.Errorf("engine.leverage must not be negative")
	}
	if _, err := sim.ParsePositionMode(c.Engine.PositionMode); err != nil {
		return fmt.Errorf("engine.position_mode: %w", err)
	}
	if _, err := sim.ParseTieBreak(c.Engine.TieBreak); err != nil {
		return fmt.Errorf("engine.tie_break: %w", err)
	}
	if c.Engine.MarginCallLevel < 0 || c.Engine.StopOutLevel < 0 {
		return fmt.Errorf("engine.margin_call_level and engine.stop_out_level must not be negative")
	}
	if c.Engine.MarginCallLevel > 0 && c.Engine.StopOutLevel > c.Engine.MarginCallLevel {
		return fmt.Errorf("engine.stop_out_level must not be above engine.margin_call_level")
	}

	s := c.Strategy
	if _, ok := strategies.Get(s.Name); !ok {
		return fmt.Errorf("unknown strategy: %s", s.Name)
	}
	if s.Instrument == "" {
		return fmt.Errorf("strategy.instrument is required")
	}
	if _, ok := market.Lookup(s.Instrument); !ok {
		return fmt.Errorf("unknown instrument: %s", s.Instrument)
	}
	if s.Quantity < 0 {
		return fmt.Errorf("strategy.quantity must not be negative")
	}
	if s.RiskPercent < 0 || s.RiskPercent > 1 {
		return fmt.Errorf("strategy.risk_percent must be between 0 and 1")
	}
	if s.StopDistance < 0 || s.StopPips < 0 {
		return fmt.Errorf("strategy.stop_distance and stop_pips must not be negative")
	}
	if s.ADX < 0 || s.MinADX < 0 {
		return fmt.Errorf("strategy.adx and min_adx must not be negative")
	}
	if _, _, err := c.session(); err != nil {
		return err
	}

	if c.Backtest.Data == "" {
		return fmt.Errorf("backtest.data is required")
	}
	if f := strings.ToLower(c.Backtest.Format); f != "" && f != "csv" && f != "parquet" {
		return fmt.Errorf("backtest.format must be 'csv' or 'parquet'")
	}
	if _, err := backtest.ParseErrorPolicy(c.Backtest.OnError); err != nil {
		return fmt.Errorf("backtest.on_error: %w", err)
	}
	if _, _, err := c.Window(); err != nil {
		return err
	}
	if _, err := c.resetOnGap(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.ClosesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal closes_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	if f := c.Logging.Format; f != "" && f != "text" && f != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  100000,
		},
		Engine: EngineConfig{
			Leverage:     50,
			PositionMode: "netting",
			TieBreak:     "stop_first",
			Seed:         1,

			MarginCallLevel: 100,
			StopOutLevel:    50,
		},
		Strategy: StrategyConfig{
			Name:         "ema-cross",
			Instrument:   "EUR_USD",
			Quantity:     10000,
			Fast:         20,
			Slow:         50,
			ATR:          14,
			RiskPercent:  0.01,
			StopDistance: 0.0020,
			RR:           2,
		},
		Backtest: BacktestConfig{
			Data:     "./data/eurusd-m1.csv",
			Format:   "csv",
			CloseEnd: true,
			OnError:  "halt",
		},
		Journal: JournalConfig{
			Type:       "csv",
			ClosesFile: "./closes.csv",
			EquityFile: "./equity.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// EngineConfig converts the account and engine sections to sim.Config.
func (c *Config) EngineConfig() (sim.Config, error) {
	mode, err := sim.ParsePositionMode(c.Engine.PositionMode)
	if err != nil {
		return sim.Config{}, err
	}
	tb, err := sim.ParseTieBreak(c.Engine.TieBreak)
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		InitialBalance: decimal.NewFromFloat(c.Account.Balance),
		Leverage:       decimal.NewFromFloat(c.Engine.Leverage),
		Mode:           mode,
		TieBreak:       tb,
		Seed:           c.Engine.Seed,

		MarginCallLevel: decimal.NewFromFloat(c.Engine.MarginCallLevel),
		StopOutLevel:    decimal.NewFromFloat(c.Engine.StopOutLevel),
	}, nil
}

// StrategyParams converts the strategy section for strategies.ByName.
func (c *Config) StrategyParams() strategies.Params {
	s := c.Strategy
	stop := decimal.NewFromFloat(s.StopDistance)
	if stop.IsZero() && s.StopPips > 0 {
		if inst, ok := market.Lookup(s.Instrument); ok {
			stop = inst.Pips(decimal.NewFromFloat(s.StopPips))
		}
	}
	return strategies.Params{
		Instrument:   s.Instrument,
		Side:         s.Side,
		Quantity:     decimal.NewFromFloat(s.Quantity),
		Fast:         s.Fast,
		Slow:         s.Slow,
		ATR:          s.ATR,
		ADX:          s.ADX,
		MinADX:       decimal.NewFromFloat(s.MinADX),
		RiskPct:      decimal.NewFromFloat(s.RiskPercent),
		StopDistance: stop,
		RR:           decimal.NewFromFloat(s.RR),
		BreakEven:    s.BreakEven,

		AccountCurrency: c.Account.Currency,
		Policy: risk.Policy{
			MaxRiskPct:       decimal.NewFromFloat(s.MaxRiskPercent),
			MaxOpenPositions: s.MaxOpenPositions,
			MaxMarginPct:     decimal.NewFromFloat(s.MaxMarginPercent),
			MinRR:            decimal.NewFromFloat(s.MinRR),
		},
	}
}

// NewStrategy builds the configured strategy, wrapped in a session
// filter when a session is set.
func (c *Config) NewStrategy() (strategies.Strategy, error) {
	s, err := strategies.ByName(c.Strategy.Name, c.StrategyParams())
	if err != nil {
		return nil, err
	}
	from, to, err := c.session()
	if err != nil {
		return nil, err
	}
	if from != to {
		s = strategies.SessionFilter{Strategy: s, From: from, To: to}
	}
	return s, nil
}

// Window returns the backtest.from/to bounds; zero times mean unbounded.
func (c *Config) Window() (from, to time.Time, err error) {
	if c.Backtest.From != "" {
		if from, err = time.Parse(time.RFC3339, c.Backtest.From); err != nil {
			return from, to, fmt.Errorf("backtest.from: %w", err)
		}
	}
	if c.Backtest.To != "" {
		if to, err = time.Parse(time.RFC3339, c.Backtest.To); err != nil {
			return from, to, fmt.Errorf("backtest.to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("backtest.from must be before backtest.to")
	}
	return from, to, nil
}

// RunnerOptions converts the backtest section to runner options.
func (c *Config) RunnerOptions() (backtest.Options, error) {
	policy, err := backtest.ParseErrorPolicy(c.Backtest.OnError)
	if err != nil {
		return backtest.Options{}, err
	}
	gap, err := c.resetOnGap()
	if err != nil {
		return backtest.Options{}, err
	}
	return backtest.Options{
		CloseEnd:   c.Backtest.CloseEnd,
		OnError:    policy,
		ResetOnGap: gap,
	}, nil
}

// OpenFeed opens the configured bar file.
func (c *Config) OpenFeed() (backtest.BarFeed, error) {
	from, to, err := c.Window()
	if err != nil {
		return nil, err
	}
	return backtest.OpenFeed(c.Backtest.Data, c.Backtest.Format, from, to)
}

// OpenJournal opens the configured journal; "none" gives journal.Nop.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "csv":
		return journal.NewCSV(c.Journal.ClosesFile, c.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath)
	case "none", "":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
	}
}

// NewLogger builds a slog.Logger writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging.format must be 'text' or 'json'")
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

func (c *Config) resetOnGap() (time.Duration, error) {
	if c.Backtest.ResetOnGap == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Backtest.ResetOnGap)
	if err != nil {
		return 0, fmt.Errorf("backtest.reset_on_gap: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("backtest.reset_on_gap must not be negative")
	}
	return d, nil
}

func (c *Config) session() (from, to time.Duration, err error) {
	s := c.Strategy
	if s.SessionStart == "" && s.SessionEnd == "" {
		return 0, 0, nil
	}
	if from, err = clock(s.SessionStart); err != nil {
		return 0, 0, fmt.Errorf("strategy.session_start: %w", err)
	}
	if to, err = clock(s.SessionEnd); err != nil {
		return 0, 0, fmt.Errorf("strategy.session_end: %w", err)
	}
	return from, to, nil
}

// clock parses "HH:MM" into an offset from midnight.
func clock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
