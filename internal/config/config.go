package config

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/jxskiss/base62"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Mode string

type Policy string

const (
	ModeReplay Mode = "replay"
	ModeLive   Mode = "live"
)

const (
	PolicyStandard Policy = "standard"
	PolicyTrailing Policy = "trailing"
)

type Config struct {
	Mode     Mode           `yaml:"mode"`
	Symbol   string         `yaml:"symbol"`
	BotID    string         `yaml:"bot_id"`
	Strategy StrategyConfig `yaml:"strategy"`
	Replay   ReplayConfig   `yaml:"replay"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig describes one band ledger and the rules for trading it.
// Funding sub-ranges default to the full [from, to) range when omitted.
type StrategyConfig struct {
	From             Decimal `yaml:"from"`
	To               Decimal `yaml:"to"`
	HandSpanPercent  Decimal `yaml:"hand_span_percent"`
	QuoteStartAmount Decimal `yaml:"quote_start_amount"`
	BaseStartAmount  Decimal `yaml:"base_start_amount"`
	QuoteFrom        Decimal `yaml:"quote_from"`
	QuoteTo          Decimal `yaml:"quote_to"`
	BaseFrom         Decimal `yaml:"base_from"`
	BaseTo           Decimal `yaml:"base_to"`
	// TriggerBelowPrice arms the bot: no trades happen until the price has
	// dipped below it once. Zero means armed from the start.
	TriggerBelowPrice Decimal `yaml:"trigger_below_price"`
	Policy            Policy  `yaml:"policy"`
	TrailStepPercent  Decimal `yaml:"trail_step_percent"`
	// Fee is a pointer so an explicit zero survives defaulting: nil means
	// unset, "0" means a fee-free venue.
	Fee            *Decimal `yaml:"fee"`
	MinIntervalSec int64    `yaml:"min_interval_sec"`
	PriceCeiling   Decimal  `yaml:"price_ceiling"`
}

type ReplayConfig struct {
	DataPaths   []string `yaml:"data_paths"`
	PriceColumn int      `yaml:"price_column"`
	TimeColumn  *int     `yaml:"time_column"`

	BaseIncrement Decimal `yaml:"base_increment"`
	BaseMinSize   Decimal `yaml:"base_min_size"`
	BaseMaxSize   Decimal `yaml:"base_max_size"`

	QuoteIncrement Decimal `yaml:"quote_increment"`
	QuoteMinSize   Decimal `yaml:"quote_min_size"`
	QuoteMaxSize   Decimal `yaml:"quote_max_size"`

	MinFunds Decimal `yaml:"min_funds"`
}

type ExchangeConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	WSBaseURL string `yaml:"ws_base_url"`
	Testnet   bool   `yaml:"testnet"`
}

type StoreConfig struct {
	Dir          string `yaml:"dir"`
	LockTakeover *bool  `yaml:"lock_takeover"`
	LockStaleSec int64  `yaml:"lock_stale_sec"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"`
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Mode = Mode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
	c.BotID = strings.TrimSpace(c.BotID)
	c.Strategy.Policy = Policy(strings.ToLower(strings.TrimSpace(string(c.Strategy.Policy))))
	c.Exchange.APIKey = strings.TrimSpace(c.Exchange.APIKey)
	c.Exchange.APISecret = strings.TrimSpace(c.Exchange.APISecret)
	c.Exchange.WSBaseURL = strings.TrimSpace(c.Exchange.WSBaseURL)
	c.Store.Dir = strings.TrimSpace(c.Store.Dir)
	for i, p := range c.Replay.DataPaths {
		c.Replay.DataPaths[i] = strings.TrimSpace(p)
	}
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeReplay
	}
	if c.BotID == "" {
		c.BotID = newBotID()
	}
	if c.Strategy.Policy == "" {
		c.Strategy.Policy = PolicyStandard
	}
	if c.Strategy.Fee == nil {
		c.Strategy.Fee = &Decimal{decimal.RequireFromString("0.001")}
	}
	if c.Strategy.TrailStepPercent.IsZero() {
		c.Strategy.TrailStepPercent = Decimal{decimal.RequireFromString("0.2")}
	}
	if c.Strategy.MinIntervalSec == 0 {
		c.Strategy.MinIntervalSec = 2
	}
	if c.Strategy.PriceCeiling.IsZero() {
		c.Strategy.PriceCeiling = Decimal{decimal.NewFromInt(1_000_000_000)}
	}
	if c.Strategy.QuoteFrom.IsZero() && c.Strategy.QuoteTo.IsZero() {
		c.Strategy.QuoteFrom = c.Strategy.From
		c.Strategy.QuoteTo = c.Strategy.To
	}
	if c.Strategy.BaseFrom.IsZero() && c.Strategy.BaseTo.IsZero() {
		c.Strategy.BaseFrom = c.Strategy.From
		c.Strategy.BaseTo = c.Strategy.To
	}
	if c.Replay.TimeColumn == nil {
		none := -1
		c.Replay.TimeColumn = &none
	}
	if c.Replay.BaseIncrement.IsZero() {
		c.Replay.BaseIncrement = Decimal{decimal.RequireFromString("0.00000001")}
	}
	if c.Replay.QuoteIncrement.IsZero() {
		c.Replay.QuoteIncrement = Decimal{decimal.RequireFromString("0.01")}
	}
	if c.Exchange.APIKey == "" {
		c.Exchange.APIKey = os.Getenv("BINANCE_API_KEY")
	}
	if c.Exchange.APISecret == "" {
		c.Exchange.APISecret = os.Getenv("BINANCE_API_SECRET")
	}
	if c.Exchange.WSBaseURL == "" {
		if c.Exchange.Testnet {
			c.Exchange.WSBaseURL = "wss://testnet.binance.vision"
		} else {
			c.Exchange.WSBaseURL = "wss://stream.binance.com:9443"
		}
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "state"
	}
	if c.Store.LockTakeover == nil {
		enabled := true
		c.Store.LockTakeover = &enabled
	}
	if c.Store.LockStaleSec == 0 {
		c.Store.LockStaleSec = 600
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Path == "" {
		c.Log.Path = "logs/handbot.log"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeReplay, ModeLive:
	default:
		return fmt.Errorf("mode must be replay or live")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !isValidSymbol(c.Symbol) {
		return fmt.Errorf("symbol must match [A-Z0-9], length 5..20")
	}
	if !isValidBotID(c.BotID) {
		return fmt.Errorf("bot_id must match [a-zA-Z0-9_-], length 1..24")
	}
	s := c.Strategy
	if s.From.Sign() <= 0 {
		return fmt.Errorf("strategy from must be > 0")
	}
	if s.To.Cmp(s.From.Decimal) <= 0 {
		return fmt.Errorf("strategy to must be > from")
	}
	if s.HandSpanPercent.Sign() <= 0 {
		return fmt.Errorf("strategy hand_span_percent must be > 0")
	}
	if s.Fee != nil && s.Fee.Sign() < 0 {
		return fmt.Errorf("strategy fee must be >= 0")
	}
	if s.Policy != PolicyStandard && s.Policy != PolicyTrailing {
		return fmt.Errorf("strategy policy must be standard or trailing")
	}
	if s.Policy == PolicyTrailing && s.TrailStepPercent.Sign() <= 0 {
		return fmt.Errorf("strategy trail_step_percent must be > 0")
	}
	if s.TriggerBelowPrice.Sign() < 0 {
		return fmt.Errorf("strategy trigger_below_price must be >= 0")
	}
	if s.QuoteStartAmount.Sign() < 0 || s.BaseStartAmount.Sign() < 0 {
		return fmt.Errorf("strategy start amounts must be >= 0")
	}
	if s.QuoteStartAmount.IsZero() && s.BaseStartAmount.IsZero() {
		return fmt.Errorf("strategy needs quote_start_amount or base_start_amount")
	}
	if s.QuoteTo.Cmp(s.QuoteFrom.Decimal) < 0 {
		return fmt.Errorf("strategy quote_to must be >= quote_from")
	}
	if s.BaseTo.Cmp(s.BaseFrom.Decimal) < 0 {
		return fmt.Errorf("strategy base_to must be >= base_from")
	}
	if s.MinIntervalSec < 0 || s.MinIntervalSec > 3600 {
		return fmt.Errorf("strategy min_interval_sec must be between 0 and 3600")
	}
	if s.PriceCeiling.Sign() <= 0 {
		return fmt.Errorf("strategy price_ceiling must be > 0")
	}
	if c.Store.LockStaleSec < 0 || c.Store.LockStaleSec > 86400 {
		return fmt.Errorf("store lock_stale_sec must be between 0 and 86400")
	}
	switch c.Mode {
	case ModeReplay:
		if len(c.Replay.DataPaths) == 0 {
			return fmt.Errorf("replay data_paths is required")
		}
		if c.Replay.PriceColumn < 0 {
			return fmt.Errorf("replay price_column must be >= 0")
		}
		if c.Replay.MinFunds.Sign() < 0 {
			return fmt.Errorf("replay min_funds must be >= 0")
		}
	case ModeLive:
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return fmt.Errorf("exchange api_key/api_secret are required for live mode")
		}
		if err := validateURL(c.Exchange.WSBaseURL, "ws", "wss"); err != nil {
			return fmt.Errorf("exchange ws_base_url %v", err)
		}
	}
	return nil
}

// TimeColumnIndex returns the configured timestamp column, -1 when the
// replay files carry none.
func (c ReplayConfig) TimeColumnIndex() int {
	if c.TimeColumn == nil {
		return -1
	}
	return *c.TimeColumn
}

func newBotID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "default"
	}
	return string(base62.Encode(b[:]))
}

func isValidBotID(v string) bool {
	if len(v) < 1 || len(v) > 24 {
		return false
	}
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}

func isValidSymbol(v string) bool {
	if len(v) < 5 || len(v) > 20 {
		return false
	}
	for _, r := range v {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
