// Package config provides configuration management for the options engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. Strategy parameters go
// through ParamSource so learned overrides can be merged in at reload time;
// everything else is fixed for the process lifetime.
type Config struct {
	Mode        string            `mapstructure:"mode"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Strategy    StrategyParams    `mapstructure:"strategy"`
	Modes       map[string]map[string]float64 `mapstructure:"modes"`
	Stocks      []StockCandidate  `mapstructure:"stock_candidates"`
	Indexes     []IndexCandidate  `mapstructure:"index_candidates"`
	Credentials Credentials       `mapstructure:"-"` // environment only
	DBPath      string            `mapstructure:"db_path"`
}

// EngineConfig holds cycle and environment settings.
type EngineConfig struct {
	CycleInterval      time.Duration `mapstructure:"cycle_interval"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	TuneSchedule       string        `mapstructure:"tune_schedule"`
	VIXAlarmThreshold  float64       `mapstructure:"vix_alarm_threshold"`
	VIXPanicThreshold  float64       `mapstructure:"vix_panic_threshold"`
	VIXDeltaScale      float64       `mapstructure:"vix_delta_scale"`
	EarningsWindowDays int           `mapstructure:"earnings_window_days"`
	EarningsCacheTTL   time.Duration `mapstructure:"earnings_cache_ttl"`
	UseCostModel       bool          `mapstructure:"use_cost_model"`
	CommissionPerLot   float64       `mapstructure:"commission_per_lot"`
	SlippagePerLot     float64       `mapstructure:"slippage_per_lot"`
	TradingHoursOnly   bool          `mapstructure:"trading_hours_only"`
}

// StockCandidate is an equity in the covered-call candidate pool, checked
// in configured order.
type StockCandidate struct {
	Symbol    string `mapstructure:"symbol"`
	MinShares int    `mapstructure:"min_shares"`
}

// IndexCandidate is an index/ETF candidate for credit spreads.
type IndexCandidate struct {
	Symbol   string `mapstructure:"symbol"`
	Exchange string `mapstructure:"exchange"`
}

// Credentials holds external API credentials, loaded from the environment.
type Credentials struct {
	FinnhubAPIKey string
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-engine"
	}
	return filepath.Join(home, ".config", "options-engine")
}

// DefaultMode is the strategy mode used when none is configured.
const DefaultMode = "income"

// Load loads configuration from the specified directory. If configDir is
// empty the default directory is used; a missing config file leaves the
// built-in defaults in place.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("mode", DefaultMode)
	v.SetDefault("db_path", filepath.Join(configDir, "strategy_data.db"))

	v.SetDefault("engine.cycle_interval", 10*time.Minute)
	v.SetDefault("engine.retry_delay", time.Minute)
	v.SetDefault("engine.tune_schedule", "@hourly")
	v.SetDefault("engine.vix_alarm_threshold", 30.0)
	v.SetDefault("engine.vix_panic_threshold", 40.0)
	v.SetDefault("engine.vix_delta_scale", 0.8)
	v.SetDefault("engine.earnings_window_days", 3)
	v.SetDefault("engine.earnings_cache_ttl", 24*time.Hour)
	v.SetDefault("engine.use_cost_model", false)
	v.SetDefault("engine.commission_per_lot", 1.5)
	v.SetDefault("engine.slippage_per_lot", 0.02)
	v.SetDefault("engine.trading_hours_only", true)

	v.SetDefault("strategy.cc_delta_target", 0.15)
	v.SetDefault("strategy.pcs_sell_delta", 0.07)
	v.SetDefault("strategy.pcs_width", 30.0)
	v.SetDefault("strategy.roll_delta_threshold", 0.45)
	v.SetDefault("strategy.roll_dte_threshold", 1)
	v.SetDefault("strategy.max_daily_drawdown", 0.01)

	v.SetDefault("stock_candidates", []map[string]interface{}{
		{"symbol": "GOOG", "min_shares": 100},
		{"symbol": "AAPL", "min_shares": 100},
		{"symbol": "MSFT", "min_shares": 100},
	})
	v.SetDefault("index_candidates", []map[string]interface{}{
		{"symbol": "SPX", "exchange": "CBOE"},
		{"symbol": "QQQ", "exchange": "NASDAQ"},
		{"symbol": "SPY", "exchange": "SMART"},
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRATEGY_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Credentials.FinnhubAPIKey = v
	}
	if v := os.Getenv("OPTIONS_ENGINE_DB"); v != "" {
		cfg.DBPath = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Mode == "" {
		return fmt.Errorf("mode must not be empty")
	}
	if c.Engine.CycleInterval <= 0 {
		return fmt.Errorf("engine.cycle_interval must be positive")
	}
	if c.Engine.VIXDeltaScale <= 0 || c.Engine.VIXDeltaScale > 1 {
		return fmt.Errorf("engine.vix_delta_scale must be in (0,1]")
	}
	return c.Strategy.Validate()
}

// BaseParams returns the configured parameters for the given mode: the
// base strategy section with the mode's named overrides applied. Learned
// overrides are merged later by ParamSource.
func (c *Config) BaseParams(mode string) StrategyParams {
	params := c.Strategy
	if modeOverrides, ok := c.Modes[mode]; ok {
		params = params.withOverrides(modeOverrides)
	}
	return params
}
