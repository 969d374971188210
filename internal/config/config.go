// Package config defines all configuration for the trading engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via ALGO_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun     bool             `mapstructure:"dry_run"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	API        APIConfig        `mapstructure:"api"`
	Coins      []string         `mapstructure:"coins"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Signal     SignalConfig     `mapstructure:"signal"`
	Directional DirectionalConfig `mapstructure:"directional"`
	CrossMarket CrossMarketConfig `mapstructure:"cross_market"`
	Latency    LatencyConfig    `mapstructure:"latency"`
	Gabagool   GabagoolConfig   `mapstructure:"gabagool"`
	Kelly      KellyConfig      `mapstructure:"kelly"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	AutoExec   AutoExecConfig   `mapstructure:"auto_exec"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Validation ValidationConfig `mapstructure:"validation"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

// WalletConfig holds the Ethereum wallet used for signing live orders.
// PrivateKey signs L1 (EIP-712) auth and derives L2 API keys.
type WalletConfig struct {
	PrivateKey    string `mapstructure:"private_key"`
	SignatureType int    `mapstructure:"signature_type"`
	FunderAddress string `mapstructure:"funder_address"`
	ChainID       int    `mapstructure:"chain_id"`
}

// APIConfig holds venue API endpoints and optional pre-derived L2 credentials.
type APIConfig struct {
	CLOBBaseURL   string `mapstructure:"clob_base_url"`
	GammaBaseURL  string `mapstructure:"gamma_base_url"`
	SpotWSURL     string `mapstructure:"spot_ws_url"`
	BookWSURL     string `mapstructure:"book_ws_url"`
	OracleBaseURL string `mapstructure:"oracle_base_url"`
	ApiKey        string `mapstructure:"api_key"`
	Secret        string `mapstructure:"secret"`
	Passphrase    string `mapstructure:"passphrase"`
}

// CatalogConfig controls how the bot discovers live 15-minute binary markets.
type CatalogConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	WindowMinutes  int           `mapstructure:"window_minutes"`
}

// SignalConfig tunes the signal aggregator and its context builder.
type SignalConfig struct {
	TickInterval             time.Duration `mapstructure:"tick_interval"`
	LookbackMinutes          int           `mapstructure:"lookback_minutes"`
	FundingLookbackHours     int           `mapstructure:"funding_lookback_hours"`
	LiquidationWindowMinutes int           `mapstructure:"liquidation_window_minutes"`
	NewsLookbackMinutes      int           `mapstructure:"news_lookback_minutes"`
	MaxOrderBookLevels       int           `mapstructure:"max_orderbook_levels"`
	CompositeThreshold       float64       `mapstructure:"composite_threshold"`
	PersistSnapshots         bool          `mapstructure:"persist_snapshots"`
	PersistRawData           bool          `mapstructure:"persist_raw_data"`
}

// DirectionalConfig tunes the single-leg directional detector.
type DirectionalConfig struct {
	MinDeltaPct         float64       `mapstructure:"min_delta_pct"`
	MaxDeltaPct         float64       `mapstructure:"max_delta_pct"`
	MaxEntryPrice       float64       `mapstructure:"max_entry_price"`
	MinEdge             float64       `mapstructure:"min_edge"`
	EntryWindowStartSec int64         `mapstructure:"entry_window_start_secs"`
	EntryWindowEndSec   int64         `mapstructure:"entry_window_end_secs"`
	SignalCooldown      time.Duration `mapstructure:"signal_cooldown"`
	ScanInterval        time.Duration `mapstructure:"scan_interval"`
}

// DefaultDirectionalConfig mirrors the defaults validated against the
// original detector's test suite.
func DefaultDirectionalConfig() DirectionalConfig {
	return DirectionalConfig{
		MinDeltaPct:         0.0005,
		MaxDeltaPct:         0.03,
		MaxEntryPrice:       0.55,
		MinEdge:             0.03,
		EntryWindowStartSec: 600,
		EntryWindowEndSec:   120,
		SignalCooldown:      30 * time.Second,
		ScanInterval:        time.Second,
	}
}

// CrossMarketConfig tunes the cross-coin correlation detector.
type CrossMarketConfig struct {
	MinSpread           float64       `mapstructure:"min_spread"`
	MaxTotalCost        float64       `mapstructure:"max_total_cost"`
	MinExpectedValue    float64       `mapstructure:"min_expected_value"`
	MinDepth            float64       `mapstructure:"min_depth"`
	AssumedCorrelation  float64       `mapstructure:"assumed_correlation"`
	OnlyUpDown          bool          `mapstructure:"only_up_down"`
	SignalCooldown      time.Duration `mapstructure:"signal_cooldown"`
	ScanInterval        time.Duration `mapstructure:"scan_interval"`
}

// LatencyConfig tunes the latency-arbitrage detector.
type LatencyConfig struct {
	MinDeltaPct     float64       `mapstructure:"min_delta_pct"`
	StillCheapPrice float64       `mapstructure:"still_cheap_price"`
	SignalCooldown  time.Duration `mapstructure:"signal_cooldown"`
	ScanInterval    time.Duration `mapstructure:"scan_interval"`
}

// GabagoolConfig tunes the hybrid entry/hedge/scratch detector.
type GabagoolConfig struct {
	CheapEntryPrice    float64       `mapstructure:"cheap_entry_price"`
	MinReferenceDelta  float64       `mapstructure:"min_reference_delta"`
	MinElapsedSec      int64         `mapstructure:"min_elapsed_secs"`
	PairCostThreshold  float64       `mapstructure:"pair_cost_threshold"`
	ScratchTimeSec     int64         `mapstructure:"scratch_time_secs"`
	ScratchLossLimit   float64       `mapstructure:"scratch_loss_limit"`
	ScanInterval       time.Duration `mapstructure:"scan_interval"`
}

// KellyConfig tunes fractional-Kelly stake sizing.
type KellyConfig struct {
	Fraction float64 `mapstructure:"fraction"`
	MaxBet   float64 `mapstructure:"max_bet"`
	MinEdge  float64 `mapstructure:"min_edge"`
}

// DefaultKellyConfig matches the grounded defaults (fraction 0.25,
// max bet 1000, min edge 0.01).
func DefaultKellyConfig() KellyConfig {
	return KellyConfig{Fraction: 0.25, MaxBet: 1000, MinEdge: 0.01}
}

// RiskConfig sets portfolio-level exposure limits and the kill switch,
// repurposed from the teacher's quote-inventory risk manager to paired
// arbitrage / directional-position exposure risk.
type RiskConfig struct {
	MaxPositionPerMarket float64       `mapstructure:"max_position_per_market"`
	MaxGlobalExposure    float64       `mapstructure:"max_global_exposure"`
	MaxPositionPerWindow float64       `mapstructure:"max_position_per_window"`
	KillSwitchDropPct    float64       `mapstructure:"kill_switch_drop_pct"`
	KillSwitchWindowSec  int           `mapstructure:"kill_switch_window_sec"`
	MaxDailyLoss         float64       `mapstructure:"max_daily_loss"`
	CooldownAfterKill    time.Duration `mapstructure:"cooldown_after_kill"`
}

// ExecutorConfig selects and tunes the order execution backend.
type ExecutorConfig struct {
	Mode        string  `mapstructure:"mode"` // "paper" | "live"
	FillRate    float64 `mapstructure:"fill_rate"`
	RandomSeed  int64   `mapstructure:"random_seed"`
	FeeRateBps  int     `mapstructure:"fee_rate_bps"`
}

// AutoExecConfig tunes the cross-market auto-executor's gating thresholds
// and filters, mirroring the original CLI's --pair/--combination/--bet-size
// flags as config fields instead of process arguments.
type AutoExecConfig struct {
	FilterPair           []string `mapstructure:"filter_pair"`        // e.g. ["BTC","ETH"]; empty = all pairs
	FilterCombination    string   `mapstructure:"filter_combination"` // "" = all combinations
	MinSpread            float64  `mapstructure:"min_spread"`
	MinWinProbability    float64  `mapstructure:"min_win_probability"`
	MaxPositionPerWindow float64  `mapstructure:"max_position_per_window"`
	FixedBetSize         float64  `mapstructure:"fixed_bet_size"` // 0 = use Kelly sizing
}

// DefaultAutoExecConfig matches the original command's own defaults
// (min spread $0.03, min win probability 85%, max position $200/window).
func DefaultAutoExecConfig() AutoExecConfig {
	return AutoExecConfig{
		MinSpread:            0.03,
		MinWinProbability:    0.85,
		MaxPositionPerWindow: 200,
	}
}

// SettlementConfig tunes the window-close settlement sweep.
type SettlementConfig struct {
	WindowMinutes int           `mapstructure:"window_minutes"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepDelay    time.Duration `mapstructure:"sweep_delay"`
	FeeRate       float64       `mapstructure:"fee_rate"`
}

// ValidationConfig tunes the offline hypothesis-testing pass.
type ValidationConfig struct {
	ForwardReturnHorizon time.Duration `mapstructure:"forward_return_horizon"`
	MinSamples           int           `mapstructure:"min_samples"`
}

// StoreConfig sets where the relational store's database file lives.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the operational HTTP/WS server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: ALGO_PRIVATE_KEY, ALGO_API_KEY,
// ALGO_API_SECRET, ALGO_PASSPHRASE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ALGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("ALGO_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("ALGO_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if secret := os.Getenv("ALGO_API_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("ALGO_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}
	if v := os.Getenv("ALGO_DRY_RUN"); v == "true" || v == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges, failing fast before
// any subsystem is spawned.
func (c *Config) Validate() error {
	if c.Executor.Mode == "live" {
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("wallet.private_key is required in live mode (set ALGO_PRIVATE_KEY)")
		}
		if c.Wallet.ChainID == 0 {
			return fmt.Errorf("wallet.chain_id is required in live mode (137 for mainnet)")
		}
		switch c.Wallet.SignatureType {
		case 0, 1, 2:
		default:
			return fmt.Errorf("wallet.signature_type must be one of: 0 (EOA), 1 (POLY_PROXY), 2 (GNOSIS_SAFE)")
		}
	}
	if len(c.Coins) == 0 {
		return fmt.Errorf("coins must list at least one symbol")
	}
	if c.API.CLOBBaseURL == "" {
		return fmt.Errorf("api.clob_base_url is required")
	}
	if c.Kelly.Fraction <= 0 || c.Kelly.Fraction > 1 {
		return fmt.Errorf("kelly.fraction must be in (0, 1]")
	}
	if c.Kelly.MaxBet <= 0 {
		return fmt.Errorf("kelly.max_bet must be > 0")
	}
	if c.Risk.MaxGlobalExposure <= 0 {
		return fmt.Errorf("risk.max_global_exposure must be > 0")
	}
	if c.Risk.MaxPositionPerMarket <= 0 {
		return fmt.Errorf("risk.max_position_per_market must be > 0")
	}
	if c.Executor.Mode != "paper" && c.Executor.Mode != "live" {
		return fmt.Errorf("executor.mode must be 'paper' or 'live'")
	}
	if c.Settlement.WindowMinutes <= 0 {
		return fmt.Errorf("settlement.window_minutes must be > 0")
	}
	if c.AutoExec.MinWinProbability < 0 || c.AutoExec.MinWinProbability > 1 {
		return fmt.Errorf("auto_exec.min_win_probability must be in [0, 1]")
	}
	if len(c.AutoExec.FilterPair) != 0 && len(c.AutoExec.FilterPair) != 2 {
		return fmt.Errorf("auto_exec.filter_pair must name exactly two coins or be empty")
	}
	return nil
}
