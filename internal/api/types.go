package api

import (
	"time"

	"algotrade/internal/config"
)

// DashboardSnapshot represents the complete dashboard state: live detector
// throughput, execution stats for both executors, risk posture, and the
// most recent settlement/validation summaries.
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Detectors DetectorSnapshot `json:"detectors"`

	Directional DirectionalExecSnapshot `json:"directional"`
	CrossMarket CrossMarketExecSnapshot `json:"cross_market"`

	Risk RiskSnapshot `json:"risk"`

	Settlement SettlementSnapshot `json:"settlement"`
	Validation *ValidationSnapshot `json:"validation,omitempty"`

	Config ConfigSummary `json:"config"`
}

// DetectorSnapshot holds the live stats counters for every scanning family.
type DetectorSnapshot struct {
	Directional DetectorStats `json:"directional"`
	CrossMarket DetectorStats `json:"cross_market"`
	Latency     DetectorStats `json:"latency"`
	Gabagool    DetectorStats `json:"gabagool"`
}

// DetectorStats mirrors internal/detect.StatsSnapshot for JSON transport.
type DetectorStats struct {
	ScansPerformed      int64     `json:"scans_performed"`
	OpportunitiesFound  int64     `json:"opportunities_found"`
	ErrorCount          int64     `json:"error_count"`
	LastScanAt          time.Time `json:"last_scan_at"`
	LastOpportunityAt   time.Time `json:"last_opportunity_at,omitempty"`
}

// DirectionalExecSnapshot mirrors internal/autoexec.DirectionalStatsSnapshot.
type DirectionalExecSnapshot struct {
	OpportunitiesReceived int64   `json:"opportunities_received"`
	OpportunitiesSkipped  int64   `json:"opportunities_skipped"`
	ExecutionsAttempted   int64   `json:"executions_attempted"`
	Filled                int64   `json:"filled"`
	Rejected              int64   `json:"rejected"`
	TotalVolume           float64 `json:"total_volume"`
	PendingSettlement     int64   `json:"pending_settlement"`
}

// CrossMarketExecSnapshot mirrors internal/autoexec.StatsSnapshot.
type CrossMarketExecSnapshot struct {
	OpportunitiesReceived int64   `json:"opportunities_received"`
	OpportunitiesSkipped  int64   `json:"opportunities_skipped"`
	ExecutionsAttempted   int64   `json:"executions_attempted"`
	BothFilled            int64   `json:"both_filled"`
	PartialFills          int64   `json:"partial_fills"`
	BothRejected          int64   `json:"both_rejected"`
	TotalVolume           float64 `json:"total_volume"`
	PendingSettlement     int64   `json:"pending_settlement"`
}

// RiskSnapshot mirrors internal/risk.Snapshot for JSON transport.
type RiskSnapshot struct {
	GlobalExposure       float64   `json:"global_exposure"`
	MaxGlobalExposure    float64   `json:"max_global_exposure"`
	ExposurePct          float64   `json:"exposure_pct"`
	KillSwitchActive     bool      `json:"kill_switch_active"`
	KillSwitchUntil      time.Time `json:"kill_switch_until,omitempty"`
	KillSwitchReason     string    `json:"kill_switch_reason,omitempty"`
	TotalRealizedPnL     float64   `json:"total_realized_pnl"`
	TotalUnrealizedPnL   float64   `json:"total_unrealized_pnl"`
	MaxPositionPerMarket float64   `json:"max_position_per_market"`
	MaxDailyLoss         float64   `json:"max_daily_loss"`
	ActiveMarkets        int       `json:"active_markets"`
}

// SettlementSnapshot reports how the window-close sweep is keeping up.
type SettlementSnapshot struct {
	LastSweepAt    time.Time `json:"last_sweep_at"`
	PendingTrades  int       `json:"pending_trades"`
	LastSweepError string    `json:"last_sweep_error,omitempty"`
}

// ValidationSnapshot is the most recent offline hypothesis-testing report,
// omitted until the first pass has run.
type ValidationSnapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Summary     string    `json:"summary"`
	SignalCount int       `json:"signal_count"`
}

// ConfigSummary surfaces the operational knobs a dashboard viewer cares
// about, not the full config (which may hold credentials).
type ConfigSummary struct {
	Coins    []string `json:"coins"`
	DryRun   bool     `json:"dry_run"`
	Live     bool     `json:"live"`

	KellyFraction float64 `json:"kelly_fraction"`
	KellyMaxBet   float64 `json:"kelly_max_bet"`

	MaxGlobalExposure    float64 `json:"max_global_exposure"`
	MaxPositionPerMarket float64 `json:"max_position_per_market"`
	KillSwitchDropPct    float64 `json:"kill_switch_drop_pct"`

	MinWinProbability float64 `json:"min_win_probability"`
	MinSpread         float64 `json:"min_spread"`
}

// NewConfigSummary creates a config summary safe to expose over the API.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		Coins:                cfg.Coins,
		DryRun:               cfg.DryRun,
		Live:                 cfg.Executor.Mode == "live",
		KellyFraction:        cfg.Kelly.Fraction,
		KellyMaxBet:          cfg.Kelly.MaxBet,
		MaxGlobalExposure:    cfg.Risk.MaxGlobalExposure,
		MaxPositionPerMarket: cfg.Risk.MaxPositionPerMarket,
		KillSwitchDropPct:    cfg.Risk.KillSwitchDropPct,
		MinWinProbability:    cfg.AutoExec.MinWinProbability,
		MinSpread:            cfg.AutoExec.MinSpread,
	}
}
