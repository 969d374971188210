package api

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/autoexec"
	"algotrade/internal/config"
	"algotrade/internal/detect"
	"algotrade/internal/risk"
)

type fakeProvider struct {
	directional detect.StatsSnapshot
	crossMarket detect.StatsSnapshot
	latency     detect.StatsSnapshot
	gabagool    detect.StatsSnapshot

	directionalExec autoexec.DirectionalStatsSnapshot
	crossMarketExec autoexec.StatsSnapshot

	risk risk.Snapshot

	lastSweepAt time.Time
	pending     int
	lastErr     string

	validation *ValidationSnapshot
	events     chan DashboardEvent
}

func (f *fakeProvider) DirectionalStats() detect.StatsSnapshot { return f.directional }
func (f *fakeProvider) CrossMarketStats() detect.StatsSnapshot { return f.crossMarket }
func (f *fakeProvider) LatencyStats() detect.StatsSnapshot     { return f.latency }
func (f *fakeProvider) GabagoolStats() detect.StatsSnapshot    { return f.gabagool }

func (f *fakeProvider) DirectionalExecStats() autoexec.DirectionalStatsSnapshot {
	return f.directionalExec
}
func (f *fakeProvider) CrossMarketExecStats() autoexec.StatsSnapshot { return f.crossMarketExec }

func (f *fakeProvider) RiskSnapshot() risk.Snapshot { return f.risk }

func (f *fakeProvider) SettlementStatus() (time.Time, int, string) {
	return f.lastSweepAt, f.pending, f.lastErr
}
func (f *fakeProvider) ValidationStatus() *ValidationSnapshot { return f.validation }
func (f *fakeProvider) DashboardEvents() <-chan DashboardEvent {
	return f.events
}

func TestBuildSnapshotAggregatesEveryComponent(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{
		directional: detect.StatsSnapshot{ScansPerformed: 10, OpportunitiesFound: 2},
		crossMarket: detect.StatsSnapshot{ScansPerformed: 5},
		risk: risk.Snapshot{
			GlobalExposure:    150,
			MaxGlobalExposure: 1000,
			ActiveMarkets:     2,
		},
		directionalExec: autoexec.DirectionalStatsSnapshot{
			Filled:      3,
			TotalVolume: decimal.NewFromFloat(120.5),
		},
		crossMarketExec: autoexec.StatsSnapshot{
			BothFilled:  1,
			TotalVolume: decimal.NewFromFloat(60),
		},
		lastSweepAt: now,
		pending:     4,
	}

	cfg := config.Config{
		Coins:  []string{"BTC", "ETH"},
		DryRun: true,
	}
	cfg.Kelly.Fraction = 0.25
	cfg.Risk.MaxGlobalExposure = 1000

	snap := BuildSnapshot(provider, cfg)

	if snap.Detectors.Directional.ScansPerformed != 10 {
		t.Errorf("Directional.ScansPerformed = %d, want 10", snap.Detectors.Directional.ScansPerformed)
	}
	if snap.Directional.Filled != 3 {
		t.Errorf("Directional.Filled = %d, want 3", snap.Directional.Filled)
	}
	if snap.Directional.TotalVolume != 120.5 {
		t.Errorf("Directional.TotalVolume = %f, want 120.5", snap.Directional.TotalVolume)
	}
	if snap.CrossMarket.BothFilled != 1 {
		t.Errorf("CrossMarket.BothFilled = %d, want 1", snap.CrossMarket.BothFilled)
	}
	if snap.Risk.GlobalExposure != 150 {
		t.Errorf("Risk.GlobalExposure = %f, want 150", snap.Risk.GlobalExposure)
	}
	if snap.Settlement.PendingTrades != 4 {
		t.Errorf("Settlement.PendingTrades = %d, want 4", snap.Settlement.PendingTrades)
	}
	if !snap.Config.DryRun {
		t.Error("expected Config.DryRun to be true")
	}
	if len(snap.Config.Coins) != 2 {
		t.Errorf("Config.Coins = %v, want 2 entries", snap.Config.Coins)
	}
}

func TestBuildSnapshotOmitsValidationWhenNilReport(t *testing.T) {
	provider := &fakeProvider{}
	snap := BuildSnapshot(provider, config.Config{})
	if snap.Validation != nil {
		t.Error("expected Validation to be nil before any pass has run")
	}
}
