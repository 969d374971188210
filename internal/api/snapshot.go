package api

import (
	"time"

	"algotrade/internal/autoexec"
	"algotrade/internal/config"
	"algotrade/internal/detect"
	"algotrade/internal/risk"
)

// MarketSnapshotProvider provides the live state BuildSnapshot aggregates
// into a dashboard view. cmd/bot wires the running detector runners,
// executors, risk manager, and settlement sweep through a small adapter
// that satisfies this interface.
type MarketSnapshotProvider interface {
	DirectionalStats() detect.StatsSnapshot
	CrossMarketStats() detect.StatsSnapshot
	LatencyStats() detect.StatsSnapshot
	GabagoolStats() detect.StatsSnapshot

	DirectionalExecStats() autoexec.DirectionalStatsSnapshot
	CrossMarketExecStats() autoexec.StatsSnapshot

	RiskSnapshot() risk.Snapshot

	SettlementStatus() (lastSweepAt time.Time, pending int, lastErr string)
	ValidationStatus() *ValidationSnapshot

	DashboardEvents() <-chan DashboardEvent
}

// BuildSnapshot aggregates state from every live component into a
// dashboard snapshot.
func BuildSnapshot(provider MarketSnapshotProvider, cfg config.Config) DashboardSnapshot {
	lastSweepAt, pending, lastErr := provider.SettlementStatus()

	return DashboardSnapshot{
		Timestamp: time.Now(),
		Detectors: DetectorSnapshot{
			Directional: convertDetectorStats(provider.DirectionalStats()),
			CrossMarket: convertDetectorStats(provider.CrossMarketStats()),
			Latency:     convertDetectorStats(provider.LatencyStats()),
			Gabagool:    convertDetectorStats(provider.GabagoolStats()),
		},
		Directional: convertDirectionalExecStats(provider.DirectionalExecStats()),
		CrossMarket: convertCrossMarketExecStats(provider.CrossMarketExecStats()),
		Risk:        convertRiskSnapshot(provider.RiskSnapshot()),
		Settlement: SettlementSnapshot{
			LastSweepAt:    lastSweepAt,
			PendingTrades:  pending,
			LastSweepError: lastErr,
		},
		Validation: provider.ValidationStatus(),
		Config:     NewConfigSummary(cfg),
	}
}

func convertDetectorStats(s detect.StatsSnapshot) DetectorStats {
	return DetectorStats{
		ScansPerformed:     s.ScansPerformed,
		OpportunitiesFound: s.OpportunitiesFound,
		ErrorCount:         s.ErrorCount,
		LastScanAt:         s.LastScanAt,
		LastOpportunityAt:  s.LastOpportunityAt,
	}
}

func convertDirectionalExecStats(s autoexec.DirectionalStatsSnapshot) DirectionalExecSnapshot {
	return DirectionalExecSnapshot{
		OpportunitiesReceived: s.OpportunitiesReceived,
		OpportunitiesSkipped:  s.OpportunitiesSkipped,
		ExecutionsAttempted:   s.ExecutionsAttempted,
		Filled:                s.Filled,
		Rejected:              s.Rejected,
		TotalVolume:           s.TotalVolume.InexactFloat64(),
		PendingSettlement:     s.PendingSettlement,
	}
}

func convertCrossMarketExecStats(s autoexec.StatsSnapshot) CrossMarketExecSnapshot {
	return CrossMarketExecSnapshot{
		OpportunitiesReceived: s.OpportunitiesReceived,
		OpportunitiesSkipped:  s.OpportunitiesSkipped,
		ExecutionsAttempted:   s.ExecutionsAttempted,
		BothFilled:            s.BothFilled,
		PartialFills:          s.PartialFills,
		BothRejected:          s.BothRejected,
		TotalVolume:           s.TotalVolume.InexactFloat64(),
		PendingSettlement:     s.PendingSettlement,
	}
}

func convertRiskSnapshot(snap risk.Snapshot) RiskSnapshot {
	return RiskSnapshot{
		GlobalExposure:       snap.GlobalExposure,
		MaxGlobalExposure:    snap.MaxGlobalExposure,
		ExposurePct:          snap.ExposurePct,
		KillSwitchActive:     snap.KillSwitchActive,
		KillSwitchUntil:      snap.KillSwitchUntil,
		KillSwitchReason:     snap.KillSwitchReason,
		TotalRealizedPnL:     snap.TotalRealizedPnL,
		TotalUnrealizedPnL:   snap.TotalUnrealizedPnL,
		MaxPositionPerMarket: snap.MaxPositionPerMarket,
		MaxDailyLoss:         snap.MaxDailyLoss,
		ActiveMarkets:        snap.ActiveMarkets,
	}
}
