package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"algotrade/internal/api"
	"algotrade/internal/autoexec"
	"algotrade/internal/detect"
	"algotrade/internal/risk"
	"algotrade/internal/settlement"
	"algotrade/internal/store"
	"algotrade/internal/validation"
)

// dashboardAdapter satisfies api.MarketSnapshotProvider by reading the live
// state each wired component already tracks. It also owns the two
// background passes — settlement sweeps and validation runs — that aren't
// driven by their own Run loop, so it can cache their last-outcome status
// for the dashboard.
type dashboardAdapter struct {
	directional *detect.DirectionalRunner
	crossMarket *detect.CrossMarketRunner
	latency     *detect.LatencyRunner
	gabagool    *detect.GabagoolRunner

	directionalExec *autoexec.DirectionalExecutor
	crossMarketExec *autoexec.Executor

	risk *risk.Manager

	settlementSvc    *settlement.Service
	validationEngine *validation.Engine
	store            *store.Store

	logger *slog.Logger

	mu            sync.RWMutex
	lastSweepAt   time.Time
	lastSweepErr  string
	lastReport    *api.ValidationSnapshot
}

func newDashboardAdapter(
	directional *detect.DirectionalRunner,
	crossMarket *detect.CrossMarketRunner,
	latency *detect.LatencyRunner,
	gabagool *detect.GabagoolRunner,
	directionalExec *autoexec.DirectionalExecutor,
	crossMarketExec *autoexec.Executor,
	riskMgr *risk.Manager,
	settlementSvc *settlement.Service,
	validationEngine *validation.Engine,
	db *store.Store,
	logger *slog.Logger,
) *dashboardAdapter {
	return &dashboardAdapter{
		directional:      directional,
		crossMarket:      crossMarket,
		latency:          latency,
		gabagool:         gabagool,
		directionalExec:  directionalExec,
		crossMarketExec:  crossMarketExec,
		risk:             riskMgr,
		settlementSvc:    settlementSvc,
		validationEngine: validationEngine,
		store:            db,
		logger:           logger.With("component", "dashboard_adapter"),
	}
}

func (a *dashboardAdapter) DirectionalStats() detect.StatsSnapshot { return a.directional.Stats() }
func (a *dashboardAdapter) CrossMarketStats() detect.StatsSnapshot { return a.crossMarket.Stats() }
func (a *dashboardAdapter) LatencyStats() detect.StatsSnapshot     { return a.latency.Stats() }
func (a *dashboardAdapter) GabagoolStats() detect.StatsSnapshot    { return a.gabagool.Stats() }

func (a *dashboardAdapter) DirectionalExecStats() autoexec.DirectionalStatsSnapshot {
	return a.directionalExec.Stats()
}

func (a *dashboardAdapter) CrossMarketExecStats() autoexec.StatsSnapshot {
	return a.crossMarketExec.Stats()
}

func (a *dashboardAdapter) RiskSnapshot() risk.Snapshot { return a.risk.Snapshot() }

func (a *dashboardAdapter) SettlementStatus() (time.Time, int, string) {
	a.mu.RLock()
	lastSweepAt, lastErr := a.lastSweepAt, a.lastSweepErr
	a.mu.RUnlock()

	pending, err := a.store.PendingTrades(context.Background(), time.Now())
	if err != nil {
		return lastSweepAt, 0, lastErr
	}
	return lastSweepAt, len(pending), lastErr
}

func (a *dashboardAdapter) ValidationStatus() *api.ValidationSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastReport
}

// DashboardEvents has no publisher wired yet: fills, rejections, and
// settlements aren't pushed onto a shared channel anywhere in the pipeline,
// so there's nothing to fan out over the WebSocket beyond periodic
// snapshots. A nil channel is handled gracefully by the server's consumer.
func (a *dashboardAdapter) DashboardEvents() <-chan api.DashboardEvent {
	return nil
}

// runSettlementSweeps drives the settlement sweep on its own loop (rather
// than settlement.Service.Run) so the adapter can record each sweep's
// outcome for the dashboard.
func (a *dashboardAdapter) runSettlementSweeps(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := a.settlementSvc.Sweep(ctx)
			a.mu.Lock()
			a.lastSweepAt = time.Now()
			if err != nil {
				a.lastSweepErr = err.Error()
			} else {
				a.lastSweepErr = ""
			}
			a.mu.Unlock()
			if err != nil {
				a.logger.Error("settlement sweep failed", "error", err)
			}
		}
	}
}

// runValidationPasses periodically re-runs the hypothesis-testing pass over
// the last day of signal snapshots and caches the resulting report.
func (a *dashboardAdapter) runValidationPasses(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		since := time.Now().Add(-24 * time.Hour)
		report, err := a.validationEngine.Run(ctx, since)
		if err != nil {
			a.logger.Error("validation pass failed", "error", err)
			return
		}
		snap := &api.ValidationSnapshot{
			GeneratedAt: report.GeneratedAt,
			Summary:     report.GoNoGo,
			SignalCount: len(report.Results),
		}
		a.mu.Lock()
		a.lastReport = snap
		a.mu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// drainLatency logs latency opportunities at debug level and discards them,
// keeping the runner's output channel from filling up.
func drainLatency(ctx context.Context, r *detect.LatencyRunner, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case opp, ok := <-r.Opportunities():
			if !ok {
				return
			}
			logger.Debug("latency opportunity", "coin", opp.Coin, "direction", opp.Direction, "price", opp.EntryPrice.String())
		}
	}
}

// drainGabagool logs gabagool signals at debug level and discards them,
// keeping the runner's output channel from filling up.
func drainGabagool(ctx context.Context, r *detect.GabagoolRunner, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-r.Opportunities():
			if !ok {
				return
			}
			logger.Debug("gabagool signal", "coin", sig.Coin, "kind", sig.Kind, "price", sig.Price.String())
		}
	}
}
