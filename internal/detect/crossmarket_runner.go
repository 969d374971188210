package detect

import (
	"context"
	"log/slog"
	"time"

	"algotrade/pkg/types"
)

// CrossMarketProvider supplies the latest coin-market snapshots for the
// cross-market scan — grounded on cross_market_runner.rs's Gamma-catalog
// fetch, generalized to an injected provider so the runner doesn't import
// a specific catalog client.
type CrossMarketProvider interface {
	CoinMarketSnapshots(ctx context.Context) ([]types.CoinMarketSnapshot, error)
}

// CrossMarketRunnerConfig tunes the runner loop around the detector itself.
// Field names mirror the original CrossMarketRunnerConfig (detector_config,
// scan_interval_ms, track_depth) with depth tracking expressed by whether
// Detector.MinDepth is positive rather than a separate bool.
type CrossMarketRunnerConfig struct {
	Detector     CrossMarketConfig
	ScanInterval time.Duration
	OutputBuffer int
}

// DefaultCrossMarketRunnerConfig matches the original runner's 1s cadence.
func DefaultCrossMarketRunnerConfig() CrossMarketRunnerConfig {
	return CrossMarketRunnerConfig{
		Detector:     DefaultCrossMarketConfig(),
		ScanInterval: time.Second,
		OutputBuffer: 100,
	}
}

// AggressiveCrossMarketRunnerConfig scans twice as often with a larger
// output buffer, mirroring the original's `aggressive()` builder.
func AggressiveCrossMarketRunnerConfig() CrossMarketRunnerConfig {
	cfg := DefaultCrossMarketRunnerConfig()
	cfg.ScanInterval = 500 * time.Millisecond
	cfg.OutputBuffer = 200
	return cfg
}

// CrossMarketRunner drives a single CrossMarketDetector over the full
// snapshot set on a fixed cadence.
type CrossMarketRunner struct {
	cfg      CrossMarketRunnerConfig
	provider CrossMarketProvider
	logger   *slog.Logger
	detector *CrossMarketDetector
	stats    *Stats
	out      chan types.CrossMarketOpportunity
}

// NewCrossMarketRunner creates a runner.
func NewCrossMarketRunner(cfg CrossMarketRunnerConfig, provider CrossMarketProvider, logger *slog.Logger) *CrossMarketRunner {
	return &CrossMarketRunner{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With("component", "cross_market_runner"),
		detector: NewCrossMarketDetector(cfg.Detector),
		stats:    newStats(),
		out:      make(chan types.CrossMarketOpportunity, cfg.OutputBuffer),
	}
}

// Opportunities returns the channel the caller reads signals from.
func (r *CrossMarketRunner) Opportunities() <-chan types.CrossMarketOpportunity {
	return r.out
}

// Stats returns a live snapshot of scan/opportunity counters.
func (r *CrossMarketRunner) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Run blocks, scanning on cfg.ScanInterval until ctx is cancelled.
func (r *CrossMarketRunner) Run(ctx context.Context) {
	runLoop(ctx, r.cfg.ScanInterval, r.logger, r.stats, r.scanOnce, r.out)
}

func (r *CrossMarketRunner) scanOnce(ctx context.Context) ([]types.CrossMarketOpportunity, func(types.CrossMarketOpportunity) (string, float64), error) {
	snapshots, err := r.provider.CoinMarketSnapshots(ctx)
	if err != nil {
		return nil, nil, err
	}

	found := r.detector.Scan(snapshots, time.Now().UnixMilli())

	keyOf := func(o types.CrossMarketOpportunity) (string, float64) {
		return string(o.Coin1) + "-" + string(o.Coin2) + "-" + string(o.Combination), o.Spread.InexactFloat64()
	}
	return found, keyOf, nil
}
