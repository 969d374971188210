package detect

import (
	"context"
	"log/slog"
	"time"

	"algotrade/pkg/types"
)

// LatencyProvider supplies the latest latency-detector inputs for every
// coin the runner should evaluate on a given tick.
type LatencyProvider interface {
	LatencyInputs(ctx context.Context) ([]LatencyInputs, error)
}

// LatencyRunnerConfig tunes the runner loop around the detector itself.
type LatencyRunnerConfig struct {
	Detector     LatencyConfig
	ScanInterval time.Duration
	OutputBuffer int
}

// DefaultLatencyRunnerConfig scans frequently: latency opportunities decay
// within seconds once the venue's quote catches up.
func DefaultLatencyRunnerConfig() LatencyRunnerConfig {
	return LatencyRunnerConfig{
		Detector:     DefaultLatencyConfig(),
		ScanInterval: 250 * time.Millisecond,
		OutputBuffer: 100,
	}
}

// LatencyRunner drives one LatencyDetector per coin on a fixed cadence.
type LatencyRunner struct {
	cfg       LatencyRunnerConfig
	provider  LatencyProvider
	logger    *slog.Logger
	detectors map[types.Coin]*LatencyDetector
	stats     *Stats
	out       chan types.LatencyOpportunity
}

// NewLatencyRunner creates a runner.
func NewLatencyRunner(cfg LatencyRunnerConfig, provider LatencyProvider, logger *slog.Logger) *LatencyRunner {
	return &LatencyRunner{
		cfg:       cfg,
		provider:  provider,
		logger:    logger.With("component", "latency_runner"),
		detectors: make(map[types.Coin]*LatencyDetector),
		stats:     newStats(),
		out:       make(chan types.LatencyOpportunity, cfg.OutputBuffer),
	}
}

// Opportunities returns the channel the caller reads signals from.
func (r *LatencyRunner) Opportunities() <-chan types.LatencyOpportunity {
	return r.out
}

// Stats returns a live snapshot of scan/opportunity counters.
func (r *LatencyRunner) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Run blocks, scanning on cfg.ScanInterval until ctx is cancelled.
func (r *LatencyRunner) Run(ctx context.Context) {
	runLoop(ctx, r.cfg.ScanInterval, r.logger, r.stats, r.scanOnce, r.out)
}

func (r *LatencyRunner) scanOnce(ctx context.Context) ([]types.LatencyOpportunity, func(types.LatencyOpportunity) (string, float64), error) {
	inputs, err := r.provider.LatencyInputs(ctx)
	if err != nil {
		return nil, nil, err
	}

	nowMs := time.Now().UnixMilli()
	var found []types.LatencyOpportunity
	for _, in := range inputs {
		detector, ok := r.detectors[in.Coin]
		if !ok {
			detector = NewLatencyDetector(r.cfg.Detector)
			r.detectors[in.Coin] = detector
		}
		if opp, ok := detector.Check(in, nowMs); ok {
			found = append(found, opp)
		}
	}

	keyOf := func(o types.LatencyOpportunity) (string, float64) {
		return string(o.Coin), o.DeltaPct
	}
	return found, keyOf, nil
}
