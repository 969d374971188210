package detect

import (
	"context"
	"log/slog"
	"time"

	"algotrade/pkg/types"
)

// DirectionalProvider supplies the latest directional inputs for every coin
// the runner should evaluate on a given tick.
type DirectionalProvider interface {
	DirectionalInputs(ctx context.Context) ([]DirectionalInputs, error)
}

// DirectionalRunnerConfig tunes the runner loop around the detector itself.
type DirectionalRunnerConfig struct {
	Detector      DirectionalConfig
	ScanInterval  time.Duration
	OutputBuffer  int
}

// DefaultDirectionalRunnerConfig scans once a second, matching the original
// arbitrage runners' cadence.
func DefaultDirectionalRunnerConfig() DirectionalRunnerConfig {
	return DirectionalRunnerConfig{
		Detector:     DefaultDirectionalConfig(),
		ScanInterval: time.Second,
		OutputBuffer: 100,
	}
}

// DirectionalRunner drives one DirectionalDetector per coin on a fixed
// cadence, publishing opportunities to a bounded channel.
type DirectionalRunner struct {
	cfg       DirectionalRunnerConfig
	provider  DirectionalProvider
	logger    *slog.Logger
	detectors map[types.Coin]*DirectionalDetector
	stats     *Stats
	out       chan types.DirectionalOpportunity
}

// NewDirectionalRunner creates a runner. Each coin seen from the provider
// gets its own detector instance (and therefore its own cooldown) the first
// time it's observed.
func NewDirectionalRunner(cfg DirectionalRunnerConfig, provider DirectionalProvider, logger *slog.Logger) *DirectionalRunner {
	return &DirectionalRunner{
		cfg:       cfg,
		provider:  provider,
		logger:    logger.With("component", "directional_runner"),
		detectors: make(map[types.Coin]*DirectionalDetector),
		stats:     newStats(),
		out:       make(chan types.DirectionalOpportunity, cfg.OutputBuffer),
	}
}

// Opportunities returns the channel the caller reads signals from.
func (r *DirectionalRunner) Opportunities() <-chan types.DirectionalOpportunity {
	return r.out
}

// Stats returns a live snapshot of scan/opportunity counters.
func (r *DirectionalRunner) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Run blocks, scanning on cfg.ScanInterval until ctx is cancelled.
func (r *DirectionalRunner) Run(ctx context.Context) {
	runLoop(ctx, r.cfg.ScanInterval, r.logger, r.stats, r.scanOnce, r.out)
}

func (r *DirectionalRunner) scanOnce(ctx context.Context) ([]types.DirectionalOpportunity, func(types.DirectionalOpportunity) (string, float64), error) {
	inputs, err := r.provider.DirectionalInputs(ctx)
	if err != nil {
		return nil, nil, err
	}

	nowMs := time.Now().UnixMilli()
	var found []types.DirectionalOpportunity
	for _, in := range inputs {
		detector, ok := r.detectors[in.Coin]
		if !ok {
			detector = NewDirectionalDetector(r.cfg.Detector)
			r.detectors[in.Coin] = detector
		}
		if opp, ok := detector.Check(in, nowMs); ok {
			found = append(found, opp)
		}
	}

	keyOf := func(o types.DirectionalOpportunity) (string, float64) {
		return string(o.Coin), o.EstimatedEdge
	}
	return found, keyOf, nil
}
