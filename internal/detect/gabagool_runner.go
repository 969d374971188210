package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"algotrade/pkg/types"
)

// GabagoolProvider supplies the latest hybrid-detector inputs for every
// market the runner should evaluate on a given tick.
type GabagoolProvider interface {
	GabagoolInputs(ctx context.Context) ([]GabagoolInputs, error)
}

// GabagoolRunnerConfig tunes the runner loop around the detector itself.
type GabagoolRunnerConfig struct {
	Detector     GabagoolConfig
	ScanInterval time.Duration
	OutputBuffer int
}

// DefaultGabagoolRunnerConfig matches the directional/cross-market runners'
// 1s cadence.
func DefaultGabagoolRunnerConfig() GabagoolRunnerConfig {
	return GabagoolRunnerConfig{
		Detector:     DefaultGabagoolConfig(),
		ScanInterval: time.Second,
		OutputBuffer: 100,
	}
}

// GabagoolRunner drives one GabagoolDetector per market on a fixed cadence.
// Each market's detector persists across ticks so its Empty/Entry/Hedged
// state carries forward.
type GabagoolRunner struct {
	cfg          GabagoolRunnerConfig
	provider     GabagoolProvider
	logger       *slog.Logger
	detectorsMu  sync.RWMutex
	detectors    map[types.Coin]*GabagoolDetector
	stats        *Stats
	out          chan types.GabagoolSignal
}

// NewGabagoolRunner creates a runner.
func NewGabagoolRunner(cfg GabagoolRunnerConfig, provider GabagoolProvider, logger *slog.Logger) *GabagoolRunner {
	return &GabagoolRunner{
		cfg:       cfg,
		provider:  provider,
		logger:    logger.With("component", "gabagool_runner"),
		detectors: make(map[types.Coin]*GabagoolDetector),
		stats:     newStats(),
		out:       make(chan types.GabagoolSignal, cfg.OutputBuffer),
	}
}

// Opportunities returns the channel the caller reads signals from.
func (r *GabagoolRunner) Opportunities() <-chan types.GabagoolSignal {
	return r.out
}

// Stats returns a live snapshot of scan/opportunity counters.
func (r *GabagoolRunner) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// LegFor reports the currently held leg for a coin, defaulting to Empty if
// no detector has been created for it yet. Safe to call concurrently with
// Run.
func (r *GabagoolRunner) LegFor(coin types.Coin) GabagoolLeg {
	r.detectorsMu.RLock()
	d, ok := r.detectors[coin]
	r.detectorsMu.RUnlock()
	if !ok {
		return GabagoolEmpty
	}
	return d.Leg()
}

// Run blocks, scanning on cfg.ScanInterval until ctx is cancelled.
func (r *GabagoolRunner) Run(ctx context.Context) {
	runLoop(ctx, r.cfg.ScanInterval, r.logger, r.stats, r.scanOnce, r.out)
}

func (r *GabagoolRunner) scanOnce(ctx context.Context) ([]types.GabagoolSignal, func(types.GabagoolSignal) (string, float64), error) {
	inputs, err := r.provider.GabagoolInputs(ctx)
	if err != nil {
		return nil, nil, err
	}

	nowMs := time.Now().UnixMilli()
	var found []types.GabagoolSignal
	for _, in := range inputs {
		r.detectorsMu.Lock()
		detector, ok := r.detectors[in.Coin]
		if !ok {
			detector = NewGabagoolDetector(r.cfg.Detector)
			r.detectors[in.Coin] = detector
		}
		r.detectorsMu.Unlock()
		if sig, ok := detector.Check(in, nowMs); ok {
			found = append(found, sig)
		}
	}

	keyOf := func(s types.GabagoolSignal) (string, float64) {
		return string(s.Coin) + "-" + string(s.Kind), s.Price.InexactFloat64()
	}
	return found, keyOf, nil
}
