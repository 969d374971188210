package signal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"algotrade/pkg/types"
)

// DefaultCompositeThreshold is the minimum weighted vote a direction needs,
// besides outweighing its opposite, to win the composite; below it the
// composite is Neutral. Callers that want a different margin configure it on the
// Aggregator rather than overriding this constant.
const DefaultCompositeThreshold = 0.05

// ContextBuilder produces a point-in-time SignalContext for a symbol.
type ContextBuilder interface {
	BuildAt(ctx context.Context, symbol string, timestamp time.Time) (SignalContext, error)
}

// Composite is the combined output for one symbol: a weighted vote across
// every registered generator's direction and strength.
type Composite struct {
	Symbol     string
	Direction  types.Direction
	Strength   float64
	ComputedAt time.Time
	Components map[string]types.SignalValue
}

// Aggregator runs the registry against every tracked symbol on a fixed
// interval and publishes composite results into a shared, lock-guarded map.
type Aggregator struct {
	registry  *Registry
	builder   ContextBuilder
	interval  time.Duration
	symbols   []string
	threshold float64
	logger    *slog.Logger

	mu      sync.RWMutex
	results map[string]Composite
}

// NewAggregator creates an aggregator that re-computes every symbol's
// composite signal every interval. A threshold <= 0 falls back to
// DefaultCompositeThreshold.
func NewAggregator(registry *Registry, builder ContextBuilder, symbols []string, interval time.Duration, threshold float64, logger *slog.Logger) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultCompositeThreshold
	}
	return &Aggregator{
		registry:  registry,
		builder:   builder,
		interval:  interval,
		symbols:   symbols,
		threshold: threshold,
		logger:    logger.With("component", "signal_aggregator"),
		results:   make(map[string]Composite),
	}
}

// Run ticks on the configured interval until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Aggregator) tick(ctx context.Context) {
	now := time.Now()
	for _, symbol := range a.symbols {
		sigCtx, err := a.builder.BuildAt(ctx, symbol, now)
		if err != nil {
			a.logger.Warn("context build failed, skipping symbol this tick", "symbol", symbol, "error", err)
			continue
		}

		components := a.registry.ComputeAll(sigCtx)
		weights := a.registry.Weights()
		composite := combine(symbol, components, weights, a.threshold, now)

		a.mu.Lock()
		a.results[symbol] = composite
		a.mu.Unlock()
	}
}

// combine applies weighted voting: per-direction weight is the sum of
// generator-weight*strength across generators agreeing on that direction;
// the composite takes whichever side clears both the opposite side and the
// minimum threshold, else Neutral.
func combine(symbol string, components map[string]types.SignalValue, weights map[string]float64, threshold float64, now time.Time) Composite {
	var upWeight, downWeight float64
	for name, v := range components {
		w := weights[name]
		switch v.Direction {
		case types.Up:
			upWeight += w * v.Strength
		case types.Down:
			downWeight += w * v.Strength
		}
	}

	direction := types.Neutral
	strength := 0.0
	switch {
	case upWeight > downWeight && upWeight > threshold:
		direction = types.Up
		strength = clamp01(upWeight)
	case downWeight > upWeight && downWeight > threshold:
		direction = types.Down
		strength = clamp01(downWeight)
	}

	return Composite{
		Symbol:     symbol,
		Direction:  direction,
		Strength:   strength,
		ComputedAt: now,
		Components: components,
	}
}

// Current returns the most recently computed composite for a symbol.
func (a *Aggregator) Current(symbol string) (Composite, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.results[symbol]
	return c, ok
}

// Snapshot returns a copy of every symbol's most recent composite.
func (a *Aggregator) Snapshot() map[string]Composite {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]Composite, len(a.results))
	for k, v := range a.results {
		out[k] = v
	}
	return out
}
