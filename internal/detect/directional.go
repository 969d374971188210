// Package detect implements the four opportunity-detector families: a
// single-leg directional detector, a cross-market correlation detector, a
// latency-arbitrage detector, and the gabagool hybrid entry/hedge/scratch
// detector. Each shares the same shape — a config, a per-key cooldown (or
// per-market state), and a Check(inputs, now) (Opportunity, bool) method
// (Scan(snapshots, now) []Opportunity for cross-market) — so a runner can
// drive any of them on a fixed cadence the way the teacher's scanner drives
// its ranking pass.
package detect

import (
	"time"

	"github.com/shopspring/decimal"

	"algotrade/pkg/types"
)

// DirectionalConfig tunes the single-leg directional detector.
type DirectionalConfig struct {
	MinDeltaPct         float64
	MaxDeltaPct         float64
	MaxEntryPrice       decimal.Decimal
	MinEdge             float64
	EntryWindowStartSec int64
	EntryWindowEndSec   int64
	SignalCooldown      time.Duration
}

// DefaultDirectionalConfig matches the defaults validated against the
// original detector's test suite.
func DefaultDirectionalConfig() DirectionalConfig {
	return DirectionalConfig{
		MinDeltaPct:         0.0005,
		MaxDeltaPct:         0.03,
		MaxEntryPrice:       decimal.NewFromFloat(0.55),
		MinEdge:             0.03,
		EntryWindowStartSec: 600,
		EntryWindowEndSec:   120,
		SignalCooldown:      30 * time.Second,
	}
}

// DirectionalInputs is everything one Check call needs for a single coin.
type DirectionalInputs struct {
	Coin              types.Coin
	SpotPrice         float64
	ReferencePrice    float64
	YesAsk            decimal.Decimal
	NoAsk             decimal.Decimal
	YesTokenID        string
	NoTokenID         string
	TimeRemainingSecs int64
}

// DirectionalDetector holds the per-coin signal cooldown for one coin.
// Callers keep one instance per coin, matching the original's one-struct-
// per-coin lifetime.
type DirectionalDetector struct {
	cfg           DirectionalConfig
	lastSignalMs  int64
	hasLastSignal bool
}

// NewDirectionalDetector creates a detector with the given config.
func NewDirectionalDetector(cfg DirectionalConfig) *DirectionalDetector {
	return &DirectionalDetector{cfg: cfg}
}

// ResetCooldown clears the cooldown, allowing an immediate signal.
func (d *DirectionalDetector) ResetCooldown() {
	d.hasLastSignal = false
}

// Check runs the exact decision procedure: cooldown, entry-window timing,
// minimum delta, max entry price, confidence/win-probability/edge, in that
// order. Returns false with a zero value when no signal fires.
func (d *DirectionalDetector) Check(in DirectionalInputs, nowMs int64) (types.DirectionalOpportunity, bool) {
	if d.hasLastSignal && nowMs-d.lastSignalMs < d.cfg.SignalCooldown.Milliseconds() {
		return types.DirectionalOpportunity{}, false
	}

	if in.TimeRemainingSecs > d.cfg.EntryWindowStartSec {
		return types.DirectionalOpportunity{}, false
	}
	if in.TimeRemainingSecs < d.cfg.EntryWindowEndSec {
		return types.DirectionalOpportunity{}, false
	}

	if in.ReferencePrice <= 0 {
		return types.DirectionalOpportunity{}, false
	}
	deltaPct := (in.SpotPrice - in.ReferencePrice) / in.ReferencePrice
	if absFloat(deltaPct) < d.cfg.MinDeltaPct {
		return types.DirectionalOpportunity{}, false
	}

	var (
		direction    types.Direction
		entryPrice   decimal.Decimal
		entryTokenID string
	)
	if deltaPct > 0 {
		direction, entryPrice, entryTokenID = types.Up, in.YesAsk, in.YesTokenID
	} else {
		direction, entryPrice, entryTokenID = types.Down, in.NoAsk, in.NoTokenID
	}

	if entryPrice.GreaterThan(d.cfg.MaxEntryPrice) {
		return types.DirectionalOpportunity{}, false
	}

	confidence := absFloat(deltaPct) / d.cfg.MaxDeltaPct
	if confidence > 1 {
		confidence = 1
	}

	winProbability := 0.50 + confidence*0.30
	estimatedEdge := winProbability - entryPrice.InexactFloat64()
	if estimatedEdge < d.cfg.MinEdge {
		return types.DirectionalOpportunity{}, false
	}

	d.lastSignalMs = nowMs
	d.hasLastSignal = true

	return types.DirectionalOpportunity{
		Coin:              in.Coin,
		Direction:         direction,
		EntryTokenID:      entryTokenID,
		EntryPrice:        entryPrice,
		SpotPrice:         in.SpotPrice,
		ReferencePrice:    in.ReferencePrice,
		DeltaPct:          deltaPct,
		Confidence:        confidence,
		WinProbability:    winProbability,
		EstimatedEdge:     estimatedEdge,
		TimeRemainingSecs: in.TimeRemainingSecs,
		Timestamp:         time.UnixMilli(nowMs).UTC(),
	}, true
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
