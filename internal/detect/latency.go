package detect

import (
	"time"

	"github.com/shopspring/decimal"

	"algotrade/pkg/types"
)

// LatencyConfig tunes the latency-arbitrage detector: spot has already
// moved but the venue's quote hasn't caught up yet.
type LatencyConfig struct {
	MinDeltaPct         float64
	StillCheapThreshold decimal.Decimal
	EntryWindowStartSec int64
	EntryWindowEndSec   int64
	SignalCooldown      time.Duration
}

// DefaultLatencyConfig mirrors the directional detector's timing defaults;
// the still-cheap threshold is tighter than the directional detector's
// max entry price since a stale quote should be unusually cheap, not just
// within budget.
func DefaultLatencyConfig() LatencyConfig {
	return LatencyConfig{
		MinDeltaPct:         0.0008,
		StillCheapThreshold: decimal.NewFromFloat(0.40),
		EntryWindowStartSec: 600,
		EntryWindowEndSec:   120,
		SignalCooldown:      30 * time.Second,
	}
}

// LatencyInputs is everything one Check call needs for a single coin/market.
type LatencyInputs struct {
	Coin              types.Coin
	SpotPrice         float64
	ReferencePrice    float64
	YesAsk            decimal.Decimal
	NoAsk             decimal.Decimal
	YesTokenID        string
	NoTokenID         string
	TimeRemainingSecs int64
}

// LatencyDetector tracks the signal cooldown for one market.
type LatencyDetector struct {
	cfg           LatencyConfig
	lastSignalMs  int64
	hasLastSignal bool
}

// NewLatencyDetector creates a detector with the given config.
func NewLatencyDetector(cfg LatencyConfig) *LatencyDetector {
	return &LatencyDetector{cfg: cfg}
}

// ResetCooldown clears the cooldown, allowing an immediate signal.
func (d *LatencyDetector) ResetCooldown() {
	d.hasLastSignal = false
}

// Check fires when spot has moved beyond minDeltaPct against the reference
// but the relevant side's ask is still below stillCheapThreshold — the
// venue's quote hasn't reacted to the move yet.
func (d *LatencyDetector) Check(in LatencyInputs, nowMs int64) (types.LatencyOpportunity, bool) {
	if d.hasLastSignal && nowMs-d.lastSignalMs < d.cfg.SignalCooldown.Milliseconds() {
		return types.LatencyOpportunity{}, false
	}

	if in.TimeRemainingSecs > d.cfg.EntryWindowStartSec {
		return types.LatencyOpportunity{}, false
	}
	if in.TimeRemainingSecs < d.cfg.EntryWindowEndSec {
		return types.LatencyOpportunity{}, false
	}

	if in.ReferencePrice <= 0 {
		return types.LatencyOpportunity{}, false
	}
	deltaPct := (in.SpotPrice - in.ReferencePrice) / in.ReferencePrice
	if absFloat(deltaPct) < d.cfg.MinDeltaPct {
		return types.LatencyOpportunity{}, false
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

	if entryPrice.GreaterThanOrEqual(d.cfg.StillCheapThreshold) {
		return types.LatencyOpportunity{}, false
	}

	d.lastSignalMs = nowMs
	d.hasLastSignal = true

	return types.LatencyOpportunity{
		Coin:              in.Coin,
		Direction:         direction,
		EntryTokenID:      entryTokenID,
		EntryPrice:        entryPrice,
		DeltaPct:          deltaPct,
		TimeRemainingSecs: in.TimeRemainingSecs,
		Timestamp:         time.UnixMilli(nowMs).UTC(),
	}, true
}
