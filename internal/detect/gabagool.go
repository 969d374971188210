package detect

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/pkg/types"
)

// GabagoolLeg names which leg a gabagool detector currently holds for a
// given market.
type GabagoolLeg string

const (
	GabagoolEmpty  GabagoolLeg = "empty"
	GabagoolHeld   GabagoolLeg = "entry"
	GabagoolHedged GabagoolLeg = "hedged"
)

// GabagoolConfig tunes the hybrid entry/hedge/scratch detector.
type GabagoolConfig struct {
	CheapThreshold     decimal.Decimal
	MinReferenceDelta  float64
	MinElapsedSecs     int64
	PairCostThreshold  decimal.Decimal
	ScratchTimeSecs    int64
	ScratchLossLimit   decimal.Decimal
}

// DefaultGabagoolConfig is a conservative starting point: enter only on a
// confirmed move, hedge as soon as the pair locks a profit, scratch late
// losers before expiry rather than ride them to zero.
func DefaultGabagoolConfig() GabagoolConfig {
	return GabagoolConfig{
		CheapThreshold:    decimal.NewFromFloat(0.35),
		MinReferenceDelta: 0.001,
		MinElapsedSecs:    60,
		PairCostThreshold: decimal.NewFromFloat(0.97),
		ScratchTimeSecs:   60,
		ScratchLossLimit:  decimal.NewFromFloat(0.10),
	}
}

// GabagoolInputs is everything one Check call needs for a single market.
type GabagoolInputs struct {
	Coin              types.Coin
	SpotPrice         float64
	ReferencePrice    float64
	YesAsk            decimal.Decimal
	NoAsk             decimal.Decimal
	YesTokenID        string
	NoTokenID         string
	ElapsedSecs       int64
	TimeRemainingSecs int64
}

// GabagoolDetector tracks the currently held leg and entry price for one
// market, transitioning Empty -> Entry -> Hedged (or Empty -> Entry -> Empty
// on a scratch).
type GabagoolDetector struct {
	cfg GabagoolConfig

	mu         sync.RWMutex
	leg        GabagoolLeg
	entryToken string
	entryPrice decimal.Decimal
	entrySide  types.Direction
}

// NewGabagoolDetector creates a detector starting from the Empty state.
func NewGabagoolDetector(cfg GabagoolConfig) *GabagoolDetector {
	return &GabagoolDetector{cfg: cfg, leg: GabagoolEmpty}
}

// Leg reports the currently held leg. Safe to call concurrently with Check.
func (d *GabagoolDetector) Leg() GabagoolLeg {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.leg
}

// Reset returns the detector to the Empty state, discarding any held leg.
func (d *GabagoolDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *GabagoolDetector) resetLocked() {
	d.leg = GabagoolEmpty
	d.entryToken = ""
	d.entryPrice = decimal.Zero
}

// Check evaluates the entry, hedge, and scratch conditions in that order and
// returns the first signal that fires, or false if none do. Check calls
// must not run concurrently with each other (the runner serializes them
// per market), but may run concurrently with Leg.
func (d *GabagoolDetector) Check(in GabagoolInputs, nowMs int64) (types.GabagoolSignal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.leg {
	case GabagoolEmpty:
		return d.checkEntry(in, nowMs)
	case GabagoolHeld:
		if sig, ok := d.checkHedge(in, nowMs); ok {
			return sig, true
		}
		return d.checkScratch(in, nowMs)
	default:
		return types.GabagoolSignal{}, false
	}
}

func (d *GabagoolDetector) checkEntry(in GabagoolInputs, nowMs int64) (types.GabagoolSignal, bool) {
	if in.ElapsedSecs < d.cfg.MinElapsedSecs {
		return types.GabagoolSignal{}, false
	}
	if in.ReferencePrice <= 0 {
		return types.GabagoolSignal{}, false
	}
	delta := (in.SpotPrice - in.ReferencePrice) / in.ReferencePrice
	if absFloat(delta) < d.cfg.MinReferenceDelta {
		return types.GabagoolSignal{}, false
	}

	var (
		side       types.Direction
		price      decimal.Decimal
		tokenID    string
	)
	if delta > 0 {
		side, price, tokenID = types.Up, in.YesAsk, in.YesTokenID
	} else {
		side, price, tokenID = types.Down, in.NoAsk, in.NoTokenID
	}
	if price.GreaterThanOrEqual(d.cfg.CheapThreshold) {
		return types.GabagoolSignal{}, false
	}

	d.leg = GabagoolHeld
	d.entryToken = tokenID
	d.entryPrice = price
	d.entrySide = side

	return types.GabagoolSignal{
		Coin:      in.Coin,
		Kind:      types.GabagoolEntry,
		TokenID:   tokenID,
		Price:     price,
		Timestamp: time.UnixMilli(nowMs).UTC(),
	}, true
}

func (d *GabagoolDetector) checkHedge(in GabagoolInputs, nowMs int64) (types.GabagoolSignal, bool) {
	pairCost := in.YesAsk.Add(in.NoAsk)
	if pairCost.GreaterThanOrEqual(d.cfg.PairCostThreshold) {
		return types.GabagoolSignal{}, false
	}

	hedgeToken, hedgePrice := in.NoTokenID, in.NoAsk
	if d.entrySide == types.Down {
		hedgeToken, hedgePrice = in.YesTokenID, in.YesAsk
	}

	d.leg = GabagoolHedged

	return types.GabagoolSignal{
		Coin:      in.Coin,
		Kind:      types.GabagoolHedge,
		TokenID:   hedgeToken,
		Price:     hedgePrice,
		Timestamp: time.UnixMilli(nowMs).UTC(),
	}, true
}

func (d *GabagoolDetector) checkScratch(in GabagoolInputs, nowMs int64) (types.GabagoolSignal, bool) {
	if in.TimeRemainingSecs >= d.cfg.ScratchTimeSecs {
		return types.GabagoolSignal{}, false
	}

	currentAsk := in.NoAsk
	if d.entrySide == types.Up {
		currentAsk = in.YesAsk
	}

	loss := d.entryPrice.Sub(currentAsk)
	if loss.GreaterThan(d.cfg.ScratchLossLimit) {
		return types.GabagoolSignal{}, false
	}

	token := d.entryToken
	d.resetLocked()

	return types.GabagoolSignal{
		Coin:      in.Coin,
		Kind:      types.GabagoolScratch,
		TokenID:   token,
		Price:     currentAsk,
		Timestamp: time.UnixMilli(nowMs).UTC(),
	}, true
}
