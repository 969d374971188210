// Package spottracker tracks the "price to beat" for each coin's current
// 15-minute window: the spot price at the window's opening instant, against
// which the closing price is later compared to settle Up/Down.
//
// Getting this reference wrong inverts every directional signal downstream,
// so a reference is graded with a confidence level derived from how late
// after the window boundary it was actually captured, and archived history
// lets later settlement validate a reference against the real outcome.
package spottracker

import (
	"sync"
	"time"

	"algotrade/pkg/types"
)

// WindowDuration is the length of one trading window.
const WindowDuration = 15 * time.Minute

// Config tunes reference capture.
type Config struct {
	MaxCaptureDelay time.Duration // beyond this, a reference is Interpolated
	VWAPWindow      time.Duration // width of the VWAP sampling window
	MaxHistory      int           // bounded ring of archived references per coin
}

// DefaultConfig returns the tracker's default tuning.
func DefaultConfig() Config {
	return Config{
		MaxCaptureDelay: 10 * time.Second,
		VWAPWindow:      2 * time.Second,
		MaxHistory:      100,
	}
}

type priceTick struct {
	atMs  int64
	price float64
}

// coinTracker holds the per-coin mutable state.
type coinTracker struct {
	current *types.WindowReference
	recent  []priceTick // last ~10s of ticks, oldest first
	history []types.WindowReference
}

// Tracker maintains window references independently for each tracked coin.
type Tracker struct {
	cfg Config

	mu     sync.Mutex
	tracks map[types.Coin]*coinTracker
}

// New creates a reference tracker with the given config.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, tracks: make(map[types.Coin]*coinTracker)}
}

// NewDefault creates a reference tracker with default tuning.
func NewDefault() *Tracker {
	return New(DefaultConfig())
}

// WindowStartForTime returns the millisecond timestamp of the 15-minute
// window boundary at or before nowMs (boundaries fall on :00, :15, :30, :45).
func WindowStartForTime(nowMs int64) int64 {
	t := time.UnixMilli(nowMs).UTC()
	windowMinute := (t.Minute() / 15) * 15
	start := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), windowMinute, 0, 0, time.UTC)
	return start.UnixMilli()
}

// Current returns the active reference for a coin, if one has been captured.
func (t *Tracker) Current(coin types.Coin) (types.WindowReference, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[coin]
	if !ok || tr.current == nil {
		return types.WindowReference{}, false
	}
	return *tr.current, true
}

// UpdatePrice feeds a new spot tick for a coin. Call this on every trade
// print from the spot feed; it captures a fresh reference whenever the
// observed window boundary advances.
func (t *Tracker) UpdatePrice(coin types.Coin, atMs int64, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[coin]
	if !ok {
		tr = &coinTracker{}
		t.tracks[coin] = tr
	}

	tr.recent = append(tr.recent, priceTick{atMs: atMs, price: price})
	cutoff := atMs - 10_000
	trimmed := tr.recent[:0]
	for _, tick := range tr.recent {
		if tick.atMs >= cutoff {
			trimmed = append(trimmed, tick)
		}
	}
	tr.recent = trimmed

	windowStart := WindowStartForTime(atMs)
	needNew := tr.current == nil || tr.current.WindowStartMs != windowStart
	if needNew {
		t.captureReference(coin, tr, windowStart, atMs)
	}
}

// SetReference installs a reference directly, e.g. from an authoritative
// venue-reported opening price. Archives the prior reference if present.
func (t *Tracker) SetReference(coin types.Coin, ref types.WindowReference) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[coin]
	if !ok {
		tr = &coinTracker{}
		t.tracks[coin] = tr
	}
	t.archive(tr)
	ref.Coin = coin
	tr.current = &ref
}

func (t *Tracker) captureReference(coin types.Coin, tr *coinTracker, windowStartMs, nowMs int64) {
	delay := nowMs - windowStartMs

	var (
		price  float64
		source types.ReferenceSource
		found  bool
	)

	if delay <= t.cfg.MaxCaptureDelay.Milliseconds() {
		if p, ok := firstTickAtOrAfter(tr.recent, windowStartMs); ok {
			price, source, found = p, types.SourceBinanceFirst, true
		} else if p, ok := vwap(tr.recent, windowStartMs, t.cfg.VWAPWindow.Milliseconds()); ok {
			price, source, found = p, types.SourceBinanceVWAP, true
		} else if p, ok := lastTick(tr.recent); ok {
			price, source, found = p, types.SourceInterpolated, true
		}
	} else if p, ok := lastTick(tr.recent); ok {
		price, source, found = p, types.SourceInterpolated, true
	}

	if !found {
		return
	}

	ref := newReference(coin, windowStartMs, price, source, nowMs)
	t.archive(tr)
	tr.current = &ref
}

func (t *Tracker) archive(tr *coinTracker) {
	if tr.current == nil {
		return
	}
	tr.history = append(tr.history, *tr.current)
	if len(tr.history) > t.cfg.MaxHistory {
		tr.history = tr.history[len(tr.history)-t.cfg.MaxHistory:]
	}
	tr.current = nil
}

// newReference grades confidence by capture delay: anything captured more
// than 5s after the window boundary is downgraded to Low, 1-5s to Medium,
// and only a sub-second capture keeps the source's own default grade.
func newReference(coin types.Coin, windowStartMs int64, price float64, source types.ReferenceSource, capturedAtMs int64) types.WindowReference {
	delay := capturedAtMs - windowStartMs

	confidence := source.DefaultConfidence()
	switch {
	case delay > 5000:
		confidence = types.ConfidenceLow
	case delay > 1000:
		confidence = types.ConfidenceMedium
	}

	return types.WindowReference{
		Coin:           coin,
		WindowStartMs:  windowStartMs,
		WindowEndMs:    windowStartMs + WindowDuration.Milliseconds(),
		ReferencePrice: price,
		Source:         source,
		Confidence:     confidence,
		CapturedAtMs:   capturedAtMs,
		CaptureDelayMs: delay,
	}
}

// History returns the archived references for a coin, oldest first.
func (t *Tracker) History(coin types.Coin) []types.WindowReference {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[coin]
	if !ok {
		return nil
	}
	out := make([]types.WindowReference, len(tr.history))
	copy(out, tr.history)
	return out
}

// ValidateOutcome reports whether the reference captured for windowStartMs
// would have predicted the actual settlement outcome correctly. Returns
// false in the second return if no reference was ever captured for that
// window.
func (t *Tracker) ValidateOutcome(coin types.Coin, windowStartMs int64, finalPrice float64, actualOutcomeIsUp bool) (bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[coin]
	if !ok {
		return false, false
	}

	var ref *types.WindowReference
	if tr.current != nil && tr.current.WindowStartMs == windowStartMs {
		ref = tr.current
	} else {
		for i := range tr.history {
			if tr.history[i].WindowStartMs == windowStartMs {
				ref = &tr.history[i]
				break
			}
		}
	}
	if ref == nil {
		return false, false
	}

	predictedUp := finalPrice >= ref.ReferencePrice
	return predictedUp == actualOutcomeIsUp, true
}

// LastPrice returns the most recently observed spot tick for a coin, if any
// have arrived yet.
func (t *Tracker) LastPrice(coin types.Coin) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.tracks[coin]
	if !ok || len(tr.recent) == 0 {
		return 0, false
	}
	return tr.recent[len(tr.recent)-1].price, true
}

// Clear discards all state for a coin.
func (t *Tracker) Clear(coin types.Coin) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tracks, coin)
}

func firstTickAtOrAfter(ticks []priceTick, atMs int64) (float64, bool) {
	for _, tick := range ticks {
		if tick.atMs >= atMs {
			return tick.price, true
		}
	}
	return 0, false
}

func vwap(ticks []priceTick, windowStartMs, windowMs int64) (float64, bool) {
	windowEndMs := windowStartMs + windowMs
	var sum float64
	var count int
	for _, tick := range ticks {
		if tick.atMs >= windowStartMs && tick.atMs <= windowEndMs {
			sum += tick.price
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func lastTick(ticks []priceTick) (float64, bool) {
	if len(ticks) == 0 {
		return 0, false
	}
	return ticks[len(ticks)-1].price, true
}
