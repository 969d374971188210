package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/spottracker"
	"algotrade/pkg/types"
)

// TrackerPriceSource satisfies PriceSource from a window reference tracker
// and a live window tracker: the reference tracker supplies the price
// captured at window open (current or archived), and the live tracker
// supplies the price captured at window close.
type TrackerPriceSource struct {
	refs *spottracker.Tracker
	live *LiveWindowTracker
}

// NewTrackerPriceSource builds a PriceSource backed by the running spot
// reference tracker and a live window tracker fed from the same spot feed.
func NewTrackerPriceSource(refs *spottracker.Tracker, live *LiveWindowTracker) *TrackerPriceSource {
	return &TrackerPriceSource{refs: refs, live: live}
}

// PriceAt returns the price recorded for coin at the window boundary
// closest to at. Window-start queries are answered from the reference
// tracker's current/archived references; window-end queries are answered
// from the live window tracker, falling back to the reference tracker's
// next-window reference if the live tracker hasn't recorded a close yet
// (the next window's open price is, by construction, the prior window's
// close price).
func (s *TrackerPriceSource) PriceAt(ctx context.Context, coin types.Coin, at time.Time) (decimal.Decimal, bool) {
	atMs := at.UnixMilli()

	if ref, ok := s.refs.Current(coin); ok && ref.WindowStartMs == atMs {
		return decimal.NewFromFloat(ref.ReferencePrice), true
	}
	for _, ref := range s.refs.History(coin) {
		if ref.WindowStartMs == atMs {
			return decimal.NewFromFloat(ref.ReferencePrice), true
		}
	}

	if s.live != nil {
		if w, ok := s.live.GetWindow(at); ok && w.IsComplete() {
			return w.EndPrice, true
		}
	}

	nextStart := atMs + spottracker.WindowDuration.Milliseconds()
	if ref, ok := s.refs.Current(coin); ok && ref.WindowStartMs == nextStart {
		return decimal.NewFromFloat(ref.ReferencePrice), true
	}
	for _, ref := range s.refs.History(coin) {
		if ref.WindowStartMs == nextStart {
			return decimal.NewFromFloat(ref.ReferencePrice), true
		}
	}

	return decimal.Zero, false
}
