// Package settlement resolves pending trades after their 15-minute window
// closes, comparing the window's start and end spot prices to determine the
// winning side.
package settlement

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// WindowPrices captures the reference (start) and close (end) spot prices
// for one window. EndPrice is the zero value until the window closes.
type WindowPrices struct {
	WindowStart time.Time
	StartPrice  decimal.Decimal
	WindowEnd   time.Time
	EndPrice    decimal.Decimal
	hasEnd      bool
}

// IsComplete reports whether both the start and end prices have been
// recorded.
func (w WindowPrices) IsComplete() bool {
	return w.hasEnd
}

// calculateWindowStart aligns t down to the nearest :00/:15/:30/:45 boundary
// for a windowMinutes-long window.
func calculateWindowStart(t time.Time, windowMinutes int) time.Time {
	aligned := (t.Minute() / windowMinutes) * windowMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), aligned, 0, 0, t.Location())
}

// calculateWindowEnd returns the end boundary of the window containing t.
func calculateWindowEnd(t time.Time, windowMinutes int) time.Time {
	return calculateWindowStart(t, windowMinutes).Add(time.Duration(windowMinutes) * time.Minute)
}

// LiveWindowTracker caches first/last spot prices observed at window
// boundaries from the live spot stream, so settlement can use prices
// captured at the exact moment of interest rather than a single oracle
// snapshot taken after the fact.
type LiveWindowTracker struct {
	mu            sync.Mutex
	windows       map[time.Time]WindowPrices
	windowMinutes int
}

// NewLiveWindowTracker creates a tracker for windows of the given duration.
func NewLiveWindowTracker(windowMinutes int) *LiveWindowTracker {
	return &LiveWindowTracker{
		windows:       make(map[time.Time]WindowPrices),
		windowMinutes: windowMinutes,
	}
}

// RecordStartPrice records price as the reference price for the window
// containing now, if that window isn't already tracked.
func (t *LiveWindowTracker) RecordStartPrice(now time.Time, price decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := calculateWindowStart(now, t.windowMinutes)
	if _, exists := t.windows[start]; exists {
		return
	}
	t.windows[start] = WindowPrices{WindowStart: start, StartPrice: price}
}

// RecordEndPrice records price as the close price for windowStart, returning
// the completed WindowPrices. Returns false if that window isn't tracked.
func (t *LiveWindowTracker) RecordEndPrice(windowStart time.Time, price decimal.Decimal, endTime time.Time) (WindowPrices, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[windowStart]
	if !ok {
		return WindowPrices{}, false
	}
	w.WindowEnd = endTime
	w.EndPrice = price
	w.hasEnd = true
	t.windows[windowStart] = w
	return w, true
}

// GetWindow returns the tracked prices for windowStart, if any.
func (t *LiveWindowTracker) GetWindow(windowStart time.Time) (WindowPrices, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[windowStart]
	return w, ok
}

// ClearOldWindows drops tracked windows that started before cutoff, to bound
// memory growth over a long-running session.
func (t *LiveWindowTracker) ClearOldWindows(cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for start := range t.windows {
		if start.Before(cutoff) {
			delete(t.windows, start)
		}
	}
}
