package validation

import (
	"time"

	"algotrade/pkg/types"
)

// SignalSnapshotRecord is a persisted point-in-time reading of one signal,
// joined with the forward return realized after it fired. ForwardReturn is
// nil until CalculateForwardReturns has had a chance to fill it in from
// price history.
type SignalSnapshotRecord struct {
	Timestamp     time.Time
	SignalName    string
	Symbol        string
	Exchange      string
	Direction     types.Direction
	Strength      float64
	Confidence    float64
	ForwardReturn *float64
}

// IsDirectional reports whether the snapshot carries a non-Neutral
// prediction with a known forward return, i.e. whether it's usable in a
// hypothesis test.
func (s SignalSnapshotRecord) IsDirectional() bool {
	return s.Direction != types.Neutral && s.ForwardReturn != nil
}

// IsCorrectPrediction reports whether the realized forward return agrees
// with the signal's predicted direction. Returns false for Neutral or
// missing-return snapshots.
func (s SignalSnapshotRecord) IsCorrectPrediction() bool {
	if !s.IsDirectional() {
		return false
	}
	switch s.Direction {
	case types.Up:
		return *s.ForwardReturn > 0
	case types.Down:
		return *s.ForwardReturn < 0
	default:
		return false
	}
}

// SignedReturn returns the forward return signed by prediction direction:
// positive when the signal's direction matches the outcome, negative when
// it doesn't. The second return is false for Neutral or missing-return
// snapshots.
func (s SignalSnapshotRecord) SignedReturn() (float64, bool) {
	if !s.IsDirectional() {
		return 0, false
	}
	switch s.Direction {
	case types.Up:
		return *s.ForwardReturn, true
	case types.Down:
		return -*s.ForwardReturn, true
	default:
		return 0, false
	}
}
