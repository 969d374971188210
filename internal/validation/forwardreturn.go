package validation

import (
	"context"
	"time"
)

// PriceSource looks up a symbol's close/mid price at a given instant, used
// to compute the forward return realized after a signal fired. Returns
// false if no price is known for that instant.
type PriceSource interface {
	PriceAt(ctx context.Context, symbol string, at time.Time) (float64, bool)
}

// ForwardReturnStats summarizes how many snapshots carry a forward return
// (filled in now or already present) versus how many were left without one
// for missing price data or a zero start price.
type ForwardReturnStats struct {
	Calculated int
	Missing    int
}

// CalculateForwardReturns fills in ForwardReturn for each snapshot by
// looking up the symbol's price at the snapshot's own timestamp and again
// at timestamp+horizon, returning (end-start)/start. Snapshots already
// carrying a forward return are left untouched; snapshots missing either
// price point are returned with ForwardReturn still nil.
func CalculateForwardReturns(ctx context.Context, snapshots []SignalSnapshotRecord, horizon time.Duration, prices PriceSource) ([]SignalSnapshotRecord, ForwardReturnStats) {
	out := make([]SignalSnapshotRecord, len(snapshots))
	var stats ForwardReturnStats

	for i, s := range snapshots {
		if s.ForwardReturn != nil {
			out[i] = s
			stats.Calculated++
			continue
		}

		startPrice, ok := prices.PriceAt(ctx, s.Symbol, s.Timestamp)
		if !ok {
			out[i] = s
			stats.Missing++
			continue
		}
		endPrice, ok := prices.PriceAt(ctx, s.Symbol, s.Timestamp.Add(horizon))
		if !ok {
			out[i] = s
			stats.Missing++
			continue
		}
		if startPrice == 0 {
			out[i] = s
			stats.Missing++
			continue
		}

		ret := (endPrice - startPrice) / startPrice
		s.ForwardReturn = &ret
		out[i] = s
		stats.Calculated++
	}

	return out, stats
}
