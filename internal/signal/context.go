// Package signal computes directional bias indicators — order-book
// imbalance, funding-rate deviation, liquidation flow, news sentiment — and
// combines them into a composite signal per symbol on a fixed interval.
package signal

import (
	"time"

	"algotrade/internal/book"
	"algotrade/pkg/types"
)

// OrderBookSnapshot is a point-in-time capture of both sides of a book, used
// by the imbalance generator.
type OrderBookSnapshot struct {
	Bids      []book.Level
	Asks      []book.Level
	Timestamp time.Time
}

// MidPrice returns (bestBid+bestAsk)/2, or false if either side is empty.
func (s OrderBookSnapshot) MidPrice() (float64, bool) {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0, false
	}
	bid, _ := s.Bids[0].Price.Float64()
	ask, _ := s.Asks[0].Price.Float64()
	return (bid + ask) / 2, true
}

// BidDepth sums size across all bid levels.
func (s OrderBookSnapshot) BidDepth() float64 {
	var total float64
	for _, l := range s.Bids {
		f, _ := l.Size.Float64()
		total += f
	}
	return total
}

// AskDepth sums size across all ask levels.
func (s OrderBookSnapshot) AskDepth() float64 {
	var total float64
	for _, l := range s.Asks {
		f, _ := l.Size.Float64()
		total += f
	}
	return total
}

// SignalContext carries every piece of point-in-time data a generator might
// need. Fields are populated independently by the context builder and are
// left zero-valued when the underlying query found nothing — a generator
// must treat an empty field as "no data," never as "data is zero."
type SignalContext struct {
	Timestamp time.Time
	Symbol    string
	Exchange  string

	OrderBook            *OrderBookSnapshot
	MidPrice             float64
	HistoricalImbalances []float64

	FundingRate            *float64
	HistoricalFundingRates []types.HistoricalFundingRate

	LiquidationAggregate *types.LiquidationAggregate
	LiquidationUSD       float64

	NewsEvents []types.NewsEvent
}

// New creates a bare context for the given symbol at the given timestamp.
func New(timestamp time.Time, symbol string) SignalContext {
	return SignalContext{Timestamp: timestamp, Symbol: symbol}
}

// WithExchange sets the exchange name and returns the context.
func (c SignalContext) WithExchange(exchange string) SignalContext {
	c.Exchange = exchange
	return c
}
