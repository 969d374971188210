// Package fillsim walks an order book side to estimate the cost of filling
// a target size, and drives the paper executor's simulated fills.
//
// There is no book-walking helper in the market-making strategy this module
// grew out of — it only posts resting quotes and never needs to know what
// crossing the book itself would cost. This package is new, but it operates
// on the same []book.Level shape internal/book already exposes via
// BidLevels/AskLevels.
package fillsim

import (
	"github.com/shopspring/decimal"

	"algotrade/internal/book"
)

// Result is the outcome of walking a book side for a target size.
type Result struct {
	FilledSize      decimal.Decimal
	TotalCost       decimal.Decimal
	VWAP            decimal.Decimal
	BestPrice       decimal.Decimal
	WorstPrice      decimal.Decimal
	SufficientDepth bool
}

// Walk consumes levels best-to-worst until targetSize is filled or the side
// is exhausted. levels must already be ordered best-first (as
// book.Book.BidLevels/AskLevels return them); Walk does not sort.
func Walk(levels []book.Level, targetSize decimal.Decimal) Result {
	var res Result

	if targetSize.LessThanOrEqual(decimal.Zero) || len(levels) == 0 {
		return res
	}

	remaining := targetSize
	for _, lvl := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if res.FilledSize.IsZero() {
			res.BestPrice = lvl.Price
		}

		take := lvl.Size
		if take.GreaterThan(remaining) {
			take = remaining
		}

		res.FilledSize = res.FilledSize.Add(take)
		res.TotalCost = res.TotalCost.Add(take.Mul(lvl.Price))
		res.WorstPrice = lvl.Price
		remaining = remaining.Sub(take)
	}

	if res.FilledSize.GreaterThan(decimal.Zero) {
		res.VWAP = res.TotalCost.Div(res.FilledSize)
	}
	res.SufficientDepth = remaining.LessThanOrEqual(decimal.Zero)

	return res
}

// WalkAsks estimates the cost of buying targetSize from b's ask side.
func WalkAsks(b *book.Book, targetSize decimal.Decimal) Result {
	return Walk(b.AskLevels(), targetSize)
}

// WalkBids estimates the proceeds of selling targetSize into b's bid side.
func WalkBids(b *book.Book, targetSize decimal.Decimal) Result {
	return Walk(b.BidLevels(), targetSize)
}
