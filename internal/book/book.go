// Package book maintains a local L2 order book mirror for a single outcome
// token.
//
// Go has no ordered-map type, so each side keeps a sorted price index
// alongside a price→size map rather than a BTreeMap as the original source
// does: bids are indexed high-to-low, asks low-to-high, and inserts/removes
// binary-search the index. Snapshots replace a side wholesale; deltas
// add, update, or (on zero size) remove a single level.
package book

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Side names which side of the book a delta applies to.
type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

// Level is a single price/size pair.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Book is a concurrency-safe local mirror of one token's order book.
type Book struct {
	mu      sync.RWMutex
	tokenID string

	bidPrices []decimal.Decimal // sorted descending (best bid first)
	bidSizes  map[string]decimal.Decimal
	askPrices []decimal.Decimal // sorted ascending (best ask first)
	askSizes  map[string]decimal.Decimal

	updated time.Time
}

// New creates an empty book for the given token.
func New(tokenID string) *Book {
	return &Book{
		tokenID:  tokenID,
		bidSizes: make(map[string]decimal.Decimal),
		askSizes: make(map[string]decimal.Decimal),
	}
}

// TokenID returns the token this book mirrors.
func (b *Book) TokenID() string { return b.tokenID }

// ApplySnapshot replaces both sides of the book wholesale. Zero-size levels
// in the input are dropped.
func (b *Book) ApplySnapshot(bids, asks []Level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bidPrices, b.bidSizes = buildSide(bids, true)
	b.askPrices, b.askSizes = buildSide(asks, false)
	b.updated = time.Now()
}

func buildSide(levels []Level, descending bool) ([]decimal.Decimal, map[string]decimal.Decimal) {
	sizes := make(map[string]decimal.Decimal, len(levels))
	prices := make([]decimal.Decimal, 0, len(levels))
	for _, lvl := range levels {
		if lvl.Size.Sign() <= 0 {
			continue
		}
		key := lvl.Price.String()
		if _, exists := sizes[key]; !exists {
			prices = append(prices, lvl.Price)
		}
		sizes[key] = lvl.Size
	}
	sort.Slice(prices, func(i, j int) bool {
		if descending {
			return prices[i].GreaterThan(prices[j])
		}
		return prices[i].LessThan(prices[j])
	})
	return prices, sizes
}

// ApplyDelta adds, updates, or (size <= 0) removes a single price level.
func (b *Book) ApplyDelta(side Side, price, size decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	descending := side == Bid
	prices := &b.bidPrices
	sizes := b.bidSizes
	if side == Ask {
		prices = &b.askPrices
		sizes = b.askSizes
	}

	key := price.String()
	_, existed := sizes[key]

	if size.Sign() <= 0 {
		if existed {
			delete(sizes, key)
			*prices = removePrice(*prices, price)
		}
		b.updated = time.Now()
		return
	}

	sizes[key] = size
	if !existed {
		*prices = insertPrice(*prices, price, descending)
	}
	b.updated = time.Now()
}

func insertPrice(prices []decimal.Decimal, p decimal.Decimal, descending bool) []decimal.Decimal {
	idx := sort.Search(len(prices), func(i int) bool {
		if descending {
			return prices[i].LessThanOrEqual(p)
		}
		return prices[i].GreaterThanOrEqual(p)
	})
	if idx < len(prices) && prices[idx].Equal(p) {
		return prices
	}
	prices = append(prices, decimal.Zero)
	copy(prices[idx+1:], prices[idx:])
	prices[idx] = p
	return prices
}

func removePrice(prices []decimal.Decimal, p decimal.Decimal) []decimal.Decimal {
	for i, existing := range prices {
		if existing.Equal(p) {
			return append(prices[:i], prices[i+1:]...)
		}
	}
	return prices
}

// BestBid returns the highest bid price and whether the bid side is
// non-empty.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bidPrices) == 0 {
		return decimal.Zero, false
	}
	return b.bidPrices[0], true
}

// BestAsk returns the lowest ask price and whether the ask side is
// non-empty.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.askPrices) == 0 {
		return decimal.Zero, false
	}
	return b.askPrices[0], true
}

// Spread returns BestAsk - BestBid. Returns false if either side is empty.
func (b *Book) Spread() (decimal.Decimal, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}

// MidPrice returns (BestBid + BestAsk) / 2. Returns false if either side is
// empty.
func (b *Book) MidPrice() (decimal.Decimal, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// TotalBidDepth sums size across all bid levels.
func (b *Book) TotalBidDepth() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := decimal.Zero
	for _, size := range b.bidSizes {
		total = total.Add(size)
	}
	return total
}

// TotalAskDepth sums size across all ask levels.
func (b *Book) TotalAskDepth() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := decimal.Zero
	for _, size := range b.askSizes {
		total = total.Add(size)
	}
	return total
}

// BidLevels returns a snapshot copy of the bid side, best first.
func (b *Book) BidLevels() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyLevels(b.bidPrices, b.bidSizes)
}

// AskLevels returns a snapshot copy of the ask side, best first.
func (b *Book) AskLevels() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyLevels(b.askPrices, b.askSizes)
}

func copyLevels(prices []decimal.Decimal, sizes map[string]decimal.Decimal) []Level {
	out := make([]Level, 0, len(prices))
	for _, p := range prices {
		out = append(out, Level{Price: p, Size: sizes[p.String()]})
	}
	return out
}

// BidLevelCount returns the number of distinct bid price levels.
func (b *Book) BidLevelCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bidPrices)
}

// AskLevelCount returns the number of distinct ask price levels.
func (b *Book) AskLevelCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.askPrices)
}

// HasLiquidity reports whether both sides carry at least one level.
func (b *Book) HasLiquidity() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bidPrices) > 0 && len(b.askPrices) > 0
}

// IsStale reports whether the book hasn't been updated within maxAge.
func (b *Book) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updated.IsZero() {
		return true
	}
	return time.Since(b.updated) > maxAge
}

// LastUpdated returns the timestamp of the last applied snapshot or delta.
func (b *Book) LastUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}
