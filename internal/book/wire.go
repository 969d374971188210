package book

import (
	"strings"

	"github.com/shopspring/decimal"

	"algotrade/pkg/types"
)

// ApplyBookResponse applies a REST GET /book snapshot to the book.
// Malformed price/size strings are skipped rather than failing the whole
// snapshot — a single bad level shouldn't blank out an otherwise good book.
func (b *Book) ApplyBookResponse(resp *types.BookResponse) {
	b.ApplySnapshot(parseLevels(resp.Bids), parseLevels(resp.Asks))
}

// ApplyWSBookEvent applies a full order-book snapshot pushed over the
// book WebSocket feed.
func (b *Book) ApplyWSBookEvent(evt types.WSBookEvent) {
	b.ApplySnapshot(parseLevels(evt.Buys), parseLevels(evt.Sells))
}

// ApplyWSPriceChange applies an incremental price_change event. Entries for
// assets other than this book's token are ignored so a caller can fan a
// single multi-asset event out across several books without pre-filtering.
func (b *Book) ApplyWSPriceChange(evt types.WSPriceChangeEvent) {
	for _, pc := range evt.PriceChanges {
		if pc.AssetID != b.tokenID {
			continue
		}
		price, err := decimal.NewFromString(pc.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(pc.Size)
		if err != nil {
			continue
		}
		b.ApplyDelta(parseSide(pc.Side), price, size)
	}
}

func parseSide(s string) Side {
	if strings.EqualFold(s, string(types.BUY)) {
		return Bid
	}
	return Ask
}

func parseLevels(levels []types.PriceLevel) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(l.Size)
		if err != nil {
			continue
		}
		out = append(out, Level{Price: price, Size: size})
	}
	return out
}
