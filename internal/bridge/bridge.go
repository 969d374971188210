// Package bridge adapts the catalog client and the data service's live
// window references into the provider interfaces each detector runner in
// internal/detect depends on, so no detector needs to know where its inputs
// come from.
package bridge

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/book"
	"algotrade/internal/catalog"
	"algotrade/internal/dataservice"
	"algotrade/internal/detect"
	"algotrade/pkg/types"
)

// syntheticDepth is the size assigned to the single ask level built for a
// paper-execution book mirror, large enough that fill simulation against it
// is gated by PaperConfig.FillRate rather than by depth.
var syntheticDepth = decimal.NewFromInt(100_000)

// MarketData supplies the live catalog lookups and spot-price references
// every provider in this package is built from.
type MarketData struct {
	catalog *catalog.Catalog
	handle  dataservice.Handle
	coins   []types.Coin
}

// New creates a MarketData bridge for the given tracked coins.
func New(cat *catalog.Catalog, handle dataservice.Handle, coins []types.Coin) MarketData {
	return MarketData{catalog: cat, handle: handle, coins: coins}
}

type resolved struct {
	market catalog.Market
	ref    types.WindowReference
	spot   float64
	ok     bool
}

// resolveCoin gathers a coin's current market listing plus its live window
// reference and most recent spot tick, skipping coins the catalog or
// tracker haven't resolved yet.
func (m MarketData) resolveCoin(coin types.Coin) resolved {
	mkt, ok := m.catalog.Current(coin)
	if !ok {
		return resolved{}
	}
	ref, ok := m.handle.Reference(coin)
	if !ok {
		return resolved{}
	}
	spot, ok := m.handle.LastPrice(coin)
	if !ok {
		return resolved{}
	}
	return resolved{market: mkt, ref: ref, spot: spot, ok: true}
}

// DirectionalInputs satisfies detect.DirectionalProvider.
func (m MarketData) DirectionalInputs(ctx context.Context) ([]detect.DirectionalInputs, error) {
	now := time.Now()
	var out []detect.DirectionalInputs
	for _, coin := range m.coins {
		r := m.resolveCoin(coin)
		if !r.ok {
			continue
		}
		out = append(out, detect.DirectionalInputs{
			Coin:              coin,
			SpotPrice:         r.spot,
			ReferencePrice:    r.ref.ReferencePrice,
			YesAsk:            decimal.NewFromFloat(r.market.YesAsk),
			NoAsk:             decimal.NewFromFloat(r.market.NoAsk),
			YesTokenID:        r.market.YesTokenID,
			NoTokenID:         r.market.NoTokenID,
			TimeRemainingSecs: int64(r.market.TimeRemaining(now).Seconds()),
		})
	}
	return out, nil
}

// LatencyInputs satisfies detect.LatencyProvider.
func (m MarketData) LatencyInputs(ctx context.Context) ([]detect.LatencyInputs, error) {
	now := time.Now()
	var out []detect.LatencyInputs
	for _, coin := range m.coins {
		r := m.resolveCoin(coin)
		if !r.ok {
			continue
		}
		out = append(out, detect.LatencyInputs{
			Coin:              coin,
			SpotPrice:         r.spot,
			ReferencePrice:    r.ref.ReferencePrice,
			YesAsk:            decimal.NewFromFloat(r.market.YesAsk),
			NoAsk:             decimal.NewFromFloat(r.market.NoAsk),
			YesTokenID:        r.market.YesTokenID,
			NoTokenID:         r.market.NoTokenID,
			TimeRemainingSecs: int64(r.market.TimeRemaining(now).Seconds()),
		})
	}
	return out, nil
}

// GabagoolInputs satisfies detect.GabagoolProvider. ElapsedSecs is measured
// from the window's own start, since the hybrid detector tracks a position
// opened sometime after the window opened.
func (m MarketData) GabagoolInputs(ctx context.Context) ([]detect.GabagoolInputs, error) {
	now := time.Now()
	var out []detect.GabagoolInputs
	for _, coin := range m.coins {
		r := m.resolveCoin(coin)
		if !r.ok {
			continue
		}
		out = append(out, detect.GabagoolInputs{
			Coin:              coin,
			SpotPrice:         r.spot,
			ReferencePrice:    r.ref.ReferencePrice,
			YesAsk:            decimal.NewFromFloat(r.market.YesAsk),
			NoAsk:             decimal.NewFromFloat(r.market.NoAsk),
			YesTokenID:        r.market.YesTokenID,
			NoTokenID:         r.market.NoTokenID,
			ElapsedSecs:       int64(now.Sub(r.market.WindowStart).Seconds()),
			TimeRemainingSecs: int64(r.market.TimeRemaining(now).Seconds()),
		})
	}
	return out, nil
}

// Book satisfies exec.BookProvider, building a single-level synthetic book
// from the catalog's quoted ask for whichever side tokenID names. The
// catalog feed carries no live depth, so this stands in for a real book
// mirror when running against the paper executor.
func (m MarketData) Book(tokenID string) (*book.Book, bool) {
	for _, coin := range m.coins {
		mkt, ok := m.catalog.Current(coin)
		if !ok {
			continue
		}
		var ask float64
		switch tokenID {
		case mkt.YesTokenID:
			ask = mkt.YesAsk
		case mkt.NoTokenID:
			ask = mkt.NoAsk
		default:
			continue
		}
		b := book.New(tokenID)
		b.ApplySnapshot(nil, []book.Level{{Price: decimal.NewFromFloat(ask), Size: syntheticDepth}})
		return b, true
	}
	return nil, false
}

// CoinMarketSnapshots satisfies detect.CrossMarketProvider. The Gamma feed
// the catalog polls surfaces no book depth, so UpBidDepth/DownBidDepth and
// SpreadBps are left at zero; a deployment relying on the depth gate needs a
// depth-aware catalog source instead.
func (m MarketData) CoinMarketSnapshots(ctx context.Context) ([]types.CoinMarketSnapshot, error) {
	now := time.Now()
	var out []types.CoinMarketSnapshot
	for _, coin := range m.coins {
		mkt, ok := m.catalog.Current(coin)
		if !ok {
			continue
		}
		out = append(out, types.CoinMarketSnapshot{
			Coin:        coin,
			ConditionID: mkt.ConditionID,
			UpTokenID:   mkt.YesTokenID,
			DownTokenID: mkt.NoTokenID,
			UpAsk:       decimal.NewFromFloat(mkt.YesAsk),
			DownAsk:     decimal.NewFromFloat(mkt.NoAsk),
			CapturedAt:  now,
		})
	}
	return out, nil
}
