package signal

import (
	"context"
	"time"

	"algotrade/internal/book"
	"algotrade/pkg/types"
)

// OrderBookRecord is one persisted order-book snapshot.
type OrderBookRecord struct {
	Bids      []book.Level
	Asks      []book.Level
	Imbalance float64
	Timestamp time.Time
}

// FundingRecord is one persisted funding-rate sample.
type FundingRecord struct {
	Rate       float64
	ZScore     float64
	Percentile float64
	Timestamp  time.Time
}

// LiquidationSide names which side of a leveraged position was force-closed.
type LiquidationSide string

const (
	LiquidationLong  LiquidationSide = "long"
	LiquidationShort LiquidationSide = "short"
)

// LiquidationRecord is one persisted liquidation event.
type LiquidationRecord struct {
	Side      LiquidationSide
	USDValue  float64
	Timestamp time.Time
}

// OrderBookRepository serves historical order-book snapshots.
type OrderBookRepository interface {
	SnapshotsByTimeRange(ctx context.Context, symbol, exchange string, start, end time.Time) ([]OrderBookRecord, error)
}

// FundingRepository serves historical funding-rate samples.
type FundingRepository interface {
	RatesByTimeRange(ctx context.Context, symbol, exchange string, start, end time.Time) ([]FundingRecord, error)
}

// LiquidationRepository serves historical liquidation events.
type LiquidationRepository interface {
	EventsByTimeRange(ctx context.Context, symbol, exchange string, start, end time.Time) ([]LiquidationRecord, error)
}

// NewsRepository serves historical news events.
type NewsRepository interface {
	EventsByCurrency(ctx context.Context, currency string, start, end time.Time) ([]types.NewsEvent, error)
}

// BuilderConfig tunes lookback windows for each independent query.
type BuilderConfig struct {
	OrderBookLookback  time.Duration
	ImbalanceLookback  time.Duration
	FundingLookback    time.Duration
	LiquidationWindow  time.Duration
	NewsLookback       time.Duration
	MaxOrderBookLevels int
}

// DefaultBuilderConfig matches original_source's defaults.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		OrderBookLookback:  5 * time.Minute,
		ImbalanceLookback:  24 * time.Hour,
		FundingLookback:    7 * 24 * time.Hour,
		LiquidationWindow:  5 * time.Minute,
		NewsLookback:       time.Hour,
		MaxOrderBookLevels: 20,
	}
}

// Builder assembles a SignalContext from independent, individually-fallible
// historical queries, each filtered to strictly before the target timestamp
// to avoid look-ahead bias. A failing query leaves its field empty rather
// than aborting the whole build.
type Builder struct {
	orderBooks   OrderBookRepository
	funding      FundingRepository
	liquidations LiquidationRepository
	news         NewsRepository
	exchange     string
	config       BuilderConfig
}

// NewBuilder creates a context builder over the given repositories.
func NewBuilder(orderBooks OrderBookRepository, funding FundingRepository, liquidations LiquidationRepository, news NewsRepository, exchange string, config BuilderConfig) *Builder {
	return &Builder{
		orderBooks:   orderBooks,
		funding:      funding,
		liquidations: liquidations,
		news:         news,
		exchange:     exchange,
		config:       config,
	}
}

// BuildAt builds a SignalContext for symbol at timestamp.
func (b *Builder) BuildAt(ctx context.Context, symbol string, timestamp time.Time) (SignalContext, error) {
	sigCtx := New(timestamp, symbol).WithExchange(b.exchange)

	if ob, ok := b.queryOrderBook(ctx, symbol, timestamp); ok {
		sigCtx.OrderBook = &ob
		if mid, ok := ob.MidPrice(); ok {
			sigCtx.MidPrice = mid
		}
	}

	if imbalances := b.queryHistoricalImbalances(ctx, symbol, timestamp); len(imbalances) > 0 {
		sigCtx.HistoricalImbalances = imbalances
	}

	if rate, ok := b.queryLatestFunding(ctx, symbol, timestamp); ok {
		sigCtx.FundingRate = &rate
	}
	if historical := b.queryHistoricalFunding(ctx, symbol, timestamp); len(historical) > 0 {
		sigCtx.HistoricalFundingRates = historical
	}

	if agg, ok := b.queryLiquidationAggregate(ctx, symbol, timestamp); ok {
		sigCtx.LiquidationAggregate = &agg
		sigCtx.LiquidationUSD = agg.LongVolumeUSD + agg.ShortVolumeUSD
	}

	if news := b.queryNews(ctx, symbol, timestamp); len(news) > 0 {
		sigCtx.NewsEvents = news
	}

	return sigCtx, nil
}

func (b *Builder) queryOrderBook(ctx context.Context, symbol string, timestamp time.Time) (OrderBookSnapshot, bool) {
	if b.orderBooks == nil {
		return OrderBookSnapshot{}, false
	}
	start := timestamp.Add(-b.config.OrderBookLookback)
	records, err := b.orderBooks.SnapshotsByTimeRange(ctx, symbol, b.exchange, start, timestamp)
	if err != nil {
		return OrderBookSnapshot{}, false
	}

	record, ok := mostRecentBefore(records, timestamp, func(r OrderBookRecord) time.Time { return r.Timestamp })
	if !ok {
		return OrderBookSnapshot{}, false
	}

	bids := record.Bids
	if len(bids) > b.config.MaxOrderBookLevels {
		bids = bids[:b.config.MaxOrderBookLevels]
	}
	asks := record.Asks
	if len(asks) > b.config.MaxOrderBookLevels {
		asks = asks[:b.config.MaxOrderBookLevels]
	}

	return OrderBookSnapshot{Bids: bids, Asks: asks, Timestamp: record.Timestamp}, true
}

func (b *Builder) queryHistoricalImbalances(ctx context.Context, symbol string, timestamp time.Time) []float64 {
	if b.orderBooks == nil {
		return nil
	}
	start := timestamp.Add(-b.config.ImbalanceLookback)
	records, err := b.orderBooks.SnapshotsByTimeRange(ctx, symbol, b.exchange, start, timestamp)
	if err != nil {
		return nil
	}

	imbalances := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Timestamp.Before(timestamp) {
			imbalances = append(imbalances, r.Imbalance)
		}
	}
	return imbalances
}

func (b *Builder) queryLatestFunding(ctx context.Context, symbol string, timestamp time.Time) (float64, bool) {
	if b.funding == nil {
		return 0, false
	}
	start := timestamp.Add(-24 * time.Hour)
	records, err := b.funding.RatesByTimeRange(ctx, symbol, b.exchange, start, timestamp)
	if err != nil {
		return 0, false
	}
	record, ok := mostRecentBefore(records, timestamp, func(r FundingRecord) time.Time { return r.Timestamp })
	if !ok {
		return 0, false
	}
	return record.Rate, true
}

func (b *Builder) queryHistoricalFunding(ctx context.Context, symbol string, timestamp time.Time) []types.HistoricalFundingRate {
	if b.funding == nil {
		return nil
	}
	start := timestamp.Add(-b.config.FundingLookback)
	records, err := b.funding.RatesByTimeRange(ctx, symbol, b.exchange, start, timestamp)
	if err != nil {
		return nil
	}

	historical := make([]types.HistoricalFundingRate, 0, len(records))
	for _, r := range records {
		if r.Timestamp.Before(timestamp) {
			historical = append(historical, types.HistoricalFundingRate{
				Timestamp:  r.Timestamp,
				Rate:       r.Rate,
				ZScore:     r.ZScore,
				Percentile: r.Percentile,
			})
		}
	}
	return historical
}

func (b *Builder) queryLiquidationAggregate(ctx context.Context, symbol string, timestamp time.Time) (types.LiquidationAggregate, bool) {
	if b.liquidations == nil {
		return types.LiquidationAggregate{}, false
	}
	start := timestamp.Add(-b.config.LiquidationWindow)
	records, err := b.liquidations.EventsByTimeRange(ctx, symbol, b.exchange, start, timestamp)
	if err != nil {
		return types.LiquidationAggregate{}, false
	}

	var agg types.LiquidationAggregate
	var found bool
	for _, r := range records {
		if !r.Timestamp.Before(timestamp) {
			continue
		}
		found = true
		if r.Side == LiquidationShort {
			agg.ShortVolumeUSD += r.USDValue
			agg.CountShort++
		} else {
			agg.LongVolumeUSD += r.USDValue
			agg.CountLong++
		}
	}
	if !found {
		return types.LiquidationAggregate{}, false
	}
	agg.NetDeltaUSD = agg.LongVolumeUSD - agg.ShortVolumeUSD
	return agg, true
}

func (b *Builder) queryNews(ctx context.Context, symbol string, timestamp time.Time) []types.NewsEvent {
	if b.news == nil {
		return nil
	}
	start := timestamp.Add(-b.config.NewsLookback)
	records, err := b.news.EventsByCurrency(ctx, symbol, start, timestamp)
	if err != nil {
		return nil
	}

	news := make([]types.NewsEvent, 0, len(records))
	for _, r := range records {
		if r.Timestamp.Before(timestamp) {
			news = append(news, r)
		}
	}
	return news
}

func mostRecentBefore[T any](records []T, timestamp time.Time, at func(T) time.Time) (T, bool) {
	var best T
	var found bool
	for _, r := range records {
		ts := at(r)
		if !ts.Before(timestamp) {
			continue
		}
		if !found || ts.After(at(best)) {
			best = r
			found = true
		}
	}
	return best, found
}
