// Package dataservice owns every outward connection to the market-data
// provider and exposes a single cloneable, read-only handle: per-symbol
// spot-price window references and the shared composite signal map.
//
// It follows the teacher engine's New/Start/Stop lifecycle (wire
// collaborators in a constructor, launch goroutines in Start, cancel and
// wait in Stop) but governs a flatter task set than a per-market slot: one
// spot feed shared across every symbol, one signal aggregator, and a pair
// of optional persistence writers — so shutdown here watches an explicit
// atomic stop flag alongside context cancellation, since the snapshot and
// raw-data writers run on their own tickers rather than one shared
// per-market goroutine the way the teacher's maker loops do.
package dataservice

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"algotrade/internal/feed"
	"algotrade/internal/signal"
	"algotrade/internal/spottracker"
	"algotrade/pkg/types"
)

// Config tunes which outward connections and persistence tasks the service
// spawns.
type Config struct {
	Symbols []string

	SpotWSURL string

	SignalEnabled      bool
	SignalTickInterval time.Duration
	CompositeThreshold float64

	PersistSnapshots bool
	SnapshotInterval time.Duration

	PersistRawData     bool
	RawCollectInterval time.Duration

	// ShutdownGrace bounds how long Stop waits for subtasks to notice the
	// stop flag and return before giving up on them.
	ShutdownGrace time.Duration
}

// DefaultConfig returns sane defaults for every interval the service owns.
func DefaultConfig(symbols []string, spotWSURL string) Config {
	return Config{
		Symbols:            symbols,
		SpotWSURL:          spotWSURL,
		SignalEnabled:      true,
		SignalTickInterval: 5 * time.Second,
		CompositeThreshold: signal.DefaultCompositeThreshold,
		SnapshotInterval:   5 * time.Second,
		RawCollectInterval: time.Minute,
		ShutdownGrace:      time.Second,
	}
}

// SnapshotWriter persists the current composite signal for a symbol.
// Implemented by internal/store.
type SnapshotWriter interface {
	SaveSignalSnapshot(ctx context.Context, composite signal.Composite) error
}

// OrderBookCollector captures a raw order-book sample for a symbol,
// independent of the aggregator's own in-memory use of the same data.
type OrderBookCollector interface {
	CollectOrderBook(ctx context.Context, symbol string) (signal.OrderBookSnapshot, error)
}

// FundingCollector captures a raw funding-rate sample for a symbol.
type FundingCollector interface {
	CollectFunding(ctx context.Context, symbol string) (rate float64, at time.Time, err error)
}

// LiquidationCollector captures raw liquidation events for a symbol, since
// whatever checkpoint the collector itself tracks.
type LiquidationCollector interface {
	CollectLiquidations(ctx context.Context, symbol string) ([]signal.LiquidationRecord, error)
}

// RawDataWriter persists samples gathered by the raw-data collectors.
// Implemented by internal/store.
type RawDataWriter interface {
	SaveOrderBookSnapshot(ctx context.Context, symbol string, snap signal.OrderBookSnapshot) error
	SaveFundingRate(ctx context.Context, symbol string, rate float64, at time.Time) error
	SaveLiquidationEvent(ctx context.Context, symbol string, rec signal.LiquidationRecord) error
}

// Handle is a cloneable, read-only view into the service's live state.
// Detectors hold a Handle rather than the Service itself, so they can read
// window references and composite signals but never start, stop, or
// reconfigure the underlying feeds.
type Handle struct {
	tracker    *spottracker.Tracker
	aggregator *signal.Aggregator
}

// Reference returns the active window reference for a coin, if one has been
// captured yet.
func (h Handle) Reference(coin types.Coin) (types.WindowReference, bool) {
	if h.tracker == nil {
		return types.WindowReference{}, false
	}
	return h.tracker.Current(coin)
}

// LastPrice returns the most recent spot tick observed for a coin, if the
// feed has delivered one yet.
func (h Handle) LastPrice(coin types.Coin) (float64, bool) {
	if h.tracker == nil {
		return 0, false
	}
	return h.tracker.LastPrice(coin)
}

// Signal returns the latest composite for a symbol, if the aggregator has
// published one.
func (h Handle) Signal(symbol string) (signal.Composite, bool) {
	if h.aggregator == nil {
		return signal.Composite{}, false
	}
	return h.aggregator.Current(symbol)
}

// Signals returns a snapshot of every symbol's latest composite.
func (h Handle) Signals() map[string]signal.Composite {
	if h.aggregator == nil {
		return nil
	}
	return h.aggregator.Snapshot()
}

// Service owns the spot feed, the signal aggregator, and the optional
// persistence writers that together make up the data layer.
type Service struct {
	cfg    Config
	logger *slog.Logger

	tracker    *spottracker.Tracker
	spotFeed   *feed.SpotFeed
	aggregator *signal.Aggregator

	snapshotWriter SnapshotWriter

	obCollector      OrderBookCollector
	fundingCollector FundingCollector
	liqCollector     LiquidationCollector
	rawWriter        RawDataWriter

	stopping atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures an optional persistence collaborator on construction.
type Option func(*Service)

// WithSnapshotWriter enables signal-snapshot persistence.
func WithSnapshotWriter(w SnapshotWriter) Option {
	return func(s *Service) { s.snapshotWriter = w }
}

// WithRawDataCollectors enables the raw-data collector trio alongside their
// shared writer. A nil collector is simply never invoked, so callers may
// pass only the collectors they have.
func WithRawDataCollectors(ob OrderBookCollector, funding FundingCollector, liq LiquidationCollector, w RawDataWriter) Option {
	return func(s *Service) {
		s.obCollector = ob
		s.fundingCollector = funding
		s.liqCollector = liq
		s.rawWriter = w
	}
}

// New wires a data service around an already-constructed tracker and an
// optional signal registry/builder pair. Pass a nil registry or builder (or
// cfg.SignalEnabled=false) to run without an aggregator.
func New(cfg Config, logger *slog.Logger, tracker *spottracker.Tracker, registry *signal.Registry, builder signal.ContextBuilder, opts ...Option) *Service {
	logger = logger.With("component", "dataservice")

	var agg *signal.Aggregator
	if cfg.SignalEnabled && registry != nil && builder != nil {
		agg = signal.NewAggregator(registry, builder, cfg.Symbols, cfg.SignalTickInterval, cfg.CompositeThreshold, logger)
	}

	s := &Service{
		cfg:        cfg,
		logger:     logger,
		tracker:    tracker,
		spotFeed:   feed.NewSpotFeed(cfg.SpotWSURL, logger),
		aggregator: agg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns a read-only view of the service's live state.
func (s *Service) Handle() Handle {
	return Handle{tracker: s.tracker, aggregator: s.aggregator}
}

// Start launches every subtask and blocks until ctx is cancelled. Callers
// typically run it in its own goroutine and use Stop for shutdown.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.spotFeed.Subscribe(s.cfg.Symbols); err != nil {
		s.logger.Warn("initial spot subscribe failed, will retry on reconnect", "error", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.spotFeed.Run(runCtx); err != nil && runCtx.Err() == nil {
			s.logger.Error("spot feed exited", "error", err)
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.consumeTrades(runCtx)
	}()

	if s.aggregator != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.aggregator.Run(runCtx)
		}()

		if s.cfg.PersistSnapshots && s.snapshotWriter != nil {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.runSnapshotWriter(runCtx)
			}()
		}
	}

	if s.cfg.PersistRawData && s.rawWriter != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runRawCollectors(runCtx)
		}()
	}

	<-runCtx.Done()
	return runCtx.Err()
}

// consumeTrades drains spot trade prints into the tracker. No business
// logic beyond insertion — direction/reference decisions live in the
// tracker itself.
func (s *Service) consumeTrades(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-s.spotFeed.Trades():
			if !ok {
				return
			}
			if s.stopping.Load() {
				continue
			}
			price := feed.ParsePrice(trade.Price)
			if price <= 0 {
				continue
			}
			s.tracker.UpdatePrice(types.Coin(trade.Symbol), parseTradeTimeMs(trade.Timestamp), price)
		}
	}
}

func (s *Service) runSnapshotWriter(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.stopping.Load() {
				return
			}
			for _, composite := range s.aggregator.Snapshot() {
				if err := s.snapshotWriter.SaveSignalSnapshot(ctx, composite); err != nil {
					s.logger.Error("save signal snapshot failed", "symbol", composite.Symbol, "error", err)
				}
			}
		}
	}
}

func (s *Service) runRawCollectors(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RawCollectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.stopping.Load() {
				return
			}
			for _, symbol := range s.cfg.Symbols {
				s.collectOnce(ctx, symbol)
			}
		}
	}
}

func (s *Service) collectOnce(ctx context.Context, symbol string) {
	if s.obCollector != nil {
		if snap, err := s.obCollector.CollectOrderBook(ctx, symbol); err != nil {
			s.logger.Warn("order book collection failed", "symbol", symbol, "error", err)
		} else if err := s.rawWriter.SaveOrderBookSnapshot(ctx, symbol, snap); err != nil {
			s.logger.Error("save order book snapshot failed", "symbol", symbol, "error", err)
		}
	}

	if s.fundingCollector != nil {
		if rate, at, err := s.fundingCollector.CollectFunding(ctx, symbol); err != nil {
			s.logger.Warn("funding collection failed", "symbol", symbol, "error", err)
		} else if err := s.rawWriter.SaveFundingRate(ctx, symbol, rate, at); err != nil {
			s.logger.Error("save funding rate failed", "symbol", symbol, "error", err)
		}
	}

	if s.liqCollector != nil {
		recs, err := s.liqCollector.CollectLiquidations(ctx, symbol)
		if err != nil {
			s.logger.Warn("liquidation collection failed", "symbol", symbol, "error", err)
			return
		}
		for _, rec := range recs {
			if err := s.rawWriter.SaveLiquidationEvent(ctx, symbol, rec); err != nil {
				s.logger.Error("save liquidation event failed", "symbol", symbol, "error", err)
			}
		}
	}
}

// Stop flips the stop flag, cancels the run context, and waits up to
// ShutdownGrace for subtasks to notice and return before closing the
// connection out from under them.
func (s *Service) Stop() {
	s.stopping.Store(true)
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = time.Second
	}

	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("shutdown grace period elapsed, some subtasks may still be running")
	}

	s.spotFeed.Close()
}

// parseTradeTimeMs accepts either an RFC3339 timestamp or a raw millisecond
// epoch string, falling back to the current time if neither parses — a
// missing or malformed timestamp shouldn't drop an otherwise good tick.
func parseTradeTimeMs(ts string) int64 {
	if ts == "" {
		return time.Now().UnixMilli()
	}
	if v, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return v.UnixMilli()
	}
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return ms
	}
	return time.Now().UnixMilli()
}
