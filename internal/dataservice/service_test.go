package dataservice

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"algotrade/internal/signal"
	"algotrade/internal/spottracker"
	"algotrade/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHandleWithoutAggregatorReturnsFalse(t *testing.T) {
	tracker := spottracker.NewDefault()
	svc := New(Config{Symbols: []string{"BTC"}, SpotWSURL: "ws://unused"}, testLogger(), tracker, nil, nil)

	h := svc.Handle()
	if _, ok := h.Signal("BTC"); ok {
		t.Error("expected no signal without an aggregator")
	}
	if h.Signals() != nil {
		t.Error("expected nil snapshot without an aggregator")
	}
}

func TestHandleReferenceDelegatesToTracker(t *testing.T) {
	tracker := spottracker.NewDefault()
	ref := types.WindowReference{Coin: types.BTC, ReferencePrice: 50000, Source: types.ReferenceSource("manual")}
	tracker.SetReference(types.BTC, ref)

	svc := New(Config{Symbols: []string{"BTC"}, SpotWSURL: "ws://unused"}, testLogger(), tracker, nil, nil)
	h := svc.Handle()

	got, ok := h.Reference(types.BTC)
	if !ok {
		t.Fatal("expected a captured reference")
	}
	if got.ReferencePrice != 50000 {
		t.Errorf("ReferencePrice = %v, want 50000", got.ReferencePrice)
	}
}

type staticBuilder struct{ ctx signal.SignalContext }

func (b staticBuilder) BuildAt(context.Context, string, time.Time) (signal.SignalContext, error) {
	return b.ctx, nil
}

type mockGenerator struct{ name string }

func (m mockGenerator) Name() string    { return m.name }
func (m mockGenerator) Weight() float64 { return 1.0 }
func (m mockGenerator) Compute(signal.SignalContext) (types.SignalValue, error) {
	return types.SignalValue{Direction: types.Up, Strength: 0.9}, nil
}

func TestHandleSignalReflectsAggregatorTick(t *testing.T) {
	tracker := spottracker.NewDefault()
	registry := signal.NewRegistry(testLogger())
	registry.Register(mockGenerator{name: "mock"})
	builder := staticBuilder{ctx: signal.New(time.Now(), "BTC")}

	cfg := Config{Symbols: []string{"BTC"}, SpotWSURL: "ws://unused", SignalEnabled: true, SignalTickInterval: time.Hour}
	svc := New(cfg, testLogger(), tracker, registry, builder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.aggregator.Run(ctx)

	deadline := time.After(time.Second)
	for {
		if _, ok := svc.Handle().Signal("BTC"); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("aggregator never published a composite for BTC")
		case <-time.After(time.Millisecond):
		}
	}
}

type fakeWriter struct {
	obs      []signal.OrderBookSnapshot
	funding  []float64
	liqCount int
}

func (f *fakeWriter) SaveOrderBookSnapshot(_ context.Context, _ string, snap signal.OrderBookSnapshot) error {
	f.obs = append(f.obs, snap)
	return nil
}

func (f *fakeWriter) SaveFundingRate(_ context.Context, _ string, rate float64, _ time.Time) error {
	f.funding = append(f.funding, rate)
	return nil
}

func (f *fakeWriter) SaveLiquidationEvent(_ context.Context, _ string, _ signal.LiquidationRecord) error {
	f.liqCount++
	return nil
}

type fakeOBCollector struct{}

func (fakeOBCollector) CollectOrderBook(context.Context, string) (signal.OrderBookSnapshot, error) {
	return signal.OrderBookSnapshot{Timestamp: time.Now()}, nil
}

type fakeFundingCollector struct{}

func (fakeFundingCollector) CollectFunding(context.Context, string) (float64, time.Time, error) {
	return 0.001, time.Now(), nil
}

type fakeLiqCollector struct{}

func (fakeLiqCollector) CollectLiquidations(context.Context, string) ([]signal.LiquidationRecord, error) {
	return []signal.LiquidationRecord{{Side: signal.LiquidationLong, USDValue: 1000}}, nil
}

func TestCollectOnceWritesEveryCollectorsSample(t *testing.T) {
	tracker := spottracker.NewDefault()
	w := &fakeWriter{}
	svc := New(Config{Symbols: []string{"BTC"}, SpotWSURL: "ws://unused"}, testLogger(), tracker, nil, nil,
		WithRawDataCollectors(fakeOBCollector{}, fakeFundingCollector{}, fakeLiqCollector{}, w))

	svc.collectOnce(context.Background(), "BTC")

	if len(w.obs) != 1 {
		t.Errorf("expected 1 order book sample, got %d", len(w.obs))
	}
	if len(w.funding) != 1 || w.funding[0] != 0.001 {
		t.Errorf("expected 1 funding sample of 0.001, got %v", w.funding)
	}
	if w.liqCount != 1 {
		t.Errorf("expected 1 liquidation event, got %d", w.liqCount)
	}
}

func TestParseTradeTimeMsFallsBackToNowOnGarbage(t *testing.T) {
	before := time.Now().UnixMilli()
	got := parseTradeTimeMs("not-a-timestamp")
	after := time.Now().UnixMilli()

	if got < before || got > after {
		t.Errorf("parseTradeTimeMs(garbage) = %d, want within [%d, %d]", got, before, after)
	}
}

func TestParseTradeTimeMsAcceptsEpochMillis(t *testing.T) {
	got := parseTradeTimeMs("1700000000000")
	if got != 1700000000000 {
		t.Errorf("parseTradeTimeMs(epoch) = %d, want 1700000000000", got)
	}
}
