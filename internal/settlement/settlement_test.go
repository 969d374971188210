package settlement

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/config"
	"algotrade/internal/spottracker"
	"algotrade/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		WindowMinutes: 15,
		SweepInterval: time.Second,
		SweepDelay:    0,
		FeeRate:       0.02,
	}
}

func TestCalculateWindowStart(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"on boundary", "2026-07-31T12:00:07Z", "2026-07-31T12:00:00Z"},
		{"mid first quarter", "2026-07-31T12:07:59Z", "2026-07-31T12:00:00Z"},
		{"mid second quarter", "2026-07-31T12:22:00Z", "2026-07-31T12:15:00Z"},
		{"mid third quarter", "2026-07-31T12:38:00Z", "2026-07-31T12:30:00Z"},
		{"mid fourth quarter", "2026-07-31T12:52:00Z", "2026-07-31T12:45:00Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := time.Parse(time.RFC3339, tc.in)
			want, _ := time.Parse(time.RFC3339, tc.want)
			got := calculateWindowStart(in, 15)
			if !got.Equal(want) {
				t.Errorf("calculateWindowStart(%s) = %s, want %s", tc.in, got, want)
			}
		})
	}
}

func TestCalculateWindowEnd(t *testing.T) {
	in, _ := time.Parse(time.RFC3339, "2026-07-31T12:07:00Z")
	want, _ := time.Parse(time.RFC3339, "2026-07-31T12:15:00Z")
	got := calculateWindowEnd(in, 15)
	if !got.Equal(want) {
		t.Errorf("calculateWindowEnd = %s, want %s", got, want)
	}
}

func baseTrade(side types.TradeSide) types.Trade {
	return types.Trade{
		ID:     "t1",
		Side:   side,
		Shares: dec("200"),
		Stake:  dec("100"),
	}
}

func TestSettleTradeYesWins(t *testing.T) {
	trade := baseTrade(types.TradeYes)
	result := SettleTrade(trade, dec("100.00"), dec("101.00"), 0.02)

	if !result.Won {
		t.Fatal("expected yes trade to win when price rises")
	}
	if !result.Fees.Equal(dec("2")) {
		t.Errorf("fees = %s, want 2", result.Fees)
	}
	if !result.PnL.Equal(dec("98")) {
		t.Errorf("pnl = %s, want 98", result.PnL)
	}
}

func TestSettleTradeYesLoses(t *testing.T) {
	trade := baseTrade(types.TradeYes)
	result := SettleTrade(trade, dec("100.00"), dec("99.00"), 0.02)

	if result.Won {
		t.Fatal("expected yes trade to lose when price falls")
	}
	if !result.PnL.Equal(dec("-102")) {
		t.Errorf("pnl = %s, want -102", result.PnL)
	}
}

func TestSettleTradeNoWins(t *testing.T) {
	trade := baseTrade(types.TradeNo)
	result := SettleTrade(trade, dec("100.00"), dec("99.00"), 0.02)

	if !result.Won {
		t.Fatal("expected no trade to win when price falls")
	}
	if !result.PnL.Equal(dec("98")) {
		t.Errorf("pnl = %s, want 98", result.PnL)
	}
}

func TestSettleTradeTieGoesToUp(t *testing.T) {
	trade := baseTrade(types.TradeYes)
	result := SettleTrade(trade, dec("100.00"), dec("100.00"), 0.02)

	if !result.Won {
		t.Fatal("expected a tie to favor the yes/up side")
	}

	noTrade := baseTrade(types.TradeNo)
	noResult := SettleTrade(noTrade, dec("100.00"), dec("100.00"), 0.02)
	if noResult.Won {
		t.Fatal("expected a tie to lose for the no/down side")
	}
}

func TestLiveWindowTrackerRecordAndRetrieve(t *testing.T) {
	tracker := NewLiveWindowTracker(15)
	now, _ := time.Parse(time.RFC3339, "2026-07-31T12:03:00Z")
	start := calculateWindowStart(now, 15)

	tracker.RecordStartPrice(now, dec("100"))

	w, ok := tracker.GetWindow(start)
	if !ok {
		t.Fatal("expected window to be tracked after recording start price")
	}
	if w.IsComplete() {
		t.Fatal("window should not be complete before an end price is recorded")
	}

	end := start.Add(15 * time.Minute)
	completed, ok := tracker.RecordEndPrice(start, dec("103"), end)
	if !ok {
		t.Fatal("expected RecordEndPrice to find the tracked window")
	}
	if !completed.IsComplete() {
		t.Fatal("window should be complete after recording an end price")
	}
	if !completed.EndPrice.Equal(dec("103")) {
		t.Errorf("end price = %s, want 103", completed.EndPrice)
	}
}

func TestLiveWindowTrackerStartPriceNotOverwritten(t *testing.T) {
	tracker := NewLiveWindowTracker(15)
	now, _ := time.Parse(time.RFC3339, "2026-07-31T12:03:00Z")

	tracker.RecordStartPrice(now, dec("100"))
	tracker.RecordStartPrice(now.Add(time.Minute), dec("999"))

	start := calculateWindowStart(now, 15)
	w, _ := tracker.GetWindow(start)
	if !w.StartPrice.Equal(dec("100")) {
		t.Errorf("start price = %s, want 100 (first write wins)", w.StartPrice)
	}
}

func TestLiveWindowTrackerClearOldWindows(t *testing.T) {
	tracker := NewLiveWindowTracker(15)
	t1, _ := time.Parse(time.RFC3339, "2026-07-31T12:00:00Z")
	t2, _ := time.Parse(time.RFC3339, "2026-07-31T13:00:00Z")

	tracker.RecordStartPrice(t1, dec("100"))
	tracker.RecordStartPrice(t2, dec("200"))

	tracker.ClearOldWindows(t2)

	if _, ok := tracker.GetWindow(calculateWindowStart(t1, 15)); ok {
		t.Error("expected window starting before cutoff to be cleared")
	}
	if _, ok := tracker.GetWindow(calculateWindowStart(t2, 15)); !ok {
		t.Error("expected window at/after cutoff to remain")
	}
}

type fakePersistence struct {
	pending []types.Trade
	settled []Result
}

func (p *fakePersistence) PendingTrades(ctx context.Context, asOf time.Time) ([]types.Trade, error) {
	return p.pending, nil
}

func (p *fakePersistence) SettleTrade(ctx context.Context, result Result) error {
	p.settled = append(p.settled, result)
	return nil
}

type fakePriceSource struct {
	prices map[string]decimal.Decimal
}

func (f *fakePriceSource) PriceAt(ctx context.Context, coin types.Coin, at time.Time) (decimal.Decimal, bool) {
	p, ok := f.prices[string(coin)+"@"+at.Format(time.RFC3339)]
	return p, ok
}

func TestSweepSettlesResolvableTradesAndSkipsUnresolvable(t *testing.T) {
	start, _ := time.Parse(time.RFC3339, "2026-07-31T12:00:00Z")
	end := start.Add(15 * time.Minute)

	resolvable := types.Trade{
		ID:          "resolvable",
		ConditionID: "BTC",
		Side:        types.TradeYes,
		Shares:      dec("200"),
		Stake:       dec("100"),
		StartPrice:  dec("100"),
		WindowStart: start,
		WindowEnd:   end,
	}
	unresolvable := types.Trade{
		ID:          "unresolvable",
		ConditionID: "ETH",
		Side:        types.TradeYes,
		Shares:      dec("200"),
		Stake:       dec("100"),
		StartPrice:  dec("100"),
		WindowStart: start,
		WindowEnd:   end,
	}

	store := &fakePersistence{pending: []types.Trade{resolvable, unresolvable}}
	prices := &fakePriceSource{prices: map[string]decimal.Decimal{
		"BTC@" + end.Format(time.RFC3339): dec("101"),
	}}

	cfg := testSettlementConfig()
	svc := New(cfg, store, prices, testLogger())

	if err := svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}

	if len(store.settled) != 1 {
		t.Fatalf("settled = %d, want 1", len(store.settled))
	}
	if store.settled[0].TradeID != "resolvable" {
		t.Errorf("settled trade = %s, want resolvable", store.settled[0].TradeID)
	}
	if !store.settled[0].Won {
		t.Error("expected resolvable trade to win")
	}
}

func TestCoinOfRecognizesPlainSymbols(t *testing.T) {
	if got := coinOf(types.Trade{ConditionID: "SOL"}); got != types.SOL {
		t.Errorf("coinOf SOL = %q, want SOL", got)
	}
	if got := coinOf(types.Trade{ConditionID: "not-a-coin"}); got != "" {
		t.Errorf("coinOf unknown = %q, want empty", got)
	}
}

func TestTrackerPriceSourceFallsBackToNextWindowOpen(t *testing.T) {
	refs := spottracker.New(spottracker.DefaultConfig())
	live := NewLiveWindowTracker(15)
	src := NewTrackerPriceSource(refs, live)

	windowStartMs := spottracker.WindowStartForTime(time.Now().UnixMilli())
	refs.UpdatePrice(types.BTC, windowStartMs, 100)
	refs.UpdatePrice(types.BTC, windowStartMs+spottracker.WindowDuration.Milliseconds(), 103)

	windowEnd := time.UnixMilli(windowStartMs + spottracker.WindowDuration.Milliseconds())
	price, ok := src.PriceAt(context.Background(), types.BTC, windowEnd)
	if !ok {
		t.Fatal("expected price to resolve from the next window's open reference")
	}
	if !price.Equal(dec("103")) {
		t.Errorf("price = %s, want 103", price)
	}
}
