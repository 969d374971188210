package bridge

import (
	"context"
	"log/slog"
	"io"
	"testing"
	"time"

	"algotrade/internal/catalog"
	"algotrade/internal/config"
	"algotrade/internal/dataservice"
	"algotrade/internal/spottracker"
	"algotrade/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New("https://gamma.example", config.CatalogConfig{PollInterval: time.Minute, WindowMinutes: 15}, []types.Coin{types.BTC}, testLogger())
	now := time.Now()
	cat.Seed(types.BTC, catalog.Market{
		Coin:        types.BTC,
		ConditionID: "cond-btc",
		YesTokenID:  "btc-up",
		NoTokenID:   "btc-down",
		YesAsk:      0.56,
		NoAsk:       0.46,
		WindowStart: now.Add(-2 * time.Minute),
		WindowEnd:   now.Add(13 * time.Minute),
	})
	return cat
}

func seededHandle(t *testing.T) dataservice.Handle {
	t.Helper()
	tracker := spottracker.NewDefault()
	nowMs := time.Now().UnixMilli()
	tracker.UpdatePrice(types.BTC, nowMs, 50250)
	svc := dataservice.New(dataservice.Config{Symbols: []string{"BTCUSDT"}}, testLogger(), tracker, nil, nil)
	return svc.Handle()
}

func TestDirectionalInputsJoinsCatalogAndSpotTracker(t *testing.T) {
	cat := seededCatalog(t)
	handle := seededHandle(t)
	bridge := New(cat, handle, []types.Coin{types.BTC})

	inputs, err := bridge.DirectionalInputs(context.Background())
	if err != nil {
		t.Fatalf("DirectionalInputs: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("len(inputs) = %d, want 1", len(inputs))
	}
	got := inputs[0]
	if got.Coin != types.BTC {
		t.Errorf("Coin = %s, want BTC", got.Coin)
	}
	if got.YesTokenID != "btc-up" || got.NoTokenID != "btc-down" {
		t.Errorf("tokens = %s/%s, want btc-up/btc-down", got.YesTokenID, got.NoTokenID)
	}
	if got.SpotPrice != 50250 {
		t.Errorf("SpotPrice = %f, want 50250", got.SpotPrice)
	}
	if got.TimeRemainingSecs <= 0 {
		t.Errorf("TimeRemainingSecs = %d, want positive", got.TimeRemainingSecs)
	}
}

func TestDirectionalInputsSkipsCoinsMissingFromTracker(t *testing.T) {
	cat := seededCatalog(t)
	handle := seededHandle(t)
	bridge := New(cat, handle, []types.Coin{types.BTC, types.ETH})

	inputs, err := bridge.DirectionalInputs(context.Background())
	if err != nil {
		t.Fatalf("DirectionalInputs: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("len(inputs) = %d, want 1 (ETH has no catalog or tracker data)", len(inputs))
	}
}

func TestLatencyAndGabagoolInputsShareTheSameResolution(t *testing.T) {
	cat := seededCatalog(t)
	handle := seededHandle(t)
	bridge := New(cat, handle, []types.Coin{types.BTC})

	lat, err := bridge.LatencyInputs(context.Background())
	if err != nil || len(lat) != 1 {
		t.Fatalf("LatencyInputs = %v, %v", lat, err)
	}

	gab, err := bridge.GabagoolInputs(context.Background())
	if err != nil || len(gab) != 1 {
		t.Fatalf("GabagoolInputs = %v, %v", gab, err)
	}
	if gab[0].ElapsedSecs < 100 {
		t.Errorf("ElapsedSecs = %d, want roughly 120 given a window opened 2m ago", gab[0].ElapsedSecs)
	}
}

func TestBookBuildsSyntheticAskLevel(t *testing.T) {
	cat := seededCatalog(t)
	bridge := New(cat, dataservice.Handle{}, []types.Coin{types.BTC})

	b, ok := bridge.Book("btc-up")
	if !ok {
		t.Fatal("expected Book to resolve btc-up")
	}
	ask, ok := b.BestAsk()
	if !ok {
		t.Fatal("expected a best ask level")
	}
	if got := ask.InexactFloat64(); got != 0.56 {
		t.Errorf("BestAsk = %f, want 0.56", got)
	}

	if _, ok := bridge.Book("unknown-token"); ok {
		t.Error("expected an unrecognized token to miss")
	}
}

func TestCoinMarketSnapshotsDoesNotNeedSpotTracker(t *testing.T) {
	cat := seededCatalog(t)
	handle := dataservice.Handle{}
	bridge := New(cat, handle, []types.Coin{types.BTC})

	snaps, err := bridge.CoinMarketSnapshots(context.Background())
	if err != nil {
		t.Fatalf("CoinMarketSnapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("len(snaps) = %d, want 1", len(snaps))
	}
	if snaps[0].UpTokenID != "btc-up" || snaps[0].DownTokenID != "btc-down" {
		t.Errorf("tokens = %s/%s, want btc-up/btc-down", snaps[0].UpTokenID, snaps[0].DownTokenID)
	}
}
