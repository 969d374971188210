package detect

import (
	"testing"

	"algotrade/pkg/types"
)

func snap(coin types.Coin, upAsk, downAsk string) types.CoinMarketSnapshot {
	return types.CoinMarketSnapshot{
		Coin:         coin,
		UpTokenID:    string(coin) + "-up",
		DownTokenID:  string(coin) + "-down",
		UpAsk:        dec(upAsk),
		DownAsk:      dec(downAsk),
		UpBidDepth:   dec("1000"),
		DownBidDepth: dec("1000"),
	}
}

func TestCrossMarketOpposingLegsUnderpriced(t *testing.T) {
	cfg := DefaultCrossMarketConfig().OnlyUpDown()
	d := NewCrossMarketDetector(cfg)

	snapshots := []types.CoinMarketSnapshot{
		snap(types.BTC, "0.20", "0.80"),
		snap(types.ETH, "0.90", "0.10"),
	}

	opps := d.Scan(snapshots, 1_000)
	if len(opps) == 0 {
		t.Fatal("expected at least one opportunity")
	}
	for _, o := range opps {
		if o.Combination != types.ComboCoin1UpCoin2Down && o.Combination != types.ComboCoin1DownCoin2Up {
			t.Errorf("OnlyUpDown() leaked combination %v", o.Combination)
		}
		if !o.TotalCost.Equal(dec("0.30")) {
			t.Errorf("TotalCost = %v, want 0.30", o.TotalCost)
		}
		if !o.Spread.Equal(dec("0.70")) {
			t.Errorf("Spread = %v, want 0.70", o.Spread)
		}
	}
}

func TestCrossMarketNoSignalWhenTotalCostTooHigh(t *testing.T) {
	cfg := DefaultCrossMarketConfig()
	d := NewCrossMarketDetector(cfg)

	snapshots := []types.CoinMarketSnapshot{
		snap(types.BTC, "0.50", "0.50"),
		snap(types.ETH, "0.50", "0.50"),
	}

	opps := d.Scan(snapshots, 1_000)
	if len(opps) != 0 {
		t.Errorf("expected no opportunities at 100%% total cost, got %d", len(opps))
	}
}

func TestCrossMarketDisallowedCombinationSkipped(t *testing.T) {
	cfg := DefaultCrossMarketConfig()
	cfg.Combinations = []types.CrossMarketCombination{types.ComboBothUp}
	d := NewCrossMarketDetector(cfg)

	snapshots := []types.CoinMarketSnapshot{
		snap(types.BTC, "0.20", "0.80"),
		snap(types.ETH, "0.15", "0.85"),
	}

	opps := d.Scan(snapshots, 1_000)
	if len(opps) == 0 {
		t.Fatal("expected a BothUp opportunity")
	}
	for _, o := range opps {
		if o.Combination != types.ComboBothUp {
			t.Errorf("got disallowed combination %v", o.Combination)
		}
	}
}

func TestCrossMarketDepthGateBlocksThinLegs(t *testing.T) {
	cfg := DefaultCrossMarketConfig().OnlyUpDown()
	cfg.MinDepth = dec("500")
	d := NewCrossMarketDetector(cfg)

	thin := snap(types.ETH, "0.90", "0.10")
	thin.UpBidDepth = dec("10")
	thin.DownBidDepth = dec("10")

	snapshots := []types.CoinMarketSnapshot{
		snap(types.BTC, "0.20", "0.80"),
		thin,
	}

	opps := d.Scan(snapshots, 1_000)
	if len(opps) != 0 {
		t.Errorf("expected depth gate to block all opportunities, got %d", len(opps))
	}
}

func TestCrossMarketCooldownBlocksRepeatSignal(t *testing.T) {
	cfg := DefaultCrossMarketConfig().OnlyUpDown()
	d := NewCrossMarketDetector(cfg)

	snapshots := []types.CoinMarketSnapshot{
		snap(types.BTC, "0.20", "0.80"),
		snap(types.ETH, "0.90", "0.10"),
	}

	first := d.Scan(snapshots, 1_000)
	if len(first) == 0 {
		t.Fatal("expected an initial opportunity")
	}

	second := d.Scan(snapshots, 1_500)
	if len(second) != 0 {
		t.Errorf("expected cooldown to block the repeat scan, got %d opportunities", len(second))
	}
}

func TestCrossMarketSameDirectionRequiresPositiveCorrelation(t *testing.T) {
	snapshots := []types.CoinMarketSnapshot{
		snap(types.BTC, "0.30", "0.70"),
		snap(types.ETH, "0.35", "0.65"),
	}

	zero := DefaultCrossMarketConfig()
	zero.Combinations = []types.CrossMarketCombination{types.ComboBothUp}
	zero.AssumedCorrelation = 0
	if opps := NewCrossMarketDetector(zero).Scan(snapshots, 1_000); len(opps) != 0 {
		t.Errorf("expected zero correlation to leave no edge on BothUp, got %d", len(opps))
	}

	high := zero
	high.AssumedCorrelation = 1.0
	if opps := NewCrossMarketDetector(high).Scan(snapshots, 1_000); len(opps) == 0 {
		t.Error("expected full correlation to unlock a BothUp edge")
	}
}

func TestCombinationWantsUp(t *testing.T) {
	cases := []struct {
		combo  types.CrossMarketCombination
		coin1  bool
		wantUp bool
	}{
		{types.ComboCoin1UpCoin2Down, true, true},
		{types.ComboCoin1UpCoin2Down, false, false},
		{types.ComboCoin1DownCoin2Up, true, false},
		{types.ComboCoin1DownCoin2Up, false, true},
		{types.ComboBothUp, true, true},
		{types.ComboBothUp, false, true},
		{types.ComboBothDown, true, false},
		{types.ComboBothDown, false, false},
	}
	for _, c := range cases {
		if got := combinationWantsUp(c.combo, c.coin1); got != c.wantUp {
			t.Errorf("combinationWantsUp(%v, %v) = %v, want %v", c.combo, c.coin1, got, c.wantUp)
		}
	}
}
