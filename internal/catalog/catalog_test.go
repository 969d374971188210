package catalog

import (
	"testing"
	"time"

	"algotrade/pkg/types"
)

func baseGammaMarket(slug string) gammaMarket {
	return gammaMarket{
		ID:              "m1",
		ConditionID:     "BTC",
		Question:        "Bitcoin Up or Down - 3:15PM ET",
		Slug:            slug,
		Active:          true,
		Closed:          false,
		AcceptingOrders: true,
		EnableOrderBook: true,
		EndDate:         time.Now().Add(5 * time.Minute).Format(time.RFC3339),
		ClobTokenIds:    `["yes-token","no-token"]`,
		BestBid:         0.55,
		BestAsk:         0.57,
	}
}

func TestMatchCoinRecognizesKeywords(t *testing.T) {
	cases := []struct {
		slug string
		want types.Coin
	}{
		{"bitcoin-up-or-down-3-15pm-et", types.BTC},
		{"ethereum-up-or-down-3-15pm-et", types.ETH},
		{"solana-up-or-down-3-15pm-et", types.SOL},
		{"xrp-up-or-down-3-15pm-et", types.XRP},
	}
	for _, tc := range cases {
		gm := baseGammaMarket(tc.slug)
		coin, ok := matchCoin(gm)
		if !ok || coin != tc.want {
			t.Errorf("matchCoin(%q) = %q, %v; want %q, true", tc.slug, coin, ok, tc.want)
		}
	}
}

func TestMatchCoinRejectsNonUpDownMarkets(t *testing.T) {
	gm := baseGammaMarket("bitcoin-price-on-december-31")
	if _, ok := matchCoin(gm); ok {
		t.Error("expected a non up-or-down slug to be rejected")
	}
}

func TestMatchCoinRejectsInactiveOrClosed(t *testing.T) {
	gm := baseGammaMarket("bitcoin-up-or-down-3-15pm-et")
	gm.Closed = true
	if _, ok := matchCoin(gm); ok {
		t.Error("expected a closed market to be rejected")
	}
}

func TestResolveMarketParsesWindowAndTokens(t *testing.T) {
	gm := baseGammaMarket("bitcoin-up-or-down-3-15pm-et")
	m, ok := resolveMarket(types.BTC, gm, 15)
	if !ok {
		t.Fatal("expected resolveMarket to succeed")
	}
	if m.YesTokenID != "yes-token" || m.NoTokenID != "no-token" {
		t.Errorf("tokens = %s/%s, want yes-token/no-token", m.YesTokenID, m.NoTokenID)
	}
	if !m.WindowEnd.Sub(m.WindowStart).Equal(15 * time.Minute) {
		t.Errorf("window length = %v, want 15m", m.WindowEnd.Sub(m.WindowStart))
	}
	wantNoAsk := 1 - gm.BestBid
	if diff := m.NoAsk - wantNoAsk; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("NoAsk = %f, want %f", m.NoAsk, wantNoAsk)
	}
}

func TestResolveMarketRejectsMissingTokens(t *testing.T) {
	gm := baseGammaMarket("bitcoin-up-or-down-3-15pm-et")
	gm.ClobTokenIds = ""
	if _, ok := resolveMarket(types.BTC, gm, 15); ok {
		t.Error("expected resolveMarket to reject a market with no token IDs")
	}
}

func TestResolveMarketRejectsUnparsableEndDate(t *testing.T) {
	gm := baseGammaMarket("bitcoin-up-or-down-3-15pm-et")
	gm.EndDate = "not-a-date"
	if _, ok := resolveMarket(types.BTC, gm, 15); ok {
		t.Error("expected resolveMarket to reject an unparsable end date")
	}
}

func TestMarketTimeRemaining(t *testing.T) {
	now := time.Now()
	m := Market{WindowEnd: now.Add(2 * time.Minute)}
	if got := m.TimeRemaining(now); got <= time.Minute || got > 3*time.Minute {
		t.Errorf("TimeRemaining = %v, want ~2m", got)
	}
}
