package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplySnapshot(t *testing.T) {
	t.Parallel()
	b := New("tok-1")

	b.ApplySnapshot(
		[]Level{{Price: dec("0.55"), Size: dec("100")}, {Price: dec("0.54"), Size: dec("200")}},
		[]Level{{Price: dec("0.57"), Size: dec("150")}},
	)

	bid, ok := b.BestBid()
	if !ok || !bid.Equal(dec("0.55")) {
		t.Errorf("BestBid = %v, %v, want 0.55, true", bid, ok)
	}
	ask, ok := b.BestAsk()
	if !ok || !ask.Equal(dec("0.57")) {
		t.Errorf("BestAsk = %v, %v, want 0.57, true", ask, ok)
	}
	if n := b.BidLevelCount(); n != 2 {
		t.Errorf("BidLevelCount = %d, want 2", n)
	}
}

func TestApplySnapshotDropsZeroSizeLevels(t *testing.T) {
	t.Parallel()
	b := New("tok-1")

	b.ApplySnapshot(
		[]Level{{Price: dec("0.55"), Size: dec("0")}, {Price: dec("0.54"), Size: dec("200")}},
		nil,
	)

	if n := b.BidLevelCount(); n != 1 {
		t.Errorf("BidLevelCount = %d, want 1 (zero-size level should be dropped)", n)
	}
}

func TestApplyDeltaAddUpdateRemove(t *testing.T) {
	t.Parallel()
	b := New("tok-1")

	b.ApplyDelta(Bid, dec("0.50"), dec("100"))
	bid, ok := b.BestBid()
	if !ok || !bid.Equal(dec("0.50")) {
		t.Fatalf("BestBid after add = %v, %v", bid, ok)
	}

	b.ApplyDelta(Bid, dec("0.52"), dec("50"))
	bid, _ = b.BestBid()
	if !bid.Equal(dec("0.52")) {
		t.Errorf("BestBid after higher add = %v, want 0.52", bid)
	}

	b.ApplyDelta(Bid, dec("0.52"), dec("0"))
	bid, _ = b.BestBid()
	if !bid.Equal(dec("0.50")) {
		t.Errorf("BestBid after removing top level = %v, want 0.50", bid)
	}
}

func TestNoCrossedBookAfterDeltas(t *testing.T) {
	t.Parallel()
	b := New("tok-1")
	b.ApplyDelta(Bid, dec("0.40"), dec("10"))
	b.ApplyDelta(Ask, dec("0.60"), dec("10"))

	bid, _ := b.BestBid()
	ask, _ := b.BestAsk()
	if bid.GreaterThanOrEqual(ask) {
		t.Errorf("book crossed: bid %v >= ask %v", bid, ask)
	}
}

func TestMidPriceAndSpread(t *testing.T) {
	t.Parallel()
	b := New("tok-1")

	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice should return false for empty book")
	}

	b.ApplySnapshot(
		[]Level{{Price: dec("0.50"), Size: dec("100")}},
		[]Level{{Price: dec("0.60"), Size: dec("100")}},
	)

	mid, ok := b.MidPrice()
	if !ok || !mid.Equal(dec("0.55")) {
		t.Errorf("MidPrice = %v, %v, want 0.55, true", mid, ok)
	}
	spread, ok := b.Spread()
	if !ok || !spread.Equal(dec("0.10")) {
		t.Errorf("Spread = %v, %v, want 0.10, true", spread, ok)
	}
}

func TestTotalDepth(t *testing.T) {
	t.Parallel()
	b := New("tok-1")
	b.ApplySnapshot(
		[]Level{{Price: dec("0.50"), Size: dec("100")}, {Price: dec("0.49"), Size: dec("50")}},
		nil,
	)
	if got := b.TotalBidDepth(); !got.Equal(dec("150")) {
		t.Errorf("TotalBidDepth = %v, want 150", got)
	}
	if got := b.TotalAskDepth(); !got.IsZero() {
		t.Errorf("TotalAskDepth = %v, want 0", got)
	}
}

func TestHasLiquidity(t *testing.T) {
	t.Parallel()
	b := New("tok-1")
	if b.HasLiquidity() {
		t.Error("empty book should report no liquidity")
	}
	b.ApplyDelta(Bid, dec("0.5"), dec("10"))
	if b.HasLiquidity() {
		t.Error("one-sided book should report no liquidity")
	}
	b.ApplyDelta(Ask, dec("0.6"), dec("10"))
	if !b.HasLiquidity() {
		t.Error("two-sided book should report liquidity")
	}
}

func TestIsStale(t *testing.T) {
	t.Parallel()
	b := New("tok-1")

	if !b.IsStale(time.Second) {
		t.Error("new book should be stale")
	}

	b.ApplyDelta(Bid, dec("0.5"), dec("10"))
	if b.IsStale(time.Second) {
		t.Error("just-updated book should not be stale")
	}

	time.Sleep(50 * time.Millisecond)
	if !b.IsStale(10 * time.Millisecond) {
		t.Error("book should be stale after maxAge")
	}
}
