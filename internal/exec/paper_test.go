package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"algotrade/internal/book"
	"algotrade/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeBookProvider struct {
	books map[string]*book.Book
}

func (f fakeBookProvider) Book(tokenID string) (*book.Book, bool) {
	b, ok := f.books[tokenID]
	return b, ok
}

func newTestBook(tokenID string) *book.Book {
	b := book.New(tokenID)
	b.ApplySnapshot(
		[]book.Level{{Price: dec("0.40"), Size: dec("100")}},
		[]book.Level{{Price: dec("0.42"), Size: dec("100")}},
	)
	return b
}

func TestPaperExecutorFillsBuyAtAskVWAP(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{"tok-1": newTestBook("tok-1")}}
	cfg := DefaultPaperConfig()
	cfg.FillRate = 1 // deterministic: never reject on the rate roll
	exec := NewPaperExecutor(cfg, provider)

	res, err := exec.PlaceOrder(context.Background(), "tok-1", types.BUY, dec("50"), decimal.Zero, types.OrderTypeFOK)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !res.FilledSize.Equal(dec("50")) {
		t.Errorf("FilledSize = %v, want 50", res.FilledSize)
	}
	if !res.AvgPrice.Equal(dec("0.42")) {
		t.Errorf("AvgPrice = %v, want 0.42", res.AvgPrice)
	}

	bal, err := exec.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	wantBal := cfg.StartingBalance.Sub(dec("21")) // 50 * 0.42
	if !bal.Equal(wantBal) {
		t.Errorf("balance = %v, want %v", bal, wantBal)
	}

	positions, err := exec.GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if !positions["tok-1"].Equal(dec("50")) {
		t.Errorf("position[tok-1] = %v, want 50", positions["tok-1"])
	}
}

func TestPaperExecutorFOKRejectsOnInsufficientDepth(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{"tok-1": newTestBook("tok-1")}}
	cfg := DefaultPaperConfig()
	cfg.FillRate = 1
	exec := NewPaperExecutor(cfg, provider)

	_, err := exec.PlaceOrder(context.Background(), "tok-1", types.BUY, dec("1000"), decimal.Zero, types.OrderTypeFOK)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestPaperExecutorFAKAcceptsPartialFill(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{"tok-1": newTestBook("tok-1")}}
	cfg := DefaultPaperConfig()
	cfg.FillRate = 1
	exec := NewPaperExecutor(cfg, provider)

	res, err := exec.PlaceOrder(context.Background(), "tok-1", types.BUY, dec("1000"), decimal.Zero, types.OrderTypeFAK)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !res.FilledSize.Equal(dec("100")) {
		t.Errorf("FilledSize = %v, want 100 (side exhausted)", res.FilledSize)
	}
}

func TestPaperExecutorRejectsUnknownToken(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{}}
	cfg := DefaultPaperConfig()
	cfg.FillRate = 1
	exec := NewPaperExecutor(cfg, provider)

	_, err := exec.PlaceOrder(context.Background(), "missing", types.BUY, dec("10"), decimal.Zero, types.OrderTypeFOK)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestPaperExecutorFillRateRejectsDeterministically(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{"tok-1": newTestBook("tok-1")}}
	cfg := DefaultPaperConfig()
	cfg.FillRate = 0 // always rejected by the rate roll
	exec := NewPaperExecutor(cfg, provider)

	_, err := exec.PlaceOrder(context.Background(), "tok-1", types.BUY, dec("10"), decimal.Zero, types.OrderTypeFOK)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestPaperExecutorCancelUnknownOrderFails(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{}}
	exec := NewPaperExecutor(DefaultPaperConfig(), provider)

	err := exec.CancelOrder(context.Background(), "nonexistent")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestPaperExecutorCancelKnownOrderSucceeds(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{"tok-1": newTestBook("tok-1")}}
	cfg := DefaultPaperConfig()
	cfg.FillRate = 1
	exec := NewPaperExecutor(cfg, provider)

	res, err := exec.PlaceOrder(context.Background(), "tok-1", types.BUY, dec("10"), decimal.Zero, types.OrderTypeFOK)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if err := exec.CancelOrder(context.Background(), res.OrderID); err != nil {
		t.Errorf("CancelOrder: %v", err)
	}
}

func TestPaperExecutorSellCreditsBalanceAndReducesPosition(t *testing.T) {
	t.Parallel()
	provider := fakeBookProvider{books: map[string]*book.Book{"tok-1": newTestBook("tok-1")}}
	cfg := DefaultPaperConfig()
	cfg.FillRate = 1
	exec := NewPaperExecutor(cfg, provider)

	res, err := exec.PlaceOrder(context.Background(), "tok-1", types.SELL, dec("20"), decimal.Zero, types.OrderTypeFOK)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !res.AvgPrice.Equal(dec("0.40")) {
		t.Errorf("AvgPrice = %v, want 0.40 (best bid)", res.AvgPrice)
	}

	positions, _ := exec.GetPositions(context.Background())
	if !positions["tok-1"].Equal(dec("-20")) {
		t.Errorf("position[tok-1] = %v, want -20", positions["tok-1"])
	}
}
