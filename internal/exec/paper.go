package exec

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/book"
	"algotrade/internal/fillsim"
	"algotrade/pkg/types"
)

// BookProvider supplies the live book mirror for a token, so the paper
// executor can walk real depth when it simulates a fill.
type BookProvider interface {
	Book(tokenID string) (*book.Book, bool)
}

// PaperConfig tunes the paper executor's fill simulation.
type PaperConfig struct {
	StartingBalance decimal.Decimal
	FillRate        float64 // probability in [0,1] that an order fills at all
	FeeRateBps      int64
	Seed            int64
}

// DefaultPaperConfig fills nearly every order (matching the real venue's low
// FOK rejection rate under normal depth) with no fee.
func DefaultPaperConfig() PaperConfig {
	return PaperConfig{
		StartingBalance: decimal.NewFromInt(10000),
		FillRate:        0.97,
		FeeRateBps:      0,
		Seed:            1,
	}
}

// PaperExecutor simulates fills against a live book mirror using a seeded
// PRNG for deterministic rejection and partial-fill behavior. It never
// touches the venue.
type PaperExecutor struct {
	cfg      PaperConfig
	provider BookProvider

	mu        sync.Mutex
	rng       *rand.Rand
	balance   decimal.Decimal
	positions map[string]decimal.Decimal
	orders    map[string]*OrderResult
	nextID    int64
}

// NewPaperExecutor creates a paper executor seeded for deterministic
// behavior across runs given the same config and input sequence.
func NewPaperExecutor(cfg PaperConfig, provider BookProvider) *PaperExecutor {
	return &PaperExecutor{
		cfg:       cfg,
		provider:  provider,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		balance:   cfg.StartingBalance,
		positions: make(map[string]decimal.Decimal),
		orders:    make(map[string]*OrderResult),
	}
}

// PlaceOrder simulates a fill for size at size against tokenID's book side
// implied by side. GTC orders that cannot be fully satisfied rest at their
// filled size with no further fills simulated (no resting-order book is
// modeled); FOK orders that would leave anything unfilled are rejected
// outright; FAK orders return whatever the book could fill.
func (p *PaperExecutor) PlaceOrder(ctx context.Context, tokenID string, side types.Side, size, limitPrice decimal.Decimal, orderType types.OrderType) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() >= p.cfg.FillRate {
		return nil, fmt.Errorf("paper order for %s: %w", tokenID, ErrRejected)
	}

	b, ok := p.provider.Book(tokenID)
	if !ok {
		return nil, fmt.Errorf("paper order for %s: %w", tokenID, ErrOrderNotFound)
	}

	var res fillsim.Result
	if side == types.BUY {
		res = fillsim.WalkAsks(b, size)
	} else {
		res = fillsim.WalkBids(b, size)
	}

	if !res.SufficientDepth && orderType == types.OrderTypeFOK {
		return nil, fmt.Errorf("paper FOK order for %s: insufficient depth: %w", tokenID, ErrRejected)
	}
	if res.FilledSize.IsZero() {
		return nil, fmt.Errorf("paper order for %s: %w", tokenID, ErrRejected)
	}
	if !limitPrice.IsZero() {
		if side == types.BUY && res.VWAP.GreaterThan(limitPrice) {
			return nil, fmt.Errorf("paper order for %s: vwap %s exceeds limit %s: %w", tokenID, res.VWAP, limitPrice, ErrRejected)
		}
		if side == types.SELL && res.VWAP.LessThan(limitPrice) {
			return nil, fmt.Errorf("paper order for %s: vwap %s below limit %s: %w", tokenID, res.VWAP, limitPrice, ErrRejected)
		}
	}

	fees := res.TotalCost.Mul(decimal.NewFromInt(p.cfg.FeeRateBps)).Div(decimal.NewFromInt(10000))

	switch side {
	case types.BUY:
		p.balance = p.balance.Sub(res.TotalCost).Sub(fees)
		p.positions[tokenID] = p.positions[tokenID].Add(res.FilledSize)
	case types.SELL:
		p.balance = p.balance.Add(res.TotalCost).Sub(fees)
		p.positions[tokenID] = p.positions[tokenID].Sub(res.FilledSize)
	}

	p.nextID++
	result := &OrderResult{
		OrderID:     fmt.Sprintf("paper-%d", p.nextID),
		TokenID:     tokenID,
		Side:        side,
		OrderType:   orderType,
		FilledSize:  res.FilledSize,
		AvgPrice:    res.VWAP,
		Fees:        fees,
		SubmittedAt: time.Now(),
	}
	p.orders[result.OrderID] = result

	return result, nil
}

// CancelOrder is a no-op success for any previously placed paper order,
// since paper fills are simulated instantaneously and nothing rests.
func (p *PaperExecutor) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.orders[orderID]; !ok {
		return ErrOrderNotFound
	}
	return nil
}

// GetBalance returns the simulated cash balance.
func (p *PaperExecutor) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

// GetPositions returns simulated token-id -> signed share count positions.
func (p *PaperExecutor) GetPositions(ctx context.Context) (map[string]decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(p.positions))
	for k, v := range p.positions {
		out[k] = v
	}
	return out, nil
}
