package autoexec

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/exec"
	"algotrade/internal/kelly"
	"algotrade/internal/risk"
	"algotrade/pkg/types"
)

// DirectionalConfig tunes the gating thresholds a single-leg directional
// opportunity must clear before the executor sizes and submits an order.
type DirectionalConfig struct {
	KellyFraction decimal.Decimal
	MaxBet        decimal.Decimal
	MinEdge       decimal.Decimal
	MinWinProbability float64
	MaxPositionPerWindow decimal.Decimal
	FixedBetSize  decimal.Decimal
	SessionID     string
	Live          bool
}

// DirectionalStats mirrors Stats for the single-leg flow.
type DirectionalStats struct {
	mu sync.RWMutex

	OpportunitiesReceived int64
	OpportunitiesSkipped  int64
	ExecutionsAttempted   int64
	Filled                int64
	Rejected              int64
	TotalVolume           decimal.Decimal
	PendingSettlement     int64
}

// DirectionalStatsSnapshot is a point-in-time copy safe to read lock-free.
type DirectionalStatsSnapshot struct {
	OpportunitiesReceived int64
	OpportunitiesSkipped  int64
	ExecutionsAttempted   int64
	Filled                int64
	Rejected              int64
	TotalVolume           decimal.Decimal
	PendingSettlement     int64
}

func (s *DirectionalStats) snapshot() DirectionalStatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DirectionalStatsSnapshot{
		OpportunitiesReceived: s.OpportunitiesReceived,
		OpportunitiesSkipped:  s.OpportunitiesSkipped,
		ExecutionsAttempted:   s.ExecutionsAttempted,
		Filled:                s.Filled,
		Rejected:              s.Rejected,
		TotalVolume:           s.TotalVolume,
		PendingSettlement:     s.PendingSettlement,
	}
}

// DirectionalExecutor turns single-leg directional opportunities into FOK
// buys, sharing the kelly sizer, risk manager, and persistence
// layer the cross-market executor uses.
type DirectionalExecutor struct {
	cfg     DirectionalConfig
	backend exec.Executor
	riskMgr *risk.Manager
	store   Persistence
	logger  *slog.Logger
	stats   DirectionalStats
	sizer   kelly.Sizer
}

// NewDirectional creates a single-leg executor. store may be nil to disable
// persistence.
func NewDirectional(cfg DirectionalConfig, backend exec.Executor, riskMgr *risk.Manager, store Persistence, logger *slog.Logger) *DirectionalExecutor {
	return &DirectionalExecutor{
		cfg:     cfg,
		backend: backend,
		riskMgr: riskMgr,
		store:   store,
		logger:  logger.With("component", "autoexec_directional"),
		sizer:   kelly.New(cfg.KellyFraction, cfg.MaxBet, cfg.MinEdge),
	}
}

// Stats returns a live snapshot of the execution counters.
func (e *DirectionalExecutor) Stats() DirectionalStatsSnapshot {
	return e.stats.snapshot()
}

// Run consumes opportunities from in until the channel closes or ctx is
// cancelled.
func (e *DirectionalExecutor) Run(ctx context.Context, in <-chan types.DirectionalOpportunity) {
	for {
		select {
		case <-ctx.Done():
			return
		case opp, ok := <-in:
			if !ok {
				return
			}
			e.process(ctx, opp)
		}
	}
}

func (e *DirectionalExecutor) process(ctx context.Context, opp types.DirectionalOpportunity) {
	e.stats.mu.Lock()
	e.stats.OpportunitiesReceived++
	e.stats.mu.Unlock()

	if opp.WinProbability < e.cfg.MinWinProbability {
		e.skip("win probability below minimum")
		return
	}
	if opp.EstimatedEdge <= 0 {
		e.skip("non-positive estimated edge")
		return
	}

	marketID := string(opp.Coin)

	stake := e.computeStake(ctx, opp)
	if stake.LessThanOrEqual(decimal.Zero) {
		e.skip("sizer recommended no bet")
		return
	}

	if remaining := e.riskMgr.RemainingBudget(marketID); remaining <= 0 {
		e.skip("risk budget exhausted for market")
		return
	} else if stake.GreaterThan(decimal.NewFromFloat(remaining)) {
		stake = decimal.NewFromFloat(remaining)
	}
	if e.riskMgr.IsKillSwitchActive() {
		e.skip("kill switch active")
		return
	}
	if e.cfg.MaxPositionPerWindow.GreaterThan(decimal.Zero) && stake.GreaterThan(e.cfg.MaxPositionPerWindow) {
		stake = e.cfg.MaxPositionPerWindow
	}
	if stake.LessThanOrEqual(decimal.Zero) {
		e.skip("stake reduced to zero by budget caps")
		return
	}

	e.execute(ctx, opp, marketID, stake)
}

func (e *DirectionalExecutor) skip(reason string) {
	e.stats.mu.Lock()
	e.stats.OpportunitiesSkipped++
	e.stats.mu.Unlock()
	e.logger.Debug("opportunity skipped", "reason", reason)
}

func (e *DirectionalExecutor) computeStake(ctx context.Context, opp types.DirectionalOpportunity) decimal.Decimal {
	if e.cfg.FixedBetSize.GreaterThan(decimal.Zero) {
		return e.cfg.FixedBetSize
	}

	bankroll, err := e.backend.GetBalance(ctx)
	if err != nil || bankroll.LessThanOrEqual(decimal.Zero) {
		e.logger.Warn("balance unavailable for sizing, skipping", "error", err)
		return decimal.Zero
	}

	decision := e.sizer.Size(decimal.NewFromFloat(opp.WinProbability), opp.EntryPrice, bankroll)
	if !decision.ShouldBet {
		e.logger.Debug("kelly sizer declined bet", "reason", decision.Reason)
		return decimal.Zero
	}
	return decision.Stake
}

func (e *DirectionalExecutor) execute(ctx context.Context, opp types.DirectionalOpportunity, marketID string, stake decimal.Decimal) {
	e.stats.mu.Lock()
	e.stats.ExecutionsAttempted++
	e.stats.mu.Unlock()

	shares := stake.Div(opp.EntryPrice)

	fill, err := e.backend.PlaceOrder(ctx, opp.EntryTokenID, types.BUY, shares, opp.EntryPrice, types.OrderTypeFOK)
	if err != nil {
		e.stats.mu.Lock()
		e.stats.Rejected++
		e.stats.mu.Unlock()
		e.logger.Info("directional order rejected", "coin", opp.Coin, "direction", opp.Direction, "error", err)
		return
	}

	volume := fill.FilledSize.Mul(fill.AvgPrice)
	e.stats.mu.Lock()
	e.stats.Filled++
	e.stats.TotalVolume = e.stats.TotalVolume.Add(volume)
	e.stats.PendingSettlement++
	e.stats.mu.Unlock()

	e.logger.Info("directional order filled", "coin", opp.Coin, "direction", opp.Direction, "stake", volume)

	e.riskMgr.Report(risk.PositionReport{
		MarketID:    marketID,
		SpotPrice:   opp.SpotPrice,
		ExposureUSD: volume.InexactFloat64(),
		Timestamp:   time.Now(),
	})

	if e.store == nil {
		return
	}

	windowStart, windowEnd := currentWindow(fill.SubmittedAt)
	side := types.TradeYes
	if opp.Direction == types.Down {
		side = types.TradeNo
	}
	trade := types.Trade{
		ID:             fmt.Sprintf("%s-%d", fill.OrderID, fill.SubmittedAt.UnixNano()),
		SessionID:      e.cfg.SessionID,
		Timestamp:      fill.SubmittedAt,
		ConditionID:    string(opp.Coin),
		Side:           side,
		Shares:         fill.FilledSize,
		EntryPrice:     fill.AvgPrice,
		Stake:          volume,
		EstimatedProb:  opp.WinProbability,
		KellyFraction:  e.cfg.KellyFraction.InexactFloat64(),
		SignalStrength: opp.Confidence,
		Fees:           fill.Fees,
		Status:         types.StatusPending,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		Live:           e.cfg.Live,
	}
	if err := e.store.SaveTrade(ctx, trade); err != nil {
		e.logger.Error("persist directional trade failed", "error", err)
	}
}
