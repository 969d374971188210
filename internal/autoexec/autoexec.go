// Package autoexec is the central orchestrator that turns cross-market
// arbitrage opportunities into FOK order pairs: it gates each opportunity on
// spread/EV/win-probability thresholds, sizes the stake with fractional
// Kelly (or a fixed override), checks the risk manager's remaining budget,
// submits both legs, and persists the result.
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
	"algotrade/internal/spottracker"
	"algotrade/pkg/types"
)

// Persistence is the subset of storage operations the auto-executor needs.
// Implemented by internal/store against the relational schema; tests use an
// in-memory fake.
type Persistence interface {
	SaveTrade(ctx context.Context, trade types.Trade) error
	SaveCrossMarketRecord(ctx context.Context, rec types.CrossMarketRecord) error
}

// Config tunes the gating thresholds and filters the auto-executor applies
// to every opportunity it receives, mirroring the original command's
// --pair/--combination/--bet-size/--kelly-fraction flags.
type Config struct {
	FilterPair           *[2]types.Coin                // nil = all pairs
	FilterCombination    *types.CrossMarketCombination  // nil = all combinations
	KellyFraction        decimal.Decimal
	MaxBet               decimal.Decimal
	MinEdge              decimal.Decimal
	MinSpread            decimal.Decimal
	MinWinProbability    float64
	MaxPositionPerWindow decimal.Decimal
	FixedBetSize         decimal.Decimal // non-zero overrides Kelly sizing
	SessionID            string
	Live                 bool // marks persisted trades as live vs. paper
}

// Stats is the live counters exposed to the operational dashboard, matching
// the original executor's opportunities_received/skipped/attempted and
// fill-outcome breakdown.
type Stats struct {
	mu sync.RWMutex

	OpportunitiesReceived int64
	OpportunitiesSkipped  int64
	ExecutionsAttempted   int64
	BothFilled            int64
	PartialFills          int64
	BothRejected          int64
	TotalVolume           decimal.Decimal
	PendingSettlement     int64
}

// StatsSnapshot is a point-in-time copy of Stats safe to read without a lock.
type StatsSnapshot struct {
	OpportunitiesReceived int64
	OpportunitiesSkipped  int64
	ExecutionsAttempted   int64
	BothFilled            int64
	PartialFills          int64
	BothRejected          int64
	TotalVolume           decimal.Decimal
	PendingSettlement     int64
}

func (s *Stats) snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		OpportunitiesReceived: s.OpportunitiesReceived,
		OpportunitiesSkipped:  s.OpportunitiesSkipped,
		ExecutionsAttempted:   s.ExecutionsAttempted,
		BothFilled:            s.BothFilled,
		PartialFills:          s.PartialFills,
		BothRejected:          s.BothRejected,
		TotalVolume:           s.TotalVolume,
		PendingSettlement:     s.PendingSettlement,
	}
}

// Executor is the central orchestrator. One Executor consumes one
// cross-market opportunity channel; the directional flow is handled by
// DirectionalExecutor.
type Executor struct {
	cfg     Config
	backend exec.Executor
	riskMgr *risk.Manager
	store   Persistence // nil disables persistence
	logger  *slog.Logger
	stats   Stats
	sizer   kelly.Sizer
}

// New creates an auto-executor. store may be nil to disable persistence.
func New(cfg Config, backend exec.Executor, riskMgr *risk.Manager, store Persistence, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:     cfg,
		backend: backend,
		riskMgr: riskMgr,
		store:   store,
		logger:  logger.With("component", "autoexec"),
		sizer:   kelly.New(cfg.KellyFraction, cfg.MaxBet, cfg.MinEdge),
	}
}

// Stats returns a live snapshot of the execution counters.
func (e *Executor) Stats() StatsSnapshot {
	return e.stats.snapshot()
}

// Run consumes opportunities from in until the channel closes or ctx is
// cancelled, processing one at a time (FIFO, matching the spec's
// single-consumer ordering guarantee).
func (e *Executor) Run(ctx context.Context, in <-chan types.CrossMarketOpportunity) {
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

func (e *Executor) process(ctx context.Context, opp types.CrossMarketOpportunity) {
	e.stats.mu.Lock()
	e.stats.OpportunitiesReceived++
	e.stats.mu.Unlock()

	if !e.passesFilters(opp) {
		e.skip("filtered out by pair/combination filter")
		return
	}
	if opp.Spread.LessThan(e.cfg.MinSpread) {
		e.skip("spread below minimum")
		return
	}
	if opp.ExpectedValue.LessThanOrEqual(decimal.Zero) {
		e.skip("non-positive expected value")
		return
	}
	if opp.WinProbability < e.cfg.MinWinProbability {
		e.skip("win probability below minimum")
		return
	}

	marketID := marketKey(opp)

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

func (e *Executor) skip(reason string) {
	e.stats.mu.Lock()
	e.stats.OpportunitiesSkipped++
	e.stats.mu.Unlock()
	e.logger.Debug("opportunity skipped", "reason", reason)
}

func (e *Executor) passesFilters(opp types.CrossMarketOpportunity) bool {
	if e.cfg.FilterPair != nil {
		want := *e.cfg.FilterPair
		matches := (opp.Coin1 == want[0] && opp.Coin2 == want[1]) ||
			(opp.Coin1 == want[1] && opp.Coin2 == want[0])
		if !matches {
			return false
		}
	}
	if e.cfg.FilterCombination != nil && opp.Combination != *e.cfg.FilterCombination {
		return false
	}
	return true
}

// computeStake returns the fixed override if configured, otherwise a
// fractional-Kelly stake sized against the executor's current balance.
func (e *Executor) computeStake(ctx context.Context, opp types.CrossMarketOpportunity) decimal.Decimal {
	if e.cfg.FixedBetSize.GreaterThan(decimal.Zero) {
		return e.cfg.FixedBetSize
	}

	bankroll, err := e.backend.GetBalance(ctx)
	if err != nil || bankroll.LessThanOrEqual(decimal.Zero) {
		e.logger.Warn("balance unavailable for sizing, skipping", "error", err)
		return decimal.Zero
	}

	decision := e.sizer.Size(decimal.NewFromFloat(opp.WinProbability), opp.TotalCost, bankroll)
	if !decision.ShouldBet {
		e.logger.Debug("kelly sizer declined bet", "reason", decision.Reason)
		return decimal.Zero
	}
	return decision.Stake
}

// execute submits leg 1, then leg 2 on a leg-1 fill, recording the outcome.
func (e *Executor) execute(ctx context.Context, opp types.CrossMarketOpportunity, marketID string, stake decimal.Decimal) {
	e.stats.mu.Lock()
	e.stats.ExecutionsAttempted++
	e.stats.mu.Unlock()

	numPairs := stake.Div(opp.TotalCost)

	leg1, err := e.backend.PlaceOrder(ctx, opp.Leg1TokenID, types.BUY, numPairs, opp.Leg1Price, types.OrderTypeFOK)
	if err != nil {
		e.recordBothRejected(opp, "leg1 rejected", err)
		return
	}

	leg2, err := e.backend.PlaceOrder(ctx, opp.Leg2TokenID, types.BUY, leg1.FilledSize, opp.Leg2Price, types.OrderTypeFOK)
	if err != nil {
		e.recordPartialFill(ctx, opp, leg1, err)
		return
	}

	e.recordBothFilled(ctx, opp, leg1, leg2)
}

func (e *Executor) recordBothRejected(opp types.CrossMarketOpportunity, reason string, err error) {
	e.stats.mu.Lock()
	e.stats.BothRejected++
	e.stats.mu.Unlock()
	e.logger.Info("both legs rejected",
		"coin1", opp.Coin1, "coin2", opp.Coin2, "combination", opp.Combination,
		"reason", reason, "error", err)
}

func (e *Executor) recordPartialFill(ctx context.Context, opp types.CrossMarketOpportunity, leg1 *exec.OrderResult, leg2Err error) {
	e.stats.mu.Lock()
	e.stats.PartialFills++
	e.stats.TotalVolume = e.stats.TotalVolume.Add(leg1.FilledSize.Mul(leg1.AvgPrice))
	e.stats.mu.Unlock()

	e.logger.Warn("partial fill: leg2 rejected, no auto-unwind",
		"coin1", opp.Coin1, "coin2", opp.Coin2, "combination", opp.Combination,
		"leg1_filled", leg1.FilledSize, "leg1_avg_price", leg1.AvgPrice, "error", leg2Err)

	e.reportExposure(opp, leg1.FilledSize.Mul(leg1.AvgPrice).InexactFloat64())

	if e.store != nil {
		trade := leg1Trade(opp, leg1, e.cfg.SessionID, e.cfg.Live)
		if err := e.store.SaveTrade(ctx, trade); err != nil {
			e.logger.Error("persist partial-fill trade failed", "error", err)
		}
	}
}

func (e *Executor) recordBothFilled(ctx context.Context, opp types.CrossMarketOpportunity, leg1, leg2 *exec.OrderResult) {
	volume := leg1.FilledSize.Mul(leg1.AvgPrice).Add(leg2.FilledSize.Mul(leg2.AvgPrice))

	e.stats.mu.Lock()
	e.stats.BothFilled++
	e.stats.TotalVolume = e.stats.TotalVolume.Add(volume)
	e.stats.PendingSettlement++
	e.stats.mu.Unlock()

	e.logger.Info("both legs filled",
		"coin1", opp.Coin1, "coin2", opp.Coin2, "combination", opp.Combination,
		"total_cost", volume)

	e.reportExposure(opp, volume.InexactFloat64())

	if e.store == nil {
		return
	}

	now := time.Now()
	if err := e.store.SaveTrade(ctx, leg1Trade(opp, leg1, e.cfg.SessionID, e.cfg.Live)); err != nil {
		e.logger.Error("persist leg1 trade failed", "error", err)
	}
	if err := e.store.SaveTrade(ctx, leg2Trade(opp, leg2, e.cfg.SessionID, e.cfg.Live)); err != nil {
		e.logger.Error("persist leg2 trade failed", "error", err)
	}
	rec := types.CrossMarketRecord{
		ID:          fmt.Sprintf("%s-%d", marketKey(opp), now.UnixNano()),
		SessionID:   e.cfg.SessionID,
		Timestamp:   now,
		Coin1:       opp.Coin1,
		Coin2:       opp.Coin2,
		Combination: opp.Combination,
		TotalCost:   volume,
		Status:      "open",
	}
	if err := e.store.SaveCrossMarketRecord(ctx, rec); err != nil {
		e.logger.Error("persist cross-market record failed", "error", err)
	}
}

func (e *Executor) reportExposure(opp types.CrossMarketOpportunity, exposureUSD float64) {
	e.riskMgr.Report(risk.PositionReport{
		MarketID:    marketKey(opp),
		SpotPrice:   opp.TotalCost.InexactFloat64(),
		ExposureUSD: exposureUSD,
		Timestamp:   time.Now(),
	})
}

func marketKey(opp types.CrossMarketOpportunity) string {
	return string(opp.Coin1) + "-" + string(opp.Coin2) + "-" + string(opp.Combination)
}

// currentWindow returns the 15-minute window a fill belongs to, so the
// settlement sweep can find it once that window closes.
func currentWindow(at time.Time) (start, end time.Time) {
	startMs := spottracker.WindowStartForTime(at.UnixMilli())
	start = time.UnixMilli(startMs)
	end = start.Add(spottracker.WindowDuration)
	return start, end
}

func leg1Trade(opp types.CrossMarketOpportunity, fill *exec.OrderResult, sessionID string, live bool) types.Trade {
	windowStart, windowEnd := currentWindow(fill.SubmittedAt)
	return types.Trade{
		ID:          fmt.Sprintf("%s-leg1-%d", fill.OrderID, fill.SubmittedAt.UnixNano()),
		SessionID:   sessionID,
		Timestamp:   fill.SubmittedAt,
		ConditionID: string(opp.Coin1),
		Side:        types.TradeYes,
		Shares:      fill.FilledSize,
		EntryPrice:  fill.AvgPrice,
		Stake:       fill.FilledSize.Mul(fill.AvgPrice),
		Fees:        fill.Fees,
		Status:      types.StatusPending,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Live:        live,
	}
}

func leg2Trade(opp types.CrossMarketOpportunity, fill *exec.OrderResult, sessionID string, live bool) types.Trade {
	windowStart, windowEnd := currentWindow(fill.SubmittedAt)
	return types.Trade{
		ID:          fmt.Sprintf("%s-leg2-%d", fill.OrderID, fill.SubmittedAt.UnixNano()),
		SessionID:   sessionID,
		Timestamp:   fill.SubmittedAt,
		ConditionID: string(opp.Coin2),
		Side:        types.TradeNo,
		Shares:      fill.FilledSize,
		EntryPrice:  fill.AvgPrice,
		Stake:       fill.FilledSize.Mul(fill.AvgPrice),
		Fees:        fill.Fees,
		Status:      types.StatusPending,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Live:        live,
	}
}
