package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/config"
	"algotrade/pkg/types"
)

// Result is the outcome of settling a single trade.
type Result struct {
	TradeID    string
	Won        bool
	PnL        decimal.Decimal
	Fees       decimal.Decimal
	StartPrice decimal.Decimal
	EndPrice   decimal.Decimal
	SettledAt  time.Time
}

// SettleTrade resolves a single trade against its window's start and end
// spot prices. Ties go to Up: a window that closes exactly where it opened
// is treated as an Up outcome, matching the venue's own tie-break rule.
func SettleTrade(trade types.Trade, startPrice, endPrice decimal.Decimal, feeRate float64) Result {
	upWon := endPrice.GreaterThanOrEqual(startPrice)

	var won bool
	switch trade.Side {
	case types.TradeYes:
		won = upWon
	case types.TradeNo:
		won = !upWon
	}

	fees := trade.Stake.Mul(decimal.NewFromFloat(feeRate))

	var pnl decimal.Decimal
	if won {
		pnl = trade.Shares.Sub(trade.Stake).Sub(fees)
	} else {
		pnl = trade.Stake.Neg().Sub(fees)
	}

	return Result{
		TradeID:    trade.ID,
		Won:        won,
		PnL:        pnl,
		Fees:       fees,
		StartPrice: startPrice,
		EndPrice:   endPrice,
	}
}

// PriceSource supplies the spot price used to settle a window. Sweep asks
// for the window's recorded start price (falling back to the trade's own
// StartPrice when no fresher reading exists) and the price observed at or
// after the window's close.
type PriceSource interface {
	PriceAt(ctx context.Context, coin types.Coin, at time.Time) (decimal.Decimal, bool)
}

// Persistence is the subset of storage operations the settlement sweep
// needs: list trades whose window has closed but aren't settled yet, and
// write back the settled outcome.
type Persistence interface {
	PendingTrades(ctx context.Context, asOf time.Time) ([]types.Trade, error)
	SettleTrade(ctx context.Context, result Result) error
}

// coinOf extracts the coin a trade's window belongs to. Trade.ConditionID
// holds the plain coin symbol ("BTC", "ETH", "SOL", "XRP") rather than a
// venue condition ID, since a trade's settlement only cares which spot feed
// to read, not which market it was booked against.
func coinOf(trade types.Trade) types.Coin {
	switch types.Coin(trade.ConditionID) {
	case types.BTC, types.ETH, types.SOL, types.XRP:
		return types.Coin(trade.ConditionID)
	default:
		return ""
	}
}

// Service runs the periodic window-close sweep: every SweepInterval it
// looks for trades whose window ended at least SweepDelay ago, resolves
// their start/end prices, and persists the settlement outcome.
type Service struct {
	cfg    config.SettlementConfig
	store  Persistence
	prices PriceSource
	logger *slog.Logger
}

// New creates a settlement sweep service.
func New(cfg config.SettlementConfig, store Persistence, prices PriceSource, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		prices: prices,
		logger: logger.With("component", "settlement"),
	}
}

// Run drives the sweep on a fixed interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("settlement sweep failed", "error", err)
			}
		}
	}
}

// Sweep settles every trade whose window closed at least SweepDelay ago.
// Trades whose end price isn't available yet are left pending for the next
// sweep.
func (s *Service) Sweep(ctx context.Context) error {
	asOf := time.Now().Add(-s.cfg.SweepDelay)

	pending, err := s.store.PendingTrades(ctx, asOf)
	if err != nil {
		return err
	}

	for _, trade := range pending {
		coin := coinOf(trade)

		startPrice := trade.StartPrice
		if fresher, ok := s.prices.PriceAt(ctx, coin, trade.WindowStart); ok {
			startPrice = fresher
		}

		endPrice, ok := s.prices.PriceAt(ctx, coin, trade.WindowEnd)
		if !ok {
			s.logger.Debug("end price unavailable, leaving trade pending",
				"trade_id", trade.ID, "window_end", trade.WindowEnd)
			continue
		}

		result := SettleTrade(trade, startPrice, endPrice, s.cfg.FeeRate)
		result.SettledAt = time.Now()

		if err := s.store.SettleTrade(ctx, result); err != nil {
			s.logger.Error("failed to persist settlement", "trade_id", trade.ID, "error", err)
			continue
		}

		s.logger.Info("trade settled",
			"trade_id", trade.ID,
			"won", result.Won,
			"pnl", result.PnL.String(),
			"start_price", startPrice.String(),
			"end_price", endPrice.String())
	}

	return nil
}
