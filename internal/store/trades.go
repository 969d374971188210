package store

import (
	"context"
	"database/sql"
	"time"

	"algotrade/internal/settlement"
	"algotrade/pkg/types"
)

func tradeTable(live bool) string {
	if live {
		return "live_trades"
	}
	return "paper_trades"
}

// SaveTrade inserts a new trade record, routed to the paper or live table by
// trade.Live.
func (s *Store) SaveTrade(ctx context.Context, trade types.Trade) error {
	var settledAt sql.NullString
	if !trade.SettledAt.IsZero() {
		settledAt = sql.NullString{String: trade.SettledAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	query := `
		INSERT INTO ` + tradeTable(trade.Live) + ` (
			id, session_id, timestamp, condition_id, question, side, shares,
			entry_price, stake, estimated_prob, expected_value, kelly_fraction,
			signal_strength, signal_snapshot, status, outcome, pnl, fees,
			window_start, window_end, start_price, end_price, settled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		trade.ID, trade.SessionID, trade.Timestamp.UTC().Format(time.RFC3339Nano),
		trade.ConditionID, trade.Question, string(trade.Side), trade.Shares.String(),
		trade.EntryPrice.String(), trade.Stake.String(), trade.EstimatedProb,
		trade.ExpectedValue.String(), trade.KellyFraction, trade.SignalStrength,
		trade.SignalSnapshot, string(trade.Status), string(trade.Outcome),
		trade.PnL.String(), trade.Fees.String(),
		trade.WindowStart.UTC().Format(time.RFC3339Nano), trade.WindowEnd.UTC().Format(time.RFC3339Nano),
		trade.StartPrice.String(), trade.EndPrice.String(), settledAt,
	)
	return err
}

// SaveCrossMarketRecord inserts a filled cross-market opportunity record.
func (s *Store) SaveCrossMarketRecord(ctx context.Context, rec types.CrossMarketRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cross_market_opportunities
			(id, session_id, timestamp, coin1, coin2, combination, total_cost, status, trade_result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Timestamp.UTC().Format(time.RFC3339Nano),
		string(rec.Coin1), string(rec.Coin2), string(rec.Combination),
		rec.TotalCost.String(), rec.Status, rec.TradeResult,
	)
	return err
}

// PendingTrades loads every paper and live trade still awaiting settlement
// whose window has closed by asOf.
func (s *Store) PendingTrades(ctx context.Context, asOf time.Time) ([]types.Trade, error) {
	var out []types.Trade
	for _, live := range []bool{false, true} {
		trades, err := s.pendingTradesFrom(ctx, tradeTable(live), live, asOf)
		if err != nil {
			return nil, err
		}
		out = append(out, trades...)
	}
	return out, nil
}

func (s *Store) pendingTradesFrom(ctx context.Context, table string, live bool, asOf time.Time) ([]types.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, condition_id, question, side, shares,
			entry_price, stake, estimated_prob, expected_value, kelly_fraction,
			signal_strength, signal_snapshot, status, outcome, pnl, fees,
			window_start, window_end, start_price, end_price, settled_at
		FROM `+table+`
		WHERE status = ? AND window_end <= ?`,
		string(types.StatusPending), asOf.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		trade, err := scanTrade(rows, live)
		if err != nil {
			return nil, err
		}
		out = append(out, trade)
	}
	return out, rows.Err()
}

func scanTrade(rows *sql.Rows, live bool) (types.Trade, error) {
	var (
		trade                                    types.Trade
		ts, windowStart, windowEnd               string
		shares, entryPrice, stake, expectedValue string
		pnl, fees, startPrice, endPrice          string
		status, outcome, side                    string
		settledAt                                sql.NullString
	)
	if err := rows.Scan(
		&trade.ID, &trade.SessionID, &ts, &trade.ConditionID, &trade.Question, &side, &shares,
		&entryPrice, &stake, &trade.EstimatedProb, &expectedValue, &trade.KellyFraction,
		&trade.SignalStrength, &trade.SignalSnapshot, &status, &outcome, &pnl, &fees,
		&windowStart, &windowEnd, &startPrice, &endPrice, &settledAt,
	); err != nil {
		return types.Trade{}, err
	}

	trade.Live = live
	trade.Side = types.TradeSide(side)
	trade.Status = types.TradeStatus(status)
	trade.Outcome = types.TradeOutcome(outcome)

	var err error
	if trade.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return types.Trade{}, err
	}
	if trade.WindowStart, err = time.Parse(time.RFC3339Nano, windowStart); err != nil {
		return types.Trade{}, err
	}
	if trade.WindowEnd, err = time.Parse(time.RFC3339Nano, windowEnd); err != nil {
		return types.Trade{}, err
	}
	if trade.Shares, err = parseDecimal(shares); err != nil {
		return types.Trade{}, err
	}
	if trade.EntryPrice, err = parseDecimal(entryPrice); err != nil {
		return types.Trade{}, err
	}
	if trade.Stake, err = parseDecimal(stake); err != nil {
		return types.Trade{}, err
	}
	if trade.ExpectedValue, err = parseDecimal(expectedValue); err != nil {
		return types.Trade{}, err
	}
	if trade.PnL, err = parseDecimal(pnl); err != nil {
		return types.Trade{}, err
	}
	if trade.Fees, err = parseDecimal(fees); err != nil {
		return types.Trade{}, err
	}
	if trade.StartPrice, err = parseDecimal(startPrice); err != nil {
		return types.Trade{}, err
	}
	if trade.EndPrice, err = parseDecimal(endPrice); err != nil {
		return types.Trade{}, err
	}
	if settledAt.Valid {
		if trade.SettledAt, err = time.Parse(time.RFC3339Nano, settledAt.String); err != nil {
			return types.Trade{}, err
		}
	}
	return trade, nil
}

// SettleTrade writes a settlement outcome back onto its trade row. It tries
// both the paper and live tables since it only has a trade ID to go on.
func (s *Store) SettleTrade(ctx context.Context, result settlement.Result) error {
	for _, table := range []string{"paper_trades", "live_trades"} {
		outcome := types.OutcomeLoss
		if result.Won {
			outcome = types.OutcomeWin
		}
		res, err := s.db.ExecContext(ctx, `
			UPDATE `+table+` SET
				status = ?, outcome = ?, pnl = ?, fees = ?,
				start_price = ?, end_price = ?, settled_at = ?
			WHERE id = ?`,
			string(types.StatusSettled), string(outcome),
			result.PnL.String(), result.Fees.String(),
			result.StartPrice.String(), result.EndPrice.String(),
			result.SettledAt.UTC().Format(time.RFC3339Nano),
			result.TradeID,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
	}
	return nil
}
