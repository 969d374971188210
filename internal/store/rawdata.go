package store

import (
	"context"
	"encoding/json"
	"time"

	"algotrade/internal/book"
	"algotrade/internal/signal"
)

const rawDataExchange = "binance"

// priceLookupTolerance bounds how far from the requested instant a snapshot
// may sit and still be used as a stand-in price, so a long gap in captured
// data reads as "price unavailable" rather than a stale answer.
const priceLookupTolerance = 2 * time.Minute

// PriceAt satisfies validation.PriceSource: it returns the mid price of the
// order-book snapshot closest to at, within priceLookupTolerance.
func (s *Store) PriceAt(ctx context.Context, symbol string, at time.Time) (float64, bool) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, bids_json, asks_json
		FROM orderbook_snapshots
		WHERE symbol = ? AND exchange = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC`,
		symbol, rawDataExchange,
		at.Add(-priceLookupTolerance).UTC().Format(time.RFC3339Nano),
		at.Add(priceLookupTolerance).UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, false
	}
	defer rows.Close()

	var (
		bestMid  float64
		bestDiff time.Duration
		found    bool
	)
	for rows.Next() {
		var ts, bidsJSON, asksJSON string
		if err := rows.Scan(&ts, &bidsJSON, &asksJSON); err != nil {
			return 0, false
		}
		timestamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			continue
		}
		var bids, asks []book.Level
		if err := json.Unmarshal([]byte(bidsJSON), &bids); err != nil || len(bids) == 0 {
			continue
		}
		if err := json.Unmarshal([]byte(asksJSON), &asks); err != nil || len(asks) == 0 {
			continue
		}
		bid, _ := bids[0].Price.Float64()
		ask, _ := asks[0].Price.Float64()
		mid := (bid + ask) / 2

		diff := timestamp.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if !found || diff < bestDiff {
			bestMid, bestDiff, found = mid, diff, true
		}
	}
	if err := rows.Err(); err != nil {
		return 0, false
	}
	return bestMid, found
}

// SaveOrderBookSnapshot persists a raw order-book sample independent of the
// aggregator's in-memory view, for later imbalance backtesting.
func (s *Store) SaveOrderBookSnapshot(ctx context.Context, symbol string, snap signal.OrderBookSnapshot) error {
	bidsJSON, err := json.Marshal(snap.Bids)
	if err != nil {
		return err
	}
	asksJSON, err := json.Marshal(snap.Asks)
	if err != nil {
		return err
	}

	imbalance := 0.0
	if bidDepth, askDepth := depth(snap.Bids), depth(snap.Asks); bidDepth+askDepth > 0 {
		imbalance = (bidDepth - askDepth) / (bidDepth + askDepth)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO orderbook_snapshots
			(symbol, exchange, timestamp, bids_json, asks_json, imbalance)
		VALUES (?, ?, ?, ?, ?, ?)`,
		symbol, rawDataExchange, snap.Timestamp.UTC().Format(time.RFC3339Nano),
		string(bidsJSON), string(asksJSON), imbalance,
	)
	return err
}

func depth(levels []book.Level) float64 {
	var total float64
	for _, l := range levels {
		f, _ := l.Size.Float64()
		total += f
	}
	return total
}

// SnapshotsByTimeRange serves historical order-book snapshots to the
// signal context builder's imbalance generator.
func (s *Store) SnapshotsByTimeRange(ctx context.Context, symbol, exchange string, start, end time.Time) ([]signal.OrderBookRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, bids_json, asks_json, imbalance
		FROM orderbook_snapshots
		WHERE symbol = ? AND exchange = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC`,
		symbol, exchange, start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []signal.OrderBookRecord
	for rows.Next() {
		var ts, bidsJSON, asksJSON string
		var imbalance float64
		if err := rows.Scan(&ts, &bidsJSON, &asksJSON, &imbalance); err != nil {
			return nil, err
		}
		timestamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}

		var bids, asks []book.Level
		if err := json.Unmarshal([]byte(bidsJSON), &bids); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(asksJSON), &asks); err != nil {
			return nil, err
		}

		out = append(out, signal.OrderBookRecord{
			Bids:      bids,
			Asks:      asks,
			Imbalance: imbalance,
			Timestamp: timestamp,
		})
	}
	return out, rows.Err()
}

// SaveFundingRate persists a raw funding-rate sample.
func (s *Store) SaveFundingRate(ctx context.Context, symbol string, rate float64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO funding_rates (symbol, exchange, timestamp, rate)
		VALUES (?, ?, ?, ?)`,
		symbol, rawDataExchange, at.UTC().Format(time.RFC3339Nano), rate,
	)
	return err
}

// RatesByTimeRange serves historical funding rates to the signal context
// builder's funding-deviation generator.
func (s *Store) RatesByTimeRange(ctx context.Context, symbol, exchange string, start, end time.Time) ([]signal.FundingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, rate, z_score, percentile
		FROM funding_rates
		WHERE symbol = ? AND exchange = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC`,
		symbol, exchange, start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []signal.FundingRecord
	for rows.Next() {
		var ts string
		var rec signal.FundingRecord
		if err := rows.Scan(&ts, &rec.Rate, &rec.ZScore, &rec.Percentile); err != nil {
			return nil, err
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveLiquidationEvent persists a raw liquidation print.
func (s *Store) SaveLiquidationEvent(ctx context.Context, symbol string, rec signal.LiquidationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO liquidation_events (symbol, exchange, timestamp, side, usd_value)
		VALUES (?, ?, ?, ?, ?)`,
		symbol, rawDataExchange, rec.Timestamp.UTC().Format(time.RFC3339Nano), string(rec.Side), rec.USDValue,
	)
	return err
}

// EventsByTimeRange serves historical liquidation events to the signal
// context builder's liquidation-flow generator.
func (s *Store) EventsByTimeRange(ctx context.Context, symbol, exchange string, start, end time.Time) ([]signal.LiquidationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, side, usd_value
		FROM liquidation_events
		WHERE symbol = ? AND exchange = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC`,
		symbol, exchange, start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []signal.LiquidationRecord
	for rows.Next() {
		var ts, side string
		var rec signal.LiquidationRecord
		if err := rows.Scan(&ts, &side, &rec.USDValue); err != nil {
			return nil, err
		}
		rec.Side = signal.LiquidationSide(side)
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
