package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"algotrade/internal/signal"
	"algotrade/internal/validation"
	"algotrade/pkg/types"
)

// SaveSignalSnapshot persists one symbol's composite signal reading.
// Component-level signal values are folded into the metadata blob so the
// validation pass can inspect them without a join.
func (s *Store) SaveSignalSnapshot(ctx context.Context, composite signal.Composite) error {
	metadata := make(map[string]types.SignalValue, len(composite.Components))
	for name, v := range composite.Components {
		metadata[name] = v
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signal_snapshots
			(timestamp, signal_name, symbol, exchange, direction, strength, confidence, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		composite.ComputedAt.UTC().Format(time.RFC3339Nano),
		"composite",
		composite.Symbol,
		"binance",
		string(composite.Direction),
		composite.Strength,
		1.0,
		string(metaJSON),
	)
	return err
}

// SignalSnapshots loads every snapshot recorded since `since`, for the
// validation engine's hypothesis-testing pass.
func (s *Store) SignalSnapshots(ctx context.Context, since time.Time) ([]validation.SignalSnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, signal_name, symbol, exchange, direction, strength, confidence, forward_return
		FROM signal_snapshots
		WHERE timestamp >= ?
		ORDER BY timestamp ASC`,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []validation.SignalSnapshotRecord
	for rows.Next() {
		var (
			ts                      string
			name, symbol, exch, dir string
			strength, confidence    float64
			forwardReturn           sql.NullFloat64
		)
		if err := rows.Scan(&ts, &name, &symbol, &exch, &dir, &strength, &confidence, &forwardReturn); err != nil {
			return nil, err
		}
		timestamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}

		rec := validation.SignalSnapshotRecord{
			Timestamp:  timestamp,
			SignalName: name,
			Symbol:     symbol,
			Exchange:   exch,
			Direction:  types.Direction(dir),
			Strength:   strength,
			Confidence: confidence,
		}
		if forwardReturn.Valid {
			v := forwardReturn.Float64
			rec.ForwardReturn = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
