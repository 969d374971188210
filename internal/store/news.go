package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"algotrade/pkg/types"
)

// SaveNewsEvent persists a sentiment-feed headline.
func (s *Store) SaveNewsEvent(ctx context.Context, event types.NewsEvent) error {
	currenciesJSON, err := json.Marshal(event.Currencies)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO news_events (source, title, sentiment, urgency, currencies, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.Source, event.Title, event.Sentiment, event.Urgency,
		string(currenciesJSON), event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// EventsByCurrency serves historical news events touching a currency to the
// signal context builder's sentiment generator. SQLite's stock build has no
// JSON1 predicate to push the currency filter into the WHERE clause, so the
// currencies array is filtered in Go after a time-range scan.
func (s *Store) EventsByCurrency(ctx context.Context, currency string, start, end time.Time) ([]types.NewsEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, title, sentiment, urgency, currencies, timestamp
		FROM news_events
		WHERE timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC`,
		start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.NewsEvent
	for rows.Next() {
		var event types.NewsEvent
		var ts, currenciesJSON string
		if err := rows.Scan(&event.Source, &event.Title, &event.Sentiment, &event.Urgency, &currenciesJSON, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(currenciesJSON), &event.Currencies); err != nil {
			return nil, err
		}
		event.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		if containsCurrency(event.Currencies, currency) {
			out = append(out, event)
		}
	}
	return out, rows.Err()
}

func containsCurrency(currencies []string, target string) bool {
	for _, c := range currencies {
		if strings.EqualFold(c, target) {
			return true
		}
	}
	return false
}
