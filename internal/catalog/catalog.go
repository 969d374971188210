// Package catalog discovers the live 15-minute Up/Down binary markets for
// each tracked coin by polling the Gamma API, the same endpoint the
// teacher's spread-ranking scanner used, grouped here by coin and window
// instead of ranked by spread/volume.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"algotrade/internal/config"
	"algotrade/pkg/types"
)

// gammaMarket is the JSON shape returned by the Gamma API for one market.
type gammaMarket struct {
	ID              string  `json:"id"`
	Question        string  `json:"question"`
	ConditionID     string  `json:"conditionId"`
	Slug            string  `json:"slug"`
	Active          bool    `json:"active"`
	Closed          bool    `json:"closed"`
	AcceptingOrders bool    `json:"acceptingOrders"`
	EnableOrderBook bool    `json:"enableOrderBook"`
	EndDate         string  `json:"endDate"`
	ClobTokenIds    string  `json:"clobTokenIds"`
	BestBid         float64 `json:"bestBid"`
	BestAsk         float64 `json:"bestAsk"`
}

// Market is a resolved Up/Down market for one coin's current 15-minute
// window.
type Market struct {
	Coin        types.Coin
	ConditionID string
	Question    string
	YesTokenID  string
	NoTokenID   string
	YesAsk      float64
	NoAsk       float64
	WindowStart time.Time
	WindowEnd   time.Time
}

// TimeRemaining returns how long is left before the window closes, as of
// now.
func (m Market) TimeRemaining(now time.Time) time.Duration {
	return m.WindowEnd.Sub(now)
}

var coinKeywords = map[types.Coin][]string{
	types.BTC: {"bitcoin", "btc"},
	types.ETH: {"ethereum", "eth"},
	types.SOL: {"solana", "sol"},
	types.XRP: {"xrp", "ripple"},
}

// Catalog polls the Gamma API on an interval and keeps the current market
// for each tracked coin available for concurrent reads under a read lock.
type Catalog struct {
	client *resty.Client
	cfg    config.CatalogConfig
	coins  []types.Coin
	logger *slog.Logger

	mu      sync.RWMutex
	current map[types.Coin]Market
}

// New creates a catalog client against the given Gamma API base URL.
func New(baseURL string, cfg config.CatalogConfig, coins []types.Coin, logger *slog.Logger) *Catalog {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &Catalog{
		client:  client,
		cfg:     cfg,
		coins:   coins,
		logger:  logger.With("component", "catalog"),
		current: make(map[types.Coin]Market),
	}
}

// Current returns the active Up/Down market for a coin, if one has been
// discovered.
func (c *Catalog) Current(coin types.Coin) (Market, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.current[coin]
	return m, ok
}

// Seed installs a market directly, bypassing the poll loop. Useful for
// backtests and tests that want to drive the catalog from fixtures rather
// than a live Gamma feed.
func (c *Catalog) Seed(coin types.Coin, m Market) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current[coin] = m
}

// Run polls on cfg.PollInterval until ctx is cancelled, refreshing the
// current market for every tracked coin.
func (c *Catalog) Run(ctx context.Context) {
	c.poll(ctx)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *Catalog) poll(ctx context.Context) {
	markets, err := c.fetchMarkets(ctx)
	if err != nil {
		c.logger.Error("catalog poll failed", "error", err)
		return
	}

	now := time.Now()
	byCoin := make(map[types.Coin]Market)
	for _, gm := range markets {
		coin, ok := matchCoin(gm)
		if !ok {
			continue
		}
		market, ok := resolveMarket(coin, gm, c.cfg.WindowMinutes)
		if !ok {
			continue
		}
		// Prefer the window closest to closing but not yet closed, matching
		// how a trader would pick among any overlapping listings.
		existing, seen := byCoin[coin]
		if !seen || market.WindowEnd.Before(existing.WindowEnd) {
			if market.WindowEnd.After(now) {
				byCoin[coin] = market
			}
		}
	}

	c.mu.Lock()
	for coin, m := range byCoin {
		c.current[coin] = m
	}
	c.mu.Unlock()

	c.logger.Debug("catalog refreshed", "markets_seen", len(markets), "resolved", len(byCoin))
}

func (c *Catalog) fetchMarkets(ctx context.Context) ([]gammaMarket, error) {
	var all []gammaMarket
	offset, limit := 0, 100
	for {
		var page []gammaMarket
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"limit":  strconv.Itoa(limit),
				"offset": strconv.Itoa(offset),
				"active": "true",
				"closed": "false",
			}).
			SetResult(&page).
			Get("/markets")
		if err != nil {
			return nil, fmt.Errorf("fetch markets page %d: %w", offset, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("fetch markets: status %d", resp.StatusCode())
		}
		all = append(all, page...)
		if len(page) < limit {
			break
		}
		offset += limit
	}
	return all, nil
}

func matchCoin(gm gammaMarket) (types.Coin, bool) {
	if !gm.Active || gm.Closed || !gm.AcceptingOrders || !gm.EnableOrderBook || gm.ClobTokenIds == "" {
		return "", false
	}
	slug := strings.ToLower(gm.Slug)
	question := strings.ToLower(gm.Question)
	if !strings.Contains(slug, "up-or-down") && !strings.Contains(question, "up or down") {
		return "", false
	}
	for coin, keywords := range coinKeywords {
		for _, kw := range keywords {
			if strings.Contains(slug, kw) {
				return coin, true
			}
		}
	}
	for coin, keywords := range coinKeywords {
		for _, kw := range keywords {
			if strings.Contains(question, kw) {
				return coin, true
			}
		}
	}
	return "", false
}

func resolveMarket(coin types.Coin, gm gammaMarket, windowMinutes int) (Market, bool) {
	if gm.EndDate == "" {
		return Market{}, false
	}
	end, err := time.Parse(time.RFC3339, gm.EndDate)
	if err != nil {
		return Market{}, false
	}

	var tokenIDs []string
	if err := json.Unmarshal([]byte(gm.ClobTokenIds), &tokenIDs); err != nil || len(tokenIDs) < 2 {
		return Market{}, false
	}

	start := end.Add(-time.Duration(windowMinutes) * time.Minute)

	// The Gamma API surfaces a single bid/ask pair for the Yes token; the
	// No token's ask is the complement of the Yes bid (a one-tick-wide
	// market has no separately quoted No side in this feed).
	noAsk := 1 - gm.BestBid
	if noAsk <= 0 || noAsk > 1 {
		noAsk = 1 - gm.BestAsk
	}

	return Market{
		Coin:        coin,
		ConditionID: gm.ConditionID,
		Question:    gm.Question,
		YesTokenID:  tokenIDs[0],
		NoTokenID:   tokenIDs[1],
		YesAsk:      gm.BestAsk,
		NoAsk:       noAsk,
		WindowStart: start,
		WindowEnd:   end,
	}, true
}
