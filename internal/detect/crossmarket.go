package detect

import (
	"time"

	"github.com/shopspring/decimal"

	"algotrade/pkg/types"
)

// CrossMarketConfig tunes the cross-coin correlation detector.
type CrossMarketConfig struct {
	MinSpread          decimal.Decimal
	MaxTotalCost       decimal.Decimal
	MinExpectedValue   decimal.Decimal
	MinDepth           decimal.Decimal // zero disables the depth gate
	AssumedCorrelation float64
	Combinations       []types.CrossMarketCombination
	SignalCooldown     time.Duration
}

var allCombinations = []types.CrossMarketCombination{
	types.ComboCoin1UpCoin2Down,
	types.ComboCoin1DownCoin2Up,
	types.ComboBothUp,
	types.ComboBothDown,
}

// DefaultCrossMarketConfig enables every combination with a moderate assumed
// correlation between coins.
func DefaultCrossMarketConfig() CrossMarketConfig {
	return CrossMarketConfig{
		MinSpread:          decimal.NewFromFloat(0.02),
		MaxTotalCost:       decimal.NewFromFloat(0.98),
		MinExpectedValue:   decimal.NewFromFloat(0.01),
		AssumedCorrelation: 0.7,
		Combinations:       append([]types.CrossMarketCombination{}, allCombinations...),
		SignalCooldown:     30 * time.Second,
	}
}

// OnlyUpDown restricts the detector to the two opposing-direction
// combinations (Coin1Up+Coin2Down, Coin1Down+Coin2Up) — the pure-hedge
// pairings where the two legs can't both lose.
func (c CrossMarketConfig) OnlyUpDown() CrossMarketConfig {
	c.Combinations = []types.CrossMarketCombination{types.ComboCoin1UpCoin2Down, types.ComboCoin1DownCoin2Up}
	return c
}

// ArbitrageOnly is an alias for OnlyUpDown: the BothUp/BothDown combinations
// are directional correlation bets, not arbitrage, since both legs can lose
// together.
func (c CrossMarketConfig) ArbitrageOnly() CrossMarketConfig {
	return c.OnlyUpDown()
}

func (c CrossMarketConfig) allows(combo types.CrossMarketCombination) bool {
	for _, enabled := range c.Combinations {
		if enabled == combo {
			return true
		}
	}
	return false
}

// CrossMarketDetector finds two-leg correlation opportunities across pairs
// of coin-market snapshots. Cooldown is keyed per (coin pair, combination)
// so each leg-pairing has its own throttle.
type CrossMarketDetector struct {
	cfg      CrossMarketConfig
	lastSeen map[string]int64 // key -> last signal ms
}

// NewCrossMarketDetector creates a detector with the given config.
func NewCrossMarketDetector(cfg CrossMarketConfig) *CrossMarketDetector {
	return &CrossMarketDetector{cfg: cfg, lastSeen: make(map[string]int64)}
}

func cooldownKey(coin1, coin2 types.Coin, combo types.CrossMarketCombination) string {
	return string(coin1) + "|" + string(coin2) + "|" + string(combo)
}

// Scan evaluates every ordered pair of distinct snapshots and every enabled
// combination, returning every opportunity that clears all gates.
func (d *CrossMarketDetector) Scan(snapshots []types.CoinMarketSnapshot, nowMs int64) []types.CrossMarketOpportunity {
	var out []types.CrossMarketOpportunity
	for i := range snapshots {
		for j := range snapshots {
			if i == j {
				continue
			}
			s1, s2 := snapshots[i], snapshots[j]
			for _, combo := range allCombinations {
				if !d.cfg.allows(combo) {
					continue
				}
				if opp, ok := d.checkCombination(s1, s2, combo, nowMs); ok {
					out = append(out, opp)
				}
			}
		}
	}
	return out
}

func (d *CrossMarketDetector) checkCombination(s1, s2 types.CoinMarketSnapshot, combo types.CrossMarketCombination, nowMs int64) (types.CrossMarketOpportunity, bool) {
	key := cooldownKey(s1.Coin, s2.Coin, combo)
	if last, ok := d.lastSeen[key]; ok && nowMs-last < d.cfg.SignalCooldown.Milliseconds() {
		return types.CrossMarketOpportunity{}, false
	}

	leg1Token, leg1Price, leg1Depth, p1 := legFor(s1, combo, true)
	leg2Token, leg2Price, leg2Depth, p2 := legFor(s2, combo, false)

	totalCost := leg1Price.Add(leg2Price)
	if totalCost.GreaterThan(d.cfg.MaxTotalCost) {
		return types.CrossMarketOpportunity{}, false
	}

	spread := decimal.NewFromInt(1).Sub(totalCost)
	if spread.LessThan(d.cfg.MinSpread) {
		return types.CrossMarketOpportunity{}, false
	}

	winProbability := combinedWinProbability(combo, p1, p2, d.cfg.AssumedCorrelation)
	expectedValue := decimal.NewFromFloat(winProbability).Sub(totalCost)
	if expectedValue.LessThan(d.cfg.MinExpectedValue) {
		return types.CrossMarketOpportunity{}, false
	}

	if d.cfg.MinDepth.IsPositive() {
		minDepth := leg1Depth
		if leg2Depth.LessThan(minDepth) {
			minDepth = leg2Depth
		}
		if minDepth.LessThan(d.cfg.MinDepth) {
			return types.CrossMarketOpportunity{}, false
		}
	}

	d.lastSeen[key] = nowMs

	return types.CrossMarketOpportunity{
		Coin1:          s1.Coin,
		Coin2:          s2.Coin,
		Combination:    combo,
		Leg1TokenID:    leg1Token,
		Leg2TokenID:    leg2Token,
		Leg1Price:      leg1Price,
		Leg2Price:      leg2Price,
		TotalCost:      totalCost,
		Spread:         spread,
		WinProbability: winProbability,
		ExpectedValue:  expectedValue,
		Timestamp:      time.UnixMilli(nowMs).UTC(),
	}, true
}

// legFor resolves the token/price/depth/implied win-probability for one
// coin's leg of a combination. isCoin1 selects which side of an opposing
// combination this snapshot represents. The implied probability is always
// the chance THIS leg's outcome occurs, not the coin's probability of going
// up — picking the down leg needs 1-ask-of-up, not ask-of-up itself.
func legFor(s types.CoinMarketSnapshot, combo types.CrossMarketCombination, isCoin1 bool) (tokenID string, price, depth decimal.Decimal, impliedProb float64) {
	if combinationWantsUp(combo, isCoin1) {
		return s.UpTokenID, s.UpAsk, s.UpBidDepth, 1 - s.UpAsk.InexactFloat64()
	}
	return s.DownTokenID, s.DownAsk, s.DownBidDepth, 1 - s.DownAsk.InexactFloat64()
}

func combinationWantsUp(combo types.CrossMarketCombination, isCoin1 bool) bool {
	switch combo {
	case types.ComboCoin1UpCoin2Down:
		return isCoin1
	case types.ComboCoin1DownCoin2Up:
		return !isCoin1
	case types.ComboBothUp:
		return true
	case types.ComboBothDown:
		return false
	default:
		return true
	}
}

// combinedWinProbability estimates the probability that this combination
// pays out. Opposing-direction combinations (one coin up, the other down)
// start from the naive independent-legs estimate that at least one leg
// wins, 1-(1-p1)(1-p2), and scale it by (1 - 0.5*correlation), so a higher
// assumed correlation lowers it (halving it at correlation 1), since
// correlated coins don't actually multiply independently.
// Same-direction combinations (both up or both down) need the coins to
// move together, so their probability is the stronger leg discounted by
// the assumed correlation.
func combinedWinProbability(combo types.CrossMarketCombination, p1, p2 float64, correlation float64) float64 {
	switch combo {
	case types.ComboCoin1UpCoin2Down, types.ComboCoin1DownCoin2Up:
		independent := 1 - (1-p1)*(1-p2)
		return independent * (1 - 0.5*correlation)
	case types.ComboBothUp, types.ComboBothDown:
		strongest := p1
		if p2 > strongest {
			strongest = p2
		}
		return strongest * correlation
	default:
		return p1 * p2
	}
}
