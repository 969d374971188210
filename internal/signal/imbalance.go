package signal

import (
	"math"

	"algotrade/pkg/types"
)

// ImbalanceConfig tunes the order-book imbalance generator.
type ImbalanceConfig struct {
	// ZScoreThreshold is the |z-score| above which the raw imbalance is
	// considered extreme enough to emit a directional signal.
	ZScoreThreshold float64
	Weight          float64
}

// DefaultImbalanceConfig returns the generator's default tuning.
func DefaultImbalanceConfig() ImbalanceConfig {
	return ImbalanceConfig{ZScoreThreshold: 1.0, Weight: 1.0}
}

// ImbalanceSignal derives direction from order-book depth skew: more bid
// depth than ask depth favors Up, more ask depth favors Down. When enough
// history is available the raw imbalance is z-scored against it so the
// signal reacts to unusual skew rather than the symbol's normal resting
// imbalance.
type ImbalanceSignal struct {
	name   string
	config ImbalanceConfig
}

// NewImbalanceSignal creates an order-book imbalance generator.
func NewImbalanceSignal(config ImbalanceConfig) *ImbalanceSignal {
	return &ImbalanceSignal{name: "orderbook_imbalance", config: config}
}

func (s *ImbalanceSignal) Name() string    { return s.name }
func (s *ImbalanceSignal) Weight() float64 { return s.config.Weight }

func (s *ImbalanceSignal) Compute(ctx SignalContext) (types.SignalValue, error) {
	if ctx.OrderBook == nil {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	bidDepth := ctx.OrderBook.BidDepth()
	askDepth := ctx.OrderBook.AskDepth()
	total := bidDepth + askDepth
	if total == 0 {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	imbalance := (bidDepth - askDepth) / total

	strength := math.Abs(imbalance)
	if len(ctx.HistoricalImbalances) >= 2 {
		mean, stddev := meanStddev(ctx.HistoricalImbalances)
		if stddev > 0 {
			z := (imbalance - mean) / stddev
			strength = math.Min(math.Abs(z)/s.config.ZScoreThreshold, 1.0)
			if math.Abs(z) < s.config.ZScoreThreshold {
				return types.SignalValue{
					Direction: types.Neutral,
					Metadata:  map[string]string{"imbalance": formatFloat(imbalance), "zscore": formatFloat(z)},
				}, nil
			}
		}
	}

	direction := types.Up
	if imbalance < 0 {
		direction = types.Down
	}

	return types.SignalValue{
		Direction:  direction,
		Strength:   strength,
		Confidence: minConfidence(total),
		Metadata:   map[string]string{"imbalance": formatFloat(imbalance)},
	}, nil
}

// minConfidence scales confidence with total resting depth: thin books
// produce a noisy imbalance and should carry less weight in the composite.
func minConfidence(totalDepth float64) float64 {
	const depthForFullConfidence = 1000.0
	return math.Min(totalDepth/depthForFullConfidence, 1.0)
}

func meanStddev(values []float64) (mean, stddev float64) {
	n := float64(len(values))
	for _, v := range values {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= (n - 1)
	return mean, math.Sqrt(variance)
}
