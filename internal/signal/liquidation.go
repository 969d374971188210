package signal

import "algotrade/pkg/types"

// LiquidationConfig tunes the liquidation-flow ratio generator.
type LiquidationConfig struct {
	// HighRatioThreshold: long/short liquidation volume ratio above this
	// is read as a Down continuation bias (longs being forced out).
	HighRatioThreshold float64
	// LowRatioThreshold: ratio below this is read as an Up bias (shorts
	// being forced out).
	LowRatioThreshold float64
	// MinVolumeUSD is the minimum combined liquidation volume required to
	// emit a non-neutral signal; thin liquidation flow is too noisy.
	MinVolumeUSD float64
	Weight       float64
}

// DefaultLiquidationConfig returns the generator's default tuning.
func DefaultLiquidationConfig() LiquidationConfig {
	return LiquidationConfig{
		HighRatioThreshold: 2.0,
		LowRatioThreshold:  0.5,
		MinVolumeUSD:       100_000,
		Weight:             1.0,
	}
}

// LiquidationSignal reads net liquidation flow as a continuation signal:
// heavy long liquidations (forced selling) bias Down, heavy short
// liquidations (forced buying) bias Up.
type LiquidationSignal struct {
	name   string
	config LiquidationConfig
}

// NewLiquidationSignal creates a liquidation-ratio generator.
func NewLiquidationSignal(config LiquidationConfig) *LiquidationSignal {
	return &LiquidationSignal{name: "liquidation_ratio", config: config}
}

func (s *LiquidationSignal) Name() string    { return s.name }
func (s *LiquidationSignal) Weight() float64 { return s.config.Weight }

func (s *LiquidationSignal) Compute(ctx SignalContext) (types.SignalValue, error) {
	if ctx.LiquidationAggregate == nil {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	agg := ctx.LiquidationAggregate
	total := agg.LongVolumeUSD + agg.ShortVolumeUSD
	if total < s.config.MinVolumeUSD {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	metadata := map[string]string{
		"long_volume":  formatFloat(agg.LongVolumeUSD),
		"short_volume": formatFloat(agg.ShortVolumeUSD),
		"total_volume": formatFloat(total),
	}

	if agg.ShortVolumeUSD == 0 {
		metadata["ratio"] = "inf"
		return types.SignalValue{Direction: types.Down, Strength: 1.0, Metadata: metadata}, nil
	}

	ratio := agg.LongVolumeUSD / agg.ShortVolumeUSD
	metadata["ratio"] = formatFloat(ratio)

	if ratio >= s.config.HighRatioThreshold {
		strength := clamp01((ratio - s.config.HighRatioThreshold) / s.config.HighRatioThreshold)
		return types.SignalValue{Direction: types.Down, Strength: strength, Metadata: metadata}, nil
	}
	if ratio <= s.config.LowRatioThreshold {
		strength := clamp01((s.config.LowRatioThreshold - ratio) / s.config.LowRatioThreshold)
		return types.SignalValue{Direction: types.Up, Strength: strength, Metadata: metadata}, nil
	}

	return types.SignalValue{Direction: types.Neutral, Metadata: metadata}, nil
}
