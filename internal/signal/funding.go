package signal

import "algotrade/pkg/types"

// FundingConfig tunes the funding-rate deviation generator.
type FundingConfig struct {
	// ZScoreThreshold is the |z-score| above which funding is considered
	// extreme enough to produce a directional signal.
	ZScoreThreshold float64
	Weight          float64
}

// DefaultFundingConfig returns the generator's default tuning.
func DefaultFundingConfig() FundingConfig {
	return FundingConfig{ZScoreThreshold: 1.5, Weight: 1.0}
}

// FundingSignal is a contrarian signal on perpetual funding rate: crowded
// long positioning (extreme positive funding) biases Down as longs pay to
// hold and tend to unwind; crowded short positioning biases Up.
type FundingSignal struct {
	name   string
	config FundingConfig
}

// NewFundingSignal creates a funding-rate deviation generator.
func NewFundingSignal(config FundingConfig) *FundingSignal {
	return &FundingSignal{name: "funding_deviation", config: config}
}

func (s *FundingSignal) Name() string    { return s.name }
func (s *FundingSignal) Weight() float64 { return s.config.Weight }

func (s *FundingSignal) Compute(ctx SignalContext) (types.SignalValue, error) {
	if ctx.FundingRate == nil || len(ctx.HistoricalFundingRates) < 2 {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	rates := make([]float64, len(ctx.HistoricalFundingRates))
	for i, r := range ctx.HistoricalFundingRates {
		rates[i] = r.Rate
	}
	mean, stddev := meanStddev(rates)
	if stddev == 0 {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	z := (*ctx.FundingRate - mean) / stddev
	metadata := map[string]string{"funding_rate": formatFloat(*ctx.FundingRate), "zscore": formatFloat(z)}

	if z >= s.config.ZScoreThreshold {
		strength := clamp01(z / (2 * s.config.ZScoreThreshold))
		return types.SignalValue{Direction: types.Down, Strength: strength, Metadata: metadata}, nil
	}
	if z <= -s.config.ZScoreThreshold {
		strength := clamp01(-z / (2 * s.config.ZScoreThreshold))
		return types.SignalValue{Direction: types.Up, Strength: strength, Metadata: metadata}, nil
	}

	return types.SignalValue{Direction: types.Neutral, Metadata: metadata}, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
