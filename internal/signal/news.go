package signal

import "algotrade/pkg/types"

// NewsConfig tunes the news sentiment generator.
type NewsConfig struct {
	// MinStrength is the minimum |weighted sentiment| required to emit a
	// non-neutral signal.
	MinStrength float64
	Weight      float64
}

// DefaultNewsConfig returns the generator's default tuning.
func DefaultNewsConfig() NewsConfig {
	return NewsConfig{MinStrength: 0.1, Weight: 0.5}
}

// NewsSignal averages in-window news sentiment weighted by each event's
// urgency score, so a handful of high-urgency headlines can outweigh a
// larger volume of routine coverage.
type NewsSignal struct {
	name   string
	config NewsConfig
}

// NewNewsSignal creates a news sentiment generator.
func NewNewsSignal(config NewsConfig) *NewsSignal {
	return &NewsSignal{name: "news_sentiment", config: config}
}

func (s *NewsSignal) Name() string    { return s.name }
func (s *NewsSignal) Weight() float64 { return s.config.Weight }

func (s *NewsSignal) Compute(ctx SignalContext) (types.SignalValue, error) {
	if len(ctx.NewsEvents) == 0 {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	var weightedSum, weightTotal float64
	for _, ev := range ctx.NewsEvents {
		w := ev.Urgency
		if w == 0 {
			w = 1.0
		}
		weightedSum += ev.Sentiment * w
		weightTotal += w
	}
	if weightTotal == 0 {
		return types.SignalValue{Direction: types.Neutral}, nil
	}

	avg := weightedSum / weightTotal
	metadata := map[string]string{
		"weighted_sentiment": formatFloat(avg),
		"event_count":        formatFloat(float64(len(ctx.NewsEvents))),
	}

	if avg >= s.config.MinStrength {
		return types.SignalValue{Direction: types.Up, Strength: clamp01(avg), Metadata: metadata}, nil
	}
	if avg <= -s.config.MinStrength {
		return types.SignalValue{Direction: types.Down, Strength: clamp01(-avg), Metadata: metadata}, nil
	}
	return types.SignalValue{Direction: types.Neutral, Metadata: metadata}, nil
}
