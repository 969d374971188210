package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTickSizeDecimals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tick TickSize
		want int
	}{
		{Tick01, 1},
		{Tick001, 2},
		{Tick0001, 3},
		{Tick00001, 4},
		{TickSize("unknown"), 2}, // default
	}

	for _, tt := range tests {
		if got := tt.tick.Decimals(); got != tt.want {
			t.Errorf("TickSize(%q).Decimals() = %d, want %d", tt.tick, got, tt.want)
		}
	}
}

func TestReferenceSourceDefaultConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source ReferenceSource
		want   ReferenceConfidence
	}{
		{SourcePolymarketAPI, ConfidenceHigh},
		{SourceBinanceFirst, ConfidenceHigh},
		{SourceBinanceVWAP, ConfidenceMedium},
		{SourceInterpolated, ConfidenceLow},
		{SourceManual, ConfidenceLow},
	}

	for _, tt := range tests {
		if got := tt.source.DefaultConfidence(); got != tt.want {
			t.Errorf("%s.DefaultConfidence() = %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestWindowReferencePriceChangeRatio(t *testing.T) {
	t.Parallel()

	ref := WindowReference{ReferencePrice: 100000}

	if got := ref.PriceChangeRatio(100500); got <= 0 {
		t.Errorf("expected positive ratio for price above reference, got %f", got)
	}
	if got := ref.PriceChangeRatio(99500); got >= 0 {
		t.Errorf("expected negative ratio for price below reference, got %f", got)
	}
	if !ref.IsAboveReference(100000) {
		t.Error("price equal to reference should count as above (tie goes to up)")
	}
}

func TestWindowReferenceTimeRemainingFloorsAtZero(t *testing.T) {
	t.Parallel()

	ref := WindowReference{WindowStartMs: 0, WindowEndMs: 1000}
	if got := ref.TimeRemainingMs(2000); got != 0 {
		t.Errorf("TimeRemainingMs past window end = %d, want 0", got)
	}
	if got := ref.TimeRemainingMs(400); got != 600 {
		t.Errorf("TimeRemainingMs = %d, want 600", got)
	}
}

func TestSignalValueClamp(t *testing.T) {
	t.Parallel()

	v := SignalValue{Direction: Up, Strength: 1.5, Confidence: -0.2}.Clamp()
	if v.Strength != 1 {
		t.Errorf("Strength = %f, want 1", v.Strength)
	}
	if v.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0", v.Confidence)
	}

	neutral := SignalValue{Direction: Neutral, Strength: 0.9}.Clamp()
	if neutral.Strength != 0 {
		t.Errorf("Neutral direction should force Strength to 0, got %f", neutral.Strength)
	}
}

func TestArbitragePositionDerived(t *testing.T) {
	t.Parallel()

	p := ArbitragePosition{
		YesShares: decimal.NewFromInt(100),
		YesCost:   decimal.NewFromFloat(45),
		NoShares:  decimal.NewFromInt(100),
		NoCost:    decimal.NewFromFloat(50),
		Status:    PositionComplete,
	}

	if got := p.GuaranteedPayout(); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("GuaranteedPayout = %s, want 100", got)
	}
	if got := p.Imbalance(); !got.IsZero() {
		t.Errorf("Imbalance = %s, want 0", got)
	}
	wantFloor := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(45)).Sub(decimal.NewFromFloat(50))
	if got := p.FloorPnL(); !got.Equal(wantFloor) {
		t.Errorf("FloorPnL = %s, want %s", got, wantFloor)
	}
}

func TestArbitragePositionPairCostZeroShares(t *testing.T) {
	t.Parallel()

	p := ArbitragePosition{}
	if got := p.PairCost(); !got.IsZero() {
		t.Errorf("PairCost with zero shares = %s, want 0", got)
	}
}
