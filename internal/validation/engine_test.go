package validation

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"algotrade/internal/config"
	"algotrade/pkg/types"
)

func testEngineLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSnapshotStore struct {
	snapshots []SignalSnapshotRecord
}

func (f *fakeSnapshotStore) SignalSnapshots(ctx context.Context, since time.Time) ([]SignalSnapshotRecord, error) {
	return f.snapshots, nil
}

type fakePriceSource struct {
	prices map[string]float64
}

func (f *fakePriceSource) PriceAt(ctx context.Context, symbol string, at time.Time) (float64, bool) {
	p, ok := f.prices[symbol+"@"+at.Format(time.RFC3339)]
	return p, ok
}

func TestEngineRunProducesGoOnStrongSignal(t *testing.T) {
	base := time.Date(2026, 1, 29, 12, 0, 0, 0, time.UTC)

	var snapshots []SignalSnapshotRecord
	for i := 0; i < 70; i++ {
		snapshots = append(snapshots, snap(types.Up, 0.8, 0.01))
	}
	for i := 0; i < 30; i++ {
		snapshots = append(snapshots, snap(types.Up, 0.8, -0.01))
	}
	for i := range snapshots {
		snapshots[i].Timestamp = base
	}

	store := &fakeSnapshotStore{snapshots: snapshots}
	cfg := config.ValidationConfig{ForwardReturnHorizon: 15 * time.Minute, MinSamples: 10}
	engine := New(cfg, store, &fakePriceSource{}, testEngineLogger())

	report, err := engine.Run(context.Background(), base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.GoNoGo != "GO" {
		t.Errorf("GoNoGo = %s, want GO", report.GoNoGo)
	}
	if len(report.Results) != 1 {
		t.Fatalf("Results = %d, want 1", len(report.Results))
	}
}

func TestEngineRunProducesNoGoOnRejectedSignal(t *testing.T) {
	base := time.Date(2026, 1, 29, 12, 0, 0, 0, time.UTC)

	var snapshots []SignalSnapshotRecord
	for i := 0; i < 50; i++ {
		snapshots = append(snapshots, snap(types.Up, 0.8, 0.01))
	}
	for i := 0; i < 50; i++ {
		snapshots = append(snapshots, snap(types.Up, 0.8, -0.01))
	}
	for i := range snapshots {
		snapshots[i].Timestamp = base
	}

	store := &fakeSnapshotStore{snapshots: snapshots}
	cfg := config.ValidationConfig{ForwardReturnHorizon: 15 * time.Minute, MinSamples: 10}
	engine := New(cfg, store, &fakePriceSource{}, testEngineLogger())

	report, err := engine.Run(context.Background(), base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.GoNoGo != "NO-GO" {
		t.Errorf("GoNoGo = %s, want NO-GO", report.GoNoGo)
	}
}

func TestCalculateForwardReturnsFillsMissingAndCounts(t *testing.T) {
	base := time.Date(2026, 1, 29, 12, 0, 0, 0, time.UTC)
	snapshots := []SignalSnapshotRecord{
		{Timestamp: base, SignalName: "s1", Symbol: "BTCUSDT", Direction: types.Up},
		{Timestamp: base, SignalName: "s1", Symbol: "ETHUSDT", Direction: types.Up},
	}

	prices := &fakePriceSource{prices: map[string]float64{
		"BTCUSDT@" + base.Format(time.RFC3339):                     100,
		"BTCUSDT@" + base.Add(15*time.Minute).Format(time.RFC3339): 103,
	}}

	out, stats := CalculateForwardReturns(context.Background(), snapshots, 15*time.Minute, prices)

	if stats.Calculated != 1 || stats.Missing != 1 {
		t.Fatalf("stats = %+v, want 1 calculated, 1 missing", stats)
	}
	if out[0].ForwardReturn == nil {
		t.Fatal("expected BTCUSDT snapshot to get a forward return")
	}
	if diff(*out[0].ForwardReturn, 0.03) > 1e-9 {
		t.Errorf("forward return = %f, want 0.03", *out[0].ForwardReturn)
	}
	if out[1].ForwardReturn != nil {
		t.Error("expected ETHUSDT snapshot to stay unfilled with no price data")
	}
}
