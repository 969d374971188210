package detect

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"algotrade/pkg/types"
)

type fakeDirectionalProvider struct {
	inputs []DirectionalInputs
	calls  int
}

func (f *fakeDirectionalProvider) DirectionalInputs(context.Context) ([]DirectionalInputs, error) {
	f.calls++
	return f.inputs, nil
}

func TestDirectionalRunnerPublishesOpportunities(t *testing.T) {
	provider := &fakeDirectionalProvider{inputs: []DirectionalInputs{baseInputs()}}
	cfg := DefaultDirectionalRunnerConfig()
	cfg.ScanInterval = 10 * time.Millisecond
	runner := NewDirectionalRunner(cfg, provider, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	select {
	case opp := <-runner.Opportunities():
		if opp.Coin != types.BTC {
			t.Errorf("Coin = %v, want BTC", opp.Coin)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an opportunity from the runner")
	}

	stats := runner.Stats()
	if stats.ScansPerformed == 0 {
		t.Error("expected at least one scan recorded")
	}
	if stats.OpportunitiesFound == 0 {
		t.Error("expected at least one opportunity recorded")
	}
	if stats.PerKeyCount["BTC"] == 0 {
		t.Error("expected a per-coin count for BTC")
	}
}

func TestDirectionalRunnerReusesDetectorPerCoin(t *testing.T) {
	in := baseInputs()
	provider := &fakeDirectionalProvider{inputs: []DirectionalInputs{in}}
	cfg := DefaultDirectionalRunnerConfig()
	cfg.Detector.SignalCooldown = time.Hour
	runner := NewDirectionalRunner(cfg, provider, testLogger())

	first, _, err := runner.scanOnce(context.Background())
	if err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 opportunity on first scan, got %d", len(first))
	}

	second, _, err := runner.scanOnce(context.Background())
	if err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected the long cooldown to suppress a second opportunity, got %d", len(second))
	}
}

func TestRunLoopStopsOnContextCancel(t *testing.T) {
	stats := newStats()
	out := make(chan int, 1)
	calls := 0
	scan := func(context.Context) ([]int, func(int) (string, float64), error) {
		calls++
		return nil, func(int) (string, float64) { return "", 0 }, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runLoop(ctx, 5*time.Millisecond, testLogger(), stats, scan, out)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runLoop did not stop after context cancellation")
	}

	if calls == 0 {
		t.Error("expected at least one scan before cancellation")
	}
}

func TestRunLoopDropsWhenOutputFull(t *testing.T) {
	stats := newStats()
	out := make(chan int) // unbuffered, nobody reads
	scan := func(context.Context) ([]int, func(int) (string, float64), error) {
		return []int{1}, func(int) (string, float64) { return "k", 1 }, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		runLoop(ctx, time.Hour, testLogger(), stats, scan, out)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	snap := stats.Snapshot()
	if snap.ScansPerformed != 1 {
		t.Errorf("ScansPerformed = %d, want 1", snap.ScansPerformed)
	}
	if snap.OpportunitiesFound != 1 {
		t.Errorf("OpportunitiesFound = %d, want 1 (recorded even though the send was dropped)", snap.OpportunitiesFound)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
