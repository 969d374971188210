package signal

import (
	"log/slog"
	"os"
	"testing"

	"algotrade/pkg/types"
)

type mockSignal struct {
	name      string
	weight    float64
	value     types.SignalValue
	shouldErr bool
}

func (m *mockSignal) Name() string    { return m.name }
func (m *mockSignal) Weight() float64 { return m.weight }
func (m *mockSignal) Compute(SignalContext) (types.SignalValue, error) {
	if m.shouldErr {
		return types.SignalValue{}, errMock
	}
	return m.value, nil
}

var errMock = &mockError{"mock signal failure"}

type mockError struct{ msg string }

func (e *mockError) Error() string { return e.msg }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(newTestLogger())
	r.Register(&mockSignal{name: "a", weight: 1.0})
	r.Register(&mockSignal{name: "b", weight: 1.0})

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if _, ok := r.Get("a"); !ok {
		t.Error("expected signal a to be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing signal to be absent")
	}
}

func TestRegistryReplacesOnSameName(t *testing.T) {
	r := NewRegistry(newTestLogger())
	r.Register(&mockSignal{name: "a", weight: 1.0})
	r.Register(&mockSignal{name: "a", weight: 2.0})

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	g, _ := r.Get("a")
	if g.Weight() != 2.0 {
		t.Errorf("Weight() = %v, want 2.0", g.Weight())
	}
}

func TestComputeAllSkipsFailingSignals(t *testing.T) {
	r := NewRegistry(newTestLogger())
	r.Register(&mockSignal{name: "good", weight: 1.0, value: types.SignalValue{Direction: types.Up, Strength: 0.5}})
	r.Register(&mockSignal{name: "bad", weight: 1.0, shouldErr: true})

	results := r.ComputeAll(New(testTime(), "BTC"))
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %v", len(results), results)
	}
	if _, ok := results["good"]; !ok {
		t.Error("expected good signal in results")
	}
}

func TestComputeAllWithErrorsCapturesFailures(t *testing.T) {
	r := NewRegistry(newTestLogger())
	r.Register(&mockSignal{name: "good", weight: 1.0, value: types.SignalValue{Direction: types.Up}})
	r.Register(&mockSignal{name: "bad", weight: 1.0, shouldErr: true})

	results := r.ComputeAllWithErrors(New(testTime(), "BTC"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["good"].Err != nil {
		t.Error("good signal should not have errored")
	}
	if results["bad"].Err == nil {
		t.Error("bad signal should have errored")
	}
}

func TestComputeOneNotFoundReturnsError(t *testing.T) {
	r := NewRegistry(newTestLogger())
	if _, err := r.ComputeOne("missing", New(testTime(), "BTC")); err == nil {
		t.Error("expected error for missing signal")
	}
}

func TestRegistryWeights(t *testing.T) {
	r := NewRegistry(newTestLogger())
	r.Register(&mockSignal{name: "a", weight: 1.5})
	r.Register(&mockSignal{name: "b", weight: 0.5})

	weights := r.Weights()
	if weights["a"] != 1.5 || weights["b"] != 0.5 {
		t.Errorf("got %v", weights)
	}
}
