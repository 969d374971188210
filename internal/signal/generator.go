package signal

import (
	"fmt"
	"log/slog"
	"sync"

	"algotrade/pkg/types"
)

// Generator computes one directional bias indicator from a SignalContext.
// Compute must not block on network I/O beyond what the context already
// carries — generators run synchronously inside the aggregator's tick.
type Generator interface {
	Compute(ctx SignalContext) (types.SignalValue, error)
	Name() string
	Weight() float64
}

// Registry holds named generators and evaluates them as a batch.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		generators: make(map[string]Generator),
		logger:     logger,
	}
}

// Register adds a generator under its own Name(), replacing any existing
// generator with the same name.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[g.Name()] = g
}

// RegisterAs adds a generator under a caller-chosen name, useful for
// registering multiple instances of the same generator type under distinct
// configurations.
func (r *Registry) RegisterAs(name string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[name] = g
}

// Get returns the generator registered under name.
func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[name]
	return g, ok
}

// Remove deletes the generator registered under name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.generators, name)
}

// Names returns the registered generator names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered generators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.generators)
}

// ComputeAll runs every registered generator against ctx. A generator that
// returns an error is logged and omitted from the result rather than
// aborting the batch — one broken signal must never block the others.
func (r *Registry) ComputeAll(ctx SignalContext) map[string]types.SignalValue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]types.SignalValue, len(r.generators))
	for name, g := range r.generators {
		value, err := g.Compute(ctx)
		if err != nil {
			r.logger.Warn("signal computation failed, skipping", "signal", name, "error", err)
			continue
		}
		results[name] = value.Clamp()
	}
	return results
}

// computeResult pairs a signal's value with any error from computing it.
type computeResult struct {
	Value types.SignalValue
	Err   error
}

// ComputeAllWithErrors runs every registered generator and returns both
// successes and failures, for validation and diagnostics tooling.
func (r *Registry) ComputeAllWithErrors(ctx SignalContext) map[string]computeResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]computeResult, len(r.generators))
	for name, g := range r.generators {
		value, err := g.Compute(ctx)
		results[name] = computeResult{Value: value, Err: err}
	}
	return results
}

// ComputeOne computes a single named signal.
func (r *Registry) ComputeOne(name string, ctx SignalContext) (types.SignalValue, error) {
	r.mu.RLock()
	g, ok := r.generators[name]
	r.mu.RUnlock()
	if !ok {
		return types.SignalValue{}, fmt.Errorf("signal generator %q not found", name)
	}
	return g.Compute(ctx)
}

// Weights returns the configured weight for every registered generator.
func (r *Registry) Weights() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	weights := make(map[string]float64, len(r.generators))
	for name, g := range r.generators {
		weights[name] = g.Weight()
	}
	return weights
}
