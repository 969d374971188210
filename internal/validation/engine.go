package validation

import (
	"context"
	"log/slog"
	"time"

	"algotrade/internal/config"
	"algotrade/pkg/types"
)

// Persistence loads the signal snapshots a validation pass runs against.
type Persistence interface {
	SignalSnapshots(ctx context.Context, since time.Time) ([]SignalSnapshotRecord, error)
}

// Engine runs the offline hypothesis-testing pass over persisted signal
// snapshots: fill in forward returns where missing, test each signal
// independently, and fold the results into a go/no-go summary.
type Engine struct {
	cfg    config.ValidationConfig
	store  Persistence
	prices PriceSource
	logger *slog.Logger
}

// New creates a validation engine.
func New(cfg config.ValidationConfig, store Persistence, prices PriceSource, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, store: store, prices: prices, logger: logger.With("component", "validation")}
}

// Run executes one validation pass over every snapshot recorded since
// `since`, returning the aggregated report.
func (e *Engine) Run(ctx context.Context, since time.Time) (types.ValidationReport, error) {
	snapshots, err := e.store.SignalSnapshots(ctx, since)
	if err != nil {
		return types.ValidationReport{}, err
	}

	snapshots, frStats := CalculateForwardReturns(ctx, snapshots, e.cfg.ForwardReturnHorizon, e.prices)
	e.logger.Info("forward returns calculated", "filled", frStats.Calculated, "missing", frStats.Missing)

	bySignal := make(map[string][]SignalSnapshotRecord)
	order := make([]string, 0)
	for _, s := range snapshots {
		if _, ok := bySignal[s.SignalName]; !ok {
			order = append(order, s.SignalName)
		}
		bySignal[s.SignalName] = append(bySignal[s.SignalName], s)
	}

	report := types.ValidationReport{GeneratedAt: time.Now()}
	for _, name := range order {
		result, err := TestSignal(name, bySignal[name], e.cfg.MinSamples)
		if err != nil {
			e.logger.Warn("signal skipped", "signal", name, "error", err)
			continue
		}
		report.Results = append(report.Results, result)
	}

	report.GoNoGo = summarize(report.Results)
	return report, nil
}

// summarize folds per-signal recommendations into an overall verdict: GO if
// any signal is Approved or ConditionallyApproved, PENDING if none are
// rejected but at least one needs more data, NO-GO otherwise.
func summarize(results []types.HypothesisResult) string {
	anyApproved := false
	anyNeedsData := false
	anyRejected := false

	for _, r := range results {
		switch r.Recommendation {
		case types.RecApproved, types.RecConditionalApproval:
			anyApproved = true
		case types.RecNeedsMoreData:
			anyNeedsData = true
		case types.RecRejected:
			anyRejected = true
		}
	}

	switch {
	case anyApproved:
		return "GO"
	case anyNeedsData && !anyRejected:
		return "PENDING"
	default:
		return "NO-GO"
	}
}
