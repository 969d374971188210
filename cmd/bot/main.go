// Algotrade — a short-horizon directional and cross-market arbitrage bot for
// Polymarket's 15-minute Up/Down crypto prediction markets (BTC/ETH/SOL/XRP).
//
// Architecture:
//
//	main.go                    — entry point: wires every subsystem, waits for SIGINT/SIGTERM
//	internal/catalog           — polls Gamma for the live window market per coin
//	internal/dataservice       — owns the spot feed and signal aggregator, exposes a read-only Handle
//	internal/spottracker       — captures each window's opening reference price and recent spot ticks
//	internal/signal            — order-book imbalance, funding, liquidation, and news generators
//	internal/bridge            — joins the catalog and data service into the detectors' input shape
//	internal/detect            — directional, cross-market, latency, and gabagool opportunity detectors
//	internal/autoexec          — Kelly-sized execution gating for directional and cross-market opportunities
//	internal/exec              — paper and live order backends behind a common Executor interface
//	internal/risk              — portfolio exposure limits and the kill switch
//	internal/settlement        — resolves trades against window close prices
//	internal/validation        — offline hypothesis testing of each signal's forward-return edge
//	internal/store             — SQLite persistence for trades, snapshots, and raw market data
//	internal/exchange          — signed REST client for the Polymarket CLOB (live mode only)
//	internal/api               — operational dashboard over HTTP/WebSocket
//
// How it makes money:
//
//	Directional and cross-market detectors flag mispriced Up/Down contracts
//	relative to live spot movement, latency in the venue's own quote, or a
//	temporary dislocation between a pair's complementary outcomes. The
//	auto-executors size entries with fractional Kelly against each
//	detector's estimated win probability, subject to the risk manager's
//	per-market and global exposure caps.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"algotrade/internal/api"
	"algotrade/internal/autoexec"
	"algotrade/internal/bridge"
	"algotrade/internal/catalog"
	"algotrade/internal/config"
	"algotrade/internal/dataservice"
	"algotrade/internal/detect"
	"algotrade/internal/exchange"
	"algotrade/internal/exec"
	"algotrade/internal/risk"
	"algotrade/internal/settlement"
	"algotrade/internal/signal"
	"algotrade/internal/spottracker"
	"algotrade/internal/store"
	"algotrade/internal/validation"
	"algotrade/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("ALGO_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	coins := parseCoins(cfg.Coins)
	if len(coins) == 0 {
		logger.Error("no valid coins configured", "coins", cfg.Coins)
		os.Exit(1)
	}

	db, err := store.Open(cfg.Store.DSN)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := spottracker.NewDefault()

	registry := signal.NewRegistry(logger)
	registry.Register(signal.NewImbalanceSignal(signal.DefaultImbalanceConfig()))
	registry.Register(signal.NewFundingSignal(signal.DefaultFundingConfig()))
	registry.Register(signal.NewLiquidationSignal(signal.DefaultLiquidationConfig()))
	registry.Register(signal.NewNewsSignal(signal.DefaultNewsConfig()))

	builderCfg := signal.DefaultBuilderConfig()
	if cfg.Signal.LookbackMinutes > 0 {
		builderCfg.OrderBookLookback = time.Duration(cfg.Signal.LookbackMinutes) * time.Minute
	}
	if cfg.Signal.FundingLookbackHours > 0 {
		builderCfg.FundingLookback = time.Duration(cfg.Signal.FundingLookbackHours) * time.Hour
	}
	if cfg.Signal.LiquidationWindowMinutes > 0 {
		builderCfg.LiquidationWindow = time.Duration(cfg.Signal.LiquidationWindowMinutes) * time.Minute
	}
	if cfg.Signal.NewsLookbackMinutes > 0 {
		builderCfg.NewsLookback = time.Duration(cfg.Signal.NewsLookbackMinutes) * time.Minute
	}
	if cfg.Signal.MaxOrderBookLevels > 0 {
		builderCfg.MaxOrderBookLevels = cfg.Signal.MaxOrderBookLevels
	}
	builder := signal.NewBuilder(db, db, db, db, "binance", builderCfg)

	dsCfg := dataservice.DefaultConfig(cfg.Coins, cfg.API.SpotWSURL)
	dsCfg.SignalEnabled = true
	if cfg.Signal.TickInterval > 0 {
		dsCfg.SignalTickInterval = cfg.Signal.TickInterval
	}
	if cfg.Signal.CompositeThreshold > 0 {
		dsCfg.CompositeThreshold = cfg.Signal.CompositeThreshold
	}
	dsCfg.PersistSnapshots = cfg.Signal.PersistSnapshots
	dsCfg.PersistRawData = cfg.Signal.PersistRawData

	dataSvc := dataservice.New(dsCfg, logger, tracker, registry, builder,
		dataservice.WithSnapshotWriter(db),
	)
	go func() {
		if err := dataSvc.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("data service stopped", "error", err)
		}
	}()
	defer dataSvc.Stop()

	cat := catalog.New(cfg.API.GammaBaseURL, cfg.Catalog, coins, logger)
	go cat.Run(ctx)

	handle := dataSvc.Handle()
	market := bridge.New(cat, handle, coins)

	directionalRunner := detect.NewDirectionalRunner(directionalRunnerConfig(cfg.Directional), market, logger)
	crossMarketRunner := detect.NewCrossMarketRunner(crossMarketRunnerConfig(cfg.CrossMarket), market, logger)
	latencyRunner := detect.NewLatencyRunner(latencyRunnerConfig(cfg.Latency), market, logger)
	gabagoolRunner := detect.NewGabagoolRunner(gabagoolRunnerConfig(cfg.Gabagool), market, logger)

	go directionalRunner.Run(ctx)
	go crossMarketRunner.Run(ctx)
	go latencyRunner.Run(ctx)
	go gabagoolRunner.Run(ctx)

	// Latency and gabagool opportunities have no sizing/execution path the
	// way directional and cross-market opportunities do; only their runners'
	// stats reach the dashboard. Their channels are drained (each item logged
	// at debug level and discarded) so the runners never block on a full
	// output buffer.
	go drainLatency(ctx, latencyRunner, logger)
	go drainGabagool(ctx, gabagoolRunner, logger)

	riskMgr := risk.NewManager(cfg.Risk, logger)
	go riskMgr.Run(ctx)

	backend, err := buildExecutor(cfg, market, logger)
	if err != nil {
		logger.Error("failed to build order executor", "error", err)
		os.Exit(1)
	}

	crossExecutor := autoexec.New(crossMarketExecConfig(cfg), backend, riskMgr, db, logger)
	directionalExecutor := autoexec.NewDirectional(directionalExecConfig(cfg), backend, riskMgr, db, logger)

	go crossExecutor.Run(ctx, crossMarketRunner.Opportunities())
	go directionalExecutor.Run(ctx, directionalRunner.Opportunities())

	settlementSvc := settlement.New(cfg.Settlement, db, settlement.NewTrackerPriceSource(tracker, nil), logger)
	validationEngine := validation.New(cfg.Validation, db, db, logger)

	adapter := newDashboardAdapter(
		directionalRunner, crossMarketRunner, latencyRunner, gabagoolRunner,
		directionalExecutor, crossExecutor, riskMgr, settlementSvc, validationEngine,
		db, logger,
	)
	go adapter.runSettlementSweeps(ctx, cfg.Settlement.SweepInterval)
	go adapter.runValidationPasses(ctx, validationPassInterval(cfg.Validation))

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, adapter, *cfg, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("algotrade started",
		"coins", cfg.Coins,
		"executor_mode", cfg.Executor.Mode,
		"max_global_exposure", cfg.Risk.MaxGlobalExposure,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}

	cancel()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseCoins filters the configured symbol list down to the coins this
// build supports, preserving order and skipping anything else rather than
// failing the whole run over one bad entry.
func parseCoins(symbols []string) []types.Coin {
	var coins []types.Coin
	for _, s := range symbols {
		switch types.Coin(s) {
		case types.BTC, types.ETH, types.SOL, types.XRP:
			coins = append(coins, types.Coin(s))
		}
	}
	return coins
}

// validationPassInterval runs the hypothesis-testing pass far less often
// than the detectors scan: there's no point recomputing it faster than
// fresh signal snapshots accumulate enough forward-return history to move
// the result.
func validationPassInterval(cfg config.ValidationConfig) time.Duration {
	if cfg.ForwardReturnHorizon > 0 {
		return cfg.ForwardReturnHorizon
	}
	return time.Hour
}

func directionalRunnerConfig(cfg config.DirectionalConfig) detect.DirectionalRunnerConfig {
	rc := detect.DefaultDirectionalRunnerConfig()
	rc.Detector = detect.DirectionalConfig{
		MinDeltaPct:         cfg.MinDeltaPct,
		MaxDeltaPct:         cfg.MaxDeltaPct,
		MaxEntryPrice:       decimal.NewFromFloat(cfg.MaxEntryPrice),
		MinEdge:             cfg.MinEdge,
		EntryWindowStartSec: cfg.EntryWindowStartSec,
		EntryWindowEndSec:   cfg.EntryWindowEndSec,
		SignalCooldown:      cfg.SignalCooldown,
	}
	if cfg.ScanInterval > 0 {
		rc.ScanInterval = cfg.ScanInterval
	}
	return rc
}

func crossMarketRunnerConfig(cfg config.CrossMarketConfig) detect.CrossMarketRunnerConfig {
	rc := detect.DefaultCrossMarketRunnerConfig()
	combos := rc.Detector.Combinations
	if cfg.OnlyUpDown {
		combos = []types.CrossMarketCombination{types.ComboCoin1UpCoin2Down, types.ComboCoin1DownCoin2Up}
	}
	rc.Detector = detect.CrossMarketConfig{
		MinSpread:          decimal.NewFromFloat(cfg.MinSpread),
		MaxTotalCost:       decimal.NewFromFloat(cfg.MaxTotalCost),
		MinExpectedValue:   decimal.NewFromFloat(cfg.MinExpectedValue),
		MinDepth:           decimal.NewFromFloat(cfg.MinDepth),
		AssumedCorrelation: cfg.AssumedCorrelation,
		Combinations:       combos,
		SignalCooldown:     cfg.SignalCooldown,
	}
	if cfg.ScanInterval > 0 {
		rc.ScanInterval = cfg.ScanInterval
	}
	return rc
}

func latencyRunnerConfig(cfg config.LatencyConfig) detect.LatencyRunnerConfig {
	rc := detect.DefaultLatencyRunnerConfig()
	rc.Detector = detect.LatencyConfig{
		MinDeltaPct:         cfg.MinDeltaPct,
		StillCheapThreshold: decimal.NewFromFloat(cfg.StillCheapPrice),
		EntryWindowStartSec: rc.Detector.EntryWindowStartSec,
		EntryWindowEndSec:   rc.Detector.EntryWindowEndSec,
		SignalCooldown:      cfg.SignalCooldown,
	}
	if cfg.ScanInterval > 0 {
		rc.ScanInterval = cfg.ScanInterval
	}
	return rc
}

func gabagoolRunnerConfig(cfg config.GabagoolConfig) detect.GabagoolRunnerConfig {
	rc := detect.DefaultGabagoolRunnerConfig()
	rc.Detector = detect.GabagoolConfig{
		CheapThreshold:    decimal.NewFromFloat(cfg.CheapEntryPrice),
		MinReferenceDelta: cfg.MinReferenceDelta,
		MinElapsedSecs:    cfg.MinElapsedSec,
		PairCostThreshold: decimal.NewFromFloat(cfg.PairCostThreshold),
		ScratchTimeSecs:   cfg.ScratchTimeSec,
		ScratchLossLimit:  decimal.NewFromFloat(cfg.ScratchLossLimit),
	}
	if cfg.ScanInterval > 0 {
		rc.ScanInterval = cfg.ScanInterval
	}
	return rc
}

func crossMarketExecConfig(cfg *config.Config) autoexec.Config {
	c := autoexec.Config{
		KellyFraction:        decimal.NewFromFloat(cfg.Kelly.Fraction),
		MaxBet:               decimal.NewFromFloat(cfg.Kelly.MaxBet),
		MinEdge:              decimal.NewFromFloat(cfg.Kelly.MinEdge),
		MinSpread:            decimal.NewFromFloat(cfg.AutoExec.MinSpread),
		MinWinProbability:    cfg.AutoExec.MinWinProbability,
		MaxPositionPerWindow: decimal.NewFromFloat(cfg.AutoExec.MaxPositionPerWindow),
		FixedBetSize:         decimal.NewFromFloat(cfg.AutoExec.FixedBetSize),
		SessionID:            sessionID(),
		Live:                 cfg.Executor.Mode == "live",
	}
	if len(cfg.AutoExec.FilterPair) == 2 {
		pair := [2]types.Coin{types.Coin(cfg.AutoExec.FilterPair[0]), types.Coin(cfg.AutoExec.FilterPair[1])}
		c.FilterPair = &pair
	}
	if cfg.AutoExec.FilterCombination != "" {
		combo := types.CrossMarketCombination(cfg.AutoExec.FilterCombination)
		c.FilterCombination = &combo
	}
	return c
}

func directionalExecConfig(cfg *config.Config) autoexec.DirectionalConfig {
	return autoexec.DirectionalConfig{
		KellyFraction:        decimal.NewFromFloat(cfg.Kelly.Fraction),
		MaxBet:               decimal.NewFromFloat(cfg.Kelly.MaxBet),
		MinEdge:              decimal.NewFromFloat(cfg.Kelly.MinEdge),
		MinWinProbability:    cfg.AutoExec.MinWinProbability,
		MaxPositionPerWindow: decimal.NewFromFloat(cfg.AutoExec.MaxPositionPerWindow),
		FixedBetSize:         decimal.NewFromFloat(cfg.AutoExec.FixedBetSize),
		SessionID:            sessionID(),
		Live:                 cfg.Executor.Mode == "live",
	}
}

func sessionID() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

// buildExecutor selects and constructs the order backend. Live mode derives
// L2 API credentials once at startup if none were pre-configured.
//
// The venue's negRisk flag and tick size aren't carried anywhere in the
// catalog's market metadata today (Gamma's quote feed doesn't surface them
// for these binary windows), so both are fixed at the values every
// 15-minute Up/Down market on the venue has used historically: plain
// single-outcome books (no negRisk grouping), quoted to the cent.
func buildExecutor(cfg *config.Config, market bridge.MarketData, logger *slog.Logger) (exec.Executor, error) {
	if cfg.Executor.Mode != "live" {
		paperCfg := exec.DefaultPaperConfig()
		if cfg.Executor.FillRate > 0 {
			paperCfg.FillRate = cfg.Executor.FillRate
		}
		if cfg.Executor.RandomSeed != 0 {
			paperCfg.Seed = cfg.Executor.RandomSeed
		}
		if cfg.Executor.FeeRateBps != 0 {
			paperCfg.FeeRateBps = int64(cfg.Executor.FeeRateBps)
		}
		return exec.NewPaperExecutor(paperCfg, market), nil
	}

	auth, err := exchange.NewAuth(*cfg)
	if err != nil {
		return nil, fmt.Errorf("build auth: %w", err)
	}
	client := exchange.NewClient(*cfg, auth, logger)

	if cfg.API.ApiKey == "" {
		creds, err := client.DeriveAPIKey(context.Background())
		if err != nil {
			return nil, fmt.Errorf("derive api key: %w", err)
		}
		logger.Info("derived L2 API credentials", "api_key", creds.ApiKey)
	}

	return exec.NewLiveExecutor(client, false, types.Tick001), nil
}
