package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidewatch/intelsentry/internal/config"
	"github.com/tidewatch/intelsentry/internal/dispatch"
	"github.com/tidewatch/intelsentry/internal/engine"
	"github.com/tidewatch/intelsentry/internal/intel"
	"github.com/tidewatch/intelsentry/internal/logger"
	"github.com/tidewatch/intelsentry/internal/metrics"
	"github.com/tidewatch/intelsentry/internal/models"
	"github.com/tidewatch/intelsentry/internal/store"
	"github.com/tidewatch/intelsentry/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	var (
		evalStore     store.EvalStore
		dispatchStore store.DispatchStore
		history       *store.SQLite
	)
	if cfg.Storage.DBPath != "" {
		sq, err := store.NewSQLite(cfg.Storage.DBPath, cfg.Storage.MaxAlerts)
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		defer func() {
			if err := sq.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
		evalStore = sq.Eval()
		dispatchStore = sq.Dispatch()
		history = sq
		logger.Info("Durable state store opened at %s", cfg.Storage.DBPath)
	} else {
		evalStore = store.NewMemoryEvalStore()
		dispatchStore = store.NewMemoryDispatchStore()
		logger.Info("Using in-memory state stores (no cross-restart durability)")
	}

	intelClient := intel.NewClient(
		cfg.Intel.APIURL,
		cfg.Intel.Timeout,
		intel.ClientConfig{
			MaxRetries:          cfg.Intel.MaxRetries,
			RetryDelayBase:      cfg.Intel.RetryDelayBase,
			MaxIdleConns:        cfg.Intel.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.Intel.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.Intel.IdleConnTimeout,
		},
	)

	eng := engine.New(evalStore, engine.Config{
		MarketScoreThreshold: cfg.Alerts.MarketScoreThreshold,
		NewsScoreThreshold:   cfg.Alerts.NewsScoreThreshold,
		WhaleFlowThreshold:   cfg.Alerts.WhaleFlowThreshold,
		Cooldown:             cfg.Alerts.Cooldown,
	})

	var telegramClient *telegram.Client
	var dispatcher *dispatch.Dispatcher
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		dispatcher = dispatch.New(dispatchStore, telegramClient, dispatch.Config{
			ChannelCooldown: cfg.Dispatch.ChannelCooldown,
		})
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	rec := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("Serving metrics on %s", cfg.Metrics.ListenAddr)
			if err := metrics.ListenAndServe(cfg.Metrics.ListenAddr); err != nil {
				logger.Error("Metrics listener stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting alert service (interval: %v, market_threshold: %.1f, news_threshold: %.1f, whale_threshold: %.1f, cooldown: %v)",
		cfg.Intel.PollInterval,
		cfg.Alerts.MarketScoreThreshold,
		cfg.Alerts.NewsScoreThreshold,
		cfg.Alerts.WhaleFlowThreshold,
		cfg.Alerts.Cooldown,
	)

	ticker := time.NewTicker(cfg.Intel.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Evaluation cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial evaluation cycle")
	handleCycleResult(runCycle(ctx, intelClient, eng, dispatcher, history, rec, cfg))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled evaluation cycle")
			handleCycleResult(runCycle(ctx, intelClient, eng, dispatcher, history, rec, cfg))
		}
	}
}

// runCycle runs one synchronous evaluation cycle: fetch the snapshot,
// evaluate it, then dispatch at most one message.
func runCycle(
	ctx context.Context,
	intelClient *intel.Client,
	eng *engine.Engine,
	dispatcher *dispatch.Dispatcher,
	history *store.SQLite,
	rec *metrics.Recorder,
	cfg *config.Config,
) error {
	startTime := time.Now()
	logger.Debug("Fetching snapshot from %s", cfg.Intel.APIURL)

	snap, err := intelClient.FetchSnapshot(ctx)
	if err != nil {
		rec.RecordCycleFailure()
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	alerts := eng.Evaluate(*snap)
	logger.Info("Evaluated snapshot at %s: %d candidate alert(s)",
		snap.Timestamp.Format(time.RFC3339), len(alerts))

	for _, a := range alerts {
		rec.RecordCandidate(a.Type)
		logger.Debug("Candidate alert: type=%s severity=%s score=%.2f title=%q", a.Type, a.Severity, a.Score, a.Title)
		if history != nil {
			if err := history.LogAlert(a); err != nil {
				logger.Warn("Failed to log alert: %v", err)
			}
		}
	}

	if len(alerts) > 0 {
		if dispatcher != nil {
			contexts := buildContexts(cfg.Intel.Asset, *snap, alerts)
			results := dispatcher.Dispatch(ctx, snap.Timestamp, alerts, contexts)
			for _, r := range results {
				rec.RecordResult(r)
				if r.Dispatched {
					logger.Info("Dispatched %s alert (message %s)", r.Type, r.MessageID)
				} else {
					logger.Info("Did not dispatch %s alert: %s", r.Type, r.Reason)
				}
			}
		} else {
			logger.Debug("Candidates produced but Telegram notifications disabled")
		}
	}

	rec.RecordCycle(time.Since(startTime))
	logger.Info("Evaluation cycle completed in %v", time.Since(startTime))
	return nil
}

// buildContexts derives each candidate's formatting context from the same
// snapshot the engine evaluated. The dispatcher never computes this itself.
func buildContexts(asset string, snap models.Snapshot, alerts []models.CandidateAlert) map[string]models.AlertContext {
	newsByID := make(map[string]models.NewsItem, len(snap.News))
	for _, item := range snap.News {
		newsByID[item.ID] = item
	}

	contexts := make(map[string]models.AlertContext, len(alerts))
	for _, a := range alerts {
		switch a.Type {
		case models.AlertMarketState:
			contexts[a.ContextKey()] = models.AlertContext{Symbol: asset, Bias: snap.MarketBias, Category: "market"}
		case models.AlertWhaleActivity:
			contexts[a.ContextKey()] = models.AlertContext{Symbol: asset, Bias: snap.MarketBias, Category: "flow"}
		case models.AlertHighImpactNews:
			if item, ok := newsByID[a.RefID]; ok {
				contexts[a.ContextKey()] = models.AlertContext{Symbol: asset, Bias: item.Bias, Category: item.Category}
			}
		}
	}
	return contexts
}
