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

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/whalewatch/swarm/internal/config"
	"github.com/whalewatch/swarm/internal/dashboard"
	"github.com/whalewatch/swarm/internal/fetcher"
	"github.com/whalewatch/swarm/internal/indexer"
	"github.com/whalewatch/swarm/internal/logger"
	"github.com/whalewatch/swarm/internal/models"
	"github.com/whalewatch/swarm/internal/storage"
	"github.com/whalewatch/swarm/internal/swarm"
	"github.com/whalewatch/swarm/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// Initialize storage
	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	// Initialize indexer client and fetcher
	indexerClient := indexer.NewClient(
		cfg.Indexer.SubgraphURL,
		cfg.Indexer.Timeout,
		cfg.Indexer.MaxRetries,
		cfg.Indexer.RetryDelayBase,
	)
	fetch := fetcher.New(indexerClient, store, cfg.Indexer.Lookback, cfg.CopyFraction())

	// Initialize swarm detector
	detector := swarm.New(
		cfg.Monitor.SwarmWindow,
		cfg.Monitor.MinParticipants,
		cfg.Monitor.CountDistinctWallets,
		cfg.Monitor.AlertCooldown,
	)

	// Initialize Telegram client; missing credentials means notification is
	// disabled, not an error
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Start dashboard
	var dash *dashboard.Server
	if cfg.Dashboard.Enabled {
		dash = dashboard.NewServer(cfg.Dashboard.ListenAddr, cfg.Dashboard.MaxTrades, cfg.Dashboard.PushInterval)
		dash.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := dash.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shut down dashboard: %v", err)
			}
		}()
	}

	wallets := cfg.ActiveWallets()
	logger.Info("Starting swarm monitor (wallets: %d, mode: %s, interval: %v, window: %v, min_participants: %d, copy: %.1f%% of $%s)",
		len(wallets),
		cfg.Wallets.Mode,
		cfg.Monitor.PollInterval,
		cfg.Monitor.SwarmWindow,
		cfg.Monitor.MinParticipants,
		cfg.CopyTrade.Percent,
		humanize.Commaf(cfg.CopyTrade.Balance),
	)

	ticker := time.NewTicker(cfg.Monitor.PollInterval)
	defer ticker.Stop()

	var cycleCount int64
	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
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

	// Run initial poll immediately
	logger.Debug("Running initial monitoring cycle")
	cycleCount++
	handleCycleResult(runMonitoringCycle(ctx, fetch, store, detector, telegramClient, dash, cfg, wallets, cycleCount, time.Now()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case tickTime := <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			cycleCount++
			handleCycleResult(runMonitoringCycle(ctx, fetch, store, detector, telegramClient, dash, cfg, wallets, cycleCount, tickTime))
		}
	}
}

// runMonitoringCycle executes one pass of the pipeline: fetch new trades,
// merge them into the window, prune by age, detect swarms, notify on the
// ones not alerted recently, and publish a read-only snapshot for the
// dashboard. Per-wallet fetch failures are warnings; only storage failures
// fail the cycle.
func runMonitoringCycle(
	ctx context.Context,
	fetch *fetcher.Fetcher,
	store *storage.Storage,
	detector *swarm.Detector,
	telegramClient *telegram.Client,
	dash *dashboard.Server,
	cfg *config.Config,
	wallets []string,
	cycleCount int64,
	cycleTime time.Time, // tick time (or startup time for the initial cycle)
) error {
	startTime := time.Now()
	logger.Debug("Starting monitoring cycle %d", cycleCount)

	newTrades, fetchErrors := fetch.FetchCycle(ctx, wallets)
	warnings := make([]string, 0, len(fetchErrors))
	for _, fetchErr := range fetchErrors {
		logger.Warn("%v", fetchErr)
		warnings = append(warnings, fetchErr.Error())
	}

	if err := store.InsertTrades(newTrades); err != nil {
		return fmt.Errorf("failed to append trades: %w", err)
	}

	pruned, err := store.Prune(cycleTime, cfg.Monitor.Retention)
	if err != nil {
		return fmt.Errorf("failed to prune window: %w", err)
	}

	window, err := store.RecentTrades(cycleTime, cfg.Monitor.Retention)
	if err != nil {
		return fmt.Errorf("failed to read trade window: %w", err)
	}
	logger.Info("Cycle %d: %d new trades, %d pruned, window size %d", cycleCount, len(newTrades), pruned, len(window))

	swarms := detector.Detect(window, cycleTime)
	fresh := detector.FilterAlerted(swarms, cycleTime)

	if len(fresh) > 0 {
		logger.Info("Detected %d swarms (%d not yet alerted)", len(swarms), len(fresh))
		notifySwarms(store, detector, telegramClient, fresh, cycleTime)
	} else if len(swarms) > 0 {
		logger.Debug("All %d active swarms already alerted within cooldown", len(swarms))
	}

	if dash != nil {
		alerts, err := store.RecentAlerts(20)
		if err != nil {
			logger.Warn("Failed to load alert history: %v", err)
			alerts = []models.Alert{}
		}
		dash.Publish(dashboard.Snapshot{
			UpdatedAt:   cycleTime,
			WalletCount: len(wallets),
			CycleCount:  cycleCount,
			Trades:      window,
			Swarms:      swarms,
			Alerts:      alerts,
			Warnings:    warnings,
		})
	}

	logger.Debug("Monitoring cycle completed in %v", time.Since(startTime))
	return nil
}

// notifySwarms dispatches one alert for the freshly detected swarms and
// records the outcome. Swarms are marked as alerted only after a successful
// send, so a failed dispatch is retried on the next cycle. A dispatch
// failure never propagates.
func notifySwarms(
	store *storage.Storage,
	detector *swarm.Detector,
	telegramClient *telegram.Client,
	fresh []models.Swarm,
	cycleTime time.Time,
) {
	if telegramClient == nil {
		logger.Debug("Swarms detected but notifications are disabled")
		return
	}

	sent := true
	if err := telegramClient.Send(fresh); err != nil {
		logger.Error("Failed to send swarm alert: %v", err)
		sent = false
	} else {
		detector.MarkAlerted(fresh, cycleTime)
		logger.Info("Sent swarm alert covering %d swarms", len(fresh))
	}

	for _, s := range fresh {
		alert := models.Alert{
			ID:          uuid.New().String(),
			GroupKey:    s.GroupKey,
			Summary:     summarizeAlert(s),
			Wallets:     s.Wallets,
			TotalVolume: s.TotalVolume,
			SentAt:      cycleTime,
			Success:     sent,
		}
		if err := store.RecordAlert(&alert); err != nil {
			logger.Warn("Failed to record alert for %s: %v", s.GroupKey, err)
		}
	}
}

// summarizeAlert renders the plain-text one-liner kept in the alert history.
func summarizeAlert(s models.Swarm) string {
	return fmt.Sprintf("SWARM (%d whales): %s - %s | Vol: $%s | Copy: $%s",
		s.Wallets,
		s.MarketTitle,
		s.Outcome,
		humanize.CommafWithDigits(s.TotalVolume, 0),
		humanize.CommafWithDigits(s.CopyAmount, 2),
	)
}
