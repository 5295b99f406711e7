package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SetupSentinel/internal/collector"
	"SetupSentinel/internal/config"
	"SetupSentinel/internal/display"
	"SetupSentinel/internal/logger"
	"SetupSentinel/internal/metrics"
	"SetupSentinel/internal/notifier"
	"SetupSentinel/internal/scheduler"
	"SetupSentinel/internal/strategy"

	"go.uber.org/zap"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	// The dashboard owns the terminal, so logs go to a file while it runs.
	logFile := ""
	if cfg.UI.Enabled {
		logFile = cfg.Log.File
	}
	if err := logger.Init(cfg.Log.Level, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("SetupSentinel starting", zap.String("config", cfgPath))

	params, err := strategy.NewParams(cfg.Strategy)
	if err != nil {
		logger.Fatal("strategy params", zap.Error(err))
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init fetcher; without a data session nothing can run.
	fetcher := newFetcher(cfg)
	connectCtx, cancel := context.WithTimeout(ctx, time.Minute)
	err = fetcher.Connect(connectCtx)
	cancel()
	if err != nil {
		logger.Fatal("connect data source", zap.String("source", fetcher.Name()), zap.Error(err))
	}
	logger.Info("data source connected", zap.String("source", fetcher.Name()))

	col := collector.NewCollector(fetcher, cfg.Slow, cfg.Fast)

	var disp display.Display = display.NewLogDisplay()
	var ui *display.TermUI
	if cfg.UI.Enabled {
		ui = display.NewTermUI(cfg.Symbols)
		disp = ui
	}

	m := metrics.New()
	health := metrics.NewHealth(3 * cfg.PollInterval())
	var metricsSrv *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = metrics.NewServer(cfg.Metrics.Addr, m, health)
		metricsSrv.Start()
	}

	sup := scheduler.NewSupervisor(cfg.Symbols, cfg.PollInterval(), cfg.NotifyCooldown(), scheduler.Deps{
		Collector: col,
		Params:    params,
		Notifier:  newNotifier(cfg),
		Display:   disp,
		Metrics:   m,
		Health:    health,
	})
	if err := sup.Start(ctx); err != nil {
		logger.Fatal("start supervisor", zap.Error(err))
	}

	if ui != nil {
		// Quitting the dashboard stops the process.
		if err := ui.Run(ctx); err != nil {
			logger.Error("terminal ui", zap.Error(err))
		}
		stop()
	} else {
		logger.Info("SetupSentinel is running. Press Ctrl+C to stop.")
		<-ctx.Done()
	}

	logger.Info("shutdown signal received, stopping...")
	sup.Stop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsSrv.Stop(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
		cancel()
	}
	if err := fetcher.Close(); err != nil {
		logger.Warn("close data source", zap.Error(err))
	}
	logger.Info("SetupSentinel stopped")
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	var f collector.Fetcher
	switch cfg.DataSource.Type {
	case "bridge":
		f = collector.NewBridgeFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "sqlite":
		return collector.NewSQLiteFetcher(cfg.DataSource.SQLitePath)
	default:
		f = collector.NewYahooFetcher(cfg.Proxy)
	}
	if cfg.DataSource.RecordPath != "" {
		f = collector.NewRecordingFetcher(f, collector.NewSQLiteFetcher(cfg.DataSource.RecordPath))
	}
	return f
}

func newNotifier(cfg *config.Config) notifier.Notifier {
	channels := notifier.Multi{notifier.NewLogNotifier()}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		channels = append(channels, notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy))
	}
	if cfg.Webhook.URL != "" {
		channels = append(channels, notifier.NewWebhookNotifier(cfg.Webhook.URL))
	}
	return channels
}
