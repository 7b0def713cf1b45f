package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/alert"
	"hostsentry/internal/config"
	"hostsentry/internal/history"
	"hostsentry/internal/monitor"
	"hostsentry/internal/notify"
	"hostsentry/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("HostSentry v1.0.0\nBuild: %s\n", getBuildInfo())
		os.Exit(0)
	}

	// Load configuration, writing defaults on first run
	cfg, err := config.LoadOrCreate(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"auth_log":    cfg.Monitoring.AuthLogPath,
	}).Info("Starting HostSentry")

	// Notification history archive
	historyDB, err := history.NewStore(cfg.Monitoring.HistoryPath)
	if err != nil {
		logrus.Fatalf("Failed to initialize history store: %v", err)
	}
	defer historyDB.Close()

	// Alert dispatcher over the persisted ledger
	telegram := notify.NewTelegramClient(&cfg.Telegram)
	ledger := alert.NewLedger(cfg.Monitoring.LedgerPath)
	dispatcher := alert.NewDispatcher(ledger, telegram, cfg)
	dispatcher.SetRecorder(historyDB)

	// Detection loop
	scheduler := monitor.NewScheduler(*configFile, cfg, dispatcher)

	// Web server, also the live event stream for the dispatcher
	webServer := web.NewServer(*configFile, cfg, dispatcher, historyDB, telegram)
	dispatcher.SetPublisher(webServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Run(ctx)
	go webServer.Start(ctx)
	go runHistoryCleanup(ctx, historyDB)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Web server shutdown error")
	}

	// Give in-flight deliveries time to finish
	time.Sleep(2 * time.Second)
	logrus.Info("Shutdown complete")
}

// runHistoryCleanup prunes the notification archive once a day, keeping
// thirty days of entries.
func runHistoryCleanup(ctx context.Context, store *history.Store) {
	const retention = 30 * 24 * time.Hour

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.Cleanup(retention); err != nil {
				logrus.WithError(err).Warn("History cleanup failed")
			}
		}
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

func getBuildInfo() string {
	return "dev-build"
}
