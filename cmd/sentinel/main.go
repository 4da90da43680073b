package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"LedgerSentinel/internal/balance"
	"LedgerSentinel/internal/budget"
	"LedgerSentinel/internal/config"
	"LedgerSentinel/internal/event"
	"LedgerSentinel/internal/forecast"
	"LedgerSentinel/internal/mandate"
	"LedgerSentinel/internal/notifier"
	"LedgerSentinel/internal/recorder"
	"LedgerSentinel/internal/recurring"
	"LedgerSentinel/internal/scheduler"
	"LedgerSentinel/internal/source"
	"LedgerSentinel/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] LedgerSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Transaction source
	src := source.NewFileSource(cfg.Data.ExportFile)
	log.Printf("[INFO] transaction source: %s", src.Name())

	// Event fan-out
	em := event.NewEmitter()
	em.Subscribe(notifier.NewConsoleNotifier())

	// Engines, each with its own state document
	reg := recurring.NewRegistry(mustStore(cfg, "recurring"), em, recurring.Options{
		ChangePercent: cfg.Thresholds.PriceChangePercent,
		GraceDays:     cfg.Thresholds.MissedGraceDays,
		ExtraServices: cfg.Recurring.SubscriptionServices,
	})
	man := mandate.NewDetector(mustStore(cfg, "mandates"), em, mandate.Options{
		DirectDebitMarkers:   cfg.Mandates.DirectDebitMarkers,
		StandingOrderMarkers: cfg.Mandates.StandingOrderMarkers,
	})
	bud := budget.NewTracker(mustStore(cfg, "budgets"), em, budget.Options{})
	fc := forecast.NewForecaster(mustStore(cfg, "forecast"), forecast.Options{
		ProtectedFloor: cfg.Forecast.ProtectedFloor,
	})
	bal := balance.NewMonitor(mustStore(cfg, "balance"), em, balance.Options{
		LowBalance:      cfg.Thresholds.LowBalance,
		OverdraftBuffer: cfg.Thresholds.OverdraftBuffer,
		LargeWithdrawal: cfg.Thresholds.LargeWithdrawal,
		LargeDeposit:    cfg.Thresholds.LargeDeposit,
	})

	// Telegram notifier (optional)
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		em.Subscribe(notifier.NewTelegramAlerts(tn))
	}

	// Recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	em.Subscribe(recorder.NewEventBridge(rec))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduler
	sched := scheduler.NewScheduler(ctx, src, reg, man, bud, fc, bal, tn, rec)
	if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.MissedCron, cfg.Schedule.BalanceCron, cfg.Schedule.DigestCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Telegram command polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing scan now")
		go sched.RunScanNow()
	}

	log.Println("[INFO] LedgerSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] LedgerSentinel stopped")
}

func mustStore(cfg *config.Config, name string) *store.FileStore {
	st, err := store.NewFileStore(cfg.StateFile(name))
	if err != nil {
		log.Fatalf("[FATAL] init %s store: %v", name, err)
	}
	return st
}
