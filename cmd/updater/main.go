package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"EtfVolatility/internal/collector"
	"EtfVolatility/internal/config"
	"EtfVolatility/internal/model"
	"EtfVolatility/internal/notifier"
	"EtfVolatility/internal/observability"
	"EtfVolatility/internal/scheduler"
	"EtfVolatility/internal/storage"
	"EtfVolatility/internal/updater"
	"EtfVolatility/internal/vix"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] EtfVolatility starting...")

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
	instruments := cfg.InstrumentList()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{}
	default:
		fetcher = collector.NewTushareFetcher(cfg.Tushare.BaseURL, cfg.Tushare.Token, cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init store
	var store storage.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		ss, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("[FATAL] init sqlite store: %v", err)
		}
		if dir := os.Getenv("IMPORT_OPTIONS_DIR"); dir != "" {
			importOptionChains(ss, dir, instruments)
		}
		store = ss
	default:
		cs, err := storage.NewCSVStore(cfg.Storage.DataDir)
		if err != nil {
			log.Fatalf("[FATAL] init csv store: %v", err)
		}
		store = cs
	}
	defer store.Close()

	metrics := observability.NewMetrics("etf_volatility")
	upd := updater.New(updater.Options{
		Fetcher:    fetcher,
		Store:      store,
		Aggregator: vix.NewAggregator(cfg.Analytics.RiskFreeRate),
		Metrics:    metrics,
		Workers:    cfg.Workers,
		Epoch:      cfg.Epoch(),
	})

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if os.Getenv("RUN_ONCE") == "true" {
		reports, err := upd.UpdateAll(ctx, instruments)
		if err != nil {
			log.Fatalf("[FATAL] update: %v", err)
		}
		if err := notifier.WriteSummaryTable(os.Stdout, reports); err != nil {
			log.Printf("[ERROR] write summary: %v", err)
		}
		if cfg.TelegramEnabled() {
			tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
			if err := tn.SendWithRetry(ctx, notifier.FormatUpdateReport(reports, time.Now()), 3); err != nil {
				log.Printf("[ERROR] send notification: %v", err)
			}
		}
		return
	}

	// Metrics endpoint
	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] metrics server: %v", err)
			}
		}()
		log.Printf("[INFO] metrics listening on %s", cfg.Metrics.Addr)
	}

	// Init Telegram notifier
	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Println("[WARN] telegram not configured, notifications disabled")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, upd, store, instruments, sender)
	if err := sched.RegisterAll(cfg.Schedule.DailyCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing update now")
		go sched.HandleCommand("/update")
	}

	log.Println("[INFO] EtfVolatility is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
	log.Println("[INFO] EtfVolatility stopped")
}

// importOptionChains loads {dir}/{code}_processed.csv into the SQLite store
// for every instrument that has one.
func importOptionChains(store *storage.SQLiteStore, dir string, instruments []model.Instrument) {
	for _, inst := range instruments {
		path := filepath.Join(dir, inst.Code+"_processed.csv")
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Printf("[WARN] open option chain %s: %v", path, err)
			continue
		}
		quotes, err := storage.ReadOptionChainCSV(f)
		f.Close()
		if err != nil {
			log.Printf("[WARN] parse option chain %s: %v", path, err)
			continue
		}
		if err := store.ImportOptionChain(inst.Code, quotes); err != nil {
			log.Printf("[WARN] import option chain %s: %v", inst.Code, err)
			continue
		}
		log.Printf("[INFO] imported %d option quotes for %s", len(quotes), inst.Code)
	}
}
