package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DailyBias/internal/app"
	"DailyBias/internal/chart"
	"DailyBias/internal/config"
	"DailyBias/internal/fetcher"
	"DailyBias/internal/recorder"
	"DailyBias/internal/scheduler"
	"DailyBias/internal/seriescache"
	"DailyBias/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] DailyBias starting...")

	// Load .env if present, then config
	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded .env")
	}
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

	// Init series cache
	var cache seriescache.Cache
	if cfg.Database.SQLitePath != "" {
		maxAge := time.Duration(cfg.DataSource.CacheMaxAgeHrs) * time.Hour
		sc, err := seriescache.NewSQLiteCache(cfg.Database.SQLitePath, maxAge)
		if err != nil {
			log.Printf("[WARN] init series cache failed, using noop: %v", err)
			cache = seriescache.NewNoopCache()
		} else {
			cache = sc
			defer sc.Close()
		}
	} else {
		cache = seriescache.NewNoopCache()
	}

	// Init fetchers: crypto always CoinGecko; equities prefer Alpha
	// Vantage when a key is configured, otherwise Yahoo.
	crypto := fetcher.NewCoinGeckoFetcher(cfg.Proxy)
	var equities fetcher.Fetcher
	if cfg.DataSource.AlphaVantageKey != "" {
		equities = fetcher.NewAlphaVantageFetcher(cfg.DataSource.AlphaVantageKey, cfg.Proxy)
	} else {
		equities = fetcher.NewYahooFetcher(cfg.Proxy)
	}
	log.Printf("[INFO] data sources: crypto=%s equities=%s", crypto.Name(), equities.Name())

	// Init attempt recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init attempt recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init application context and build all quiz sets before serving
	a := app.New(cfg, cache, chart.NewCandleRenderer(), crypto, equities)
	a.BuildAll(ctx)

	// Init refresh scheduler
	sched := scheduler.NewScheduler(ctx, a)
	if err := sched.Register(cfg.Quiz.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register refresh task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Init HTTP server
	srv, err := server.NewServer(server.Params{
		ListenAddr: cfg.Server.ListenAddr,
		StaticDir:  cfg.Server.StaticDir,
	}, a, rec)
	if err != nil {
		log.Fatalf("[FATAL] init server: %v", err)
	}

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Printf("[ERROR] http server: %v", err)
			cancel()
		}
	}()

	log.Println("[INFO] DailyBias is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] DailyBias stopped")
}
