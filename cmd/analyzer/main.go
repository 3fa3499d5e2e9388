package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"PortfolioLab/internal/config"
	"PortfolioLab/internal/fetcher"
	"PortfolioLab/internal/recorder"
	"PortfolioLab/internal/runner"
	"PortfolioLab/internal/scheduler"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}
	log.Info().Str("config", cfgPath).Msg("PortfolioLab starting")

	// Init fetcher with per-symbol routing
	fetch := buildFetcher(cfg, log)
	log.Info().Str("source", fetch.Name()).Msg("data source ready")

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	run := runner.New(cfg, fetch, rec, log)

	// Without a cron expression, run once and exit.
	if cfg.Schedule.Cron == "" {
		if err := run.Run(); err != nil {
			log.Fatal().Err(err).Msg("analysis run failed")
		}
		return
	}

	sched := scheduler.New(log)
	if err := sched.Register(cfg.Schedule.Cron, func() {
		if err := run.Run(); err != nil {
			log.Error().Err(err).Msg("scheduled run failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("register cron job")
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing analysis now")
		go func() {
			if err := run.Run(); err != nil {
				log.Error().Err(err).Msg("startup run failed")
			}
		}()
	}

	log.Info().Str("cron", cfg.Schedule.Cron).Msg("PortfolioLab is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
}

// buildFetcher assembles the provider stack: a default provider plus
// per-symbol routes from config.
func buildFetcher(cfg *config.Config, log zerolog.Logger) fetcher.Fetcher {
	byName := func(name string) fetcher.Fetcher {
		switch name {
		case "alphavantage":
			return fetcher.NewAlphaVantageFetcher(cfg.DataSource.AlphaVantageKey, log)
		case "mock":
			return &fetcher.MockFetcher{BasePrice: 100}
		default:
			return fetcher.NewYahooFetcher(cfg.DataSource.Proxy, log)
		}
	}

	def := byName(cfg.DataSource.Default)
	if len(cfg.DataSource.BySymbol) == 0 {
		return def
	}

	multi := fetcher.NewMultiFetcher(def)
	cache := map[string]fetcher.Fetcher{cfg.DataSource.Default: def}
	for symbol, provider := range cfg.DataSource.BySymbol {
		f, ok := cache[provider]
		if !ok {
			f = byName(provider)
			cache[provider] = f
		}
		multi.Route(fetcher.ResolveIndex(symbol), f)
	}
	return multi
}
