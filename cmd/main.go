package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/data"
	"github.com/KotFed0t/invest_advice_bot/data/cache"
	"github.com/KotFed0t/invest_advice_bot/data/repository/memory"
	"github.com/KotFed0t/invest_advice_bot/data/repository/postgres"
	"github.com/KotFed0t/invest_advice_bot/data/session"
	"github.com/KotFed0t/invest_advice_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/invest_advice_bot/internal/externalApi/yahooApi"
	"github.com/KotFed0t/invest_advice_bot/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/invest_advice_bot/internal/scheduler"
	"github.com/KotFed0t/invest_advice_bot/internal/service/analysisService"
	"github.com/KotFed0t/invest_advice_bot/internal/service/portfolioService"
	"github.com/KotFed0t/invest_advice_bot/internal/tgbot"
	"github.com/KotFed0t/invest_advice_bot/internal/transport/httpApi"
	"github.com/KotFed0t/invest_advice_bot/internal/transport/telegram"
	"github.com/KotFed0t/invest_advice_bot/internal/usageLedger"
	"github.com/redis/go-redis/v9"
)

type repository interface {
	analysisService.Repository
	portfolioService.Repository
	usageLedger.Repository
}

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	decimal.MarshalJSONWithoutQuotes = true

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		var err error
		redisClient, err = data.NewRedisClient(ctx, cfg)
		if err != nil {
			slog.Error("can't connect redis", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	var repo repository
	var quoteCache portfolioService.QuoteCache

	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		pgClient, err := data.NewPostgresClient(ctx, cfg)
		if err != nil {
			slog.Error("can't connect postgres", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer pgClient.Close()

		repo = postgres.NewPostgres(cfg, pgClient)
		quoteCache = cache.NewRedisCache(redisClient, cfg)
	default:
		repo = memory.New()

		memoryCache, err := cache.NewMemoryCache(cfg)
		if err != nil {
			slog.Error("can't create memory cache", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer memoryCache.Close()
		quoteCache = memoryCache
	}

	quoteSource := yahooApi.New(cfg)

	ledger := usageLedger.New(cfg, repo)

	reportGenerator := xslsxGenerator.New()

	// left as a nil interface when disabled, a typed nil would defeat the service check
	var cloudStorage portfolioService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		driveApi, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("can't create google drive client", slog.String("err", err.Error()))
			os.Exit(1)
		}
		cloudStorage = driveApi
	}

	analysisSrv := analysisService.New(cfg, repo, ledger, quoteSource, quoteCache)
	portfolioSrv := portfolioService.New(repo, quoteCache, quoteSource, ledger, reportGenerator, cloudStorage)

	sched, err := scheduler.New()
	if err != nil {
		slog.Error("can't create scheduler", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if err = sched.NewIntervalJob("refresh quote cache", portfolioSrv.RefreshQuoteCache, cfg.Jobs.RefreshQuoteCacheInterval, false); err != nil {
		slog.Error("can't schedule quote cache refresh", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if cloudStorage != nil {
		if err = sched.NewIntervalJob("cleanup reports", portfolioSrv.CleanupReports, cfg.Jobs.CleanupReportsInterval, true); err != nil {
			slog.Error("can't schedule reports cleanup", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Telegram.Enabled {
		redisSession := session.NewRedisSession(redisClient, cfg.SessionExpiration)

		tgController := telegram.NewController(cfg, analysisSrv, portfolioSrv, ledger, redisSession)

		tgBot, err := tgbot.New(cfg, tgController)
		if err != nil {
			slog.Error("can't create telegram bot", slog.String("err", err.Error()))
			os.Exit(1)
		}
		tgBot.Start()
		defer tgBot.Stop()
	}

	httpHandler := httpApi.NewHandler(cfg, analysisSrv, portfolioSrv, ledger)
	httpServer := httpApi.New(cfg, httpHandler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-interrupt:
	case err = <-serverErr:
		if err != nil {
			slog.Error("http server stopped", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
