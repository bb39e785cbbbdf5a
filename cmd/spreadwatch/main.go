package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/application/service"
	"spreadwatch/internal/infrastructure/config"
	"spreadwatch/internal/infrastructure/exchange/binance"
	"spreadwatch/internal/infrastructure/exchange/gate"
	"spreadwatch/internal/infrastructure/exchange/okx"
	"spreadwatch/internal/infrastructure/fees"
	"spreadwatch/internal/infrastructure/logger"
	"spreadwatch/internal/infrastructure/poll"
	"spreadwatch/internal/infrastructure/storage/composite"
	"spreadwatch/internal/infrastructure/storage/postgres"
	"spreadwatch/internal/infrastructure/storage/sqlite"
	"spreadwatch/internal/infrastructure/store"
	"spreadwatch/internal/infrastructure/stream"
	"spreadwatch/internal/interfaces/httpapi"
)

func main() {
	logger.Setup("info")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	if cfg.App.LogLevel != "" {
		logger.Setup(cfg.App.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 行情缓存：默认纯内存，配置了 redis 时改用 redis
	ttl := time.Duration(cfg.Store.TTLSeconds) * time.Second
	var marketStore port.MarketStore
	if cfg.Store.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		marketStore = store.NewRedis(rdb, ttl)
		log.Info().Str("addr", cfg.Store.RedisAddr).Msg("using redis market store")
	} else {
		marketStore = store.NewMemory(ttl)
	}

	schedule := fees.NewStatic()
	market := service.NewMarketService(marketStore, schedule)

	// 持久层：sqlite 必开，postgres 可选，同时配置时双写
	repo, err := buildRepository(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open snapshot repository failed")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn().Err(err).Msg("close repository")
		}
	}()

	// 推送型交易所
	manager := stream.NewManager()
	if cfg.Exchange.Binance.Enabled {
		manager.Register(binance.NewFuturesHandler(cfg.Exchange.Binance.FuturesWsURL, cfg.Symbols.List, marketStore))
		manager.Register(binance.NewSpotHandler(cfg.Exchange.Binance.SpotWsURL, cfg.Symbols.List, marketStore))
	}
	if cfg.Exchange.Okx.Enabled {
		manager.Register(okx.New(cfg.Exchange.Okx.WsURL, cfg.Symbols.List, marketStore))
	}
	manager.ConnectAll()

	// 轮询型交易所
	var sources []port.PollSource
	if cfg.Exchange.Gate.Enabled {
		sources = append(sources, gate.New(cfg.Exchange.Gate.BaseURL, cfg.Symbols.List, marketStore))
	}
	scheduler := poll.NewScheduler(sources, time.Duration(cfg.Poll.IntervalMs)*time.Millisecond)
	scheduler.Start(ctx)

	// 只读 API
	server := httpapi.NewServer(cfg.App.HTTPListen, market, repo)
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("http server exited")
			stop()
		}
	}()

	detector := service.NewSpreadDetector(market, schedule, repo, cfg.Symbols.List, decimal.NewFromFloat(cfg.Detector.ThresholdPct))
	detector.SetTiming(
		time.Duration(cfg.Detector.IntervalMs)*time.Millisecond,
		time.Duration(cfg.Detector.InitialDelaySec)*time.Second,
	)

	log.Info().
		Str("config", *configPath).
		Int("symbols", len(cfg.Symbols.List)).
		Float64("threshold_pct", cfg.Detector.ThresholdPct).
		Msg("spreadwatch started")

	detector.Run(ctx)

	// 有序关停：信号触发后到这里，采集端先停，再收 HTTP
	manager.ShutdownAll()
	scheduler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}

	log.Info().Msg("spreadwatch stopped")
}

func buildRepository(cfg *config.Config) (port.SnapshotRepository, error) {
	sqliteRepo, err := sqlite.New(cfg.Storage.SqlitePath)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.PostgresDSN == "" {
		return sqliteRepo, nil
	}
	pgRepo, err := postgres.New(cfg.Storage.PostgresDSN)
	if err != nil {
		sqliteRepo.Close()
		return nil, err
	}
	return composite.New(sqliteRepo, pgRepo), nil
}
