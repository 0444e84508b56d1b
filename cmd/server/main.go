package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	webAdapter "farmgate/internal/adapters/web"
	"farmgate/internal/app"
	"farmgate/internal/cache"
	"farmgate/internal/config"
	"farmgate/internal/core"
	"farmgate/internal/db"
	"farmgate/internal/notify"
	"farmgate/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	loc, err := time.LoadLocation(cfg.FarmTimezone)
	if err != nil {
		logger.Fatal("invalid FARM_TIMEZONE", zap.String("tz", cfg.FarmTimezone), zap.Error(err))
	}

	var summaries cache.SummaryCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, summary caching disabled", zap.Error(err))
		} else {
			summaries = redisCache
			defer func() { _ = redisCache.Close() }()
		}
	}

	pricing := core.NewPricingEngine()
	orders := core.NewOrderService(pool, pricing, loc)
	payments := core.NewPaymentService(pool, pricing)
	returns := core.NewReturnService(pool)
	sender := notify.NewLogSender(logger)

	svc := app.NewApplicationService(
		orders, payments, returns,
		summaries, sender, logger,
		time.Duration(cfg.SummaryTTLSecs)*time.Second,
	)

	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, logger)

	logger.Info("server starting", zap.String("addr", cfg.Address()))
	if err := http.ListenAndServe(cfg.Address(), handler); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
