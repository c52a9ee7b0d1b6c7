package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	docs "main/docs"
	appassets "main/internal/application/service/assets"
	appaudit "main/internal/application/service/audit"
	appportfolio "main/internal/application/service/portfolio"
	"main/internal/config"
	"main/internal/domain/interfaces"
	infraaccess "main/internal/infrastructure/access"
	infrabroker "main/internal/infrastructure/broker"
	inframarketdata "main/internal/infrastructure/marketdata"
	infraportfolio "main/internal/infrastructure/portfolio"
	infrahttp "main/internal/interfaces/http"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Host = cfg.HTTP.Addr()

	ledgerRepo, err := infraportfolio.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init ledger repo: %v", err)
	}
	defer ledgerRepo.Close()

	accessRepo, err := infraaccess.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init access repo: %v", err)
	}
	defer accessRepo.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	priceTTL := time.Duration(cfg.MarketData.PriceTTLSeconds) * time.Second
	marketData := inframarketdata.NewClient(cfg.MarketData.BaseURL, redisClient, priceTTL, logger)

	var publisher interfaces.TransactionPublisher
	if cfg.RabbitMQ.URL != "" {
		brokerPublisher, err := infrabroker.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer brokerPublisher.Close()
		publisher = brokerPublisher
	}

	resolver := appassets.NewResolver(ledgerRepo, marketData, logger)
	recorder := appaudit.NewRecorder()
	portfolioService := appportfolio.NewService(
		ledgerRepo,
		ledgerRepo,
		resolver,
		accessRepo,
		marketData,
		recorder,
		publisher,
		logger,
	)

	handler := infrahttp.NewHandler(portfolioService)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: handler,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTP.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}
	logger.Info("server stopped")
}
