package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/data"
	"github.com/portfolio-engine/data/cache"
	"github.com/portfolio-engine/data/repository/postgres"
	"github.com/portfolio-engine/internal/externalApi/brokerApi"
	"github.com/portfolio-engine/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/portfolio-engine/internal/externalApi/fundamentalsApi"
	"github.com/portfolio-engine/internal/pricefeed"
	"github.com/portfolio-engine/internal/reportGenerator/xlsxGenerator"
	"github.com/portfolio-engine/internal/service/refreshService"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	brokerApiClient := brokerApi.New(cfg)
	fundamentalsApiClient := fundamentalsApi.New(cfg)

	priceFeed := pricefeed.New(brokerApiClient, redisCache, fundamentalsApiClient)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	refreshSrv := refreshService.New(cfg, pgRepo, priceFeed, reportGenerator, googleCloudStorage)

	if _, err := refreshSrv.Start(ctx); err != nil {
		slog.Error("failed to start refresh service", slog.String("err", err.Error()))
		panic(err)
	}
	defer refreshSrv.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
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
