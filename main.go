package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"restaurant-scraper/config"
	"restaurant-scraper/scraper/naverplace"
	"restaurant-scraper/server"
	"restaurant-scraper/services"
	"restaurant-scraper/storage"
	"restaurant-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Restaurant Scraper Service starting ===")
	logger.Info("Config — env: %s | hosted browser: %v | concurrency: %d | rate: %dms",
		cfg.Environment, cfg.Hosted, cfg.MaxConcurrency, cfg.RateLimitMs)

	ctx := context.Background()

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}

	store, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoCollection, retry)
	if err != nil {
		logger.Error("Failed to connect to MongoDB: %v", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())
	logger.Info("Connected to MongoDB (%s/%s)", cfg.MongoDB, cfg.MongoCollection)

	var cache services.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable (%v) — running without read cache", err)
		} else {
			cache = storage.NewRecordCache(rdb, time.Duration(cfg.CacheTTLSec)*time.Second)
			logger.Info("Read cache enabled (redis at %s)", cfg.RedisAddr)
		}
	}

	var prov naverplace.Provisioner
	if cfg.Hosted {
		prov = &naverplace.HostedProvisioner{Bin: cfg.ChromeBin}
	} else {
		prov = &naverplace.LocalProvisioner{Bin: cfg.ChromeBin}
	}

	scraper := naverplace.New(prov, logger)
	svc := services.NewRestaurantService(store, cache, scraper, logger,
		cfg.MaxConcurrency, cfg.RateLimitMs)

	router := server.SetupRouter(cfg.Environment, server.NewHandler(svc, logger), logger)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	go func() {
		logger.Info("Admin API listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown: %v", err)
	}
}
