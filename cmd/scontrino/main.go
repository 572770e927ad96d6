package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"scontrino/internal/amqp"
	"scontrino/internal/cache"
	"scontrino/internal/category"
	"scontrino/internal/config"
	"scontrino/internal/extract"
	"scontrino/internal/extract/gemini"
	apphttp "scontrino/internal/http"
	applog "scontrino/internal/log"
	"scontrino/internal/remote"
	"scontrino/internal/service"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cacheStore, err := cache.NewStore(cfg.CacheDBPath)
	if err != nil {
		logger.Error("Failed to open cache store", "error", err, "path", cfg.CacheDBPath)
		os.Exit(1)
	}
	defer cacheStore.Close()

	remoteStore, err := remote.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("Invalid Postgres configuration", "error", err)
		os.Exit(1)
	}
	defer remoteStore.Close()

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, receipt events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
		}
	} else {
		logger.Info("No AMQP URL configured, receipt events disabled")
	}

	receipts := service.NewReceiptService(remoteStore, cacheStore, events, time.Now)

	monitor := service.NewMonitor(remoteStore, receipts, service.MonitorConfig{
		ProbeInterval: cfg.ProbeInterval,
		ProbeTimeout:  cfg.ProbeTimeout,
	})
	if err := monitor.Start(ctx); err != nil {
		logger.Error("Failed to start connectivity monitor", "error", err)
		os.Exit(1)
	}

	engine := category.NewEngine()
	normalizer := extract.NewNormalizer(engine, time.Now)
	extractor := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	if !extractor.IsAvailable() {
		logger.Info("No Gemini API key configured, scan endpoint disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, receipts, extractor, normalizer)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting scontrino server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := monitor.Stop(shutdownCtx); err != nil {
			logger.Error("Monitor shutdown error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
