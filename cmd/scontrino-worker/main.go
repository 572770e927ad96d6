package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joho/godotenv"

	"scontrino/internal/amqp"
	"scontrino/internal/config"
	applog "scontrino/internal/log"
	"scontrino/internal/service"
)

// counters tracks processed events per lifecycle type for the shutdown
// summary log.
type counters struct {
	created atomic.Int64
	updated atomic.Int64
	deleted atomic.Int64
	synced  atomic.Int64
	other   atomic.Int64
}

func (c *counters) handle(msg *amqp.ReceiptEventMessage) error {
	switch msg.Event {
	case service.EventCreated:
		c.created.Add(1)
	case service.EventUpdated:
		c.updated.Add(1)
	case service.EventDeleted:
		c.deleted.Add(1)
	case service.EventSynced:
		c.synced.Add(1)
	default:
		c.other.Add(1)
	}

	slog.Info("Receipt event processed",
		"event", msg.Event,
		"receipt_id", msg.ReceiptID,
		"user_id", msg.UserID,
		"timestamp", msg.Timestamp)
	return nil
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting scontrino-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var c counters
	if err := amqpClient.ConsumeReceiptEvents(ctx, c.handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped",
		"created", c.created.Load(),
		"updated", c.updated.Load(),
		"deleted", c.deleted.Load(),
		"synced", c.synced.Load(),
		"other", c.other.Load())
}
