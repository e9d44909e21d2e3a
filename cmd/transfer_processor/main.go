package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/data/mongo"
	"github.com/tenx-bank-ledger/internal/data/postgres"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/engine"
	"github.com/tenx-bank-ledger/internal/logger"
	"github.com/tenx-bank-ledger/internal/platform/messaging/consumers"
	"github.com/tenx-bank-ledger/internal/platform/messaging/producers"
	"github.com/tenx-bank-ledger/internal/platform/persistence"
	"github.com/tenx-bank-ledger/internal/transfer_processor/components"
	"github.com/tenx-bank-ledger/internal/transfer_processor/consumer"
	"github.com/tenx-bank-ledger/internal/transfer_processor/outbox_poller"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("transfer_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting Transfer Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	if cfg.Storage.Driver != config.StorageDriverPostgres {
		log.Error("Transfer Processor shares the ledger with the API Gateway and requires the postgres storage driver",
			"storage_driver", cfg.Storage.Driver)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	var (
		auditRepo audit.Repository
		mongoDB   *persistence.MongoDB
	)
	if cfg.Audit.Enabled {
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		repo := mongo.NewAuditRepository(log, mongoDB.Database(), cfg.Audit.Collection)
		if err := repo.EnsureIndexes(appCtx); err != nil {
			log.Error("Failed to create audit trail indexes", "error", err)
			os.Exit(1)
		}
		auditRepo = repo
	}

	postgresLedger := postgres.NewLedger(log, postgresDB.Pool(), cfg.Ledger)
	registry := engine.NewAccountRegistry(log, postgresLedger)
	transferEngine := engine.NewTransferEngine(log, postgresLedger, registry)

	processingService, stopProcessing := components.CreateProcessingService(
		transferEngine,
		auditRepo,
		log,
		cfg,
	)

	var wg sync.WaitGroup

	var (
		kafkaConsumer *consumers.KafkaConsumer
		dlqProducer   *producers.DLQProducer
	)
	if cfg.Kafka.Enabled {
		dlqProducer, err = producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize DLQ Kafka producer", "error", err)
			os.Exit(1)
		}

		handler := consumer.NewTransferEventHandler(log, processingService, dlqProducer)
		kafkaConsumer = consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.TransferTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, handler.HandleMessage); err != nil {
			log.Error("Failed to subscribe to transfer requests", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("Kafka is disabled, only the outbox poller will run")
	}

	if auditRepo != nil {
		outboxRepo := postgres.NewOutboxRepository(log, postgresDB.Pool())
		poller := outbox_poller.NewPoller(
			&cfg.Outbox,
			outboxRepo,
			outbox_poller.NewAuditPublisher(cfg.Audit.Breaker, outboxRepo, auditRepo, log.With("component", "audit_publisher")),
			log.With("component", "outbox_poller"),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(appCtx)
		}()
	}

	var consumerDone <-chan struct{}
	if kafkaConsumer != nil {
		consumerDone = kafkaConsumer.Done()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case <-consumerDone:
		serviceErr = errors.New("kafka consumer stopped unexpectedly")
		log.Error("Service error occurred", "error", serviceErr)
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if kafkaConsumer != nil {
		select {
		case <-kafkaConsumer.Done():
		case <-shutdownCtx.Done():
			log.Warn("Shutdown timeout reached before the consumer stopped")
		}
	}
	stopProcessing(cfg.Server.ShutdownTimeout)

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()
	select {
	case <-wgChan:
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Close(); err != nil {
			log.Error("Error closing Kafka consumer", "error", err)
		}
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	postgresDB.Close()

	if mongoDB != nil {
		if err := mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	if serviceErr != nil {
		log.Error("Transfer Processor shutdown completed with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Transfer Processor shutdown completed successfully")
}
