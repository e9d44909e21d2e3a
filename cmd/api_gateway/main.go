package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tenx-bank-ledger/internal/api_gateway"
	"github.com/tenx-bank-ledger/internal/api_gateway/handler"
	"github.com/tenx-bank-ledger/internal/api_gateway/service"
	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/data/memory"
	"github.com/tenx-bank-ledger/internal/data/mongo"
	"github.com/tenx-bank-ledger/internal/data/postgres"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/domain/ledger"
	"github.com/tenx-bank-ledger/internal/engine"
	"github.com/tenx-bank-ledger/internal/logger"
	"github.com/tenx-bank-ledger/internal/platform/messaging/producers"
	"github.com/tenx-bank-ledger/internal/platform/persistence"
	"github.com/tenx-bank-ledger/internal/transfer_processor/outbox_poller"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting API Gateway",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"storage_driver", cfg.Storage.Driver,
	)

	health := make(map[string]handler.Pinger)
	var closers []func(ctx context.Context)

	// Audit trail
	var auditRepo audit.Repository
	var mongoDB *persistence.MongoDB
	if cfg.Audit.Enabled {
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func(ctx context.Context) {
			if err := mongoDB.Close(ctx); err != nil {
				log.Error("Error closing MongoDB connection", "error", err)
			}
		})

		repo := mongo.NewAuditRepository(log, mongoDB.Database(), cfg.Audit.Collection)
		if err := repo.EnsureIndexes(appCtx); err != nil {
			log.Error("Failed to create audit trail indexes", "error", err)
			os.Exit(1)
		}
		auditRepo = repo
		health["mongodb"] = mongoDB
	}

	// Ledger storage
	var (
		l            ledger.Ledger
		memoryOutbox *memory.OutboxRepository
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		var opts []memory.Option
		if auditRepo != nil {
			memoryOutbox = memory.NewOutboxRepository()
			opts = append(opts, memory.WithOutbox(memoryOutbox))
		}
		memoryLedger := memory.NewLedger(log, opts...)
		health["ledger"] = memoryLedger
		l = memoryLedger
	default:
		postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func(context.Context) { postgresDB.Close() })

		postgresLedger := postgres.NewLedger(log, postgresDB.Pool(), cfg.Ledger)
		health["ledger"] = postgresLedger
		l = postgresLedger
	}

	// Async intake
	var publisher producers.MessagePublisher
	if cfg.Kafka.Enabled {
		kafkaProducer, err := producers.NewTransferRequestProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize Kafka producer", "error", err)
			os.Exit(1)
		}
		closers = append(closers, func(context.Context) {
			if err := kafkaProducer.Close(); err != nil {
				log.Error("Error closing Kafka producer", "error", err)
			}
		})
		publisher = kafkaProducer
	}

	registry := engine.NewAccountRegistry(log, l)
	transferEngine := engine.NewTransferEngine(log, l, registry)

	accountService := service.NewAccountService(transferEngine)
	transferService := service.NewTransferService(log, transferEngine, auditRepo, publisher)

	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Accounts:  accountService,
		Transfers: transferService,
		Admin:     accountService,
		Health:    health,
	})

	var wg sync.WaitGroup

	// Only this process sees the memory outbox, so it drains it itself
	if memoryOutbox != nil {
		poller := outbox_poller.NewPoller(
			&cfg.Outbox,
			memoryOutbox,
			outbox_poller.NewAuditPublisher(cfg.Audit.Breaker, memoryOutbox, auditRepo, log.With("component", "audit_publisher")),
			log.With("component", "outbox_poller"),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(appCtx)
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the stores they write to go away
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		serverErr = err
	}

	cancelAppCtx()
	wg.Wait()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i](shutdownCtx)
	}

	if serverErr != nil {
		log.Error("API Gateway shutdown completed with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("API Gateway shutdown completed successfully")
}
