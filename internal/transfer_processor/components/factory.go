package components

import (
	"log/slog"
	"time"

	"github.com/tenx-bank-ledger/internal/config"
	"github.com/tenx-bank-ledger/internal/domain/audit"
	"github.com/tenx-bank-ledger/internal/transfer_processor/service"
)

// CreateProcessingService wires the validator, failure recorder and executor
// behind a worker pool. The returned stop func drains the pool.
func CreateProcessingService(
	executor service.TransferExecutor,
	auditRepo audit.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) (service.ProcessingService, func(timeout time.Duration)) {
	validator := NewTransferValidator(auditRepo, logger)
	failureRecorder := NewFailureRecorder(auditRepo, logger)

	baseService := service.NewProcessingService(
		executor,
		validator,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService, func(time.Duration) {}
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, workerPoolService.Shutdown
}
