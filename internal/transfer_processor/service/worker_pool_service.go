package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

// WorkerPoolProcessingService bounds the number of transfers processed concurrently
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessTransfer runs the request on a pool worker and waits for its result
func (s *WorkerPoolProcessingService) ProcessTransfer(ctx context.Context, request *transfer.Request) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting transfer request to worker pool",
		"request_id", request.RequestID.String(),
		"running_workers", s.pool.Running(),
	)

	resultChan := make(chan error, 1)
	requestCopy := *request

	err := s.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				resultChan <- fmt.Errorf("transfer request %s panicked: %v", requestCopy.RequestID, p)
			}
		}()
		resultChan <- s.baseService.ProcessTransfer(ctx, &requestCopy)
	})
	if err != nil {
		logger.Error("Failed to submit transfer request to worker pool",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown waits up to timeout for running workers, then releases the pool
func (s *WorkerPoolProcessingService) Shutdown(timeout time.Duration) {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	if err := s.pool.ReleaseTimeout(timeout); err != nil {
		s.logger.Warn("Worker pool did not drain before timeout", "error", err)
	}
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
