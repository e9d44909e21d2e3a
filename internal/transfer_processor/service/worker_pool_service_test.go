package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tenx-bank-ledger/internal/domain/transfer"
)

// MockProcessingService mocks the ProcessingService interface
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessTransfer(ctx context.Context, request *transfer.Request) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

// blockingService tracks how many requests run at once
type blockingService struct {
	release  chan struct{}
	running  atomic.Int32
	peak     atomic.Int32
	finished atomic.Int32
}

func (s *blockingService) ProcessTransfer(context.Context, *transfer.Request) error {
	now := s.running.Add(1)
	for {
		peak := s.peak.Load()
		if now <= peak || s.peak.CompareAndSwap(peak, now) {
			break
		}
	}
	<-s.release
	s.running.Add(-1)
	s.finished.Add(1)
	return nil
}

func TestWorkerPoolProcessingService_ProcessTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsBaseServiceResult", func(t *testing.T) {
		base := new(MockProcessingService)
		svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 2}, discardLogger())
		require.NoError(t, err)
		defer svc.Shutdown(time.Second)

		ok := newTestRequest()
		failing := newTestRequest()
		processErr := errors.New("processing failed")

		base.On("ProcessTransfer", ctx, mock.MatchedBy(func(r *transfer.Request) bool { return r.RequestID == ok.RequestID })).Return(nil)
		base.On("ProcessTransfer", ctx, mock.MatchedBy(func(r *transfer.Request) bool { return r.RequestID == failing.RequestID })).Return(processErr)

		assert.NoError(t, svc.ProcessTransfer(ctx, ok))
		assert.ErrorIs(t, svc.ProcessTransfer(ctx, failing), processErr)
		base.AssertExpectations(t)
	})

	t.Run("BoundsConcurrency", func(t *testing.T) {
		base := &blockingService{release: make(chan struct{})}
		svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 2}, discardLogger())
		require.NoError(t, err)
		defer svc.Shutdown(time.Second)

		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, svc.ProcessTransfer(ctx, newTestRequest()))
			}()
		}

		assert.Eventually(t, func() bool { return base.running.Load() == 2 }, time.Second, time.Millisecond)
		close(base.release)
		wg.Wait()

		assert.Equal(t, int32(6), base.finished.Load())
		assert.LessOrEqual(t, base.peak.Load(), int32(2))
	})

	t.Run("RecoversPanics", func(t *testing.T) {
		base := new(MockProcessingService)
		base.On("ProcessTransfer", ctx, mock.Anything).Run(func(mock.Arguments) { panic("boom") })

		svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 1}, discardLogger())
		require.NoError(t, err)
		defer svc.Shutdown(time.Second)

		err = svc.ProcessTransfer(ctx, newTestRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	})

	t.Run("StopsWaitingWhenContextEnds", func(t *testing.T) {
		base := &blockingService{release: make(chan struct{})}
		svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 1}, discardLogger())
		require.NoError(t, err)
		defer func() {
			close(base.release)
			svc.Shutdown(time.Second)
		}()

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, svc.ProcessTransfer(cctx, newTestRequest()), context.DeadlineExceeded)
	})

	t.Run("ReportsCapacity", func(t *testing.T) {
		svc, err := NewWorkerPoolProcessingService(new(MockProcessingService), WorkerPoolConfig{Size: 3}, discardLogger())
		require.NoError(t, err)
		defer svc.Shutdown(time.Second)

		assert.Equal(t, 3, svc.Capacity())
		assert.Equal(t, 0, svc.Running())
	})
}
