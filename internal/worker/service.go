package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	pendingSweepInterval = time.Minute
	pendingSweepBatch    = 100
)

// PendingSweeper 批量取消超时待付款订单，补偿入队失败或 Redis 丢失的任务
type PendingSweeper interface {
	CancelStalePending(expireAfter time.Duration, limit int) (int, error)
}

// Service 订单超时 worker：消费 asynq 延时任务，并定期兜底扫描
type Service struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	sweeper     PendingSweeper
	expireAfter time.Duration

	sweepCancel context.CancelFunc
	sweepDone   sync.WaitGroup
}

// NewService 创建 worker；队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer, sweeper PendingSweeper, expireAfter time.Duration) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		server:      asynq.NewServer(queue.BuildServerConfig(cfg)),
		mux:         mux,
		sweeper:     sweeper,
		expireAfter: expireAfter,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 阻塞运行直到 Stop
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if s.sweeper != nil && s.expireAfter > 0 {
		sweepCtx, cancel := context.WithCancel(ctx)
		s.sweepCancel = cancel
		s.sweepDone.Add(1)
		go func() {
			defer s.sweepDone.Done()
			runPendingSweepLoop(sweepCtx, s.sweeper, s.expireAfter, pendingSweepInterval)
		}()
	}
	return s.server.Run(s.mux)
}

// Stop 停止扫描并等待进行中的任务结束
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	if s.sweepCancel != nil {
		s.sweepCancel()
	}
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		s.sweepDone.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runPendingSweepLoop(ctx context.Context, sweeper PendingSweeper, expireAfter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		cancelled, err := sweeper.CancelStalePending(expireAfter, pendingSweepBatch)
		switch {
		case err != nil:
			logger.Warnw("worker_pending_sweep_failed", "error", err)
		case cancelled > 0:
			logger.Infow("worker_pending_sweep_cancelled", "count", cancelled)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
