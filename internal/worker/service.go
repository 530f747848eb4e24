package worker

import (
	"context"
	"errors"
	"time"

	"github.com/payout-next/internal/config"
	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/queue"
	"github.com/payout-next/internal/service"

	"github.com/hibiken/asynq"
)

const defaultClearingInterval = time.Hour

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.ClearingService != nil {
		go s.runClearingLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// clearingInterval 结算定时间隔（配置单位为分钟）
func (s *Service) clearingInterval() time.Duration {
	if s == nil || s.consumer == nil || s.consumer.Config == nil {
		return defaultClearingInterval
	}
	minutes := s.consumer.Config.Clearing.IntervalMinutes
	if minutes <= 0 {
		return defaultClearingInterval
	}
	return time.Duration(minutes) * time.Minute
}

func (s *Service) runClearingLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ClearingService == nil {
		return
	}
	runOnce := func() {
		// 队列可用时只投递任务，由消费者执行批次，避免定时器与消费者重复跑批
		if s.consumer.QueueClient.Enabled() {
			if err := s.consumer.QueueClient.EnqueueClearingRun(queue.ClearingRunPayload{RequestedBy: "scheduler"}); err != nil {
				logger.Warnw("worker_clearing_enqueue_failed", "error", err)
			}
			return
		}
		result, err := s.consumer.ClearingService.RunClearing(time.Now())
		if err != nil {
			if errors.Is(err, service.ErrClearingDisabled) {
				logger.Debugw("worker_clearing_loop_skip_disabled")
				return
			}
			logger.Warnw("worker_clearing_loop_failed", "error", err)
			return
		}
		logger.Infow("worker_clearing_loop_done",
			"run_id", result.RunID,
			"scanned", result.Scanned,
			"cleared", result.Cleared,
			"flagged", result.Flagged,
		)
	}
	runOnce()

	ticker := time.NewTicker(s.clearingInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
