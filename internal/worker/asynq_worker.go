package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/provider"
	"github.com/payout-next/internal/queue"
	"github.com/payout-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskClearingRun, c.handleClearingRun)
	mux.HandleFunc(queue.TaskPayoutNotification, c.handlePayoutNotification)
}

func (c *Consumer) handleClearingRun(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_clearing_run_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ClearingRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_clearing_run_unmarshal_failed", "error", err)
		return err
	}
	if c.ClearingService == nil {
		logger.Warnw("worker_clearing_run_skip_service_nil")
		return nil
	}
	result, err := c.ClearingService.RunClearing(time.Now())
	if err != nil {
		if errors.Is(err, service.ErrClearingDisabled) {
			logger.Debugw("worker_clearing_run_skip_disabled")
			return nil
		}
		logger.Warnw("worker_clearing_run_failed", "error", err)
		return err
	}
	logger.Infow("worker_clearing_run_done",
		"run_id", result.RunID,
		"requested_by", payload.RequestedBy,
		"scanned", result.Scanned,
		"cleared", result.Cleared,
		"flagged", result.Flagged,
	)
	return nil
}

func (c *Consumer) handlePayoutNotification(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payout_notification_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PayoutNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payout_notification_unmarshal_failed", "error", err)
		return err
	}
	if payload.PayoutID == 0 {
		logger.Debugw("worker_payout_notification_skip_invalid_payload", "payout_id", payload.PayoutID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_payout_notification_skip_service_nil", "payout_id", payload.PayoutID)
		return nil
	}
	if err := c.NotificationService.SendPayoutEvent(payload.PayoutID, payload.Event); err != nil {
		logger.Warnw("worker_payout_notification_send_failed",
			"payout_id", payload.PayoutID,
			"event", payload.Event,
			"error", err,
		)
		return err
	}
	return nil
}
