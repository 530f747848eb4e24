package queue

import (
	"encoding/json"

	"github.com/payout-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskClearingRun 自动结算批次任务
	TaskClearingRun = constants.TaskTypeClearingRun
	// TaskPayoutNotification 打款状态邮件通知任务
	TaskPayoutNotification = constants.TaskTypePayoutNotification
)

// ClearingRunPayload 自动结算任务载荷
type ClearingRunPayload struct {
	RequestedBy string `json:"requested_by"`
}

// PayoutNotificationPayload 打款通知任务载荷
type PayoutNotificationPayload struct {
	PayoutID uint   `json:"payout_id"`
	Event    string `json:"event"`
}

// NewClearingRunTask 创建自动结算任务
func NewClearingRunTask(payload ClearingRunPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClearingRun, body), nil
}

// NewPayoutNotificationTask 创建打款通知任务
func NewPayoutNotificationTask(payload PayoutNotificationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayoutNotification, body), nil
}
