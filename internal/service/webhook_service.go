package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/payment/xendit"
	"github.com/payout-next/internal/queue"
	"github.com/payout-next/internal/repository"

	"gorm.io/gorm"
)

// 回调对账结果
const (
	ReconcileOutcomeUpdated  = "updated"
	ReconcileOutcomeIgnored  = "ignored"
	ReconcileOutcomeNotFound = "not_found"
)

// DisbursementEvent 网关回调中的单笔打款事件
type DisbursementEvent struct {
	DisbursementID string
	ReferenceID    string
	Status         string
	FailureCode    string
	Metadata       map[string]interface{}
	Raw            map[string]interface{}
}

// ReconcileResult 单笔打款事件的对账结果
type ReconcileResult struct {
	Outcome  string `json:"outcome"`
	PayoutID uint   `json:"payout_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// WebhookService 网关回调对账服务
type WebhookService struct {
	payoutRepo     repository.PayoutRepository
	conversionRepo repository.ConversionRepository
	queueClient    *queue.Client
}

// NewWebhookService 创建回调对账服务
func NewWebhookService(
	payoutRepo repository.PayoutRepository,
	conversionRepo repository.ConversionRepository,
	queueClient *queue.Client,
) *WebhookService {
	return &WebhookService{
		payoutRepo:     payoutRepo,
		conversionRepo: conversionRepo,
		queueClient:    queueClient,
	}
}

// ReconcileDisbursement 按网关回调推进打款单状态
//
// 定位顺序：metadata.payout_id，其次对外单号，最后网关侧单号。
// 未匹配到打款单或状态未知时仅确认收到，不做任何变更；
// 相同状态的重复回调幂等跳过。sent 与 failed 为终态，不再被覆盖。
func (s *WebhookService) ReconcileDisbursement(event DisbursementEvent, now time.Time) (*ReconcileResult, error) {
	payout, err := s.locatePayout(event)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		logger.Warnw("webhook_payout_not_found",
			"disbursement_id", event.DisbursementID,
			"reference_id", event.ReferenceID,
			"status", event.Status,
		)
		return &ReconcileResult{Outcome: ReconcileOutcomeNotFound}, nil
	}

	mapped := xendit.ToPayoutStatus(event.Status)
	if mapped == "" {
		logger.Warnw("webhook_unknown_status",
			"payout_id", payout.ID,
			"status", event.Status,
		)
		return &ReconcileResult{Outcome: ReconcileOutcomeIgnored, PayoutID: payout.ID, Status: payout.Status}, nil
	}

	if payout.Status == mapped {
		return &ReconcileResult{Outcome: ReconcileOutcomeIgnored, PayoutID: payout.ID, Status: payout.Status}, nil
	}
	// sent 与 failed 均为终态：failed 后转化已解绑，重试会生成新的打款单
	if payout.Status == constants.PayoutStatusSent || payout.Status == constants.PayoutStatusFailed {
		logger.Warnw("webhook_terminal_payout_immutable",
			"payout_id", payout.ID,
			"payout_status", payout.Status,
			"incoming_status", event.Status,
		)
		return &ReconcileResult{Outcome: ReconcileOutcomeIgnored, PayoutID: payout.ID, Status: payout.Status}, nil
	}

	switch mapped {
	case constants.PayoutStatusSent:
		err = s.applySent(payout, event, now)
	case constants.PayoutStatusFailed:
		err = s.applyFailed(payout, event, now)
	case constants.PayoutStatusProcessing:
		err = s.applyProcessing(payout, event)
	}
	if err != nil {
		return nil, err
	}

	switch mapped {
	case constants.PayoutStatusSent:
		s.enqueueNotification(payout.ID, constants.PayoutEventSent)
	case constants.PayoutStatusFailed:
		s.enqueueNotification(payout.ID, constants.PayoutEventFailed)
	}
	return &ReconcileResult{Outcome: ReconcileOutcomeUpdated, PayoutID: payout.ID, Status: mapped}, nil
}

// locatePayout 按 metadata.payout_id、对外单号、网关单号依次查找打款单
func (s *WebhookService) locatePayout(event DisbursementEvent) (*models.Payout, error) {
	if id := payoutIDFromMetadata(event.Metadata); id > 0 {
		payout, err := s.payoutRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if payout != nil {
			return payout, nil
		}
	}
	if reference := strings.TrimSpace(event.ReferenceID); reference != "" {
		payout, err := s.payoutRepo.GetByReference(reference)
		if err != nil {
			return nil, err
		}
		if payout != nil {
			return payout, nil
		}
	}
	if disbursementID := strings.TrimSpace(event.DisbursementID); disbursementID != "" {
		return s.payoutRepo.GetByDisbursementID(disbursementID)
	}
	return nil, nil
}

// payoutIDFromMetadata 解析 metadata 中的 payout_id（数字或字符串）
func payoutIDFromMetadata(metadata map[string]interface{}) uint {
	if metadata == nil {
		return 0
	}
	raw, ok := metadata["payout_id"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return uint(parsed)
		}
	case int:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

func (s *WebhookService) applySent(payout *models.Payout, event DisbursementEvent, now time.Time) error {
	return s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		payout.Status = constants.PayoutStatusSent
		s.applyGatewayFields(payout, event)
		if payout.ProcessedAt == nil {
			processedAt := now
			payout.ProcessedAt = &processedAt
		}
		if err := s.payoutRepo.WithTx(tx).Update(payout); err != nil {
			return err
		}
		paid, err := s.conversionRepo.WithTx(tx).MarkPaidByPayout(payout.ID, now)
		if err != nil {
			return fmt.Errorf("标记转化已支付失败: %w", err)
		}
		logger.Infow("webhook_payout_sent",
			"payout_id", payout.ID,
			"conversions_paid", paid,
		)
		return nil
	})
}

func (s *WebhookService) applyFailed(payout *models.Payout, event DisbursementEvent, now time.Time) error {
	return s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		payout.Status = constants.PayoutStatusFailed
		if code := strings.TrimSpace(event.FailureCode); code != "" {
			payout.FailureCode = code
		}
		s.applyGatewayFields(payout, event)
		if err := s.payoutRepo.WithTx(tx).Update(payout); err != nil {
			return err
		}
		released, err := s.conversionRepo.WithTx(tx).ReleaseByPayout(payout.ID, now)
		if err != nil {
			return fmt.Errorf("解绑转化失败: %w", err)
		}
		logger.Infow("webhook_payout_failed",
			"payout_id", payout.ID,
			"failure_code", payout.FailureCode,
			"conversions_released", released,
		)
		return nil
	})
}

func (s *WebhookService) applyProcessing(payout *models.Payout, event DisbursementEvent) error {
	payout.Status = constants.PayoutStatusProcessing
	s.applyGatewayFields(payout, event)
	return s.payoutRepo.Update(payout)
}

// applyGatewayFields 回填网关侧单号与原始回调数据
func (s *WebhookService) applyGatewayFields(payout *models.Payout, event DisbursementEvent) {
	if disbursementID := strings.TrimSpace(event.DisbursementID); disbursementID != "" {
		payout.DisbursementID = disbursementID
	}
	if len(event.Raw) > 0 {
		payout.GatewayPayload = models.JSON(event.Raw)
	}
}

func (s *WebhookService) enqueueNotification(payoutID uint, event string) {
	if s.queueClient == nil {
		return
	}
	if err := s.queueClient.EnqueuePayoutNotification(queue.PayoutNotificationPayload{
		PayoutID: payoutID,
		Event:    event,
	}); err != nil {
		logger.Warnw("webhook_enqueue_notification_failed",
			"payout_id", payoutID,
			"event", event,
			"error", err.Error(),
		)
	}
}
