package service

import (
	"errors"

	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/repository"
)

// NotificationService 打款事件通知服务（队列消费侧）
type NotificationService struct {
	payoutRepo    repository.PayoutRepository
	affiliateRepo repository.AffiliateRepository
	emailService  *EmailService
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	payoutRepo repository.PayoutRepository,
	affiliateRepo repository.AffiliateRepository,
	emailService *EmailService,
) *NotificationService {
	return &NotificationService{
		payoutRepo:    payoutRepo,
		affiliateRepo: affiliateRepo,
		emailService:  emailService,
	}
}

// SendPayoutEvent 按打款事件给推广账户发邮件
//
// 邮件服务未启用视为正常跳过，不作为任务失败重试。
func (s *NotificationService) SendPayoutEvent(payoutID uint, event string) error {
	payout, err := s.payoutRepo.GetByID(payoutID)
	if err != nil {
		return err
	}
	if payout == nil {
		logger.Warnw("notification_payout_missing", "payout_id", payoutID)
		return nil
	}
	affiliate, err := s.affiliateRepo.GetByID(payout.AffiliateID)
	if err != nil {
		return err
	}
	if affiliate == nil || affiliate.Email == "" {
		logger.Warnw("notification_affiliate_missing", "payout_id", payoutID)
		return nil
	}

	err = s.emailService.SendPayoutNotification(affiliate.Email, PayoutNotificationInput{
		AffiliateName: affiliate.Name,
		Reference:     payout.Reference,
		Period:        payout.Period,
		NetAmount:     payout.NetAmount,
		Event:         event,
		FailureCode:   payout.FailureCode,
	})
	if errors.Is(err, ErrEmailServiceDisabled) || errors.Is(err, ErrEmailServiceNotConfigured) {
		return nil
	}
	return err
}
