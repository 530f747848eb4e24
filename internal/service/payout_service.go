package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/payment/xendit"
	"github.com/payout-next/internal/queue"
	"github.com/payout-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 网关顺序调用之间的间隔，避免触发限流
const payoutGatewayDelay = 200 * time.Millisecond

// PayoutItemResult 单个账户的打款处理结果
type PayoutItemResult struct {
	AffiliateID uint         `json:"affiliate_id"`
	PayoutID    uint         `json:"payout_id"`
	Reference   string       `json:"reference"`
	Status      string       `json:"status"`
	NetAmount   models.Money `json:"net_amount"`
	Error       string       `json:"error,omitempty"`
}

// ProcessPayoutsResult 打款批次处理结果
type ProcessPayoutsResult struct {
	Period    string             `json:"period"`
	Created   int                `json:"created"`
	Failed    int                `json:"failed"`
	Skipped   int                `json:"skipped"`
	Items     []PayoutItemResult `json:"items"`
	TotalNet  models.Money       `json:"total_net"`
	TotalFees models.Money       `json:"total_fees"`
}

// PayoutService 打款编排服务
type PayoutService struct {
	affiliateRepo      repository.AffiliateRepository
	conversionRepo     repository.ConversionRepository
	payoutRepo         repository.PayoutRepository
	feeService         *FeeService
	eligibilityService *EligibilityService
	settingService     *SettingService
	gatewayConfig      *xendit.Config
	queueClient        *queue.Client
}

// NewPayoutService 创建打款编排服务
func NewPayoutService(
	affiliateRepo repository.AffiliateRepository,
	conversionRepo repository.ConversionRepository,
	payoutRepo repository.PayoutRepository,
	feeService *FeeService,
	eligibilityService *EligibilityService,
	settingService *SettingService,
	gatewayConfig *xendit.Config,
	queueClient *queue.Client,
) *PayoutService {
	return &PayoutService{
		affiliateRepo:      affiliateRepo,
		conversionRepo:     conversionRepo,
		payoutRepo:         payoutRepo,
		feeService:         feeService,
		eligibilityService: eligibilityService,
		settingService:     settingService,
		gatewayConfig:      gatewayConfig,
		queueClient:        queueClient,
	}
}

// ProcessPayouts 处理指定周期的打款批次
//
// 先生成资格预览，仅对全部通过的账户逐个建单：事务内锁定转化、
// 计算费用、创建打款单与明细并绑定转化；事务提交后调用网关发起
// 打款。单个账户失败只影响该账户，批次继续执行。
func (s *PayoutService) ProcessPayouts(ctx context.Context, period string, now time.Time) (*ProcessPayoutsResult, error) {
	if s.gatewayConfig == nil || strings.TrimSpace(s.gatewayConfig.APIKey) == "" {
		return nil, ErrGatewayNotConfigured
	}

	preview, err := s.eligibilityService.PreviewEligiblePayouts(period, now)
	if err != nil {
		return nil, err
	}

	result := &ProcessPayoutsResult{
		Period: preview.Summary.PayoutPeriod,
		Items:  []PayoutItemResult{},
	}
	totalNet := decimal.Zero
	totalFees := decimal.Zero

	from, to, err := periodWindow(preview.Summary.PayoutPeriod)
	if err != nil {
		return nil, err
	}

	for i, eligible := range preview.Eligible {
		if i > 0 {
			time.Sleep(payoutGatewayDelay)
		}
		item := s.processAffiliatePayout(ctx, eligible.AffiliateID, eligible.PayoutMethod, preview.Summary.PayoutPeriod, from, to, now)
		result.Items = append(result.Items, item)
		switch item.Status {
		case constants.PayoutStatusProcessing:
			result.Created++
			totalNet = totalNet.Add(item.NetAmount.Decimal)
		case constants.PayoutStatusFailed:
			result.Failed++
		default:
			result.Skipped++
		}
	}

	for _, item := range result.Items {
		if item.PayoutID == 0 || item.Status != constants.PayoutStatusProcessing {
			continue
		}
		payout, err := s.payoutRepo.GetByID(item.PayoutID)
		if err != nil || payout == nil {
			continue
		}
		totalFees = totalFees.Add(payout.FeeAmount.Decimal)
	}

	result.TotalNet = models.NewMoneyFromDecimal(totalNet)
	result.TotalFees = models.NewMoneyFromDecimal(totalFees)
	logger.Infow("payout_batch_finished",
		"period", result.Period,
		"created", result.Created,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

// processAffiliatePayout 为单个账户建单并发起网关打款
func (s *PayoutService) processAffiliatePayout(ctx context.Context, affiliateID uint, method, period string, from, to, now time.Time) PayoutItemResult {
	item := PayoutItemResult{AffiliateID: affiliateID}

	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil || affiliate == nil {
		item.Status = constants.PayoutStatusFailed
		item.Error = "affiliate not found"
		return item
	}

	var payout *models.Payout
	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		conversionRepo := s.conversionRepo.WithTx(tx)
		payoutRepo := s.payoutRepo.WithTx(tx)

		conversions, err := conversionRepo.ListClearedUnboundByAffiliateForUpdate(affiliateID, from, to)
		if err != nil {
			return err
		}
		if len(conversions) == 0 {
			return ErrNotFound
		}

		gross := decimal.Zero
		ids := make([]uint, 0, len(conversions))
		for _, conversion := range conversions {
			gross = gross.Add(conversion.CommissionAmount.Decimal)
			ids = append(ids, conversion.ID)
		}

		breakdown := s.feeService.CalculateFees(gross, affiliate.Tier, method)

		payout = &models.Payout{
			AffiliateID: affiliateID,
			Period:      period,
			Reference:   fmt.Sprintf("PO-%s", uuid.NewString()),
			Method:      method,
			GrossAmount: breakdown.GrossAmount,
			FeeAmount:   breakdown.TotalFees,
			NetAmount:   breakdown.NetAmount,
			FeePercent:  breakdown.FeePercentage,
			Status:      constants.PayoutStatusPending,
		}
		if err := payoutRepo.Create(payout); err != nil {
			return err
		}

		items := make([]models.PayoutItem, 0, len(conversions))
		for _, conversion := range conversions {
			items = append(items, models.PayoutItem{
				PayoutID:     payout.ID,
				ConversionID: conversion.ID,
				Amount:       conversion.CommissionAmount,
			})
		}
		if err := payoutRepo.CreateItems(items); err != nil {
			return err
		}

		bound, err := conversionRepo.BindPayout(ids, payout.ID, now)
		if err != nil {
			return err
		}
		if bound != int64(len(ids)) {
			return fmt.Errorf("绑定转化记录不完整: want %d got %d", len(ids), bound)
		}
		return nil
	})
	if err != nil {
		item.Status = constants.PayoutStatusFailed
		item.Error = err.Error()
		logger.Errorw("payout_create_failed",
			"affiliate_id", affiliateID,
			"period", period,
			"error", err.Error(),
		)
		return item
	}

	item.PayoutID = payout.ID
	item.Reference = payout.Reference
	item.NetAmount = payout.NetAmount
	item.Status = s.dispatchToGateway(ctx, payout, affiliate, now)
	if item.Status == constants.PayoutStatusFailed {
		item.Error = payout.FailureCode
	}
	return item
}

// dispatchToGateway 调用网关创建打款，并根据结果推进打款单状态
func (s *PayoutService) dispatchToGateway(ctx context.Context, payout *models.Payout, affiliate *models.Affiliate, now time.Time) string {
	amount, _ := payout.NetAmount.Decimal.Float64()
	accountName := affiliate.BankAccountName
	accountNumber := affiliate.BankAccountNumber
	if payout.Method != constants.PayoutMethodBankTransfer {
		accountName = affiliate.EwalletName
		accountNumber = affiliate.EwalletNumber
	}
	input := xendit.CreateInput{
		ExternalID:        payout.Reference,
		Amount:            amount,
		BankCode:          xendit.ResolveChannelCode(payout.Method, affiliate.BankCode),
		AccountHolderName: accountName,
		AccountNumber:     accountNumber,
		Description:       fmt.Sprintf("Affiliate payout %s", payout.Period),
		Metadata: map[string]interface{}{
			"payout_id":    payout.ID,
			"affiliate_id": affiliate.ID,
			"period":       payout.Period,
		},
	}

	created, err := xendit.CreateDisbursement(ctx, s.gatewayConfig, input)
	if err != nil {
		s.markPayoutFailed(payout, "GATEWAY_ERROR", now)
		logger.Errorw("payout_gateway_dispatch_failed",
			"payout_id", payout.ID,
			"reference", payout.Reference,
			"error", err.Error(),
		)
		s.enqueueNotification(payout.ID, constants.PayoutEventFailed)
		return constants.PayoutStatusFailed
	}

	payout.DisbursementID = created.DisbursementID
	payout.Status = constants.PayoutStatusProcessing
	payout.GatewayPayload = models.JSON(created.Raw)
	if err := s.payoutRepo.Update(payout); err != nil {
		logger.Errorw("payout_update_after_dispatch_failed",
			"payout_id", payout.ID,
			"error", err.Error(),
		)
	}
	return constants.PayoutStatusProcessing
}

// markPayoutFailed 打款失败后置为 failed 并解绑转化，允许下次重新入账
func (s *PayoutService) markPayoutFailed(payout *models.Payout, failureCode string, now time.Time) {
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		payout.Status = constants.PayoutStatusFailed
		payout.FailureCode = failureCode
		if err := s.payoutRepo.WithTx(tx).Update(payout); err != nil {
			return err
		}
		_, err := s.conversionRepo.WithTx(tx).ReleaseByPayout(payout.ID, now)
		return err
	})
	if err != nil {
		logger.Errorw("payout_mark_failed_error",
			"payout_id", payout.ID,
			"error", err.Error(),
		)
	}
}

// RetryFailedPayout 重试失败的打款单
//
// 仅 failed 状态可重试：把原单的转化重新绑定到新建的打款单上，
// 原单保持 failed 不变，新单走正常的网关派发流程。
func (s *PayoutService) RetryFailedPayout(ctx context.Context, payoutID uint, now time.Time) (*models.Payout, error) {
	if s.gatewayConfig == nil || strings.TrimSpace(s.gatewayConfig.APIKey) == "" {
		return nil, ErrGatewayNotConfigured
	}

	original, err := s.payoutRepo.GetByID(payoutID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ErrNotFound
	}
	if original.Status != constants.PayoutStatusFailed {
		return nil, ErrPayoutNotRetryable
	}

	affiliate, err := s.affiliateRepo.GetByID(original.AffiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}

	items, err := s.payoutRepo.ListItems(original.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrPayoutNotRetryable
	}

	setting, err := s.settingService.GetPayoutSetting()
	if err != nil {
		return nil, fmt.Errorf("加载打款配置失败: %w", err)
	}
	method := usablePayoutMethod(affiliate, &setting)
	if method == "" {
		return nil, ErrPayoutNotRetryable
	}

	var retry *models.Payout
	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		conversionRepo := s.conversionRepo.WithTx(tx)
		payoutRepo := s.payoutRepo.WithTx(tx)

		gross := decimal.Zero
		ids := make([]uint, 0, len(items))
		for _, item := range items {
			gross = gross.Add(item.Amount.Decimal)
			ids = append(ids, item.ConversionID)
		}

		breakdown := s.feeService.CalculateFees(gross, affiliate.Tier, method)

		retry = &models.Payout{
			AffiliateID: original.AffiliateID,
			Period:      original.Period,
			Reference:   fmt.Sprintf("PO-%s", uuid.NewString()),
			Method:      method,
			GrossAmount: breakdown.GrossAmount,
			FeeAmount:   breakdown.TotalFees,
			NetAmount:   breakdown.NetAmount,
			FeePercent:  breakdown.FeePercentage,
			Status:      constants.PayoutStatusPending,
		}
		if err := payoutRepo.Create(retry); err != nil {
			return err
		}

		retryItems := make([]models.PayoutItem, 0, len(items))
		for _, item := range items {
			retryItems = append(retryItems, models.PayoutItem{
				PayoutID:     retry.ID,
				ConversionID: item.ConversionID,
				Amount:       item.Amount,
			})
		}
		if err := payoutRepo.CreateItems(retryItems); err != nil {
			return err
		}

		bound, err := conversionRepo.BindPayout(ids, retry.ID, now)
		if err != nil {
			return err
		}
		if bound != int64(len(ids)) {
			return fmt.Errorf("绑定转化记录不完整: want %d got %d", len(ids), bound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchToGateway(ctx, retry, affiliate, now)
	return retry, nil
}

// ListPayouts 分页查询打款单
func (s *PayoutService) ListPayouts(filter repository.PayoutListFilter) ([]models.Payout, int64, error) {
	return s.payoutRepo.List(filter)
}

// GetPayout 查询单个打款单（含明细）
func (s *PayoutService) GetPayout(id uint) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrNotFound
	}
	return payout, nil
}

func (s *PayoutService) enqueueNotification(payoutID uint, event string) {
	if s.queueClient == nil {
		return
	}
	if err := s.queueClient.EnqueuePayoutNotification(queue.PayoutNotificationPayload{
		PayoutID: payoutID,
		Event:    event,
	}); err != nil {
		logger.Warnw("payout_enqueue_notification_failed",
			"payout_id", payoutID,
			"event", event,
			"error", err.Error(),
		)
	}
}
