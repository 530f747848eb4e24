package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/repository"

	"github.com/shopspring/decimal"
)

var payoutPeriodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// EligibleAffiliate 符合打款条件的推广账户
type EligibleAffiliate struct {
	AffiliateID     uint         `json:"affiliate_id"`
	AffiliateCode   string       `json:"affiliate_code"`
	AffiliateName   string       `json:"affiliate_name"`
	AffiliateEmail  string       `json:"affiliate_email"`
	PayoutMethod    string       `json:"payout_method"`
	TotalCleared    models.Money `json:"total_cleared"`
	ConversionCount int          `json:"conversion_count"`
	EstimatedPayout models.Money `json:"estimated_payout"`
	FeeAmount       models.Money `json:"fee_amount"`
	NetAmount       models.Money `json:"net_amount"`
}

// IneligibleAffiliate 暂不符合打款条件的推广账户
type IneligibleAffiliate struct {
	AffiliateID      uint         `json:"affiliate_id"`
	AffiliateCode    string       `json:"affiliate_code"`
	AffiliateName    string       `json:"affiliate_name"`
	AffiliateEmail   string       `json:"affiliate_email"`
	TotalCleared     models.Money `json:"total_cleared"`
	ConversionCount  int          `json:"conversion_count"`
	RejectionReasons []string     `json:"rejection_reasons"`
	RolloverAmount   models.Money `json:"rollover_amount"`
	NextPayoutDate   string       `json:"estimated_next_payout_date"`
}

// PayoutPreviewSummary 打款预览汇总
type PayoutPreviewSummary struct {
	TotalEligible       int          `json:"total_eligible_affiliates"`
	TotalIneligible     int          `json:"total_ineligible_affiliates"`
	TotalPayoutAmount   models.Money `json:"total_payout_amount"`
	TotalFeeAmount      models.Money `json:"total_fee_amount"`
	TotalNetAmount      models.Money `json:"total_net_amount"`
	TotalRolloverAmount models.Money `json:"total_rollover_amount"`
	PayoutPeriod        string       `json:"payout_period"`
	CutoffDate          string       `json:"cutoff_date"`
	ProcessingDate      string       `json:"processing_date"`
}

// PayoutPreview 月度打款预览
type PayoutPreview struct {
	Eligible   []EligibleAffiliate   `json:"eligible_affiliates"`
	Ineligible []IneligibleAffiliate `json:"ineligible_affiliates"`
	Summary    PayoutPreviewSummary  `json:"summary"`
}

// RolloverBalance 滚存余额（未达门槛累积的可入账金额）
type RolloverBalance struct {
	AffiliateID       uint         `json:"affiliate_id"`
	AffiliateCode     string       `json:"affiliate_code"`
	AffiliateName     string       `json:"affiliate_name"`
	AffiliateEmail    string       `json:"affiliate_email"`
	RolloverAmount    models.Money `json:"rollover_amount"`
	ConversionCount   int          `json:"conversion_count"`
	MonthsAccumulated int          `json:"months_accumulated"`
	OldestConversion  time.Time    `json:"oldest_conversion_date"`
}

// EligibilityService 打款资格评估服务（只读，不产生打款单）
type EligibilityService struct {
	affiliateRepo  repository.AffiliateRepository
	conversionRepo repository.ConversionRepository
	payoutRepo     repository.PayoutRepository
	settingService *SettingService
}

// NewEligibilityService 创建资格评估服务
func NewEligibilityService(
	affiliateRepo repository.AffiliateRepository,
	conversionRepo repository.ConversionRepository,
	payoutRepo repository.PayoutRepository,
	settingService *SettingService,
) *EligibilityService {
	return &EligibilityService{
		affiliateRepo:  affiliateRepo,
		conversionRepo: conversionRepo,
		payoutRepo:     payoutRepo,
		settingService: settingService,
	}
}

// NormalizePayoutPeriod 校验并规范化结算周期（YYYY-MM，缺省为当月）
func NormalizePayoutPeriod(period string, now time.Time) (string, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return now.UTC().Format("2006-01"), nil
	}
	if !payoutPeriodPattern.MatchString(period) {
		return "", ErrPayoutPeriodInvalid
	}
	return period, nil
}

// periodWindow 解析周期的起止时刻（当月第一天零点至最后一天的最后一刻）
func periodWindow(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, ErrPayoutPeriodInvalid
	}
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end, nil
}

// processingDateFor 计算下一个打款处理日（默认次月5日）
func processingDateFor(period string, processingDay int) string {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return ""
	}
	if processingDay < 1 || processingDay > 28 {
		processingDay = 5
	}
	next := start.AddDate(0, 1, 0)
	return fmt.Sprintf("%s-%02d", next.Format("2006-01"), processingDay)
}

// PreviewEligiblePayouts 生成指定周期的打款预览
//
// 按周期汇总各账户的已结算未入账佣金，逐项累积全部拒绝原因；
// 全部通过的账户按预估手续费率给出净额。只读操作，不落库。
func (s *EligibilityService) PreviewEligiblePayouts(period string, now time.Time) (*PayoutPreview, error) {
	period, err := NormalizePayoutPeriod(period, now)
	if err != nil {
		return nil, err
	}
	from, to, err := periodWindow(period)
	if err != nil {
		return nil, err
	}

	setting, err := s.settingService.GetPayoutSetting()
	if err != nil {
		return nil, fmt.Errorf("加载打款配置失败: %w", err)
	}

	affiliateIDs, err := s.conversionRepo.ListAffiliateIDsWithClearedUnbound(from, to)
	if err != nil {
		return nil, fmt.Errorf("查询可入账账户失败: %w", err)
	}

	preview := &PayoutPreview{
		Eligible:   []EligibleAffiliate{},
		Ineligible: []IneligibleAffiliate{},
	}
	totalPayout := decimal.Zero
	totalFee := decimal.Zero
	totalRollover := decimal.Zero
	feeRate := decimal.NewFromFloat(setting.PreviewFeePercent).Div(decimal.NewFromInt(100))
	threshold := decimal.NewFromFloat(setting.MinimumThreshold)
	nextDate := processingDateFor(period, setting.ProcessingDay)

	for _, affiliateID := range affiliateIDs {
		affiliate, err := s.affiliateRepo.GetByID(affiliateID)
		if err != nil {
			return nil, fmt.Errorf("查询推广账户失败: %w", err)
		}
		if affiliate == nil {
			continue
		}
		conversions, err := s.conversionRepo.ListClearedUnboundByAffiliate(affiliateID, from, to)
		if err != nil {
			return nil, fmt.Errorf("查询可入账转化失败: %w", err)
		}
		if len(conversions) == 0 {
			continue
		}
		total := decimal.Zero
		for _, conversion := range conversions {
			total = total.Add(conversion.CommissionAmount.Decimal)
		}

		reasons := s.collectRejectionReasons(affiliate, total, threshold, &setting)

		if len(reasons) == 0 {
			fee := total.Mul(feeRate).Round(2)
			preview.Eligible = append(preview.Eligible, EligibleAffiliate{
				AffiliateID:     affiliate.ID,
				AffiliateCode:   affiliate.Code,
				AffiliateName:   affiliate.Name,
				AffiliateEmail:  affiliate.Email,
				PayoutMethod:    usablePayoutMethod(affiliate, &setting),
				TotalCleared:    models.NewMoneyFromDecimal(total),
				ConversionCount: len(conversions),
				EstimatedPayout: models.NewMoneyFromDecimal(total),
				FeeAmount:       models.NewMoneyFromDecimal(fee),
				NetAmount:       models.NewMoneyFromDecimal(total.Sub(fee)),
			})
			totalPayout = totalPayout.Add(total)
			totalFee = totalFee.Add(fee)
		} else {
			preview.Ineligible = append(preview.Ineligible, IneligibleAffiliate{
				AffiliateID:      affiliate.ID,
				AffiliateCode:    affiliate.Code,
				AffiliateName:    affiliate.Name,
				AffiliateEmail:   affiliate.Email,
				TotalCleared:     models.NewMoneyFromDecimal(total),
				ConversionCount:  len(conversions),
				RejectionReasons: reasons,
				RolloverAmount:   models.NewMoneyFromDecimal(total),
				NextPayoutDate:   nextDate,
			})
			totalRollover = totalRollover.Add(total)
		}
	}

	preview.Summary = PayoutPreviewSummary{
		TotalEligible:       len(preview.Eligible),
		TotalIneligible:     len(preview.Ineligible),
		TotalPayoutAmount:   models.NewMoneyFromDecimal(totalPayout),
		TotalFeeAmount:      models.NewMoneyFromDecimal(totalFee),
		TotalNetAmount:      models.NewMoneyFromDecimal(totalPayout.Sub(totalFee)),
		TotalRolloverAmount: models.NewMoneyFromDecimal(totalRollover),
		PayoutPeriod:        period,
		CutoffDate:          to.Format("2006-01-02"),
		ProcessingDate:      nextDate,
	}
	return preview, nil
}

// usablePayoutMethod 选择可用打款方式：银行资料完整且方式已启用时优先，
// 否则回退到电子钱包。核验状态不影响选择，不满足时单独给出拒绝原因。
func usablePayoutMethod(affiliate *models.Affiliate, setting *PayoutSetting) string {
	if affiliate.HasBankDetails() && setting.MethodEnabled(constants.PayoutMethodBankTransfer) {
		return constants.PayoutMethodBankTransfer
	}
	if affiliate.HasEwalletDetails() && setting.MethodEnabled(affiliate.EwalletType) {
		return affiliate.EwalletType
	}
	return ""
}

// collectRejectionReasons 累积全部不符合条件的原因（不短路）
func (s *EligibilityService) collectRejectionReasons(affiliate *models.Affiliate, total, threshold decimal.Decimal, setting *PayoutSetting) []string {
	reasons := []string{}

	if affiliate.Status != constants.AffiliateStatusActive {
		reasons = append(reasons, "Affiliate account is suspended")
	}

	if total.LessThan(threshold) {
		shortfall := threshold.Sub(total)
		reasons = append(reasons, fmt.Sprintf("Amount %s below minimum threshold of %s (need %s more)",
			total.StringFixed(2), threshold.StringFixed(2), shortfall.StringFixed(2)))
	}

	if !affiliate.HasBankDetails() && !affiliate.HasEwalletDetails() {
		reasons = append(reasons, "Missing payment details (bank account or e-wallet)")
	}

	switch method := usablePayoutMethod(affiliate, setting); {
	case method == "":
		reasons = append(reasons, "No enabled payment method available")
	case method == constants.PayoutMethodBankTransfer:
		if setting.RequireBankVerification && !affiliate.BankVerified {
			reasons = append(reasons, "Bank account not verified")
		}
	default:
		if setting.RequireEwalletVerification && !affiliate.EwalletVerified {
			reasons = append(reasons, "E-wallet account not verified")
		}
	}

	hasOpen, err := s.payoutRepo.HasOpenPayout(affiliate.ID)
	if err != nil {
		reasons = append(reasons, "Unable to verify open payouts")
	} else if hasOpen {
		reasons = append(reasons, "An open payout already exists for this affiliate")
	}

	return reasons
}

// GetRolloverBalances 查询各账户的滚存余额（全部未入账的已结算佣金，不限周期）
func (s *EligibilityService) GetRolloverBalances() ([]RolloverBalance, error) {
	conversions, err := s.conversionRepo.ListClearedUnbound()
	if err != nil {
		return nil, fmt.Errorf("查询可入账转化失败: %w", err)
	}

	type group struct {
		total  decimal.Decimal
		count  int
		oldest time.Time
		newest time.Time
	}
	groups := map[uint]*group{}
	order := []uint{}
	for _, conversion := range conversions {
		g, ok := groups[conversion.AffiliateID]
		if !ok {
			g = &group{total: decimal.Zero, oldest: conversion.CreatedAt, newest: conversion.CreatedAt}
			groups[conversion.AffiliateID] = g
			order = append(order, conversion.AffiliateID)
		}
		g.total = g.total.Add(conversion.CommissionAmount.Decimal)
		g.count++
		if conversion.CreatedAt.Before(g.oldest) {
			g.oldest = conversion.CreatedAt
		}
		if conversion.CreatedAt.After(g.newest) {
			g.newest = conversion.CreatedAt
		}
	}

	balances := make([]RolloverBalance, 0, len(order))
	for _, affiliateID := range order {
		g := groups[affiliateID]
		affiliate, err := s.affiliateRepo.GetByID(affiliateID)
		if err != nil {
			return nil, fmt.Errorf("查询推广账户失败: %w", err)
		}
		if affiliate == nil {
			continue
		}
		span := g.newest.Sub(g.oldest)
		months := int(math.Ceil(span.Hours() / (24 * 30)))
		if months < 1 {
			months = 1
		}
		balances = append(balances, RolloverBalance{
			AffiliateID:       affiliateID,
			AffiliateCode:     affiliate.Code,
			AffiliateName:     affiliate.Name,
			AffiliateEmail:    affiliate.Email,
			RolloverAmount:    models.NewMoneyFromDecimal(g.total),
			ConversionCount:   g.count,
			MonthsAccumulated: months,
			OldestConversion:  g.oldest,
		})
	}
	return balances, nil
}
