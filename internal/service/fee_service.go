package service

import (
	"fmt"
	"strings"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"

	"github.com/shopspring/decimal"
)

// feeStructure 单一打款方式的费用结构
type feeStructure struct {
	BaseFee    decimal.Decimal // 固定费用
	Percentage decimal.Decimal // 比例费用（小数）
	MinFee     decimal.Decimal // 费用下限
	MaxFee     decimal.Decimal // 费用上限（零表示无上限）
}

var feeStructures = map[string]feeStructure{
	constants.PayoutMethodBankTransfer: {
		BaseFee:    decimal.NewFromInt(4000),
		Percentage: decimal.NewFromFloat(0.001),
		MinFee:     decimal.NewFromInt(4000),
		MaxFee:     decimal.NewFromInt(25000),
	},
	constants.PayoutMethodEwalletOvo: {
		BaseFee:    decimal.NewFromInt(2500),
		Percentage: decimal.NewFromFloat(0.007),
		MinFee:     decimal.NewFromInt(2500),
	},
	constants.PayoutMethodEwalletDana: {
		BaseFee:    decimal.NewFromInt(2500),
		Percentage: decimal.NewFromFloat(0.007),
		MinFee:     decimal.NewFromInt(2500),
	},
	constants.PayoutMethodEwalletGopay: {
		BaseFee:    decimal.NewFromInt(2500),
		Percentage: decimal.NewFromFloat(0.007),
		MinFee:     decimal.NewFromInt(2500),
	},
}

// feeStructureFor 获取打款方式费用结构，未知方式回退银行转账
func feeStructureFor(method string) feeStructure {
	normalized := strings.ToLower(strings.TrimSpace(method))
	if fs, ok := feeStructures[normalized]; ok {
		return fs
	}
	return feeStructures[constants.PayoutMethodBankTransfer]
}

// FeeBreakdown 单笔打款费用明细
type FeeBreakdown struct {
	GrossAmount    models.Money `json:"gross_amount"`
	BaseFee        models.Money `json:"base_fee"`
	PercentageFee  models.Money `json:"percentage_fee"`
	TotalFees      models.Money `json:"total_fees"`
	NetAmount      models.Money `json:"net_amount"`
	FeePercentage  models.Money `json:"fee_percentage"`
	PaymentMethod  string       `json:"payment_method"`
	TierMultiplier models.Money `json:"tier_multiplier"`
}

// BatchFeeInput 批量费用计算输入
type BatchFeeInput struct {
	AffiliateID uint
	Amount      decimal.Decimal
	Tier        string
	Method      string
}

// BatchFeeItem 批量费用单项结果
type BatchFeeItem struct {
	AffiliateID uint         `json:"affiliate_id"`
	Breakdown   FeeBreakdown `json:"breakdown"`
}

// BatchFeeResult 批量费用计算结果
type BatchFeeResult struct {
	Items                []BatchFeeItem `json:"items"`
	TotalGross           models.Money   `json:"total_gross"`
	TotalFees            models.Money   `json:"total_fees"`
	TotalNet             models.Money   `json:"total_net"`
	AverageFeePercentage models.Money   `json:"average_fee_percentage"`
}

// PayoutValidation 打款金额校验结果
type PayoutValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// FeeService 打款手续费计算服务
type FeeService struct{}

// NewFeeService 创建手续费计算服务
func NewFeeService() *FeeService {
	return &FeeService{}
}

// CalculateFees 计算单笔打款费用明细
// 计算顺序：取固定费与比例费较大者，应用等级折扣，再做上下限收敛
func (s *FeeService) CalculateFees(amount decimal.Decimal, tierName, method string) FeeBreakdown {
	fs := feeStructureFor(method)
	tier := TierByName(tierName)

	percentageFee := amount.Mul(fs.Percentage).Round(0)
	total := fs.BaseFee
	if percentageFee.GreaterThan(total) {
		total = percentageFee
	}

	multiplier := decimal.NewFromInt(1).Sub(tier.FeeDiscount)
	total = total.Mul(multiplier).Round(0)

	if total.LessThan(fs.MinFee) {
		total = fs.MinFee
	}
	if fs.MaxFee.Sign() > 0 && total.GreaterThan(fs.MaxFee) {
		total = fs.MaxFee
	}

	net := amount.Sub(total)
	feePercentage := decimal.Zero
	if amount.Sign() > 0 {
		feePercentage = total.Div(amount).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return FeeBreakdown{
		GrossAmount:    models.NewMoneyFromDecimal(amount),
		BaseFee:        models.NewMoneyFromDecimal(fs.BaseFee),
		PercentageFee:  models.NewMoneyFromDecimal(percentageFee),
		TotalFees:      models.NewMoneyFromDecimal(total),
		NetAmount:      models.NewMoneyFromDecimal(net),
		FeePercentage:  models.NewMoneyFromDecimal(feePercentage),
		PaymentMethod:  normalizedPayoutMethod(method),
		TierMultiplier: models.NewMoneyFromDecimal(multiplier),
	}
}

// CalculateBatchFees 批量计算费用并汇总
// 平均手续费占比按金额加权（总费用 / 总金额）
func (s *FeeService) CalculateBatchFees(inputs []BatchFeeInput) BatchFeeResult {
	items := make([]BatchFeeItem, 0, len(inputs))
	totalGross := decimal.Zero
	totalFees := decimal.Zero
	totalNet := decimal.Zero

	for _, input := range inputs {
		breakdown := s.CalculateFees(input.Amount, input.Tier, input.Method)
		items = append(items, BatchFeeItem{
			AffiliateID: input.AffiliateID,
			Breakdown:   breakdown,
		})
		totalGross = totalGross.Add(breakdown.GrossAmount.Decimal)
		totalFees = totalFees.Add(breakdown.TotalFees.Decimal)
		totalNet = totalNet.Add(breakdown.NetAmount.Decimal)
	}

	averageFeePercentage := decimal.Zero
	if totalGross.Sign() > 0 {
		averageFeePercentage = totalFees.Div(totalGross).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return BatchFeeResult{
		Items:                items,
		TotalGross:           models.NewMoneyFromDecimal(totalGross),
		TotalFees:            models.NewMoneyFromDecimal(totalFees),
		TotalNet:             models.NewMoneyFromDecimal(totalNet),
		AverageFeePercentage: models.NewMoneyFromDecimal(averageFeePercentage),
	}
}

// ValidatePayoutAmount 校验打款金额是否可执行
// 所有不满足项一次性返回，手续费占比过高仅作为警告
func (s *FeeService) ValidatePayoutAmount(amount decimal.Decimal, tierName, method string) PayoutValidation {
	result := PayoutValidation{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	if amount.Sign() <= 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "Payout amount must be positive")
		return result
	}

	minimum := MinimumPayoutFor(tierName)
	if amount.LessThan(minimum) {
		shortfall := minimum.Sub(amount)
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Amount below minimum payout of %s (need %s more)",
			minimum.StringFixed(2), shortfall.StringFixed(2)))
	}

	breakdown := s.CalculateFees(amount, tierName, method)
	if breakdown.NetAmount.Decimal.Sign() <= 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "Fees exceed payout amount")
	}
	if breakdown.FeePercentage.Decimal.GreaterThan(decimal.NewFromInt(50)) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Fee percentage is unusually high: %s%%", breakdown.FeePercentage.Decimal.StringFixed(2)))
	}

	return result
}

func normalizedPayoutMethod(method string) string {
	normalized := strings.ToLower(strings.TrimSpace(method))
	if _, ok := feeStructures[normalized]; ok {
		return normalized
	}
	return constants.PayoutMethodBankTransfer
}
