package service

import (
	"strings"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"

	"github.com/shopspring/decimal"
)

// CommissionTier 推广等级定义
type CommissionTier struct {
	Key           string          // 等级标识
	Name          string          // 显示名称
	Rate          decimal.Decimal // 佣金比例（小数，如 0.15）
	FeeDiscount   decimal.Decimal // 手续费折扣（小数，如 0.10 表示减免 10%）
	MinimumPayout decimal.Decimal // 最低打款金额
}

var commissionTiers = map[string]CommissionTier{
	constants.TierBronze: {
		Key:           constants.TierBronze,
		Name:          "Bronze",
		Rate:          decimal.NewFromFloat(0.15),
		FeeDiscount:   decimal.Zero,
		MinimumPayout: decimal.NewFromInt(50000),
	},
	constants.TierSilver: {
		Key:           constants.TierSilver,
		Name:          "Silver",
		Rate:          decimal.NewFromFloat(0.20),
		FeeDiscount:   decimal.NewFromFloat(0.10),
		MinimumPayout: decimal.NewFromInt(40000),
	},
	constants.TierGold: {
		Key:           constants.TierGold,
		Name:          "Gold",
		Rate:          decimal.NewFromFloat(0.25),
		FeeDiscount:   decimal.NewFromFloat(0.15),
		MinimumPayout: decimal.NewFromInt(30000),
	},
	constants.TierPlatinum: {
		Key:           constants.TierPlatinum,
		Name:          "Platinum",
		Rate:          decimal.NewFromFloat(0.30),
		FeeDiscount:   decimal.NewFromFloat(0.20),
		MinimumPayout: decimal.NewFromInt(25000),
	},
}

// TierByName 按等级标识获取定义，未知等级回退 bronze
func TierByName(name string) CommissionTier {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if tier, ok := commissionTiers[normalized]; ok {
		return tier
	}
	return commissionTiers[constants.TierBronze]
}

// ListTiers 返回全部等级定义（固定顺序）
func ListTiers() []CommissionTier {
	return []CommissionTier{
		commissionTiers[constants.TierBronze],
		commissionTiers[constants.TierSilver],
		commissionTiers[constants.TierGold],
		commissionTiers[constants.TierPlatinum],
	}
}

// MinimumPayoutFor 获取等级最低打款金额，未知等级回退 bronze
func MinimumPayoutFor(tierName string) decimal.Decimal {
	return TierByName(tierName).MinimumPayout
}

// CalculateCommission 计算订单佣金（取整到个位）
// customRatePercent 为账户级覆盖比例（百分比），为空时使用等级默认比例
func CalculateCommission(orderAmount decimal.Decimal, tierName string, customRatePercent *models.Money) decimal.Decimal {
	if orderAmount.Sign() <= 0 {
		return decimal.Zero
	}
	rate := TierByName(tierName).Rate
	if customRatePercent != nil {
		rate = customRatePercent.Decimal.Div(decimal.NewFromInt(100))
	}
	return orderAmount.Mul(rate).Round(0)
}

// CommissionRatePercent 返回生效佣金比例（百分比）
func CommissionRatePercent(tierName string, customRatePercent *models.Money) decimal.Decimal {
	if customRatePercent != nil {
		return customRatePercent.Decimal
	}
	return TierByName(tierName).Rate.Mul(decimal.NewFromInt(100))
}
