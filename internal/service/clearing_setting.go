package service

import (
	"fmt"
	"math"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
)

const (
	clearingRefundPeriodDaysMin = 1
	clearingRefundPeriodDaysMax = 365
	clearingMinClearDaysMin     = 0
	clearingMaxClearDaysMax     = 3650
	clearingFrequencyLimitMin   = 1
	clearingFrequencyLimitMax   = 10000
)

// ClearingSetting 自动结算配置
type ClearingSetting struct {
	Enabled                 bool    `json:"enabled"`
	FraudCheckEnabled       bool    `json:"fraud_check_enabled"`
	RefundPeriodDays        int     `json:"refund_period_days"`
	MinClearDays            int     `json:"min_clear_days"`
	MaxClearDays            int     `json:"max_clear_days"`
	HighCommissionThreshold float64 `json:"high_commission_threshold"`
	MaxConversionsPerWeek   int     `json:"max_conversions_per_week"`
}

// ClearingDefaultSetting 默认自动结算配置
func ClearingDefaultSetting() ClearingSetting {
	return NormalizeClearingSetting(ClearingSetting{
		Enabled:                 true,
		FraudCheckEnabled:       true,
		RefundPeriodDays:        30,
		MinClearDays:            7,
		MaxClearDays:            45,
		HighCommissionThreshold: 1000,
		MaxConversionsPerWeek:   10,
	})
}

// NormalizeClearingSetting 归一化自动结算配置
func NormalizeClearingSetting(setting ClearingSetting) ClearingSetting {
	if setting.RefundPeriodDays < clearingRefundPeriodDaysMin {
		setting.RefundPeriodDays = clearingRefundPeriodDaysMin
	}
	if setting.RefundPeriodDays > clearingRefundPeriodDaysMax {
		setting.RefundPeriodDays = clearingRefundPeriodDaysMax
	}
	if setting.MinClearDays < clearingMinClearDaysMin {
		setting.MinClearDays = clearingMinClearDaysMin
	}
	if setting.MaxClearDays < setting.RefundPeriodDays {
		setting.MaxClearDays = setting.RefundPeriodDays
	}
	if setting.MaxClearDays > clearingMaxClearDaysMax {
		setting.MaxClearDays = clearingMaxClearDaysMax
	}
	setting.HighCommissionThreshold = math.Round(setting.HighCommissionThreshold*100) / 100
	if setting.HighCommissionThreshold < 0 {
		setting.HighCommissionThreshold = 0
	}
	if setting.MaxConversionsPerWeek < clearingFrequencyLimitMin {
		setting.MaxConversionsPerWeek = clearingFrequencyLimitMin
	}
	if setting.MaxConversionsPerWeek > clearingFrequencyLimitMax {
		setting.MaxConversionsPerWeek = clearingFrequencyLimitMax
	}
	return setting
}

// ValidateClearingSetting 校验自动结算配置
func ValidateClearingSetting(setting ClearingSetting) error {
	if setting.RefundPeriodDays < clearingRefundPeriodDaysMin || setting.RefundPeriodDays > clearingRefundPeriodDaysMax {
		return fmt.Errorf("%w: 退款保护期必须在 1-365 天之间", ErrClearingConfigInvalid)
	}
	if setting.MaxClearDays < setting.RefundPeriodDays {
		return fmt.Errorf("%w: 最长滞留天数不能小于退款保护期", ErrClearingConfigInvalid)
	}
	if setting.HighCommissionThreshold < 0 {
		return fmt.Errorf("%w: 大额佣金阈值不能小于 0", ErrClearingConfigInvalid)
	}
	if setting.MaxConversionsPerWeek < clearingFrequencyLimitMin {
		return fmt.Errorf("%w: 每周转化上限必须大于 0", ErrClearingConfigInvalid)
	}
	return nil
}

// ClearingSettingToMap 将配置转换为 settings 存储结构
func ClearingSettingToMap(setting ClearingSetting) map[string]interface{} {
	normalized := NormalizeClearingSetting(setting)
	return map[string]interface{}{
		"enabled":                   normalized.Enabled,
		"fraud_check_enabled":       normalized.FraudCheckEnabled,
		"refund_period_days":        normalized.RefundPeriodDays,
		"min_clear_days":            normalized.MinClearDays,
		"max_clear_days":            normalized.MaxClearDays,
		"high_commission_threshold": normalized.HighCommissionThreshold,
		"max_conversions_per_week":  normalized.MaxConversionsPerWeek,
	}
}

func clearingSettingFromJSON(raw models.JSON, fallback ClearingSetting) ClearingSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if fraudRaw, ok := raw["fraud_check_enabled"]; ok {
		result.FraudCheckEnabled = parseSettingBool(fraudRaw)
	}
	if daysRaw, ok := raw["refund_period_days"]; ok {
		if parsed, err := parseSettingInt(daysRaw); err == nil {
			result.RefundPeriodDays = parsed
		}
	}
	if daysRaw, ok := raw["min_clear_days"]; ok {
		if parsed, err := parseSettingInt(daysRaw); err == nil {
			result.MinClearDays = parsed
		}
	}
	if daysRaw, ok := raw["max_clear_days"]; ok {
		if parsed, err := parseSettingInt(daysRaw); err == nil {
			result.MaxClearDays = parsed
		}
	}
	if thresholdRaw, ok := raw["high_commission_threshold"]; ok {
		if parsed, err := parseSettingFloat(thresholdRaw); err == nil {
			result.HighCommissionThreshold = parsed
		}
	}
	if limitRaw, ok := raw["max_conversions_per_week"]; ok {
		if parsed, err := parseSettingInt(limitRaw); err == nil {
			result.MaxConversionsPerWeek = parsed
		}
	}

	return NormalizeClearingSetting(result)
}

// GetClearingSetting 获取自动结算设置（优先 settings，空时回退默认）
func (s *SettingService) GetClearingSetting() (ClearingSetting, error) {
	fallback := ClearingDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyClearing)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return clearingSettingFromJSON(value, fallback), nil
}

// UpdateClearingSetting 更新自动结算设置
func (s *SettingService) UpdateClearingSetting(setting ClearingSetting) (ClearingSetting, error) {
	normalized := NormalizeClearingSetting(setting)
	if err := ValidateClearingSetting(normalized); err != nil {
		return ClearingDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyClearing, ClearingSettingToMap(normalized)); err != nil {
		return ClearingDefaultSetting(), err
	}
	return normalized, nil
}
