package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
)

const (
	payoutThresholdMin     = 0
	payoutPreviewFeeMin    = 0
	payoutPreviewFeeMax    = 100
	payoutProcessingDayMin = 1
	payoutProcessingDayMax = 28
)

// PayoutSetting 打款资格配置
type PayoutSetting struct {
	MinimumThreshold           float64  `json:"minimum_threshold"`
	PreviewFeePercent          float64  `json:"preview_fee_percent"`
	ProcessingDay              int      `json:"processing_day"`
	EnabledPayoutMethods       []string `json:"enabled_payout_methods"`
	RequireBankVerification    bool     `json:"require_bank_verification"`
	RequireEwalletVerification bool     `json:"require_ewallet_verification"`
}

// MethodEnabled 指定打款方式是否已启用
func (s PayoutSetting) MethodEnabled(method string) bool {
	for _, enabled := range s.EnabledPayoutMethods {
		if enabled == method {
			return true
		}
	}
	return false
}

// PayoutDefaultSetting 默认打款资格配置
func PayoutDefaultSetting() PayoutSetting {
	return NormalizePayoutSetting(PayoutSetting{
		MinimumThreshold:           2000,
		PreviewFeePercent:          2,
		ProcessingDay:              5,
		EnabledPayoutMethods:       allPayoutMethods(),
		RequireBankVerification:    true,
		RequireEwalletVerification: true,
	})
}

func allPayoutMethods() []string {
	return []string{
		constants.PayoutMethodBankTransfer,
		constants.PayoutMethodEwalletOvo,
		constants.PayoutMethodEwalletDana,
		constants.PayoutMethodEwalletGopay,
	}
}

// normalizePayoutMethodList 过滤未知方式并去重，保持已知方式的固定顺序
func normalizePayoutMethodList(methods []string) []string {
	seen := make(map[string]bool, len(methods))
	for _, method := range methods {
		seen[strings.ToLower(strings.TrimSpace(method))] = true
	}
	var result []string
	for _, known := range allPayoutMethods() {
		if seen[known] {
			result = append(result, known)
		}
	}
	return result
}

// NormalizePayoutSetting 归一化打款资格配置
func NormalizePayoutSetting(setting PayoutSetting) PayoutSetting {
	setting.MinimumThreshold = math.Round(setting.MinimumThreshold*100) / 100
	if setting.MinimumThreshold < payoutThresholdMin {
		setting.MinimumThreshold = payoutThresholdMin
	}
	setting.PreviewFeePercent = math.Round(setting.PreviewFeePercent*100) / 100
	if setting.PreviewFeePercent < payoutPreviewFeeMin {
		setting.PreviewFeePercent = payoutPreviewFeeMin
	}
	if setting.PreviewFeePercent > payoutPreviewFeeMax {
		setting.PreviewFeePercent = payoutPreviewFeeMax
	}
	if setting.ProcessingDay < payoutProcessingDayMin {
		setting.ProcessingDay = payoutProcessingDayMin
	}
	if setting.ProcessingDay > payoutProcessingDayMax {
		setting.ProcessingDay = payoutProcessingDayMax
	}
	setting.EnabledPayoutMethods = normalizePayoutMethodList(setting.EnabledPayoutMethods)
	return setting
}

// ValidatePayoutSetting 校验打款资格配置
func ValidatePayoutSetting(setting PayoutSetting) error {
	if setting.MinimumThreshold < payoutThresholdMin {
		return fmt.Errorf("%w: 最低打款门槛不能小于 0", ErrPayoutConfigInvalid)
	}
	if setting.PreviewFeePercent < payoutPreviewFeeMin || setting.PreviewFeePercent > payoutPreviewFeeMax {
		return fmt.Errorf("%w: 预估手续费比例必须在 0-100 之间", ErrPayoutConfigInvalid)
	}
	if setting.ProcessingDay < payoutProcessingDayMin || setting.ProcessingDay > payoutProcessingDayMax {
		return fmt.Errorf("%w: 处理日必须在每月 1-28 号之间", ErrPayoutConfigInvalid)
	}
	if len(normalizePayoutMethodList(setting.EnabledPayoutMethods)) == 0 {
		return fmt.Errorf("%w: 至少启用一种打款方式", ErrPayoutConfigInvalid)
	}
	return nil
}

// PayoutSettingToMap 将配置转换为 settings 存储结构
func PayoutSettingToMap(setting PayoutSetting) map[string]interface{} {
	normalized := NormalizePayoutSetting(setting)
	return map[string]interface{}{
		"minimum_threshold":            normalized.MinimumThreshold,
		"preview_fee_percent":          normalized.PreviewFeePercent,
		"processing_day":               normalized.ProcessingDay,
		"enabled_payout_methods":       normalized.EnabledPayoutMethods,
		"require_bank_verification":    normalized.RequireBankVerification,
		"require_ewallet_verification": normalized.RequireEwalletVerification,
	}
}

func payoutSettingFromJSON(raw models.JSON, fallback PayoutSetting) PayoutSetting {
	result := fallback

	if thresholdRaw, ok := raw["minimum_threshold"]; ok {
		if parsed, err := parseSettingFloat(thresholdRaw); err == nil {
			result.MinimumThreshold = parsed
		}
	}
	if feeRaw, ok := raw["preview_fee_percent"]; ok {
		if parsed, err := parseSettingFloat(feeRaw); err == nil {
			result.PreviewFeePercent = parsed
		}
	}
	if dayRaw, ok := raw["processing_day"]; ok {
		if parsed, err := parseSettingInt(dayRaw); err == nil {
			result.ProcessingDay = parsed
		}
	}
	if methodsRaw, ok := raw["enabled_payout_methods"]; ok {
		if parsed, ok := parseSettingStringList(methodsRaw); ok {
			result.EnabledPayoutMethods = parsed
		}
	}
	if bankRaw, ok := raw["require_bank_verification"]; ok {
		result.RequireBankVerification = parseSettingBool(bankRaw)
	}
	if ewalletRaw, ok := raw["require_ewallet_verification"]; ok {
		result.RequireEwalletVerification = parseSettingBool(ewalletRaw)
	}

	return NormalizePayoutSetting(result)
}

// GetPayoutSetting 获取打款资格设置（优先 settings，空时回退默认）
func (s *SettingService) GetPayoutSetting() (PayoutSetting, error) {
	fallback := PayoutDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyPayout)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return payoutSettingFromJSON(value, fallback), nil
}

// UpdatePayoutSetting 更新打款资格设置
func (s *SettingService) UpdatePayoutSetting(setting PayoutSetting) (PayoutSetting, error) {
	normalized := NormalizePayoutSetting(setting)
	if err := ValidatePayoutSetting(normalized); err != nil {
		return PayoutDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyPayout, PayoutSettingToMap(normalized)); err != nil {
		return PayoutDefaultSetting(), err
	}
	return normalized, nil
}
