package service

import (
	"strings"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
)

// normalizeSettingValueByKey 按设置键执行归一化，避免非法值入库。
func normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	switch key {
	case constants.SettingKeyClearing:
		setting := clearingSettingFromJSON(models.JSON(value), ClearingDefaultSetting())
		return models.JSON(ClearingSettingToMap(setting))
	case constants.SettingKeyPayout:
		setting := payoutSettingFromJSON(models.JSON(value), PayoutDefaultSetting())
		return models.JSON(PayoutSettingToMap(setting))
	default:
		return models.JSON(value)
	}
}

func normalizeSettingText(raw interface{}) string {
	text, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

// parseSettingStringList 解析字符串数组设置，第二返回值表示原始值形状是否合法
func parseSettingStringList(raw interface{}) ([]string, bool) {
	switch value := raw.(type) {
	case []string:
		return value, true
	case []interface{}:
		result := make([]string, 0, len(value))
		for _, item := range value {
			text, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, text)
		}
		return result, true
	default:
		return nil, false
	}
}

func parseSettingBool(raw interface{}) bool {
	switch value := raw.(type) {
	case bool:
		return value
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	case string:
		normalized := strings.ToLower(strings.TrimSpace(value))
		return normalized == "1" || normalized == "true" || normalized == "yes" || normalized == "on"
	default:
		return false
	}
}
