package service

import (
	"testing"

	"github.com/payout-next/internal/models"
)

func TestNormalizeClearingSetting(t *testing.T) {
	setting := NormalizeClearingSetting(ClearingSetting{
		Enabled:                 true,
		RefundPeriodDays:        0,
		MinClearDays:            -5,
		MaxClearDays:            0,
		HighCommissionThreshold: 1000.005,
		MaxConversionsPerWeek:   0,
	})
	if setting.RefundPeriodDays != 1 {
		t.Fatalf("refund period should floor at 1, got %d", setting.RefundPeriodDays)
	}
	if setting.MinClearDays != 0 {
		t.Fatalf("min clear days should floor at 0, got %d", setting.MinClearDays)
	}
	if setting.MaxClearDays < setting.RefundPeriodDays {
		t.Fatalf("max clear days %d must not be below refund period %d", setting.MaxClearDays, setting.RefundPeriodDays)
	}
	if setting.HighCommissionThreshold != 1000.01 {
		t.Fatalf("threshold should round to 2 decimals, got %v", setting.HighCommissionThreshold)
	}
}

func TestValidateClearingSetting(t *testing.T) {
	valid := ClearingDefaultSetting()
	if err := ValidateClearingSetting(valid); err != nil {
		t.Fatalf("default setting should validate: %v", err)
	}

	invalid := valid
	invalid.MaxClearDays = invalid.RefundPeriodDays - 1
	if err := ValidateClearingSetting(invalid); err == nil {
		t.Fatalf("max clear days below refund period should fail validation")
	}
}

func TestClearingSettingFromJSON(t *testing.T) {
	fallback := ClearingDefaultSetting()
	raw := models.JSON(map[string]interface{}{
		"enabled":                   false,
		"fraud_check_enabled":       false,
		"refund_period_days":        "14",
		"high_commission_threshold": 2500.5,
	})

	setting := clearingSettingFromJSON(raw, fallback)
	if setting.Enabled {
		t.Fatalf("enabled should parse false")
	}
	if setting.FraudCheckEnabled {
		t.Fatalf("fraud check enabled should parse false")
	}
	if setting.RefundPeriodDays != 14 {
		t.Fatalf("refund period want 14 got %d", setting.RefundPeriodDays)
	}
	if setting.HighCommissionThreshold != 2500.5 {
		t.Fatalf("threshold want 2500.5 got %v", setting.HighCommissionThreshold)
	}
	// 缺失字段保留回退值
	if setting.MaxConversionsPerWeek != fallback.MaxConversionsPerWeek {
		t.Fatalf("missing field should keep fallback, got %d", setting.MaxConversionsPerWeek)
	}
}

func TestClearingDefaultFraudCheckEnabled(t *testing.T) {
	setting := ClearingDefaultSetting()
	if !setting.FraudCheckEnabled {
		t.Fatalf("fraud check should be enabled by default")
	}
	if enabled, ok := ClearingSettingToMap(setting)["fraud_check_enabled"]; !ok || enabled != true {
		t.Fatalf("fraud_check_enabled should round-trip through the settings map, got %v", enabled)
	}
}
