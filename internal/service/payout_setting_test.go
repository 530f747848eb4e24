package service

import (
	"testing"

	"github.com/payout-next/internal/models"
)

func TestNormalizePayoutSetting(t *testing.T) {
	setting := NormalizePayoutSetting(PayoutSetting{
		MinimumThreshold:  -100,
		PreviewFeePercent: 150,
		ProcessingDay:     31,
	})
	if setting.MinimumThreshold != 0 {
		t.Fatalf("negative threshold should floor at 0, got %v", setting.MinimumThreshold)
	}
	if setting.PreviewFeePercent != 100 {
		t.Fatalf("fee percent should cap at 100, got %v", setting.PreviewFeePercent)
	}
	if setting.ProcessingDay != 28 {
		t.Fatalf("processing day should cap at 28, got %d", setting.ProcessingDay)
	}
}

func TestValidatePayoutSetting(t *testing.T) {
	if err := ValidatePayoutSetting(PayoutDefaultSetting()); err != nil {
		t.Fatalf("default setting should validate: %v", err)
	}
	if err := ValidatePayoutSetting(PayoutSetting{ProcessingDay: 0}); err == nil {
		t.Fatalf("processing day 0 should fail validation")
	}
}

func TestPayoutSettingFromJSON(t *testing.T) {
	fallback := PayoutDefaultSetting()
	raw := models.JSON(map[string]interface{}{
		"minimum_threshold":         5000,
		"preview_fee_percent":       "3.5",
		"enabled_payout_methods":    []interface{}{"bank_transfer", "ewallet_ovo", "bogus_method"},
		"require_bank_verification": false,
	})

	setting := payoutSettingFromJSON(raw, fallback)
	if setting.MinimumThreshold != 5000 {
		t.Fatalf("threshold want 5000 got %v", setting.MinimumThreshold)
	}
	if setting.PreviewFeePercent != 3.5 {
		t.Fatalf("fee percent want 3.5 got %v", setting.PreviewFeePercent)
	}
	if setting.RequireBankVerification {
		t.Fatalf("bank verification should parse false")
	}
	if setting.ProcessingDay != fallback.ProcessingDay {
		t.Fatalf("missing field should keep fallback, got %d", setting.ProcessingDay)
	}
	// 未知方式被过滤，已知方式保留
	if len(setting.EnabledPayoutMethods) != 2 {
		t.Fatalf("enabled methods want 2 got %v", setting.EnabledPayoutMethods)
	}
	if !setting.MethodEnabled("bank_transfer") || !setting.MethodEnabled("ewallet_ovo") {
		t.Fatalf("known methods should stay enabled: %v", setting.EnabledPayoutMethods)
	}
	if setting.MethodEnabled("bogus_method") {
		t.Fatalf("unknown method should be filtered out")
	}
}

func TestValidatePayoutSettingRequiresMethod(t *testing.T) {
	setting := PayoutDefaultSetting()
	setting.EnabledPayoutMethods = nil
	if err := ValidatePayoutSetting(setting); err == nil {
		t.Fatalf("empty enabled methods should fail validation")
	}
}
