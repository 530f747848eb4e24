package service

import (
	"testing"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestTierByNameFallback(t *testing.T) {
	tier := TierByName("  GOLD ")
	if tier.Key != constants.TierGold {
		t.Fatalf("tier lookup should be case-insensitive, got %s", tier.Key)
	}

	tier = TierByName("diamond")
	if tier.Key != constants.TierBronze {
		t.Fatalf("unknown tier should fall back to bronze, got %s", tier.Key)
	}
}

func TestListTiersOrder(t *testing.T) {
	tiers := ListTiers()
	want := []string{constants.TierBronze, constants.TierSilver, constants.TierGold, constants.TierPlatinum}
	if len(tiers) != len(want) {
		t.Fatalf("tier count want %d got %d", len(want), len(tiers))
	}
	for i, tier := range tiers {
		if tier.Key != want[i] {
			t.Fatalf("tier order at %d want %s got %s", i, want[i], tier.Key)
		}
	}
}

func TestCalculateCommission(t *testing.T) {
	// bronze 15%
	got := CalculateCommission(decimal.NewFromInt(100000), constants.TierBronze, nil)
	if !got.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("bronze commission want 15000 got %s", got)
	}

	// 自定义比例覆盖等级默认值
	custom := models.NewMoneyFromDecimal(decimal.NewFromInt(12))
	got = CalculateCommission(decimal.NewFromInt(100000), constants.TierGold, &custom)
	if !got.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("custom rate commission want 12000 got %s", got)
	}

	// 非正金额
	got = CalculateCommission(decimal.Zero, constants.TierBronze, nil)
	if !got.IsZero() {
		t.Fatalf("zero amount commission want 0 got %s", got)
	}
}

func TestCommissionRatePercent(t *testing.T) {
	got := CommissionRatePercent(constants.TierSilver, nil)
	if !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("silver rate percent want 20 got %s", got)
	}

	custom := models.NewMoneyFromDecimal(decimal.NewFromFloat(7.5))
	got = CommissionRatePercent(constants.TierSilver, &custom)
	if !got.Equal(decimal.NewFromFloat(7.5)) {
		t.Fatalf("custom rate percent want 7.5 got %s", got)
	}
}
