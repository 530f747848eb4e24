//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.PayoutItem{},
		&models.ClearingAudit{},
		&models.Conversion{},
		&models.Payout{},
		&models.Affiliate{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.Conversion{},
		&models.Payout{},
		&models.PayoutItem{},
		&models.ClearingAudit{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresAffiliateKeywordSearch(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewAffiliateRepository(db)

	affiliate := &models.Affiliate{
		Code:              "PG-AFF-001",
		Name:              "Rocket Partner",
		Email:             "rocket@example.com",
		Tier:              constants.TierSilver,
		BankAccountName:   "Rocket Partner",
		BankAccountNumber: "1234567890",
		BankCode:          "BCA",
		Status:            constants.AffiliateStatusActive,
	}
	if err := repo.Create(affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	// ILIKE 在 postgres 下应忽略大小写
	rows, total, err := repo.List(AffiliateListFilter{Page: 1, PageSize: 10, Keyword: "rocket partner"})
	if err != nil {
		t.Fatalf("affiliate keyword search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("affiliate keyword search want 1 got total=%d len=%d", total, len(rows))
	}
}

func TestPostgresConversionPayoutBinding(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	affiliateRepo := NewAffiliateRepository(db)
	conversionRepo := NewConversionRepository(db)
	payoutRepo := NewPayoutRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	affiliate := &models.Affiliate{
		Code:          "PG-AFF-002",
		Name:          "Binding Partner",
		Email:         "binding@example.com",
		Tier:          constants.TierGold,
		EwalletType:   constants.PayoutMethodEwalletOvo,
		EwalletName:   "Binding Partner",
		EwalletNumber: "081234567890",
		Status:        constants.AffiliateStatusActive,
	}
	if err := affiliateRepo.Create(affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	clearedAt := now.Add(-time.Hour)
	conversion := &models.Conversion{
		AffiliateID:      affiliate.ID,
		OrderRef:         "PG-ORDER-001",
		CustomerRef:      "PG-CUST-001",
		OrderAmount:      models.NewMoneyFromDecimal(decimal.NewFromInt(100000)),
		RatePercent:      models.NewMoneyFromDecimal(decimal.NewFromInt(25)),
		CommissionAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(25000)),
		Status:           constants.ConversionStatusCleared,
		ClearedAt:        &clearedAt,
	}
	if err := conversionRepo.Create(conversion); err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}

	payout := &models.Payout{
		AffiliateID: affiliate.ID,
		Period:      now.Format("2006-01"),
		Reference:   "PG-PAYOUT-001",
		Method:      constants.PayoutMethodEwalletOvo,
		GrossAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(25000)),
		FeeAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(2500)),
		NetAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(22500)),
		Status:      constants.PayoutStatusPending,
	}
	if err := payoutRepo.Create(payout); err != nil {
		t.Fatalf("create payout failed: %v", err)
	}

	bound, err := conversionRepo.BindPayout([]uint{conversion.ID}, payout.ID, now)
	if err != nil {
		t.Fatalf("bind payout failed: %v", err)
	}
	if bound != 1 {
		t.Fatalf("bind payout rows want 1 got %d", bound)
	}

	sum, err := conversionRepo.SumClearedUnboundByAffiliate(affiliate.ID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("sum cleared unbound failed: %v", err)
	}
	if !sum.IsZero() {
		t.Fatalf("cleared unbound after binding want 0 got %s", sum.String())
	}

	released, err := conversionRepo.ReleaseByPayout(payout.ID, now)
	if err != nil {
		t.Fatalf("release payout failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("release payout rows want 1 got %d", released)
	}

	sum, err = conversionRepo.SumClearedUnboundByAffiliate(affiliate.ID, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("sum cleared unbound after release failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("cleared unbound after release want 25000 got %s", sum.String())
	}
}
