package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.Conversion{},
		&models.Payout{},
		&models.PayoutItem{},
		&models.ClearingAudit{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	return db
}

func newTestSettingService(t *testing.T, db *gorm.DB) *SettingService {
	t.Helper()
	return NewSettingService(repository.NewSettingRepository(db))
}

func createServiceTestAffiliate(t *testing.T, db *gorm.DB, code string, mutate func(*models.Affiliate)) *models.Affiliate {
	t.Helper()

	affiliate := &models.Affiliate{
		Code:              code,
		Name:              "Partner " + code,
		Email:             code + "@example.com",
		Tier:              constants.TierBronze,
		BankAccountName:   "Partner " + code,
		BankAccountNumber: "1234567890",
		BankCode:          "BCA",
		BankVerified:      true,
		Status:            constants.AffiliateStatusActive,
	}
	if mutate != nil {
		mutate(affiliate)
	}
	if err := db.Create(affiliate).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return affiliate
}

func createServiceTestConversion(t *testing.T, db *gorm.DB, affiliateID uint, orderRef, customerRef, status string, commission decimal.Decimal, createdAt time.Time) *models.Conversion {
	t.Helper()

	conversion := &models.Conversion{
		AffiliateID:      affiliateID,
		OrderRef:         orderRef,
		CustomerRef:      customerRef,
		OrderAmount:      models.NewMoneyFromDecimal(commission.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(15))),
		RatePercent:      models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
		CommissionAmount: models.NewMoneyFromDecimal(commission),
		Status:           status,
	}
	if status == constants.ConversionStatusCleared {
		clearedAt := createdAt.AddDate(0, 0, 7)
		conversion.ClearedAt = &clearedAt
	}
	if err := db.Create(conversion).Error; err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}
	if err := db.Model(conversion).UpdateColumn("created_at", createdAt).Error; err != nil {
		t.Fatalf("set conversion created_at failed: %v", err)
	}
	conversion.CreatedAt = createdAt
	return conversion
}

func saveTestClearingSetting(t *testing.T, settingService *SettingService, setting ClearingSetting) {
	t.Helper()
	if _, err := settingService.UpdateClearingSetting(setting); err != nil {
		t.Fatalf("save clearing setting failed: %v", err)
	}
}

func saveTestPayoutSetting(t *testing.T, settingService *SettingService, setting PayoutSetting) {
	t.Helper()
	if _, err := settingService.UpdatePayoutSetting(setting); err != nil {
		t.Fatalf("save payout setting failed: %v", err)
	}
}
