package main

import (
	"fmt"
	"time"

	"github.com/payout-next/internal/config"
	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加演示联盟成员
	affiliates := []models.Affiliate{
		{
			Code:              "DEMO0001",
			Name:              "Siti Rahma",
			Email:             "siti@example.com",
			Tier:              constants.TierGold,
			BankAccountName:   "Siti Rahma",
			BankAccountNumber: "1234567890",
			BankCode:          "BCA",
			BankVerified:      true,
			Status:            constants.AffiliateStatusActive,
		},
		{
			Code:            "DEMO0002",
			Name:            "Budi Santoso",
			Email:           "budi@example.com",
			Tier:            constants.TierSilver,
			EwalletType:     constants.PayoutMethodEwalletOvo,
			EwalletName:     "Budi Santoso",
			EwalletNumber:   "081234567890",
			EwalletVerified: true,
			Status:          constants.AffiliateStatusActive,
		},
		{
			// 仅有银行资料且未核验：用于资格预览的拒绝原因演示
			Code:              "DEMO0003",
			Name:              "Dewi Lestari",
			Email:             "dewi@example.com",
			Tier:              constants.TierBronze,
			BankAccountName:   "Dewi Lestari",
			BankAccountNumber: "9876543210",
			BankCode:          "BNI",
			Status:            constants.AffiliateStatusActive,
		},
	}

	for _, affiliate := range affiliates {
		var existing models.Affiliate
		if err := models.DB.Where("code = ?", affiliate.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&affiliate).Error; err != nil {
				stdLog.Printf("Failed to create affiliate %s: %v", affiliate.Code, err)
			} else {
				stdLog.Printf("Created affiliate: %s", affiliate.Code)
			}
		} else {
			stdLog.Printf("Affiliate already exists: %s", affiliate.Code)
		}
	}

	affiliateIDs := map[string]uint{}
	var affiliateList []models.Affiliate
	if err := models.DB.Where("code IN ?", []string{"DEMO0001", "DEMO0002", "DEMO0003"}).Find(&affiliateList).Error; err != nil {
		stdLog.Printf("Failed to load affiliates: %v", err)
	}
	for _, affiliate := range affiliateList {
		affiliateIDs[affiliate.Code] = affiliate.ID
	}

	// 添加演示转化记录（覆盖各状态与结算窗口）
	now := time.Now()
	clearedAt := now.AddDate(0, 0, -10)
	conversionPlans := []struct {
		Code        string
		OrderRef    string
		CustomerRef string
		OrderAmount float64
		RatePercent float64
		Status      string
		CreatedAt   time.Time
		ClearedAt   *time.Time
	}{
		{Code: "DEMO0001", OrderRef: "ORD-1001", CustomerRef: "CUST-01", OrderAmount: 25000, RatePercent: 15, Status: constants.ConversionStatusCleared, CreatedAt: now.AddDate(0, 0, -20), ClearedAt: &clearedAt},
		{Code: "DEMO0001", OrderRef: "ORD-1002", CustomerRef: "CUST-02", OrderAmount: 18000, RatePercent: 15, Status: constants.ConversionStatusCleared, CreatedAt: now.AddDate(0, 0, -15), ClearedAt: &clearedAt},
		{Code: "DEMO0001", OrderRef: "ORD-1003", CustomerRef: "CUST-03", OrderAmount: 9000, RatePercent: 15, Status: constants.ConversionStatusPending, CreatedAt: now.AddDate(0, 0, -35)},
		{Code: "DEMO0002", OrderRef: "ORD-2001", CustomerRef: "CUST-11", OrderAmount: 12000, RatePercent: 10, Status: constants.ConversionStatusCleared, CreatedAt: now.AddDate(0, 0, -12), ClearedAt: &clearedAt},
		{Code: "DEMO0002", OrderRef: "ORD-2002", CustomerRef: "CUST-12", OrderAmount: 6000, RatePercent: 10, Status: constants.ConversionStatusPending, CreatedAt: now.AddDate(0, 0, -40)},
		{Code: "DEMO0003", OrderRef: "ORD-3001", CustomerRef: "CUST-21", OrderAmount: 8000, RatePercent: 8, Status: constants.ConversionStatusCleared, CreatedAt: now.AddDate(0, 0, -8), ClearedAt: &clearedAt},
	}

	for _, plan := range conversionPlans {
		affiliateID := affiliateIDs[plan.Code]
		if affiliateID == 0 {
			stdLog.Printf("Skip conversion %s: affiliate %s missing", plan.OrderRef, plan.Code)
			continue
		}
		var existing models.Conversion
		if err := models.DB.Where("order_ref = ?", plan.OrderRef).First(&existing).Error; err == nil {
			stdLog.Printf("Conversion already exists: %s", plan.OrderRef)
			continue
		}
		orderAmount := decimal.NewFromFloat(plan.OrderAmount)
		ratePercent := decimal.NewFromFloat(plan.RatePercent)
		commission := orderAmount.Mul(ratePercent).Div(decimal.NewFromInt(100))
		conversion := models.Conversion{
			AffiliateID:      affiliateID,
			OrderRef:         plan.OrderRef,
			CustomerRef:      plan.CustomerRef,
			OrderAmount:      models.NewMoneyFromDecimal(orderAmount),
			RatePercent:      models.NewMoneyFromDecimal(ratePercent),
			CommissionAmount: models.NewMoneyFromDecimal(commission),
			Status:           plan.Status,
			ClearedAt:        plan.ClearedAt,
			CreatedAt:        plan.CreatedAt,
		}
		if err := models.DB.Create(&conversion).Error; err != nil {
			stdLog.Printf("Failed to create conversion %s: %v", plan.OrderRef, err)
		} else {
			stdLog.Printf("Created conversion: %s (%s)", plan.OrderRef, plan.Status)
		}
	}

	// 初始化结算与打款设置
	seedSetting(constants.SettingKeyClearing, service.ClearingSettingToMap(service.ClearingDefaultSetting()), stdLog.Printf)
	seedSetting(constants.SettingKeyPayout, service.PayoutSettingToMap(service.PayoutDefaultSetting()), stdLog.Printf)

	fmt.Println("\n✅ Demo data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Affiliates (verified bank / verified e-wallet / unverified)")
	fmt.Println("- 6 Conversions (cleared + pending)")
	fmt.Println("- Clearing & payout settings")
}

func seedSetting(key string, value map[string]interface{}, logf func(format string, v ...interface{})) {
	var setting models.Setting
	if err := models.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		setting = models.Setting{
			Key:       key,
			ValueJSON: models.JSON(value),
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			logf("Failed to create setting %s: %v", key, err)
			return
		}
		logf("Created setting: %s", key)
		return
	}
	logf("Setting already exists: %s", key)
}
