package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestEligibilityService(t *testing.T, db *gorm.DB) *EligibilityService {
	t.Helper()
	return NewEligibilityService(
		repository.NewAffiliateRepository(db),
		repository.NewConversionRepository(db),
		repository.NewPayoutRepository(db),
		newTestSettingService(t, db),
	)
}

func TestNormalizePayoutPeriod(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	period, err := NormalizePayoutPeriod("", now)
	if err != nil {
		t.Fatalf("empty period should default: %v", err)
	}
	if period != "2026-08" {
		t.Fatalf("default period want 2026-08 got %s", period)
	}

	period, err = NormalizePayoutPeriod("  2026-07  ", now)
	if err != nil {
		t.Fatalf("trimmed period should pass: %v", err)
	}
	if period != "2026-07" {
		t.Fatalf("trimmed period want 2026-07 got %s", period)
	}

	for _, invalid := range []string{"2026-13", "2026-0", "26-07", "2026/07", "foo"} {
		if _, err := NormalizePayoutPeriod(invalid, now); !errors.Is(err, ErrPayoutPeriodInvalid) {
			t.Fatalf("period %q want ErrPayoutPeriodInvalid got %v", invalid, err)
		}
	}
}

func TestPreviewEligiblePayouts(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestEligibilityService(t, db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	// 达标账户：佣金 3000，超过默认门槛 2000
	eligible := createServiceTestAffiliate(t, db, "ELG-OK", nil)
	createServiceTestConversion(t, db, eligible.ID, "ORD-E1", "CUST-E1",
		constants.ConversionStatusCleared, decimal.NewFromInt(1800), inPeriod)
	createServiceTestConversion(t, db, eligible.ID, "ORD-E2", "CUST-E2",
		constants.ConversionStatusCleared, decimal.NewFromInt(1200), inPeriod.AddDate(0, 0, 3))

	// 未达门槛账户：佣金 500
	short := createServiceTestAffiliate(t, db, "ELG-LOW", nil)
	createServiceTestConversion(t, db, short.ID, "ORD-L1", "CUST-L1",
		constants.ConversionStatusCleared, decimal.NewFromInt(500), inPeriod)

	// 银行未核验账户：金额足够但被拒
	unverified := createServiceTestAffiliate(t, db, "ELG-UNV", func(a *models.Affiliate) {
		a.BankVerified = false
	})
	createServiceTestConversion(t, db, unverified.ID, "ORD-U1", "CUST-U1",
		constants.ConversionStatusCleared, decimal.NewFromInt(5000), inPeriod)

	// 周期外的转化不参与
	createServiceTestConversion(t, db, eligible.ID, "ORD-E3", "CUST-E3",
		constants.ConversionStatusCleared, decimal.NewFromInt(9999), inPeriod.AddDate(0, -2, 0))

	preview, err := svc.PreviewEligiblePayouts("2026-02", now)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(preview.Eligible) != 1 {
		t.Fatalf("eligible want 1 got %d", len(preview.Eligible))
	}
	if len(preview.Ineligible) != 2 {
		t.Fatalf("ineligible want 2 got %d", len(preview.Ineligible))
	}

	got := preview.Eligible[0]
	if got.AffiliateID != eligible.ID || got.ConversionCount != 2 {
		t.Fatalf("eligible entry mismatch: %+v", got)
	}
	if got.TotalCleared.String() != "3000.00" {
		t.Fatalf("total cleared want 3000.00 got %s", got.TotalCleared.String())
	}
	// 默认预估手续费 2%
	if got.FeeAmount.String() != "60.00" {
		t.Fatalf("fee want 60.00 got %s", got.FeeAmount.String())
	}
	if got.NetAmount.String() != "2940.00" {
		t.Fatalf("net want 2940.00 got %s", got.NetAmount.String())
	}

	for _, entry := range preview.Ineligible {
		switch entry.AffiliateID {
		case short.ID:
			if len(entry.RejectionReasons) != 1 || !strings.Contains(entry.RejectionReasons[0], "below minimum threshold of 2000.00") {
				t.Fatalf("shortfall reasons mismatch: %v", entry.RejectionReasons)
			}
			if !strings.Contains(entry.RejectionReasons[0], "need 1500.00 more") {
				t.Fatalf("shortfall amount mismatch: %v", entry.RejectionReasons)
			}
		case unverified.ID:
			if len(entry.RejectionReasons) != 1 || entry.RejectionReasons[0] != "Bank account not verified" {
				t.Fatalf("verification reasons mismatch: %v", entry.RejectionReasons)
			}
		default:
			t.Fatalf("unexpected ineligible affiliate %d", entry.AffiliateID)
		}
	}

	summary := preview.Summary
	if summary.TotalEligible != 1 || summary.TotalIneligible != 2 {
		t.Fatalf("summary counts mismatch: %+v", summary)
	}
	if summary.TotalPayoutAmount.String() != "3000.00" || summary.TotalFeeAmount.String() != "60.00" {
		t.Fatalf("summary amounts mismatch: %+v", summary)
	}
	if summary.TotalRolloverAmount.String() != "5500.00" {
		t.Fatalf("summary rollover want 5500.00 got %s", summary.TotalRolloverAmount.String())
	}
	if summary.PayoutPeriod != "2026-02" || summary.CutoffDate != "2026-02-28" {
		t.Fatalf("summary period mismatch: %+v", summary)
	}
	if summary.ProcessingDate != "2026-03-05" {
		t.Fatalf("processing date want 2026-03-05 got %s", summary.ProcessingDate)
	}
}

func TestPreviewCollectsAllRejectionReasons(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestEligibilityService(t, db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	// 停用 + 金额不足 + 资料缺失 + 无可用方式，原因应全部累积
	affiliate := createServiceTestAffiliate(t, db, "ELG-MULTI", func(a *models.Affiliate) {
		a.Status = constants.AffiliateStatusSuspended
		a.BankAccountNumber = ""
		a.BankVerified = false
	})
	createServiceTestConversion(t, db, affiliate.ID, "ORD-M1", "CUST-M1",
		constants.ConversionStatusCleared, decimal.NewFromInt(100), inPeriod)

	preview, err := svc.PreviewEligiblePayouts("2026-02", now)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(preview.Ineligible) != 1 {
		t.Fatalf("ineligible want 1 got %d", len(preview.Ineligible))
	}
	reasons := preview.Ineligible[0].RejectionReasons
	if len(reasons) != 4 {
		t.Fatalf("reasons want 4 got %v", reasons)
	}
	if reasons[0] != "Affiliate account is suspended" {
		t.Fatalf("first reason mismatch: %v", reasons)
	}
	if reasons[2] != "Missing payment details (bank account or e-wallet)" {
		t.Fatalf("details reason mismatch: %v", reasons)
	}
	if reasons[3] != "No enabled payment method available" {
		t.Fatalf("method reason mismatch: %v", reasons)
	}
}

func TestPreviewPayoutMethodSelection(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestEligibilityService(t, db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	// 双方式齐全时优先银行转账
	both := createServiceTestAffiliate(t, db, "ELG-BOTH", func(a *models.Affiliate) {
		a.EwalletType = constants.PayoutMethodEwalletOvo
		a.EwalletName = "Partner Both"
		a.EwalletNumber = "081234567890"
		a.EwalletVerified = true
	})
	createServiceTestConversion(t, db, both.ID, "ORD-B1", "CUST-B1",
		constants.ConversionStatusCleared, decimal.NewFromInt(3000), inPeriod)

	// 仅有电子钱包资料时回退到钱包
	walletOnly := createServiceTestAffiliate(t, db, "ELG-WAL", func(a *models.Affiliate) {
		a.BankAccountName = ""
		a.BankAccountNumber = ""
		a.BankCode = ""
		a.BankVerified = false
		a.EwalletType = constants.PayoutMethodEwalletDana
		a.EwalletName = "Partner Wallet"
		a.EwalletNumber = "089876543210"
		a.EwalletVerified = true
	})
	createServiceTestConversion(t, db, walletOnly.ID, "ORD-W1", "CUST-W1",
		constants.ConversionStatusCleared, decimal.NewFromInt(4000), inPeriod)

	preview, err := svc.PreviewEligiblePayouts("2026-02", now)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(preview.Eligible) != 2 {
		t.Fatalf("eligible want 2 got %d: %+v", len(preview.Eligible), preview.Ineligible)
	}
	methods := map[uint]string{}
	for _, entry := range preview.Eligible {
		methods[entry.AffiliateID] = entry.PayoutMethod
	}
	if methods[both.ID] != constants.PayoutMethodBankTransfer {
		t.Fatalf("dual-method affiliate want bank_transfer got %s", methods[both.ID])
	}
	if methods[walletOnly.ID] != constants.PayoutMethodEwalletDana {
		t.Fatalf("wallet affiliate want ewallet_dana got %s", methods[walletOnly.ID])
	}
}

func TestPreviewDisabledMethodRejected(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestEligibilityService(t, db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	// 仅启用电子钱包：只有银行资料的账户没有可用方式
	setting := PayoutDefaultSetting()
	setting.EnabledPayoutMethods = []string{
		constants.PayoutMethodEwalletOvo,
		constants.PayoutMethodEwalletDana,
		constants.PayoutMethodEwalletGopay,
	}
	saveTestPayoutSetting(t, newTestSettingService(t, db), setting)

	bankOnly := createServiceTestAffiliate(t, db, "ELG-DIS", nil)
	createServiceTestConversion(t, db, bankOnly.ID, "ORD-D1", "CUST-D1",
		constants.ConversionStatusCleared, decimal.NewFromInt(3000), inPeriod)

	preview, err := svc.PreviewEligiblePayouts("2026-02", now)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(preview.Ineligible) != 1 {
		t.Fatalf("ineligible want 1 got %d", len(preview.Ineligible))
	}
	reasons := preview.Ineligible[0].RejectionReasons
	if len(reasons) != 1 || reasons[0] != "No enabled payment method available" {
		t.Fatalf("disabled method reasons mismatch: %v", reasons)
	}
}

func TestPreviewRejectsOpenPayout(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestEligibilityService(t, db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	affiliate := createServiceTestAffiliate(t, db, "ELG-OPEN", nil)
	createServiceTestConversion(t, db, affiliate.ID, "ORD-O1", "CUST-O1",
		constants.ConversionStatusCleared, decimal.NewFromInt(3000), inPeriod)

	open := &models.Payout{
		AffiliateID: affiliate.ID,
		Period:      "2026-01",
		Reference:   "PO-OPEN-1",
		Method:      constants.PayoutMethodBankTransfer,
		Status:      constants.PayoutStatusProcessing,
	}
	if err := db.Create(open).Error; err != nil {
		t.Fatalf("create payout failed: %v", err)
	}

	preview, err := svc.PreviewEligiblePayouts("2026-02", now)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if len(preview.Ineligible) != 1 {
		t.Fatalf("ineligible want 1 got %d", len(preview.Ineligible))
	}
	reasons := preview.Ineligible[0].RejectionReasons
	if len(reasons) != 1 || reasons[0] != "An open payout already exists for this affiliate" {
		t.Fatalf("open payout reason mismatch: %v", reasons)
	}
}

func TestGetRolloverBalances(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestEligibilityService(t, db)
	now := time.Now()

	accumulated := createServiceTestAffiliate(t, db, "ROLL-ACC", nil)
	oldest := now.AddDate(0, 0, -100)
	createServiceTestConversion(t, db, accumulated.ID, "ORD-R1", "CUST-R1",
		constants.ConversionStatusCleared, decimal.NewFromInt(400), oldest)
	createServiceTestConversion(t, db, accumulated.ID, "ORD-R2", "CUST-R2",
		constants.ConversionStatusCleared, decimal.NewFromInt(600), now.AddDate(0, 0, -10))

	single := createServiceTestAffiliate(t, db, "ROLL-ONE", nil)
	createServiceTestConversion(t, db, single.ID, "ORD-R3", "CUST-R3",
		constants.ConversionStatusCleared, decimal.NewFromInt(250), now.AddDate(0, 0, -5))

	// 已绑定打款单的转化不计入滚存
	bound := createServiceTestConversion(t, db, single.ID, "ORD-R4", "CUST-R4",
		constants.ConversionStatusCleared, decimal.NewFromInt(999), now.AddDate(0, 0, -6))
	payoutID := uint(77)
	if err := db.Model(bound).UpdateColumn("payout_id", payoutID).Error; err != nil {
		t.Fatalf("bind conversion failed: %v", err)
	}

	balances, err := svc.GetRolloverBalances()
	if err != nil {
		t.Fatalf("get rollover balances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("balances want 2 got %d", len(balances))
	}

	byID := map[uint]RolloverBalance{}
	for _, balance := range balances {
		byID[balance.AffiliateID] = balance
	}

	acc := byID[accumulated.ID]
	if acc.RolloverAmount.String() != "1000.00" || acc.ConversionCount != 2 {
		t.Fatalf("accumulated balance mismatch: %+v", acc)
	}
	// 跨度 90 天，按 30 天一个月向上取整
	if acc.MonthsAccumulated != 3 {
		t.Fatalf("months accumulated want 3 got %d", acc.MonthsAccumulated)
	}

	one := byID[single.ID]
	if one.RolloverAmount.String() != "250.00" || one.ConversionCount != 1 {
		t.Fatalf("single balance mismatch: %+v", one)
	}
	if one.MonthsAccumulated != 1 {
		t.Fatalf("single months want 1 got %d", one.MonthsAccumulated)
	}
}
