package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/payment/xendit"
	"github.com/payout-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestPayoutService(t *testing.T, db *gorm.DB, gatewayURL string) *PayoutService {
	t.Helper()

	settingService := newTestSettingService(t, db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	cfg := &xendit.Config{
		BaseURL:       gatewayURL,
		APIKey:        "xnd_test_key",
		CallbackToken: "callback-token",
	}
	cfg.Normalize()
	return NewPayoutService(
		affiliateRepo,
		conversionRepo,
		payoutRepo,
		NewFeeService(),
		NewEligibilityService(affiliateRepo, conversionRepo, payoutRepo, settingService),
		settingService,
		cfg,
		nil,
	)
}

func newDisbursementGateway(t *testing.T, lastRequest *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/disbursements" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if lastRequest != nil {
			*lastRequest = body
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "disb-001",
			"external_id": body["external_id"],
			"status":      "PENDING",
			"amount":      body["amount"],
		})
	}))
}

func newFailingGateway(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error_code": "INSUFFICIENT_BALANCE",
			"message":    "not enough balance",
		})
	}))
}

func TestProcessPayoutsGatewayNotConfigured(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := newTestPayoutService(t, db, "http://127.0.0.1:0")
	svc.gatewayConfig = &xendit.Config{}

	_, err := svc.ProcessPayouts(context.Background(), "2026-02", time.Now())
	if !errors.Is(err, ErrGatewayNotConfigured) {
		t.Fatalf("want ErrGatewayNotConfigured got %v", err)
	}
}

func TestProcessPayoutsCreatesAndDispatches(t *testing.T) {
	db := setupServiceTestDB(t)
	var lastRequest map[string]interface{}
	server := newDisbursementGateway(t, &lastRequest)
	defer server.Close()
	svc := newTestPayoutService(t, db, server.URL)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	affiliate := createServiceTestAffiliate(t, db, "PAY-OK", nil)
	first := createServiceTestConversion(t, db, affiliate.ID, "ORD-P1", "CUST-P1",
		constants.ConversionStatusCleared, decimal.NewFromInt(1800000), inPeriod)
	second := createServiceTestConversion(t, db, affiliate.ID, "ORD-P2", "CUST-P2",
		constants.ConversionStatusCleared, decimal.NewFromInt(1200000), inPeriod.AddDate(0, 0, 2))

	result, err := svc.ProcessPayouts(context.Background(), "2026-02", now)
	if err != nil {
		t.Fatalf("process payouts failed: %v", err)
	}
	if result.Created != 1 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("result want created=1 got %+v", result)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items want 1 got %d", len(result.Items))
	}
	item := result.Items[0]
	if item.Status != constants.PayoutStatusProcessing || item.PayoutID == 0 {
		t.Fatalf("item mismatch: %+v", item)
	}

	var payout models.Payout
	if err := db.First(&payout, item.PayoutID).Error; err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	if payout.Status != constants.PayoutStatusProcessing {
		t.Fatalf("payout status want processing got %s", payout.Status)
	}
	if payout.DisbursementID != "disb-001" {
		t.Fatalf("disbursement id want disb-001 got %s", payout.DisbursementID)
	}
	// 青铜层级银行转账：固定费 4000
	if payout.GrossAmount.String() != "3000000.00" || payout.FeeAmount.String() != "4000.00" {
		t.Fatalf("payout amounts mismatch: gross=%s fee=%s", payout.GrossAmount.String(), payout.FeeAmount.String())
	}
	if payout.NetAmount.String() != "2996000.00" {
		t.Fatalf("net amount want 2996000.00 got %s", payout.NetAmount.String())
	}

	var items []models.PayoutItem
	if err := db.Where("payout_id = ?", payout.ID).Find(&items).Error; err != nil {
		t.Fatalf("load payout items failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("payout items want 2 got %d", len(items))
	}

	for _, id := range []uint{first.ID, second.ID} {
		var conversion models.Conversion
		if err := db.First(&conversion, id).Error; err != nil {
			t.Fatalf("reload conversion failed: %v", err)
		}
		if conversion.PayoutID == nil || *conversion.PayoutID != payout.ID {
			t.Fatalf("conversion %d should be bound to payout %d", id, payout.ID)
		}
	}

	if lastRequest["bank_code"] != "BCA" {
		t.Fatalf("gateway bank_code want BCA got %v", lastRequest["bank_code"])
	}
	if lastRequest["external_id"] != payout.Reference {
		t.Fatalf("gateway external_id want %s got %v", payout.Reference, lastRequest["external_id"])
	}
}

func TestProcessPayoutsGatewayFailureReleasesConversions(t *testing.T) {
	db := setupServiceTestDB(t)
	server := newFailingGateway(t)
	defer server.Close()
	svc := newTestPayoutService(t, db, server.URL)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	affiliate := createServiceTestAffiliate(t, db, "PAY-FAIL", nil)
	conversion := createServiceTestConversion(t, db, affiliate.ID, "ORD-F1", "CUST-F1",
		constants.ConversionStatusCleared, decimal.NewFromInt(3000000), inPeriod)

	result, err := svc.ProcessPayouts(context.Background(), "2026-02", now)
	if err != nil {
		t.Fatalf("process payouts failed: %v", err)
	}
	if result.Created != 0 || result.Failed != 1 {
		t.Fatalf("result want failed=1 got %+v", result)
	}

	var payout models.Payout
	if err := db.First(&payout, result.Items[0].PayoutID).Error; err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	if payout.Status != constants.PayoutStatusFailed || payout.FailureCode != "GATEWAY_ERROR" {
		t.Fatalf("payout should be failed with GATEWAY_ERROR got %+v", payout)
	}

	var released models.Conversion
	if err := db.First(&released, conversion.ID).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if released.PayoutID != nil {
		t.Fatalf("conversion should be released after gateway failure")
	}
	if released.Status != constants.ConversionStatusCleared {
		t.Fatalf("released conversion should stay cleared got %s", released.Status)
	}
}

func TestRetryFailedPayout(t *testing.T) {
	db := setupServiceTestDB(t)
	failServer := newFailingGateway(t)
	defer failServer.Close()
	failSvc := newTestPayoutService(t, db, failServer.URL)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	inPeriod := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	affiliate := createServiceTestAffiliate(t, db, "PAY-RETRY", nil)
	conversion := createServiceTestConversion(t, db, affiliate.ID, "ORD-RT1", "CUST-RT1",
		constants.ConversionStatusCleared, decimal.NewFromInt(3000000), inPeriod)

	result, err := failSvc.ProcessPayouts(context.Background(), "2026-02", now)
	if err != nil {
		t.Fatalf("process payouts failed: %v", err)
	}
	failedID := result.Items[0].PayoutID

	var lastRequest map[string]interface{}
	okServer := newDisbursementGateway(t, &lastRequest)
	defer okServer.Close()
	okSvc := newTestPayoutService(t, db, okServer.URL)

	retry, err := okSvc.RetryFailedPayout(context.Background(), failedID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retry.ID == failedID {
		t.Fatalf("retry should create a new payout")
	}
	if retry.Status != constants.PayoutStatusProcessing {
		t.Fatalf("retry status want processing got %s", retry.Status)
	}

	var original models.Payout
	if err := db.First(&original, failedID).Error; err != nil {
		t.Fatalf("reload original payout failed: %v", err)
	}
	if original.Status != constants.PayoutStatusFailed {
		t.Fatalf("original payout should stay failed got %s", original.Status)
	}

	var rebound models.Conversion
	if err := db.First(&rebound, conversion.ID).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if rebound.PayoutID == nil || *rebound.PayoutID != retry.ID {
		t.Fatalf("conversion should be bound to retry payout %d", retry.ID)
	}
}

func TestRetryFailedPayoutGuards(t *testing.T) {
	db := setupServiceTestDB(t)
	server := newDisbursementGateway(t, nil)
	defer server.Close()
	svc := newTestPayoutService(t, db, server.URL)
	affiliate := createServiceTestAffiliate(t, db, "PAY-GUARD", nil)

	if _, err := svc.RetryFailedPayout(context.Background(), 9999, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing payout want ErrNotFound got %v", err)
	}

	processing := &models.Payout{
		AffiliateID: affiliate.ID,
		Period:      "2026-02",
		Reference:   "PO-GUARD-1",
		Method:      constants.PayoutMethodBankTransfer,
		Status:      constants.PayoutStatusProcessing,
	}
	if err := db.Create(processing).Error; err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if _, err := svc.RetryFailedPayout(context.Background(), processing.ID, time.Now()); !errors.Is(err, ErrPayoutNotRetryable) {
		t.Fatalf("processing payout want ErrPayoutNotRetryable got %v", err)
	}
}
