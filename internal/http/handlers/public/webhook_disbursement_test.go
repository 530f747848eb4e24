package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/payment/xendit"
	"github.com/payout-next/internal/provider"
	"github.com/payout-next/internal/repository"
	"github.com/payout-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testCallbackToken = "test-callback-token"

func setupWebhookTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:webhook_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Affiliate{}, &models.Conversion{}, &models.Payout{}, &models.PayoutItem{}); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}

	gatewayConfig := &xendit.Config{CallbackToken: testCallbackToken}
	gatewayConfig.Normalize()
	handler := New(&provider.Container{
		GatewayConfig:  gatewayConfig,
		WebhookService: service.NewWebhookService(repository.NewPayoutRepository(db), repository.NewConversionRepository(db), nil),
	})

	router := gin.New()
	router.POST("/api/v1/webhooks/disbursement", handler.DisbursementWebhook)
	router.GET("/api/v1/webhooks/disbursement", handler.DisbursementWebhookStatus)
	return db, router
}

func createWebhookPayout(t *testing.T, db *gorm.DB, reference, disbursementID, status string) *models.Payout {
	t.Helper()

	affiliate := &models.Affiliate{
		Code:              "WHK-" + reference,
		Name:              "Partner " + reference,
		Email:             reference + "@example.com",
		Tier:              constants.TierBronze,
		BankAccountName:   "Partner",
		BankAccountNumber: "1234567890",
		BankCode:          "BCA",
		BankVerified:      true,
		Status:            constants.AffiliateStatusActive,
	}
	if err := db.Create(affiliate).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	payout := &models.Payout{
		AffiliateID:    affiliate.ID,
		Period:         "2026-02",
		Reference:      reference,
		Method:         constants.PayoutMethodBankTransfer,
		GrossAmount:    models.NewMoneyFromDecimal(decimal.NewFromInt(3000000)),
		NetAmount:      models.NewMoneyFromDecimal(decimal.NewFromInt(2996000)),
		Status:         status,
		DisbursementID: disbursementID,
	}
	if err := db.Create(payout).Error; err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	return payout
}

func postWebhook(t *testing.T, router *gin.Engine, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/disbursement", strings.NewReader(body))
	if token != "" {
		req.Header.Set("x-callback-token", token)
	}
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeWebhookResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return body
}

func TestDisbursementWebhookInvalidToken(t *testing.T) {
	_, router := setupWebhookTest(t)

	recorder := postWebhook(t, router, "wrong-token", `{"id":"disb-1","reference_id":"PO-1","status":"COMPLETED"}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["error"] != "Invalid callback token" {
		t.Fatalf("error message mismatch: %v", body)
	}

	recorder = postWebhook(t, router, "", `{}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("missing token want 401 got %d", recorder.Code)
	}
}

func TestDisbursementWebhookInvalidJSON(t *testing.T) {
	_, router := setupWebhookTest(t)

	recorder := postWebhook(t, router, testCallbackToken, `{not json`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status want 400 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["error"] != "Invalid JSON payload" {
		t.Fatalf("error message mismatch: %v", body)
	}
}

func TestDisbursementWebhookMissingFields(t *testing.T) {
	_, router := setupWebhookTest(t)

	recorder := postWebhook(t, router, testCallbackToken, `{"id":"disb-1","status":"COMPLETED"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status want 400 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["error"] != "Missing required fields" {
		t.Fatalf("error message mismatch: %v", body)
	}
}

func TestDisbursementWebhookUnmatchedPayout(t *testing.T) {
	_, router := setupWebhookTest(t)

	recorder := postWebhook(t, router, testCallbackToken,
		`{"id":"disb-unknown","reference_id":"PO-UNKNOWN","status":"COMPLETED"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["received"] != true {
		t.Fatalf("unmatched payout should still be acknowledged: %v", body)
	}
	if _, ok := body["payout_id"]; ok {
		t.Fatalf("unmatched payout should not report payout_id: %v", body)
	}
}

func TestDisbursementWebhookUpdatesPayout(t *testing.T) {
	db, router := setupWebhookTest(t)
	payout := createWebhookPayout(t, db, "PO-SINGLE", "disb-single", constants.PayoutStatusProcessing)

	recorder := postWebhook(t, router, testCallbackToken,
		fmt.Sprintf(`{"id":"disb-single","reference_id":"%s","status":"COMPLETED"}`, payout.Reference))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["received"] != true || body["status_updated"] != constants.PayoutStatusSent {
		t.Fatalf("response mismatch: %v", body)
	}
	if uint(body["payout_id"].(float64)) != payout.ID {
		t.Fatalf("payout_id mismatch: %v", body)
	}

	var updated models.Payout
	if err := db.First(&updated, payout.ID).Error; err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	if updated.Status != constants.PayoutStatusSent {
		t.Fatalf("payout status want sent got %s", updated.Status)
	}
}

func TestDisbursementWebhookEnvelopeFormat(t *testing.T) {
	db, router := setupWebhookTest(t)
	payout := createWebhookPayout(t, db, "PO-ENV", "disb-env", constants.PayoutStatusProcessing)

	recorder := postWebhook(t, router, testCallbackToken,
		fmt.Sprintf(`{"event":"disbursement.completed","data":{"id":"disb-env","external_id":"%s","status":"COMPLETED"}}`, payout.Reference))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["status_updated"] != constants.PayoutStatusSent {
		t.Fatalf("envelope payload should update payout: %v", body)
	}
}

func TestDisbursementWebhookBatch(t *testing.T) {
	db, router := setupWebhookTest(t)
	first := createWebhookPayout(t, db, "PO-B1", "disb-b1", constants.PayoutStatusProcessing)
	second := createWebhookPayout(t, db, "PO-B2", "disb-b2", constants.PayoutStatusProcessing)

	payload := fmt.Sprintf(`{
		"id": "batch-1",
		"disbursements": [
			{"id":"disb-b1","reference_id":"%s","status":"COMPLETED"},
			{"id":"disb-b2","reference_id":"%s","status":"FAILED","failure_code":"REJECTED_BY_BANK"},
			{"id":"disb-unknown","reference_id":"PO-NOPE","status":"COMPLETED"},
			"not-an-object"
		]
	}`, first.Reference, second.Reference)

	recorder := postWebhook(t, router, testCallbackToken, payload)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["type"] != "batch_disbursement" || body["batch_id"] != "batch-1" {
		t.Fatalf("batch response mismatch: %v", body)
	}
	if int(body["processed_count"].(float64)) != 2 {
		t.Fatalf("processed_count want 2 got %v", body["processed_count"])
	}

	var sent models.Payout
	if err := db.First(&sent, first.ID).Error; err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	if sent.Status != constants.PayoutStatusSent {
		t.Fatalf("first payout want sent got %s", sent.Status)
	}
	var failed models.Payout
	if err := db.First(&failed, second.ID).Error; err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	if failed.Status != constants.PayoutStatusFailed || failed.FailureCode != "REJECTED_BY_BANK" {
		t.Fatalf("second payout want failed got %+v", failed)
	}
}

func TestDisbursementWebhookStatusChallenge(t *testing.T) {
	_, router := setupWebhookTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/disbursement?challenge=ping-123", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", recorder.Code)
	}
	body := decodeWebhookResponse(t, recorder)
	if body["challenge"] != "ping-123" {
		t.Fatalf("challenge echo mismatch: %v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/disbursement", nil)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	body = decodeWebhookResponse(t, recorder)
	if body["status"] != "disbursement webhook endpoint" {
		t.Fatalf("status body mismatch: %v", body)
	}
	if _, ok := body["timestamp"]; !ok {
		t.Fatalf("status body missing timestamp: %v", body)
	}
}
