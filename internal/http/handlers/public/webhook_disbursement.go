package public

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/payout-next/internal/payment/xendit"
	"github.com/payout-next/internal/service"

	"github.com/gin-gonic/gin"
)

const webhookLogValueLimit = 512

// DisbursementWebhook 网关打款状态回调
// 说明：响应结构遵循网关回调约定，不使用后台统一响应包装。
func (h *Handler) DisbursementWebhook(c *gin.Context) {
	log := requestLog(c)

	token := c.GetHeader("x-callback-token")
	if !xendit.VerifyCallbackToken(h.GatewayConfig, token) {
		log.Warnw("disbursement_webhook_token_invalid", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid callback token"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("disbursement_webhook_body_read_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	log.Infow("disbursement_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"raw_body", webhookRawBodyForLog(body),
	)

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warnw("disbursement_webhook_payload_invalid", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	// 兼容 {event, data} 包装格式
	eventType := webhookStringField(payload, "event")
	if data, ok := payload["data"].(map[string]interface{}); ok && eventType != "" {
		payload = data
	}

	// 批量打款回调逐笔对账
	if rawItems, ok := payload["disbursements"].([]interface{}); ok {
		h.reconcileBatch(c, payload, rawItems, eventType)
		return
	}

	event := buildDisbursementEvent(payload)
	if event.DisbursementID == "" || event.ReferenceID == "" || event.Status == "" {
		log.Warnw("disbursement_webhook_fields_missing",
			"disbursement_id", event.DisbursementID,
			"reference_id", event.ReferenceID,
			"status", event.Status,
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	result, err := h.WebhookService.ReconcileDisbursement(event, time.Now())
	if err != nil {
		log.Errorw("disbursement_webhook_reconcile_failed",
			"disbursement_id", event.DisbursementID,
			"reference_id", event.ReferenceID,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payout status"})
		return
	}

	if result.Outcome == service.ReconcileOutcomeUpdated {
		log.Infow("disbursement_webhook_processed",
			"payout_id", result.PayoutID,
			"status", result.Status,
			"event_type", eventType,
		)
		c.JSON(http.StatusOK, gin.H{
			"received":       true,
			"payout_id":      result.PayoutID,
			"status_updated": result.Status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// reconcileBatch 批量回调逐笔处理，单笔失败不影响其余条目
func (h *Handler) reconcileBatch(c *gin.Context, payload map[string]interface{}, rawItems []interface{}, eventType string) {
	log := requestLog(c)
	batchID := webhookStringField(payload, "id")

	processed := 0
	for _, rawItem := range rawItems {
		item, ok := rawItem.(map[string]interface{})
		if !ok {
			continue
		}
		event := buildDisbursementEvent(item)
		if event.DisbursementID == "" && event.ReferenceID == "" {
			continue
		}
		result, err := h.WebhookService.ReconcileDisbursement(event, time.Now())
		if err != nil {
			log.Errorw("disbursement_webhook_batch_item_failed",
				"batch_id", batchID,
				"disbursement_id", event.DisbursementID,
				"reference_id", event.ReferenceID,
				"error", err,
			)
			continue
		}
		if result.Outcome == service.ReconcileOutcomeUpdated {
			processed++
		}
	}

	log.Infow("disbursement_webhook_batch_processed",
		"batch_id", batchID,
		"item_count", len(rawItems),
		"processed_count", processed,
		"event_type", eventType,
	)
	c.JSON(http.StatusOK, gin.H{
		"received":        true,
		"type":            "batch_disbursement",
		"batch_id":        batchID,
		"processed_count": processed,
	})
}

// DisbursementWebhookStatus 网关回调探活
func (h *Handler) DisbursementWebhookStatus(c *gin.Context) {
	if challenge := strings.TrimSpace(c.Query("challenge")); challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": challenge})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "disbursement webhook endpoint",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func buildDisbursementEvent(payload map[string]interface{}) service.DisbursementEvent {
	referenceID := webhookStringField(payload, "reference_id")
	if referenceID == "" {
		referenceID = webhookStringField(payload, "external_id")
	}

	event := service.DisbursementEvent{
		DisbursementID: webhookStringField(payload, "id"),
		ReferenceID:    referenceID,
		Status:         webhookStringField(payload, "status"),
		FailureCode:    webhookStringField(payload, "failure_code"),
		Raw:            payload,
	}
	if metadata, ok := payload["metadata"].(map[string]interface{}); ok {
		event.Metadata = metadata
	}
	return event
}

func webhookStringField(payload map[string]interface{}, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func webhookRawBodyForLog(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return ""
	}
	if len(raw) <= webhookLogValueLimit {
		return raw
	}
	return raw[:webhookLogValueLimit] + "...(truncated)"
}
