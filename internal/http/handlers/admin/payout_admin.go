package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/payout-next/internal/http/response"
	"github.com/payout-next/internal/repository"
	"github.com/payout-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetPayoutPreview 预览本期可打款联盟成员 (Admin)
func (h *Handler) GetPayoutPreview(c *gin.Context) {
	preview, err := h.EligibilityService.PreviewEligiblePayouts(c.Query("period"), time.Now())
	if err != nil {
		if errors.Is(err, service.ErrPayoutPeriodInvalid) {
			respondError(c, response.CodeBadRequest, "结算周期格式无效，应为 YYYY-MM", nil)
			return
		}
		respondError(c, response.CodeInternal, "生成打款预览失败", err)
		return
	}

	response.Success(c, preview)
}

// GetRolloverBalances 获取累计滚存余额 (Admin)
func (h *Handler) GetRolloverBalances(c *gin.Context) {
	balances, err := h.EligibilityService.GetRolloverBalances()
	if err != nil {
		respondError(c, response.CodeInternal, "查询滚存余额失败", err)
		return
	}

	response.Success(c, balances)
}

// ProcessPayoutsRequest 批量打款请求
type ProcessPayoutsRequest struct {
	Period string `json:"period"`
}

// ProcessPayouts 执行批量打款 (Admin)
func (h *Handler) ProcessPayouts(c *gin.Context) {
	// 允许空请求体，周期为空时默认当月
	var req ProcessPayoutsRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.PayoutService.ProcessPayouts(c.Request.Context(), req.Period, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutPeriodInvalid):
			respondError(c, response.CodeBadRequest, "结算周期格式无效，应为 YYYY-MM", nil)
		case errors.Is(err, service.ErrGatewayNotConfigured):
			respondError(c, response.CodeBadRequest, "打款渠道未配置", nil)
		default:
			respondError(c, response.CodeInternal, "批量打款执行失败", err)
		}
		return
	}

	response.Success(c, result)
}

// RetryPayout 重试失败的打款 (Admin)
func (h *Handler) RetryPayout(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	payout, err := h.PayoutService.RetryFailedPayout(c.Request.Context(), uint(id), time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "打款记录不存在", nil)
		case errors.Is(err, service.ErrPayoutNotRetryable):
			respondError(c, response.CodeBadRequest, "仅失败状态的打款可以重试", nil)
		case errors.Is(err, service.ErrGatewayNotConfigured):
			respondError(c, response.CodeBadRequest, "打款渠道未配置", nil)
		default:
			respondError(c, response.CodeInternal, "重试打款失败", err)
		}
		return
	}

	response.Success(c, payout)
}

// GetPayouts 获取打款列表 (Admin)
func (h *Handler) GetPayouts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.PayoutListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    c.Query("status"),
		Period:    c.Query("period"),
		Reference: c.Query("reference"),
	}
	if raw := c.Query("affiliate_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(id)
		}
	}

	payouts, total, err := h.PayoutService.ListPayouts(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "查询打款记录失败", err)
		return
	}

	response.SuccessWithPage(c, payouts, buildPagination(page, pageSize, total))
}

// GetPayout 获取打款详情 (Admin)
func (h *Handler) GetPayout(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	payout, err := h.PayoutService.GetPayout(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "打款记录不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询打款记录失败", err)
		return
	}

	response.Success(c, payout)
}

// GetPayoutSettings 获取打款资格设置 (Admin)
func (h *Handler) GetPayoutSettings(c *gin.Context) {
	setting, err := h.SettingService.GetPayoutSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "查询打款设置失败", err)
		return
	}

	response.Success(c, setting)
}

// UpdatePayoutSettings 更新打款资格设置 (Admin)
func (h *Handler) UpdatePayoutSettings(c *gin.Context) {
	var req service.PayoutSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	setting, err := h.SettingService.UpdatePayoutSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrPayoutConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "更新打款设置失败", err)
		return
	}

	response.Success(c, setting)
}
