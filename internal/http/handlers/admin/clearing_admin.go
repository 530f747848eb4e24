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

// RunClearing 手动触发自动结算 (Admin)
func (h *Handler) RunClearing(c *gin.Context) {
	result, err := h.ClearingService.RunClearing(time.Now())
	if err != nil {
		if errors.Is(err, service.ErrClearingDisabled) {
			respondError(c, response.CodeBadRequest, "自动结算已停用", nil)
			return
		}
		respondError(c, response.CodeInternal, "自动结算执行失败", err)
		return
	}

	requestLog(c).Infow("admin_clearing_run",
		"run_id", result.RunID,
		"scanned", result.Scanned,
		"cleared", result.Cleared,
		"flagged", result.Flagged,
	)
	response.Success(c, result)
}

// GetClearingStats 获取结算统计 (Admin)
func (h *Handler) GetClearingStats(c *gin.Context) {
	stats, err := h.ClearingService.GetClearingStats(time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "查询结算统计失败", err)
		return
	}

	response.Success(c, stats)
}

// GetClearingAudits 获取结算审计记录 (Admin)
func (h *Handler) GetClearingAudits(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ClearingAuditListFilter{
		Page:     page,
		PageSize: pageSize,
		RunID:    c.Query("run_id"),
		Action:   c.Query("action"),
	}
	if raw := c.Query("affiliate_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(id)
		}
	}

	audits, total, err := h.ClearingAuditRepo.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "查询结算审计失败", err)
		return
	}

	response.SuccessWithPage(c, audits, buildPagination(page, pageSize, total))
}

// GetClearingSettings 获取自动结算设置 (Admin)
func (h *Handler) GetClearingSettings(c *gin.Context) {
	setting, err := h.SettingService.GetClearingSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "查询结算设置失败", err)
		return
	}

	response.Success(c, setting)
}

// UpdateClearingSettings 更新自动结算设置 (Admin)
func (h *Handler) UpdateClearingSettings(c *gin.Context) {
	var req service.ClearingSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	setting, err := h.SettingService.UpdateClearingSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrClearingConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "更新结算设置失败", err)
		return
	}

	response.Success(c, setting)
}
