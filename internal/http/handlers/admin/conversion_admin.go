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

// GetConversions 获取转化列表 (Admin)
func (h *Handler) GetConversions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ConversionListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      c.Query("status"),
		OrderRef:    c.Query("order_ref"),
		UnboundOnly: c.Query("unbound_only") == "true",
	}
	if raw := c.Query("affiliate_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(id)
		}
	}
	if raw := c.Query("created_from"); raw != "" {
		if from, err := time.Parse("2006-01-02", raw); err == nil {
			filter.CreatedFrom = &from
		}
	}
	if raw := c.Query("created_to"); raw != "" {
		if to, err := time.Parse("2006-01-02", raw); err == nil {
			end := to.AddDate(0, 0, 1).Add(-time.Second)
			filter.CreatedTo = &end
		}
	}

	conversions, total, err := h.ConversionService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "查询转化记录失败", err)
		return
	}

	response.SuccessWithPage(c, conversions, buildPagination(page, pageSize, total))
}

// GetConversion 获取转化详情 (Admin)
func (h *Handler) GetConversion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	conversion, err := h.ConversionService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "转化记录不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询转化记录失败", err)
		return
	}

	response.Success(c, conversion)
}
