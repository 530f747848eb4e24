package admin

import (
	"errors"
	"strconv"

	"github.com/payout-next/internal/http/response"
	"github.com/payout-next/internal/repository"
	"github.com/payout-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAffiliates 获取推广账户列表 (Admin)
func (h *Handler) GetAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	affiliates, total, err := h.AffiliateService.List(repository.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("search"),
		Tier:     c.Query("tier"),
		Status:   c.Query("status"),
		Method:   c.Query("method"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询推广账户失败", err)
		return
	}

	response.SuccessWithPage(c, affiliates, buildPagination(page, pageSize, total))
}

// GetAffiliate 获取推广账户详情 (Admin)
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	affiliate, err := h.AffiliateService.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "推广账户不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询推广账户失败", err)
		return
	}

	response.Success(c, affiliate)
}

// CreateAffiliate 创建推广账户
func (h *Handler) CreateAffiliate(c *gin.Context) {
	var req service.AffiliateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	affiliate, err := h.AffiliateService.Create(req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRatePercent) {
			respondError(c, response.CodeBadRequest, "自定义佣金比例无效", nil)
			return
		}
		if errors.Is(err, service.ErrInvalidEwalletType) {
			respondError(c, response.CodeBadRequest, "电子钱包类型无效", nil)
			return
		}
		respondError(c, response.CodeInternal, "创建推广账户失败", err)
		return
	}

	response.Success(c, affiliate)
}

// UpdateAffiliate 更新推广账户
func (h *Handler) UpdateAffiliate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	var req service.AffiliateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	affiliate, err := h.AffiliateService.Update(uint(id), req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "推广账户不存在", nil)
			return
		}
		if errors.Is(err, service.ErrInvalidRatePercent) {
			respondError(c, response.CodeBadRequest, "自定义佣金比例无效", nil)
			return
		}
		if errors.Is(err, service.ErrInvalidEwalletType) {
			respondError(c, response.CodeBadRequest, "电子钱包类型无效", nil)
			return
		}
		respondError(c, response.CodeInternal, "保存推广账户失败", err)
		return
	}

	response.Success(c, affiliate)
}

// UpdateAffiliateStatusRequest 更新账户状态请求
type UpdateAffiliateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateAffiliateStatus 启用或停用推广账户
func (h *Handler) UpdateAffiliateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	var req UpdateAffiliateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if err := h.AffiliateService.UpdateStatus(uint(id), req.Status); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "推广账户不存在", nil)
			return
		}
		if errors.Is(err, service.ErrInvalidAffiliateStatus) {
			respondError(c, response.CodeBadRequest, "账户状态无效", nil)
			return
		}
		respondError(c, response.CodeInternal, "保存推广账户失败", err)
		return
	}

	response.Success(c, nil)
}

// VerifyAffiliateRequest 核验收款账户请求
type VerifyAffiliateRequest struct {
	BankVerified    bool `json:"bank_verified"`
	EwalletVerified bool `json:"ewallet_verified"`
}

// VerifyAffiliate 标记收款账户核验结果
func (h *Handler) VerifyAffiliate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "请求参数错误", nil)
		return
	}

	var req VerifyAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if err := h.AffiliateService.SetVerification(uint(id), req.BankVerified, req.EwalletVerified); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "推广账户不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "保存推广账户失败", err)
		return
	}

	response.Success(c, nil)
}
