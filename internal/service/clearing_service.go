package service

import (
	"fmt"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/logger"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 自动标记原因
const (
	fraudReasonDuplicate      = "Duplicate customer/order detected"
	fraudReasonHighCommission = "High commission amount"
	fraudReasonFrequency      = "Unusual conversion frequency"
)

// ClearedConversion 批次内单条已结算转化摘要
type ClearedConversion struct {
	ConversionID     uint            `json:"conversion_id"`
	AffiliateID      uint            `json:"affiliate_id"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	DaysPending      int             `json:"days_pending"`
}

// ClearingResult 结算批次执行结果
type ClearingResult struct {
	RunID              string              `json:"run_id"`
	Scanned            int                 `json:"scanned"`
	Cleared            int                 `json:"cleared"`
	Flagged            int                 `json:"flagged"`
	ClearedConversions []ClearedConversion `json:"cleared_conversions"`
	Errors             []string            `json:"errors,omitempty"`
}

// PendingAgeBuckets 待结算转化按滞留时长分桶
type PendingAgeBuckets struct {
	Under7Days int64 `json:"under_7_days"`
	Days7To30  int64 `json:"days_7_to_30"`
	Over30Days int64 `json:"over_30_days"`
}

// ClearingStats 结算统计
type ClearingStats struct {
	PendingTotal   int64             `json:"pending_total"`
	PendingAmount  models.Money      `json:"pending_amount"`
	ClearedAmount  models.Money      `json:"cleared_amount"`
	FlaggedAmount  models.Money      `json:"flagged_amount"`
	PendingByAge   PendingAgeBuckets `json:"pending_by_age"`
	ClearedLast7d  int64             `json:"cleared_last_7d"`
	FlaggedLast7d  int64             `json:"flagged_last_7d"`
	ClearedLast30d int64             `json:"cleared_last_30d"`
	FlaggedLast30d int64             `json:"flagged_last_30d"`
}

// ClearingService 转化自动结算服务
type ClearingService struct {
	conversionRepo repository.ConversionRepository
	auditRepo      repository.ClearingAuditRepository
	settingService *SettingService
}

// NewClearingService 创建结算服务
func NewClearingService(
	conversionRepo repository.ConversionRepository,
	auditRepo repository.ClearingAuditRepository,
	settingService *SettingService,
) *ClearingService {
	return &ClearingService{
		conversionRepo: conversionRepo,
		auditRepo:      auditRepo,
		settingService: settingService,
	}
}

// RunClearing 执行一次结算批次
//
// 扫描待结算窗口内的 pending 转化：退款期已过且未超过最长结算期。
// 每条转化先做欺诈检查，命中则标记 flagged，否则置为 cleared。
// 单条失败不会中断批次，错误汇总在结果中返回。
func (s *ClearingService) RunClearing(now time.Time) (*ClearingResult, error) {
	setting, err := s.settingService.GetClearingSetting()
	if err != nil {
		return nil, fmt.Errorf("加载结算配置失败: %w", err)
	}
	if !setting.Enabled {
		return nil, ErrClearingDisabled
	}

	// 结算窗口：创建时间早于退款期（且不早于最长结算期）的待结算转化
	holdDays := setting.RefundPeriodDays
	if setting.MinClearDays > holdDays {
		holdDays = setting.MinClearDays
	}
	olderThan := now.AddDate(0, 0, -holdDays)
	notOlderThan := now.AddDate(0, 0, -setting.MaxClearDays)

	candidates, err := s.conversionRepo.ListPendingInWindow(olderThan, notOlderThan)
	if err != nil {
		return nil, fmt.Errorf("查询待结算转化失败: %w", err)
	}

	result := &ClearingResult{
		RunID:   uuid.NewString(),
		Scanned: len(candidates),
	}

	for i := range candidates {
		conversion := &candidates[i]
		daysPending := int(now.Sub(conversion.CreatedAt).Hours() / 24)

		var flagReason string
		if setting.FraudCheckEnabled {
			reason, checkErr := s.checkFraud(conversion, &setting, now)
			if checkErr != nil {
				// 欺诈检查失败时保守处理：标记而不是放行
				logger.Warnw("clearing_fraud_check_failed",
					"run_id", result.RunID,
					"conversion_id", conversion.ID,
					"error", checkErr.Error(),
				)
				reason = "Fraud check failed"
			}
			flagReason = reason
		}

		var actErr error
		if flagReason != "" {
			actErr = s.flagConversion(conversion, result.RunID, flagReason)
			if actErr == nil {
				result.Flagged++
			}
		} else {
			actErr = s.clearConversion(conversion, result.RunID, daysPending, now)
			if actErr == nil {
				result.Cleared++
				result.ClearedConversions = append(result.ClearedConversions, ClearedConversion{
					ConversionID:     conversion.ID,
					AffiliateID:      conversion.AffiliateID,
					CommissionAmount: conversion.CommissionAmount.Decimal,
					DaysPending:      daysPending,
				})
			}
		}
		if actErr != nil {
			logger.Errorw("clearing_conversion_update_failed",
				"run_id", result.RunID,
				"conversion_id", conversion.ID,
				"error", actErr.Error(),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("conversion %d: %v", conversion.ID, actErr))
		}
	}

	logger.Infow("clearing_run_finished",
		"run_id", result.RunID,
		"scanned", result.Scanned,
		"cleared", result.Cleared,
		"flagged", result.Flagged,
		"errors", len(result.Errors),
	)
	return result, nil
}

// checkFraud 逐项欺诈检查，返回命中的标记原因（空串表示通过）
func (s *ClearingService) checkFraud(conversion *models.Conversion, setting *ClearingSetting, now time.Time) (string, error) {
	duplicates, err := s.conversionRepo.CountDuplicates(conversion.OrderRef, conversion.CustomerRef, conversion.ID)
	if err != nil {
		return "", fmt.Errorf("查询重复转化失败: %w", err)
	}
	if duplicates > 0 {
		return fraudReasonDuplicate, nil
	}

	if conversion.CommissionAmount.GreaterThan(decimal.NewFromFloat(setting.HighCommissionThreshold)) {
		return fraudReasonHighCommission, nil
	}

	weekAgo := now.AddDate(0, 0, -7)
	recent, err := s.conversionRepo.CountByAffiliateSince(conversion.AffiliateID, weekAgo)
	if err != nil {
		return "", fmt.Errorf("查询转化频率失败: %w", err)
	}
	if recent > int64(setting.MaxConversionsPerWeek) {
		return fraudReasonFrequency, nil
	}
	return "", nil
}

func (s *ClearingService) clearConversion(conversion *models.Conversion, runID string, daysPending int, now time.Time) error {
	reason := fmt.Sprintf("Auto-cleared after %d days (refund period expired)", daysPending)
	return s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		clearedAt := now
		conversion.Status = constants.ConversionStatusCleared
		conversion.ClearedAt = &clearedAt
		conversion.ClearingReason = reason
		conversion.AutoCleared = true
		conversion.FlagReason = ""
		if err := s.conversionRepo.WithTx(tx).Update(conversion); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Create(&models.ClearingAudit{
			RunID:        runID,
			ConversionID: conversion.ID,
			AffiliateID:  conversion.AffiliateID,
			Action:       constants.ClearingActionCleared,
			Reason:       reason,
		})
	})
}

func (s *ClearingService) flagConversion(conversion *models.Conversion, runID, reason string) error {
	fullReason := fmt.Sprintf("Auto-flagged: %s", reason)
	return s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		conversion.Status = constants.ConversionStatusFlagged
		conversion.ClearingReason = fullReason
		conversion.AutoCleared = true
		conversion.FlagReason = fullReason
		if err := s.conversionRepo.WithTx(tx).Update(conversion); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Create(&models.ClearingAudit{
			RunID:        runID,
			ConversionID: conversion.ID,
			AffiliateID:  conversion.AffiliateID,
			Action:       constants.ClearingActionFlagged,
			Reason:       fullReason,
		})
	})
}

// GetClearingStats 查询结算统计
func (s *ClearingService) GetClearingStats(now time.Time) (*ClearingStats, error) {
	pending, err := s.conversionRepo.CountByStatus(constants.ConversionStatusPending)
	if err != nil {
		return nil, err
	}
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	pendingAmount, err := s.conversionRepo.SumCommissionByStatus(constants.ConversionStatusPending)
	if err != nil {
		return nil, err
	}
	clearedAmount, err := s.conversionRepo.SumCommissionByStatus(constants.ConversionStatusCleared)
	if err != nil {
		return nil, err
	}
	flaggedAmount, err := s.conversionRepo.SumCommissionByStatus(constants.ConversionStatusFlagged)
	if err != nil {
		return nil, err
	}

	pendingOver7, err := s.conversionRepo.CountByStatusCreatedBefore(constants.ConversionStatusPending, weekAgo)
	if err != nil {
		return nil, err
	}
	pendingOver30, err := s.conversionRepo.CountByStatusCreatedBefore(constants.ConversionStatusPending, monthAgo)
	if err != nil {
		return nil, err
	}

	cleared7, err := s.auditRepo.CountByActionSince(constants.ClearingActionCleared, weekAgo)
	if err != nil {
		return nil, err
	}
	flagged7, err := s.auditRepo.CountByActionSince(constants.ClearingActionFlagged, weekAgo)
	if err != nil {
		return nil, err
	}
	cleared30, err := s.auditRepo.CountByActionSince(constants.ClearingActionCleared, monthAgo)
	if err != nil {
		return nil, err
	}
	flagged30, err := s.auditRepo.CountByActionSince(constants.ClearingActionFlagged, monthAgo)
	if err != nil {
		return nil, err
	}
	return &ClearingStats{
		PendingTotal:  pending,
		PendingAmount: models.NewMoneyFromDecimal(pendingAmount),
		ClearedAmount: models.NewMoneyFromDecimal(clearedAmount),
		FlaggedAmount: models.NewMoneyFromDecimal(flaggedAmount),
		PendingByAge: PendingAgeBuckets{
			Under7Days: pending - pendingOver7,
			Days7To30:  pendingOver7 - pendingOver30,
			Over30Days: pendingOver30,
		},
		ClearedLast7d:  cleared7,
		FlaggedLast7d:  flagged7,
		ClearedLast30d: cleared30,
		FlaggedLast30d: flagged30,
	}, nil
}
