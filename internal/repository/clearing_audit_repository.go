package repository

import (
	"strings"
	"time"

	"github.com/payout-next/internal/models"

	"gorm.io/gorm"
)

// ClearingAuditRepository 结算审计数据访问接口
type ClearingAuditRepository interface {
	WithTx(tx *gorm.DB) ClearingAuditRepository

	Create(audit *models.ClearingAudit) error
	List(filter ClearingAuditListFilter) ([]models.ClearingAudit, int64, error)
	CountByActionSince(action string, since time.Time) (int64, error)
}

// GormClearingAuditRepository GORM 结算审计仓储
type GormClearingAuditRepository struct {
	db *gorm.DB
}

// NewClearingAuditRepository 创建结算审计仓储
func NewClearingAuditRepository(db *gorm.DB) *GormClearingAuditRepository {
	return &GormClearingAuditRepository{db: db}
}

// WithTx 绑定事务
func (r *GormClearingAuditRepository) WithTx(tx *gorm.DB) ClearingAuditRepository {
	if tx == nil {
		return r
	}
	return &GormClearingAuditRepository{db: tx}
}

// Create 写入审计记录
func (r *GormClearingAuditRepository) Create(audit *models.ClearingAudit) error {
	return r.db.Create(audit).Error
}

// List 查询审计记录列表
func (r *GormClearingAuditRepository) List(filter ClearingAuditListFilter) ([]models.ClearingAudit, int64, error) {
	query := r.db.Model(&models.ClearingAudit{})
	if runID := strings.TrimSpace(filter.RunID); runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.ClearingAudit
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountByActionSince 统计时间点之后的指定动作数量
func (r *GormClearingAuditRepository) CountByActionSince(action string, since time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&models.ClearingAudit{}).
		Where("action = ? AND created_at >= ?", strings.TrimSpace(action), since).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
