package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversionRepository 转化数据访问接口
type ConversionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ConversionRepository

	GetByID(id uint) (*models.Conversion, error)
	Create(conversion *models.Conversion) error
	Update(conversion *models.Conversion) error
	List(filter ConversionListFilter) ([]models.Conversion, int64, error)

	ListPendingInWindow(olderThan, notOlderThan time.Time) ([]models.Conversion, error)
	CountDuplicates(orderRef, customerRef string, excludeID uint) (int64, error)
	CountByAffiliateSince(affiliateID uint, since time.Time) (int64, error)
	CountByStatus(status string) (int64, error)
	CountByStatusSince(status string, since time.Time) (int64, error)
	CountByStatusCreatedBefore(status string, before time.Time) (int64, error)
	SumCommissionByStatus(status string) (decimal.Decimal, error)

	ListClearedUnbound() ([]models.Conversion, error)
	ListClearedUnboundByAffiliate(affiliateID uint, from, to time.Time) ([]models.Conversion, error)
	ListClearedUnboundByAffiliateForUpdate(affiliateID uint, from, to time.Time) ([]models.Conversion, error)
	ListAffiliateIDsWithClearedUnbound(from, to time.Time) ([]uint, error)
	SumClearedUnboundByAffiliate(affiliateID uint, from, to time.Time) (decimal.Decimal, error)

	BindPayout(ids []uint, payoutID uint, now time.Time) (int64, error)
	ReleaseByPayout(payoutID uint, now time.Time) (int64, error)
	MarkPaidByPayout(payoutID uint, paidAt time.Time) (int64, error)
}

// GormConversionRepository GORM 转化仓储
type GormConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository 创建转化仓储
func NewConversionRepository(db *gorm.DB) *GormConversionRepository {
	return &GormConversionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormConversionRepository) WithTx(tx *gorm.DB) ConversionRepository {
	if tx == nil {
		return r
	}
	return &GormConversionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormConversionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取转化
func (r *GormConversionRepository) GetByID(id uint) (*models.Conversion, error) {
	if id == 0 {
		return nil, nil
	}
	var conversion models.Conversion
	if err := r.db.Preload("Affiliate").First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// Create 创建转化记录
func (r *GormConversionRepository) Create(conversion *models.Conversion) error {
	return r.db.Create(conversion).Error
}

// Update 更新转化记录
func (r *GormConversionRepository) Update(conversion *models.Conversion) error {
	return r.db.Save(conversion).Error
}

// List 查询转化列表
func (r *GormConversionRepository) List(filter ConversionListFilter) ([]models.Conversion, int64, error) {
	query := r.db.Model(&models.Conversion{}).Preload("Affiliate")
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if orderRef := strings.TrimSpace(filter.OrderRef); orderRef != "" {
		query = query.Where("order_ref LIKE ?", "%"+orderRef+"%")
	}
	if filter.UnboundOnly {
		query = query.Where("payout_id IS NULL")
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

	var rows []models.Conversion
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListPendingInWindow 查询进入结算窗口的待结算转化
// olderThan 为退款期截止时间，notOlderThan 为最长滞留时间下限
func (r *GormConversionRepository) ListPendingInWindow(olderThan, notOlderThan time.Time) ([]models.Conversion, error) {
	var rows []models.Conversion
	if err := r.db.Where("status = ? AND created_at <= ? AND created_at >= ?",
		constants.ConversionStatusPending, olderThan, notOlderThan).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountDuplicates 统计全表内相同订单或相同客户的其他转化数（跨推广账户）
func (r *GormConversionRepository) CountDuplicates(orderRef, customerRef string, excludeID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Conversion{}).
		Where("(order_ref = ? OR customer_ref = ?) AND id <> ?",
			strings.TrimSpace(orderRef), strings.TrimSpace(customerRef), excludeID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByAffiliateSince 统计推广账户在指定时间之后的转化数
func (r *GormConversionRepository) CountByAffiliateSince(affiliateID uint, since time.Time) (int64, error) {
	if affiliateID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Conversion{}).
		Where("affiliate_id = ? AND created_at >= ?", affiliateID, since).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByStatus 统计指定状态的转化总数
func (r *GormConversionRepository) CountByStatus(status string) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Conversion{}).
		Where("status = ?", strings.TrimSpace(status)).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByStatusSince 统计指定状态在时间点之后变更的转化数
func (r *GormConversionRepository) CountByStatusSince(status string, since time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Conversion{}).
		Where("status = ? AND updated_at >= ?", strings.TrimSpace(status), since).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByStatusCreatedBefore 统计指定状态中创建时间早于给定时间的转化数
func (r *GormConversionRepository) CountByStatusCreatedBefore(status string, before time.Time) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Conversion{}).
		Where("status = ? AND created_at < ?", strings.TrimSpace(status), before).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// SumCommissionByStatus 汇总指定状态的佣金总额
func (r *GormConversionRepository) SumCommissionByStatus(status string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Conversion{}).
		Where("status = ?", strings.TrimSpace(status)).
		Select("COALESCE(SUM(commission_amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// ListClearedUnbound 查询全部可入账的已结算转化（未绑定打款单，不限周期）
func (r *GormConversionRepository) ListClearedUnbound() ([]models.Conversion, error) {
	var rows []models.Conversion
	if err := r.db.Where("status = ? AND payout_id IS NULL", constants.ConversionStatusCleared).
		Order("affiliate_id asc, created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListClearedUnboundByAffiliate 查询周期内可入账的已结算转化（未绑定打款单）
func (r *GormConversionRepository) ListClearedUnboundByAffiliate(affiliateID uint, from, to time.Time) ([]models.Conversion, error) {
	if affiliateID == 0 {
		return []models.Conversion{}, nil
	}
	var rows []models.Conversion
	if err := r.db.Where("affiliate_id = ? AND status = ? AND payout_id IS NULL AND created_at >= ? AND created_at <= ?",
		affiliateID, constants.ConversionStatusCleared, from, to).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListClearedUnboundByAffiliateForUpdate 查询周期内可入账转化并加锁
func (r *GormConversionRepository) ListClearedUnboundByAffiliateForUpdate(affiliateID uint, from, to time.Time) ([]models.Conversion, error) {
	if affiliateID == 0 {
		return []models.Conversion{}, nil
	}
	var rows []models.Conversion
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("affiliate_id = ? AND status = ? AND payout_id IS NULL AND created_at >= ? AND created_at <= ?",
			affiliateID, constants.ConversionStatusCleared, from, to).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAffiliateIDsWithClearedUnbound 查询周期内存在可入账余额的推广账户ID
func (r *GormConversionRepository) ListAffiliateIDsWithClearedUnbound(from, to time.Time) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Conversion{}).
		Where("status = ? AND payout_id IS NULL AND created_at >= ? AND created_at <= ?",
			constants.ConversionStatusCleared, from, to).
		Distinct("affiliate_id").
		Order("affiliate_id asc").
		Pluck("affiliate_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SumClearedUnboundByAffiliate 汇总周期内可入账余额
func (r *GormConversionRepository) SumClearedUnboundByAffiliate(affiliateID uint, from, to time.Time) (decimal.Decimal, error) {
	if affiliateID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Conversion{}).
		Where("affiliate_id = ? AND status = ? AND payout_id IS NULL AND created_at >= ? AND created_at <= ?",
			affiliateID, constants.ConversionStatusCleared, from, to).
		Select("COALESCE(SUM(commission_amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// BindPayout 将转化绑定到打款单
func (r *GormConversionRepository) BindPayout(ids []uint, payoutID uint, now time.Time) (int64, error) {
	if len(ids) == 0 || payoutID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Conversion{}).
		Where("id IN ? AND payout_id IS NULL", ids).
		Updates(map[string]interface{}{
			"payout_id":  payoutID,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseByPayout 打款失败时解除转化绑定，允许重新入账
func (r *GormConversionRepository) ReleaseByPayout(payoutID uint, now time.Time) (int64, error) {
	if payoutID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Conversion{}).
		Where("payout_id = ? AND status = ?", payoutID, constants.ConversionStatusCleared).
		Updates(map[string]interface{}{
			"payout_id":  nil,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkPaidByPayout 打款成功后批量标记转化为已支付
func (r *GormConversionRepository) MarkPaidByPayout(payoutID uint, paidAt time.Time) (int64, error) {
	if payoutID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Conversion{}).
		Where("payout_id = ? AND status = ?", payoutID, constants.ConversionStatusCleared).
		Updates(map[string]interface{}{
			"status":     constants.ConversionStatusPaid,
			"paid_at":    paidAt,
			"updated_at": paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
