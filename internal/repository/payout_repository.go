package repository

import (
	"errors"
	"strings"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 打款单数据访问接口
type PayoutRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PayoutRepository

	GetByID(id uint) (*models.Payout, error)
	GetByIDForUpdate(id uint) (*models.Payout, error)
	GetByReference(reference string) (*models.Payout, error)
	GetByDisbursementID(disbursementID string) (*models.Payout, error)
	Create(payout *models.Payout) error
	Update(payout *models.Payout) error
	List(filter PayoutListFilter) ([]models.Payout, int64, error)
	HasOpenPayout(affiliateID uint) (bool, error)
	CreateItems(items []models.PayoutItem) error
	ListItems(payoutID uint) ([]models.PayoutItem, error)
}

// GormPayoutRepository GORM 打款单仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建打款单仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取打款单
func (r *GormPayoutRepository) GetByID(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Preload("Affiliate").Preload("Items").First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByIDForUpdate 按ID获取打款单并加锁
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByReference 按对外单号获取打款单
func (r *GormPayoutRepository) GetByReference(reference string) (*models.Payout, error) {
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Where("reference = ?", trimmed).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByDisbursementID 按网关侧单号获取打款单
func (r *GormPayoutRepository) GetByDisbursementID(disbursementID string) (*models.Payout, error) {
	trimmed := strings.TrimSpace(disbursementID)
	if trimmed == "" {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Where("disbursement_id = ?", trimmed).First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// Create 创建打款单
func (r *GormPayoutRepository) Create(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// Update 更新打款单
func (r *GormPayoutRepository) Update(payout *models.Payout) error {
	return r.db.Save(payout).Error
}

// List 查询打款单列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.Payout, int64, error) {
	query := r.db.Model(&models.Payout{}).Preload("Affiliate")
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if period := strings.TrimSpace(filter.Period); period != "" {
		query = query.Where("period = ?", period)
	}
	if reference := strings.TrimSpace(filter.Reference); reference != "" {
		query = query.Where("reference = ?", reference)
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

	var rows []models.Payout
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// HasOpenPayout 判断推广账户是否存在未完结打款单
func (r *GormPayoutRepository) HasOpenPayout(affiliateID uint) (bool, error) {
	if affiliateID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.Payout{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID,
			[]string{constants.PayoutStatusPending, constants.PayoutStatusProcessing}).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// CreateItems 批量创建打款明细
func (r *GormPayoutRepository) CreateItems(items []models.PayoutItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

// ListItems 查询打款明细
func (r *GormPayoutRepository) ListItems(payoutID uint) ([]models.PayoutItem, error) {
	if payoutID == 0 {
		return []models.PayoutItem{}, nil
	}
	var rows []models.PayoutItem
	if err := r.db.Where("payout_id = ?", payoutID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
