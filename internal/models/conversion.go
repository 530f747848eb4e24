package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversion 推广转化记录（订单产生的佣金）
type Conversion struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                                                   // 主键
	AffiliateID      uint           `gorm:"not null;index;index:idx_conversion_unique,unique" json:"affiliate_id"`                  // 推广账户ID
	OrderRef         string         `gorm:"type:varchar(64);not null;index;index:idx_conversion_unique,unique" json:"order_ref"`    // 订单号
	CustomerRef      string         `gorm:"type:varchar(64);not null;index;index:idx_conversion_unique,unique" json:"customer_ref"` // 客户标识
	OrderAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"order_amount"`                              // 订单金额（佣金基数）
	RatePercent      Money          `gorm:"type:decimal(10,2);not null;default:0" json:"rate_percent"`                              // 佣金比例（百分比）
	CommissionAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`                         // 佣金金额
	Status           string         `gorm:"type:varchar(20);not null;index" json:"status"`                                          // 转化状态
	ClearedAt        *time.Time     `gorm:"index" json:"cleared_at,omitempty"`                                                      // 结算时间
	ClearingReason   string         `gorm:"type:varchar(255)" json:"clearing_reason"`                                               // 结算原因
	AutoCleared      bool           `gorm:"not null;default:false" json:"auto_cleared"`                                             // 是否自动结算
	FlagReason       string         `gorm:"type:varchar(255)" json:"flag_reason"`                                                   // 标记原因
	PayoutID         *uint          `gorm:"index" json:"payout_id,omitempty"`                                                       // 关联打款单
	PaidAt           *time.Time     `gorm:"index" json:"paid_at,omitempty"`                                                         // 打款完成时间
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                                                // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                                                // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                                                         // 软删除时间

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广账户
	Payout    *Payout   `gorm:"foreignKey:PayoutID" json:"payout,omitempty"`       // 打款单
}

// TableName 指定表名
func (Conversion) TableName() string {
	return "conversions"
}
