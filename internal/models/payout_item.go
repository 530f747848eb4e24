package models

import (
	"time"
)

// PayoutItem 打款明细（打款单与转化的对应关系）
type PayoutItem struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                // 主键
	PayoutID     uint      `gorm:"not null;index" json:"payout_id"`                     // 打款单ID
	ConversionID uint      `gorm:"not null;index" json:"conversion_id"`                 // 转化ID（失败重试会再次出现）
	Amount       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 明细金额
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                             // 创建时间

	Conversion Conversion `gorm:"foreignKey:ConversionID" json:"conversion,omitempty"` // 转化记录
}

// TableName 指定表名
func (PayoutItem) TableName() string {
	return "payout_items"
}
