package models

import (
	"time"
)

// ClearingAudit 结算审计日志（每条转化的结算/标记动作）
type ClearingAudit struct {
	ID           uint      `gorm:"primarykey" json:"id"`                          // 主键
	RunID        string    `gorm:"type:varchar(64);not null;index" json:"run_id"` // 结算批次ID
	ConversionID uint      `gorm:"not null;index" json:"conversion_id"`           // 转化ID
	AffiliateID  uint      `gorm:"not null;index" json:"affiliate_id"`            // 推广账户ID
	Action       string    `gorm:"type:varchar(20);not null;index" json:"action"` // 动作（cleared/flagged）
	Reason       string    `gorm:"type:varchar(255)" json:"reason"`               // 动作原因
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (ClearingAudit) TableName() string {
	return "clearing_audits"
}
