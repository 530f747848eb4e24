package models

import (
	"time"

	"gorm.io/gorm"
)

// Payout 打款单表
type Payout struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                      // 主键
	AffiliateID    uint           `gorm:"not null;index" json:"affiliate_id"`                        // 推广账户ID
	Period         string         `gorm:"type:varchar(7);not null;index" json:"period"`              // 结算周期（YYYY-MM）
	Reference      string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`    // 对外唯一单号
	Method         string         `gorm:"type:varchar(32);not null" json:"method"`                   // 打款方式
	GrossAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"gross_amount"` // 佣金总额
	FeeAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"fee_amount"`   // 手续费
	NetAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`   // 实付金额
	FeePercent     Money          `gorm:"type:decimal(10,2);not null;default:0" json:"fee_percent"`  // 手续费占比（百分比）
	Status         string         `gorm:"type:varchar(20);not null;index" json:"status"`             // 打款状态
	DisbursementID string         `gorm:"type:varchar(64);index" json:"disbursement_id"`             // 网关侧单号
	FailureCode    string         `gorm:"type:varchar(64)" json:"failure_code"`                      // 网关失败码
	ScheduledFor   *time.Time     `gorm:"index" json:"scheduled_for,omitempty"`                      // 计划打款日期
	ProcessedAt    *time.Time     `gorm:"index" json:"processed_at,omitempty"`                       // 打款完成时间
	GatewayPayload JSON           `gorm:"type:json" json:"gateway_payload"`                          // 网关回调数据
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Affiliate Affiliate    `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广账户
	Items     []PayoutItem `gorm:"foreignKey:PayoutID" json:"items,omitempty"`        // 打款明细
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}
