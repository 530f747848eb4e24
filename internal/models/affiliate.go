package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广账户表
type Affiliate struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                   // 主键
	Code              string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`      // 联盟短ID
	Name              string         `gorm:"type:varchar(100);not null" json:"name"`                 // 联盟名称
	Email             string         `gorm:"type:varchar(255);not null;index" json:"email"`          // 通知邮箱
	Tier              string         `gorm:"type:varchar(20);not null;default:'bronze'" json:"tier"` // 推广等级
	CustomRatePercent *Money         `gorm:"type:decimal(10,2)" json:"custom_rate_percent"`          // 自定义佣金比例（百分比，覆盖等级默认值）
	BankAccountName   string         `gorm:"type:varchar(100)" json:"bank_account_name"`             // 银行收款户名
	BankAccountNumber string         `gorm:"type:varchar(64)" json:"bank_account_number"`            // 银行收款账号
	BankCode          string         `gorm:"type:varchar(32)" json:"bank_code"`                      // 银行代码
	BankVerified      bool           `gorm:"not null;default:false" json:"bank_verified"`            // 银行账户已核验
	EwalletType       string         `gorm:"type:varchar(32)" json:"ewallet_type"`                   // 电子钱包类型
	EwalletName       string         `gorm:"type:varchar(100)" json:"ewallet_name"`                  // 电子钱包户名
	EwalletNumber     string         `gorm:"type:varchar(64)" json:"ewallet_number"`                 // 电子钱包账号
	EwalletVerified   bool           `gorm:"not null;default:false" json:"ewallet_verified"`         // 电子钱包已核验
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`          // 账户状态
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                         // 软删除时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// HasBankDetails 银行收款资料是否完整
func (a *Affiliate) HasBankDetails() bool {
	return strings.TrimSpace(a.BankAccountName) != "" &&
		strings.TrimSpace(a.BankAccountNumber) != "" &&
		strings.TrimSpace(a.BankCode) != ""
}

// HasEwalletDetails 电子钱包收款资料是否完整
func (a *Affiliate) HasEwalletDetails() bool {
	return strings.TrimSpace(a.EwalletType) != "" &&
		strings.TrimSpace(a.EwalletName) != "" &&
		strings.TrimSpace(a.EwalletNumber) != ""
}
