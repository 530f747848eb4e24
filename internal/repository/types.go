package repository

import "time"

// AffiliateListFilter 查询推广账户列表的过滤条件
type AffiliateListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Tier     string
	Status   string
	Method   string
}

// ConversionListFilter 查询转化列表的过滤条件
type ConversionListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	OrderRef    string
	UnboundOnly bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PayoutListFilter 查询打款单列表的过滤条件
type PayoutListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	Period      string
	Reference   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ClearingAuditListFilter 查询结算审计列表的过滤条件
type ClearingAuditListFilter struct {
	Page        int
	PageSize    int
	RunID       string
	AffiliateID uint
	Action      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
