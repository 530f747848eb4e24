package service

import (
	"strings"

	"github.com/payout-next/internal/constants"
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AffiliateService 推广账户管理服务
type AffiliateService struct {
	affiliateRepo repository.AffiliateRepository
}

// NewAffiliateService 创建推广账户服务
func NewAffiliateService(affiliateRepo repository.AffiliateRepository) *AffiliateService {
	return &AffiliateService{affiliateRepo: affiliateRepo}
}

// List 分页查询推广账户
func (s *AffiliateService) List(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	return s.affiliateRepo.List(filter)
}

// Get 查询单个推广账户
func (s *AffiliateService) Get(id uint) (*models.Affiliate, error) {
	affiliate, err := s.affiliateRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// AffiliateInput 推广账户创建/更新输入
type AffiliateInput struct {
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Tier              string  `json:"tier"`
	CustomRatePercent *string `json:"custom_rate_percent"`
	BankAccountName   string  `json:"bank_account_name"`
	BankAccountNumber string  `json:"bank_account_number"`
	BankCode          string  `json:"bank_code"`
	EwalletType       string  `json:"ewallet_type"`
	EwalletName       string  `json:"ewallet_name"`
	EwalletNumber     string  `json:"ewallet_number"`
}

// Create 创建推广账户
func (s *AffiliateService) Create(input AffiliateInput) (*models.Affiliate, error) {
	ewalletType, err := normalizedEwalletType(input.EwalletType)
	if err != nil {
		return nil, err
	}
	affiliate := &models.Affiliate{
		Code:              strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
		Name:              strings.TrimSpace(input.Name),
		Email:             strings.TrimSpace(input.Email),
		Tier:              TierByName(input.Tier).Key,
		BankAccountName:   strings.TrimSpace(input.BankAccountName),
		BankAccountNumber: strings.TrimSpace(input.BankAccountNumber),
		BankCode:          strings.TrimSpace(input.BankCode),
		EwalletType:       ewalletType,
		EwalletName:       strings.TrimSpace(input.EwalletName),
		EwalletNumber:     strings.TrimSpace(input.EwalletNumber),
		Status:            constants.AffiliateStatusActive,
	}
	if rate, err := parseOptionalMoney(input.CustomRatePercent); err != nil {
		return nil, err
	} else {
		affiliate.CustomRatePercent = rate
	}
	if err := s.affiliateRepo.Create(affiliate); err != nil {
		return nil, err
	}
	return affiliate, nil
}

// Update 更新推广账户资料
func (s *AffiliateService) Update(id uint, input AffiliateInput) (*models.Affiliate, error) {
	affiliate, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		affiliate.Name = name
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		affiliate.Email = email
	}
	if tier := strings.TrimSpace(input.Tier); tier != "" {
		affiliate.Tier = TierByName(tier).Key
	}
	ewalletType, err := normalizedEwalletType(input.EwalletType)
	if err != nil {
		return nil, err
	}
	// 收款资料整体覆盖：核验状态在资料变更后由管理端重新标记
	affiliate.BankAccountName = strings.TrimSpace(input.BankAccountName)
	affiliate.BankAccountNumber = strings.TrimSpace(input.BankAccountNumber)
	affiliate.BankCode = strings.TrimSpace(input.BankCode)
	affiliate.EwalletType = ewalletType
	affiliate.EwalletName = strings.TrimSpace(input.EwalletName)
	affiliate.EwalletNumber = strings.TrimSpace(input.EwalletNumber)
	if rate, err := parseOptionalMoney(input.CustomRatePercent); err != nil {
		return nil, err
	} else {
		affiliate.CustomRatePercent = rate
	}
	if err := s.affiliateRepo.Update(affiliate); err != nil {
		return nil, err
	}
	return affiliate, nil
}

// UpdateStatus 启用或停用推广账户
func (s *AffiliateService) UpdateStatus(id uint, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != constants.AffiliateStatusActive && status != constants.AffiliateStatusSuspended {
		return ErrInvalidAffiliateStatus
	}
	affiliate, err := s.Get(id)
	if err != nil {
		return err
	}
	affiliate.Status = status
	return s.affiliateRepo.Update(affiliate)
}

// SetVerification 标记收款账户核验结果
func (s *AffiliateService) SetVerification(id uint, bankVerified, ewalletVerified bool) error {
	affiliate, err := s.Get(id)
	if err != nil {
		return err
	}
	affiliate.BankVerified = bankVerified
	affiliate.EwalletVerified = ewalletVerified
	return s.affiliateRepo.Update(affiliate)
}

// normalizedEwalletType 校验电子钱包类型（空值表示未配置钱包）
func normalizedEwalletType(raw string) (string, error) {
	ewalletType := strings.ToLower(strings.TrimSpace(raw))
	switch ewalletType {
	case "", constants.PayoutMethodEwalletOvo, constants.PayoutMethodEwalletDana, constants.PayoutMethodEwalletGopay:
		return ewalletType, nil
	}
	return "", ErrInvalidEwalletType
}

// parseOptionalMoney 解析可选的自定义比例（空值表示沿用等级默认）
func parseOptionalMoney(raw *string) (*models.Money, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, ErrInvalidRatePercent
	}
	if value.Sign() < 0 || value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrInvalidRatePercent
	}
	money := models.NewMoneyFromDecimal(value)
	return &money, nil
}
