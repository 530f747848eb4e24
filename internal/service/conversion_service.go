package service

import (
	"github.com/payout-next/internal/models"
	"github.com/payout-next/internal/repository"
)

// ConversionService 转化记录查询服务
type ConversionService struct {
	conversionRepo repository.ConversionRepository
}

// NewConversionService 创建转化查询服务
func NewConversionService(conversionRepo repository.ConversionRepository) *ConversionService {
	return &ConversionService{conversionRepo: conversionRepo}
}

// List 分页查询转化记录
func (s *ConversionService) List(filter repository.ConversionListFilter) ([]models.Conversion, int64, error) {
	return s.conversionRepo.List(filter)
}

// Get 查询单条转化记录
func (s *ConversionService) Get(id uint) (*models.Conversion, error) {
	conversion, err := s.conversionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if conversion == nil {
		return nil, ErrNotFound
	}
	return conversion, nil
}
