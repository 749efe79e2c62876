package service

import (
	"context"
	"errors"

	"custody-core/internal/model"
	"custody-core/pkg/errno"

	"gorm.io/gorm"
)

// ChainService 管理链配置。配置在启动时播种一次，之后只读。
type ChainService struct {
	db *gorm.DB
}

func NewChainService(db *gorm.DB) *ChainService {
	return &ChainService{db: db}
}

// defaultChains 与 chainreg 的映射表一一对应。
var defaultChains = []model.Chain{
	{ID: 0, Name: "Ethereum", Symbol: "ETH", NetworkChainID: 1, Decimals: 18, IsDefault: true},
	{ID: 1, Name: "BNB Chain", Symbol: "BNB", NetworkChainID: 56, Decimals: 18},
	{ID: 2, Name: "Polygon", Symbol: "MATIC", NetworkChainID: 137, Decimals: 18},
	{ID: 3, Name: "Avalanche", Symbol: "AVAX", NetworkChainID: 43114, Decimals: 18},
	{ID: 4, Name: "Arbitrum One", Symbol: "ETH", NetworkChainID: 42161, Decimals: 18},
}

// Seed 播种默认链配置，幂等。
func (s *ChainService) Seed(ctx context.Context) error {
	for _, chain := range defaultChains {
		c := chain
		if err := s.db.WithContext(ctx).
			Where("id = ?", c.ID).
			FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *ChainService) Get(ctx context.Context, internalID uint) (*model.Chain, error) {
	var chain model.Chain
	err := s.db.WithContext(ctx).First(&chain, "id = ?", internalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrChainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chain, nil
}

func (s *ChainService) List(ctx context.Context) ([]model.Chain, error) {
	var chains []model.Chain
	if err := s.db.WithContext(ctx).Order("id").Find(&chains).Error; err != nil {
		return nil, err
	}
	return chains, nil
}
