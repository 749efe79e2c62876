package service

import (
	"context"
	"errors"

	"custody-core/internal/model"

	"gorm.io/gorm"
)

// WalletService 持久化派生钱包和设备连接状态。
type WalletService struct {
	db *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// Upsert 按 (DeviceID, ChainID, AccountIndex, WalletGroupID) 定位，存在则刷新地址。
func (s *WalletService) Upsert(ctx context.Context, w *model.Wallet) error {
	q := s.db.WithContext(ctx).
		Where("device_id = ? AND chain_id = ? AND account_index = ?",
			w.DeviceID, w.ChainID, w.AccountIndex)
	if w.WalletGroupID == nil {
		q = q.Where("wallet_group_id IS NULL")
	} else {
		q = q.Where("wallet_group_id = ?", *w.WalletGroupID)
	}

	var existing model.Wallet
	err := q.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(w).Error
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&existing).Update("address", w.Address).Error
}

// Primary 返回主种子 account 0 的钱包。
func (s *WalletService) Primary(ctx context.Context, deviceID uint64, chainID uint) (*model.Wallet, error) {
	var w model.Wallet
	err := s.db.WithContext(ctx).
		Where("device_id = ? AND chain_id = ? AND account_index = 0 AND wallet_group_id IS NULL",
			deviceID, chainID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List 返回设备的全部派生钱包。
func (s *WalletService) List(ctx context.Context, deviceID uint64) ([]model.Wallet, error) {
	var wallets []model.Wallet
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("chain_id, account_index").
		Find(&wallets).Error
	if err != nil {
		return nil, err
	}
	return wallets, nil
}

// SetConnected 更新设备的连接标记。
func (s *WalletService) SetConnected(ctx context.Context, deviceID uint64, connected bool) error {
	return s.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("id = ?", deviceID).
		Update("is_connected", connected).Error
}
