package service

import (
	"context"

	"custody-core/internal/model"
)

// Recorder 拥有交易日志；除它之外任何组件都不得写入。
type Recorder interface {
	// Append 追加一条不可变记录。日志只增不改，修正历史要用新 ID 追加新记录。
	Append(ctx context.Context, tx *model.Transaction) error
}

// SessionGuard 是签名入口处的会话校验边界。
type SessionGuard interface {
	// Unlock 委托设备校验 PIN。失败用布尔表达而不是 error，
	// 输入层可以直接回到 PIN 界面重试。
	Unlock(ctx context.Context, pin string) bool

	// IsUnlocked 会话是否处于有效解锁窗口内 (含过期检查)。
	IsUnlocked() bool
}

// ChainProvider 只读链配置。
type ChainProvider interface {
	Get(ctx context.Context, internalID uint) (*model.Chain, error)
	List(ctx context.Context) ([]model.Chain, error)
}

// WalletStore 派生钱包与设备连接状态的持久化。
type WalletStore interface {
	Upsert(ctx context.Context, w *model.Wallet) error
	// Primary 返回主种子 account 0 的钱包 (交易记录的 walletId 来源)。
	Primary(ctx context.Context, deviceID uint64, chainID uint) (*model.Wallet, error)
	SetConnected(ctx context.Context, deviceID uint64, connected bool) error
}
