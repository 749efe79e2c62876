package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Device 硬件签名设备表
// PinLength 出厂后不可变；PinHash 绝不以明文比较。
type Device struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	PinHash      string    `gorm:"type:varchar(128);not null" json:"-"` // 不返回哈希
	PinLength    int       `gorm:"not null;default:6" json:"pin_length"`
	SeedKeystore string    `gorm:"type:text" json:"-"` // 加密后的种子 (keystore JSON)，不透明
	IsConnected  bool      `gorm:"not null;default:false" json:"is_connected"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Chain 链配置表，启动时播种，之后只读。
// NetworkChainID 对非 EVM 网络可能是合成的负数哨兵。
type Chain struct {
	// 内部链 ID 是固定映射表的 key，0 是默认网络 (Ethereum)。
	// 必须显式关掉自增：gorm 对单一整型主键默认按自增处理，
	// 零值 ID 会被排除在 INSERT 之外，0 号链就永远播不进去。
	ID             uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name           string `gorm:"type:varchar(64);not null" json:"name"`
	Symbol         string `gorm:"type:varchar(16);not null" json:"symbol"`
	NetworkChainID int64  `gorm:"not null;unique" json:"network_chain_id"`
	Decimals       int32  `gorm:"not null;default:18" json:"decimals"`
	IsDefault      bool   `gorm:"not null;default:false" json:"is_default"`
}

// Wallet 派生钱包表
// (DeviceID, ChainID, AccountIndex, WalletGroupID) 定位一把派生钥匙；
// WalletGroupID 为空表示主种子。余额由外部刷新，签名流程不改它。
type Wallet struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID      uint64          `gorm:"not null;index;uniqueIndex:idx_derived_key" json:"device_id"`
	ChainID       uint            `gorm:"not null;uniqueIndex:idx_derived_key" json:"chain_id"`
	Address       string          `gorm:"type:varchar(255);not null" json:"address"`
	Balance       decimal.Decimal `gorm:"type:decimal(32,18);not null;default:0" json:"balance"`
	AccountIndex  uint32          `gorm:"not null;default:0;uniqueIndex:idx_derived_key" json:"account_index"`
	WalletGroupID *uint32         `gorm:"uniqueIndex:idx_derived_key" json:"wallet_group_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Transaction 交易日志表，只追加，写入后不可变。
// Amount 保留原始十进制字符串，绝不换成浮点。
type Transaction struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	WalletID    uint64    `gorm:"not null;index" json:"wallet_id"`
	ChainID     uint      `gorm:"not null;index" json:"chain_id"`
	Type        string    `gorm:"type:varchar(16);not null" json:"type"`   // send, receive
	Status      string    `gorm:"type:varchar(16);not null" json:"status"` // pending, confirmed, failed
	Amount      string    `gorm:"type:varchar(80);not null" json:"amount"`
	TokenSymbol string    `gorm:"type:varchar(16);not null" json:"token_symbol"`
	ToAddress   string    `gorm:"type:varchar(255);not null" json:"to_address"`
	FromAddress string    `gorm:"type:varchar(255);not null" json:"from_address"`
	TxHash      string    `gorm:"type:varchar(255)" json:"tx_hash,omitempty"`
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
}

// OutboxMessage 本地消息表 (Transactional Outbox)
type OutboxMessage struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string    `gorm:"type:varchar(255);not null" json:"topic"`
	Payload   []byte    `gorm:"type:text;not null" json:"payload"`
	Status    string    `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"` // PENDING, SENT, FAILED
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction 的状态常量。广播结果是同步已知的，记录直接以
// confirmed/failed 落盘，pending 只用于外部导入的历史数据。
const (
	TxTypeSend    = "send"
	TxTypeReceive = "receive"

	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// AllModels 用于开发环境的 AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&Device{},
		&Chain{},
		&Wallet{},
		&Transaction{},
		&OutboxMessage{},
	}
}

func (Device) TableName() string {
	return "devices"
}

func (Chain) TableName() string {
	return "chains"
}

func (Wallet) TableName() string {
	return "wallets"
}

func (Transaction) TableName() string {
	return "transactions"
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}
