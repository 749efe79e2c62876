package device

import "math/big"

// SignRequest 是交给设备签名的交易要素。
// value/gasPrice 均为链上最小单位。
type SignRequest struct {
	To       string
	Value    *big.Int
	ChainID  int64
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64
}

// Driver 是硬件签名设备的能力边界。
// 所有调用都可能以 false/空结果或 error 的形式失败，上层统一按失败处理。
type Driver interface {
	// Unlock 用 PIN 解锁设备。false 表示 PIN 不正确。
	Unlock(pin string) bool

	// GetAddress 返回指定网络上的签名者地址。设备未解锁时返回错误。
	GetAddress(networkChainID int64) (string, error)

	// SignTransaction 返回可直接广播的已签名交易 (hex)。
	// 返回空串或 error 均视为签名失败。
	SignTransaction(req *SignRequest) (string, error)

	// FactoryReset 出厂重置。true 表示擦除成功，调用方必须立即断开并清除会话；
	// false 表示固件不支持，调用方引导用户走手工重置。
	FactoryReset() bool
}

// Deriver 是可选能力：支持多 Seed Group 的地址派生。
// 不带 group 的派生等价于 group 0 (主种子)。
type Deriver interface {
	DeriveAddress(networkChainID int64, group, index uint32) (string, error)
}
