package chainreg

import (
	"math/big"

	"custody-core/pkg/errno"

	"github.com/shopspring/decimal"
)

// 内部链 ID → 网络 chain id 映射表。
// 内部 ID 是 UI 稳定的标识，网络 chain id 才是签名/广播用的原生数值。
// 这张表是兼容性契约，不可改动。
var networkChainIDs = map[uint]int64{
	0: 1,     // Ethereum
	1: 56,    // BNB Chain
	2: 137,   // Polygon
	3: 43114, // Avalanche C-Chain
	4: 42161, // Arbitrum One
}

// 网络 chain id → 展示符号。
var symbols = map[int64]string{
	1:     "ETH",
	56:    "BNB",
	137:   "MATIC",
	43114: "AVAX",
	42161: "ETH",
}

const (
	// DefaultNetworkChainID 未配置的内部 ID 统一落到主网。
	// 配置正确的注册表里不应出现未映射的 ID，这只是兜底。
	DefaultNetworkChainID int64 = 1

	// DefaultSymbol 未知网络的通用符号。
	DefaultSymbol = "ETH"
)

// ToNetworkChainID 将内部链 ID 解析为网络 chain id。
// 查表命中返回映射值，否则返回 DefaultNetworkChainID。
func ToNetworkChainID(internalID uint) int64 {
	if id, ok := networkChainIDs[internalID]; ok {
		return id
	}
	return DefaultNetworkChainID
}

// SymbolFor 返回网络 chain id 对应的展示符号，未映射时返回 DefaultSymbol。
func SymbolFor(networkChainID int64) string {
	if sym, ok := symbols[networkChainID]; ok {
		return sym
	}
	return DefaultSymbol
}

// ToBaseUnits 将十进制金额字符串转换为链上最小单位。
// 例如 decimals=18 时 "1.5" → 1500000000000000000。
// 金额始终以字符串承载，避免浮点精度丢失。
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errno.ErrInvalidAmount
	}
	if d.Sign() < 0 {
		return nil, errno.ErrInvalidAmount
	}
	// Shift 后可能仍有小数位 (超出链精度)，直接截断
	return d.Shift(decimals).Truncate(0).BigInt(), nil
}

// FromBaseUnits 是 ToBaseUnits 的逆变换，用于展示。
func FromBaseUnits(v *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(v, -decimals).String()
}
