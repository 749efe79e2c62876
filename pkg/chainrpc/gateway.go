package chainrpc

import (
	"context"
	"math/big"
)

// BroadcastResult 是广播的同步结果。
// Error 原样透传网络返回的信息，上层不得改写。
type BroadcastResult struct {
	Success bool   `json:"success"`
	TxHash  string `json:"tx_hash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Gateway 是链上 RPC 的能力边界。
// gas price / nonce 属于尽力而为的参考数据，失败由上层用默认值兜底。
type Gateway interface {
	GetGasPrice(ctx context.Context, networkChainID int64) (*big.Int, error)
	GetNonce(ctx context.Context, address string, networkChainID int64) (uint64, error)

	// Broadcast 提交已签名交易。结果总是以 BroadcastResult 表达，
	// 连接层故障也会折叠成 Success=false + Error。
	Broadcast(ctx context.Context, rawTx string, networkChainID int64) BroadcastResult
}
