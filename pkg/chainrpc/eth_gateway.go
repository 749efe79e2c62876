package chainrpc

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"custody-core/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// EthGateway 基于 ethclient 的 Gateway 实现。
// 每个网络一个 RPC 端点，连接懒加载并复用。
type EthGateway struct {
	mu        sync.Mutex
	endpoints map[int64]string
	clients   map[int64]*ethclient.Client
}

// NewEthGateway 从配置构造网关。
// endpoints 的 key 是网络 chain id 的字符串形式 (viper map 的限制)。
func NewEthGateway(endpoints map[string]string) (*EthGateway, error) {
	parsed := make(map[int64]string, len(endpoints))
	for k, url := range endpoints {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in endpoints config: %w", k, err)
		}
		parsed[id] = url
	}
	return &EthGateway{
		endpoints: parsed,
		clients:   make(map[int64]*ethclient.Client),
	}, nil
}

func (g *EthGateway) client(networkChainID int64) (*ethclient.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[networkChainID]; ok {
		return c, nil
	}
	url, ok := g.endpoints[networkChainID]
	if !ok {
		return nil, fmt.Errorf("no RPC endpoint configured for chain %d", networkChainID)
	}
	c, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	g.clients[networkChainID] = c
	return c, nil
}

func (g *EthGateway) GetGasPrice(ctx context.Context, networkChainID int64) (*big.Int, error) {
	c, err := g.client(networkChainID)
	if err != nil {
		return nil, err
	}
	return c.SuggestGasPrice(ctx)
}

func (g *EthGateway) GetNonce(ctx context.Context, address string, networkChainID int64) (uint64, error) {
	c, err := g.client(networkChainID)
	if err != nil {
		return 0, err
	}
	return c.PendingNonceAt(ctx, common.HexToAddress(address))
}

func (g *EthGateway) Broadcast(ctx context.Context, rawTx string, networkChainID int64) BroadcastResult {
	c, err := g.client(networkChainID)
	if err != nil {
		return BroadcastResult{Success: false, Error: err.Error()}
	}

	data, err := hexutil.Decode(rawTx)
	if err != nil {
		return BroadcastResult{Success: false, Error: fmt.Sprintf("invalid raw transaction: %v", err)}
	}
	var tx ethtypes.Transaction
	if err := tx.UnmarshalBinary(data); err != nil {
		return BroadcastResult{Success: false, Error: fmt.Sprintf("invalid raw transaction: %v", err)}
	}

	if err := c.SendTransaction(ctx, &tx); err != nil {
		logger.Warn("广播被网络拒绝",
			zap.Int64("chain_id", networkChainID),
			zap.Error(err))
		return BroadcastResult{Success: false, Error: err.Error()}
	}

	return BroadcastResult{Success: true, TxHash: tx.Hash().Hex()}
}
