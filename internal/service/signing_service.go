package service

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"custody-core/internal/model"
	"custody-core/pkg/chainreg"
	"custody-core/pkg/chainrpc"
	"custody-core/pkg/device"
	"custody-core/pkg/errno"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"
	"custody-core/pkg/pinpad"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultGasLimit uint64 = 21000

// 兜底值：gas/nonce 服务只是尽力而为的参考数据，取不到时
// 宁可用默认值签出去，也不挡住用户。
var defaultGasPrice = big.NewInt(20_000_000_000) // 20 gwei

const defaultNonce uint64 = 0

// PendingTransaction 是等待 PIN 授权的待发送交易。
// 同一时刻最多存在一个，被编排层独占，终态时无条件清除。
type PendingTransaction struct {
	ToAddress string `json:"to_address"`
	Amount    string `json:"amount"`   // 十进制字符串，保持精度
	ChainID   uint   `json:"chain_id"` // 内部链 ID
}

// Result 是一次成功签发的结果。
type Result struct {
	TransactionID string `json:"transaction_id"`
	TxHash        string `json:"tx_hash"`
	GasDegraded   bool   `json:"gas_degraded"` // gas/nonce 降级过，仅供提示展示
}

// SigningService 是唯一允许动钱的组件。
// 串起 链解析 → gas/nonce → 设备签名 → 广播 → 落账，任何一步都不自动重试。
type SigningService struct {
	mu       sync.Mutex
	inFlight bool
	pending  *PendingTransaction

	driver   device.Driver
	gateway  chainrpc.Gateway
	recorder Recorder
	session  SessionGuard
	chains   ChainProvider
	wallets  WalletStore
	deviceID uint64
}

func NewSigningService(
	driver device.Driver,
	gateway chainrpc.Gateway,
	recorder Recorder,
	session SessionGuard,
	chains ChainProvider,
	wallets WalletStore,
	deviceID uint64,
) *SigningService {
	return &SigningService{
		driver:   driver,
		gateway:  gateway,
		recorder: recorder,
		session:  session,
		chains:   chains,
		wallets:  wallets,
		deviceID: deviceID,
	}
}

// SetPending 登记待签交易。已有待签交易时拒绝，保证单实例。
func (s *SigningService) SetPending(p *PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil || s.inFlight {
		return errno.ErrTxInFlight
	}
	cp := *p
	s.pending = &cp
	return nil
}

// ClearPending 清除待签交易 (用户撤销/关闭弹层)。
func (s *SigningService) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFlight {
		s.pending = nil
	}
}

// Pending 返回当前待签交易的副本。
func (s *SigningService) Pending() (PendingTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingTransaction{}, false
	}
	return *s.pending, true
}

// SignAndSend 用 PIN 授权并签发当前待签交易。
//
// 顺序保证：gas 与 nonce 可以并行取，但都完成后才请求签名；
// 签名完成后才尝试广播。编排期间拒绝第二笔提交。
//
// 终态与 pending 的关系：
//   - 成功 / 签名失败 / 广播失败 → pending 无条件清除
//   - PIN 校验失败 → pending 保留，用户重输 PIN 重试
func (s *SigningService) SignAndSend(ctx context.Context, pin string) (*Result, error) {
	// PIN 长度校验在任何设备交互之前
	if len(pin) < pinpad.MinPinLength {
		return nil, errno.ErrPinTooShort
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, errno.ErrTxInFlight
	}
	if s.pending == nil {
		s.mu.Unlock()
		return nil, errno.ErrNoPendingTx
	}
	s.inFlight = true
	p := *s.pending
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	// 解锁 (会话在有效期内也重新校验 PIN，授权动作必须是新鲜的)
	if !s.session.Unlock(ctx, pin) {
		return nil, errno.ErrPinIncorrect
	}

	start := time.Now()

	// 1. 链解析
	chain, err := s.chains.Get(ctx, p.ChainID)
	if err != nil {
		s.clearPendingTerminal()
		return nil, err
	}
	networkID := chainreg.ToNetworkChainID(p.ChainID)
	symbol := chainreg.SymbolFor(networkID)

	// 金额在触碰设备前转换，非法金额快速失败
	value, err := chainreg.ToBaseUnits(p.Amount, chain.Decimals)
	if err != nil {
		s.clearPendingTerminal()
		return nil, err
	}

	// 2. 签名者地址 (nonce 查询依赖它)
	from, err := s.driver.GetAddress(networkID)
	if err != nil {
		s.clearPendingTerminal()
		logger.Error("获取签名地址失败", zap.Error(err))
		return nil, errno.ErrSigningFailed
	}

	// 3. 并行取 gas price 和 nonce，两者都结束后才继续。
	//    失败不终止流程，降级到默认值并打标记。
	var (
		rawGas   *big.Int
		gasErr   error
		rawNonce uint64
		nonceErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rawGas, gasErr = s.gateway.GetGasPrice(gctx, networkID)
		return nil
	})
	g.Go(func() error {
		rawNonce, nonceErr = s.gateway.GetNonce(gctx, from, networkID)
		return nil
	})
	_ = g.Wait()

	gasPrice, gasDegraded := resolveGasPrice(rawGas, gasErr)
	nonce, nonceDegraded := resolveNonce(rawNonce, nonceErr)
	degraded := gasDegraded || nonceDegraded
	if degraded {
		if monitor.Business != nil {
			monitor.Business.GasEstimateFallback.Inc()
		}
		logger.Warn("gas/nonce 获取降级，使用默认值",
			zap.Bool("gas", gasDegraded),
			zap.Bool("nonce", nonceDegraded))
	}

	// 4. 设备签名。没有签名就中止，什么都不落盘。
	raw, err := s.driver.SignTransaction(&device.SignRequest{
		To:       p.ToAddress,
		Value:    value,
		ChainID:  networkID,
		GasLimit: defaultGasLimit,
		GasPrice: gasPrice,
		Nonce:    nonce,
	})
	if err != nil || raw == "" {
		s.clearPendingTerminal()
		if err != nil {
			logger.Error("设备签名失败", zap.Error(err))
		}
		return nil, errno.ErrSigningFailed
	}

	// 5. 广播。失败原样透传，不重试——默认 gas/nonce 可能已经过期，
	//    自动重发有用冲突 nonce 重复提交的风险，留给用户显式重发。
	res := s.gateway.Broadcast(ctx, raw, networkID)

	chainLabel := strconv.FormatInt(networkID, 10)
	if monitor.Business != nil {
		result := "success"
		if !res.Success {
			result = "failure"
		}
		monitor.Business.BroadcastTotal.WithLabelValues(chainLabel, result).Inc()
	}

	if !res.Success {
		s.clearPendingTerminal()
		if res.Error != "" {
			return nil, errno.ErrBroadcastFailed.WithMessage(res.Error)
		}
		return nil, errno.ErrBroadcastFailed
	}

	// 6. 落账。pending 无条件清除，落账失败也一样——
	//    交易已经上链，日志是事后记录而不是交易的前提。
	record := &model.Transaction{
		ID:          NewTxID(),
		WalletID:    s.walletID(ctx, p.ChainID),
		ChainID:     p.ChainID,
		Type:        model.TxTypeSend,
		Status:      model.TxStatusConfirmed,
		Amount:      p.Amount, // 原始字符串原样保留
		TokenSymbol: symbol,
		ToAddress:   p.ToAddress,
		FromAddress: from,
		TxHash:      res.TxHash,
		Timestamp:   time.Now(),
	}
	s.clearPendingTerminal()

	if err := s.recorder.Append(ctx, record); err != nil {
		// 广播已成功，资金已动，这里只能记错误等人工对账
		logger.Error("交易记录落盘失败",
			zap.String("tx_id", record.ID),
			zap.String("tx_hash", record.TxHash),
			zap.Error(err))
	}

	if monitor.Business != nil {
		monitor.Business.SigningDuration.WithLabelValues(chainLabel).
			Observe(time.Since(start).Seconds())
	}

	return &Result{
		TransactionID: record.ID,
		TxHash:        res.TxHash,
		GasDegraded:   degraded,
	}, nil
}

// clearPendingTerminal 终态清除，绕过 inFlight 保护。
func (s *SigningService) clearPendingTerminal() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (s *SigningService) walletID(ctx context.Context, chainID uint) uint64 {
	if s.wallets == nil {
		return 0
	}
	w, err := s.wallets.Primary(ctx, s.deviceID, chainID)
	if err != nil {
		logger.Warn("查找主钱包失败", zap.Uint("chain_id", chainID), zap.Error(err))
		return 0
	}
	return w.ID
}

// resolveGasPrice 是显式的降级策略：取不到或取到非法值就用默认值。
// 第二个返回值表示发生了降级。
func resolveGasPrice(fetched *big.Int, err error) (*big.Int, bool) {
	if err != nil || fetched == nil || fetched.Sign() <= 0 {
		return new(big.Int).Set(defaultGasPrice), true
	}
	return fetched, false
}

// resolveNonce 同上，nonce 的默认值是 0。
func resolveNonce(fetched uint64, err error) (uint64, bool) {
	if err != nil {
		return defaultNonce, true
	}
	return fetched, false
}
