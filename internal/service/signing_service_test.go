package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"custody-core/internal/model"
	"custody-core/pkg/chainrpc"
	"custody-core/pkg/device"
	"custody-core/pkg/errno"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mocks ----

type mockDriver struct {
	addr    string
	addrErr error
	signed  string
	signErr error
	signReq *device.SignRequest
}

func (m *mockDriver) Unlock(pin string) bool { return true }
func (m *mockDriver) GetAddress(chainID int64) (string, error) {
	return m.addr, m.addrErr
}
func (m *mockDriver) SignTransaction(req *device.SignRequest) (string, error) {
	m.signReq = req
	return m.signed, m.signErr
}
func (m *mockDriver) FactoryReset() bool { return false }

type mockGateway struct {
	gasPrice  *big.Int
	gasErr    error
	nonce     uint64
	nonceErr  error
	result    chainrpc.BroadcastResult
	broadcast int
}

func (m *mockGateway) GetGasPrice(ctx context.Context, chainID int64) (*big.Int, error) {
	return m.gasPrice, m.gasErr
}
func (m *mockGateway) GetNonce(ctx context.Context, addr string, chainID int64) (uint64, error) {
	return m.nonce, m.nonceErr
}
func (m *mockGateway) Broadcast(ctx context.Context, rawTx string, chainID int64) chainrpc.BroadcastResult {
	m.broadcast++
	return m.result
}

type mockRecorder struct {
	mu      sync.Mutex
	records []*model.Transaction
	err     error
}

func (m *mockRecorder) Append(ctx context.Context, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *tx
	m.records = append(m.records, &cp)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type mockSession struct {
	unlockOK bool
	attempts int
}

func (m *mockSession) Unlock(ctx context.Context, pin string) bool {
	m.attempts++
	return m.unlockOK
}
func (m *mockSession) IsUnlocked() bool { return m.unlockOK }

type mockChains struct{}

func (m *mockChains) Get(ctx context.Context, id uint) (*model.Chain, error) {
	switch id {
	case 0:
		return &model.Chain{ID: 0, Symbol: "ETH", NetworkChainID: 1, Decimals: 18}, nil
	case 3:
		return &model.Chain{ID: 3, Symbol: "AVAX", NetworkChainID: 43114, Decimals: 18}, nil
	}
	return nil, errno.ErrChainNotFound
}
func (m *mockChains) List(ctx context.Context) ([]model.Chain, error) {
	return []model.Chain{
		{ID: 0, Symbol: "ETH", NetworkChainID: 1, Decimals: 18},
		{ID: 3, Symbol: "AVAX", NetworkChainID: 43114, Decimals: 18},
	}, nil
}

type mockWallets struct{}

func (m *mockWallets) Upsert(ctx context.Context, w *model.Wallet) error { return nil }
func (m *mockWallets) Primary(ctx context.Context, deviceID uint64, chainID uint) (*model.Wallet, error) {
	return &model.Wallet{ID: 42, DeviceID: deviceID, ChainID: chainID}, nil
}
func (m *mockWallets) SetConnected(ctx context.Context, deviceID uint64, connected bool) error {
	return nil
}

// ---- fixtures ----

type fixture struct {
	driver   *mockDriver
	gateway  *mockGateway
	recorder *mockRecorder
	session  *mockSession
	svc      *SigningService
}

func newFixture() *fixture {
	f := &fixture{
		driver: &mockDriver{
			addr:   "0xF0E1D2C3B4A5968778695A4B3C2D1E0F12345678",
			signed: "0xdeadbeef",
		},
		gateway: &mockGateway{
			gasPrice: big.NewInt(30_000_000_000),
			nonce:    7,
			result:   chainrpc.BroadcastResult{Success: true, TxHash: "0xABC123"},
		},
		recorder: &mockRecorder{},
		session:  &mockSession{unlockOK: true},
	}
	f.svc = NewSigningService(f.driver, f.gateway, f.recorder, f.session,
		&mockChains{}, &mockWallets{}, 1)
	return f
}

func pendingTx() *PendingTransaction {
	return &PendingTransaction{
		ToAddress: "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		Amount:    "1.5",
		ChainID:   0,
	}
}

// ---- tests ----

func TestSignAndSendHappyPath(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.SetPending(pendingTx()))

	res, err := f.svc.SignAndSend(context.Background(), "123456")
	require.NoError(t, err)

	assert.Equal(t, "0xABC123", res.TxHash)
	assert.False(t, res.GasDegraded)
	assert.NotEmpty(t, res.TransactionID)

	// 恰好一条 confirmed 记录，金额原样保留
	require.Equal(t, 1, f.recorder.count())
	rec := f.recorder.records[0]
	assert.Equal(t, model.TxStatusConfirmed, rec.Status)
	assert.Equal(t, "0xABC123", rec.TxHash)
	assert.Equal(t, "1.5", rec.Amount)
	assert.Equal(t, "ETH", rec.TokenSymbol)
	assert.Equal(t, f.driver.addr, rec.FromAddress)
	assert.Equal(t, uint64(42), rec.WalletID)

	// pending 被清除
	_, ok := f.svc.Pending()
	assert.False(t, ok)

	// 金额按 18 位精度转换成最小单位
	require.NotNil(t, f.driver.signReq)
	assert.Equal(t, "1500000000000000000", f.driver.signReq.Value.String())
	assert.Equal(t, int64(1), f.driver.signReq.ChainID)
	assert.Equal(t, uint64(7), f.driver.signReq.Nonce)
	assert.Equal(t, "30000000000", f.driver.signReq.GasPrice.String())
}

func TestSignAndSendResolvesChainMapping(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.SetPending(&PendingTransaction{
		ToAddress: "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		Amount:    "2",
		ChainID:   3,
	}))

	res, err := f.svc.SignAndSend(context.Background(), "123456")
	require.NoError(t, err)
	assert.NotEmpty(t, res.TxHash)

	// 内部 ID 3 → 网络 43114，符号 AVAX
	assert.Equal(t, int64(43114), f.driver.signReq.ChainID)
	assert.Equal(t, "AVAX", f.recorder.records[0].TokenSymbol)
}

func TestSignAndSendRequiresMinPinLength(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.SetPending(pendingTx()))

	_, err := f.svc.SignAndSend(context.Background(), "123")
	assert.ErrorIs(t, err, errno.ErrPinTooShort)

	// 校验失败不触碰设备，pending 保留等待重试
	assert.Equal(t, 0, f.session.attempts)
	_, ok := f.svc.Pending()
	assert.True(t, ok)
}

func TestSignAndSendIncorrectPinKeepsPending(t *testing.T) {
	f := newFixture()
	f.session.unlockOK = false
	require.NoError(t, f.svc.SetPending(pendingTx()))

	_, err := f.svc.SignAndSend(context.Background(), "000000")
	assert.ErrorIs(t, err, errno.ErrPinIncorrect)

	// 错误 PIN 后用户可以直接重输，pending 不丢
	_, ok := f.svc.Pending()
	assert.True(t, ok)
	assert.Equal(t, 0, f.recorder.count())
}

func TestSignAndSendSigningFailure(t *testing.T) {
	f := newFixture()
	f.driver.signed = ""
	f.driver.signErr = errors.New("device refused")
	require.NoError(t, f.svc.SetPending(pendingTx()))

	_, err := f.svc.SignAndSend(context.Background(), "123456")
	assert.ErrorIs(t, err, errno.ErrSigningFailed)

	// 没有签名就没有任何落盘，也没有广播
	assert.Equal(t, 0, f.recorder.count())
	assert.Equal(t, 0, f.gateway.broadcast)
	_, ok := f.svc.Pending()
	assert.False(t, ok)
}

func TestSignAndSendNilSignature(t *testing.T) {
	f := newFixture()
	f.driver.signed = "" // 空签名等同失败，即使没有 error
	require.NoError(t, f.svc.SetPending(pendingTx()))

	_, err := f.svc.SignAndSend(context.Background(), "123456")
	assert.ErrorIs(t, err, errno.ErrSigningFailed)
	assert.Equal(t, 0, f.recorder.count())
}

func TestSignAndSendBroadcastFailure(t *testing.T) {
	f := newFixture()
	f.gateway.result = chainrpc.BroadcastResult{
		Success: false,
		Error:   "insufficient funds for gas * price + value",
	}
	require.NoError(t, f.svc.SetPending(pendingTx()))

	_, err := f.svc.SignAndSend(context.Background(), "123456")
	require.Error(t, err)

	// 网络返回的错误信息原样透传
	var e errno.Errno
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "insufficient funds for gas * price + value", e.Message)

	// 广播失败不落盘，pending 清除
	assert.Equal(t, 0, f.recorder.count())
	_, ok := f.svc.Pending()
	assert.False(t, ok)
}

func TestSignAndSendGasDegradation(t *testing.T) {
	f := newFixture()
	f.gateway.gasErr = errors.New("rpc timeout")
	f.gateway.nonceErr = errors.New("rpc timeout")
	require.NoError(t, f.svc.SetPending(pendingTx()))

	res, err := f.svc.SignAndSend(context.Background(), "123456")
	require.NoError(t, err)

	// 降级不是失败：用默认值继续签，但打上标记
	assert.True(t, res.GasDegraded)
	assert.Equal(t, "20000000000", f.driver.signReq.GasPrice.String())
	assert.Equal(t, uint64(0), f.driver.signReq.Nonce)
	assert.Equal(t, 1, f.recorder.count())
}

func TestSignAndSendInvalidAmount(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.SetPending(&PendingTransaction{
		ToAddress: "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		Amount:    "not-a-number",
		ChainID:   0,
	}))

	_, err := f.svc.SignAndSend(context.Background(), "123456")
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)
	assert.Equal(t, 0, f.recorder.count())
}

func TestOnlyOnePendingTransaction(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.SetPending(pendingTx()))

	// 第二笔在第一笔终结前被拒绝
	err := f.svc.SetPending(pendingTx())
	assert.ErrorIs(t, err, errno.ErrTxInFlight)
}

func TestDoubleSubmissionProducesOneRecord(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.SetPending(pendingTx()))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.SignAndSend(context.Background(), "123456")
		}(i)
	}
	wg.Wait()

	// 两次并发提交最多一条记录：另一次要么撞上 in-flight 保护，
	// 要么发现 pending 已被消费
	assert.Equal(t, 1, f.recorder.count())

	failures := 0
	for _, err := range results {
		if err != nil {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestClearPendingOnDismiss(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.svc.SetPending(pendingTx()))

	f.svc.ClearPending()
	_, ok := f.svc.Pending()
	assert.False(t, ok)

	// 清除后可以登记新的一笔
	assert.NoError(t, f.svc.SetPending(pendingTx()))
}

func TestResolveWithDefault(t *testing.T) {
	// gas price
	gp, degraded := resolveGasPrice(big.NewInt(123), nil)
	assert.Equal(t, int64(123), gp.Int64())
	assert.False(t, degraded)

	gp, degraded = resolveGasPrice(nil, errors.New("down"))
	assert.Equal(t, defaultGasPrice.String(), gp.String())
	assert.True(t, degraded)

	gp, degraded = resolveGasPrice(big.NewInt(0), nil)
	assert.True(t, degraded)
	assert.Equal(t, defaultGasPrice.String(), gp.String())

	// nonce
	n, degraded := resolveNonce(9, nil)
	assert.Equal(t, uint64(9), n)
	assert.False(t, degraded)

	n, degraded = resolveNonce(9, errors.New("down"))
	assert.Equal(t, uint64(0), n)
	assert.True(t, degraded)
}
