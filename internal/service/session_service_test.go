package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"custody-core/internal/model"
	"custody-core/pkg/cache"
	"custody-core/pkg/device"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionDriver 是会话测试专用的设备 mock，可配置解锁结果和重置行为。
type sessionDriver struct {
	pin        string
	locked     bool
	resetOK    bool
	resetPanic bool
}

func (d *sessionDriver) Unlock(pin string) bool { return pin == d.pin }
func (d *sessionDriver) GetAddress(chainID int64) (string, error) {
	return "0x1111111111111111111111111111111111111111", nil
}
func (d *sessionDriver) SignTransaction(req *device.SignRequest) (string, error) {
	return "", nil
}

func (d *sessionDriver) FactoryReset() bool {
	if d.resetPanic {
		panic("firmware fault")
	}
	return d.resetOK
}
func (d *sessionDriver) Lock() { d.locked = true }

// recordingWallets 记录 Upsert/SetConnected 调用。
type recordingWallets struct {
	mu        sync.Mutex
	upserts   []model.Wallet
	connected []bool
}

func (w *recordingWallets) Upsert(ctx context.Context, wallet *model.Wallet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.upserts = append(w.upserts, *wallet)
	return nil
}

func (w *recordingWallets) Primary(ctx context.Context, deviceID uint64, chainID uint) (*model.Wallet, error) {
	return &model.Wallet{ID: 1}, nil
}

func (w *recordingWallets) SetConnected(ctx context.Context, deviceID uint64, connected bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = append(w.connected, connected)
	return nil
}

func TestUnlockSuccessOpensWindowAndDerivesWallets(t *testing.T) {
	driver := &sessionDriver{pin: "123456"}
	wallets := &recordingWallets{}
	svc := NewSessionService(driver, &mockChains{}, wallets, nil, 1, 1, 5*time.Minute)

	ok := svc.Unlock(context.Background(), "123456")
	require.True(t, ok)

	session, exists := svc.Current()
	require.True(t, exists)
	assert.True(t, session.IsUnlocked)
	assert.True(t, session.UnlockExpiry.After(time.Now()), "解锁蕴含过期时间在未来")
	assert.True(t, svc.IsUnlocked())

	// 解锁副作用：所有配置链都派生了钱包
	assert.Len(t, wallets.upserts, 2)
	assert.Equal(t, []bool{true}, wallets.connected)
}

func TestUnlockFailureIsBooleanNotError(t *testing.T) {
	driver := &sessionDriver{pin: "123456"}
	wallets := &recordingWallets{}
	svc := NewSessionService(driver, &mockChains{}, wallets, nil, 1, 1, 5*time.Minute)

	assert.False(t, svc.Unlock(context.Background(), "999999"))
	assert.False(t, svc.IsUnlocked())
	_, exists := svc.Current()
	assert.False(t, exists)
	assert.Empty(t, wallets.upserts, "解锁失败不派生钱包")
}

func TestSessionExpiryForcesRelock(t *testing.T) {
	driver := &sessionDriver{pin: "1234"}
	svc := NewSessionService(driver, &mockChains{}, &recordingWallets{}, nil, 1, 1, -time.Second)

	require.True(t, svc.Unlock(context.Background(), "1234"))

	// TTL 为负，窗口立即过期
	assert.False(t, svc.IsUnlocked())
	assert.True(t, driver.locked, "过期要把设备锁回去")
}

func TestExplicitLock(t *testing.T) {
	driver := &sessionDriver{pin: "1234"}
	svc := NewSessionService(driver, &mockChains{}, &recordingWallets{}, nil, 1, 1, 5*time.Minute)

	require.True(t, svc.Unlock(context.Background(), "1234"))
	svc.Lock(context.Background())

	assert.False(t, svc.IsUnlocked())
	assert.True(t, driver.locked)
}

func TestFactoryResetWipesAndDisconnects(t *testing.T) {
	driver := &sessionDriver{pin: "1234", resetOK: true}
	wallets := &recordingWallets{}
	svc := NewSessionService(driver, &mockChains{}, wallets, nil, 1, 1, 5*time.Minute)

	require.True(t, svc.Unlock(context.Background(), "1234"))
	require.True(t, svc.FactoryReset(context.Background()))

	assert.False(t, svc.IsUnlocked())
	// 最后一次连接状态更新是断开
	require.NotEmpty(t, wallets.connected)
	assert.False(t, wallets.connected[len(wallets.connected)-1])
}

func TestFactoryResetUnsupportedKeepsSession(t *testing.T) {
	driver := &sessionDriver{pin: "1234", resetOK: false}
	wallets := &recordingWallets{}
	svc := NewSessionService(driver, &mockChains{}, wallets, nil, 1, 1, 5*time.Minute)

	require.True(t, svc.Unlock(context.Background(), "1234"))
	assert.False(t, svc.FactoryReset(context.Background()))

	// 不支持的重置绝不动会话和连接状态
	assert.True(t, svc.IsUnlocked())
	assert.Equal(t, []bool{true}, wallets.connected)
}

func TestFactoryResetFaultTreatedAsUnsupported(t *testing.T) {
	driver := &sessionDriver{pin: "1234", resetPanic: true}
	svc := NewSessionService(driver, &mockChains{}, &recordingWallets{}, nil, 1, 1, 5*time.Minute)

	require.True(t, svc.Unlock(context.Background(), "1234"))

	// 设备在重置过程中抛出的故障等同于 false，会话不动
	assert.False(t, svc.FactoryReset(context.Background()))
	assert.True(t, svc.IsUnlocked())
}

func TestUnlockWritesSessionCacheAndLockClearsIt(t *testing.T) {
	driver := &sessionDriver{pin: "1234"}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	svc := NewSessionService(driver, &mockChains{}, &recordingWallets{}, c, 1, 1, 5*time.Minute)

	require.True(t, svc.Unlock(context.Background(), "1234"))

	var cached Session
	require.NoError(t, c.Get(context.Background(), sessionCacheKey, &cached))
	assert.True(t, cached.IsUnlocked)
	assert.Equal(t, uint64(1), cached.DeviceID)

	svc.Lock(context.Background())
	assert.ErrorIs(t, c.Get(context.Background(), sessionCacheKey, &cached), cache.ErrMiss)
}

func TestNewTxIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTxID()
		assert.False(t, seen[id], "同一进程 tick 内生成的 ID 不能碰撞")
		seen[id] = true
	}
}
