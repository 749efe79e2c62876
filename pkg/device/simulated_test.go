package device

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newTestDevice(t *testing.T, resettable bool) *Simulated {
	t.Helper()
	d, err := NewSimulated("SimuSigner One", HashPIN("123456"), 6, testMnemonic, resettable)
	require.NoError(t, err)
	return d
}

func TestNewSimulatedRejectsBadMnemonic(t *testing.T) {
	_, err := NewSimulated("x", HashPIN("1234"), 4, "definitely not a mnemonic", true)
	assert.Error(t, err)
}

func TestUnlock(t *testing.T) {
	d := newTestDevice(t, true)

	assert.False(t, d.Unlock("000000"))
	assert.True(t, d.Unlock("123456"))

	// 锁定后需要重新解锁
	d.Lock()
	_, err := d.GetAddress(1)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestGetAddress(t *testing.T) {
	d := newTestDevice(t, true)

	// 未解锁拒绝派生
	_, err := d.GetAddress(1)
	assert.ErrorIs(t, err, ErrLocked)

	require.True(t, d.Unlock("123456"))

	addr, err := d.GetAddress(1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "0x"))
	assert.Len(t, addr, 42)

	// 同一把钥匙在不同 EVM 网络上地址一致
	addr2, err := d.GetAddress(137)
	require.NoError(t, err)
	assert.Equal(t, addr, addr2)
}

func TestDeriveAddressSeedGroups(t *testing.T) {
	d := newTestDevice(t, true)
	require.True(t, d.Unlock("123456"))

	primary, err := d.DeriveAddress(1, 0, 0)
	require.NoError(t, err)
	grouped, err := d.DeriveAddress(1, 1, 0)
	require.NoError(t, err)

	assert.NotEqual(t, primary, grouped, "不同 seed group 必须派生出不同地址")

	// 派生是确定性的
	again, err := d.DeriveAddress(1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, grouped, again)
}

func TestSignTransaction(t *testing.T) {
	d := newTestDevice(t, true)

	req := &SignRequest{
		To:       "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		Value:    big.NewInt(1500000000000000000),
		ChainID:  1,
		GasLimit: 21000,
		GasPrice: big.NewInt(20000000000),
		Nonce:    7,
	}

	// 锁定状态拒绝签名
	_, err := d.SignTransaction(req)
	assert.ErrorIs(t, err, ErrLocked)

	require.True(t, d.Unlock("123456"))

	raw, err := d.SignTransaction(req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "0x"))
	assert.Greater(t, len(raw), 10)
}

func TestSignTransactionRejectsSentinelChainID(t *testing.T) {
	d := newTestDevice(t, true)
	require.True(t, d.Unlock("123456"))

	_, err := d.SignTransaction(&SignRequest{
		To:       "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		Value:    big.NewInt(1),
		ChainID:  -2, // 非 EVM 网络的合成哨兵
		GasLimit: 21000,
		GasPrice: big.NewInt(1),
	})
	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
}

func TestFactoryReset(t *testing.T) {
	d := newTestDevice(t, true)
	require.True(t, d.Unlock("123456"))

	assert.True(t, d.FactoryReset())

	// 擦除后一切能力消失
	assert.False(t, d.Unlock("123456"))
	_, err := d.GetAddress(1)
	assert.ErrorIs(t, err, ErrWiped)
}

func TestFactoryResetUnsupported(t *testing.T) {
	d := newTestDevice(t, false)
	require.True(t, d.Unlock("123456"))

	assert.False(t, d.FactoryReset())

	// 不支持的重置不得影响设备状态
	addr, err := d.GetAddress(1)
	require.NoError(t, err)
	assert.NotEmpty(t, addr)
}
