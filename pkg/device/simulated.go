package device

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"custody-core/pkg/address"
	"custody-core/pkg/crypto_util"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

var (
	ErrLocked             = errors.New("device is locked")
	ErrWiped              = errors.New("device has been factory reset")
	ErrUnsupportedNetwork = errors.New("unsupported network chain id")
)

// Simulated 模拟一台硬件签名设备。
// 私钥材料只存在于内存，PIN 以 blake3 哈希比对，明文从不落地。
type Simulated struct {
	mu sync.Mutex

	name       string
	pinHash    string // blake3(pin) hex
	pinLength  int
	master     *hdkeychain.ExtendedKey
	unlocked   bool
	resettable bool

	ethGen *address.ETHGenerator
}

// NewSimulated 从种子助记词构造模拟设备。
// pinHash 由出厂配置提供 (crypto_util.CalculateBlake3)，pinLength 出厂后不可变。
func NewSimulated(name, pinHash string, pinLength int, mnemonic string, resettable bool) (*Simulated, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid seed mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("生成主密钥失败: %w", err)
	}

	return &Simulated{
		name:       name,
		pinHash:    pinHash,
		pinLength:  pinLength,
		master:     master,
		resettable: resettable,
		ethGen:     address.NewETHGenerator(),
	}, nil
}

// HashPIN 计算 PIN 的存储哈希 (出厂配置和测试用)。
func HashPIN(pin string) string {
	return crypto_util.CalculateBlake3([]byte(pin))
}

func (d *Simulated) Name() string   { return d.name }
func (d *Simulated) PinLength() int { return d.pinLength }

// Unlock 校验 PIN。比较走常数时间，失败不泄露任何信息。
func (d *Simulated) Unlock(pin string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.master == nil || d.pinHash == "" {
		return false
	}
	if !crypto_util.SecureCompare(crypto_util.CalculateBlake3([]byte(pin)), d.pinHash) {
		return false
	}
	d.unlocked = true
	return true
}

// Lock 锁定设备 (会话过期时由上层调用)。
func (d *Simulated) Lock() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unlocked = false
}

// GetAddress 返回主种子第一个账户的地址。
// 所有支持的网络都是 EVM 系，同一把钥匙在各网络上地址一致。
func (d *Simulated) GetAddress(networkChainID int64) (string, error) {
	return d.DeriveAddress(networkChainID, 0, 0)
}

// DeriveAddress 按 m/44'/60'/group'/0/index 派生地址。
func (d *Simulated) DeriveAddress(networkChainID int64, group, index uint32) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key, err := d.deriveKey(group, index)
	if err != nil {
		return "", err
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return "", err
	}
	return d.ethGen.PubKeyToAddress(pub.SerializeUncompressed())
}

// SignTransaction 构造并签名一笔 EIP-155 交易，返回可广播的 raw hex。
func (d *Simulated) SignTransaction(req *SignRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if req.ChainID <= 0 {
		// 负数 chain id 是非 EVM 网络的占位哨兵，本设备签不了
		return "", ErrUnsupportedNetwork
	}

	key, err := d.deriveKey(0, 0)
	if err != nil {
		return "", err
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return "", err
	}

	tx := ethtypes.NewTransaction(
		req.Nonce,
		common.HexToAddress(req.To),
		req.Value,
		req.GasLimit,
		req.GasPrice,
		nil,
	)

	// go-ethereum 的纯 Go 签名器按曲线实例比对 (crypto.S256())，
	// btcec 转换出的 *KoblitzCurve 类型不同会被拒签；曲线本身相同。
	signKey := priv.ToECDSA()
	signKey.Curve = ethcrypto.S256()

	signer := ethtypes.NewEIP155Signer(big.NewInt(req.ChainID))
	signed, err := ethtypes.SignTx(tx, signer, signKey)
	if err != nil {
		return "", fmt.Errorf("签名失败: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hexutil.Encode(raw), nil
}

// FactoryReset 擦除种子并锁定。固件不支持时返回 false，什么都不动。
func (d *Simulated) FactoryReset() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.resettable {
		return false
	}
	d.master = nil
	d.pinHash = ""
	d.unlocked = false
	return true
}

// deriveKey 持锁调用。未解锁或已擦除直接拒绝。
func (d *Simulated) deriveKey(group, index uint32) (*hdkeychain.ExtendedKey, error) {
	if d.master == nil {
		return nil, ErrWiped
	}
	if !d.unlocked {
		return nil, ErrLocked
	}

	// m/44'/60'/group'/0/index
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart + group,
		0,
		index,
	}
	key := d.master
	var err error
	for _, segment := range path {
		key, err = key.Derive(segment)
		if err != nil {
			return nil, fmt.Errorf("派生子密钥失败: %w", err)
		}
	}
	return key, nil
}
