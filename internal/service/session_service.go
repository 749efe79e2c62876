package service

import (
	"context"
	"sync"
	"time"

	"custody-core/internal/model"
	"custody-core/pkg/cache"
	"custody-core/pkg/chainreg"
	"custody-core/pkg/device"
	"custody-core/pkg/logger"
	"custody-core/pkg/monitor"

	"go.uber.org/zap"
)

const sessionCacheKey = "custody:session"

// Session 是时间窗口内有效的解锁状态。
// IsUnlocked=true 蕴含 UnlockExpiry 在未来；过期后必须重新输入 PIN。
type Session struct {
	DeviceID     uint64    `json:"device_id"`
	IsUnlocked   bool      `json:"is_unlocked"`
	UnlockExpiry time.Time `json:"unlock_expiry"`
}

// SessionService 把一次 PIN 校验变成带过期的解锁会话。
// 同一时刻只有一个活动会话，由编排层独占持有。
type SessionService struct {
	mu sync.Mutex

	driver     device.Driver
	chains     ChainProvider
	wallets    WalletStore
	cache      cache.Cache
	deviceID   uint64
	seedGroups int
	ttl        time.Duration

	current *Session
}

func NewSessionService(
	driver device.Driver,
	chains ChainProvider,
	wallets WalletStore,
	c cache.Cache,
	deviceID uint64,
	seedGroups int,
	ttl time.Duration,
) *SessionService {
	if seedGroups < 1 {
		seedGroups = 1
	}
	return &SessionService{
		driver:     driver,
		chains:     chains,
		wallets:    wallets,
		cache:      c,
		deviceID:   deviceID,
		seedGroups: seedGroups,
		ttl:        ttl,
	}
}

// Unlock 委托设备校验 PIN。
// 成功后会话进入解锁窗口，并顺带派生所有配置链上的钱包，
// 保证签名步骤拿到的地址是新鲜的。失败只返回 false，调用方重试。
func (s *SessionService) Unlock(ctx context.Context, pin string) bool {
	ok := s.driver.Unlock(pin)

	if monitor.Business != nil {
		result := "failure"
		if ok {
			result = "success"
		}
		monitor.Business.UnlockAttemptsTotal.WithLabelValues(result).Inc()
	}

	if !ok {
		return false
	}

	session := Session{
		DeviceID:     s.deviceID,
		IsUnlocked:   true,
		UnlockExpiry: time.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, sessionCacheKey, session, s.ttl); err != nil {
			logger.Warn("写入会话缓存失败", zap.Error(err))
		}
	}
	if s.wallets != nil {
		if err := s.wallets.SetConnected(ctx, s.deviceID, true); err != nil {
			logger.Warn("更新设备连接状态失败", zap.Error(err))
		}
	}

	s.deriveWallets(ctx)
	return true
}

// IsUnlocked 检查会话是否仍在有效窗口内。过期即锁定。
func (s *SessionService) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || !s.current.IsUnlocked {
		return false
	}
	if time.Now().After(s.current.UnlockExpiry) {
		s.current = nil
		s.lockDriver()
		return false
	}
	return true
}

// Current 返回当前会话的副本。
func (s *SessionService) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Lock 显式锁定：清会话、清缓存、锁设备。
func (s *SessionService) Lock(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.lockDriver()
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Delete(ctx, sessionCacheKey); err != nil {
			logger.Warn("清除会话缓存失败", zap.Error(err))
		}
	}
}

// Disconnect 断开设备：锁定并落盘连接状态。
func (s *SessionService) Disconnect(ctx context.Context) {
	s.Lock(ctx)
	if s.wallets != nil {
		if err := s.wallets.SetConnected(ctx, s.deviceID, false); err != nil {
			logger.Warn("更新设备连接状态失败", zap.Error(err))
		}
	}
}

// FactoryReset 出厂重置。
// true 表示擦除成功，立即断开并清除会话；false (含设备抛出的任何故障)
// 表示走手工重置路径，当前会话和连接状态保持不动。绝不自动重试——
// 对半擦除的设备反复下发擦除指令是不安全的。
func (s *SessionService) FactoryReset(ctx context.Context) bool {
	ok := s.safeReset()

	if monitor.Business != nil {
		result := "unsupported"
		if ok {
			result = "wiped"
		}
		monitor.Business.FactoryResetTotal.WithLabelValues(result).Inc()
	}

	if !ok {
		return false
	}

	s.Disconnect(ctx)
	return true
}

// safeReset 把设备抛出的故障折叠成 false。
func (s *SessionService) safeReset() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("设备重置过程中发生故障", zap.Any("fault", r))
			ok = false
		}
	}()
	return s.driver.FactoryReset()
}

// deriveWallets 解锁成功后的副作用：为所有链 × Seed Group 派生钱包。
// 失败只记日志，不影响解锁结果。
func (s *SessionService) deriveWallets(ctx context.Context) {
	if s.chains == nil || s.wallets == nil {
		return
	}

	chains, err := s.chains.List(ctx)
	if err != nil {
		logger.Error("读取链配置失败，跳过钱包派生", zap.Error(err))
		return
	}

	deriver, multiGroup := s.driver.(device.Deriver)

	for _, chain := range chains {
		networkID := chainreg.ToNetworkChainID(chain.ID)

		groups := s.seedGroups
		if !multiGroup {
			groups = 1
		}

		for g := 0; g < groups; g++ {
			var addr string
			var err error
			if multiGroup {
				addr, err = deriver.DeriveAddress(networkID, uint32(g), 0)
			} else {
				addr, err = s.driver.GetAddress(networkID)
			}
			if err != nil {
				logger.Warn("派生地址失败",
					zap.Uint("chain_id", chain.ID),
					zap.Int("group", g),
					zap.Error(err))
				continue
			}

			w := model.Wallet{
				DeviceID:     s.deviceID,
				ChainID:      chain.ID,
				Address:      addr,
				AccountIndex: 0,
			}
			if g > 0 {
				group := uint32(g)
				w.WalletGroupID = &group
			}

			if err := s.wallets.Upsert(ctx, &w); err != nil {
				logger.Warn("保存派生钱包失败",
					zap.Uint("chain_id", chain.ID),
					zap.Int("group", g),
					zap.Error(err))
				continue
			}
			if monitor.Business != nil {
				monitor.Business.WalletsDerivedTotal.Inc()
			}
		}
	}
}

func (s *SessionService) lockDriver() {
	if l, ok := s.driver.(interface{ Lock() }); ok {
		l.Lock()
	}
}
