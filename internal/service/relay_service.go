package service

import (
	"context"
	"time"

	"custody-core/internal/model"
	"custody-core/internal/service/mq"
	"custody-core/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelayService 负责将本地消息表 (Outbox) 的消息搬运到 MQ
type RelayService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
}

func NewRelayService(db *gorm.DB, producer mq.Producer) *RelayService {
	return &RelayService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond,
	}
}

func (s *RelayService) Start(ctx context.Context) {
	logger.Info("启动消息中继服务")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("消息中继服务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *RelayService) processPendingMessages(ctx context.Context) {
	// 每次取 50 条，避免内存爆炸
	var messages []model.OutboxMessage
	if err := s.db.WithContext(ctx).
		Where("status = ?", "PENDING").
		Limit(50).
		Find(&messages).Error; err != nil {
		logger.Error("查询 Outbox 消息失败", zap.Error(err))
		return
	}

	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, "", msg.Payload); err != nil {
			logger.Warn("投递消息失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}

		// 只有发送成功才更新状态 => At-least-once，Consumer 需做好幂等
		if err := s.db.WithContext(ctx).
			Model(&msg).
			Update("status", "SENT").Error; err != nil {
			logger.Warn("更新 Outbox 状态失败", zap.Uint64("id", msg.ID), zap.Error(err))
		}
	}
}
