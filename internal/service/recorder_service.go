package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"custody-core/internal/model"
	"custody-core/pkg/monitor"
	"custody-core/pkg/safe_random"

	"gorm.io/gorm"
)

// TopicTransactionRecorded 是记录落盘后发往 MQ 的主题。
const TopicTransactionRecorded = "custody_tx_recorded"

var ErrEmptyTxID = errors.New("transaction record requires a fresh id")

// RecorderService 拥有交易日志。只追加：没有 update，没有 delete，
// 历史展示以这张表为唯一事实。
type RecorderService struct {
	db *gorm.DB
}

func NewRecorderService(db *gorm.DB) *RecorderService {
	return &RecorderService{db: db}
}

// Append 在一个数据库事务里写入记录和 Outbox 消息，
// RelayService 随后把消息搬运到 MQ (At-least-once)。
func (s *RecorderService) Append(ctx context.Context, tx *model.Transaction) error {
	if tx.ID == "" {
		return ErrEmptyTxID
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}

	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(tx).Error; err != nil {
			return err
		}

		payload, err := json.Marshal(tx)
		if err != nil {
			return err
		}
		return dbtx.Create(&model.OutboxMessage{
			Topic:   TopicTransactionRecorded,
			Payload: payload,
			Status:  "PENDING",
		}).Error
	})
	if err != nil {
		return err
	}

	if monitor.Business != nil {
		monitor.Business.TransactionsRecorded.WithLabelValues(tx.Status).Inc()
	}
	return nil
}

// List 按时间倒序返回最近的记录。
func (s *RecorderService) List(ctx context.Context, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}
	var txs []model.Transaction
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// NewTxID 生成全局唯一的交易记录 ID。
// 纳秒时间戳 + 随机后缀，同一个 tick 里创建的两条记录也不会撞。
func NewTxID() string {
	suffix, err := safe_random.GenerateRandomHexString(4)
	if err != nil {
		// crypto/rand 失败极罕见，退回纯时间戳也能工作
		suffix = "00000000"
	}
	return fmt.Sprintf("tx_%d_%s", time.Now().UnixNano(), suffix)
}
