package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ===========================
// GORM TransactionManager 實作
// ===========================

// GORMTransactionManager 以 gorm.DB.Transaction 實作 shared.TransactionManager
//
// - fn 返回錯誤或 panic 時回滾（panic 會重新拋出）
// - 交易衝突（樂觀鎖失敗、SQLSTATE 40001/40P01、SQLite busy）以指數退避重試
// - 重試用盡返回 loyalty.ErrTransientFailure；其他錯誤原樣返回，不重試
type GORMTransactionManager struct {
	db              *gorm.DB
	maxAttempts     uint
	initialInterval time.Duration
	maxInterval     time.Duration
	txOptions       *sql.TxOptions
	logger          *zap.Logger
}

// TransactionOption 設定選項
type TransactionOption func(*GORMTransactionManager)

// WithMaxAttempts 最多執行次數（含第一次）
func WithMaxAttempts(n uint) TransactionOption {
	return func(m *GORMTransactionManager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithBackoff 退避區間
func WithBackoff(initial, ceiling time.Duration) TransactionOption {
	return func(m *GORMTransactionManager) {
		m.initialInterval = initial
		m.maxInterval = ceiling
	}
}

// WithSerializable 使用 SERIALIZABLE 隔離等級（僅 PostgreSQL）
func WithSerializable() TransactionOption {
	return func(m *GORMTransactionManager) {
		m.txOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
}

// WithLogger 重試時記錄日誌
func WithLogger(logger *zap.Logger) TransactionOption {
	return func(m *GORMTransactionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewGORMTransactionManager 創建事務管理器
func NewGORMTransactionManager(db *gorm.DB, opts ...TransactionOption) *GORMTransactionManager {
	m := &GORMTransactionManager{
		db:              db,
		maxAttempts:     5,
		initialInterval: 10 * time.Millisecond,
		maxInterval:     200 * time.Millisecond,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InTransaction 在事務中執行 fn
//
// fn 可能被執行多次，不得在 fn 內產生事務外的副作用。
func (m *GORMTransactionManager) InTransaction(ctx context.Context, fn func(tx shared.TransactionContext) error) error {
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := m.runOnce(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if IsRetryable(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.initialInterval
	policy.MaxInterval = m.maxInterval

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(m.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.logger.Warn("transaction conflict, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil && IsRetryable(err) {
		return loyalty.ErrTransientFailure.WithContext(
			"attempts", attempt,
			"cause", err.Error(),
		)
	}
	return err
}

func (m *GORMTransactionManager) runOnce(ctx context.Context, fn func(tx shared.TransactionContext) error) error {
	txFunc := func(tx *gorm.DB) error {
		return fn(NewGORMTransactionContext(tx))
	}
	if m.txOptions != nil {
		return m.db.WithContext(ctx).Transaction(txFunc, m.txOptions)
	}
	return m.db.WithContext(ctx).Transaction(txFunc)
}
