package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
)

// mapError 映射 GORM / 驅動錯誤到 Domain 錯誤
//
// 映射規則：
// - gorm.ErrRecordNotFound            → notFound
// - 唯一約束違反                       → exists
// - 序列化失敗 / 死結 / SQLite busy    → loyalty.ErrConcurrentModification（可重試）
// - CHECK 約束違反（餘額為負）         → loyalty.ErrInsufficientBalance
// - 其他                               → loyalty.ErrRepositoryError
func mapError(err error, notFound, exists *loyalty.DomainError) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}

	if isRetryableDBError(err) {
		return loyalty.ErrConcurrentModification.WithContext("database_error", err.Error())
	}

	if isUniqueConstraintError(err) && exists != nil {
		return exists.WithContext("database_error", err.Error())
	}

	if isCheckConstraintError(err) {
		return loyalty.ErrInsufficientBalance.WithContext("database_error", err.Error())
	}

	return loyalty.ErrRepositoryError.WithContext("database_error", err.Error())
}

// isRetryableDBError 交易衝突類錯誤
func isRetryableDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// isUniqueConstraintError 唯一約束違反
//
// PostgreSQL 以 SQLSTATE 判斷；SQLite 只能比對錯誤訊息。
func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func isCheckConstraintError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCheckViolation
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// IsRetryable 是否值得以新事務重試
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, loyalty.ErrConcurrentModification) || isRetryableDBError(err)
}
