package persistence

import (
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"gorm.io/gorm"
)

// ===========================
// GORM TransactionContext 實作
// ===========================

// gormTransactionContext 包裝事務中的 *gorm.DB
//
// 只在 Infrastructure Layer 內部透過 GetDB() 取出，Domain Layer 看到的是標記介面。
type gormTransactionContext struct {
	db *gorm.DB
}

// NewGORMTransactionContext 創建 GORM 事務上下文
func NewGORMTransactionContext(db *gorm.DB) shared.TransactionContext {
	return &gormTransactionContext{db: db}
}

// GetDB 獲取事務中的 GORM DB（僅供 Infrastructure Layer 使用）
func (ctx *gormTransactionContext) GetDB() *gorm.DB {
	return ctx.db
}

// dbFrom 從 TransactionContext 取得 DB；nil 或非 GORM 上下文時退回預設連線
func dbFrom(tx shared.TransactionContext, fallback *gorm.DB) *gorm.DB {
	if gormCtx, ok := tx.(*gormTransactionContext); ok && gormCtx != nil {
		return gormCtx.GetDB()
	}
	return fallback
}
