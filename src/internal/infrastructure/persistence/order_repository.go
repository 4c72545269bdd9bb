package persistence

import (
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository 訂單倉儲（積分欄位）
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 創建訂單倉儲
func NewOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

var _ loyalty.OrderRepository = (*GORMOrderRepository)(nil)

// Create 保存新訂單
func (r *GORMOrderRepository) Create(tx shared.TransactionContext, order *loyalty.Order) error {
	if err := dbFrom(tx, r.db).Create(orderFromDomain(order)).Error; err != nil {
		return r.mapError(err)
	}
	return nil
}

// FindByID 根據 ID 查找
func (r *GORMOrderRepository) FindByID(tx shared.TransactionContext, id loyalty.OrderID) (*loyalty.Order, error) {
	return r.findOne(dbFrom(tx, r.db), id)
}

// FindByIDForUpdate 查詢並鎖定訂單列
func (r *GORMOrderRepository) FindByIDForUpdate(tx shared.TransactionContext, id loyalty.OrderID) (*loyalty.Order, error) {
	return r.findOne(dbFrom(tx, r.db).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
}

// UpdateStatus 更新訂單狀態
func (r *GORMOrderRepository) UpdateStatus(tx shared.TransactionContext, id loyalty.OrderID, status loyalty.OrderStatus) error {
	result := dbFrom(tx, r.db).Model(&OrderModel{}).
		Where("id = ?", id.String()).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return r.mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return loyalty.ErrOrderNotFound.WithContext("order_id", id.String())
	}
	return nil
}

// MarkPointsEarned 條件寫入冪等標記
func (r *GORMOrderRepository) MarkPointsEarned(tx shared.TransactionContext, order *loyalty.Order) (bool, error) {
	result := dbFrom(tx, r.db).Model(&OrderModel{}).
		Where("id = ? AND loyalty_points_earned = 0", order.ID().String()).
		Updates(map[string]interface{}{
			"loyalty_points_earned": order.LoyaltyPointsEarned(),
			"updated_at":            order.UpdatedAt(),
		})
	if result.Error != nil {
		return false, r.mapError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RecordRedemption 條件寫入折抵
func (r *GORMOrderRepository) RecordRedemption(tx shared.TransactionContext, order *loyalty.Order) (bool, error) {
	result := dbFrom(tx, r.db).Model(&OrderModel{}).
		Where("id = ? AND loyalty_points_redeemed = 0", order.ID().String()).
		Updates(map[string]interface{}{
			"loyalty_points_redeemed": order.LoyaltyPointsRedeemed(),
			"loyalty_discount":        order.LoyaltyDiscount(),
			"updated_at":              order.UpdatedAt(),
		})
	if result.Error != nil {
		return false, r.mapError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GORMOrderRepository) findOne(db *gorm.DB, id loyalty.OrderID) (*loyalty.Order, error) {
	var model OrderModel
	if err := db.Where("id = ?", id.String()).First(&model).Error; err != nil {
		return nil, r.mapError(err)
	}
	return model.toDomain()
}

func (r *GORMOrderRepository) mapError(err error) error {
	return mapError(err, loyalty.ErrOrderNotFound, loyalty.ErrOrderAlreadyExists)
}
