package persistence

import (
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===========================
// GORM CustomerRepository 實作
// ===========================

// GORMCustomerRepository 顧客倉儲
//
// 職責：Domain ↔ GORM 轉換、錯誤映射、樂觀鎖版本檢查；不含業務邏輯。
type GORMCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 創建顧客倉儲
func NewCustomerRepository(db *gorm.DB) *GORMCustomerRepository {
	return &GORMCustomerRepository{db: db}
}

var _ loyalty.CustomerRepository = (*GORMCustomerRepository)(nil)

// Create 保存新顧客；手機號碼重複 → ErrCustomerAlreadyExists
func (r *GORMCustomerRepository) Create(tx shared.TransactionContext, customer *loyalty.Customer) error {
	model := customerFromDomain(customer)
	if err := dbFrom(tx, r.db).Create(model).Error; err != nil {
		return r.mapError(err)
	}
	customer.MarkPersisted()
	return nil
}

// FindByID 根據 ID 查找
func (r *GORMCustomerRepository) FindByID(tx shared.TransactionContext, id loyalty.CustomerID) (*loyalty.Customer, error) {
	return r.findOne(dbFrom(tx, r.db), "id = ?", id.String())
}

// FindByIDForUpdate 查詢並鎖定顧客列
//
// PostgreSQL 產生 SELECT ... FOR UPDATE；SQLite 方言忽略鎖定子句（寫入本身已串行化）。
func (r *GORMCustomerRepository) FindByIDForUpdate(tx shared.TransactionContext, id loyalty.CustomerID) (*loyalty.Customer, error) {
	db := dbFrom(tx, r.db).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	return r.findOne(db, "id = ?", id.String())
}

// FindByPhoneNumber 以手機號碼查詢
func (r *GORMCustomerRepository) FindByPhoneNumber(tx shared.TransactionContext, phone loyalty.PhoneNumber) (*loyalty.Customer, error) {
	return r.findOne(dbFrom(tx, r.db), "phone_number = ?", phone.String())
}

// Update 以樂觀鎖更新
//
// WHERE id = ? AND version = ExpectedVersion；0 筆受影響時區分「不存在」與「版本衝突」。
func (r *GORMCustomerRepository) Update(tx shared.TransactionContext, customer *loyalty.Customer) error {
	db := dbFrom(tx, r.db)
	model := customerFromDomain(customer)

	result := db.Model(&CustomerModel{}).
		Where("id = ? AND version = ?", model.ID, customer.ExpectedVersion()).
		Updates(map[string]interface{}{
			"display_name":    model.DisplayName,
			"phone_number":    model.PhoneNumber,
			"points_balance":  model.PointsBalance,
			"lifetime_points": model.LifetimePoints,
			"tier":            model.Tier,
			"referred_by":     model.ReferredBy,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return r.mapError(result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&CustomerModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return r.mapError(err)
		}
		if count == 0 {
			return loyalty.ErrCustomerNotFound.WithContext("customer_id", model.ID)
		}
		return loyalty.ErrConcurrentModification.WithContext(
			"customer_id", model.ID,
			"expected_version", customer.ExpectedVersion(),
		)
	}

	customer.MarkPersisted()
	return nil
}

func (r *GORMCustomerRepository) findOne(db *gorm.DB, query string, args ...interface{}) (*loyalty.Customer, error) {
	var model CustomerModel
	if err := db.Where(query, args...).First(&model).Error; err != nil {
		return nil, r.mapError(err)
	}
	return model.toDomain()
}

func (r *GORMCustomerRepository) mapError(err error) error {
	return mapError(err, loyalty.ErrCustomerNotFound, loyalty.ErrCustomerAlreadyExists)
}
