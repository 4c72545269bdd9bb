package persistence

import (
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"gorm.io/gorm"
)

// GORMReferralRepository 推薦倉儲
type GORMReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 創建推薦倉儲
func NewReferralRepository(db *gorm.DB) *GORMReferralRepository {
	return &GORMReferralRepository{db: db}
}

var _ loyalty.ReferralRepository = (*GORMReferralRepository)(nil)

// Create 建立推薦記錄
func (r *GORMReferralRepository) Create(tx shared.TransactionContext, referral *loyalty.Referral) error {
	if err := dbFrom(tx, r.db).Create(referralFromDomain(referral)).Error; err != nil {
		return mapError(err, nil, loyalty.ErrReferralAlreadyExists)
	}
	return nil
}

// FindByReferredID 被推薦人的推薦記錄
func (r *GORMReferralRepository) FindByReferredID(tx shared.TransactionContext, referredID loyalty.CustomerID) (*loyalty.Referral, error) {
	return r.findOne(dbFrom(tx, r.db).Where("referred_id = ?", referredID.String()))
}

// FindPendingByReferredID 被推薦人的 PENDING 推薦
func (r *GORMReferralRepository) FindPendingByReferredID(tx shared.TransactionContext, referredID loyalty.CustomerID) (*loyalty.Referral, error) {
	return r.findOne(dbFrom(tx, r.db).Where(
		"referred_id = ? AND status = ?",
		referredID.String(),
		string(loyalty.ReferralStatusPending),
	))
}

// CompleteIfPending PENDING → COMPLETED 的條件更新
//
// 檢查與轉換在同一條 UPDATE 完成；並行事務中只有一個能得到 RowsAffected = 1。
func (r *GORMReferralRepository) CompleteIfPending(tx shared.TransactionContext, referral *loyalty.Referral) (bool, error) {
	model := referralFromDomain(referral)

	result := dbFrom(tx, r.db).Model(&ReferralModel{}).
		Where("id = ? AND status = ?", model.ID, string(loyalty.ReferralStatusPending)).
		Updates(map[string]interface{}{
			"status":                  model.Status,
			"first_order_id":          model.FirstOrderID,
			"referrer_points_awarded": model.ReferrerPointsAwarded,
			"referred_points_awarded": model.ReferredPointsAwarded,
			"completed_at":            model.CompletedAt,
			"updated_at":              model.UpdatedAt,
		})
	if result.Error != nil {
		return false, mapError(result.Error, loyalty.ErrReferralNotFound, nil)
	}
	return result.RowsAffected == 1, nil
}

func (r *GORMReferralRepository) findOne(query *gorm.DB) (*loyalty.Referral, error) {
	var model ReferralModel
	if err := query.First(&model).Error; err != nil {
		return nil, mapError(err, loyalty.ErrReferralNotFound, nil)
	}
	return model.toDomain()
}
