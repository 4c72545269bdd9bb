package persistence

import (
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"gorm.io/gorm"
)

// GORMLedgerRepository 帳本倉儲（只追加）
type GORMLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 創建帳本倉儲
func NewLedgerRepository(db *gorm.DB) *GORMLedgerRepository {
	return &GORMLedgerRepository{db: db}
}

var _ loyalty.LedgerRepository = (*GORMLedgerRepository)(nil)

// Append 追加分錄
func (r *GORMLedgerRepository) Append(tx shared.TransactionContext, entry *loyalty.LedgerEntry) error {
	if err := dbFrom(tx, r.db).Create(ledgerEntryFromDomain(entry)).Error; err != nil {
		return mapError(err, nil, nil)
	}
	return nil
}

// SumActive ACTIVE 分錄總和
func (r *GORMLedgerRepository) SumActive(tx shared.TransactionContext, customerID loyalty.CustomerID) (int, error) {
	var sum int64
	err := dbFrom(tx, r.db).Model(&LedgerEntryModel{}).
		Select("COALESCE(SUM(points), 0)").
		Where("customer_id = ? AND status = ?", customerID.String(), string(loyalty.EntryStatusActive)).
		Scan(&sum).Error
	if err != nil {
		return 0, mapError(err, nil, nil)
	}
	return int(sum), nil
}

// FindByCustomer 分錄歷史（新到舊）
func (r *GORMLedgerRepository) FindByCustomer(tx shared.TransactionContext, customerID loyalty.CustomerID, limit int) ([]*loyalty.LedgerEntry, error) {
	query := dbFrom(tx, r.db).
		Where("customer_id = ?", customerID.String()).
		Order("created_at DESC").
		Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.find(query)
}

// FindByOrder 訂單相關分錄（舊到新）
func (r *GORMLedgerRepository) FindByOrder(tx shared.TransactionContext, orderID loyalty.OrderID) ([]*loyalty.LedgerEntry, error) {
	query := dbFrom(tx, r.db).
		Where("order_id = ?", orderID.String()).
		Order("created_at ASC")
	return r.find(query)
}

func (r *GORMLedgerRepository) find(query *gorm.DB) ([]*loyalty.LedgerEntry, error) {
	var models []LedgerEntryModel
	if err := query.Find(&models).Error; err != nil {
		return nil, mapError(err, nil, nil)
	}

	entries := make([]*loyalty.LedgerEntry, 0, len(models))
	for i := range models {
		entry, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
