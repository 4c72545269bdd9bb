package persistence

import (
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
)

// ===========================
// GORM Models
// ===========================
//
// 僅用於 Infrastructure Layer；與 Domain 聚合之間以 toDomain / xxxFromDomain 轉換。

// CustomerModel 顧客資料表
//
// points_balance 由 CHECK 約束保證 >= 0，作為 Domain 檢查之外的最後防線。
type CustomerModel struct {
	ID             string    `gorm:"column:id;type:varchar(36);primaryKey"`
	DisplayName    string    `gorm:"column:display_name;type:varchar(100);not null"`
	PhoneNumber    *string   `gorm:"column:phone_number;type:varchar(10);uniqueIndex"`
	PointsBalance  int       `gorm:"column:points_balance;not null;default:0;check:chk_customers_points_balance,points_balance >= 0"`
	LifetimePoints int       `gorm:"column:lifetime_points;not null;default:0;check:chk_customers_lifetime_points,lifetime_points >= 0"`
	Tier           string    `gorm:"column:tier;type:varchar(16);not null"`
	ReferredBy     *string   `gorm:"column:referred_by;type:varchar(36);index"`
	Version        int       `gorm:"column:version;not null;default:1"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定資料表名稱
func (CustomerModel) TableName() string {
	return "customers"
}

// LedgerEntryModel 帳本分錄資料表（只追加，沒有軟刪除欄位）
type LedgerEntryModel struct {
	ID          string     `gorm:"column:id;type:varchar(36);primaryKey"`
	CustomerID  string     `gorm:"column:customer_id;type:varchar(36);not null;index:idx_ledger_customer_status,priority:1"`
	Points      int        `gorm:"column:points;not null;check:chk_ledger_entries_points,points <> 0"`
	Type        string     `gorm:"column:type;type:varchar(32);not null"`
	Status      string     `gorm:"column:status;type:varchar(16);not null;index:idx_ledger_customer_status,priority:2"`
	OrderID     *string    `gorm:"column:order_id;type:varchar(36);index"`
	ReferralID  *string    `gorm:"column:referral_id;type:varchar(36)"`
	TransferID  *string    `gorm:"column:transfer_id;type:varchar(36);index"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
	Description string     `gorm:"column:description;type:varchar(255)"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;index"`
}

// TableName 指定資料表名稱
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ReferralModel 推薦資料表（referred_id 唯一）
type ReferralModel struct {
	ID                    string     `gorm:"column:id;type:varchar(36);primaryKey"`
	ReferrerID            string     `gorm:"column:referrer_id;type:varchar(36);not null;index"`
	ReferredID            string     `gorm:"column:referred_id;type:varchar(36);not null;uniqueIndex"`
	Status                string     `gorm:"column:status;type:varchar(16);not null"`
	FirstOrderID          *string    `gorm:"column:first_order_id;type:varchar(36)"`
	ReferrerPointsAwarded int        `gorm:"column:referrer_points_awarded;not null;default:0"`
	ReferredPointsAwarded int        `gorm:"column:referred_points_awarded;not null;default:0"`
	CompletedAt           *time.Time `gorm:"column:completed_at"`
	CreatedAt             time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;not null"`
}

// TableName 指定資料表名稱
func (ReferralModel) TableName() string {
	return "referrals"
}

// OrderModel 訂單資料表（本服務只寫積分欄位）
type OrderModel struct {
	ID                    string          `gorm:"column:id;type:varchar(36);primaryKey"`
	CustomerID            *string         `gorm:"column:customer_id;type:varchar(36);index"`
	Total                 decimal.Decimal `gorm:"column:total;type:decimal(12,2);not null"`
	Status                string          `gorm:"column:status;type:varchar(16);not null"`
	LoyaltyPointsEarned   int             `gorm:"column:loyalty_points_earned;not null;default:0"`
	LoyaltyPointsRedeemed int             `gorm:"column:loyalty_points_redeemed;not null;default:0"`
	LoyaltyDiscount       decimal.Decimal `gorm:"column:loyalty_discount;type:decimal(12,2);not null;default:0"`
	CreatedAt             time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;not null"`
}

// TableName 指定資料表名稱
func (OrderModel) TableName() string {
	return "orders"
}

// AllModels 遷移用
func AllModels() []interface{} {
	return []interface{}{
		&CustomerModel{},
		&LedgerEntryModel{},
		&ReferralModel{},
		&OrderModel{},
	}
}

// ===========================
// Mapper Functions
// ===========================

// entityID 任一 shared.EntityID[T]
type entityID interface {
	IsEmpty() bool
	String() string
}

func optionalID(id entityID) *string {
	if id.IsEmpty() {
		return nil
	}
	v := id.String()
	return &v
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func customerFromDomain(c *loyalty.Customer) *CustomerModel {
	var phone *string
	if !c.PhoneNumber().IsZero() {
		v := c.PhoneNumber().String()
		phone = &v
	}
	return &CustomerModel{
		ID:             c.ID().String(),
		DisplayName:    c.DisplayName(),
		PhoneNumber:    phone,
		PointsBalance:  c.PointsBalance().Value(),
		LifetimePoints: c.LifetimePoints().Value(),
		Tier:           string(c.Tier()),
		ReferredBy:     optionalID(c.ReferredBy()),
		Version:        c.Version(),
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
	}
}

func (m *CustomerModel) toDomain() (*loyalty.Customer, error) {
	id, err := loyalty.CustomerIDFromString(m.ID)
	if err != nil {
		return nil, loyalty.ErrCorruptedData.WithContext("table", "customers", "id", m.ID)
	}

	var referredBy loyalty.CustomerID
	if m.ReferredBy != nil {
		referredBy, err = loyalty.CustomerIDFromString(*m.ReferredBy)
		if err != nil {
			return nil, loyalty.ErrCorruptedData.WithContext("table", "customers", "referred_by", *m.ReferredBy)
		}
	}

	return loyalty.ReconstructCustomer(
		id,
		m.DisplayName,
		derefString(m.PhoneNumber),
		m.PointsBalance,
		m.LifetimePoints,
		loyalty.Tier(m.Tier),
		referredBy,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func ledgerEntryFromDomain(e *loyalty.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:          e.ID().String(),
		CustomerID:  e.CustomerID().String(),
		Points:      e.Points(),
		Type:        string(e.Type()),
		Status:      string(e.Status()),
		OrderID:     optionalID(e.OrderID()),
		ReferralID:  optionalID(e.ReferralID()),
		TransferID:  optionalID(e.TransferID()),
		ExpiresAt:   e.ExpiresAt(),
		Description: e.Description(),
		CreatedAt:   e.CreatedAt(),
	}
}

func (m *LedgerEntryModel) toDomain() (*loyalty.LedgerEntry, error) {
	corrupted := func(field string) error {
		return loyalty.ErrCorruptedData.WithContext("table", "ledger_entries", "id", m.ID, "field", field)
	}

	id, err := loyalty.LedgerEntryIDFromString(m.ID)
	if err != nil {
		return nil, corrupted("id")
	}
	customerID, err := loyalty.CustomerIDFromString(m.CustomerID)
	if err != nil {
		return nil, corrupted("customer_id")
	}

	var orderID loyalty.OrderID
	if m.OrderID != nil {
		if orderID, err = loyalty.OrderIDFromString(*m.OrderID); err != nil {
			return nil, corrupted("order_id")
		}
	}
	var referralID loyalty.ReferralID
	if m.ReferralID != nil {
		if referralID, err = loyalty.ReferralIDFromString(*m.ReferralID); err != nil {
			return nil, corrupted("referral_id")
		}
	}
	var transferID loyalty.TransferID
	if m.TransferID != nil {
		if transferID, err = loyalty.TransferIDFromString(*m.TransferID); err != nil {
			return nil, corrupted("transfer_id")
		}
	}

	return loyalty.ReconstructLedgerEntry(
		id,
		customerID,
		m.Points,
		loyalty.EntryType(m.Type),
		loyalty.EntryStatus(m.Status),
		orderID,
		referralID,
		transferID,
		m.ExpiresAt,
		m.Description,
		m.CreatedAt,
	)
}

func referralFromDomain(r *loyalty.Referral) *ReferralModel {
	return &ReferralModel{
		ID:                    r.ID().String(),
		ReferrerID:            r.ReferrerID().String(),
		ReferredID:            r.ReferredID().String(),
		Status:                string(r.Status()),
		FirstOrderID:          optionalID(r.FirstOrderID()),
		ReferrerPointsAwarded: r.ReferrerPointsAwarded(),
		ReferredPointsAwarded: r.ReferredPointsAwarded(),
		CompletedAt:           r.CompletedAt(),
		CreatedAt:             r.CreatedAt(),
		UpdatedAt:             r.UpdatedAt(),
	}
}

func (m *ReferralModel) toDomain() (*loyalty.Referral, error) {
	corrupted := func(field string) error {
		return loyalty.ErrCorruptedData.WithContext("table", "referrals", "id", m.ID, "field", field)
	}

	id, err := loyalty.ReferralIDFromString(m.ID)
	if err != nil {
		return nil, corrupted("id")
	}
	referrerID, err := loyalty.CustomerIDFromString(m.ReferrerID)
	if err != nil {
		return nil, corrupted("referrer_id")
	}
	referredID, err := loyalty.CustomerIDFromString(m.ReferredID)
	if err != nil {
		return nil, corrupted("referred_id")
	}
	var firstOrderID loyalty.OrderID
	if m.FirstOrderID != nil {
		if firstOrderID, err = loyalty.OrderIDFromString(*m.FirstOrderID); err != nil {
			return nil, corrupted("first_order_id")
		}
	}

	return loyalty.ReconstructReferral(
		id,
		referrerID,
		referredID,
		loyalty.ReferralStatus(m.Status),
		firstOrderID,
		m.ReferrerPointsAwarded,
		m.ReferredPointsAwarded,
		m.CompletedAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func orderFromDomain(o *loyalty.Order) *OrderModel {
	return &OrderModel{
		ID:                    o.ID().String(),
		CustomerID:            optionalID(o.CustomerID()),
		Total:                 o.Total(),
		Status:                string(o.Status()),
		LoyaltyPointsEarned:   o.LoyaltyPointsEarned(),
		LoyaltyPointsRedeemed: o.LoyaltyPointsRedeemed(),
		LoyaltyDiscount:       o.LoyaltyDiscount(),
		CreatedAt:             o.CreatedAt(),
		UpdatedAt:             o.UpdatedAt(),
	}
}

func (m *OrderModel) toDomain() (*loyalty.Order, error) {
	id, err := loyalty.OrderIDFromString(m.ID)
	if err != nil {
		return nil, loyalty.ErrCorruptedData.WithContext("table", "orders", "id", m.ID)
	}
	var customerID loyalty.CustomerID
	if m.CustomerID != nil {
		if customerID, err = loyalty.CustomerIDFromString(*m.CustomerID); err != nil {
			return nil, loyalty.ErrCorruptedData.WithContext("table", "orders", "customer_id", *m.CustomerID)
		}
	}

	return loyalty.ReconstructOrder(
		id,
		customerID,
		m.Total,
		loyalty.OrderStatus(m.Status),
		m.LoyaltyPointsEarned,
		m.LoyaltyPointsRedeemed,
		m.LoyaltyDiscount,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
