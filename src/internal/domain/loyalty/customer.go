package loyalty

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

const maxDisplayNameLength = 100

// ===========================
// Customer 聚合根
// ===========================

// Customer 顧客聚合根（會員積分視角）
//
// 不變條件：
// - pointsBalance >= 0，且等於該顧客所有 ACTIVE 分錄的總和（由 BalanceManager 在同一事務內維護）
// - lifetimePoints 只增不減
// - tier == TierPolicy.TierFor(lifetimePoints)，因此扣帳不會降級
// - referredBy 最多設定一次，之後不可變更
//
// version / persistedVersion 用於樂觀鎖：
// 一次事務內的多次修改只遞增一次版本號，Repository 以 persistedVersion 作為 WHERE 條件。
type Customer struct {
	customerID  CustomerID
	displayName string
	phoneNumber PhoneNumber

	pointsBalance  PointsAmount
	lifetimePoints PointsAmount
	tier           Tier
	referredBy     CustomerID

	version          int
	persistedVersion int
	createdAt        time.Time
	updatedAt        time.Time

	events []shared.DomainEvent
}

// NewCustomer 創建新顧客（Checked Constructor）
//
// 初始狀態：餘額 0、BRONZE、無推薦人。phone 可為零值（未綁定）。
func NewCustomer(displayName string, phone PhoneNumber) (*Customer, error) {
	name := strings.TrimSpace(displayName)
	if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLength {
		return nil, ErrInvalidDisplayName.WithContext("displayName", displayName)
	}

	now := time.Now().UTC()
	c := &Customer{
		customerID:     NewCustomerID(),
		displayName:    name,
		phoneNumber:    phone,
		pointsBalance:  newPointsAmountUnchecked(0),
		lifetimePoints: newPointsAmountUnchecked(0),
		tier:           TierBronze,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}
	c.addEvent(NewCustomerRegisteredEvent(c.customerID, CustomerID{}))
	return c, nil
}

// ReconstructCustomer 從持久化存儲重建聚合根（僅供 Infrastructure Layer 使用）
//
// 不發布事件；資料違反不變條件時返回 ErrCorruptedData。
func ReconstructCustomer(
	customerID CustomerID,
	displayName string,
	phone string,
	pointsBalance int,
	lifetimePoints int,
	tier Tier,
	referredBy CustomerID,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) (*Customer, error) {
	if pointsBalance < 0 || lifetimePoints < 0 || !tier.IsValid() || version < 1 {
		return nil, ErrCorruptedData.WithContext(
			"customerID", customerID.String(),
			"pointsBalance", pointsBalance,
			"lifetimePoints", lifetimePoints,
			"tier", string(tier),
			"version", version,
		)
	}

	var phoneNumber PhoneNumber
	if phone != "" {
		p, err := NewPhoneNumber(phone)
		if err != nil {
			return nil, ErrCorruptedData.WithContext("customerID", customerID.String(), "phone", phone)
		}
		phoneNumber = p
	}

	return &Customer{
		customerID:       customerID,
		displayName:      displayName,
		phoneNumber:      phoneNumber,
		pointsBalance:    newPointsAmountUnchecked(pointsBalance),
		lifetimePoints:   newPointsAmountUnchecked(lifetimePoints),
		tier:             tier,
		referredBy:       referredBy,
		version:          version,
		persistedVersion: version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}, nil
}

// ===========================
// 查詢方法
// ===========================

// ID 顧客 ID
func (c *Customer) ID() CustomerID { return c.customerID }

// DisplayName 顯示名稱
func (c *Customer) DisplayName() string { return c.displayName }

// PhoneNumber 手機號碼（零值表示未綁定）
func (c *Customer) PhoneNumber() PhoneNumber { return c.phoneNumber }

// PointsBalance 可用積分（快取值）
func (c *Customer) PointsBalance() PointsAmount { return c.pointsBalance }

// LifetimePoints 累積入帳積分（等級依據）
func (c *Customer) LifetimePoints() PointsAmount { return c.lifetimePoints }

// Tier 目前等級
func (c *Customer) Tier() Tier { return c.tier }

// ReferredBy 推薦人（空 ID 表示無）
func (c *Customer) ReferredBy() CustomerID { return c.referredBy }

// HasReferrer 是否有推薦人
func (c *Customer) HasReferrer() bool { return !c.referredBy.IsEmpty() }

// Version 目前版本號
func (c *Customer) Version() int { return c.version }

// ExpectedVersion 資料庫中的版本號（0 表示尚未持久化）
func (c *Customer) ExpectedVersion() int { return c.persistedVersion }

// IsNew 是否尚未持久化
func (c *Customer) IsNew() bool { return c.persistedVersion == 0 }

// CreatedAt 建立時間
func (c *Customer) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt 最後更新時間
func (c *Customer) UpdatedAt() time.Time { return c.updatedAt }

// ===========================
// 命令方法
// ===========================

// SetReferredBy 設定推薦人（只能設定一次）
func (c *Customer) SetReferredBy(referrerID CustomerID) error {
	if referrerID.IsEmpty() {
		return ErrInvalidCustomerID.WithContext("reason", "referrer id cannot be empty")
	}
	if referrerID.Equals(c.customerID) {
		return ErrSelfReferral.WithContext("customerID", c.customerID.String())
	}
	if c.HasReferrer() {
		return ErrReferrerAlreadySet.WithContext(
			"customerID", c.customerID.String(),
			"referredBy", c.referredBy.String(),
		)
	}

	c.referredBy = referrerID
	c.touch()

	// 尚未發布的註冊事件帶上推薦人
	for _, event := range c.events {
		if registered, ok := event.(*CustomerRegisteredEvent); ok {
			registered.ReferredBy = referrerID
		}
	}
	return nil
}

// Credit 入帳：增加可用餘額與累積積分，並重新計算等級
//
// TRANSFER_IN 只增加可用餘額，不計入累積積分。
func (c *Customer) Credit(amount PointsAmount, entryType EntryType, tiers *TierPolicy) error {
	if amount.IsZero() {
		return ErrValidation.WithContext("field", "amount", "reason", "credit amount must be positive")
	}
	if !entryType.IsCredit() {
		return ErrValidation.WithContext("field", "type", "reason", "not a credit type", "value", string(entryType))
	}

	c.pointsBalance = c.pointsBalance.Add(amount)
	if entryType != EntryTypeTransferIn {
		c.lifetimePoints = c.lifetimePoints.Add(amount)
	}

	oldTier := c.tier
	if newTier := tiers.TierFor(c.lifetimePoints.Value()); newTier != oldTier {
		c.tier = newTier
		c.addEvent(NewTierChangedEvent(c.customerID, oldTier, newTier))
	}

	c.touch()
	c.addEvent(NewPointsCreditedEvent(c.customerID, amount.Value(), entryType, c.pointsBalance.Value()))
	return nil
}

// Debit 扣帳：只減少可用餘額
//
// 等級依累積積分計算，扣帳刻意不重新計算等級。
func (c *Customer) Debit(amount PointsAmount, entryType EntryType) error {
	if amount.IsZero() {
		return ErrValidation.WithContext("field", "amount", "reason", "debit amount must be positive")
	}
	if !entryType.IsDebit() {
		return ErrValidation.WithContext("field", "type", "reason", "not a debit type", "value", string(entryType))
	}

	remaining, err := c.pointsBalance.Subtract(amount)
	if err != nil {
		return ErrInsufficientBalance.WithContext(
			"customerID", c.customerID.String(),
			"available", c.pointsBalance.Value(),
			"requested", amount.Value(),
		)
	}

	c.pointsBalance = remaining
	c.touch()
	c.addEvent(NewPointsDebitedEvent(c.customerID, amount.Value(), entryType, c.pointsBalance.Value()))
	return nil
}

// MarkPersisted Repository 寫入成功後調用
func (c *Customer) MarkPersisted() {
	c.persistedVersion = c.version
}

func (c *Customer) touch() {
	c.updatedAt = time.Now().UTC()
	if c.version == c.persistedVersion {
		c.version++
	}
}

// ===========================
// 事件管理
// ===========================

func (c *Customer) addEvent(event shared.DomainEvent) {
	c.events = append(c.events, event)
}

// PullEvents 取出待發布事件並清空（事務提交後由 Application Layer 調用）
func (c *Customer) PullEvents() []shared.DomainEvent {
	events := c.events
	c.events = nil
	return events
}
