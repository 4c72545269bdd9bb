package loyalty

import (
	"strings"
	"time"
)

// ===========================
// EntryType 帳本分錄類型
// ===========================

// EntryType 分錄類型；類型決定分錄正負號
type EntryType string

const (
	EntryTypeOrderEarned       EntryType = "ORDER_EARNED"
	EntryTypeRedemption        EntryType = "REDEMPTION"
	EntryTypeReferralEarned    EntryType = "REFERRAL_EARNED"
	EntryTypeBirthdayBonus     EntryType = "BIRTHDAY_BONUS"
	EntryTypeExpiredAdjustment EntryType = "EXPIRED_ADJUSTMENT"
	EntryTypeTransferIn        EntryType = "TRANSFER_IN"
	EntryTypeTransferOut       EntryType = "TRANSFER_OUT"
)

// IsValid 是否為已知類型
func (t EntryType) IsValid() bool {
	return t.IsCredit() || t.IsDebit()
}

// IsCredit 入帳類型（分錄為正數）
func (t EntryType) IsCredit() bool {
	switch t {
	case EntryTypeOrderEarned, EntryTypeReferralEarned, EntryTypeBirthdayBonus, EntryTypeTransferIn:
		return true
	}
	return false
}

// IsDebit 扣帳類型（分錄為負數）
func (t EntryType) IsDebit() bool {
	switch t {
	case EntryTypeRedemption, EntryTypeExpiredAdjustment, EntryTypeTransferOut:
		return true
	}
	return false
}

// EntryStatus 分錄狀態
type EntryStatus string

const (
	EntryStatusActive   EntryStatus = "ACTIVE"
	EntryStatusRedeemed EntryStatus = "REDEEMED"
	EntryStatusExpired  EntryStatus = "EXPIRED"
)

// IsValid 是否為已知狀態
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusActive, EntryStatusRedeemed, EntryStatusExpired:
		return true
	}
	return false
}

// ===========================
// EntryMeta 分錄關聯資訊
// ===========================

// EntryMeta 寫入分錄時的描述資訊
//
// OrderID / ReferralID / TransferID 只用於關聯查詢，不構成外鍵所有權；
// 空 ID 表示無關聯。
type EntryMeta struct {
	Type        EntryType
	OrderID     OrderID
	ReferralID  ReferralID
	TransferID  TransferID
	ExpiresAt   *time.Time
	Description string
}

// ===========================
// LedgerEntry 實體（建立後不可變）
// ===========================

// LedgerEntry 帳本分錄
//
// 只允許追加：points 建立後永不變更，狀態只能 ACTIVE → REDEEMED / EXPIRED
// （由過期批次處理，不在本服務內）。
type LedgerEntry struct {
	entryID     LedgerEntryID
	customerID  CustomerID
	points      int
	entryType   EntryType
	status      EntryStatus
	orderID     OrderID
	referralID  ReferralID
	transferID  TransferID
	expiresAt   *time.Time
	description string
	createdAt   time.Time
}

// NewLedgerEntry 建立新分錄（狀態 ACTIVE）
//
// amount 為絕對值，正負號由 meta.Type 決定。
// 錯誤：空顧客 ID、零積分、未知類型 → ErrValidation
func NewLedgerEntry(customerID CustomerID, amount PointsAmount, meta EntryMeta) (*LedgerEntry, error) {
	if customerID.IsEmpty() {
		return nil, ErrValidation.WithContext("field", "customerID", "reason", "cannot be empty")
	}
	if amount.IsZero() {
		return nil, ErrValidation.WithContext("field", "points", "reason", "ledger entry cannot be zero")
	}
	if !meta.Type.IsValid() {
		return nil, ErrValidation.WithContext("field", "type", "value", string(meta.Type))
	}

	signed := amount.Value()
	if meta.Type.IsDebit() {
		signed = -signed
	}

	return &LedgerEntry{
		entryID:     NewLedgerEntryID(),
		customerID:  customerID,
		points:      signed,
		entryType:   meta.Type,
		status:      EntryStatusActive,
		orderID:     meta.OrderID,
		referralID:  meta.ReferralID,
		transferID:  meta.TransferID,
		expiresAt:   meta.ExpiresAt,
		description: strings.TrimSpace(meta.Description),
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructLedgerEntry 從持久化存儲重建分錄（僅供 Infrastructure Layer 使用）
//
// 資料違反正負號或狀態規則時返回 ErrCorruptedData。
func ReconstructLedgerEntry(
	entryID LedgerEntryID,
	customerID CustomerID,
	points int,
	entryType EntryType,
	status EntryStatus,
	orderID OrderID,
	referralID ReferralID,
	transferID TransferID,
	expiresAt *time.Time,
	description string,
	createdAt time.Time,
) (*LedgerEntry, error) {
	if !entryType.IsValid() || !status.IsValid() {
		return nil, ErrCorruptedData.WithContext(
			"entryID", entryID.String(),
			"type", string(entryType),
			"status", string(status),
		)
	}
	if points == 0 || (entryType.IsCredit() && points < 0) || (entryType.IsDebit() && points > 0) {
		return nil, ErrCorruptedData.WithContext(
			"entryID", entryID.String(),
			"type", string(entryType),
			"points", points,
		)
	}

	return &LedgerEntry{
		entryID:     entryID,
		customerID:  customerID,
		points:      points,
		entryType:   entryType,
		status:      status,
		orderID:     orderID,
		referralID:  referralID,
		transferID:  transferID,
		expiresAt:   expiresAt,
		description: description,
		createdAt:   createdAt,
	}, nil
}

// ID 分錄 ID
func (e *LedgerEntry) ID() LedgerEntryID { return e.entryID }

// CustomerID 顧客 ID
func (e *LedgerEntry) CustomerID() CustomerID { return e.customerID }

// Points 帶正負號的積分
func (e *LedgerEntry) Points() int { return e.points }

// Type 分錄類型
func (e *LedgerEntry) Type() EntryType { return e.entryType }

// Status 分錄狀態
func (e *LedgerEntry) Status() EntryStatus { return e.status }

// OrderID 關聯訂單（可能為空）
func (e *LedgerEntry) OrderID() OrderID { return e.orderID }

// ReferralID 關聯推薦（可能為空）
func (e *LedgerEntry) ReferralID() ReferralID { return e.referralID }

// TransferID 關聯轉帳（可能為空）
func (e *LedgerEntry) TransferID() TransferID { return e.transferID }

// ExpiresAt 到期時間（nil 表示不過期）
func (e *LedgerEntry) ExpiresAt() *time.Time { return e.expiresAt }

// Description 描述
func (e *LedgerEntry) Description() string { return e.description }

// CreatedAt 建立時間
func (e *LedgerEntry) CreatedAt() time.Time { return e.createdAt }

// IsActive 是否計入餘額
func (e *LedgerEntry) IsActive() bool { return e.status == EntryStatusActive }
