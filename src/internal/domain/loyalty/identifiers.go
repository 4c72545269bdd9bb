package loyalty

import (
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// ===========================
// 實體 ID 類型定義
// ===========================

// CustomerMarker 顧客 ID 標記類型
type CustomerMarker struct{}

// CustomerID 顧客唯一標識符
type CustomerID = shared.EntityID[CustomerMarker]

// NewCustomerID 生成新的顧客 ID
func NewCustomerID() CustomerID {
	return shared.NewEntityID[CustomerMarker]()
}

// CustomerIDFromString 從字串解析顧客 ID（失敗返回 ErrInvalidCustomerID）
func CustomerIDFromString(s string) (CustomerID, error) {
	return shared.EntityIDFromString[CustomerMarker](s, ErrInvalidCustomerID)
}

// OrderMarker 訂單 ID 標記類型
type OrderMarker struct{}

// OrderID 訂單唯一標識符（由 Order Service 產生）
type OrderID = shared.EntityID[OrderMarker]

// NewOrderID 生成新的訂單 ID
func NewOrderID() OrderID {
	return shared.NewEntityID[OrderMarker]()
}

// OrderIDFromString 從字串解析訂單 ID
func OrderIDFromString(s string) (OrderID, error) {
	return shared.EntityIDFromString[OrderMarker](s, ErrInvalidOrderID)
}

// ReferralMarker 推薦記錄 ID 標記類型
type ReferralMarker struct{}

// ReferralID 推薦記錄唯一標識符
type ReferralID = shared.EntityID[ReferralMarker]

// NewReferralID 生成新的推薦記錄 ID
func NewReferralID() ReferralID {
	return shared.NewEntityID[ReferralMarker]()
}

// ReferralIDFromString 從字串解析推薦記錄 ID
func ReferralIDFromString(s string) (ReferralID, error) {
	return shared.EntityIDFromString[ReferralMarker](s, ErrInvalidReferralID)
}

// LedgerEntryMarker 帳本分錄 ID 標記類型
type LedgerEntryMarker struct{}

// LedgerEntryID 帳本分錄唯一標識符
type LedgerEntryID = shared.EntityID[LedgerEntryMarker]

// NewLedgerEntryID 生成新的帳本分錄 ID
func NewLedgerEntryID() LedgerEntryID {
	return shared.NewEntityID[LedgerEntryMarker]()
}

// LedgerEntryIDFromString 從字串解析帳本分錄 ID
func LedgerEntryIDFromString(s string) (LedgerEntryID, error) {
	return shared.EntityIDFromString[LedgerEntryMarker](s, ErrInvalidLedgerEntryID)
}

// TransferMarker 積分轉帳 ID 標記類型
type TransferMarker struct{}

// TransferID 一次轉帳的關聯 ID（TRANSFER_OUT 與 TRANSFER_IN 兩筆分錄共用）
type TransferID = shared.EntityID[TransferMarker]

// NewTransferID 生成新的轉帳 ID
func NewTransferID() TransferID {
	return shared.NewEntityID[TransferMarker]()
}

// TransferIDFromString 從字串解析轉帳 ID
func TransferIDFromString(s string) (TransferID, error) {
	return shared.EntityIDFromString[TransferMarker](s, ErrInvalidTransferID)
}
