package loyalty

import "github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"

// ===========================
// Repository 介面
// ===========================
//
// 所有方法都接受 TransactionContext；在 TransactionManager.InTransaction
// 內部調用時，讀寫都落在同一個資料庫事務。
//
//   txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
//       customer, _ := customers.FindByIDForUpdate(tx, id)
//       _ = customer.Debit(amount, EntryTypeRedemption)
//       return customers.Update(tx, customer)
//   })

// CustomerRepository 顧客倉儲
type CustomerRepository interface {
	// Create 保存新顧客
	// 錯誤：ErrCustomerAlreadyExists（手機號碼重複）
	Create(tx shared.TransactionContext, customer *Customer) error

	// FindByID 查詢顧客，找不到返回 ErrCustomerNotFound
	FindByID(tx shared.TransactionContext, id CustomerID) (*Customer, error)

	// FindByIDForUpdate 查詢並鎖定顧客列（PostgreSQL: SELECT ... FOR UPDATE）
	FindByIDForUpdate(tx shared.TransactionContext, id CustomerID) (*Customer, error)

	// FindByPhoneNumber 以手機號碼查詢
	FindByPhoneNumber(tx shared.TransactionContext, phone PhoneNumber) (*Customer, error)

	// Update 以樂觀鎖更新（WHERE version = ExpectedVersion）
	// 錯誤：ErrConcurrentModification（版本不符）、ErrCustomerNotFound
	Update(tx shared.TransactionContext, customer *Customer) error
}

// LedgerRepository 帳本倉儲（只追加）
type LedgerRepository interface {
	// Append 追加分錄；分錄驗證已由 NewLedgerEntry 完成
	Append(tx shared.TransactionContext, entry *LedgerEntry) error

	// SumActive 該顧客所有 ACTIVE 分錄的總和
	SumActive(tx shared.TransactionContext, customerID CustomerID) (int, error)

	// FindByCustomer 分錄歷史（新到舊），limit <= 0 表示不限
	FindByCustomer(tx shared.TransactionContext, customerID CustomerID, limit int) ([]*LedgerEntry, error)

	// FindByOrder 訂單相關分錄
	FindByOrder(tx shared.TransactionContext, orderID OrderID) ([]*LedgerEntry, error)
}

// ReferralRepository 推薦倉儲
type ReferralRepository interface {
	// Create 建立 PENDING 推薦
	// 錯誤：ErrReferralAlreadyExists（referred_id 唯一）
	Create(tx shared.TransactionContext, referral *Referral) error

	// FindByReferredID 查詢被推薦人的推薦記錄（任何狀態）
	FindByReferredID(tx shared.TransactionContext, referredID CustomerID) (*Referral, error)

	// FindPendingByReferredID 查詢 PENDING 推薦，沒有則返回 ErrReferralNotFound
	FindPendingByReferredID(tx shared.TransactionContext, referredID CustomerID) (*Referral, error)

	// CompleteIfPending 條件更新（WHERE status = 'PENDING'）
	// 返回 false 表示另一個並行事務已完成此推薦
	CompleteIfPending(tx shared.TransactionContext, referral *Referral) (bool, error)
}

// OrderRepository 訂單倉儲（只寫積分欄位與測試用的建立）
type OrderRepository interface {
	// Create 保存新訂單
	// 錯誤：ErrOrderAlreadyExists
	Create(tx shared.TransactionContext, order *Order) error

	// FindByID 查詢訂單，找不到返回 ErrOrderNotFound
	FindByID(tx shared.TransactionContext, id OrderID) (*Order, error)

	// FindByIDForUpdate 查詢並鎖定訂單列
	FindByIDForUpdate(tx shared.TransactionContext, id OrderID) (*Order, error)

	// UpdateStatus 更新訂單狀態
	UpdateStatus(tx shared.TransactionContext, id OrderID, status OrderStatus) error

	// MarkPointsEarned 條件寫入冪等標記（WHERE loyalty_points_earned = 0）
	// 返回 false 表示標記已存在
	MarkPointsEarned(tx shared.TransactionContext, order *Order) (bool, error)

	// RecordRedemption 條件寫入折抵（WHERE loyalty_points_redeemed = 0）
	// 返回 false 表示已有折抵
	RecordRedemption(tx shared.TransactionContext, order *Order) (bool, error)
}

// ===========================
// Repository 錯誤定義
// ===========================

const (
	ErrCodeCustomerNotFound      ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCodeCustomerAlreadyExists ErrorCode = "CUSTOMER_ALREADY_EXISTS"
	ErrCodeOrderNotFound         ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeOrderAlreadyExists    ErrorCode = "ORDER_ALREADY_EXISTS"
	ErrCodeReferralNotFound      ErrorCode = "REFERRAL_NOT_FOUND"
	ErrCodeReferralAlreadyExists ErrorCode = "REFERRAL_ALREADY_EXISTS"
	ErrCodeRepositoryError       ErrorCode = "REPOSITORY_ERROR"
)

var (
	ErrCustomerNotFound = &DomainError{
		Code:    ErrCodeCustomerNotFound,
		Message: "顧客不存在",
	}

	ErrCustomerAlreadyExists = &DomainError{
		Code:    ErrCodeCustomerAlreadyExists,
		Message: "顧客已存在",
	}

	ErrOrderNotFound = &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: "訂單不存在",
	}

	ErrOrderAlreadyExists = &DomainError{
		Code:    ErrCodeOrderAlreadyExists,
		Message: "訂單已存在",
	}

	ErrReferralNotFound = &DomainError{
		Code:    ErrCodeReferralNotFound,
		Message: "推薦記錄不存在",
	}

	ErrReferralAlreadyExists = &DomainError{
		Code:    ErrCodeReferralAlreadyExists,
		Message: "該顧客已有推薦記錄",
	}

	// ErrRepositoryError 倉儲操作錯誤（通用）
	ErrRepositoryError = &DomainError{
		Code:    ErrCodeRepositoryError,
		Message: "倉儲操作失敗",
	}
)
