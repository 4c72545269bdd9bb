package ledger

import (
	"fmt"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// DefaultHistoryLimit 未指定 limit 時的筆數
const DefaultHistoryLimit = 50

// MaxHistoryLimit 單次查詢上限
const MaxHistoryLimit = 500

// GetLedgerHistoryQuery 查詢分錄歷史
type GetLedgerHistoryQuery struct {
	CustomerID string
	Limit      int
}

// LedgerEntryView 分錄（對外）
type LedgerEntryView struct {
	EntryID     string
	Points      int
	Type        string
	Status      string
	OrderID     string
	ReferralID  string
	TransferID  string
	Description string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// GetLedgerHistoryResult 分錄歷史（新到舊）
type GetLedgerHistoryResult struct {
	CustomerID string
	Entries    []LedgerEntryView
}

// GetLedgerHistoryUseCase 分錄歷史 Use Case
type GetLedgerHistoryUseCase struct {
	customerRepo loyalty.CustomerRepository
	ledgerRepo   loyalty.LedgerRepository
}

// NewGetLedgerHistoryUseCase 創建 Use Case 實例
func NewGetLedgerHistoryUseCase(
	customerRepo loyalty.CustomerRepository,
	ledgerRepo loyalty.LedgerRepository,
) *GetLedgerHistoryUseCase {
	return &GetLedgerHistoryUseCase{
		customerRepo: customerRepo,
		ledgerRepo:   ledgerRepo,
	}
}

// Execute 查詢分錄歷史
func (uc *GetLedgerHistoryUseCase) Execute(query GetLedgerHistoryQuery) (*GetLedgerHistoryResult, error) {
	return uc.ExecuteWithContext(nil, query)
}

// ExecuteWithContext 在事務上下文中查詢（tx 可為 nil）
//
// 錯誤處理：
// - ErrCustomerNotFound: 顧客不存在（與「沒有分錄」區分）
func (uc *GetLedgerHistoryUseCase) ExecuteWithContext(
	tx shared.TransactionContext,
	query GetLedgerHistoryQuery,
) (*GetLedgerHistoryResult, error) {
	customerID, err := loyalty.CustomerIDFromString(query.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse customer ID: %w", err)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	if _, err := uc.customerRepo.FindByID(tx, customerID); err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	entries, err := uc.ledgerRepo.FindByCustomer(tx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	views := make([]LedgerEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, toEntryView(entry))
	}
	return &GetLedgerHistoryResult{
		CustomerID: customerID.String(),
		Entries:    views,
	}, nil
}

func toEntryView(entry *loyalty.LedgerEntry) LedgerEntryView {
	view := LedgerEntryView{
		EntryID:     entry.ID().String(),
		Points:      entry.Points(),
		Type:        string(entry.Type()),
		Status:      string(entry.Status()),
		Description: entry.Description(),
		ExpiresAt:   entry.ExpiresAt(),
		CreatedAt:   entry.CreatedAt(),
	}
	if !entry.OrderID().IsEmpty() {
		view.OrderID = entry.OrderID().String()
	}
	if !entry.ReferralID().IsEmpty() {
		view.ReferralID = entry.ReferralID().String()
	}
	if !entry.TransferID().IsEmpty() {
		view.TransferID = entry.TransferID().String()
	}
	return view
}
