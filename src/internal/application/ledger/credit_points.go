package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ===========================
// CreditPoints Use Case
// ===========================

// CreditPointsCommand 入帳命令（creditPoints）
//
// 輸入：
// - CustomerID: 顧客 ID（UUID 字串）
// - Points: 入帳點數（> 0）
// - Type: 入帳類型（僅 BIRTHDAY_BONUS）
// - OrderID: 參考訂單（可為空，不影響訂單發放標記）
// - ExpiresInDays: > 0 時設定過期時間
type CreditPointsCommand struct {
	CustomerID    string
	Points        int
	Type          string
	OrderID       string
	Description   string
	ExpiresInDays int
}

// CreditPointsResult 入帳結果
type CreditPointsResult struct {
	CustomerID     string
	Credited       int
	NewBalance     int
	LifetimePoints int
	Tier           string
}

// manualCreditTypes 可由 creditPoints 直接入帳的類型
var manualCreditTypes = map[loyalty.EntryType]bool{
	loyalty.EntryTypeBirthdayBonus: true,
}

// CreditPointsUseCase 手動入帳 Use Case
//
// ORDER_EARNED / REFERRAL_EARNED 只能由發放與推薦流程產生，TRANSFER_IN 只能由移轉產生。
type CreditPointsUseCase struct {
	balances  *BalanceManager
	txManager shared.TransactionManager
	notifier  *Notifier
}

// NewCreditPointsUseCase 創建 Use Case 實例；notifier 可為 nil
func NewCreditPointsUseCase(
	balances *BalanceManager,
	txManager shared.TransactionManager,
	notifier *Notifier,
) *CreditPointsUseCase {
	return &CreditPointsUseCase{
		balances:  balances,
		txManager: txManager,
		notifier:  notifier,
	}
}

// Execute 在獨立事務中入帳
//
// 錯誤處理：
// - ErrInvalidCustomerID / ErrInvalidOrderID: ID 格式無效
// - ErrValidation: 點數 <= 0 或類型不是可用的入帳類型
// - ErrCustomerNotFound: 顧客不存在
// - ErrTransientFailure: 交易衝突重試耗盡
func (uc *CreditPointsUseCase) Execute(ctx context.Context, cmd CreditPointsCommand) (result *CreditPointsResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ledger.CreditPoints",
		attribute.String("customer.id", cmd.CustomerID),
		attribute.String("entry.type", cmd.Type),
		attribute.Int("points", cmd.Points),
	)
	defer func() { observability.EndSpan(span, err) }()

	changes := &ChangeSet{}
	err = uc.txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
		changes.Reset()
		var txErr error
		result, txErr = uc.ExecuteWithContext(tx, cmd, changes)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.AfterCommit(ctx, changes)
	return result, nil
}

// ExecuteWithContext 在調用者的事務中入帳
//
// changes 可為 nil；非 nil 時調用者負責在提交後交給 Notifier。
func (uc *CreditPointsUseCase) ExecuteWithContext(
	tx shared.TransactionContext,
	cmd CreditPointsCommand,
	changes *ChangeSet,
) (*CreditPointsResult, error) {
	customerID, err := loyalty.CustomerIDFromString(cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse customer ID: %w", err)
	}

	entryType := loyalty.EntryType(cmd.Type)
	if !manualCreditTypes[entryType] {
		return nil, loyalty.ErrValidation.WithContext("field", "type", "value", cmd.Type, "reason", "unsupported credit type")
	}

	amount, err := loyalty.NewPointsAmount(cmd.Points)
	if err != nil {
		return nil, loyalty.ErrValidation.WithContext("field", "points", "value", cmd.Points)
	}
	if amount.IsZero() {
		return nil, loyalty.ErrValidation.WithContext("field", "points", "reason", "must be positive")
	}

	meta := loyalty.EntryMeta{
		Type:        entryType,
		Description: cmd.Description,
	}
	if cmd.OrderID != "" {
		meta.OrderID, err = loyalty.OrderIDFromString(cmd.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order ID: %w", err)
		}
	}
	if cmd.ExpiresInDays > 0 {
		expiresAt := time.Now().UTC().AddDate(0, 0, cmd.ExpiresInDays)
		meta.ExpiresAt = &expiresAt
	}

	customer, err := uc.balances.Credit(tx, customerID, amount, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to credit points: %w", err)
	}
	changes.TrackCustomer(customer)

	return &CreditPointsResult{
		CustomerID:     customer.ID().String(),
		Credited:       amount.Value(),
		NewBalance:     customer.PointsBalance().Value(),
		LifetimePoints: customer.LifetimePoints().Value(),
		Tier:           customer.Tier().String(),
	}, nil
}
