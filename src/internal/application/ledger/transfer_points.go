package ledger

import (
	"context"
	"fmt"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ===========================
// TransferPoints Use Case
// ===========================

// TransferPointsCommand 積分移轉命令
type TransferPointsCommand struct {
	FromCustomerID string
	ToCustomerID   string
	Points         int
	Description    string
}

// TransferPointsResult 移轉結果
type TransferPointsResult struct {
	TransferID  string
	FromBalance int
	ToBalance   int
}

// TransferPointsUseCase 積分移轉 Use Case
//
// 轉出寫 TRANSFER_OUT、轉入寫 TRANSFER_IN，兩筆分錄共用 TransferID。
// 轉入不計入累積積分，因此不影響等級。
type TransferPointsUseCase struct {
	balances  *BalanceManager
	txManager shared.TransactionManager
	notifier  *Notifier
}

// NewTransferPointsUseCase 創建 Use Case 實例
func NewTransferPointsUseCase(
	balances *BalanceManager,
	txManager shared.TransactionManager,
	notifier *Notifier,
) *TransferPointsUseCase {
	return &TransferPointsUseCase{
		balances:  balances,
		txManager: txManager,
		notifier:  notifier,
	}
}

// Execute 執行移轉
//
// 錯誤處理：
// - ErrSelfTransfer: 轉出與轉入為同一顧客
// - ErrValidation: 點數 <= 0
// - ErrInsufficientBalance: 轉出方餘額不足
// - ErrCustomerNotFound: 任一方不存在
func (uc *TransferPointsUseCase) Execute(ctx context.Context, cmd TransferPointsCommand) (result *TransferPointsResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ledger.TransferPoints",
		attribute.String("customer.from", cmd.FromCustomerID),
		attribute.String("customer.to", cmd.ToCustomerID),
		attribute.Int("points", cmd.Points),
	)
	defer func() { observability.EndSpan(span, err) }()

	fromID, err := loyalty.CustomerIDFromString(cmd.FromCustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source customer ID: %w", err)
	}
	toID, err := loyalty.CustomerIDFromString(cmd.ToCustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target customer ID: %w", err)
	}
	if cmd.Points <= 0 {
		return nil, loyalty.ErrValidation.WithContext("field", "points", "value", cmd.Points)
	}
	amount, err := loyalty.NewPointsAmount(cmd.Points)
	if err != nil {
		return nil, err
	}

	transferID := loyalty.NewTransferID()
	changes := &ChangeSet{}
	err = uc.txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
		changes.Reset()
		from, to, err := uc.balances.Transfer(tx, fromID, toID, amount, transferID, cmd.Description)
		if err != nil {
			return fmt.Errorf("failed to transfer points: %w", err)
		}
		changes.TrackCustomer(from, to)

		result = &TransferPointsResult{
			TransferID:  transferID.String(),
			FromBalance: from.PointsBalance().Value(),
			ToBalance:   to.PointsBalance().Value(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.AfterCommit(ctx, changes)
	return result, nil
}
