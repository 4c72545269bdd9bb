package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ===========================
// RedeemPoints Use Case
// ===========================

// RedeemPointsCommand 結帳時以積分折抵
//
// 輸入：
// - CustomerID: 顧客 ID
// - RequestedPoints: 欲使用的積分（>= MinPointsToRedeem）
// - PendingOrderTotal: 結帳中訂單金額（> 0）
// - OrderID: 結帳中訂單 ID；空字串時產生新的 PENDING 訂單
type RedeemPointsCommand struct {
	CustomerID        string
	RequestedPoints   int
	PendingOrderTotal decimal.Decimal
	OrderID           string
}

// RedeemPointsResult 折抵結果
//
// PointsConsumed = ceil(Discount × PointsPerUnitDiscount)，永遠 <= RequestedPoints。
type RedeemPointsResult struct {
	OrderID        string
	Discount       decimal.Decimal
	PointsConsumed int
	NewBalance     int
}

// RedeemPointsUseCase 積分折抵 Use Case
//
// 扣帳與訂單上的 loyalty_points_redeemed / loyalty_discount 在同一事務寫入。
type RedeemPointsUseCase struct {
	balances     *ledger.BalanceManager
	customerRepo loyalty.CustomerRepository
	orderRepo    loyalty.OrderRepository
	calculator   *loyalty.PointsCalculator
	txManager    shared.TransactionManager
	notifier     *ledger.Notifier
}

// NewRedeemPointsUseCase 創建 Use Case 實例
func NewRedeemPointsUseCase(
	balances *ledger.BalanceManager,
	customerRepo loyalty.CustomerRepository,
	orderRepo loyalty.OrderRepository,
	calculator *loyalty.PointsCalculator,
	txManager shared.TransactionManager,
	notifier *ledger.Notifier,
) *RedeemPointsUseCase {
	return &RedeemPointsUseCase{
		balances:     balances,
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		calculator:   calculator,
		txManager:    txManager,
		notifier:     notifier,
	}
}

// Execute 在獨立事務中折抵
//
// 錯誤處理：
// - ErrBelowMinimumRedemption: RequestedPoints < MinPointsToRedeem
// - ErrInvalidOrderContext: 訂單金額 <= 0、訂單不屬於該顧客或已結束
// - ErrInsufficientBalance: RequestedPoints > 餘額
// - ErrPointsAlreadyRedeemed: 訂單已有折抵
// - ErrCustomerNotFound: 顧客不存在
func (uc *RedeemPointsUseCase) Execute(ctx context.Context, cmd RedeemPointsCommand) (result *RedeemPointsResult, err error) {
	ctx, span := observability.StartSpan(ctx, "redemption.RedeemPoints",
		attribute.String("customer.id", cmd.CustomerID),
		attribute.Int("points.requested", cmd.RequestedPoints),
		attribute.String("order.total", cmd.PendingOrderTotal.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	// 寫入前先做不需要資料庫的檢查，避免無謂的事務
	if err := uc.validate(cmd); err != nil {
		return nil, err
	}

	changes := &ledger.ChangeSet{}
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

// ExecuteWithContext 在調用者的事務中折抵（供訂單建立流程組合）
func (uc *RedeemPointsUseCase) ExecuteWithContext(
	tx shared.TransactionContext,
	cmd RedeemPointsCommand,
	changes *ledger.ChangeSet,
) (*RedeemPointsResult, error) {
	if err := uc.validate(cmd); err != nil {
		return nil, err
	}

	customerID, err := loyalty.CustomerIDFromString(cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse customer ID: %w", err)
	}

	orderID := loyalty.NewOrderID()
	if cmd.OrderID != "" {
		orderID, err = loyalty.OrderIDFromString(cmd.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse order ID: %w", err)
		}
	}

	// 1. 鎖定顧客後檢查餘額（以請求積分為準）
	customer, err := uc.customerRepo.FindByIDForUpdate(tx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	if cmd.RequestedPoints > customer.PointsBalance().Value() {
		return nil, loyalty.ErrInsufficientBalance.WithContext(
			"customerID", customerID.String(),
			"available", customer.PointsBalance().Value(),
			"requested", cmd.RequestedPoints,
		)
	}

	// 2. 計算折抵金額與實際消耗積分
	discount := uc.calculator.DiscountFromPoints(cmd.RequestedPoints, cmd.PendingOrderTotal)
	if !discount.IsPositive() {
		return nil, loyalty.ErrInvalidOrderContext.WithContext(
			"orderTotal", cmd.PendingOrderTotal.String(),
			"reason", "order total too small for any discount",
		)
	}
	consumed := uc.calculator.PointsForDiscount(discount)
	amount, err := loyalty.NewPointsAmount(consumed)
	if err != nil {
		return nil, err
	}

	// 3. 寫入訂單折抵（既有訂單條件更新，否則建立 PENDING 訂單）
	if err := uc.recordOnOrder(tx, orderID, customerID, cmd.PendingOrderTotal, consumed, discount); err != nil {
		return nil, err
	}

	// 4. 扣帳
	debited, err := uc.balances.Debit(tx, customerID, amount, loyalty.EntryMeta{
		Type:        loyalty.EntryTypeRedemption,
		OrderID:     orderID,
		Description: "redeemed at checkout",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}
	changes.TrackCustomer(debited)

	return &RedeemPointsResult{
		OrderID:        orderID.String(),
		Discount:       discount,
		PointsConsumed: consumed,
		NewBalance:     debited.PointsBalance().Value(),
	}, nil
}

func (uc *RedeemPointsUseCase) validate(cmd RedeemPointsCommand) error {
	minimum := uc.calculator.Policy().MinPointsToRedeem
	if cmd.RequestedPoints < minimum {
		return loyalty.ErrBelowMinimumRedemption.WithContext(
			"requested", cmd.RequestedPoints,
			"minimum", minimum,
		)
	}
	if !cmd.PendingOrderTotal.IsPositive() {
		return loyalty.ErrInvalidOrderContext.WithContext(
			"orderTotal", cmd.PendingOrderTotal.String(),
			"reason", "order total must be positive",
		)
	}
	return nil
}

func (uc *RedeemPointsUseCase) recordOnOrder(
	tx shared.TransactionContext,
	orderID loyalty.OrderID,
	customerID loyalty.CustomerID,
	total decimal.Decimal,
	points int,
	discount decimal.Decimal,
) error {
	order, err := uc.orderRepo.FindByIDForUpdate(tx, orderID)
	if errors.Is(err, loyalty.ErrOrderNotFound) {
		order, err = loyalty.NewPendingOrder(orderID, customerID, total)
		if err != nil {
			return err
		}
		if err := order.ApplyRedemption(points, discount); err != nil {
			return err
		}
		if err := uc.orderRepo.Create(tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find order: %w", err)
	}

	if !order.CustomerID().Equals(customerID) {
		return loyalty.ErrInvalidOrderContext.WithContext(
			"orderID", orderID.String(),
			"reason", "order belongs to another customer",
		)
	}
	if order.Status() != loyalty.OrderStatusPending || !order.Total().Equal(total) {
		return loyalty.ErrInvalidOrderContext.WithContext(
			"orderID", orderID.String(),
			"status", string(order.Status()),
			"total", order.Total().String(),
		)
	}

	if err := order.ApplyRedemption(points, discount); err != nil {
		return err
	}
	recorded, err := uc.orderRepo.RecordRedemption(tx, order)
	if err != nil {
		return fmt.Errorf("failed to record redemption: %w", err)
	}
	if !recorded {
		return loyalty.ErrPointsAlreadyRedeemed.WithContext("orderID", orderID.String())
	}
	return nil
}
