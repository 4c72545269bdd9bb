package award

import (
	"context"
	"fmt"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/referral"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ===========================
// AwardForCompletedOrder Use Case
// ===========================

// Outcome 發放結果
type Outcome string

const (
	OutcomeAwarded                 Outcome = "AWARDED"
	OutcomeIdempotentNoOp          Outcome = "IDEMPOTENT_NOOP"
	OutcomeSkippedNoCustomer       Outcome = "SKIPPED_NO_CUSTOMER"
	OutcomeSkippedNonPositiveTotal Outcome = "SKIPPED_NON_POSITIVE_TOTAL"
	OutcomeNotQualified            Outcome = "NOT_QUALIFIED"
)

// AwardCommand 訂單完成後發放積分
type AwardCommand struct {
	OrderID string
}

// AwardResult 發放結果
//
// 只有 Outcome == AWARDED 時其他欄位才有意義。
type AwardResult struct {
	OrderID           string
	Outcome           Outcome
	CustomerID        string
	PointsEarned      int
	ReferralCompleted bool
	NewBalance        int
	Tier              string
}

// AwardForCompletedOrderUseCase awardForCompletedOrder
//
// 冪等：訂單上的 loyalty_points_earned > 0 即視為已發放。
// 重複的完成事件、重試、並行調用最多只會發放一次。
type AwardForCompletedOrderUseCase struct {
	orderRepo    loyalty.OrderRepository
	customerRepo loyalty.CustomerRepository
	balances     *ledger.BalanceManager
	tracker      *referral.Tracker
	calculator   *loyalty.PointsCalculator
	txManager    shared.TransactionManager
	notifier     *ledger.Notifier
	logger       *zap.Logger
	now          func() time.Time
}

// NewAwardForCompletedOrderUseCase 創建 Use Case 實例
func NewAwardForCompletedOrderUseCase(
	orderRepo loyalty.OrderRepository,
	customerRepo loyalty.CustomerRepository,
	balances *ledger.BalanceManager,
	tracker *referral.Tracker,
	calculator *loyalty.PointsCalculator,
	txManager shared.TransactionManager,
	notifier *ledger.Notifier,
	logger *zap.Logger,
) *AwardForCompletedOrderUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AwardForCompletedOrderUseCase{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		balances:     balances,
		tracker:      tracker,
		calculator:   calculator,
		txManager:    txManager,
		notifier:     notifier,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Execute 在獨立事務中發放
//
// 錯誤處理：
// - ErrInvalidOrderID: ID 格式無效
// - ErrOrderNotFound: 訂單不存在
// - ErrOrderNotCompleted: 訂單尚未 COMPLETED
// - ErrTransientFailure: 交易衝突重試耗盡
func (uc *AwardForCompletedOrderUseCase) Execute(ctx context.Context, cmd AwardCommand) (result *AwardResult, err error) {
	ctx, span := observability.StartSpan(ctx, "award.AwardForCompletedOrder",
		attribute.String("order.id", cmd.OrderID))
	defer func() {
		if result != nil {
			span.SetAttributes(
				attribute.String("award.outcome", string(result.Outcome)),
				attribute.Int("award.points", result.PointsEarned),
			)
		}
		observability.EndSpan(span, err)
	}()

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
	uc.logger.Info("order award processed",
		zap.String("order_id", result.OrderID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("points", result.PointsEarned),
		zap.Bool("referral_completed", result.ReferralCompleted),
	)
	return result, nil
}

// ExecuteWithContext 在調用者的事務中發放
//
// 步驟：
// 1. 鎖定訂單列；必須是 COMPLETED
// 2. 已有標記 → IDEMPOTENT_NOOP
// 3. 無顧客 / 金額 <= 0 → 略過
// 4. 依顧客目前等級計算積分；0 → NOT_QUALIFIED
// 5. 條件寫入標記（WHERE loyalty_points_earned = 0），失敗 → IDEMPOTENT_NOOP
// 6. 入帳 ORDER_EARNED（expires_at = now + 有效天數）
// 7. 推薦鏈追蹤
func (uc *AwardForCompletedOrderUseCase) ExecuteWithContext(
	tx shared.TransactionContext,
	cmd AwardCommand,
	changes *ledger.ChangeSet,
) (*AwardResult, error) {
	orderID, err := loyalty.OrderIDFromString(cmd.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order ID: %w", err)
	}

	order, err := uc.orderRepo.FindByIDForUpdate(tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	result := &AwardResult{OrderID: orderID.String()}

	if !order.IsCompleted() {
		return nil, loyalty.ErrOrderNotCompleted.WithContext(
			"orderID", orderID.String(),
			"status", string(order.Status()),
		)
	}
	if order.IsPointsAwarded() {
		result.Outcome = OutcomeIdempotentNoOp
		result.PointsEarned = order.LoyaltyPointsEarned()
		return result, nil
	}
	if !order.HasCustomer() {
		result.Outcome = OutcomeSkippedNoCustomer
		return result, nil
	}
	if !order.Total().IsPositive() {
		result.Outcome = OutcomeSkippedNonPositiveTotal
		return result, nil
	}

	result.CustomerID = order.CustomerID().String()

	// 等級讀取與入帳共用同一把列鎖
	customer, err := uc.customerRepo.FindByIDForUpdate(tx, order.CustomerID())
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	points := uc.calculator.PointsEarned(order.Total(), customer.Tier())
	if points == 0 {
		result.Outcome = OutcomeNotQualified
		return result, nil
	}

	if err := order.MarkPointsEarned(points); err != nil {
		return nil, err
	}
	marked, err := uc.orderRepo.MarkPointsEarned(tx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order points: %w", err)
	}
	if !marked {
		result.Outcome = OutcomeIdempotentNoOp
		return result, nil
	}

	amount, err := loyalty.NewPointsAmount(points)
	if err != nil {
		return nil, err
	}
	expiresAt := uc.now().AddDate(0, 0, uc.calculator.ExpirationDays())
	credited, err := uc.balances.Credit(tx, customer.ID(), amount, loyalty.EntryMeta{
		Type:        loyalty.EntryTypeOrderEarned,
		OrderID:     orderID,
		ExpiresAt:   &expiresAt,
		Description: "order earned",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit order points: %w", err)
	}
	changes.TrackCustomer(credited)

	completed, err := uc.tracker.OnOrderAwarded(tx, credited, orderID, points, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to track referral: %w", err)
	}

	result.Outcome = OutcomeAwarded
	result.PointsEarned = points
	result.ReferralCompleted = completed
	result.NewBalance = credited.PointsBalance().Value()
	result.Tier = credited.Tier().String()

	// 推薦獎勵會再次入帳給被推薦人，讀回最新餘額
	if completed {
		latest, err := uc.customerRepo.FindByID(tx, customer.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to reload customer: %w", err)
		}
		result.NewBalance = latest.PointsBalance().Value()
		result.Tier = latest.Tier().String()
	}

	return result, nil
}
