package referral

import (
	"errors"
	"fmt"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"go.uber.org/zap"
)

// ===========================
// ReferralTracker 推薦鏈追蹤
// ===========================

// Tracker 在被推薦人首筆有效訂單發放積分後完成推薦
//
// 觸發條件（全部成立）：
// - 顧客有 referredBy
// - 存在 PENDING 推薦記錄
// - 本次發放積分 > 0
//
// 狀態轉換以條件更新（WHERE status = 'PENDING'）完成；
// 影響 0 列表示並行事務已完成推薦，本次不發放任何獎勵。
type Tracker struct {
	referralRepo loyalty.ReferralRepository
	balances     *ledger.BalanceManager
	policy       loyalty.PointsPolicy
	logger       *zap.Logger
}

// NewTracker 創建 Tracker
func NewTracker(
	referralRepo loyalty.ReferralRepository,
	balances *ledger.BalanceManager,
	policy loyalty.PointsPolicy,
	logger *zap.Logger,
) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		referralRepo: referralRepo,
		balances:     balances,
		policy:       policy,
		logger:       logger,
	}
}

// OnOrderAwarded 在發放積分的同一事務中調用
//
// 返回 completed=true 表示本次調用完成了推薦並發放雙方獎勵。
func (t *Tracker) OnOrderAwarded(
	tx shared.TransactionContext,
	customer *loyalty.Customer,
	orderID loyalty.OrderID,
	pointsEarned int,
	changes *ledger.ChangeSet,
) (bool, error) {
	if customer == nil || !customer.HasReferrer() || pointsEarned <= 0 {
		return false, nil
	}

	pending, err := t.referralRepo.FindPendingByReferredID(tx, customer.ID())
	if errors.Is(err, loyalty.ErrReferralNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to find pending referral: %w", err)
	}

	if err := pending.Complete(orderID, t.policy.ReferrerPoints, t.policy.ReferredFirstOrderBonus); err != nil {
		return false, err
	}

	won, err := t.referralRepo.CompleteIfPending(tx, pending)
	if err != nil {
		return false, fmt.Errorf("failed to complete referral: %w", err)
	}
	if !won {
		t.logger.Debug("referral already completed by a concurrent award",
			zap.String("referral_id", pending.ID().String()),
			zap.String("order_id", orderID.String()),
		)
		return false, nil
	}
	changes.TrackReferral(pending)

	if err := t.creditBonus(tx, pending.ReferrerID(), t.policy.ReferrerPoints, pending, orderID, "referral reward", changes); err != nil {
		return false, err
	}
	if err := t.creditBonus(tx, pending.ReferredID(), t.policy.ReferredFirstOrderBonus, pending, orderID, "first order referral bonus", changes); err != nil {
		return false, err
	}

	return true, nil
}

func (t *Tracker) creditBonus(
	tx shared.TransactionContext,
	customerID loyalty.CustomerID,
	points int,
	referral *loyalty.Referral,
	orderID loyalty.OrderID,
	description string,
	changes *ledger.ChangeSet,
) error {
	if points <= 0 {
		return nil
	}
	amount, err := loyalty.NewPointsAmount(points)
	if err != nil {
		return err
	}

	credited, err := t.balances.Credit(tx, customerID, amount, loyalty.EntryMeta{
		Type:        loyalty.EntryTypeReferralEarned,
		OrderID:     orderID,
		ReferralID:  referral.ID(),
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("failed to credit referral bonus: %w", err)
	}
	changes.TrackCustomer(credited)
	return nil
}
