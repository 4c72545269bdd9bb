package referral

import (
	"fmt"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// GetPendingReferralQuery 查詢被推薦人的 PENDING 推薦
type GetPendingReferralQuery struct {
	CustomerID string
}

// GetPendingReferralResult PENDING 推薦
type GetPendingReferralResult struct {
	ReferralID string
	ReferrerID string
	ReferredID string
	Status     string
	CreatedAt  time.Time
}

// GetPendingReferralUseCase pendingReferral 查詢
//
// 沒有 PENDING 推薦時返回 ErrReferralNotFound。
type GetPendingReferralUseCase struct {
	referralRepo loyalty.ReferralRepository
}

// NewGetPendingReferralUseCase 創建 Use Case 實例
func NewGetPendingReferralUseCase(repo loyalty.ReferralRepository) *GetPendingReferralUseCase {
	return &GetPendingReferralUseCase{referralRepo: repo}
}

// Execute 執行查詢
func (uc *GetPendingReferralUseCase) Execute(query GetPendingReferralQuery) (*GetPendingReferralResult, error) {
	return uc.ExecuteWithContext(nil, query)
}

// ExecuteWithContext 在事務上下文中查詢（tx 可為 nil）
func (uc *GetPendingReferralUseCase) ExecuteWithContext(
	tx shared.TransactionContext,
	query GetPendingReferralQuery,
) (*GetPendingReferralResult, error) {
	customerID, err := loyalty.CustomerIDFromString(query.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse customer ID: %w", err)
	}

	pending, err := uc.referralRepo.FindPendingByReferredID(tx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending referral: %w", err)
	}

	return &GetPendingReferralResult{
		ReferralID: pending.ID().String(),
		ReferrerID: pending.ReferrerID().String(),
		ReferredID: pending.ReferredID().String(),
		Status:     string(pending.Status()),
		CreatedAt:  pending.CreatedAt(),
	}, nil
}
