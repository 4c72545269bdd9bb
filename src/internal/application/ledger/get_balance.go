package ledger

import (
	"context"
	"fmt"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ===========================
// GetBalance Query
// ===========================

// GetBalanceQuery 查詢餘額與等級
type GetBalanceQuery struct {
	CustomerID string
}

// GetBalanceResult 餘額與等級
//
// NextTier 為空表示已是最高等級；Version 是讀取時顧客列的版本號，供快取圍欄比對。
type GetBalanceResult struct {
	CustomerID         string
	Version            int
	PointsBalance      int
	LifetimePoints     int
	Tier               string
	DiscountPercentage string
	PointsMultiplier   string
	NextTier           string
	PointsToNextTier   int
}

// BalanceCache 餘額讀取快取
//
// 只是讀取路徑的短期視圖；所有驗證都讀資料庫。
// Invalidate 記錄已提交的版本號作為圍欄，之後版本較舊的 Set 一律丟棄，
// 提交前讀到的舊餘額不會在失效後被回填。
type BalanceCache interface {
	Get(ctx context.Context, customerID loyalty.CustomerID) (*GetBalanceResult, bool, error)
	Set(ctx context.Context, result *GetBalanceResult) error
	Invalidate(ctx context.Context, committed ...CommittedVersion) error
}

// CommittedVersion 提交後的顧客版本號
type CommittedVersion struct {
	CustomerID loyalty.CustomerID
	Version    int
}

// GetBalanceUseCase 查詢餘額 Use Case（currentBalanceAndTier）
type GetBalanceUseCase struct {
	customerRepo loyalty.CustomerRepository
	tiers        *loyalty.TierPolicy
	cache        BalanceCache
	logger       *zap.Logger
}

// NewGetBalanceUseCase 創建 Use Case 實例；cache 可為 nil
func NewGetBalanceUseCase(
	repo loyalty.CustomerRepository,
	tiers *loyalty.TierPolicy,
	cache BalanceCache,
	logger *zap.Logger,
) *GetBalanceUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GetBalanceUseCase{
		customerRepo: repo,
		tiers:        tiers,
		cache:        cache,
		logger:       logger,
	}
}

// Execute 查詢餘額（先讀快取，未命中再讀資料庫並回填）
//
// 錯誤處理：
// - ErrInvalidCustomerID: ID 格式無效
// - ErrCustomerNotFound: 顧客不存在
func (uc *GetBalanceUseCase) Execute(ctx context.Context, query GetBalanceQuery) (result *GetBalanceResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ledger.GetBalance",
		attribute.String("customer.id", query.CustomerID))
	defer func() { observability.EndSpan(span, err) }()

	customerID, err := loyalty.CustomerIDFromString(query.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse customer ID: %w", err)
	}

	if uc.cache != nil {
		cached, ok, cacheErr := uc.cache.Get(ctx, customerID)
		if cacheErr != nil {
			uc.logger.Warn("balance cache read failed", zap.String("customer_id", query.CustomerID), zap.Error(cacheErr))
		} else if ok {
			return cached, nil
		}
	}

	result, err = uc.ExecuteWithContext(nil, query)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if cacheErr := uc.cache.Set(ctx, result); cacheErr != nil {
			uc.logger.Warn("balance cache write failed", zap.String("customer_id", query.CustomerID), zap.Error(cacheErr))
		}
	}
	return result, nil
}

// ExecuteWithContext 直接讀資料庫（不經快取）
//
// tx 可為 nil（獨立讀取）。
func (uc *GetBalanceUseCase) ExecuteWithContext(
	tx shared.TransactionContext,
	query GetBalanceQuery,
) (*GetBalanceResult, error) {
	customerID, err := loyalty.CustomerIDFromString(query.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse customer ID: %w", err)
	}

	customer, err := uc.customerRepo.FindByID(tx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	return NewGetBalanceResult(customer, uc.tiers), nil
}

// NewGetBalanceResult 由顧客聚合組出結果
func NewGetBalanceResult(customer *loyalty.Customer, tiers *loyalty.TierPolicy) *GetBalanceResult {
	benefits := tiers.Benefits(customer.Tier())
	result := &GetBalanceResult{
		CustomerID:         customer.ID().String(),
		Version:            customer.Version(),
		PointsBalance:      customer.PointsBalance().Value(),
		LifetimePoints:     customer.LifetimePoints().Value(),
		Tier:               customer.Tier().String(),
		DiscountPercentage: benefits.DiscountPercentage.String(),
		PointsMultiplier:   benefits.PointsMultiplier.String(),
	}

	if threshold, ok := tiers.NextThreshold(customer.Tier()); ok {
		result.NextTier = tiers.TierFor(threshold).String()
		result.PointsToNextTier = threshold - customer.LifetimePoints().Value()
		if result.PointsToNextTier < 0 {
			result.PointsToNextTier = 0
		}
	}
	return result
}
