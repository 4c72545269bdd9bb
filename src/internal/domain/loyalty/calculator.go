package loyalty

import (
	"github.com/shopspring/decimal"
)

// ===========================
// PointsPolicy 積分規則常數
// ===========================

// PointsPolicy 積分規則（由設定檔載入）
type PointsPolicy struct {
	MinOrderAmountForPoints decimal.Decimal // 低於此金額不給積分
	PointsPerCurrencyUnit   decimal.Decimal // 每 1 元可得積分
	PointsPerUnitDiscount   int             // 多少積分折抵 1 元
	MaxDiscountPercentage   decimal.Decimal // 折抵上限（訂單金額 %）
	MinPointsToRedeem       int             // 單次最少兌換積分
	PointsExpirationDays    int             // 消費積分有效天數
	ReferrerPoints          int             // 推薦人獎勵
	ReferredFirstOrderBonus int             // 被推薦人首單獎勵
}

// DefaultPointsPolicy 預設積分規則
func DefaultPointsPolicy() PointsPolicy {
	return PointsPolicy{
		MinOrderAmountForPoints: decimal.NewFromInt(100),
		PointsPerCurrencyUnit:   decimal.NewFromInt(1),
		PointsPerUnitDiscount:   10,
		MaxDiscountPercentage:   decimal.NewFromInt(50),
		MinPointsToRedeem:       100,
		PointsExpirationDays:    365,
		ReferrerPoints:          100,
		ReferredFirstOrderBonus: 100,
	}
}

// Validate 檢查規則是否自洽
func (p PointsPolicy) Validate() error {
	hundred := decimal.NewFromInt(100)
	switch {
	case p.MinOrderAmountForPoints.IsNegative():
		return ErrValidation.WithContext("field", "MinOrderAmountForPoints", "reason", "must be >= 0")
	case !p.PointsPerCurrencyUnit.IsPositive():
		return ErrValidation.WithContext("field", "PointsPerCurrencyUnit", "reason", "must be > 0")
	case p.PointsPerUnitDiscount <= 0:
		return ErrValidation.WithContext("field", "PointsPerUnitDiscount", "reason", "must be > 0")
	case !p.MaxDiscountPercentage.IsPositive() || p.MaxDiscountPercentage.GreaterThan(hundred):
		return ErrValidation.WithContext("field", "MaxDiscountPercentage", "reason", "must be within (0, 100]")
	case p.MinPointsToRedeem <= 0:
		return ErrValidation.WithContext("field", "MinPointsToRedeem", "reason", "must be > 0")
	case p.PointsExpirationDays <= 0:
		return ErrValidation.WithContext("field", "PointsExpirationDays", "reason", "must be > 0")
	case p.ReferrerPoints < 0 || p.ReferredFirstOrderBonus < 0:
		return ErrValidation.WithContext("field", "ReferralBonus", "reason", "must be >= 0")
	}
	return nil
}

// ===========================
// PointsCalculator 領域服務（無狀態、純函數）
// ===========================

// PointsCalculator 積分計算領域服務
type PointsCalculator struct {
	policy PointsPolicy
	tiers  *TierPolicy
}

// NewPointsCalculator 建構函數
func NewPointsCalculator(policy PointsPolicy, tiers *TierPolicy) (*PointsCalculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if tiers == nil {
		return nil, ErrInvalidTierPolicy.WithContext("reason", "tier policy is required")
	}
	return &PointsCalculator{policy: policy, tiers: tiers}, nil
}

// Policy 目前使用的積分規則
func (c *PointsCalculator) Policy() PointsPolicy {
	return c.policy
}

// Tiers 目前使用的等級政策
func (c *PointsCalculator) Tiers() *TierPolicy {
	return c.tiers
}

// PointsEarned 訂單可得積分
//
// 規則：金額 < MinOrderAmountForPoints → 0；
// 否則 floor(金額 × PointsPerCurrencyUnit × 等級倍率)，一律向下取整。
func (c *PointsCalculator) PointsEarned(orderTotal decimal.Decimal, tier Tier) int {
	if !orderTotal.IsPositive() || orderTotal.LessThan(c.policy.MinOrderAmountForPoints) {
		return 0
	}

	multiplier := c.tiers.Benefits(tier).PointsMultiplier
	points := orderTotal.
		Mul(c.policy.PointsPerCurrencyUnit).
		Mul(multiplier).
		Floor().
		IntPart()

	if points < 0 {
		return 0
	}
	return int(points)
}

// DiscountFromPoints 積分可折抵金額
//
// min(floor(points / PointsPerUnitDiscount), orderTotal × MaxDiscountPercentage / 100)
// 上限與等級無關，結果截斷至小數兩位，永遠不超過訂單金額。
func (c *PointsCalculator) DiscountFromPoints(points int, orderTotal decimal.Decimal) decimal.Decimal {
	if points <= 0 || !orderTotal.IsPositive() {
		return decimal.Zero
	}

	raw := decimal.NewFromInt(int64(points / c.policy.PointsPerUnitDiscount))
	limit := orderTotal.
		Mul(c.policy.MaxDiscountPercentage).
		Div(decimal.NewFromInt(100)).
		Truncate(2)

	discount := decimal.Min(raw, limit)
	return decimal.Min(discount, orderTotal)
}

// PointsForDiscount 折抵金額實際消耗的積分：ceil(discount × PointsPerUnitDiscount)
//
// 對於 DiscountFromPoints(points, total) 的結果，返回值永遠 <= points。
func (c *PointsCalculator) PointsForDiscount(discount decimal.Decimal) int {
	if !discount.IsPositive() {
		return 0
	}
	return int(discount.Mul(decimal.NewFromInt(int64(c.policy.PointsPerUnitDiscount))).Ceil().IntPart())
}

// ExpirationDays 消費積分有效天數
func (c *PointsCalculator) ExpirationDays() int {
	return c.policy.PointsExpirationDays
}
