package loyalty_test

import (
	"testing"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultCalculator(t *testing.T) *loyalty.PointsCalculator {
	t.Helper()
	calc, err := loyalty.NewPointsCalculator(loyalty.DefaultPointsPolicy(), loyalty.DefaultTierPolicy())
	require.NoError(t, err)
	return calc
}

// ===== PointsEarned =====

func TestPointsCalculator_PointsEarned(t *testing.T) {
	calc := newDefaultCalculator(t)

	tests := []struct {
		name     string
		total    string
		tier     loyalty.Tier
		expected int
	}{
		{name: "BRONZE 500 元得 500 點", total: "500", tier: loyalty.TierBronze, expected: 500},
		{name: "門檻減一不給積分", total: "99", tier: loyalty.TierBronze, expected: 0},
		{name: "99.99 仍低於門檻", total: "99.99", tier: loyalty.TierPlatinum, expected: 0},
		{name: "剛好門檻", total: "100", tier: loyalty.TierBronze, expected: 100},
		{name: "小數向下取整", total: "150.99", tier: loyalty.TierBronze, expected: 150},
		{name: "SILVER 倍率 1.25 向下取整", total: "101", tier: loyalty.TierSilver, expected: 126},
		{name: "GOLD 倍率 1.5", total: "333", tier: loyalty.TierGold, expected: 499},
		{name: "PLATINUM 倍率 2", total: "250.50", tier: loyalty.TierPlatinum, expected: 501},
		{name: "零金額", total: "0", tier: loyalty.TierBronze, expected: 0},
		{name: "負金額", total: "-200", tier: loyalty.TierGold, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.PointsEarned(decimal.RequireFromString(tt.total), tt.tier)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// ===== DiscountFromPoints =====

func TestPointsCalculator_DiscountFromPoints(t *testing.T) {
	calc := newDefaultCalculator(t)

	tests := []struct {
		name     string
		points   int
		total    string
		expected string
	}{
		{name: "1000 點折 100，上限 100", points: 1000, total: "200", expected: "100"},
		{name: "上限生效", points: 5000, total: "200", expected: "100"},
		{name: "點數不足上限", points: 300, total: "1000", expected: "30"},
		{name: "不足 10 點的部分捨去", points: 109, total: "1000", expected: "10"},
		{name: "上限截斷至小數兩位", points: 1000, total: "33.335", expected: "16.66"},
		{name: "零點", points: 0, total: "100", expected: "0"},
		{name: "訂單金額為零", points: 500, total: "0", expected: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.DiscountFromPoints(tt.points, decimal.RequireFromString(tt.total))
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestPointsCalculator_DiscountNeverExceedsTotal(t *testing.T) {
	policy := loyalty.DefaultPointsPolicy()
	policy.MaxDiscountPercentage = decimal.NewFromInt(100)
	calc, err := loyalty.NewPointsCalculator(policy, loyalty.DefaultTierPolicy())
	require.NoError(t, err)

	total := decimal.RequireFromString("12.34")
	got := calc.DiscountFromPoints(1_000_000, total)

	assert.True(t, got.LessThanOrEqual(total))
	assert.True(t, got.Equal(total))
}

// ===== PointsForDiscount =====

func TestPointsCalculator_PointsForDiscount(t *testing.T) {
	calc := newDefaultCalculator(t)

	assert.Equal(t, 1000, calc.PointsForDiscount(decimal.NewFromInt(100)))
	assert.Equal(t, 167, calc.PointsForDiscount(decimal.RequireFromString("16.66")))
	assert.Equal(t, 0, calc.PointsForDiscount(decimal.Zero))
}

func TestPointsCalculator_PointsForDiscount_NeverExceedsSuppliedPoints(t *testing.T) {
	calc := newDefaultCalculator(t)

	for _, tc := range []struct {
		points int
		total  string
	}{
		{1000, "33.335"},
		{109, "1000"},
		{250, "0.99"},
		{100, "7.01"},
	} {
		discount := calc.DiscountFromPoints(tc.points, decimal.RequireFromString(tc.total))
		assert.LessOrEqual(t, calc.PointsForDiscount(discount), tc.points, "points=%d total=%s", tc.points, tc.total)
	}
}

// ===== Policy 驗證 =====

func TestNewPointsCalculator_InvalidPolicy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *loyalty.PointsPolicy)
	}{
		{"折抵比例為零", func(p *loyalty.PointsPolicy) { p.PointsPerUnitDiscount = 0 }},
		{"折抵上限超過 100%", func(p *loyalty.PointsPolicy) { p.MaxDiscountPercentage = decimal.NewFromInt(101) }},
		{"最低兌換為零", func(p *loyalty.PointsPolicy) { p.MinPointsToRedeem = 0 }},
		{"有效天數為零", func(p *loyalty.PointsPolicy) { p.PointsExpirationDays = 0 }},
		{"每元積分為零", func(p *loyalty.PointsPolicy) { p.PointsPerCurrencyUnit = decimal.Zero }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := loyalty.DefaultPointsPolicy()
			tt.mutate(&policy)

			calc, err := loyalty.NewPointsCalculator(policy, loyalty.DefaultTierPolicy())

			assert.Nil(t, calc)
			assert.ErrorIs(t, err, loyalty.ErrValidation)
		})
	}
}

func TestNewPointsCalculator_NilTierPolicy(t *testing.T) {
	_, err := loyalty.NewPointsCalculator(loyalty.DefaultPointsPolicy(), nil)
	assert.ErrorIs(t, err, loyalty.ErrInvalidTierPolicy)
}
