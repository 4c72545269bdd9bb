package loyalty

import (
	"github.com/shopspring/decimal"
)

// ===========================
// Tier 會員等級
// ===========================

// Tier 會員等級（由累積積分推導，不單獨設定）
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// ParseTier 從字串解析等級
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", ErrValidation.WithContext("tier", s, "reason", "unknown tier")
	}
	return t, nil
}

// IsValid 是否為已知等級
func (t Tier) IsValid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
		return true
	}
	return false
}

// Rank 等級順序（BRONZE=0）
func (t Tier) Rank() int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	}
	return 0
}

// String 實現 fmt.Stringer
func (t Tier) String() string {
	return string(t)
}

// TierBenefits 等級權益
type TierBenefits struct {
	DiscountPercentage decimal.Decimal // 會員折扣（%）
	PointsMultiplier   decimal.Decimal // 積分倍率（>= 1.0）
}

// ===========================
// TierPolicy 等級政策（純函數，無 I/O）
// ===========================

// TierPolicyConfig 等級門檻與權益設定
type TierPolicyConfig struct {
	SilverThreshold   int
	GoldThreshold     int
	PlatinumThreshold int
	Benefits          map[Tier]TierBenefits
}

// TierPolicy 將累積積分映射為等級
//
// 門檻遞增且互不重疊：
// BRONZE < SilverThreshold <= SILVER < GoldThreshold <= GOLD < PlatinumThreshold <= PLATINUM
type TierPolicy struct {
	silverThreshold   int
	goldThreshold     int
	platinumThreshold int
	benefits          map[Tier]TierBenefits
}

// DefaultTierPolicyConfig 預設門檻：1000 / 5000 / 10000
func DefaultTierPolicyConfig() TierPolicyConfig {
	return TierPolicyConfig{
		SilverThreshold:   1000,
		GoldThreshold:     5000,
		PlatinumThreshold: 10000,
		Benefits: map[Tier]TierBenefits{
			TierBronze:   {DiscountPercentage: decimal.Zero, PointsMultiplier: decimal.NewFromInt(1)},
			TierSilver:   {DiscountPercentage: decimal.NewFromInt(5), PointsMultiplier: decimal.RequireFromString("1.25")},
			TierGold:     {DiscountPercentage: decimal.NewFromInt(10), PointsMultiplier: decimal.RequireFromString("1.5")},
			TierPlatinum: {DiscountPercentage: decimal.NewFromInt(15), PointsMultiplier: decimal.NewFromInt(2)},
		},
	}
}

// DefaultTierPolicy 使用預設設定的 TierPolicy
func DefaultTierPolicy() *TierPolicy {
	policy, err := NewTierPolicy(DefaultTierPolicyConfig())
	if err != nil {
		panic(err)
	}
	return policy
}

// NewTierPolicy 建構函數
//
// 錯誤：門檻非嚴格遞增、缺少任一等級權益、倍率 < 1 或折扣不在 0-100 → ErrInvalidTierPolicy
func NewTierPolicy(cfg TierPolicyConfig) (*TierPolicy, error) {
	if cfg.SilverThreshold <= 0 ||
		cfg.GoldThreshold <= cfg.SilverThreshold ||
		cfg.PlatinumThreshold <= cfg.GoldThreshold {
		return nil, ErrInvalidTierPolicy.WithContext(
			"silver", cfg.SilverThreshold,
			"gold", cfg.GoldThreshold,
			"platinum", cfg.PlatinumThreshold,
			"reason", "thresholds must be positive and strictly ascending",
		)
	}

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	benefits := make(map[Tier]TierBenefits, 4)
	for _, tier := range []Tier{TierBronze, TierSilver, TierGold, TierPlatinum} {
		b, ok := cfg.Benefits[tier]
		if !ok {
			return nil, ErrInvalidTierPolicy.WithContext("tier", tier, "reason", "missing benefits")
		}
		if b.PointsMultiplier.LessThan(one) {
			return nil, ErrInvalidTierPolicy.WithContext("tier", tier, "reason", "multiplier must be >= 1.0")
		}
		if b.DiscountPercentage.IsNegative() || b.DiscountPercentage.GreaterThan(hundred) {
			return nil, ErrInvalidTierPolicy.WithContext("tier", tier, "reason", "discount must be within 0-100")
		}
		benefits[tier] = b
	}

	return &TierPolicy{
		silverThreshold:   cfg.SilverThreshold,
		goldThreshold:     cfg.GoldThreshold,
		platinumThreshold: cfg.PlatinumThreshold,
		benefits:          benefits,
	}, nil
}

// TierFor 累積積分 → 等級（total function，負數視為 0）
func (p *TierPolicy) TierFor(totalPoints int) Tier {
	switch {
	case totalPoints >= p.platinumThreshold:
		return TierPlatinum
	case totalPoints >= p.goldThreshold:
		return TierGold
	case totalPoints >= p.silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// Benefits 等級權益；未知等級視為 BRONZE
func (p *TierPolicy) Benefits(t Tier) TierBenefits {
	if b, ok := p.benefits[t]; ok {
		return b
	}
	return p.benefits[TierBronze]
}

// NextThreshold 下一等級門檻；已是最高等級返回 (0, false)
func (p *TierPolicy) NextThreshold(t Tier) (int, bool) {
	switch t {
	case TierBronze:
		return p.silverThreshold, true
	case TierSilver:
		return p.goldThreshold, true
	case TierGold:
		return p.platinumThreshold, true
	}
	return 0, false
}
