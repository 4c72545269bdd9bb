package loyalty

import (
	"fmt"
	"regexp"
	"strings"
)

// ===========================
// PointsAmount 值對象
// ===========================

// PointsAmount 積分數量值對象（不可變、自我驗證，永遠 >= 0）
//
// 帳本分錄的正負號由 EntryType 決定，PointsAmount 只表達「多少點」。
type PointsAmount struct {
	value int
}

// NewPointsAmount 建構函數（checked 版本）
func NewPointsAmount(value int) (PointsAmount, error) {
	if value < 0 {
		return PointsAmount{}, fmt.Errorf(
			"%w: attempted to create PointsAmount with value %d",
			ErrNegativePointsAmount,
			value,
		)
	}
	return PointsAmount{value: value}, nil
}

// newPointsAmountUnchecked 內部建構函數，調用者保證 value >= 0
func newPointsAmountUnchecked(value int) PointsAmount {
	return PointsAmount{value: value}
}

// Value 獲取積分數量
func (p PointsAmount) Value() int {
	return p.value
}

// IsZero 是否為零
func (p PointsAmount) IsZero() bool {
	return p.value == 0
}

// Add 相加
func (p PointsAmount) Add(other PointsAmount) PointsAmount {
	return newPointsAmountUnchecked(p.value + other.value)
}

// Subtract 相減；不足時返回 ErrInsufficientBalance
func (p PointsAmount) Subtract(other PointsAmount) (PointsAmount, error) {
	if p.value < other.value {
		return PointsAmount{}, ErrInsufficientBalance.WithContext(
			"available", p.value,
			"requested", other.value,
		)
	}
	return newPointsAmountUnchecked(p.value - other.value), nil
}

// Equals 比較兩個 PointsAmount 是否相等
func (p PointsAmount) Equals(other PointsAmount) bool {
	return p.value == other.value
}

// GreaterThan 判斷是否大於另一個 PointsAmount
func (p PointsAmount) GreaterThan(other PointsAmount) bool {
	return p.value > other.value
}

// LessThan 判斷是否小於另一個 PointsAmount
func (p PointsAmount) LessThan(other PointsAmount) bool {
	return p.value < other.value
}

// ===========================
// PhoneNumber 值對象
// ===========================

// PhoneNumber 顧客手機號碼（印度行動電話）
//
// 接受 "9876543210"、"+91 98765 43210"、"091-98765-43210" 等寫法，
// 統一正規化為 10 位數字，首位為 6-9。
type PhoneNumber struct {
	value string
}

var indianMobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

// NewPhoneNumber 建構函數（Checked Constructor）
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	normalized := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	normalized = strings.TrimPrefix(normalized, "+91")
	if len(normalized) == 11 && strings.HasPrefix(normalized, "0") {
		normalized = normalized[1:]
	}
	if !indianMobilePattern.MatchString(normalized) {
		return PhoneNumber{}, ErrInvalidPhoneNumber.WithContext(
			"phone", raw,
			"reason", "must be a 10 digit mobile number starting with 6-9",
		)
	}
	return PhoneNumber{value: normalized}, nil
}

// String 正規化後的號碼
func (p PhoneNumber) String() string {
	return p.value
}

// Equals 值相等
func (p PhoneNumber) Equals(other PhoneNumber) bool {
	return p.value == other.value
}

// IsZero 是否未設定
func (p PhoneNumber) IsZero() bool {
	return p.value == ""
}
