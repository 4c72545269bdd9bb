package shared

import (
	"strings"

	"github.com/google/uuid"
)

// ===========================
// EntityID[T] 泛型實體 ID
// ===========================

// EntityID 泛型實體 ID 值對象
//
// 泛型參數 T 為標記類型（marker type），僅用於編譯期區分：
// EntityID[CustomerMarker] 與 EntityID[OrderMarker] 是不同類型，不能混用。
//
// 使用範例：
//
//	type CustomerMarker struct{}
//	type CustomerID = shared.EntityID[CustomerMarker]
//
//	id := shared.NewEntityID[CustomerMarker]()
//	id, err := shared.EntityIDFromString[CustomerMarker](s, ErrInvalidCustomerID)
type EntityID[T any] struct {
	value uuid.UUID
}

// NewEntityID 生成新的實體 ID（UUID v4）
func NewEntityID[T any]() EntityID[T] {
	return EntityID[T]{value: uuid.New()}
}

// EntityIDFromString 從字串解析實體 ID
//
// errTemplate 由調用者提供（例如 loyalty.ErrInvalidCustomerID），
// 若支援 WithContext 則附加輸入值與解析錯誤。
func EntityIDFromString[T any](s string, errTemplate error) (EntityID[T], error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		if domainErr, ok := errTemplate.(interface {
			WithContext(keyValues ...interface{}) error
		}); ok {
			return EntityID[T]{}, domainErr.WithContext(
				"input", s,
				"parse_error", err.Error(),
			)
		}
		return EntityID[T]{}, errTemplate
	}
	if id == uuid.Nil {
		return EntityID[T]{}, errTemplate
	}
	return EntityID[T]{value: id}, nil
}

// String 小寫 UUID 字串；空 ID 返回空字串
func (e EntityID[T]) String() string {
	if e.IsEmpty() {
		return ""
	}
	return e.value.String()
}

// Equals 比較兩個同類型 ID
func (e EntityID[T]) Equals(other EntityID[T]) bool {
	return e.value == other.value
}

// IsEmpty 是否為零值
func (e EntityID[T]) IsEmpty() bool {
	return e.value == uuid.Nil
}

// Compare 以字串順序比較，返回 -1、0、1
//
// 用於需要固定順序鎖定多筆記錄的場景（例如積分轉帳同時鎖兩個顧客）。
func (e EntityID[T]) Compare(other EntityID[T]) int {
	return strings.Compare(e.value.String(), other.value.String())
}
