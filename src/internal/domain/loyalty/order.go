package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 訂單狀態（由 Order Service 維護）
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus 從字串解析訂單狀態
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return status, nil
	}
	return "", ErrValidation.WithContext("field", "orderStatus", "value", s)
}

// ===========================
// Order（外部聚合的積分視角）
// ===========================

// Order 本服務只讀寫訂單的積分欄位
//
// loyaltyPointsEarned：發放積分的冪等標記，寫入一次
// loyaltyPointsRedeemed / loyaltyDiscount：結帳時寫入，之後不可變更
type Order struct {
	orderID    OrderID
	customerID CustomerID
	total      decimal.Decimal
	status     OrderStatus

	loyaltyPointsEarned   int
	loyaltyPointsRedeemed int
	loyaltyDiscount       decimal.Decimal

	createdAt time.Time
	updatedAt time.Time
}

// NewPendingOrder 建立結帳中的訂單（customerID 可為空，代表訪客）
func NewPendingOrder(orderID OrderID, customerID CustomerID, total decimal.Decimal) (*Order, error) {
	if orderID.IsEmpty() {
		return nil, ErrInvalidOrderID.WithContext("reason", "order id is required")
	}
	if !total.IsPositive() {
		return nil, ErrInvalidOrderContext.WithContext("orderID", orderID.String(), "total", total.String())
	}

	now := time.Now().UTC()
	return &Order{
		orderID:         orderID,
		customerID:      customerID,
		total:           total,
		status:          OrderStatusPending,
		loyaltyDiscount: decimal.Zero,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructOrder 從持久化存儲重建（僅供 Infrastructure Layer 使用）
func ReconstructOrder(
	orderID OrderID,
	customerID CustomerID,
	total decimal.Decimal,
	status OrderStatus,
	loyaltyPointsEarned int,
	loyaltyPointsRedeemed int,
	loyaltyDiscount decimal.Decimal,
	createdAt time.Time,
	updatedAt time.Time,
) (*Order, error) {
	if _, err := ParseOrderStatus(string(status)); err != nil {
		return nil, ErrCorruptedData.WithContext("orderID", orderID.String(), "status", string(status))
	}
	if loyaltyPointsEarned < 0 || loyaltyPointsRedeemed < 0 || loyaltyDiscount.IsNegative() {
		return nil, ErrCorruptedData.WithContext(
			"orderID", orderID.String(),
			"loyaltyPointsEarned", loyaltyPointsEarned,
			"loyaltyPointsRedeemed", loyaltyPointsRedeemed,
		)
	}

	return &Order{
		orderID:               orderID,
		customerID:            customerID,
		total:                 total,
		status:                status,
		loyaltyPointsEarned:   loyaltyPointsEarned,
		loyaltyPointsRedeemed: loyaltyPointsRedeemed,
		loyaltyDiscount:       loyaltyDiscount,
		createdAt:             createdAt,
		updatedAt:             updatedAt,
	}, nil
}

// ID 訂單 ID
func (o *Order) ID() OrderID { return o.orderID }

// CustomerID 顧客（可能為空）
func (o *Order) CustomerID() CustomerID { return o.customerID }

// HasCustomer 是否有關聯顧客
func (o *Order) HasCustomer() bool { return !o.customerID.IsEmpty() }

// Total 訂單金額
func (o *Order) Total() decimal.Decimal { return o.total }

// Status 訂單狀態
func (o *Order) Status() OrderStatus { return o.status }

// IsCompleted 是否已完成
func (o *Order) IsCompleted() bool { return o.status == OrderStatusCompleted }

// LoyaltyPointsEarned 已發放積分（冪等標記）
func (o *Order) LoyaltyPointsEarned() int { return o.loyaltyPointsEarned }

// LoyaltyPointsRedeemed 結帳時折抵的積分
func (o *Order) LoyaltyPointsRedeemed() int { return o.loyaltyPointsRedeemed }

// LoyaltyDiscount 積分折抵金額
func (o *Order) LoyaltyDiscount() decimal.Decimal { return o.loyaltyDiscount }

// IsPointsAwarded 積分是否已發放
func (o *Order) IsPointsAwarded() bool { return o.loyaltyPointsEarned > 0 }

// CreatedAt 建立時間
func (o *Order) CreatedAt() time.Time { return o.createdAt }

// UpdatedAt 最後更新時間
func (o *Order) UpdatedAt() time.Time { return o.updatedAt }

// ApplyRedemption 記錄結帳時的積分折抵（只能寫入一次）
func (o *Order) ApplyRedemption(points int, discount decimal.Decimal) error {
	if o.loyaltyPointsRedeemed > 0 {
		return ErrPointsAlreadyRedeemed.WithContext(
			"orderID", o.orderID.String(),
			"redeemed", o.loyaltyPointsRedeemed,
		)
	}
	if points <= 0 || !discount.IsPositive() || discount.GreaterThan(o.total) {
		return ErrValidation.WithContext(
			"orderID", o.orderID.String(),
			"points", points,
			"discount", discount.String(),
		)
	}

	o.loyaltyPointsRedeemed = points
	o.loyaltyDiscount = discount
	o.updatedAt = time.Now().UTC()
	return nil
}

// MarkPointsEarned 寫入發放積分標記（只能寫入一次）
func (o *Order) MarkPointsEarned(points int) error {
	if o.IsPointsAwarded() {
		return ErrPointsAlreadyAwarded.WithContext(
			"orderID", o.orderID.String(),
			"earned", o.loyaltyPointsEarned,
		)
	}
	if points <= 0 {
		return ErrValidation.WithContext("orderID", o.orderID.String(), "points", points)
	}

	o.loyaltyPointsEarned = points
	o.updatedAt = time.Now().UTC()
	return nil
}

// Complete 標記訂單完成（供 Order Service 介面與測試使用）
func (o *Order) Complete() error {
	if o.status == OrderStatusCancelled {
		return ErrValidation.WithContext("orderID", o.orderID.String(), "reason", "cancelled order cannot complete")
	}
	o.status = OrderStatusCompleted
	o.updatedAt = time.Now().UTC()
	return nil
}
