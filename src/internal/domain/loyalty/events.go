package loyalty

import (
	"time"

	"github.com/google/uuid"
)

// ===========================
// 領域事件
// ===========================

// 事件類型常數（亦作為 Prometheus label 與日誌欄位）
const (
	EventTypeCustomerRegistered = "loyalty.customer_registered"
	EventTypePointsCredited     = "loyalty.points_credited"
	EventTypePointsDebited      = "loyalty.points_debited"
	EventTypeTierChanged        = "loyalty.tier_changed"
	EventTypeReferralCompleted  = "loyalty.referral_completed"
)

// baseEvent 共用欄位，實現 shared.DomainEvent
type baseEvent struct {
	eventID     string
	eventType   string
	aggregateID string
	occurredAt  time.Time
}

func newBaseEvent(eventType, aggregateID string) baseEvent {
	return baseEvent{
		eventID:     uuid.New().String(),
		eventType:   eventType,
		aggregateID: aggregateID,
		occurredAt:  time.Now().UTC(),
	}
}

// EventID 實現 DomainEvent 介面
func (e baseEvent) EventID() string { return e.eventID }

// EventType 實現 DomainEvent 介面
func (e baseEvent) EventType() string { return e.eventType }

// OccurredAt 實現 DomainEvent 介面
func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

// AggregateID 實現 DomainEvent 介面
func (e baseEvent) AggregateID() string { return e.aggregateID }

// CustomerRegisteredEvent 顧客註冊事件
type CustomerRegisteredEvent struct {
	baseEvent
	CustomerID CustomerID
	ReferredBy CustomerID
}

// NewCustomerRegisteredEvent 建立顧客註冊事件
func NewCustomerRegisteredEvent(customerID, referredBy CustomerID) *CustomerRegisteredEvent {
	return &CustomerRegisteredEvent{
		baseEvent:  newBaseEvent(EventTypeCustomerRegistered, customerID.String()),
		CustomerID: customerID,
		ReferredBy: referredBy,
	}
}

// PointsCreditedEvent 入帳事件
type PointsCreditedEvent struct {
	baseEvent
	CustomerID CustomerID
	Amount     int
	EntryType  EntryType
	NewBalance int
}

// NewPointsCreditedEvent 建立入帳事件
func NewPointsCreditedEvent(customerID CustomerID, amount int, entryType EntryType, newBalance int) *PointsCreditedEvent {
	return &PointsCreditedEvent{
		baseEvent:  newBaseEvent(EventTypePointsCredited, customerID.String()),
		CustomerID: customerID,
		Amount:     amount,
		EntryType:  entryType,
		NewBalance: newBalance,
	}
}

// PointsDebitedEvent 扣帳事件
type PointsDebitedEvent struct {
	baseEvent
	CustomerID CustomerID
	Amount     int
	EntryType  EntryType
	NewBalance int
}

// NewPointsDebitedEvent 建立扣帳事件
func NewPointsDebitedEvent(customerID CustomerID, amount int, entryType EntryType, newBalance int) *PointsDebitedEvent {
	return &PointsDebitedEvent{
		baseEvent:  newBaseEvent(EventTypePointsDebited, customerID.String()),
		CustomerID: customerID,
		Amount:     amount,
		EntryType:  entryType,
		NewBalance: newBalance,
	}
}

// TierChangedEvent 等級變更事件（只會升級）
type TierChangedEvent struct {
	baseEvent
	CustomerID CustomerID
	From       Tier
	To         Tier
}

// NewTierChangedEvent 建立等級變更事件
func NewTierChangedEvent(customerID CustomerID, from, to Tier) *TierChangedEvent {
	return &TierChangedEvent{
		baseEvent:  newBaseEvent(EventTypeTierChanged, customerID.String()),
		CustomerID: customerID,
		From:       from,
		To:         to,
	}
}

// ReferralCompletedEvent 推薦完成事件
type ReferralCompletedEvent struct {
	baseEvent
	ReferralID     ReferralID
	ReferrerID     CustomerID
	ReferredID     CustomerID
	FirstOrderID   OrderID
	ReferrerPoints int
	ReferredPoints int
}

// NewReferralCompletedEvent 建立推薦完成事件
func NewReferralCompletedEvent(r *Referral) *ReferralCompletedEvent {
	return &ReferralCompletedEvent{
		baseEvent:      newBaseEvent(EventTypeReferralCompleted, r.ID().String()),
		ReferralID:     r.ID(),
		ReferrerID:     r.ReferrerID(),
		ReferredID:     r.ReferredID(),
		FirstOrderID:   r.FirstOrderID(),
		ReferrerPoints: r.ReferrerPointsAwarded(),
		ReferredPoints: r.ReferredPointsAwarded(),
	}
}
