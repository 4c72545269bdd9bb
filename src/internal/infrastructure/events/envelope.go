package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// ===========================
// 事件線上格式
// ===========================

// EventEnvelope 對外發布的事件外層
type EventEnvelope struct {
	EventID     string          `json:"eventId"`
	EventType   string          `json:"eventType"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// CustomerRegisteredPayload 顧客註冊
type CustomerRegisteredPayload struct {
	CustomerID string `json:"customerId"`
	ReferredBy string `json:"referredBy,omitempty"`
}

// PointsMovedPayload 點數入帳或扣除
type PointsMovedPayload struct {
	CustomerID string `json:"customerId"`
	Amount     int    `json:"amount"`
	EntryType  string `json:"entryType"`
	NewBalance int    `json:"newBalance"`
}

// TierChangedPayload 等級變更
type TierChangedPayload struct {
	CustomerID string `json:"customerId"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// ReferralCompletedPayload 推薦完成
type ReferralCompletedPayload struct {
	ReferralID     string `json:"referralId"`
	ReferrerID     string `json:"referrerId"`
	ReferredID     string `json:"referredId"`
	FirstOrderID   string `json:"firstOrderId"`
	ReferrerPoints int    `json:"referrerPoints"`
	ReferredPoints int    `json:"referredPoints"`
}

// NewEnvelope 將領域事件轉為 EventEnvelope
func NewEnvelope(event shared.DomainEvent) (EventEnvelope, error) {
	payload, err := payloadOf(event)
	if err != nil {
		return EventEnvelope{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("encode %s payload: %w", event.EventType(), err)
	}

	return EventEnvelope{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt().UTC(),
		Payload:     raw,
	}, nil
}

func payloadOf(event shared.DomainEvent) (any, error) {
	switch e := event.(type) {
	case *loyalty.CustomerRegisteredEvent:
		p := CustomerRegisteredPayload{CustomerID: e.CustomerID.String()}
		if !e.ReferredBy.IsEmpty() {
			p.ReferredBy = e.ReferredBy.String()
		}
		return p, nil
	case *loyalty.PointsCreditedEvent:
		return PointsMovedPayload{
			CustomerID: e.CustomerID.String(),
			Amount:     e.Amount,
			EntryType:  string(e.EntryType),
			NewBalance: e.NewBalance,
		}, nil
	case *loyalty.PointsDebitedEvent:
		return PointsMovedPayload{
			CustomerID: e.CustomerID.String(),
			Amount:     e.Amount,
			EntryType:  string(e.EntryType),
			NewBalance: e.NewBalance,
		}, nil
	case *loyalty.TierChangedEvent:
		return TierChangedPayload{
			CustomerID: e.CustomerID.String(),
			From:       e.From.String(),
			To:         e.To.String(),
		}, nil
	case *loyalty.ReferralCompletedEvent:
		return ReferralCompletedPayload{
			ReferralID:     e.ReferralID.String(),
			ReferrerID:     e.ReferrerID.String(),
			ReferredID:     e.ReferredID.String(),
			FirstOrderID:   e.FirstOrderID.String(),
			ReferrerPoints: e.ReferrerPoints,
			ReferredPoints: e.ReferredPoints,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported event type %T", event)
	}
}
