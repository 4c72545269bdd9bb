package loyalty

import (
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// ReferralStatus 推薦狀態：PENDING 為唯一非終態
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "PENDING"
	ReferralStatusCompleted ReferralStatus = "COMPLETED"
)

// IsValid 是否為已知狀態
func (s ReferralStatus) IsValid() bool {
	return s == ReferralStatusPending || s == ReferralStatusCompleted
}

// ===========================
// Referral 聚合根
// ===========================

// Referral 推薦記錄（每位被推薦顧客一筆）
//
// PENDING → COMPLETED 只發生一次；完成時記錄的獎勵點數之後不再重算。
// 沒有到期機制，未完成的推薦永遠停在 PENDING。
type Referral struct {
	referralID ReferralID
	referrerID CustomerID
	referredID CustomerID
	status     ReferralStatus

	firstOrderID          OrderID
	referrerPointsAwarded int
	referredPointsAwarded int
	completedAt           *time.Time

	createdAt time.Time
	updatedAt time.Time

	events []shared.DomainEvent
}

// NewReferral 建立 PENDING 推薦記錄
func NewReferral(referrerID, referredID CustomerID) (*Referral, error) {
	if referrerID.IsEmpty() || referredID.IsEmpty() {
		return nil, ErrInvalidCustomerID.WithContext("reason", "referrer and referred ids are required")
	}
	if referrerID.Equals(referredID) {
		return nil, ErrSelfReferral.WithContext("customerID", referredID.String())
	}

	now := time.Now().UTC()
	return &Referral{
		referralID: NewReferralID(),
		referrerID: referrerID,
		referredID: referredID,
		status:     ReferralStatusPending,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructReferral 從持久化存儲重建（僅供 Infrastructure Layer 使用）
func ReconstructReferral(
	referralID ReferralID,
	referrerID CustomerID,
	referredID CustomerID,
	status ReferralStatus,
	firstOrderID OrderID,
	referrerPointsAwarded int,
	referredPointsAwarded int,
	completedAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) (*Referral, error) {
	if !status.IsValid() || (status == ReferralStatusCompleted && firstOrderID.IsEmpty()) {
		return nil, ErrCorruptedData.WithContext(
			"referralID", referralID.String(),
			"status", string(status),
		)
	}

	return &Referral{
		referralID:            referralID,
		referrerID:            referrerID,
		referredID:            referredID,
		status:                status,
		firstOrderID:          firstOrderID,
		referrerPointsAwarded: referrerPointsAwarded,
		referredPointsAwarded: referredPointsAwarded,
		completedAt:           completedAt,
		createdAt:             createdAt,
		updatedAt:             updatedAt,
	}, nil
}

// ID 推薦 ID
func (r *Referral) ID() ReferralID { return r.referralID }

// ReferrerID 推薦人
func (r *Referral) ReferrerID() CustomerID { return r.referrerID }

// ReferredID 被推薦人
func (r *Referral) ReferredID() CustomerID { return r.referredID }

// Status 狀態
func (r *Referral) Status() ReferralStatus { return r.status }

// IsPending 是否仍待完成
func (r *Referral) IsPending() bool { return r.status == ReferralStatusPending }

// FirstOrderID 觸發完成的首筆訂單
func (r *Referral) FirstOrderID() OrderID { return r.firstOrderID }

// ReferrerPointsAwarded 推薦人獲得的點數（完成時記錄）
func (r *Referral) ReferrerPointsAwarded() int { return r.referrerPointsAwarded }

// ReferredPointsAwarded 被推薦人獲得的點數（完成時記錄）
func (r *Referral) ReferredPointsAwarded() int { return r.referredPointsAwarded }

// CompletedAt 完成時間
func (r *Referral) CompletedAt() *time.Time { return r.completedAt }

// CreatedAt 建立時間
func (r *Referral) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt 最後更新時間
func (r *Referral) UpdatedAt() time.Time { return r.updatedAt }

// Complete PENDING → COMPLETED
func (r *Referral) Complete(firstOrderID OrderID, referrerPoints, referredPoints int) error {
	if !r.IsPending() {
		return ErrReferralAlreadyCompleted.WithContext(
			"referralID", r.referralID.String(),
			"firstOrderID", r.firstOrderID.String(),
		)
	}
	if firstOrderID.IsEmpty() {
		return ErrInvalidOrderID.WithContext("reason", "first order id is required")
	}
	if referrerPoints < 0 || referredPoints < 0 {
		return ErrNegativePointsAmount.WithContext(
			"referrerPoints", referrerPoints,
			"referredPoints", referredPoints,
		)
	}

	now := time.Now().UTC()
	r.status = ReferralStatusCompleted
	r.firstOrderID = firstOrderID
	r.referrerPointsAwarded = referrerPoints
	r.referredPointsAwarded = referredPoints
	r.completedAt = &now
	r.updatedAt = now

	r.events = append(r.events, NewReferralCompletedEvent(r))
	return nil
}

// PullEvents 取出待發布事件並清空
func (r *Referral) PullEvents() []shared.DomainEvent {
	events := r.events
	r.events = nil
	return events
}
