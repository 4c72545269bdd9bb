package httpapi

import (
	"time"

	"github.com/shopspring/decimal"
)

// ===========================
// Request / Response DTO
// ===========================

// RegisterCustomerRequest POST /customers
type RegisterCustomerRequest struct {
	DisplayName         string `json:"displayName"`
	PhoneNumber         string `json:"phoneNumber"`
	ReferrerID          string `json:"referrerId,omitempty"`
	ReferrerPhoneNumber string `json:"referrerPhoneNumber,omitempty"`
}

// RegisterCustomerResponse 註冊結果
type RegisterCustomerResponse struct {
	CustomerID string `json:"customerId"`
	ReferredBy string `json:"referredBy,omitempty"`
	ReferralID string `json:"referralId,omitempty"`
	Tier       string `json:"tier"`
}

// BalanceResponse GET /customers/{id}/balance
type BalanceResponse struct {
	CustomerID         string `json:"customerId"`
	PointsBalance      int    `json:"pointsBalance"`
	LifetimePoints     int    `json:"lifetimePoints"`
	Tier               string `json:"tier"`
	DiscountPercentage string `json:"discountPercentage"`
	PointsMultiplier   string `json:"pointsMultiplier"`
	NextTier           string `json:"nextTier,omitempty"`
	PointsToNextTier   int    `json:"pointsToNextTier"`
}

// ReferralResponse GET /customers/{id}/referral
type ReferralResponse struct {
	ReferralID string    `json:"referralId"`
	ReferrerID string    `json:"referrerId"`
	ReferredID string    `json:"referredId"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LedgerEntryResponse 單筆分錄
type LedgerEntryResponse struct {
	EntryID     string     `json:"entryId"`
	Points      int        `json:"points"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	OrderID     string     `json:"orderId,omitempty"`
	ReferralID  string     `json:"referralId,omitempty"`
	TransferID  string     `json:"transferId,omitempty"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LedgerResponse GET /customers/{id}/ledger
type LedgerResponse struct {
	CustomerID string                `json:"customerId"`
	Entries    []LedgerEntryResponse `json:"entries"`
}

// CreditRequest POST /customers/{id}/credits
type CreditRequest struct {
	Points        int    `json:"points"`
	Type          string `json:"type"`
	OrderID       string `json:"orderId,omitempty"`
	Description   string `json:"description,omitempty"`
	ExpiresInDays int    `json:"expiresInDays,omitempty"`
}

// CreditResponse 入帳結果
type CreditResponse struct {
	CustomerID     string `json:"customerId"`
	Credited       int    `json:"credited"`
	NewBalance     int    `json:"newBalance"`
	LifetimePoints int    `json:"lifetimePoints"`
	Tier           string `json:"tier"`
}

// RedemptionRequest POST /customers/{id}/redemptions
//
// OrderTotal 接受字串或數字（"200.50" 或 200.5）。
type RedemptionRequest struct {
	Points     int             `json:"points"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
	OrderID    string          `json:"orderId,omitempty"`
}

// RedemptionResponse 折抵結果；Discount 以字串輸出
type RedemptionResponse struct {
	OrderID        string          `json:"orderId"`
	Discount       decimal.Decimal `json:"discount"`
	PointsConsumed int             `json:"pointsConsumed"`
	NewBalance     int             `json:"newBalance"`
}

// TransferRequest POST /customers/{id}/transfers
type TransferRequest struct {
	ToCustomerID string `json:"toCustomerId"`
	Points       int    `json:"points"`
	Description  string `json:"description,omitempty"`
}

// TransferResponse 移轉結果
type TransferResponse struct {
	TransferID  string `json:"transferId"`
	FromBalance int    `json:"fromBalance"`
	ToBalance   int    `json:"toBalance"`
}

// AwardResponse POST /orders/{id}/award
type AwardResponse struct {
	OrderID           string `json:"orderId"`
	Outcome           string `json:"outcome"`
	CustomerID        string `json:"customerId,omitempty"`
	PointsEarned      int    `json:"pointsEarned"`
	ReferralCompleted bool   `json:"referralCompleted"`
	NewBalance        int    `json:"newBalance"`
	Tier              string `json:"tier,omitempty"`
}

// HealthResponse GET /healthz
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
