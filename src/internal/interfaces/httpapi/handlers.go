package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/award"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/customer"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/redemption"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/referral"
)

// ===========================
// 顧客
// ===========================

// RegisterCustomer POST /api/v1/customers
func (s *Server) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req RegisterCustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid payload")
		return
	}

	result, err := s.uc.RegisterCustomer.Execute(r.Context(), customer.RegisterCustomerCommand{
		DisplayName:         req.DisplayName,
		PhoneNumber:         req.PhoneNumber,
		ReferrerID:          req.ReferrerID,
		ReferrerPhoneNumber: req.ReferrerPhoneNumber,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterCustomerResponse{
		CustomerID: result.CustomerID,
		ReferredBy: result.ReferredBy,
		ReferralID: result.ReferralID,
		Tier:       result.Tier,
	})
}

// GetBalance GET /api/v1/customers/{id}/balance
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	result, err := s.uc.GetBalance.Execute(r.Context(), ledger.GetBalanceQuery{
		CustomerID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		CustomerID:         result.CustomerID,
		PointsBalance:      result.PointsBalance,
		LifetimePoints:     result.LifetimePoints,
		Tier:               result.Tier,
		DiscountPercentage: result.DiscountPercentage,
		PointsMultiplier:   result.PointsMultiplier,
		NextTier:           result.NextTier,
		PointsToNextTier:   result.PointsToNextTier,
	})
}

// GetReferral GET /api/v1/customers/{id}/referral
func (s *Server) GetReferral(w http.ResponseWriter, r *http.Request) {
	result, err := s.uc.GetReferral.Execute(referral.GetPendingReferralQuery{
		CustomerID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ReferralResponse{
		ReferralID: result.ReferralID,
		ReferrerID: result.ReferrerID,
		ReferredID: result.ReferredID,
		Status:     result.Status,
		CreatedAt:  result.CreatedAt,
	})
}

// GetLedger GET /api/v1/customers/{id}/ledger?limit=
func (s *Server) GetLedger(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	result, err := s.uc.GetHistory.Execute(ledger.GetLedgerHistoryQuery{
		CustomerID: chi.URLParam(r, "id"),
		Limit:      limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries := make([]LedgerEntryResponse, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, LedgerEntryResponse{
			EntryID:     e.EntryID,
			Points:      e.Points,
			Type:        e.Type,
			Status:      e.Status,
			OrderID:     e.OrderID,
			ReferralID:  e.ReferralID,
			TransferID:  e.TransferID,
			Description: e.Description,
			ExpiresAt:   e.ExpiresAt,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, LedgerResponse{CustomerID: result.CustomerID, Entries: entries})
}

// ===========================
// 積分異動
// ===========================

// CreditPoints POST /api/v1/customers/{id}/credits
func (s *Server) CreditPoints(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid payload")
		return
	}

	result, err := s.uc.CreditPoints.Execute(r.Context(), ledger.CreditPointsCommand{
		CustomerID:    chi.URLParam(r, "id"),
		Points:        req.Points,
		Type:          req.Type,
		OrderID:       req.OrderID,
		Description:   req.Description,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreditResponse{
		CustomerID:     result.CustomerID,
		Credited:       result.Credited,
		NewBalance:     result.NewBalance,
		LifetimePoints: result.LifetimePoints,
		Tier:           result.Tier,
	})
}

// RedeemPoints POST /api/v1/customers/{id}/redemptions
func (s *Server) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req RedemptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid payload")
		return
	}

	result, err := s.uc.RedeemPoints.Execute(r.Context(), redemption.RedeemPointsCommand{
		CustomerID:        chi.URLParam(r, "id"),
		RequestedPoints:   req.Points,
		PendingOrderTotal: req.OrderTotal,
		OrderID:           req.OrderID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RedemptionResponse{
		OrderID:        result.OrderID,
		Discount:       result.Discount,
		PointsConsumed: result.PointsConsumed,
		NewBalance:     result.NewBalance,
	})
}

// TransferPoints POST /api/v1/customers/{id}/transfers
func (s *Server) TransferPoints(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid payload")
		return
	}

	result, err := s.uc.TransferPoints.Execute(r.Context(), ledger.TransferPointsCommand{
		FromCustomerID: chi.URLParam(r, "id"),
		ToCustomerID:   req.ToCustomerID,
		Points:         req.Points,
		Description:    req.Description,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TransferResponse{
		TransferID:  result.TransferID,
		FromBalance: result.FromBalance,
		ToBalance:   result.ToBalance,
	})
}

// ===========================
// 訂單
// ===========================

// AwardOrder POST /api/v1/orders/{id}/award
//
// 冪等：重複調用返回 200 與 IDEMPOTENT_NOOP。
func (s *Server) AwardOrder(w http.ResponseWriter, r *http.Request) {
	result, err := s.uc.AwardOrder.Execute(r.Context(), award.AwardCommand{
		OrderID: chi.URLParam(r, "id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AwardResponse{
		OrderID:           result.OrderID,
		Outcome:           string(result.Outcome),
		CustomerID:        result.CustomerID,
		PointsEarned:      result.PointsEarned,
		ReferralCompleted: result.ReferralCompleted,
		NewBalance:        result.NewBalance,
		Tier:              result.Tier,
	})
}
