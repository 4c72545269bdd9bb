package httpapi

import (
	"errors"
	"net/http"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"go.uber.org/zap"
)

// ErrorResponse 錯誤回應
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeInternal       = "INTERNAL_ERROR"
)

// statusByCode 錯誤代碼 → HTTP 狀態碼；未列出的一律 500
var statusByCode = map[loyalty.ErrorCode]int{
	loyalty.ErrCodeValidation:             http.StatusBadRequest,
	loyalty.ErrCodeNegativePoints:         http.StatusBadRequest,
	loyalty.ErrCodeInvalidPhoneNumber:     http.StatusBadRequest,
	loyalty.ErrCodeInvalidDisplayName:     http.StatusBadRequest,
	loyalty.ErrCodeInvalidCustomerID:      http.StatusBadRequest,
	loyalty.ErrCodeInvalidOrderID:         http.StatusBadRequest,
	loyalty.ErrCodeInvalidReferralID:      http.StatusBadRequest,
	loyalty.ErrCodeInvalidEntryID:         http.StatusBadRequest,
	loyalty.ErrCodeInvalidTransferID:      http.StatusBadRequest,
	loyalty.ErrCodeSelfReferral:           http.StatusBadRequest,
	loyalty.ErrCodeSelfTransfer:           http.StatusBadRequest,
	loyalty.ErrCodeInsufficientBalance:    http.StatusBadRequest,
	loyalty.ErrCodeBelowMinimumRedemption: http.StatusBadRequest,
	loyalty.ErrCodeInvalidOrderContext:    http.StatusBadRequest,
	loyalty.ErrCodeOrderNotCompleted:      http.StatusBadRequest,

	loyalty.ErrCodeCustomerNotFound: http.StatusNotFound,
	loyalty.ErrCodeOrderNotFound:    http.StatusNotFound,
	loyalty.ErrCodeReferralNotFound: http.StatusNotFound,

	loyalty.ErrCodeCustomerAlreadyExists:   http.StatusConflict,
	loyalty.ErrCodeOrderAlreadyExists:      http.StatusConflict,
	loyalty.ErrCodeReferralAlreadyExists:   http.StatusConflict,
	loyalty.ErrCodePointsAlreadyAwarded:    http.StatusConflict,
	loyalty.ErrCodePointsAlreadyRedeemed:   http.StatusConflict,
	loyalty.ErrCodeReferralAlreadyComplete: http.StatusConflict,
	loyalty.ErrCodeReferrerAlreadySet:      http.StatusConflict,
	loyalty.ErrCodeConcurrentModification:  http.StatusConflict,

	loyalty.ErrCodeTransientFailure: http.StatusServiceUnavailable,
}

// errorResponse 將錯誤映射為狀態碼與回應內容
func errorResponse(err error) (int, ErrorResponse) {
	var domainErr *loyalty.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrorResponse{Code: codeInternal, Message: "internal error"}
	}

	status, ok := statusByCode[domainErr.Code]
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Code: codeInternal, Message: "internal error"}
	}
	return status, ErrorResponse{Code: string(domainErr.Code), Message: domainErr.Message}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: codeInvalidRequest, Message: message})
}
