package loyalty

import "fmt"

// ===========================
// 錯誤代碼定義
// ===========================

// ErrorCode 錯誤代碼類型
type ErrorCode string

const (
	// 輸入驗證（寫入前拒絕，不自動重試）
	ErrCodeValidation          ErrorCode = "LEDGER_VALIDATION"
	ErrCodeNegativePoints      ErrorCode = "POINTS_NEGATIVE"
	ErrCodeInvalidTierPolicy   ErrorCode = "TIER_POLICY_INVALID"
	ErrCodeInvalidPhoneNumber  ErrorCode = "PHONE_NUMBER_INVALID"
	ErrCodeInvalidDisplayName  ErrorCode = "DISPLAY_NAME_INVALID"
	ErrCodeInvalidCustomerID   ErrorCode = "CUSTOMER_ID_INVALID"
	ErrCodeInvalidOrderID      ErrorCode = "ORDER_ID_INVALID"
	ErrCodeInvalidReferralID   ErrorCode = "REFERRAL_ID_INVALID"
	ErrCodeInvalidEntryID      ErrorCode = "LEDGER_ENTRY_ID_INVALID"
	ErrCodeInvalidTransferID   ErrorCode = "TRANSFER_ID_INVALID"
	ErrCodeSelfReferral        ErrorCode = "REFERRAL_SELF"
	ErrCodeSelfTransfer        ErrorCode = "TRANSFER_SELF"
	ErrCodeCorruptedData       ErrorCode = "DATA_CORRUPTED"

	// 使用者可見的業務規則錯誤
	ErrCodeInsufficientBalance     ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeBelowMinimumRedemption  ErrorCode = "BELOW_MINIMUM_REDEMPTION"
	ErrCodeInvalidOrderContext     ErrorCode = "INVALID_ORDER_CONTEXT"
	ErrCodeOrderNotCompleted       ErrorCode = "ORDER_NOT_COMPLETED"
	ErrCodePointsAlreadyAwarded    ErrorCode = "POINTS_ALREADY_AWARDED"
	ErrCodePointsAlreadyRedeemed   ErrorCode = "POINTS_ALREADY_REDEEMED"
	ErrCodeReferralAlreadyComplete ErrorCode = "REFERRAL_ALREADY_COMPLETED"
	ErrCodeReferrerAlreadySet      ErrorCode = "REFERRER_ALREADY_SET"

	// 交易衝突
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	ErrCodeTransientFailure       ErrorCode = "TRANSIENT_FAILURE"
)

// ===========================
// DomainError 結構
// ===========================

// DomainError 領域錯誤
//
// Code 用於 errors.Is 判斷與 HTTP 狀態碼映射，Context 用於日誌。
type DomainError struct {
	Code    ErrorCode
	Message string
	Context map[string]interface{}
}

// Error 實現 error 接口
func (e *DomainError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s (context: %+v)", e.Code, e.Message, e.Context)
}

// WithContext 添加上下文信息（返回新的錯誤實例）
func (e *DomainError) WithContext(keyValues ...interface{}) error {
	if len(keyValues)%2 != 0 {
		panic("WithContext requires even number of arguments (key-value pairs)")
	}

	ctx := make(map[string]interface{}, len(e.Context)+len(keyValues)/2)
	for k, v := range e.Context {
		ctx[k] = v
	}
	for i := 0; i < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			panic(fmt.Sprintf("context key must be string, got %T", keyValues[i]))
		}
		ctx[key] = keyValues[i+1]
	}

	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Context: ctx,
	}
}

// Is 實現 errors.Is 接口（以錯誤代碼判斷）
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ===========================
// 預定義錯誤
// ===========================

// 驗證錯誤
var (
	ErrValidation = &DomainError{
		Code:    ErrCodeValidation,
		Message: "帳本輸入無效",
	}

	ErrNegativePointsAmount = &DomainError{
		Code:    ErrCodeNegativePoints,
		Message: "積分數量不能為負數",
	}

	ErrInvalidTierPolicy = &DomainError{
		Code:    ErrCodeInvalidTierPolicy,
		Message: "會員等級門檻設定無效",
	}

	ErrInvalidPhoneNumber = &DomainError{
		Code:    ErrCodeInvalidPhoneNumber,
		Message: "無效的手機號碼",
	}

	ErrInvalidDisplayName = &DomainError{
		Code:    ErrCodeInvalidDisplayName,
		Message: "顯示名稱不能為空",
	}

	ErrInvalidCustomerID = &DomainError{
		Code:    ErrCodeInvalidCustomerID,
		Message: "無效的顧客 ID",
	}

	ErrInvalidOrderID = &DomainError{
		Code:    ErrCodeInvalidOrderID,
		Message: "無效的訂單 ID",
	}

	ErrInvalidReferralID = &DomainError{
		Code:    ErrCodeInvalidReferralID,
		Message: "無效的推薦 ID",
	}

	ErrInvalidLedgerEntryID = &DomainError{
		Code:    ErrCodeInvalidEntryID,
		Message: "無效的帳本分錄 ID",
	}

	ErrInvalidTransferID = &DomainError{
		Code:    ErrCodeInvalidTransferID,
		Message: "無效的轉帳 ID",
	}

	ErrSelfReferral = &DomainError{
		Code:    ErrCodeSelfReferral,
		Message: "顧客不能推薦自己",
	}

	ErrSelfTransfer = &DomainError{
		Code:    ErrCodeSelfTransfer,
		Message: "不能轉帳給自己",
	}

	ErrCorruptedData = &DomainError{
		Code:    ErrCodeCorruptedData,
		Message: "資料庫中的資料違反不變條件",
	}
)

// 業務規則錯誤
var (
	ErrInsufficientBalance = &DomainError{
		Code:    ErrCodeInsufficientBalance,
		Message: "積分餘額不足",
	}

	ErrBelowMinimumRedemption = &DomainError{
		Code:    ErrCodeBelowMinimumRedemption,
		Message: "兌換積分低於最低門檻",
	}

	ErrInvalidOrderContext = &DomainError{
		Code:    ErrCodeInvalidOrderContext,
		Message: "訂單金額必須大於零",
	}

	ErrOrderNotCompleted = &DomainError{
		Code:    ErrCodeOrderNotCompleted,
		Message: "訂單尚未完成",
	}

	ErrPointsAlreadyAwarded = &DomainError{
		Code:    ErrCodePointsAlreadyAwarded,
		Message: "訂單積分已發放",
	}

	ErrPointsAlreadyRedeemed = &DomainError{
		Code:    ErrCodePointsAlreadyRedeemed,
		Message: "訂單已套用積分折抵",
	}

	ErrReferralAlreadyCompleted = &DomainError{
		Code:    ErrCodeReferralAlreadyComplete,
		Message: "推薦獎勵已完成",
	}

	ErrReferrerAlreadySet = &DomainError{
		Code:    ErrCodeReferrerAlreadySet,
		Message: "推薦人已設定，不可變更",
	}
)

// 交易衝突錯誤
var (
	// ErrConcurrentModification 樂觀鎖版本不符或條件更新落空（可重試）
	ErrConcurrentModification = &DomainError{
		Code:    ErrCodeConcurrentModification,
		Message: "資料已被其他交易修改",
	}

	// ErrTransientFailure 重試次數用盡後對外暴露的暫時性錯誤
	ErrTransientFailure = &DomainError{
		Code:    ErrCodeTransientFailure,
		Message: "交易衝突，請稍後再試",
	}
)
