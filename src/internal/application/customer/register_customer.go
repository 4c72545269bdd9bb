package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ===========================
// RegisterCustomer Use Case
// ===========================

// RegisterCustomerCommand 註冊顧客指令（Input DTO）
//
// 推薦人以 ReferrerID 或 ReferrerPhoneNumber 指定（擇一，皆空表示無推薦）。
type RegisterCustomerCommand struct {
	DisplayName         string
	PhoneNumber         string
	ReferrerID          string
	ReferrerPhoneNumber string
}

// RegisterCustomerResult 註冊結果（Output DTO）
type RegisterCustomerResult struct {
	CustomerID string
	ReferredBy string
	ReferralID string
	Tier       string
}

// RegisterCustomerUseCase 註冊顧客
//
// 業務規則：
// 1. 手機號碼不能重複
// 2. 推薦人必須存在且不能是自己
// 3. 有推薦人時，顧客與 PENDING 推薦記錄在同一事務建立
type RegisterCustomerUseCase struct {
	customerRepo loyalty.CustomerRepository
	referralRepo loyalty.ReferralRepository
	txManager    shared.TransactionManager
	notifier     *ledger.Notifier
}

// NewRegisterCustomerUseCase 創建 RegisterCustomerUseCase 實例
func NewRegisterCustomerUseCase(
	customerRepo loyalty.CustomerRepository,
	referralRepo loyalty.ReferralRepository,
	txManager shared.TransactionManager,
	notifier *ledger.Notifier,
) *RegisterCustomerUseCase {
	return &RegisterCustomerUseCase{
		customerRepo: customerRepo,
		referralRepo: referralRepo,
		txManager:    txManager,
		notifier:     notifier,
	}
}

// Execute 執行註冊
//
// 錯誤處理：
// - ErrInvalidPhoneNumber / ErrInvalidDisplayName: 輸入無效
// - ErrCustomerAlreadyExists: 手機號碼已註冊
// - ErrCustomerNotFound: 推薦人不存在
func (uc *RegisterCustomerUseCase) Execute(ctx context.Context, cmd RegisterCustomerCommand) (result *RegisterCustomerResult, err error) {
	ctx, span := observability.StartSpan(ctx, "customer.RegisterCustomer",
		attribute.Bool("referral", cmd.ReferrerID != "" || cmd.ReferrerPhoneNumber != ""))
	defer func() { observability.EndSpan(span, err) }()

	// Step 1: 驗證輸入並轉換為 Value Object
	phone, err := loyalty.NewPhoneNumber(cmd.PhoneNumber)
	if err != nil {
		return nil, err
	}

	// Step 2: 在事務中執行
	changes := &ledger.ChangeSet{}
	err = uc.txManager.InTransaction(ctx, func(tx shared.TransactionContext) error {
		changes.Reset()

		// 2a. 手機號碼是否已註冊
		_, err := uc.customerRepo.FindByPhoneNumber(tx, phone)
		if err == nil {
			return loyalty.ErrCustomerAlreadyExists.WithContext("phoneNumber", phone.String())
		}
		if !errors.Is(err, loyalty.ErrCustomerNotFound) {
			return fmt.Errorf("failed to check phone number: %w", err)
		}

		// 2b. 建立聚合
		newCustomer, err := loyalty.NewCustomer(cmd.DisplayName, phone)
		if err != nil {
			return err
		}

		// 2c. 綁定推薦人
		referrer, err := uc.findReferrer(tx, cmd)
		if err != nil {
			return err
		}
		if referrer != nil {
			if err := newCustomer.SetReferredBy(referrer.ID()); err != nil {
				return err
			}
		}

		// 2d. 保存顧客（唯一約束是最終防線）
		if err := uc.customerRepo.Create(tx, newCustomer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		changes.TrackCustomer(newCustomer)

		result = &RegisterCustomerResult{
			CustomerID: newCustomer.ID().String(),
			Tier:       newCustomer.Tier().String(),
		}

		// 2e. 建立 PENDING 推薦
		if referrer == nil {
			return nil
		}
		pending, err := loyalty.NewReferral(referrer.ID(), newCustomer.ID())
		if err != nil {
			return err
		}
		if err := uc.referralRepo.Create(tx, pending); err != nil {
			return fmt.Errorf("failed to create referral: %w", err)
		}
		result.ReferredBy = referrer.ID().String()
		result.ReferralID = pending.ID().String()
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.AfterCommit(ctx, changes)
	return result, nil
}

func (uc *RegisterCustomerUseCase) findReferrer(
	tx shared.TransactionContext,
	cmd RegisterCustomerCommand,
) (*loyalty.Customer, error) {
	switch {
	case cmd.ReferrerID != "":
		referrerID, err := loyalty.CustomerIDFromString(cmd.ReferrerID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse referrer ID: %w", err)
		}
		referrer, err := uc.customerRepo.FindByID(tx, referrerID)
		if err != nil {
			return nil, fmt.Errorf("failed to find referrer: %w", err)
		}
		return referrer, nil

	case cmd.ReferrerPhoneNumber != "":
		phone, err := loyalty.NewPhoneNumber(cmd.ReferrerPhoneNumber)
		if err != nil {
			return nil, err
		}
		referrer, err := uc.customerRepo.FindByPhoneNumber(tx, phone)
		if err != nil {
			return nil, fmt.Errorf("failed to find referrer: %w", err)
		}
		return referrer, nil
	}
	return nil, nil
}
