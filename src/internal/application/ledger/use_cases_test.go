package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===========================
// CreditPointsUseCase Tests
// ===========================

func TestCreditPointsUseCase_Execute_Success(t *testing.T) {
	// Arrange
	customers := NewMockCustomerRepository()
	entries := NewMockLedgerRepository()
	txManager := NewMockTransactionManager()
	publisher := &MockEventPublisher{}
	cache := NewMockBalanceCache()
	useCase := NewCreditPointsUseCase(
		NewBalanceManager(customers, entries, loyalty.DefaultTierPolicy()),
		txManager,
		NewNotifier(publisher, cache, nil),
	)
	customer := seedCustomer(t, customers, "Asha")
	orderID := loyalty.NewOrderID()

	// Act
	result, err := useCase.Execute(context.Background(), CreditPointsCommand{
		CustomerID:    customer.ID().String(),
		Points:        250,
		Type:          string(loyalty.EntryTypeBirthdayBonus),
		OrderID:       orderID.String(),
		ExpiresInDays: 30,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 250, result.Credited)
	assert.Equal(t, 250, result.NewBalance)
	assert.Equal(t, "BRONZE", result.Tier)
	assert.Equal(t, 1, txManager.InTransactionCallCount)

	require.Len(t, entries.Entries, 1)
	assert.Equal(t, orderID, entries.Entries[0].OrderID())
	assert.NotNil(t, entries.Entries[0].ExpiresAt())

	assert.Equal(t, []string{loyalty.EventTypePointsCredited}, publisher.Types())
	assert.Equal(t, []loyalty.CustomerID{customer.ID()}, cache.InvalidatedIDs())
}

func TestCreditPointsUseCase_Execute_Validation(t *testing.T) {
	customerID := loyalty.NewCustomerID().String()

	tests := []struct {
		name    string
		cmd     CreditPointsCommand
		wantErr error
	}{
		{
			name:    "invalid customer id",
			cmd:     CreditPointsCommand{CustomerID: "nope", Points: 10, Type: "BIRTHDAY_BONUS"},
			wantErr: loyalty.ErrInvalidCustomerID,
		},
		{
			name:    "zero points",
			cmd:     CreditPointsCommand{CustomerID: customerID, Points: 0, Type: "BIRTHDAY_BONUS"},
			wantErr: loyalty.ErrValidation,
		},
		{
			name:    "negative points",
			cmd:     CreditPointsCommand{CustomerID: customerID, Points: -5, Type: "BIRTHDAY_BONUS"},
			wantErr: loyalty.ErrValidation,
		},
		{
			name:    "debit type",
			cmd:     CreditPointsCommand{CustomerID: customerID, Points: 10, Type: "REDEMPTION"},
			wantErr: loyalty.ErrValidation,
		},
		{
			name:    "transfer in is reserved",
			cmd:     CreditPointsCommand{CustomerID: customerID, Points: 10, Type: "TRANSFER_IN"},
			wantErr: loyalty.ErrValidation,
		},
		{
			name:    "order earned is reserved for order awards",
			cmd:     CreditPointsCommand{CustomerID: customerID, Points: 10, Type: "ORDER_EARNED", OrderID: loyalty.NewOrderID().String()},
			wantErr: loyalty.ErrValidation,
		},
		{
			name:    "referral earned is reserved for referral completion",
			cmd:     CreditPointsCommand{CustomerID: customerID, Points: 10, Type: "REFERRAL_EARNED"},
			wantErr: loyalty.ErrValidation,
		},
		{
			name:    "invalid order id",
			cmd:     CreditPointsCommand{CustomerID: customerID, Points: 10, Type: "BIRTHDAY_BONUS", OrderID: "x"},
			wantErr: loyalty.ErrInvalidOrderID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := NewMockLedgerRepository()
			useCase := NewCreditPointsUseCase(
				NewBalanceManager(NewMockCustomerRepository(), entries, loyalty.DefaultTierPolicy()),
				NewMockTransactionManager(),
				nil,
			)

			_, err := useCase.Execute(context.Background(), tt.cmd)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, entries.Entries)
		})
	}
}

// ===========================
// GetBalanceUseCase Tests
// ===========================

func TestGetBalanceUseCase_Execute_ReadThroughCache(t *testing.T) {
	// Arrange
	customers := NewMockCustomerRepository()
	manager := NewBalanceManager(customers, NewMockLedgerRepository(), loyalty.DefaultTierPolicy())
	customer := seedCustomer(t, customers, "Asha")
	_, err := manager.Credit(nil, customer.ID(), mustPoints(t, 1500), loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned})
	require.NoError(t, err)

	cache := NewMockBalanceCache()
	useCase := NewGetBalanceUseCase(customers, loyalty.DefaultTierPolicy(), cache, nil)
	query := GetBalanceQuery{CustomerID: customer.ID().String()}
	customers.FindCallCount = 0

	// Act
	first, err := useCase.Execute(context.Background(), query)
	require.NoError(t, err)
	second, err := useCase.Execute(context.Background(), query)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first, second)
	assert.Equal(t, 1, customers.FindCallCount, "second read must be served from cache")
	assert.Equal(t, 1, cache.SetCallCount)

	assert.Equal(t, 1500, first.PointsBalance)
	assert.Equal(t, "SILVER", first.Tier)
	assert.Equal(t, "5", first.DiscountPercentage)
	assert.Equal(t, "GOLD", first.NextTier)
	assert.Equal(t, 3500, first.PointsToNextTier)
}

func TestGetBalanceUseCase_Execute_LateReadThroughCannotRestoreStaleBalance(t *testing.T) {
	// Arrange：讀者在入帳提交前讀到舊餘額，失效之後才回填
	customers := NewMockCustomerRepository()
	manager := NewBalanceManager(customers, NewMockLedgerRepository(), loyalty.DefaultTierPolicy())
	customer := seedCustomer(t, customers, "Asha")
	cache := NewMockBalanceCache()
	useCase := NewGetBalanceUseCase(customers, loyalty.DefaultTierPolicy(), cache, nil)
	query := GetBalanceQuery{CustomerID: customer.ID().String()}

	stale, err := useCase.ExecuteWithContext(nil, query)
	require.NoError(t, err)

	changes := &ChangeSet{}
	updated, err := manager.Credit(nil, customer.ID(), mustPoints(t, 300), loyalty.EntryMeta{Type: loyalty.EntryTypeBirthdayBonus})
	require.NoError(t, err)
	changes.TrackCustomer(updated)
	NewNotifier(nil, cache, nil).AfterCommit(context.Background(), changes)

	// Act
	require.NoError(t, cache.Set(context.Background(), stale))
	result, err := useCase.Execute(context.Background(), query)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, stale.PointsBalance)
	assert.Equal(t, 300, result.PointsBalance)
	assert.Equal(t, updated.Version(), result.Version)
	assert.Equal(t, []CommittedVersion{{CustomerID: customer.ID(), Version: updated.Version()}}, cache.Invalidated)
}

func TestGetBalanceUseCase_Execute_CacheErrorFallsBackToDatabase(t *testing.T) {
	customers := NewMockCustomerRepository()
	customer := seedCustomer(t, customers, "Asha")
	cache := NewMockBalanceCache()
	cache.GetError = errors.New("redis down")
	useCase := NewGetBalanceUseCase(customers, loyalty.DefaultTierPolicy(), cache, nil)

	result, err := useCase.Execute(context.Background(), GetBalanceQuery{CustomerID: customer.ID().String()})

	require.NoError(t, err)
	assert.Equal(t, 0, result.PointsBalance)
	assert.Equal(t, "BRONZE", result.Tier)
}

func TestGetBalanceUseCase_Execute_NotFound(t *testing.T) {
	useCase := NewGetBalanceUseCase(NewMockCustomerRepository(), loyalty.DefaultTierPolicy(), nil, nil)

	_, err := useCase.Execute(context.Background(), GetBalanceQuery{CustomerID: loyalty.NewCustomerID().String()})

	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
}

func TestNewGetBalanceResult_TopTierHasNoNext(t *testing.T) {
	customers := NewMockCustomerRepository()
	manager := NewBalanceManager(customers, NewMockLedgerRepository(), loyalty.DefaultTierPolicy())
	customer := seedCustomer(t, customers, "Asha")
	updated, err := manager.Credit(nil, customer.ID(), mustPoints(t, 12000), loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned})
	require.NoError(t, err)

	result := NewGetBalanceResult(updated, loyalty.DefaultTierPolicy())

	assert.Equal(t, "PLATINUM", result.Tier)
	assert.Empty(t, result.NextTier)
	assert.Equal(t, 0, result.PointsToNextTier)
}

// ===========================
// GetLedgerHistoryUseCase Tests
// ===========================

func TestGetLedgerHistoryUseCase_NewestFirstWithLimit(t *testing.T) {
	// Arrange
	customers := NewMockCustomerRepository()
	entries := NewMockLedgerRepository()
	manager := NewBalanceManager(customers, entries, loyalty.DefaultTierPolicy())
	customer := seedCustomer(t, customers, "Asha")
	for _, v := range []int{10, 20, 30} {
		_, err := manager.Credit(nil, customer.ID(), mustPoints(t, v), loyalty.EntryMeta{Type: loyalty.EntryTypeBirthdayBonus})
		require.NoError(t, err)
	}
	useCase := NewGetLedgerHistoryUseCase(customers, entries)

	// Act
	result, err := useCase.Execute(GetLedgerHistoryQuery{CustomerID: customer.ID().String(), Limit: 2})

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, 30, result.Entries[0].Points)
	assert.Equal(t, 20, result.Entries[1].Points)
	assert.Equal(t, "ACTIVE", result.Entries[0].Status)
	assert.Empty(t, result.Entries[0].OrderID)
}

func TestGetLedgerHistoryUseCase_UnknownCustomer(t *testing.T) {
	useCase := NewGetLedgerHistoryUseCase(NewMockCustomerRepository(), NewMockLedgerRepository())

	_, err := useCase.Execute(GetLedgerHistoryQuery{CustomerID: loyalty.NewCustomerID().String()})

	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
}
