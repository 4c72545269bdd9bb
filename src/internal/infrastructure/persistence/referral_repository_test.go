package persistence

import (
	"testing"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralRepository_CreateAndFindPending(t *testing.T) {
	// Arrange
	repo := NewReferralRepository(NewTestDB(t))
	referral, err := loyalty.NewReferral(loyalty.NewCustomerID(), loyalty.NewCustomerID())
	require.NoError(t, err)

	// Act
	require.NoError(t, repo.Create(nil, referral))
	found, err := repo.FindPendingByReferredID(nil, referral.ReferredID())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, referral.ID(), found.ID())
	assert.True(t, found.IsPending())
}

func TestReferralRepository_Create_UniqueReferred(t *testing.T) {
	repo := NewReferralRepository(NewTestDB(t))
	referred := loyalty.NewCustomerID()
	first, _ := loyalty.NewReferral(loyalty.NewCustomerID(), referred)
	second, _ := loyalty.NewReferral(loyalty.NewCustomerID(), referred)
	require.NoError(t, repo.Create(nil, first))

	err := repo.Create(nil, second)

	assert.ErrorIs(t, err, loyalty.ErrReferralAlreadyExists)
}

func TestReferralRepository_FindPending_None(t *testing.T) {
	repo := NewReferralRepository(NewTestDB(t))

	_, err := repo.FindPendingByReferredID(nil, loyalty.NewCustomerID())

	assert.ErrorIs(t, err, loyalty.ErrReferralNotFound)
}

func TestReferralRepository_CompleteIfPending_OnlyOnce(t *testing.T) {
	// Arrange：兩份 PENDING 快照模擬並行事務
	repo := NewReferralRepository(NewTestDB(t))
	referral, _ := loyalty.NewReferral(loyalty.NewCustomerID(), loyalty.NewCustomerID())
	require.NoError(t, repo.Create(nil, referral))

	first, err := repo.FindPendingByReferredID(nil, referral.ReferredID())
	require.NoError(t, err)
	second, err := repo.FindPendingByReferredID(nil, referral.ReferredID())
	require.NoError(t, err)

	firstOrder := loyalty.NewOrderID()
	require.NoError(t, first.Complete(firstOrder, 100, 100))
	require.NoError(t, second.Complete(loyalty.NewOrderID(), 100, 100))

	// Act
	won, err := repo.CompleteIfPending(nil, first)
	require.NoError(t, err)
	lost, err := repo.CompleteIfPending(nil, second)
	require.NoError(t, err)

	// Assert
	assert.True(t, won)
	assert.False(t, lost)

	stored, err := repo.FindByReferredID(nil, referral.ReferredID())
	require.NoError(t, err)
	assert.Equal(t, loyalty.ReferralStatusCompleted, stored.Status())
	assert.Equal(t, firstOrder, stored.FirstOrderID())
	assert.Equal(t, 100, stored.ReferrerPointsAwarded())
	assert.NotNil(t, stored.CompletedAt())

	_, err = repo.FindPendingByReferredID(nil, referral.ReferredID())
	assert.ErrorIs(t, err, loyalty.ErrReferralNotFound)
}
