package persistence

import (
	"testing"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerRepository_CreateAndFind(t *testing.T) {
	// Arrange
	repo := NewCustomerRepository(NewTestDB(t))
	phone, err := loyalty.NewPhoneNumber("9876543210")
	require.NoError(t, err)
	customer, err := loyalty.NewCustomer("Asha", phone)
	require.NoError(t, err)

	// Act
	require.NoError(t, repo.Create(nil, customer))
	byID, err := repo.FindByID(nil, customer.ID())
	require.NoError(t, err)
	byPhone, err := repo.FindByPhoneNumber(nil, phone)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, customer.ID(), byID.ID())
	assert.Equal(t, customer.ID(), byPhone.ID())
	assert.Equal(t, loyalty.TierBronze, byID.Tier())
	assert.Equal(t, 1, byID.Version())
	assert.False(t, customer.IsNew())
}

func TestCustomerRepository_Create_DuplicatePhone(t *testing.T) {
	// Arrange
	repo := NewCustomerRepository(NewTestDB(t))
	phone, err := loyalty.NewPhoneNumber("9876543210")
	require.NoError(t, err)
	first, _ := loyalty.NewCustomer("Asha", phone)
	second, _ := loyalty.NewCustomer("Ravi", phone)
	require.NoError(t, repo.Create(nil, first))

	// Act
	err = repo.Create(nil, second)

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrCustomerAlreadyExists)
}

func TestCustomerRepository_FindByID_NotFound(t *testing.T) {
	repo := NewCustomerRepository(NewTestDB(t))

	_, err := repo.FindByID(nil, loyalty.NewCustomerID())

	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
}

func TestCustomerRepository_Update_PersistsBalanceAndVersion(t *testing.T) {
	// Arrange
	repo := NewCustomerRepository(NewTestDB(t))
	customer := mustNewCustomer(t, "Asha")
	require.NoError(t, repo.Create(nil, customer))

	loaded, err := repo.FindByIDForUpdate(nil, customer.ID())
	require.NoError(t, err)
	amount, _ := loyalty.NewPointsAmount(1500)
	require.NoError(t, loaded.Credit(amount, loyalty.EntryTypeOrderEarned, loyalty.DefaultTierPolicy()))

	// Act
	require.NoError(t, repo.Update(nil, loaded))

	// Assert
	reloaded, err := repo.FindByID(nil, customer.ID())
	require.NoError(t, err)
	assert.Equal(t, 1500, reloaded.PointsBalance().Value())
	assert.Equal(t, 1500, reloaded.LifetimePoints().Value())
	assert.Equal(t, loyalty.TierSilver, reloaded.Tier())
	assert.Equal(t, 2, reloaded.Version())
}

func TestCustomerRepository_Update_StaleVersion(t *testing.T) {
	// Arrange：兩份相同版本的快照
	repo := NewCustomerRepository(NewTestDB(t))
	customer := mustNewCustomer(t, "Asha")
	require.NoError(t, repo.Create(nil, customer))

	first, err := repo.FindByID(nil, customer.ID())
	require.NoError(t, err)
	second, err := repo.FindByID(nil, customer.ID())
	require.NoError(t, err)

	amount, _ := loyalty.NewPointsAmount(100)
	require.NoError(t, first.Credit(amount, loyalty.EntryTypeOrderEarned, loyalty.DefaultTierPolicy()))
	require.NoError(t, second.Credit(amount, loyalty.EntryTypeOrderEarned, loyalty.DefaultTierPolicy()))
	require.NoError(t, repo.Update(nil, first))

	// Act
	err = repo.Update(nil, second)

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrConcurrentModification)
	reloaded, _ := repo.FindByID(nil, customer.ID())
	assert.Equal(t, 100, reloaded.PointsBalance().Value())
}

func TestCustomerRepository_Update_NotFound(t *testing.T) {
	repo := NewCustomerRepository(NewTestDB(t))
	customer := mustNewCustomer(t, "Ghost")
	customer.MarkPersisted()

	err := repo.Update(nil, customer)

	assert.ErrorIs(t, err, loyalty.ErrCustomerNotFound)
}

func TestCustomerRepository_ReferredByRoundTrip(t *testing.T) {
	repo := NewCustomerRepository(NewTestDB(t))
	referrer := mustNewCustomer(t, "Asha")
	referred := mustNewCustomer(t, "Ravi")
	require.NoError(t, referred.SetReferredBy(referrer.ID()))
	require.NoError(t, repo.Create(nil, referrer))
	require.NoError(t, repo.Create(nil, referred))

	found, err := repo.FindByID(nil, referred.ID())

	require.NoError(t, err)
	assert.Equal(t, referrer.ID(), found.ReferredBy())
}
