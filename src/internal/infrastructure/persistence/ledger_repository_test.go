package persistence

import (
	"testing"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendEntry(t *testing.T, repo *GORMLedgerRepository, customerID loyalty.CustomerID, amount int, meta loyalty.EntryMeta) *loyalty.LedgerEntry {
	t.Helper()
	p, err := loyalty.NewPointsAmount(amount)
	require.NoError(t, err)
	entry, err := loyalty.NewLedgerEntry(customerID, p, meta)
	require.NoError(t, err)
	require.NoError(t, repo.Append(nil, entry))
	return entry
}

func TestLedgerRepository_SumActive(t *testing.T) {
	// Arrange
	db := NewTestDB(t)
	repo := NewLedgerRepository(db)
	customerID := loyalty.NewCustomerID()
	other := loyalty.NewCustomerID()

	appendEntry(t, repo, customerID, 500, loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned})
	appendEntry(t, repo, customerID, 100, loyalty.EntryMeta{Type: loyalty.EntryTypeReferralEarned})
	appendEntry(t, repo, customerID, 250, loyalty.EntryMeta{Type: loyalty.EntryTypeRedemption})
	expired := appendEntry(t, repo, customerID, 40, loyalty.EntryMeta{Type: loyalty.EntryTypeBirthdayBonus})
	appendEntry(t, repo, other, 999, loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned})

	// 模擬過期批次將分錄轉為 EXPIRED
	require.NoError(t, db.Model(&LedgerEntryModel{}).
		Where("id = ?", expired.ID().String()).
		Update("status", string(loyalty.EntryStatusExpired)).Error)

	// Act
	sum, err := repo.SumActive(nil, customerID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 350, sum)
}

func TestLedgerRepository_SumActive_NoEntries(t *testing.T) {
	repo := NewLedgerRepository(NewTestDB(t))

	sum, err := repo.SumActive(nil, loyalty.NewCustomerID())

	require.NoError(t, err)
	assert.Equal(t, 0, sum)
}

func TestLedgerRepository_FindByCustomer_RoundTripsMeta(t *testing.T) {
	// Arrange
	repo := NewLedgerRepository(NewTestDB(t))
	customerID := loyalty.NewCustomerID()
	orderID := loyalty.NewOrderID()
	expires := time.Now().UTC().Add(365 * 24 * time.Hour).Truncate(time.Second)

	appendEntry(t, repo, customerID, 500, loyalty.EntryMeta{
		Type:        loyalty.EntryTypeOrderEarned,
		OrderID:     orderID,
		ExpiresAt:   &expires,
		Description: "order earned",
	})

	// Act
	entries, err := repo.FindByCustomer(nil, customerID, 10)

	// Assert
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 500, entries[0].Points())
	assert.Equal(t, orderID, entries[0].OrderID())
	assert.True(t, entries[0].ReferralID().IsEmpty())
	require.NotNil(t, entries[0].ExpiresAt())
	assert.True(t, expires.Equal(*entries[0].ExpiresAt()))
	assert.Equal(t, "order earned", entries[0].Description())
}

func TestLedgerRepository_FindByCustomer_Limit(t *testing.T) {
	repo := NewLedgerRepository(NewTestDB(t))
	customerID := loyalty.NewCustomerID()
	for i := 0; i < 5; i++ {
		appendEntry(t, repo, customerID, 10, loyalty.EntryMeta{Type: loyalty.EntryTypeBirthdayBonus})
	}

	entries, err := repo.FindByCustomer(nil, customerID, 3)

	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestLedgerRepository_FindByOrder(t *testing.T) {
	repo := NewLedgerRepository(NewTestDB(t))
	orderID := loyalty.NewOrderID()
	appendEntry(t, repo, loyalty.NewCustomerID(), 150, loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned, OrderID: orderID})
	appendEntry(t, repo, loyalty.NewCustomerID(), 100, loyalty.EntryMeta{Type: loyalty.EntryTypeReferralEarned, OrderID: orderID})
	appendEntry(t, repo, loyalty.NewCustomerID(), 100, loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned})

	entries, err := repo.FindByOrder(nil, orderID)

	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLedgerRepository_CheckConstraintRejectsZeroPoints(t *testing.T) {
	db := NewTestDB(t)

	err := db.Create(&LedgerEntryModel{
		ID:         loyalty.NewLedgerEntryID().String(),
		CustomerID: loyalty.NewCustomerID().String(),
		Points:     0,
		Type:       string(loyalty.EntryTypeOrderEarned),
		Status:     string(loyalty.EntryStatusActive),
		CreatedAt:  time.Now(),
	}).Error

	assert.Error(t, err)
}
