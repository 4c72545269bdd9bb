package loyalty_test

import (
	"testing"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEntry_SignFollowsType(t *testing.T) {
	customerID := loyalty.NewCustomerID()

	tests := []struct {
		entryType loyalty.EntryType
		expected  int
	}{
		{loyalty.EntryTypeOrderEarned, 120},
		{loyalty.EntryTypeReferralEarned, 120},
		{loyalty.EntryTypeBirthdayBonus, 120},
		{loyalty.EntryTypeTransferIn, 120},
		{loyalty.EntryTypeRedemption, -120},
		{loyalty.EntryTypeExpiredAdjustment, -120},
		{loyalty.EntryTypeTransferOut, -120},
	}

	for _, tt := range tests {
		t.Run(string(tt.entryType), func(t *testing.T) {
			entry, err := loyalty.NewLedgerEntry(customerID, points(t, 120), loyalty.EntryMeta{Type: tt.entryType})

			require.NoError(t, err)
			assert.Equal(t, tt.expected, entry.Points())
			assert.Equal(t, loyalty.EntryStatusActive, entry.Status())
			assert.True(t, entry.IsActive())
			assert.False(t, entry.ID().IsEmpty())
		})
	}
}

func TestNewLedgerEntry_ValidationErrors(t *testing.T) {
	customerID := loyalty.NewCustomerID()

	_, err := loyalty.NewLedgerEntry(customerID, points(t, 0), loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned})
	assert.ErrorIs(t, err, loyalty.ErrValidation)

	_, err = loyalty.NewLedgerEntry(customerID, points(t, 10), loyalty.EntryMeta{Type: "GIFT"})
	assert.ErrorIs(t, err, loyalty.ErrValidation)

	_, err = loyalty.NewLedgerEntry(loyalty.CustomerID{}, points(t, 10), loyalty.EntryMeta{Type: loyalty.EntryTypeOrderEarned})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestNewLedgerEntry_CarriesMeta(t *testing.T) {
	orderID := loyalty.NewOrderID()
	expires := time.Now().Add(24 * time.Hour)

	entry, err := loyalty.NewLedgerEntry(loyalty.NewCustomerID(), points(t, 5), loyalty.EntryMeta{
		Type:        loyalty.EntryTypeOrderEarned,
		OrderID:     orderID,
		ExpiresAt:   &expires,
		Description: "  order earned  ",
	})

	require.NoError(t, err)
	assert.Equal(t, orderID, entry.OrderID())
	assert.True(t, entry.ReferralID().IsEmpty())
	require.NotNil(t, entry.ExpiresAt())
	assert.Equal(t, expires, *entry.ExpiresAt())
	assert.Equal(t, "order earned", entry.Description())
}

func TestReconstructLedgerEntry_RejectsWrongSign(t *testing.T) {
	_, err := loyalty.ReconstructLedgerEntry(
		loyalty.NewLedgerEntryID(), loyalty.NewCustomerID(), 50, loyalty.EntryTypeRedemption,
		loyalty.EntryStatusActive, loyalty.OrderID{}, loyalty.ReferralID{}, loyalty.TransferID{},
		nil, "", time.Now(),
	)
	assert.ErrorIs(t, err, loyalty.ErrCorruptedData)

	_, err = loyalty.ReconstructLedgerEntry(
		loyalty.NewLedgerEntryID(), loyalty.NewCustomerID(), 50, loyalty.EntryTypeOrderEarned,
		"VOID", loyalty.OrderID{}, loyalty.ReferralID{}, loyalty.TransferID{},
		nil, "", time.Now(),
	)
	assert.ErrorIs(t, err, loyalty.ErrCorruptedData)
}

func TestReconstructLedgerEntry_ExpiredStatusAllowed(t *testing.T) {
	entry, err := loyalty.ReconstructLedgerEntry(
		loyalty.NewLedgerEntryID(), loyalty.NewCustomerID(), 50, loyalty.EntryTypeOrderEarned,
		loyalty.EntryStatusExpired, loyalty.OrderID{}, loyalty.ReferralID{}, loyalty.TransferID{},
		nil, "", time.Now(),
	)

	require.NoError(t, err)
	assert.False(t, entry.IsActive())
}
