package loyalty_test

import (
	"testing"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingOrder_NonPositiveTotal(t *testing.T) {
	_, err := loyalty.NewPendingOrder(loyalty.NewOrderID(), loyalty.NewCustomerID(), decimal.Zero)
	assert.ErrorIs(t, err, loyalty.ErrInvalidOrderContext)
}

func TestOrder_MarkPointsEarned_WriteOnce(t *testing.T) {
	order, err := loyalty.NewPendingOrder(loyalty.NewOrderID(), loyalty.NewCustomerID(), decimal.NewFromInt(500))
	require.NoError(t, err)

	require.NoError(t, order.MarkPointsEarned(500))
	assert.True(t, order.IsPointsAwarded())

	err = order.MarkPointsEarned(500)
	assert.ErrorIs(t, err, loyalty.ErrPointsAlreadyAwarded)
	assert.Equal(t, 500, order.LoyaltyPointsEarned())
}

func TestOrder_ApplyRedemption_WriteOnce(t *testing.T) {
	order, err := loyalty.NewPendingOrder(loyalty.NewOrderID(), loyalty.NewCustomerID(), decimal.NewFromInt(200))
	require.NoError(t, err)

	require.NoError(t, order.ApplyRedemption(1000, decimal.NewFromInt(100)))

	err = order.ApplyRedemption(200, decimal.NewFromInt(20))
	assert.ErrorIs(t, err, loyalty.ErrPointsAlreadyRedeemed)
	assert.Equal(t, 1000, order.LoyaltyPointsRedeemed())
	assert.True(t, decimal.NewFromInt(100).Equal(order.LoyaltyDiscount()))
}

func TestOrder_ApplyRedemption_DiscountAboveTotal(t *testing.T) {
	order, err := loyalty.NewPendingOrder(loyalty.NewOrderID(), loyalty.CustomerID{}, decimal.NewFromInt(50))
	require.NoError(t, err)

	err = order.ApplyRedemption(1000, decimal.NewFromInt(51))
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestOrder_Complete(t *testing.T) {
	order, err := loyalty.NewPendingOrder(loyalty.NewOrderID(), loyalty.CustomerID{}, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.False(t, order.HasCustomer())

	require.NoError(t, order.Complete())
	assert.True(t, order.IsCompleted())
}

func TestParseOrderStatus(t *testing.T) {
	status, err := loyalty.ParseOrderStatus("COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, loyalty.OrderStatusCompleted, status)

	_, err = loyalty.ParseOrderStatus("DONE")
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}
