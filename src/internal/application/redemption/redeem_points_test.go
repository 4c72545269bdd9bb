package redemption_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/apptest"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/redemption"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newUseCase(f *apptest.Fixture) *redemption.RedeemPointsUseCase {
	return redemption.NewRedeemPointsUseCase(f.Balances, f.Customers, f.Orders, f.Calculator, f.TxManager, nil)
}

func TestRedeemPoints_DiscountCappedAtHalfOfOrder(t *testing.T) {
	// Arrange：餘額 1500，結帳 200 元，使用 1000 點
	f := apptest.New(t)
	customer := f.CreateCustomer(t, "Asha")
	f.Credit(t, customer.ID(), 1500)

	// Act
	result, err := newUseCase(f).Execute(context.Background(), redemption.RedeemPointsCommand{
		CustomerID:        customer.ID().String(),
		RequestedPoints:   1000,
		PendingOrderTotal: decimal.NewFromInt(200),
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(result.Discount), result.Discount.String())
	assert.Equal(t, 1000, result.PointsConsumed)
	assert.Equal(t, 500, result.NewBalance)
	assert.Equal(t, 500, f.RequireBalanceMatchesLedger(t, customer.ID()))

	orderID, err := loyalty.OrderIDFromString(result.OrderID)
	require.NoError(t, err)
	order, err := f.Orders.FindByID(nil, orderID)
	require.NoError(t, err)
	assert.Equal(t, loyalty.OrderStatusPending, order.Status())
	assert.Equal(t, 1000, order.LoyaltyPointsRedeemed())
	assert.True(t, decimal.NewFromInt(100).Equal(order.LoyaltyDiscount()))
}

func TestRedeemPoints_DiscountCappedAtMaxPercentage(t *testing.T) {
	// 1500 點 → 150 元，但上限為 200 × 50% = 100 元，只消耗 1000 點
	f := apptest.New(t)
	customer := f.CreateCustomer(t, "Asha")
	f.Credit(t, customer.ID(), 1500)

	result, err := newUseCase(f).Execute(context.Background(), redemption.RedeemPointsCommand{
		CustomerID:        customer.ID().String(),
		RequestedPoints:   1500,
		PendingOrderTotal: decimal.NewFromInt(200),
	})

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(result.Discount))
	assert.Equal(t, 1000, result.PointsConsumed)
	assert.Equal(t, 500, result.NewBalance)
}

func TestRedeemPoints_FractionalCapRoundsConsumedPointsUp(t *testing.T) {
	// 上限 15.55 × 50% = 7.775 → 截斷 7.77；消耗 ceil(77.7) = 78
	f := apptest.New(t)
	customer := f.CreateCustomer(t, "Asha")
	f.Credit(t, customer.ID(), 500)

	result, err := newUseCase(f).Execute(context.Background(), redemption.RedeemPointsCommand{
		CustomerID:        customer.ID().String(),
		RequestedPoints:   100,
		PendingOrderTotal: decimal.RequireFromString("15.55"),
	})

	require.NoError(t, err)
	assert.Equal(t, "7.77", result.Discount.StringFixed(2))
	assert.Equal(t, 78, result.PointsConsumed)
	assert.Equal(t, 422, f.RequireBalanceMatchesLedger(t, customer.ID()))
}

func TestRedeemPoints_Validation(t *testing.T) {
	f := apptest.New(t)
	customer := f.CreateCustomer(t, "Asha")
	f.Credit(t, customer.ID(), 150)

	tests := []struct {
		name    string
		cmd     redemption.RedeemPointsCommand
		wantErr error
	}{
		{
			name: "below minimum",
			cmd: redemption.RedeemPointsCommand{
				CustomerID: customer.ID().String(), RequestedPoints: 99, PendingOrderTotal: decimal.NewFromInt(500),
			},
			wantErr: loyalty.ErrBelowMinimumRedemption,
		},
		{
			name: "zero order total",
			cmd: redemption.RedeemPointsCommand{
				CustomerID: customer.ID().String(), RequestedPoints: 100, PendingOrderTotal: decimal.Zero,
			},
			wantErr: loyalty.ErrInvalidOrderContext,
		},
		{
			name: "more than balance",
			cmd: redemption.RedeemPointsCommand{
				CustomerID: customer.ID().String(), RequestedPoints: 151, PendingOrderTotal: decimal.NewFromInt(500),
			},
			wantErr: loyalty.ErrInsufficientBalance,
		},
		{
			name: "unknown customer",
			cmd: redemption.RedeemPointsCommand{
				CustomerID: loyalty.NewCustomerID().String(), RequestedPoints: 100, PendingOrderTotal: decimal.NewFromInt(500),
			},
			wantErr: loyalty.ErrCustomerNotFound,
		},
		{
			name: "order too small for any discount",
			cmd: redemption.RedeemPointsCommand{
				CustomerID: customer.ID().String(), RequestedPoints: 100, PendingOrderTotal: decimal.RequireFromString("0.01"),
			},
			wantErr: loyalty.ErrInvalidOrderContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newUseCase(f).Execute(context.Background(), tt.cmd)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 150, f.RequireBalanceMatchesLedger(t, customer.ID()))
		})
	}
}

func TestRedeemPoints_ExistingOrderRedeemedOnce(t *testing.T) {
	// Arrange
	f := apptest.New(t)
	customer := f.CreateCustomer(t, "Asha")
	f.Credit(t, customer.ID(), 2000)
	orderID := f.PendingOrder(t, customer.ID(), "300")
	cmd := redemption.RedeemPointsCommand{
		CustomerID:        customer.ID().String(),
		RequestedPoints:   500,
		PendingOrderTotal: decimal.NewFromInt(300),
		OrderID:           orderID.String(),
	}
	uc := newUseCase(f)

	// Act
	first, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)
	_, err = uc.Execute(context.Background(), cmd)

	// Assert
	assert.ErrorIs(t, err, loyalty.ErrPointsAlreadyRedeemed)
	assert.Equal(t, orderID.String(), first.OrderID)
	assert.Equal(t, 1500, f.RequireBalanceMatchesLedger(t, customer.ID()))
}

func TestRedeemPoints_OrderOfAnotherCustomer(t *testing.T) {
	f := apptest.New(t)
	asha := f.CreateCustomer(t, "Asha")
	ravi := f.CreateCustomer(t, "Ravi")
	f.Credit(t, asha.ID(), 500)
	orderID := f.PendingOrder(t, ravi.ID(), "300")

	_, err := newUseCase(f).Execute(context.Background(), redemption.RedeemPointsCommand{
		CustomerID:        asha.ID().String(),
		RequestedPoints:   100,
		PendingOrderTotal: decimal.NewFromInt(300),
		OrderID:           orderID.String(),
	})

	assert.ErrorIs(t, err, loyalty.ErrInvalidOrderContext)
	assert.Equal(t, 500, f.RequireBalanceMatchesLedger(t, asha.ID()))
}

func TestRedeemPoints_ConcurrentRedemptionsNeverOverdraw(t *testing.T) {
	// Arrange：餘額 1000，6 個並行結帳各用 300 點（折 30 元）
	f := apptest.NewConcurrent(t)
	customer := f.CreateCustomer(t, "Asha")
	f.Credit(t, customer.ID(), 1000)
	uc := newUseCase(f)

	var succeeded atomic.Int32
	var g errgroup.Group

	// Act
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			_, err := uc.Execute(context.Background(), redemption.RedeemPointsCommand{
				CustomerID:        customer.ID().String(),
				RequestedPoints:   300,
				PendingOrderTotal: decimal.NewFromInt(1000),
			})
			if err == nil {
				succeeded.Add(1)
				return nil
			}
			if errors.Is(err, loyalty.ErrInsufficientBalance) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Assert
	assert.Equal(t, int32(3), succeeded.Load())
	assert.Equal(t, 100, f.RequireBalanceMatchesLedger(t, customer.ID()))
}

func TestRedeemPoints_NeverDemotesTier(t *testing.T) {
	f := apptest.New(t)
	customer := f.CreateCustomer(t, "Asha")
	f.Credit(t, customer.ID(), 5200)

	_, err := newUseCase(f).Execute(context.Background(), redemption.RedeemPointsCommand{
		CustomerID:        customer.ID().String(),
		RequestedPoints:   5000,
		PendingOrderTotal: decimal.NewFromInt(1000),
	})

	require.NoError(t, err)
	reloaded := f.Customer(t, customer.ID())
	assert.Equal(t, loyalty.TierGold, reloaded.Tier())
	assert.Equal(t, 200, reloaded.PointsBalance().Value())
}
