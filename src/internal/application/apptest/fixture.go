// Package apptest 提供 Application Layer 測試共用的 SQLite 組裝
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/referral"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixture SQLite 上的真實倉儲、事務管理器與領域服務
type Fixture struct {
	DB         *gorm.DB
	Customers  *persistence.GORMCustomerRepository
	Ledger     *persistence.GORMLedgerRepository
	Referrals  *persistence.GORMReferralRepository
	Orders     *persistence.GORMOrderRepository
	TxManager  *persistence.GORMTransactionManager
	Policy     loyalty.PointsPolicy
	Tiers      *loyalty.TierPolicy
	Calculator *loyalty.PointsCalculator
	Balances   *ledger.BalanceManager
	Tracker    *referral.Tracker
}

// New 以預設積分規則建立 Fixture（in-memory SQLite，單一連線）
func New(t testing.TB) *Fixture {
	t.Helper()
	return newFixture(t, persistence.NewTestDB(t), 10)
}

// NewConcurrent 檔案型 SQLite（WAL、多連線），並行事務真正交錯
func NewConcurrent(t testing.TB) *Fixture {
	t.Helper()
	return newFixture(t, persistence.NewFileTestDB(t, 4), 50)
}

func newFixture(t testing.TB, db *gorm.DB, maxAttempts uint) *Fixture {
	t.Helper()

	policy := loyalty.DefaultPointsPolicy()
	tiers := loyalty.DefaultTierPolicy()
	calculator, err := loyalty.NewPointsCalculator(policy, tiers)
	require.NoError(t, err)

	f := &Fixture{
		DB:         db,
		Customers:  persistence.NewCustomerRepository(db),
		Ledger:     persistence.NewLedgerRepository(db),
		Referrals:  persistence.NewReferralRepository(db),
		Orders:     persistence.NewOrderRepository(db),
		Policy:     policy,
		Tiers:      tiers,
		Calculator: calculator,
		TxManager: persistence.NewGORMTransactionManager(db,
			persistence.WithMaxAttempts(maxAttempts),
			persistence.WithBackoff(time.Millisecond, 20*time.Millisecond),
		),
	}
	f.Balances = ledger.NewBalanceManager(f.Customers, f.Ledger, tiers)
	f.Tracker = referral.NewTracker(f.Referrals, f.Balances, policy, nil)
	return f
}

// CreateCustomer 建立顧客（不綁定手機）
func (f *Fixture) CreateCustomer(t testing.TB, name string) *loyalty.Customer {
	t.Helper()
	customer, err := loyalty.NewCustomer(name, loyalty.PhoneNumber{})
	require.NoError(t, err)
	require.NoError(t, f.Customers.Create(nil, customer))
	customer.PullEvents()
	return customer
}

// CreateReferredCustomer 建立被推薦顧客與 PENDING 推薦
func (f *Fixture) CreateReferredCustomer(t testing.TB, name string, referrer loyalty.CustomerID) (*loyalty.Customer, *loyalty.Referral) {
	t.Helper()
	customer, err := loyalty.NewCustomer(name, loyalty.PhoneNumber{})
	require.NoError(t, err)
	require.NoError(t, customer.SetReferredBy(referrer))
	require.NoError(t, f.Customers.Create(nil, customer))
	customer.PullEvents()

	pending, err := loyalty.NewReferral(referrer, customer.ID())
	require.NoError(t, err)
	require.NoError(t, f.Referrals.Create(nil, pending))
	return customer, pending
}

// Credit 直接入帳
func (f *Fixture) Credit(t testing.TB, id loyalty.CustomerID, points int) {
	t.Helper()
	amount, err := loyalty.NewPointsAmount(points)
	require.NoError(t, err)
	err = f.TxManager.InTransaction(context.Background(), func(tx shared.TransactionContext) error {
		_, err := f.Balances.Credit(tx, id, amount, loyalty.EntryMeta{Type: loyalty.EntryTypeBirthdayBonus})
		return err
	})
	require.NoError(t, err)
}

// CompletedOrder 建立已完成的訂單；customerID 可為空（訪客）
func (f *Fixture) CompletedOrder(t testing.TB, customerID loyalty.CustomerID, total string) loyalty.OrderID {
	t.Helper()
	order, err := loyalty.NewPendingOrder(loyalty.NewOrderID(), customerID, decimal.RequireFromString(total))
	require.NoError(t, err)
	require.NoError(t, order.Complete())
	require.NoError(t, f.Orders.Create(nil, order))
	return order.ID()
}

// PendingOrder 建立結帳中的訂單
func (f *Fixture) PendingOrder(t testing.TB, customerID loyalty.CustomerID, total string) loyalty.OrderID {
	t.Helper()
	order, err := loyalty.NewPendingOrder(loyalty.NewOrderID(), customerID, decimal.RequireFromString(total))
	require.NoError(t, err)
	require.NoError(t, f.Orders.Create(nil, order))
	return order.ID()
}

// Customer 重新讀取顧客
func (f *Fixture) Customer(t testing.TB, id loyalty.CustomerID) *loyalty.Customer {
	t.Helper()
	customer, err := f.Customers.FindByID(nil, id)
	require.NoError(t, err)
	return customer
}

// RequireBalanceMatchesLedger 斷言 points_balance == sum(ACTIVE)，返回餘額
func (f *Fixture) RequireBalanceMatchesLedger(t testing.TB, id loyalty.CustomerID) int {
	t.Helper()
	customer := f.Customer(t, id)
	sum, err := f.Ledger.SumActive(nil, id)
	require.NoError(t, err)
	require.Equal(t, sum, customer.PointsBalance().Value(), "points_balance must equal the sum of ACTIVE entries")
	return sum
}
