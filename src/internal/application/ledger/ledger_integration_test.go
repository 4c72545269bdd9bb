package ledger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// sqliteFixture 以 SQLite 組出真實倉儲
type sqliteFixture struct {
	customers *persistence.GORMCustomerRepository
	entries   *persistence.GORMLedgerRepository
	txManager *persistence.GORMTransactionManager
	balances  *BalanceManager
}

func newSQLiteFixture(t *testing.T) *sqliteFixture {
	t.Helper()
	return buildSQLiteFixture(persistence.NewTestDB(t), 10)
}

// newConcurrentSQLiteFixture 檔案型 SQLite、多連線，並行事務真正交錯
func newConcurrentSQLiteFixture(t *testing.T) *sqliteFixture {
	t.Helper()
	return buildSQLiteFixture(persistence.NewFileTestDB(t, 4), 50)
}

func buildSQLiteFixture(db *gorm.DB, maxAttempts uint) *sqliteFixture {
	customers := persistence.NewCustomerRepository(db)
	entries := persistence.NewLedgerRepository(db)
	return &sqliteFixture{
		customers: customers,
		entries:   entries,
		txManager: persistence.NewGORMTransactionManager(db,
			persistence.WithMaxAttempts(maxAttempts),
			persistence.WithBackoff(time.Millisecond, 20*time.Millisecond),
		),
		balances: NewBalanceManager(customers, entries, loyalty.DefaultTierPolicy()),
	}
}

func (f *sqliteFixture) createCustomer(t *testing.T, name string) loyalty.CustomerID {
	t.Helper()
	customer, err := loyalty.NewCustomer(name, loyalty.PhoneNumber{})
	require.NoError(t, err)
	require.NoError(t, f.customers.Create(nil, customer))
	return customer.ID()
}

func (f *sqliteFixture) credit(t *testing.T, id loyalty.CustomerID, v int, entryType loyalty.EntryType) {
	t.Helper()
	err := f.txManager.InTransaction(context.Background(), func(tx shared.TransactionContext) error {
		_, err := f.balances.Credit(tx, id, mustPoints(t, v), loyalty.EntryMeta{Type: entryType})
		return err
	})
	require.NoError(t, err)
}

func (f *sqliteFixture) debit(id loyalty.CustomerID, amount loyalty.PointsAmount) error {
	return f.txManager.InTransaction(context.Background(), func(tx shared.TransactionContext) error {
		_, err := f.balances.Debit(tx, id, amount, loyalty.EntryMeta{Type: loyalty.EntryTypeRedemption})
		return err
	})
}

func (f *sqliteFixture) assertBalanceMatchesLedger(t *testing.T, id loyalty.CustomerID) int {
	t.Helper()
	customer, err := f.customers.FindByID(nil, id)
	require.NoError(t, err)
	sum, err := f.entries.SumActive(nil, id)
	require.NoError(t, err)
	assert.Equal(t, sum, customer.PointsBalance().Value(), "points_balance must equal the sum of ACTIVE entries")
	return customer.PointsBalance().Value()
}

// ===========================
// Integration Tests
// ===========================

func TestBalanceManager_SQLite_BalanceEqualsActiveSum(t *testing.T) {
	// Arrange
	f := newSQLiteFixture(t)
	asha := f.createCustomer(t, "Asha")
	ravi := f.createCustomer(t, "Ravi")

	// Act
	f.credit(t, asha, 800, loyalty.EntryTypeOrderEarned)
	f.credit(t, asha, 100, loyalty.EntryTypeReferralEarned)
	require.NoError(t, f.debit(asha, mustPoints(t, 250)))

	transfer := NewTransferPointsUseCase(f.balances, f.txManager, nil)
	_, err := transfer.Execute(context.Background(), TransferPointsCommand{
		FromCustomerID: asha.String(),
		ToCustomerID:   ravi.String(),
		Points:         150,
	})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 500, f.assertBalanceMatchesLedger(t, asha))
	assert.Equal(t, 150, f.assertBalanceMatchesLedger(t, ravi))
}

func TestBalanceManager_SQLite_CreditThenDebitRoundTrip(t *testing.T) {
	f := newSQLiteFixture(t)
	id := f.createCustomer(t, "Asha")

	f.credit(t, id, 1200, loyalty.EntryTypeOrderEarned)
	require.NoError(t, f.debit(id, mustPoints(t, 1200)))

	customer, err := f.customers.FindByID(nil, id)
	require.NoError(t, err)
	assert.Equal(t, 0, customer.PointsBalance().Value())
	assert.Equal(t, 1200, customer.LifetimePoints().Value())
	assert.Equal(t, loyalty.TierSilver, customer.Tier(), "redemption never demotes")

	history, err := f.entries.FindByCustomer(nil, id, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 0, history[0].Points()+history[1].Points())
}

func TestBalanceManager_SQLite_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	// Arrange：餘額 1000，10 個並行扣 300 → 最多 3 個成功
	f := newConcurrentSQLiteFixture(t)
	id := f.createCustomer(t, "Asha")
	f.credit(t, id, 1000, loyalty.EntryTypeOrderEarned)
	amount := mustPoints(t, 300)

	var succeeded, rejected atomic.Int32
	var g errgroup.Group

	// Act
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			err := f.debit(id, amount)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, loyalty.ErrInsufficientBalance):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// Assert
	assert.Equal(t, int32(3), succeeded.Load())
	assert.Equal(t, int32(7), rejected.Load())
	assert.Equal(t, 100, f.assertBalanceMatchesLedger(t, id))
}

func TestTransferPointsUseCase_SQLite_OppositeDirections(t *testing.T) {
	// Arrange：雙向並行移轉不應死鎖，總額守恆
	f := newConcurrentSQLiteFixture(t)
	asha := f.createCustomer(t, "Asha")
	ravi := f.createCustomer(t, "Ravi")
	f.credit(t, asha, 500, loyalty.EntryTypeOrderEarned)
	f.credit(t, ravi, 500, loyalty.EntryTypeOrderEarned)
	transfer := NewTransferPointsUseCase(f.balances, f.txManager, nil)

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := transfer.Execute(context.Background(), TransferPointsCommand{
				FromCustomerID: asha.String(), ToCustomerID: ravi.String(), Points: 10,
			})
			return err
		})
		g.Go(func() error {
			_, err := transfer.Execute(context.Background(), TransferPointsCommand{
				FromCustomerID: ravi.String(), ToCustomerID: asha.String(), Points: 20,
			})
			return err
		})
	}

	// Act
	require.NoError(t, g.Wait())

	// Assert
	a := f.assertBalanceMatchesLedger(t, asha)
	r := f.assertBalanceMatchesLedger(t, ravi)
	assert.Equal(t, 1000, a+r)
	assert.Equal(t, 550, a)
}

func TestTransferPointsUseCase_SQLite_InsufficientBalanceWritesNothing(t *testing.T) {
	f := newSQLiteFixture(t)
	asha := f.createCustomer(t, "Asha")
	ravi := f.createCustomer(t, "Ravi")
	f.credit(t, asha, 100, loyalty.EntryTypeOrderEarned)
	transfer := NewTransferPointsUseCase(f.balances, f.txManager, nil)

	_, err := transfer.Execute(context.Background(), TransferPointsCommand{
		FromCustomerID: asha.String(), ToCustomerID: ravi.String(), Points: 101,
	})

	assert.ErrorIs(t, err, loyalty.ErrInsufficientBalance)
	assert.Equal(t, 100, f.assertBalanceMatchesLedger(t, asha))
	assert.Equal(t, 0, f.assertBalanceMatchesLedger(t, ravi))
}

// racingCustomers 第一次鎖定讀取後，模擬另一筆寫入搶先提交
type racingCustomers struct {
	*persistence.GORMCustomerRepository
	lockedReads int
}

func (r *racingCustomers) FindByIDForUpdate(tx shared.TransactionContext, id loyalty.CustomerID) (*loyalty.Customer, error) {
	r.lockedReads++
	customer, err := r.GORMCustomerRepository.FindByIDForUpdate(tx, id)
	if err != nil || r.lockedReads > 1 {
		return customer, err
	}

	rival, err := r.GORMCustomerRepository.FindByID(tx, id)
	if err != nil {
		return nil, err
	}
	bonus, _ := loyalty.NewPointsAmount(1)
	if err := rival.Credit(bonus, loyalty.EntryTypeBirthdayBonus, loyalty.DefaultTierPolicy()); err != nil {
		return nil, err
	}
	if err := r.GORMCustomerRepository.Update(tx, rival); err != nil {
		return nil, err
	}
	return customer, nil
}

func TestCreditPointsUseCase_SQLite_StaleVersionRetriedThroughTransaction(t *testing.T) {
	// Arrange
	f := newSQLiteFixture(t)
	id := f.createCustomer(t, "Asha")
	customers := &racingCustomers{GORMCustomerRepository: f.customers}
	useCase := NewCreditPointsUseCase(
		NewBalanceManager(customers, f.entries, loyalty.DefaultTierPolicy()),
		f.txManager,
		nil,
	)

	// Act
	result, err := useCase.Execute(context.Background(), CreditPointsCommand{
		CustomerID: id.String(),
		Points:     300,
		Type:       string(loyalty.EntryTypeBirthdayBonus),
	})

	// Assert：第一次嘗試因版本衝突回滾，重試後只入帳一次
	require.NoError(t, err)
	assert.Equal(t, 2, customers.lockedReads)
	assert.Equal(t, 300, result.NewBalance)
	assert.Equal(t, 300, f.assertBalanceMatchesLedger(t, id))

	history, err := f.entries.FindByCustomer(nil, id, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
