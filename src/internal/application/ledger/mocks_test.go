package ledger

import (
	"context"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// ===========================
// Mock Objects
// ===========================

// MockCustomerRepository Mock 顧客倉儲
type MockCustomerRepository struct {
	customers map[string]*loyalty.Customer

	FindCallCount   int
	UpdateCallCount int
	UpdateError     error
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{customers: make(map[string]*loyalty.Customer)}
}

func (m *MockCustomerRepository) Create(tx shared.TransactionContext, customer *loyalty.Customer) error {
	if _, ok := m.customers[customer.ID().String()]; ok {
		return loyalty.ErrCustomerAlreadyExists
	}
	m.customers[customer.ID().String()] = customer
	customer.MarkPersisted()
	return nil
}

func (m *MockCustomerRepository) FindByID(tx shared.TransactionContext, id loyalty.CustomerID) (*loyalty.Customer, error) {
	m.FindCallCount++
	customer, ok := m.customers[id.String()]
	if !ok {
		return nil, loyalty.ErrCustomerNotFound
	}
	return customer, nil
}

func (m *MockCustomerRepository) FindByIDForUpdate(tx shared.TransactionContext, id loyalty.CustomerID) (*loyalty.Customer, error) {
	return m.FindByID(tx, id)
}

func (m *MockCustomerRepository) FindByPhoneNumber(tx shared.TransactionContext, phone loyalty.PhoneNumber) (*loyalty.Customer, error) {
	for _, customer := range m.customers {
		if customer.PhoneNumber().Equals(phone) {
			return customer, nil
		}
	}
	return nil, loyalty.ErrCustomerNotFound
}

func (m *MockCustomerRepository) Update(tx shared.TransactionContext, customer *loyalty.Customer) error {
	m.UpdateCallCount++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	customer.MarkPersisted()
	return nil
}

// MockLedgerRepository Mock 帳本倉儲
type MockLedgerRepository struct {
	Entries     []*loyalty.LedgerEntry
	AppendError error
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Append(tx shared.TransactionContext, entry *loyalty.LedgerEntry) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockLedgerRepository) SumActive(tx shared.TransactionContext, customerID loyalty.CustomerID) (int, error) {
	sum := 0
	for _, entry := range m.Entries {
		if entry.CustomerID().Equals(customerID) && entry.IsActive() {
			sum += entry.Points()
		}
	}
	return sum, nil
}

func (m *MockLedgerRepository) FindByCustomer(tx shared.TransactionContext, customerID loyalty.CustomerID, limit int) ([]*loyalty.LedgerEntry, error) {
	var result []*loyalty.LedgerEntry
	for i := len(m.Entries) - 1; i >= 0; i-- {
		if m.Entries[i].CustomerID().Equals(customerID) {
			result = append(result, m.Entries[i])
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MockLedgerRepository) FindByOrder(tx shared.TransactionContext, orderID loyalty.OrderID) ([]*loyalty.LedgerEntry, error) {
	var result []*loyalty.LedgerEntry
	for _, entry := range m.Entries {
		if entry.OrderID().Equals(orderID) {
			result = append(result, entry)
		}
	}
	return result, nil
}

// MockTransactionManager Mock 事務管理器
type MockTransactionManager struct {
	InTransactionCallCount int
	ShouldFail             bool
	FailError              error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(tx shared.TransactionContext) error) error {
	m.InTransactionCallCount++

	if m.ShouldFail {
		return m.FailError
	}

	// nil context 對 mock 倉儲足夠
	return fn(nil)
}

// MockBalanceCache Mock 餘額快取（與 Redis 實作相同的版本圍欄）
type MockBalanceCache struct {
	entries map[string]*GetBalanceResult
	fences  map[string]int

	GetCallCount int
	SetCallCount int
	Invalidated  []CommittedVersion
	GetError     error
}

func NewMockBalanceCache() *MockBalanceCache {
	return &MockBalanceCache{
		entries: make(map[string]*GetBalanceResult),
		fences:  make(map[string]int),
	}
}

func (m *MockBalanceCache) Get(ctx context.Context, customerID loyalty.CustomerID) (*GetBalanceResult, bool, error) {
	m.GetCallCount++
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	result, ok := m.entries[customerID.String()]
	return result, ok, nil
}

func (m *MockBalanceCache) Set(ctx context.Context, result *GetBalanceResult) error {
	m.SetCallCount++
	if result.Version < m.fences[result.CustomerID] {
		return nil
	}
	m.entries[result.CustomerID] = result
	return nil
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, committed ...CommittedVersion) error {
	for _, c := range committed {
		key := c.CustomerID.String()
		delete(m.entries, key)
		if c.Version > m.fences[key] {
			m.fences[key] = c.Version
		}
	}
	m.Invalidated = append(m.Invalidated, committed...)
	return nil
}

// InvalidatedIDs 被失效的顧客 ID（依調用順序）
func (m *MockBalanceCache) InvalidatedIDs() []loyalty.CustomerID {
	ids := make([]loyalty.CustomerID, 0, len(m.Invalidated))
	for _, c := range m.Invalidated {
		ids = append(ids, c.CustomerID)
	}
	return ids
}

// MockEventPublisher Mock 事件發布器
type MockEventPublisher struct {
	Events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	m.Events = append(m.Events, events...)
	return nil
}

func (m *MockEventPublisher) Types() []string {
	types := make([]string, 0, len(m.Events))
	for _, event := range m.Events {
		types = append(types, event.EventType())
	}
	return types
}
