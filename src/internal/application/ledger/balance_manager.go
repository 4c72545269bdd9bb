package ledger

import (
	"fmt"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// ===========================
// BalanceManager 餘額管理器
// ===========================

// BalanceManager 是修改 points_balance / tier 的唯一入口
//
// 每次入帳或扣帳都在調用者的事務中完成：
//  1. 鎖定顧客列（FOR UPDATE）
//  2. 聚合根檢查並修改餘額
//  3. 追加帳本分錄
//  4. 以版本號更新顧客列
//
// BalanceManager 本身不開事務，tx 必須 non-nil。
type BalanceManager struct {
	customers loyalty.CustomerRepository
	ledger    loyalty.LedgerRepository
	tiers     *loyalty.TierPolicy
}

// NewBalanceManager 創建 BalanceManager
func NewBalanceManager(
	customers loyalty.CustomerRepository,
	ledger loyalty.LedgerRepository,
	tiers *loyalty.TierPolicy,
) *BalanceManager {
	return &BalanceManager{
		customers: customers,
		ledger:    ledger,
		tiers:     tiers,
	}
}

// Tiers 目前使用的等級政策
func (m *BalanceManager) Tiers() *loyalty.TierPolicy {
	return m.tiers
}

// Credit 入帳，返回更新後的顧客
func (m *BalanceManager) Credit(
	tx shared.TransactionContext,
	customerID loyalty.CustomerID,
	amount loyalty.PointsAmount,
	meta loyalty.EntryMeta,
) (*loyalty.Customer, error) {
	if !meta.Type.IsCredit() {
		return nil, loyalty.ErrValidation.WithContext("field", "type", "reason", "not a credit type", "value", string(meta.Type))
	}
	return m.lockAndApply(tx, customerID, amount, meta)
}

// Debit 扣帳，餘額不足返回 ErrInsufficientBalance；不改變等級
func (m *BalanceManager) Debit(
	tx shared.TransactionContext,
	customerID loyalty.CustomerID,
	amount loyalty.PointsAmount,
	meta loyalty.EntryMeta,
) (*loyalty.Customer, error) {
	if !meta.Type.IsDebit() {
		return nil, loyalty.ErrValidation.WithContext("field", "type", "reason", "not a debit type", "value", string(meta.Type))
	}
	return m.lockAndApply(tx, customerID, amount, meta)
}

func (m *BalanceManager) lockAndApply(
	tx shared.TransactionContext,
	customerID loyalty.CustomerID,
	amount loyalty.PointsAmount,
	meta loyalty.EntryMeta,
) (*loyalty.Customer, error) {
	customer, err := m.customers.FindByIDForUpdate(tx, customerID)
	if err != nil {
		return nil, err
	}
	if err := m.apply(tx, customer, amount, meta); err != nil {
		return nil, err
	}
	return customer, nil
}

// Transfer 在兩位顧客之間移轉積分
//
// 兩列依 ID 升冪鎖定，避免反向移轉互相等待。
// 返回 (from, to)。
func (m *BalanceManager) Transfer(
	tx shared.TransactionContext,
	fromID, toID loyalty.CustomerID,
	amount loyalty.PointsAmount,
	transferID loyalty.TransferID,
	description string,
) (*loyalty.Customer, *loyalty.Customer, error) {
	if fromID.Equals(toID) {
		return nil, nil, loyalty.ErrSelfTransfer.WithContext("customerID", fromID.String())
	}

	from, to, err := m.lockPair(tx, fromID, toID)
	if err != nil {
		return nil, nil, err
	}

	out := loyalty.EntryMeta{
		Type:        loyalty.EntryTypeTransferOut,
		TransferID:  transferID,
		Description: description,
	}
	if err := m.apply(tx, from, amount, out); err != nil {
		return nil, nil, err
	}

	in := loyalty.EntryMeta{
		Type:        loyalty.EntryTypeTransferIn,
		TransferID:  transferID,
		Description: description,
	}
	if err := m.apply(tx, to, amount, in); err != nil {
		return nil, nil, err
	}

	return from, to, nil
}

func (m *BalanceManager) lockPair(
	tx shared.TransactionContext,
	fromID, toID loyalty.CustomerID,
) (*loyalty.Customer, *loyalty.Customer, error) {
	first, second := fromID, toID
	if second.Compare(first) < 0 {
		first, second = second, first
	}

	a, err := m.customers.FindByIDForUpdate(tx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := m.customers.FindByIDForUpdate(tx, second)
	if err != nil {
		return nil, nil, err
	}

	if a.ID().Equals(fromID) {
		return a, b, nil
	}
	return b, a, nil
}

// apply 修改聚合、追加分錄、寫回顧客列
func (m *BalanceManager) apply(
	tx shared.TransactionContext,
	customer *loyalty.Customer,
	amount loyalty.PointsAmount,
	meta loyalty.EntryMeta,
) error {
	var err error
	switch {
	case meta.Type.IsCredit():
		err = customer.Credit(amount, meta.Type, m.tiers)
	case meta.Type.IsDebit():
		err = customer.Debit(amount, meta.Type)
	default:
		err = loyalty.ErrValidation.WithContext("field", "type", "value", string(meta.Type))
	}
	if err != nil {
		return err
	}

	entry, err := loyalty.NewLedgerEntry(customer.ID(), amount, meta)
	if err != nil {
		return err
	}
	if err := m.ledger.Append(tx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := m.customers.Update(tx, customer); err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}
