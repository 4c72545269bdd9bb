package ledger

import (
	"context"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"go.uber.org/zap"
)

// ===========================
// ChangeSet 事務內被修改的聚合
// ===========================

// ChangeSet 收集一次事務中被修改的顧客與推薦
//
// 事務可能被重試，fn 開頭必須調用 Reset，
// 否則失敗嘗試中載入的聚合（及其事件）會被當成已提交。
// nil *ChangeSet 可安全調用（不記錄）。
type ChangeSet struct {
	customers []*loyalty.Customer
	referrals []*loyalty.Referral
}

// Reset 清空（每次事務嘗試開始時調用）
func (c *ChangeSet) Reset() {
	if c == nil {
		return
	}
	c.customers = nil
	c.referrals = nil
}

// TrackCustomer 記錄被修改的顧客
func (c *ChangeSet) TrackCustomer(customers ...*loyalty.Customer) {
	if c == nil {
		return
	}
	for _, customer := range customers {
		if customer != nil {
			c.customers = append(c.customers, customer)
		}
	}
}

// TrackReferral 記錄被完成的推薦
func (c *ChangeSet) TrackReferral(referral *loyalty.Referral) {
	if c != nil && referral != nil {
		c.referrals = append(c.referrals, referral)
	}
}

// CustomerIDs 去重後的顧客 ID
func (c *ChangeSet) CustomerIDs() []loyalty.CustomerID {
	seen := make(map[string]struct{}, len(c.customers))
	ids := make([]loyalty.CustomerID, 0, len(c.customers))
	for _, customer := range c.customers {
		key := customer.ID().String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, customer.ID())
	}
	return ids
}

// CommittedVersions 每位顧客最新的版本號（提交後即為資料庫中的版本）
func (c *ChangeSet) CommittedVersions() []CommittedVersion {
	index := make(map[string]int, len(c.customers))
	versions := make([]CommittedVersion, 0, len(c.customers))
	for _, customer := range c.customers {
		key := customer.ID().String()
		if i, ok := index[key]; ok {
			if customer.Version() > versions[i].Version {
				versions[i].Version = customer.Version()
			}
			continue
		}
		index[key] = len(versions)
		versions = append(versions, CommittedVersion{CustomerID: customer.ID(), Version: customer.Version()})
	}
	return versions
}

// PullEvents 依發生順序取出所有聚合的事件
func (c *ChangeSet) PullEvents() []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, customer := range c.customers {
		events = append(events, customer.PullEvents()...)
	}
	for _, referral := range c.referrals {
		events = append(events, referral.PullEvents()...)
	}
	return events
}

// ===========================
// Notifier 提交後通知
// ===========================

// Notifier 在事務提交後發布領域事件並使餘額快取失效
//
// 兩者都是盡力而為：帳本已提交，失敗只記錄日誌。
type Notifier struct {
	publisher shared.EventPublisher
	cache     BalanceCache
	logger    *zap.Logger
}

// NewNotifier 創建 Notifier；publisher 與 cache 可為 nil
func NewNotifier(publisher shared.EventPublisher, cache BalanceCache, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

// AfterCommit 處理已提交的變更（nil Notifier 為 no-op）
func (n *Notifier) AfterCommit(ctx context.Context, changes *ChangeSet) {
	if n == nil || changes == nil {
		return
	}

	if n.cache != nil {
		committed := changes.CommittedVersions()
		if len(committed) > 0 {
			if err := n.cache.Invalidate(ctx, committed...); err != nil {
				n.logger.Warn("balance cache invalidation failed",
					zap.Int("customers", len(committed)),
					zap.Error(err),
				)
			}
		}
	}

	events := changes.PullEvents()
	if n.publisher == nil || len(events) == 0 {
		return
	}
	if err := n.publisher.PublishBatch(ctx, events); err != nil {
		n.logger.Warn("domain event publish failed",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}
