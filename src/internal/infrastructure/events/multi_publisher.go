package events

import (
	"context"
	"errors"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
)

// MultiPublisher 將事件發送給所有 publisher
//
// 任一失敗不影響其他 publisher，錯誤合併返回。
type MultiPublisher struct {
	publishers []shared.EventPublisher
}

var _ shared.EventPublisher = (*MultiPublisher)(nil)

// NewMultiPublisher 創建 MultiPublisher；nil 項目會被略過
func NewMultiPublisher(publishers ...shared.EventPublisher) *MultiPublisher {
	kept := make([]shared.EventPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &MultiPublisher{publishers: kept}
}

// Publish 發布單一事件
func (m *MultiPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishBatch 批次發布
func (m *MultiPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishBatch(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
