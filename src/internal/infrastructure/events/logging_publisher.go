package events

import (
	"context"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"go.uber.org/zap"
)

// LoggingPublisher 以結構化日誌記錄事件並更新指標
type LoggingPublisher struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

var _ shared.EventPublisher = (*LoggingPublisher)(nil)

// NewLoggingPublisher 創建 LoggingPublisher；metrics 可為 nil
func NewLoggingPublisher(logger *zap.Logger, metrics *observability.Metrics) *LoggingPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPublisher{logger: logger, metrics: metrics}
}

// Publish 記錄單一事件
func (p *LoggingPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *loyalty.PointsCreditedEvent:
		fields = append(fields,
			zap.String("entry_type", string(e.EntryType)),
			zap.Int("amount", e.Amount),
			zap.Int("new_balance", e.NewBalance),
		)
		p.countPoints("credit", e.EntryType, e.Amount)
	case *loyalty.PointsDebitedEvent:
		fields = append(fields,
			zap.String("entry_type", string(e.EntryType)),
			zap.Int("amount", e.Amount),
			zap.Int("new_balance", e.NewBalance),
		)
		p.countPoints("debit", e.EntryType, e.Amount)
	case *loyalty.TierChangedEvent:
		fields = append(fields, zap.Stringer("from", e.From), zap.Stringer("to", e.To))
		if p.metrics != nil {
			p.metrics.TierChanges.WithLabelValues(e.To.String()).Inc()
		}
	case *loyalty.ReferralCompletedEvent:
		fields = append(fields,
			zap.String("referrer_id", e.ReferrerID.String()),
			zap.String("referred_id", e.ReferredID.String()),
			zap.String("first_order_id", e.FirstOrderID.String()),
		)
	}

	if p.metrics != nil {
		p.metrics.DomainEvents.WithLabelValues(event.EventType()).Inc()
	}
	p.logger.Info("domain event", fields...)
	return nil
}

// PublishBatch 依序記錄
func (p *LoggingPublisher) PublishBatch(ctx context.Context, events []shared.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (p *LoggingPublisher) countPoints(direction string, entryType loyalty.EntryType, amount int) {
	if p.metrics == nil {
		return
	}
	p.metrics.PointsMoved.WithLabelValues(direction, string(entryType)).Add(float64(amount))
}
