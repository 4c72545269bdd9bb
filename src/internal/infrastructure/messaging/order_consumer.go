package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/award"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ===========================
// 訂單事件消費者
// ===========================

// OrderEvent order-events topic 的訊息內容
type OrderEvent struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// MessageReader kafka.Reader 的最小介面
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderAwarder 發放訂單積分（award.AwardForCompletedOrderUseCase）
type OrderAwarder interface {
	Execute(ctx context.Context, cmd award.AwardCommand) (*award.AwardResult, error)
}

// ConsumerConfig 消費者設定
type ConsumerConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	Concurrency   int
	MaxAttempts   uint
	RetryInitial  time.Duration
	RetryMax      time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 500 * time.Millisecond
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 100 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 2 * time.Second
	}
	return c
}

// 處理結果（亦作為 Prometheus label）
const (
	resultAwarded   = "awarded"
	resultNoOp      = "noop"
	resultIgnored   = "ignored"
	resultMalformed = "malformed"
	resultRejected  = "rejected"
	resultFailed    = "failed"
)

// OrderEventConsumer 消費訂單完成事件並發放積分
//
// 至少一次：整批處理成功才提交 offset；重複投遞由發放冪等吸收。
// 無法處理的訊息（格式錯誤、訂單不存在等）記錄後跳過，
// 暫時性錯誤重試耗盡則停止消費且不提交，重啟後重新投遞。
type OrderEventConsumer struct {
	reader  MessageReader
	awarder OrderAwarder
	cfg     ConsumerConfig
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewKafkaReader 建立 consumer group reader（手動提交）
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
}

// NewOrderEventConsumer 創建消費者；metrics 可為 nil
func NewOrderEventConsumer(
	reader MessageReader,
	awarder OrderAwarder,
	cfg ConsumerConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OrderEventConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderEventConsumer{
		reader:  reader,
		awarder: awarder,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
		logger:  logger,
	}
}

// Run 持續消費直到 ctx 取消（返回 nil）或發生無法恢復的錯誤
func (c *OrderEventConsumer) Run(ctx context.Context) error {
	c.logger.Info("order event consumer started",
		zap.Int("batch_size", c.cfg.BatchSize),
		zap.Int("concurrency", c.cfg.Concurrency),
	)
	defer c.logger.Info("order event consumer stopped")

	for {
		batch, err := c.fetchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch order events: %w", err)
		}

		if err := c.processBatch(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, batch...); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit %d order events: %w", len(batch), err)
		}
		if c.metrics != nil {
			c.metrics.ConsumerBatchSizes.Observe(float64(len(batch)))
		}
	}
}

// fetchBatch 阻塞等待第一筆，之後在 FlushInterval 內湊滿 BatchSize
func (c *OrderEventConsumer) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}

	flushCtx, cancel := context.WithTimeout(ctx, c.cfg.FlushInterval)
	defer cancel()
	for len(batch) < c.cfg.BatchSize {
		msg, err := c.reader.FetchMessage(flushCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// flush 逾時：送出目前的批次
			break
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

func (c *OrderEventConsumer) processBatch(ctx context.Context, batch []kafka.Message) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, msg := range batch {
		g.Go(func() error {
			return c.handle(gctx, msg)
		})
	}
	return g.Wait()
}

// handle 處理單一訊息；只有需要停止消費時才返回錯誤
func (c *OrderEventConsumer) handle(ctx context.Context, msg kafka.Message) error {
	logger := c.logger.With(
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	var event OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.OrderID == "" {
		logger.Warn("malformed order event skipped", zap.ByteString("value", msg.Value), zap.Error(err))
		c.count(resultMalformed)
		return nil
	}
	if !strings.EqualFold(event.Status, string(loyalty.OrderStatusCompleted)) {
		c.count(resultIgnored)
		return nil
	}

	logger = logger.With(zap.String("order_id", event.OrderID))
	result, err := backoff.Retry(ctx,
		func() (*award.AwardResult, error) {
			result, err := c.awarder.Execute(ctx, award.AwardCommand{OrderID: event.OrderID})
			if err != nil && !isRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return result, err
		},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.cfg.MaxAttempts),
	)
	if err != nil {
		if isFatal(err) || ctx.Err() != nil {
			c.count(resultFailed)
			logger.Error("order award failed, stopping consumer", zap.Error(err))
			return fmt.Errorf("award order %s: %w", event.OrderID, err)
		}
		c.count(resultRejected)
		logger.Warn("order event rejected", zap.Error(err))
		return nil
	}

	if result.Outcome == award.OutcomeAwarded {
		c.count(resultAwarded)
		logger.Info("order points awarded",
			zap.String("customer_id", result.CustomerID),
			zap.Int("points", result.PointsEarned),
			zap.Bool("referral_completed", result.ReferralCompleted),
		)
		return nil
	}
	c.count(resultNoOp)
	logger.Debug("order award skipped", zap.String("outcome", string(result.Outcome)))
	return nil
}

func (c *OrderEventConsumer) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitial
	b.MaxInterval = c.cfg.RetryMax
	return b
}

func (c *OrderEventConsumer) count(result string) {
	if c.metrics != nil {
		c.metrics.ConsumerMessages.WithLabelValues(result).Inc()
	}
}

// isFatal 暫時性錯誤（交易衝突、資料庫不可用），重試耗盡後停止消費
func isFatal(err error) bool {
	return errors.Is(err, loyalty.ErrTransientFailure) ||
		errors.Is(err, loyalty.ErrConcurrentModification) ||
		errors.Is(err, loyalty.ErrRepositoryError)
}

// isRetryable 可重試的錯誤
//
// 訂單尚未在本庫標記完成也重試：訂單服務的寫入可能晚於事件到達，
// 重試耗盡後跳過該訊息。
func isRetryable(err error) bool {
	return isFatal(err) || errors.Is(err, loyalty.ErrOrderNotCompleted)
}
