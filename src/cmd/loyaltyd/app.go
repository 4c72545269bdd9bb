package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/award"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/customer"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/redemption"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/referral"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/config"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/loyalty"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/domain/shared"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/cache"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/events"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/persistence"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/interfaces/httpapi"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "loyaltyd"

// app 組裝好的依賴
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	metrics  *observability.Metrics
	registry *prometheus.Registry
	useCases httpapi.UseCases

	closers []func(context.Context) error
}

// newApp 依設定組裝倉儲、領域服務、Use Case 與基礎設施
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingSetup(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	a.db, err = persistence.Open(cfg.PersistenceConfig(), logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error {
		sqlDB, err := a.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewMetrics(a.registry)

	policy, err := cfg.PointsPolicy()
	if err != nil {
		return nil, err
	}
	tiers, err := cfg.TierPolicy()
	if err != nil {
		return nil, err
	}
	calculator, err := loyalty.NewPointsCalculator(policy, tiers)
	if err != nil {
		return nil, err
	}

	customers := persistence.NewCustomerRepository(a.db)
	ledgerRepo := persistence.NewLedgerRepository(a.db)
	referrals := persistence.NewReferralRepository(a.db)
	orders := persistence.NewOrderRepository(a.db)
	txManager := persistence.NewGORMTransactionManager(a.db,
		append(cfg.TransactionOptions(), persistence.WithLogger(logger))...)

	balanceCache, err := a.buildCache(ctx)
	if err != nil {
		return nil, err
	}
	notifier := ledger.NewNotifier(a.buildPublisher(), balanceCache, logger)

	balances := ledger.NewBalanceManager(customers, ledgerRepo, tiers)
	tracker := referral.NewTracker(referrals, balances, policy, logger)

	a.useCases = httpapi.UseCases{
		RegisterCustomer: customer.NewRegisterCustomerUseCase(customers, referrals, txManager, notifier),
		GetBalance:       ledger.NewGetBalanceUseCase(customers, tiers, balanceCache, logger),
		GetHistory:       ledger.NewGetLedgerHistoryUseCase(customers, ledgerRepo),
		CreditPoints:     ledger.NewCreditPointsUseCase(balances, txManager, notifier),
		TransferPoints:   ledger.NewTransferPointsUseCase(balances, txManager, notifier),
		RedeemPoints:     redemption.NewRedeemPointsUseCase(balances, customers, orders, calculator, txManager, notifier),
		GetReferral:      referral.NewGetPendingReferralUseCase(referrals),
		AwardOrder: award.NewAwardForCompletedOrderUseCase(
			orders, customers, balances, tracker, calculator, txManager, notifier, logger),
	}
	return a, nil
}

// buildCache Redis 未設定時返回 nil（GetBalance 直接讀資料庫）
func (a *app) buildCache(ctx context.Context) (ledger.BalanceCache, error) {
	if a.cfg.Redis.Addr == "" {
		return nil, nil
	}
	client, err := cache.NewRedisClient(ctx, a.cfg.CacheConfig())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.logger.Info("balance cache enabled", zap.String("addr", a.cfg.Redis.Addr))
	return cache.NewRedisBalanceCache(client, a.cfg.Redis.TTL), nil
}

// buildPublisher 日誌 publisher 一律啟用；設定 ledger topic 時再寫入 Kafka
func (a *app) buildPublisher() shared.EventPublisher {
	publishers := []shared.EventPublisher{events.NewLoggingPublisher(a.logger, a.metrics)}
	if len(a.cfg.Kafka.Brokers) > 0 && a.cfg.Kafka.LedgerTopic != "" {
		kafkaPublisher := events.NewKafkaPublisher(events.NewKafkaWriter(a.cfg.Kafka.Brokers, a.cfg.Kafka.LedgerTopic))
		a.closers = append(a.closers, func(context.Context) error { return kafkaPublisher.Close() })
		publishers = append(publishers, kafkaPublisher)
		a.logger.Info("ledger events published to kafka",
			zap.String("brokers", strings.Join(a.cfg.Kafka.Brokers, ",")),
			zap.String("topic", a.cfg.Kafka.LedgerTopic),
		)
	}
	return events.NewMultiPublisher(publishers...)
}

// close 依建立順序反向關閉
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
