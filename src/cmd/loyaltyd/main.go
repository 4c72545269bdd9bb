// loyaltyd 積分帳本服務
//
//	loyaltyd migrate          建立 / 更新資料表
//	loyaltyd serve            啟動 HTTP API
//	loyaltyd consume-orders   消費 order-events 並發放積分
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackyeh168/restaurant_loyalty/src/internal/config"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/messaging"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/infrastructure/persistence"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/interfaces/httpapi"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "loyaltyd",
		Short:         "Restaurant loyalty points ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml/json/toml); env LOYALTY_* overrides")

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update database tables",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), configPath, runMigrate)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), configPath, runServe)
			},
		},
		&cobra.Command{
			Use:   "consume-orders",
			Short: "Award points for completed orders from Kafka",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), configPath, runConsumer)
			},
		},
	)
	return root
}

// withApp 載入設定、建立 logger 與依賴，並處理 SIGINT / SIGTERM
func withApp(parent context.Context, configPath string, run func(context.Context, *app) error) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.LoggerSetup())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	return run(ctx, a)
}

func runMigrate(ctx context.Context, a *app) error {
	if err := persistence.Migrate(a.db); err != nil {
		return err
	}
	a.logger.Info("database migrated", zap.String("driver", a.cfg.Database.Driver))
	return nil
}

func runServe(ctx context.Context, a *app) error {
	api := httpapi.New(httpapi.Config{
		UseCases: a.useCases,
		Health: func(ctx context.Context) error {
			return persistence.Ping(a.db.WithContext(ctx))
		},
		Metrics:  a.metrics,
		Gatherer: a.registry,
		Logger:   a.logger,
	})

	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runConsumer(ctx context.Context, a *app) error {
	kafkaCfg := a.cfg.Kafka
	if len(kafkaCfg.Brokers) == 0 {
		return errors.New("kafka brokers are not configured (LOYALTY_KAFKA_BROKERS)")
	}

	reader := messaging.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.OrderTopic, kafkaCfg.GroupID)
	defer func() { _ = reader.Close() }()

	consumer := messaging.NewOrderEventConsumer(reader, a.useCases.AwardOrder, a.cfg.ConsumerConfig(), a.metrics, a.logger)

	// 消費者也暴露 /metrics 與 /healthz
	api := httpapi.New(httpapi.Config{
		Health:   func(ctx context.Context) error { return persistence.Ping(a.db.WithContext(ctx)) },
		Gatherer: a.registry,
		Logger:   a.logger,
	})
	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: api.Handler(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}
