// Package httpapi 積分帳本的 HTTP 介面（chi）
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/award"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/customer"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/ledger"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/redemption"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/application/referral"
	"github.com/jackyeh168/restaurant_loyalty/src/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// UseCases HTTP 介面依賴的 Use Case
type UseCases struct {
	RegisterCustomer *customer.RegisterCustomerUseCase
	GetBalance       *ledger.GetBalanceUseCase
	GetHistory       *ledger.GetLedgerHistoryUseCase
	CreditPoints     *ledger.CreditPointsUseCase
	TransferPoints   *ledger.TransferPointsUseCase
	RedeemPoints     *redemption.RedeemPointsUseCase
	GetReferral      *referral.GetPendingReferralUseCase
	AwardOrder       *award.AwardForCompletedOrderUseCase
}

// HealthCheck 健康檢查（通常是資料庫 ping）
type HealthCheck func(ctx context.Context) error

// Config Server 設定
type Config struct {
	UseCases UseCases
	Health   HealthCheck
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server HTTP API
type Server struct {
	uc      UseCases
	health  HealthCheck
	metrics *observability.Metrics
	logger  *zap.Logger

	router http.Handler
}

// New 建立 Server 與路由
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		uc:      cfg.UseCases,
		health:  cfg.Health,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
	s.router = s.buildRouter(cfg.Gatherer)
	return s
}

// Handler 返回根 handler（含 otel 追蹤）
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "loyalty-http")
}

func (s *Server) buildRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/customers", s.RegisterCustomer)
		api.Route("/customers/{id}", func(c chi.Router) {
			c.Get("/balance", s.GetBalance)
			c.Get("/referral", s.GetReferral)
			c.Get("/ledger", s.GetLedger)
			c.Post("/credits", s.CreditPoints)
			c.Post("/redemptions", s.RedeemPoints)
			c.Post("/transfers", s.TransferPoints)
		})
		api.Post("/orders/{id}/award", s.AwardOrder)
	})
	return r
}

// Healthz 健康檢查
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON 解析請求；未知欄位視為錯誤
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
