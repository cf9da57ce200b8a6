package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	CollectPassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collect_passes_total",
		Help: "Количество проходов сбора решений",
	})
	CollectIdentityErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "collect_identity_errors_total",
		Help: "Ошибки обработки отдельных профилей при сборе",
	})
	SubmissionsDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submissions_discovered_total",
		Help: "Новые решения, записанные в журнал дедупликации",
	})
	ProblemCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "problem_cache_lookups_total",
		Help: "Обращения к кэшу метаданных задач",
	}, []string{"outcome"})
	ReportBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_build_seconds",
		Help:    "Время построения отчёта группы",
		Buckets: prometheus.DefBuckets,
	})
	ReportDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_deliveries_total",
		Help: "Попытки доставки отчётов по статусу",
	}, []string{"status"})
	SweepDeletedRows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_deleted_rows_total",
		Help: "Записи журнала, удалённые при очистке",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		CollectPassesTotal,
		CollectIdentityErrors,
		SubmissionsDiscovered,
		ProblemCacheLookups,
		ReportBuildSeconds,
		ReportDeliveries,
		SweepDeletedRows,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтами /metrics и /healthz.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}
