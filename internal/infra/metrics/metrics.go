package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	UpdateHandleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "update_handle_duration_seconds",
		Help:    "Длительность обработки апдейта в цикле событий",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	VotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_votes_total",
		Help: "Голоса админов по сторонам",
	}, []string{"side"})

	SubmissionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_submission_outcomes_total",
		Help: "Завершения жизненного цикла поста",
	}, []string{"outcome"})

	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_reports_total",
		Help: "Принятые жалобы",
	}, []string{"kind"})

	FollowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_follows_total",
		Help: "Переключения подписок на обсуждения",
	}, []string{"action"})

	ModerationActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_moderation_actions_total",
		Help: "Действия модерации",
	}, []string{"action"})

	JanitorRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spot_janitor_runs_total",
		Help: "Запуски фоновых задач",
	}, []string{"job", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		BotSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		UpdateHandleDuration,
		VotesTotal,
		SubmissionOutcomes,
		ReportsTotal,
		FollowsTotal,
		ModerationActions,
		JanitorRuns,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
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

// IncVote учитывает голос админа.
func IncVote(approve bool) {
	side := "reject"
	if approve {
		side = "approve"
	}
	VotesTotal.WithLabelValues(side).Inc()
}

// IncOutcome учитывает завершение поста: approved, rejected, expired, cancelled, banned.
func IncOutcome(outcome string) {
	SubmissionOutcomes.WithLabelValues(outcome).Inc()
}

// IncReport учитывает принятую жалобу.
func IncReport(kind string) {
	ReportsTotal.WithLabelValues(kind).Inc()
}

// IncFollow учитывает подписку или отписку.
func IncFollow(action string) {
	FollowsTotal.WithLabelValues(action).Inc()
}

// IncModeration учитывает действие модерации.
func IncModeration(action string) {
	ModerationActions.WithLabelValues(action).Inc()
}

// ObserveJanitor учитывает запуск фоновой задачи.
func ObserveJanitor(job string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	JanitorRuns.WithLabelValues(job, status).Inc()
}
