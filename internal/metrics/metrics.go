// Package metrics はBotの動作状況をPrometheus形式で公開する
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 返信を見送った理由
const (
	DropNotFound    = "destination_not_found"
	DropJokeFetch   = "joke_fetch"
	DropRateLimited = "rate_limited"
	DropSendFailed  = "send_failed"
)

// Metrics はBotのカウンター群
type Metrics struct {
	registry     *prometheus.Registry
	events       prometheus.Counter
	replies      *prometheus.CounterVec
	drops        *prometheus.CounterVec
	usageFailure prometheus.Counter
}

// New は新しいレジストリにカウンターを登録する
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "norrisbot",
			Name:      "messages_received_total",
			Help:      "Number of inbound events delivered by the session.",
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "norrisbot",
			Name:      "replies_sent_total",
			Help:      "Number of jokes sent, by destination kind.",
		}, []string{"kind"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "norrisbot",
			Name:      "replies_dropped_total",
			Help:      "Number of qualifying messages that got no reply, by reason.",
		}, []string{"reason"}),
		usageFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "norrisbot",
			Name:      "usage_record_failures_total",
			Help:      "Number of failed joke usage counter updates.",
		}),
	}
	m.registry.MustRegister(m.events, m.replies, m.drops, m.usageFailure)
	return m
}

// MessageReceived は受信イベント数を加算する
func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.events.Inc()
}

// ReplySent は送信数を加算する
func (m *Metrics) ReplySent(kind string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(kind).Inc()
}

// ReplyDropped は返信を見送った数を加算する
func (m *Metrics) ReplyDropped(reason string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(reason).Inc()
}

// UsageRecordFailed は使用回数記録の失敗数を加算する
func (m *Metrics) UsageRecordFailed() {
	if m == nil {
		return
	}
	m.usageFailure.Inc()
}

// Registry はカウンターが登録されたレジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve はaddrで/metricsを公開し、ctxが終了するまでブロックする
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("メトリクスを公開します", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
